/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: finder_test.go
Description: Tests for size field discovery.
*/

package sizefield_test

import (
	"encoding/hex"
	"testing"

	"github.com/kleascm/protoinfer/pkg/alignment"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/grammar"
	"github.com/kleascm/protoinfer/pkg/sizefield"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messagesFromHex(t *testing.T, values ...string) []*core.Message {
	t.Helper()
	out := make([]*core.Message, len(values))
	for i, v := range values {
		b, err := hex.DecodeString(v)
		require.NoError(t, err)
		out[i] = core.NewMessage(b)
	}
	return out
}

func TestFindBigEndianLengthPrefix(t *testing.T) {
	msgs := messagesFromHex(t, "0003414243", "00055152535455", "000161")
	builder := grammar.NewBuilder(alignment.NewAligner(), core.RenderBinary)
	c := builder.Rebuild(core.NewCluster("tlv", msgs...))

	require.Equal(t, "00(.{,6})", grammar.Pattern(c.Fields))

	candidates, mismatches := sizefield.Find(c)
	assert.Empty(t, mismatches)
	assert.Contains(t, candidates, sizefield.Candidate{
		SizeField: 0, Width: 2, Endianness: sizefield.BigEndian, PayloadStart: 1, PayloadEnd: 1,
	})
	for _, cand := range candidates {
		assert.NotEqual(t, sizefield.LittleEndian, cand.Endianness, "unexpected %s", cand)
	}
}

func TestFindExplicitTwoByteField(t *testing.T) {
	msgs := messagesFromHex(t, "0003414243", "00055152535455", "000161")
	c := core.NewCluster("tlv", msgs...)
	c.Fields = []core.Field{
		{Name: "length", Token: core.Variable(2)},
		{Name: "value", Token: core.Variable(5)},
	}

	candidates, _ := sizefield.Find(c)
	assert.Contains(t, candidates, sizefield.Candidate{
		SizeField: 0, Width: 2, Endianness: sizefield.BigEndian, PayloadStart: 1, PayloadEnd: 1,
	})
}

func TestFindLittleEndian(t *testing.T) {
	msgs := messagesFromHex(t, "0300aabbcc", "0500aabbccddee", "0100aa")
	c := core.NewCluster("le", msgs...)
	c.Fields = []core.Field{
		{Token: core.Variable(2)},
		{Token: core.Variable(5)},
	}

	candidates, _ := sizefield.Find(c)
	assert.Contains(t, candidates, sizefield.Candidate{
		SizeField: 0, Width: 2, Endianness: sizefield.LittleEndian, PayloadStart: 1, PayloadEnd: 1,
	})
	assert.NotContains(t, candidates, sizefield.Candidate{
		SizeField: 0, Width: 2, Endianness: sizefield.BigEndian, PayloadStart: 1, PayloadEnd: 1,
	})
}

func TestFindFourByteSpanningRun(t *testing.T) {
	// header | size (4 bytes BE) | tag | body | trailer
	msgs := messagesFromHex(t,
		"ff0000000401aabbcc7e",
		"ff000000060102030405067e",
	)
	c := core.NewCluster("wide", msgs...)
	c.Fields = []core.Field{
		{Token: core.Literal([]byte{0xff})},
		{Token: core.Variable(4)},
		{Token: core.Literal([]byte{0x01})},
		{Token: core.Variable(6)},
		{Token: core.Literal([]byte{0x7e})},
	}

	candidates, _ := sizefield.Find(c)
	assert.Contains(t, candidates, sizefield.Candidate{
		SizeField: 1, Width: 4, Endianness: sizefield.BigEndian, PayloadStart: 2, PayloadEnd: 3,
	})
}

func TestFindNothing(t *testing.T) {
	msgs := messagesFromHex(t, "10203040", "11223344")
	c := core.NewCluster("none", msgs...)
	c.Fields = []core.Field{{Token: core.Variable(4)}}

	candidates, _ := sizefield.Find(c)
	assert.Empty(t, candidates)
}

func TestFindSkipsMismatchedMembers(t *testing.T) {
	msgs := messagesFromHex(t, "0003414243", "000161", "ffff")
	c := core.NewCluster("partial", msgs...)
	c.Fields = []core.Field{
		{Token: core.Literal([]byte{0x00})},
		{Token: core.Variable(4)},
	}

	candidates, mismatches := sizefield.Find(c)
	require.Len(t, mismatches, 1)
	assert.Equal(t, msgs[2].ID(), mismatches[0].MessageID)
	assert.Contains(t, candidates, sizefield.Candidate{
		SizeField: 0, Width: 2, Endianness: sizefield.BigEndian, PayloadStart: 1, PayloadEnd: 1,
	})
}

func TestFindAllMismatched(t *testing.T) {
	msgs := messagesFromHex(t, "ffff")
	c := core.NewCluster("bad", msgs...)
	c.Fields = []core.Field{{Token: core.Literal([]byte{0x00})}}

	candidates, mismatches := sizefield.Find(c)
	assert.Empty(t, candidates)
	assert.Len(t, mismatches, 1)
}
