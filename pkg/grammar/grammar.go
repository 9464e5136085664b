/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: grammar.go
Description: Field grammar construction. Turns the consensus alignment of a cluster into
an ordered list of literal and variable fields that together cover every member payload.
*/

package grammar

import (
	"fmt"

	"github.com/kleascm/protoinfer/pkg/alignment"
	"github.com/kleascm/protoinfer/pkg/core"
)

// Builder derives field grammars for clusters
type Builder struct {
	aligner   alignment.PairAligner
	rendering core.RenderingType
}

// NewBuilder creates a grammar builder.
// rendering is the type given to every freshly built field.
func NewBuilder(aligner alignment.PairAligner, rendering core.RenderingType) *Builder {
	return &Builder{aligner: aligner, rendering: rendering}
}

// Tokens scans a consensus: maximal gap runs become VARIABLE tokens sized to the run,
// maximal literal runs become LITERAL tokens holding the consensus bytes.
func Tokens(consensus alignment.Sequence) []core.Token {
	n := consensus.Len()
	var tokens []core.Token
	for start := 0; start < n; {
		end := start
		for end < n && consensus.Gaps[end] == consensus.Gaps[start] {
			end++
		}
		if consensus.Gaps[start] {
			tokens = append(tokens, core.Variable(end-start))
		} else {
			tokens = append(tokens, core.Literal(consensus.Data[start:end]))
		}
		start = end
	}
	return tokens
}

// Fields wraps tokens into default-named fields
func (b *Builder) Fields(tokens []core.Token) []core.Field {
	fields := make([]core.Field, len(tokens))
	for i, t := range tokens {
		fields[i] = core.Field{
			Name:  fmt.Sprintf("Field%d", i),
			Token: t,
			Type:  b.rendering,
		}
	}
	return fields
}

// Consensus aligns the reduced payloads of a cluster's members
func (b *Builder) Consensus(c *core.Cluster) alignment.Sequence {
	return alignment.Progressive(b.aligner, c.ReducedPayloads())
}

// Rebuild returns a copy of the cluster with alignment, score, and fields recomputed
// from its members. Id, name, and member order are kept.
func (b *Builder) Rebuild(c *core.Cluster) *core.Cluster {
	out := &core.Cluster{ID: c.ID, Name: c.Name, Members: c.Members}
	if c.IsSingleton() {
		b.applySingleton(out)
		return out
	}
	b.Apply(out, b.Consensus(out))
	return out
}

// Apply installs a precomputed consensus of the cluster's members and rebuilds its fields
func (b *Builder) Apply(c *core.Cluster, consensus alignment.Sequence) {
	if c.IsSingleton() {
		b.applySingleton(c)
		return
	}
	c.Alignment = consensus
	c.Score = consensus.Score()
	c.Fields = b.Fields(padReductions(Tokens(consensus), c.Members))
}

// applySingleton gives a one-member cluster a single literal covering the whole payload
func (b *Builder) applySingleton(c *core.Cluster) {
	payload := c.Members[0].Payload()
	c.Alignment = alignment.FromPayload(payload)
	c.Score = 100
	c.Fields = b.Fields([]core.Token{core.Literal(payload)})
}

// padReductions widens the grammar edges by the largest reduction cut of any member,
// so the grammar covers full payloads although alignment saw reduced ones.
func padReductions(tokens []core.Token, members []*core.Message) []core.Token {
	maxLeft, maxRight := 0, 0
	for _, m := range members {
		l, r := m.ReductionCuts()
		if l > maxLeft {
			maxLeft = l
		}
		if r > maxRight {
			maxRight = r
		}
	}
	if maxLeft > 0 {
		if len(tokens) > 0 && tokens[0].IsVariable() {
			tokens[0] = core.Variable(tokens[0].MaxLength + maxLeft)
		} else {
			tokens = append([]core.Token{core.Variable(maxLeft)}, tokens...)
		}
	}
	if maxRight > 0 {
		if last := len(tokens) - 1; last >= 0 && tokens[last].IsVariable() {
			tokens[last] = core.Variable(tokens[last].MaxLength + maxRight)
		} else {
			tokens = append(tokens, core.Variable(maxRight))
		}
	}
	return tokens
}
