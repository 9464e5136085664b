/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: finder.go
Description: Size field discovery. Searches a cluster's grammar for fixed-width unsigned
integers whose value equals the byte length of a later run of fields in every member.
*/

package sizefield

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/grammar"
)

// Endianness is the byte order of a size field
type Endianness string

const (
	BigEndian    Endianness = "big"
	LittleEndian Endianness = "little"
)

// Widths are the integer widths tested, in bytes
var Widths = []int{1, 2, 4}

// Candidate is a plausible length prefix.
// The size is read from the first Width bytes starting at field SizeField; it equals the
// length of fields PayloadStart..PayloadEnd minus any of those bytes the size itself occupies.
// The size window may straddle field SizeField and the fields after it.
type Candidate struct {
	SizeField    int        `json:"size_field"`
	Width        int        `json:"width"`
	Endianness   Endianness `json:"endianness"`
	PayloadStart int        `json:"payload_start"`
	PayloadEnd   int        `json:"payload_end"`
}

// String returns a short description for logs
func (c Candidate) String() string {
	return fmt.Sprintf("Field%d[%d bytes, %s] = len(Field%d..Field%d)", c.SizeField, c.Width, c.Endianness, c.PayloadStart, c.PayloadEnd)
}

// Find reports every size field candidate of a cluster.
// Members the grammar does not match are skipped and returned as mismatches.
func Find(c *core.Cluster) ([]Candidate, []core.GrammarMismatch) {
	segs, mismatches := grammar.Segment(c)

	var members []grammar.Segmentation
	for _, s := range segs {
		if !s.Mismatch {
			members = append(members, s)
		}
	}
	if len(members) == 0 {
		return nil, mismatches
	}

	var out []Candidate
	for s := range c.Fields {
		if !nonEmptyEverywhere(members, s) {
			continue
		}
		for _, w := range Widths {
			out = append(out, scanWidth(members, len(c.Fields), s, w)...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SizeField != b.SizeField {
			return a.SizeField < b.SizeField
		}
		if a.Width != b.Width {
			return a.Width < b.Width
		}
		if a.PayloadStart != b.PayloadStart {
			return a.PayloadStart < b.PayloadStart
		}
		return a.PayloadEnd < b.PayloadEnd
	})
	return out, mismatches
}

// scanWidth tests one size window against every run of fields that does not precede it
func scanWidth(members []grammar.Segmentation, nfields, s, w int) []Candidate {
	n := len(members)
	windowEnd := make([]int, n)
	big := make([]uint64, n)
	little := make([]uint64, n)
	for m, seg := range members {
		start := seg.Bounds[s]
		end := start + w
		if end > len(seg.Raw) {
			return nil
		}
		windowEnd[m] = end
		big[m], little[m] = decode(seg.Raw[start:end])
	}

	var out []Candidate
	lengths := make([]uint64, n)
	for k := s; k < nfields; k++ {
		seen := make(map[string]bool)
		// Largest j first so a range reachable from several runs is named by the tightest one.
		for j := k; j >= s; j-- {
			var key strings.Builder
			valid, empty := true, true
			for m, seg := range members {
				from := seg.Bounds[j]
				if windowEnd[m] > from {
					from = windowEnd[m]
				}
				to := seg.Bounds[k+1]
				if to < from {
					valid = false
					break
				}
				lengths[m] = uint64(to - from)
				if lengths[m] != 0 {
					empty = false
				}
				key.WriteString(strconv.Itoa(from))
				key.WriteByte(',')
			}
			if !valid || empty || seen[key.String()] {
				continue
			}
			seen[key.String()] = true

			if equal(big, lengths) {
				out = append(out, Candidate{SizeField: s, Width: w, Endianness: BigEndian, PayloadStart: j, PayloadEnd: k})
			}
			if w > 1 && equal(little, lengths) {
				out = append(out, Candidate{SizeField: s, Width: w, Endianness: LittleEndian, PayloadStart: j, PayloadEnd: k})
			}
		}
	}
	return out
}

func decode(b []byte) (big, little uint64) {
	switch len(b) {
	case 1:
		return uint64(b[0]), uint64(b[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), uint64(binary.LittleEndian.Uint32(b))
	default:
		panic(fmt.Sprintf("sizefield: unsupported width %d", len(b)))
	}
}

func equal(a, b []uint64) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nonEmptyEverywhere(members []grammar.Segmentation, field int) bool {
	for _, seg := range members {
		if seg.Bounds[field] == seg.Bounds[field+1] {
			return false
		}
	}
	return true
}
