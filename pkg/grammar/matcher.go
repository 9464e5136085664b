/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: matcher.go
Description: Byte-level grammar matcher. Splits a payload into one cell per field,
anchored at both ends, with greedy variable captures and memoised backtracking.
*/

package grammar

import (
	"bytes"

	"github.com/kleascm/protoinfer/pkg/core"
)

// Matcher matches payloads against a compiled field grammar
type Matcher struct {
	tokens []core.Token
}

// Compile prepares a matcher for the given fields
func Compile(fields []core.Field) *Matcher {
	tokens := make([]core.Token, len(fields))
	for i, f := range fields {
		tokens[i] = f.Token
	}
	return &Matcher{tokens: tokens}
}

// Bounds returns len(fields)+1 offsets such that field i covers
// payload[bounds[i]:bounds[i+1]]. ok is false when the payload does not match.
// Variable fields capture as many bytes as possible, leftmost first.
func (m *Matcher) Bounds(payload []byte) (bounds []int, ok bool) {
	n := len(payload)
	width := n + 1
	dead := make([]bool, (len(m.tokens)+1)*width)
	bounds = make([]int, len(m.tokens)+1)

	var walk func(t, pos int) bool
	walk = func(t, pos int) bool {
		if t == len(m.tokens) {
			return pos == n
		}
		if dead[t*width+pos] {
			return false
		}
		bounds[t] = pos
		tok := m.tokens[t]
		if tok.IsVariable() {
			max := tok.MaxLength
			if max > n-pos {
				max = n - pos
			}
			for l := max; l >= 0; l-- {
				if walk(t+1, pos+l) {
					return true
				}
			}
		} else if bytes.HasPrefix(payload[pos:], tok.Literal) {
			if walk(t+1, pos+len(tok.Literal)) {
				return true
			}
		}
		dead[t*width+pos] = true
		return false
	}

	if !walk(0, 0) {
		return nil, false
	}
	bounds[len(m.tokens)] = n
	return bounds, true
}

// Cells splits the payload into one cell per field
func (m *Matcher) Cells(payload []byte) ([][]byte, bool) {
	bounds, ok := m.Bounds(payload)
	if !ok {
		return nil, false
	}
	cells := make([][]byte, len(m.tokens))
	for i := range cells {
		cells[i] = payload[bounds[i]:bounds[i+1]]
	}
	return cells, true
}

// Matches reports whether the grammar covers the payload exactly
func (m *Matcher) Matches(payload []byte) bool {
	_, ok := m.Bounds(payload)
	return ok
}
