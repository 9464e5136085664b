/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sequence.go
Description: Aligned byte sequences for protocol inference. A sequence carries the
consensus bytes of one or more aligned messages together with a gap mask that marks
the positions where the members disagree.
*/

package alignment

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// GapMarker is the textual form of a gap position
const GapMarker = "--"

// Sequence is a consensus of aligned messages
// Data and Gaps always have the same length; Gaps[i] marks a variable position
type Sequence struct {
	Data []byte `json:"data"` // Consensus byte values
	Gaps []bool `json:"gaps"` // True where the aligned members differ
}

// FromPayload wraps a raw payload as a gap-free sequence
func FromPayload(payload []byte) Sequence {
	data := make([]byte, len(payload))
	copy(data, payload)
	return Sequence{Data: data, Gaps: make([]bool, len(payload))}
}

// Len returns the number of aligned columns
func (s Sequence) Len() int {
	s.check()
	return len(s.Data)
}

// Static returns the number of literal (non-gap) columns
func (s Sequence) Static() int {
	n := 0
	for _, g := range s.Gaps {
		if !g {
			n++
		}
	}
	return n
}

// VariableRuns returns the number of maximal gap runs
func (s Sequence) VariableRuns() int {
	runs := 0
	for i, g := range s.Gaps {
		if g && (i == 0 || !s.Gaps[i-1]) {
			runs++
		}
	}
	return runs
}

// Score rates how regular the consensus is on a 0..100 scale.
// It is 100 * static / (static + variable runs), and 0 when nothing is static.
func (s Sequence) Score() float64 {
	static := s.Static()
	if static == 0 {
		return 0
	}
	return 100 * float64(static) / float64(static+s.VariableRuns())
}

// Clone returns a deep copy of the sequence
func (s Sequence) Clone() Sequence {
	c := Sequence{Data: make([]byte, len(s.Data)), Gaps: make([]bool, len(s.Gaps))}
	copy(c.Data, s.Data)
	copy(c.Gaps, s.Gaps)
	return c
}

// String renders the sequence as lowercase hex with "--" in gap columns
func (s Sequence) String() string {
	s.check()
	var b strings.Builder
	b.Grow(2 * len(s.Data))
	for i, v := range s.Data {
		if s.Gaps[i] {
			b.WriteString(GapMarker)
			continue
		}
		b.WriteString(hex.EncodeToString([]byte{v}))
	}
	return b.String()
}

// ParseSequence reads the textual form produced by String.
// Gap columns come back with a zero data byte.
func ParseSequence(text string) (Sequence, error) {
	if len(text)%2 != 0 {
		return Sequence{}, fmt.Errorf("odd-length alignment text: %d characters", len(text))
	}
	n := len(text) / 2
	s := Sequence{Data: make([]byte, n), Gaps: make([]bool, n)}
	for i := 0; i < n; i++ {
		pair := text[2*i : 2*i+2]
		if pair == GapMarker {
			s.Gaps[i] = true
			continue
		}
		v, err := hex.DecodeString(pair)
		if err != nil {
			return Sequence{}, fmt.Errorf("invalid alignment column %d (%q): %w", i, pair, err)
		}
		s.Data[i] = v[0]
	}
	return s, nil
}

func (s Sequence) check() {
	if len(s.Data) != len(s.Gaps) {
		panic(fmt.Sprintf("alignment: sequence has %d bytes but %d mask entries", len(s.Data), len(s.Gaps)))
	}
}
