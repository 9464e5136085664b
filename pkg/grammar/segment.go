/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: segment.go
Description: Applies a cluster grammar to its members. Members the grammar fails to match
are reported as mismatches and handed back unstructured instead of aborting.
*/

package grammar

import (
	"github.com/kleascm/protoinfer/pkg/core"
)

// Segmentation is the result of matching one member
type Segmentation struct {
	MessageID string   `json:"message_id"`
	Bounds    []int    `json:"bounds"`   // Field start offsets plus the payload length
	Cells     [][]byte `json:"cells"`    // One cell per field, nil on mismatch
	Raw       []byte   `json:"raw"`      // Full payload
	Mismatch  bool     `json:"mismatch"` // Grammar did not match this member
}

// Segment matches every member of a cluster against its grammar
func Segment(c *core.Cluster) ([]Segmentation, []core.GrammarMismatch) {
	matcher := Compile(c.Fields)
	out := make([]Segmentation, len(c.Members))
	var mismatches []core.GrammarMismatch

	for i, m := range c.Members {
		seg := Segmentation{MessageID: m.ID(), Raw: m.Payload()}
		bounds, ok := matcher.Bounds(m.Payload())
		if !ok {
			seg.Mismatch = true
			mismatches = append(mismatches, core.GrammarMismatch{
				ClusterID: c.ID,
				MessageID: m.ID(),
				Payload:   m.Payload(),
			})
			out[i] = seg
			continue
		}
		seg.Bounds = bounds
		seg.Cells = make([][]byte, len(c.Fields))
		for f := range c.Fields {
			seg.Cells[f] = m.Payload()[bounds[f]:bounds[f+1]]
		}
		out[i] = seg
	}
	return out, mismatches
}

// Column returns the cells of one field across every matching member
func Column(c *core.Cluster, index int) ([][]byte, []core.GrammarMismatch, error) {
	if _, err := c.Field(index); err != nil {
		return nil, nil, err
	}
	segs, mismatches := Segment(c)
	cells := make([][]byte, 0, len(segs))
	for _, s := range segs {
		if !s.Mismatch {
			cells = append(cells, s.Cells[index])
		}
	}
	return cells, mismatches, nil
}
