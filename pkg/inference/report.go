/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: End-to-end analysis of a message corpus. Runs the clustering engine and
then classifies every field and searches every cluster for size fields, collecting the
results into a single report for the CLI and the HTTP surface.
*/

package inference

import (
	"context"

	"github.com/kleascm/protoinfer/pkg/clustering"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/grammar"
	"github.com/kleascm/protoinfer/pkg/rendering"
	"github.com/kleascm/protoinfer/pkg/sizefield"
)

// maxSamples bounds the rendered example cells kept per field
const maxSamples = 5

// FieldReport describes one field of a cluster
type FieldReport struct {
	Index   int                  `json:"index"`
	Name    string               `json:"name"`
	Pattern string               `json:"pattern"`
	Type    core.RenderingType   `json:"type"`
	Legal   []core.RenderingType `json:"legal"`
	Samples []string             `json:"samples"`
}

// ClusterReport describes one cluster
type ClusterReport struct {
	Cluster    *core.Cluster          `json:"-"`
	Fields     []FieldReport          `json:"fields"`
	SizeFields []sizefield.Candidate  `json:"size_fields,omitempty"`
	Mismatches []core.GrammarMismatch `json:"mismatches,omitempty"`
}

// Report is the result of Analyze
type Report struct {
	Clusters []ClusterReport  `json:"clusters"`
	Stats    core.EngineStats `json:"stats"`
}

// AnalyzeOptions selects the optional stages of Analyze
type AnalyzeOptions struct {
	SizeFields bool                // Search for size fields
	Engine     []clustering.Option // Passed through to the clustering engine
}

// Analyze clusters msgs and describes every resulting cluster
func Analyze(ctx context.Context, msgs []*core.Message, cfg core.ClusterConfig, opts AnalyzeOptions) (*Report, error) {
	engine, err := clustering.NewEngine(cfg, opts.Engine...)
	if err != nil {
		return nil, err
	}
	clusters, err := engine.Run(ctx, msgs)
	if err != nil {
		return nil, err
	}

	report := &Report{Stats: engine.Stats()}
	for _, c := range clusters {
		report.Clusters = append(report.Clusters, Describe(c, opts.SizeFields))
	}
	return report, nil
}

// Describe classifies the fields of one cluster and optionally searches it for size fields
func Describe(c *core.Cluster, withSizeFields bool) ClusterReport {
	segs, mismatches := grammar.Segment(c)
	cr := ClusterReport{Cluster: c, Mismatches: mismatches}

	for i, f := range c.Fields {
		var cells [][]byte
		for _, s := range segs {
			if !s.Mismatch {
				cells = append(cells, s.Cells[i])
			}
		}
		samples := cells
		if len(samples) > maxSamples {
			samples = samples[:maxSamples]
		}
		cr.Fields = append(cr.Fields, FieldReport{
			Index:   i,
			Name:    f.Name,
			Pattern: grammar.TokenPattern(f.Token),
			Type:    f.Type,
			Legal:   rendering.Classify(cells),
			Samples: rendering.RenderAll(samples, f.Type),
		})
	}

	if withSizeFields {
		cr.SizeFields, _ = sizefield.Find(c)
	}
	return cr
}
