/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference.go
Description: Query boundary of the protocol inference core. Exposes clustering, grammar
rebuilding, field classification, and size field discovery as plain functions over
explicit configuration.
*/

package inference

import (
	"context"
	"fmt"

	"github.com/kleascm/protoinfer/pkg/alignment"
	"github.com/kleascm/protoinfer/pkg/clustering"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/grammar"
	"github.com/kleascm/protoinfer/pkg/rendering"
	"github.com/kleascm/protoinfer/pkg/sizefield"
)

// Cluster groups messages by format and returns clusters with rebuilt grammars
func Cluster(ctx context.Context, msgs []*core.Message, cfg core.ClusterConfig, opts ...clustering.Option) ([]*core.Cluster, error) {
	engine, err := clustering.NewEngine(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, msgs)
}

// RebuildGrammar recomputes the alignment, score, and fields of a cluster from its
// current members, for example after reduction factors changed
func RebuildGrammar(c *core.Cluster, cfg core.ClusterConfig) (*core.Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.Size() == 0 {
		return nil, fmt.Errorf("cluster %s has no members", c.Name)
	}
	aligner := alignment.NewAligner(alignment.WithSlick(cfg.Slick))
	return grammar.NewBuilder(aligner, cfg.DefaultRendering).Rebuild(c), nil
}

// ClassifyField returns the rendering types legal for every matching member's cell at index
func ClassifyField(c *core.Cluster, index int) ([]core.RenderingType, error) {
	cells, _, err := grammar.Column(c, index)
	if err != nil {
		return nil, err
	}
	return rendering.Classify(cells), nil
}

// FindSizeFields reports size field candidates of a cluster
func FindSizeFields(c *core.Cluster) ([]sizefield.Candidate, error) {
	if c.Size() == 0 {
		return nil, fmt.Errorf("cluster %s has no members", c.Name)
	}
	candidates, _ := sizefield.Find(c)
	return candidates, nil
}
