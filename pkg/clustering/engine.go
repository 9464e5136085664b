/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Iterative clustering engine. Starts from one cluster per message and keeps
merging the most similar pair of clusters until no pair reaches the merge threshold,
then rebuilds the field grammar of every surviving cluster.
*/

package clustering

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kleascm/protoinfer/pkg/alignment"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/grammar"
	"github.com/sirupsen/logrus"
)

// node is a cluster under construction together with its running consensus
type node struct {
	cluster   *core.Cluster
	consensus alignment.Sequence
	score     float64
}

// Engine groups messages into clusters of equal format
type Engine struct {
	config    core.ClusterConfig
	aligner   alignment.PairAligner
	builder   *grammar.Builder
	logger    logrus.FieldLogger
	reporters []core.Reporter
	stats     core.EngineStats
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for engine events
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithReporter adds a progress reporter
func WithReporter(r core.Reporter) Option {
	return func(e *Engine) { e.reporters = append(e.reporters, r) }
}

// WithAligner replaces the Needleman-Wunsch aligner
func WithAligner(a alignment.PairAligner) Option {
	return func(e *Engine) { e.aligner = a }
}

// NewEngine creates an engine for a validated configuration
func NewEngine(config core.ClusterConfig, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		config:  config,
		aligner: alignment.NewAligner(alignment.WithSlick(config.Slick)),
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.builder = grammar.NewBuilder(e.aligner, config.DefaultRendering)
	return e, nil
}

// Builder returns the grammar builder bound to the engine's aligner and rendering
func (e *Engine) Builder() *grammar.Builder {
	return e.builder
}

// Stats returns the statistics of the last run
func (e *Engine) Stats() core.EngineStats {
	return e.stats.Snapshot()
}

// Run clusters the messages. The result is a partition of msgs; every cluster carries
// a rebuilt field grammar. Cancelling ctx stops the run between iterations.
func (e *Engine) Run(ctx context.Context, msgs []*core.Message) ([]*core.Cluster, error) {
	e.stats = core.EngineStats{StartTime: time.Now()}
	if len(msgs) == 0 {
		return nil, nil
	}

	nodes := make([]*node, len(msgs))
	for i, m := range msgs {
		nodes[i] = &node{
			cluster:   core.NewCluster(strconv.Itoa(i), m),
			consensus: alignment.FromPayload(m.Reduced()),
			score:     100,
		}
	}

	e.logger.WithFields(logrus.Fields{
		"messages":  len(msgs),
		"threshold": e.config.EquivalenceThreshold,
		"schedule":  e.config.ThresholdSchedule,
		"workers":   e.config.Workers,
	}).Info("Starting clustering")

	cache := newPairCache()
	for iter := 0; e.config.MaxIterations == 0 || iter < e.config.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("clustering interrupted at iteration %d: %w", iter, err)
		}
		if len(nodes) < 2 {
			break
		}

		threshold := e.config.ThresholdAt(iter)
		for _, r := range e.reporters {
			r.OnIteration(iter, len(nodes), threshold)
		}
		e.stats.IncrementIterations()

		best := e.bestPair(nodes, cache)
		if best.score < threshold {
			e.logger.WithFields(logrus.Fields{
				"iteration":  iter,
				"best_score": best.score,
				"threshold":  threshold,
			}).Debug("No pair reaches the threshold")
			break
		}

		nodes = e.merge(nodes, best, cache)
		e.stats.IncrementMerges()
		for _, r := range e.reporters {
			r.OnMerge(core.MergeEvent{
				Iteration: iter,
				Left:      best.leftName,
				Right:     best.rightName,
				MergedID:  nodes[best.i].cluster.ID,
				Score:     best.score,
				Threshold: threshold,
				Remaining: len(nodes),
			})
		}
	}

	if e.config.OrphanReduction {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("clustering interrupted before orphan reduction: %w", err)
		}
		nodes = e.reduceOrphans(nodes)
	}

	clusters := make([]*core.Cluster, len(nodes))
	for i, n := range nodes {
		e.builder.Apply(n.cluster, n.consensus)
		if _, mismatches := grammar.Segment(n.cluster); len(mismatches) > 0 {
			e.stats.AddMismatches(len(mismatches))
			for _, mm := range mismatches {
				e.logger.WithFields(logrus.Fields{
					"cluster": mm.ClusterID,
					"message": mm.MessageID,
				}).Warn("Grammar does not match member")
			}
		}
		clusters[i] = n.cluster
	}

	e.stats.Duration = time.Since(e.stats.StartTime)
	final := e.stats.Snapshot()
	for _, r := range e.reporters {
		r.OnConverged(final)
	}
	e.logger.WithFields(logrus.Fields{
		"clusters":   len(clusters),
		"iterations": final.Iterations,
		"merges":     final.Merges,
		"duration":   final.Duration,
	}).Info("Clustering finished")

	return clusters, nil
}

// merge replaces the pair (best.i, best.j) by their union at position best.i
func (e *Engine) merge(nodes []*node, best scoredPair, cache *pairCache) []*node {
	left, right := nodes[best.i], nodes[best.j]

	members := make([]*core.Message, 0, left.cluster.Size()+right.cluster.Size())
	members = append(members, left.cluster.Members...)
	members = append(members, right.cluster.Members...)

	merged := core.NewCluster(left.cluster.Name+"-"+right.cluster.Name, members...)
	consensus := alignment.Extend(e.aligner, left.consensus, right.cluster.ReducedPayloads())
	merged.Score = consensus.Score()

	cache.forget(left.cluster.ID)
	cache.forget(right.cluster.ID)

	nodes[best.i] = &node{cluster: merged, consensus: consensus, score: merged.Score}
	return append(nodes[:best.j], nodes[best.j+1:]...)
}
