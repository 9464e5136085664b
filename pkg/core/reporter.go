/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface and implementations for clustering progress events.
Lets callers observe iterations, merges, and convergence without touching engine state.
*/

package core

import (
	"github.com/sirupsen/logrus"
)

// MergeEvent describes one accepted merge
type MergeEvent struct {
	Iteration int     `json:"iteration"` // Zero-based iteration index
	Left      string  `json:"left"`      // Name of the lower-index cluster
	Right     string  `json:"right"`     // Name of the higher-index cluster
	MergedID  string  `json:"merged_id"` // Id of the new cluster
	Score     float64 `json:"score"`     // Union score
	Threshold float64 `json:"threshold"` // Effective threshold at this iteration
	Remaining int     `json:"remaining"` // Cluster count after the merge
}

// Reporter defines the interface for clustering progress hooks.
type Reporter interface {
	// OnIteration is called before the pairs of an iteration are scored.
	OnIteration(iteration, clusters int, threshold float64)
	// OnMerge is called after two clusters have been merged.
	OnMerge(event MergeEvent)
	// OnConverged is called once the engine stops merging.
	OnConverged(stats EngineStats)
}

// LoggerReporter logs clustering events using logrus.
type LoggerReporter struct {
	logger logrus.FieldLogger
}

// NewLoggerReporter creates a new LoggerReporter.
func NewLoggerReporter(logger logrus.FieldLogger) *LoggerReporter {
	return &LoggerReporter{logger: logger}
}

// OnIteration logs the start of an iteration.
func (r *LoggerReporter) OnIteration(iteration, clusters int, threshold float64) {
	r.logger.WithFields(logrus.Fields{
		"iteration": iteration,
		"clusters":  clusters,
		"threshold": threshold,
	}).Debug("Scoring cluster pairs")
}

// OnMerge logs an accepted merge.
func (r *LoggerReporter) OnMerge(event MergeEvent) {
	r.logger.WithFields(logrus.Fields{
		"iteration": event.Iteration,
		"left":      event.Left,
		"right":     event.Right,
		"score":     event.Score,
		"threshold": event.Threshold,
		"remaining": event.Remaining,
	}).Info("Clusters merged")
}

// OnConverged logs the final statistics.
func (r *LoggerReporter) OnConverged(stats EngineStats) {
	r.logger.WithFields(logrus.Fields{
		"iterations":     stats.Iterations,
		"pairs":          stats.PairEvaluations,
		"merges":         stats.Merges,
		"orphans_folded": stats.OrphansFolded,
		"duration":       stats.Duration,
	}).Info("Clustering converged")
}

// RecordingReporter keeps every event in memory, for tests and the query surface.
type RecordingReporter struct {
	Iterations []int
	Merges     []MergeEvent
	Final      *EngineStats
}

// OnIteration records the iteration index.
func (r *RecordingReporter) OnIteration(iteration, clusters int, threshold float64) {
	r.Iterations = append(r.Iterations, iteration)
}

// OnMerge records the merge.
func (r *RecordingReporter) OnMerge(event MergeEvent) {
	r.Merges = append(r.Merges, event)
}

// OnConverged records the final statistics.
func (r *RecordingReporter) OnConverged(stats EngineStats) {
	s := stats
	r.Final = &s
}
