/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Clustering configuration. Passed explicitly to every engine call and
validated at the boundary; out-of-range values are rejected, never clamped.
*/

package core

import (
	"fmt"
)

// ThresholdSchedule selects how the merge threshold evolves across iterations
type ThresholdSchedule string

const (
	// ScheduleConstant keeps the threshold at its base value
	ScheduleConstant ThresholdSchedule = "constant"
	// ScheduleLinear raises the threshold by Step each iteration
	ScheduleLinear ThresholdSchedule = "linear"
	// ScheduleLegacy adds Step times the iteration index before every iteration
	ScheduleLegacy ThresholdSchedule = "legacy"
)

// ClusterConfig holds all parameters of a clustering run
type ClusterConfig struct {
	EquivalenceThreshold float64           `json:"equivalence_threshold" yaml:"equivalence_threshold" mapstructure:"equivalence_threshold"` // Minimum union score for a merge, 0..100
	MaxIterations        int               `json:"max_iterations" yaml:"max_iterations" mapstructure:"max_iterations"`                   // Merge iterations, 0 = until convergence
	ThresholdSchedule    ThresholdSchedule `json:"threshold_schedule" yaml:"threshold_schedule" mapstructure:"threshold_schedule"`       // How the threshold grows
	ThresholdStep        float64           `json:"threshold_step" yaml:"threshold_step" mapstructure:"threshold_step"`                   // Growth step for non-constant schedules
	OrphanReduction      bool              `json:"orphan_reduction" yaml:"orphan_reduction" mapstructure:"orphan_reduction"`             // Fold singletons after convergence
	DefaultRendering     RenderingType     `json:"default_rendering" yaml:"default_rendering" mapstructure:"default_rendering"`          // Initial field type
	Workers              int               `json:"workers" yaml:"workers" mapstructure:"workers"`                                        // Pair scoring goroutines, 0 = GOMAXPROCS
	Slick                bool              `json:"slick" yaml:"slick" mapstructure:"slick"`                                              // Drop isolated literal bytes between gaps
}

// DefaultClusterConfig returns the configuration used when none is given
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		EquivalenceThreshold: 60,
		MaxIterations:        100,
		ThresholdSchedule:    ScheduleConstant,
		ThresholdStep:        1,
		DefaultRendering:     RenderASCII,
	}
}

// Validate checks the ClusterConfig for invalid values.
// Every error wraps ErrInvalidConfig.
func (c ClusterConfig) Validate() error {
	if c.EquivalenceThreshold < 0 || c.EquivalenceThreshold > 100 {
		return fmt.Errorf("%w: equivalence_threshold %v outside [0,100]", ErrInvalidConfig, c.EquivalenceThreshold)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: max_iterations %d is negative", ErrInvalidConfig, c.MaxIterations)
	}
	switch c.ThresholdSchedule {
	case ScheduleConstant, ScheduleLinear, ScheduleLegacy:
		// ok
	default:
		return fmt.Errorf("%w: unsupported threshold_schedule %q", ErrInvalidConfig, c.ThresholdSchedule)
	}
	if c.ThresholdStep < 0 {
		return fmt.Errorf("%w: threshold_step %v is negative", ErrInvalidConfig, c.ThresholdStep)
	}
	switch c.DefaultRendering {
	case RenderASCII, RenderBinary:
		// ok
	default:
		return fmt.Errorf("%w: default_rendering must be ascii or binary, got %q", ErrInvalidConfig, c.DefaultRendering)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d is negative", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// ThresholdAt returns the effective merge threshold for a zero-based iteration.
// The result never decreases as iteration grows.
func (c ClusterConfig) ThresholdAt(iteration int) float64 {
	k := float64(iteration)
	switch c.ThresholdSchedule {
	case ScheduleLinear:
		return c.EquivalenceThreshold + c.ThresholdStep*k
	case ScheduleLegacy:
		return c.EquivalenceThreshold + c.ThresholdStep*k*(k+1)/2
	default:
		return c.EquivalenceThreshold
	}
}
