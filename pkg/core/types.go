/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the protocol inference engine. Defines fields, grammar tokens,
rendering types, and engine statistics shared by the alignment, grammar, and clustering
packages.
*/

package core

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"time"
)

// RenderingType names a way of presenting the bytes of a field
type RenderingType string

const (
	RenderNum       RenderingType = "num"
	RenderAlpha     RenderingType = "alpha"
	RenderAlphaNum  RenderingType = "alphanum"
	RenderASCII     RenderingType = "ascii"
	RenderBase64Enc RenderingType = "base64enc"
	RenderBase64Dec RenderingType = "base64dec"
	RenderBinary    RenderingType = "binary"
)

// RenderingOrder is the fixed order in which legal rendering types are reported
var RenderingOrder = []RenderingType{
	RenderNum,
	RenderAlpha,
	RenderAlphaNum,
	RenderASCII,
	RenderBase64Enc,
	RenderBase64Dec,
	RenderBinary,
}

// ParseRenderingType validates a rendering type name
func ParseRenderingType(name string) (RenderingType, error) {
	for _, t := range RenderingOrder {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown rendering type %q", name)
}

// TokenKind distinguishes static from variable grammar tokens
type TokenKind int

const (
	TokenLiteral TokenKind = iota
	TokenVariable
)

// String returns the token kind name
func (k TokenKind) String() string {
	switch k {
	case TokenLiteral:
		return "literal"
	case TokenVariable:
		return "variable"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is one positional element of a field grammar
type Token struct {
	Kind      TokenKind `json:"kind"`       // Literal or variable
	Literal   []byte    `json:"literal"`    // Exact bytes for literal tokens
	MaxLength int       `json:"max_length"` // Upper bound of the capture for variable tokens
}

// Literal returns a token matching exactly b
func Literal(b []byte) Token {
	c := make([]byte, len(b))
	copy(c, b)
	return Token{Kind: TokenLiteral, Literal: c}
}

// Variable returns a token capturing between 0 and max bytes
func Variable(max int) Token {
	return Token{Kind: TokenVariable, MaxLength: max}
}

// IsVariable reports whether the token captures a variable region
func (t Token) IsVariable() bool {
	return t.Kind == TokenVariable
}

// Width returns the literal length or the maximum capture length
func (t Token) Width() int {
	if t.IsVariable() {
		return t.MaxLength
	}
	return len(t.Literal)
}

// Equal compares two tokens
func (t Token) Equal(o Token) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.IsVariable() {
		return t.MaxLength == o.MaxLength
	}
	return bytes.Equal(t.Literal, o.Literal)
}

// String renders the token for logs and tests
func (t Token) String() string {
	if t.IsVariable() {
		return fmt.Sprintf("VARIABLE(%d)", t.MaxLength)
	}
	return fmt.Sprintf("LITERAL(%X)", t.Literal)
}

// Field is one positional region of a cluster's message format
type Field struct {
	Name        string        `json:"name"`        // Display name
	Token       Token         `json:"token"`       // Grammar token for this region
	Type        RenderingType `json:"type"`        // Selected rendering type
	Indent      int           `json:"indent"`      // Nesting level for display
	Description string        `json:"description"` // Free-form description
	Highlight   string        `json:"highlight"`   // Display highlight tag
}

// EngineStats tracks clustering statistics
// Uses atomic operations because pair scoring workers update it concurrently
type EngineStats struct {
	Iterations      int64         `json:"iterations"`       // Merge iterations performed
	PairEvaluations int64         `json:"pair_evaluations"` // Union alignments computed
	Merges          int64         `json:"merges"`           // Clusters merged
	OrphansFolded   int64         `json:"orphans_folded"`   // Singletons folded by orphan reduction
	Mismatches      int64         `json:"mismatches"`       // Members whose grammar did not match
	StartTime       time.Time     `json:"start_time"`       // When clustering started
	Duration        time.Duration `json:"duration"`         // Wall time of the last run
}

// IncrementIterations atomically increments the iteration counter
func (s *EngineStats) IncrementIterations() {
	atomic.AddInt64(&s.Iterations, 1)
}

// IncrementPairEvaluations atomically increments the pair evaluation counter
func (s *EngineStats) IncrementPairEvaluations() {
	atomic.AddInt64(&s.PairEvaluations, 1)
}

// IncrementMerges atomically increments the merge counter
func (s *EngineStats) IncrementMerges() {
	atomic.AddInt64(&s.Merges, 1)
}

// IncrementOrphansFolded atomically increments the orphan counter
func (s *EngineStats) IncrementOrphansFolded() {
	atomic.AddInt64(&s.OrphansFolded, 1)
}

// AddMismatches atomically adds to the mismatch counter
func (s *EngineStats) AddMismatches(n int) {
	atomic.AddInt64(&s.Mismatches, int64(n))
}

// Snapshot returns a consistent copy of the counters
func (s *EngineStats) Snapshot() EngineStats {
	return EngineStats{
		Iterations:      atomic.LoadInt64(&s.Iterations),
		PairEvaluations: atomic.LoadInt64(&s.PairEvaluations),
		Merges:          atomic.LoadInt64(&s.Merges),
		OrphansFolded:   atomic.LoadInt64(&s.OrphansFolded),
		Mismatches:      atomic.LoadInt64(&s.Mismatches),
		StartTime:       s.StartTime,
		Duration:        s.Duration,
	}
}
