/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error values shared across the inference packages.
*/

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a ClusterConfig fails validation
	ErrInvalidConfig = errors.New("invalid cluster configuration")
	// ErrInvalidReduction is returned for out-of-range or conflicting reduction factors
	ErrInvalidReduction = errors.New("invalid reduction factor")
	// ErrFieldIndex is returned when a field index is outside a cluster's grammar
	ErrFieldIndex = errors.New("field index out of range")
	// ErrDuplicateMember is returned when a message appears in more than one cluster
	ErrDuplicateMember = errors.New("message assigned to more than one cluster")
	// ErrDuplicateMessage is returned when a corpus already holds a message id
	ErrDuplicateMessage = errors.New("duplicate message id")
)

// GrammarMismatch records a member whose payload the cluster grammar failed to match.
// The member is kept and its payload is handed back unstructured.
type GrammarMismatch struct {
	ClusterID string `json:"cluster_id"`
	MessageID string `json:"message_id"`
	Payload   []byte `json:"payload"`
}

// Error implements error
func (g GrammarMismatch) Error() string {
	return fmt.Sprintf("grammar of cluster %s does not match message %s (%d bytes)", g.ClusterID, g.MessageID, len(g.Payload))
}
