/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cluster.go
Description: Clusters of messages sharing one inferred format, with their consensus
alignment, score, and field grammar.
*/

package core

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kleascm/protoinfer/pkg/alignment"
)

// Cluster is a group of messages believed to share one format
type Cluster struct {
	ID        string             `json:"id"`        // Unique cluster identifier
	Name      string             `json:"name"`      // Display name
	Members   []*Message         `json:"-"`         // Ordered member messages
	Score     float64            `json:"score"`     // Alignment regularity, 0..100
	Alignment alignment.Sequence `json:"alignment"` // Consensus of the members
	Fields    []Field            `json:"fields"`    // Positional grammar
}

// NewCluster creates a cluster with a fresh identifier.
// Alignment, score, and fields are left for the grammar builder.
func NewCluster(name string, members ...*Message) *Cluster {
	return &Cluster{
		ID:      uuid.New().String(),
		Name:    name,
		Members: members,
	}
}

// Size returns the number of members
func (c *Cluster) Size() int {
	return len(c.Members)
}

// IsSingleton reports whether the cluster holds exactly one message
func (c *Cluster) IsSingleton() bool {
	return len(c.Members) == 1
}

// MemberIDs returns the member identifiers in order
func (c *Cluster) MemberIDs() []string {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ID()
	}
	return ids
}

// Contains reports whether a message id is a member
func (c *Cluster) Contains(id string) bool {
	for _, m := range c.Members {
		if m.ID() == id {
			return true
		}
	}
	return false
}

// Field returns the field at index
func (c *Cluster) Field(index int) (Field, error) {
	if index < 0 || index >= len(c.Fields) {
		return Field{}, fmt.Errorf("%w: %d not in [0,%d)", ErrFieldIndex, index, len(c.Fields))
	}
	return c.Fields[index], nil
}

// Payloads returns the raw member payloads in order
func (c *Cluster) Payloads() [][]byte {
	out := make([][]byte, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Payload()
	}
	return out
}

// ReducedPayloads returns the member payloads with reduction cuts applied
func (c *Cluster) ReducedPayloads() [][]byte {
	out := make([][]byte, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Reduced()
	}
	return out
}

// String returns a short description for logs
func (c *Cluster) String() string {
	return fmt.Sprintf("Cluster(%s, %d members, score %.2f)", c.Name, len(c.Members), c.Score)
}

// Assignments maps every message id to the id of the cluster holding it.
// A message found in two clusters is an error.
func Assignments(clusters []*Cluster) (map[string]string, error) {
	out := make(map[string]string)
	for _, c := range clusters {
		for _, m := range c.Members {
			if prev, ok := out[m.ID()]; ok {
				return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateMember, m.ID(), prev, c.ID)
			}
			out[m.ID()] = c.ID
		}
	}
	return out, nil
}
