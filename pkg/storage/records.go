/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: records.go
Description: Persistence records for messages and clusters. Converts engine results to
plain serialisable records and restores them with identical grammars and member
assignments.
*/

package storage

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kleascm/protoinfer/pkg/alignment"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/grammar"
)

// SnapshotVersion is the record layout written by this package
const SnapshotVersion = 1

// MessageRecord is the persisted form of a message
type MessageRecord struct {
	ID             string    `json:"id" yaml:"id" toml:"id"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	LeftReduction  int       `json:"left_reduction" yaml:"left_reduction" toml:"left_reduction"`
	RightReduction int       `json:"right_reduction" yaml:"right_reduction" toml:"right_reduction"`
	Payload        string    `json:"payload" yaml:"payload" toml:"payload"` // Lowercase hex
	Protocol       string    `json:"protocol,omitempty" yaml:"protocol,omitempty" toml:"protocol,omitempty"`
	Source         string    `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
	Destination    string    `json:"destination,omitempty" yaml:"destination,omitempty" toml:"destination,omitempty"`
}

// FieldRecord is the persisted form of a field
type FieldRecord struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	Regex       string `json:"regex" yaml:"regex" toml:"regex"`
	Type        string `json:"type" yaml:"type" toml:"type"`
	Indent      int    `json:"indent" yaml:"indent" toml:"indent"`
	Description string `json:"description" yaml:"description" toml:"description"`
	Highlight   string `json:"highlight" yaml:"highlight" toml:"highlight"`
}

// ClusterRecord is the persisted form of a cluster
type ClusterRecord struct {
	ID        string        `json:"id" yaml:"id" toml:"id"`
	Name      string        `json:"name" yaml:"name" toml:"name"`
	Score     float64       `json:"score" yaml:"score" toml:"score"`
	Alignment string        `json:"alignment" yaml:"alignment" toml:"alignment"` // Hex with "--" gaps
	Members   []string      `json:"members" yaml:"members" toml:"members"`
	Fields    []FieldRecord `json:"fields" yaml:"fields" toml:"fields"`
}

// Snapshot is a complete persisted clustering result
type Snapshot struct {
	Version  int             `json:"version" yaml:"version" toml:"version"`
	Messages []MessageRecord `json:"messages" yaml:"messages" toml:"messages"`
	Clusters []ClusterRecord `json:"clusters" yaml:"clusters" toml:"clusters"`
}

// NewMessageRecord converts a message
func NewMessageRecord(m *core.Message) MessageRecord {
	return MessageRecord{
		ID:             m.ID(),
		Timestamp:      m.Timestamp().UTC(),
		LeftReduction:  m.LeftReduction(),
		RightReduction: m.RightReduction(),
		Payload:        hex.EncodeToString(m.Payload()),
		Protocol:       m.Protocol(),
		Source:         m.Source(),
		Destination:    m.Destination(),
	}
}

// NewClusterRecord converts a cluster
func NewClusterRecord(c *core.Cluster) ClusterRecord {
	rec := ClusterRecord{
		ID:        c.ID,
		Name:      c.Name,
		Score:     c.Score,
		Alignment: c.Alignment.String(),
		Members:   c.MemberIDs(),
		Fields:    make([]FieldRecord, len(c.Fields)),
	}
	for i, f := range c.Fields {
		rec.Fields[i] = FieldRecord{
			Name:        f.Name,
			Regex:       grammar.TokenPattern(f.Token),
			Type:        string(f.Type),
			Indent:      f.Indent,
			Description: f.Description,
			Highlight:   f.Highlight,
		}
	}
	return rec
}

// NewSnapshot converts messages and the clusters built from them
func NewSnapshot(msgs []*core.Message, clusters []*core.Cluster) Snapshot {
	s := Snapshot{
		Version:  SnapshotVersion,
		Messages: make([]MessageRecord, len(msgs)),
		Clusters: make([]ClusterRecord, len(clusters)),
	}
	for i, m := range msgs {
		s.Messages[i] = NewMessageRecord(m)
	}
	for i, c := range clusters {
		s.Clusters[i] = NewClusterRecord(c)
	}
	return s
}

// Message restores one message record
func (r MessageRecord) Message() (*core.Message, error) {
	payload, err := hex.DecodeString(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("message %s: invalid payload: %w", r.ID, err)
	}
	m := core.NewMessage(payload,
		core.WithID(r.ID),
		core.WithTimestamp(r.Timestamp),
		core.WithProvenance(r.Protocol, r.Source, r.Destination),
	)
	if err := m.SetReduction(r.LeftReduction, r.RightReduction); err != nil {
		return nil, fmt.Errorf("message %s: %w", r.ID, err)
	}
	return m, nil
}

// Field restores one field record
func (r FieldRecord) Field() (core.Field, error) {
	tok, err := grammar.ParseToken(r.Regex)
	if err != nil {
		return core.Field{}, fmt.Errorf("field %s: %w", r.Name, err)
	}
	rt, err := core.ParseRenderingType(r.Type)
	if err != nil {
		return core.Field{}, fmt.Errorf("field %s: %w", r.Name, err)
	}
	return core.Field{
		Name:        r.Name,
		Token:       tok,
		Type:        rt,
		Indent:      r.Indent,
		Description: r.Description,
		Highlight:   r.Highlight,
	}, nil
}

// Restore rebuilds messages and clusters. Cluster members are resolved against the
// snapshot's own messages, and every message may belong to at most one cluster.
func (s Snapshot) Restore() ([]*core.Message, []*core.Cluster, error) {
	if s.Version != SnapshotVersion {
		return nil, nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}

	corpus := core.NewCorpus()
	for _, r := range s.Messages {
		m, err := r.Message()
		if err != nil {
			return nil, nil, err
		}
		if err := corpus.Add(m); err != nil {
			return nil, nil, err
		}
	}

	clusters := make([]*core.Cluster, len(s.Clusters))
	for i, r := range s.Clusters {
		members, err := corpus.Resolve(r.Members)
		if err != nil {
			return nil, nil, fmt.Errorf("cluster %s: %w", r.ID, err)
		}
		seq, err := alignment.ParseSequence(r.Alignment)
		if err != nil {
			return nil, nil, fmt.Errorf("cluster %s: %w", r.ID, err)
		}
		c := &core.Cluster{
			ID:        r.ID,
			Name:      r.Name,
			Members:   members,
			Score:     r.Score,
			Alignment: seq,
			Fields:    make([]core.Field, len(r.Fields)),
		}
		for j, fr := range r.Fields {
			if c.Fields[j], err = fr.Field(); err != nil {
				return nil, nil, fmt.Errorf("cluster %s: %w", r.ID, err)
			}
		}
		clusters[i] = c
	}

	if _, err := core.Assignments(clusters); err != nil {
		return nil, nil, err
	}
	return corpus.Messages(), clusters, nil
}
