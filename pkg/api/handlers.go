/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: handlers.go
Description: Request and response bodies of the query API and their handlers. Clusters
travel as persisted records together with the message records they reference.
*/

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kleascm/protoinfer/pkg/clustering"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/grammar"
	"github.com/kleascm/protoinfer/pkg/inference"
	"github.com/kleascm/protoinfer/pkg/sizefield"
	"github.com/kleascm/protoinfer/pkg/storage"
)

// ClusterRequest asks for a full clustering run
type ClusterRequest struct {
	Messages   []storage.MessageRecord `json:"messages"`
	Config     json.RawMessage         `json:"config,omitempty"` // Overrides on top of the server defaults
	SizeFields bool                    `json:"size_fields"`
}

// ClusterResponse carries the persisted result and its analysis
type ClusterResponse struct {
	Snapshot storage.Snapshot  `json:"snapshot"`
	Report   *inference.Report `json:"report"`
}

// ClusterQuery identifies one cluster and the messages it references
type ClusterQuery struct {
	Messages []storage.MessageRecord `json:"messages"`
	Cluster  storage.ClusterRecord   `json:"cluster"`
}

// GrammarRequest asks for the grammar of a cluster to be rebuilt
type GrammarRequest struct {
	ClusterQuery
	Config json.RawMessage `json:"config,omitempty"`
}

// ClassifyRequest asks for the legal renderings of one field
type ClassifyRequest struct {
	ClusterQuery
	Field int `json:"field"`
}

// FieldEditRequest edits the grammar of a cluster. Field is the edited field for
// concat and split; Offset is the split point inside a literal field.
type FieldEditRequest struct {
	ClusterQuery
	Field  int `json:"field"`
	Offset int `json:"offset"`
}

// ClassifyResponse lists the legal renderings of a field
type ClassifyResponse struct {
	Field int                  `json:"field"`
	Types []core.RenderingType `json:"types"`
}

// SizeFieldsResponse lists size field candidates
type SizeFieldsResponse struct {
	Candidates []sizefield.Candidate `json:"candidates"`
}

// HealthResponse reports liveness
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// errBadRequest marks request errors that map to 400
var errBadRequest = errors.New("bad request")

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, HealthResponse{Status: "ok", Version: s.version})
}

// clusterHandler handles full clustering runs
func (s *Server) clusterHandler(w http.ResponseWriter, r *http.Request) {
	var req ClusterRequest
	if err := decode(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	cfg, err := s.clusterConfig(req.Config)
	if err != nil {
		s.writeError(w, err)
		return
	}
	msgs, _, err := restore(req.Messages, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := inference.Analyze(r.Context(), msgs, cfg, inference.AnalyzeOptions{
		SizeFields: req.SizeFields,
		Engine:     []clustering.Option{clustering.WithLogger(s.logger.Component("engine"))},
	})
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to cluster messages: %w", err))
		return
	}

	clusters := make([]*core.Cluster, len(report.Clusters))
	for i, cr := range report.Clusters {
		clusters[i] = cr.Cluster
	}
	s.writeJSON(w, ClusterResponse{
		Snapshot: storage.NewSnapshot(msgs, clusters),
		Report:   report,
	})
}

// grammarHandler rebuilds the grammar of one cluster from its members
func (s *Server) grammarHandler(w http.ResponseWriter, r *http.Request) {
	var req GrammarRequest
	if err := decode(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	cfg, err := s.clusterConfig(req.Config)
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := req.cluster()
	if err != nil {
		s.writeError(w, err)
		return
	}

	rebuilt, err := inference.RebuildGrammar(c, cfg)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.writeJSON(w, storage.NewClusterRecord(rebuilt))
}

// classifyHandler classifies one field of a cluster
func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decode(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := req.cluster()
	if err != nil {
		s.writeError(w, err)
		return
	}

	types, err := inference.ClassifyField(c, req.Field)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, ClassifyResponse{Field: req.Field, Types: types})
}

// fieldEditHandler applies slick, concat or split to the fields of one cluster
func (s *Server) fieldEditHandler(w http.ResponseWriter, r *http.Request) {
	var req FieldEditRequest
	if err := decode(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := req.cluster()
	if err != nil {
		s.writeError(w, err)
		return
	}

	edit := mux.Vars(r)["edit"]
	var fields []core.Field
	switch edit {
	case "slick":
		fields = grammar.Slick(c.Fields)
	case "concat":
		fields, err = grammar.Concat(c.Fields, req.Field)
	case "split":
		fields, err = grammar.Split(c.Fields, req.Field, req.Offset)
	}
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %s: %v", errBadRequest, edit, err))
		return
	}
	c.Fields = fields
	s.writeJSON(w, storage.NewClusterRecord(c))
}

// sizeFieldsHandler searches one cluster for size fields
func (s *Server) sizeFieldsHandler(w http.ResponseWriter, r *http.Request) {
	var req ClusterQuery
	if err := decode(r.Body, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := req.cluster()
	if err != nil {
		s.writeError(w, err)
		return
	}

	candidates, err := inference.FindSizeFields(c)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if candidates == nil {
		candidates = []sizefield.Candidate{}
	}
	s.writeJSON(w, SizeFieldsResponse{Candidates: candidates})
}

// cluster restores the queried cluster against the supplied messages
func (q ClusterQuery) cluster() (*core.Cluster, error) {
	_, clusters, err := restore(q.Messages, []storage.ClusterRecord{q.Cluster})
	if err != nil {
		return nil, err
	}
	return clusters[0], nil
}

func restore(msgs []storage.MessageRecord, clusters []storage.ClusterRecord) ([]*core.Message, []*core.Cluster, error) {
	snapshot := storage.Snapshot{Version: storage.SnapshotVersion, Messages: msgs, Clusters: clusters}
	m, c, err := snapshot.Restore()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return m, c, nil
}

// clusterConfig overlays the request's overrides on the server defaults
func (s *Server) clusterConfig(raw json.RawMessage) (core.ClusterConfig, error) {
	cfg := s.defaults
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: invalid config: %v", errBadRequest, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(body io.Reader, v interface{}) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("%w: failed to read request body: %v", errBadRequest, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: failed to decode request: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, core.ErrInvalidConfig), errors.Is(err, core.ErrFieldIndex):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}
