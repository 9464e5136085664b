/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: api_test.go
Description: Tests for the HTTP query surface, driven through httptest against the
routed handler.
*/

package api_test

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kleascm/protoinfer/pkg/api"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/logging"
	"github.com/kleascm/protoinfer/pkg/sizefield"
	"github.com/kleascm/protoinfer/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelError,
		Format: logging.LogFormatText,
	})
	require.NoError(t, err)

	s, err := api.NewServer(api.DefaultConfig(), core.DefaultClusterConfig(), logger, "test")
	require.NoError(t, err)
	return s.Handler()
}

func records(payloads ...[]byte) []storage.MessageRecord {
	out := make([]storage.MessageRecord, len(payloads))
	for i, p := range payloads {
		out[i] = storage.NewMessageRecord(core.NewMessage(p, core.WithTimestamp(time.Unix(int64(i), 0))))
	}
	return out
}

func hexRecords(t *testing.T, values ...string) []storage.MessageRecord {
	t.Helper()
	payloads := make([][]byte, len(values))
	for i, v := range values {
		b, err := hex.DecodeString(v)
		require.NoError(t, err)
		payloads[i] = b
	}
	return records(payloads...)
}

func post(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	h := newServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp api.HealthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, api.HealthResponse{Status: "ok", Version: "test"}, resp)
}

func TestClusterThenClassify(t *testing.T) {
	h := newServer(t)
	msgs := records(
		[]byte("GET /a.html HTTP/1.1"),
		[]byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x00},
		[]byte("GET /bb.html HTTP/1.1"),
		[]byte{0xde, 0xad, 0xbe, 0xef, 0x02, 0x00},
		[]byte("GET /ccc.html HTTP/1.1"),
		[]byte{0xde, 0xad, 0xbe, 0xef, 0x03, 0x00},
	)

	var resp api.ClusterResponse
	decodeBody(t, post(t, h, "/api/v1/cluster", api.ClusterRequest{Messages: msgs, SizeFields: true}), &resp)

	require.Len(t, resp.Snapshot.Clusters, 2)
	require.Len(t, resp.Report.Clusters, 2)
	assert.Len(t, resp.Snapshot.Messages, len(msgs))
	assert.EqualValues(t, 4, resp.Report.Stats.Merges)

	var http11 storage.ClusterRecord
	for _, c := range resp.Snapshot.Clusters {
		for _, id := range c.Members {
			if id == msgs[0].ID {
				http11 = c
			}
		}
	}
	require.ElementsMatch(t, []string{msgs[0].ID, msgs[2].ID, msgs[4].ID}, http11.Members)

	var classified api.ClassifyResponse
	decodeBody(t, post(t, h, "/api/v1/classify", api.ClassifyRequest{
		ClusterQuery: api.ClusterQuery{Messages: resp.Snapshot.Messages, Cluster: http11},
		Field:        0,
	}), &classified)
	assert.Contains(t, classified.Types, core.RenderBinary)
	assert.Contains(t, classified.Types, core.RenderASCII)
	assert.NotContains(t, classified.Types, core.RenderNum)
}

func TestGrammarThenSizeFields(t *testing.T) {
	h := newServer(t)
	msgs := hexRecords(t, "0003414243", "00055152535455", "000161")
	members := make([]string, len(msgs))
	for i, m := range msgs {
		members[i] = m.ID
	}
	query := api.ClusterQuery{
		Messages: msgs,
		Cluster:  storage.ClusterRecord{ID: "tlv", Name: "tlv", Members: members},
	}

	var rebuilt storage.ClusterRecord
	decodeBody(t, post(t, h, "/api/v1/grammar", api.GrammarRequest{
		ClusterQuery: query,
		Config:       json.RawMessage(`{"default_rendering":"binary"}`),
	}), &rebuilt)

	assert.Equal(t, "tlv", rebuilt.ID)
	require.Len(t, rebuilt.Fields, 2)
	assert.Equal(t, "00", rebuilt.Fields[0].Regex)
	assert.Equal(t, "(.{,6})", rebuilt.Fields[1].Regex)
	assert.Equal(t, "binary", rebuilt.Fields[0].Type)

	var sized api.SizeFieldsResponse
	decodeBody(t, post(t, h, "/api/v1/size-fields", api.ClusterQuery{Messages: msgs, Cluster: rebuilt}), &sized)
	assert.Contains(t, sized.Candidates, sizefield.Candidate{
		SizeField: 0, Width: 2, Endianness: sizefield.BigEndian, PayloadStart: 1, PayloadEnd: 1,
	})
}

func regexes(fields []storage.FieldRecord) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Regex
	}
	return out
}

func TestFieldEdits(t *testing.T) {
	h := newServer(t)
	msgs := hexRecords(t, "0102ff03aabb", "0405ff06aabb")
	query := api.ClusterQuery{
		Messages: msgs,
		Cluster: storage.ClusterRecord{
			ID:      "c",
			Name:    "c",
			Members: []string{msgs[0].ID, msgs[1].ID},
			Fields: []storage.FieldRecord{
				{Name: "f0", Regex: "(.{,2})", Type: "binary"},
				{Name: "f1", Regex: "ff", Type: "binary"},
				{Name: "f2", Regex: "(.{,1})", Type: "binary"},
				{Name: "f3", Regex: "aabb", Type: "binary"},
			},
		},
	}

	t.Run("slick", func(t *testing.T) {
		var got storage.ClusterRecord
		decodeBody(t, post(t, h, "/api/v1/fields/slick", api.FieldEditRequest{ClusterQuery: query}), &got)
		assert.Equal(t, []string{"(.{,4})", "aabb"}, regexes(got.Fields))
		assert.Equal(t, query.Cluster.Members, got.Members)
	})

	t.Run("concat", func(t *testing.T) {
		var got storage.ClusterRecord
		decodeBody(t, post(t, h, "/api/v1/fields/concat", api.FieldEditRequest{ClusterQuery: query, Field: 2}), &got)
		assert.Equal(t, []string{"(.{,2})", "ff", "(.{,3})"}, regexes(got.Fields))
	})

	t.Run("split", func(t *testing.T) {
		var got storage.ClusterRecord
		decodeBody(t, post(t, h, "/api/v1/fields/split", api.FieldEditRequest{ClusterQuery: query, Field: 3, Offset: 1}), &got)
		assert.Equal(t, []string{"(.{,2})", "ff", "(.{,1})", "aa", "bb"}, regexes(got.Fields))
		assert.Equal(t, "f3_split", got.Fields[4].Name)
	})

	t.Run("invalid edits", func(t *testing.T) {
		for path, req := range map[string]api.FieldEditRequest{
			"/api/v1/fields/concat": {ClusterQuery: query, Field: 3},
			"/api/v1/fields/split":  {ClusterQuery: query, Field: 0, Offset: 1},
		} {
			rec := post(t, h, path, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "%s: %s", path, rec.Body.String())
		}
		rec := post(t, h, "/api/v1/fields/split", api.FieldEditRequest{ClusterQuery: query, Field: 1, Offset: 1})
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		rec = post(t, h, "/api/v1/fields/shuffle", api.FieldEditRequest{ClusterQuery: query})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBadRequests(t *testing.T) {
	h := newServer(t)
	msgs := hexRecords(t, "00aa", "00bb")
	cluster := storage.ClusterRecord{ID: "c", Name: "c", Members: []string{msgs[0].ID, msgs[1].ID}}

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"invalid threshold", "/api/v1/cluster", api.ClusterRequest{Messages: msgs, Config: json.RawMessage(`{"equivalence_threshold":150}`)}},
		{"malformed config", "/api/v1/cluster", api.ClusterRequest{Messages: msgs, Config: json.RawMessage(`{"workers":"many"}`)}},
		{"bad payload", "/api/v1/cluster", api.ClusterRequest{Messages: []storage.MessageRecord{{ID: "x", Payload: "zz"}}}},
		{"unknown member", "/api/v1/size-fields", api.ClusterQuery{Messages: msgs, Cluster: storage.ClusterRecord{ID: "c", Members: []string{"nope"}}}},
		{"empty cluster", "/api/v1/grammar", api.GrammarRequest{ClusterQuery: api.ClusterQuery{Messages: msgs, Cluster: storage.ClusterRecord{ID: "c"}}}},
		{"field out of range", "/api/v1/classify", api.ClassifyRequest{ClusterQuery: api.ClusterQuery{Messages: msgs, Cluster: cluster}, Field: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	t.Run("not json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cluster", bytes.NewReader([]byte("{"))))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		for _, path := range []string{"/api/v1/cluster", "/api/v1/grammar", "/api/v1/classify", "/api/v1/size-fields", "/api/v1/fields/slick"} {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
		}
	})
}

func TestNewServerRejectsInvalidDefaults(t *testing.T) {
	logger, err := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelError, Format: logging.LogFormatText})
	require.NoError(t, err)

	cfg := core.DefaultClusterConfig()
	cfg.EquivalenceThreshold = -1
	_, err = api.NewServer(api.DefaultConfig(), cfg, logger, "test")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	serverCfg := api.DefaultConfig()
	serverCfg.MaxBodyBytes = 0
	_, err = api.NewServer(serverCfg, core.DefaultClusterConfig(), logger, "test")
	assert.Error(t, err)
}
