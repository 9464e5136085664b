/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: server.go
Description: HTTP query surface for protoinfer. Exposes clustering, grammar rebuilding,
field edits, field classification, and size field search as JSON endpoints on a gorilla/mux router
with request logging and graceful shutdown.
*/

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/kleascm/protoinfer/pkg/logging"
)

// Config holds the HTTP server settings
type Config struct {
	ListenAddr      string        `json:"listen_addr" mapstructure:"listen_addr"`
	ReadTimeout     time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `json:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// DefaultConfig returns the server defaults
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 5 * time.Second,
		MaxBodyBytes:    64 << 20,
	}
}

// Server serves the query API
type Server struct {
	config   Config
	defaults core.ClusterConfig
	logger   *logging.Logger
	version  string
	router   *mux.Router
}

// NewServer creates a server. defaults is the clustering configuration used when a
// request does not carry its own.
func NewServer(config Config, defaults core.ClusterConfig, logger *logging.Logger, version string) (*Server, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}
	if config.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("max_body_bytes must be positive")
	}

	s := &Server{
		config:   config,
		defaults: defaults,
		logger:   logger,
		version:  version,
		router:   mux.NewRouter(),
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/healthz", s.healthHandler).Methods("GET")

	s.router.HandleFunc("/api/v1/cluster", s.clusterHandler).Methods("POST")
	s.router.HandleFunc("/api/v1/grammar", s.grammarHandler).Methods("POST")
	s.router.HandleFunc("/api/v1/classify", s.classifyHandler).Methods("POST")
	s.router.HandleFunc("/api/v1/size-fields", s.sizeFieldsHandler).Methods("POST")
	s.router.HandleFunc("/api/v1/fields/{edit:slick|concat|split}", s.fieldEditHandler).Methods("POST")

	return s, nil
}

// Handler returns the routed handler, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Component("api").WithField("addr", server.Addr).Info("API server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("could not listen on %s: %w", server.Addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Component("api").Info("API server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Component("api").Info("API server exited")
	return <-errCh
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r.Body = http.MaxBytesReader(rec, r.Body, s.config.MaxBodyBytes)
		next.ServeHTTP(rec, r)
		s.logger.LogRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
