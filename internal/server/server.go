// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the meeting source and the batch pipeline over
// HTTP. Every JSON response uses the envelope {success, data | error, total}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/pipeline"
	"github.com/pdiddy/meeting-matcher/internal/source"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

const maxBodyBytes = 10 << 20

// Server is the HTTP surface.
type Server struct {
	cfg      types.ServerConfig
	src      source.Source
	pipe     *pipeline.Pipeline
	gatherer prometheus.Gatherer
	log      logging.Logger
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithGatherer serves g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithClock overrides the clock used in the health payload.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New returns a Server for src and pipe. cfg is validated and defaulted.
func New(cfg types.ServerConfig, src source.Source, pipe *pipeline.Pipeline, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:  cfg,
		src:  src,
		pipe: pipe,
		log:  logging.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the routed handler with request id, logging, and CORS
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/meetings/list", s.handleList)
	mux.HandleFunc("POST /api/meetings/metadata", s.handleMetadata)
	mux.HandleFunc("POST /api/meetings/transcript", s.handleTranscript)
	mux.HandleFunc("POST /api/meetings/highlights", s.handleHighlights)
	mux.HandleFunc("POST /api/meetings/process", s.handleProcess)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return s.withRequestID(s.withLogging(withCORS(mux)))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening",
			logging.F("address", ln.Addr().String()), logging.F("service", s.cfg.ServiceName))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// envelope is the response body of every API route.
type envelope struct {
	Success bool            `json:"success"`
	Total   *int            `json:"total,omitempty"`
	Data    any             `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	BatchID string          `json:"batch_id,omitempty"`
	Skipped []pipeline.Skip `json:"skipped,omitempty"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

type meetingRequest struct {
	MeetingID string `json:"meetingId"`
}

type processRequest struct {
	StartDate          string          `json:"startDate"`
	EndDate            string          `json:"endDate"`
	Accounts           []types.Account `json:"clientes"`
	IncludeTranscripts *bool           `json:"includeTranscripts"`
	Limit              int             `json:"limit"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   s.cfg.ServiceName,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var f types.ListFilter
	if !s.decode(w, r, &f) {
		return
	}
	records, err := s.src.ListMeetings(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	total := len(records)
	writeJSON(w, http.StatusOK, envelope{Success: true, Total: &total, Data: records})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	s.handleMeeting(w, r, func(ctx context.Context, id string) (any, error) {
		return s.src.Metadata(ctx, id)
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	s.handleMeeting(w, r, func(ctx context.Context, id string) (any, error) {
		return s.src.Transcript(ctx, id)
	})
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request) {
	s.handleMeeting(w, r, func(ctx context.Context, id string) (any, error) {
		return s.src.Highlights(ctx, id)
	})
}

// handleMeeting serves the single-meeting pass-through routes.
func (s *Server) handleMeeting(w http.ResponseWriter, r *http.Request, fetch func(context.Context, string) (any, error)) {
	var req meetingRequest
	if !s.decode(w, r, &req) {
		return
	}
	data, err := fetch(r.Context(), req.MeetingID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !s.decode(w, r, &req) {
		return
	}
	include := true
	if req.IncludeTranscripts != nil {
		include = *req.IncludeTranscripts
	}

	report, err := s.pipe.Process(r.Context(), pipeline.Request{
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Accounts:           req.Accounts,
		IncludeTranscripts: include,
		Limit:              req.Limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	items := report.Items
	if items == nil {
		items = []types.ProcessedMeeting{}
	}
	total := report.Count()
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Total:   &total,
		Data:    items,
		BatchID: report.BatchID,
		Skipped: report.Skipped,
	})
}

// decode reads an optional JSON body into v. An empty body leaves v zero.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid JSON body: " + err.Error()})
	return false
}

// fail maps err onto a status code: validation errors are the caller's
// fault, everything else is an upstream failure.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if source.IsValidation(err) {
		status = http.StatusBadRequest
	}
	requestLogger(r.Context(), s.log).Error("request failed",
		logging.F("path", r.URL.Path), logging.F("status", status), logging.Err(err))
	writeJSON(w, status, envelope{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
