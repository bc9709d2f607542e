// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus metrics exported by meeting-matcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
	StatusCached  = "cached"
)

// Metrics holds the collectors for the pipeline and the meeting source.
type Metrics struct {
	// Pipeline metrics
	MeetingsTotal    *prometheus.CounterVec
	MatchesTotal     *prometheus.CounterVec
	BatchSeconds     prometheus.Histogram
	TranscriptsTotal *prometheus.CounterVec

	// Source metrics
	SourceCallsTotal  *prometheus.CounterVec
	SourceCallSeconds *prometheus.HistogramVec
}

// New registers the collectors on reg. Each registry may hold one set.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MeetingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_matcher_meetings_total",
				Help: "Meetings handled by batch runs, by outcome",
			},
			[]string{"status"},
		),
		MatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_matcher_matches_total",
				Help: "Meetings matched to an account, by method (none when unmatched)",
			},
			[]string{"method"},
		),
		BatchSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "meeting_matcher_batch_seconds",
				Help:    "Duration of a full batch run",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
		),
		TranscriptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_matcher_transcripts_total",
				Help: "Transcript lookups, by outcome; cache hits are also counted as cached",
			},
			[]string{"status"},
		),
		SourceCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meeting_matcher_source_calls_total",
				Help: "Tool calls made to the meeting source",
			},
			[]string{"tool", "status"},
		),
		SourceCallSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meeting_matcher_source_call_seconds",
				Help:    "Latency of tool calls to the meeting source",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
	}
}

// ObserveSourceCall records one tool call. A nil receiver is a no-op so
// callers need not check whether metrics are enabled.
func (m *Metrics) ObserveSourceCall(tool string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.SourceCallsTotal.WithLabelValues(tool, status).Inc()
	m.SourceCallSeconds.WithLabelValues(tool).Observe(time.Since(started).Seconds())
}

// MeetingDone records the outcome of one meeting in a batch.
func (m *Metrics) MeetingDone(status string) {
	if m == nil {
		return
	}
	m.MeetingsTotal.WithLabelValues(status).Inc()
}

// Matched records which method matched a meeting, or "none".
func (m *Metrics) Matched(method string) {
	if m == nil {
		return
	}
	if method == "" {
		method = "none"
	}
	m.MatchesTotal.WithLabelValues(method).Inc()
}

// Transcript records the outcome of a transcript lookup.
func (m *Metrics) Transcript(status string) {
	if m == nil {
		return
	}
	m.TranscriptsTotal.WithLabelValues(status).Inc()
}

// BatchDone records the duration of a batch.
func (m *Metrics) BatchDone(started time.Time) {
	if m == nil {
		return
	}
	m.BatchSeconds.Observe(time.Since(started).Seconds())
}
