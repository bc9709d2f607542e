// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a batch: list meetings from the source, fetch each
// transcript, match each meeting against the caller's accounts, and collect
// the results. One bad meeting never fails the batch; it is logged and
// reported as skipped.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/match"
	"github.com/pdiddy/meeting-matcher/internal/metrics"
	"github.com/pdiddy/meeting-matcher/internal/source"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

// Request describes one batch.
type Request struct {
	StartDate          string
	EndDate            string
	Accounts           []types.Account
	IncludeTranscripts bool
	Limit              int
}

// Outcome is the result of processing one listed meeting. Exactly one of
// Meeting and Err is set.
type Outcome struct {
	Index     int
	MeetingID string
	Meeting   *types.ProcessedMeeting
	Err       error
}

// Skipped reports whether the meeting was left out of the report.
func (o Outcome) Skipped() bool {
	return o.Err != nil
}

// Skip describes a meeting left out of the report.
type Skip struct {
	Index     int    `json:"index" yaml:"index"`
	MeetingID string `json:"tldv_meeting_id,omitempty" yaml:"tldv_meeting_id,omitempty"`
	Reason    string `json:"reason" yaml:"reason"`
}

// Report is the aggregated result of a batch. Items keep source order.
type Report struct {
	BatchID string                   `json:"batch_id" yaml:"batch_id"`
	Listed  int                      `json:"listed" yaml:"listed"`
	Items   []types.ProcessedMeeting `json:"data" yaml:"data"`
	Skipped []Skip                   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Count returns the number of processed meetings.
func (r Report) Count() int {
	return len(r.Items)
}

// HasSkips reports whether any meeting was left out.
func (r Report) HasSkips() bool {
	return len(r.Skipped) > 0
}

// Matched returns the number of items with an attached account.
func (r Report) Matched() int {
	n := 0
	for _, it := range r.Items {
		if it.Matched() {
			n++
		}
	}
	return n
}

// Pipeline processes batches against a meeting source.
type Pipeline struct {
	src          source.Source
	matcher      *match.Matcher
	workers      int
	defaultLimit int
	metrics      *metrics.Metrics
	log          logging.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers processes up to n meetings concurrently. Values below 2 keep
// the batch sequential.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithDefaultLimit sets the list limit used when a request has none.
func WithDefaultLimit(n int) Option {
	return func(p *Pipeline) { p.defaultLimit = n }
}

// WithMetrics records batch metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the pipeline logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New returns a Pipeline reading from src and matching with m. A nil
// matcher uses the default stop words.
func New(src source.Source, m *match.Matcher, opts ...Option) *Pipeline {
	if m == nil {
		m = match.New(nil)
	}
	p := &Pipeline{
		src:          src,
		matcher:      m,
		workers:      1,
		defaultLimit: types.DefaultListLimit,
		log:          logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one batch. A listing failure fails the request. When ctx is
// cancelled mid-batch, the meetings finished so far are returned together
// with the context error.
func (p *Pipeline) Process(ctx context.Context, req Request) (Report, error) {
	started := time.Now()
	report := Report{BatchID: uuid.NewString()}
	log := p.log.With(logging.F("batch_id", report.BatchID))

	limit := req.Limit
	if limit <= 0 {
		limit = p.defaultLimit
	}

	records, err := p.src.ListMeetings(ctx, types.ListFilter{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Limit:     limit,
	})
	if err != nil {
		log.Error("listing meetings failed", logging.Err(err))
		return report, fmt.Errorf("listing meetings: %w", err)
	}
	report.Listed = len(records)
	log.Info("batch started",
		logging.F("meetings", len(records)),
		logging.F("accounts", len(req.Accounts)),
		logging.F("transcripts", req.IncludeTranscripts),
		logging.F("workers", p.workers))

	outcomes, runErr := p.run(ctx, records, req, log)
	for _, o := range outcomes {
		switch {
		case o.Meeting != nil:
			report.Items = append(report.Items, *o.Meeting)
			p.metrics.MeetingDone(metrics.StatusOK)
		case o.Err != nil:
			report.Skipped = append(report.Skipped, Skip{Index: o.Index, MeetingID: o.MeetingID, Reason: o.Err.Error()})
			p.metrics.MeetingDone(metrics.StatusSkipped)
		}
	}
	p.metrics.BatchDone(started)

	log.Info("batch finished",
		logging.F("processed", report.Count()),
		logging.F("matched", report.Matched()),
		logging.F("skipped", len(report.Skipped)),
		logging.F("elapsed", time.Since(started)))
	if runErr != nil {
		return report, runErr
	}
	return report, nil
}

// run processes records and returns one Outcome per record. Records not
// reached before cancellation have neither Meeting nor Err set.
func (p *Pipeline) run(ctx context.Context, records []json.RawMessage, req Request, log logging.Logger) ([]Outcome, error) {
	outcomes := make([]Outcome, len(records))

	if p.workers < 2 {
		for i, raw := range records {
			if err := ctx.Err(); err != nil {
				log.Warn("batch cancelled", logging.F("remaining", len(records)-i))
				return outcomes, err
			}
			outcomes[i] = p.processOne(ctx, i, raw, req, log)
		}
		return outcomes, nil
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, raw := range records {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = p.processOne(ctx, i, raw, req, log)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn("batch cancelled")
		return outcomes, err
	}
	return outcomes, nil
}

// processOne maps, enriches, and matches one record. Panics are recovered
// into a skipped outcome.
func (p *Pipeline) processOne(ctx context.Context, index int, raw json.RawMessage, req Request, log logging.Logger) (out Outcome) {
	out.Index = index
	out.MeetingID = peekID(raw)

	defer func() {
		if r := recover(); r != nil {
			out.Meeting = nil
			out.Err = fmt.Errorf("panic while processing meeting: %v", r)
		}
		if out.Err != nil {
			log.Warn("meeting skipped",
				logging.F("meeting_id", out.MeetingID),
				logging.F("index", index),
				logging.Err(out.Err))
		}
	}()

	pm, err := mapMeeting(raw, log)
	if err != nil {
		out.Err = err
		return out
	}
	out.MeetingID = pm.ID

	if req.IncludeTranscripts {
		p.attachTranscript(ctx, &pm, log)
	}

	if len(req.Accounts) > 0 {
		if r, ok := p.matcher.Match(pm.Meeting, req.Accounts); ok {
			pm.ApplyMatch(r)
			p.metrics.Matched(string(r.Method))
		} else {
			p.metrics.Matched("")
		}
	}

	out.Meeting = &pm
	return out
}

// attachTranscript fetches the transcript for pm. Failures are logged and
// leave the transcript empty.
func (p *Pipeline) attachTranscript(ctx context.Context, pm *types.ProcessedMeeting, log logging.Logger) {
	t, err := p.src.Transcript(ctx, pm.ID)
	if err != nil {
		p.metrics.Transcript(metrics.StatusError)
		log.Warn("transcript unavailable", logging.F("meeting_id", pm.ID), logging.Err(err))
		return
	}
	if t.Text == "" {
		p.metrics.Transcript(metrics.StatusSkipped)
		return
	}
	p.metrics.Transcript(metrics.StatusOK)
	text := t.Text
	pm.Transcript = &text
}
