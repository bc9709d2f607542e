// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package transcriptcache

import (
	"context"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/metrics"
	"github.com/pdiddy/meeting-matcher/internal/source"
)

var _ source.Source = (*Source)(nil)

// Source wraps a source.Source and serves transcripts from the cache when
// possible. Other operations pass straight through.
type Source struct {
	source.Source
	store   *Store
	metrics *metrics.Metrics
	log     logging.Logger
}

// Wrap returns src with transcript caching backed by store. m and log may
// be nil.
func Wrap(src source.Source, store *Store, m *metrics.Metrics, log logging.Logger) *Source {
	if log == nil {
		log = logging.Nop()
	}
	return &Source{Source: src, store: store, metrics: m, log: log}
}

// Transcript returns the cached transcript for meetingID, fetching and
// storing it on a miss. Cache errors degrade to a direct fetch.
func (s *Source) Transcript(ctx context.Context, meetingID string) (source.Transcript, error) {
	if meetingID != "" {
		e, ok, err := s.store.Get(ctx, meetingID)
		switch {
		case err != nil:
			s.log.Warn("transcript cache read failed", logging.F("meeting_id", meetingID), logging.Err(err))
		case ok:
			s.metrics.Transcript(metrics.StatusCached)
			return source.Transcript{Text: e.Text}, nil
		}
	}

	t, err := s.Source.Transcript(ctx, meetingID)
	if err != nil {
		return t, err
	}
	if t.Text != "" {
		if err := s.store.Put(ctx, meetingID, t.Text); err != nil {
			s.log.Warn("transcript cache write failed", logging.F("meeting_id", meetingID), logging.Err(err))
		}
	}
	return t, nil
}
