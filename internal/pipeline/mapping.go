// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

// errNoID marks an upstream record without a usable meeting id.
var errNoID = errors.New("meeting record has no id")

// dateLayouts are tried in order when parsing upstream dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Numeric dates below epochMin are rejected; at or above
// epochMillisThreshold they are taken as milliseconds.
const (
	epochMin             = 1e8
	epochMillisThreshold = 1e11
)

// record is a list_meetings entry. Field names vary between server
// versions, so alternates are read and the first non-empty one wins.
type record struct {
	ID           json.RawMessage `json:"id"`
	MeetingID    json.RawMessage `json:"meetingId"`
	Title        string          `json:"title"`
	Name         string          `json:"name"`
	Date         json.RawMessage `json:"date"`
	HappenedAt   json.RawMessage `json:"happenedAt"`
	Duration     *float64        `json:"duration"`
	Participants []participant   `json:"participants"`
	RecordingURL string          `json:"recordingUrl"`
	TLDVURL      string          `json:"tldvUrl"`
	URL          string          `json:"url"`
}

// participant accepts either {"name","email"} objects or bare name strings.
type participant types.Participant

func (p *participant) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*p = participant{Name: name}
		return nil
	}
	var obj types.Participant
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*p = participant(obj)
	return nil
}

// mapMeeting converts one upstream record into a ProcessedMeeting without
// match fields. A date that cannot be read is logged and left nil; the
// meeting is still returned.
func mapMeeting(raw json.RawMessage, log logging.Logger) (types.ProcessedMeeting, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.ProcessedMeeting{}, fmt.Errorf("decoding meeting record: %w", err)
	}

	id := firstID(rec.ID, rec.MeetingID)
	if id == "" {
		return types.ProcessedMeeting{}, errNoID
	}

	m := types.Meeting{
		ID:           id,
		Title:        firstNonEmpty(rec.Title, rec.Name),
		RecordingURL: rec.RecordingURL,
		SourceURL:    firstNonEmpty(rec.TLDVURL, rec.URL),
		Participants: make([]types.Participant, 0, len(rec.Participants)),
	}
	if rec.Duration != nil {
		m.DurationMinutes = *rec.Duration
	}
	for _, p := range rec.Participants {
		m.Participants = append(m.Participants, types.Participant(p))
	}

	if v := firstPresent(rec.Date, rec.HappenedAt); v != nil {
		t, err := parseDate(v)
		if err != nil {
			log.Warn("meeting date ignored", logging.F("meeting_id", id), logging.Err(err))
		} else {
			m.Date = &t
		}
	}

	return types.ProcessedMeeting{Meeting: m}, nil
}

// peekID returns the record id for logging, or "" when it cannot be read.
func peekID(raw json.RawMessage) string {
	var rec struct {
		ID        json.RawMessage `json:"id"`
		MeetingID json.RawMessage `json:"meetingId"`
	}
	if json.Unmarshal(raw, &rec) != nil {
		return ""
	}
	return firstID(rec.ID, rec.MeetingID)
}

// firstID accepts string or numeric ids.
func firstID(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		c = bytes.TrimSpace(c)
		if len(c) == 0 || bytes.Equal(c, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(c, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(c, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// firstPresent returns the first value that is neither missing, null, nor
// an empty string.
func firstPresent(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		v = bytes.TrimSpace(v)
		if len(v) == 0 || bytes.Equal(v, []byte("null")) {
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

// parseDate reads a date string in one of dateLayouts or a Unix epoch in
// seconds or milliseconds, given as a JSON number or a numeric string.
func parseDate(v json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return time.Time{}, fmt.Errorf("unrecognized meeting date %s", v)
		}
		s = n.String()
	}
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= epochMin && !math.IsInf(f, 0) {
		return epochTime(f), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized meeting date %q", s)
}

func epochTime(f float64) time.Time {
	if f >= epochMillisThreshold {
		return time.UnixMilli(int64(f)).UTC()
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// DecodeMeeting maps one list_meetings record onto a Meeting using the same
// field rules as a batch.
func DecodeMeeting(raw json.RawMessage) (types.Meeting, error) {
	pm, err := mapMeeting(raw, logging.Nop())
	return pm.Meeting, err
}
