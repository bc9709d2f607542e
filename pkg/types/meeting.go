// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures for the meeting-matcher
// pipeline: meetings as read from the meeting-intelligence source, accounts
// from the system of record, and the match results that link them.
//
// JSON field names follow the wire format of the downstream integration that
// consumes processed meetings, so they are kept in their original (Portuguese)
// spelling.
package types

import "time"

// Participant is one attendee of a meeting.
type Participant struct {
	// Name is the attendee display name.
	Name string `json:"name" yaml:"name"`

	// Email is optional; many attendees join without one.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// Meeting is a meeting record mapped from the remote meeting source.
// The matcher treats it as read-only input.
type Meeting struct {
	ID              string        `json:"tldv_meeting_id" yaml:"tldv_meeting_id"`
	Title           string        `json:"titulo" yaml:"titulo"`
	Date            *time.Time    `json:"data" yaml:"data"`
	DurationMinutes float64       `json:"duracao_minutos" yaml:"duracao_minutos"`
	Participants    []Participant `json:"participantes" yaml:"participantes"`
	RecordingURL    string        `json:"recording_url" yaml:"recording_url"`
	SourceURL       string        `json:"tldv_url" yaml:"tldv_url"`

	// Transcript is nil when transcripts were not requested or could not be fetched.
	Transcript *string `json:"transcricao" yaml:"transcricao"`
}

// Account is a customer record from the system of record. Accounts are
// supplied by the caller per request and never persisted.
type Account struct {
	// ID is the opaque key into the system of record (a ClickUp task id).
	ID    string `json:"clickup_task_id" yaml:"clickup_task_id"`
	Name  string `json:"nome" yaml:"nome"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// MatchMethod names the cascade tier that produced a match.
type MatchMethod string

const (
	MatchEmail                 MatchMethod = "email"
	MatchTitleSubstringExact   MatchMethod = "titulo_substring_exact"
	MatchTitleSubstringInverse MatchMethod = "titulo_substring_inverse"
	MatchTitleWordOverlap      MatchMethod = "titulo_word_based"
)

// Tier returns the precedence of the method; lower tiers win. Unknown
// methods sort after every known one.
func (m MatchMethod) Tier() int {
	switch m {
	case MatchEmail:
		return 1
	case MatchTitleSubstringExact:
		return 2
	case MatchTitleSubstringInverse:
		return 3
	case MatchTitleWordOverlap:
		return 4
	default:
		return 5
	}
}

// MatchResult links a meeting to exactly one account.
type MatchResult struct {
	AccountID  string      `json:"cliente_id" yaml:"cliente_id"`
	Method     MatchMethod `json:"matched_by" yaml:"matched_by"`
	Confidence float64     `json:"matched_confidence" yaml:"matched_confidence"`
}

// ProcessedMeeting is a meeting enriched by the batch pipeline. The match
// fields are nil when no account matched or no accounts were supplied.
type ProcessedMeeting struct {
	Meeting `yaml:",inline"`

	AccountID  *string      `json:"cliente_id" yaml:"cliente_id"`
	Method     *MatchMethod `json:"matched_by" yaml:"matched_by"`
	Confidence *float64     `json:"matched_confidence" yaml:"matched_confidence"`
}

// ApplyMatch copies a match result into the nullable match fields.
func (p *ProcessedMeeting) ApplyMatch(r MatchResult) {
	id, method, conf := r.AccountID, r.Method, r.Confidence
	p.AccountID = &id
	p.Method = &method
	p.Confidence = &conf
}

// Matched reports whether an account has been attached.
func (p ProcessedMeeting) Matched() bool {
	return p.AccountID != nil
}

// ListFilter narrows a list_meetings call. Zero values are omitted from the
// upstream request.
type ListFilter struct {
	Query               string `json:"query,omitempty" yaml:"query,omitempty"`
	StartDate           string `json:"startDate,omitempty" yaml:"start_date,omitempty"`
	EndDate             string `json:"endDate,omitempty" yaml:"end_date,omitempty"`
	ParticipationStatus string `json:"participationStatus,omitempty" yaml:"participation_status,omitempty"`
	MeetingType         string `json:"meetingType,omitempty" yaml:"meeting_type,omitempty"`
	Limit               int    `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Args converts the filter into tool-call arguments, leaving out empty fields.
func (f ListFilter) Args() map[string]any {
	args := map[string]any{}
	if f.Query != "" {
		args["query"] = f.Query
	}
	if f.StartDate != "" {
		args["startDate"] = f.StartDate
	}
	if f.EndDate != "" {
		args["endDate"] = f.EndDate
	}
	if f.ParticipationStatus != "" {
		args["participationStatus"] = f.ParticipationStatus
	}
	if f.MeetingType != "" {
		args["meetingType"] = f.MeetingType
	}
	if f.Limit > 0 {
		args["limit"] = f.Limit
	}
	return args
}
