// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

func TestMapMeeting(t *testing.T) {
	march2 := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	march2Day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want types.Meeting
	}{
		{
			name: "primary field names",
			in:   `{"id":"m1","title":"Acme Kickoff","date":"2026-03-02T14:00:00Z","duration":30,"participants":[{"name":"Ana","email":"ana@acme.com"}],"recordingUrl":"https://r/1","tldvUrl":"https://tldv.io/1"}`,
			want: types.Meeting{
				ID: "m1", Title: "Acme Kickoff", Date: &march2, DurationMinutes: 30,
				Participants: []types.Participant{{Name: "Ana", Email: "ana@acme.com"}},
				RecordingURL: "https://r/1", SourceURL: "https://tldv.io/1",
			},
		},
		{
			name: "alternate field names",
			in:   `{"id":"m2","name":"Globex Sync","happenedAt":"2026-03-02","url":"https://tldv.io/2"}`,
			want: types.Meeting{
				ID: "m2", Title: "Globex Sync", Date: &march2Day,
				Participants: []types.Participant{}, SourceURL: "https://tldv.io/2",
			},
		},
		{
			name: "title wins over name and tldvUrl over url",
			in:   `{"id":"m3","title":"T","name":"N","tldvUrl":"a","url":"b"}`,
			want: types.Meeting{ID: "m3", Title: "T", SourceURL: "a", Participants: []types.Participant{}},
		},
		{
			name: "numeric id and string participants",
			in:   `{"id":42,"name":"x","participants":["Bo",{"name":"Cy"}]}`,
			want: types.Meeting{ID: "42", Title: "x", Participants: []types.Participant{{Name: "Bo"}, {Name: "Cy"}}},
		},
		{
			name: "meetingId fallback and missing date",
			in:   `{"id":null,"meetingId":"m4","name":"x"}`,
			want: types.Meeting{ID: "m4", Title: "x", Participants: []types.Participant{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mapMeeting(json.RawMessage(tt.in), logging.Nop())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Meeting)
			assert.False(t, got.Matched())
		})
	}
}

func TestMapMeeting_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"not an object", `"m1"`, "decoding meeting record"},
		{"missing id", `{"name":"x"}`, "no id"},
		{"blank id", `{"id":"  ","name":"x"}`, "no id"},
		{"bad duration", `{"id":"m1","duration":"long"}`, "decoding meeting record"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapMeeting(json.RawMessage(tt.in), logging.Nop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMapMeeting_DateFormats(t *testing.T) {
	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date string
	}{
		{"RFC 3339", `"2026-03-02T10:00:00Z"`},
		{"offset without colon", `"2026-03-02T10:00:00.000+0000"`},
		{"offset with colon", `"2026-03-02T07:00:00-03:00"`},
		{"space separated", `"2026-03-02 10:00:00"`},
		{"epoch seconds", `1772445600`},
		{"epoch milliseconds", `1772445600000`},
		{"epoch string", `"1772445600"`},
		{"RFC 1123", `"Mon, 02 Mar 2026 10:00:00 +0000"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mapMeeting(json.RawMessage(`{"id":"m1","title":"Acme","date":`+tt.date+`}`), logging.Nop())
			require.NoError(t, err)
			require.NotNil(t, got.Date)
			assert.True(t, want.Equal(*got.Date), "got %s", got.Date)
		})
	}
}

func TestMapMeeting_UnreadableDateKeepsMeeting(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown layout", `{"id":"m1","title":"Acme","date":"03/02/2026"}`},
		{"not a date", `{"id":"m1","title":"Acme","happenedAt":"yesterday-ish"}`},
		{"object", `{"id":"m1","title":"Acme","date":{"when":"today"}}`},
		{"bare year", `{"id":"m1","title":"Acme","date":2026}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logging.New(logging.Config{Level: logging.LevelDebug, JSONFormat: true, Output: &buf})

			got, err := mapMeeting(json.RawMessage(tt.in), log)
			require.NoError(t, err)
			assert.Equal(t, "m1", got.ID)
			assert.Equal(t, "Acme", got.Title)
			assert.Nil(t, got.Date)
			assert.Contains(t, buf.String(), "meeting date ignored")
			assert.Contains(t, buf.String(), `"meeting_id":"m1"`)
		})
	}
}

func TestMapMeeting_DateFallsBackToHappenedAt(t *testing.T) {
	got, err := mapMeeting(json.RawMessage(`{"id":"m1","date":"","happenedAt":"2026-03-02"}`), logging.Nop())
	require.NoError(t, err)
	require.NotNil(t, got.Date)
	assert.Equal(t, "2026-03-02", got.Date.Format("2006-01-02"))
}

func TestPeekID(t *testing.T) {
	assert.Equal(t, "m1", peekID(json.RawMessage(`{"id":"m1","date":"garbage"}`)))
	assert.Equal(t, "7", peekID(json.RawMessage(`{"meetingId":7}`)))
	assert.Empty(t, peekID(json.RawMessage(`[]`)))
}

func TestDecodeMeeting(t *testing.T) {
	m, err := DecodeMeeting(json.RawMessage(`{"id":"m1","name":"Acme"}`))
	require.NoError(t, err)
	assert.Equal(t, "Acme", m.Title)

	_, err = DecodeMeeting(json.RawMessage(`{}`))
	assert.ErrorIs(t, err, errNoID)
}
