// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestSourceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SourceConfig
		want    SourceConfig
		wantErr string
	}{
		{
			name: "docker defaults",
			cfg:  SourceConfig{},
			want: SourceConfig{Mode: TransportDocker, Image: DefaultImage, Timeout: DefaultTimeout, MaxRetries: DefaultMaxRetries},
		},
		{
			name: "local keeps explicit values",
			cfg:  SourceConfig{Mode: TransportLocal, ServerPath: "/srv/mcp.js", Timeout: time.Second},
			want: SourceConfig{Mode: TransportLocal, NodeBinary: DefaultNodeBinary, ServerPath: "/srv/mcp.js", Timeout: time.Second, MaxRetries: DefaultMaxRetries},
		},
		{name: "local without script", cfg: SourceConfig{Mode: TransportLocal}, wantErr: "server_path"},
		{name: "http without endpoint", cfg: SourceConfig{Mode: TransportHTTP}, wantErr: "endpoint"},
		{name: "unknown mode", cfg: SourceConfig{Mode: "ftp"}, wantErr: "unknown source mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "key", SourceConfig{APIKey: "key"}.BearerToken())
	assert.Equal(t, "tok", SourceConfig{APIKey: "key", EndpointToken: "tok"}.BearerToken())
}

func TestConfigValidateDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, DefaultListLimit, cfg.Pipeline.DefaultLimit)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"default", "", false},
		{"port only", ":8080", false},
		{"host and port", "127.0.0.1:0", false},
		{"missing port", "localhost", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ServerConfig{Addr: tt.addr}
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorContains(t, err, "server.addr")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestListFilterArgs(t *testing.T) {
	assert.Empty(t, ListFilter{}.Args())
	assert.Equal(t, map[string]any{
		"query":               "acme",
		"participationStatus": "participated",
		"meetingType":         "external",
		"limit":               10,
	}, ListFilter{Query: "acme", ParticipationStatus: "participated", MeetingType: "external", Limit: 10}.Args())
}

func TestMatchMethodTier(t *testing.T) {
	assert.Less(t, MatchEmail.Tier(), MatchTitleSubstringExact.Tier())
	assert.Less(t, MatchTitleSubstringExact.Tier(), MatchTitleSubstringInverse.Tier())
	assert.Less(t, MatchTitleSubstringInverse.Tier(), MatchTitleWordOverlap.Tier())
	assert.Less(t, MatchTitleWordOverlap.Tier(), MatchMethod("other").Tier())
}

func TestProcessedMeetingWireFormat(t *testing.T) {
	date := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	p := ProcessedMeeting{Meeting: Meeting{
		ID:              "m1",
		Title:           "Acme Kickoff",
		Date:            &date,
		DurationMinutes: 30,
		Participants:    []Participant{{Name: "Ana", Email: "ana@acme.com"}},
		SourceURL:       "https://tldv.io/m1",
	}}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"tldv_meeting_id": "m1",
		"titulo": "Acme Kickoff",
		"data": "2026-03-02T14:00:00Z",
		"duracao_minutos": 30,
		"participantes": [{"name": "Ana", "email": "ana@acme.com"}],
		"recording_url": "",
		"tldv_url": "https://tldv.io/m1",
		"transcricao": null,
		"cliente_id": null,
		"matched_by": null,
		"matched_confidence": null
	}`, string(data))

	p.ApplyMatch(MatchResult{AccountID: "T1", Method: MatchEmail, Confidence: 1})
	require.True(t, p.Matched())

	out, err := yaml.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), "tldv_meeting_id: m1")
	assert.Contains(t, string(out), "cliente_id: T1")
	assert.Contains(t, string(out), "matched_by: email")
}
