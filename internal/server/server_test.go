// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/metrics"
	"github.com/pdiddy/meeting-matcher/internal/pipeline"
	"github.com/pdiddy/meeting-matcher/internal/source"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

// stubSource validates ids the way source.Client does and serves canned data.
type stubSource struct {
	records    []string
	listErr    error
	lastFilter types.ListFilter
}

func (s *stubSource) ListMeetings(_ context.Context, f types.ListFilter) ([]json.RawMessage, error) {
	s.lastFilter = f
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]json.RawMessage, len(s.records))
	for i, r := range s.records {
		out[i] = json.RawMessage(r)
	}
	return out, nil
}

func requireID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: meetingId is required", source.ErrValidation)
	}
	return nil
}

func (s *stubSource) Metadata(_ context.Context, id string) (json.RawMessage, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if id == "broken" {
		return nil, &source.Error{Tool: source.ToolMetadata, Kind: source.KindTool, Message: "meeting not found"}
	}
	return json.RawMessage(fmt.Sprintf(`{"id":%q,"name":"Acme"}`, id)), nil
}

func (s *stubSource) Transcript(_ context.Context, id string) (source.Transcript, error) {
	if err := requireID(id); err != nil {
		return source.Transcript{}, err
	}
	return source.Transcript{Text: "transcript of " + id}, nil
}

func (s *stubSource) Highlights(_ context.Context, id string) (json.RawMessage, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	return json.RawMessage(`[{"text":"next steps"}]`), nil
}

type response struct {
	Success bool            `json:"success"`
	Total   *int            `json:"total"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	BatchID string          `json:"batch_id"`
	Skipped []pipeline.Skip `json:"skipped"`
}

func newTestServer(t *testing.T, src *stubSource, opts ...Option) *httptest.Server {
	t.Helper()
	srv, err := New(types.ServerConfig{}, src, pipeline.New(src, nil), opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (int, response) {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ts := newTestServer(t, &stubSource{}, WithClock(func() time.Time { return fixed }))

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{
		"status":    "ok",
		"service":   types.DefaultServiceName,
		"timestamp": "2026-03-02T12:00:00Z",
	}, body)
}

func TestList(t *testing.T) {
	src := &stubSource{records: []string{`{"id":"m1"}`, `{"id":"m2"}`}}
	ts := newTestServer(t, src)

	status, body := post(t, ts, "/api/meetings/list", `{"startDate":"2026-03-01","limit":2,"meetingType":"external"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	require.NotNil(t, body.Total)
	assert.Equal(t, 2, *body.Total)
	assert.JSONEq(t, `[{"id":"m1"},{"id":"m2"}]`, string(body.Data))
	assert.Equal(t, types.ListFilter{StartDate: "2026-03-01", MeetingType: "external", Limit: 2}, src.lastFilter)
}

func TestList_EmptyBody(t *testing.T) {
	ts := newTestServer(t, &stubSource{})
	status, body := post(t, ts, "/api/meetings/list", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestList_UpstreamFailure(t *testing.T) {
	ts := newTestServer(t, &stubSource{listErr: &source.Error{Tool: source.ToolListMeetings, Kind: source.KindTransport, Message: "MCP process exited with code 1"}})
	status, body := post(t, ts, "/api/meetings/list", `{}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "exited with code 1")
}

func TestMeetingRoutes(t *testing.T) {
	ts := newTestServer(t, &stubSource{})

	tests := []struct {
		path     string
		body     string
		status   int
		wantData string
		wantErr  string
	}{
		{"/api/meetings/metadata", `{"meetingId":"m1"}`, http.StatusOK, `{"id":"m1","name":"Acme"}`, ""},
		{"/api/meetings/transcript", `{"meetingId":"m1"}`, http.StatusOK, `{"text":"transcript of m1"}`, ""},
		{"/api/meetings/highlights", `{"meetingId":"m1"}`, http.StatusOK, `[{"text":"next steps"}]`, ""},
		{"/api/meetings/metadata", `{}`, http.StatusBadRequest, "", "meetingId is required"},
		{"/api/meetings/transcript", ``, http.StatusBadRequest, "", "meetingId is required"},
		{"/api/meetings/highlights", `{"meetingId":""}`, http.StatusBadRequest, "", "meetingId is required"},
		{"/api/meetings/metadata", `{"meetingId":"broken"}`, http.StatusInternalServerError, "", "meeting not found"},
		{"/api/meetings/metadata", `{not json`, http.StatusBadRequest, "", "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			status, body := post(t, ts, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			if tt.wantErr != "" {
				assert.False(t, body.Success)
				assert.Contains(t, body.Error, tt.wantErr)
				return
			}
			assert.True(t, body.Success)
			assert.JSONEq(t, tt.wantData, string(body.Data))
		})
	}
}

func TestProcess(t *testing.T) {
	src := &stubSource{records: []string{
		`{"id":"m1","name":"Acme Corp - Kickoff Call","happenedAt":"2026-03-02T14:00:00Z","duration":30,"url":"https://tldv.io/m1"}`,
		`{"name":"no id"}`,
		`{"id":"m3","name":"Sync"}`,
	}}
	ts := newTestServer(t, src)

	status, body := post(t, ts, "/api/meetings/process", `{
		"startDate": "2026-03-01",
		"endDate": "2026-03-31",
		"clientes": [{"clickup_task_id": "T1", "nome": "Acme Corp"}, {"clickup_task_id": "T2", "nome": "Sync Weekly Review"}]
	}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	require.NotNil(t, body.Total)
	assert.Equal(t, 2, *body.Total)
	assert.NotEmpty(t, body.BatchID)
	require.Len(t, body.Skipped, 1)
	assert.Equal(t, 1, body.Skipped[0].Index)
	assert.Equal(t, types.DefaultListLimit, src.lastFilter.Limit)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 2)

	assert.Equal(t, "m1", items[0]["tldv_meeting_id"])
	assert.Equal(t, "T1", items[0]["cliente_id"])
	assert.Equal(t, "titulo_substring_exact", items[0]["matched_by"])
	assert.Equal(t, 1.0, items[0]["matched_confidence"])
	assert.Equal(t, "transcript of m1", items[0]["transcricao"])
	assert.Equal(t, "https://tldv.io/m1", items[0]["tldv_url"])

	assert.Equal(t, "m3", items[1]["tldv_meeting_id"])
	assert.Nil(t, items[1]["cliente_id"])
	assert.Nil(t, items[1]["matched_by"])
}

func TestProcess_TranscriptsCanBeDisabled(t *testing.T) {
	ts := newTestServer(t, &stubSource{records: []string{`{"id":"m1","name":"x"}`}})
	status, body := post(t, ts, "/api/meetings/process", `{"includeTranscripts":false,"limit":5}`)
	require.Equal(t, http.StatusOK, status)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 1)
	assert.Nil(t, items[0]["transcricao"])
}

func TestProcess_EmptyBatch(t *testing.T) {
	ts := newTestServer(t, &stubSource{})
	status, body := post(t, ts, "/api/meetings/process", `{}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, *body.Total)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &stubSource{})
	resp, err := ts.Client().Get(ts.URL + "/api/meetings/list")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &stubSource{})
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/meetings/process", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: logging.LevelInfo, JSONFormat: true, Output: &buf})
	ts := newTestServer(t, &stubSource{}, WithLogger(log))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)

	resp, err = ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Matched(string(types.MatchEmail))
	ts := newTestServer(t, &stubSource{}, WithGatherer(reg))

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `meeting_matcher_matches_total{method="email"} 1`)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	ts := newTestServer(t, &stubSource{})
	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNew_ValidatesConfig(t *testing.T) {
	srv, err := New(types.ServerConfig{}, &stubSource{}, pipeline.New(&stubSource{}, nil))
	require.NoError(t, err)
	assert.Equal(t, types.DefaultServerAddr, srv.cfg.Addr)
	assert.Equal(t, types.DefaultServiceName, srv.cfg.ServiceName)

	_, err = New(types.ServerConfig{Addr: "localhost"}, &stubSource{}, pipeline.New(&stubSource{}, nil))
	assert.ErrorContains(t, err, "server.addr")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := New(types.ServerConfig{ShutdownTimeout: time.Second}, &stubSource{}, pipeline.New(&stubSource{}, nil))
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
