// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source talks to the tl;dv MCP server, the remote source of meeting
// lists, metadata, transcripts, and highlights.
//
// Every operation is a single JSON-RPC tools/call exchange bounded by an
// explicit timeout. Failures come back as *Error with a transport or tool
// kind; missing arguments wrap ErrValidation and never reach the server.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pdiddy/meeting-matcher/internal/container"
	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/metrics"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

// MCP tool names.
const (
	ToolListMeetings = "list_meetings"
	ToolMetadata     = "get_meeting_metadata"
	ToolTranscript   = "get_transcript"
	ToolHighlights   = "get_highlights"
)

// Source is the meeting-intelligence port used by the pipeline and the HTTP
// surface. List results are raw upstream records; mapping them onto
// types.Meeting is the pipeline's job.
type Source interface {
	ListMeetings(ctx context.Context, f types.ListFilter) ([]json.RawMessage, error)
	Metadata(ctx context.Context, meetingID string) (json.RawMessage, error)
	Transcript(ctx context.Context, meetingID string) (Transcript, error)
	Highlights(ctx context.Context, meetingID string) (json.RawMessage, error)
}

// Transcript is a get_transcript result.
type Transcript struct {
	// Text is the flattened transcript; empty when the server sent none.
	Text string `json:"text"`

	// Raw is the result as returned by the server.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Client implements Source over a Transport.
type Client struct {
	transport Transport
	timeout   time.Duration
	metrics   *metrics.Metrics
	log       logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records per-tool call counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient returns a Client that bounds every call by timeout.
func NewClient(t Transport, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	c := &Client{transport: t, timeout: timeout, log: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New builds a Client for cfg, choosing the transport from cfg.Mode. cfg is
// validated (and defaulted) first.
func New(cfg types.SourceConfig, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := NewClient(nil, cfg.Timeout, opts...)

	env := map[string]string{}
	if cfg.APIKey != "" {
		env[types.DefaultAPIKeyEnvVar] = cfg.APIKey
	}

	switch cfg.Mode {
	case types.TransportDocker:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		c.transport = NewStdioTransport(ContainerLauncher{Runtime: rt, Image: cfg.Image, Env: env})
	case types.TransportLocal:
		c.transport = NewStdioTransport(ProcessLauncher{Bin: cfg.NodeBinary, Args: []string{cfg.ServerPath}, Env: env})
	case types.TransportHTTP:
		c.transport = NewHTTPTransport(nil, cfg.Endpoint, cfg.BearerToken(), cfg.MaxRetries, c.log)
	}
	return c, nil
}

func (c *Client) call(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	result, err := c.transport.Call(ctx, tool, args)
	if err == nil {
		result, err = unwrapContent(tool, result)
	}
	c.metrics.ObserveSourceCall(tool, started, err)
	if err != nil {
		c.log.Debug("meeting source call failed",
			logging.F("tool", tool), logging.F("elapsed", time.Since(started)), logging.Err(err))
		return nil, err
	}
	return result, nil
}

func requireID(tool, meetingID string) error {
	if strings.TrimSpace(meetingID) == "" {
		return fmt.Errorf("%s: %w: meetingId is required", tool, ErrValidation)
	}
	return nil
}

// ListMeetings calls list_meetings. The result may be a bare array or an
// object wrapping one under meetings, results, data, or items.
func (c *Client) ListMeetings(ctx context.Context, f types.ListFilter) ([]json.RawMessage, error) {
	result, err := c.call(ctx, ToolListMeetings, f.Args())
	if err != nil {
		return nil, err
	}
	records, err := decodeList(result)
	if err != nil {
		return nil, transportError(ToolListMeetings, "unexpected list_meetings result", err)
	}
	return records, nil
}

// Metadata calls get_meeting_metadata.
func (c *Client) Metadata(ctx context.Context, meetingID string) (json.RawMessage, error) {
	if err := requireID(ToolMetadata, meetingID); err != nil {
		return nil, err
	}
	return c.call(ctx, ToolMetadata, map[string]any{"meetingId": meetingID})
}

// Highlights calls get_highlights.
func (c *Client) Highlights(ctx context.Context, meetingID string) (json.RawMessage, error) {
	if err := requireID(ToolHighlights, meetingID); err != nil {
		return nil, err
	}
	return c.call(ctx, ToolHighlights, map[string]any{"meetingId": meetingID})
}

// Transcript calls get_transcript and flattens the result into text.
func (c *Client) Transcript(ctx context.Context, meetingID string) (Transcript, error) {
	if err := requireID(ToolTranscript, meetingID); err != nil {
		return Transcript{}, err
	}
	result, err := c.call(ctx, ToolTranscript, map[string]any{"meetingId": meetingID})
	if err != nil {
		return Transcript{}, err
	}
	return Transcript{Text: transcriptText(result), Raw: result}, nil
}

var listKeys = []string{"meetings", "results", "data", "items"}

func decodeList(result json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var records []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	for _, k := range listKeys {
		if v, ok := obj[k]; ok {
			return decodeList(v)
		}
	}
	return nil, fmt.Errorf("no meeting list in result with keys %v", keysOf(obj))
}

func keysOf(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// transcriptSegment is one utterance in a segmented transcript.
type transcriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// transcriptText extracts plain text from the shapes the server is known to
// return: a string, {text}, {content}, or a list of speaker segments under
// data, segments, or content.
func transcriptText(result json.RawMessage) string {
	var s string
	if err := json.Unmarshal(result, &s); err == nil {
		return s
	}

	var segs []transcriptSegment
	if err := json.Unmarshal(result, &segs); err == nil {
		return joinSegments(segs)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(result, &obj); err != nil {
		return ""
	}
	for _, k := range []string{"text", "content", "data", "segments"} {
		v, ok := obj[k]
		if !ok {
			continue
		}
		if text := transcriptText(v); text != "" {
			return text
		}
	}
	return ""
}

func joinSegments(segs []transcriptSegment) string {
	lines := make([]string, 0, len(segs))
	for _, s := range segs {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Speaker != "" {
			text = s.Speaker + ": " + text
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, "\n")
}

// Preflight checks that the configured transport can start: the container
// runtime and image in docker mode, the node binary and server script in
// local mode. http mode is not probed.
func Preflight(cfg types.SourceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch cfg.Mode {
	case types.TransportDocker:
		rt, err := container.DetectRuntime()
		if err != nil {
			return err
		}
		return rt.ImageExists(cfg.Image)
	case types.TransportLocal:
		if _, err := exec.LookPath(cfg.NodeBinary); err != nil {
			return fmt.Errorf("node binary %s: %w", cfg.NodeBinary, err)
		}
		if _, err := os.Stat(cfg.ServerPath); err != nil {
			return fmt.Errorf("MCP server script: %w", err)
		}
	}
	return nil
}
