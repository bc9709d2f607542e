// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pdiddy/meeting-matcher/internal/httputil"
	"github.com/pdiddy/meeting-matcher/internal/logging"
)

const maxResponseBytes = 32 << 20

// HTTPTransport posts JSON-RPC requests to an MCP endpoint. Responses may be
// plain JSON or a server-sent event stream whose last data line carries the
// JSON-RPC response.
type HTTPTransport struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	maxRetries int
	log        logging.Logger
	nextID     atomic.Int64
}

// NewHTTPTransport returns a transport for endpoint. A nil client uses
// http.DefaultClient; the per-call deadline comes from the context.
func NewHTTPTransport(client *http.Client, endpoint, apiKey string, maxRetries int, log logging.Logger) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPTransport{
		client:     client,
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		log:        log,
	}
}

// Call implements Transport.
func (t *HTTPTransport) Call(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	body, err := encodeRequest(t.nextID.Add(1), tool, args)
	if err != nil {
		return nil, transportError(tool, "encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, transportError(tool, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, t.client, req, t.maxRetries, func(attempt int, wait time.Duration) {
		t.log.Warn("meeting source rate limited",
			logging.F("tool", tool), logging.F("attempt", attempt), logging.F("wait", wait))
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, transportError(tool, "MCP endpoint did not answer in time", ctxErr)
		}
		return nil, transportError(tool, "HTTP request", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(tool, "reading response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transportError(tool, fmt.Sprintf("HTTP %d from %s: %s", resp.StatusCode, t.endpoint, truncate(string(bytes.TrimSpace(data)), 200)), nil)
	}

	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt == "text/event-stream" {
		data = sseData(data)
	}
	return decodeResponse(tool, data)
}

// sseData keeps the payload of "data:" lines, one per line.
func sseData(stream []byte) []byte {
	var out bytes.Buffer
	for _, line := range bytes.Split(stream, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if payload, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			out.Write(bytes.TrimSpace(payload))
			out.WriteByte('\n')
		}
	}
	return out.Bytes()
}
