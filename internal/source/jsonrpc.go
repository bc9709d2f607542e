// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	rpcVersion    = "2.0"
	rpcMethodCall = "tools/call"
)

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int64      `json:"id"`
	Method  string     `json:"method"`
	Params  toolParams `json:"params"`
}

type toolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// encodeRequest renders a tools/call request as one line.
func encodeRequest(id int64, tool string, args map[string]any) ([]byte, error) {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(rpcRequest{
		JSONRPC: rpcVersion,
		ID:      id,
		Method:  rpcMethodCall,
		Params:  toolParams{Name: tool, Arguments: args},
	})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// decodeResponse reads the JSON-RPC response from the last non-empty line
// of output. Servers may log banners on stdout before answering.
func decodeResponse(tool string, output []byte) (json.RawMessage, error) {
	line := lastLine(output)
	if line == nil {
		return nil, transportError(tool, "empty response from MCP server", nil)
	}

	var resp rpcResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, transportError(tool, fmt.Sprintf("failed to parse MCP response %q", truncate(string(line), 200)), err)
	}
	if resp.Error != nil {
		msg := resp.Error.Message
		if msg == "" {
			msg = "MCP Error"
		}
		return nil, toolError(tool, msg)
	}
	return resp.Result, nil
}

func lastLine(output []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(output), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if l := bytes.TrimSpace(lines[i]); len(l) > 0 {
			return l
		}
	}
	return nil
}

// toolContent is the MCP tools/call result envelope.
type toolContent struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// unwrapContent strips the MCP content envelope when present. The first
// text item is returned as JSON when it parses, otherwise as a JSON string.
// Results without an envelope pass through unchanged.
func unwrapContent(tool string, result json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return result, nil
	}

	var env toolContent
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Content == nil {
		return result, nil
	}

	var texts []string
	for _, c := range env.Content {
		if c.Type == "text" || c.Type == "" {
			texts = append(texts, c.Text)
		}
	}
	if env.IsError {
		msg := strings.TrimSpace(strings.Join(texts, "\n"))
		if msg == "" {
			msg = "MCP tool reported an error"
		}
		return nil, toolError(tool, msg)
	}
	if len(texts) == 0 {
		return json.RawMessage("null"), nil
	}
	if json.Valid([]byte(texts[0])) {
		return json.RawMessage(texts[0]), nil
	}
	quoted, err := json.Marshal(strings.Join(texts, "\n"))
	if err != nil {
		return nil, transportError(tool, "encoding text content", err)
	}
	return quoted, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
