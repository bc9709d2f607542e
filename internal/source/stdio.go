// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/pdiddy/meeting-matcher/internal/container"
)

// Transport performs one tool call against the MCP server. Implementations
// return *Error for every failure.
type Transport interface {
	Call(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error)
}

// Launcher starts an MCP server process for a single request/response
// exchange: the request is written to stdin, which is then closed, and the
// process answers on stdout before exiting.
type Launcher interface {
	Launch(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error
}

// StdioTransport speaks JSON-RPC to a freshly launched MCP server per call.
type StdioTransport struct {
	launcher Launcher
	nextID   atomic.Int64
}

// NewStdioTransport returns a transport that launches l for every call.
func NewStdioTransport(l Launcher) *StdioTransport {
	return &StdioTransport{launcher: l}
}

// Call implements Transport.
func (t *StdioTransport) Call(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	req, err := encodeRequest(t.nextID.Add(1), tool, args)
	if err != nil {
		return nil, transportError(tool, "encoding request", err)
	}

	var stdout, stderr bytes.Buffer
	if err := t.launcher.Launch(ctx, bytes.NewReader(req), &stdout, &stderr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, transportError(tool, "MCP process did not answer in time", ctxErr)
		}
		msg := "MCP process failed"
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg = "MCP process exited with code " + strconv.Itoa(exitErr.ExitCode())
		}
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg += ": " + truncate(s, 500)
		}
		return nil, transportError(tool, msg, err)
	}
	return decodeResponse(tool, stdout.Bytes())
}

// ContainerLauncher runs the MCP server image through a container runtime.
type ContainerLauncher struct {
	Runtime container.Runtime
	Image   string
	Env     map[string]string
}

// Launch implements Launcher.
func (l ContainerLauncher) Launch(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	return l.Runtime.Run(ctx, container.RunSpec{
		Image:  l.Image,
		Env:    l.Env,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	})
}

// ProcessLauncher runs a local MCP server script, for example
// `node /path/to/tldv-mcp/index.js`.
type ProcessLauncher struct {
	Bin  string
	Args []string
	Env  map[string]string
}

// Launch implements Launcher.
func (l ProcessLauncher) Launch(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, l.Bin, l.Args...)
	cmd.Env = os.Environ()
	for k, v := range l.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
