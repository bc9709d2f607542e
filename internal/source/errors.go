// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
)

// ErrValidation marks a request the caller must fix (for example a missing
// meeting id). Requests failing validation never reach the transport.
var ErrValidation = errors.New("validation error")

// Kind classifies a source failure.
type Kind string

const (
	// KindTransport covers process, network, and timeout failures.
	KindTransport Kind = "transport"

	// KindTool covers errors reported by the MCP server itself.
	KindTool Kind = "tool"
)

// Error is the single error type returned by source operations. Process and
// network details are folded into Message; callers branch on Kind only.
type Error struct {
	Tool    string
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s %s: %v", e.Tool, e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Tool, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Tool, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the call ran out of time.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

func transportError(tool, msg string, err error) *Error {
	return &Error{Tool: tool, Kind: KindTransport, Message: msg, Err: err}
}

func toolError(tool, msg string) *Error {
	return &Error{Tool: tool, Kind: KindTool, Message: msg}
}

// IsTransport reports whether err is a source transport failure.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTransport
}

// IsTool reports whether err was reported by the MCP server.
func IsTool(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindTool
}

// IsValidation reports whether err is a caller validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
