package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed conversion.
type ErrorKind string

const (
	KindAuth               ErrorKind = "auth"
	KindNetwork            ErrorKind = "network"
	KindExtraction         ErrorKind = "extraction"
	KindParse              ErrorKind = "parse"
	KindTimeout            ErrorKind = "timeout"
	KindToolUseUnsupported ErrorKind = "tool_use_unsupported"
	KindUpstreamRun        ErrorKind = "upstream_run"
	KindBlocked            ErrorKind = "blocked"
	KindInternal           ErrorKind = "internal"
)

// KindedError is implemented by every typed conversion error.
type KindedError interface {
	error
	Kind() ErrorKind
}

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) ErrorKind {
	var ke KindedError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	return KindInternal
}

// AuthError reports a missing or rejected credential.
type AuthError struct {
	Reason string
	// Err is set when the upstream rejected the credential.
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Reason, e.Err)
	}
	return "auth error: " + e.Reason
}

func (e *AuthError) Unwrap() error   { return e.Err }
func (e *AuthError) Kind() ErrorKind { return KindAuth }

// NetworkError reports a failed upstream call. StatusCode is 0 when no
// response was received.
type NetworkError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: upstream error [%d]: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream error [%d]", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": network error"
}

func (e *NetworkError) Unwrap() error   { return e.Err }
func (e *NetworkError) Kind() ErrorKind { return KindNetwork }

// StatusError builds the error for a non-2xx upstream response. Rejected
// credentials come back as an AuthError that still wraps the NetworkError.
func StatusError(op string, statusCode int, message string) error {
	netErr := &NetworkError{Op: op, StatusCode: statusCode, Message: message}
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return &AuthError{Reason: "credential rejected by upstream", Err: netErr}
	}
	return netErr
}

// ExtractionError reports that no JSON candidate could be found at all.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string   { return "extraction error: " + e.Reason }
func (e *ExtractionError) Kind() ErrorKind { return KindExtraction }

// ParseError reports text that never parsed into a page, even after repair.
type ParseError struct {
	Original string
	Repaired string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse error"
	}
	return "parse error: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error   { return e.Err }
func (e *ParseError) Kind() ErrorKind { return KindParse }

// TimeoutError reports a run that never reached a terminal state, or an
// upstream call cut off by the request deadline.
type TimeoutError struct {
	Polls int
	Err   error
}

func (e *TimeoutError) Error() string {
	if e.Polls == 0 && e.Err != nil {
		return fmt.Sprintf("upstream timed out: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("run timed out after %d polls: %v", e.Polls, e.Err)
	}
	return fmt.Sprintf("run timed out after %d polls", e.Polls)
}

func (e *TimeoutError) Unwrap() error   { return e.Err }
func (e *TimeoutError) Kind() ErrorKind { return KindTimeout }

// ToolUseUnsupportedError reports a run paused waiting for tool outputs.
type ToolUseUnsupportedError struct {
	RunID string
	Tools []string
}

func (e *ToolUseUnsupportedError) Error() string {
	if len(e.Tools) > 0 {
		return fmt.Sprintf("run %s requires tool outputs (%v), which are not supported", e.RunID, e.Tools)
	}
	return fmt.Sprintf("run %s requires tool outputs, which are not supported", e.RunID)
}

func (e *ToolUseUnsupportedError) Kind() ErrorKind { return KindToolUseUnsupported }

// UpstreamRunError reports a run that ended failed, cancelled or expired.
type UpstreamRunError struct {
	RunID  string
	State  RunState
	Code   string
	Reason string
}

func (e *UpstreamRunError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("run %s %s: %s", e.RunID, e.State, e.Reason)
	}
	return fmt.Sprintf("run %s %s", e.RunID, e.State)
}

func (e *UpstreamRunError) Kind() ErrorKind { return KindUpstreamRun }

// BlockedError reports a request rejected by the admission policy.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string   { return "request blocked: " + e.Reason }
func (e *BlockedError) Kind() ErrorKind { return KindBlocked }
