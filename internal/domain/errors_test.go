package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStatusErrorRejectedCredential(t *testing.T) {
	for _, code := range []int{401, 403} {
		err := StatusError("chat completion", code, "invalid api key")

		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("%d: expected AuthError, got %T", code, err)
		}
		var netErr *NetworkError
		if !errors.As(err, &netErr) || netErr.StatusCode != code || netErr.Message != "invalid api key" {
			t.Fatalf("%d: expected wrapped NetworkError, got %v", code, err)
		}
		if KindOf(err) != KindAuth {
			t.Fatalf("%d: expected auth kind, got %s", code, KindOf(err))
		}
	}
}

func TestStatusErrorOtherStatus(t *testing.T) {
	err := StatusError("getRunStatus", 500, "boom")

	var authErr *AuthError
	if errors.As(err, &authErr) {
		t.Fatalf("unexpected AuthError for 500")
	}
	if KindOf(err) != KindNetwork {
		t.Fatalf("expected network kind, got %s", KindOf(err))
	}
	if err.Error() != "getRunStatus: upstream error [500]: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{&ExtractionError{Reason: "empty"}, KindExtraction},
		{&ParseError{Original: "{", Repaired: "{"}, KindParse},
		{&TimeoutError{Polls: 3}, KindTimeout},
		{&ToolUseUnsupportedError{RunID: "run_1"}, KindToolUseUnsupported},
		{&UpstreamRunError{RunID: "run_1", State: RunStateExpired}, KindUpstreamRun},
		{&BlockedError{Reason: "too long"}, KindBlocked},
		{errors.New("plain"), KindInternal},
		{nil, KindInternal},
	}

	for _, tt := range tests {
		wrapped := fmt.Errorf("convert: %w", tt.err)
		if tt.err == nil {
			wrapped = nil
		}
		if got := KindOf(wrapped); got != tt.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestTimeoutErrorMessages(t *testing.T) {
	if got := (&TimeoutError{Polls: 60}).Error(); got != "run timed out after 60 polls" {
		t.Fatalf("unexpected message %q", got)
	}
	err := &TimeoutError{Err: context.DeadlineExceeded}
	if got := err.Error(); got != "upstream timed out: context deadline exceeded" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline")
	}
}

func TestNetworkErrorWithoutResponse(t *testing.T) {
	err := &NetworkError{Op: "createThread", Err: errors.New("connection refused")}
	if err.Error() != "createThread: connection refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
