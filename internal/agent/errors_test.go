package agent

import (
	"errors"
	"testing"
)

func TestClassifyToolErrorPatterns(t *testing.T) {
	cases := []struct {
		err  error
		want ToolErrorType
	}{
		{errors.New("context deadline exceeded"), ToolErrorTimeout},
		{errors.New("dial tcp: connection refused"), ToolErrorNetwork},
		{errors.New("429 too many requests"), ToolErrorRateLimit},
		{errors.New("permission denied"), ToolErrorPermission},
		{errors.New("missing required field"), ToolErrorInvalidInput},
		{errors.New("something exploded"), ToolErrorExecution},
	}
	for _, c := range cases {
		got := classifyToolError(c.err)
		if got != c.want {
			t.Errorf("classifyToolError(%q) = %s, want %s", c.err, got, c.want)
		}
	}
}

func TestToolErrorRetryable(t *testing.T) {
	err := NewToolError("fetch", errors.New("network unreachable"))
	if !err.Retryable {
		t.Fatal("expected a network error to be retryable")
	}
	if !IsToolRetryable(err) {
		t.Fatal("IsToolRetryable should agree with the error's own Retryable field")
	}
}

func TestToolErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewToolError("echo", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}

func TestGetToolError(t *testing.T) {
	err := NewToolError("echo", errors.New("boom")).WithToolCallID("call-1")
	var wrapped error = err
	got, ok := GetToolError(wrapped)
	if !ok {
		t.Fatal("expected GetToolError to find the ToolError")
	}
	if got.ToolCallID != "call-1" {
		t.Fatalf("ToolCallID = %q, want call-1", got.ToolCallID)
	}
}
