package cli

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
)

func TestPrintOutcome_Response(t *testing.T) {
	var buf bytes.Buffer
	out := domain.Outcome{
		Result: domain.ResponseResult(&domain.Response{
			StatusCode: 503,
			Status:     "503 Service Unavailable",
			Body:       []byte("busy"),
		}, time.Millisecond),
	}

	if isErr := printOutcome(&buf, out); isErr {
		t.Error("expected a response to not be reported as an error")
	}
	want := "Got final result\nGot response: 503 Service Unavailable (4 bytes)\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintOutcome_Error(t *testing.T) {
	var buf bytes.Buffer
	out := domain.Outcome{
		Result: domain.ErrorResult(errors.New("connection refused"), time.Millisecond),
	}

	if isErr := printOutcome(&buf, out); !isErr {
		t.Error("expected an error outcome")
	}
	if !strings.HasSuffix(buf.String(), "Got Err: connection refused\n") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPrintJournal(t *testing.T) {
	var buf bytes.Buffer
	printJournal(&buf, []*domain.FailedFetch{
		{ID: "a", Target: "http://a/503", StatusCode: 503, Reason: domain.ReasonExhausted, Attempts: 3},
		{ID: "b", Target: "http://b/", Error: "connection refused", Reason: domain.ReasonExhausted, Attempts: 3, RetryCount: 2},
	})

	got := buf.String()
	for _, want := range []string{"TARGET", "http://a/503", "status 503", "connection refused", "exhausted"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestGetCmd_RequiresURL(t *testing.T) {
	if err := getCmd.Args(getCmd, nil); err == nil {
		t.Error("expected an error without a url")
	}
	if err := getCmd.Args(getCmd, []string{"http://localhost/"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
