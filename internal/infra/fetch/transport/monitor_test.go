package transport

import (
	"net/http"
	"testing"
	"time"
)

func TestMonitor_Stats(t *testing.T) {
	m := NewMonitor()
	m.RecordResponse(200, "", 10*time.Millisecond)
	m.RecordResponse(503, "", 30*time.Millisecond)
	m.RecordError()

	stats := m.Stats()
	if stats.Responses != 2 || stats.Errors != 1 {
		t.Errorf("unexpected counts %+v", stats)
	}
	if stats.AverageLatency != 20*time.Millisecond {
		t.Errorf("expected average 20ms, got %v", stats.AverageLatency)
	}
	if stats.StatusCounts[503] != 1 {
		t.Errorf("expected one 503, got %d", stats.StatusCounts[503])
	}
}

func TestMonitor_LatencyWindow(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 150; i++ {
		m.RecordResponse(200, "", time.Second)
	}
	m.RecordResponse(200, "", 101*time.Second)

	// 99 samples of 1s plus one of 101s.
	if got := m.Stats().AverageLatency; got != 2*time.Second {
		t.Errorf("expected average 2s over the window, got %v", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		value  string
		expect time.Duration
	}{
		{"", 0},
		{"120", 2 * time.Minute},
		{"-1", 0},
		{"soon", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-30 * time.Second).Format(http.TimeFormat), 0},
	}

	for _, tt := range tests {
		if got := parseRetryAfter(tt.value, now); got != tt.expect {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.expect)
		}
	}
}
