package transport

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// MonitorStats holds monitoring statistics for a transport.
type MonitorStats struct {
	Responses        int
	Errors           int
	ThrottleCount429 int
	StatusCounts     map[int]int
	AverageLatency   time.Duration
	LastRetryAfter   time.Duration
	LastThrottleAt   time.Time
}

// Monitor tracks attempt latency, status codes and throttling signals.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	responses      int
	errors         int
	statusCounts   map[int]int
	status429Count int
	lastThrottle   time.Time
	lastRetryAfter time.Duration
}

// NewMonitor creates a new monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
		statusCounts:     make(map[int]int),
	}
}

// RecordResponse records an attempt that produced a response.
func (m *Monitor) RecordResponse(statusCode int, retryAfter string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses++
	m.statusCounts[statusCode]++

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	if statusCode == http.StatusTooManyRequests {
		m.status429Count++
		m.lastThrottle = time.Now()
		m.lastRetryAfter = parseRetryAfter(retryAfter, m.lastThrottle)
	}
}

// RecordError records an attempt that failed at the transport.
func (m *Monitor) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// Stats returns a snapshot of the current statistics.
func (m *Monitor) Stats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MonitorStats{
		Responses:        m.responses,
		Errors:           m.errors,
		ThrottleCount429: m.status429Count,
		StatusCounts:     make(map[int]int, len(m.statusCounts)),
		LastRetryAfter:   m.lastRetryAfter,
		LastThrottleAt:   m.lastThrottle,
	}
	for code, n := range m.statusCounts {
		stats.StatusCounts[code] = n
	}

	if len(m.recentLatencies) > 0 {
		var total time.Duration
		for _, lat := range m.recentLatencies {
			total += lat
		}
		stats.AverageLatency = total / time.Duration(len(m.recentLatencies))
	}
	return stats
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
