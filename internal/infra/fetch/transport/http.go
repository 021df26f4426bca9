package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
)

const (
	// HeaderRequestID carries the invocation's request id on every attempt.
	HeaderRequestID = "X-Request-ID"

	defaultMaxBodyBytes = 10 << 20
)

// Config holds HTTP transport settings.
type Config struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	UserAgent    string        `yaml:"user_agent"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	Timeout:      30 * time.Second,
	MaxBodyBytes: defaultMaxBodyBytes,
	UserAgent:    "fetcher/1.0",
}

// HTTPTransport performs single GET attempts over net/http.
type HTTPTransport struct {
	cfg        Config
	httpClient *http.Client

	Monitor *Monitor
}

// NewHTTPTransport creates a transport with its own client.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTPTransport{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        1,
				MaxIdleConnsPerHost: 1,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Monitor: NewMonitor(),
	}
}

// NewHTTPTransportWithClient wraps an existing client.
func NewHTTPTransportWithClient(cfg Config, client *http.Client) *HTTPTransport {
	t := NewHTTPTransport(cfg)
	t.httpClient = client
	return t
}

// Perform issues one GET for target and reads the whole body.
func (t *HTTPTransport) Perform(ctx context.Context, target string) domain.AttemptResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		t.Monitor.RecordError()
		return domain.ErrorResult(translate(target, "build request", err), time.Since(start))
	}
	if t.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", t.cfg.UserAgent)
	}
	if id := domain.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(HeaderRequestID, id)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.Monitor.RecordError()
		return domain.ErrorResult(translate(target, http.MethodGet, err), time.Since(start))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.cfg.MaxBodyBytes+1))
	if err != nil {
		t.Monitor.RecordError()
		return domain.ErrorResult(translate(target, "read body", err), time.Since(start))
	}
	if int64(len(body)) > t.cfg.MaxBodyBytes {
		t.Monitor.RecordError()
		return domain.ErrorResult(&domain.TransportError{
			Op:  "read body",
			URL: target,
			Err: fmt.Errorf("response body exceeds %d bytes", t.cfg.MaxBodyBytes),
		}, time.Since(start))
	}

	latency := time.Since(start)
	t.Monitor.RecordResponse(resp.StatusCode, resp.Header.Get("Retry-After"), latency)

	return domain.ResponseResult(&domain.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Proto:      resp.Proto,
		Header:     resp.Header,
		Body:       body,
	}, latency)
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
