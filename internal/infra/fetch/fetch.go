// Package fetch provides a single-request HTTP executor with bounded retry.
//
// This package offers:
//   - One HTTP GET at a time through net/http
//   - Failure classification over a tagged cause chain
//   - Exponential backoff between attempts, bounded by an attempt budget
//
// # Quick Start
//
//	import "github.com/vietddude/fetcher/internal/infra/fetch"
//
//	executor, tr := fetch.New(fetch.DefaultTransportConfig, fetch.DefaultRetryConfig)
//	defer tr.Close()
//
//	out := executor.Execute(ctx, "http://127.0.0.1:8080/503")
//	if out.Result.Err != nil {
//	    log.Printf("final error after %d attempts: %v", out.Attempts, out.Result.Err)
//	}
//
// # Package Structure
//
//   - transport/ - net/http transport, error translation, monitoring
//   - retry/     - classifier and retry executor
//
// Most types are re-exported at the root level for convenience.
package fetch

import (
	"github.com/vietddude/fetcher/internal/infra/fetch/retry"
	"github.com/vietddude/fetcher/internal/infra/fetch/transport"
)

// =============================================================================
// Re-exported types from transport package
// =============================================================================

// HTTPTransport performs single GET attempts over net/http.
type HTTPTransport = transport.HTTPTransport

// TransportConfig holds HTTP transport settings.
type TransportConfig = transport.Config

// MonitorStats holds monitoring statistics for a transport.
type MonitorStats = transport.MonitorStats

// DefaultTransportConfig provides sensible transport defaults.
var DefaultTransportConfig = transport.DefaultConfig

// NewHTTPTransport creates a new HTTP transport.
func NewHTTPTransport(cfg TransportConfig) *HTTPTransport {
	return transport.NewHTTPTransport(cfg)
}

// =============================================================================
// Re-exported types from retry package
// =============================================================================

// Executor runs one request at a time with bounded retry.
type Executor = retry.Executor

// RetryConfig defines retry behavior.
type RetryConfig = retry.Config

// Transport performs one request attempt.
type Transport = retry.Transport

// Option configures an Executor.
type Option = retry.Option

// DefaultRetryConfig provides the default attempt budget and backoff.
var DefaultRetryConfig = retry.DefaultConfig

// Classify decides whether an attempt should be retried.
var Classify = retry.Classify

// Categorize places a result in the failure taxonomy.
var Categorize = retry.Categorize

// WithLogger sets the logger used for retry progress.
var WithLogger = retry.WithLogger

// WithSleeper replaces the backoff sleep.
var WithSleeper = retry.WithSleeper

// NewExecutor creates an executor over any transport.
func NewExecutor(t Transport, cfg RetryConfig, opts ...Option) *Executor {
	return retry.NewExecutor(t, cfg, opts...)
}

// New wires an executor to a fresh HTTP transport.
func New(tcfg TransportConfig, rcfg RetryConfig, opts ...Option) (*Executor, *HTTPTransport) {
	tr := transport.NewHTTPTransport(tcfg)
	return retry.NewExecutor(tr, rcfg, opts...), tr
}
