package domain

import (
	"net/http"
	"time"
)

// Response is the part of an HTTP response an attempt keeps. Only StatusCode is ever
// inspected; the rest is passed through to the caller.
type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Header     http.Header
	Body       []byte
}

// AttemptResult is the result of one request attempt. Exactly one of Response and Err is set.
type AttemptResult struct {
	Response *Response
	Err      error
	Latency  time.Duration
}

// ResponseResult builds the result of an attempt that produced a response.
func ResponseResult(resp *Response, latency time.Duration) AttemptResult {
	return AttemptResult{Response: resp, Latency: latency}
}

// ErrorResult builds the result of an attempt that failed at the transport.
func ErrorResult(err error, latency time.Duration) AttemptResult {
	return AttemptResult{Err: err, Latency: latency}
}

// IsResponse reports whether the attempt produced a response.
func (r AttemptResult) IsResponse() bool {
	return r.Err == nil && r.Response != nil
}

// Decision is the classifier's verdict for one attempt.
type Decision int

const (
	DecisionTerminal Decision = iota
	DecisionRetry
)

func (d Decision) String() string {
	if d == DecisionRetry {
		return "retry"
	}
	return "terminal"
}

// FailureClass places an attempt result in the error taxonomy.
type FailureClass string

const (
	ClassSuccess            FailureClass = "success"
	ClassTransientNetwork   FailureClass = "transient_network"
	ClassTransientResponse  FailureClass = "transient_response"
	ClassPermanentResponse  FailureClass = "permanent_response"
	ClassPermanentTransport FailureClass = "permanent_transport"
)

// FinalReason tells why the attempt loop stopped.
type FinalReason string

const (
	ReasonTerminal  FinalReason = "terminal"  // classified as not retryable
	ReasonExhausted FinalReason = "exhausted" // still retryable, attempt budget spent
	ReasonCanceled  FinalReason = "canceled"  // context ended while backing off
)

// Outcome is the final result of one invocation.
type Outcome struct {
	Target    string
	RequestID string
	Result    AttemptResult
	Attempts  int
	Delays    []time.Duration
	Reason    FinalReason
}

// BackoffState is the per-invocation retry state.
type BackoffState struct {
	Attempt int
	Delay   time.Duration
}

// NewBackoffState starts at attempt 1 with the initial delay.
func NewBackoffState(initial time.Duration) BackoffState {
	return BackoffState{Attempt: 1, Delay: initial}
}

// Advance moves to the next attempt and grows the delay by multiplier, capped at maxDelay
// when maxDelay is positive.
func (s *BackoffState) Advance(multiplier float64, maxDelay time.Duration) {
	s.Attempt++
	s.Delay = time.Duration(float64(s.Delay) * multiplier)
	if maxDelay > 0 && s.Delay > maxDelay {
		s.Delay = maxDelay
	}
}
