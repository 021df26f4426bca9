package domain

import "time"

// FailedFetch is an invocation whose final result was not a success, kept for replay.
type FailedFetch struct {
	ID          string            `json:"id"`
	Target      string            `json:"target"`
	RequestID   string            `json:"request_id"`
	StatusCode  int               `json:"status_code,omitempty"`
	Error       string            `json:"error_msg,omitempty"`
	Class       FailureClass      `json:"class"`
	Reason      FinalReason       `json:"reason"`
	Attempts    int               `json:"attempts"`
	RetryCount  int               `json:"retry_count"`
	Status      FailedFetchStatus `json:"status"`
	LastAttempt time.Time         `json:"last_attempt"`
	CreatedAt   time.Time         `json:"created_at"`
}

type FailedFetchStatus string

const (
	FailedFetchStatusPending  FailedFetchStatus = "pending"
	FailedFetchStatusResolved FailedFetchStatus = "resolved"
)
