package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/metrics"
)

// Config defines retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialDelay is the sleep before the second attempt.
	InitialDelay time.Duration `yaml:"initial_delay"`
	// Multiplier grows the delay after every retry.
	Multiplier float64 `yaml:"multiplier"`
	// MaxDelay caps the delay. Zero leaves growth unbounded.
	MaxDelay time.Duration `yaml:"max_delay"`
}

// DefaultConfig makes three attempts, sleeping 500ms and then 1s between them.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	Multiplier:   2.0,
}

// Validate reports a configuration the executor cannot run with.
func (c Config) Validate() error {
	switch {
	case c.MaxAttempts < 1:
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	case c.InitialDelay < 0:
		return fmt.Errorf("initial_delay must not be negative, got %v", c.InitialDelay)
	case c.Multiplier < 1:
		return fmt.Errorf("multiplier must be at least 1, got %v", c.Multiplier)
	case c.MaxDelay < 0:
		return fmt.Errorf("max_delay must not be negative, got %v", c.MaxDelay)
	}
	return nil
}

// Transport performs one request attempt.
type Transport interface {
	Perform(ctx context.Context, target string) domain.AttemptResult
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for retry progress.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = logger{l}
		}
	}
}

// WithSleeper replaces the backoff sleep.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// Executor runs one request at a time with bounded retry.
type Executor struct {
	transport Transport
	cfg       Config
	sleep     Sleeper
	log       logger
}

// NewExecutor creates an executor over transport.
func NewExecutor(transport Transport, cfg Config, opts ...Option) *Executor {
	e := &Executor{
		transport: transport,
		cfg:       cfg,
		sleep:     sleepContext,
		log:       logger{slog.Default()},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.MaxAttempts <= 0 {
		e.cfg.MaxAttempts = 1
	}
	return e
}

// Config returns the retry configuration in use.
func (e *Executor) Config() Config {
	return e.cfg
}

// Execute requests target until the result is terminal or the attempt budget is spent, and
// returns the last result unchanged.
func (e *Executor) Execute(ctx context.Context, target string) domain.Outcome {
	out := domain.Outcome{
		Target:    target,
		RequestID: domain.RequestIDFromContext(ctx),
	}
	if out.RequestID == "" {
		out.RequestID = uuid.NewString()
		ctx = domain.WithRequestID(ctx, out.RequestID)
	}

	state := domain.NewBackoffState(e.cfg.InitialDelay)
	for {
		result := e.transport.Perform(ctx, target)
		out.Result = result
		out.Attempts = state.Attempt
		observeAttempt(result)

		if Classify(result) == domain.DecisionTerminal {
			out.Reason = domain.ReasonTerminal
			break
		}
		if state.Attempt >= e.cfg.MaxAttempts {
			out.Reason = domain.ReasonExhausted
			break
		}

		e.log.retry(ctx, target, state.Attempt, result, state.Delay)
		metrics.RetriesTotal.WithLabelValues(string(Categorize(result))).Inc()
		metrics.BackoffSeconds.Observe(state.Delay.Seconds())

		err := e.sleep(ctx, state.Delay)
		out.Delays = append(out.Delays, state.Delay)
		if err != nil {
			out.Reason = domain.ReasonCanceled
			break
		}
		state.Advance(e.cfg.Multiplier, e.cfg.MaxDelay)
	}

	class := Categorize(out.Result)
	metrics.OutcomesTotal.WithLabelValues(string(out.Reason), string(class)).Inc()
	e.log.final(ctx, out, class)
	return out
}

func observeAttempt(result domain.AttemptResult) {
	kind := "response"
	if result.Err != nil {
		kind = "error"
	}
	metrics.AttemptsTotal.WithLabelValues(kind).Inc()
	metrics.AttemptLatency.Observe(result.Latency.Seconds())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
