package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/studyhallhq/studyhall/internal/observability"
)

// Executor runs capabilities with per-attempt timeouts and retries on
// transient failures. Auth and permanent errors are returned after the
// first attempt.
type Executor struct {
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	metrics    *observability.Metrics
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) ExecutorOption {
	return func(e *Executor) { e.maxRetries = n }
}

// WithRetryDelay sets the base delay between retry attempts. The wait
// doubles with each subsequent attempt.
func WithRetryDelay(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.retryDelay = d }
}

// WithTimeout sets the timeout for each execution attempt.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
		timeout:    10 * time.Second,
		metrics:    observability.GlobalMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the capability, retrying transient failures.
func (e *Executor) Execute(ctx context.Context, cap Capability, args json.RawMessage) (string, error) {
	start := time.Now()
	var lastErr error
	name := cap.Name()

attemptsLoop:
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break attemptsLoop
		}

		execCtx, cancel := context.WithTimeout(ctx, e.timeout)
		result, err := cap.Invoke(execCtx, args)
		cancel()

		if err == nil {
			e.record(name, time.Since(start), false)
			slog.Debug("capability invocation succeeded",
				slog.String(observability.LogFieldCapability, name),
				slog.Int("attempt", attempt+1),
				slog.Duration("duration", time.Since(start)))
			return result, nil
		}

		lastErr = err
		classified := ClassifyError(err)
		slog.Warn("capability invocation failed",
			slog.String(observability.LogFieldCapability, name),
			slog.Int("attempt", attempt+1),
			slog.String("class", classified.Class.String()),
			slog.String("error", err.Error()))

		if !classified.IsTransient() {
			break attemptsLoop
		}

		if attempt < e.maxRetries {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break attemptsLoop
			case <-time.After(e.backoff(attempt)):
			}
		}
	}

	e.record(name, time.Since(start), true)
	return "", lastErr
}

// maxRetryDelay caps the exponential growth of retry waits.
const maxRetryDelay = 30 * time.Second

// backoff returns the wait before the next attempt. The base delay
// doubles with each attempt, capped at maxRetryDelay.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := e.retryDelay << attempt
	if delay <= 0 || delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func (e *Executor) record(name string, duration time.Duration, failed bool) {
	if e.metrics != nil {
		e.metrics.RecordInvocation(name, duration, failed)
	}
}
