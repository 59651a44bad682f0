package api

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/coursetrack/internal/course"
)

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry settings used by the CLI.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryBackend is a decorator that retries the idempotent reads with
// exponential backoff and jitter. Writes pass through untouched: a retried
// completion or progress report could land twice.
type RetryBackend struct {
	inner  Backend
	config RetryConfig
}

// WithRetry wraps a Backend with retry logic.
func WithRetry(b Backend, cfg RetryConfig) Backend {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryBackend{inner: b, config: cfg}
}

func (r *RetryBackend) LoadCourse(ctx context.Context, courseID string) (course.Course, error) {
	var c course.Course
	err := r.retry(ctx, func() error {
		var err error
		c, err = r.inner.LoadCourse(ctx, courseID)
		return err
	})
	return c, err
}

func (r *RetryBackend) MarkLessonCompleted(ctx context.Context, courseID, lessonID string) error {
	return r.inner.MarkLessonCompleted(ctx, courseID, lessonID)
}

func (r *RetryBackend) ReportVideoProgress(ctx context.Context, p VideoProgress) error {
	return r.inner.ReportVideoProgress(ctx, p)
}

func (r *RetryBackend) CheckCompletion(ctx context.Context, courseID string) (CompletionStatus, error) {
	var st CompletionStatus
	err := r.retry(ctx, func() error {
		var err error
		st, err = r.inner.CheckCompletion(ctx, courseID)
		return err
	})
	return st, err
}

func (r *RetryBackend) GenerateCertificate(ctx context.Context, courseID string) (Certificate, error) {
	return r.inner.GenerateCertificate(ctx, courseID)
}

func (r *RetryBackend) retry(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := range r.config.MaxAttempts {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		// Last attempt: don't sleep, just return the error.
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}
	return lastErr
}

// shouldRetry determines if an error is retryable.
func shouldRetry(err error) bool {
	// Context errors are never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// A payload the client cannot read will not improve.
	if errors.Is(err, ErrInvalidPayload) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}

	return errors.Is(err, ErrNetworkFailure)
}

// backoff computes the wait duration for the given attempt.
func (r *RetryBackend) backoff(attempt int) time.Duration {
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
