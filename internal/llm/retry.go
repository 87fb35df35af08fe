package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

// RetryPolicy bounds retries of transient provider failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

type retryingProvider struct {
	next    Provider
	policy  RetryPolicy
	limiter *rate.Limiter
	logger  *utils.Logger
}

// WithRetry wraps next so every call waits for limiter (nil means no limit)
// and transient failures are retried with exponential backoff.
func WithRetry(next Provider, policy RetryPolicy, limiter *rate.Limiter, logger *utils.Logger) Provider {
	return &retryingProvider{
		next:    next,
		policy:  policy,
		limiter: limiter,
		logger:  logger,
	}
}

func (p *retryingProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return Call(ctx, p.policy, p.limiter, p.logger, func(ctx context.Context) (string, error) {
		return p.next.Generate(ctx, prompt)
	})
}

func (p *retryingProvider) Transcribe(ctx context.Context, instruction string, image Image) (string, error) {
	return Call(ctx, p.policy, p.limiter, p.logger, func(ctx context.Context) (string, error) {
		return p.next.Transcribe(ctx, instruction, image)
	})
}

// Call runs fn, waiting for limiter before every attempt and retrying
// errors that IsRetryable reports as transient.
func Call[T any](ctx context.Context, policy RetryPolicy, limiter *rate.Limiter, log *utils.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.delay(attempt)
			log.Info("Retrying LLM call", "attempt", attempt, "max_retries", policy.MaxRetries, "delay", delay.String())

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return zero, fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info("Retry succeeded", "attempt", attempt)
			}
			return result, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return zero, err
		}

		log.Warn("Transient LLM error", "attempt", attempt+1, "error", err)
	}

	return zero, fmt.Errorf("max retries (%d) exceeded, last error: %w", policy.MaxRetries, lastErr)
}

// IsRetryable reports whether err is a rate limit, overload or transport
// failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "rate_limit_exceeded", "too many requests", "resource_exhausted", "503", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
