package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/BerylCAtieno/bill-extractor-api/internal/utils"
)

type scriptedProvider struct {
	errs  []error
	calls int
}

func (p *scriptedProvider) next() (string, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	return "ok", nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return p.next()
}

func (p *scriptedProvider) Transcribe(ctx context.Context, instruction string, image Image) (string, error) {
	return p.next()
}

var fastPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func TestWithRetry_RetriesTransientErrors(t *testing.T) {
	inner := &scriptedProvider{errs: []error{
		errors.New("429 Too Many Requests"),
		status.Error(codes.Unavailable, "backend overloaded"),
	}}
	p := WithRetry(inner, fastPolicy, nil, utils.NewDiscardLogger())

	out, err := p.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, inner.calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	inner := &scriptedProvider{errs: []error{status.Error(codes.InvalidArgument, "bad image")}}
	p := WithRetry(inner, fastPolicy, nil, utils.NewDiscardLogger())

	_, err := p.Transcribe(context.Background(), "read", Image{MIMEType: "image/png"})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	transient := errors.New("rate limit reached")
	inner := &scriptedProvider{errs: []error{transient, transient, transient, transient, transient}}
	p := WithRetry(inner, fastPolicy, nil, utils.NewDiscardLogger())

	_, err := p.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, fastPolicy.MaxRetries+1, inner.calls)
}

func TestWithRetry_HonoursCancellation(t *testing.T) {
	inner := &scriptedProvider{errs: []error{errors.New("503 service unavailable")}}
	slow := RetryPolicy{MaxRetries: 2, BaseDelay: time.Hour}
	p := WithRetry(inner, slow, nil, utils.NewDiscardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, "prompt")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_UsesLimiter(t *testing.T) {
	inner := &scriptedProvider{}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	p := WithRetry(inner, fastPolicy, limiter, utils.NewDiscardLogger())

	_, err := p.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Generate(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{errors.New("invalid api key"), false},
		{errors.New("Error 429: quota"), true},
		{fmt.Errorf("call: %w", errors.New("Too Many Requests")), true},
		{status.Error(codes.ResourceExhausted, "quota"), true},
		{status.Error(codes.PermissionDenied, "no access"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryable(tt.err), "%v", tt.err)
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 300*time.Millisecond, p.delay(3))
}
