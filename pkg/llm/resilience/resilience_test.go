package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nyx/pkg/llm"
	"github.com/kart-io/nyx/pkg/utils/httpclient"
)

var errUpstream = &httpclient.StatusError{StatusCode: http.StatusBadGateway}

// fakeClock 可手动推进的时钟。
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		Name:             "test",
		MaxFailures:      maxFailures,
		Timeout:          time.Second,
		HalfOpenMaxCalls: 1,
	})
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	cb, clock := newTestBreaker(2)

	for i := 0; i < 2; i++ {
		assert.Error(t, cb.Execute(func() error { return errUpstream }))
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called, "熔断器打开时不应调用上游")

	clock.t = clock.t.Add(2 * time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1)

	_ = cb.Execute(func() error { return errUpstream })
	clock.t = clock.t.Add(2 * time.Second)

	assert.Error(t, cb.Execute(func() error { return errUpstream }))
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, "open", cb.Stats().State)
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	cb, _ := newTestBreaker(1)

	_ = cb.Execute(func() error { return llm.ErrUnavailable })
	_ = cb.Execute(func() error { return context.Canceled })
	_ = cb.Execute(func() error { return &httpclient.StatusError{StatusCode: http.StatusUnauthorized} })

	assert.Equal(t, StateClosed, cb.State())
	assert.Zero(t, cb.Stats().Failures)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1)
	_ = cb.Execute(func() error { return errUpstream })
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}

func TestRetryWithBackoff(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	rateLimited := &httpclient.StatusError{StatusCode: http.StatusTooManyRequests}

	attempts := 0
	err := RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return rateLimited
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		return rateLimited
	})
	assert.ErrorIs(t, err, rateLimited)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryable(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), DefaultRetryConfig(), func() error {
		attempts++
		return &httpclient.StatusError{StatusCode: http.StatusBadRequest}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

	err := RetryWithBackoff(ctx, cfg, func() error {
		cancel()
		return &httpclient.StatusError{StatusCode: http.StatusTooManyRequests}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(ErrCircuitBreakerOpen))
	assert.False(t, IsRetryableError(llm.ErrUnavailable))
	assert.False(t, IsRetryableError(errors.New("plain")))
	assert.True(t, IsRetryableError(&httpclient.StatusError{StatusCode: http.StatusRequestTimeout}))
}

type flakyChat struct {
	err   error
	calls int
}

func (f *flakyChat) StreamChat(context.Context, *llm.ChatRequest) (llm.Stream, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return llm.NewSliceStream("ok"), nil
}
func (f *flakyChat) Name() string { return llm.ProviderOpenAI }

func TestBreakerChatProvider(t *testing.T) {
	inner := &flakyChat{err: errUpstream}
	p := NewBreakerChatProvider(inner, &CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})
	assert.Equal(t, llm.ProviderOpenAI, p.Name())

	_, err := p.StreamChat(context.Background(), &llm.ChatRequest{})
	assert.ErrorIs(t, err, errUpstream)

	_, err = p.StreamChat(context.Background(), &llm.ChatRequest{})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.Equal(t, 1, inner.calls)
}

type countingEmbedder struct {
	errs  []error
	calls int
}

func (c *countingEmbedder) Embed(context.Context, string) ([]float32, error) {
	c.calls++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []float32{1}, nil
}
func (c *countingEmbedder) Dimension() int { return 1 }
func (c *countingEmbedder) Name() string   { return "counting" }

func TestResilientEmbeddingProvider(t *testing.T) {
	inner := &countingEmbedder{errs: []error{&httpclient.StatusError{StatusCode: http.StatusTooManyRequests}}}
	p := NewResilientEmbeddingProvider(inner,
		&RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
		nil)

	v, err := p.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "embedding:counting", p.CircuitBreaker().Stats().Name)
}
