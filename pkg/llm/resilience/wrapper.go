package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kart-io/nyx/pkg/llm"
	"github.com/kart-io/nyx/pkg/utils/httpclient"
)

// ResilientEmbeddingProvider 带重试和熔断的 Embedding Provider 包装器。
type ResilientEmbeddingProvider struct {
	provider llm.EmbeddingProvider
	retry    *RetryConfig
	cb       *CircuitBreaker
}

var _ llm.EmbeddingProvider = (*ResilientEmbeddingProvider)(nil)

// NewResilientEmbeddingProvider 创建带韧性功能的 Embedding Provider。
func NewResilientEmbeddingProvider(
	provider llm.EmbeddingProvider,
	retryConfig *RetryConfig,
	cbConfig *CircuitBreakerConfig,
) *ResilientEmbeddingProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
	}
	if cbConfig == nil {
		cbConfig = DefaultCircuitBreakerConfig()
	}
	if cbConfig.Name == "" {
		cbConfig.Name = "embedding:" + provider.Name()
	}

	return &ResilientEmbeddingProvider{
		provider: provider,
		retry:    retryConfig,
		cb:       NewCircuitBreaker(cbConfig),
	}
}

// Embed 生成向量嵌入。每次重试都经过熔断器。
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := RetryWithBackoff(ctx, r.retry, func() error {
		return r.cb.Execute(func() error {
			var err error
			result, err = r.provider.Embed(ctx, text)
			return err
		})
	})
	return result, err
}

// Dimension 返回向量维度。
func (r *ResilientEmbeddingProvider) Dimension() int {
	return r.provider.Dimension()
}

// Name 返回供应商名称。
func (r *ResilientEmbeddingProvider) Name() string {
	return r.provider.Name()
}

// CircuitBreaker 获取熔断器实例（用于监控）。
func (r *ResilientEmbeddingProvider) CircuitBreaker() *CircuitBreaker {
	return r.cb
}

// BreakerChatProvider 只带熔断的 Chat Provider 包装器。
// 熔断器只观察建立流之前的失败，流中断不计入。
type BreakerChatProvider struct {
	provider llm.ChatProvider
	cb       *CircuitBreaker
}

var _ llm.ChatProvider = (*BreakerChatProvider)(nil)

// NewBreakerChatProvider 创建带熔断的 Chat Provider。
func NewBreakerChatProvider(provider llm.ChatProvider, cbConfig *CircuitBreakerConfig) *BreakerChatProvider {
	if cbConfig == nil {
		cbConfig = DefaultCircuitBreakerConfig()
	}
	if cbConfig.Name == "" {
		cbConfig.Name = "chat:" + provider.Name()
	}
	return &BreakerChatProvider{provider: provider, cb: NewCircuitBreaker(cbConfig)}
}

// StreamChat 通过熔断器建立流。
func (b *BreakerChatProvider) StreamChat(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	var stream llm.Stream
	err := b.cb.Execute(func() error {
		var err error
		stream, err = b.provider.StreamChat(ctx, req)
		return err
	})
	return stream, err
}

// Name 返回供应商名称，与被包装的供应商一致以便路由。
func (b *BreakerChatProvider) Name() string {
	return b.provider.Name()
}

// CircuitBreaker 获取熔断器实例（用于监控）。
func (b *BreakerChatProvider) CircuitBreaker() *CircuitBreaker {
	return b.cb
}

// CountsAsFailure 判断错误是否表示上游故障。
// 缺少凭证与调用方取消不是上游的问题。
func CountsAsFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, llm.ErrUnavailable):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		// 4xx 通常是请求或凭证问题（如请求级密钥错误），429 除外
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// IsRetryableError 判断错误是否可重试。
// 5xx 已由 httpclient 重试过，这里只处理限流与网络层错误。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitBreakerOpen) || errors.Is(err, llm.ErrUnavailable) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode == http.StatusRequestTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
