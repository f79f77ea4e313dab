package biz

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/pkg/llm"
)

var (
	// ErrEmbeddingUnavailable 没有可用的 Embedding 供应商（演示模式）。
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrEmbeddingFailed 调用了上游但失败。对检索而言它等同于不可用，
	// 入库据此区分“跳过”与“整体失败”。
	ErrEmbeddingFailed = fmt.Errorf("%w: upstream failure", ErrEmbeddingUnavailable)
)

// EmbeddingService 包装 Embedding 供应商，把所有失败转换为不可用。
type EmbeddingService struct {
	provider llm.EmbeddingProvider
}

// NewEmbeddingService 创建向量化服务，provider 为 nil 表示未配置。
func NewEmbeddingService(provider llm.EmbeddingProvider) *EmbeddingService {
	return &EmbeddingService{provider: provider}
}

// Available 报告是否配置了供应商。
func (s *EmbeddingService) Available() bool {
	return s != nil && s.provider != nil
}

// Embed 生成文本向量。
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if !s.Available() {
		return nil, ErrEmbeddingUnavailable
	}

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			return nil, ErrEmbeddingUnavailable
		}
		logger.Warnw("embedding request failed",
			"provider", s.provider.Name(),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(vec) == 0 {
		logger.Warnw("embedding provider returned empty vector", "provider", s.provider.Name())
		return nil, ErrEmbeddingFailed
	}
	return vec, nil
}
