// Package llm 提供统一的 LLM 供应商抽象层。
//
// Chat 供应商只暴露流式接口 StreamChat，三种上游协议（OpenAI SSE、
// Anthropic 事件流、Google NDJSON）各自实现 Stream，调用方只看到统一的
// 文本增量序列。Embedding 供应商与 Chat 供应商独立配置。
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnavailable 供应商不可用：请求与进程级配置都没有凭证。
// 这不是故障，网关据此走演示模式。
var ErrUnavailable = errors.New("llm provider unavailable")

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为单个文本生成向量嵌入。
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension 返回向量维度。
	Dimension() int

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// StreamChat 发起一次流式对话。没有可用凭证时返回 ErrUnavailable。
	// 返回的 Stream 只能消费一次，调用方负责 Close。
	StreamChat(ctx context.Context, req *ChatRequest) (Stream, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatRequest 一次对话调用。
type ChatRequest struct {
	// Turns 对话轮次，不含系统提示。
	Turns []Message
	// Model 上游模型名（已经过 ResolveModel 映射）。
	Model string
	// SystemPrompt 系统提示。
	SystemPrompt string
	// APIKey 请求级凭证，优先于供应商默认凭证。
	APIKey string
}

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Stream 惰性、单次消费的文本增量序列。
//
//	for s.Next() {
//	    fmt.Print(s.Delta())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream interface {
	// Next 读取下一个增量，序列结束或出错时返回 false。
	Next() bool
	// Delta 返回当前增量文本。
	Delta() string
	// Err 返回导致序列提前结束的错误，正常结束为 nil。
	Err() error
	// Close 释放底层连接，可重复调用。
	Close() error
}

// ResolveKey 按优先级选择凭证：请求级 > 配置默认值。
func ResolveKey(requestKey, defaultKey string) (string, error) {
	if requestKey != "" {
		return requestKey, nil
	}
	if defaultKey != "" {
		return defaultKey, nil
	}
	return "", ErrUnavailable
}

// EmbeddingProviderFactory Embedding 供应商工厂函数类型。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// ChatProviderFactory Chat 供应商工厂函数类型。
type ChatProviderFactory func(config map[string]any) (ChatProvider, error)

// registry 供应商注册表。
var registry = &providerRegistry{
	embeddingProviders: make(map[string]EmbeddingProviderFactory),
	chatProviders:      make(map[string]ChatProviderFactory),
}

type providerRegistry struct {
	mu                 sync.RWMutex
	embeddingProviders map[string]EmbeddingProviderFactory
	chatProviders      map[string]ChatProviderFactory
}

// RegisterEmbeddingProvider 注册 Embedding 供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterChatProvider 注册 Chat 供应商工厂。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chatProviders[name] = factory
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.embeddingProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
	return factory(config)
}

// NewChatProvider 根据名称创建 Chat 供应商实例。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.chatProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown chat provider: %s", name)
	}
	return factory(config)
}

// ListProviders 列出所有已注册的供应商名称（已排序）。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for name := range registry.embeddingProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range registry.chatProviders {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
