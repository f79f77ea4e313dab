// Package anthropic 提供 Anthropic Messages API 流式对话供应商实现。
//
// 系统提示是独立的顶层字段而不是消息轮次。响应为命名 SSE 事件流，
// 原样交给 sse.Decoder 分帧，content_block_delta 事件产出文本。
package anthropic

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/nyx/pkg/llm"
	"github.com/kart-io/nyx/pkg/utils/httpclient"
	"github.com/kart-io/nyx/pkg/utils/json"
)

// ProviderName 是 Anthropic 供应商的名称标识符
const ProviderName = llm.ProviderAnthropic

// APIVersion anthropic-version 请求头。
const APIVersion = "2023-06-01"

func init() {
	llm.RegisterChatProvider(ProviderName, func(config map[string]any) (llm.ChatProvider, error) {
		return NewProvider(config)
	})
}

// Config Anthropic 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey 进程级默认密钥，可被请求级密钥覆盖。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Timeout 等待响应头的超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxTokens 最大生成 token 数，Messages API 必填。
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "https://api.anthropic.com",
		Timeout:   60 * time.Second,
		MaxTokens: 1000,
	}
}

// Provider Anthropic 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

var _ llm.ChatProvider = (*Provider)(nil)

// NewProvider 从配置 map 创建 Anthropic 供应商。
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_tokens"].(int); ok && v > 0 {
		cfg.MaxTokens = v
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("anthropic: base_url 不能为空")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Anthropic 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, 0),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesRequest Messages API 请求体。
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	Stream    bool      `json:"stream"`
}

// StreamChat 发起流式对话。
func (p *Provider) StreamChat(ctx context.Context, in *llm.ChatRequest) (llm.Stream, error) {
	apiKey, err := llm.ResolveKey(in.APIKey, p.config.APIKey)
	if err != nil {
		return nil, err
	}

	messages := make([]message, 0, len(in.Turns))
	for _, t := range in.Turns {
		messages = append(messages, message{Role: string(t.Role), Content: t.Content})
	}

	body, err := json.Marshal(messagesRequest{
		Model:     in.Model,
		MaxTokens: p.config.MaxTokens,
		System:    in.SystemPrompt,
		Messages:  messages,
		Stream:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := p.client.DoStream(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return newChatStream(resp.Body), nil
}
