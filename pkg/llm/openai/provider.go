// Package openai 提供 OpenAI 供应商实现，同时用于 Chat 流式对话与 Embedding。
// 也适用于兼容 OpenAI API 的服务（如 Azure OpenAI、LocalAI 等）。
//
// 基本用法示例：
//
//	import _ "github.com/kart-io/nyx/pkg/llm/openai"
//
//	chat, err := llm.NewChatProvider("openai", map[string]any{
//	    "api_key": os.Getenv("OPENAI_API_KEY"),
//	})
//	stream, err := chat.StreamChat(ctx, &llm.ChatRequest{
//	    Model:        "gpt-5.2",
//	    SystemPrompt: "You are a helpful assistant.",
//	    Turns:        []llm.Message{{Role: llm.RoleUser, Content: "你好"}},
//	})
package openai

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

// ProviderName 是 OpenAI 供应商的名称标识符
const ProviderName = llm.ProviderOpenAI

func init() {
	llm.RegisterChatProvider(ProviderName, func(config map[string]any) (llm.ChatProvider, error) {
		return NewProvider(config)
	})
	llm.RegisterEmbeddingProvider(ProviderName, func(config map[string]any) (llm.EmbeddingProvider, error) {
		p, err := NewProvider(config)
		if err != nil {
			return nil, err
		}
		// Embedding 没有请求级凭证，缺少默认凭证即不可用
		if p.config.APIKey == "" {
			return nil, fmt.Errorf("openai: %w: api_key 未配置", llm.ErrUnavailable)
		}
		return p, nil
	})
}

// Config OpenAI 供应商配置。
type Config struct {
	// BaseURL API 基础地址，默认为 OpenAI 官方地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey 进程级默认密钥，可被请求级密钥覆盖。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel 用于生成嵌入的模型。
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// EmbedDimension 嵌入向量维度，需与模型一致。
	EmbedDimension int `json:"embed_dimension" mapstructure:"embed_dimension"`

	// Timeout 非流式请求的超时时间，流式请求仅限制等待响应头的时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries Embedding 请求的最大重试次数，流式请求从不重试。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// Organization 组织 ID（可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// MaxTokens 最大生成 token 数。
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://api.openai.com/v1",
		EmbedModel:     "text-embedding-3-small",
		EmbedDimension: 1536,
		Timeout:        60 * time.Second,
		MaxRetries:     2,
		MaxTokens:      1000,
	}
}

// Provider OpenAI 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

var (
	_ llm.ChatProvider      = (*Provider)(nil)
	_ llm.EmbeddingProvider = (*Provider)(nil)
)

// NewProvider 从配置 map 创建 OpenAI 供应商。
// 缺少 api_key 不是错误：请求级密钥仍可使用。
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["embed_dimension"].(int); ok && v > 0 {
		cfg.EmbedDimension = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["organization"].(string); ok && v != "" {
		cfg.Organization = v
	}
	if v, ok := configMap["max_tokens"].(int); ok && v > 0 {
		cfg.MaxTokens = v
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: base_url 不能为空")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 OpenAI 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// WithHTTPClient 替换底层 HTTP 客户端。
func (p *Provider) WithHTTPClient(hc *http.Client) *Provider {
	p.client.WithHTTPClient(hc)
	return p
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Dimension 返回嵌入向量维度。
func (p *Provider) Dimension() int {
	return p.config.EmbedDimension
}

// embeddingRequest OpenAI embedding API 请求体。
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse OpenAI embedding API 响应体。
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed 为单个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.config.APIKey == "" {
		return nil, llm.ErrUnavailable
	}

	body, err := json.Marshal(embeddingRequest{
		Model: p.config.EmbedModel,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	p.setHeaders(req, p.config.APIKey)

	var embedResp embeddingResponse
	if err := p.client.DoJSON(req, &embedResp); err != nil {
		return nil, err
	}

	for _, data := range embedResp.Data {
		if data.Index == 0 && len(data.Embedding) > 0 {
			return data.Embedding, nil
		}
	}
	return nil, fmt.Errorf("未返回向量嵌入")
}

// chatRequest OpenAI chat API 请求体。
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamChat 发起流式对话，系统提示作为首条 system 消息发送。
func (p *Provider) StreamChat(ctx context.Context, in *llm.ChatRequest) (llm.Stream, error) {
	apiKey, err := llm.ResolveKey(in.APIKey, p.config.APIKey)
	if err != nil {
		return nil, err
	}

	messages := make([]chatMessage, 0, len(in.Turns)+1)
	messages = append(messages, chatMessage{Role: string(llm.RoleSystem), Content: in.SystemPrompt})
	for _, t := range in.Turns {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:     in.Model,
		Messages:  messages,
		Stream:    true,
		MaxTokens: p.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	p.setHeaders(req, apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.DoStream(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return newChatStream(resp.Body), nil
}

// setHeaders 设置请求头。
func (p *Provider) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if p.config.Organization != "" {
		req.Header.Set("OpenAI-Organization", p.config.Organization)
	}
}
