// Package gemini 提供 Google Gemini 流式对话供应商实现。
//
// streamGenerateContent 的响应不是 SSE，而是按行分隔的 JSON 对象，
// 由 ndjsonParser 增量解析。
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kart-io/nyx/pkg/llm"
	"github.com/kart-io/nyx/pkg/utils/httpclient"
	"github.com/kart-io/nyx/pkg/utils/json"
)

// ProviderName 是 Gemini 供应商的名称标识符
const ProviderName = llm.ProviderGemini

func init() {
	llm.RegisterChatProvider(ProviderName, func(config map[string]any) (llm.ChatProvider, error) {
		return NewProvider(config)
	})
}

// Config Gemini 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey Google AI API 密钥，可被请求级密钥覆盖。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Timeout 等待响应头的超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxTokens 对应 generationConfig.maxOutputTokens。
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
		Timeout:   60 * time.Second,
		MaxTokens: 1000,
	}
}

// Provider Gemini 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

var _ llm.ChatProvider = (*Provider)(nil)

// NewProvider 从配置 map 创建 Gemini 供应商。
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
		return nil, fmt.Errorf("gemini: base_url 不能为空")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Gemini 供应商。
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

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

// chatRequest streamGenerateContent 请求体。
type chatRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// generateResponse 流中的单个对象。
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// text 返回首个候选的首个文本片段。
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// StreamChat 发起流式对话，assistant 轮次重标为 model，其余为 user。
func (p *Provider) StreamChat(ctx context.Context, in *llm.ChatRequest) (llm.Stream, error) {
	apiKey, err := llm.ResolveKey(in.APIKey, p.config.APIKey)
	if err != nil {
		return nil, err
	}

	contents := make([]content, 0, len(in.Turns))
	for _, t := range in.Turns {
		role := "user"
		if t.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: t.Content}}})
	}

	body, err := json.Marshal(chatRequest{
		Contents:          contents,
		SystemInstruction: &content{Parts: []part{{Text: in.SystemPrompt}}},
		GenerationConfig:  generationConfig{MaxOutputTokens: p.config.MaxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:streamGenerateContent?key=%s",
		p.config.BaseURL, url.PathEscape(in.Model), url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.DoStream(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return newChatStream(resp.Body), nil
}
