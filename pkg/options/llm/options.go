// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/nyx/pkg/options"
)

var (
	_ options.IOptions = (*ProviderOptions)(nil)
	_ options.IOptions = (*Options)(nil)
)

// ProviderOptions 定义单个 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（openai, anthropic, gemini）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey 进程级默认密钥，为空时读取 APIKeyEnv 指定的环境变量。
	APIKey string `json:"-" mapstructure:"api-key"`

	// APIKeyEnv 默认密钥的环境变量名。
	APIKeyEnv string `json:"api-key-env" mapstructure:"api-key-env"`

	// Model 模型名称，仅 Embedding 使用；Chat 模型由请求决定。
	Model string `json:"model,omitempty" mapstructure:"model"`

	// Dimension 向量维度，仅 Embedding 使用。
	Dimension int `json:"dimension,omitempty" mapstructure:"dimension"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 非流式请求遇到 5xx 的最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// MaxTokens 单次回复的最大 token 数。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization,omitempty" mapstructure:"organization"`
}

// NewOpenAIOptions 创建默认 OpenAI Chat 配置。
func NewOpenAIOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "openai",
		BaseURL:    "https://api.openai.com/v1",
		APIKeyEnv:  "OPENAI_API_KEY",
		Timeout:    120 * time.Second,
		MaxRetries: 2,
		MaxTokens:  1000,
	}
}

// NewAnthropicOptions 创建默认 Anthropic Chat 配置。
func NewAnthropicOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:  "anthropic",
		BaseURL:   "https://api.anthropic.com",
		APIKeyEnv: "ANTHROPIC_API_KEY",
		Timeout:   120 * time.Second,
		MaxTokens: 1000,
	}
}

// NewGeminiOptions 创建默认 Gemini Chat 配置。
func NewGeminiOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:  "gemini",
		BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
		APIKeyEnv: "GOOGLE_AI_API_KEY",
		Timeout:   120 * time.Second,
		MaxTokens: 1000,
	}
}

// NewEmbeddingOptions 创建默认 Embedding 配置。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "openai",
		BaseURL:    "https://api.openai.com/v1",
		APIKeyEnv:  "OPENAI_API_KEY",
		Model:      "text-embedding-3-small",
		Dimension:  1536,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":        o.BaseURL,
		"api_key":         o.APIKey,
		"embed_model":     o.Model,
		"embed_dimension": o.Dimension,
		"timeout":         o.Timeout,
		"max_retries":     o.MaxRetries,
		"max_tokens":      o.MaxTokens,
		"organization":    o.Organization,
	}
}

// AddFlags adds flags for one provider. The last prefix names the provider
// section, e.g. "llm.openai" or "embedding".
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "API base URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Default API key; per-request keys take precedence.")
	fs.StringVar(&o.APIKeyEnv, p+"api-key-env", o.APIKeyEnv, "Environment variable consulted when api-key is empty.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Retries on 5xx for non-streaming calls.")
	if o.Model != "" {
		fs.StringVar(&o.Model, p+"model", o.Model, "Embedding model name.")
		fs.IntVar(&o.Dimension, p+"dimension", o.Dimension, "Embedding vector dimension.")
	} else {
		fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Maximum tokens per reply.")
	}
	if o.Provider == "openai" {
		fs.StringVar(&o.Organization, p+"organization", o.Organization, "OpenAI organization ID (optional).")
	}
}

// Complete 密钥为空时从环境变量读取。
func (o *ProviderOptions) Complete() error {
	if o.APIKey == "" && o.APIKeyEnv != "" {
		o.APIKey = os.Getenv(o.APIKeyEnv)
	}
	return nil
}

// Validate validates the LLM provider options. A missing key is legal:
// the provider is then unavailable unless a request supplies one.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s: base-url is required", o.Provider))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s: timeout must be positive", o.Provider))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s: max-retries must not be negative", o.Provider))
	}
	return errs
}

// BreakerOptions 熔断器配置。
type BreakerOptions struct {
	// MaxFailures 连续失败多少次后熔断。
	MaxFailures int `json:"max-failures" mapstructure:"max-failures"`
	// OpenTimeout 熔断后多久进入半开状态。
	OpenTimeout time.Duration `json:"open-timeout" mapstructure:"open-timeout"`
}

// Options 聚合全部 LLM 配置。
type Options struct {
	OpenAI    *ProviderOptions `json:"openai" mapstructure:"openai"`
	Anthropic *ProviderOptions `json:"anthropic" mapstructure:"anthropic"`
	Gemini    *ProviderOptions `json:"gemini" mapstructure:"gemini"`
	Embedding *ProviderOptions `json:"embedding" mapstructure:"embedding"`
	Breaker   *BreakerOptions  `json:"breaker" mapstructure:"breaker"`
}

// NewOptions 创建默认 LLM 配置。
func NewOptions() *Options {
	return &Options{
		OpenAI:    NewOpenAIOptions(),
		Anthropic: NewAnthropicOptions(),
		Gemini:    NewGeminiOptions(),
		Embedding: NewEmbeddingOptions(),
		Breaker: &BreakerOptions{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
	}
}

// Chat 返回三个 Chat 供应商的配置。
func (o *Options) Chat() []*ProviderOptions {
	return []*ProviderOptions{o.OpenAI, o.Anthropic, o.Gemini}
}

// AddFlags adds flags for all providers.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	base := append(append([]string{}, prefixes...), "llm")
	o.OpenAI.AddFlags(fs, append(base, "openai")...)
	o.Anthropic.AddFlags(fs, append(base, "anthropic")...)
	o.Gemini.AddFlags(fs, append(base, "gemini")...)
	o.Embedding.AddFlags(fs, append(base, "embedding")...)
	p := options.Join(append(base, "breaker")...)
	fs.IntVar(&o.Breaker.MaxFailures, p+"max-failures", o.Breaker.MaxFailures, "Consecutive upstream failures before the circuit opens.")
	fs.DurationVar(&o.Breaker.OpenTimeout, p+"open-timeout", o.Breaker.OpenTimeout, "How long the circuit stays open before a trial call.")
}

// Complete fills keys from the environment.
func (o *Options) Complete() error {
	for _, p := range append(o.Chat(), o.Embedding) {
		if err := p.Complete(); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates every provider section.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	for _, p := range append(o.Chat(), o.Embedding) {
		errs = append(errs, p.Validate()...)
	}
	if o.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("llm.embedding.dimension must be positive"))
	}
	if o.Breaker.MaxFailures <= 0 {
		errs = append(errs, fmt.Errorf("llm.breaker.max-failures must be positive"))
	}
	return errs
}
