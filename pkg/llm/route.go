package llm

import (
	"strings"
)

// 供应商名称。
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// modelTable 对外模型 ID 到上游模型名的映射。
// 已部署的挂件代码会持久引用这些 ID，只能追加，不能删除。
var modelTable = map[string]string{
	"gpt-5.2":          "gpt-5.2",
	"gpt-5.2-mini":     "gpt-5.2-mini",
	"claude-haiku-4.5": "claude-3-5-haiku-latest",
	"claude-sonnet-4":  "claude-sonnet-4-20250514",
	"gemini-3-flash":   "gemini-2.0-flash",
	"gemini-3-pro":     "gemini-2.0-pro",
}

// ResolveModel 返回模型 ID 对应的上游模型名，未知 ID 原样返回。
func ResolveModel(modelID string) string {
	if m, ok := modelTable[modelID]; ok {
		return m
	}
	return modelID
}

// Route 根据模型 ID 前缀选择供应商，按固定优先级匹配，未匹配时默认 OpenAI。
func Route(modelID string) string {
	switch {
	case strings.HasPrefix(modelID, "gpt-"), strings.HasPrefix(modelID, "o1"):
		return ProviderOpenAI
	case strings.HasPrefix(modelID, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(modelID, "gemini-"):
		return ProviderGemini
	default:
		return ProviderOpenAI
	}
}

// Router 持有启动时构建的 Chat 供应商，只读，可并发使用。
type Router struct {
	providers map[string]ChatProvider
}

// NewRouter 以 Name() 为键构建路由表。
func NewRouter(providers ...ChatProvider) *Router {
	r := &Router{providers: make(map[string]ChatProvider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Select 返回模型 ID 对应的供应商名称和实例，供应商未注册时 ok 为 false。
func (r *Router) Select(modelID string) (name string, p ChatProvider, ok bool) {
	name = Route(modelID)
	p, ok = r.providers[name]
	return name, p, ok
}
