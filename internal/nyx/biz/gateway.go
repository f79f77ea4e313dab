package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/internal/nyx/metrics"
	"github.com/kart-io/nyx/pkg/infra/tracing"
	"github.com/kart-io/nyx/pkg/llm"
)

// ChatConfig 默认值。
const (
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultBusinessName = "Our Business"
	DefaultModel        = "gemini-3-flash"
)

// ChatConfig 挂件随请求携带的机器人配置。
type ChatConfig struct {
	SystemPrompt string `json:"systemPrompt"`
	BusinessName string `json:"businessName"`
	Model        string `json:"model"`
	APIKey       string `json:"apiKey,omitempty"`
}

func (c ChatConfig) withDefaults() ChatConfig {
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.BusinessName == "" {
		c.BusinessName = DefaultBusinessName
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	return c
}

// ChatInput 一次对话请求。Turns 可以为空。
type ChatInput struct {
	TenantID  string
	SessionID string
	Turns     []llm.Message
	Config    ChatConfig
}

// Mode 回复方式。
type Mode string

const (
	ModeDemo   Mode = "demo"
	ModeStream Mode = "stream"
)

// Reply 网关的回复：演示模式下是一段完整文本，否则是待输出的流。
// 调用方必须对流式回复调用 Emit 或 Close。
type Reply struct {
	Mode     Mode
	Content  string
	Provider string

	stream    llm.Stream
	ctx       context.Context
	cancel    context.CancelCauseFunc
	release   func()
	closeOnce sync.Once
}

// Close 释放上游连接与会话登记，可重复调用。
func (r *Reply) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.stream != nil {
			err = r.stream.Close()
		}
		r.cancel(nil)
		r.release()
	})
	return err
}

// Emitter 输出规范化后的帧。
type Emitter interface {
	Delta(content string) error
	Done() error
}

// Gateway 对话编排：规范化 -> 检索 -> 调用 -> 流式输出或演示回复。
type Gateway struct {
	router    *llm.Router
	retriever *Retriever
	sessions  *Sessions
	metrics   *metrics.Metrics
}

// NewGateway 创建网关。retriever 为 nil 时不做检索增强。
func NewGateway(router *llm.Router, retriever *Retriever, sessions *Sessions) *Gateway {
	if sessions == nil {
		sessions = NewSessions()
	}
	return &Gateway{
		router:    router,
		retriever: retriever,
		sessions:  sessions,
		metrics:   metrics.Get(),
	}
}

// Chat 处理一次对话。供应商不可用或在首个增量之前失败时返回演示回复；
// 只有请求被取消（客户端断开或被同会话新请求取代）时返回错误。
func (g *Gateway) Chat(ctx context.Context, in *ChatInput) (*Reply, error) {
	cfg := in.Config.withDefaults()
	query := ""
	if n := len(in.Turns); n > 0 {
		query = in.Turns[n-1].Content
	}

	ctx, cancel := context.WithCancelCause(ctx)
	reply := &Reply{
		ctx:     ctx,
		cancel:  cancel,
		release: g.sessions.Begin(in.SessionID, cancel),
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "Gateway.Chat")
	defer span.End()
	span.SetAttributes(
		tracing.String(tracing.AttrModel, cfg.Model),
		tracing.Int(tracing.AttrChatTurns, len(in.Turns)),
		tracing.Bool(tracing.AttrHasTenant, in.TenantID != ""),
	)

	systemPrompt := cfg.SystemPrompt
	if in.TenantID != "" && query != "" && g.retriever != nil {
		passages := g.retriever.Retrieve(ctx, in.TenantID, query, 0)
		systemPrompt = AugmentPrompt(systemPrompt, passages)
	}

	name, provider, ok := g.router.Select(cfg.Model)
	if !ok {
		logger.Infow("chat provider not configured, replying in demo mode",
			"model", cfg.Model,
			"provider", name,
		)
		return g.demo(reply, query, cfg), nil
	}

	span.SetAttributes(tracing.String(tracing.AttrProvider, name))
	stream, err := g.invoke(ctx, name, provider, &llm.ChatRequest{
		Turns:        in.Turns,
		Model:        llm.ResolveModel(cfg.Model),
		SystemPrompt: systemPrompt,
		APIKey:       cfg.APIKey,
	})
	if err != nil {
		if cause := interrupted(ctx); cause != nil {
			_ = reply.Close()
			return nil, cause
		}
		if errors.Is(err, llm.ErrUnavailable) {
			logger.Infow("chat provider has no credential, replying in demo mode",
				"model", cfg.Model,
				"provider", name,
			)
		} else {
			logger.Warnw("chat provider failed before streaming, replying in demo mode",
				"model", cfg.Model,
				"provider", name,
				"error", err.Error(),
			)
			tracing.RecordError(ctx, err)
		}
		return g.demo(reply, query, cfg), nil
	}

	reply.Mode = ModeStream
	reply.Provider = name
	reply.stream = stream
	g.metrics.RecordChat(false)
	return reply, nil
}

func (g *Gateway) demo(reply *Reply, query string, cfg ChatConfig) *Reply {
	reply.Mode = ModeDemo
	reply.Content = FallbackReply(query, cfg.BusinessName)
	_ = reply.Close()
	g.metrics.RecordChat(true)
	return reply
}

// invoke 建立上游流并读取首个增量，首个增量之前的失败由调用方回退。
func (g *Gateway) invoke(ctx context.Context, name string, provider llm.ChatProvider, req *llm.ChatRequest) (llm.Stream, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Gateway.Invoke")
	defer span.End()
	span.SetAttributes(
		tracing.String(tracing.AttrProvider, name),
		tracing.String(tracing.AttrModel, req.Model),
	)

	start := time.Now()
	stream, err := provider.StreamChat(ctx, req)
	if err != nil {
		g.metrics.RecordProviderCall(name, time.Since(start), err)
		return nil, err
	}

	if stream.Next() {
		g.metrics.RecordProviderCall(name, time.Since(start), nil)
		return &peekedStream{Stream: stream, first: stream.Delta(), state: peekPending}, nil
	}
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		g.metrics.RecordProviderCall(name, time.Since(start), err)
		return nil, err
	}
	g.metrics.RecordProviderCall(name, time.Since(start), nil)
	return &peekedStream{Stream: stream, state: peekExhausted}, nil
}

// Emit 输出流式回复：每个增量一帧，正常结束时写入结束标记。
// 上游中途失败或请求被取消时不写结束标记，调用方看到的是截断。
func (g *Gateway) Emit(reply *Reply, e Emitter) error {
	defer reply.Close()

	if reply.Mode != ModeStream {
		return fmt.Errorf("emit: reply mode is %q", reply.Mode)
	}

	deltas := 0
	for reply.stream.Next() {
		if cause := interrupted(reply.ctx); cause != nil {
			g.recordInterrupted(reply, cause, deltas)
			return cause
		}
		if err := e.Delta(reply.stream.Delta()); err != nil {
			g.metrics.RecordStream(metrics.StreamTruncated, deltas)
			return err
		}
		deltas++
	}

	if cause := interrupted(reply.ctx); cause != nil {
		g.recordInterrupted(reply, cause, deltas)
		return cause
	}
	if err := reply.stream.Err(); err != nil {
		logger.Warnw("upstream stream broken",
			"provider", reply.Provider,
			"deltas", deltas,
			"error", err.Error(),
		)
		g.metrics.RecordStream(metrics.StreamTruncated, deltas)
		return err
	}

	g.metrics.RecordStream(metrics.StreamCompleted, deltas)
	return e.Done()
}

func (g *Gateway) recordInterrupted(reply *Reply, cause error, deltas int) {
	if errors.Is(cause, ErrSuperseded) {
		logger.Infow("stream superseded", "provider", reply.Provider, "deltas", deltas)
		g.metrics.RecordStream(metrics.StreamSuperseded, deltas)
		return
	}
	g.metrics.RecordStream(metrics.StreamTruncated, deltas)
}

// interrupted 返回请求被取消的原因，未取消时返回 nil。
func interrupted(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	if errors.Is(cause, ctx.Err()) {
		return cause
	}
	return fmt.Errorf("%w: %w", ctx.Err(), cause)
}

const (
	peekPending = iota
	peekDelegating
	peekExhausted
)

// peekedStream 重放已读取的首个增量，之后委托给底层流。
type peekedStream struct {
	llm.Stream
	first string
	cur   string
	state int
}

func (p *peekedStream) Next() bool {
	switch p.state {
	case peekPending:
		p.state = peekDelegating
		p.cur = p.first
		return true
	case peekExhausted:
		return false
	}
	if p.Stream.Next() {
		p.cur = p.Stream.Delta()
		return true
	}
	return false
}

func (p *peekedStream) Delta() string { return p.cur }
