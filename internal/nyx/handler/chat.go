package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/internal/nyx/biz"
	"github.com/kart-io/nyx/internal/pkg/httputils"
	"github.com/kart-io/nyx/pkg/errors"
	"github.com/kart-io/nyx/pkg/llm"
	"github.com/kart-io/nyx/pkg/utils/json"
	"github.com/kart-io/nyx/pkg/utils/sse"
)

// ChatHandler 处理 /api/chat。
type ChatHandler struct {
	gateway *biz.Gateway
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(gateway *biz.Gateway) *ChatHandler {
	return &ChatHandler{gateway: gateway}
}

// Turn 一轮对话。
type Turn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant" example:"user"`
	Content string `json:"content" example:"What are your opening hours?"`
}

// ChatRequest 对话请求。messages 是 turns 的别名，chatbotId 是 tenantId 的别名。
type ChatRequest struct {
	TenantID  string         `json:"tenantId,omitempty"`
	ChatbotID string         `json:"chatbotId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Turns     []Turn         `json:"turns,omitempty" validate:"dive"`
	Messages  []Turn         `json:"messages,omitempty" validate:"dive"`
	Config    biz.ChatConfig `json:"config"`
}

// DemoResponse 演示模式回复。
type DemoResponse struct {
	Content string `json:"content"`
	Mode    string `json:"mode" example:"demo"`
}

// deltaFrame 流式增量帧。
type deltaFrame struct {
	Content string `json:"content"`
}

func (r *ChatRequest) input(headerSession string) *biz.ChatInput {
	turns := r.Turns
	if len(turns) == 0 {
		turns = r.Messages
	}
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, llm.Message{Role: llm.Role(t.Role), Content: t.Content})
	}

	session := r.SessionID
	if session == "" {
		session = headerSession
	}
	return &biz.ChatInput{
		TenantID:  tenantFrom(r.TenantID, r.ChatbotID),
		SessionID: session,
		Turns:     msgs,
		Config:    r.Config,
	}
}

// Chat godoc
//
//	@Summary		Chat with a tenant's assistant
//	@Description	Streams the reply as server-sent events ("data: {\"content\":...}" frames ending with "data: [DONE]"),
//	@Description	or answers {content, mode:"demo"} as JSON when no provider is available.
//	@Tags			chat
//	@Accept			json
//	@Produce		text/event-stream,json
//	@Param			X-Session-ID	header		string		false	"Session id; a newer request in the same session cancels this one"
//	@Param			request			body		ChatRequest	true	"Chat request"
//	@Success		200				{object}	DemoResponse
//	@Failure		400				{object}	httputils.ErrorResponse
//	@Failure		409				{object}	httputils.ErrorResponse
//	@Failure		500				{object}	httputils.ErrorResponse
//	@Router			/api/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := bindJSON(c, &req); err != nil {
		httputils.WriteError(c, err)
		return
	}
	if err := validate(&req, nil); err != nil {
		httputils.WriteError(c, err)
		return
	}

	reply, err := h.gateway.Chat(c.Request.Context(), req.input(c.GetHeader(HeaderSessionID)))
	if err != nil {
		h.interrupted(c, err)
		return
	}

	if reply.Mode == biz.ModeDemo {
		c.JSON(http.StatusOK, DemoResponse{Content: reply.Content, Mode: string(biz.ModeDemo)})
		return
	}

	w, err := sse.NewWriter(c.Writer)
	if err != nil {
		_ = reply.Close()
		httputils.WriteError(c, err)
		return
	}
	if err := h.gateway.Emit(reply, &sseEmitter{w: w}); err != nil {
		// 响应头已发出，只能截断
		logger.Debugw("chat stream ended early", "error", err.Error())
		c.Abort()
	}
}

func (h *ChatHandler) interrupted(c *gin.Context, err error) {
	if stderrors.Is(err, biz.ErrSuperseded) {
		httputils.WriteError(c, errors.ErrSuperseded)
		return
	}
	if c.Request.Context().Err() != nil {
		// 客户端已断开
		c.Abort()
		return
	}
	httputils.WriteError(c, err)
}

// sseEmitter 把网关增量写成 SSE 帧。
type sseEmitter struct {
	w *sse.Writer
}

func (e *sseEmitter) Delta(content string) error {
	payload, err := json.Marshal(deltaFrame{Content: content})
	if err != nil {
		return err
	}
	return e.w.WriteData(payload)
}

func (e *sseEmitter) Done() error {
	return e.w.Done()
}
