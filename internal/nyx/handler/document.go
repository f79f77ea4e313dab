package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/nyx/internal/model"
	"github.com/kart-io/nyx/internal/nyx/biz"
	"github.com/kart-io/nyx/internal/pkg/httputils"
	"github.com/kart-io/nyx/pkg/errors"
)

// DocumentHandler 处理知识库文档接口。
type DocumentHandler struct {
	svc *biz.IngestService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(svc *biz.IngestService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// CreateDocumentRequest 入库请求。必填字段由入库服务校验。
type CreateDocumentRequest struct {
	TenantID   string         `json:"tenantId" example:"bot_01"`
	ChatbotID  string         `json:"chatbotId,omitempty"`
	Name       string         `json:"name" example:"FAQ"`
	Content    string         `json:"content"`
	SourceType string         `json:"sourceType,omitempty" validate:"omitempty,oneof=text pdf url" example:"text"`
	SourceURL  string         `json:"sourceUrl,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ListDocumentsResponse 文档列表。
type ListDocumentsResponse struct {
	Documents []*model.Document `json:"documents"`
}

// ListChunksResponse 分块列表。
type ListChunksResponse struct {
	Chunks []*model.Chunk `json:"chunks"`
}

// SuccessResponse 删除结果。
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

var createDocumentErrors = map[string]*errors.Errno{
	"oneof": errors.ErrInvalidSourceType,
}

// Create godoc
//
//	@Summary	Ingest a document
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateDocumentRequest	true	"Document"
//	@Success	200		{object}	biz.IngestResult
//	@Failure	400		{object}	httputils.ErrorResponse
//	@Failure	500		{object}	httputils.ErrorResponse
//	@Router		/api/documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := bindJSON(c, &req); err != nil {
		httputils.WriteError(c, err)
		return
	}
	if err := validate(&req, createDocumentErrors); err != nil {
		httputils.WriteError(c, err)
		return
	}

	result, err := h.svc.Ingest(c.Request.Context(), &biz.IngestInput{
		TenantID:   tenantFrom(req.TenantID, req.ChatbotID),
		Name:       req.Name,
		Content:    req.Content,
		SourceType: model.SourceType(req.SourceType),
		SourceURL:  req.SourceURL,
		Metadata:   req.Metadata,
	})
	httputils.WriteResponse(c, err, result)
}

// List godoc
//
//	@Summary	List a tenant's documents, most recent first
//	@Tags		documents
//	@Produce	json
//	@Param		tenantId	query		string	false	"Tenant id"
//	@Param		chatbotId	query		string	false	"Alias of tenantId"
//	@Success	200			{object}	ListDocumentsResponse
//	@Failure	400			{object}	httputils.ErrorResponse
//	@Failure	500			{object}	httputils.ErrorResponse
//	@Router		/api/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.svc.List(c.Request.Context(), tenantFrom(c.Query("tenantId"), c.Query("chatbotId")))
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	if docs == nil {
		docs = []*model.Document{}
	}
	httputils.WriteResponse(c, nil, ListDocumentsResponse{Documents: docs})
}

// Delete godoc
//
//	@Summary	Delete a document and its chunks
//	@Tags		documents
//	@Produce	json
//	@Param		id	query		string	true	"Document id"
//	@Success	200	{object}	SuccessResponse
//	@Failure	400	{object}	httputils.ErrorResponse
//	@Failure	500	{object}	httputils.ErrorResponse
//	@Router		/api/documents [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Query("id")); err != nil {
		httputils.WriteError(c, err)
		return
	}
	httputils.WriteResponse(c, nil, SuccessResponse{Success: true})
}

// Chunks godoc
//
//	@Summary	List the chunks of a document in index order
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Document id"
//	@Success	200	{object}	ListChunksResponse
//	@Failure	404	{object}	httputils.ErrorResponse
//	@Failure	500	{object}	httputils.ErrorResponse
//	@Router		/api/documents/{id}/chunks [get]
func (h *DocumentHandler) Chunks(c *gin.Context) {
	chunks, err := h.svc.Chunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputils.WriteError(c, err)
		return
	}
	if chunks == nil {
		chunks = []*model.Chunk{}
	}
	httputils.WriteResponse(c, nil, ListChunksResponse{Chunks: chunks})
}
