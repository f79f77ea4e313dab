package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/nyx/internal/model"
	"github.com/kart-io/nyx/internal/nyx/biz"
	"github.com/kart-io/nyx/internal/pkg/httputils"
	"github.com/kart-io/nyx/pkg/errors"
)

// ScrapeHandler 处理 /api/scrape。
type ScrapeHandler struct {
	scraper *biz.Scraper
	ingest  *biz.IngestService
}

// NewScrapeHandler creates a new ScrapeHandler. ingest 为 nil 时不支持 ingest:true。
func NewScrapeHandler(scraper *biz.Scraper, ingest *biz.IngestService) *ScrapeHandler {
	return &ScrapeHandler{scraper: scraper, ingest: ingest}
}

// ScrapeRequest 抓取请求。
type ScrapeRequest struct {
	URL       string `json:"url" validate:"required,httpurl" example:"https://example.com/about"`
	Ingest    bool   `json:"ingest,omitempty"`
	TenantID  string `json:"tenantId,omitempty"`
	ChatbotID string `json:"chatbotId,omitempty"`
}

// ScrapeResponse 抓取结果，ingest 时附带入库结果。
type ScrapeResponse struct {
	Success bool `json:"success" example:"true"`
	*biz.ScrapeResult
	Document *biz.IngestResult `json:"document,omitempty"`
}

var scrapeErrors = map[string]*errors.Errno{
	"required": errors.ErrMissingParam.WithMessage("URL is required"),
	"httpurl":  errors.ErrInvalidURL,
}

// Scrape godoc
//
//	@Summary	Extract the readable content of a web page
//	@Tags		scrape
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ScrapeRequest	true	"Page to scrape"
//	@Success	200		{object}	ScrapeResponse
//	@Failure	400		{object}	httputils.ErrorResponse
//	@Failure	500		{object}	httputils.ErrorResponse
//	@Router		/api/scrape [post]
func (h *ScrapeHandler) Scrape(c *gin.Context) {
	var req ScrapeRequest
	if err := bindJSON(c, &req); err != nil {
		httputils.WriteError(c, err)
		return
	}
	if err := validate(&req, scrapeErrors); err != nil {
		httputils.WriteError(c, err)
		return
	}
	tenantID := tenantFrom(req.TenantID, req.ChatbotID)
	if req.Ingest && tenantID == "" {
		httputils.WriteError(c, errors.ErrMissingParam.WithMessage("tenantId required when ingest is true"))
		return
	}

	ctx := c.Request.Context()
	res, err := h.scraper.Scrape(ctx, req.URL)
	if err != nil {
		httputils.WriteError(c, err)
		return
	}

	resp := ScrapeResponse{Success: true, ScrapeResult: res}
	if req.Ingest {
		if h.ingest == nil {
			httputils.WriteError(c, errors.ErrStoreNotConfigured)
			return
		}
		doc, err := h.ingest.Ingest(ctx, &biz.IngestInput{
			TenantID:   tenantID,
			Name:       res.Title,
			Content:    res.Content,
			SourceType: model.SourceURL,
			SourceURL:  req.URL,
		})
		if err != nil {
			httputils.WriteError(c, err)
			return
		}
		resp.Document = doc
	}
	httputils.WriteResponse(c, nil, resp)
}
