package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// 网关服务错误码: 21 (业务服务范围 20-79)

var (
	// 请求参数错误 (类别 01)
	ErrInvalidURL = Register(New(MakeCode(ServiceGateway, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument, "Invalid URL", "URL 无效"))
	ErrFetchFailed = Register(New(MakeCode(ServiceGateway, CategoryRequest, 2),
		http.StatusBadRequest, codes.InvalidArgument, "Failed to fetch URL", "获取 URL 失败"))
	ErrNotHTML = Register(New(MakeCode(ServiceGateway, CategoryRequest, 3),
		http.StatusBadRequest, codes.InvalidArgument, "URL must point to an HTML page", "URL 必须指向 HTML 页面"))
	ErrNoReadableContent = Register(New(MakeCode(ServiceGateway, CategoryRequest, 4),
		http.StatusBadRequest, codes.InvalidArgument, "Could not extract readable content from URL", "无法从 URL 提取可读内容"))
	ErrInvalidSourceType = Register(New(MakeCode(ServiceGateway, CategoryRequest, 5),
		http.StatusBadRequest, codes.InvalidArgument, "sourceType must be one of text, pdf, url", "sourceType 无效"))
	ErrSuperseded = Register(New(MakeCode(ServiceGateway, CategoryRequest, 6),
		http.StatusConflict, codes.Aborted, "Superseded by a newer request in the same session", "已被同一会话的新请求取代"))

	// 资源错误 (类别 04)
	ErrDocumentNotFound = Register(New(MakeCode(ServiceGateway, CategoryResource, 1),
		http.StatusNotFound, codes.NotFound, "Document not found", "文档不存在"))

	// 内部错误 (类别 07)
	ErrDocumentCreate = Register(New(MakeCode(ServiceGateway, CategoryInternal, 1),
		http.StatusInternalServerError, codes.Internal, "Failed to create document", "创建文档失败"))
	ErrChunkCreate = Register(New(MakeCode(ServiceGateway, CategoryInternal, 2),
		http.StatusInternalServerError, codes.Internal, "Failed to create chunks", "创建分块失败"))
	ErrEmbeddingFailed = Register(New(MakeCode(ServiceGateway, CategoryInternal, 3),
		http.StatusInternalServerError, codes.Internal, "Failed to generate embeddings", "生成向量失败"))
	ErrDocumentDelete = Register(New(MakeCode(ServiceGateway, CategoryInternal, 4),
		http.StatusInternalServerError, codes.Internal, "Failed to delete document", "删除文档失败"))
	ErrDocumentList = Register(New(MakeCode(ServiceGateway, CategoryInternal, 5),
		http.StatusInternalServerError, codes.Internal, "Failed to fetch documents", "获取文档失败"))
	ErrScrapeFailed = Register(New(MakeCode(ServiceGateway, CategoryInternal, 6),
		http.StatusInternalServerError, codes.Internal, "Failed to scrape URL", "抓取 URL 失败"))

	// 配置错误 (类别 12)
	ErrStoreNotConfigured = Register(New(MakeCode(ServiceGateway, CategoryConfig, 1),
		http.StatusInternalServerError, codes.FailedPrecondition, "Database not configured", "数据库未配置"))
)
