// Package handler provides the HTTP handlers of the Nyx gateway.
package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/nyx/pkg/errors"
	"github.com/kart-io/nyx/pkg/utils/validator"
)

// HeaderSessionID 会话 ID 请求头，与请求体中的 sessionId 等价。
const HeaderSessionID = "X-Session-ID"

// bindJSON 解析请求体。请求体过大返回 400；无法解析的请求体按意外错误处理，
// 由 WriteError 记录原因并返回通用的 500。
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.ErrBadRequest.WithMessage("Request body too large")
		}
		return errors.ErrInternal.WithCause(err)
	}
	return nil
}

// validate 用全局校验器检查请求，返回首个字段错误对应的 Errno。
// mapTag 将规则名映射为更具体的错误，未映射的规则返回 ErrValidationFailed。
func validate(req any, mapTag map[string]*errors.Errno) error {
	errs := validator.StructWithLang(req, validator.LangEN)
	if !errs.HasErrors() {
		return nil
	}
	if e, ok := mapTag[errs.FirstTag()]; ok {
		return e
	}
	return errors.ErrValidationFailed.WithMessage(errs.First())
}

// tenantFrom 读取租户 ID，chatbotId 是旧挂件使用的别名。
func tenantFrom(tenantID, chatbotID string) string {
	if tenantID != "" {
		return tenantID
	}
	return chatbotID
}
