// Package httputils provides HTTP utility functions.
package httputils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/pkg/errors"
)

// ErrorResponse 挂件与控制台依赖的错误格式。
type ErrorResponse struct {
	Error string `json:"error" example:"Internal server error"`
}

// WriteResponse writes the response to the client.
// Success bodies are written as is, errors become {"error": message}.
func WriteResponse(c *gin.Context, err error, data any) {
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// WriteError 将任意错误转换为 Errno 后输出。非 Errno 错误统一为
// ErrInternal，细节只进日志。
func WriteError(c *gin.Context, err error) {
	e := errors.FromError(err)
	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", e.Code,
			"error", err.Error(),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: e.MessageEN})
}
