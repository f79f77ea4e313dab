package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/pkg/errors"
)

// RecoveryConfig defines the config for Recovery middleware.
type RecoveryConfig struct {
	// OnPanic is called when a panic occurs.
	// Can be used for logging or alerting.
	OnPanic func(c *gin.Context, err any, stack []byte)
}

// DefaultRecoveryConfig is the default Recovery middleware config.
var DefaultRecoveryConfig = RecoveryConfig{
	OnPanic: logPanic,
}

// Recovery returns a middleware that recovers from panics.
// The client only sees the opaque ErrInternal message; the detail goes to the log.
func Recovery() gin.HandlerFunc {
	return RecoveryWithConfig(DefaultRecoveryConfig)
}

// RecoveryWithConfig returns a Recovery middleware with custom config.
func RecoveryWithConfig(config RecoveryConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					panic(r)
				}
				if config.OnPanic != nil {
					config.OnPanic(c, r, debug.Stack())
				}
				if c.Writer.Written() {
					// 流式响应已经开始，无法再写入错误体
					c.Abort()
					return
				}
				c.AbortWithStatusJSON(errors.ErrInternal.HTTPStatus(), gin.H{"error": errors.ErrInternal.MessageEN})
			}
		}()
		c.Next()
	}
}

func logPanic(c *gin.Context, err any, stack []byte) {
	logger.Errorw("panic recovered",
		"code", errors.ErrPanic.Code,
		"error", fmt.Sprint(err),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", GetRequestID(c.Request.Context()),
		"stack", string(stack),
	)
}
