package redis

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// redisLogger 将 go-redis 内部日志（重连、连接池告警）转到全局 logger。
type redisLogger struct{}

func (redisLogger) Printf(ctx context.Context, format string, v ...any) {
	logger.Global().WithCtx(ctx).Warnw(fmt.Sprintf(format, v...), "component", "redis")
}

func init() {
	goredis.SetLogger(redisLogger{})
}
