package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/logger"

	"github.com/kart-io/nyx/pkg/infra/tracing"
)

// GormLogger 将 gorm 的输出写入全局结构化日志，每条记录带上驱动名与 trace_id，
// 便于把慢查询和失败的 SQL 关联到具体请求。
type GormLogger struct {
	driver        string
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a gorm logger for the given driver.
// 找不到记录不视为错误：文档删除与查询按 ID 查找时它是正常结果。
func NewGormLogger(driver string, level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		driver:        driver,
		level:         level,
		slowThreshold: slowThreshold,
	}
}

// LogMode returns a copy with the given level.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		logger.Global().WithCtx(ctx).Infow(msg, l.fields(ctx, "args", data)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		logger.Global().WithCtx(ctx).Warnw(msg, l.fields(ctx, "args", data)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		logger.Global().WithCtx(ctx).Errorw(msg, l.fields(ctx, "args", data)...)
	}
}

// Trace 记录一条 SQL。失败优先于慢查询，二者都不满足时仅在 Info 级别输出。
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Errorw("database query failed",
			l.fields(ctx, "sql", sql, "rows", rows, "duration_ms", ms(elapsed), "error", err.Error())...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Warnw("slow database query",
			l.fields(ctx, "sql", sql, "rows", rows, "duration_ms", ms(elapsed), "threshold_ms", ms(l.slowThreshold))...)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		logger.Global().WithCtx(ctx).Debugw("database query",
			l.fields(ctx, "sql", sql, "rows", rows, "duration_ms", ms(elapsed))...)
	}
}

// fields 在调用方字段前加上 component 与 driver，有活动 span 时再加 trace_id。
func (l *GormLogger) fields(ctx context.Context, kv ...any) []any {
	out := make([]any, 0, len(kv)+6)
	out = append(out, "component", "database", "driver", l.driver)
	if id := tracing.TraceIDFromContext(ctx); id != "" {
		out = append(out, "trace_id", id)
	}
	return append(out, kv...)
}

func ms(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

var _ gormlogger.Interface = (*GormLogger)(nil)
