package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 网关 span 属性键。
const (
	AttrRequestID  = "http.request_id"
	AttrTenantID   = "tenant.id"
	AttrProvider   = "llm.provider"
	AttrModel      = "llm.model"
	AttrChatTurns  = "chat.turns"
	AttrHasTenant  = "chat.tenant"
	AttrSourceType = "document.source_type"
	AttrChunks     = "document.chunks"
	AttrEmbeddings = "document.embeddings"
	AttrLimit      = "retrieval.limit"
	AttrCacheHit   = "retrieval.cache_hit"
	AttrPassages   = "retrieval.passages"
	AttrSkipped    = "retrieval.skipped"
	AttrURLHost    = "url.host"
)

// StartSpan starts a span on the named tracer of the global provider.
func StartSpan(ctx context.Context, tracerName, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, opts...)
}

// StartSpanWithKind starts a span of the given kind.
func StartSpanWithKind(ctx context.Context, tracerName, spanName string, kind trace.SpanKind, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append(opts, trace.WithSpanKind(kind))
	return StartSpan(ctx, tracerName, spanName, opts...)
}

// RecordError 在当前 span 上记录错误并标记为失败，err 为 nil 时不做处理。
func RecordError(ctx context.Context, err error, opts ...trace.EventOption) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext returns the active trace ID, empty when none.
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// String creates a string attribute.
func String(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Int creates an int attribute.
func Int(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}

// Bool creates a bool attribute.
func Bool(key string, value bool) attribute.KeyValue {
	return attribute.Bool(key, value)
}
