package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/nyx/pkg/infra/tracing"
)

// TracerName is the name of the tracer for HTTP middleware.
const TracerName = "nyx/http"

// Tracing creates a server span per request, continuing the W3C trace
// context sent by the caller. Paths in skipPaths are not traced.
func Tracing(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		req := c.Request
		if _, ok := skip[req.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := tracing.GetGlobalTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
		route := c.FullPath()
		if route == "" {
			route = req.URL.Path
		}
		ctx, span := tracing.StartSpanWithKind(ctx, TracerName, fmt.Sprintf("%s %s", req.Method, route), trace.SpanKindServer)
		defer span.End()

		span.SetAttributes(
			semconv.HTTPMethod(req.Method),
			semconv.HTTPRoute(route),
			semconv.HTTPTarget(req.URL.Path),
			semconv.ServerAddress(req.Host),
		)
		if requestID := GetRequestID(ctx); requestID != "" {
			span.SetAttributes(tracing.String(tracing.AttrRequestID, requestID))
		}

		c.Request = req.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
	}
}
