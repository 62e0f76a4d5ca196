package tracing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/kredible/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "kredible/http"

// GinMiddleware opens a server span per request. The platform id is read
// after the handler chain runs because API key resolution happens downstream.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, spanName(c.Request.Method, ""), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		span.SetName(spanName(c.Request.Method, route))
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", routeOrUnknown(route)),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		)...)
		if platformID := obscontext.PlatformIDFromContext(c.Request.Context()); platformID != "" {
			span.SetAttributes(attribute.String("kredible.platform_id", platformID))
		}

		switch {
		case status == http.StatusTooManyRequests:
			span.AddEvent("request throttled", trace.WithAttributes(
				attribute.String("reason", throttleReason(c)),
			))
		case status >= http.StatusInternalServerError:
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func spanName(method, route string) string {
	if route == "" {
		return "HTTP " + method
	}
	return "HTTP " + method + " " + route
}

func routeOrUnknown(route string) string {
	if route == "" {
		return "unknown"
	}
	return route
}

// throttleReason separates plan exhaustion from the per-platform rate limit.
func throttleReason(c *gin.Context) string {
	if reason := c.Writer.Header().Get("X-Rate-Limited-Reason"); reason != "" {
		return reason
	}
	return "quota"
}
