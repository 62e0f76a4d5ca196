package server

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/kredible/internal/auth"
	obscontext "github.com/smallbiznis/kredible/internal/observability/context"
	"github.com/smallbiznis/kredible/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/kredible/internal/observability/metrics"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	"go.uber.org/zap"
)

const contextPlatformKey = "platform"

const rateLimitReasonPlatformRate = "platform-rate"

// AdminKeyRequired gates operator routes on the x-admin-key header.
func (s *Server) AdminKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.validator.ValidateAdminKey(c.GetHeader(auth.HeaderAdminKey)); err != nil {
			logger.FromContext(c.Request.Context()).Warn("admin key rejected", zap.String("route", c.FullPath()))
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// APIKeyRequired resolves the calling platform from x-api-key and rejects
// platforms with an exhausted plan.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		platform, err := s.validator.ValidateAPIKey(ctx, c.GetHeader(auth.HeaderAPIKey))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx = obscontext.WithPlatformID(ctx, platform.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPlatformKey, platform)
		c.Next()
	}
}

// OptionalAdminKey applies AdminKeyRequired only when required is true.
func (s *Server) OptionalAdminKey(required bool) gin.HandlerFunc {
	if !required {
		return func(c *gin.Context) { c.Next() }
	}
	return s.AdminKeyRequired()
}

// ScoreRateLimit bounds score lookups per platform. It must run after
// APIKeyRequired.
func (s *Server) ScoreRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.scoreLimiter.Enabled() {
			c.Next()
			return
		}

		platform, ok := platformFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		res, err := s.scoreLimiter.Allow(ctx, platform.ID)
		if err != nil {
			logger.FromContext(ctx).Warn("score rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			denyRateLimit(c, endpoint, rateLimitReasonPlatformRate, res.RetryAfter, s.obsMetrics)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("score rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func platformFromContext(c *gin.Context) (*platformdomain.Platform, bool) {
	value, ok := c.Get(contextPlatformKey)
	if !ok {
		return nil, false
	}
	platform, ok := value.(*platformdomain.Platform)
	return platform, ok && platform != nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

// bindError turns binding failures into per-field validation errors.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := lowerFirst(fe.Field())
		out = append(out, ValidationError{
			Field:   field,
			Code:    "invalid_" + field,
			Message: fieldErrorMessage(fe),
		})
	}
	return &ValidationErrors{Errors: out}
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid url"
	default:
		return "invalid value"
	}
}

func lowerFirst(v string) string {
	if v == "" {
		return v
	}
	return strings.ToLower(v[:1]) + v[1:]
}
