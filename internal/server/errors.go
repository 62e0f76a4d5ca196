package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kredible/internal/auth"
	"github.com/smallbiznis/kredible/internal/clock"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	scoredomain "github.com/smallbiznis/kredible/internal/score/domain"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	"github.com/smallbiznis/kredible/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string
	Message string
	Errors  []ValidationError
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ErrorHandlingMiddleware renders the last handler error as an error envelope.
func ErrorHandlingMiddleware(clk clock.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorEnvelope{
			Success:   false,
			Message:   payload.Message,
			Error:     payload.Type,
			Errors:    payload.Errors,
			Timestamp: timestamp(clk.Now()),
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: unauthorizedMessage(err),
		}
	case errors.Is(err, plandomain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "quota_exceeded",
			Message: "query quota exceeded",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isValidationError(err):
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "already_exists",
			Message: conflictMessage(err),
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code for the request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		auth.IsUnauthorized(err) ||
		errors.Is(err, platformdomain.ErrEmailMismatch)
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, platformdomain.ErrEmailMismatch):
		return "contact email does not match"
	case errors.Is(err, auth.ErrMissingAdminKey), errors.Is(err, auth.ErrInvalidAdminKey):
		return "invalid or missing admin key"
	case errors.Is(err, auth.ErrMissingAPIKey), errors.Is(err, auth.ErrInvalidAPIKey):
		return "invalid or missing api key"
	default:
		return "unauthorized"
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, plandomain.ErrInvalidPlanType),
		errors.Is(err, plandomain.ErrInvalidPlatformID),
		errors.Is(err, platformdomain.ErrInvalidName),
		errors.Is(err, platformdomain.ErrInvalidContactEmail),
		errors.Is(err, platformdomain.ErrInvalidOwnerAddress),
		errors.Is(err, platformdomain.ErrInvalidPlatformID),
		errors.Is(err, userdomain.ErrInvalidWalletAddress),
		errors.Is(err, userdomain.ErrInvalidDocument),
		errors.Is(err, userdomain.ErrInvalidActivity),
		errors.Is(err, scoredomain.ErrInvalidWalletAddress),
		errors.Is(err, querylogdomain.ErrInvalidPlatformID),
		errors.Is(err, querylogdomain.ErrInvalidWalletAddress):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, platformdomain.ErrNotFound),
		errors.Is(err, platformdomain.ErrAPIKeyNotFound),
		errors.Is(err, plandomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, platformdomain.ErrAPIKeyNotFound):
		return "api key not issued"
	case errors.Is(err, platformdomain.ErrNotFound):
		return "platform not found"
	case errors.Is(err, plandomain.ErrNotFound):
		return "plan not found"
	case errors.Is(err, userdomain.ErrNotFound):
		return "user not found"
	default:
		return "not found"
	}
}

func isConflictError(err error) bool {
	return errors.Is(err, platformdomain.ErrAlreadyExists) ||
		errors.Is(err, plandomain.ErrAlreadyExists) ||
		errors.Is(err, userdomain.ErrAlreadyExists) ||
		db.IsDuplicateKeyErr(err)
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, platformdomain.ErrAlreadyExists):
		return "a platform with this name already exists"
	case errors.Is(err, plandomain.ErrAlreadyExists):
		return "platform already has a plan"
	case errors.Is(err, userdomain.ErrAlreadyExists):
		return "a user with this wallet address already exists"
	default:
		return "already exists"
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_wallet_address":
		return "wallet address must be a Stellar account address"
	case "invalid_plan_type":
		return "unknown plan type"
	default:
		return "invalid value"
	}
}
