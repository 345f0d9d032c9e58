package errors

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/labang-online/portal/internal/middleware"
)

// Error code constants for standardized error responses
const (
	ErrNotFound           = "NOT_FOUND"
	ErrBadRequest         = "BAD_REQUEST"
	ErrInternalServer     = "INTERNAL_SERVER_ERROR"
	ErrValidation         = "VALIDATION_ERROR"
	ErrUnauthorized       = "UNAUTHORIZED"
	ErrForbidden          = "FORBIDDEN"
	ErrStateConflict      = "STATE_CONFLICT"
	ErrRateLimited        = "RATE_LIMITED"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeInvalid        = "CODE_INVALID"
	ErrCodeExpired        = "CODE_EXPIRED"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// respond logs at warn level and writes the error body.
func respond(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	requestID := middleware.GetRequestID(c)

	if log := middleware.GetLogger(c); log != nil {
		fields := map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
		}
		if details != nil {
			fields["details"] = details
		}
		log.Warn("Request rejected", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, ErrNotFound, message, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	respond(c, http.StatusBadRequest, ErrBadRequest, message, details)
}

// Unauthorized returns a 401 response for a missing or invalid session.
func Unauthorized(c *gin.Context, message string) {
	respond(c, http.StatusUnauthorized, ErrUnauthorized, message, nil)
}

// Forbidden returns a 403 response for an authenticated caller that lacks
// permission.
func Forbidden(c *gin.Context, message string) {
	respond(c, http.StatusForbidden, ErrForbidden, message, nil)
}

// Conflict returns a 409 response for an operation the record's current
// state does not allow.
func Conflict(c *gin.Context, message string) {
	respond(c, http.StatusConflict, ErrStateConflict, message, nil)
}

// TooManyRequests returns a 429 response and sets Retry-After.
func TooManyRequests(c *gin.Context, message string, retryAfter time.Duration) {
	seconds := int(retryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	respond(c, http.StatusTooManyRequests, ErrRateLimited, message, map[string]interface{}{
		"retry_after": seconds,
	})
}

// ServiceUnavailable returns a 503 response when a dependency is down.
func ServiceUnavailable(c *gin.Context, message string) {
	respond(c, http.StatusServiceUnavailable, ErrServiceUnavailable, message, nil)
}

// InternalServerError returns a 500 Internal Server Error response.
// The error is logged but never exposed to the client.
func InternalServerError(c *gin.Context, message string, err error) {
	log := middleware.GetLogger(c)
	requestID := middleware.GetRequestID(c)

	if log != nil {
		log.Error("Internal server error", err, map[string]interface{}{
			"message":    message,
			"request_id": requestID,
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
		})
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:      ErrInternalServer,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// ValidationError returns a 400 Bad Request error response with field-specific validation errors.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{})
	for _, err := range validationErrors {
		details[err.Field()] = formatValidationError(err)
	}
	respond(c, http.StatusBadRequest, ErrValidation, "Validation failed for one or more fields", details)
}

// FieldError returns a 400 VALIDATION_ERROR for a rule checked outside the
// binding tags.
func FieldError(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, ErrValidation, message, nil)
}

// CodeRejected returns a 400 for a one-time code that failed validation.
// code is ErrCodeInvalid or ErrCodeExpired so clients can tell them apart.
func CodeRejected(c *gin.Context, code, message string) {
	respond(c, http.StatusBadRequest, code, message, nil)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Value is too short or small (minimum: " + err.Param() + ")"
	case "max":
		return "Value is too long or large (maximum: " + err.Param() + ")"
	case "len":
		return "Must have length of " + err.Param()
	case "numeric":
		return "Must contain digits only"
	case "eqfield":
		return "Must match " + err.Param()
	case "gte":
		return "Must be greater than or equal to " + err.Param()
	case "lte":
		return "Must be less than or equal to " + err.Param()
	case "oneof":
		return "Must be one of: " + err.Param()
	case "url":
		return "Must be a valid URL"
	case "datetime":
		return "Must be a date in the format " + err.Param()
	default:
		return "Validation failed for tag: " + err.Tag()
	}
}
