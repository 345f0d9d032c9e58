package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/labang-online/portal/internal/errors"
	"github.com/labang-online/portal/internal/identifier"
	"github.com/labang-online/portal/internal/lifecycle"
	"github.com/labang-online/portal/internal/middleware"
	"github.com/labang-online/portal/internal/services"
)

// Paging defaults for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageQuery is the shared limit/offset query string.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,gte=1,lte=100"`
	Offset int `form:"offset" binding:"omitempty,gte=0"`
}

func (p PageQuery) limit() int {
	if p.Limit == 0 {
		return DefaultPageSize
	}
	return p.Limit
}

// ListResponse wraps a page of results.
type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// MessageResponse is returned by actions with no resource to show.
type MessageResponse struct {
	Message string `json:"message"`
}

// bindJSON binds the body and writes a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	return bind(c, c.ShouldBindJSON(dst), "Invalid request body")
}

// bindQuery binds the query string and writes a 400 on failure.
func bindQuery(c *gin.Context, dst interface{}) bool {
	return bind(c, c.ShouldBindQuery(dst), "Invalid query parameters")
}

func bind(c *gin.Context, err error, message string) bool {
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return false
	}
	apierrors.BadRequest(c, message, nil)
	return false
}

// idParam parses a positive integer path parameter.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		apierrors.BadRequest(c, "Invalid "+name, map[string]interface{}{"field": name})
		return 0, false
	}
	return id, true
}

// requestIDParam reads a REQ-YYYY-NNNN path parameter.
func requestIDParam(c *gin.Context) (string, bool) {
	id := c.Param("request_id")
	if _, _, ok := identifier.ParseRequestID(id); !ok {
		apierrors.BadRequest(c, "Invalid request_id", map[string]interface{}{"field": "request_id"})
		return "", false
	}
	return id, true
}

// reportIDParam reads a RPT-XXXXXXXX path parameter.
func reportIDParam(c *gin.Context) (string, bool) {
	id := c.Param("report_id")
	if !identifier.IsReportID(id) {
		apierrors.BadRequest(c, "Invalid report_id", map[string]interface{}{"field": "report_id"})
		return "", false
	}
	return id, true
}

var (
	validationErrs = []error{
		services.ErrValidation,
		services.ErrPasswordMismatch,
		services.ErrBarangayNotServed,
		lifecycle.ErrInvalidInput,
		lifecycle.ErrInvalidReport,
		lifecycle.ErrInvalidReportStatus,
		lifecycle.ErrInvalidClaimStatus,
		lifecycle.ErrInvalidPaymentMode,
	}
	conflictErrs = []error{
		services.ErrUsernameTaken,
		services.ErrEmailTaken,
		services.ErrConcurrentUpdate,
		services.ErrSelfModification,
		lifecycle.ErrAlreadyPaid,
		lifecycle.ErrPaymentInProgress,
		lifecycle.ErrWrongPaymentMode,
		lifecycle.ErrPaymentNotPending,
		lifecycle.ErrNotCancellable,
		lifecycle.ErrClaimRequiresPayment,
	}
	notFoundErrs = []error{
		services.ErrAccountNotFound,
		services.ErrRequestNotFound,
		services.ErrReportNotFound,
		services.ErrAnnouncementNotFound,
	}
	unauthorizedErrs = []error{
		services.ErrInvalidCredentials,
		services.ErrInvalidResetToken,
	}
	forbiddenErrs = []error{
		services.ErrForbidden,
		services.ErrVerificationPending,
		services.ErrAccountDeactivated,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// handleServiceError maps a service error onto the standard error body.
// Anything unrecognized is a 500 carrying fallback as its message.
func handleServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrCodeExpired):
		apierrors.CodeRejected(c, apierrors.ErrCodeExpired, err.Error())
	case errors.Is(err, services.ErrCodeInvalid):
		apierrors.CodeRejected(c, apierrors.ErrCodeInvalid, err.Error())
	case isAny(err, validationErrs):
		apierrors.FieldError(c, err.Error())
	case isAny(err, notFoundErrs):
		apierrors.NotFound(c, err.Error())
	case isAny(err, conflictErrs):
		apierrors.Conflict(c, err.Error())
	case isAny(err, unauthorizedErrs):
		apierrors.Unauthorized(c, err.Error())
	case isAny(err, forbiddenErrs):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		apierrors.ServiceUnavailable(c, services.ErrUnavailable.Error())
	case errors.Is(err, context.Canceled):
		c.Abort()
	default:
		apierrors.InternalServerError(c, fallback, err)
	}
}

func currentAccountID(c *gin.Context) int64 {
	if account := middleware.CurrentAccount(c); account != nil {
		return account.ID
	}
	return 0
}
