package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

// Machine-readable error codes
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeAuthenticationMissing = "AUTHENTICATION_MISSING"
	CodeApprovalNotFound      = "APPROVAL_NOT_FOUND"
	CodeTimeLogNotFound       = "TIMELOG_NOT_FOUND"
	CodeIllegalTransition     = "ILLEGAL_TRANSITION"
	CodeEmptyReason           = "EMPTY_REASON"
	CodeEmptyResponse         = "EMPTY_RESPONSE"
	CodeUnsupportedCurrency   = "UNSUPPORTED_CURRENCY"
	CodeConflict              = "CONFLICT"
	CodeStoreUnavailable      = "STORE_UNAVAILABLE"
	CodeSubmissionIncomplete  = "SUBMISSION_INCOMPLETE"
	CodeCanceled              = "REQUEST_CANCELED"
	CodeInternal              = "INTERNAL_ERROR"
)

// errorMappings pair sentinels with their HTTP rendering. Order matters:
// SubmissionIncomplete may wrap a store error and must win.
var errorMappings = []struct {
	target    error
	status    int
	code      string
	retryable bool
}{
	{entity.ErrSubmissionIncomplete, http.StatusServiceUnavailable, CodeSubmissionIncomplete, true},
	{entity.ErrValidationFailed, http.StatusUnprocessableEntity, CodeValidationFailed, false},
	{entity.ErrAuthenticationMissing, http.StatusUnauthorized, CodeAuthenticationMissing, false},
	{entity.ErrApprovalNotFound, http.StatusNotFound, CodeApprovalNotFound, false},
	{entity.ErrTimeLogNotFound, http.StatusNotFound, CodeTimeLogNotFound, false},
	{entity.ErrIllegalTransition, http.StatusConflict, CodeIllegalTransition, false},
	{entity.ErrEmptyReason, http.StatusBadRequest, CodeEmptyReason, false},
	{entity.ErrEmptyResponse, http.StatusBadRequest, CodeEmptyResponse, false},
	{entity.ErrUnsupportedCurrency, http.StatusBadRequest, CodeUnsupportedCurrency, false},
	{entity.ErrDuplicate, http.StatusConflict, CodeConflict, true},
	{entity.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable, true},
	{context.Canceled, http.StatusRequestTimeout, CodeCanceled, true},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, CodeStoreUnavailable, true},
}

// writeError renders err in the standard envelope
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	resp := Response{Success: false, Error: err.Error()}
	status := http.StatusInternalServerError
	resp.Code = CodeInternal

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, resp.Code, resp.Retryable = m.status, m.code, m.retryable
			break
		}
	}

	var ve *entity.ValidationError
	if errors.As(err, &ve) {
		resp.Reason = string(ve.Reason)
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "error", err, "code", resp.Code)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	} else {
		h.logger.Info("Request rejected", "op", op, "error", err, "code", resp.Code)
	}

	c.JSON(status, resp)
}

func (h *Handlers) writeBindError(c *gin.Context, err error) {
	h.logger.Info("Invalid request", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   err.Error(),
		Code:    CodeInvalidRequest,
	})
}
