package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationFailed is returned when a draft timesheet breaks a business rule
	ErrValidationFailed = errors.New("validation failed")

	// ErrAuthenticationMissing is returned when an operation has no acting employee
	ErrAuthenticationMissing = errors.New("authentication missing")

	// ErrApprovalNotFound is returned when an approval id does not resolve
	ErrApprovalNotFound = errors.New("approval not found")

	// ErrTimeLogNotFound is returned when a time log id does not resolve
	ErrTimeLogNotFound = errors.New("time log not found")

	// ErrIllegalTransition is returned when an approval action is not allowed from the current state
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrEmptyReason is returned when a clarification request has no reason
	ErrEmptyReason = errors.New("clarification reason is empty")

	// ErrEmptyResponse is returned when a clarification response has no text
	ErrEmptyResponse = errors.New("clarification response is empty")

	// ErrStoreUnavailable is returned when the record store fails or times out
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSubmissionIncomplete is returned when a time log was marked submitted
	// but its approval row could not be confirmed. Retrying Submit completes it.
	ErrSubmissionIncomplete = errors.New("submission incomplete")

	// ErrDuplicate is returned by the store when a uniqueness constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")

	// ErrUnsupportedCurrency is returned for currencies the normalizer cannot convert
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// ValidationError carries the reason code of a failed draft validation
type ValidationError struct {
	Reason ReasonCode
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidationFailed.Error(), e.Reason)
}

// Unwrap lets errors.Is match ErrValidationFailed
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
