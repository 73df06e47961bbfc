package workflow

import (
	"fmt"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

// ErrInvalidTransition is returned when a state transition is not allowed
var ErrInvalidTransition = entity.ErrIllegalTransition

// TransitionError reports which trigger was rejected from which state
type TransitionError struct {
	From    State
	Trigger Trigger
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot fire %s from %s", ErrInvalidTransition.Error(), e.Trigger, e.From)
}

// Unwrap lets errors.Is match ErrInvalidTransition
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
