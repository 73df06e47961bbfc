package workflow

import "github.com/garyjia/timesheet-workflow/internal/domain/entity"

// State is a position in the timesheet approval lifecycle
type State string

const (
	StateDraft                  State = "DRAFT"
	StatePending                State = "PENDING"
	StateClarificationNeeded    State = "CLARIFICATION_NEEDED"
	StateClarificationSubmitted State = "CLARIFICATION_SUBMITTED"
	StateApproved               State = "APPROVED"
)

var validStates = map[State]bool{
	StateDraft:                  true,
	StatePending:                true,
	StateClarificationNeeded:    true,
	StateClarificationSubmitted: true,
	StateApproved:               true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// StateOf derives the lifecycle state from a stored approval row.
// A nil row means the time log has not been submitted yet.
func StateOf(a *entity.TimesheetApproval) State {
	if a == nil {
		return StateDraft
	}
	if a.Status == entity.ApprovalStatusApproved {
		return StateApproved
	}
	switch a.ClarificationStatus {
	case entity.ClarificationNeeded:
		return StateClarificationNeeded
	case entity.ClarificationSubmitted:
		return StateClarificationSubmitted
	default:
		return StatePending
	}
}
