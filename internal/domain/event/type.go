package event

// Type identifies the type of domain event
type Type string

const (
	TypeTimesheetSubmitted     Type = "timesheet.submitted"
	TypeTimesheetApproved      Type = "timesheet.approved"
	TypeClarificationRequested Type = "timesheet.clarification_requested"
	TypeClarificationSubmitted Type = "timesheet.clarification_submitted"
	TypeStateChanged           Type = "approval.state_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTimesheetSubmitted,
		TypeTimesheetApproved,
		TypeClarificationRequested,
		TypeClarificationSubmitted,
		TypeStateChanged:
		return true
	default:
		return false
	}
}
