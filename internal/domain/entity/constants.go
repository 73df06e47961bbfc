package entity

// ReasonCode identifies the business rule a draft timesheet failed
type ReasonCode string

// Validation reason codes, in rule evaluation order
const (
	ReasonNoProjectSelected  ReasonCode = "NoProjectSelected"
	ReasonMissingWorkSummary ReasonCode = "MissingWorkSummary"
	ReasonInvalidHours       ReasonCode = "InvalidHours"
	ReasonHoursExceeded      ReasonCode = "HoursExceeded"
	ReasonMissingTitle       ReasonCode = "MissingTitle"
)

// DefaultMaxDailyHours is the per-day cap on booked hours
const DefaultMaxDailyHours = 8.0

// String returns the string representation of the reason code
func (r ReasonCode) String() string {
	return string(r)
}
