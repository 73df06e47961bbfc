package entity

// Draft is the timesheet payload an employee prepares before submission
type Draft struct {
	EmployeeHasProjects bool                     `json:"employeeHasProjects"`
	ProjectEntries      []ProjectAllocationEntry `json:"projectEntries,omitempty"`
	DetailedEntries     []DetailedTimesheetEntry `json:"detailedEntries,omitempty"`
	Title               string                   `json:"title"`
	WorkReport          string                   `json:"workReport"`
	TotalWorkingHours   float64                  `json:"totalWorkingHours"`
}

// Allocation returns the time breakdown shaped by the assignment flag
func (d Draft) Allocation() Allocation {
	return NewAllocation(d.EmployeeHasProjects, d.ProjectEntries, d.DetailedEntries)
}

// EffectiveHours is TotalWorkingHours when supplied, otherwise the hours of the active allocation
func (d Draft) EffectiveHours() float64 {
	if d.TotalWorkingHours > 0 {
		return d.TotalWorkingHours
	}
	return d.Allocation().TotalHours()
}

// Notes returns the draft's free-form notes
func (d Draft) Notes() TimeLogNotes {
	return TimeLogNotes{Title: d.Title, WorkReport: d.WorkReport}
}

// ValidationResult is the outcome of validating a draft. Reasons holds the
// first failed rule, or is empty when OK.
type ValidationResult struct {
	OK      bool         `json:"ok"`
	Reasons []ReasonCode `json:"reasons"`
}

// Err converts a failed result to a *ValidationError, or nil when OK
func (r ValidationResult) Err() error {
	if r.OK || len(r.Reasons) == 0 {
		return nil
	}
	return &ValidationError{Reason: r.Reasons[0]}
}
