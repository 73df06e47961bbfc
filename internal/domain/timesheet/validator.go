// Package timesheet holds the business rules a draft timesheet must satisfy
// before it can be submitted.
package timesheet

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

// Validator checks draft timesheets against the daily booking rules.
// It is pure: no clock, no store access.
type Validator struct {
	MaxDailyHours float64
	RequireTitle  bool
}

// NewValidator creates a validator. A non-positive cap falls back to DefaultMaxDailyHours.
func NewValidator(maxDailyHours float64, requireTitle bool) *Validator {
	if maxDailyHours <= 0 {
		maxDailyHours = entity.DefaultMaxDailyHours
	}
	return &Validator{MaxDailyHours: maxDailyHours, RequireTitle: requireTitle}
}

type rule func(v *Validator, d entity.Draft) (entity.ReasonCode, bool)

// rules run in order; the first failure wins
var rules = []rule{
	checkProjectSelected,
	checkWorkSummary,
	checkHoursNonNegative,
	checkProjectHoursCap,
	checkDetailedHoursCap,
	checkTitle,
}

// Validate returns OK, or the reason code of the first rule that failed
func (v *Validator) Validate(d entity.Draft) entity.ValidationResult {
	for _, r := range rules {
		if reason, ok := r(v, d); !ok {
			return entity.ValidationResult{OK: false, Reasons: []entity.ReasonCode{reason}}
		}
	}
	return entity.ValidationResult{OK: true, Reasons: []entity.ReasonCode{}}
}

func checkProjectSelected(_ *Validator, d entity.Draft) (entity.ReasonCode, bool) {
	if !d.EmployeeHasProjects {
		return "", true
	}
	for _, p := range d.ProjectEntries {
		if strings.TrimSpace(p.ProjectID) != "" {
			return "", true
		}
	}
	return entity.ReasonNoProjectSelected, false
}

func checkWorkSummary(_ *Validator, d entity.Draft) (entity.ReasonCode, bool) {
	if !d.EmployeeHasProjects {
		return "", true
	}
	for _, p := range d.ProjectEntries {
		if strings.TrimSpace(p.ProjectID) == "" {
			continue
		}
		if p.Hours > 0 && strings.TrimSpace(p.Report) == "" {
			return entity.ReasonMissingWorkSummary, false
		}
	}
	return "", true
}

func checkHoursNonNegative(_ *Validator, d entity.Draft) (entity.ReasonCode, bool) {
	if d.EmployeeHasProjects {
		for _, p := range d.ProjectEntries {
			if strings.TrimSpace(p.ProjectID) != "" && p.Hours < 0 {
				return entity.ReasonInvalidHours, false
			}
		}
		return "", true
	}
	for _, e := range d.DetailedEntries {
		if e.Hours < 0 {
			return entity.ReasonInvalidHours, false
		}
	}
	return "", true
}

func checkProjectHoursCap(v *Validator, d entity.Draft) (entity.ReasonCode, bool) {
	if !d.EmployeeHasProjects {
		return "", true
	}
	sum := decimal.Zero
	for _, p := range d.ProjectEntries {
		if strings.TrimSpace(p.ProjectID) != "" {
			sum = sum.Add(decimal.NewFromFloat(p.Hours))
		}
	}
	if sum.GreaterThan(decimal.NewFromFloat(v.MaxDailyHours)) {
		return entity.ReasonHoursExceeded, false
	}
	return "", true
}

func checkDetailedHoursCap(v *Validator, d entity.Draft) (entity.ReasonCode, bool) {
	if d.EmployeeHasProjects || len(d.DetailedEntries) == 0 {
		return "", true
	}
	sum := decimal.Zero
	for _, e := range d.DetailedEntries {
		sum = sum.Add(decimal.NewFromFloat(e.Hours))
	}
	if sum.GreaterThan(decimal.NewFromFloat(v.MaxDailyHours)) {
		return entity.ReasonHoursExceeded, false
	}
	return "", true
}

func checkTitle(v *Validator, d entity.Draft) (entity.ReasonCode, bool) {
	if v.RequireTitle && strings.TrimSpace(d.Title) == "" {
		return entity.ReasonMissingTitle, false
	}
	return "", true
}
