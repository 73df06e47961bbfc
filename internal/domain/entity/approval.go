package entity

import (
	"fmt"
	"time"
)

// ApprovalStatus is the reviewer decision on a submitted timesheet
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
)

// ClarificationStatus tracks the clarification sub-loop. The zero value means
// no clarification is open.
type ClarificationStatus string

const (
	ClarificationNone      ClarificationStatus = ""
	ClarificationNeeded    ClarificationStatus = "needed"
	ClarificationSubmitted ClarificationStatus = "submitted"
)

// TimesheetApproval is the review record paired 1:1 with a submitted TimeLog
type TimesheetApproval struct {
	ID                    string              `json:"id"`
	TimeLogID             string              `json:"time_log_id"`
	Status                ApprovalStatus      `json:"status"`
	ClarificationStatus   ClarificationStatus `json:"clarification_status,omitempty"`
	RejectionReason       string              `json:"rejection_reason,omitempty"`
	ClarificationResponse string              `json:"clarification_response,omitempty"`
	ReviewerID            string              `json:"reviewer_id,omitempty"`
	SubmittedAt           time.Time           `json:"submitted_at"`
	ApprovedAt            *time.Time          `json:"approved_at,omitempty"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// CheckInvariants verifies the status/clarification combination is legal
func (a *TimesheetApproval) CheckInvariants() error {
	switch a.Status {
	case ApprovalStatusApproved:
		if a.ClarificationStatus != ClarificationNone {
			return fmt.Errorf("approved record %s has clarification status %q", a.ID, a.ClarificationStatus)
		}
		if a.ApprovedAt == nil {
			return fmt.Errorf("approved record %s has no approval time", a.ID)
		}
	case ApprovalStatusPending:
		switch a.ClarificationStatus {
		case ClarificationNone, ClarificationNeeded, ClarificationSubmitted:
		default:
			return fmt.Errorf("record %s has unknown clarification status %q", a.ID, a.ClarificationStatus)
		}
	default:
		return fmt.Errorf("record %s has unknown status %q", a.ID, a.Status)
	}
	return nil
}

// ApprovalWithTimeLog is a listing row joining an approval with its time log
type ApprovalWithTimeLog struct {
	Approval TimesheetApproval `json:"approval"`
	TimeLog  TimeLog           `json:"time_log"`
}

// ApprovalFilter narrows approval listings. Empty fields do not filter;
// a non-nil ClarificationStatus pointing at ClarificationNone matches rows
// with no open clarification.
type ApprovalFilter struct {
	Status              ApprovalStatus
	ClarificationStatus *ClarificationStatus
	EmployeeID          string
	Limit               int
	Offset              int
}
