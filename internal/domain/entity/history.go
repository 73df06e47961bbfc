package entity

import "time"

// Approval history actions
const (
	ActionSubmit               = "SUBMIT"
	ActionApprove              = "APPROVE"
	ActionRequestClarification = "REQUEST_CLARIFICATION"
	ActionSubmitClarification  = "SUBMIT_CLARIFICATION"
)

// ApprovalHistory is the audit trail of a timesheet approval
type ApprovalHistory struct {
	ID            string    `json:"id"`
	ApprovalID    string    `json:"approval_id"`
	ActorID       string    `json:"actor_id"`
	PreviousState string    `json:"previous_state"`
	NewState      string    `json:"new_state"`
	Action        string    `json:"action"`
	Note          string    `json:"note,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
