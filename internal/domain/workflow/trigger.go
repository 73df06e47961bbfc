package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerSubmit               Trigger = "SUBMIT"
	TriggerApprove              Trigger = "APPROVE"
	TriggerRequestClarification Trigger = "REQUEST_CLARIFICATION"
	TriggerSubmitClarification  Trigger = "SUBMIT_CLARIFICATION"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
