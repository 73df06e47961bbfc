package workflow

// NewApprovalLifecycle configures the timesheet approval transitions:
//
//	DRAFT -SUBMIT-> PENDING
//	PENDING | CLARIFICATION_SUBMITTED -APPROVE-> APPROVED
//	PENDING | CLARIFICATION_SUBMITTED -REQUEST_CLARIFICATION-> CLARIFICATION_NEEDED
//	CLARIFICATION_NEEDED -SUBMIT_CLARIFICATION-> CLARIFICATION_SUBMITTED
//	APPROVED -APPROVE-> APPROVED (idempotent)
func NewApprovalLifecycle() StateMachineBuilder {
	builder := NewBuilder()

	builder.Configure(StateDraft).
		Permit(TriggerSubmit, StatePending)

	builder.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerRequestClarification, StateClarificationNeeded)

	builder.Configure(StateClarificationNeeded).
		Permit(TriggerSubmitClarification, StateClarificationSubmitted)

	builder.Configure(StateClarificationSubmitted).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerRequestClarification, StateClarificationNeeded)

	builder.Configure(StateApproved).
		Ignore(TriggerApprove)

	return builder
}
