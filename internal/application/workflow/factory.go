package workflow

import (
	domainwf "github.com/garyjia/timesheet-workflow/internal/domain/workflow"
)

// approvalLifecycle is configured once; Build copies it per machine
var approvalLifecycle = domainwf.NewApprovalLifecycle()

// BuildApprovalStateMachine creates a state machine for one approval positioned at initialState
func BuildApprovalStateMachine(initialState domainwf.State) domainwf.StateMachine {
	return approvalLifecycle.Build(initialState)
}
