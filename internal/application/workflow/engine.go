package workflow

import (
	"context"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/timesheet-workflow/internal/domain/workflow"
)

// ApprovalEngine drives timesheet approvals through their lifecycle
type ApprovalEngine interface {
	// Approve moves a pending or clarified approval to APPROVED. Approving an
	// approved record is a no-op.
	Approve(ctx context.Context, approvalID, reviewerID string) (*entity.TimesheetApproval, error)

	// RequestClarification asks the employee to explain the timesheet
	RequestClarification(ctx context.Context, approvalID, reviewerID, reason string) (*entity.TimesheetApproval, error)

	// SubmitClarification records the employee's answer; status stays pending
	SubmitClarification(ctx context.Context, approvalID, employeeID, response string) (*entity.TimesheetApproval, error)

	// GetApproval returns an approval with its current lifecycle state
	GetApproval(ctx context.Context, approvalID string) (*entity.TimesheetApproval, domainwf.State, error)

	// ListApprovals returns approvals joined with their time logs
	ListApprovals(ctx context.Context, filter entity.ApprovalFilter) ([]*entity.ApprovalWithTimeLog, error)

	// History returns the audit trail of an approval, oldest first
	History(ctx context.Context, approvalID string) ([]*entity.ApprovalHistory, error)
}
