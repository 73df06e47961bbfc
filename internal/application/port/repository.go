package port

import (
	"context"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

// TimeLogRepository defines persistence operations for TimeLog.
// Lookups return (nil, nil) when no row matches.
type TimeLogRepository interface {
	// Create inserts a time log and assigns its ID. A second open row for the
	// same employee and date is rejected with entity.ErrDuplicate.
	Create(ctx context.Context, log *entity.TimeLog) error
	GetByID(ctx context.Context, id string) (*entity.TimeLog, error)
	FindOpen(ctx context.Context, employeeID, date string) (*entity.TimeLog, error)
	// Update rewrites the draft fields of an unsubmitted time log
	Update(ctx context.Context, log *entity.TimeLog) error
	// MarkSubmitted stores the submitted payload and flips is_submitted.
	// It reports false when the row was already submitted.
	MarkSubmitted(ctx context.Context, log *entity.TimeLog) (bool, error)
	// ListUnclosed returns unsubmitted logs dated before beforeDate that were
	// clocked in but never clocked out, oldest first
	ListUnclosed(ctx context.Context, beforeDate string, limit int) ([]*entity.TimeLog, error)
}

// ApprovalRepository defines persistence operations for TimesheetApproval
type ApprovalRepository interface {
	// Create inserts an approval. A second approval for the same time log is
	// rejected with entity.ErrDuplicate.
	Create(ctx context.Context, approval *entity.TimesheetApproval) error
	GetByID(ctx context.Context, id string) (*entity.TimesheetApproval, error)
	GetByTimeLogID(ctx context.Context, timeLogID string) (*entity.TimesheetApproval, error)
	// CompareAndUpdate writes approval only if the stored row still has the
	// expected status pair. It reports whether the row was written.
	CompareAndUpdate(ctx context.Context, approval *entity.TimesheetApproval, expectedStatus entity.ApprovalStatus, expectedClarification entity.ClarificationStatus) (bool, error)
	List(ctx context.Context, filter entity.ApprovalFilter) ([]*entity.ApprovalWithTimeLog, error)
}

// HistoryRepository defines persistence operations for ApprovalHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ApprovalHistory) error
	ListByApprovalID(ctx context.Context, approvalID string) ([]*entity.ApprovalHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
