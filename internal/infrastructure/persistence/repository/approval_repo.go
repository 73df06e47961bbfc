package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	"github.com/garyjia/timesheet-workflow/internal/infrastructure/persistence/sqlite"
)

const approvalColumns = `
	a.id, a.time_log_id, a.status, a.clarification_status, a.rejection_reason,
	a.clarification_response, a.reviewer_id, a.submitted_at, a.approved_at, a.updated_at
`

// defaultListLimit caps approval listings that do not set a limit
const defaultListLimit = 100

// ApprovalRepository implements port.ApprovalRepository
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new approval
func (r *ApprovalRepository) Create(ctx context.Context, approval *entity.TimesheetApproval) error {
	query := `
		INSERT INTO timesheet_approvals (
			id, time_log_id, status, clarification_status, rejection_reason,
			clarification_response, reviewer_id, submitted_at, approved_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		approval.ID,
		approval.TimeLogID,
		string(approval.Status),
		string(approval.ClarificationStatus),
		approval.RejectionReason,
		approval.ClarificationResponse,
		approval.ReviewerID,
		approval.SubmittedAt.UTC(),
		nullTime(approval.ApprovedAt),
		approval.UpdatedAt.UTC(),
	)
	if err != nil {
		err = sqlite.MapError(err)
		if errors.Is(err, entity.ErrDuplicate) {
			r.logger.Info("Approval already exists for time log", zap.String("time_log_id", approval.TimeLogID))
			return err
		}
		r.logger.Error("Failed to create approval", zap.String("time_log_id", approval.TimeLogID), zap.Error(err))
		return fmt.Errorf("failed to create approval: %w", err)
	}
	return nil
}

// GetByID retrieves an approval by ID
func (r *ApprovalRepository) GetByID(ctx context.Context, id string) (*entity.TimesheetApproval, error) {
	return r.getOne(ctx, "a.id = ?", id)
}

// GetByTimeLogID retrieves the approval paired with a time log
func (r *ApprovalRepository) GetByTimeLogID(ctx context.Context, timeLogID string) (*entity.TimesheetApproval, error) {
	return r.getOne(ctx, "a.time_log_id = ?", timeLogID)
}

func (r *ApprovalRepository) getOne(ctx context.Context, where string, arg string) (*entity.TimesheetApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM timesheet_approvals a WHERE ` + where

	var (
		approval   entity.TimesheetApproval
		approvedAt sql.NullTime
	)
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(approvalTargets(&approval, &approvedAt)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval", zap.String("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval: %w", sqlite.MapError(err))
	}
	approval.ApprovedAt = timePtr(approvedAt)
	return &approval, nil
}

// CompareAndUpdate writes the mutable approval fields only while the stored
// status pair still equals the expected one.
func (r *ApprovalRepository) CompareAndUpdate(
	ctx context.Context,
	approval *entity.TimesheetApproval,
	expectedStatus entity.ApprovalStatus,
	expectedClarification entity.ClarificationStatus,
) (bool, error) {
	query := `
		UPDATE timesheet_approvals
		SET status = ?, clarification_status = ?, rejection_reason = ?,
			clarification_response = ?, reviewer_id = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND status = ? AND clarification_status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		string(approval.Status),
		string(approval.ClarificationStatus),
		approval.RejectionReason,
		approval.ClarificationResponse,
		approval.ReviewerID,
		nullTime(approval.ApprovedAt),
		approval.UpdatedAt.UTC(),
		approval.ID,
		string(expectedStatus),
		string(expectedClarification),
	)
	if err != nil {
		r.logger.Error("Failed to update approval", zap.String("id", approval.ID), zap.Error(err))
		return false, fmt.Errorf("failed to update approval: %w", sqlite.MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// List returns approvals joined with their time logs, newest submission first
func (r *ApprovalRepository) List(ctx context.Context, filter entity.ApprovalFilter) ([]*entity.ApprovalWithTimeLog, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		conditions = append(conditions, "a.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.ClarificationStatus != nil {
		conditions = append(conditions, "a.clarification_status = ?")
		args = append(args, string(*filter.ClarificationStatus))
	}
	if filter.EmployeeID != "" {
		conditions = append(conditions, "t.employee_id = ?")
		args = append(args, filter.EmployeeID)
	}

	query := `SELECT ` + approvalColumns + `,` + prefixed("t", timeLogColumns) + `
		FROM timesheet_approvals a
		JOIN time_logs t ON t.id = a.time_log_id
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += " ORDER BY a.submitted_at DESC, a.id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list approvals", zap.Error(err))
		return nil, fmt.Errorf("failed to list approvals: %w", sqlite.MapError(err))
	}
	defer rows.Close()

	var result []*entity.ApprovalWithTimeLog
	for rows.Next() {
		var (
			item       entity.ApprovalWithTimeLog
			approvedAt sql.NullTime
		)
		log, err := scanTimeLog(joinedRow{rows: rows, head: approvalTargets(&item.Approval, &approvedAt)})
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		item.Approval.ApprovedAt = timePtr(approvedAt)
		item.TimeLog = *log
		result = append(result, &item)
	}

	return result, rows.Err()
}

// joinedRow scans the approval columns ahead of the time log columns of one row
type joinedRow struct {
	rows *sql.Rows
	head []interface{}
}

func (j joinedRow) Scan(dest ...interface{}) error {
	targets := make([]interface{}, 0, len(j.head)+len(dest))
	targets = append(targets, j.head...)
	return j.rows.Scan(append(targets, dest...)...)
}

// prefixed qualifies a comma-separated column list with a table alias
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// approvalTargets returns scan targets in approvalColumns order
func approvalTargets(a *entity.TimesheetApproval, approvedAt *sql.NullTime) []interface{} {
	return []interface{}{
		&a.ID, &a.TimeLogID, &a.Status, &a.ClarificationStatus, &a.RejectionReason,
		&a.ClarificationResponse, &a.ReviewerID, &a.SubmittedAt, approvedAt, &a.UpdatedAt,
	}
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
