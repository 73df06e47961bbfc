package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	"github.com/garyjia/timesheet-workflow/internal/infrastructure/persistence/sqlite"
)

const timeLogColumns = `
	id, employee_id, organization_id, log_date, clock_in_time, clock_out_time,
	duration_minutes, status, notes, project_time_data, is_submitted,
	total_working_hours, created_at, updated_at
`

// TimeLogRepository implements port.TimeLogRepository
type TimeLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimeLogRepository creates a new time log repository
func NewTimeLogRepository(db *sql.DB, logger *zap.Logger) port.TimeLogRepository {
	return &TimeLogRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new time log
func (r *TimeLogRepository) Create(ctx context.Context, log *entity.TimeLog) error {
	notes, allocation, err := encodePayload(log)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	id := log.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := log.Status
	if status == "" {
		status = entity.TimeLogStatusNormal
	}

	query := `
		INSERT INTO time_logs (` + timeLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		id,
		log.EmployeeID,
		log.OrganizationID,
		log.Date,
		nullTime(log.ClockInTime),
		nullTime(log.ClockOutTime),
		nullInt(log.DurationMinutes),
		string(status),
		notes,
		allocation,
		log.IsSubmitted,
		log.TotalWorkingHours,
		now,
		now,
	)
	if err != nil {
		err = sqlite.MapError(err)
		if errors.Is(err, entity.ErrDuplicate) {
			r.logger.Info("Open time log already exists",
				zap.String("employee_id", log.EmployeeID), zap.String("date", log.Date))
			return err
		}
		r.logger.Error("Failed to create time log", zap.String("employee_id", log.EmployeeID), zap.Error(err))
		return fmt.Errorf("failed to create time log: %w", err)
	}

	log.ID = id
	log.Status = status
	log.CreatedAt = now
	log.UpdatedAt = now
	return nil
}

// GetByID retrieves a time log by ID
func (r *TimeLogRepository) GetByID(ctx context.Context, id string) (*entity.TimeLog, error) {
	query := `SELECT ` + timeLogColumns + ` FROM time_logs WHERE id = ?`

	log, err := scanTimeLog(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get time log", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get time log: %w", sqlite.MapError(err))
	}
	return log, nil
}

// FindOpen retrieves the unsubmitted time log of an employee for a date
func (r *TimeLogRepository) FindOpen(ctx context.Context, employeeID, date string) (*entity.TimeLog, error) {
	query := `SELECT ` + timeLogColumns + `
		FROM time_logs
		WHERE employee_id = ? AND log_date = ? AND is_submitted = 0
	`

	log, err := scanTimeLog(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, employeeID, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to find open time log",
			zap.String("employee_id", employeeID), zap.String("date", date), zap.Error(err))
		return nil, fmt.Errorf("failed to find open time log: %w", sqlite.MapError(err))
	}
	return log, nil
}

// Update rewrites the clock and draft fields of an unsubmitted time log.
// Submitted rows are left untouched.
func (r *TimeLogRepository) Update(ctx context.Context, log *entity.TimeLog) error {
	notes, allocation, err := encodePayload(log)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `
		UPDATE time_logs
		SET clock_in_time = ?, clock_out_time = ?, duration_minutes = ?, status = ?,
			notes = ?, project_time_data = ?, total_working_hours = ?, updated_at = ?
		WHERE id = ? AND is_submitted = 0
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		nullTime(log.ClockInTime),
		nullTime(log.ClockOutTime),
		nullInt(log.DurationMinutes),
		string(log.Status),
		notes,
		allocation,
		log.TotalWorkingHours,
		now,
		log.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update time log", zap.String("id", log.ID), zap.Error(err))
		return fmt.Errorf("failed to update time log: %w", sqlite.MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s is missing or submitted", entity.ErrTimeLogNotFound, log.ID)
	}

	log.UpdatedAt = now
	return nil
}

// MarkSubmitted stores the submitted payload and flips is_submitted in one
// conditional write. It reports false if the row was already submitted.
func (r *TimeLogRepository) MarkSubmitted(ctx context.Context, log *entity.TimeLog) (bool, error) {
	notes, allocation, err := encodePayload(log)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	query := `
		UPDATE time_logs
		SET duration_minutes = ?, notes = ?, project_time_data = ?,
			total_working_hours = ?, is_submitted = 1, updated_at = ?
		WHERE id = ? AND is_submitted = 0
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		nullInt(log.DurationMinutes),
		notes,
		allocation,
		log.TotalWorkingHours,
		now,
		log.ID,
	)
	if err != nil {
		r.logger.Error("Failed to mark time log submitted", zap.String("id", log.ID), zap.Error(err))
		return false, fmt.Errorf("failed to mark time log submitted: %w", sqlite.MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	log.UpdatedAt = now
	return true, nil
}

// ListUnclosed returns clocked-in time logs from earlier days that were never clocked out
func (r *TimeLogRepository) ListUnclosed(ctx context.Context, beforeDate string, limit int) ([]*entity.TimeLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + timeLogColumns + `
		FROM time_logs
		WHERE is_submitted = 0
			AND clock_in_time IS NOT NULL
			AND clock_out_time IS NULL
			AND log_date < ?
		ORDER BY log_date, id
		LIMIT ?
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, beforeDate, limit)
	if err != nil {
		r.logger.Error("Failed to list unclosed time logs", zap.String("before", beforeDate), zap.Error(err))
		return nil, fmt.Errorf("failed to list unclosed time logs: %w", sqlite.MapError(err))
	}
	defer rows.Close()

	var logs []*entity.TimeLog
	for rows.Next() {
		log, err := scanTimeLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time logs: %w", sqlite.MapError(err))
	}
	return logs, nil
}

func encodePayload(log *entity.TimeLog) (string, string, error) {
	notes, err := entity.MarshalNotes(log.Notes)
	if err != nil {
		return "", "", err
	}
	allocation, err := entity.MarshalAllocation(log.ProjectTimeData)
	if err != nil {
		return "", "", err
	}
	return notes, allocation, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTimeLog(row rowScanner) (*entity.TimeLog, error) {
	var (
		log               entity.TimeLog
		status            string
		notes, allocation string
		clockIn, clockOut sql.NullTime
		duration          sql.NullInt64
	)

	err := row.Scan(
		&log.ID,
		&log.EmployeeID,
		&log.OrganizationID,
		&log.Date,
		&clockIn,
		&clockOut,
		&duration,
		&status,
		&notes,
		&allocation,
		&log.IsSubmitted,
		&log.TotalWorkingHours,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	log.Status = entity.TimeLogStatus(status)
	log.ClockInTime = timePtr(clockIn)
	log.ClockOutTime = timePtr(clockOut)
	if duration.Valid {
		minutes := int(duration.Int64)
		log.DurationMinutes = &minutes
	}
	if log.Notes, err = entity.UnmarshalNotes(notes); err != nil {
		return nil, err
	}
	if log.ProjectTimeData, err = entity.UnmarshalAllocation(allocation); err != nil {
		return nil, err
	}
	return &log, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// Verify interface compliance
var _ port.TimeLogRepository = (*TimeLogRepository)(nil)
