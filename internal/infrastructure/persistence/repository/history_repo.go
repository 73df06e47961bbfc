package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	"github.com/garyjia/timesheet-workflow/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	query := `
		INSERT INTO approval_history (
			id, approval_id, actor_id, previous_state, new_state,
			action, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	id := history.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := history.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		id,
		history.ApprovalID,
		history.ActorID,
		history.PreviousState,
		history.NewState,
		history.Action,
		history.Note,
		ts.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.String("approval_id", history.ApprovalID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", sqlite.MapError(err))
	}

	history.ID = id
	history.Timestamp = ts
	return nil
}

// ListByApprovalID retrieves all history records for an approval, oldest first
func (r *HistoryRepository) ListByApprovalID(ctx context.Context, approvalID string) ([]*entity.ApprovalHistory, error) {
	query := `
		SELECT id, approval_id, actor_id, previous_state, new_state,
			action, note, created_at
		FROM approval_history
		WHERE approval_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, approvalID)
	if err != nil {
		r.logger.Error("Failed to get history by approval ID", zap.String("approval_id", approvalID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", sqlite.MapError(err))
	}
	defer rows.Close()

	var records []*entity.ApprovalHistory
	for rows.Next() {
		var record entity.ApprovalHistory
		err := rows.Scan(
			&record.ID,
			&record.ApprovalID,
			&record.ActorID,
			&record.PreviousState,
			&record.NewState,
			&record.Action,
			&record.Note,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
