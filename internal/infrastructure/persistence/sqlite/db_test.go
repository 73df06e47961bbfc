package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "tx.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, err = sqlDB.Exec("CREATE TABLE items (name TEXT PRIMARY KEY)")
	require.NoError(t, err)
	return NewDB(sqlDB, zap.NewNop())
}

func countItems(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&n))
	return n
}

func TestWithTransaction_NestedJoinsOuter(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(outer context.Context) error {
		if _, err := ExecutorFrom(outer, db.DB).ExecContext(outer, "INSERT INTO items VALUES ('a')"); err != nil {
			return err
		}
		return db.WithTransaction(outer, func(inner context.Context) error {
			assert.Same(t, extractTx(outer), extractTx(inner))
			_, err := ExecutorFrom(inner, db.DB).ExecContext(inner, "INSERT INTO items VALUES ('b')")
			return err
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countItems(t, db))
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := ExecutorFrom(txCtx, db.DB).ExecContext(txCtx, "INSERT INTO items VALUES ('a')"); err != nil {
			return err
		}
		_, err := ExecutorFrom(txCtx, db.DB).ExecContext(txCtx, "INSERT INTO items VALUES ('a')")
		return MapError(err)
	})
	assert.ErrorIs(t, err, entity.ErrDuplicate)
	assert.Equal(t, 0, countItems(t, db))
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db := openDB(t)

	assert.Panics(t, func() {
		_ = db.WithTransaction(context.Background(), func(txCtx context.Context) error {
			_, _ = ExecutorFrom(txCtx, db.DB).ExecContext(txCtx, "INSERT INTO items VALUES ('a')")
			panic("boom")
		})
	})
	assert.Equal(t, 0, countItems(t, db))
}

func TestExecutorFrom_WithoutTx(t *testing.T) {
	db := openDB(t)
	assert.Equal(t, Executor(db.DB), ExecutorFrom(context.Background(), db.DB))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, entity.ErrDuplicate},
		{"primary key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, entity.ErrDuplicate},
		{"busy", fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrBusy}), entity.ErrStoreUnavailable},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, entity.ErrStoreUnavailable},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), entity.ErrStoreUnavailable},
		{"canceled", context.Canceled, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}

	assert.NoError(t, MapError(nil))
	assert.False(t, errors.Is(MapError(context.Canceled), entity.ErrStoreUnavailable))
}
