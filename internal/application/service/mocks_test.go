package service

import (
	"context"
	"sort"
	"sync"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	"github.com/google/uuid"
)

// memoryStore is an in-memory record store enforcing the same uniqueness
// rules as the SQLite schema. The func fields inject failures.
type memoryStore struct {
	mu        sync.Mutex
	timeLogs  map[string]entity.TimeLog
	approvals map[string]entity.TimesheetApproval
	history   []entity.ApprovalHistory

	createTimeLogCalls int

	createTimeLogFunc  func(ctx context.Context, log *entity.TimeLog) error
	markSubmittedFunc  func(ctx context.Context, log *entity.TimeLog) error
	createApprovalFunc func(ctx context.Context, approval *entity.TimesheetApproval) error
	getByTimeLogFunc   func(ctx context.Context, timeLogID string) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		timeLogs:  make(map[string]entity.TimeLog),
		approvals: make(map[string]entity.TimesheetApproval),
	}
}

type memTimeLogRepo struct{ s *memoryStore }
type memApprovalRepo struct{ s *memoryStore }
type memHistoryRepo struct{ s *memoryStore }

func (r memTimeLogRepo) Create(ctx context.Context, log *entity.TimeLog) error {
	if f := r.s.createTimeLogFunc; f != nil {
		if err := f(ctx, log); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.createTimeLogCalls++

	for _, existing := range r.s.timeLogs {
		if !existing.IsSubmitted && existing.EmployeeID == log.EmployeeID && existing.Date == log.Date {
			return entity.ErrDuplicate
		}
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	r.s.timeLogs[log.ID] = *log
	return nil
}

func (r memTimeLogRepo) GetByID(ctx context.Context, id string) (*entity.TimeLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log, ok := r.s.timeLogs[id]
	if !ok {
		return nil, nil
	}
	return &log, nil
}

func (r memTimeLogRepo) FindOpen(ctx context.Context, employeeID, date string) (*entity.TimeLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, log := range r.s.timeLogs {
		if !log.IsSubmitted && log.EmployeeID == employeeID && log.Date == date {
			l := log
			return &l, nil
		}
	}
	return nil, nil
}

func (r memTimeLogRepo) Update(ctx context.Context, log *entity.TimeLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.timeLogs[log.ID]
	if !ok || existing.IsSubmitted {
		return entity.ErrTimeLogNotFound
	}
	r.s.timeLogs[log.ID] = *log
	return nil
}

func (r memTimeLogRepo) ListUnclosed(ctx context.Context, beforeDate string, limit int) ([]*entity.TimeLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var logs []*entity.TimeLog
	for _, stored := range r.s.timeLogs {
		if stored.IsSubmitted || stored.ClockInTime == nil || stored.ClockOutTime != nil || stored.Date >= beforeDate {
			continue
		}
		copied := stored
		logs = append(logs, &copied)
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].Date != logs[j].Date {
			return logs[i].Date < logs[j].Date
		}
		return logs[i].ID < logs[j].ID
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (r memTimeLogRepo) MarkSubmitted(ctx context.Context, log *entity.TimeLog) (bool, error) {
	if f := r.s.markSubmittedFunc; f != nil {
		if err := f(ctx, log); err != nil {
			return false, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.timeLogs[log.ID]
	if !ok || existing.IsSubmitted {
		return false, nil
	}
	stored := *log
	stored.IsSubmitted = true
	r.s.timeLogs[log.ID] = stored
	return true, nil
}

func (r memApprovalRepo) Create(ctx context.Context, approval *entity.TimesheetApproval) error {
	if f := r.s.createApprovalFunc; f != nil {
		if err := f(ctx, approval); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.approvals {
		if existing.TimeLogID == approval.TimeLogID {
			return entity.ErrDuplicate
		}
	}
	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	r.s.approvals[approval.ID] = *approval
	return nil
}

func (r memApprovalRepo) GetByID(ctx context.Context, id string) (*entity.TimesheetApproval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.approvals[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memApprovalRepo) GetByTimeLogID(ctx context.Context, timeLogID string) (*entity.TimesheetApproval, error) {
	if f := r.s.getByTimeLogFunc; f != nil {
		if err := f(ctx, timeLogID); err != nil {
			return nil, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.approvals {
		if a.TimeLogID == timeLogID {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (r memApprovalRepo) CompareAndUpdate(ctx context.Context, approval *entity.TimesheetApproval, expectedStatus entity.ApprovalStatus, expectedClarification entity.ClarificationStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.approvals[approval.ID]
	if !ok || existing.Status != expectedStatus || existing.ClarificationStatus != expectedClarification {
		return false, nil
	}
	r.s.approvals[approval.ID] = *approval
	return true, nil
}

func (r memApprovalRepo) List(ctx context.Context, filter entity.ApprovalFilter) ([]*entity.ApprovalWithTimeLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ApprovalWithTimeLog
	for _, a := range r.s.approvals {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.ClarificationStatus != nil && a.ClarificationStatus != *filter.ClarificationStatus {
			continue
		}
		log := r.s.timeLogs[a.TimeLogID]
		if filter.EmployeeID != "" && log.EmployeeID != filter.EmployeeID {
			continue
		}
		out = append(out, &entity.ApprovalWithTimeLog{Approval: a, TimeLog: log})
	}
	return out, nil
}

func (r memHistoryRepo) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	r.s.history = append(r.s.history, *history)
	return nil
}

func (r memHistoryRepo) ListByApprovalID(ctx context.Context, approvalID string) ([]*entity.ApprovalHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.ApprovalHistory
	for _, h := range r.s.history {
		if h.ApprovalID == approvalID {
			entry := h
			out = append(out, &entry)
		}
	}
	return out, nil
}

func (s *memoryStore) approvalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.approvals)
}

func (s *memoryStore) timeLogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timeLogs)
}

func (s *memoryStore) historyFor(approvalID string) []entity.ApprovalHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.ApprovalHistory
	for _, h := range s.history {
		if h.ApprovalID == approvalID {
			out = append(out, h)
		}
	}
	return out
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
