package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/garyjia/timesheet-workflow/internal/application/dispatcher"
	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	"github.com/garyjia/timesheet-workflow/internal/domain/event"
	"github.com/garyjia/timesheet-workflow/internal/domain/timesheet"
	"github.com/garyjia/timesheet-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SubmitRequest carries one employee's submission. TimeLogID is optional;
// without it today's open time log is used or created.
type SubmitRequest struct {
	EmployeeID     string
	OrganizationID string
	Draft          entity.Draft
	TimeLogID      string
}

// SubmissionResult reports the submitted time log and its approval
type SubmissionResult struct {
	OK               bool   `json:"ok"`
	TimeLogID        string `json:"timeLogId"`
	ApprovalID       string `json:"approvalId"`
	AlreadySubmitted bool   `json:"alreadySubmitted"`
}

// SubmissionService turns validated drafts into submitted timesheets
type SubmissionService interface {
	ValidateDraft(draft entity.Draft) entity.ValidationResult
	Submit(ctx context.Context, req SubmitRequest) (*SubmissionResult, error)
}

type submissionServiceImpl struct {
	validator   *timesheet.Validator
	timeLogs    port.TimeLogRepository
	approvals   port.ApprovalRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	resolver    *openLogResolver
	opts        TimesheetOptions
	logger      Logger
}

// NewSubmissionService creates a new SubmissionService. dispatcher may be nil.
func NewSubmissionService(
	validator *timesheet.Validator,
	timeLogs port.TimeLogRepository,
	approvals port.ApprovalRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	eventDispatcher dispatcher.Dispatcher,
	opts TimesheetOptions,
	logger Logger,
) SubmissionService {
	opts = opts.withDefaults()
	return &submissionServiceImpl{
		validator:   validator,
		timeLogs:    timeLogs,
		approvals:   approvals,
		historyRepo: historyRepo,
		txManager:   txManager,
		dispatcher:  eventDispatcher,
		resolver:    newOpenLogResolver(timeLogs, opts),
		opts:        opts,
		logger:      logger,
	}
}

// ValidateDraft runs the business rules without touching the store
func (s *submissionServiceImpl) ValidateDraft(draft entity.Draft) entity.ValidationResult {
	return s.validator.Validate(draft)
}

// Submit validates the draft, resolves the time log, marks it submitted and
// creates its pending approval. Submitting an already-submitted time log
// returns OK without creating a second approval.
func (s *submissionServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*SubmissionResult, error) {
	if strings.TrimSpace(req.EmployeeID) == "" {
		return nil, entity.ErrAuthenticationMissing
	}

	if err := s.validator.Validate(req.Draft).Err(); err != nil {
		s.logger.Info("Timesheet draft rejected", "employee_id", req.EmployeeID, "error", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log, release, err := s.resolveTimeLog(ctx, req)
	if err != nil {
		s.logger.Error("Failed to resolve time log", "error", err, "employee_id", req.EmployeeID, "time_log_id", req.TimeLogID)
		return nil, err
	}
	defer release()

	if log.IsSubmitted {
		return s.completeSubmitted(ctx, log, req.EmployeeID)
	}

	applyDraft(log, req.Draft)

	approval, submitted, err := s.markSubmitted(ctx, log, req.EmployeeID)
	if err != nil {
		s.logger.Error("Failed to submit timesheet", "error", err, "employee_id", req.EmployeeID, "time_log_id", log.ID)
		return nil, err
	}
	if !submitted {
		// a concurrent submit won the row
		return s.completeSubmitted(ctx, log, req.EmployeeID)
	}

	s.logger.Info("Timesheet submitted",
		"employee_id", req.EmployeeID,
		"time_log_id", log.ID,
		"approval_id", approval.ID,
		"date", log.Date,
		"hours", log.TotalWorkingHours,
	)
	s.publishSubmitted(ctx, log, approval)

	return &SubmissionResult{OK: true, TimeLogID: log.ID, ApprovalID: approval.ID}, nil
}

// resolveTimeLog loads the time log to submit. Without an explicit id the
// day stays claimed until release is called, so a concurrent submit for the
// same day waits and then finds this one's log.
func (s *submissionServiceImpl) resolveTimeLog(ctx context.Context, req SubmitRequest) (*entity.TimeLog, func(), error) {
	if req.TimeLogID != "" {
		log, err := s.resolver.byID(ctx, req.EmployeeID, req.TimeLogID)
		return log, func() {}, err
	}

	return s.resolver.claimDay(ctx, req.EmployeeID, s.opts.today(), func() *entity.TimeLog {
		return s.newTimeLog(req)
	})
}

func (s *submissionServiceImpl) newTimeLog(req SubmitRequest) *entity.TimeLog {
	now := s.opts.now()
	log := &entity.TimeLog{
		EmployeeID:     req.EmployeeID,
		OrganizationID: req.OrganizationID,
		Date:           now.Format(entity.DateLayout),
		ClockInTime:    &now,
		Status:         entity.TimeLogStatusNormal,
	}
	applyDraft(log, req.Draft)
	return log
}

// applyDraft copies the draft payload onto an unsubmitted time log
func applyDraft(log *entity.TimeLog, draft entity.Draft) {
	log.Notes = draft.Notes()
	log.ProjectTimeData = draft.Allocation()
	log.TotalWorkingHours = draft.EffectiveHours()

	if log.ClockInTime != nil && log.ClockOutTime != nil {
		log.DeriveDuration()
		return
	}
	minutes := entity.HoursToMinutes(log.TotalWorkingHours)
	log.DurationMinutes = &minutes
}

// markSubmitted flips the time log and creates its approval in one transaction.
// It reports false when another writer submitted the row first.
func (s *submissionServiceImpl) markSubmitted(ctx context.Context, log *entity.TimeLog, employeeID string) (*entity.TimesheetApproval, bool, error) {
	// last point where the caller can back out with nothing written
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	// once the transaction begins it runs to commit or rollback on its own deadline
	writeCtx, cancel := withStoreTimeout(context.WithoutCancel(ctx), s.opts.StoreTimeout)
	defer cancel()

	var approval *entity.TimesheetApproval
	submitted := false

	err := s.txManager.WithTransaction(writeCtx, func(txCtx context.Context) error {
		changed, err := s.timeLogs.MarkSubmitted(txCtx, log)
		if err != nil {
			return storeError(fmt.Errorf("mark time log submitted: %w", err))
		}
		if !changed {
			return nil
		}
		submitted = true

		approval, err = s.createApproval(txCtx, log, employeeID)
		if errors.Is(err, entity.ErrDuplicate) {
			// a concurrent retry already completed this submission
			approval, err = s.approvals.GetByTimeLogID(txCtx, log.ID)
			if err == nil && approval == nil {
				err = entity.ErrApprovalNotFound
			}
		}
		if err != nil {
			return fmt.Errorf("%w: %v", entity.ErrSubmissionIncomplete, err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if submitted {
		log.IsSubmitted = true
	}
	return approval, submitted, nil
}

// completeSubmitted makes sure a submitted time log has its approval row.
// It is the idempotent path for repeated submits and the recovery path for
// a submit that stopped after the time log was written.
func (s *submissionServiceImpl) completeSubmitted(ctx context.Context, log *entity.TimeLog, employeeID string) (*SubmissionResult, error) {
	readCtx, cancel := withStoreTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	approval, err := s.approvals.GetByTimeLogID(readCtx, log.ID)
	if err != nil {
		return nil, storeError(fmt.Errorf("get approval: %w", err))
	}
	if approval != nil {
		s.logger.Info("Timesheet already submitted", "time_log_id", log.ID, "approval_id", approval.ID)
		return &SubmissionResult{OK: true, TimeLogID: log.ID, ApprovalID: approval.ID, AlreadySubmitted: true}, nil
	}

	s.logger.Info("Completing submission with missing approval", "time_log_id", log.ID)

	writeCtx, cancelWrite := withStoreTimeout(context.WithoutCancel(ctx), s.opts.StoreTimeout)
	defer cancelWrite()

	err = s.txManager.WithTransaction(writeCtx, func(txCtx context.Context) error {
		var createErr error
		approval, createErr = s.createApproval(txCtx, log, employeeID)
		return createErr
	})
	if errors.Is(err, entity.ErrDuplicate) {
		approval, err = s.approvals.GetByTimeLogID(writeCtx, log.ID)
		if err == nil && approval == nil {
			err = entity.ErrApprovalNotFound
		}
	}
	if err != nil {
		s.logger.Error("Submission left incomplete", "error", err, "time_log_id", log.ID)
		return nil, fmt.Errorf("%w: %v", entity.ErrSubmissionIncomplete, err)
	}

	s.publishSubmitted(ctx, log, approval)
	return &SubmissionResult{OK: true, TimeLogID: log.ID, ApprovalID: approval.ID, AlreadySubmitted: true}, nil
}

// createApproval inserts the pending approval for log and its SUBMIT history entry
func (s *submissionServiceImpl) createApproval(ctx context.Context, log *entity.TimeLog, employeeID string) (*entity.TimesheetApproval, error) {
	machine := workflow.NewApprovalLifecycle().Build(workflow.StateDraft)
	if err := machine.Fire(ctx, workflow.TriggerSubmit); err != nil {
		return nil, err
	}

	now := s.opts.now()
	approval := &entity.TimesheetApproval{
		ID:                  uuid.NewString(),
		TimeLogID:           log.ID,
		Status:              entity.ApprovalStatusPending,
		ClarificationStatus: entity.ClarificationNone,
		SubmittedAt:         now,
		UpdatedAt:           now,
	}
	if err := s.approvals.Create(ctx, approval); err != nil {
		return nil, storeError(fmt.Errorf("create approval: %w", err))
	}

	history := &entity.ApprovalHistory{
		ApprovalID:    approval.ID,
		ActorID:       employeeID,
		PreviousState: workflow.StateDraft.String(),
		NewState:      machine.State().String(),
		Action:        entity.ActionSubmit,
		Timestamp:     now,
	}
	if err := s.historyRepo.Create(ctx, history); err != nil {
		return nil, storeError(fmt.Errorf("create history: %w", err))
	}

	return approval, nil
}

func (s *submissionServiceImpl) publishSubmitted(ctx context.Context, log *entity.TimeLog, approval *entity.TimesheetApproval) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeTimesheetSubmitted, approval.ID, map[string]interface{}{
		event.KeyTimeLogID:  log.ID,
		event.KeyEmployeeID: log.EmployeeID,
		event.KeyDate:       log.Date,
		event.KeyHours:      log.TotalWorkingHours,
		event.KeyNewState:   workflow.StatePending.String(),
	}))
}
