package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/timesheet-workflow/internal/application/dispatcher"
	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
	"github.com/garyjia/timesheet-workflow/internal/domain/event"
	domainwf "github.com/garyjia/timesheet-workflow/internal/domain/workflow"
	"github.com/garyjia/timesheet-workflow/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

const (
	defaultStoreTimeout = 5 * time.Second
	// the first try plus one re-read after a lost compare-and-update
	maxTransitionAttempts = 2
)

// engineImpl is the concrete implementation of ApprovalEngine
type engineImpl struct {
	approvals   port.ApprovalRepository
	timeLogs    port.TimeLogRepository
	historyRepo port.HistoryRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	logger      Logger

	storeTimeout time.Duration
	now          func() time.Time
}

// EngineOption configures the approval engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithStoreTimeout bounds each store round trip
func WithStoreTimeout(d time.Duration) EngineOption {
	return func(e *engineImpl) {
		if d > 0 {
			e.storeTimeout = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new approval engine
func NewEngine(
	approvals port.ApprovalRepository,
	timeLogs port.TimeLogRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...EngineOption,
) ApprovalEngine {
	e := &engineImpl{
		approvals:    approvals,
		timeLogs:     timeLogs,
		historyRepo:  historyRepo,
		txManager:    txManager,
		logger:       logger,
		storeTimeout: defaultStoreTimeout,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// transition describes one reviewer or employee action
type transition struct {
	trigger   domainwf.Trigger
	action    string
	actorID   string
	note      string
	eventType event.Type
	authorize func(ctx context.Context, approval *entity.TimesheetApproval) error
	apply     func(approval *entity.TimesheetApproval, now time.Time)
}

// Approve moves a pending or clarified approval to APPROVED
func (e *engineImpl) Approve(ctx context.Context, approvalID, reviewerID string) (*entity.TimesheetApproval, error) {
	return e.run(ctx, approvalID, transition{
		trigger:   domainwf.TriggerApprove,
		action:    entity.ActionApprove,
		actorID:   reviewerID,
		eventType: event.TypeTimesheetApproved,
		apply: func(a *entity.TimesheetApproval, now time.Time) {
			a.Status = entity.ApprovalStatusApproved
			a.ClarificationStatus = entity.ClarificationNone
			a.RejectionReason = ""
			a.ApprovedAt = &now
			if reviewerID != "" {
				a.ReviewerID = reviewerID
			}
		},
	})
}

// RequestClarification flags the timesheet back to the employee with a reason
func (e *engineImpl) RequestClarification(ctx context.Context, approvalID, reviewerID, reason string) (*entity.TimesheetApproval, error) {
	reason = utils.SanitizeString(reason)
	if reason == "" {
		return nil, entity.ErrEmptyReason
	}

	return e.run(ctx, approvalID, transition{
		trigger:   domainwf.TriggerRequestClarification,
		action:    entity.ActionRequestClarification,
		actorID:   reviewerID,
		note:      reason,
		eventType: event.TypeClarificationRequested,
		apply: func(a *entity.TimesheetApproval, now time.Time) {
			a.ClarificationStatus = entity.ClarificationNeeded
			a.RejectionReason = reason
			if reviewerID != "" {
				a.ReviewerID = reviewerID
			}
		},
	})
}

// SubmitClarification records the employee's response. Only the owner of the
// time log may respond; other employees see ErrApprovalNotFound.
func (e *engineImpl) SubmitClarification(ctx context.Context, approvalID, employeeID, response string) (*entity.TimesheetApproval, error) {
	if employeeID == "" {
		return nil, entity.ErrAuthenticationMissing
	}
	response = utils.SanitizeString(response)
	if response == "" {
		return nil, entity.ErrEmptyResponse
	}

	return e.run(ctx, approvalID, transition{
		trigger:   domainwf.TriggerSubmitClarification,
		action:    entity.ActionSubmitClarification,
		actorID:   employeeID,
		note:      response,
		eventType: event.TypeClarificationSubmitted,
		authorize: func(ctx context.Context, a *entity.TimesheetApproval) error {
			log, err := e.timeLogs.GetByID(ctx, a.TimeLogID)
			if err != nil {
				return fmt.Errorf("get time log: %w", err)
			}
			if log == nil || log.EmployeeID != employeeID {
				return entity.ErrApprovalNotFound
			}
			return nil
		},
		apply: func(a *entity.TimesheetApproval, now time.Time) {
			a.ClarificationStatus = entity.ClarificationSubmitted
			a.ClarificationResponse = response
		},
	})
}

// run loads the approval, fires the trigger on its lifecycle and writes the
// result with a compare-and-update guarded by the observed state. A lost
// update is re-evaluated against the fresh row, so a concurrent approve wins
// over a clarification response deterministically.
func (e *engineImpl) run(ctx context.Context, approvalID string, t transition) (*entity.TimesheetApproval, error) {
	if approvalID == "" {
		return nil, entity.ErrApprovalNotFound
	}

	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		result, applied, err := e.attempt(ctx, approvalID, t)
		if err != nil {
			return nil, err
		}
		if applied {
			return result, nil
		}
		e.logger.Info("Approval changed concurrently, re-evaluating",
			"approval_id", approvalID,
			"trigger", t.trigger.String(),
			"attempt", attempt,
		)
	}

	return nil, fmt.Errorf("%w: approval %s kept changing during %s", entity.ErrStoreUnavailable, approvalID, t.trigger)
}

// attempt performs one read-evaluate-write cycle. It reports applied=false
// when the stored row changed between the read and the write.
func (e *engineImpl) attempt(ctx context.Context, approvalID string, t transition) (*entity.TimesheetApproval, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	current, err := e.approvals.GetByID(ctx, approvalID)
	if err != nil {
		return nil, false, storeError(fmt.Errorf("get approval: %w", err))
	}
	if current == nil {
		return nil, false, entity.ErrApprovalNotFound
	}

	if t.authorize != nil {
		if err := t.authorize(ctx, current); err != nil {
			return nil, false, storeError(err)
		}
	}

	from := domainwf.StateOf(current)
	machine := BuildApprovalStateMachine(from)
	if err := machine.Fire(ctx, t.trigger); err != nil {
		if errors.Is(err, domainwf.ErrInvalidTransition) {
			e.logger.Error("Illegal approval transition",
				"error_kind", "illegal_transition",
				"approval_id", approvalID,
				"from_state", from.String(),
				"trigger", t.trigger.String(),
				"actor_id", t.actorID,
			)
		}
		return nil, false, err
	}

	to := machine.State()
	if to == from {
		e.logger.Info("Approval transition is a no-op", "approval_id", approvalID, "state", from.String(), "trigger", t.trigger.String())
		return current, true, nil
	}

	now := e.now()
	updated := *current
	t.apply(&updated, now)
	updated.UpdatedAt = now
	if err := updated.CheckInvariants(); err != nil {
		return nil, false, fmt.Errorf("approval %s after %s: %w", approvalID, t.trigger, err)
	}

	applied := false
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := e.approvals.CompareAndUpdate(txCtx, &updated, current.Status, current.ClarificationStatus)
		if err != nil {
			return fmt.Errorf("update approval: %w", err)
		}
		if !ok {
			return nil
		}
		applied = true

		history := &entity.ApprovalHistory{
			ApprovalID:    approvalID,
			ActorID:       t.actorID,
			PreviousState: from.String(),
			NewState:      to.String(),
			Action:        t.action,
			Note:          t.note,
			Timestamp:     now,
		}
		if err := e.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to apply approval transition", "error", err, "approval_id", approvalID, "trigger", t.trigger.String())
		return nil, false, storeError(err)
	}
	if !applied {
		return nil, false, nil
	}

	e.logger.Info("Approval transitioned",
		"approval_id", approvalID,
		"from_state", from.String(),
		"to_state", to.String(),
		"actor_id", t.actorID,
	)
	e.publish(ctx, &updated, from, to, t)

	return &updated, true, nil
}

func (e *engineImpl) publish(ctx context.Context, a *entity.TimesheetApproval, from, to domainwf.State, t transition) {
	if e.dispatcher == nil {
		return
	}

	payload := map[string]interface{}{
		event.KeyTimeLogID:     a.TimeLogID,
		event.KeyActorID:       t.actorID,
		event.KeyPreviousState: from.String(),
		event.KeyNewState:      to.String(),
		event.KeyAction:        t.action,
		event.KeyNote:          t.note,
	}
	specific := event.NewEvent(t.eventType, a.ID, payload)
	e.dispatcher.DispatchAsync(ctx, specific)
	e.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeStateChanged, a.ID, payload, specific.CorrelationID))
}

// GetApproval returns an approval with its current lifecycle state
func (e *engineImpl) GetApproval(ctx context.Context, approvalID string) (*entity.TimesheetApproval, domainwf.State, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	approval, err := e.approvals.GetByID(ctx, approvalID)
	if err != nil {
		e.logger.Error("Failed to get approval", "error", err, "approval_id", approvalID)
		return nil, "", storeError(fmt.Errorf("get approval: %w", err))
	}
	if approval == nil {
		return nil, "", entity.ErrApprovalNotFound
	}
	return approval, domainwf.StateOf(approval), nil
}

// ListApprovals returns approvals joined with their time logs
func (e *engineImpl) ListApprovals(ctx context.Context, filter entity.ApprovalFilter) ([]*entity.ApprovalWithTimeLog, error) {
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	rows, err := e.approvals.List(ctx, filter)
	if err != nil {
		e.logger.Error("Failed to list approvals", "error", err)
		return nil, storeError(fmt.Errorf("list approvals: %w", err))
	}
	return rows, nil
}

// History returns the audit trail of an approval, oldest first
func (e *engineImpl) History(ctx context.Context, approvalID string) ([]*entity.ApprovalHistory, error) {
	if _, _, err := e.GetApproval(ctx, approvalID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()

	history, err := e.historyRepo.ListByApprovalID(ctx, approvalID)
	if err != nil {
		e.logger.Error("Failed to list approval history", "error", err, "approval_id", approvalID)
		return nil, storeError(fmt.Errorf("list history: %w", err))
	}
	return history, nil
}

// storeError maps an expired store deadline to ErrStoreUnavailable
func storeError(err error) error {
	if err == nil || errors.Is(err, entity.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}
	return err
}
