package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

// TimeLogService manages the open time log an employee edits before submitting
type TimeLogService interface {
	ClockIn(ctx context.Context, employeeID, organizationID string) (*entity.TimeLog, error)
	ClockOut(ctx context.Context, employeeID string, status entity.TimeLogStatus) (*entity.TimeLog, error)
	SaveDraft(ctx context.Context, employeeID, organizationID string, draft entity.Draft) (*entity.TimeLog, error)
	GetTimeLog(ctx context.Context, employeeID, timeLogID string) (*entity.TimeLog, error)
	// CloseStaleTimeLogs clocks out logs from earlier days that were left open
	CloseStaleTimeLogs(ctx context.Context, maxShift time.Duration, limit int) (int, error)
}

type timeLogServiceImpl struct {
	timeLogs port.TimeLogRepository
	resolver *openLogResolver
	opts     TimesheetOptions
	logger   Logger
}

// NewTimeLogService creates a new TimeLogService
func NewTimeLogService(timeLogs port.TimeLogRepository, opts TimesheetOptions, logger Logger) TimeLogService {
	opts = opts.withDefaults()
	return &timeLogServiceImpl{
		timeLogs: timeLogs,
		resolver: newOpenLogResolver(timeLogs, opts),
		opts:     opts,
		logger:   logger,
	}
}

// ClockIn opens today's time log. Clocking in twice keeps the first clock-in time.
func (s *timeLogServiceImpl) ClockIn(ctx context.Context, employeeID, organizationID string) (*entity.TimeLog, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, entity.ErrAuthenticationMissing
	}

	now := s.opts.now()
	log, created, err := s.resolver.findOrCreate(ctx, employeeID, s.opts.today(), func() *entity.TimeLog {
		return &entity.TimeLog{
			EmployeeID:     employeeID,
			OrganizationID: organizationID,
			Date:           now.Format(entity.DateLayout),
			ClockInTime:    &now,
			Status:         entity.TimeLogStatusNormal,
		}
	})
	if err != nil {
		s.logger.Error("Failed to clock in", "error", err, "employee_id", employeeID)
		return nil, err
	}

	if !created && log.ClockInTime == nil {
		log.ClockInTime = &now
		if err := s.update(ctx, log); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Clocked in", "employee_id", employeeID, "time_log_id", log.ID, "created", created)
	return log, nil
}

// ClockOut closes today's open time log and derives its duration
func (s *timeLogServiceImpl) ClockOut(ctx context.Context, employeeID string, status entity.TimeLogStatus) (*entity.TimeLog, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, entity.ErrAuthenticationMissing
	}
	if status == "" {
		status = entity.TimeLogStatusNormal
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown clock-out status %q", status)
	}

	readCtx, cancel := withStoreTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	log, err := s.timeLogs.FindOpen(readCtx, employeeID, s.opts.today())
	if err != nil {
		return nil, storeError(fmt.Errorf("find open time log: %w", err))
	}
	if log == nil {
		return nil, entity.ErrTimeLogNotFound
	}

	now := s.opts.now()
	log.ClockOutTime = &now
	log.Status = status
	log.DeriveDuration()
	if log.DurationMinutes != nil && log.TotalWorkingHours == 0 {
		log.TotalWorkingHours = float64(*log.DurationMinutes) / 60
	}

	if err := s.update(ctx, log); err != nil {
		return nil, err
	}

	s.logger.Info("Clocked out", "employee_id", employeeID, "time_log_id", log.ID, "status", status)
	return log, nil
}

// SaveDraft stores the draft payload on today's open time log without submitting it
func (s *timeLogServiceImpl) SaveDraft(ctx context.Context, employeeID, organizationID string, draft entity.Draft) (*entity.TimeLog, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, entity.ErrAuthenticationMissing
	}

	now := s.opts.now()
	log, created, err := s.resolver.findOrCreate(ctx, employeeID, s.opts.today(), func() *entity.TimeLog {
		log := &entity.TimeLog{
			EmployeeID:     employeeID,
			OrganizationID: organizationID,
			Date:           now.Format(entity.DateLayout),
			Status:         entity.TimeLogStatusNormal,
		}
		applyDraft(log, draft)
		return log
	})
	if err != nil {
		s.logger.Error("Failed to save draft", "error", err, "employee_id", employeeID)
		return nil, err
	}

	if !created {
		applyDraft(log, draft)
		if err := s.update(ctx, log); err != nil {
			return nil, err
		}
	}

	return log, nil
}

// GetTimeLog loads a time log owned by employeeID
func (s *timeLogServiceImpl) GetTimeLog(ctx context.Context, employeeID, timeLogID string) (*entity.TimeLog, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, entity.ErrAuthenticationMissing
	}
	return s.resolver.byID(ctx, employeeID, timeLogID)
}

// CloseStaleTimeLogs marks forgotten clock-outs as AutoTerminated. The
// clock-out is capped at maxShift after clock-in and never crosses the end
// of the log's own day.
func (s *timeLogServiceImpl) CloseStaleTimeLogs(ctx context.Context, maxShift time.Duration, limit int) (int, error) {
	readCtx, cancel := withStoreTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	stale, err := s.timeLogs.ListUnclosed(readCtx, s.opts.today(), limit)
	if err != nil {
		return 0, storeError(fmt.Errorf("list unclosed time logs: %w", err))
	}

	closed := 0
	for _, log := range stale {
		if err := ctx.Err(); err != nil {
			return closed, err
		}

		clockOut, err := s.autoClockOutTime(log, maxShift)
		if err != nil {
			s.logger.Error("Skipping time log with unparseable date", "time_log_id", log.ID, "date", log.Date, "error", err)
			continue
		}

		log.ClockOutTime = &clockOut
		log.Status = entity.TimeLogStatusAutoTerminated
		log.DeriveDuration()
		if log.DurationMinutes != nil && log.TotalWorkingHours == 0 {
			log.TotalWorkingHours = float64(*log.DurationMinutes) / 60
		}

		if err := s.update(ctx, log); err != nil {
			// submitted between the list and the update
			if errors.Is(err, entity.ErrTimeLogNotFound) {
				continue
			}
			return closed, err
		}
		closed++
		s.logger.Info("Auto clocked out", "employee_id", log.EmployeeID, "time_log_id", log.ID, "date", log.Date)
	}

	return closed, nil
}

func (s *timeLogServiceImpl) autoClockOutTime(log *entity.TimeLog, maxShift time.Duration) (time.Time, error) {
	day, err := time.ParseInLocation(entity.DateLayout, log.Date, s.opts.Location)
	if err != nil {
		return time.Time{}, err
	}
	endOfDay := day.AddDate(0, 0, 1)

	clockOut := log.ClockInTime.Add(maxShift)
	if maxShift <= 0 || clockOut.After(endOfDay) {
		clockOut = endOfDay
	}
	return clockOut.In(s.opts.Location), nil
}

func (s *timeLogServiceImpl) update(ctx context.Context, log *entity.TimeLog) error {
	ctx, cancel := withStoreTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	if err := s.timeLogs.Update(ctx, log); err != nil {
		s.logger.Error("Failed to update time log", "error", err, "time_log_id", log.ID)
		return storeError(fmt.Errorf("update time log: %w", err))
	}
	return nil
}
