package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

// TimesheetOptions are the settings shared by the timesheet services
type TimesheetOptions struct {
	StoreTimeout time.Duration
	Location     *time.Location
	Now          func() time.Time
}

func (o TimesheetOptions) withDefaults() TimesheetOptions {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o TimesheetOptions) now() time.Time {
	return o.Now().In(o.Location)
}

func (o TimesheetOptions) today() string {
	return o.now().Format(entity.DateLayout)
}

// openLogResolver finds or creates the single open time log of an employee's day
type openLogResolver struct {
	timeLogs port.TimeLogRepository
	locks    *dayLocks
	opts     TimesheetOptions
}

func newOpenLogResolver(timeLogs port.TimeLogRepository, opts TimesheetOptions) *openLogResolver {
	return &openLogResolver{
		timeLogs: timeLogs,
		locks:    newDayLocks(),
		opts:     opts,
	}
}

// byID loads a time log owned by employeeID
func (r *openLogResolver) byID(ctx context.Context, employeeID, timeLogID string) (*entity.TimeLog, error) {
	ctx, cancel := withStoreTimeout(ctx, r.opts.StoreTimeout)
	defer cancel()

	log, err := r.timeLogs.GetByID(ctx, timeLogID)
	if err != nil {
		return nil, storeError(fmt.Errorf("get time log: %w", err))
	}
	if log == nil || log.EmployeeID != employeeID {
		return nil, entity.ErrTimeLogNotFound
	}
	return log, nil
}

// findOrCreate returns the open row for (employeeID, date), creating it from
// newLog when none exists. The per-day lock keeps this process from racing
// itself; the store's unique index catches other writers, in which case the
// winner's row is re-read.
func (r *openLogResolver) findOrCreate(ctx context.Context, employeeID, date string, newLog func() *entity.TimeLog) (*entity.TimeLog, bool, error) {
	unlock := r.locks.lock(employeeID, date)
	defer unlock()

	return r.findOrCreateLocked(ctx, employeeID, date, newLog)
}

// claimDay resolves the day's log like findOrCreate but keeps the per-day
// lock until release is called. A caller that was queued behind the holder
// gets the holder's log back even after it stopped being open.
func (r *openLogResolver) claimDay(ctx context.Context, employeeID, date string, newLog func() *entity.TimeLog) (*entity.TimeLog, func(), error) {
	held := r.locks.hold(employeeID, date)

	var (
		log *entity.TimeLog
		err error
	)
	if id := held.resolved(); id != "" {
		log, err = r.byID(ctx, employeeID, id)
	} else {
		log, _, err = r.findOrCreateLocked(ctx, employeeID, date, newLog)
	}
	if err != nil {
		held.release()
		return nil, nil, err
	}

	held.remember(log.ID)
	return log, held.release, nil
}

func (r *openLogResolver) findOrCreateLocked(ctx context.Context, employeeID, date string, newLog func() *entity.TimeLog) (*entity.TimeLog, bool, error) {
	ctx, cancel := withStoreTimeout(ctx, r.opts.StoreTimeout)
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		existing, err := r.timeLogs.FindOpen(ctx, employeeID, date)
		if err != nil {
			return nil, false, storeError(fmt.Errorf("find open time log: %w", err))
		}
		if existing != nil {
			return existing, false, nil
		}

		log := newLog()
		err = r.timeLogs.Create(ctx, log)
		if err == nil {
			return log, true, nil
		}
		if !errors.Is(err, entity.ErrDuplicate) {
			return nil, false, storeError(fmt.Errorf("create time log: %w", err))
		}
	}
	return nil, false, fmt.Errorf("%w: open time log for %s on %s kept changing", entity.ErrStoreUnavailable, employeeID, date)
}
