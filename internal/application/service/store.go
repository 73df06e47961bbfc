package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/timesheet-workflow/internal/domain/entity"
)

// DefaultStoreTimeout bounds every store round trip
const DefaultStoreTimeout = 5 * time.Second

func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, d)
}

// storeError maps an expired store deadline to ErrStoreUnavailable.
// Caller cancellation is returned unchanged.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, entity.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}
	return err
}

// dayLocks serializes work on the open time log per (employee, date)
type dayLocks struct {
	mu    sync.Mutex
	locks map[string]*dayLock
}

type dayLock struct {
	mu   sync.Mutex
	refs int
	// timeLogID is the log resolved by the current holder; queued callers
	// reuse it. Guarded by mu and dropped with the entry.
	timeLogID string
}

func newDayLocks() *dayLocks {
	return &dayLocks{locks: make(map[string]*dayLock)}
}

// heldDay is an acquired per-day lock
type heldDay struct {
	lock    *dayLock
	release func()
}

func (h *heldDay) resolved() string   { return h.lock.timeLogID }
func (h *heldDay) remember(id string) { h.lock.timeLogID = id }

// hold blocks until the key is free
func (d *dayLocks) hold(employeeID, date string) *heldDay {
	key := employeeID + "|" + date

	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &dayLock{}
		d.locks[key] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()

	return &heldDay{lock: l, release: func() {
		l.mu.Unlock()

		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, key)
		}
		d.mu.Unlock()
	}}
}

// lock blocks until the key is free and returns its release func
func (d *dayLocks) lock(employeeID, date string) func() {
	return d.hold(employeeID, date).release
}
