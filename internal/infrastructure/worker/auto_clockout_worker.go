package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StaleTimeLogCloser clocks out time logs left open on earlier days
type StaleTimeLogCloser interface {
	CloseStaleTimeLogs(ctx context.Context, maxShift time.Duration, limit int) (int, error)
}

// AutoClockOutConfig holds configuration for the auto clock-out worker
type AutoClockOutConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxShift     time.Duration
}

// DefaultAutoClockOutConfig returns default configuration
func DefaultAutoClockOutConfig() AutoClockOutConfig {
	return AutoClockOutConfig{
		PollInterval: time.Minute,
		BatchSize:    50,
		MaxShift:     9 * time.Hour,
	}
}

// AutoClockOutWorker periodically terminates forgotten clock-ins
type AutoClockOutWorker struct {
	config AutoClockOutConfig
	closer StaleTimeLogCloser
	logger *zap.Logger

	mu          sync.RWMutex
	cancel      context.CancelFunc
	done        chan struct{}
	isRunning   bool
	closedCount int
	lastRun     time.Time
	lastError   error
}

// NewAutoClockOutWorker creates a new auto clock-out worker
func NewAutoClockOutWorker(config AutoClockOutConfig, closer StaleTimeLogCloser, logger *zap.Logger) *AutoClockOutWorker {
	defaults := DefaultAutoClockOutConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &AutoClockOutWorker{
		config: config,
		closer: closer,
		logger: logger,
	}
}

// Start begins the sweep loop. The first sweep runs immediately.
func (w *AutoClockOutWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("auto clock-out worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true
	done := w.done
	w.mu.Unlock()

	w.logger.Info("AutoClockOutWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Duration("max_shift", w.config.MaxShift))

	go w.pollLoop(ctx, done)
	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to finish
func (w *AutoClockOutWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.RLock()
	closed := w.closedCount
	w.mu.RUnlock()
	w.logger.Info("AutoClockOutWorker stopped", zap.Int("closed_count", closed))
	return nil
}

// Name returns the worker name for identification
func (w *AutoClockOutWorker) Name() string {
	return "AutoClockOutWorker"
}

// Stats reports how many logs were closed and the outcome of the last sweep
func (w *AutoClockOutWorker) Stats() (closed int, lastRun time.Time, lastErr error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closedCount, w.lastRun, w.lastError
}

func (w *AutoClockOutWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep drains stale logs batch by batch until a short batch comes back
func (w *AutoClockOutWorker) sweep(ctx context.Context) {
	total := 0
	var sweepErr error
	for ctx.Err() == nil {
		closed, err := w.closer.CloseStaleTimeLogs(ctx, w.config.MaxShift, w.config.BatchSize)
		total += closed
		if err != nil {
			if ctx.Err() == nil {
				sweepErr = err
				w.logger.Error("Auto clock-out sweep failed", zap.Error(err))
			}
			break
		}
		if closed < w.config.BatchSize {
			break
		}
	}

	w.mu.Lock()
	w.closedCount += total
	w.lastRun = time.Now()
	w.lastError = sweepErr
	w.mu.Unlock()

	if total > 0 {
		w.logger.Info("Auto clock-out sweep completed", zap.Int("closed", total))
	}
}
