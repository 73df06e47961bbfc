package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCloser struct {
	mu      sync.Mutex
	calls   int
	results []int
	err     error
	limits  []int
}

func (m *mockCloser) CloseStaleTimeLogs(ctx context.Context, maxShift time.Duration, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.limits = append(m.limits, limit)
	if m.err != nil {
		return 0, m.err
	}
	if len(m.results) == 0 {
		return 0, nil
	}
	n := m.results[0]
	m.results = m.results[1:]
	return n, nil
}

func (m *mockCloser) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestAutoClockOutWorker_SweepsImmediatelyAndDrainsBatches(t *testing.T) {
	closer := &mockCloser{results: []int{2, 2, 1}}
	w := NewAutoClockOutWorker(AutoClockOutConfig{PollInterval: time.Hour, BatchSize: 2}, closer, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool {
		closed, lastRun, _ := w.Stats()
		return closed == 5 && !lastRun.IsZero()
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Equal(t, 3, closer.callCount())
	assert.Equal(t, []int{2, 2, 2}, closer.limits)
}

func TestAutoClockOutWorker_RecordsSweepError(t *testing.T) {
	closer := &mockCloser{err: errors.New("store unavailable")}
	w := NewAutoClockOutWorker(AutoClockOutConfig{PollInterval: time.Hour}, closer, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool {
		_, _, err := w.Stats()
		return err != nil
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Equal(t, 1, closer.callCount())
}

func TestAutoClockOutWorker_Lifecycle(t *testing.T) {
	w := NewAutoClockOutWorker(AutoClockOutConfig{}, &mockCloser{}, zap.NewNop())
	assert.Equal(t, DefaultAutoClockOutConfig().BatchSize, w.config.BatchSize)
	assert.Equal(t, "AutoClockOutWorker", w.Name())

	assert.NoError(t, w.Stop())
	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestAutoClockOutWorker_PollsOnInterval(t *testing.T) {
	closer := &mockCloser{}
	w := NewAutoClockOutWorker(AutoClockOutConfig{PollInterval: 10 * time.Millisecond, BatchSize: 5}, closer, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool { return closer.callCount() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	calls := closer.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, closer.callCount())
}

type stubWorker struct {
	name     string
	startErr error
	started  bool
	stopped  bool
}

func (s *stubWorker) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *stubWorker) Stop() error {
	s.stopped = true
	return nil
}

func (s *stubWorker) Name() string { return s.name }

func TestWorkerManager_StartStop(t *testing.T) {
	m := NewWorkerManager(zap.NewNop())
	ok := &stubWorker{name: "ok"}
	broken := &stubWorker{name: "broken", startErr: errors.New("boom")}
	m.Register(ok)
	m.Register(broken)
	assert.Equal(t, 2, m.GetWorkerCount())
	assert.Len(t, m.Workers(), 2)

	err := m.StartAll(context.Background())
	assert.Error(t, err)
	assert.True(t, m.IsRunning())
	assert.True(t, ok.started)
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.True(t, ok.stopped)
	assert.NoError(t, m.StopAll())
}
