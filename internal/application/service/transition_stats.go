package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/garyjia/timesheet-workflow/internal/application/dispatcher"
	"github.com/garyjia/timesheet-workflow/internal/domain/event"
)

const transitionStatsHandlerName = "transition_stats"

// TransitionStats counts approval state changes per "FROM->TO" edge
type TransitionStats struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewTransitionStats creates an empty counter
func NewTransitionStats() *TransitionStats {
	return &TransitionStats{counts: make(map[string]int64)}
}

// Register subscribes the counter to approval.state_changed
func (s *TransitionStats) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeStateChanged, transitionStatsHandlerName, s.HandleEvent)
}

// HandleEvent records one transition. Events without both states are skipped.
func (s *TransitionStats) HandleEvent(ctx context.Context, evt *event.Event) error {
	from := evt.GetPayloadString(event.KeyPreviousState)
	to := evt.GetPayloadString(event.KeyNewState)
	if from == "" || to == "" {
		return nil
	}

	s.mu.Lock()
	s.counts[from+"->"+to]++
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the counters
func (s *TransitionStats) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// String renders the counters sorted by edge, e.g. "PENDING->APPROVED=2"
func (s *TransitionStats) String() string {
	counts := s.Snapshot()
	if len(counts) == 0 {
		return "no transitions"
	}

	edges := make([]string, 0, len(counts))
	for edge := range counts {
		edges = append(edges, edge)
	}
	sort.Strings(edges)

	parts := make([]string, len(edges))
	for i, edge := range edges {
		parts[i] = fmt.Sprintf("%s=%d", edge, counts[edge])
	}
	return strings.Join(parts, " ")
}
