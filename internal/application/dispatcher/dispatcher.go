package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/timesheet-workflow/internal/domain/event"
)

// Dispatcher routes approval lifecycle events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler under a generated name
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler under name
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// SubscribeAll registers one named handler for several event types
	SubscribeAll(eventTypes []event.Type, name string, handler Handler)

	// Dispatch runs the handlers in registration order and stops at the first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs the handlers in the background.
	// Handlers outlive the caller's cancellation; Close waits for them.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Stats reports delivery counters
	Stats() Stats

	// Close rejects further events and waits for async handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type eventDispatcher struct {
	mu          sync.RWMutex
	subscribers map[event.Type][]subscriber
	logger      Logger

	handlerTimeout time.Duration
	slots          chan struct{}

	wg     sync.WaitGroup
	closed atomic.Bool

	delivered atomic.Int64
	failed    atomic.Int64
	inFlight  atomic.Int64
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// WithHandlerTimeout bounds every handler call
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *eventDispatcher) {
		d.handlerTimeout = timeout
	}
}

// WithMaxInFlight caps how many async handlers run at once. Excess
// deliveries wait for a free slot in the background.
func WithMaxInFlight(n int) Option {
	return func(d *eventDispatcher) {
		if n > 0 {
			d.slots = make(chan struct{}, n)
		}
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		subscribers: make(map[event.Type][]subscriber),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.Lock()
	name := fmt.Sprintf("handler-%d", len(d.subscribers[eventType]))
	d.mu.Unlock()
	d.SubscribeNamed(eventType, name, handler)
}

func (d *eventDispatcher) SubscribeAll(eventTypes []event.Type, name string, handler Handler) {
	for _, t := range eventTypes {
		d.SubscribeNamed(t, name, handler)
	}
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	d.subscribers[eventType] = append(d.subscribers[eventType], subscriber{
		name:   name,
		handle: handler,
	})
	d.mu.Unlock()

	d.logInfo("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	subs := d.snapshot(evt.Type)
	d.logInfo("Dispatching event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"approval_id", evt.ApprovalID,
		"handler_count", len(subs))

	for _, s := range subs {
		if err := d.deliver(ctx, evt, s); err != nil {
			d.logError("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", s.name,
				"error", err)
			return fmt.Errorf("handler %s failed: %w", s.name, err)
		}
	}
	return nil
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		d.logError("Cannot dispatch async event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID)
		return
	}

	subs := d.snapshot(evt.Type)
	d.logInfo("Dispatching event asynchronously",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"approval_id", evt.ApprovalID,
		"handler_count", len(subs))

	// the triggering request usually returns before handlers finish
	ctx = context.WithoutCancel(ctx)

	for _, s := range subs {
		d.wg.Add(1)
		go func(s subscriber) {
			defer d.wg.Done()
			if d.slots != nil {
				d.slots <- struct{}{}
				defer func() { <-d.slots }()
			}

			if err := d.deliver(ctx, evt, s); err != nil {
				d.logError("Async handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", s.name,
					"error", err)
			}
		}(s)
	}
}

func (d *eventDispatcher) Stats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		InFlight:  d.inFlight.Load(),
	}
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	d.logInfo("Closing dispatcher, waiting for async handlers", "in_flight", d.inFlight.Load())
	d.wg.Wait()
	d.logInfo("Dispatcher closed", "delivered", d.delivered.Load(), "failed", d.failed.Load())
	return nil
}

func (d *eventDispatcher) snapshot(eventType event.Type) []subscriber {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]subscriber(nil), d.subscribers[eventType]...)
}

// deliver runs one handler with the configured timeout and recovers panics
func (d *eventDispatcher) deliver(ctx context.Context, evt *event.Event, s subscriber) (err error) {
	d.inFlight.Add(1)
	defer func() {
		d.inFlight.Add(-1)
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.logError("Handler panic recovered",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", s.name,
				"panic", r)
		}
		if err != nil {
			d.failed.Add(1)
		} else {
			d.delivered.Add(1)
		}
	}()

	if d.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.handlerTimeout)
		defer cancel()
	}
	return s.handle(ctx, evt)
}

func (d *eventDispatcher) logInfo(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, keysAndValues...)
	}
}

func (d *eventDispatcher) logError(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, keysAndValues...)
	}
}
