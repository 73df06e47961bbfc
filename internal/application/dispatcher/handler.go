package dispatcher

import (
	"context"

	"github.com/garyjia/timesheet-workflow/internal/domain/event"
)

// Handler reacts to one approval lifecycle event
type Handler func(ctx context.Context, evt *event.Event) error

type subscriber struct {
	name   string
	handle Handler
}

// Stats counts handler executions since the dispatcher was created
type Stats struct {
	Delivered int64
	Failed    int64
	InFlight  int64
}
