package port

import "context"

// Notifier posts plain-text messages to the review channel
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
