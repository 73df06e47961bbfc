package service

import (
	"context"
	"fmt"

	"github.com/garyjia/timesheet-workflow/internal/application/dispatcher"
	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/domain/event"
)

// notificationHandlerName identifies the notification subscription on the dispatcher
const notificationHandlerName = "review_chat_notifier"

// notifiedEvents are the lifecycle events announced to reviewers
var notifiedEvents = []event.Type{
	event.TypeTimesheetSubmitted,
	event.TypeTimesheetApproved,
	event.TypeClarificationRequested,
	event.TypeClarificationSubmitted,
}

// NotificationService turns timesheet lifecycle events into chat messages
type NotificationService interface {
	HandleEvent(ctx context.Context, evt *event.Event) error
	Register(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	notifier port.Notifier
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifier port.Notifier, logger Logger) NotificationService {
	return &notificationServiceImpl{
		notifier: notifier,
		logger:   logger,
	}
}

// Register subscribes the service to every notified event type
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeAll(notifiedEvents, notificationHandlerName, s.HandleEvent)
}

// HandleEvent formats evt and sends it. Event types without a message are ignored.
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	text, ok := FormatEventMessage(evt)
	if !ok {
		return nil
	}

	if err := s.notifier.Notify(ctx, text); err != nil {
		s.logger.Error("Failed to send notification", "error", err, "event_type", evt.Type, "approval_id", evt.ApprovalID)
		return fmt.Errorf("send notification: %w", err)
	}

	s.logger.Info("Notification sent", "event_type", evt.Type, "approval_id", evt.ApprovalID)
	return nil
}

// FormatEventMessage renders the chat text for a lifecycle event
func FormatEventMessage(evt *event.Event) (string, bool) {
	if evt == nil {
		return "", false
	}

	actor := evt.GetPayloadString(event.KeyActorID)
	if actor == "" {
		actor = "unknown"
	}

	switch evt.Type {
	case event.TypeTimesheetSubmitted:
		hours := evt.GetPayloadFloat(event.KeyHours)
		return fmt.Sprintf("Timesheet submitted by %s for %s (%.2f h). Approval %s is pending review.",
			evt.GetPayloadString(event.KeyEmployeeID), evt.GetPayloadString(event.KeyDate), hours, evt.ApprovalID), true
	case event.TypeTimesheetApproved:
		return fmt.Sprintf("Timesheet approval %s approved by %s.", evt.ApprovalID, actor), true
	case event.TypeClarificationRequested:
		return fmt.Sprintf("Clarification requested on approval %s by %s: %s",
			evt.ApprovalID, actor, evt.GetPayloadString(event.KeyNote)), true
	case event.TypeClarificationSubmitted:
		return fmt.Sprintf("Clarification submitted on approval %s by %s: %s",
			evt.ApprovalID, actor, evt.GetPayloadString(event.KeyNote)), true
	}
	return "", false
}
