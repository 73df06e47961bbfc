package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-workflow/internal/application/port"
)

const (
	receiveIDTypeChat = "chat_id"
	msgTypeText       = "text"
)

// createMessageFunc matches the SDK's Im.Message.Create
type createMessageFunc func(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)

// Messenger posts text messages to the review chat. Implements port.Notifier.
type Messenger struct {
	create createMessageFunc
	chatID string
	logger *zap.Logger
}

// NewMessenger creates a messenger bound to the client's review chat
func NewMessenger(client *SDKClient, logger *zap.Logger) *Messenger {
	return &Messenger{
		create: client.GetClient().Im.Message.Create,
		chatID: client.ReviewChatID(),
		logger: logger,
	}
}

// Notify sends text to the review chat
func (m *Messenger) Notify(ctx context.Context, text string) error {
	if m.chatID == "" {
		return fmt.Errorf("review chat id cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("content cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal text content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDTypeChat).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(m.chatID).
			MsgType(msgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := m.create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message", zap.String("chat_id", m.chatID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("chat_id", m.chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Debug("Message sent", zap.String("message_id", messageID), zap.String("chat_id", m.chatID))
	return nil
}

// NoopNotifier drops notifications when no chat is configured
type NoopNotifier struct {
	logger *zap.Logger
}

// NewNoopNotifier creates a notifier that only logs
func NewNoopNotifier(logger *zap.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

// Notify logs and discards text
func (n *NoopNotifier) Notify(ctx context.Context, text string) error {
	n.logger.Debug("Notification skipped, Lark not configured", zap.String("text", text))
	return nil
}

// Verify interface compliance
var (
	_ port.Notifier = (*Messenger)(nil)
	_ port.Notifier = (*NoopNotifier)(nil)
)
