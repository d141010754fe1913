// Package sender delivers a message to one recipient over a channel.
package sender

import (
	"context"
	"errors"
	"time"

	"studyspot/pkg/logger"
	"studyspot/services/messaging/internal/entity"
	"studyspot/services/messaging/internal/repo/cache"
)

var ErrNoAddress = errors.New("recipient has no address for this channel")

type Sender interface {
	Send(ctx context.Context, msg *entity.Message, recipient *entity.Recipient) error
}

// InAppSender stores the message as a notification for the recipient.
type InAppSender struct {
	store cache.NotificationStore
	now   func() time.Time
}

func NewInAppSender(store cache.NotificationStore) *InAppSender {
	return &InAppSender{store: store, now: time.Now}
}

func (s *InAppSender) Send(ctx context.Context, msg *entity.Message, recipient *entity.Recipient) error {
	title := msg.Subject
	if title == "" {
		title = "New message"
	}
	return s.store.Push(ctx, &entity.Notification{
		ID:        msg.ID + ":" + recipient.UserID,
		UserID:    recipient.UserID,
		Title:     title,
		Message:   msg.Body,
		Type:      entity.NotificationMessage,
		Data:      map[string]interface{}{"message_id": msg.ID},
		CreatedAt: s.now().UTC(),
	})
}

// LogSender stands in for an SMS, WhatsApp or email provider.
type LogSender struct {
	channel string
	logger  *logger.Logger
}

func NewLogSender(channel string, logger *logger.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg *entity.Message, recipient *entity.Recipient) error {
	if recipient.Address == "" {
		return ErrNoAddress
	}
	s.logger.Info("[%s] message=%s to=%s bytes=%d", s.channel, msg.ID, recipient.Address, len(msg.Body))
	return nil
}
