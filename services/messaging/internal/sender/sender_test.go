package sender

import (
	"context"
	"testing"
	"time"

	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/services/messaging/internal/entity"
	"studyspot/services/messaging/internal/repo/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	cache.NotificationStore
	pushed []*entity.Notification
}

func (s *recordingStore) Push(ctx context.Context, n *entity.Notification) error {
	s.pushed = append(s.pushed, n)
	return nil
}

func TestInAppSender(t *testing.T) {
	store := &recordingStore{}
	s := NewInAppSender(store)
	s.now = func() time.Time { return time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC) }

	msg := &entity.Message{ID: "m1", Channel: models.ChannelInApp, Body: "Wi-Fi is back"}
	require.NoError(t, s.Send(context.Background(), msg, &entity.Recipient{UserID: "s1"}))

	require.Len(t, store.pushed, 1)
	n := store.pushed[0]
	assert.Equal(t, "s1", n.UserID)
	assert.Equal(t, "New message", n.Title)
	assert.Equal(t, "Wi-Fi is back", n.Message)
	assert.Equal(t, entity.NotificationMessage, n.Type)
	assert.Equal(t, "m1", n.Data["message_id"])
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(models.ChannelSMS, logger.New())
	msg := &entity.Message{ID: "m1", Body: "hello"}

	assert.NoError(t, s.Send(context.Background(), msg, &entity.Recipient{UserID: "s1", Address: "+919800000001"}))
	assert.ErrorIs(t, s.Send(context.Background(), msg, &entity.Recipient{UserID: "s2"}), ErrNoAddress)
}
