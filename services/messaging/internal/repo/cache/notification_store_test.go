package cache

import (
	"context"
	"testing"

	"studyspot/services/messaging/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "notifications:u1", ListKey("u1"))
	assert.Equal(t, "notifications:u1:unread", UnreadKey("u1"))
	assert.Equal(t, ListKey("u1"), ChannelName("u1"))
}

func TestNotificationStore_NilClient(t *testing.T) {
	store := NewNotificationStore(nil)
	ctx := context.Background()

	err := store.Push(ctx, &entity.Notification{UserID: "u1", Title: "hi"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	items, total, unread, err := store.List(ctx, "u1", 20, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.Zero(t, unread)

	assert.NoError(t, store.MarkRead(ctx, "u1"))

	_, _, err = store.Subscribe(ctx, "u1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
