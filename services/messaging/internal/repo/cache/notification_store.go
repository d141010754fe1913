package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studyspot/services/messaging/internal/entity"

	"github.com/redis/go-redis/v9"
)

const (
	// MaxNotifications is the length a user's list is trimmed to on every push.
	MaxNotifications = 200
	NotificationTTL  = 30 * 24 * time.Hour
)

var ErrStoreUnavailable = errors.New("notification store unavailable")

type NotificationStore interface {
	Push(ctx context.Context, n *entity.Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, int64, error)
	MarkRead(ctx context.Context, userID string) error
	// Subscribe streams raw notification JSON published for userID until stop is called.
	Subscribe(ctx context.Context, userID string) (<-chan string, func(), error)
}

type redisNotificationStore struct {
	client *redis.Client
}

func NewNotificationStore(client *redis.Client) NotificationStore {
	return &redisNotificationStore{client: client}
}

func ListKey(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

func UnreadKey(userID string) string {
	return fmt.Sprintf("notifications:%s:unread", userID)
}

// ChannelName is the pub/sub channel websocket clients of userID listen on.
func ChannelName(userID string) string {
	return ListKey(userID)
}

func (s *redisNotificationStore) Push(ctx context.Context, n *entity.Notification) error {
	if s.client == nil {
		return ErrStoreUnavailable
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	listKey := ListKey(n.UserID)
	unreadKey := UnreadKey(n.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, listKey, payload)
		pipe.LTrim(ctx, listKey, 0, MaxNotifications-1)
		pipe.Expire(ctx, listKey, NotificationTTL)
		pipe.Incr(ctx, unreadKey)
		pipe.Expire(ctx, unreadKey, NotificationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if err := s.client.Publish(ctx, ChannelName(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (s *redisNotificationStore) List(ctx context.Context, userID string, limit, offset int) ([]entity.Notification, int64, int64, error) {
	if s.client == nil {
		return []entity.Notification{}, 0, 0, nil
	}
	listKey := ListKey(userID)

	raw, err := s.client.LRange(ctx, listKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get notifications: %w", err)
	}

	notifications := make([]entity.Notification, 0, len(raw))
	for _, item := range raw {
		var n entity.Notification
		if err := json.Unmarshal([]byte(item), &n); err == nil {
			notifications = append(notifications, n)
		}
	}

	total, err := s.client.LLen(ctx, listKey).Result()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	unread, err := s.client.Get(ctx, UnreadKey(userID)).Int64()
	if err != nil && err != redis.Nil {
		return nil, 0, 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	if unread > total {
		unread = total
	}

	return notifications, total, unread, nil
}

func (s *redisNotificationStore) MarkRead(ctx context.Context, userID string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, UnreadKey(userID)).Err()
}

func (s *redisNotificationStore) Subscribe(ctx context.Context, userID string) (<-chan string, func(), error) {
	if s.client == nil {
		return nil, nil, ErrStoreUnavailable
	}

	pubsub := s.client.Subscribe(ctx, ChannelName(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		pubsub.Close()
	}
	return out, stop, nil
}
