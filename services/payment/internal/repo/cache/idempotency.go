package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studyspot/pkg/cache"

	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyTTL = 24 * time.Hour
	// ReservationTTL bounds how long a crashed request can block its key.
	ReservationTTL = 30 * time.Second

	pendingMarker = "pending"
)

var ErrRequestInFlight = errors.New("idempotent request still in flight")

// IdempotencyStore remembers the first response produced for a client key.
type IdempotencyStore interface {
	// Reserve claims key for the caller. It returns false when another
	// request already holds or has completed the key.
	Reserve(ctx context.Context, tenantID, key string) (bool, error)
	// Lookup returns ErrRequestInFlight while the key is only reserved.
	Lookup(ctx context.Context, tenantID, key string, dst interface{}) (bool, error)
	Remember(ctx context.Context, tenantID, key string, value interface{}) error
	Release(ctx context.Context, tenantID, key string) error
}

type redisIdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore returns a store that always reserves and never hits when client is nil.
func NewIdempotencyStore(client *redis.Client) IdempotencyStore {
	return &redisIdempotencyStore{client: client}
}

func IdempotencyKey(tenantID, key string) string {
	return fmt.Sprintf("idempotency:payment:%s:%s", tenantID, key)
}

func (s *redisIdempotencyStore) Reserve(ctx context.Context, tenantID, key string) (bool, error) {
	if s.client == nil {
		return true, nil
	}
	return s.client.SetNX(ctx, IdempotencyKey(tenantID, key), pendingMarker, ReservationTTL).Result()
}

func (s *redisIdempotencyStore) Lookup(ctx context.Context, tenantID, key string, dst interface{}) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	raw, err := s.client.Get(ctx, IdempotencyKey(tenantID, key)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if raw == pendingMarker {
		return false, ErrRequestInFlight
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisIdempotencyStore) Remember(ctx context.Context, tenantID, key string, value interface{}) error {
	return cache.SetJSON(ctx, s.client, IdempotencyKey(tenantID, key), value, IdempotencyTTL)
}

func (s *redisIdempotencyStore) Release(ctx context.Context, tenantID, key string) error {
	return cache.Delete(ctx, s.client, IdempotencyKey(tenantID, key))
}
