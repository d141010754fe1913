package cache

import (
	"context"
	"time"

	"studyspot/pkg/cache"
	"studyspot/services/credit/internal/entity"

	"github.com/redis/go-redis/v9"
)

const BalanceTTL = 5 * time.Minute

type BalanceCache interface {
	Get(ctx context.Context, tenantID string) ([]entity.Balance, bool)
	Set(ctx context.Context, tenantID string, balances []entity.Balance)
	Invalidate(ctx context.Context, tenantID string)
}

type redisBalanceCache struct {
	client *redis.Client
}

// NewBalanceCache returns a cache that always misses when client is nil.
func NewBalanceCache(client *redis.Client) BalanceCache {
	return &redisBalanceCache{client: client}
}

func BalanceKey(tenantID string) string {
	return "credits:" + tenantID
}

// Redis failures read as misses; the database stays the source of truth.
func (c *redisBalanceCache) Get(ctx context.Context, tenantID string) ([]entity.Balance, bool) {
	var balances []entity.Balance
	found, err := cache.GetJSON(ctx, c.client, BalanceKey(tenantID), &balances)
	if err != nil || !found {
		return nil, false
	}
	return balances, true
}

func (c *redisBalanceCache) Set(ctx context.Context, tenantID string, balances []entity.Balance) {
	_ = cache.SetJSON(ctx, c.client, BalanceKey(tenantID), balances, BalanceTTL)
}

func (c *redisBalanceCache) Invalidate(ctx context.Context, tenantID string) {
	_ = cache.Delete(ctx, c.client, BalanceKey(tenantID))
}
