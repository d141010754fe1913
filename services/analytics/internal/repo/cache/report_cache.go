package cache

import (
	"context"
	"strings"
	"time"

	"studyspot/pkg/cache"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 60 * time.Second

// ReportCache holds rendered reports for a short time. A nil redis client
// turns it into a pass-through.
type ReportCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

type reportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &reportCache{client: client, ttl: ttl}
}

// Key is analytics:<report>:<tenant>[:param...]; platform reports use "platform" as tenant.
func Key(report, tenantID string, params ...string) string {
	if tenantID == "" {
		tenantID = "platform"
	}
	parts := append([]string{"analytics", report, tenantID}, params...)
	return strings.Join(parts, ":")
}

func (c *reportCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	return cache.GetJSON(ctx, c.client, key, dst)
}

func (c *reportCache) Set(ctx context.Context, key string, value interface{}) error {
	return cache.SetJSON(ctx, c.client, key, value, c.ttl)
}
