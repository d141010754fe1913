package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "analytics:dashboard:t1", Key("dashboard", "t1"))
	assert.Equal(t, "analytics:revenue:t1:2026-03-01:2026-03-31:day", Key("revenue", "t1", "2026-03-01", "2026-03-31", "day"))
	assert.Equal(t, "analytics:platform:platform", Key("platform", ""))
}

func TestReportCache_NilClientPassesThrough(t *testing.T) {
	c := NewReportCache(nil, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}))

	var out map[string]int
	found, err := c.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, DefaultTTL, c.(*reportCache).ttl)
}
