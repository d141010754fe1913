package persistent

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These run against a migrated database named by TEST_DATABASE_URL.
func newTestPool(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPlatform_Postgres(t *testing.T) {
	repo := NewAnalyticsRepository(newTestPool(t))

	overview, _, err := repo.Platform(context.Background(), time.Now().AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.NotNil(t, overview.TenantsByStatus)
	assert.GreaterOrEqual(t, overview.PaymentVolume, int64(0))
}

func TestHourlyOccupancy_Postgres(t *testing.T) {
	repo := NewAnalyticsRepository(newTestPool(t))
	ctx := context.Background()

	exists, err := repo.LibraryExists(ctx, "00000000-0000-0000-0000-000000000000", "not-a-uuid")
	require.NoError(t, err)
	assert.False(t, exists)

	hourly, err := repo.HourlyOccupancy(ctx, "00000000-0000-0000-0000-000000000000", "00000000-0000-0000-0000-000000000000", time.Now().Truncate(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, hourly, 24)
}
