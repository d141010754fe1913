package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/analytics/internal/entity"
	"studyspot/services/analytics/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAnalyticsRepository struct {
	mock.Mock
}

var _ persistent.AnalyticsRepository = (*MockAnalyticsRepository)(nil)

func (m *MockAnalyticsRepository) Dashboard(ctx context.Context, tenantID string, now, monthStart time.Time) (*entity.Dashboard, error) {
	args := m.Called(tenantID, now, monthStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Dashboard), args.Error(1)
}

func (m *MockAnalyticsRepository) Revenue(ctx context.Context, tenantID string, from, to time.Time, granularity, timezone string) ([]entity.RevenuePoint, error) {
	args := m.Called(tenantID, from, to, granularity, timezone)
	return args.Get(0).([]entity.RevenuePoint), args.Error(1)
}

func (m *MockAnalyticsRepository) LibraryExists(ctx context.Context, tenantID, libraryID string) (bool, error) {
	args := m.Called(tenantID, libraryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnalyticsRepository) LibrarySeats(ctx context.Context, tenantID, libraryID string) (int64, error) {
	args := m.Called(tenantID, libraryID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnalyticsRepository) HourlyOccupancy(ctx context.Context, tenantID, libraryID string, dayStart time.Time) ([]int64, error) {
	args := m.Called(tenantID, libraryID, dayStart)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAnalyticsRepository) Platform(ctx context.Context, monthStart time.Time) (*entity.PlatformOverview, []entity.PlanCount, error) {
	args := m.Called(monthStart)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*entity.PlatformOverview), args.Get(1).([]entity.PlanCount), args.Error(2)
}

// memoryCache stores JSON like the redis cache does.
type memoryCache struct {
	items   map[string][]byte
	readErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	if c.readErr != nil {
		return false, c.readErr
	}
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

var (
	fixedNow = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	owner    = roles.Actor{UserID: "o1", Role: roles.LibraryOwner, TenantID: "t1"}
	admin    = roles.Actor{UserID: "a1", Role: roles.PlatformAdmin}
)

type analyticsFixture struct {
	repo  *MockAnalyticsRepository
	cache *memoryCache
	uc    *analyticsUseCase
}

func newAnalyticsFixture() *analyticsFixture {
	f := &analyticsFixture{repo: new(MockAnalyticsRepository), cache: newMemoryCache()}
	f.uc = NewAnalyticsUseCase(f.repo, f.cache, logger.New()).(*analyticsUseCase)
	f.uc.now = func() time.Time { return fixedNow }
	return f
}

func (f *analyticsFixture) day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, f.uc.loc)
}

func TestDashboard_ComputesOccupancyAndCaches(t *testing.T) {
	f := newAnalyticsFixture()

	f.repo.On("Dashboard", "t1", fixedNow, f.day(2026, 4, 1)).Return(&entity.Dashboard{
		TenantID: "t1", Seats: 80, OccupiedSeats: 60, RevenueThisMonth: 450000,
	}, nil).Once()

	d, err := f.uc.Dashboard(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, float64(75), d.OccupancyPercent)

	again, err := f.uc.Dashboard(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(450000), again.RevenueThisMonth)
	f.repo.AssertNumberOfCalls(t, "Dashboard", 1)
}

func TestDashboard_RequiresTenant(t *testing.T) {
	f := newAnalyticsFixture()

	_, err := f.uc.Dashboard(context.Background(), admin)
	assert.True(t, apperror.IsCode(err, apperror.CodeBadRequest))
}

func TestDashboard_CacheErrorFallsBackToDatabase(t *testing.T) {
	f := newAnalyticsFixture()
	f.cache.readErr = errors.New("redis down")

	f.repo.On("Dashboard", "t1", fixedNow, f.day(2026, 4, 1)).Return(&entity.Dashboard{TenantID: "t1"}, nil)

	_, err := f.uc.Dashboard(context.Background(), owner)
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestRevenue_DefaultsToLastThirtyDays(t *testing.T) {
	f := newAnalyticsFixture()
	from, to := f.day(2026, 3, 12), f.day(2026, 4, 10)

	f.repo.On("Revenue", "t1", from, to.AddDate(0, 0, 1), entity.GranularityDay, f.uc.loc.String()).
		Return([]entity.RevenuePoint{{Period: "2026-04-01", Collected: 10000, Refunded: 2000}}, nil)

	report, err := f.uc.Revenue(context.Background(), owner, RevenueQuery{})
	require.NoError(t, err)

	assert.Equal(t, "2026-03-12", report.From)
	assert.Equal(t, "2026-04-10", report.To)
	assert.Len(t, report.Points, 30)
	assert.Equal(t, entity.RevenuePoint{Period: "total", Collected: 10000, Refunded: 2000, Net: 8000}, report.Total)
}

func TestRevenue_Monthly(t *testing.T) {
	f := newAnalyticsFixture()
	from, to := f.day(2026, 1, 1), f.day(2026, 3, 31)

	f.repo.On("Revenue", "t1", from, to.AddDate(0, 0, 1), entity.GranularityMonth, f.uc.loc.String()).
		Return([]entity.RevenuePoint{{Period: "2026-02", Collected: 500}}, nil)

	report, err := f.uc.Revenue(context.Background(), owner, RevenueQuery{From: "2026-01-01", To: "2026-03-31", Granularity: "month"})
	require.NoError(t, err)

	require.Len(t, report.Points, 3)
	assert.Equal(t, int64(500), report.Points[1].Net)
}

func TestRevenue_Validation(t *testing.T) {
	f := newAnalyticsFixture()
	ctx := context.Background()

	cases := []RevenueQuery{
		{Granularity: "week"},
		{From: "2026/01/01"},
		{From: "2026-04-10", To: "2026-04-01"},
		{From: "2025-01-01", To: "2026-01-02"},
	}
	for _, q := range cases {
		_, err := f.uc.Revenue(ctx, owner, q)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "%+v", q)
	}

	// 366 days inclusive is allowed.
	f.repo.On("Revenue", "t1", mock.Anything, mock.Anything, entity.GranularityMonth, mock.Anything).Return([]entity.RevenuePoint{}, nil)
	_, err := f.uc.Revenue(ctx, owner, RevenueQuery{From: "2024-01-01", To: "2024-12-31", Granularity: "month"})
	assert.NoError(t, err)
}

func TestOccupancy(t *testing.T) {
	f := newAnalyticsFixture()
	ctx := context.Background()
	hourly := make([]int64, 24)
	hourly[10] = 25

	f.repo.On("LibraryExists", "t1", "lib-1").Return(true, nil)
	f.repo.On("LibraryExists", "t1", "lib-x").Return(false, nil)
	f.repo.On("LibrarySeats", "t1", "lib-1").Return(int64(50), nil)
	f.repo.On("HourlyOccupancy", "t1", "lib-1", f.day(2026, 4, 9)).Return(hourly, nil)

	report, err := f.uc.Occupancy(ctx, owner, "lib-1", "2026-04-09")
	require.NoError(t, err)
	assert.Equal(t, 10, report.PeakHour)
	assert.Equal(t, float64(50), report.Hours[10].Percent)

	_, err = f.uc.Occupancy(ctx, owner, "lib-x", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))

	_, err = f.uc.Occupancy(ctx, owner, "", "")
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestPlatform(t *testing.T) {
	f := newAnalyticsFixture()
	ctx := context.Background()

	_, err := f.uc.Platform(ctx, owner)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	f.repo.On("Platform", f.day(2026, 4, 1)).Return(
		&entity.PlatformOverview{TenantsByStatus: map[string]int64{"active": 4, "suspended": 1}, OverdueInvoices: 2},
		[]entity.PlanCount{
			{Price: 99900, BillingPeriod: models.BillingMonth, Subscriptions: 3},
			{Price: 1200000, BillingPeriod: models.BillingYear, Subscriptions: 1},
		}, nil)

	overview, err := f.uc.Platform(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(4), overview.ActiveSubscriptions)
	assert.Equal(t, int64(3*99900+100000), overview.MRR)
	assert.Equal(t, int64(4), overview.TenantsByStatus["active"])
}
