package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/pricing"
	"studyspot/pkg/roles"
	"studyspot/services/analytics/internal/entity"
	reportCache "studyspot/services/analytics/internal/repo/cache"
	"studyspot/services/analytics/internal/repo/persistent"
)

const (
	dateLayout     = "2006-01-02"
	ReportTimezone = "Asia/Kolkata"
)

type RevenueQuery struct {
	From        string
	To          string
	Granularity string
}

type AnalyticsUseCase interface {
	Dashboard(ctx context.Context, actor roles.Actor) (*entity.Dashboard, error)
	Revenue(ctx context.Context, actor roles.Actor, query RevenueQuery) (*entity.RevenueReport, error)
	Occupancy(ctx context.Context, actor roles.Actor, libraryID, date string) (*entity.OccupancyReport, error)
	Platform(ctx context.Context, actor roles.Actor) (*entity.PlatformOverview, error)
}

type analyticsUseCase struct {
	analyticsRepo persistent.AnalyticsRepository
	cache         reportCache.ReportCache
	loc           *time.Location
	logger        *logger.Logger
	now           func() time.Time
}

func NewAnalyticsUseCase(analyticsRepo persistent.AnalyticsRepository, cache reportCache.ReportCache, logger *logger.Logger) AnalyticsUseCase {
	loc, err := time.LoadLocation(ReportTimezone)
	if err != nil {
		logger.Warn("Timezone %s unavailable, reporting in UTC: %v", ReportTimezone, err)
		loc = time.UTC
	}
	return &analyticsUseCase{
		analyticsRepo: analyticsRepo,
		cache:         cache,
		loc:           loc,
		logger:        logger,
		now:           time.Now,
	}
}

// cached serves key from the report cache or computes and stores it.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, uc *analyticsUseCase, key string, load func() (*T, error)) (*T, error) {
	var hit T
	found, err := uc.cache.Get(ctx, key, &hit)
	if err != nil {
		uc.logger.Warn("Report cache read failed for %s: %v", key, err)
	} else if found {
		return &hit, nil
	}

	report, err := load()
	if err != nil {
		return nil, err
	}
	if err := uc.cache.Set(ctx, key, report); err != nil {
		uc.logger.Warn("Report cache write failed for %s: %v", key, err)
	}
	return report, nil
}

func requireTenant(actor roles.Actor) error {
	if actor.TenantID == "" {
		return apperror.BadRequest("tenant_id is required")
	}
	return nil
}

func (uc *analyticsUseCase) today() time.Time {
	now := uc.now().In(uc.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, uc.loc)
}

func (uc *analyticsUseCase) Dashboard(ctx context.Context, actor roles.Actor) (*entity.Dashboard, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}

	return cached(ctx, uc, reportCache.Key("dashboard", actor.TenantID), func() (*entity.Dashboard, error) {
		now := uc.now()
		today := uc.today()
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, uc.loc)

		d, err := uc.analyticsRepo.Dashboard(ctx, actor.TenantID, now, monthStart)
		if err != nil {
			uc.logger.Error("Failed to build dashboard for tenant %s: %v", actor.TenantID, err)
			return nil, fmt.Errorf("failed to build dashboard: %w", err)
		}
		d.OccupancyPercent = pricing.Percent(d.OccupiedSeats, d.Seats)
		return d, nil
	})
}

func (uc *analyticsUseCase) parseDate(value, field string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, uc.loc)
	if err != nil {
		return time.Time{}, apperror.Validation(field + " must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func (uc *analyticsUseCase) revenueRange(query RevenueQuery) (from, to time.Time, granularity string, err error) {
	granularity = query.Granularity
	if granularity == "" {
		granularity = entity.GranularityDay
	}
	if !entity.ValidGranularity(granularity) {
		return from, to, "", apperror.Validation("granularity must be day or month")
	}

	to = uc.today()
	if query.To != "" {
		if to, err = uc.parseDate(query.To, "to"); err != nil {
			return from, to, "", err
		}
	}
	from = to.AddDate(0, 0, -(entity.DefaultRevenueRangeDays - 1))
	if query.From != "" {
		if from, err = uc.parseDate(query.From, "from"); err != nil {
			return from, to, "", err
		}
	}

	if to.Before(from) {
		return from, to, "", apperror.Validation("from must not be after to")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > entity.MaxRevenueRangeDays {
		return from, to, "", apperror.Validation("date range must not exceed " + strconv.Itoa(entity.MaxRevenueRangeDays) + " days")
	}
	return from, to, granularity, nil
}

func (uc *analyticsUseCase) Revenue(ctx context.Context, actor roles.Actor, query RevenueQuery) (*entity.RevenueReport, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	from, to, granularity, err := uc.revenueRange(query)
	if err != nil {
		return nil, err
	}

	fromKey, toKey := from.Format(dateLayout), to.Format(dateLayout)
	key := reportCache.Key("revenue", actor.TenantID, fromKey, toKey, granularity)

	return cached(ctx, uc, key, func() (*entity.RevenueReport, error) {
		points, err := uc.analyticsRepo.Revenue(ctx, actor.TenantID, from, to.AddDate(0, 0, 1), granularity, uc.loc.String())
		if err != nil {
			uc.logger.Error("Failed to load revenue for tenant %s: %v", actor.TenantID, err)
			return nil, fmt.Errorf("failed to load revenue: %w", err)
		}

		series, total := entity.FillSeries(from, to, granularity, points)
		return &entity.RevenueReport{
			TenantID:    actor.TenantID,
			From:        fromKey,
			To:          toKey,
			Granularity: granularity,
			Points:      series,
			Total:       total,
		}, nil
	})
}

func (uc *analyticsUseCase) Occupancy(ctx context.Context, actor roles.Actor, libraryID, date string) (*entity.OccupancyReport, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	if libraryID == "" {
		return nil, apperror.Validation("library_id is required")
	}

	day := uc.today()
	if date != "" {
		var err error
		if day, err = uc.parseDate(date, "date"); err != nil {
			return nil, err
		}
	}
	dayKey := day.Format(dateLayout)

	return cached(ctx, uc, reportCache.Key("occupancy", actor.TenantID, libraryID, dayKey), func() (*entity.OccupancyReport, error) {
		exists, err := uc.analyticsRepo.LibraryExists(ctx, actor.TenantID, libraryID)
		if err != nil {
			return nil, fmt.Errorf("failed to load library: %w", err)
		}
		if !exists {
			return nil, apperror.NotFound("library not found")
		}

		seats, err := uc.analyticsRepo.LibrarySeats(ctx, actor.TenantID, libraryID)
		if err != nil {
			return nil, fmt.Errorf("failed to count seats: %w", err)
		}
		hourly, err := uc.analyticsRepo.HourlyOccupancy(ctx, actor.TenantID, libraryID, day)
		if err != nil {
			uc.logger.Error("Failed to load occupancy for library %s: %v", libraryID, err)
			return nil, fmt.Errorf("failed to load occupancy: %w", err)
		}
		return entity.BuildOccupancy(libraryID, dayKey, seats, hourly), nil
	})
}

func (uc *analyticsUseCase) Platform(ctx context.Context, actor roles.Actor) (*entity.PlatformOverview, error) {
	if !actor.IsPlatform() {
		return nil, apperror.Forbidden(apperror.CodeForbidden, "platform role required")
	}

	return cached(ctx, uc, reportCache.Key("platform", ""), func() (*entity.PlatformOverview, error) {
		today := uc.today()
		monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, uc.loc)

		overview, mix, err := uc.analyticsRepo.Platform(ctx, monthStart)
		if err != nil {
			uc.logger.Error("Failed to build platform overview: %v", err)
			return nil, fmt.Errorf("failed to build platform overview: %w", err)
		}
		overview.MRR, overview.ActiveSubscriptions = entity.MRR(mix)
		overview.GeneratedAt = uc.now()
		return overview, nil
	})
}
