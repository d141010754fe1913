package persistent

import (
	"context"
	"fmt"
	"time"

	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/analytics/internal/entity"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Payments in these states count as collected money.
var collectedStatuses = []string{
	models.PaymentStatusCompleted,
	models.PaymentStatusPartiallyRefunded,
	models.PaymentStatusRefunded,
}

// Bookings in these states hold their seat.
var occupyingStatuses = []string{
	models.BookingStatusConfirmed,
	models.BookingStatusCheckedIn,
	models.BookingStatusCompleted,
}

type AnalyticsRepository interface {
	Dashboard(ctx context.Context, tenantID string, now, monthStart time.Time) (*entity.Dashboard, error)
	Revenue(ctx context.Context, tenantID string, from, to time.Time, granularity, timezone string) ([]entity.RevenuePoint, error)
	LibraryExists(ctx context.Context, tenantID, libraryID string) (bool, error)
	LibrarySeats(ctx context.Context, tenantID, libraryID string) (int64, error)
	// HourlyOccupancy returns 24 counts of distinct occupied seats for the day starting at dayStart.
	HourlyOccupancy(ctx context.Context, tenantID, libraryID string, dayStart time.Time) ([]int64, error)
	Platform(ctx context.Context, monthStart time.Time) (*entity.PlatformOverview, []entity.PlanCount, error)
}

type analyticsRepository struct {
	db *pgxpool.Pool
}

func NewAnalyticsRepository(db *pgxpool.Pool) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Dashboard(ctx context.Context, tenantID string, now, monthStart time.Time) (*entity.Dashboard, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM users
              WHERE tenant_id = $1 AND role = $2 AND is_active),
            (SELECT COUNT(*) FROM libraries
              WHERE tenant_id = $1 AND is_active),
            (SELECT COUNT(*) FROM seats
              WHERE tenant_id = $1 AND status <> $3),
            (SELECT COUNT(*) FROM bookings
              WHERE tenant_id = $1 AND status = ANY($4) AND start_time <= $5 AND end_time > $5),
            (SELECT COUNT(DISTINCT seat_id) FROM bookings
              WHERE tenant_id = $1 AND status = ANY($4) AND start_time <= $5 AND end_time > $5),
            (SELECT COALESCE(SUM(total - refunded_amount), 0)::bigint FROM payments
              WHERE tenant_id = $1 AND status = ANY($6) AND COALESCE(paid_at, created_at) >= $7),
            (SELECT COUNT(*) FROM payments
              WHERE tenant_id = $1 AND status = $8),
            (SELECT COALESCE(SUM(total), 0)::bigint FROM payments
              WHERE tenant_id = $1 AND status = $8)
    `
	activeBookings := []string{models.BookingStatusConfirmed, models.BookingStatusCheckedIn}

	d := &entity.Dashboard{TenantID: tenantID, GeneratedAt: now}
	err := r.db.QueryRow(ctx, query,
		tenantID, roles.Student, models.SeatStatusDisabled, activeBookings, now,
		collectedStatuses, monthStart, models.PaymentStatusPending,
	).Scan(
		&d.ActiveStudents, &d.Libraries, &d.Seats, &d.ActiveBookings, &d.OccupiedSeats,
		&d.RevenueThisMonth, &d.PendingPayments, &d.PendingAmount,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard query: %w", err)
	}
	return d, nil
}

func (r *analyticsRepository) Revenue(ctx context.Context, tenantID string, from, to time.Time, granularity, timezone string) ([]entity.RevenuePoint, error) {
	format := "YYYY-MM-DD"
	if granularity == entity.GranularityMonth {
		format = "YYYY-MM"
	}

	query := `
        SELECT to_char(date_trunc($4, COALESCE(paid_at, created_at) AT TIME ZONE $5), $6) AS period,
               COALESCE(SUM(total), 0)::bigint,
               COALESCE(SUM(refunded_amount), 0)::bigint
        FROM payments
        WHERE tenant_id = $1
          AND status = ANY($7)
          AND COALESCE(paid_at, created_at) >= $2
          AND COALESCE(paid_at, created_at) < $3
        GROUP BY period
        ORDER BY period
    `
	rows, err := r.db.Query(ctx, query, tenantID, from, to, granularity, timezone, format, collectedStatuses)
	if err != nil {
		return nil, fmt.Errorf("revenue query: %w", err)
	}
	defer rows.Close()

	var points []entity.RevenuePoint
	for rows.Next() {
		var p entity.RevenuePoint
		if err := rows.Scan(&p.Period, &p.Collected, &p.Refunded); err != nil {
			return nil, err
		}
		p.Net = p.Collected - p.Refunded
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *analyticsRepository) LibraryExists(ctx context.Context, tenantID, libraryID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM libraries WHERE id::text = $1 AND tenant_id = $2)`,
		libraryID, tenantID,
	).Scan(&exists)
	return exists, err
}

func (r *analyticsRepository) LibrarySeats(ctx context.Context, tenantID, libraryID string) (int64, error) {
	var seats int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM seats WHERE library_id = $1 AND tenant_id = $2 AND status <> $3`,
		libraryID, tenantID, models.SeatStatusDisabled,
	).Scan(&seats)
	return seats, err
}

func (r *analyticsRepository) HourlyOccupancy(ctx context.Context, tenantID, libraryID string, dayStart time.Time) ([]int64, error) {
	query := `
        SELECT h.hour, COUNT(DISTINCT b.seat_id)
        FROM generate_series(0, 23) AS h(hour)
        LEFT JOIN bookings b
               ON b.library_id = $1
              AND b.tenant_id = $2
              AND b.status = ANY($4)
              AND b.start_time < $3::timestamptz + make_interval(hours => h.hour + 1)
              AND b.end_time > $3::timestamptz + make_interval(hours => h.hour)
        GROUP BY h.hour
        ORDER BY h.hour
    `
	rows, err := r.db.Query(ctx, query, libraryID, tenantID, dayStart, occupyingStatuses)
	if err != nil {
		return nil, fmt.Errorf("occupancy query: %w", err)
	}
	defer rows.Close()

	hourly := make([]int64, 24)
	for rows.Next() {
		var hour int32
		var occupied int64
		if err := rows.Scan(&hour, &occupied); err != nil {
			return nil, err
		}
		if hour >= 0 && hour < 24 {
			hourly[hour] = occupied
		}
	}
	return hourly, rows.Err()
}

func (r *analyticsRepository) Platform(ctx context.Context, monthStart time.Time) (*entity.PlatformOverview, []entity.PlanCount, error) {
	overview := &entity.PlatformOverview{TenantsByStatus: map[string]int64{}}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM tenants GROUP BY status`)
	if err != nil {
		return nil, nil, fmt.Errorf("tenants query: %w", err)
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, nil, err
		}
		overview.TenantsByStatus[status] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = r.db.Query(ctx, `
        SELECT p.price, p.billing_period, COUNT(*)
        FROM tenant_subscriptions s
        JOIN subscription_plans p ON p.id = s.plan_id
        WHERE s.status = $1
        GROUP BY p.price, p.billing_period
    `, models.SubscriptionActive)
	if err != nil {
		return nil, nil, fmt.Errorf("plan mix query: %w", err)
	}
	var mix []entity.PlanCount
	for rows.Next() {
		var pc entity.PlanCount
		if err := rows.Scan(&pc.Price, &pc.BillingPeriod, &pc.Subscriptions); err != nil {
			rows.Close()
			return nil, nil, err
		}
		mix = append(mix, pc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	err = r.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM invoices WHERE status = $1),
            (SELECT COALESCE(SUM(total), 0)::bigint FROM invoices WHERE status = $1),
            (SELECT COUNT(*) FROM payments
              WHERE status = ANY($2) AND COALESCE(paid_at, created_at) >= $3),
            (SELECT COALESCE(SUM(total - refunded_amount), 0)::bigint FROM payments
              WHERE status = ANY($2) AND COALESCE(paid_at, created_at) >= $3)
    `, models.InvoiceOverdue, collectedStatuses, monthStart).Scan(
		&overview.OverdueInvoices, &overview.OverdueAmount, &overview.PaymentsThisMonth, &overview.PaymentVolume,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("platform totals query: %w", err)
	}
	return overview, mix, nil
}
