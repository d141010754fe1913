package entity

import (
	"time"

	"studyspot/pkg/models"
	"studyspot/pkg/pricing"
)

const (
	GranularityDay   = "day"
	GranularityMonth = "month"

	MaxRevenueRangeDays     = 366
	DefaultRevenueRangeDays = 30
)

type Dashboard struct {
	TenantID         string    `json:"tenant_id"`
	ActiveStudents   int64     `json:"active_students"`
	Libraries        int64     `json:"libraries"`
	Seats            int64     `json:"seats"`
	ActiveBookings   int64     `json:"active_bookings"`
	OccupiedSeats    int64     `json:"occupied_seats"`
	OccupancyPercent float64   `json:"occupancy_percent"`
	RevenueThisMonth int64     `json:"revenue_this_month"`
	PendingPayments  int64     `json:"pending_payments"`
	PendingAmount    int64     `json:"pending_amount"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type RevenuePoint struct {
	Period    string `json:"period"`
	Collected int64  `json:"collected"`
	Refunded  int64  `json:"refunded"`
	Net       int64  `json:"net"`
}

type RevenueReport struct {
	TenantID    string         `json:"tenant_id"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Granularity string         `json:"granularity"`
	Points      []RevenuePoint `json:"points"`
	Total       RevenuePoint   `json:"total"`
}

type OccupancyHour struct {
	Hour     int     `json:"hour"`
	Occupied int64   `json:"occupied"`
	Percent  float64 `json:"percent"`
}

type OccupancyReport struct {
	LibraryID string          `json:"library_id"`
	Date      string          `json:"date"`
	Seats     int64           `json:"seats"`
	Hours     []OccupancyHour `json:"hours"`
	PeakHour  int             `json:"peak_hour"`
}

type PlatformOverview struct {
	TenantsByStatus     map[string]int64 `json:"tenants_by_status"`
	ActiveSubscriptions int64            `json:"active_subscriptions"`
	MRR                 int64            `json:"mrr"`
	OverdueInvoices     int64            `json:"overdue_invoices"`
	OverdueAmount       int64            `json:"overdue_amount"`
	PaymentsThisMonth   int64            `json:"payments_this_month"`
	PaymentVolume       int64            `json:"payment_volume"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

// PlanCount is the number of active subscriptions on one price point.
type PlanCount struct {
	Price         int64
	BillingPeriod string
	Subscriptions int64
}

// MonthlyPrice normalises a plan price to one month, rounding half up.
func MonthlyPrice(price int64, period string) int64 {
	if period == models.BillingYear {
		return (price + 6) / 12
	}
	return price
}

func MRR(mix []PlanCount) (mrr, subscriptions int64) {
	for _, pc := range mix {
		mrr += MonthlyPrice(pc.Price, pc.BillingPeriod) * pc.Subscriptions
		subscriptions += pc.Subscriptions
	}
	return mrr, subscriptions
}

func ValidGranularity(g string) bool {
	return g == GranularityDay || g == GranularityMonth
}

// PeriodKey formats t the way revenue points are keyed for granularity.
func PeriodKey(t time.Time, granularity string) string {
	if granularity == GranularityMonth {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// FillSeries returns one point per period between from and to inclusive,
// taking values from points and zero elsewhere, plus the range total.
func FillSeries(from, to time.Time, granularity string, points []RevenuePoint) ([]RevenuePoint, RevenuePoint) {
	byPeriod := make(map[string]RevenuePoint, len(points))
	for _, p := range points {
		byPeriod[p.Period] = p
	}

	var series []RevenuePoint
	total := RevenuePoint{Period: "total"}

	step := func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	cursor := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	if granularity == GranularityMonth {
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		cursor = time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	}

	for !cursor.After(to) {
		key := PeriodKey(cursor, granularity)
		p, ok := byPeriod[key]
		if !ok {
			p = RevenuePoint{Period: key}
		}
		p.Net = p.Collected - p.Refunded
		series = append(series, p)

		total.Collected += p.Collected
		total.Refunded += p.Refunded
		cursor = step(cursor)
	}
	total.Net = total.Collected - total.Refunded
	return series, total
}

// BuildOccupancy turns 24 hourly occupied-seat counts into a report.
func BuildOccupancy(libraryID, date string, seats int64, hourly []int64) *OccupancyReport {
	report := &OccupancyReport{
		LibraryID: libraryID,
		Date:      date,
		Seats:     seats,
		Hours:     make([]OccupancyHour, 24),
	}
	var peak int64 = -1
	for hour := 0; hour < 24; hour++ {
		var occupied int64
		if hour < len(hourly) {
			occupied = hourly[hour]
		}
		report.Hours[hour] = OccupancyHour{
			Hour:     hour,
			Occupied: occupied,
			Percent:  pricing.Percent(occupied, seats),
		}
		if occupied > peak {
			peak = occupied
			report.PeakHour = hour
		}
	}
	return report
}
