package entity

import (
	"time"

	"studyspot/pkg/models"
	"studyspot/pkg/pricing"
)

type Plan struct {
	ID              string                 `json:"id"`
	Code            string                 `json:"code"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Price           int64                  `json:"price"`
	BillingPeriod   string                 `json:"billing_period"`
	TrialDays       int                    `json:"trial_days"`
	MaxLibraries    int64                  `json:"max_libraries"`
	MaxSeats        int64                  `json:"max_seats"`
	MaxStudents     int64                  `json:"max_students"`
	IncludedCredits int64                  `json:"included_credits"`
	Features        map[string]interface{} `json:"features,omitempty"`
	IsActive        bool                   `json:"is_active"`
	IsPublic        bool                   `json:"is_public"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type Subscription struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	PlanID             string     `json:"plan_id"`
	Plan               *Plan      `json:"plan,omitempty"`
	Status             string     `json:"status"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Live reports whether the subscription still grants access.
func (s *Subscription) Live() bool {
	switch s.Status {
	case models.SubscriptionTrialing, models.SubscriptionActive, models.SubscriptionPastDue:
		return true
	}
	return false
}

type Invoice struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	SubscriptionID   string     `json:"subscription_id"`
	Number           string     `json:"number"`
	Amount           int64      `json:"amount"`
	Tax              int64      `json:"tax"`
	Total            int64      `json:"total"`
	Status           string     `json:"status"`
	PeriodStart      time.Time  `json:"period_start"`
	PeriodEnd        time.Time  `json:"period_end"`
	DueAt            time.Time  `json:"due_at"`
	GraceUntil       time.Time  `json:"grace_until"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (i *Invoice) Payable() bool {
	return i.Status == models.InvoiceOpen || i.Status == models.InvoiceOverdue
}

func ValidBillingPeriod(period string) bool {
	return period == models.BillingMonth || period == models.BillingYear
}

// AdvancePeriod returns the end of the billing period that starts at start.
func AdvancePeriod(start time.Time, period string) time.Time {
	if period == models.BillingYear {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// UsageItem compares one counted resource against its plan limit. A limit of
// 0 means unlimited.
type UsageItem struct {
	Resource string        `json:"resource"`
	Used     int64         `json:"used"`
	Limit    int64         `json:"limit"`
	Percent  float64       `json:"percent"`
	Level    pricing.Level `json:"level"`
}

func NewUsageItem(resource string, used, limit int64) UsageItem {
	return UsageItem{
		Resource: resource,
		Used:     used,
		Limit:    limit,
		Percent:  pricing.Percent(used, limit),
		Level:    pricing.UsageLevel(used, limit),
	}
}

type Usage struct {
	TenantID string      `json:"tenant_id"`
	PlanCode string      `json:"plan_code"`
	Items    []UsageItem `json:"items"`
}

// Counts are the tenant resources plan limits apply to.
type Counts struct {
	Libraries int64
	Seats     int64
	Students  int64
}
