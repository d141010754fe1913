package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BillingMonth = "month"
	BillingYear  = "year"

	SubscriptionTrialing = "trialing"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"

	InvoiceOpen    = "open"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
	InvoiceVoid    = "void"
)

type SubscriptionPlan struct {
	ID              string            `gorm:"type:uuid;primary_key" json:"id"`
	Code            string            `gorm:"uniqueIndex;not null" json:"code"`
	Name            string            `gorm:"not null" json:"name"`
	Description     string            `json:"description"`
	Price           int64             `gorm:"not null" json:"price"`
	BillingPeriod   string            `gorm:"type:varchar(10);not null" json:"billing_period"`
	TrialDays       int               `gorm:"default:0" json:"trial_days"`
	MaxLibraries    int64             `json:"max_libraries"`
	MaxSeats        int64             `json:"max_seats"`
	MaxStudents     int64             `json:"max_students"`
	IncludedCredits int64             `json:"included_credits"`
	Features        datatypes.JSONMap `json:"features"`
	IsActive        bool              `gorm:"default:true" json:"is_active"`
	IsPublic        bool              `gorm:"default:true" json:"is_public"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type TenantSubscription struct {
	ID                 string            `gorm:"type:uuid;primary_key" json:"id"`
	TenantID           string            `gorm:"type:uuid;uniqueIndex;not null" json:"tenant_id"`
	PlanID             string            `gorm:"type:uuid;not null" json:"plan_id"`
	Plan               *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status             string            `gorm:"type:varchar(20);not null;index" json:"status"`
	CurrentPeriodStart time.Time         `json:"current_period_start"`
	CurrentPeriodEnd   time.Time         `gorm:"index" json:"current_period_end"`
	CancelAtPeriodEnd  bool              `gorm:"default:false" json:"cancel_at_period_end"`
	CanceledAt         *time.Time        `json:"canceled_at,omitempty"`
	TrialEndsAt        *time.Time        `json:"trial_ends_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (s *TenantSubscription) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

type Invoice struct {
	ID             string     `gorm:"type:uuid;primary_key" json:"id"`
	TenantID       string     `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SubscriptionID string     `gorm:"type:uuid;not null;index" json:"subscription_id"`
	Number         string     `gorm:"uniqueIndex;not null" json:"number"`
	Amount         int64      `gorm:"not null" json:"amount"`
	Tax            int64      `gorm:"not null;default:0" json:"tax"`
	Total          int64      `gorm:"not null" json:"total"`
	Status         string     `gorm:"type:varchar(20);not null;index" json:"status"`
	PeriodStart    time.Time  `json:"period_start"`
	PeriodEnd      time.Time  `json:"period_end"`
	DueAt          time.Time  `json:"due_at"`
	GraceUntil     time.Time  `gorm:"index" json:"grace_until"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	PaymentRef     string     `json:"payment_reference,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
