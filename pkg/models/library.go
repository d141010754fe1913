package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SeatStatusAvailable   = "available"
	SeatStatusMaintenance = "maintenance"
	SeatStatusDisabled    = "disabled"

	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCheckedIn = "checked_in"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

type Library struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	TenantID  string    `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name      string    `gorm:"not null" json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	OpenTime  string    `gorm:"type:varchar(5)" json:"open_time"`
	CloseTime string    `gorm:"type:varchar(5)" json:"close_time"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Library) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

type Seat struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	TenantID  string    `gorm:"type:uuid;not null;index" json:"tenant_id"`
	LibraryID string    `gorm:"type:uuid;not null;uniqueIndex:idx_seat_library_label" json:"library_id"`
	Label     string    `gorm:"not null;uniqueIndex:idx_seat_library_label" json:"label"`
	Zone      string    `json:"zone"`
	Status    string    `gorm:"type:varchar(20);default:'available'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Seat) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

type FeePlan struct {
	ID              string    `gorm:"type:uuid;primary_key" json:"id"`
	TenantID        string    `gorm:"type:uuid;not null;index" json:"tenant_id"`
	LibraryID       *string   `gorm:"type:uuid" json:"library_id,omitempty"`
	Name            string    `gorm:"not null" json:"name"`
	PlanType        string    `gorm:"type:varchar(20);not null" json:"plan_type"`
	Price           int64     `gorm:"not null" json:"price"`
	DiscountPercent float64   `gorm:"default:0" json:"discount_percent"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (f *FeePlan) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}

type Booking struct {
	ID           string     `gorm:"type:uuid;primary_key" json:"id"`
	TenantID     string     `gorm:"type:uuid;not null;index" json:"tenant_id"`
	LibraryID    string     `gorm:"type:uuid;not null;index" json:"library_id"`
	SeatID       string     `gorm:"type:uuid;not null;index" json:"seat_id"`
	StudentID    string     `gorm:"type:uuid;not null;index" json:"student_id"`
	FeePlanID    string     `gorm:"type:uuid;not null" json:"fee_plan_id"`
	StartTime    time.Time  `gorm:"not null" json:"start_time"`
	EndTime      time.Time  `gorm:"not null" json:"end_time"`
	Units        int64      `gorm:"not null" json:"units"`
	Amount       int64      `gorm:"not null" json:"amount"`
	Status       string     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentID    *string    `gorm:"type:uuid" json:"payment_id,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
