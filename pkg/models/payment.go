package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaymentStatusPending           = "pending"
	PaymentStatusCompleted         = "completed"
	PaymentStatusFailed            = "failed"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
)

type Payment struct {
	ID               string     `gorm:"type:uuid;primary_key" json:"id"`
	TenantID         string     `gorm:"type:uuid;not null;index" json:"tenant_id"`
	StudentID        string     `gorm:"type:uuid;not null;index" json:"student_id"`
	BookingID        *string    `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	ReceiptNumber    string     `gorm:"uniqueIndex;not null" json:"receipt_number"`
	Amount           int64      `gorm:"not null" json:"amount"`
	PlatformFee      int64      `gorm:"not null;default:0" json:"platform_fee"`
	Tax              int64      `gorm:"not null;default:0" json:"tax"`
	Total            int64      `gorm:"not null" json:"total"`
	RefundedAmount   int64      `gorm:"not null;default:0" json:"refunded_amount"`
	Currency         string     `gorm:"type:varchar(3);default:'INR'" json:"currency"`
	Method           string     `gorm:"type:varchar(20);not null" json:"method"`
	Purpose          string     `gorm:"type:varchar(20);not null" json:"purpose"`
	Status           string     `gorm:"type:varchar(20);not null;index" json:"status"`
	GatewayReference string     `json:"gateway_reference,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	Notes            string     `gorm:"type:varchar(500)" json:"notes,omitempty"`
	RecordedBy       string     `gorm:"type:uuid" json:"recorded_by"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
