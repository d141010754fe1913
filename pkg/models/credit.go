package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CreditTypeSMS      = "sms"
	CreditTypeWhatsApp = "whatsapp"
	CreditTypeEmail    = "email"

	CreditTxPurchase = "purchase"
	CreditTxConsume  = "consume"
	CreditTxRefund   = "refund"
	CreditTxGrant    = "grant"
)

// CreditTypes lists every credit type in display order.
var CreditTypes = []string{CreditTypeSMS, CreditTypeWhatsApp, CreditTypeEmail}

type CreditPackage struct {
	ID         string    `gorm:"type:uuid;primary_key" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	CreditType string    `gorm:"type:varchar(20);not null" json:"credit_type"`
	Credits    int64     `gorm:"not null" json:"credits"`
	Price      int64     `gorm:"not null" json:"price"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *CreditPackage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type CreditBalance struct {
	ID                  string    `gorm:"type:uuid;primary_key" json:"id"`
	TenantID            string    `gorm:"type:uuid;not null;uniqueIndex:idx_credit_balance_tenant_type" json:"tenant_id"`
	CreditType          string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_credit_balance_tenant_type" json:"credit_type"`
	Balance             int64     `gorm:"not null;default:0" json:"balance"`
	LowBalanceThreshold int64     `gorm:"not null;default:100" json:"low_balance_threshold"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (b *CreditBalance) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

type CreditTransaction struct {
	ID            string    `gorm:"type:uuid;primary_key" json:"id"`
	TenantID      string    `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CreditType    string    `gorm:"type:varchar(20);not null" json:"credit_type"`
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`
	Amount        int64     `gorm:"not null" json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Reference     string    `json:"reference,omitempty"`
	PackageID     *string   `gorm:"type:uuid" json:"package_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (t *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
