package entity

import "time"

const (
	LevelNormal = "normal"
	LevelLow    = "low"
	LevelEmpty  = "empty"
)

type Package struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreditType string    `json:"credit_type"`
	Credits    int64     `json:"credits"`
	Price      int64     `json:"price"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Balance struct {
	TenantID            string `json:"tenant_id"`
	CreditType          string `json:"credit_type"`
	Balance             int64  `json:"balance"`
	LowBalanceThreshold int64  `json:"low_balance_threshold"`
	Level               string `json:"level"`
}

// WithLevel fills Level from the balance and threshold.
func (b Balance) WithLevel() Balance {
	switch {
	case b.Balance <= 0:
		b.Level = LevelEmpty
	case b.Balance <= b.LowBalanceThreshold:
		b.Level = LevelLow
	default:
		b.Level = LevelNormal
	}
	return b
}

// CrossedThreshold reports whether a debit moved the balance from above the
// threshold to at or below it.
func CrossedThreshold(before, after, threshold int64) bool {
	return before > threshold && after <= threshold
}

type Transaction struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	CreditType    string    `json:"credit_type"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	Reference     string    `json:"reference,omitempty"`
	PackageID     string    `json:"package_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Movement is a single signed change to a tenant's balance.
type Movement struct {
	TenantID   string
	CreditType string
	Type       string
	Amount     int64
	Reference  string
	PackageID  string
}
