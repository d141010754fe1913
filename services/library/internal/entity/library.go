package entity

import "time"

type Library struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	OpenTime  string    `json:"open_time"`
	CloseTime string    `json:"close_time"`
	IsActive  bool      `json:"is_active"`
	SeatCount int64     `json:"seat_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Seat struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	LibraryID string    `json:"library_id"`
	Label     string    `json:"label"`
	Zone      string    `json:"zone"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SeatAvailability is a seat plus whether it is free for a requested window.
type SeatAvailability struct {
	Seat
	Available bool `json:"available"`
}

type FeePlan struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	LibraryID       string    `json:"library_id,omitempty"`
	Name            string    `json:"name"`
	PlanType        string    `json:"plan_type"`
	Price           int64     `json:"price"`
	DiscountPercent float64   `json:"discount_percent"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AppliesTo reports whether the plan can be used for seats of libraryID.
func (p *FeePlan) AppliesTo(libraryID string) bool {
	return p.LibraryID == "" || p.LibraryID == libraryID
}
