package entity

import "time"

type Tenant struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Slug        string                 `json:"slug"`
	OwnerUserID string                 `json:"owner_user_id,omitempty"`
	Email       string                 `json:"email"`
	Phone       string                 `json:"phone"`
	Address     string                 `json:"address"`
	City        string                 `json:"city"`
	Status      string                 `json:"status"`
	LogoURL     string                 `json:"logo_url"`
	Settings    map[string]interface{} `json:"settings"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// PublicTenant is what the student app sees before signing up.
type PublicTenant struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	City    string `json:"city"`
	LogoURL string `json:"logo_url"`
	Status  string `json:"status"`
}

func (t *Tenant) Public() *PublicTenant {
	return &PublicTenant{Name: t.Name, Slug: t.Slug, City: t.City, LogoURL: t.LogoURL, Status: t.Status}
}

type Owner struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

type TenantFilter struct {
	Status string
	Query  string
}
