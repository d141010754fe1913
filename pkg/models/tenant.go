package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TenantStatusPending   = "pending"
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

type Tenant struct {
	ID          string            `gorm:"type:uuid;primary_key" json:"id"`
	Name        string            `gorm:"not null" json:"name"`
	Slug        string            `gorm:"uniqueIndex;not null" json:"slug"`
	OwnerUserID *string           `gorm:"type:uuid" json:"owner_user_id,omitempty"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Address     string            `json:"address"`
	City        string            `json:"city"`
	Status      string            `gorm:"type:varchar(20);default:'active'" json:"status"`
	LogoURL     string            `gorm:"type:varchar(500)" json:"logo_url"`
	Settings    datatypes.JSONMap `json:"settings"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

type User struct {
	ID          string     `gorm:"type:uuid;primary_key" json:"id"`
	TenantID    *string    `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Name        string     `gorm:"not null" json:"name"`
	Phone       string     `json:"phone"`
	Password    string     `gorm:"not null" json:"-"`
	Role        string     `gorm:"type:varchar(20);not null" json:"role"`
	AvatarURL   string     `gorm:"type:varchar(500)" json:"avatar_url"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
