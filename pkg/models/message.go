package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ChannelInApp    = "in_app"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"

	MessageStatusQueued          = "queued"
	MessageStatusSending         = "sending"
	MessageStatusSent            = "sent"
	MessageStatusPartiallyFailed = "partially_failed"
	MessageStatusFailed          = "failed"

	RecipientStatusQueued    = "queued"
	RecipientStatusDelivered = "delivered"
	RecipientStatusFailed    = "failed"
)

type Message struct {
	ID             string             `gorm:"type:uuid;primary_key" json:"id"`
	TenantID       string             `gorm:"type:uuid;not null;index" json:"tenant_id"`
	SenderID       string             `gorm:"type:uuid;not null" json:"sender_id"`
	Channel        string             `gorm:"type:varchar(20);not null" json:"channel"`
	Subject        string             `json:"subject,omitempty"`
	Body           string             `gorm:"type:text;not null" json:"body"`
	RecipientCount int                `json:"recipient_count"`
	CreditsUsed    int64              `json:"credits_used"`
	Status         string             `gorm:"type:varchar(20);not null" json:"status"`
	Recipients     []MessageRecipient `gorm:"foreignKey:MessageID" json:"recipients,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type MessageRecipient struct {
	ID          string     `gorm:"type:uuid;primary_key" json:"id"`
	MessageID   string     `gorm:"type:uuid;not null;index" json:"message_id"`
	UserID      string     `gorm:"type:uuid;not null" json:"user_id"`
	Address     string     `json:"address"`
	Status      string     `gorm:"type:varchar(20);not null" json:"status"`
	Error       string     `json:"error,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r *MessageRecipient) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
