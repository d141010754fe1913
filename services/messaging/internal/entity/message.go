package entity

import (
	"time"

	"studyspot/pkg/models"
	"studyspot/pkg/pricing"
)

const AudienceAllStudents = "all_students"

type Message struct {
	ID             string       `json:"id"`
	TenantID       string       `json:"tenant_id"`
	SenderID       string       `json:"sender_id"`
	Channel        string       `json:"channel"`
	Subject        string       `json:"subject,omitempty"`
	Body           string       `json:"body"`
	RecipientCount int          `json:"recipient_count"`
	CreditsUsed    int64        `json:"credits_used"`
	Status         string       `json:"status"`
	Recipients     []*Recipient `json:"recipients,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type Recipient struct {
	ID          string     `json:"id"`
	MessageID   string     `json:"message_id"`
	UserID      string     `json:"user_id"`
	Address     string     `json:"address"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// Contact is a tenant user a message can be addressed to.
type Contact struct {
	UserID string
	Name   string
	Email  string
	Phone  string
}

func ValidChannel(channel string) bool {
	switch channel {
	case models.ChannelInApp, models.ChannelSMS, models.ChannelWhatsApp, models.ChannelEmail:
		return true
	}
	return false
}

// CreditType is the credit a channel spends, empty for free channels.
func CreditType(channel string) string {
	switch channel {
	case models.ChannelSMS:
		return models.CreditTypeSMS
	case models.ChannelWhatsApp:
		return models.CreditTypeWhatsApp
	case models.ChannelEmail:
		return models.CreditTypeEmail
	}
	return ""
}

// CostPerRecipient is the number of credits one delivery of body costs.
func CostPerRecipient(channel, body string) int64 {
	switch channel {
	case models.ChannelSMS:
		return pricing.SMSSegments(body)
	case models.ChannelWhatsApp, models.ChannelEmail:
		return 1
	}
	return 0
}

// Address picks the contact detail a channel delivers to.
func (c Contact) Address(channel string) string {
	switch channel {
	case models.ChannelSMS, models.ChannelWhatsApp:
		return c.Phone
	case models.ChannelEmail:
		return c.Email
	}
	return c.UserID
}

// FinalStatus derives the message status once no recipient is queued.
func FinalStatus(delivered, failed int) string {
	switch {
	case failed == 0:
		return models.MessageStatusSent
	case delivered == 0:
		return models.MessageStatusFailed
	}
	return models.MessageStatusPartiallyFailed
}
