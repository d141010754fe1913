package entity

import "time"

const (
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationBookingCancelled = "booking_cancelled"
	NotificationPaymentReceived  = "payment_received"
	NotificationPaymentRefunded  = "payment_refunded"
	NotificationCreditLow        = "credit_low"
	NotificationInvoiceCreated   = "invoice_created"
	NotificationPastDue          = "subscription_past_due"
	NotificationMessage          = "message"
)

// Notification is an in-app notice shown to a single user.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
