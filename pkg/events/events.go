// Package events defines the routing keys and payloads exchanged between
// services over the message broker.
package events

import (
	"context"
	"time"
)

const (
	BookingCreated             = "booking.created"
	BookingConfirmed           = "booking.confirmed"
	BookingCancelled           = "booking.cancelled"
	PaymentCompleted           = "payment.completed"
	PaymentRefunded            = "payment.refunded"
	CreditLow                  = "credit.low"
	MessageDispatch            = "message.dispatch"
	SubscriptionInvoiceCreated = "subscription.invoice_created"
	SubscriptionPastDue        = "subscription.past_due"
	TenantCreated              = "tenant.created"
)

// Publisher is satisfied by *queue.Client.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}, priority int) error
}

// NopPublisher drops events; services use it when the broker is unavailable.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}, int) error { return nil }

type Booking struct {
	BookingID string    `json:"booking_id"`
	TenantID  string    `json:"tenant_id"`
	LibraryID string    `json:"library_id"`
	SeatID    string    `json:"seat_id"`
	SeatLabel string    `json:"seat_label,omitempty"`
	StudentID string    `json:"student_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
}

type Payment struct {
	PaymentID      string `json:"payment_id"`
	TenantID       string `json:"tenant_id"`
	StudentID      string `json:"student_id"`
	BookingID      string `json:"booking_id,omitempty"`
	ReceiptNumber  string `json:"receipt_number"`
	Total          int64  `json:"total"`
	RefundedAmount int64  `json:"refunded_amount,omitempty"`
	Status         string `json:"status"`
}

type CreditLowBalance struct {
	TenantID   string `json:"tenant_id"`
	CreditType string `json:"credit_type"`
	Balance    int64  `json:"balance"`
	Threshold  int64  `json:"threshold"`
}

type Dispatch struct {
	MessageID string `json:"message_id"`
	TenantID  string `json:"tenant_id"`
}

type Invoice struct {
	InvoiceID      string    `json:"invoice_id"`
	TenantID       string    `json:"tenant_id"`
	SubscriptionID string    `json:"subscription_id"`
	Number         string    `json:"number"`
	Total          int64     `json:"total"`
	DueAt          time.Time `json:"due_at"`
	GraceUntil     time.Time `json:"grace_until"`
}

type Tenant struct {
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	OwnerUserID string `json:"owner_user_id"`
}
