package entity

import "time"

type Booking struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	LibraryID    string     `json:"library_id"`
	SeatID       string     `json:"seat_id"`
	SeatLabel    string     `json:"seat_label,omitempty"`
	StudentID    string     `json:"student_id"`
	FeePlanID    string     `json:"fee_plan_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Units        int64      `json:"units"`
	Amount       int64      `json:"amount"`
	Status       string     `json:"status"`
	PaymentID    string     `json:"payment_id,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type BookingFilter struct {
	TenantID  string
	Status    string
	LibraryID string
	StudentID string
}

// ActiveBookingStatuses hold a seat.
var ActiveBookingStatuses = []string{"pending", "confirmed", "checked_in"}
