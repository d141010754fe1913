package entity

import "time"

const (
	MethodCash         = "cash"
	MethodUPI          = "upi"
	MethodCard         = "card"
	MethodBankTransfer = "bank_transfer"
	MethodOnline       = "online"

	PurposeBooking        = "booking"
	PurposeMembership     = "membership"
	PurposeCreditPurchase = "credit_purchase"
	PurposeOther          = "other"
)

type Payment struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	StudentID        string     `json:"student_id"`
	BookingID        string     `json:"booking_id,omitempty"`
	ReceiptNumber    string     `json:"receipt_number"`
	Amount           int64      `json:"amount"`
	PlatformFee      int64      `json:"platform_fee"`
	Tax              int64      `json:"tax"`
	Total            int64      `json:"total"`
	RefundedAmount   int64      `json:"refunded_amount"`
	Currency         string     `json:"currency"`
	Method           string     `json:"method"`
	Purpose          string     `json:"purpose"`
	Status           string     `json:"status"`
	GatewayReference string     `json:"gateway_reference,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	RecordedBy       string     `json:"recorded_by"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Refundable is what is left to refund on a completed payment.
func (p *Payment) Refundable() int64 {
	return p.Total - p.RefundedAmount
}

// InstantMethod reports whether money is in hand when the payment is recorded.
func InstantMethod(method string) bool {
	switch method {
	case MethodCash, MethodUPI, MethodBankTransfer:
		return true
	}
	return false
}

type PaymentFilter struct {
	TenantID  string
	Status    string
	StudentID string
	Method    string
	From      *time.Time
	To        *time.Time
}

type Summary struct {
	From      time.Time        `json:"from"`
	To        time.Time        `json:"to"`
	Collected int64            `json:"collected"`
	Refunded  int64            `json:"refunded"`
	Net       int64            `json:"net"`
	Count     int64            `json:"count"`
	ByStatus  map[string]int64 `json:"by_status"`
	ByMethod  map[string]int64 `json:"by_method"`
}
