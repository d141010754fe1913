package persistent

import (
	"studyspot/pkg/models"
	"studyspot/services/payment/internal/entity"
)

func ToPaymentEntity(m *models.Payment) *entity.Payment {
	payment := &entity.Payment{
		ID:               m.ID,
		TenantID:         m.TenantID,
		StudentID:        m.StudentID,
		ReceiptNumber:    m.ReceiptNumber,
		Amount:           m.Amount,
		PlatformFee:      m.PlatformFee,
		Tax:              m.Tax,
		Total:            m.Total,
		RefundedAmount:   m.RefundedAmount,
		Currency:         m.Currency,
		Method:           m.Method,
		Purpose:          m.Purpose,
		Status:           m.Status,
		GatewayReference: m.GatewayReference,
		FailureReason:    m.FailureReason,
		Notes:            m.Notes,
		RecordedBy:       m.RecordedBy,
		PaidAt:           m.PaidAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.BookingID != nil {
		payment.BookingID = *m.BookingID
	}
	return payment
}

func ToPaymentModel(e *entity.Payment) *models.Payment {
	payment := &models.Payment{
		ID:               e.ID,
		TenantID:         e.TenantID,
		StudentID:        e.StudentID,
		ReceiptNumber:    e.ReceiptNumber,
		Amount:           e.Amount,
		PlatformFee:      e.PlatformFee,
		Tax:              e.Tax,
		Total:            e.Total,
		RefundedAmount:   e.RefundedAmount,
		Currency:         e.Currency,
		Method:           e.Method,
		Purpose:          e.Purpose,
		Status:           e.Status,
		GatewayReference: e.GatewayReference,
		FailureReason:    e.FailureReason,
		Notes:            e.Notes,
		RecordedBy:       e.RecordedBy,
		PaidAt:           e.PaidAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	if e.BookingID != "" {
		bookingID := e.BookingID
		payment.BookingID = &bookingID
	}
	return payment
}
