package persistent

import (
	"studyspot/pkg/models"
	"studyspot/services/library/internal/entity"
)

func ToLibraryEntity(m *models.Library) *entity.Library {
	return &entity.Library{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Name:      m.Name,
		Address:   m.Address,
		City:      m.City,
		OpenTime:  m.OpenTime,
		CloseTime: m.CloseTime,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func ToLibraryModel(e *entity.Library) *models.Library {
	return &models.Library{
		ID:        e.ID,
		TenantID:  e.TenantID,
		Name:      e.Name,
		Address:   e.Address,
		City:      e.City,
		OpenTime:  e.OpenTime,
		CloseTime: e.CloseTime,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func ToSeatEntity(m *models.Seat) *entity.Seat {
	return &entity.Seat{
		ID:        m.ID,
		TenantID:  m.TenantID,
		LibraryID: m.LibraryID,
		Label:     m.Label,
		Zone:      m.Zone,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func ToSeatModel(e *entity.Seat) *models.Seat {
	return &models.Seat{
		ID:        e.ID,
		TenantID:  e.TenantID,
		LibraryID: e.LibraryID,
		Label:     e.Label,
		Zone:      e.Zone,
		Status:    e.Status,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func ToFeePlanEntity(m *models.FeePlan) *entity.FeePlan {
	plan := &entity.FeePlan{
		ID:              m.ID,
		TenantID:        m.TenantID,
		Name:            m.Name,
		PlanType:        m.PlanType,
		Price:           m.Price,
		DiscountPercent: m.DiscountPercent,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.LibraryID != nil {
		plan.LibraryID = *m.LibraryID
	}
	return plan
}

func ToFeePlanModel(e *entity.FeePlan) *models.FeePlan {
	plan := &models.FeePlan{
		ID:              e.ID,
		TenantID:        e.TenantID,
		Name:            e.Name,
		PlanType:        e.PlanType,
		Price:           e.Price,
		DiscountPercent: e.DiscountPercent,
		IsActive:        e.IsActive,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.LibraryID != "" {
		libraryID := e.LibraryID
		plan.LibraryID = &libraryID
	}
	return plan
}

func ToBookingEntity(m *models.Booking) *entity.Booking {
	booking := &entity.Booking{
		ID:           m.ID,
		TenantID:     m.TenantID,
		LibraryID:    m.LibraryID,
		SeatID:       m.SeatID,
		StudentID:    m.StudentID,
		FeePlanID:    m.FeePlanID,
		StartTime:    m.StartTime,
		EndTime:      m.EndTime,
		Units:        m.Units,
		Amount:       m.Amount,
		Status:       m.Status,
		CheckedInAt:  m.CheckedInAt,
		CheckedOutAt: m.CheckedOutAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.PaymentID != nil {
		booking.PaymentID = *m.PaymentID
	}
	return booking
}

func ToBookingModel(e *entity.Booking) *models.Booking {
	booking := &models.Booking{
		ID:           e.ID,
		TenantID:     e.TenantID,
		LibraryID:    e.LibraryID,
		SeatID:       e.SeatID,
		StudentID:    e.StudentID,
		FeePlanID:    e.FeePlanID,
		StartTime:    e.StartTime,
		EndTime:      e.EndTime,
		Units:        e.Units,
		Amount:       e.Amount,
		Status:       e.Status,
		CheckedInAt:  e.CheckedInAt,
		CheckedOutAt: e.CheckedOutAt,
		CancelledAt:  e.CancelledAt,
		CancelReason: e.CancelReason,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.PaymentID != "" {
		paymentID := e.PaymentID
		booking.PaymentID = &paymentID
	}
	return booking
}
