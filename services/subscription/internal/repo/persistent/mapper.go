package persistent

import (
	"studyspot/pkg/models"
	"studyspot/services/subscription/internal/entity"

	"gorm.io/datatypes"
)

func ToPlanEntity(m *models.SubscriptionPlan) *entity.Plan {
	if m == nil {
		return nil
	}
	return &entity.Plan{
		ID:              m.ID,
		Code:            m.Code,
		Name:            m.Name,
		Description:     m.Description,
		Price:           m.Price,
		BillingPeriod:   m.BillingPeriod,
		TrialDays:       m.TrialDays,
		MaxLibraries:    m.MaxLibraries,
		MaxSeats:        m.MaxSeats,
		MaxStudents:     m.MaxStudents,
		IncludedCredits: m.IncludedCredits,
		Features:        map[string]interface{}(m.Features),
		IsActive:        m.IsActive,
		IsPublic:        m.IsPublic,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func ToPlanModel(e *entity.Plan) *models.SubscriptionPlan {
	return &models.SubscriptionPlan{
		ID:              e.ID,
		Code:            e.Code,
		Name:            e.Name,
		Description:     e.Description,
		Price:           e.Price,
		BillingPeriod:   e.BillingPeriod,
		TrialDays:       e.TrialDays,
		MaxLibraries:    e.MaxLibraries,
		MaxSeats:        e.MaxSeats,
		MaxStudents:     e.MaxStudents,
		IncludedCredits: e.IncludedCredits,
		Features:        datatypes.JSONMap(e.Features),
		IsActive:        e.IsActive,
		IsPublic:        e.IsPublic,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func ToSubscriptionEntity(m *models.TenantSubscription) *entity.Subscription {
	if m == nil {
		return nil
	}
	return &entity.Subscription{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		PlanID:             m.PlanID,
		Plan:               ToPlanEntity(m.Plan),
		Status:             m.Status,
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		CancelAtPeriodEnd:  m.CancelAtPeriodEnd,
		CanceledAt:         m.CanceledAt,
		TrialEndsAt:        m.TrialEndsAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// ToSubscriptionModel leaves Plan unset so saves never touch the plan row.
func ToSubscriptionModel(e *entity.Subscription) *models.TenantSubscription {
	return &models.TenantSubscription{
		ID:                 e.ID,
		TenantID:           e.TenantID,
		PlanID:             e.PlanID,
		Status:             e.Status,
		CurrentPeriodStart: e.CurrentPeriodStart,
		CurrentPeriodEnd:   e.CurrentPeriodEnd,
		CancelAtPeriodEnd:  e.CancelAtPeriodEnd,
		CanceledAt:         e.CanceledAt,
		TrialEndsAt:        e.TrialEndsAt,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func ToInvoiceEntity(m *models.Invoice) *entity.Invoice {
	return &entity.Invoice{
		ID:               m.ID,
		TenantID:         m.TenantID,
		SubscriptionID:   m.SubscriptionID,
		Number:           m.Number,
		Amount:           m.Amount,
		Tax:              m.Tax,
		Total:            m.Total,
		Status:           m.Status,
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		DueAt:            m.DueAt,
		GraceUntil:       m.GraceUntil,
		PaidAt:           m.PaidAt,
		PaymentReference: m.PaymentRef,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func ToInvoiceModel(e *entity.Invoice) *models.Invoice {
	return &models.Invoice{
		ID:             e.ID,
		TenantID:       e.TenantID,
		SubscriptionID: e.SubscriptionID,
		Number:         e.Number,
		Amount:         e.Amount,
		Tax:            e.Tax,
		Total:          e.Total,
		Status:         e.Status,
		PeriodStart:    e.PeriodStart,
		PeriodEnd:      e.PeriodEnd,
		DueAt:          e.DueAt,
		GraceUntil:     e.GraceUntil,
		PaidAt:         e.PaidAt,
		PaymentRef:     e.PaymentReference,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
