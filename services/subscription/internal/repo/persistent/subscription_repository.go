package persistent

import (
	"context"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/subscription/internal/entity"

	"gorm.io/gorm"
)

type InvoiceFilter struct {
	TenantID       string
	SubscriptionID string
	Status         string
}

// BillingChange is written atomically: the subscription is saved, open
// invoices of it are voided when VoidOpen is set, and NewInvoice is created.
type BillingChange struct {
	Subscription *entity.Subscription
	NewInvoice   *entity.Invoice
	VoidOpen     bool
}

type SubscriptionRepository interface {
	CreatePlan(ctx context.Context, plan *entity.Plan) error
	UpdatePlan(ctx context.Context, plan *entity.Plan) error
	GetPlan(ctx context.Context, id string) (*entity.Plan, error)
	GetPlanByCode(ctx context.Context, code string) (*entity.Plan, error)
	ListPlans(ctx context.Context, publicOnly bool) ([]*entity.Plan, error)

	// GetSubscription returns the tenant's subscription with its plan.
	GetSubscription(ctx context.Context, tenantID string) (*entity.Subscription, error)
	GetSubscriptionByID(ctx context.Context, id string) (*entity.Subscription, error)
	ListSubscriptions(ctx context.Context, status string, limit, offset int) ([]*entity.Subscription, int64, error)
	DueForRenewal(ctx context.Context, now time.Time) ([]*entity.Subscription, error)
	Apply(ctx context.Context, change BillingChange) error

	GetInvoice(ctx context.Context, id string) (*entity.Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter, limit, offset int) ([]*entity.Invoice, int64, error)
	OverdueCandidates(ctx context.Context, now time.Time) ([]*entity.Invoice, error)
	// SaveInvoice updates the invoice and, when sub is not nil, the subscription in one transaction.
	SaveInvoice(ctx context.Context, invoice *entity.Invoice, sub *entity.Subscription) error

	CountUsage(ctx context.Context, tenantID string) (entity.Counts, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) CreatePlan(ctx context.Context, plan *entity.Plan) error {
	planModel := ToPlanModel(plan)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(planModel).Error; err != nil {
			return err
		}
		// is_active and is_public default to true in the schema, so false
		// values are written after the insert.
		if !plan.IsActive || !plan.IsPublic {
			err := tx.Model(planModel).Select("is_active", "is_public").
				Updates(map[string]interface{}{"is_active": plan.IsActive, "is_public": plan.IsPublic}).Error
			if err != nil {
				return err
			}
			planModel.IsActive, planModel.IsPublic = plan.IsActive, plan.IsPublic
		}
		*plan = *ToPlanEntity(planModel)
		return nil
	})
}

func (r *subscriptionRepository) UpdatePlan(ctx context.Context, plan *entity.Plan) error {
	return r.db.WithContext(ctx).Save(ToPlanModel(plan)).Error
}

func (r *subscriptionRepository) GetPlan(ctx context.Context, id string) (*entity.Plan, error) {
	var planModel models.SubscriptionPlan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&planModel).Error; err != nil {
		return nil, apperror.FromDB(err, "plan")
	}
	return ToPlanEntity(&planModel), nil
}

func (r *subscriptionRepository) GetPlanByCode(ctx context.Context, code string) (*entity.Plan, error) {
	var planModel models.SubscriptionPlan
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&planModel).Error; err != nil {
		return nil, apperror.FromDB(err, "plan")
	}
	return ToPlanEntity(&planModel), nil
}

func (r *subscriptionRepository) ListPlans(ctx context.Context, publicOnly bool) ([]*entity.Plan, error) {
	query := r.db.WithContext(ctx)
	if publicOnly {
		query = query.Where("is_active = ? AND is_public = ?", true, true)
	}

	var planModels []models.SubscriptionPlan
	if err := query.Order("price, code").Find(&planModels).Error; err != nil {
		return nil, err
	}

	plans := make([]*entity.Plan, len(planModels))
	for i := range planModels {
		plans[i] = ToPlanEntity(&planModels[i])
	}
	return plans, nil
}

func (r *subscriptionRepository) GetSubscription(ctx context.Context, tenantID string) (*entity.Subscription, error) {
	var subModel models.TenantSubscription
	if err := r.db.WithContext(ctx).Preload("Plan").Where("tenant_id = ?", tenantID).First(&subModel).Error; err != nil {
		return nil, apperror.FromDB(err, "subscription")
	}
	return ToSubscriptionEntity(&subModel), nil
}

func (r *subscriptionRepository) GetSubscriptionByID(ctx context.Context, id string) (*entity.Subscription, error) {
	var subModel models.TenantSubscription
	if err := r.db.WithContext(ctx).Preload("Plan").Where("id = ?", id).First(&subModel).Error; err != nil {
		return nil, apperror.FromDB(err, "subscription")
	}
	return ToSubscriptionEntity(&subModel), nil
}

func (r *subscriptionRepository) ListSubscriptions(ctx context.Context, status string, limit, offset int) ([]*entity.Subscription, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TenantSubscription{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subModels []models.TenantSubscription
	if err := query.Preload("Plan").Order("created_at DESC").Limit(limit).Offset(offset).Find(&subModels).Error; err != nil {
		return nil, 0, err
	}
	return toSubscriptions(subModels), total, nil
}

func (r *subscriptionRepository) DueForRenewal(ctx context.Context, now time.Time) ([]*entity.Subscription, error) {
	var subModels []models.TenantSubscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("status IN ? AND current_period_end <= ?", []string{models.SubscriptionActive, models.SubscriptionTrialing}, now).
		Order("current_period_end").
		Find(&subModels).Error
	if err != nil {
		return nil, err
	}
	return toSubscriptions(subModels), nil
}

func (r *subscriptionRepository) Apply(ctx context.Context, change BillingChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subModel := ToSubscriptionModel(change.Subscription)
		if subModel.ID == "" {
			if err := tx.Create(subModel).Error; err != nil {
				return err
			}
		} else if err := tx.Save(subModel).Error; err != nil {
			return err
		}
		change.Subscription.ID = subModel.ID
		change.Subscription.CreatedAt = subModel.CreatedAt
		change.Subscription.UpdatedAt = subModel.UpdatedAt

		if change.VoidOpen {
			err := tx.Model(&models.Invoice{}).
				Where("subscription_id = ? AND status IN ?", subModel.ID, []string{models.InvoiceOpen, models.InvoiceOverdue}).
				Update("status", models.InvoiceVoid).Error
			if err != nil {
				return err
			}
		}

		if change.NewInvoice != nil {
			change.NewInvoice.SubscriptionID = subModel.ID
			invoiceModel := ToInvoiceModel(change.NewInvoice)
			if err := tx.Create(invoiceModel).Error; err != nil {
				return err
			}
			*change.NewInvoice = *ToInvoiceEntity(invoiceModel)
		}
		return nil
	})
}

func (r *subscriptionRepository) GetInvoice(ctx context.Context, id string) (*entity.Invoice, error) {
	var invoiceModel models.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoiceModel).Error; err != nil {
		return nil, apperror.FromDB(err, "invoice")
	}
	return ToInvoiceEntity(&invoiceModel), nil
}

func (r *subscriptionRepository) ListInvoices(ctx context.Context, filter InvoiceFilter, limit, offset int) ([]*entity.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.SubscriptionID != "" {
		query = query.Where("subscription_id = ?", filter.SubscriptionID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoiceModels []models.Invoice
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}
	return toInvoices(invoiceModels), total, nil
}

func (r *subscriptionRepository) OverdueCandidates(ctx context.Context, now time.Time) ([]*entity.Invoice, error) {
	var invoiceModels []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND grace_until < ?", models.InvoiceOpen, now).
		Order("grace_until").
		Find(&invoiceModels).Error
	if err != nil {
		return nil, err
	}
	return toInvoices(invoiceModels), nil
}

func (r *subscriptionRepository) SaveInvoice(ctx context.Context, invoice *entity.Invoice, sub *entity.Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(ToInvoiceModel(invoice)).Error; err != nil {
			return err
		}
		if sub != nil {
			return tx.Save(ToSubscriptionModel(sub)).Error
		}
		return nil
	})
}

func (r *subscriptionRepository) CountUsage(ctx context.Context, tenantID string) (entity.Counts, error) {
	var counts entity.Counts
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Library{}).Where("tenant_id = ? AND is_active = ?", tenantID, true).Count(&counts.Libraries).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.Seat{}).Where("tenant_id = ? AND status <> ?", tenantID, models.SeatStatusDisabled).Count(&counts.Seats).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.User{}).Where("tenant_id = ? AND role = ? AND is_active = ?", tenantID, roles.Student, true).Count(&counts.Students).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

func toSubscriptions(subModels []models.TenantSubscription) []*entity.Subscription {
	subs := make([]*entity.Subscription, len(subModels))
	for i := range subModels {
		subs[i] = ToSubscriptionEntity(&subModels[i])
	}
	return subs
}

func toInvoices(invoiceModels []models.Invoice) []*entity.Invoice {
	invoices := make([]*entity.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = ToInvoiceEntity(&invoiceModels[i])
	}
	return invoices
}
