package persistent

import (
	"context"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/payment/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPaymentChanged = apperror.Conflict(apperror.CodeConflict, "Payment was changed by another request, retry")

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Payment, error)
	// Mutate locks the payment, hands it to change and stores the result in
	// one transaction. An error from change aborts without writing.
	Mutate(ctx context.Context, tenantID, id string, change func(*entity.Payment) error) (*entity.Payment, error)
	List(ctx context.Context, filter entity.PaymentFilter, limit, offset int) ([]*entity.Payment, int64, error)
	Summary(ctx context.Context, filter entity.PaymentFilter) (*entity.Summary, error)
	IsActiveStudent(ctx context.Context, tenantID, userID string) (bool, error)
	BookingOf(ctx context.Context, tenantID, bookingID string) (studentID string, err error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	paymentModel := ToPaymentModel(payment)
	if err := r.db.WithContext(ctx).Create(paymentModel).Error; err != nil {
		return err
	}
	*payment = *ToPaymentEntity(paymentModel)
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, tenantID, id string) (*entity.Payment, error) {
	var paymentModel models.Payment
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if err := query.First(&paymentModel).Error; err != nil {
		return nil, apperror.FromDB(err, "payment")
	}
	return ToPaymentEntity(&paymentModel), nil
}

func (r *paymentRepository) Mutate(ctx context.Context, tenantID, id string, change func(*entity.Payment) error) (*entity.Payment, error) {
	var payment *entity.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Payment
		query := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
		if tenantID != "" {
			query = query.Where("tenant_id = ?", tenantID)
		}
		if err := query.First(&row).Error; err != nil {
			return apperror.FromDB(err, "payment")
		}

		payment = ToPaymentEntity(&row)
		if err := change(payment); err != nil {
			return err
		}

		// The guard catches writers that got past a lock the dialect ignores.
		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ? AND refunded_amount = ?", row.ID, row.Status, row.RefundedAmount).
			Updates(map[string]interface{}{
				"status":            payment.Status,
				"refunded_amount":   payment.RefundedAmount,
				"gateway_reference": payment.GatewayReference,
				"failure_reason":    payment.FailureReason,
				"notes":             payment.Notes,
				"paid_at":           payment.PaidAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPaymentChanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) filtered(ctx context.Context, filter entity.PaymentFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}
	return query
}

func (r *paymentRepository) List(ctx context.Context, filter entity.PaymentFilter, limit, offset int) ([]*entity.Payment, int64, error) {
	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var paymentModels []models.Payment
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]*entity.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = ToPaymentEntity(&paymentModels[i])
	}
	return payments, total, nil
}

type groupCount struct {
	Label string
	Count int64
}

func (r *paymentRepository) Summary(ctx context.Context, filter entity.PaymentFilter) (*entity.Summary, error) {
	summary := &entity.Summary{
		ByStatus: map[string]int64{},
		ByMethod: map[string]int64{},
	}

	var totals struct {
		Collected int64
		Refunded  int64
		Count     int64
	}
	if err := r.filtered(ctx, filter).
		Select(
			"COALESCE(SUM(CASE WHEN status IN ? THEN total ELSE 0 END), 0) AS collected, "+
				"COALESCE(SUM(refunded_amount), 0) AS refunded, COUNT(*) AS count",
			[]string{models.PaymentStatusCompleted, models.PaymentStatusRefunded, models.PaymentStatusPartiallyRefunded},
		).
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	summary.Collected = totals.Collected
	summary.Refunded = totals.Refunded
	summary.Net = totals.Collected - totals.Refunded
	summary.Count = totals.Count

	var byStatus []groupCount
	if err := r.filtered(ctx, filter).Select("status AS label, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, g := range byStatus {
		summary.ByStatus[g.Label] = g.Count
	}

	var byMethod []groupCount
	if err := r.filtered(ctx, filter).Select("method AS label, COUNT(*) AS count").Group("method").Scan(&byMethod).Error; err != nil {
		return nil, err
	}
	for _, g := range byMethod {
		summary.ByMethod[g.Label] = g.Count
	}

	return summary, nil
}

func (r *paymentRepository) IsActiveStudent(ctx context.Context, tenantID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND tenant_id = ? AND role = ? AND is_active = ?", userID, tenantID, roles.Student, true).
		Count(&count).Error
	return count > 0, err
}

func (r *paymentRepository) BookingOf(ctx context.Context, tenantID, bookingID string) (string, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Select("student_id").
		Where("id = ? AND tenant_id = ?", bookingID, tenantID).
		First(&booking).Error; err != nil {
		return "", apperror.FromDB(err, "booking")
	}
	return booking.StudentID, nil
}
