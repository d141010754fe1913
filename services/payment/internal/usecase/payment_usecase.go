package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/pricing"
	"studyspot/pkg/roles"
	"studyspot/services/payment/internal/entity"
	"studyspot/services/payment/internal/repo/cache"
	"studyspot/services/payment/internal/repo/persistent"
)

const (
	CodeRefundExceedsPaid     = "REFUND_EXCEEDS_PAID"
	CodeIdempotencyInProgress = "IDEMPOTENCY_IN_PROGRESS"

	DefaultSummaryWindow = 30 * 24 * time.Hour

	paymentEventPriority = 5
	currencyINR          = "INR"
)

// ReceiptIssuer hands out unique receipt numbers.
type ReceiptIssuer interface {
	Receipt() string
}

type Fees struct {
	PlatformFeeBps int64
	TaxBps         int64
}

type PaymentUseCase interface {
	RecordPayment(ctx context.Context, actor roles.Actor, input RecordPaymentInput, idempotencyKey string) (payment *entity.Payment, replayed bool, err error)
	Complete(ctx context.Context, actor roles.Actor, id, gatewayReference string) (*entity.Payment, error)
	Fail(ctx context.Context, actor roles.Actor, id, reason string) (*entity.Payment, error)
	Refund(ctx context.Context, actor roles.Actor, id string, input RefundInput) (*entity.Payment, error)
	ListPayments(ctx context.Context, actor roles.Actor, filter entity.PaymentFilter, limit, offset int) ([]*entity.Payment, int64, error)
	GetPayment(ctx context.Context, actor roles.Actor, id string) (*entity.Payment, error)
	Summary(ctx context.Context, actor roles.Actor, from, to *time.Time) (*entity.Summary, error)
}

type paymentUseCase struct {
	repo        persistent.PaymentRepository
	idempotency cache.IdempotencyStore
	receipts    ReceiptIssuer
	publisher   events.Publisher
	fees        Fees
	logger      *logger.Logger
	now         func() time.Time
}

func NewPaymentUseCase(repo persistent.PaymentRepository, idempotency cache.IdempotencyStore, receipts ReceiptIssuer, publisher events.Publisher, fees Fees, logger *logger.Logger) PaymentUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &paymentUseCase{
		repo:        repo,
		idempotency: idempotency,
		receipts:    receipts,
		publisher:   publisher,
		fees:        fees,
		logger:      logger,
		now:         time.Now,
	}
}

func requireTenant(actor roles.Actor) error {
	if actor.TenantID == "" {
		return apperror.BadRequest("tenant_id is required")
	}
	return nil
}

func (uc *paymentUseCase) RecordPayment(ctx context.Context, actor roles.Actor, input RecordPaymentInput, idempotencyKey string) (*entity.Payment, bool, error) {
	if err := requireTenant(actor); err != nil {
		return nil, false, err
	}
	if err := input.Validate(); err != nil {
		return nil, false, err
	}
	if idempotencyKey == "" {
		payment, err := uc.record(ctx, actor, input)
		return payment, false, err
	}

	previous, held, err := uc.reserve(ctx, actor.TenantID, idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if previous != nil {
		return previous, true, nil
	}

	payment, err := uc.record(ctx, actor, input)
	if err != nil {
		if held {
			if releaseErr := uc.idempotency.Release(ctx, actor.TenantID, idempotencyKey); releaseErr != nil {
				uc.logger.Warn("Failed to release idempotency key %s: %v", idempotencyKey, releaseErr)
			}
		}
		return nil, false, err
	}

	if err := uc.idempotency.Remember(ctx, actor.TenantID, idempotencyKey, payment); err != nil {
		uc.logger.Warn("Failed to store idempotency key %s: %v", idempotencyKey, err)
	}
	return payment, false, nil
}

// reserve claims the idempotency key. It returns the stored payment when the
// key already completed, and held is false when recording proceeds unclaimed.
func (uc *paymentUseCase) reserve(ctx context.Context, tenantID, key string) (previous *entity.Payment, held bool, err error) {
	held, err = uc.idempotency.Reserve(ctx, tenantID, key)
	if err != nil {
		uc.logger.Warn("Idempotency reservation failed for key %s: %v", key, err)
		return nil, false, nil
	}
	if held {
		return nil, true, nil
	}

	var stored entity.Payment
	found, err := uc.idempotency.Lookup(ctx, tenantID, key, &stored)
	switch {
	case errors.Is(err, cache.ErrRequestInFlight):
		return nil, false, apperror.Conflict(CodeIdempotencyInProgress, "A request with this Idempotency-Key is still being processed")
	case err != nil:
		uc.logger.Warn("Idempotency lookup failed for key %s: %v", key, err)
		return nil, false, nil
	case found:
		return &stored, false, nil
	}
	return nil, false, nil
}

func (uc *paymentUseCase) record(ctx context.Context, actor roles.Actor, input RecordPaymentInput) (*entity.Payment, error) {
	ok, err := uc.repo.IsActiveStudent(ctx, actor.TenantID, input.StudentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound("student not found")
	}

	if input.BookingID != "" {
		owner, err := uc.repo.BookingOf(ctx, actor.TenantID, input.BookingID)
		if err != nil {
			return nil, err
		}
		if owner != input.StudentID {
			return nil, apperror.Validation("booking does not belong to this student")
		}
	}

	fees := pricing.Breakdown(input.Amount, uc.fees.PlatformFeeBps, uc.fees.TaxBps)
	payment := &entity.Payment{
		TenantID:      actor.TenantID,
		StudentID:     input.StudentID,
		BookingID:     input.BookingID,
		ReceiptNumber: uc.receipts.Receipt(),
		Amount:        fees.Subtotal,
		PlatformFee:   fees.PlatformFee,
		Tax:           fees.Tax,
		Total:         fees.Total,
		Currency:      currencyINR,
		Method:        input.Method,
		Purpose:       input.Purpose,
		Status:        models.PaymentStatusPending,
		Notes:         input.Notes,
		RecordedBy:    actor.UserID,
	}
	if entity.InstantMethod(input.Method) {
		paidAt := uc.now().UTC()
		payment.Status = models.PaymentStatusCompleted
		payment.PaidAt = &paidAt
	}

	if err := uc.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	uc.logger.Info("Payment %s recorded: receipt %s, %d paise via %s (%s)", payment.ID, payment.ReceiptNumber, payment.Total, payment.Method, payment.Status)

	if payment.Status == models.PaymentStatusCompleted {
		uc.publish(ctx, events.PaymentCompleted, payment)
	}

	return payment, nil
}

func (uc *paymentUseCase) publish(ctx context.Context, key string, p *entity.Payment) {
	payload := events.Payment{
		PaymentID:      p.ID,
		TenantID:       p.TenantID,
		StudentID:      p.StudentID,
		BookingID:      p.BookingID,
		ReceiptNumber:  p.ReceiptNumber,
		Total:          p.Total,
		RefundedAmount: p.RefundedAmount,
		Status:         p.Status,
	}
	if err := uc.publisher.Publish(ctx, key, payload, paymentEventPriority); err != nil {
		uc.logger.Error("Failed to publish %s for payment %s: %v", key, p.ID, err)
	}
}

func requireStaff(actor roles.Actor) error {
	if actor.IsStudent() {
		return apperror.Forbidden(apperror.CodeForbidden, "Insufficient permissions")
	}
	return nil
}

func (uc *paymentUseCase) Complete(ctx context.Context, actor roles.Actor, id, gatewayReference string) (*entity.Payment, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	payment, err := uc.repo.Mutate(ctx, actor.TenantID, id, func(p *entity.Payment) error {
		if p.Status != models.PaymentStatusPending {
			return apperror.InvalidStatus(fmt.Sprintf("Cannot complete a %s payment", p.Status))
		}
		paidAt := uc.now().UTC()
		p.Status = models.PaymentStatusCompleted
		p.GatewayReference = gatewayReference
		p.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		return nil, wrapChange("complete", err)
	}

	uc.logger.Info("Payment %s completed (ref %s)", payment.ID, gatewayReference)
	uc.publish(ctx, events.PaymentCompleted, payment)
	return payment, nil
}

func (uc *paymentUseCase) Fail(ctx context.Context, actor roles.Actor, id, reason string) (*entity.Payment, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	payment, err := uc.repo.Mutate(ctx, actor.TenantID, id, func(p *entity.Payment) error {
		if p.Status != models.PaymentStatusPending {
			return apperror.InvalidStatus(fmt.Sprintf("Cannot fail a %s payment", p.Status))
		}
		p.Status = models.PaymentStatusFailed
		p.FailureReason = reason
		return nil
	})
	if err != nil {
		return nil, wrapChange("mark failed", err)
	}

	uc.logger.Warn("Payment %s failed: %s", payment.ID, reason)
	return payment, nil
}

func (uc *paymentUseCase) Refund(ctx context.Context, actor roles.Actor, id string, input RefundInput) (*entity.Payment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	payment, err := uc.repo.Mutate(ctx, actor.TenantID, id, func(p *entity.Payment) error {
		if p.Status != models.PaymentStatusCompleted && p.Status != models.PaymentStatusPartiallyRefunded {
			return apperror.InvalidStatus(fmt.Sprintf("Cannot refund a %s payment", p.Status))
		}
		if input.Amount > p.Refundable() {
			return apperror.Unprocessable(CodeRefundExceedsPaid,
				fmt.Sprintf("Refund of %d exceeds the refundable amount %d", input.Amount, p.Refundable()))
		}

		p.RefundedAmount += input.Amount
		if p.Refundable() == 0 {
			p.Status = models.PaymentStatusRefunded
		} else {
			p.Status = models.PaymentStatusPartiallyRefunded
		}
		if p.Notes == "" {
			p.Notes = "Refund: " + input.Reason
		} else {
			p.Notes = truncate(p.Notes+"\nRefund: "+input.Reason, 500)
		}
		return nil
	})
	if err != nil {
		return nil, wrapChange("refund", err)
	}

	uc.logger.Info("Payment %s refunded %d paise (%s)", payment.ID, input.Amount, payment.Status)
	uc.publish(ctx, events.PaymentRefunded, payment)
	return payment, nil
}

// wrapChange keeps AppErrors as they are so handlers render their status.
func wrapChange(action string, err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	return fmt.Errorf("failed to %s payment: %w", action, err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (uc *paymentUseCase) ListPayments(ctx context.Context, actor roles.Actor, filter entity.PaymentFilter, limit, offset int) ([]*entity.Payment, int64, error) {
	filter.TenantID = actor.TenantID
	if actor.IsStudent() {
		filter.StudentID = actor.UserID
	}
	return uc.repo.List(ctx, filter, limit, offset)
}

func (uc *paymentUseCase) GetPayment(ctx context.Context, actor roles.Actor, id string) (*entity.Payment, error) {
	payment, err := uc.repo.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if actor.IsStudent() && payment.StudentID != actor.UserID {
		return nil, apperror.NotFound("payment not found")
	}
	return payment, nil
}

func (uc *paymentUseCase) Summary(ctx context.Context, actor roles.Actor, from, to *time.Time) (*entity.Summary, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	end := uc.now().UTC()
	if to != nil {
		end = to.UTC()
	}
	start := end.Add(-DefaultSummaryWindow)
	if from != nil {
		start = from.UTC()
	}
	if !start.Before(end) {
		return nil, apperror.Validation("from must be before to")
	}

	summary, err := uc.repo.Summary(ctx, entity.PaymentFilter{TenantID: actor.TenantID, From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to summarise payments: %w", err)
	}
	summary.From = start
	summary.To = end
	return summary, nil
}
