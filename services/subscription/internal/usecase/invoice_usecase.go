package usecase

import (
	"context"
	"fmt"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/subscription/internal/entity"
	"studyspot/services/subscription/internal/repo/persistent"
)

type InvoiceUseCase interface {
	ListInvoices(ctx context.Context, actor roles.Actor, filter persistent.InvoiceFilter, limit, offset int) ([]*entity.Invoice, int64, error)
	GetInvoice(ctx context.Context, actor roles.Actor, id string) (*entity.Invoice, error)
	PayInvoice(ctx context.Context, actor roles.Actor, id, reference string) (*entity.Invoice, error)
}

// RenewalResult counts what one RenewDue run did.
type RenewalResult struct {
	Renewed  int
	Canceled int
	Failed   int
}

// BillingJobs are the periodic tasks run by the scheduler.
type BillingJobs interface {
	RenewDue(ctx context.Context) (RenewalResult, error)
	MarkOverdue(ctx context.Context) (int, error)
}

// InvoiceService serves both the HTTP handlers and the scheduler.
type InvoiceService interface {
	InvoiceUseCase
	BillingJobs
}

type invoiceUseCase struct {
	repo persistent.SubscriptionRepository
	*billing
	now func() time.Time
}

func NewInvoiceUseCase(repo persistent.SubscriptionRepository, numbers InvoiceNumbers, credits CreditGranter, publisher events.Publisher, terms Terms, logger *logger.Logger) InvoiceService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &invoiceUseCase{
		repo: repo,
		billing: &billing{
			numbers:   numbers,
			credits:   credits,
			publisher: publisher,
			terms:     terms,
			logger:    logger,
		},
		now: time.Now,
	}
}

func (uc *invoiceUseCase) ListInvoices(ctx context.Context, actor roles.Actor, filter persistent.InvoiceFilter, limit, offset int) ([]*entity.Invoice, int64, error) {
	if !actor.IsPlatform() {
		if err := requireTenant(actor); err != nil {
			return nil, 0, err
		}
		filter.TenantID = actor.TenantID
	}
	return uc.repo.ListInvoices(ctx, filter, limit, offset)
}

func (uc *invoiceUseCase) GetInvoice(ctx context.Context, actor roles.Actor, id string) (*entity.Invoice, error) {
	invoice, err := uc.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessTenant(invoice.TenantID) {
		return nil, apperror.NotFound("invoice not found")
	}
	return invoice, nil
}

func (uc *invoiceUseCase) PayInvoice(ctx context.Context, actor roles.Actor, id, reference string) (*entity.Invoice, error) {
	invoice, err := uc.GetInvoice(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !invoice.Payable() {
		return nil, apperror.InvalidStatus(fmt.Sprintf("invoice is %s", invoice.Status))
	}

	now := uc.now().UTC()
	invoice.Status = models.InvoicePaid
	invoice.PaidAt = &now
	invoice.PaymentReference = reference

	var sub *entity.Subscription
	current, err := uc.repo.GetSubscriptionByID(ctx, invoice.SubscriptionID)
	if err != nil && !apperror.IsCode(err, apperror.CodeNotFound) {
		return nil, err
	}
	if err == nil && current.Status == models.SubscriptionPastDue {
		current.Status = models.SubscriptionActive
		current.Plan = nil
		sub = current
	}

	if err := uc.repo.SaveInvoice(ctx, invoice, sub); err != nil {
		return nil, fmt.Errorf("failed to record invoice payment: %w", err)
	}

	uc.logger.Info("Invoice %s paid by %s", invoice.Number, actor.UserID)
	if sub != nil {
		uc.logger.Info("Tenant %s reactivated after payment", sub.TenantID)
	}
	return invoice, nil
}

// RenewDue advances every subscription whose period has ended by one period.
// Subscriptions pending cancellation are closed instead. A subscription that
// is several periods behind catches up one period per run.
func (uc *invoiceUseCase) RenewDue(ctx context.Context) (RenewalResult, error) {
	var result RenewalResult
	now := uc.now().UTC()

	due, err := uc.repo.DueForRenewal(ctx, now)
	if err != nil {
		return result, err
	}

	for _, sub := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		canceled, err := uc.renew(ctx, sub, now)
		switch {
		case err != nil:
			result.Failed++
			uc.logger.Error("Failed to renew subscription %s: %v", sub.ID, err)
		case canceled:
			result.Canceled++
		default:
			result.Renewed++
		}
	}
	return result, nil
}

func (uc *invoiceUseCase) renew(ctx context.Context, sub *entity.Subscription, now time.Time) (bool, error) {
	if sub.CancelAtPeriodEnd {
		sub.Status = models.SubscriptionCanceled
		if sub.CanceledAt == nil {
			sub.CanceledAt = &now
		}
		sub.Plan = nil
		if err := uc.repo.Apply(ctx, persistent.BillingChange{Subscription: sub}); err != nil {
			return false, err
		}
		uc.logger.Info("Subscription %s of tenant %s canceled at period end", sub.ID, sub.TenantID)
		return true, nil
	}

	plan := sub.Plan
	if plan == nil {
		var err error
		if plan, err = uc.repo.GetPlan(ctx, sub.PlanID); err != nil {
			return false, err
		}
	}

	sub.CurrentPeriodStart = sub.CurrentPeriodEnd
	sub.CurrentPeriodEnd = entity.AdvancePeriod(sub.CurrentPeriodStart, plan.BillingPeriod)
	sub.Status = models.SubscriptionActive
	sub.TrialEndsAt = nil
	sub.Plan = nil

	invoice := uc.newInvoice(sub, plan, now)
	if err := uc.repo.Apply(ctx, persistent.BillingChange{Subscription: sub, NewInvoice: invoice}); err != nil {
		return false, err
	}
	sub.Plan = plan

	if invoice != nil {
		uc.publishInvoice(ctx, events.SubscriptionInvoiceCreated, invoice)
	}
	uc.grantIncluded(ctx, sub, plan)
	return false, nil
}

// MarkOverdue flags open invoices past their grace period and moves the
// owning subscription to past_due.
func (uc *invoiceUseCase) MarkOverdue(ctx context.Context) (int, error) {
	now := uc.now().UTC()
	invoices, err := uc.repo.OverdueCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, invoice := range invoices {
		if ctx.Err() != nil {
			return marked, ctx.Err()
		}
		invoice.Status = models.InvoiceOverdue

		var sub *entity.Subscription
		current, err := uc.repo.GetSubscriptionByID(ctx, invoice.SubscriptionID)
		if err != nil && !apperror.IsCode(err, apperror.CodeNotFound) {
			uc.logger.Error("Failed to load subscription for invoice %s: %v", invoice.Number, err)
			continue
		}
		if err == nil && current.Live() && current.Status != models.SubscriptionPastDue {
			current.Status = models.SubscriptionPastDue
			current.Plan = nil
			sub = current
		}

		if err := uc.repo.SaveInvoice(ctx, invoice, sub); err != nil {
			uc.logger.Error("Failed to mark invoice %s overdue: %v", invoice.Number, err)
			continue
		}
		marked++
		uc.publishInvoice(ctx, events.SubscriptionPastDue, invoice)
	}
	return marked, nil
}
