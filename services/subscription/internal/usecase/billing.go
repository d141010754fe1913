package usecase

import (
	"context"
	"time"

	"studyspot/pkg/creditclient"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/pricing"
	"studyspot/services/subscription/internal/entity"
)

const invoicePriority = 5

// InvoiceNumbers is satisfied by *idgen.Generator.
type InvoiceNumbers interface {
	Invoice() string
}

// CreditGranter is satisfied by *creditclient.Client.
type CreditGranter interface {
	Grant(ctx context.Context, req creditclient.Request) (*creditclient.Result, error)
}

type Terms struct {
	TaxBps    int64
	GraceDays int
}

// billing is shared by the request path and the scheduled jobs.
type billing struct {
	numbers   InvoiceNumbers
	credits   CreditGranter
	publisher events.Publisher
	terms     Terms
	logger    *logger.Logger
}

// newInvoice bills plan for one period, or returns nil for free plans.
func (b *billing) newInvoice(sub *entity.Subscription, plan *entity.Plan, now time.Time) *entity.Invoice {
	if plan.Price <= 0 {
		return nil
	}
	tax := pricing.Breakdown(plan.Price, 0, b.terms.TaxBps).Tax
	return &entity.Invoice{
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		Number:         b.numbers.Invoice(),
		Amount:         plan.Price,
		Tax:            tax,
		Total:          plan.Price + tax,
		Status:         models.InvoiceOpen,
		PeriodStart:    sub.CurrentPeriodStart,
		PeriodEnd:      sub.CurrentPeriodEnd,
		DueAt:          now,
		GraceUntil:     now.AddDate(0, 0, b.terms.GraceDays),
	}
}

func (b *billing) publishInvoice(ctx context.Context, key string, invoice *entity.Invoice) {
	payload := events.Invoice{
		InvoiceID:      invoice.ID,
		TenantID:       invoice.TenantID,
		SubscriptionID: invoice.SubscriptionID,
		Number:         invoice.Number,
		Total:          invoice.Total,
		DueAt:          invoice.DueAt,
		GraceUntil:     invoice.GraceUntil,
	}
	if err := b.publisher.Publish(ctx, key, payload, invoicePriority); err != nil {
		b.logger.Warn("Failed to publish %s for invoice %s: %v", key, invoice.Number, err)
	}
}

// grantIncluded tops up the plan's bundled SMS credits for the current period.
// Failures are logged; billing never blocks on the credit service.
func (b *billing) grantIncluded(ctx context.Context, sub *entity.Subscription, plan *entity.Plan) {
	if plan.IncludedCredits <= 0 || b.credits == nil {
		return
	}
	_, err := b.credits.Grant(ctx, creditclient.Request{
		TenantID:   sub.TenantID,
		CreditType: models.CreditTypeSMS,
		Amount:     plan.IncludedCredits,
		Reference:  "subscription:" + sub.ID + ":" + sub.CurrentPeriodStart.Format("2006-01-02"),
	})
	if err != nil {
		b.logger.Warn("Failed to grant %d included credits to tenant %s: %v", plan.IncludedCredits, sub.TenantID, err)
	}
}
