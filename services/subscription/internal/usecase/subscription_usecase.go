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

const (
	CodeAlreadySubscribed = "ALREADY_SUBSCRIBED"
	CodePlanUnavailable   = "PLAN_UNAVAILABLE"
	CodePlanExists        = "PLAN_EXISTS"
	CodeNoSubscription    = "NO_SUBSCRIPTION"
)

type PlanInput struct {
	Code            string
	Name            string
	Description     string
	Price           int64
	BillingPeriod   string
	TrialDays       int
	MaxLibraries    int64
	MaxSeats        int64
	MaxStudents     int64
	IncludedCredits int64
	Features        map[string]interface{}
	IsPublic        bool
}

type PlanUpdate struct {
	Name            *string
	Description     *string
	Price           *int64
	TrialDays       *int
	MaxLibraries    *int64
	MaxSeats        *int64
	MaxStudents     *int64
	IncludedCredits *int64
	Features        map[string]interface{}
	IsActive        *bool
	IsPublic        *bool
}

type SubscriptionUseCase interface {
	ListPlans(ctx context.Context, includeHidden bool) ([]*entity.Plan, error)
	CreatePlan(ctx context.Context, actor roles.Actor, input PlanInput) (*entity.Plan, error)
	UpdatePlan(ctx context.Context, actor roles.Actor, id string, input PlanUpdate) (*entity.Plan, error)

	// Subscribe returns the first-period invoice, nil for trials and free plans.
	Subscribe(ctx context.Context, actor roles.Actor, planCode string) (*entity.Subscription, *entity.Invoice, error)
	Current(ctx context.Context, actor roles.Actor) (*entity.Subscription, error)
	Cancel(ctx context.Context, actor roles.Actor) (*entity.Subscription, error)
	Resume(ctx context.Context, actor roles.Actor) (*entity.Subscription, error)
	ChangePlan(ctx context.Context, actor roles.Actor, planCode string) (*entity.Subscription, *entity.Invoice, error)
	Usage(ctx context.Context, actor roles.Actor) (*entity.Usage, error)
	ListSubscriptions(ctx context.Context, actor roles.Actor, status string, limit, offset int) ([]*entity.Subscription, int64, error)
}

type subscriptionUseCase struct {
	repo persistent.SubscriptionRepository
	*billing
	now func() time.Time
}

func NewSubscriptionUseCase(repo persistent.SubscriptionRepository, numbers InvoiceNumbers, credits CreditGranter, publisher events.Publisher, terms Terms, logger *logger.Logger) SubscriptionUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &subscriptionUseCase{
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

func requirePlatform(actor roles.Actor) error {
	if !actor.IsPlatform() {
		return apperror.Forbidden(apperror.CodeForbidden, "platform role required")
	}
	return nil
}

func requireTenant(actor roles.Actor) error {
	if actor.TenantID == "" {
		return apperror.BadRequest("tenant_id is required")
	}
	return nil
}

func (uc *subscriptionUseCase) ListPlans(ctx context.Context, includeHidden bool) ([]*entity.Plan, error) {
	return uc.repo.ListPlans(ctx, !includeHidden)
}

func (uc *subscriptionUseCase) CreatePlan(ctx context.Context, actor roles.Actor, input PlanInput) (*entity.Plan, error) {
	if err := requirePlatform(actor); err != nil {
		return nil, err
	}
	if !entity.ValidBillingPeriod(input.BillingPeriod) {
		return nil, apperror.Validation("billing_period must be month or year")
	}

	if _, err := uc.repo.GetPlanByCode(ctx, input.Code); err == nil {
		return nil, apperror.Conflict(CodePlanExists, "a plan with this code already exists")
	} else if !apperror.IsCode(err, apperror.CodeNotFound) {
		return nil, err
	}

	plan := &entity.Plan{
		Code:            input.Code,
		Name:            input.Name,
		Description:     input.Description,
		Price:           input.Price,
		BillingPeriod:   input.BillingPeriod,
		TrialDays:       input.TrialDays,
		MaxLibraries:    input.MaxLibraries,
		MaxSeats:        input.MaxSeats,
		MaxStudents:     input.MaxStudents,
		IncludedCredits: input.IncludedCredits,
		Features:        input.Features,
		IsActive:        true,
		IsPublic:        input.IsPublic,
	}
	if err := uc.repo.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	uc.logger.Info("Plan %s created by %s", plan.Code, actor.UserID)
	return plan, nil
}

func (uc *subscriptionUseCase) UpdatePlan(ctx context.Context, actor roles.Actor, id string, input PlanUpdate) (*entity.Plan, error) {
	if err := requirePlatform(actor); err != nil {
		return nil, err
	}
	plan, err := uc.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		plan.Name = *input.Name
	}
	if input.Description != nil {
		plan.Description = *input.Description
	}
	if input.Price != nil {
		plan.Price = *input.Price
	}
	if input.TrialDays != nil {
		plan.TrialDays = *input.TrialDays
	}
	if input.MaxLibraries != nil {
		plan.MaxLibraries = *input.MaxLibraries
	}
	if input.MaxSeats != nil {
		plan.MaxSeats = *input.MaxSeats
	}
	if input.MaxStudents != nil {
		plan.MaxStudents = *input.MaxStudents
	}
	if input.IncludedCredits != nil {
		plan.IncludedCredits = *input.IncludedCredits
	}
	if input.Features != nil {
		plan.Features = input.Features
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}
	if input.IsPublic != nil {
		plan.IsPublic = *input.IsPublic
	}

	if err := uc.repo.UpdatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}
	return plan, nil
}

func (uc *subscriptionUseCase) activePlan(ctx context.Context, code string) (*entity.Plan, error) {
	plan, err := uc.repo.GetPlanByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, apperror.Unprocessable(CodePlanUnavailable, "plan is no longer offered")
	}
	return plan, nil
}

func (uc *subscriptionUseCase) Subscribe(ctx context.Context, actor roles.Actor, planCode string) (*entity.Subscription, *entity.Invoice, error) {
	if err := requireTenant(actor); err != nil {
		return nil, nil, err
	}
	plan, err := uc.activePlan(ctx, planCode)
	if err != nil {
		return nil, nil, err
	}

	sub := &entity.Subscription{TenantID: actor.TenantID}
	existing, err := uc.repo.GetSubscription(ctx, actor.TenantID)
	switch {
	case err == nil && existing.Status != models.SubscriptionCanceled:
		return nil, nil, apperror.Conflict(CodeAlreadySubscribed, "tenant already has a subscription")
	case err == nil:
		// The tenant row is unique; a canceled subscription is replaced in place.
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	case !apperror.IsCode(err, apperror.CodeNotFound):
		return nil, nil, err
	}

	now := uc.now().UTC()
	sub.PlanID = plan.ID
	sub.CurrentPeriodStart = now

	var invoice *entity.Invoice
	if plan.TrialDays > 0 {
		trialEnd := now.AddDate(0, 0, plan.TrialDays)
		sub.Status = models.SubscriptionTrialing
		sub.TrialEndsAt = &trialEnd
		sub.CurrentPeriodEnd = trialEnd
	} else {
		sub.Status = models.SubscriptionActive
		sub.CurrentPeriodEnd = entity.AdvancePeriod(now, plan.BillingPeriod)
		invoice = uc.newInvoice(sub, plan, now)
	}

	if err := uc.repo.Apply(ctx, persistent.BillingChange{Subscription: sub, NewInvoice: invoice}); err != nil {
		return nil, nil, fmt.Errorf("failed to start subscription: %w", err)
	}
	sub.Plan = plan

	uc.logger.Info("Tenant %s subscribed to %s (%s)", sub.TenantID, plan.Code, sub.Status)

	if invoice != nil {
		uc.publishInvoice(ctx, events.SubscriptionInvoiceCreated, invoice)
	}
	uc.grantIncluded(ctx, sub, plan)

	return sub, invoice, nil
}

func (uc *subscriptionUseCase) current(ctx context.Context, actor roles.Actor) (*entity.Subscription, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	sub, err := uc.repo.GetSubscription(ctx, actor.TenantID)
	if apperror.IsCode(err, apperror.CodeNotFound) {
		return nil, apperror.NotFound("tenant has no subscription")
	}
	return sub, err
}

func (uc *subscriptionUseCase) Current(ctx context.Context, actor roles.Actor) (*entity.Subscription, error) {
	return uc.current(ctx, actor)
}

func (uc *subscriptionUseCase) Cancel(ctx context.Context, actor roles.Actor) (*entity.Subscription, error) {
	sub, err := uc.current(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !sub.Live() {
		return nil, apperror.InvalidStatus("subscription is already canceled")
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}

	now := uc.now().UTC()
	sub.CancelAtPeriodEnd = true
	sub.CanceledAt = &now
	if err := uc.repo.Apply(ctx, persistent.BillingChange{Subscription: sub}); err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	uc.logger.Info("Tenant %s scheduled cancellation at %s", sub.TenantID, sub.CurrentPeriodEnd.Format(time.RFC3339))
	return sub, nil
}

func (uc *subscriptionUseCase) Resume(ctx context.Context, actor roles.Actor) (*entity.Subscription, error) {
	sub, err := uc.current(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !sub.Live() || !sub.CancelAtPeriodEnd {
		return nil, apperror.InvalidStatus("subscription is not pending cancellation")
	}

	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = nil
	if err := uc.repo.Apply(ctx, persistent.BillingChange{Subscription: sub}); err != nil {
		return nil, fmt.Errorf("failed to resume subscription: %w", err)
	}
	return sub, nil
}

func (uc *subscriptionUseCase) ChangePlan(ctx context.Context, actor roles.Actor, planCode string) (*entity.Subscription, *entity.Invoice, error) {
	sub, err := uc.current(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	if !sub.Live() {
		return nil, nil, apperror.InvalidStatus("subscription is canceled; subscribe again instead")
	}
	plan, err := uc.activePlan(ctx, planCode)
	if err != nil {
		return nil, nil, err
	}
	if plan.ID == sub.PlanID {
		return nil, nil, apperror.Validation("subscription is already on this plan")
	}

	now := uc.now().UTC()
	sub.PlanID = plan.ID
	sub.Plan = nil
	sub.Status = models.SubscriptionActive
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = entity.AdvancePeriod(now, plan.BillingPeriod)
	sub.TrialEndsAt = nil
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = nil

	invoice := uc.newInvoice(sub, plan, now)
	if err := uc.repo.Apply(ctx, persistent.BillingChange{Subscription: sub, NewInvoice: invoice, VoidOpen: true}); err != nil {
		return nil, nil, fmt.Errorf("failed to change plan: %w", err)
	}
	sub.Plan = plan

	uc.logger.Info("Tenant %s moved to plan %s", sub.TenantID, plan.Code)

	if invoice != nil {
		uc.publishInvoice(ctx, events.SubscriptionInvoiceCreated, invoice)
	}
	uc.grantIncluded(ctx, sub, plan)

	return sub, invoice, nil
}

func (uc *subscriptionUseCase) Usage(ctx context.Context, actor roles.Actor) (*entity.Usage, error) {
	sub, err := uc.current(ctx, actor)
	if err != nil {
		return nil, err
	}
	plan := sub.Plan
	if plan == nil {
		if plan, err = uc.repo.GetPlan(ctx, sub.PlanID); err != nil {
			return nil, err
		}
	}

	counts, err := uc.repo.CountUsage(ctx, sub.TenantID)
	if err != nil {
		return nil, err
	}

	return &entity.Usage{
		TenantID: sub.TenantID,
		PlanCode: plan.Code,
		Items: []entity.UsageItem{
			entity.NewUsageItem("libraries", counts.Libraries, plan.MaxLibraries),
			entity.NewUsageItem("seats", counts.Seats, plan.MaxSeats),
			entity.NewUsageItem("students", counts.Students, plan.MaxStudents),
		},
	}, nil
}

func (uc *subscriptionUseCase) ListSubscriptions(ctx context.Context, actor roles.Actor, status string, limit, offset int) ([]*entity.Subscription, int64, error) {
	if err := requirePlatform(actor); err != nil {
		return nil, 0, err
	}
	return uc.repo.ListSubscriptions(ctx, status, limit, offset)
}
