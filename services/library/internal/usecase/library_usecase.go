package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/pricing"
	"studyspot/pkg/roles"
	"studyspot/services/library/internal/entity"
	"studyspot/services/library/internal/repo/persistent"
)

const maxBulkSeats = 500

type LibraryInput struct {
	Name      string
	Address   string
	City      string
	OpenTime  string
	CloseTime string
}

type LibraryUpdate struct {
	Name      *string
	Address   *string
	City      *string
	OpenTime  *string
	CloseTime *string
	IsActive  *bool
}

type BulkSeatsInput struct {
	Prefix string
	Start  int
	Count  int
	Zone   string
}

type FeePlanInput struct {
	LibraryID       string
	Name            string
	PlanType        string
	Price           int64
	DiscountPercent float64
}

type FeePlanUpdate struct {
	Name            *string
	Price           *int64
	DiscountPercent *float64
	IsActive        *bool
}

type QuoteResult struct {
	FeePlanID string    `json:"fee_plan_id"`
	PlanType  string    `json:"plan_type"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	pricing.Quote
}

type LibraryUseCase interface {
	CreateLibrary(ctx context.Context, actor roles.Actor, input LibraryInput) (*entity.Library, error)
	ListLibraries(ctx context.Context, actor roles.Actor, includeInactive bool) ([]*entity.Library, error)
	GetLibrary(ctx context.Context, actor roles.Actor, id string) (*entity.Library, error)
	UpdateLibrary(ctx context.Context, actor roles.Actor, id string, input LibraryUpdate) (*entity.Library, error)
	DeactivateLibrary(ctx context.Context, actor roles.Actor, id string) error

	BulkCreateSeats(ctx context.Context, actor roles.Actor, libraryID string, input BulkSeatsInput) ([]*entity.Seat, error)
	ListSeats(ctx context.Context, actor roles.Actor, libraryID string) ([]*entity.Seat, error)
	UpdateSeat(ctx context.Context, actor roles.Actor, id string, status, zone *string) (*entity.Seat, error)
	Availability(ctx context.Context, actor roles.Actor, libraryID string, start, end time.Time) ([]*entity.SeatAvailability, error)

	CreateFeePlan(ctx context.Context, actor roles.Actor, input FeePlanInput) (*entity.FeePlan, error)
	ListFeePlans(ctx context.Context, actor roles.Actor, libraryID string, includeInactive bool) ([]*entity.FeePlan, error)
	UpdateFeePlan(ctx context.Context, actor roles.Actor, id string, input FeePlanUpdate) (*entity.FeePlan, error)
	DeactivateFeePlan(ctx context.Context, actor roles.Actor, id string) error
	Quote(ctx context.Context, actor roles.Actor, feePlanID string, start time.Time, units int64) (*QuoteResult, error)
}

type libraryUseCase struct {
	libraries persistent.LibraryRepository
	bookings  persistent.BookingRepository
	logger    *logger.Logger
}

func NewLibraryUseCase(libraries persistent.LibraryRepository, bookings persistent.BookingRepository, logger *logger.Logger) LibraryUseCase {
	return &libraryUseCase{
		libraries: libraries,
		bookings:  bookings,
		logger:    logger,
	}
}

func requireTenant(actor roles.Actor) error {
	if actor.TenantID == "" {
		return apperror.BadRequest("tenant_id is required")
	}
	return nil
}

func validClock(value string) bool {
	if value == "" {
		return true
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}

func validateHours(open, close string) error {
	if !validClock(open) || !validClock(close) {
		return apperror.Validation("Opening hours must use HH:MM")
	}
	if open != "" && close != "" && close <= open {
		return apperror.Validation("Closing time must be after opening time")
	}
	return nil
}

func (uc *libraryUseCase) CreateLibrary(ctx context.Context, actor roles.Actor, input LibraryInput) (*entity.Library, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	if err := validateHours(input.OpenTime, input.CloseTime); err != nil {
		return nil, err
	}

	library := &entity.Library{
		TenantID:  actor.TenantID,
		Name:      strings.TrimSpace(input.Name),
		Address:   strings.TrimSpace(input.Address),
		City:      strings.TrimSpace(input.City),
		OpenTime:  input.OpenTime,
		CloseTime: input.CloseTime,
		IsActive:  true,
	}
	if err := uc.libraries.CreateLibrary(ctx, library); err != nil {
		return nil, fmt.Errorf("failed to create library: %w", err)
	}

	uc.logger.Info("Library %s created for tenant %s", library.ID, library.TenantID)
	return library, nil
}

func (uc *libraryUseCase) ListLibraries(ctx context.Context, actor roles.Actor, includeInactive bool) ([]*entity.Library, error) {
	return uc.libraries.ListLibraries(ctx, actor.TenantID, includeInactive && !actor.IsStudent())
}

func (uc *libraryUseCase) GetLibrary(ctx context.Context, actor roles.Actor, id string) (*entity.Library, error) {
	return uc.libraries.GetLibrary(ctx, actor.TenantID, id)
}

func (uc *libraryUseCase) UpdateLibrary(ctx context.Context, actor roles.Actor, id string, input LibraryUpdate) (*entity.Library, error) {
	library, err := uc.libraries.GetLibrary(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		library.Name = strings.TrimSpace(*input.Name)
	}
	if input.Address != nil {
		library.Address = strings.TrimSpace(*input.Address)
	}
	if input.City != nil {
		library.City = strings.TrimSpace(*input.City)
	}
	if input.OpenTime != nil {
		library.OpenTime = *input.OpenTime
	}
	if input.CloseTime != nil {
		library.CloseTime = *input.CloseTime
	}
	if input.IsActive != nil {
		library.IsActive = *input.IsActive
	}
	if err := validateHours(library.OpenTime, library.CloseTime); err != nil {
		return nil, err
	}

	if err := uc.libraries.UpdateLibrary(ctx, library); err != nil {
		return nil, fmt.Errorf("failed to update library: %w", err)
	}
	return library, nil
}

func (uc *libraryUseCase) DeactivateLibrary(ctx context.Context, actor roles.Actor, id string) error {
	inactive := false
	_, err := uc.UpdateLibrary(ctx, actor, id, LibraryUpdate{IsActive: &inactive})
	return err
}

// SeatLabels returns prefix+n for n in [start, start+count).
func SeatLabels(prefix string, start, count int) []string {
	labels := make([]string, 0, count)
	for n := start; n < start+count; n++ {
		labels = append(labels, fmt.Sprintf("%s%d", prefix, n))
	}
	return labels
}

func (uc *libraryUseCase) BulkCreateSeats(ctx context.Context, actor roles.Actor, libraryID string, input BulkSeatsInput) ([]*entity.Seat, error) {
	if input.Count <= 0 || input.Count > maxBulkSeats {
		return nil, apperror.Validation(fmt.Sprintf("count must be between 1 and %d", maxBulkSeats))
	}
	if input.Start < 0 {
		return nil, apperror.Validation("start must not be negative")
	}

	library, err := uc.libraries.GetLibrary(ctx, actor.TenantID, libraryID)
	if err != nil {
		return nil, err
	}

	labels := SeatLabels(strings.TrimSpace(input.Prefix), input.Start, input.Count)
	existing, err := uc.libraries.ExistingSeatLabels(ctx, library.ID, labels)
	if err != nil {
		return nil, err
	}

	seats := make([]*entity.Seat, 0, len(labels))
	for _, label := range labels {
		if existing[label] {
			continue
		}
		seats = append(seats, &entity.Seat{
			TenantID:  library.TenantID,
			LibraryID: library.ID,
			Label:     label,
			Zone:      strings.TrimSpace(input.Zone),
			Status:    models.SeatStatusAvailable,
		})
	}

	if err := uc.libraries.CreateSeats(ctx, seats); err != nil {
		return nil, err
	}

	uc.logger.Info("Created %d seats in library %s (%d skipped)", len(seats), library.ID, len(labels)-len(seats))
	return seats, nil
}

func (uc *libraryUseCase) ListSeats(ctx context.Context, actor roles.Actor, libraryID string) ([]*entity.Seat, error) {
	if _, err := uc.libraries.GetLibrary(ctx, actor.TenantID, libraryID); err != nil {
		return nil, err
	}
	return uc.libraries.ListSeats(ctx, actor.TenantID, libraryID)
}

func validSeatStatus(status string) bool {
	switch status {
	case models.SeatStatusAvailable, models.SeatStatusMaintenance, models.SeatStatusDisabled:
		return true
	}
	return false
}

func (uc *libraryUseCase) UpdateSeat(ctx context.Context, actor roles.Actor, id string, status, zone *string) (*entity.Seat, error) {
	seat, err := uc.libraries.GetSeat(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	if status != nil {
		if !validSeatStatus(*status) {
			return nil, apperror.Validation("status must be available, maintenance or disabled")
		}
		seat.Status = *status
	}
	if zone != nil {
		seat.Zone = strings.TrimSpace(*zone)
	}

	if err := uc.libraries.UpdateSeat(ctx, seat); err != nil {
		return nil, fmt.Errorf("failed to update seat: %w", err)
	}
	return seat, nil
}

// Availability marks a seat available when it is open for booking and no
// active booking overlaps [start, end).
func (uc *libraryUseCase) Availability(ctx context.Context, actor roles.Actor, libraryID string, start, end time.Time) ([]*entity.SeatAvailability, error) {
	if !end.After(start) {
		return nil, apperror.Validation("end must be after start")
	}

	seats, err := uc.ListSeats(ctx, actor, libraryID)
	if err != nil {
		return nil, err
	}
	busy, err := uc.bookings.BusySeatIDs(ctx, libraryID, start, end)
	if err != nil {
		return nil, err
	}

	result := make([]*entity.SeatAvailability, len(seats))
	for i, seat := range seats {
		result[i] = &entity.SeatAvailability{
			Seat:      *seat,
			Available: seat.Status == models.SeatStatusAvailable && !busy[seat.ID],
		}
	}
	return result, nil
}

func validateFeePlan(planType string, price int64, discount float64) error {
	if !pricing.ValidPlanType(planType) {
		return apperror.Validation("plan_type must be hourly, daily or monthly")
	}
	if price <= 0 {
		return apperror.Validation("price must be greater than 0")
	}
	if discount < 0 || discount > 100 {
		return apperror.Validation("discount_percent must be between 0 and 100")
	}
	return nil
}

func (uc *libraryUseCase) CreateFeePlan(ctx context.Context, actor roles.Actor, input FeePlanInput) (*entity.FeePlan, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	if err := validateFeePlan(input.PlanType, input.Price, input.DiscountPercent); err != nil {
		return nil, err
	}
	if input.LibraryID != "" {
		if _, err := uc.libraries.GetLibrary(ctx, actor.TenantID, input.LibraryID); err != nil {
			return nil, err
		}
	}

	plan := &entity.FeePlan{
		TenantID:        actor.TenantID,
		LibraryID:       input.LibraryID,
		Name:            strings.TrimSpace(input.Name),
		PlanType:        input.PlanType,
		Price:           input.Price,
		DiscountPercent: input.DiscountPercent,
		IsActive:        true,
	}
	if err := uc.libraries.CreateFeePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create fee plan: %w", err)
	}
	return plan, nil
}

func (uc *libraryUseCase) ListFeePlans(ctx context.Context, actor roles.Actor, libraryID string, includeInactive bool) ([]*entity.FeePlan, error) {
	return uc.libraries.ListFeePlans(ctx, actor.TenantID, libraryID, includeInactive && !actor.IsStudent())
}

func (uc *libraryUseCase) UpdateFeePlan(ctx context.Context, actor roles.Actor, id string, input FeePlanUpdate) (*entity.FeePlan, error) {
	plan, err := uc.libraries.GetFeePlan(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		plan.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		plan.Price = *input.Price
	}
	if input.DiscountPercent != nil {
		plan.DiscountPercent = *input.DiscountPercent
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}
	if err := validateFeePlan(plan.PlanType, plan.Price, plan.DiscountPercent); err != nil {
		return nil, err
	}

	if err := uc.libraries.UpdateFeePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to update fee plan: %w", err)
	}
	return plan, nil
}

func (uc *libraryUseCase) DeactivateFeePlan(ctx context.Context, actor roles.Actor, id string) error {
	inactive := false
	_, err := uc.UpdateFeePlan(ctx, actor, id, FeePlanUpdate{IsActive: &inactive})
	return err
}

func (uc *libraryUseCase) Quote(ctx context.Context, actor roles.Actor, feePlanID string, start time.Time, units int64) (*QuoteResult, error) {
	plan, err := uc.libraries.GetFeePlan(ctx, actor.TenantID, feePlanID)
	if err != nil {
		return nil, err
	}
	return quotePlan(plan, start, units)
}

func quotePlan(plan *entity.FeePlan, start time.Time, units int64) (*QuoteResult, error) {
	end, err := pricing.PlanEnd(plan.PlanType, start, units)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	quote, err := pricing.QuoteUnits(pricing.FeePlanTerms{
		PlanType:        plan.PlanType,
		Price:           plan.Price,
		DiscountPercent: plan.DiscountPercent,
	}, units)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	return &QuoteResult{
		FeePlanID: plan.ID,
		PlanType:  plan.PlanType,
		StartTime: start,
		EndTime:   end,
		Quote:     quote,
	}, nil
}
