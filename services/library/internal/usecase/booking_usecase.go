package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/library/internal/entity"
	"studyspot/services/library/internal/repo/persistent"
)

const (
	CodeSeatUnavailable    = "SEAT_UNAVAILABLE"
	CodeBookingConflict    = "BOOKING_CONFLICT"
	CodeFeePlanUnavailable = "FEE_PLAN_UNAVAILABLE"

	CheckInWindow = 15 * time.Minute

	bookingEventPriority  = 5
	cancellationPriority  = 6
	maxCancelReasonLength = 500
)

type CreateBookingInput struct {
	SeatID    string
	FeePlanID string
	StudentID string
	StartTime time.Time
	Units     int64
}

type BookingUseCase interface {
	CreateBooking(ctx context.Context, actor roles.Actor, input CreateBookingInput) (*entity.Booking, error)
	ListBookings(ctx context.Context, actor roles.Actor, filter entity.BookingFilter, limit, offset int) ([]*entity.Booking, int64, error)
	GetBooking(ctx context.Context, actor roles.Actor, id string) (*entity.Booking, error)
	Confirm(ctx context.Context, actor roles.Actor, id string) (*entity.Booking, error)
	CheckIn(ctx context.Context, actor roles.Actor, id string) (*entity.Booking, error)
	CheckOut(ctx context.Context, actor roles.Actor, id string) (*entity.Booking, error)
	Cancel(ctx context.Context, actor roles.Actor, id, reason string) (*entity.Booking, error)
	HandlePaymentCompleted(ctx context.Context, payment events.Payment) error
}

type bookingUseCase struct {
	libraries persistent.LibraryRepository
	bookings  persistent.BookingRepository
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewBookingUseCase(libraries persistent.LibraryRepository, bookings persistent.BookingRepository, publisher events.Publisher, logger *logger.Logger) BookingUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &bookingUseCase{
		libraries: libraries,
		bookings:  bookings,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *bookingUseCase) CreateBooking(ctx context.Context, actor roles.Actor, input CreateBookingInput) (*entity.Booking, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}

	studentID := input.StudentID
	if actor.IsStudent() {
		studentID = actor.UserID
	} else {
		if studentID == "" {
			return nil, apperror.Validation("student_id is required")
		}
		ok, err := uc.bookings.IsActiveStudent(ctx, actor.TenantID, studentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperror.NotFound("student not found")
		}
	}

	seat, err := uc.libraries.GetSeat(ctx, actor.TenantID, input.SeatID)
	if err != nil {
		return nil, err
	}
	if seat.Status != models.SeatStatusAvailable {
		return nil, apperror.Conflict(CodeSeatUnavailable, "Seat is not available for booking")
	}

	plan, err := uc.libraries.GetFeePlan(ctx, actor.TenantID, input.FeePlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive || !plan.AppliesTo(seat.LibraryID) {
		return nil, apperror.Unprocessable(CodeFeePlanUnavailable, "Fee plan cannot be used for this seat")
	}

	quote, err := quotePlan(plan, input.StartTime.UTC(), input.Units)
	if err != nil {
		return nil, err
	}

	booking := &entity.Booking{
		TenantID:  actor.TenantID,
		LibraryID: seat.LibraryID,
		SeatID:    seat.ID,
		StudentID: studentID,
		FeePlanID: plan.ID,
		StartTime: quote.StartTime,
		EndTime:   quote.EndTime,
		Units:     quote.Units,
		Amount:    quote.Amount,
		Status:    models.BookingStatusPending,
	}

	if err := uc.bookings.CreateBooking(ctx, booking); err != nil {
		switch {
		case errors.Is(err, persistent.ErrSeatNotBookable):
			return nil, apperror.Conflict(CodeSeatUnavailable, "Seat is not available for booking")
		case errors.Is(err, persistent.ErrSeatTaken):
			return nil, apperror.Conflict(CodeBookingConflict, "Seat is already booked for this period")
		case errors.Is(err, persistent.ErrStudentBusy):
			return nil, apperror.Conflict(CodeBookingConflict, "Student already has a booking in this period")
		}
		return nil, err
	}

	uc.logger.Info("Booking %s created: seat %s, student %s, %s - %s", booking.ID, seat.Label, studentID, booking.StartTime.Format(time.RFC3339), booking.EndTime.Format(time.RFC3339))
	uc.publish(ctx, events.BookingCreated, booking, seat.Label, "", bookingEventPriority)
	return booking, nil
}

func (uc *bookingUseCase) publish(ctx context.Context, key string, b *entity.Booking, seatLabel, reason string, priority int) {
	payload := events.Booking{
		BookingID: b.ID,
		TenantID:  b.TenantID,
		LibraryID: b.LibraryID,
		SeatID:    b.SeatID,
		SeatLabel: seatLabel,
		StudentID: b.StudentID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Amount:    b.Amount,
		Status:    b.Status,
		Reason:    reason,
	}
	if err := uc.publisher.Publish(ctx, key, payload, priority); err != nil {
		uc.logger.Warn("Failed to publish %s for booking %s: %v", key, b.ID, err)
	}
}

func (uc *bookingUseCase) ListBookings(ctx context.Context, actor roles.Actor, filter entity.BookingFilter, limit, offset int) ([]*entity.Booking, int64, error) {
	filter.TenantID = actor.TenantID
	if actor.IsStudent() {
		filter.StudentID = actor.UserID
	}
	return uc.bookings.ListBookings(ctx, filter, limit, offset)
}

// GetBooking hides other students' bookings from a student as not found.
func (uc *bookingUseCase) GetBooking(ctx context.Context, actor roles.Actor, id string) (*entity.Booking, error) {
	booking, err := uc.bookings.GetBooking(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if actor.IsStudent() && booking.StudentID != actor.UserID {
		return nil, apperror.NotFound("booking not found")
	}
	return booking, nil
}

func (uc *bookingUseCase) transition(ctx context.Context, booking *entity.Booking, from []string, updates map[string]interface{}) (*entity.Booking, error) {
	changed, err := uc.bookings.Transition(ctx, booking.ID, from, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	if !changed {
		return nil, apperror.InvalidStatus(fmt.Sprintf("Booking cannot move from %s to %v", booking.Status, updates["status"]))
	}
	return uc.bookings.GetBooking(ctx, booking.TenantID, booking.ID)
}

func (uc *bookingUseCase) Confirm(ctx context.Context, actor roles.Actor, id string) (*entity.Booking, error) {
	if actor.IsStudent() {
		return nil, apperror.Forbidden("", "Only library staff can confirm bookings")
	}
	booking, err := uc.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	confirmed, err := uc.transition(ctx, booking, []string{models.BookingStatusPending}, map[string]interface{}{
		"status": models.BookingStatusConfirmed,
	})
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, events.BookingConfirmed, confirmed, "", "", bookingEventPriority)
	return confirmed, nil
}

func (uc *bookingUseCase) CheckIn(ctx context.Context, actor roles.Actor, id string) (*entity.Booking, error) {
	booking, err := uc.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	if booking.Status == models.BookingStatusConfirmed {
		if now.Before(booking.StartTime.Add(-CheckInWindow)) {
			return nil, apperror.Unprocessable("CHECK_IN_TOO_EARLY", fmt.Sprintf("Check-in opens %d minutes before the booking starts", int(CheckInWindow.Minutes())))
		}
		if !now.Before(booking.EndTime) {
			return nil, apperror.InvalidStatus("Booking period has ended")
		}
	}

	return uc.transition(ctx, booking, []string{models.BookingStatusConfirmed}, map[string]interface{}{
		"status":        models.BookingStatusCheckedIn,
		"checked_in_at": now,
	})
}

func (uc *bookingUseCase) CheckOut(ctx context.Context, actor roles.Actor, id string) (*entity.Booking, error) {
	booking, err := uc.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	return uc.transition(ctx, booking, []string{models.BookingStatusCheckedIn}, map[string]interface{}{
		"status":         models.BookingStatusCompleted,
		"checked_out_at": uc.now().UTC(),
	})
}

func (uc *bookingUseCase) Cancel(ctx context.Context, actor roles.Actor, id, reason string) (*entity.Booking, error) {
	booking, err := uc.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if len(reason) > maxCancelReasonLength {
		return nil, apperror.Validation("reason must be at most 500 characters")
	}

	cancelled, err := uc.transition(ctx, booking, []string{models.BookingStatusPending, models.BookingStatusConfirmed}, map[string]interface{}{
		"status":        models.BookingStatusCancelled,
		"cancelled_at":  uc.now().UTC(),
		"cancel_reason": reason,
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Booking %s cancelled by %s", id, actor.UserID)
	uc.publish(ctx, events.BookingCancelled, cancelled, "", reason, cancellationPriority)
	return cancelled, nil
}

// HandlePaymentCompleted confirms the pending booking a payment was made for.
// Payments without a booking, unknown bookings and bookings no longer
// pending are ignored.
func (uc *bookingUseCase) HandlePaymentCompleted(ctx context.Context, payment events.Payment) error {
	if payment.BookingID == "" {
		return nil
	}

	booking, err := uc.bookings.GetBooking(ctx, payment.TenantID, payment.BookingID)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeNotFound) {
			uc.logger.Warn("Payment %s references unknown booking %s", payment.PaymentID, payment.BookingID)
			return nil
		}
		return err
	}

	changed, err := uc.bookings.Transition(ctx, booking.ID, []string{models.BookingStatusPending}, map[string]interface{}{
		"status":     models.BookingStatusConfirmed,
		"payment_id": payment.PaymentID,
	})
	if err != nil {
		return err
	}
	if !changed {
		uc.logger.Info("Booking %s already %s, payment %s ignored", booking.ID, booking.Status, payment.PaymentID)
		return nil
	}

	booking.Status = models.BookingStatusConfirmed
	booking.PaymentID = payment.PaymentID
	uc.logger.Info("Booking %s confirmed by payment %s", booking.ID, payment.PaymentID)
	uc.publish(ctx, events.BookingConfirmed, booking, "", "", bookingEventPriority)
	return nil
}
