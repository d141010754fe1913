package persistent

import (
	"context"
	"errors"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/library/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSeatNotBookable = errors.New("seat is not available for booking")
	ErrSeatTaken       = errors.New("seat already booked for an overlapping period")
	ErrStudentBusy     = errors.New("student already holds an overlapping booking")
)

type BookingRepository interface {
	// CreateBooking locks the student and seat rows, re-checks availability
	// and overlaps, and inserts the booking in one transaction.
	CreateBooking(ctx context.Context, booking *entity.Booking) error
	GetBooking(ctx context.Context, tenantID, id string) (*entity.Booking, error)
	ListBookings(ctx context.Context, filter entity.BookingFilter, limit, offset int) ([]*entity.Booking, int64, error)
	// Transition applies updates only while the booking is in one of from.
	// It reports whether a row changed.
	Transition(ctx context.Context, id string, from []string, updates map[string]interface{}) (bool, error)
	BusySeatIDs(ctx context.Context, libraryID string, start, end time.Time) (map[string]bool, error)
	IsActiveStudent(ctx context.Context, tenantID, userID string) (bool, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func overlapping(db *gorm.DB, start, end time.Time) *gorm.DB {
	return db.Where("status IN ? AND start_time < ? AND end_time > ?", entity.ActiveBookingStatuses, end, start)
}

func (r *bookingRepository) CreateBooking(ctx context.Context, booking *entity.Booking) error {
	bookingModel := ToBookingModel(booking)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Student before seat, so concurrent creates always lock in the same order.
		var student models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ? AND tenant_id = ?", booking.StudentID, booking.TenantID).
			First(&student).Error; err != nil {
			return apperror.FromDB(err, "student")
		}

		var seat models.Seat
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND tenant_id = ?", booking.SeatID, booking.TenantID).
			First(&seat).Error; err != nil {
			return apperror.FromDB(err, "seat")
		}
		if seat.Status != models.SeatStatusAvailable {
			return ErrSeatNotBookable
		}

		var count int64
		if err := overlapping(tx.Model(&models.Booking{}), booking.StartTime, booking.EndTime).
			Where("seat_id = ?", booking.SeatID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSeatTaken
		}

		if err := overlapping(tx.Model(&models.Booking{}), booking.StartTime, booking.EndTime).
			Where("student_id = ?", booking.StudentID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrStudentBusy
		}

		return tx.Create(bookingModel).Error
	})
	if err != nil {
		return err
	}

	*booking = *ToBookingEntity(bookingModel)
	return nil
}

func (r *bookingRepository) GetBooking(ctx context.Context, tenantID, id string) (*entity.Booking, error) {
	var bookingModel models.Booking
	if err := scoped(r.db.WithContext(ctx), "tenant_id", tenantID).Where("id = ?", id).First(&bookingModel).Error; err != nil {
		return nil, apperror.FromDB(err, "booking")
	}
	return ToBookingEntity(&bookingModel), nil
}

func (r *bookingRepository) ListBookings(ctx context.Context, filter entity.BookingFilter, limit, offset int) ([]*entity.Booking, int64, error) {
	query := scoped(r.db.WithContext(ctx).Model(&models.Booking{}), "tenant_id", filter.TenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.LibraryID != "" {
		query = query.Where("library_id = ?", filter.LibraryID)
	}
	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookingModels []models.Booking
	if err := query.Order("start_time DESC").Limit(limit).Offset(offset).Find(&bookingModels).Error; err != nil {
		return nil, 0, err
	}

	bookings := make([]*entity.Booking, len(bookingModels))
	for i := range bookingModels {
		bookings[i] = ToBookingEntity(&bookingModels[i])
	}
	return bookings, total, nil
}

func (r *bookingRepository) Transition(ctx context.Context, id string, from []string, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *bookingRepository) BusySeatIDs(ctx context.Context, libraryID string, start, end time.Time) (map[string]bool, error) {
	var seatIDs []string
	if err := overlapping(r.db.WithContext(ctx).Model(&models.Booking{}), start, end).
		Where("library_id = ?", libraryID).
		Distinct().
		Pluck("seat_id", &seatIDs).Error; err != nil {
		return nil, err
	}

	busy := make(map[string]bool, len(seatIDs))
	for _, id := range seatIDs {
		busy[id] = true
	}
	return busy, nil
}

func (r *bookingRepository) IsActiveStudent(ctx context.Context, tenantID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND tenant_id = ? AND role = ? AND is_active = ?", userID, tenantID, roles.Student, true).
		Count(&count).Error
	return count > 0, err
}
