package usecase

import (
	"context"
	"time"

	"studyspot/services/library/internal/entity"
	"studyspot/services/library/internal/repo/persistent"

	"github.com/stretchr/testify/mock"
)

type MockLibraryRepository struct {
	mock.Mock
}

func (m *MockLibraryRepository) CreateLibrary(ctx context.Context, library *entity.Library) error {
	args := m.Called(ctx, library)
	library.ID = "lib-new"
	return args.Error(0)
}

func (m *MockLibraryRepository) GetLibrary(ctx context.Context, tenantID, id string) (*entity.Library, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Library), args.Error(1)
}

func (m *MockLibraryRepository) ListLibraries(ctx context.Context, tenantID string, includeInactive bool) ([]*entity.Library, error) {
	args := m.Called(ctx, tenantID, includeInactive)
	return args.Get(0).([]*entity.Library), args.Error(1)
}

func (m *MockLibraryRepository) UpdateLibrary(ctx context.Context, library *entity.Library) error {
	return m.Called(ctx, library).Error(0)
}

func (m *MockLibraryRepository) CreateSeats(ctx context.Context, seats []*entity.Seat) error {
	return m.Called(ctx, seats).Error(0)
}

func (m *MockLibraryRepository) ExistingSeatLabels(ctx context.Context, libraryID string, labels []string) (map[string]bool, error) {
	args := m.Called(ctx, libraryID, labels)
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockLibraryRepository) ListSeats(ctx context.Context, tenantID, libraryID string) ([]*entity.Seat, error) {
	args := m.Called(ctx, tenantID, libraryID)
	return args.Get(0).([]*entity.Seat), args.Error(1)
}

func (m *MockLibraryRepository) GetSeat(ctx context.Context, tenantID, id string) (*entity.Seat, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Seat), args.Error(1)
}

func (m *MockLibraryRepository) UpdateSeat(ctx context.Context, seat *entity.Seat) error {
	return m.Called(ctx, seat).Error(0)
}

func (m *MockLibraryRepository) CreateFeePlan(ctx context.Context, plan *entity.FeePlan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockLibraryRepository) GetFeePlan(ctx context.Context, tenantID, id string) (*entity.FeePlan, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FeePlan), args.Error(1)
}

func (m *MockLibraryRepository) ListFeePlans(ctx context.Context, tenantID, libraryID string, includeInactive bool) ([]*entity.FeePlan, error) {
	args := m.Called(ctx, tenantID, libraryID, includeInactive)
	return args.Get(0).([]*entity.FeePlan), args.Error(1)
}

func (m *MockLibraryRepository) UpdateFeePlan(ctx context.Context, plan *entity.FeePlan) error {
	return m.Called(ctx, plan).Error(0)
}

var _ persistent.LibraryRepository = (*MockLibraryRepository)(nil)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateBooking(ctx context.Context, booking *entity.Booking) error {
	args := m.Called(ctx, booking)
	if args.Error(0) == nil {
		booking.ID = "booking-new"
	}
	return args.Error(0)
}

func (m *MockBookingRepository) GetBooking(ctx context.Context, tenantID, id string) (*entity.Booking, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListBookings(ctx context.Context, filter entity.BookingFilter, limit, offset int) ([]*entity.Booking, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]*entity.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingRepository) Transition(ctx context.Context, id string, from []string, updates map[string]interface{}) (bool, error) {
	args := m.Called(ctx, id, from, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) BusySeatIDs(ctx context.Context, libraryID string, start, end time.Time) (map[string]bool, error) {
	args := m.Called(ctx, libraryID, start, end)
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockBookingRepository) IsActiveStudent(ctx context.Context, tenantID, userID string) (bool, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Bool(0), args.Error(1)
}

var _ persistent.BookingRepository = (*MockBookingRepository)(nil)

type recordingPublisher struct {
	keys     []string
	payloads []interface{}
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload interface{}, priority int) error {
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}
