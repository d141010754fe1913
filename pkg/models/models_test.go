package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_BeforeCreate(t *testing.T) {
	user := &User{
		Email:    "test@example.com",
		Name:     "Test",
		Password: "password",
		Role:     "student",
		IsActive: true,
	}

	// BeforeCreate should set ID if empty
	err := user.BeforeCreate(nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, user.ID)
}

func TestUser_BeforeCreate_WithID(t *testing.T) {
	existingID := "existing-id-123"
	user := &User{ID: existingID, Email: "test@example.com"}

	err := user.BeforeCreate(nil)
	assert.NoError(t, err)
	// ID should remain unchanged if already set
	assert.Equal(t, existingID, user.ID)
}

func TestBooking_BeforeCreate(t *testing.T) {
	booking := &Booking{TenantID: "t1", SeatID: "s1", Status: BookingStatusPending}

	assert.NoError(t, booking.BeforeCreate(nil))
	assert.NotEmpty(t, booking.ID)
}

func TestPayment_BeforeCreate(t *testing.T) {
	payment := &Payment{ID: "p1"}

	assert.NoError(t, payment.BeforeCreate(nil))
	assert.Equal(t, "p1", payment.ID)
}

func TestInvoice_BeforeCreate(t *testing.T) {
	a := &Invoice{}
	b := &Invoice{}

	assert.NoError(t, a.BeforeCreate(nil))
	assert.NoError(t, b.BeforeCreate(nil))
	assert.NotEqual(t, a.ID, b.ID)
}
