package amqp

import (
	"context"
	"errors"
	"testing"

	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/services/library/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBookings struct {
	usecase.BookingUseCase
	got []events.Payment
	err error
}

func (s *stubBookings) HandlePaymentCompleted(ctx context.Context, payment events.Payment) error {
	s.got = append(s.got, payment)
	return s.err
}

func TestPaymentConsumer_Handle(t *testing.T) {
	stub := &stubBookings{}
	consumer := NewPaymentConsumer(stub, logger.New())

	err := consumer.Handle(context.Background(), events.PaymentCompleted, []byte(`{"payment_id":"pay-1","tenant_id":"t1","booking_id":"b1","total":5900}`))
	require.NoError(t, err)
	require.Len(t, stub.got, 1)
	assert.Equal(t, "b1", stub.got[0].BookingID)
	assert.Equal(t, int64(5900), stub.got[0].Total)
}

func TestPaymentConsumer_IgnoresOtherKeys(t *testing.T) {
	stub := &stubBookings{}
	consumer := NewPaymentConsumer(stub, logger.New())

	require.NoError(t, consumer.Handle(context.Background(), events.PaymentRefunded, []byte(`{}`)))
	assert.Empty(t, stub.got)
}

func TestPaymentConsumer_PropagatesErrors(t *testing.T) {
	stub := &stubBookings{err: errors.New("db down")}
	consumer := NewPaymentConsumer(stub, logger.New())

	err := consumer.Handle(context.Background(), events.PaymentCompleted, []byte(`{"booking_id":"b1"}`))
	assert.EqualError(t, err, "db down")

	err = consumer.Handle(context.Background(), events.PaymentCompleted, []byte(`[`))
	assert.Error(t, err)
}
