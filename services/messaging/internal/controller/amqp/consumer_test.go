package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/services/messaging/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMessages struct {
	usecase.MessageUseCase
	dispatched chan string
	err        error
}

func (s *stubMessages) Dispatch(ctx context.Context, messageID string) error {
	s.dispatched <- messageID
	return s.err
}

type stubNotifications struct {
	usecase.NotificationUseCase
	keys []string
	last interface{}
}

func (s *stubNotifications) NotifyBooking(ctx context.Context, key string, booking events.Booking) error {
	s.keys, s.last = append(s.keys, key), booking
	return nil
}

func (s *stubNotifications) NotifyPayment(ctx context.Context, key string, payment events.Payment) error {
	s.keys, s.last = append(s.keys, key), payment
	return nil
}

func (s *stubNotifications) NotifyCreditLow(ctx context.Context, alert events.CreditLowBalance) error {
	s.keys, s.last = append(s.keys, events.CreditLow), alert
	return nil
}

func (s *stubNotifications) NotifyInvoice(ctx context.Context, key string, invoice events.Invoice) error {
	s.keys, s.last = append(s.keys, key), invoice
	return nil
}

func TestDispatchConsumer_Handle(t *testing.T) {
	stub := &stubMessages{dispatched: make(chan string, 1), err: errors.New("db down")}
	consumer := NewDispatchConsumer(stub, logger.New())

	err := consumer.Handle(context.Background(), events.MessageDispatch, []byte(`{"message_id":"m1","tenant_id":"t1"}`))
	assert.EqualError(t, err, "db down")
	assert.Equal(t, "m1", <-stub.dispatched)

	assert.NoError(t, consumer.Handle(context.Background(), events.BookingCreated, []byte(`{}`)))
	assert.Error(t, consumer.Handle(context.Background(), events.MessageDispatch, []byte(`{`)))
}

func TestEventsConsumer_Routes(t *testing.T) {
	stub := &stubNotifications{}
	consumer := NewEventsConsumer(stub, logger.New())
	ctx := context.Background()

	require.NoError(t, consumer.Handle(ctx, events.BookingConfirmed, []byte(`{"booking_id":"b1","student_id":"s1"}`)))
	assert.Equal(t, "b1", stub.last.(events.Booking).BookingID)

	require.NoError(t, consumer.Handle(ctx, events.PaymentRefunded, []byte(`{"payment_id":"p1","refunded_amount":500}`)))
	assert.Equal(t, int64(500), stub.last.(events.Payment).RefundedAmount)

	require.NoError(t, consumer.Handle(ctx, events.CreditLow, []byte(`{"tenant_id":"t1","credit_type":"sms","balance":3}`)))
	assert.Equal(t, int64(3), stub.last.(events.CreditLowBalance).Balance)

	require.NoError(t, consumer.Handle(ctx, events.SubscriptionPastDue, []byte(`{"invoice_id":"i1","number":"INV-1"}`)))
	assert.Equal(t, "INV-1", stub.last.(events.Invoice).Number)

	require.NoError(t, consumer.Handle(ctx, events.TenantCreated, []byte(`{}`)))
	assert.Equal(t, []string{events.BookingConfirmed, events.PaymentRefunded, events.CreditLow, events.SubscriptionPastDue}, stub.keys)

	assert.Error(t, consumer.Handle(ctx, events.PaymentCompleted, []byte(`not json`)))
}

func TestInlineDispatcher(t *testing.T) {
	stub := &stubMessages{dispatched: make(chan string, 1)}
	d := NewInlineDispatcher(logger.New())
	ctx := context.Background()

	assert.Error(t, d.Publish(ctx, events.MessageDispatch, events.Dispatch{MessageID: "m1"}, 5))

	d.Bind(stub)
	require.NoError(t, d.Publish(ctx, events.MessageDispatch, events.Dispatch{MessageID: "m1"}, 5))
	select {
	case id := <-stub.dispatched:
		assert.Equal(t, "m1", id)
	case <-time.After(time.Second):
		t.Fatal("dispatch was not delivered")
	}

	assert.NoError(t, d.Publish(ctx, events.PaymentCompleted, events.Payment{}, 5))
	assert.Error(t, d.Publish(ctx, events.MessageDispatch, "m1", 5))
}
