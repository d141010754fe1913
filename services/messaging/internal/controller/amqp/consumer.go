package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/services/messaging/internal/usecase"
)

const (
	DispatchQueue = "messaging.dispatch"
	EventsQueue   = "messaging.events"
)

// EventKeys are the routing keys bound to EventsQueue.
var EventKeys = []string{
	events.BookingConfirmed,
	events.BookingCancelled,
	events.PaymentCompleted,
	events.PaymentRefunded,
	events.CreditLow,
	events.SubscriptionInvoiceCreated,
	events.SubscriptionPastDue,
}

type DispatchConsumer struct {
	messageUseCase usecase.MessageUseCase
	logger         *logger.Logger
}

func NewDispatchConsumer(messageUseCase usecase.MessageUseCase, logger *logger.Logger) *DispatchConsumer {
	return &DispatchConsumer{messageUseCase: messageUseCase, logger: logger}
}

// Handle is a queue.Handler for message.dispatch deliveries.
func (c *DispatchConsumer) Handle(ctx context.Context, routingKey string, body []byte) error {
	if routingKey != events.MessageDispatch {
		c.logger.Debug("Ignoring %s on %s", routingKey, DispatchQueue)
		return nil
	}

	var dispatch events.Dispatch
	if err := json.Unmarshal(body, &dispatch); err != nil {
		return fmt.Errorf("decode dispatch event: %w", err)
	}
	return c.messageUseCase.Dispatch(ctx, dispatch.MessageID)
}

type EventsConsumer struct {
	notificationUseCase usecase.NotificationUseCase
	logger              *logger.Logger
}

func NewEventsConsumer(notificationUseCase usecase.NotificationUseCase, logger *logger.Logger) *EventsConsumer {
	return &EventsConsumer{notificationUseCase: notificationUseCase, logger: logger}
}

// Handle turns domain events into in-app notifications.
func (c *EventsConsumer) Handle(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case events.BookingConfirmed, events.BookingCancelled:
		var booking events.Booking
		if err := json.Unmarshal(body, &booking); err != nil {
			return fmt.Errorf("decode booking event: %w", err)
		}
		return c.notificationUseCase.NotifyBooking(ctx, routingKey, booking)

	case events.PaymentCompleted, events.PaymentRefunded:
		var payment events.Payment
		if err := json.Unmarshal(body, &payment); err != nil {
			return fmt.Errorf("decode payment event: %w", err)
		}
		return c.notificationUseCase.NotifyPayment(ctx, routingKey, payment)

	case events.CreditLow:
		var alert events.CreditLowBalance
		if err := json.Unmarshal(body, &alert); err != nil {
			return fmt.Errorf("decode credit event: %w", err)
		}
		return c.notificationUseCase.NotifyCreditLow(ctx, alert)

	case events.SubscriptionInvoiceCreated, events.SubscriptionPastDue:
		var invoice events.Invoice
		if err := json.Unmarshal(body, &invoice); err != nil {
			return fmt.Errorf("decode invoice event: %w", err)
		}
		return c.notificationUseCase.NotifyInvoice(ctx, routingKey, invoice)
	}

	c.logger.Debug("Ignoring %s on %s", routingKey, EventsQueue)
	return nil
}
