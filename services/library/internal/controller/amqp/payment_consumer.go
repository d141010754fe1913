package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/services/library/internal/usecase"
)

const PaymentsQueue = "library.payments"

type PaymentConsumer struct {
	bookingUseCase usecase.BookingUseCase
	logger         *logger.Logger
}

func NewPaymentConsumer(bookingUseCase usecase.BookingUseCase, logger *logger.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		bookingUseCase: bookingUseCase,
		logger:         logger,
	}
}

// Handle is a queue.Handler for payment.completed deliveries.
func (c *PaymentConsumer) Handle(ctx context.Context, routingKey string, body []byte) error {
	if routingKey != events.PaymentCompleted {
		c.logger.Debug("Ignoring %s on %s", routingKey, PaymentsQueue)
		return nil
	}

	var payment events.Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return fmt.Errorf("decode payment event: %w", err)
	}
	return c.bookingUseCase.HandlePaymentCompleted(ctx, payment)
}
