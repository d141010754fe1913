package amqp

import (
	"context"
	"fmt"

	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/services/messaging/internal/usecase"
)

// InlineDispatcher is the events.Publisher used when the broker is down:
// message.dispatch is delivered in-process on a background goroutine.
type InlineDispatcher struct {
	messageUseCase usecase.MessageUseCase
	logger         *logger.Logger
}

func NewInlineDispatcher(logger *logger.Logger) *InlineDispatcher {
	return &InlineDispatcher{logger: logger}
}

// Bind breaks the construction cycle between the usecase and its publisher.
func (d *InlineDispatcher) Bind(messageUseCase usecase.MessageUseCase) {
	d.messageUseCase = messageUseCase
}

func (d *InlineDispatcher) Publish(ctx context.Context, routingKey string, payload interface{}, priority int) error {
	if routingKey != events.MessageDispatch {
		return nil
	}
	dispatch, ok := payload.(events.Dispatch)
	if !ok {
		return fmt.Errorf("unexpected dispatch payload %T", payload)
	}
	if d.messageUseCase == nil {
		return fmt.Errorf("inline dispatcher is not bound")
	}

	go func() {
		if err := d.messageUseCase.Dispatch(context.Background(), dispatch.MessageID); err != nil {
			d.logger.Error("Inline dispatch of message %s failed: %v", dispatch.MessageID, err)
		}
	}()
	return nil
}
