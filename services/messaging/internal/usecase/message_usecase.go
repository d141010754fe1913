package usecase

import (
	"context"
	"fmt"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/creditclient"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/messaging/internal/entity"
	"studyspot/services/messaging/internal/repo/persistent"
	"studyspot/services/messaging/internal/sender"

	"github.com/google/uuid"
)

const (
	CodeInvalidRecipients = "INVALID_RECIPIENTS"

	dispatchPriority = 5
)

// Credits is satisfied by *creditclient.Client.
type Credits interface {
	Consume(ctx context.Context, req creditclient.Request) (*creditclient.Result, error)
	Refund(ctx context.Context, req creditclient.Request) (*creditclient.Result, error)
}

type MessageUseCase interface {
	SendMessage(ctx context.Context, actor roles.Actor, input SendMessageInput) (*entity.Message, error)
	ListMessages(ctx context.Context, actor roles.Actor, filter persistent.MessageFilter, limit, offset int) ([]*entity.Message, int64, error)
	GetMessage(ctx context.Context, actor roles.Actor, id string) (*entity.Message, error)
	// Dispatch delivers every queued recipient of a message and settles its status.
	Dispatch(ctx context.Context, messageID string) error
}

type messageUseCase struct {
	repo      persistent.MessageRepository
	credits   Credits
	senders   map[string]sender.Sender
	publisher events.Publisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewMessageUseCase(repo persistent.MessageRepository, credits Credits, senders map[string]sender.Sender, publisher events.Publisher, logger *logger.Logger) MessageUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &messageUseCase{
		repo:      repo,
		credits:   credits,
		senders:   senders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func requireTenant(actor roles.Actor) error {
	if actor.TenantID == "" {
		return apperror.BadRequest("tenant_id is required")
	}
	return nil
}

func (uc *messageUseCase) SendMessage(ctx context.Context, actor roles.Actor, input SendMessageInput) (*entity.Message, error) {
	if err := requireTenant(actor); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	contacts, err := uc.resolveRecipients(ctx, actor.TenantID, input)
	if err != nil {
		return nil, err
	}

	msg := &entity.Message{
		ID:             uuid.NewString(),
		TenantID:       actor.TenantID,
		SenderID:       actor.UserID,
		Channel:        input.Channel,
		Subject:        input.Subject,
		Body:           input.Body,
		RecipientCount: len(contacts),
		CreditsUsed:    entity.CostPerRecipient(input.Channel, input.Body) * int64(len(contacts)),
		Status:         models.MessageStatusQueued,
	}
	for _, contact := range contacts {
		msg.Recipients = append(msg.Recipients, &entity.Recipient{
			UserID:  contact.UserID,
			Address: contact.Address(input.Channel),
			Status:  models.RecipientStatusQueued,
		})
	}

	if msg.CreditsUsed > 0 {
		if _, err := uc.credits.Consume(ctx, uc.creditRequest(msg, msg.CreditsUsed)); err != nil {
			if _, ok := apperror.As(err); ok {
				return nil, err
			}
			uc.logger.Error("Credit consumption for message %s failed: %v", msg.ID, err)
			return nil, apperror.Unavailable("credit service is unavailable")
		}
	}

	if err := uc.repo.Create(ctx, msg); err != nil {
		uc.refund(ctx, uc.creditRequest(msg, msg.CreditsUsed))
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	uc.logger.Info("Message %s queued: %s to %d recipients, %d credits", msg.ID, msg.Channel, msg.RecipientCount, msg.CreditsUsed)

	payload := events.Dispatch{MessageID: msg.ID, TenantID: msg.TenantID}
	if err := uc.publisher.Publish(ctx, events.MessageDispatch, payload, dispatchPriority); err != nil {
		uc.logger.Error("Failed to publish dispatch for message %s: %v", msg.ID, err)
	}

	return msg, nil
}

func (uc *messageUseCase) resolveRecipients(ctx context.Context, tenantID string, input SendMessageInput) ([]entity.Contact, error) {
	if input.Audience == entity.AudienceAllStudents {
		students, err := uc.repo.ActiveStudents(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if len(students) == 0 {
			return nil, apperror.Unprocessable(CodeInvalidRecipients, "tenant has no active students")
		}
		return students, nil
	}

	ids := unique(input.RecipientIDs)
	if len(ids) == 0 {
		return nil, apperror.Validation("recipient_ids or audience is required")
	}

	contacts, err := uc.repo.TenantContacts(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	if len(contacts) != len(ids) {
		return nil, apperror.Unprocessable(CodeInvalidRecipients, "every recipient must be an active user of this tenant")
	}
	return contacts, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (uc *messageUseCase) ListMessages(ctx context.Context, actor roles.Actor, filter persistent.MessageFilter, limit, offset int) ([]*entity.Message, int64, error) {
	if !actor.IsPlatform() {
		if err := requireTenant(actor); err != nil {
			return nil, 0, err
		}
	}
	filter.TenantID = actor.TenantID
	return uc.repo.List(ctx, filter, limit, offset)
}

func (uc *messageUseCase) GetMessage(ctx context.Context, actor roles.Actor, id string) (*entity.Message, error) {
	msg, err := uc.repo.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessTenant(msg.TenantID) {
		return nil, apperror.NotFound("message not found")
	}
	return msg, nil
}

func (uc *messageUseCase) Dispatch(ctx context.Context, messageID string) error {
	msg, err := uc.repo.Get(ctx, messageID, true)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeNotFound) {
			uc.logger.Warn("Dispatch for unknown message %s dropped", messageID)
			return nil
		}
		return err
	}
	if msg.Status != models.MessageStatusQueued && msg.Status != models.MessageStatusSending {
		uc.logger.Debug("Message %s already %s, skipping dispatch", msg.ID, msg.Status)
		return nil
	}

	if err := uc.repo.SetStatus(ctx, msg.ID, models.MessageStatusSending); err != nil {
		return err
	}

	channelSender := uc.senders[msg.Channel]
	delivered, failed := 0, 0
	for _, rcpt := range msg.Recipients {
		switch rcpt.Status {
		case models.RecipientStatusDelivered:
			delivered++
			continue
		case models.RecipientStatusFailed:
			failed++
			continue
		}

		sendErr := fmt.Errorf("no sender for channel %s", msg.Channel)
		if channelSender != nil {
			sendErr = channelSender.Send(ctx, msg, rcpt)
		}
		if sendErr != nil {
			rcpt.Status = models.RecipientStatusFailed
			rcpt.Error = sendErr.Error()
			failed++
		} else {
			at := uc.now().UTC()
			rcpt.Status = models.RecipientStatusDelivered
			rcpt.DeliveredAt = &at
			delivered++
		}
		if err := uc.repo.UpdateRecipient(ctx, rcpt); err != nil {
			return fmt.Errorf("failed to update recipient %s: %w", rcpt.ID, err)
		}
	}

	status := entity.FinalStatus(delivered, failed)
	if err := uc.repo.SetStatus(ctx, msg.ID, status); err != nil {
		return err
	}

	// After the final status only: redeliveries skip settled messages.
	if failed > 0 {
		req := uc.creditRequest(msg, entity.CostPerRecipient(msg.Channel, msg.Body)*int64(failed))
		req.Reference += ":undelivered"
		uc.refund(ctx, req)
	}

	uc.logger.Info("Message %s %s: delivered=%d failed=%d", msg.ID, status, delivered, failed)
	return nil
}

func (uc *messageUseCase) creditRequest(msg *entity.Message, amount int64) creditclient.Request {
	return creditclient.Request{
		TenantID:   msg.TenantID,
		CreditType: entity.CreditType(msg.Channel),
		Amount:     amount,
		Reference:  "message:" + msg.ID,
	}
}

func (uc *messageUseCase) refund(ctx context.Context, req creditclient.Request) {
	if req.Amount <= 0 || req.CreditType == "" {
		return
	}
	if _, err := uc.credits.Refund(ctx, req); err != nil {
		uc.logger.Error("Failed to refund %d credits for %s: %v", req.Amount, req.Reference, err)
	}
}
