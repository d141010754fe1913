package persistent

import (
	"studyspot/pkg/models"
	"studyspot/services/messaging/internal/entity"
)

func ToMessageEntity(m *models.Message) *entity.Message {
	if m == nil {
		return nil
	}
	msg := &entity.Message{
		ID:             m.ID,
		TenantID:       m.TenantID,
		SenderID:       m.SenderID,
		Channel:        m.Channel,
		Subject:        m.Subject,
		Body:           m.Body,
		RecipientCount: m.RecipientCount,
		CreditsUsed:    m.CreditsUsed,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	for i := range m.Recipients {
		msg.Recipients = append(msg.Recipients, ToRecipientEntity(&m.Recipients[i]))
	}
	return msg
}

func ToMessageModel(e *entity.Message) *models.Message {
	if e == nil {
		return nil
	}
	m := &models.Message{
		ID:             e.ID,
		TenantID:       e.TenantID,
		SenderID:       e.SenderID,
		Channel:        e.Channel,
		Subject:        e.Subject,
		Body:           e.Body,
		RecipientCount: e.RecipientCount,
		CreditsUsed:    e.CreditsUsed,
		Status:         e.Status,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
	for _, r := range e.Recipients {
		m.Recipients = append(m.Recipients, *ToRecipientModel(r))
	}
	return m
}

func ToRecipientEntity(m *models.MessageRecipient) *entity.Recipient {
	return &entity.Recipient{
		ID:          m.ID,
		MessageID:   m.MessageID,
		UserID:      m.UserID,
		Address:     m.Address,
		Status:      m.Status,
		Error:       m.Error,
		DeliveredAt: m.DeliveredAt,
	}
}

func ToRecipientModel(e *entity.Recipient) *models.MessageRecipient {
	return &models.MessageRecipient{
		ID:          e.ID,
		MessageID:   e.MessageID,
		UserID:      e.UserID,
		Address:     e.Address,
		Status:      e.Status,
		Error:       e.Error,
		DeliveredAt: e.DeliveredAt,
	}
}

func ToContactEntity(m *models.User) entity.Contact {
	return entity.Contact{
		UserID: m.ID,
		Name:   m.Name,
		Email:  m.Email,
		Phone:  m.Phone,
	}
}
