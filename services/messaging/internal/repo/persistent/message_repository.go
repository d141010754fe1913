package persistent

import (
	"context"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/messaging/internal/entity"

	"gorm.io/gorm"
)

type MessageFilter struct {
	TenantID string
	Channel  string
	Status   string
}

type MessageRepository interface {
	// Create stores the message and its recipients in one transaction.
	Create(ctx context.Context, msg *entity.Message) error
	Get(ctx context.Context, id string, withRecipients bool) (*entity.Message, error)
	List(ctx context.Context, filter MessageFilter, limit, offset int) ([]*entity.Message, int64, error)
	SetStatus(ctx context.Context, id, status string) error
	UpdateRecipient(ctx context.Context, recipient *entity.Recipient) error

	// TenantContacts returns the active users of tenantID among userIDs.
	TenantContacts(ctx context.Context, tenantID string, userIDs []string) ([]entity.Contact, error)
	ActiveStudents(ctx context.Context, tenantID string) ([]entity.Contact, error)
	TenantOwner(ctx context.Context, tenantID string) (string, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *entity.Message) error {
	msgModel := ToMessageModel(msg)
	if err := r.db.WithContext(ctx).Create(msgModel).Error; err != nil {
		return err
	}
	*msg = *ToMessageEntity(msgModel)
	return nil
}

func (r *messageRepository) Get(ctx context.Context, id string, withRecipients bool) (*entity.Message, error) {
	query := r.db.WithContext(ctx)
	if withRecipients {
		query = query.Preload("Recipients", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at, id")
		})
	}

	var msgModel models.Message
	if err := query.Where("id = ?", id).First(&msgModel).Error; err != nil {
		return nil, apperror.FromDB(err, "message")
	}
	return ToMessageEntity(&msgModel), nil
}

func (r *messageRepository) List(ctx context.Context, filter MessageFilter, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Message{})
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgModels []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&msgModels).Error; err != nil {
		return nil, 0, err
	}

	messages := make([]*entity.Message, len(msgModels))
	for i := range msgModels {
		messages[i] = ToMessageEntity(&msgModels[i])
	}
	return messages, total, nil
}

func (r *messageRepository) SetStatus(ctx context.Context, id, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("message")
	}
	return nil
}

func (r *messageRepository) UpdateRecipient(ctx context.Context, recipient *entity.Recipient) error {
	return r.db.WithContext(ctx).Model(&models.MessageRecipient{}).
		Where("id = ?", recipient.ID).
		Updates(map[string]interface{}{
			"status":       recipient.Status,
			"error":        recipient.Error,
			"delivered_at": recipient.DeliveredAt,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *messageRepository) TenantContacts(ctx context.Context, tenantID string, userIDs []string) ([]entity.Contact, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var userModels []models.User
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND id IN ?", tenantID, true, userIDs).
		Find(&userModels).Error
	if err != nil {
		return nil, err
	}
	return toContacts(userModels), nil
}

func (r *messageRepository) ActiveStudents(ctx context.Context, tenantID string) ([]entity.Contact, error) {
	var userModels []models.User
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND role = ? AND is_active = ?", tenantID, roles.Student, true).
		Order("name").
		Find(&userModels).Error
	if err != nil {
		return nil, err
	}
	return toContacts(userModels), nil
}

func (r *messageRepository) TenantOwner(ctx context.Context, tenantID string) (string, error) {
	var tenantModel models.Tenant
	if err := r.db.WithContext(ctx).Select("id", "owner_user_id").Where("id = ?", tenantID).First(&tenantModel).Error; err != nil {
		return "", apperror.FromDB(err, "tenant")
	}
	if tenantModel.OwnerUserID == nil {
		return "", nil
	}
	return *tenantModel.OwnerUserID, nil
}

func toContacts(userModels []models.User) []entity.Contact {
	contacts := make([]entity.Contact, len(userModels))
	for i := range userModels {
		contacts[i] = ToContactEntity(&userModels[i])
	}
	return contacts
}
