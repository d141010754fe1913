package persistent

import (
	"context"
	"strings"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/services/auth/internal/entity"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, filter entity.UserFilter, limit, offset int) ([]*entity.User, int64, error)
	GetTenantByID(ctx context.Context, id string) (*entity.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*entity.Tenant, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	userModel := ToUserModel(user)
	if err := r.db.WithContext(ctx).Create(userModel).Error; err != nil {
		return err
	}
	*user = *ToUserEntity(userModel)
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userModel models.User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&userModel).Error; err != nil {
		return nil, apperror.FromDB(err, "user")
	}
	return ToUserEntity(&userModel), nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var userModel models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error; err != nil {
		return nil, apperror.FromDB(err, "user")
	}
	return ToUserEntity(&userModel), nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(ToUserModel(user)).Error
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func (r *userRepository) List(ctx context.Context, filter entity.UserFilter, limit, offset int) ([]*entity.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var userModels []models.User
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&userModels).Error; err != nil {
		return nil, 0, err
	}

	users := make([]*entity.User, len(userModels))
	for i := range userModels {
		users[i] = ToUserEntity(&userModels[i])
	}
	return users, total, nil
}

func (r *userRepository) GetTenantByID(ctx context.Context, id string) (*entity.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, apperror.FromDB(err, "tenant")
	}
	return ToTenantEntity(&tenant), nil
}

func (r *userRepository) GetTenantBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, apperror.FromDB(err, "tenant")
	}
	return ToTenantEntity(&tenant), nil
}
