package persistent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studyspot/pkg/apperror"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/tenant/internal/entity"

	"gorm.io/gorm"
)

var (
	ErrSlugTaken  = errors.New("tenant slug already taken")
	ErrEmailTaken = errors.New("owner email already taken")
)

type TenantRepository interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	// CreateWithOwner returns ErrSlugTaken or ErrEmailTaken when a unique
	// index rejects the insert.
	CreateWithOwner(ctx context.Context, tenant *entity.Tenant, owner *entity.Owner) error
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error)
	List(ctx context.Context, filter entity.TenantFilter, limit, offset int) ([]*entity.Tenant, int64, error)
	Update(ctx context.Context, tenant *entity.Tenant) error
}

type tenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Tenant{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *tenantRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// CreateWithOwner inserts the tenant and its owner account in one transaction
// and links them both ways.
func (r *tenantRepository) CreateWithOwner(ctx context.Context, tenant *entity.Tenant, owner *entity.Owner) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenantModel := ToTenantModel(tenant)
		if err := tx.Create(tenantModel).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlugTaken
			}
			return fmt.Errorf("failed to create tenant: %w", err)
		}

		userModel := &models.User{
			TenantID: &tenantModel.ID,
			Email:    owner.Email,
			Name:     owner.Name,
			Password: owner.PasswordHash,
			Role:     roles.LibraryOwner,
			IsActive: true,
		}
		if err := tx.Create(userModel).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create owner: %w", err)
		}

		if err := tx.Model(tenantModel).Update("owner_user_id", userModel.ID).Error; err != nil {
			return fmt.Errorf("failed to link owner: %w", err)
		}

		tenantModel.OwnerUserID = &userModel.ID
		*tenant = *ToTenantEntity(tenantModel)
		owner.ID = userModel.ID
		return nil
	})
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, apperror.FromDB(err, "tenant")
	}
	return ToTenantEntity(&tenant), nil
}

func (r *tenantRepository) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, apperror.FromDB(err, "tenant")
	}
	return ToTenantEntity(&tenant), nil
}

func (r *tenantRepository) List(ctx context.Context, filter entity.TenantFilter, limit, offset int) ([]*entity.Tenant, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Tenant{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Query != "" {
		like := "%" + strings.ToLower(filter.Query) + "%"
		query = query.Where("LOWER(name) LIKE ? OR slug LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenantModels []models.Tenant
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&tenantModels).Error; err != nil {
		return nil, 0, err
	}

	tenants := make([]*entity.Tenant, len(tenantModels))
	for i := range tenantModels {
		tenants[i] = ToTenantEntity(&tenantModels[i])
	}
	return tenants, total, nil
}

func (r *tenantRepository) Update(ctx context.Context, tenant *entity.Tenant) error {
	return r.db.WithContext(ctx).Save(ToTenantModel(tenant)).Error
}
