package persistent

import (
	"studyspot/pkg/models"
	"studyspot/services/auth/internal/entity"
)

func ToUserEntity(m *models.User) *entity.User {
	if m == nil {
		return nil
	}

	user := &entity.User{
		ID:          m.ID,
		Email:       m.Email,
		Name:        m.Name,
		Phone:       m.Phone,
		Password:    m.Password,
		Role:        m.Role,
		AvatarURL:   m.AvatarURL,
		IsActive:    m.IsActive,
		LastLoginAt: m.LastLoginAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.TenantID != nil {
		user.TenantID = *m.TenantID
	}
	return user
}

func ToUserModel(e *entity.User) *models.User {
	if e == nil {
		return nil
	}

	m := &models.User{
		ID:          e.ID,
		Email:       e.Email,
		Name:        e.Name,
		Phone:       e.Phone,
		Password:    e.Password,
		Role:        e.Role,
		AvatarURL:   e.AvatarURL,
		IsActive:    e.IsActive,
		LastLoginAt: e.LastLoginAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.TenantID != "" {
		tenantID := e.TenantID
		m.TenantID = &tenantID
	}
	return m
}

func ToTenantEntity(m *models.Tenant) *entity.Tenant {
	if m == nil {
		return nil
	}
	return &entity.Tenant{ID: m.ID, Name: m.Name, Slug: m.Slug, Status: m.Status}
}
