package persistent

import (
	"studyspot/pkg/models"
	"studyspot/services/tenant/internal/entity"

	"gorm.io/datatypes"
)

func ToTenantEntity(m *models.Tenant) *entity.Tenant {
	if m == nil {
		return nil
	}

	tenant := &entity.Tenant{
		ID:        m.ID,
		Name:      m.Name,
		Slug:      m.Slug,
		Email:     m.Email,
		Phone:     m.Phone,
		Address:   m.Address,
		City:      m.City,
		Status:    m.Status,
		LogoURL:   m.LogoURL,
		Settings:  map[string]interface{}(m.Settings),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.OwnerUserID != nil {
		tenant.OwnerUserID = *m.OwnerUserID
	}
	if tenant.Settings == nil {
		tenant.Settings = map[string]interface{}{}
	}
	return tenant
}

func ToTenantModel(e *entity.Tenant) *models.Tenant {
	if e == nil {
		return nil
	}

	m := &models.Tenant{
		ID:        e.ID,
		Name:      e.Name,
		Slug:      e.Slug,
		Email:     e.Email,
		Phone:     e.Phone,
		Address:   e.Address,
		City:      e.City,
		Status:    e.Status,
		LogoURL:   e.LogoURL,
		Settings:  datatypes.JSONMap(e.Settings),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.OwnerUserID != "" {
		ownerID := e.OwnerUserID
		m.OwnerUserID = &ownerID
	}
	return m
}
