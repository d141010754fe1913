package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"studyspot/pkg/apperror"
	"studyspot/pkg/events"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/tenant/internal/entity"
	"studyspot/services/tenant/internal/repo/persistent"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxSlugAttempts = 100
	// slugRaceRetries bounds re-picks after a concurrent create took the slug.
	slugRaceRetries = 3
)

type FileStorage interface {
	UploadFile(ctx context.Context, key string, file io.Reader, contentType string) (string, error)
}

type CreateTenantInput struct {
	Name          string
	Email         string
	Phone         string
	Address       string
	City          string
	OwnerName     string
	OwnerEmail    string
	OwnerPassword string
}

type UpdateTenantInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	City    *string
}

type TenantUseCase interface {
	CreateTenant(ctx context.Context, actor roles.Actor, input CreateTenantInput) (*entity.Tenant, error)
	ListTenants(ctx context.Context, filter entity.TenantFilter, limit, offset int) ([]*entity.Tenant, int64, error)
	GetTenant(ctx context.Context, actor roles.Actor, id string) (*entity.Tenant, error)
	UpdateTenant(ctx context.Context, actor roles.Actor, id string, input UpdateTenantInput) (*entity.Tenant, error)
	Suspend(ctx context.Context, actor roles.Actor, id string) (*entity.Tenant, error)
	Activate(ctx context.Context, actor roles.Actor, id string) (*entity.Tenant, error)
	GetSettings(ctx context.Context, actor roles.Actor, id string) (map[string]interface{}, error)
	UpdateSettings(ctx context.Context, actor roles.Actor, id string, patch map[string]interface{}) (map[string]interface{}, error)
	UploadLogo(ctx context.Context, actor roles.Actor, id string, file io.Reader, ext, contentType string) (*entity.Tenant, error)
	GetPublic(ctx context.Context, slug string) (*entity.PublicTenant, error)
}

type tenantUseCase struct {
	repo      persistent.TenantRepository
	storage   FileStorage
	publisher events.Publisher
	logger    *logger.Logger
}

func NewTenantUseCase(repo persistent.TenantRepository, storage FileStorage, publisher events.Publisher, logger *logger.Logger) TenantUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &tenantUseCase{
		repo:      repo,
		storage:   storage,
		publisher: publisher,
		logger:    logger,
	}
}

// UniqueSlug slugifies name and appends -2, -3, ... until exists reports false.
func UniqueSlug(name string, exists func(string) (bool, error)) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "library"
	}

	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", apperror.Conflict("", "Could not find a free slug for "+name)
}

func (uc *tenantUseCase) CreateTenant(ctx context.Context, actor roles.Actor, input CreateTenantInput) (*entity.Tenant, error) {
	ownerEmail := strings.ToLower(strings.TrimSpace(input.OwnerEmail))
	taken, err := uc.repo.EmailTaken(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.Conflict("EMAIL_TAKEN", "An account with the owner email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.OwnerPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	tenant := &entity.Tenant{
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.TrimSpace(input.Email),
		Phone:    strings.TrimSpace(input.Phone),
		Address:  strings.TrimSpace(input.Address),
		City:     strings.TrimSpace(input.City),
		Status:   models.TenantStatusActive,
		Settings: map[string]interface{}{},
	}
	owner := &entity.Owner{
		Name:         strings.TrimSpace(input.OwnerName),
		Email:        ownerEmail,
		PasswordHash: string(hash),
	}

	for attempt := 0; ; attempt++ {
		tenant.Slug, err = UniqueSlug(input.Name, func(s string) (bool, error) {
			return uc.repo.SlugExists(ctx, s)
		})
		if err != nil {
			return nil, err
		}

		err = uc.repo.CreateWithOwner(ctx, tenant, owner)
		if err == nil {
			break
		}
		switch {
		case errors.Is(err, persistent.ErrSlugTaken) && attempt < slugRaceRetries:
			uc.logger.Warn("Slug %s taken by a concurrent create, picking another", tenant.Slug)
			continue
		case errors.Is(err, persistent.ErrSlugTaken):
			return nil, apperror.Conflict("SLUG_TAKEN", "Could not find a free slug for "+input.Name)
		case errors.Is(err, persistent.ErrEmailTaken):
			return nil, apperror.Conflict("EMAIL_TAKEN", "An account with the owner email already exists")
		}
		uc.logger.Error("Failed to create tenant %s: %v", tenant.Slug, err)
		return nil, err
	}

	if err := uc.publisher.Publish(ctx, events.TenantCreated, events.Tenant{
		TenantID:    tenant.ID,
		Name:        tenant.Name,
		Slug:        tenant.Slug,
		OwnerUserID: owner.ID,
	}, 3); err != nil {
		uc.logger.Warn("Failed to publish tenant.created for %s: %v", tenant.ID, err)
	}

	uc.logger.Info("Tenant %s (%s) created by %s", tenant.Slug, tenant.ID, actor.UserID)
	return tenant, nil
}

func (uc *tenantUseCase) ListTenants(ctx context.Context, filter entity.TenantFilter, limit, offset int) ([]*entity.Tenant, int64, error) {
	return uc.repo.List(ctx, filter, limit, offset)
}

// GetTenant hides other tenants from tenant users as not found.
func (uc *tenantUseCase) GetTenant(ctx context.Context, actor roles.Actor, id string) (*entity.Tenant, error) {
	if !actor.IsPlatform() && actor.TenantID != id {
		return nil, apperror.NotFound("tenant not found")
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *tenantUseCase) UpdateTenant(ctx context.Context, actor roles.Actor, id string, input UpdateTenantInput) (*entity.Tenant, error) {
	tenant, err := uc.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperror.Validation("Name cannot be empty")
		}
		tenant.Name = name
	}
	if input.Email != nil {
		tenant.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		tenant.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		tenant.Address = strings.TrimSpace(*input.Address)
	}
	if input.City != nil {
		tenant.City = strings.TrimSpace(*input.City)
	}

	if err := uc.repo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return tenant, nil
}

func (uc *tenantUseCase) Suspend(ctx context.Context, actor roles.Actor, id string) (*entity.Tenant, error) {
	return uc.transition(ctx, actor, id, models.TenantStatusSuspended)
}

func (uc *tenantUseCase) Activate(ctx context.Context, actor roles.Actor, id string) (*entity.Tenant, error) {
	return uc.transition(ctx, actor, id, models.TenantStatusActive)
}

func (uc *tenantUseCase) transition(ctx context.Context, actor roles.Actor, id, status string) (*entity.Tenant, error) {
	if !actor.IsPlatform() {
		return nil, apperror.Forbidden("", "Only platform admins can change tenant status")
	}

	tenant, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Status == status {
		return nil, apperror.InvalidStatus(fmt.Sprintf("Tenant is already %s", status))
	}

	previous := tenant.Status
	tenant.Status = status
	if err := uc.repo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant status: %w", err)
	}

	uc.logger.Info("Tenant %s status %s -> %s by %s", id, previous, status, actor.UserID)
	return tenant, nil
}

func (uc *tenantUseCase) GetSettings(ctx context.Context, actor roles.Actor, id string) (map[string]interface{}, error) {
	tenant, err := uc.GetTenant(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return tenant.Settings, nil
}

// UpdateSettings merges patch into the stored settings one level deep.
// A null value removes the key.
func (uc *tenantUseCase) UpdateSettings(ctx context.Context, actor roles.Actor, id string, patch map[string]interface{}) (map[string]interface{}, error) {
	tenant, err := uc.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	tenant.Settings = MergeSettings(tenant.Settings, patch)
	if err := uc.repo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return tenant.Settings, nil
}

func MergeSettings(current, patch map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

func (uc *tenantUseCase) UploadLogo(ctx context.Context, actor roles.Actor, id string, file io.Reader, ext, contentType string) (*entity.Tenant, error) {
	if uc.storage == nil {
		return nil, apperror.Unavailable("File storage is not available")
	}

	tenant, err := uc.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tenants/%s/logo-%s%s", id, uuid.New().String(), ext)
	url, err := uc.storage.UploadFile(ctx, key, file, contentType)
	if err != nil {
		uc.logger.Error("Failed to upload logo for tenant %s: %v", id, err)
		return nil, apperror.Internal(err)
	}

	tenant.LogoURL = url
	if err := uc.repo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to save logo: %w", err)
	}
	return tenant, nil
}

func (uc *tenantUseCase) GetPublic(ctx context.Context, slug string) (*entity.PublicTenant, error) {
	tenant, err := uc.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return tenant.Public(), nil
}

// editable loads a tenant the actor may modify: platform roles any, owners their own.
func (uc *tenantUseCase) editable(ctx context.Context, actor roles.Actor, id string) (*entity.Tenant, error) {
	if !actor.IsPlatform() {
		if actor.TenantID != id {
			return nil, apperror.NotFound("tenant not found")
		}
		if actor.Role != roles.LibraryOwner {
			return nil, apperror.Forbidden("", "Only the owner can change tenant details")
		}
	}
	return uc.repo.GetByID(ctx, id)
}
