package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/models"
	"studyspot/pkg/roles"
	"studyspot/services/auth/internal/entity"
	"studyspot/services/auth/internal/repo/persistent"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeTenantInactive     = "TENANT_INACTIVE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeTenantSuspended    = "TENANT_SUSPENDED"

	MinPasswordLength = 8
)

type TokenIssuer interface {
	GenerateToken(userID, role, tenantID string) (string, error)
}

type FileStorage interface {
	UploadFile(ctx context.Context, key string, file io.Reader, contentType string) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

type RegisterInput struct {
	TenantSlug string
	Email      string
	Name       string
	Phone      string
	Password   string
}

type CreateUserInput struct {
	TenantID string
	Email    string
	Name     string
	Phone    string
	Password string
	Role     string
}

type AuthUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*entity.User, string, error)
	Login(ctx context.Context, email, password string) (*entity.User, string, error)
	GetUser(ctx context.Context, userID string) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID string, name, phone *string) (*entity.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UploadAvatar(ctx context.Context, userID string, file io.Reader, ext, contentType string) (*entity.User, error)
	ListUsers(ctx context.Context, actor roles.Actor, filter entity.UserFilter, limit, offset int) ([]*entity.User, int64, error)
	GetUserByID(ctx context.Context, actor roles.Actor, id string) (*entity.User, error)
	CreateUser(ctx context.Context, actor roles.Actor, input CreateUserInput) (*entity.User, error)
	SetUserStatus(ctx context.Context, actor roles.Actor, id string, isActive bool) (*entity.User, error)
	CreateInternalUser(ctx context.Context, input CreateUserInput) (*entity.User, error)
}

type authUseCase struct {
	userRepo    persistent.UserRepository
	tokens      TokenIssuer
	storage     FileStorage
	bucketKeyFn func(url string) string
	logger      *logger.Logger
}

func NewAuthUseCase(
	userRepo persistent.UserRepository,
	tokens TokenIssuer,
	storage FileStorage,
	bucketKeyFn func(url string) string,
	logger *logger.Logger,
) AuthUseCase {
	return &authUseCase{
		userRepo:    userRepo,
		tokens:      tokens,
		storage:     storage,
		bucketKeyFn: bucketKeyFn,
		logger:      logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (uc *authUseCase) Register(ctx context.Context, input RegisterInput) (*entity.User, string, error) {
	tenant, err := uc.userRepo.GetTenantBySlug(ctx, input.TenantSlug)
	if err != nil {
		return nil, "", err
	}
	if tenant.Status != models.TenantStatusActive {
		return nil, "", apperror.Forbidden(CodeTenantInactive, "Library is not accepting registrations")
	}

	user, err := uc.createUser(ctx, CreateUserInput{
		TenantID: tenant.ID,
		Email:    input.Email,
		Name:     input.Name,
		Phone:    input.Phone,
		Password: input.Password,
		Role:     roles.Student,
	})
	if err != nil {
		return nil, "", err
	}

	token, err := uc.tokens.GenerateToken(user.ID, user.Role, user.TenantID)
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", apperror.Internal(err)
	}

	uc.logger.Info("Student %s registered with tenant %s", user.ID, tenant.Slug)
	return user, token, nil
}

func (uc *authUseCase) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	invalid := apperror.Unauthorized(CodeInvalidCredentials, "Invalid email or password")

	user, err := uc.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperror.IsCode(err, apperror.CodeNotFound) {
			return nil, "", invalid
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", invalid
	}

	if !user.IsActive {
		return nil, "", apperror.Forbidden(CodeAccountDisabled, "Account is disabled")
	}

	if user.TenantID != "" {
		tenant, err := uc.userRepo.GetTenantByID(ctx, user.TenantID)
		if err != nil {
			return nil, "", err
		}
		if tenant.Status == models.TenantStatusSuspended {
			return nil, "", apperror.Forbidden(CodeTenantSuspended, "Library account is suspended")
		}
	}

	token, err := uc.tokens.GenerateToken(user.ID, user.Role, user.TenantID)
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", apperror.Internal(err)
	}

	now := time.Now().UTC()
	if err := uc.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		uc.logger.Warn("Failed to record last login for %s: %v", user.ID, err)
	} else {
		user.LastLoginAt = &now
	}

	return user, token, nil
}

func (uc *authUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *authUseCase) UpdateProfile(ctx context.Context, userID string, name, phone *string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperror.Validation("Name cannot be empty")
		}
		user.Name = trimmed
	}
	if phone != nil {
		user.Phone = strings.TrimSpace(*phone)
	}

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func (uc *authUseCase) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return apperror.Unauthorized(CodeInvalidCredentials, "Current password is incorrect")
	}
	if len(newPassword) < MinPasswordLength {
		return apperror.Validation(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperror.Internal(err)
	}
	user.Password = string(hash)
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	uc.logger.Info("Password changed for user %s", userID)
	return nil
}

func (uc *authUseCase) UploadAvatar(ctx context.Context, userID string, file io.Reader, ext, contentType string) (*entity.User, error) {
	if uc.storage == nil {
		return nil, apperror.Unavailable("File storage is not available")
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New().String(), ext)
	url, err := uc.storage.UploadFile(ctx, key, file, contentType)
	if err != nil {
		uc.logger.Error("Failed to upload avatar for user %s: %v", userID, err)
		return nil, apperror.Internal(err)
	}

	oldURL := user.AvatarURL
	user.AvatarURL = url
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save avatar: %w", err)
	}

	if oldURL != "" && uc.bucketKeyFn != nil {
		if oldKey := uc.bucketKeyFn(oldURL); oldKey != "" {
			if err := uc.storage.DeleteFile(ctx, oldKey); err != nil {
				uc.logger.Warn("Failed to delete old avatar %s: %v", oldKey, err)
			}
		}
	}

	return user, nil
}

func (uc *authUseCase) ListUsers(ctx context.Context, actor roles.Actor, filter entity.UserFilter, limit, offset int) ([]*entity.User, int64, error) {
	if !actor.IsPlatform() {
		filter.TenantID = actor.TenantID
	}
	return uc.userRepo.List(ctx, filter, limit, offset)
}

func (uc *authUseCase) GetUserByID(ctx context.Context, actor roles.Actor, id string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, user) {
		return nil, apperror.NotFound("user not found")
	}
	return user, nil
}

func visibleTo(actor roles.Actor, user *entity.User) bool {
	if actor.IsPlatform() {
		return true
	}
	if actor.UserID == user.ID {
		return true
	}
	return actor.IsStaff() && user.TenantID != "" && user.TenantID == actor.TenantID
}

// CreateUser applies who-may-create-whom: owners add staff and students to
// their own tenant; platform users add tenant users anywhere, and only super
// admins add platform admins.
func (uc *authUseCase) CreateUser(ctx context.Context, actor roles.Actor, input CreateUserInput) (*entity.User, error) {
	switch {
	case actor.IsPlatform():
		switch input.Role {
		case roles.PlatformAdmin:
			if actor.Role != roles.SuperAdmin {
				return nil, apperror.Forbidden("", "Only super admins can create platform admins")
			}
			input.TenantID = ""
		case roles.LibraryOwner, roles.LibraryStaff, roles.Student:
			if input.TenantID == "" {
				return nil, apperror.Validation("tenant_id is required for tenant users")
			}
			if _, err := uc.userRepo.GetTenantByID(ctx, input.TenantID); err != nil {
				return nil, err
			}
		default:
			return nil, apperror.Validation("Invalid role")
		}
	case actor.Role == roles.LibraryOwner:
		if input.Role != roles.LibraryStaff && input.Role != roles.Student {
			return nil, apperror.Forbidden("", "Owners can only create staff and students")
		}
		input.TenantID = actor.TenantID
	default:
		return nil, apperror.Forbidden("", "Insufficient permissions")
	}

	user, err := uc.createUser(ctx, input)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("User %s (%s) created by %s", user.ID, user.Role, actor.UserID)
	return user, nil
}

func (uc *authUseCase) SetUserStatus(ctx context.Context, actor roles.Actor, id string, isActive bool) (*entity.User, error) {
	if actor.UserID == id {
		return nil, apperror.Forbidden("", "You cannot change your own status")
	}

	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, user) {
		return nil, apperror.NotFound("user not found")
	}
	if roles.IsPlatform(user.Role) && actor.Role != roles.SuperAdmin {
		return nil, apperror.Forbidden("", "Only super admins can change platform users")
	}
	if user.Role == roles.LibraryOwner && !actor.IsPlatform() {
		return nil, apperror.Forbidden("", "Only platform admins can change owners")
	}

	user.IsActive = isActive
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	uc.logger.Info("User %s is_active=%t set by %s", id, isActive, actor.UserID)
	return user, nil
}

func (uc *authUseCase) CreateInternalUser(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	if !roles.Valid(input.Role) || input.Role == roles.SuperAdmin {
		return nil, apperror.Validation("Invalid role")
	}
	if !roles.IsPlatform(input.Role) && input.TenantID == "" {
		return nil, apperror.Validation("tenant_id is required for tenant users")
	}
	return uc.createUser(ctx, input)
}

func (uc *authUseCase) createUser(ctx context.Context, input CreateUserInput) (*entity.User, error) {
	email := normalizeEmail(input.Email)
	if len(input.Password) < MinPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}

	_, err := uc.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, apperror.Conflict(CodeEmailTaken, "An account with this email already exists")
	}
	if !apperror.IsCode(err, apperror.CodeNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		uc.logger.Error("Failed to hash password: %v", err)
		return nil, apperror.Internal(err)
	}

	user := &entity.User{
		TenantID: input.TenantID,
		Email:    email,
		Name:     strings.TrimSpace(input.Name),
		Phone:    strings.TrimSpace(input.Phone),
		Password: string(hash),
		Role:     input.Role,
		IsActive: true,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		uc.logger.Error("Failed to create user: %v", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
