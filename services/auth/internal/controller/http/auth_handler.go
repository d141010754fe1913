package http

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/pagination"
	"studyspot/pkg/storage"
	"studyspot/services/auth/internal/entity"
	"studyspot/services/auth/internal/usecase"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUseCase usecase.AuthUseCase
	logger      *logger.Logger
}

func NewAuthHandler(authUseCase usecase.AuthUseCase, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		logger:      logger,
	}
}

type RegisterRequest struct {
	TenantSlug string `json:"tenant_slug" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Phone      string `json:"phone" binding:"omitempty,max=20"`
	Password   string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=2,max=100"`
	Phone *string `json:"phone" binding:"omitempty,max=20"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

type CreateUserRequest struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=platform_admin library_owner library_staff student"`
}

type SetStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

// Register godoc
// @Summary      Register a student
// @Description  Self-registration of a student with an active library tenant
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201  {object}  AuthResponse
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	user, token, err := h.authUseCase.Register(c.Request.Context(), usecase.RegisterInput{
		TenantSlug: req.TenantSlug,
		Email:      req.Email,
		Name:       req.Name,
		Phone:      req.Phone,
		Password:   req.Password,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login godoc
// @Summary      Login user
// @Description  Authenticate user and return JWT token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	user, token, err := h.authUseCase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
}

// Me godoc
// @Summary      Get current user info
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.User
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authUseCase.GetUser(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe godoc
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200  {object}  entity.User
// @Failure      400  {object}  map[string]string
// @Router       /me [put]
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	user, err := h.authUseCase.UpdateProfile(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Name, req.Phone)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary      Change password
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Current and new password"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /me/password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	if err := h.authUseCase.ChangePassword(c.Request.Context(), c.GetString(middleware.ContextUserID), req.CurrentPassword, req.NewPassword); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// UploadAvatar godoc
// @Summary      Upload user avatar
// @Description  Upload avatar image (jpg, jpeg, png, webp; max 5 MB) for the current user
// @Tags         profile
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        avatar formData file true "Avatar image file"
// @Success      200  {object}  entity.User
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /me/avatar [post]
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		apperror.Respond(c, apperror.BadRequest("Avatar file is required"))
		return
	}

	if file.Size > storage.MaxImageSize {
		apperror.Respond(c, apperror.BadRequest(fmt.Sprintf("Avatar must be at most %d MB", storage.MaxImageSize>>20)))
		return
	}

	contentType, ok := storage.ImageContentType(file.Filename)
	if !ok {
		apperror.Respond(c, apperror.BadRequest("Avatar must be a jpg, jpeg, png or webp image"))
		return
	}

	src, err := file.Open()
	if err != nil {
		apperror.Respond(c, apperror.BadRequest("Failed to read avatar"))
		return
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	user, err := h.authUseCase.UploadAvatar(c.Request.Context(), c.GetString(middleware.ContextUserID), src, ext, contentType)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers godoc
// @Summary      List users
// @Description  Platform roles see every user; owners and staff see their tenant
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        tenant_id query string false "Tenant filter (platform only)"
// @Param        role      query string false "Role filter"
// @Param        q         query string false "Name or email search"
// @Param        limit     query int    false "Page size (max 100)"
// @Param        offset    query int    false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /users [get]
func (h *AuthHandler) ListUsers(c *gin.Context) {
	params := pagination.FromQuery(c)
	filter := entity.UserFilter{
		TenantID: c.Query("tenant_id"),
		Role:     c.Query("role"),
		Query:    strings.TrimSpace(c.Query("q")),
	}

	users, total, err := h.authUseCase.ListUsers(c.Request.Context(), middleware.ActorFrom(c), filter, params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(users, total, params))
}

// GetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200  {object}  entity.User
// @Failure      404  {object}  map[string]string
// @Router       /users/{id} [get]
func (h *AuthHandler) GetUser(c *gin.Context) {
	user, err := h.authUseCase.GetUserByID(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser godoc
// @Summary      Create a user
// @Description  Owners create staff and students; platform admins create tenant users or platform admins
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateUserRequest true "User"
// @Success      201  {object}  entity.User
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /users [post]
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	user, err := h.authUseCase.CreateUser(c.Request.Context(), middleware.ActorFrom(c), toCreateInput(req))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// SetUserStatus godoc
// @Summary      Activate or deactivate a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string           true "User ID"
// @Param        request body SetStatusRequest true "Status"
// @Success      200  {object}  entity.User
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id}/status [patch]
func (h *AuthHandler) SetUserStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	user, err := h.authUseCase.SetUserStatus(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), *req.IsActive)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateInternalUser godoc
// @Summary      Create a user (service to service)
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        X-Internal-API-Key header string true "Internal API key"
// @Param        request body CreateUserRequest true "User"
// @Success      201  {object}  entity.User
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /internal/users [post]
func (h *AuthHandler) CreateInternalUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	user, err := h.authUseCase.CreateInternalUser(c.Request.Context(), toCreateInput(req))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	h.logger.Info("Internal user %s created for tenant %s", user.ID, user.TenantID)
	c.JSON(http.StatusCreated, user)
}

func toCreateInput(req CreateUserRequest) usecase.CreateUserInput {
	return usecase.CreateUserInput{
		TenantID: req.TenantID,
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	}
}
