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
	"studyspot/services/tenant/internal/entity"
	"studyspot/services/tenant/internal/usecase"

	"github.com/gin-gonic/gin"
)

type TenantHandler struct {
	tenantUseCase usecase.TenantUseCase
	logger        *logger.Logger
}

func NewTenantHandler(tenantUseCase usecase.TenantUseCase, logger *logger.Logger) *TenantHandler {
	return &TenantHandler{
		tenantUseCase: tenantUseCase,
		logger:        logger,
	}
}

type CreateTenantRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=150"`
	Email         string `json:"email" binding:"omitempty,email"`
	Phone         string `json:"phone" binding:"omitempty,max=20"`
	Address       string `json:"address" binding:"omitempty,max=500"`
	City          string `json:"city" binding:"omitempty,max=100"`
	OwnerName     string `json:"owner_name" binding:"required,min=2,max=100"`
	OwnerEmail    string `json:"owner_email" binding:"required,email"`
	OwnerPassword string `json:"owner_password" binding:"required,min=8"`
}

type UpdateTenantRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=2,max=150"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Phone   *string `json:"phone" binding:"omitempty,max=20"`
	Address *string `json:"address" binding:"omitempty,max=500"`
	City    *string `json:"city" binding:"omitempty,max=100"`
}

// CreateTenant godoc
// @Summary      Onboard a library tenant
// @Description  Creates the tenant and its owner account in one transaction
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateTenantRequest true "Tenant and owner"
// @Success      201  {object}  entity.Tenant
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /tenants [post]
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	tenant, err := h.tenantUseCase.CreateTenant(c.Request.Context(), middleware.ActorFrom(c), usecase.CreateTenantInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		OwnerName:     req.OwnerName,
		OwnerEmail:    req.OwnerEmail,
		OwnerPassword: req.OwnerPassword,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

// ListTenants godoc
// @Summary      List tenants
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "active or suspended"
// @Param        q      query string false "Name, slug or email search"
// @Param        limit  query int    false "Page size (max 100)"
// @Param        offset query int    false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /tenants [get]
func (h *TenantHandler) ListTenants(c *gin.Context) {
	params := pagination.FromQuery(c)
	filter := entity.TenantFilter{
		Status: c.Query("status"),
		Query:  strings.TrimSpace(c.Query("q")),
	}

	tenants, total, err := h.tenantUseCase.ListTenants(c.Request.Context(), filter, params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(tenants, total, params))
}

// GetTenant godoc
// @Summary      Get a tenant
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Tenant ID"
// @Success      200  {object}  entity.Tenant
// @Failure      404  {object}  map[string]string
// @Router       /tenants/{id} [get]
func (h *TenantHandler) GetTenant(c *gin.Context) {
	tenant, err := h.tenantUseCase.GetTenant(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// UpdateTenant godoc
// @Summary      Update tenant details
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string              true "Tenant ID"
// @Param        request body UpdateTenantRequest true "Fields to change"
// @Success      200  {object}  entity.Tenant
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tenants/{id} [put]
func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	tenant, err := h.tenantUseCase.UpdateTenant(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), usecase.UpdateTenantInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		City:    req.City,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// SuspendTenant godoc
// @Summary      Suspend a tenant
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Tenant ID"
// @Success      200  {object}  entity.Tenant
// @Failure      409  {object}  map[string]string
// @Router       /tenants/{id}/suspend [post]
func (h *TenantHandler) SuspendTenant(c *gin.Context) {
	tenant, err := h.tenantUseCase.Suspend(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// ActivateTenant godoc
// @Summary      Reactivate a tenant
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Tenant ID"
// @Success      200  {object}  entity.Tenant
// @Failure      409  {object}  map[string]string
// @Router       /tenants/{id}/activate [post]
func (h *TenantHandler) ActivateTenant(c *gin.Context) {
	tenant, err := h.tenantUseCase.Activate(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// GetSettings godoc
// @Summary      Get tenant settings
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Tenant ID"
// @Success      200  {object}  map[string]interface{}
// @Router       /tenants/{id}/settings [get]
func (h *TenantHandler) GetSettings(c *gin.Context) {
	settings, err := h.tenantUseCase.GetSettings(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary      Merge tenant settings
// @Description  Top-level keys replace stored values; null removes a key
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                 true "Tenant ID"
// @Param        request body map[string]interface{} true "Settings patch"
// @Success      200  {object}  map[string]interface{}
// @Router       /tenants/{id}/settings [put]
func (h *TenantHandler) UpdateSettings(c *gin.Context) {
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		apperror.Respond(c, apperror.BadRequest("Settings must be a JSON object"))
		return
	}

	settings, err := h.tenantUseCase.UpdateSettings(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), patch)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UploadLogo godoc
// @Summary      Upload tenant logo
// @Description  jpg, jpeg, png or webp up to 5 MB
// @Tags         tenants
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Tenant ID"
// @Param        logo formData file   true "Logo image"
// @Success      200  {object}  entity.Tenant
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /tenants/{id}/logo [post]
func (h *TenantHandler) UploadLogo(c *gin.Context) {
	file, err := c.FormFile("logo")
	if err != nil {
		apperror.Respond(c, apperror.BadRequest("Logo file is required"))
		return
	}

	if file.Size > storage.MaxImageSize {
		apperror.Respond(c, apperror.BadRequest(fmt.Sprintf("Logo must be at most %d MB", storage.MaxImageSize>>20)))
		return
	}

	contentType, ok := storage.ImageContentType(file.Filename)
	if !ok {
		apperror.Respond(c, apperror.BadRequest("Logo must be a jpg, jpeg, png or webp image"))
		return
	}

	src, err := file.Open()
	if err != nil {
		apperror.Respond(c, apperror.BadRequest("Failed to read logo"))
		return
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	tenant, err := h.tenantUseCase.UploadLogo(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), src, ext, contentType)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// GetPublicTenant godoc
// @Summary      Public tenant lookup
// @Description  Used by the student app before registration
// @Tags         public
// @Produce      json
// @Param        slug path string true "Tenant slug"
// @Success      200  {object}  entity.PublicTenant
// @Failure      404  {object}  map[string]string
// @Router       /public/tenants/{slug} [get]
func (h *TenantHandler) GetPublicTenant(c *gin.Context) {
	tenant, err := h.tenantUseCase.GetPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}
