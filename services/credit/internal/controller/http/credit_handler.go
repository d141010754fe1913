package http

import (
	"net/http"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/pagination"
	"studyspot/services/credit/internal/usecase"

	"github.com/gin-gonic/gin"
)

type CreditHandler struct {
	creditUseCase usecase.CreditUseCase
	logger        *logger.Logger
}

func NewCreditHandler(creditUseCase usecase.CreditUseCase, logger *logger.Logger) *CreditHandler {
	return &CreditHandler{
		creditUseCase: creditUseCase,
		logger:        logger,
	}
}

type CreatePackageRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	CreditType string `json:"credit_type" binding:"required,oneof=sms whatsapp email"`
	Credits    int64  `json:"credits" binding:"required,min=1"`
	Price      int64  `json:"price" binding:"min=0"`
}

type UpdatePackageRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Credits  *int64  `json:"credits" binding:"omitempty,min=1"`
	Price    *int64  `json:"price" binding:"omitempty,min=0"`
	IsActive *bool   `json:"is_active"`
}

type ThresholdRequest struct {
	CreditType string `json:"credit_type" binding:"required,oneof=sms whatsapp email"`
	Threshold  int64  `json:"threshold" binding:"min=0"`
}

type PurchaseRequest struct {
	PackageID string `json:"package_id" binding:"required"`
}

type GrantRequest struct {
	TenantID   string `json:"tenant_id" binding:"required"`
	CreditType string `json:"credit_type" binding:"required,oneof=sms whatsapp email"`
	Amount     int64  `json:"amount" binding:"required,min=1"`
	Reason     string `json:"reason" binding:"required,max=255"`
}

// ListPackages godoc
// @Summary      List credit packages
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  entity.Package
// @Router       /credits/packages [get]
func (h *CreditHandler) ListPackages(c *gin.Context) {
	packages, err := h.creditUseCase.ListPackages(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, packages)
}

// CreatePackage godoc
// @Summary      Create a credit package
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePackageRequest true "Package"
// @Success      201  {object}  entity.Package
// @Failure      403  {object}  map[string]string
// @Router       /credits/packages [post]
func (h *CreditHandler) CreatePackage(c *gin.Context) {
	var req CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	pkg, err := h.creditUseCase.CreatePackage(c.Request.Context(), middleware.ActorFrom(c), usecase.PackageInput{
		Name:       req.Name,
		CreditType: req.CreditType,
		Credits:    req.Credits,
		Price:      req.Price,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

// UpdatePackage godoc
// @Summary      Update a credit package
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Package ID"
// @Param        request body UpdatePackageRequest true "Changes"
// @Success      200  {object}  entity.Package
// @Failure      404  {object}  map[string]string
// @Router       /credits/packages/{id} [put]
func (h *CreditHandler) UpdatePackage(c *gin.Context) {
	var req UpdatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	pkg, err := h.creditUseCase.UpdatePackage(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), usecase.PackageUpdate{
		Name:     req.Name,
		Credits:  req.Credits,
		Price:    req.Price,
		IsActive: req.IsActive,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// GetBalance godoc
// @Summary      Credit balances of the tenant
// @Description  Every credit type is listed; types never bought show 0
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /credits/balance [get]
func (h *CreditHandler) GetBalance(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	balances, err := h.creditUseCase.GetBalances(c.Request.Context(), actor)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant_id": actor.TenantID, "balances": balances})
}

// SetThreshold godoc
// @Summary      Set the low-balance threshold for a credit type
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ThresholdRequest true "Threshold"
// @Success      200  {object}  entity.Balance
// @Router       /credits/threshold [put]
func (h *CreditHandler) SetThreshold(c *gin.Context) {
	var req ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	balance, err := h.creditUseCase.SetThreshold(c.Request.Context(), middleware.ActorFrom(c), req.CreditType, req.Threshold)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// Purchase godoc
// @Summary      Buy a credit package
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PurchaseRequest true "Package"
// @Success      201  {object}  entity.Transaction
// @Failure      422  {object}  map[string]string
// @Router       /credits/purchase [post]
func (h *CreditHandler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	tx, err := h.creditUseCase.Purchase(c.Request.Context(), middleware.ActorFrom(c), req.PackageID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// Grant godoc
// @Summary      Grant credits to a tenant
// @Tags         credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body GrantRequest true "Grant"
// @Success      201  {object}  entity.Transaction
// @Router       /credits/grant [post]
func (h *CreditHandler) Grant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	tx, err := h.creditUseCase.Grant(c.Request.Context(), middleware.ActorFrom(c), usecase.MovementInput{
		TenantID:   req.TenantID,
		CreditType: req.CreditType,
		Amount:     req.Amount,
		Reference:  req.Reason,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// ListTransactions godoc
// @Summary      Credit ledger of the tenant
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Param        credit_type query string false "sms, whatsapp or email"
// @Param        limit       query int    false "Page size (max 100)"
// @Param        offset      query int    false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /credits/transactions [get]
func (h *CreditHandler) ListTransactions(c *gin.Context) {
	params := pagination.FromQuery(c)
	txs, total, err := h.creditUseCase.ListTransactions(c.Request.Context(), middleware.ActorFrom(c), c.Query("credit_type"), params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(txs, total, params))
}
