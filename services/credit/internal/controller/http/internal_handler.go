package http

import (
	"context"
	"net/http"

	"studyspot/pkg/apperror"
	"studyspot/pkg/creditclient"
	"studyspot/pkg/logger"
	"studyspot/services/credit/internal/entity"
	"studyspot/services/credit/internal/usecase"

	"github.com/gin-gonic/gin"
)

// InternalHandler serves the service-to-service API behind the internal key.
type InternalHandler struct {
	creditUseCase usecase.CreditUseCase
	logger        *logger.Logger
}

func NewInternalHandler(creditUseCase usecase.CreditUseCase, logger *logger.Logger) *InternalHandler {
	return &InternalHandler{
		creditUseCase: creditUseCase,
		logger:        logger,
	}
}

type movementFunc func(context.Context, usecase.MovementInput) (*entity.Balance, error)

func (h *InternalHandler) handle(c *gin.Context, fn movementFunc) {
	var req creditclient.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	balance, err := fn(c.Request.Context(), usecase.MovementInput{
		TenantID:   req.TenantID,
		CreditType: req.CreditType,
		Amount:     req.Amount,
		Reference:  req.Reference,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, creditclient.Result{
		TenantID:   balance.TenantID,
		CreditType: balance.CreditType,
		Balance:    balance.Balance,
	})
}

// Consume godoc
// @Summary      Debit credits (internal)
// @Tags         internal
// @Accept       json
// @Produce      json
// @Security     InternalKey
// @Param        request body creditclient.Request true "Debit"
// @Success      200  {object}  creditclient.Result
// @Failure      402  {object}  map[string]string
// @Router       /internal/credits/consume [post]
func (h *InternalHandler) Consume(c *gin.Context) {
	h.handle(c, h.creditUseCase.Consume)
}

// Refund godoc
// @Summary      Return credits (internal)
// @Tags         internal
// @Accept       json
// @Produce      json
// @Security     InternalKey
// @Param        request body creditclient.Request true "Refund"
// @Success      200  {object}  creditclient.Result
// @Router       /internal/credits/refund [post]
func (h *InternalHandler) Refund(c *gin.Context) {
	h.handle(c, h.creditUseCase.Refund)
}

// Grant godoc
// @Summary      Grant credits (internal)
// @Tags         internal
// @Accept       json
// @Produce      json
// @Security     InternalKey
// @Param        request body creditclient.Request true "Grant"
// @Success      200  {object}  creditclient.Result
// @Router       /internal/credits/grant [post]
func (h *InternalHandler) Grant(c *gin.Context) {
	h.handle(c, h.creditUseCase.InternalGrant)
}
