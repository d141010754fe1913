package http

import (
	"net/http"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/pagination"
	"studyspot/services/subscription/internal/repo/persistent"
	"studyspot/services/subscription/internal/usecase"

	"github.com/gin-gonic/gin"
)

type PayInvoiceRequest struct {
	Reference string `json:"reference" binding:"omitempty,max=100"`
}

type InvoiceHandler struct {
	invoiceUseCase usecase.InvoiceUseCase
	logger         *logger.Logger
}

func NewInvoiceHandler(invoiceUseCase usecase.InvoiceUseCase, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceUseCase: invoiceUseCase,
		logger:         logger,
	}
}

// ListInvoices godoc
// @Summary      List invoices
// @Description  Tenants see their own invoices; platform admins may filter by tenant_id
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string false "open, paid, overdue or void"
// @Param        tenant_id query string false "Tenant (platform only)"
// @Param        limit     query int    false "Page size (max 100)"
// @Param        offset    query int    false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.FromQuery(c)
	filter := persistent.InvoiceFilter{
		TenantID: c.Query("tenant_id"),
		Status:   c.Query("status"),
	}

	invoices, total, err := h.invoiceUseCase.ListInvoices(c.Request.Context(), middleware.ActorFrom(c), filter, params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(invoices, total, params))
}

// GetInvoice godoc
// @Summary      Get an invoice
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Invoice ID"
// @Success      200  {object}  entity.Invoice
// @Failure      404  {object}  map[string]string
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceUseCase.GetInvoice(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// PayInvoice godoc
// @Summary      Record payment of an invoice
// @Description  Paying an overdue invoice reactivates a past_due subscription
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string            true  "Invoice ID"
// @Param        request body PayInvoiceRequest false "Payment reference"
// @Success      200  {object}  entity.Invoice
// @Failure      409  {object}  map[string]string
// @Router       /invoices/{id}/pay [post]
func (h *InvoiceHandler) PayInvoice(c *gin.Context) {
	var req PayInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperror.BindError(c, err)
			return
		}
	}

	invoice, err := h.invoiceUseCase.PayInvoice(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reference)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
