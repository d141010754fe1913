package http

import (
	"net/http"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/pagination"
	"studyspot/services/payment/internal/entity"
	"studyspot/services/payment/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type PaymentHandler struct {
	paymentUseCase usecase.PaymentUseCase
	logger         *logger.Logger
}

func NewPaymentHandler(paymentUseCase usecase.PaymentUseCase, logger *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentUseCase: paymentUseCase,
		logger:         logger,
	}
}

type CompletePaymentRequest struct {
	GatewayReference string `json:"gateway_reference" binding:"required,max=255"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// optionalTime parses an RFC3339 query parameter when present.
func optionalTime(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperror.BadRequest(key + " must be an RFC3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

// RecordPayment godoc
// @Summary      Record a payment
// @Description  Cash, UPI and bank transfers complete immediately; card and online start pending
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key header string false "Replays the first result for repeated requests"
// @Param        request body usecase.RecordPaymentInput true "Payment"
// @Success      201  {object}  entity.Payment
// @Success      200  {object}  entity.Payment "Replayed"
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string "Same Idempotency-Key still in flight"
// @Router       /payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req usecase.RecordPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	payment, replayed, err := h.paymentUseCase.RecordPayment(c.Request.Context(), middleware.ActorFrom(c), req, c.GetHeader(HeaderIdempotencyKey))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	if replayed {
		c.Header(HeaderReplayed, "true")
		c.JSON(http.StatusOK, payment)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// ListPayments godoc
// @Summary      List payments
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        status     query string false "Payment status"
// @Param        student_id query string false "Student"
// @Param        method     query string false "Payment method"
// @Param        from       query string false "RFC3339 lower bound"
// @Param        to         query string false "RFC3339 upper bound"
// @Param        limit      query int    false "Page size (max 100)"
// @Param        offset     query int    false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	from, err := optionalTime(c, "from")
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	to, err := optionalTime(c, "to")
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	params := pagination.FromQuery(c)
	filter := entity.PaymentFilter{
		Status:    c.Query("status"),
		StudentID: c.Query("student_id"),
		Method:    c.Query("method"),
		From:      from,
		To:        to,
	}

	payments, total, err := h.paymentUseCase.ListPayments(c.Request.Context(), middleware.ActorFrom(c), filter, params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(payments, total, params))
}

// GetPayment godoc
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Payment ID"
// @Success      200  {object}  entity.Payment
// @Failure      404  {object}  map[string]string
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentUseCase.GetPayment(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// CompletePayment godoc
// @Summary      Mark a pending payment completed
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Payment ID"
// @Param        request body CompletePaymentRequest true "Gateway reference"
// @Success      200  {object}  entity.Payment
// @Failure      409  {object}  map[string]string
// @Router       /payments/{id}/complete [post]
func (h *PaymentHandler) CompletePayment(c *gin.Context) {
	var req CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	payment, err := h.paymentUseCase.Complete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.GatewayReference)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// FailPayment godoc
// @Summary      Mark a pending payment failed
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Payment ID"
// @Param        request body FailPaymentRequest true "Failure reason"
// @Success      200  {object}  entity.Payment
// @Failure      409  {object}  map[string]string
// @Router       /payments/{id}/fail [post]
func (h *PaymentHandler) FailPayment(c *gin.Context) {
	var req FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	payment, err := h.paymentUseCase.Fail(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// RefundPayment godoc
// @Summary      Refund all or part of a payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Payment ID"
// @Param        request body usecase.RefundInput true "Refund"
// @Success      200  {object}  entity.Payment
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /payments/{id}/refund [post]
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	var req usecase.RefundInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	payment, err := h.paymentUseCase.Refund(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// Summary godoc
// @Summary      Payment totals for a period
// @Description  Defaults to the last 30 days
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        from query string false "RFC3339 lower bound"
// @Param        to   query string false "RFC3339 upper bound"
// @Success      200  {object}  entity.Summary
// @Router       /payments/summary [get]
func (h *PaymentHandler) Summary(c *gin.Context) {
	from, err := optionalTime(c, "from")
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	to, err := optionalTime(c, "to")
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	summary, err := h.paymentUseCase.Summary(c.Request.Context(), middleware.ActorFrom(c), from, to)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
