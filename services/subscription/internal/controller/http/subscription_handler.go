package http

import (
	"net/http"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/pagination"
	"studyspot/services/subscription/internal/usecase"

	"github.com/gin-gonic/gin"
)

type CreatePlanRequest struct {
	Code            string                 `json:"code" binding:"required,min=2,max=50"`
	Name            string                 `json:"name" binding:"required,max=100"`
	Description     string                 `json:"description" binding:"omitempty,max=1000"`
	Price           int64                  `json:"price" binding:"min=0"`
	BillingPeriod   string                 `json:"billing_period" binding:"required,oneof=month year"`
	TrialDays       int                    `json:"trial_days" binding:"min=0,max=90"`
	MaxLibraries    int64                  `json:"max_libraries" binding:"min=0"`
	MaxSeats        int64                  `json:"max_seats" binding:"min=0"`
	MaxStudents     int64                  `json:"max_students" binding:"min=0"`
	IncludedCredits int64                  `json:"included_credits" binding:"min=0"`
	Features        map[string]interface{} `json:"features"`
	IsPublic        *bool                  `json:"is_public"`
}

type UpdatePlanRequest struct {
	Name            *string                `json:"name" binding:"omitempty,max=100"`
	Description     *string                `json:"description" binding:"omitempty,max=1000"`
	Price           *int64                 `json:"price" binding:"omitempty,min=0"`
	TrialDays       *int                   `json:"trial_days" binding:"omitempty,min=0,max=90"`
	MaxLibraries    *int64                 `json:"max_libraries" binding:"omitempty,min=0"`
	MaxSeats        *int64                 `json:"max_seats" binding:"omitempty,min=0"`
	MaxStudents     *int64                 `json:"max_students" binding:"omitempty,min=0"`
	IncludedCredits *int64                 `json:"included_credits" binding:"omitempty,min=0"`
	Features        map[string]interface{} `json:"features"`
	IsActive        *bool                  `json:"is_active"`
	IsPublic        *bool                  `json:"is_public"`
}

type PlanCodeRequest struct {
	PlanCode string `json:"plan_code" binding:"required"`
}

type SubscriptionHandler struct {
	subscriptionUseCase usecase.SubscriptionUseCase
	logger              *logger.Logger
}

func NewSubscriptionHandler(subscriptionUseCase usecase.SubscriptionUseCase, logger *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionUseCase: subscriptionUseCase,
		logger:              logger,
	}
}

// ListPlans godoc
// @Summary      List public subscription plans
// @Tags         plans
// @Produce      json
// @Success      200  {array}   entity.Plan
// @Router       /plans [get]
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	h.listPlans(c, false)
}

// ListAllPlans godoc
// @Summary      List all plans including inactive and private ones
// @Tags         plans
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   entity.Plan
// @Router       /plans/all [get]
func (h *SubscriptionHandler) ListAllPlans(c *gin.Context) {
	h.listPlans(c, true)
}

func (h *SubscriptionHandler) listPlans(c *gin.Context, includeHidden bool) {
	plans, err := h.subscriptionUseCase.ListPlans(c.Request.Context(), includeHidden)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// CreatePlan godoc
// @Summary      Create a subscription plan
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreatePlanRequest true "Plan"
// @Success      201  {object}  entity.Plan
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /plans [post]
func (h *SubscriptionHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	plan, err := h.subscriptionUseCase.CreatePlan(c.Request.Context(), middleware.ActorFrom(c), usecase.PlanInput{
		Code:            req.Code,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		BillingPeriod:   req.BillingPeriod,
		TrialDays:       req.TrialDays,
		MaxLibraries:    req.MaxLibraries,
		MaxSeats:        req.MaxSeats,
		MaxStudents:     req.MaxStudents,
		IncludedCredits: req.IncludedCredits,
		Features:        req.Features,
		IsPublic:        isPublic,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// UpdatePlan godoc
// @Summary      Update a subscription plan
// @Description  Existing subscriptions keep their period; new prices apply from the next invoice
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string            true "Plan ID"
// @Param        request body UpdatePlanRequest true "Fields to change"
// @Success      200  {object}  entity.Plan
// @Failure      404  {object}  map[string]string
// @Router       /plans/{id} [put]
func (h *SubscriptionHandler) UpdatePlan(c *gin.Context) {
	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	plan, err := h.subscriptionUseCase.UpdatePlan(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), usecase.PlanUpdate{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		TrialDays:       req.TrialDays,
		MaxLibraries:    req.MaxLibraries,
		MaxSeats:        req.MaxSeats,
		MaxStudents:     req.MaxStudents,
		IncludedCredits: req.IncludedCredits,
		Features:        req.Features,
		IsActive:        req.IsActive,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Subscribe godoc
// @Summary      Subscribe the tenant to a plan
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PlanCodeRequest true "Plan"
// @Success      201  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /subscriptions [post]
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req PlanCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	sub, invoice, err := h.subscriptionUseCase.Subscribe(c.Request.Context(), middleware.ActorFrom(c), req.PlanCode)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription": sub, "invoice": invoice})
}

// Current godoc
// @Summary      Get the tenant's subscription
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Subscription
// @Failure      404  {object}  map[string]string
// @Router       /subscriptions/current [get]
func (h *SubscriptionHandler) Current(c *gin.Context) {
	sub, err := h.subscriptionUseCase.Current(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Cancel godoc
// @Summary      Cancel at the end of the current period
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Subscription
// @Failure      409  {object}  map[string]string
// @Router       /subscriptions/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	sub, err := h.subscriptionUseCase.Cancel(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Resume godoc
// @Summary      Undo a pending cancellation
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Subscription
// @Failure      409  {object}  map[string]string
// @Router       /subscriptions/resume [post]
func (h *SubscriptionHandler) Resume(c *gin.Context) {
	sub, err := h.subscriptionUseCase.Resume(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ChangePlan godoc
// @Summary      Move the subscription to another plan
// @Description  The new period starts immediately; open invoices are voided
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PlanCodeRequest true "Plan"
// @Success      200  {object}  map[string]interface{}
// @Router       /subscriptions/change-plan [post]
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	var req PlanCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	sub, invoice, err := h.subscriptionUseCase.ChangePlan(c.Request.Context(), middleware.ActorFrom(c), req.PlanCode)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "invoice": invoice})
}

// Usage godoc
// @Summary      Resource usage against plan limits
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Usage
// @Router       /subscriptions/usage [get]
func (h *SubscriptionHandler) Usage(c *gin.Context) {
	usage, err := h.subscriptionUseCase.Usage(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

// ListSubscriptions godoc
// @Summary      List all tenant subscriptions
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "trialing, active, past_due or canceled"
// @Param        limit  query int    false "Page size (max 100)"
// @Param        offset query int    false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	params := pagination.FromQuery(c)

	subs, total, err := h.subscriptionUseCase.ListSubscriptions(c.Request.Context(), middleware.ActorFrom(c), c.Query("status"), params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(subs, total, params))
}
