package http

import (
	"net/http"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/services/analytics/internal/usecase"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsUseCase usecase.AnalyticsUseCase
	logger           *logger.Logger
}

func NewAnalyticsHandler(analyticsUseCase usecase.AnalyticsUseCase, logger *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsUseCase: analyticsUseCase,
		logger:           logger,
	}
}

// GetDashboard godoc
// @Summary      Tenant dashboard
// @Description  Students, libraries, seats, live occupancy, month-to-date revenue and pending payments
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Dashboard
// @Failure      400  {object}  map[string]string
// @Router       /analytics/dashboard [get]
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.analyticsUseCase.Dashboard(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetRevenue godoc
// @Summary      Revenue series
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        from        query string false "Start date YYYY-MM-DD (default 29 days before to)"
// @Param        to          query string false "End date YYYY-MM-DD (default today)"
// @Param        granularity query string false "day or month"
// @Success      200  {object}  entity.RevenueReport
// @Failure      400  {object}  map[string]string
// @Router       /analytics/revenue [get]
func (h *AnalyticsHandler) GetRevenue(c *gin.Context) {
	report, err := h.analyticsUseCase.Revenue(c.Request.Context(), middleware.ActorFrom(c), usecase.RevenueQuery{
		From:        c.Query("from"),
		To:          c.Query("to"),
		Granularity: c.Query("granularity"),
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetOccupancy godoc
// @Summary      Hourly seat occupancy for one library and day
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        library_id query string true  "Library ID"
// @Param        date       query string false "Day YYYY-MM-DD (default today)"
// @Success      200  {object}  entity.OccupancyReport
// @Failure      404  {object}  map[string]string
// @Router       /analytics/occupancy [get]
func (h *AnalyticsHandler) GetOccupancy(c *gin.Context) {
	report, err := h.analyticsUseCase.Occupancy(c.Request.Context(), middleware.ActorFrom(c), c.Query("library_id"), c.Query("date"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetPlatform godoc
// @Summary      Platform overview
// @Description  Tenants by status, active subscriptions, MRR, overdue invoices and payment volume
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.PlatformOverview
// @Failure      403  {object}  map[string]string
// @Router       /analytics/platform [get]
func (h *AnalyticsHandler) GetPlatform(c *gin.Context) {
	overview, err := h.analyticsUseCase.Platform(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
