package http

import (
	"net/http"
	"strconv"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/services/library/internal/usecase"

	"github.com/gin-gonic/gin"
)

type LibraryHandler struct {
	libraryUseCase usecase.LibraryUseCase
	logger         *logger.Logger
}

func NewLibraryHandler(libraryUseCase usecase.LibraryUseCase, logger *logger.Logger) *LibraryHandler {
	return &LibraryHandler{
		libraryUseCase: libraryUseCase,
		logger:         logger,
	}
}

type CreateLibraryRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=150"`
	Address   string `json:"address" binding:"omitempty,max=500"`
	City      string `json:"city" binding:"omitempty,max=100"`
	OpenTime  string `json:"open_time" binding:"omitempty,len=5"`
	CloseTime string `json:"close_time" binding:"omitempty,len=5"`
}

type UpdateLibraryRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=2,max=150"`
	Address   *string `json:"address" binding:"omitempty,max=500"`
	City      *string `json:"city" binding:"omitempty,max=100"`
	OpenTime  *string `json:"open_time" binding:"omitempty,len=5"`
	CloseTime *string `json:"close_time" binding:"omitempty,len=5"`
	IsActive  *bool   `json:"is_active"`
}

type BulkSeatsRequest struct {
	Prefix string `json:"prefix" binding:"max=10"`
	Start  int    `json:"start" binding:"min=0"`
	Count  int    `json:"count" binding:"required,min=1,max=500"`
	Zone   string `json:"zone" binding:"omitempty,max=50"`
}

type UpdateSeatRequest struct {
	Status *string `json:"status" binding:"omitempty,oneof=available maintenance disabled"`
	Zone   *string `json:"zone" binding:"omitempty,max=50"`
}

type CreateFeePlanRequest struct {
	LibraryID       string  `json:"library_id"`
	Name            string  `json:"name" binding:"required,min=2,max=100"`
	PlanType        string  `json:"plan_type" binding:"required,oneof=hourly daily monthly"`
	Price           int64   `json:"price" binding:"required,gt=0"`
	DiscountPercent float64 `json:"discount_percent" binding:"gte=0,lte=100"`
}

type UpdateFeePlanRequest struct {
	Name            *string  `json:"name" binding:"omitempty,min=2,max=100"`
	Price           *int64   `json:"price" binding:"omitempty,gt=0"`
	DiscountPercent *float64 `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
	IsActive        *bool    `json:"is_active"`
}

func queryTime(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, apperror.BadRequest(key + " is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperror.BadRequest(key + " must be an RFC3339 timestamp")
	}
	return t.UTC(), nil
}

// CreateLibrary godoc
// @Summary      Create a library branch
// @Tags         libraries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateLibraryRequest true "Library"
// @Success      201  {object}  entity.Library
// @Failure      400  {object}  map[string]string
// @Router       /libraries [post]
func (h *LibraryHandler) CreateLibrary(c *gin.Context) {
	var req CreateLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	library, err := h.libraryUseCase.CreateLibrary(c.Request.Context(), middleware.ActorFrom(c), usecase.LibraryInput{
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		OpenTime:  req.OpenTime,
		CloseTime: req.CloseTime,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, library)
}

// ListLibraries godoc
// @Summary      List libraries
// @Tags         libraries
// @Produce      json
// @Security     BearerAuth
// @Param        include_inactive query bool false "Include deactivated libraries (staff only)"
// @Success      200  {array}  entity.Library
// @Router       /libraries [get]
func (h *LibraryHandler) ListLibraries(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	libraries, err := h.libraryUseCase.ListLibraries(c.Request.Context(), middleware.ActorFrom(c), includeInactive)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, libraries)
}

// GetLibrary godoc
// @Summary      Get a library
// @Tags         libraries
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Library ID"
// @Success      200  {object}  entity.Library
// @Failure      404  {object}  map[string]string
// @Router       /libraries/{id} [get]
func (h *LibraryHandler) GetLibrary(c *gin.Context) {
	library, err := h.libraryUseCase.GetLibrary(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, library)
}

// UpdateLibrary godoc
// @Summary      Update a library
// @Tags         libraries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string               true "Library ID"
// @Param        request body UpdateLibraryRequest true "Fields to change"
// @Success      200  {object}  entity.Library
// @Router       /libraries/{id} [put]
func (h *LibraryHandler) UpdateLibrary(c *gin.Context) {
	var req UpdateLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	library, err := h.libraryUseCase.UpdateLibrary(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), usecase.LibraryUpdate{
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		OpenTime:  req.OpenTime,
		CloseTime: req.CloseTime,
		IsActive:  req.IsActive,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, library)
}

// DeleteLibrary godoc
// @Summary      Deactivate a library
// @Tags         libraries
// @Security     BearerAuth
// @Param        id path string true "Library ID"
// @Success      204
// @Router       /libraries/{id} [delete]
func (h *LibraryHandler) DeleteLibrary(c *gin.Context) {
	if err := h.libraryUseCase.DeactivateLibrary(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkCreateSeats godoc
// @Summary      Create seats in bulk
// @Description  Creates prefix+n labels, skipping labels that already exist
// @Tags         seats
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string           true "Library ID"
// @Param        request body BulkSeatsRequest true "Seat range"
// @Success      201  {array}   entity.Seat
// @Router       /libraries/{id}/seats/bulk [post]
func (h *LibraryHandler) BulkCreateSeats(c *gin.Context) {
	var req BulkSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	seats, err := h.libraryUseCase.BulkCreateSeats(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), usecase.BulkSeatsInput{
		Prefix: req.Prefix,
		Start:  req.Start,
		Count:  req.Count,
		Zone:   req.Zone,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, seats)
}

// ListSeats godoc
// @Summary      List seats of a library
// @Tags         seats
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Library ID"
// @Success      200  {array}  entity.Seat
// @Router       /libraries/{id}/seats [get]
func (h *LibraryHandler) ListSeats(c *gin.Context) {
	seats, err := h.libraryUseCase.ListSeats(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

// UpdateSeat godoc
// @Summary      Change seat status or zone
// @Tags         seats
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string            true "Seat ID"
// @Param        request body UpdateSeatRequest true "Seat fields"
// @Success      200  {object}  entity.Seat
// @Router       /seats/{id} [patch]
func (h *LibraryHandler) UpdateSeat(c *gin.Context) {
	var req UpdateSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	seat, err := h.libraryUseCase.UpdateSeat(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Status, req.Zone)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, seat)
}

// Availability godoc
// @Summary      Seat availability for a period
// @Tags         seats
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string true "Library ID"
// @Param        start query string true "RFC3339 start"
// @Param        end   query string true "RFC3339 end"
// @Success      200  {array}  entity.SeatAvailability
// @Router       /libraries/{id}/availability [get]
func (h *LibraryHandler) Availability(c *gin.Context) {
	start, err := queryTime(c, "start")
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	end, err := queryTime(c, "end")
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	seats, err := h.libraryUseCase.Availability(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), start, end)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

// CreateFeePlan godoc
// @Summary      Create a fee plan
// @Description  Omit library_id for a plan valid in every library of the tenant
// @Tags         fee-plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateFeePlanRequest true "Fee plan"
// @Success      201  {object}  entity.FeePlan
// @Router       /fee-plans [post]
func (h *LibraryHandler) CreateFeePlan(c *gin.Context) {
	var req CreateFeePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	plan, err := h.libraryUseCase.CreateFeePlan(c.Request.Context(), middleware.ActorFrom(c), usecase.FeePlanInput{
		LibraryID:       req.LibraryID,
		Name:            req.Name,
		PlanType:        req.PlanType,
		Price:           req.Price,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// ListFeePlans godoc
// @Summary      List fee plans
// @Tags         fee-plans
// @Produce      json
// @Security     BearerAuth
// @Param        library_id       query string false "Plans usable in this library"
// @Param        include_inactive query bool   false "Include deactivated plans (staff only)"
// @Success      200  {array}  entity.FeePlan
// @Router       /fee-plans [get]
func (h *LibraryHandler) ListFeePlans(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	plans, err := h.libraryUseCase.ListFeePlans(c.Request.Context(), middleware.ActorFrom(c), c.Query("library_id"), includeInactive)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// UpdateFeePlan godoc
// @Summary      Update a fee plan
// @Tags         fee-plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string               true "Fee plan ID"
// @Param        request body UpdateFeePlanRequest true "Fields to change"
// @Success      200  {object}  entity.FeePlan
// @Router       /fee-plans/{id} [put]
func (h *LibraryHandler) UpdateFeePlan(c *gin.Context) {
	var req UpdateFeePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	plan, err := h.libraryUseCase.UpdateFeePlan(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), usecase.FeePlanUpdate{
		Name:            req.Name,
		Price:           req.Price,
		DiscountPercent: req.DiscountPercent,
		IsActive:        req.IsActive,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeleteFeePlan godoc
// @Summary      Deactivate a fee plan
// @Tags         fee-plans
// @Security     BearerAuth
// @Param        id path string true "Fee plan ID"
// @Success      204
// @Router       /fee-plans/{id} [delete]
func (h *LibraryHandler) DeleteFeePlan(c *gin.Context) {
	if err := h.libraryUseCase.DeactivateFeePlan(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// QuoteFeePlan godoc
// @Summary      Price a booking period
// @Tags         fee-plans
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string true "Fee plan ID"
// @Param        start query string true "RFC3339 start"
// @Param        units query int    true "Number of plan periods"
// @Success      200  {object}  usecase.QuoteResult
// @Router       /fee-plans/{id}/quote [get]
func (h *LibraryHandler) QuoteFeePlan(c *gin.Context) {
	start, err := queryTime(c, "start")
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	units, err := strconv.ParseInt(c.Query("units"), 10, 64)
	if err != nil {
		apperror.Respond(c, apperror.BadRequest("units must be an integer"))
		return
	}

	quote, err := h.libraryUseCase.Quote(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), start, units)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
