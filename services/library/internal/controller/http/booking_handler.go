package http

import (
	"net/http"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/pagination"
	"studyspot/services/library/internal/entity"
	"studyspot/services/library/internal/usecase"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingUseCase usecase.BookingUseCase
	logger         *logger.Logger
}

func NewBookingHandler(bookingUseCase usecase.BookingUseCase, logger *logger.Logger) *BookingHandler {
	return &BookingHandler{
		bookingUseCase: bookingUseCase,
		logger:         logger,
	}
}

type CreateBookingRequest struct {
	SeatID    string    `json:"seat_id" binding:"required"`
	FeePlanID string    `json:"fee_plan_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	Units     int64     `json:"units" binding:"required,min=1,max=1000"`
	StudentID string    `json:"student_id"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// CreateBooking godoc
// @Summary      Book a seat
// @Description  Students book for themselves; staff pass student_id
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateBookingRequest true "Booking"
// @Success      201  {object}  entity.Booking
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	booking, err := h.bookingUseCase.CreateBooking(c.Request.Context(), middleware.ActorFrom(c), usecase.CreateBookingInput{
		SeatID:    req.SeatID,
		FeePlanID: req.FeePlanID,
		StudentID: req.StudentID,
		StartTime: req.StartTime,
		Units:     req.Units,
	})
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// ListBookings godoc
// @Summary      List bookings
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        status     query string false "Booking status"
// @Param        library_id query string false "Library"
// @Param        student_id query string false "Student (staff only)"
// @Param        limit      query int    false "Page size (max 100)"
// @Param        offset     query int    false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	params := pagination.FromQuery(c)
	filter := entity.BookingFilter{
		Status:    c.Query("status"),
		LibraryID: c.Query("library_id"),
		StudentID: c.Query("student_id"),
	}

	bookings, total, err := h.bookingUseCase.ListBookings(c.Request.Context(), middleware.ActorFrom(c), filter, params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(bookings, total, params))
}

// GetBooking godoc
// @Summary      Get a booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Booking ID"
// @Success      200  {object}  entity.Booking
// @Failure      404  {object}  map[string]string
// @Router       /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingUseCase.GetBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type transitionFunc func(*gin.Context) (*entity.Booking, error)

func (h *BookingHandler) respondTransition(c *gin.Context, fn transitionFunc) {
	booking, err := fn(c)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ConfirmBooking godoc
// @Summary      Confirm a pending booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Booking ID"
// @Success      200  {object}  entity.Booking
// @Failure      409  {object}  map[string]string
// @Router       /bookings/{id}/confirm [post]
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	h.respondTransition(c, func(c *gin.Context) (*entity.Booking, error) {
		return h.bookingUseCase.Confirm(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	})
}

// CheckIn godoc
// @Summary      Check in to a confirmed booking
// @Description  Allowed from 15 minutes before the start time
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Booking ID"
// @Success      200  {object}  entity.Booking
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /bookings/{id}/check-in [post]
func (h *BookingHandler) CheckIn(c *gin.Context) {
	h.respondTransition(c, func(c *gin.Context) (*entity.Booking, error) {
		return h.bookingUseCase.CheckIn(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	})
}

// CheckOut godoc
// @Summary      Check out and complete a booking
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Booking ID"
// @Success      200  {object}  entity.Booking
// @Failure      409  {object}  map[string]string
// @Router       /bookings/{id}/check-out [post]
func (h *BookingHandler) CheckOut(c *gin.Context) {
	h.respondTransition(c, func(c *gin.Context) (*entity.Booking, error) {
		return h.bookingUseCase.CheckOut(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	})
}

// CancelBooking godoc
// @Summary      Cancel a booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string               true  "Booking ID"
// @Param        request body CancelBookingRequest false "Reason"
// @Success      200  {object}  entity.Booking
// @Failure      409  {object}  map[string]string
// @Router       /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperror.BindError(c, err)
			return
		}
	}

	h.respondTransition(c, func(c *gin.Context) (*entity.Booking, error) {
		return h.bookingUseCase.Cancel(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	})
}
