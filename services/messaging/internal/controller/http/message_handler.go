package http

import (
	"net/http"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/pagination"
	"studyspot/services/messaging/internal/repo/persistent"
	"studyspot/services/messaging/internal/usecase"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageUseCase usecase.MessageUseCase
	logger         *logger.Logger
}

func NewMessageHandler(messageUseCase usecase.MessageUseCase, logger *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
		logger:         logger,
	}
}

// SendMessage godoc
// @Summary      Send a message to students or staff
// @Description  Credits are charged up front; undeliverable recipients are refunded
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body usecase.SendMessageInput true "Message"
// @Success      202  {object}  entity.Message
// @Failure      400  {object}  map[string]string
// @Failure      402  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /messages [post]
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req usecase.SendMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.BindError(c, err)
		return
	}

	msg, err := h.messageUseCase.SendMessage(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

// ListMessages godoc
// @Summary      List sent messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        channel query string false "in_app, sms, whatsapp or email"
// @Param        status  query string false "Message status"
// @Param        limit   query int    false "Page size (max 100)"
// @Param        offset  query int    false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	params := pagination.FromQuery(c)
	filter := persistent.MessageFilter{
		Channel: c.Query("channel"),
		Status:  c.Query("status"),
	}

	messages, total, err := h.messageUseCase.ListMessages(c.Request.Context(), middleware.ActorFrom(c), filter, params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(messages, total, params))
}

// GetMessage godoc
// @Summary      Get a message with its recipients
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Message ID"
// @Success      200  {object}  entity.Message
// @Failure      404  {object}  map[string]string
// @Router       /messages/{id} [get]
func (h *MessageHandler) GetMessage(c *gin.Context) {
	msg, err := h.messageUseCase.GetMessage(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}
