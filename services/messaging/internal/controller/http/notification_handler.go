package http

import (
	"net/http"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/jwt"
	"studyspot/pkg/logger"
	"studyspot/pkg/middleware"
	"studyspot/pkg/pagination"
	"studyspot/services/messaging/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

type NotificationHandler struct {
	notificationUseCase usecase.NotificationUseCase
	jwtService          *jwt.Service
	upgrader            websocket.Upgrader
	logger              *logger.Logger
}

// NewNotificationHandler accepts websocket upgrades from allowedOrigins, or
// from any origin when the list is empty.
func NewNotificationHandler(notificationUseCase usecase.NotificationUseCase, jwtService *jwt.Service, allowedOrigins []string, logger *logger.Logger) *NotificationHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		jwtService:          jwtService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		logger: logger,
	}
}

// GetNotifications godoc
// @Summary      Get user notifications
// @Description  Newest first, with the number of unread notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query int false "Page size (max 100)"
// @Param        offset query int false "Offset"
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	params := pagination.FromQuery(c)
	items, total, unread, err := h.notificationUseCase.List(c.Request.Context(), middleware.ActorFrom(c), params.Limit, params.Offset)
	if err != nil {
		apperror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"unread": unread,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// MarkRead godoc
// @Summary      Mark all notifications as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /notifications/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationUseCase.MarkRead(c.Request.Context(), middleware.ActorFrom(c)); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": 0})
}

// HandleWebSocket godoc
// @Summary      Stream notifications
// @Description  Browsers cannot set headers on websocket upgrades, so the JWT is passed as ?token=
// @Tags         notifications
// @Param        token query string true "JWT"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      401  {object}  map[string]string
// @Router       /notifications/ws [get]
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	claims, err := h.jwtService.ValidateToken(c.Query("token"))
	if err != nil {
		apperror.Respond(c, apperror.Unauthorized(apperror.CodeUnauthorized, "Invalid or expired token"))
		return
	}
	userID := claims.UserID

	stream, stop, err := h.notificationUseCase.Subscribe(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to subscribe user %s: %v", userID, err)
		apperror.Respond(c, apperror.Unavailable("notifications are unavailable"))
		return
	}
	defer stop()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket connected for user %s", userID)

	closed := make(chan struct{})
	go h.readLoop(conn, closed)
	h.writeLoop(conn, stream, closed)

	h.logger.Info("WebSocket disconnected for user %s", userID)
}

// readLoop drains client frames so pong and close frames are processed.
func (h *NotificationHandler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error: %v", err)
			}
			return
		}
	}
}

func (h *NotificationHandler) writeLoop(conn *websocket.Conn, stream <-chan string, closed <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case payload, ok := <-stream:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				h.logger.Warn("Failed to write WebSocket message: %v", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
