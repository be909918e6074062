package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/middleware"
	"github.com/ticketkini/booking-backend/internal/services"
	ws "github.com/ticketkini/booking-backend/internal/websocket"
	"github.com/ticketkini/booking-backend/pkg/jwt"
)

// NotificationHandler handles notification endpoints and the WebSocket feed
type NotificationHandler struct {
	notificationService *services.NotificationService
	hub                 *ws.Hub
	jwtService          *jwt.Service
	upgrader            websocket.Upgrader
	logger              *logrus.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(
	notificationService *services.NotificationService,
	hub *ws.Hub,
	jwtService *jwt.Service,
	logger *logrus.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		hub:                 hub,
		jwtService:          jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS for the HTTP API is enforced by middleware; browsers do
			// not send preflights for WebSocket upgrades.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notifications, unread, err := h.notificationService.ListForUser(userCtx.UserID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	notificationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	if err := h.notificationService.MarkRead(notificationID, userCtx.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	if err := h.notificationService.MarkAllRead(userCtx.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Broadcast handles POST /api/v1/admin/announcements. The announcement goes
// to every connected client; no per-user record is written.
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req struct {
		Title   string `json:"title" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	h.hub.Broadcast("announcement", gin.H{
		"title":   req.Title,
		"message": req.Message,
	})

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"delivered": h.hub.ConnectedUsers(),
	})
}

// Stream handles GET /api/v1/notifications/ws?token=<access token>
// Browsers cannot set headers on WebSocket handshakes, so the access token
// rides in a query parameter.
func (h *NotificationHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "token query parameter is required"})
		return
	}

	claims, err := h.jwtService.ValidateAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.hub.Register(claims.UserID, conn)
}
