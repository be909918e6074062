package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/middleware"
	"github.com/ticketkini/booking-backend/internal/models"
	"github.com/ticketkini/booking-backend/internal/services"
)

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	paymentService *services.PaymentService
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, logger: logger}
}

// Process handles POST /api/v1/payments
func (h *PaymentHandler) Process(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, err := h.paymentService.Process(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Status == models.PaymentStatusFailed {
		// The charge was declined; the cart stays available for retry
		status = http.StatusPaymentRequired
	}
	c.JSON(status, result)
}

// GetForBooking handles GET /api/v1/payments/booking/:booking_id
func (h *PaymentHandler) GetForBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	bookingID, err := strconv.Atoi(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	payment, err := h.paymentService.GetForBooking(userCtx.UserID, bookingID, userCtx.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// History handles GET /api/v1/payments
func (h *PaymentHandler) History(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := h.paymentService.History(userCtx.UserID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"count":    len(payments),
	})
}
