package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/services"
)

// SeatHandler handles seat availability endpoints
type SeatHandler struct {
	seatService *services.SeatService
	logger      *logrus.Logger
}

// NewSeatHandler creates a new SeatHandler
func NewSeatHandler(seatService *services.SeatService, logger *logrus.Logger) *SeatHandler {
	return &SeatHandler{seatService: seatService, logger: logger}
}

// Availability handles GET /api/v1/schedules/:id/seats?travel_date=YYYY-MM-DD
func (h *SeatHandler) Availability(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	travelDate := c.Query("travel_date")
	if travelDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "travel_date is required"})
		return
	}

	availability, err := h.seatService.GetAvailability(c.Request.Context(), scheduleID, travelDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}

// Check handles GET /api/v1/schedules/:id/seats/check?seats=1,2&seat_class=ECONOMY&travel_date=YYYY-MM-DD
func (h *SeatHandler) Check(c *gin.Context) {
	scheduleID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	date, err := services.ParseTravelDate(c.Query("travel_date"))
	if err != nil {
		respondError(c, err)
		return
	}

	seats, err := parseSeatList(c.Query("seats"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seats parameter"})
		return
	}
	seatClass := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("seat_class", "ECONOMY")))

	_, _, err = h.seatService.ValidateSeatSelection(c.Request.Context(), scheduleID, date, seatClass, seats)
	if err != nil {
		var conflict *services.SeatConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusOK, gin.H{
				"available":         false,
				"conflicting_seats": conflict.Seats,
				"message":           conflict.Error(),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": true, "seats": seats})
}

func parseSeatList(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty seat list")
	}
	parts := strings.Split(raw, ",")
	seats := make([]int, 0, len(parts))
	for _, part := range parts {
		seat, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, nil
}
