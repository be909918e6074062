package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
)

// ExpiryService runs the background sweep that moves stale CART and PENDING
// bookings to EXPIRED, releasing their seats.
type ExpiryService struct {
	cron          *cron.Cron
	bookingRepo   *database.BookingRepository
	seatService   *SeatService
	notifications *NotificationService
	interval      time.Duration
	logger        *logrus.Logger
}

// NewExpiryService creates a new ExpiryService
func NewExpiryService(
	bookingRepo *database.BookingRepository,
	seatService *SeatService,
	notifications *NotificationService,
	interval time.Duration,
	logger *logrus.Logger,
) *ExpiryService {
	return &ExpiryService{
		cron:          cron.New(cron.WithSeconds()),
		bookingRepo:   bookingRepo,
		seatService:   seatService,
		notifications: notifications,
		interval:      interval,
		logger:        logger,
	}
}

// Start schedules the sweep and starts the scheduler
func (s *ExpiryService) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds < 1 {
		seconds = 60
	}

	// Cron format: second minute hour day month weekday
	spec := fmt.Sprintf("@every %ds", seconds)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("interval", s.interval.String()).Info("Expiry sweep scheduled")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *ExpiryService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Expiry sweep stopped")
}

// RunNow triggers a sweep immediately. Admin endpoints use this.
func (s *ExpiryService) RunNow() {
	s.sweep()
}

// sweep expires stale bookings and notifies their owners
func (s *ExpiryService) sweep() {
	start := time.Now()

	expired, err := s.bookingRepo.ExpireStale(start)
	if err != nil {
		s.logger.WithError(err).Error("Expiry sweep failed")
		return
	}
	if len(expired) == 0 {
		return
	}

	ctx := context.Background()
	for _, booking := range expired {
		s.seatService.InvalidateAvailability(ctx, booking.ScheduleID, booking.TravelDate)
		s.notifications.Notify(booking.UserID, models.NotificationBookingExpired,
			"Booking expired",
			fmt.Sprintf("Booking #%d expired before payment and its seats were released.", booking.ID),
			&booking.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"expired":  len(expired),
		"duration": time.Since(start).String(),
	}).Info("Expiry sweep completed")
}
