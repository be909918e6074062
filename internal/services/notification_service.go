package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
	"github.com/ticketkini/booking-backend/internal/queue"
	ws "github.com/ticketkini/booking-backend/internal/websocket"
	"github.com/ticketkini/booking-backend/pkg/mailer"
)

// NotificationService persists notifications and fans them out to the
// user's side channels: WebSocket push immediately, email via the queue
// consumer for confirmations.
type NotificationService struct {
	notificationRepo *database.NotificationRepository
	userRepo         *database.UserRepository
	hub              *ws.Hub
	mailer           *mailer.Mailer
	logger           *logrus.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notificationRepo *database.NotificationRepository,
	userRepo *database.UserRepository,
	hub *ws.Hub,
	mail *mailer.Mailer,
	logger *logrus.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		hub:              hub,
		mailer:           mail,
		logger:           logger,
	}
}

// Notify persists a notification and pushes it over WebSocket. Side channel
// failures are logged, never surfaced to the triggering flow.
func (s *NotificationService) Notify(userID int, nType models.NotificationType, title, message string, bookingID *int) {
	notification := &models.Notification{
		UserID:    userID,
		Type:      nType,
		Title:     title,
		Message:   message,
		BookingID: bookingID,
	}
	if err := s.notificationRepo.Create(notification); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"type":    nType,
		}).Error("Failed to persist notification")
		return
	}

	s.hub.SendToUser(userID, "notification", notification)
}

// ListForUser returns a user's notifications with the unread count
func (s *NotificationService) ListForUser(userID, limit, offset int) ([]models.Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	notifications, err := s.notificationRepo.ListByUser(userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.notificationRepo.CountUnread(userID)
	if err != nil {
		return nil, 0, err
	}
	return notifications, unread, nil
}

// MarkRead marks one notification as read for its owner
func (s *NotificationService) MarkRead(notificationID, userID int) error {
	ok, err := s.notificationRepo.MarkRead(notificationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	return nil
}

// MarkAllRead marks every unread notification as read
func (s *NotificationService) MarkAllRead(userID int) error {
	return s.notificationRepo.MarkAllRead(userID)
}

// HandleBookingConfirmed delivers the confirmation email for a queued event.
// Runs on the queue consumer, decoupled from the payment request.
func (s *NotificationService) HandleBookingConfirmed(ctx context.Context, msg queue.BookingConfirmedMessage) error {
	seats := make([]string, len(msg.Seats))
	for i, seat := range msg.Seats {
		seats[i] = fmt.Sprintf("%d", seat)
	}

	body := fmt.Sprintf(
		"Your booking is confirmed.\n\nPNR: %s\nRoute: %s\nTravel date: %s\nSeats: %s\nAmount paid: %.2f\n\nPlease carry a valid photo ID when boarding.",
		msg.PNR, msg.Route, msg.TravelDate, strings.Join(seats, ", "), msg.Amount,
	)

	if err := s.mailer.Send(msg.UserEmail, "Booking confirmed: "+msg.PNR, body); err != nil {
		return fmt.Errorf("confirmation email for booking %d: %w", msg.BookingID, err)
	}
	return nil
}
