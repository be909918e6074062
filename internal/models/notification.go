package models

import "time"

// NotificationType categorizes what a notification is about
type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationBookingExpired   NotificationType = "BOOKING_EXPIRED"
	NotificationPaymentFailed    NotificationType = "PAYMENT_FAILED"
	NotificationRefundIssued     NotificationType = "REFUND_ISSUED"
	NotificationSystem           NotificationType = "SYSTEM"
)

// Notification is a persisted in-app message for a user
type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	BookingID *int             `json:"booking_id,omitempty" db:"booking_id"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// BookingConfirmedEvent is published to the queue when a payment completes
type BookingConfirmedEvent struct {
	BookingID  int     `json:"booking_id"`
	UserID     int     `json:"user_id"`
	UserEmail  string  `json:"user_email"`
	PNR        string  `json:"pnr"`
	Route      string  `json:"route"`
	TravelDate string  `json:"travel_date"`
	Seats      []int   `json:"seats"`
	Amount     float64 `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}
