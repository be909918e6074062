package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketkini/booking-backend/internal/models"
)

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification and sets the generated ID
func (r *NotificationRepository) Create(n *models.Notification) error {
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO notifications (user_id, type, title, message, booking_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return r.db.QueryRow(query,
		n.UserID, n.Type, n.Title, n.Message, n.BookingID, n.IsRead, n.CreatedAt,
	).Scan(&n.ID)
}

// ListByUser retrieves a user's notifications, newest first
func (r *NotificationRepository) ListByUser(userID int, limit, offset int) ([]models.Notification, error) {
	var notifications []models.Notification
	query := `
		SELECT id, user_id, type, title, message, booking_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.Select(&notifications, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountUnread counts a user's unread notifications
func (r *NotificationRepository) CountUnread(userID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`

	if err := r.db.Get(&count, query, userID); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead marks one of a user's notifications as read. Returns false when
// the notification does not exist or belongs to someone else.
func (r *NotificationRepository) MarkRead(id, userID int) (bool, error) {
	query := `UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(query, id, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkAllRead marks all of a user's notifications as read
func (r *NotificationRepository) MarkAllRead(userID int) error {
	query := `UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`
	_, err := r.db.Exec(query, userID)
	return err
}

// GetByID retrieves a notification by ID, returning nil when not found
func (r *NotificationRepository) GetByID(id int) (*models.Notification, error) {
	var n models.Notification
	query := `
		SELECT id, user_id, type, title, message, booking_id, is_read, created_at
		FROM notifications
		WHERE id = $1`

	err := r.db.Get(&n, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}
