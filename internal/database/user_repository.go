package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketkini/booking-backend/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets the generated ID
func (r *UserRepository) Create(user *models.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	query := `
		INSERT INTO users (email, password_hash, full_name, phone, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return r.db.QueryRow(query,
		user.Email, user.PasswordHash, user.FullName, user.Phone,
		user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
}

// GetByID retrieves a user by ID, returning nil when not found
func (r *UserRepository) GetByID(id int) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, password_hash, full_name, phone, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := r.db.Get(&user, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, returning nil when not found
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, password_hash, full_name, phone, role, is_active, created_at, updated_at
		FROM users
		WHERE email = $1`

	err := r.db.Get(&user, query, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CountConfirmedBookings counts a user's confirmed and completed bookings.
// This is the input for loyalty tier calculation.
func (r *UserRepository) CountConfirmedBookings(userID int) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE user_id = $1 AND status IN ('CONFIRMED', 'COMPLETED')`

	if err := r.db.Get(&count, query, userID); err != nil {
		return 0, err
	}
	return count, nil
}

// List returns registered users, newest first
func (r *UserRepository) List(limit, offset int) ([]models.User, error) {
	var users []models.User
	query := `
		SELECT id, email, password_hash, full_name, phone, role, is_active, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	if err := r.db.Select(&users, query, limit, offset); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateProfile updates the mutable profile fields of a user
func (r *UserRepository) UpdateProfile(userID int, fullName string, phone *string) error {
	query := `
		UPDATE users
		SET full_name = $1, phone = $2, updated_at = $3
		WHERE id = $4`

	_, err := r.db.Exec(query, fullName, phone, time.Now(), userID)
	return err
}

// Deactivate marks a user inactive
func (r *UserRepository) Deactivate(userID int) error {
	query := `UPDATE users SET is_active = false, updated_at = $1 WHERE id = $2`
	_, err := r.db.Exec(query, time.Now(), userID)
	return err
}
