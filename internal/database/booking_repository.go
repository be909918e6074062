package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketkini/booking-backend/internal/models"
)

// BookingRepository handles booking database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, user_id, schedule_id, travel_date, seats, seat_class, passengers,
	status, total_amount, discount_amount, final_amount, coupon_code,
	pnr, expires_at, cancelled_at, cancellation_reason, created_at, updated_at`

// ============================================================================
// BOOKING CRUD OPERATIONS
// ============================================================================

// Create inserts a new booking and sets the generated ID
func (r *BookingRepository) Create(b *models.Booking) error {
	b.CreatedAt = time.Now()
	b.UpdatedAt = time.Now()

	query := `
		INSERT INTO bookings (
			user_id, schedule_id, travel_date, seats, seat_class, passengers,
			status, total_amount, discount_amount, final_amount, coupon_code,
			pnr, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		RETURNING id`

	return r.db.QueryRow(query,
		b.UserID, b.ScheduleID, b.TravelDate, b.Seats, b.SeatClass, b.Passengers,
		b.Status, b.TotalAmount, b.DiscountAmount, b.FinalAmount, b.CouponCode,
		b.PNR, b.ExpiresAt, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
}

// GetByID retrieves a booking by ID, returning nil when not found
func (r *BookingRepository) GetByID(id int) (*models.Booking, error) {
	var b models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := r.db.Get(&b, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByPNR retrieves a booking by its PNR, returning nil when not found
func (r *BookingRepository) GetByPNR(pnr string) (*models.Booking, error) {
	var b models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE pnr = $1`

	err := r.db.Get(&b, query, pnr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByUser retrieves a user's bookings, newest first, optionally narrowed
// to a single status.
func (r *BookingRepository) ListByUser(userID int, status *models.BookingStatus, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1`
	args := []interface{}{userID}

	if status != nil {
		query += ` AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, *status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	if err := r.db.Select(&bookings, query, args...); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListByStatus retrieves bookings in the given statuses, newest first.
// Used by admin listings.
func (r *BookingRepository) ListByStatus(statuses []models.BookingStatus, limit, offset int) ([]models.Booking, error) {
	query, args, err := sqlx.In(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status IN (?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, statuses, limit, offset)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var bookings []models.Booking
	if err := r.db.Select(&bookings, query, args...); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ============================================================================
// SEAT OCCUPANCY
// ============================================================================

// GetOccupiedSeats returns the union of seats held by PENDING and CONFIRMED
// bookings for a schedule on a travel date. The (schedule_id, travel_date)
// pair is the canonical availability key.
func (r *BookingRepository) GetOccupiedSeats(scheduleID int, travelDate time.Time) ([]int, error) {
	var seatLists []models.SeatList
	query := `
		SELECT seats FROM bookings
		WHERE schedule_id = $1
		  AND travel_date = $2
		  AND status IN ('PENDING', 'CONFIRMED')`

	rows, err := r.db.Query(query, scheduleID, travelDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seats models.SeatList
		if err := rows.Scan(&seats); err != nil {
			return nil, err
		}
		seatLists = append(seatLists, seats)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	var occupied []int
	for _, list := range seatLists {
		for _, seat := range list {
			if !seen[seat] {
				seen[seat] = true
				occupied = append(occupied, seat)
			}
		}
	}
	return occupied, nil
}

// ============================================================================
// STATUS TRANSITIONS
// ============================================================================

// LockForPayment atomically re-validates a CART booking and moves it to
// PENDING inside one transaction. It re-checks seat availability against
// concurrent holders and refreshes the pricing columns before flipping the
// status. Returns the seats that are no longer free when the re-check fails.
func (r *BookingRepository) LockForPayment(bookingID int, total, discount, final float64, expiresAt time.Time) (conflicting []int, err error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 1. Load and lock the booking row
	var b models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	if err := tx.Get(&b, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("booking %d not found", bookingID)
		}
		return nil, err
	}
	if b.Status != models.BookingStatusCart {
		return nil, fmt.Errorf("booking %d is %s, expected CART", bookingID, b.Status)
	}

	// 2. Re-check the requested seats against current holders
	occupiedQuery := `
		SELECT seats FROM bookings
		WHERE schedule_id = $1
		  AND travel_date = $2
		  AND status IN ('PENDING', 'CONFIRMED')
		  AND id <> $3`

	rows, err := tx.Query(occupiedQuery, b.ScheduleID, b.TravelDate, b.ID)
	if err != nil {
		return nil, err
	}
	occupied := make(map[int]bool)
	for rows.Next() {
		var seats models.SeatList
		if err := rows.Scan(&seats); err != nil {
			rows.Close()
			return nil, err
		}
		for _, seat := range seats {
			occupied[seat] = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, seat := range b.Seats {
		if occupied[seat] {
			conflicting = append(conflicting, seat)
		}
	}
	if len(conflicting) > 0 {
		return conflicting, nil
	}

	// 3. Refresh pricing and flip CART to PENDING with a fresh expiry
	updateQuery := `
		UPDATE bookings
		SET status = 'PENDING', total_amount = $1, discount_amount = $2,
		    final_amount = $3, expires_at = $4, updated_at = $5
		WHERE id = $6 AND status = 'CART'`

	result, err := tx.Exec(updateQuery, total, discount, final, expiresAt, time.Now(), b.ID)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("booking %d changed status during lock", b.ID)
	}

	return nil, tx.Commit()
}

// MarkConfirmed flips a PENDING booking to CONFIRMED and records its PNR.
// Returns false when the booking was not PENDING.
func (r *BookingRepository) MarkConfirmed(bookingID int, pnr string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'CONFIRMED', pnr = $1, expires_at = NULL, updated_at = $2
		WHERE id = $3 AND status = 'PENDING'`

	result, err := r.db.Exec(query, pnr, time.Now(), bookingID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkCancelled flips a booking to CANCELLED from one of the given statuses,
// stamping the cancellation time and the caller's reason. Returns false when
// the booking was not in any of them.
func (r *BookingRepository) MarkCancelled(bookingID int, reason *string, from []models.BookingStatus) (bool, error) {
	now := time.Now()
	query, args, err := sqlx.In(`
		UPDATE bookings
		SET status = 'CANCELLED', cancelled_at = ?, cancellation_reason = ?, updated_at = ?
		WHERE id = ? AND status IN (?)`, now, reason, now, bookingID, from)
	if err != nil {
		return false, err
	}
	query = r.db.Rebind(query)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkCompleted flips a CONFIRMED booking to COMPLETED after travel.
func (r *BookingRepository) MarkCompleted(bookingID int) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'COMPLETED', updated_at = $1
		WHERE id = $2 AND status = 'CONFIRMED'`

	result, err := r.db.Exec(query, time.Now(), bookingID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ============================================================================
// EXPIRY SWEEP
// ============================================================================

// expiryReason is stamped on bookings that timed out before payment settled.
const expiryReason = "Auto-expired due to payment timeout"

// Expire moves a single overdue CART or PENDING booking to EXPIRED. Used
// when a payment attempt finds the booking already past its deadline.
func (r *BookingRepository) Expire(bookingID int) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'EXPIRED', cancelled_at = $1, cancellation_reason = $2, updated_at = $1
		WHERE id = $3 AND status IN ('CART', 'PENDING')`

	result, err := r.db.Exec(query, time.Now(), expiryReason, bookingID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpireStale moves CART and PENDING bookings past their deadline to EXPIRED
// and returns them so the sweep can notify their owners. Expiring the row
// releases its seats for the availability queries above.
func (r *BookingRepository) ExpireStale(now time.Time) ([]models.Booking, error) {
	var expired []models.Booking
	query := `
		UPDATE bookings
		SET status = 'EXPIRED', cancelled_at = $1, cancellation_reason = $2, updated_at = $1
		WHERE status IN ('CART', 'PENDING')
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
		RETURNING ` + bookingColumns

	rows, err := r.db.Queryx(query, now, expiryReason)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b models.Booking
		if err := rows.StructScan(&b); err != nil {
			return nil, err
		}
		expired = append(expired, b)
	}
	return expired, rows.Err()
}

// UpdateCart replaces the seats, passengers, pricing and coupon of a CART
// booking. Returns false when the booking is no longer a cart.
func (r *BookingRepository) UpdateCart(b *models.Booking) (bool, error) {
	b.UpdatedAt = time.Now()

	query := `
		UPDATE bookings
		SET seats = $1, seat_class = $2, passengers = $3,
		    total_amount = $4, discount_amount = $5, final_amount = $6,
		    coupon_code = $7, expires_at = $8, updated_at = $9
		WHERE id = $10 AND status = 'CART'`

	result, err := r.db.Exec(query,
		b.Seats, b.SeatClass, b.Passengers,
		b.TotalAmount, b.DiscountAmount, b.FinalAmount,
		b.CouponCode, b.ExpiresAt, b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
