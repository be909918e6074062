package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketkini/booking-backend/internal/models"
)

// ErrCouponExhausted is returned when a coupon's global usage limit is
// reached while reserving a use for a new payment.
var ErrCouponExhausted = fmt.Errorf("coupon usage limit reached")

// PaymentRepository handles payment database operations
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, booking_id, user_id, amount, discount_amount, final_amount,
	method, status, transaction_id, coupon_code, refund_amount,
	refund_txn_id, failure_reason, created_at, updated_at`

// Create inserts a new payment attempt. When the payment carries a coupon,
// the coupon's usage counter is reserved in the same transaction with a
// guarded increment, so two concurrent payments cannot both take the last
// use of a limited coupon.
func (r *PaymentRepository) Create(p *models.Payment) error {
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Reserve a coupon use if one is attached
	if p.CouponCode != nil {
		result, err := tx.Exec(`
			UPDATE coupons
			SET usage_count = usage_count + 1, updated_at = $1
			WHERE code = $2
			  AND (usage_limit IS NULL OR usage_count < usage_limit)`,
			time.Now(), *p.CouponCode)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrCouponExhausted
		}
	}

	// 2. Insert the payment row
	query := `
		INSERT INTO payments (
			booking_id, user_id, amount, discount_amount, final_amount,
			method, status, transaction_id, coupon_code, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	if err := tx.QueryRow(query,
		p.BookingID, p.UserID, p.Amount, p.DiscountAmount, p.FinalAmount,
		p.Method, p.Status, p.TransactionID, p.CouponCode, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a payment by ID, returning nil when not found
func (r *PaymentRepository) GetByID(id int) (*models.Payment, error) {
	var p models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	err := r.db.Get(&p, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByBookingID retrieves the latest payment for a booking, returning nil
// when the booking has none.
func (r *PaymentRepository) GetByBookingID(bookingID int) (*models.Payment, error) {
	var p models.Payment
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.Get(&p, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser retrieves a user's payments, newest first
func (r *PaymentRepository) ListByUser(userID int, limit, offset int) ([]models.Payment, error) {
	var payments []models.Payment
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.Select(&payments, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return payments, nil
}

// CompleteAndConfirm atomically marks a payment completed and its booking
// confirmed, recording the gateway transaction ID and the assigned PNR.
func (r *PaymentRepository) CompleteAndConfirm(paymentID, bookingID int, transactionID, pnr string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Move the payment to completed
	result, err := tx.Exec(`
		UPDATE payments
		SET status = 'completed', transaction_id = $1, updated_at = $2
		WHERE id = $3 AND status IN ('pending', 'processing')`,
		transactionID, time.Now(), paymentID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("payment %d is not in a completable state", paymentID)
	}

	// 2. Confirm the booking and stamp its PNR
	result, err = tx.Exec(`
		UPDATE bookings
		SET status = 'CONFIRMED', pnr = $1, expires_at = NULL, updated_at = $2
		WHERE id = $3 AND status = 'PENDING'`,
		pnr, time.Now(), bookingID)
	if err != nil {
		return err
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("booking %d is not PENDING", bookingID)
	}

	return tx.Commit()
}

// MarkFailed moves a payment to failed and releases its reserved coupon use
// in the same transaction.
func (r *PaymentRepository) MarkFailed(paymentID int, reason string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Fail the payment, keeping its coupon code for the release below
	var couponCode *string
	err = tx.QueryRow(`
		UPDATE payments
		SET status = 'failed', failure_reason = $1, updated_at = $2
		WHERE id = $3 AND status IN ('pending', 'processing')
		RETURNING coupon_code`,
		reason, time.Now(), paymentID).Scan(&couponCode)
	if err == sql.ErrNoRows {
		return fmt.Errorf("payment %d is not in a failable state", paymentID)
	}
	if err != nil {
		return err
	}

	// 2. Release the reserved coupon use
	if couponCode != nil {
		if _, err := tx.Exec(`
			UPDATE coupons
			SET usage_count = GREATEST(usage_count - 1, 0), updated_at = $1
			WHERE code = $2`,
			time.Now(), *couponCode); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteFailed removes failed payment rows for a booking so a retry can
// create a fresh attempt. The coupon use was already released when the
// payment was marked failed.
func (r *PaymentRepository) DeleteFailed(bookingID int) error {
	query := `DELETE FROM payments WHERE booking_id = $1 AND status = 'failed'`
	_, err := r.db.Exec(query, bookingID)
	return err
}

// MarkRefunded records a completed refund against a payment
func (r *PaymentRepository) MarkRefunded(paymentID int, refundAmount float64, refundTxnID string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'refunded', refund_amount = $1, refund_txn_id = $2, updated_at = $3
		WHERE id = $4 AND status = 'completed'`

	result, err := r.db.Exec(query, refundAmount, refundTxnID, time.Now(), paymentID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountCompletedByUserAndCoupon counts a user's completed payments that used
// the given coupon code. This backs the per-user coupon limit check.
func (r *PaymentRepository) CountCompletedByUserAndCoupon(userID int, couponCode string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM payments
		WHERE user_id = $1 AND coupon_code = $2 AND status = 'completed'`

	if err := r.db.Get(&count, query, userID, couponCode); err != nil {
		return 0, err
	}
	return count, nil
}
