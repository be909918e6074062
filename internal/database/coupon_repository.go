package database

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ticketkini/booking-backend/internal/models"
)

// CouponRepository handles coupon database operations
type CouponRepository struct {
	db *sqlx.DB
}

// NewCouponRepository creates a new CouponRepository
func NewCouponRepository(db *sqlx.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

const couponColumns = `
	id, code, type, value, min_order_value, max_discount, usage_limit,
	usage_count, per_user_limit, valid_from, valid_until, is_active,
	created_at, updated_at`

// GetByCode retrieves a coupon by code, returning nil when not found
func (r *CouponRepository) GetByCode(code string) (*models.Coupon, error) {
	var c models.Coupon
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	err := r.db.Get(&c, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new coupon and sets the generated ID
func (r *CouponRepository) Create(c *models.Coupon) error {
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()

	query := `
		INSERT INTO coupons (
			code, type, value, min_order_value, max_discount, usage_limit,
			usage_count, per_user_limit, valid_from, valid_until, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	return r.db.QueryRow(query,
		c.Code, c.Type, c.Value, c.MinOrderValue, c.MaxDiscount, c.UsageLimit,
		c.UsageCount, c.PerUserLimit, c.ValidFrom, c.ValidUntil, c.IsActive,
		c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
}

// List retrieves all coupons, newest first
func (r *CouponRepository) List() ([]models.Coupon, error) {
	var coupons []models.Coupon
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	if err := r.db.Select(&coupons, query); err != nil {
		return nil, err
	}
	return coupons, nil
}

// SetActive toggles a coupon's active flag. Returns false when not found.
func (r *CouponRepository) SetActive(code string, active bool) (bool, error) {
	query := `UPDATE coupons SET is_active = $1, updated_at = $2 WHERE code = $3`

	result, err := r.db.Exec(query, active, time.Now(), code)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
