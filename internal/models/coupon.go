package models

import (
	"math"
	"strings"
	"time"
)

// CouponType is how a coupon's discount is computed
type CouponType string

const (
	CouponTypePercent CouponType = "PERCENT"
	CouponTypeFixed   CouponType = "FIXED"
)

// Coupon represents a discount code
type Coupon struct {
	ID            int        `json:"id" db:"id"`
	Code          string     `json:"code" db:"code"`
	Type          CouponType `json:"type" db:"type"`
	Value         float64    `json:"value" db:"value"`
	MinOrderValue float64    `json:"min_order_value" db:"min_order_value"`
	MaxDiscount   *float64   `json:"max_discount,omitempty" db:"max_discount"`
	UsageLimit    *int       `json:"usage_limit,omitempty" db:"usage_limit"`
	UsageCount    int        `json:"usage_count" db:"usage_count"`
	PerUserLimit  *int       `json:"per_user_limit,omitempty" db:"per_user_limit"`
	ValidFrom     *time.Time `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until,omitempty" db:"valid_until"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// NormalizeCouponCode upper-cases and trims a user-supplied coupon code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsWithinWindow reports whether now falls inside the coupon's validity window.
func (c *Coupon) IsWithinWindow(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// HasGlobalUsesLeft reports whether the global usage limit allows another use.
func (c *Coupon) HasGlobalUsesLeft() bool {
	return c.UsageLimit == nil || c.UsageCount < *c.UsageLimit
}

// CalculateDiscount computes the discount for an order amount, applying the
// max discount cap for percentage coupons and never exceeding the order amount.
func (c *Coupon) CalculateDiscount(orderAmount float64) float64 {
	var discount float64
	switch c.Type {
	case CouponTypePercent:
		discount = orderAmount * c.Value / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	case CouponTypeFixed:
		discount = c.Value
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	return math.Round(discount*100) / 100
}

// DefaultCoupons returns the seed coupons created when a known code is first
// looked up and missing from the store.
func DefaultCoupons() []Coupon {
	cap200 := 200.0
	cap500 := 500.0
	return []Coupon{
		{
			Code:          "WELCOME10",
			Type:          CouponTypePercent,
			Value:         10,
			MinOrderValue: 500,
			MaxDiscount:   &cap200,
			IsActive:      true,
		},
		{
			Code:          "SUMMER25",
			Type:          CouponTypePercent,
			Value:         25,
			MinOrderValue: 1000,
			MaxDiscount:   &cap500,
			IsActive:      true,
		},
		{
			Code:          "FIXED100",
			Type:          CouponTypeFixed,
			Value:         100,
			MinOrderValue: 1000,
			IsActive:      true,
		},
	}
}

// DefaultCouponByCode returns the seed definition for a known default code.
func DefaultCouponByCode(code string) *Coupon {
	for _, c := range DefaultCoupons() {
		if c.Code == code {
			coupon := c
			return &coupon
		}
	}
	return nil
}

// ApplyCouponRequest is the payload for validating a coupon against a cart
type ApplyCouponRequest struct {
	Code        string  `json:"code" binding:"required"`
	OrderAmount float64 `json:"order_amount" binding:"required,gt=0"`
}

// CouponQuote is the result of validating a coupon
type CouponQuote struct {
	Code           string  `json:"code"`
	Valid          bool    `json:"valid"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
	Reason         string  `json:"reason,omitempty"`
}
