package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
)

// CouponService validates coupon codes and computes their discounts
type CouponService struct {
	couponRepo  *database.CouponRepository
	paymentRepo *database.PaymentRepository
	logger      *logrus.Logger
}

// NewCouponService creates a new CouponService
func NewCouponService(couponRepo *database.CouponRepository, paymentRepo *database.PaymentRepository, logger *logrus.Logger) *CouponService {
	return &CouponService{
		couponRepo:  couponRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// Validate checks a coupon against an order and returns it when usable.
// Well-known default codes are seeded on first lookup. The checks run in a
// fixed order so the caller gets the most specific failure reason.
func (s *CouponService) Validate(code string, userID int, orderAmount float64) (*models.Coupon, error) {
	code = models.NormalizeCouponCode(code)
	if code == "" {
		return nil, ValidationError("coupon code is required")
	}

	// 1. Look up the coupon, seeding well-known defaults on first use
	coupon, err := s.couponRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		if seed := models.DefaultCouponByCode(code); seed != nil {
			if err := s.couponRepo.Create(seed); err != nil {
				return nil, err
			}
			s.logger.WithField("code", code).Info("Seeded default coupon")
			coupon = seed
		} else {
			return nil, fmt.Errorf("%w: coupon %s", ErrNotFound, code)
		}
	}

	// 2. Active flag
	if !coupon.IsActive {
		return nil, ValidationError("coupon %s is not active", code)
	}

	// 3. Validity window
	if !coupon.IsWithinWindow(time.Now()) {
		return nil, fmt.Errorf("%w: coupon %s validity window", ErrExpired, code)
	}

	// 4. Global usage limit
	if !coupon.HasGlobalUsesLeft() {
		return nil, ValidationError("coupon %s usage limit reached", code)
	}

	// 5. Minimum order value
	if orderAmount < coupon.MinOrderValue {
		return nil, ValidationError("order amount %.2f below coupon minimum %.2f", orderAmount, coupon.MinOrderValue)
	}

	// 6. Per-user limit, counted over completed payments
	if coupon.PerUserLimit != nil {
		used, err := s.paymentRepo.CountCompletedByUserAndCoupon(userID, code)
		if err != nil {
			return nil, err
		}
		if used >= *coupon.PerUserLimit {
			return nil, ValidationError("coupon %s already used the maximum number of times", code)
		}
	}

	return coupon, nil
}

// Quote validates a coupon and returns the discount it would apply. An
// invalid coupon produces a quote with the failure reason rather than an
// error, so the cart UI can surface it inline.
func (s *CouponService) Quote(code string, userID int, orderAmount float64) (*models.CouponQuote, error) {
	coupon, err := s.Validate(code, userID, orderAmount)
	if err != nil {
		if isClientCouponError(err) {
			return &models.CouponQuote{
				Code:        models.NormalizeCouponCode(code),
				Valid:       false,
				FinalAmount: orderAmount,
				Reason:      err.Error(),
			}, nil
		}
		return nil, err
	}

	discount := coupon.CalculateDiscount(orderAmount)
	return &models.CouponQuote{
		Code:           coupon.Code,
		Valid:          true,
		DiscountAmount: discount,
		FinalAmount:    orderAmount - discount,
	}, nil
}

// isClientCouponError reports whether the validation failure is the user's
// problem rather than a system fault.
func isClientCouponError(err error) bool {
	for _, sentinel := range []error{ErrNotFound, ErrValidation, ErrExpired} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
