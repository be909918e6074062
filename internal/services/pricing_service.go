package services

import (
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
)

// economyClass is priced from the schedule's base price, overriding whatever
// the vehicle's class price table says for it.
const economyClass = "ECONOMY"

// minimumRefund is the floor below which refunds are zeroed
const minimumRefund = 50.0

// PricingService computes fares, loyalty discounts and refund amounts
type PricingService struct {
	userRepo *database.UserRepository
	logger   *logrus.Logger
}

// NewPricingService creates a new PricingService
func NewPricingService(userRepo *database.UserRepository, logger *logrus.Logger) *PricingService {
	return &PricingService{userRepo: userRepo, logger: logger}
}

// ResolveSeatPrice returns the per-seat price for a class on a schedule.
// ECONOMY always uses the schedule's base price; other classes come from the
// vehicle's class price table and fall back to the base price when missing.
// Class names compare case-insensitively.
func ResolveSeatPrice(schedule *models.Schedule, vehicle *models.Vehicle, class string) float64 {
	if strings.EqualFold(class, economyClass) {
		return schedule.BasePrice
	}
	if vehicle != nil {
		for name, price := range vehicle.ClassPrices {
			if strings.EqualFold(name, class) {
				return price
			}
		}
	}
	return schedule.BasePrice
}

// RefundPercent returns the refund percentage for the hours remaining before
// departure at cancellation time.
func RefundPercent(hoursToDeparture float64) int {
	switch {
	case hoursToDeparture >= 48:
		return 90
	case hoursToDeparture >= 24:
		return 75
	case hoursToDeparture >= 12:
		return 50
	case hoursToDeparture >= 4:
		return 25
	default:
		return 0
	}
}

// CalculateRefund applies the refund percentage to the paid amount. Amounts
// below the minimum refund floor are zeroed.
func CalculateRefund(paidAmount float64, hoursToDeparture float64) (percent int, refund float64) {
	percent = RefundPercent(hoursToDeparture)
	refund = math.Round(paidAmount*float64(percent)) / 100
	if refund < minimumRefund {
		refund = 0
	}
	return percent, refund
}

// LoyaltyStatus resolves a user's loyalty tier from their confirmed and
// completed booking history.
func (s *PricingService) LoyaltyStatus(userID int) (*models.LoyaltyStatus, error) {
	count, err := s.userRepo.CountConfirmedBookings(userID)
	if err != nil {
		return nil, err
	}
	tier := models.TierForBookingCount(count)
	return &models.LoyaltyStatus{
		Tier:            tier,
		DiscountPercent: tier.DiscountPercent(),
		BookingCount:    count,
	}, nil
}

// LoyaltyDiscount returns the tier discount amount for an order total
func (s *PricingService) LoyaltyDiscount(userID int, orderAmount float64) (float64, models.LoyaltyTier, error) {
	status, err := s.LoyaltyStatus(userID)
	if err != nil {
		return 0, models.TierNone, err
	}
	discount := math.Round(orderAmount*status.DiscountPercent) / 100
	return discount, status.Tier, nil
}

// HoursToDeparture computes the fractional hours between now and the
// schedule's departure on the travel date.
func HoursToDeparture(schedule *models.Schedule, travelDate time.Time, now time.Time) (float64, error) {
	departure, err := schedule.DepartureAt(travelDate)
	if err != nil {
		return 0, err
	}
	return departure.Sub(now).Hours(), nil
}
