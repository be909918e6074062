package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
	"github.com/ticketkini/booking-backend/internal/queue"
	"github.com/ticketkini/booking-backend/pkg/gateway"
	"github.com/ticketkini/booking-backend/pkg/ticket"
)

// PaymentService orchestrates the charge flow: it locks the booking,
// reserves the coupon, charges the gateway and settles the outcome.
type PaymentService struct {
	bookingRepo   *database.BookingRepository
	paymentRepo   *database.PaymentRepository
	scheduleRepo  *database.ScheduleRepository
	userRepo      *database.UserRepository
	couponService *CouponService
	pricing       *PricingService
	seatService   *SeatService
	processor     gateway.Processor
	publisher     *queue.Publisher
	notifications *NotificationService
	expiryWindow  time.Duration
	logger        *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	bookingRepo *database.BookingRepository,
	paymentRepo *database.PaymentRepository,
	scheduleRepo *database.ScheduleRepository,
	userRepo *database.UserRepository,
	couponService *CouponService,
	pricing *PricingService,
	seatService *SeatService,
	processor gateway.Processor,
	publisher *queue.Publisher,
	notifications *NotificationService,
	expiryWindow time.Duration,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		bookingRepo:   bookingRepo,
		paymentRepo:   paymentRepo,
		scheduleRepo:  scheduleRepo,
		userRepo:      userRepo,
		couponService: couponService,
		pricing:       pricing,
		seatService:   seatService,
		processor:     processor,
		publisher:     publisher,
		notifications: notifications,
		expiryWindow:  expiryWindow,
		logger:        logger,
	}
}

// Process runs the full payment flow for a cart booking
func (s *PaymentService) Process(ctx context.Context, userID int, req *models.InitiatePaymentRequest) (*models.PaymentResult, error) {
	if !req.Method.IsValid() {
		return nil, ValidationError("unsupported payment method %s", req.Method)
	}

	// 1. Load the booking and verify ownership and state
	booking, err := s.bookingRepo.GetByID(req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, req.BookingID)
	}
	if booking.UserID != userID {
		return nil, fmt.Errorf("%w: booking %d", ErrForbidden, req.BookingID)
	}
	if booking.IsExpired(time.Now()) {
		// The deadline has passed; expire the row now instead of waiting
		// for the sweep, freeing its seats immediately.
		if _, expireErr := s.bookingRepo.Expire(booking.ID); expireErr != nil {
			s.logger.WithError(expireErr).WithField("booking_id", booking.ID).Error("Failed to expire overdue booking")
		} else {
			s.seatService.InvalidateAvailability(ctx, booking.ScheduleID, booking.TravelDate)
		}
		return nil, fmt.Errorf("%w: booking %d", ErrExpired, booking.ID)
	}
	if booking.Status != models.BookingStatusCart && booking.Status != models.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking %d is %s", ErrConflict, booking.ID, booking.Status)
	}

	// 2. Clear earlier failed attempts so this retry starts clean
	if err := s.paymentRepo.DeleteFailed(booking.ID); err != nil {
		return nil, err
	}

	// 3. Re-price the booking, applying coupon and loyalty discounts
	couponCode := req.CouponCode
	if couponCode == nil {
		couponCode = booking.CouponCode
	}
	total, discount, final, normalizedCode, err := s.price(booking, userID, couponCode)
	if err != nil {
		return nil, err
	}

	// 4. For a fresh cart, atomically re-validate seats and move CART to
	// PENDING. A retried PENDING booking already holds the seats.
	if booking.Status == models.BookingStatusCart {
		conflicting, err := s.bookingRepo.LockForPayment(booking.ID, total, discount, final, time.Now().Add(s.expiryWindow))
		if err != nil {
			return nil, err
		}
		if len(conflicting) > 0 {
			return nil, &SeatConflictError{Seats: conflicting}
		}
	}

	// 5. Record the payment attempt, reserving a coupon use. The booking
	// stays PENDING on failure so the seats remain held for a retry.
	payment := &models.Payment{
		BookingID:      booking.ID,
		UserID:         userID,
		Amount:         total,
		DiscountAmount: discount,
		FinalAmount:    final,
		Method:         req.Method,
		Status:         models.PaymentStatusPending,
		CouponCode:     normalizedCode,
	}
	if err := s.paymentRepo.Create(payment); err != nil {
		if errors.Is(err, database.ErrCouponExhausted) {
			return nil, ValidationError("coupon usage limit reached")
		}
		return nil, err
	}

	// 6. Charge the gateway
	reference := uuid.New().String()[:8]
	charge, err := s.processor.Charge(ctx, string(req.Method), final, reference, req.PaymentDetails)
	if err != nil {
		s.settleFailure(booking, payment, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if !charge.Success {
		s.settleFailure(booking, payment, charge.FailureReason)
		return &models.PaymentResult{
			PaymentID:     payment.ID,
			BookingID:     booking.ID,
			Status:        models.PaymentStatusFailed,
			Amount:        final,
			FailureReason: charge.FailureReason,
		}, nil
	}

	// 7. Settle success: payment completed, booking confirmed with a PNR
	pnr := ticket.GeneratePNR()
	if err := s.paymentRepo.CompleteAndConfirm(payment.ID, booking.ID, charge.TransactionID, pnr); err != nil {
		// The charge went through but settlement lost the race. Surface it
		// for manual reconciliation rather than double-charging on retry.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"payment_id":     payment.ID,
			"booking_id":     booking.ID,
			"transaction_id": charge.TransactionID,
		}).Error("Settlement failed after successful charge")
		return nil, fmt.Errorf("%w: settlement failed, contact support", ErrConflict)
	}

	s.seatService.InvalidateAvailability(ctx, booking.ScheduleID, booking.TravelDate)
	s.afterConfirmation(ctx, booking, final, pnr)

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": payment.ID,
		"method":     req.Method,
		"amount":     final,
		"pnr":        pnr,
	}).Info("Payment completed")

	return &models.PaymentResult{
		PaymentID:     payment.ID,
		BookingID:     booking.ID,
		Status:        models.PaymentStatusCompleted,
		Amount:        final,
		TransactionID: charge.TransactionID,
		PNR:           pnr,
	}, nil
}

// price recomputes the booking's totals with coupon and loyalty discounts
func (s *PaymentService) price(booking *models.Booking, userID int, couponCode *string) (total, discount, final float64, normalized *string, err error) {
	schedule, vehicle, err := s.scheduleRepo.GetWithVehicle(booking.ScheduleID)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	if schedule == nil || vehicle == nil {
		return 0, 0, 0, nil, fmt.Errorf("%w: schedule %d", ErrNotFound, booking.ScheduleID)
	}

	seatPrice := ResolveSeatPrice(schedule, vehicle, booking.SeatClass)
	total = seatPrice * float64(len(booking.Seats))

	if couponCode != nil && *couponCode != "" {
		coupon, err := s.couponService.Validate(*couponCode, userID, total)
		if err != nil {
			return 0, 0, 0, nil, err
		}
		discount = coupon.CalculateDiscount(total)
		normalized = &coupon.Code
	} else {
		// Loyalty tier applies only when no coupon is attached
		loyaltyDiscount, _, err := s.pricing.LoyaltyDiscount(userID, total)
		if err != nil {
			return 0, 0, 0, nil, err
		}
		discount = loyaltyDiscount
	}

	final = total - discount
	if final < 0 {
		final = 0
	}
	return total, discount, final, normalized, nil
}

// settleFailure records a failed charge. The booking stays PENDING with its
// seats held until it is retried, cancelled or expires.
func (s *PaymentService) settleFailure(booking *models.Booking, payment *models.Payment, reason string) {
	if err := s.paymentRepo.MarkFailed(payment.ID, reason); err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID).Error("Failed to mark payment failed")
	}
	s.notifications.Notify(booking.UserID, models.NotificationPaymentFailed,
		"Payment failed",
		fmt.Sprintf("Your payment for booking #%d failed: %s. Your seats are still held; you can retry.", booking.ID, reason),
		&booking.ID)
}

// afterConfirmation fans out the confirmation side effects
func (s *PaymentService) afterConfirmation(ctx context.Context, booking *models.Booking, amount float64, pnr string) {
	s.notifications.Notify(booking.UserID, models.NotificationBookingConfirmed,
		"Booking confirmed",
		fmt.Sprintf("Your booking is confirmed. PNR %s.", pnr),
		&booking.ID)

	route := ""
	if summary, err := s.scheduleRepo.GetRouteSummary(booking.ScheduleID); err == nil && summary != nil {
		route = summary.SourceName + " - " + summary.DestinationName
	}

	email := ""
	if user, err := s.userRepo.GetByID(booking.UserID); err == nil && user != nil {
		email = user.Email
	}

	event := models.BookingConfirmedEvent{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		UserEmail:  email,
		PNR:        pnr,
		Route:      route,
		TravelDate: booking.TravelDate.Format("2006-01-02"),
		Seats:      booking.Seats,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
	// Best effort: the booking is already confirmed either way
	_ = s.publisher.PublishBookingConfirmed(ctx, event)
}

// Refund pushes a refund through the gateway and records it. Used by the
// cancellation flow after the refund amount is computed.
func (s *PaymentService) Refund(ctx context.Context, payment *models.Payment, amount float64) (string, error) {
	if amount <= 0 {
		return "", nil
	}

	reference := uuid.New().String()[:8]
	result, err := s.processor.Refund(ctx, string(payment.Method), amount, reference)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if !result.Success {
		return "", fmt.Errorf("%w: %s", ErrGateway, result.FailureReason)
	}

	ok, err := s.paymentRepo.MarkRefunded(payment.ID, amount, result.TransactionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: payment %d not refundable", ErrConflict, payment.ID)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":    payment.ID,
		"refund_amount": amount,
		"refund_txn":    result.TransactionID,
	}).Info("Refund completed")
	return result.TransactionID, nil
}

// GetForBooking returns the latest payment for a booking owned by the user
func (s *PaymentService) GetForBooking(userID, bookingID int, isAdmin bool) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment for booking %d", ErrNotFound, bookingID)
	}
	if payment.UserID != userID && !isAdmin {
		return nil, fmt.Errorf("%w: booking %d", ErrForbidden, bookingID)
	}
	return payment, nil
}

// History lists a user's payments, newest first
func (s *PaymentService) History(userID, limit, offset int) ([]models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.paymentRepo.ListByUser(userID, limit, offset)
}
