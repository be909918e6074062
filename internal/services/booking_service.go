package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
)

// BookingService manages the cart and booking lifecycle
type BookingService struct {
	bookingRepo    *database.BookingRepository
	scheduleRepo   *database.ScheduleRepository
	paymentRepo    *database.PaymentRepository
	seatService    *SeatService
	couponService  *CouponService
	pricing        *PricingService
	paymentService *PaymentService
	notifications  *NotificationService
	expiryWindow   time.Duration
	cancelCutoff   time.Duration
	logger         *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo *database.BookingRepository,
	scheduleRepo *database.ScheduleRepository,
	paymentRepo *database.PaymentRepository,
	seatService *SeatService,
	couponService *CouponService,
	pricing *PricingService,
	paymentService *PaymentService,
	notifications *NotificationService,
	expiryWindow time.Duration,
	cancelCutoff time.Duration,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:    bookingRepo,
		scheduleRepo:   scheduleRepo,
		paymentRepo:    paymentRepo,
		seatService:    seatService,
		couponService:  couponService,
		pricing:        pricing,
		paymentService: paymentService,
		notifications:  notifications,
		expiryWindow:   expiryWindow,
		cancelCutoff:   cancelCutoff,
		logger:         logger,
	}
}

// cartSnapshot is a validated, priced seat selection ready to persist
type cartSnapshot struct {
	date       time.Time
	seats      models.SeatList
	seatClass  string
	total      float64
	discount   float64
	couponCode *string
}

// buildSnapshot validates the request against the layout and current
// holders, then prices it with coupon or loyalty discount.
func (s *BookingService) buildSnapshot(ctx context.Context, userID int, req *models.CreateBookingRequest) (*cartSnapshot, error) {
	date, err := ParseTravelDate(req.TravelDate)
	if err != nil {
		return nil, err
	}
	if len(req.Seats) != len(req.Passengers) {
		return nil, ValidationError("got %d seats but %d passengers", len(req.Seats), len(req.Passengers))
	}
	seats := models.SeatList(req.Seats).Dedupe()
	if len(seats) != len(req.Seats) {
		return nil, ValidationError("duplicate seats in selection")
	}
	seatClass := strings.ToUpper(strings.TrimSpace(req.SeatClass))

	schedule, vehicle, err := s.seatService.ValidateSeatSelection(ctx, req.ScheduleID, date, seatClass, seats)
	if err != nil {
		return nil, err
	}

	seatPrice := ResolveSeatPrice(schedule, vehicle, seatClass)
	total := seatPrice * float64(len(seats))

	var discount float64
	var couponCode *string
	if req.CouponCode != nil && *req.CouponCode != "" {
		coupon, err := s.couponService.Validate(*req.CouponCode, userID, total)
		if err != nil {
			return nil, err
		}
		discount = coupon.CalculateDiscount(total)
		couponCode = &coupon.Code
	} else {
		loyaltyDiscount, _, err := s.pricing.LoyaltyDiscount(userID, total)
		if err != nil {
			return nil, err
		}
		discount = loyaltyDiscount
	}

	return &cartSnapshot{
		date:       date,
		seats:      seats,
		seatClass:  seatClass,
		total:      total,
		discount:   discount,
		couponCode: couponCode,
	}, nil
}

// CreateCart validates the seat selection and creates a CART booking with a
// priced snapshot. Seats are not held until payment starts.
func (s *BookingService) CreateCart(ctx context.Context, userID int, req *models.CreateBookingRequest) (*models.Booking, error) {
	snapshot, err := s.buildSnapshot(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.expiryWindow)
	booking := &models.Booking{
		UserID:         userID,
		ScheduleID:     req.ScheduleID,
		TravelDate:     snapshot.date,
		Seats:          snapshot.seats,
		SeatClass:      snapshot.seatClass,
		Passengers:     req.Passengers,
		Status:         models.BookingStatusCart,
		TotalAmount:    snapshot.total,
		DiscountAmount: snapshot.discount,
		FinalAmount:    snapshot.total - snapshot.discount,
		CouponCode:     snapshot.couponCode,
		ExpiresAt:      &expiresAt,
	}
	if err := s.bookingRepo.Create(booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"user_id":     userID,
		"schedule_id": req.ScheduleID,
		"seats":       len(snapshot.seats),
	}).Info("Cart created")
	return booking, nil
}

// UpdateCart replaces a cart's seat selection and re-prices it
func (s *BookingService) UpdateCart(ctx context.Context, userID, bookingID int, req *models.CreateBookingRequest) (*models.Booking, error) {
	booking, err := s.getOwned(userID, bookingID, false)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusCart {
		return nil, fmt.Errorf("%w: booking %d is %s", ErrConflict, bookingID, booking.Status)
	}
	if booking.IsExpired(time.Now()) {
		return nil, fmt.Errorf("%w: booking %d", ErrExpired, bookingID)
	}
	if req.ScheduleID != booking.ScheduleID {
		return nil, ValidationError("cannot move a cart to a different schedule")
	}

	snapshot, err := s.buildSnapshot(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.expiryWindow)
	booking.TravelDate = snapshot.date
	booking.Seats = snapshot.seats
	booking.SeatClass = snapshot.seatClass
	booking.Passengers = req.Passengers
	booking.TotalAmount = snapshot.total
	booking.DiscountAmount = snapshot.discount
	booking.FinalAmount = snapshot.total - snapshot.discount
	booking.CouponCode = snapshot.couponCode
	booking.ExpiresAt = &expiresAt

	ok, err := s.bookingRepo.UpdateCart(booking)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %d left the cart state", ErrConflict, bookingID)
	}
	return booking, nil
}

// Get returns a booking visible to the user, with route context attached
func (s *BookingService) Get(userID, bookingID int, isAdmin bool) (*models.BookingResponse, error) {
	booking, err := s.getOwned(userID, bookingID, isAdmin)
	if err != nil {
		return nil, err
	}

	response := &models.BookingResponse{Booking: *booking}
	if summary, err := s.scheduleRepo.GetRouteSummary(booking.ScheduleID); err == nil && summary != nil {
		if departure, derr := s.departureAt(booking); derr == nil {
			summary.DepartureAt = departure
		}
		response.Route = summary
	}
	return response, nil
}

// ListForUser returns a user's bookings, newest first, with route context.
// A non-empty status narrows the page to that lifecycle state.
func (s *BookingService) ListForUser(userID int, status string, limit, offset int) ([]models.BookingResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var statusFilter *models.BookingStatus
	if status != "" {
		st := models.BookingStatus(strings.ToUpper(strings.TrimSpace(status)))
		if !st.IsValid() {
			return nil, ValidationError("unknown booking status %s", status)
		}
		statusFilter = &st
	}

	bookings, err := s.bookingRepo.ListByUser(userID, statusFilter, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]models.BookingResponse, 0, len(bookings))
	summaries := make(map[int]*models.RouteSummary)
	for _, booking := range bookings {
		summary, seen := summaries[booking.ScheduleID]
		if !seen {
			summary, _ = s.scheduleRepo.GetRouteSummary(booking.ScheduleID)
			summaries[booking.ScheduleID] = summary
		}
		responses = append(responses, models.BookingResponse{Booking: booking, Route: summary})
	}
	return responses, nil
}

// QuoteCancellation previews the refund for cancelling a booking now
func (s *BookingService) QuoteCancellation(userID, bookingID int, isAdmin bool) (*models.CancellationQuote, error) {
	booking, err := s.getOwned(userID, bookingID, isAdmin)
	if err != nil {
		return nil, err
	}

	quote := &models.CancellationQuote{BookingID: booking.ID}

	switch booking.Status {
	case models.BookingStatusCart, models.BookingStatusPending:
		// Nothing paid yet, cancellation is free
		quote.Cancellable = true
		return quote, nil
	case models.BookingStatusConfirmed:
	default:
		quote.Reason = fmt.Sprintf("booking is %s", booking.Status)
		return quote, nil
	}

	departure, err := s.departureAt(booking)
	if err != nil {
		return nil, err
	}
	hours := departure.Sub(time.Now()).Hours()
	quote.HoursToDeparture = hours

	// Regular users cannot cancel inside the pre-departure cutoff
	if !isAdmin && hours < s.cancelCutoff.Hours() {
		quote.Reason = fmt.Sprintf("cancellation closes %.0f hours before departure", s.cancelCutoff.Hours())
		return quote, nil
	}

	payment, err := s.paymentRepo.GetByBookingID(booking.ID)
	if err != nil {
		return nil, err
	}
	if payment != nil && payment.Status == models.PaymentStatusCompleted {
		quote.PaidAmount = payment.FinalAmount
		quote.RefundPercent, quote.RefundAmount = CalculateRefund(payment.FinalAmount, hours)
	}
	quote.Cancellable = true
	return quote, nil
}

// Cancel cancels a booking, refunding per the time-based tiers when paid.
// The caller's reason is stamped on the row alongside the cancellation time.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID int, reason string, isAdmin bool) (*models.CancellationQuote, error) {
	quote, err := s.QuoteCancellation(userID, bookingID, isAdmin)
	if err != nil {
		return nil, err
	}
	if !quote.Cancellable {
		return nil, fmt.Errorf("%w: %s", ErrConflict, quote.Reason)
	}

	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil || booking == nil {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}

	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}

	// 1. Flip the booking to CANCELLED from its cancellable state
	from := []models.BookingStatus{
		models.BookingStatusCart,
		models.BookingStatusPending,
		models.BookingStatusConfirmed,
	}
	ok, err := s.bookingRepo.MarkCancelled(bookingID, reasonPtr, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %d changed state", ErrConflict, bookingID)
	}

	// 2. Release the cached availability now that seats are free
	s.seatService.InvalidateAvailability(ctx, booking.ScheduleID, booking.TravelDate)

	// 3. Issue the refund when something was paid
	if quote.RefundAmount > 0 {
		payment, err := s.paymentRepo.GetByBookingID(bookingID)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			if _, err := s.paymentService.Refund(ctx, payment, quote.RefundAmount); err != nil {
				s.logger.WithError(err).WithField("booking_id", bookingID).Error("Refund failed after cancellation")
				s.notifications.Notify(booking.UserID, models.NotificationSystem,
					"Refund delayed",
					fmt.Sprintf("Booking #%d was cancelled but the refund of %.2f needs manual processing.", bookingID, quote.RefundAmount),
					&bookingID)
				return quote, nil
			}
			s.notifications.Notify(booking.UserID, models.NotificationRefundIssued,
				"Refund issued",
				fmt.Sprintf("A refund of %.2f for booking #%d is on its way.", quote.RefundAmount, bookingID),
				&bookingID)
		}
	}

	s.notifications.Notify(booking.UserID, models.NotificationBookingCancelled,
		"Booking cancelled",
		fmt.Sprintf("Booking #%d has been cancelled.", bookingID),
		&bookingID)

	s.logger.WithFields(logrus.Fields{
		"booking_id":    bookingID,
		"user_id":       booking.UserID,
		"refund_amount": quote.RefundAmount,
		"by_admin":      isAdmin && booking.UserID != userID,
	}).Info("Booking cancelled")
	return quote, nil
}

// getOwned loads a booking and enforces ownership unless the caller is admin
func (s *BookingService) getOwned(userID, bookingID int, isAdmin bool) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	if booking.UserID != userID && !isAdmin {
		return nil, fmt.Errorf("%w: booking %d", ErrForbidden, bookingID)
	}
	return booking, nil
}

// departureAt resolves the booking's absolute departure time
func (s *BookingService) departureAt(booking *models.Booking) (time.Time, error) {
	schedule, err := s.scheduleRepo.GetByID(booking.ScheduleID)
	if err != nil {
		return time.Time{}, err
	}
	if schedule == nil {
		return time.Time{}, fmt.Errorf("%w: schedule %d", ErrNotFound, booking.ScheduleID)
	}
	return schedule.DepartureAt(booking.TravelDate)
}
