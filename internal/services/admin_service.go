package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
)

// AdminService manages the catalog and operational views
type AdminService struct {
	locationRepo *database.LocationRepository
	vehicleRepo  *database.VehicleRepository
	scheduleRepo *database.ScheduleRepository
	bookingRepo  *database.BookingRepository
	couponRepo   *database.CouponRepository
	userRepo     *database.UserRepository
	logger       *logrus.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(
	locationRepo *database.LocationRepository,
	vehicleRepo *database.VehicleRepository,
	scheduleRepo *database.ScheduleRepository,
	bookingRepo *database.BookingRepository,
	couponRepo *database.CouponRepository,
	userRepo *database.UserRepository,
	logger *logrus.Logger,
) *AdminService {
	return &AdminService{
		locationRepo: locationRepo,
		vehicleRepo:  vehicleRepo,
		scheduleRepo: scheduleRepo,
		bookingRepo:  bookingRepo,
		couponRepo:   couponRepo,
		userRepo:     userRepo,
		logger:       logger,
	}
}

// CreateLocation adds a location to the catalog
func (s *AdminService) CreateLocation(req *models.CreateLocationRequest) (*models.Location, error) {
	loc := &models.Location{
		Name:     req.Name,
		City:     req.City,
		Code:     req.Code,
		IsActive: true,
	}
	if err := s.locationRepo.Create(loc); err != nil {
		return nil, err
	}
	s.logger.WithField("location_id", loc.ID).Info("Location created")
	return loc, nil
}

// CreateVehicle adds a vehicle after checking its seat map consistency
func (s *AdminService) CreateVehicle(req *models.CreateVehicleRequest) (*models.Vehicle, error) {
	if !req.Type.IsValid() {
		return nil, ValidationError("unknown vehicle type %s", req.Type)
	}
	if err := validateSeatMap(req.SeatMap, req.TotalSeats); err != nil {
		return nil, err
	}

	operator, err := s.vehicleRepo.GetOperatorByID(req.OperatorID)
	if err != nil {
		return nil, err
	}
	if operator == nil {
		return nil, fmt.Errorf("%w: operator %d", ErrNotFound, req.OperatorID)
	}

	vehicle := &models.Vehicle{
		OperatorID:  req.OperatorID,
		Name:        req.Name,
		Number:      req.Number,
		Type:        req.Type,
		TotalSeats:  req.TotalSeats,
		SeatMap:     req.SeatMap,
		ClassPrices: req.ClassPrices,
		Facilities:  req.Facilities,
		IsActive:    true,
	}
	if err := s.vehicleRepo.Create(vehicle); err != nil {
		return nil, err
	}
	s.logger.WithField("vehicle_id", vehicle.ID).Info("Vehicle created")
	return vehicle, nil
}

// validateSeatMap checks every class seat is unique and within the total
func validateSeatMap(seatMap models.SeatMap, totalSeats int) error {
	if len(seatMap.Classes) == 0 {
		return ValidationError("seat map must define at least one class")
	}
	seen := make(map[int]string)
	count := 0
	for class, seats := range seatMap.Classes {
		if len(seats) == 0 {
			return ValidationError("class %s has no seats", class)
		}
		for _, seat := range seats {
			if seat < 1 || seat > totalSeats {
				return ValidationError("seat %d in class %s outside 1..%d", seat, class, totalSeats)
			}
			if other, dup := seen[seat]; dup {
				return ValidationError("seat %d assigned to both %s and %s", seat, other, class)
			}
			seen[seat] = class
			count++
		}
	}
	if count != totalSeats {
		return ValidationError("seat map covers %d seats, vehicle has %d", count, totalSeats)
	}
	return nil
}

// CreateSchedule adds a schedule for an existing vehicle and route
func (s *AdminService) CreateSchedule(req *models.CreateScheduleRequest) (*models.Schedule, error) {
	if req.SourceID == req.DestinationID {
		return nil, ValidationError("source and destination must differ")
	}

	vehicle, err := s.vehicleRepo.GetByID(req.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle %d", ErrNotFound, req.VehicleID)
	}
	for _, id := range []int{req.SourceID, req.DestinationID} {
		loc, err := s.locationRepo.GetByID(id)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, fmt.Errorf("%w: location %d", ErrNotFound, id)
		}
	}

	schedule := &models.Schedule{
		VehicleID:     req.VehicleID,
		SourceID:      req.SourceID,
		DestinationID: req.DestinationID,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		BasePrice:     req.BasePrice,
		Frequency:     req.Frequency,
		IsActive:      true,
	}
	if err := s.scheduleRepo.Create(schedule); err != nil {
		return nil, err
	}
	s.logger.WithField("schedule_id", schedule.ID).Info("Schedule created")
	return schedule, nil
}

// DeactivateSchedule removes a schedule from sale
func (s *AdminService) DeactivateSchedule(id int) error {
	if err := s.scheduleRepo.Deactivate(id); err != nil {
		return fmt.Errorf("%w: schedule %d", ErrNotFound, id)
	}
	return nil
}

// ListBookings returns bookings in the given statuses for operational review
func (s *AdminService) ListBookings(statuses []models.BookingStatus, limit, offset int) ([]models.Booking, error) {
	if len(statuses) == 0 {
		statuses = []models.BookingStatus{
			models.BookingStatusCart,
			models.BookingStatusPending,
			models.BookingStatusConfirmed,
			models.BookingStatusCancelled,
			models.BookingStatusExpired,
			models.BookingStatusCompleted,
		}
	}
	for _, status := range statuses {
		if !status.IsValid() {
			return nil, ValidationError("unknown booking status %s", status)
		}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.bookingRepo.ListByStatus(statuses, limit, offset)
}

// ListUsers returns registered accounts for operational review
func (s *AdminService) ListUsers(limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.userRepo.List(limit, offset)
}

// DeactivateUser disables an account. Deactivated users cannot log in or
// refresh tokens; their bookings are untouched.
func (s *AdminService) DeactivateUser(id int) error {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if user.IsAdmin() {
		return fmt.Errorf("%w: cannot deactivate an admin account", ErrForbidden)
	}
	if err := s.userRepo.Deactivate(id); err != nil {
		return err
	}
	s.logger.WithField("user_id", id).Info("User deactivated")
	return nil
}

// CreateCoupon adds a coupon to the catalog
func (s *AdminService) CreateCoupon(coupon *models.Coupon) error {
	coupon.Code = models.NormalizeCouponCode(coupon.Code)
	if coupon.Code == "" {
		return ValidationError("coupon code is required")
	}
	if coupon.Type != models.CouponTypePercent && coupon.Type != models.CouponTypeFixed {
		return ValidationError("coupon type must be PERCENT or FIXED")
	}
	if coupon.Value <= 0 {
		return ValidationError("coupon value must be positive")
	}
	if coupon.Type == models.CouponTypePercent && coupon.Value > 100 {
		return ValidationError("percentage coupon cannot exceed 100")
	}

	existing, err := s.couponRepo.GetByCode(coupon.Code)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: coupon %s exists", ErrConflict, coupon.Code)
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		return err
	}
	s.logger.WithField("code", coupon.Code).Info("Coupon created")
	return nil
}

// ListCoupons returns every coupon
func (s *AdminService) ListCoupons() ([]models.Coupon, error) {
	return s.couponRepo.List()
}

// SetCouponActive toggles a coupon on or off
func (s *AdminService) SetCouponActive(code string, active bool) error {
	ok, err := s.couponRepo.SetActive(models.NormalizeCouponCode(code), active)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: coupon %s", ErrNotFound, code)
	}
	return nil
}
