package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/cache"
	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
)

// travelDateLayout is the wire format for travel dates
const travelDateLayout = "2006-01-02"

// SeatService answers seat availability queries for a schedule and date
type SeatService struct {
	scheduleRepo *database.ScheduleRepository
	bookingRepo  *database.BookingRepository
	cache        *cache.AvailabilityCache
	logger       *logrus.Logger
}

// NewSeatService creates a new SeatService
func NewSeatService(
	scheduleRepo *database.ScheduleRepository,
	bookingRepo *database.BookingRepository,
	availabilityCache *cache.AvailabilityCache,
	logger *logrus.Logger,
) *SeatService {
	return &SeatService{
		scheduleRepo: scheduleRepo,
		bookingRepo:  bookingRepo,
		cache:        availabilityCache,
		logger:       logger,
	}
}

// ParseTravelDate parses a wire-format travel date and rejects past dates
func ParseTravelDate(raw string) (time.Time, error) {
	date, err := time.Parse(travelDateLayout, raw)
	if err != nil {
		return time.Time{}, ValidationError("invalid travel date %q, expected YYYY-MM-DD", raw)
	}
	// Compare calendar dates: the parsed date is midnight UTC, so build
	// today from the local calendar date in the same location.
	year, month, day := time.Now().Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return time.Time{}, ValidationError("travel date %s is in the past", raw)
	}
	return date, nil
}

// GetAvailability returns the per-class availability view for a schedule on
// a travel date, served from cache when fresh.
func (s *SeatService) GetAvailability(ctx context.Context, scheduleID int, travelDate string) (*models.SeatAvailability, error) {
	date, err := ParseTravelDate(travelDate)
	if err != nil {
		return nil, err
	}

	if cached := s.cache.Get(ctx, scheduleID, travelDate); cached != nil {
		return cached, nil
	}

	// 1. Load the schedule and its vehicle layout
	schedule, vehicle, err := s.scheduleRepo.GetWithVehicle(scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, fmt.Errorf("%w: schedule %d", ErrNotFound, scheduleID)
	}
	if vehicle == nil {
		return nil, fmt.Errorf("%w: vehicle for schedule %d", ErrNotFound, scheduleID)
	}

	// 2. Collect seats occupied by active bookings
	occupied, err := s.bookingRepo.GetOccupiedSeats(scheduleID, date)
	if err != nil {
		return nil, err
	}
	occupiedSet := make(map[int]bool, len(occupied))
	for _, seat := range occupied {
		occupiedSet[seat] = true
	}
	sort.Ints(occupied)

	// 3. Build the per-class view
	availability := &models.SeatAvailability{
		ScheduleID:    scheduleID,
		TravelDate:    travelDate,
		TotalSeats:    vehicle.TotalSeats,
		OccupiedSeats: occupied,
	}

	classNames := make([]string, 0, len(vehicle.SeatMap.Classes))
	for class := range vehicle.SeatMap.Classes {
		classNames = append(classNames, class)
	}
	sort.Strings(classNames)

	for _, class := range classNames {
		seats := vehicle.SeatMap.Classes[class]
		available := make([]int, 0, len(seats))
		for _, seat := range seats {
			if !occupiedSet[seat] {
				available = append(available, seat)
			}
		}
		availability.Classes = append(availability.Classes, models.SeatClassAvailability{
			Class:          class,
			Price:          ResolveSeatPrice(schedule, vehicle, class),
			Seats:          seats,
			AvailableSeats: available,
			AvailableCount: len(available),
		})
	}

	s.cache.Set(ctx, availability)
	return availability, nil
}

// ValidateSeatSelection checks that every requested seat belongs to the
// class's layout and none of them is currently held.
func (s *SeatService) ValidateSeatSelection(ctx context.Context, scheduleID int, date time.Time, class string, seats []int) (*models.Schedule, *models.Vehicle, error) {
	schedule, vehicle, err := s.scheduleRepo.GetWithVehicle(scheduleID)
	if err != nil {
		return nil, nil, err
	}
	if schedule == nil {
		return nil, nil, fmt.Errorf("%w: schedule %d", ErrNotFound, scheduleID)
	}
	if !schedule.IsActive {
		return nil, nil, ValidationError("schedule %d is not active", scheduleID)
	}
	if vehicle == nil {
		return nil, nil, fmt.Errorf("%w: vehicle for schedule %d", ErrNotFound, scheduleID)
	}

	classSeats := vehicle.SeatsForClass(class)
	if len(classSeats) == 0 {
		return nil, nil, ValidationError("class %s is not offered on this vehicle", class)
	}
	inClass := make(map[int]bool, len(classSeats))
	for _, seat := range classSeats {
		inClass[seat] = true
	}
	for _, seat := range seats {
		if !inClass[seat] {
			return nil, nil, ValidationError("seat %d does not belong to class %s", seat, class)
		}
	}

	occupied, err := s.bookingRepo.GetOccupiedSeats(scheduleID, date)
	if err != nil {
		return nil, nil, err
	}
	occupiedSet := make(map[int]bool, len(occupied))
	for _, seat := range occupied {
		occupiedSet[seat] = true
	}

	var conflicting []int
	for _, seat := range seats {
		if occupiedSet[seat] {
			conflicting = append(conflicting, seat)
		}
	}
	if len(conflicting) > 0 {
		return nil, nil, &SeatConflictError{Seats: conflicting}
	}

	return schedule, vehicle, nil
}

// InvalidateAvailability drops the cached view after seats change hands
func (s *SeatService) InvalidateAvailability(ctx context.Context, scheduleID int, date time.Time) {
	s.cache.Invalidate(ctx, scheduleID, date.Format(travelDateLayout))
}
