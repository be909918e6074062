package services

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
)

// SearchService finds trips between two locations on a date
type SearchService struct {
	scheduleRepo *database.ScheduleRepository
	locationRepo *database.LocationRepository
	bookingRepo  *database.BookingRepository
	logger       *logrus.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(
	scheduleRepo *database.ScheduleRepository,
	locationRepo *database.LocationRepository,
	bookingRepo *database.BookingRepository,
	logger *logrus.Logger,
) *SearchService {
	return &SearchService{
		scheduleRepo: scheduleRepo,
		locationRepo: locationRepo,
		bookingRepo:  bookingRepo,
		logger:       logger,
	}
}

// Search returns schedules between two locations on a travel date with
// per-trip seat availability counts.
func (s *SearchService) Search(ctx context.Context, req *models.SearchRequest) ([]models.ScheduleSearchResult, error) {
	date, err := ParseTravelDate(req.TravelDate)
	if err != nil {
		return nil, err
	}
	if req.SourceID == req.DestinationID {
		return nil, ValidationError("source and destination must differ")
	}
	if req.VehicleType != "" && !models.VehicleType(req.VehicleType).IsValid() {
		return nil, ValidationError("unknown vehicle type %s", req.VehicleType)
	}

	results, err := s.scheduleRepo.Search(req.SourceID, req.DestinationID, req.VehicleType)
	if err != nil {
		return nil, err
	}

	// Attach availability counts per trip
	for i := range results {
		occupied, err := s.bookingRepo.GetOccupiedSeats(results[i].ID, date)
		if err != nil {
			return nil, err
		}
		results[i].AvailableSeats = results[i].TotalSeats - len(occupied)
		if results[i].AvailableSeats < 0 {
			results[i].AvailableSeats = 0
		}
	}

	sortResults(results, req.SortBy)
	return results, nil
}

// sortResults orders results by the requested key. Departure time order
// comes from the query itself.
func sortResults(results []models.ScheduleSearchResult, sortBy string) {
	switch sortBy {
	case "price":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].BasePrice < results[j].BasePrice
		})
	case "seats":
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].AvailableSeats > results[j].AvailableSeats
		})
	}
}

// Locations lists active locations, optionally filtered by a name prefix
func (s *SearchService) Locations(prefix string) ([]models.Location, error) {
	if prefix != "" {
		return s.locationRepo.SearchByName(prefix)
	}
	return s.locationRepo.ListActive()
}
