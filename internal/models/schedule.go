package models

import (
	"fmt"
	"time"
)

// Schedule is a recurring trip for a vehicle between two locations
type Schedule struct {
	ID            int       `json:"id" db:"id"`
	VehicleID     int       `json:"vehicle_id" db:"vehicle_id"`
	SourceID      int       `json:"source_id" db:"source_id"`
	DestinationID int       `json:"destination_id" db:"destination_id"`
	DepartureTime string    `json:"departure_time" db:"departure_time"`
	ArrivalTime   string    `json:"arrival_time" db:"arrival_time"`
	Duration      *string   `json:"duration,omitempty" db:"duration"`
	BasePrice     float64   `json:"base_price" db:"base_price"`
	Frequency     *string   `json:"frequency,omitempty" db:"frequency"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// DepartureAt combines a travel date with the schedule's departure clock time.
func (s *Schedule) DepartureAt(travelDate time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", s.DepartureTime)
	if err != nil {
		// fall back to seconds precision
		t, err = time.Parse("15:04:05", s.DepartureTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid departure time %q: %w", s.DepartureTime, err)
		}
	}
	return time.Date(
		travelDate.Year(), travelDate.Month(), travelDate.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, travelDate.Location(),
	), nil
}

// ScheduleSearchResult is a schedule joined with its vehicle and endpoints
type ScheduleSearchResult struct {
	Schedule
	VehicleName     string      `json:"vehicle_name" db:"vehicle_name"`
	VehicleNumber   string      `json:"vehicle_number" db:"vehicle_number"`
	VehicleType     VehicleType `json:"vehicle_type" db:"vehicle_type"`
	TotalSeats      int         `json:"total_seats" db:"total_seats"`
	ClassPrices     ClassPrices `json:"class_prices" db:"class_prices"`
	OperatorName    string      `json:"operator_name" db:"operator_name"`
	SourceName      string      `json:"source_name" db:"source_name"`
	DestinationName string      `json:"destination_name" db:"destination_name"`
	AvailableSeats  int         `json:"available_seats"`
}

// SearchRequest is the query for finding trips between two locations on a date
type SearchRequest struct {
	SourceID      int    `form:"source_id" binding:"required"`
	DestinationID int    `form:"destination_id" binding:"required"`
	TravelDate    string `form:"travel_date" binding:"required"`
	VehicleType   string `form:"vehicle_type,omitempty"`
	SortBy        string `form:"sort_by,omitempty"`
}

// CreateScheduleRequest is the admin payload for adding a schedule
type CreateScheduleRequest struct {
	VehicleID     int     `json:"vehicle_id" binding:"required"`
	SourceID      int     `json:"source_id" binding:"required"`
	DestinationID int     `json:"destination_id" binding:"required"`
	DepartureTime string  `json:"departure_time" binding:"required"`
	ArrivalTime   string  `json:"arrival_time" binding:"required"`
	BasePrice     float64 `json:"base_price" binding:"required,gt=0"`
	Frequency     *string `json:"frequency,omitempty"`
}

// SeatAvailability is the per-class seat occupancy view for a schedule and date
type SeatAvailability struct {
	ScheduleID    int                      `json:"schedule_id"`
	TravelDate    string                   `json:"travel_date"`
	TotalSeats    int                      `json:"total_seats"`
	OccupiedSeats []int                    `json:"occupied_seats"`
	Classes       []SeatClassAvailability  `json:"classes"`
}

// SeatClassAvailability describes one seat class's availability and price
type SeatClassAvailability struct {
	Class          string  `json:"class"`
	Price          float64 `json:"price"`
	Seats          []int   `json:"seats"`
	AvailableSeats []int   `json:"available_seats"`
	AvailableCount int     `json:"available_count"`
}
