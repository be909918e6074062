package models

import (
	"strings"
	"time"
)

// VehicleType is the transport mode of a vehicle
type VehicleType string

const (
	VehicleTypeBus   VehicleType = "BUS"
	VehicleTypeTrain VehicleType = "TRAIN"
	VehicleTypePlane VehicleType = "PLANE"
)

var validVehicleTypes = map[VehicleType]bool{
	VehicleTypeBus:   true,
	VehicleTypeTrain: true,
	VehicleTypePlane: true,
}

// IsValid reports whether the type is a supported transport mode.
func (t VehicleType) IsValid() bool {
	return validVehicleTypes[t]
}

// Vehicle is a bus, train or plane with a seat layout and class pricing
type Vehicle struct {
	ID          int         `json:"id" db:"id"`
	OperatorID  int         `json:"operator_id" db:"operator_id"`
	Name        string      `json:"name" db:"name"`
	Number      string      `json:"number" db:"number"`
	Type        VehicleType `json:"type" db:"type"`
	TotalSeats  int         `json:"total_seats" db:"total_seats"`
	SeatMap     SeatMap     `json:"seat_map" db:"seat_map"`
	ClassPrices ClassPrices `json:"class_prices" db:"class_prices"`
	Facilities  *string     `json:"facilities,omitempty" db:"facilities"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// SeatsForClass returns the seat numbers assigned to the given class.
// Class names compare case-insensitively.
func (v *Vehicle) SeatsForClass(class string) []int {
	for name, seats := range v.SeatMap.Classes {
		if strings.EqualFold(name, class) {
			return seats
		}
	}
	return nil
}

// HasSeatInClass reports whether the seat number belongs to the given class.
func (v *Vehicle) HasSeatInClass(class string, seat int) bool {
	for _, n := range v.SeatsForClass(class) {
		if n == seat {
			return true
		}
	}
	return false
}

// Operator is a transport company owning vehicles
type Operator struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Contact   *string   `json:"contact,omitempty" db:"contact"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateVehicleRequest is the admin payload for adding a vehicle
type CreateVehicleRequest struct {
	OperatorID  int         `json:"operator_id" binding:"required"`
	Name        string      `json:"name" binding:"required"`
	Number      string      `json:"number" binding:"required"`
	Type        VehicleType `json:"type" binding:"required"`
	TotalSeats  int         `json:"total_seats" binding:"required,gt=0"`
	SeatMap     SeatMap     `json:"seat_map" binding:"required"`
	ClassPrices ClassPrices `json:"class_prices" binding:"required"`
	Facilities  *string     `json:"facilities,omitempty"`
}
