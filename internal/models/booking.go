package models

import (
	"time"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusCart      BookingStatus = "CART"
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// bookingTransitions holds the allowed forward edges of the booking lifecycle.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusCart:      {BookingStatusPending, BookingStatusExpired, BookingStatusCancelled},
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusExpired, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
	BookingStatusCancelled: {},
	BookingStatusExpired:   {},
	BookingStatusCompleted: {},
}

// IsValid reports whether the status is one of the known lifecycle states.
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is an allowed
// lifecycle transition. Terminal states have no outgoing edges.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// HoldsSeats reports whether a booking in this status occupies its seats.
func (s BookingStatus) HoldsSeats() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// Booking represents a seat reservation for a schedule on a travel date
type Booking struct {
	ID             int           `json:"id" db:"id"`
	UserID         int           `json:"user_id" db:"user_id"`
	ScheduleID     int           `json:"schedule_id" db:"schedule_id"`
	TravelDate     time.Time     `json:"travel_date" db:"travel_date"`
	Seats          SeatList      `json:"seats" db:"seats"`
	SeatClass      string        `json:"seat_class" db:"seat_class"`
	Passengers     PassengerList `json:"passengers" db:"passengers"`
	Status         BookingStatus `json:"status" db:"status"`
	TotalAmount    float64       `json:"total_amount" db:"total_amount"`
	DiscountAmount float64       `json:"discount_amount" db:"discount_amount"`
	FinalAmount    float64       `json:"final_amount" db:"final_amount"`
	CouponCode     *string       `json:"coupon_code,omitempty" db:"coupon_code"`
	PNR            *string       `json:"pnr,omitempty" db:"pnr"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty" db:"expires_at"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether a holdable booking has passed its expiry deadline.
func (b *Booking) IsExpired(now time.Time) bool {
	if b.ExpiresAt == nil {
		return false
	}
	if b.Status != BookingStatusCart && b.Status != BookingStatusPending {
		return false
	}
	return now.After(*b.ExpiresAt)
}

// CreateBookingRequest is the payload for creating a cart booking
type CreateBookingRequest struct {
	ScheduleID int             `json:"schedule_id" binding:"required"`
	TravelDate string          `json:"travel_date" binding:"required"`
	Seats      []int           `json:"seats" binding:"required,min=1"`
	SeatClass  string          `json:"seat_class" binding:"required"`
	Passengers []PassengerDetail `json:"passengers" binding:"required,min=1,dive"`
	CouponCode *string         `json:"coupon_code,omitempty"`
}

// BookingResponse is the API view of a booking together with pricing breakdown
type BookingResponse struct {
	Booking
	Route       *RouteSummary `json:"route,omitempty"`
	VehicleName string        `json:"vehicle_name,omitempty"`
}

// RouteSummary is the denormalized schedule context attached to a booking
type RouteSummary struct {
	SourceName      string    `json:"source_name"`
	DestinationName string    `json:"destination_name"`
	DepartureTime   string    `json:"departure_time"`
	ArrivalTime     string    `json:"arrival_time"`
	DepartureAt     time.Time `json:"departure_at"`
}

// CancelBookingRequest is the payload for cancelling a booking
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CancellationQuote is the refund preview for a confirmed booking
type CancellationQuote struct {
	BookingID     int     `json:"booking_id"`
	PaidAmount    float64 `json:"paid_amount"`
	RefundPercent int     `json:"refund_percent"`
	RefundAmount  float64 `json:"refund_amount"`
	HoursToDeparture float64 `json:"hours_to_departure"`
	Cancellable   bool    `json:"cancellable"`
	Reason        string  `json:"reason,omitempty"`
}
