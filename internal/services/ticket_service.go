package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
	"github.com/ticketkini/booking-backend/pkg/ticket"
)

// TicketService renders printable e-tickets for confirmed bookings
type TicketService struct {
	bookingRepo  *database.BookingRepository
	scheduleRepo *database.ScheduleRepository
	vehicleRepo  *database.VehicleRepository
	paymentRepo  *database.PaymentRepository
	logger       *logrus.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(
	bookingRepo *database.BookingRepository,
	scheduleRepo *database.ScheduleRepository,
	vehicleRepo *database.VehicleRepository,
	paymentRepo *database.PaymentRepository,
	logger *logrus.Logger,
) *TicketService {
	return &TicketService{
		bookingRepo:  bookingRepo,
		scheduleRepo: scheduleRepo,
		vehicleRepo:  vehicleRepo,
		paymentRepo:  paymentRepo,
		logger:       logger,
	}
}

// BuildETicket renders the PDF e-ticket for a confirmed booking the user owns
func (s *TicketService) BuildETicket(userID, bookingID int, isAdmin bool) ([]byte, string, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, "", err
	}
	if booking == nil {
		return nil, "", fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	if booking.UserID != userID && !isAdmin {
		return nil, "", fmt.Errorf("%w: booking %d", ErrForbidden, bookingID)
	}
	if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusCompleted {
		return nil, "", fmt.Errorf("%w: booking %d has no ticket", ErrConflict, bookingID)
	}
	if booking.PNR == nil {
		return nil, "", fmt.Errorf("%w: booking %d has no PNR", ErrConflict, bookingID)
	}

	schedule, vehicle, err := s.scheduleRepo.GetWithVehicle(booking.ScheduleID)
	if err != nil {
		return nil, "", err
	}
	if schedule == nil || vehicle == nil {
		return nil, "", fmt.Errorf("%w: schedule %d", ErrNotFound, booking.ScheduleID)
	}

	summary, err := s.scheduleRepo.GetRouteSummary(booking.ScheduleID)
	if err != nil {
		return nil, "", err
	}

	operatorName := ""
	if operator, err := s.vehicleRepo.GetOperatorByID(vehicle.OperatorID); err == nil && operator != nil {
		operatorName = operator.Name
	}

	amount := booking.FinalAmount
	if payment, err := s.paymentRepo.GetByBookingID(bookingID); err == nil && payment != nil {
		amount = payment.FinalAmount
	}

	names := make([]string, len(booking.Passengers))
	for i, passenger := range booking.Passengers {
		names[i] = passenger.Name
	}

	data := ticket.ETicketData{
		PNR:            *booking.PNR,
		PassengerNames: names,
		Seats:          booking.Seats,
		SeatClass:      booking.SeatClass,
		TravelDate:     booking.TravelDate.Format("2006-01-02"),
		DepartureTime:  schedule.DepartureTime,
		VehicleName:    vehicle.Name,
		OperatorName:   operatorName,
		AmountPaid:     amount,
	}
	if summary != nil {
		data.SourceName = summary.SourceName
		data.DestinationName = summary.DestinationName
	}

	return ticket.BuildETicketPDF(data)
}
