package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketkini/booking-backend/internal/cache"
	"github.com/ticketkini/booking-backend/internal/config"
	"github.com/ticketkini/booking-backend/internal/database"
	"github.com/ticketkini/booking-backend/internal/models"
	"github.com/ticketkini/booking-backend/internal/queue"
	ws "github.com/ticketkini/booking-backend/internal/websocket"
	"github.com/ticketkini/booking-backend/pkg/gateway"
	"github.com/ticketkini/booking-backend/pkg/mailer"
)

func newBookingService(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	bookingRepo := database.NewBookingRepository(db)
	paymentRepo := database.NewPaymentRepository(db)
	scheduleRepo := database.NewScheduleRepository(db)
	userRepo := database.NewUserRepository(db)
	notificationRepo := database.NewNotificationRepository(db)
	couponRepo := database.NewCouponRepository(db)

	availabilityCache := cache.NewAvailabilityCache(nil, time.Minute, logger)
	hub := ws.NewHub(logger)
	mail := mailer.New(config.EmailConfig{Mode: "dev"}, logger)
	publisher := queue.NewPublisher("", "booking.confirmed", logger)
	processor := &fakeProcessor{
		refundResult: &gateway.RefundResult{Success: true, TransactionID: "REFUND-CARD-abc-222222"},
	}

	couponService := NewCouponService(couponRepo, paymentRepo, logger)
	pricing := NewPricingService(userRepo, logger)
	seatService := NewSeatService(scheduleRepo, bookingRepo, availabilityCache, logger)
	notifications := NewNotificationService(notificationRepo, userRepo, hub, mail, logger)
	paymentService := NewPaymentService(
		bookingRepo, paymentRepo, scheduleRepo, userRepo,
		couponService, pricing, seatService, processor,
		publisher, notifications, 15*time.Minute, logger,
	)

	svc := NewBookingService(
		bookingRepo, scheduleRepo, paymentRepo,
		seatService, couponService, pricing, paymentService, notifications,
		15*time.Minute, 2*time.Hour, logger,
	)
	return svc, mock
}

func futureTravelDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func cartRequest() *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		ScheduleID: 10,
		TravelDate: futureTravelDate(),
		Seats:      []int{7, 8},
		SeatClass:  "ECONOMY",
		Passengers: []models.PassengerDetail{
			{Name: "Alice Rahman", Age: 31},
			{Name: "Bimal Das", Age: 28},
		},
	}
}

func TestCreateCart(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT seats FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"seats"}))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		booking, err := svc.CreateCart(context.Background(), 1, cartRequest())
		require.NoError(t, err)
		assert.Equal(t, 42, booking.ID)
		assert.Equal(t, models.BookingStatusCart, booking.Status)
		assert.Equal(t, 1600.0, booking.TotalAmount)
		assert.Equal(t, 0.0, booking.DiscountAmount)
		assert.Equal(t, 1600.0, booking.FinalAmount)
		require.NotNil(t, booking.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), *booking.ExpiresAt, 5*time.Second)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("First Booking Gets Loyalty Discount", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT seats FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"seats"}))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(43))

		booking, err := svc.CreateCart(context.Background(), 1, cartRequest())
		require.NoError(t, err)
		assert.Equal(t, 80.0, booking.DiscountAmount) // 5% of 1600
		assert.Equal(t, 1520.0, booking.FinalAmount)
	})

	t.Run("Lowercase Seat Class Is Normalized", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT seats FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"seats"}))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(44))

		req := cartRequest()
		req.SeatClass = " economy "
		booking, err := svc.CreateCart(context.Background(), 1, req)
		require.NoError(t, err)
		assert.Equal(t, "ECONOMY", booking.SeatClass)
		assert.Equal(t, 1600.0, booking.TotalAmount)
	})

	t.Run("Seat Passenger Mismatch", func(t *testing.T) {
		svc, _ := newBookingService(t)

		req := cartRequest()
		req.Passengers = req.Passengers[:1]
		_, err := svc.CreateCart(context.Background(), 1, req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Duplicate Seats", func(t *testing.T) {
		svc, _ := newBookingService(t)

		req := cartRequest()
		req.Seats = []int{7, 7}
		_, err := svc.CreateCart(context.Background(), 1, req)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("Past Travel Date", func(t *testing.T) {
		svc, _ := newBookingService(t)

		req := cartRequest()
		req.TravelDate = "2020-01-01"
		_, err := svc.CreateCart(context.Background(), 1, req)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Seat Already Held", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT seats FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"seats"}).AddRow([]byte(`[8]`)))

		_, err := svc.CreateCart(context.Background(), 1, cartRequest())
		require.Error(t, err)

		var conflict *SeatConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []int{8}, conflict.Seats)
	})

	t.Run("Seat Outside Class", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())

		req := cartRequest()
		req.Seats = []int{9, 10} // BUSINESS seats requested as ECONOMY
		_, err := svc.CreateCart(context.Background(), 1, req)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestUpdateCart(t *testing.T) {
	t.Run("Cannot Change Schedule", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CART"))

		req := cartRequest()
		req.ScheduleID = 11
		_, err := svc.UpdateCart(context.Background(), 1, 42, req)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "different schedule")
	})

	t.Run("Not A Cart Anymore", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CONFIRMED"))

		_, err := svc.UpdateCart(context.Background(), 1, 42, cartRequest())
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestQuoteCancellation(t *testing.T) {
	t.Run("Cart Cancels Free", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CART"))

		quote, err := svc.QuoteCancellation(1, 42, false)
		require.NoError(t, err)
		assert.True(t, quote.Cancellable)
		assert.Equal(t, 0.0, quote.RefundAmount)
	})

	t.Run("Confirmed Far From Departure", func(t *testing.T) {
		svc, mock := newBookingService(t)
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CONFIRMED"))
		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM payments WHERE booking_id`).
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "booking_id", "user_id", "amount", "discount_amount", "final_amount",
				"method", "status", "transaction_id", "coupon_code",
				"refund_amount", "refund_txn_id", "failure_reason",
				"created_at", "updated_at",
			}).AddRow(
				12, 42, 1, 1600.0, 0.0, 1600.0, "CARD", "completed", "CARD-abc-654321",
				nil, nil, nil, nil, now, now,
			))

		quote, err := svc.QuoteCancellation(1, 42, false)
		require.NoError(t, err)
		assert.True(t, quote.Cancellable)
		assert.Equal(t, 90, quote.RefundPercent)
		assert.Equal(t, 1440.0, quote.RefundAmount)
		assert.Equal(t, 1600.0, quote.PaidAmount)
	})

	t.Run("Inside Cancellation Cutoff", func(t *testing.T) {
		svc, mock := newBookingService(t)
		now := time.Now()

		// Departure is one hour away, inside the two hour cutoff.
		booking := sqlmock.NewRows(paymentBookingColumns).AddRow(
			42, 1, 10, now, []byte(`[7,8]`), "ECONOMY", []byte(`[]`),
			"CONFIRMED", 1600.0, 0.0, 1600.0, nil,
			"XK93QD", nil, nil, nil, now, now,
		)
		schedule := sqlmock.NewRows([]string{
			"id", "vehicle_id", "source_id", "destination_id", "departure_time", "arrival_time",
			"duration", "base_price", "frequency", "is_active", "created_at", "updated_at",
		}).AddRow(
			10, 3, 1, 2, now.Add(time.Hour).Format("15:04"), "23:59",
			nil, 800.0, nil, true, now, now,
		)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(booking)
		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(schedule)

		quote, err := svc.QuoteCancellation(1, 42, false)
		require.NoError(t, err)
		assert.False(t, quote.Cancellable)
		assert.Contains(t, quote.Reason, "cancellation closes")
	})

	t.Run("Terminal States Are Not Cancellable", func(t *testing.T) {
		for _, status := range []string{"CANCELLED", "EXPIRED", "COMPLETED"} {
			svc, mock := newBookingService(t)

			mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
				WithArgs(42).
				WillReturnRows(cartBookingRow(42, 1, status))

			quote, err := svc.QuoteCancellation(1, 42, false)
			require.NoError(t, err)
			assert.False(t, quote.Cancellable, "status %s", status)
			assert.NotEmpty(t, quote.Reason)
		}
	})

	t.Run("Someone Elses Booking", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 999, "CART"))

		_, err := svc.QuoteCancellation(1, 42, false)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("Cart Cancellation Without Refund", func(t *testing.T) {
		svc, mock := newBookingService(t)

		// Quote
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CART"))
		// Reload and flip status
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CART"))
		// No reason given, so nothing is stamped beyond the timestamp
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(sqlmock.AnyArg(), nil, sqlmock.AnyArg(), 42, "CART", "PENDING", "CONFIRMED").
			WillReturnResult(sqlmock.NewResult(0, 1))
		// Cancellation notification
		mock.ExpectQuery(`INSERT INTO notifications`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		quote, err := svc.Cancel(context.Background(), 1, 42, "", false)
		require.NoError(t, err)
		assert.True(t, quote.Cancellable)
		assert.Equal(t, 0.0, quote.RefundAmount)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stamps Cancellation Reason", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CART"))
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CART"))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(sqlmock.AnyArg(), "change of plans", sqlmock.AnyArg(), 42, "CART", "PENDING", "CONFIRMED").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO notifications`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		_, err := svc.Cancel(context.Background(), 1, 42, "change of plans", false)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("State Changed Underneath", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CART"))
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(42).
			WillReturnRows(cartBookingRow(42, 1, "CART"))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := svc.Cancel(context.Background(), 1, 42, "", false)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestListForUser(t *testing.T) {
	t.Run("Attaches Route Context", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE user_id`).
			WithArgs(1, 20, 0).
			WillReturnRows(cartBookingRow(42, 1, "CART"))
		mock.ExpectQuery(`SELECT src.name AS source_name`).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"source_name", "destination_name", "departure_time", "arrival_time"}).
				AddRow("Dhaka", "Chittagong", "08:30", "14:00"))

		// Out-of-range limits fall back to the default page size.
		bookings, err := svc.ListForUser(1, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, 42, bookings[0].ID)
		require.NotNil(t, bookings[0].Route)
		assert.Equal(t, "Dhaka", bookings[0].Route.SourceName)
		assert.Equal(t, "Chittagong", bookings[0].Route.DestinationName)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Filters By Status", func(t *testing.T) {
		svc, mock := newBookingService(t)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE user_id = (.+) AND status`).
			WithArgs(1, "CONFIRMED", 20, 0).
			WillReturnRows(cartBookingRow(42, 1, "CONFIRMED"))
		mock.ExpectQuery(`SELECT src.name AS source_name`).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"source_name", "destination_name", "departure_time", "arrival_time"}).
				AddRow("Dhaka", "Chittagong", "08:30", "14:00"))

		// Lowercase input is accepted and normalized
		bookings, err := svc.ListForUser(1, "confirmed", 0, 0)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, models.BookingStatusConfirmed, bookings[0].Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Status", func(t *testing.T) {
		svc, _ := newBookingService(t)

		_, err := svc.ListForUser(1, "SHIPPED", 0, 0)
		assert.ErrorIs(t, err, ErrValidation)
	})
}
