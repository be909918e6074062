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

// fakeProcessor returns canned gateway outcomes and records what it was
// asked to charge.
type fakeProcessor struct {
	chargeResult *gateway.ChargeResult
	chargeErr    error
	refundResult *gateway.RefundResult
	refundErr    error

	chargedAmount  float64
	chargedDetails map[string]string
}

func (f *fakeProcessor) Charge(ctx context.Context, method string, amount float64, reference string, details map[string]string) (*gateway.ChargeResult, error) {
	f.chargedAmount = amount
	f.chargedDetails = details
	return f.chargeResult, f.chargeErr
}

func (f *fakeProcessor) Refund(ctx context.Context, method string, amount float64, reference string) (*gateway.RefundResult, error) {
	return f.refundResult, f.refundErr
}

var paymentBookingColumns = []string{
	"id", "user_id", "schedule_id", "travel_date", "seats", "seat_class", "passengers",
	"status", "total_amount", "discount_amount", "final_amount", "coupon_code",
	"pnr", "expires_at", "cancelled_at", "cancellation_reason", "created_at", "updated_at",
}

func cartBookingRow(id, userID int, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(paymentBookingColumns).AddRow(
		id, userID, 10, now.AddDate(0, 0, 7), []byte(`[7,8]`), "ECONOMY", []byte(`[]`),
		status, 1600.0, 0.0, 1600.0, nil,
		nil, now.Add(15*time.Minute), nil, nil, now, now,
	)
}

func overdueBookingRow(id, userID int, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(paymentBookingColumns).AddRow(
		id, userID, 10, now.AddDate(0, 0, 7), []byte(`[7,8]`), "ECONOMY", []byte(`[]`),
		status, 1600.0, 0.0, 1600.0, nil,
		nil, now.Add(-time.Minute), nil, nil, now, now,
	)
}

func scheduleRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "vehicle_id", "source_id", "destination_id", "departure_time", "arrival_time",
		"duration", "base_price", "frequency", "is_active", "created_at", "updated_at",
	}).AddRow(
		10, 3, 1, 2, "08:30", "14:00",
		nil, 800.0, nil, true, now, now,
	)
}

func vehicleRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "operator_id", "name", "number", "type", "total_seats", "seat_map",
		"class_prices", "facilities", "is_active", "created_at", "updated_at",
	}).AddRow(
		3, 1, "Green Line Express", "GL-204", "BUS", 40,
		[]byte(`{"layout":"2x2","classes":{"ECONOMY":[1,2,3,4,5,6,7,8],"BUSINESS":[9,10]}}`),
		[]byte(`{"BUSINESS":1500}`), nil, true, now, now,
	)
}

func newPaymentService(t *testing.T, processor gateway.Processor) (*PaymentService, sqlmock.Sqlmock) {
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

	couponService := NewCouponService(couponRepo, paymentRepo, logger)
	pricing := NewPricingService(userRepo, logger)
	seatService := NewSeatService(scheduleRepo, bookingRepo, availabilityCache, logger)
	notifications := NewNotificationService(notificationRepo, userRepo, hub, mail, logger)

	svc := NewPaymentService(
		bookingRepo, paymentRepo, scheduleRepo, userRepo,
		couponService, pricing, seatService, processor,
		publisher, notifications, 15*time.Minute, logger,
	)
	return svc, mock
}

func TestProcessPayment(t *testing.T) {
	t.Run("Successful Charge Confirms Booking", func(t *testing.T) {
		processor := &fakeProcessor{
			chargeResult: &gateway.ChargeResult{Success: true, TransactionID: "CARD-abc12345-654321"},
		}
		svc, mock := newPaymentService(t, processor)

		// Load and verify the cart
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 1, "CART"))
		// Clear earlier failed attempts
		mock.ExpectExec(`DELETE FROM payments`).
			WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		// Re-pricing
		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		// Lock CART to PENDING
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 1, "CART"))
		mock.ExpectQuery(`SELECT seats FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"seats"}))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		// Record the attempt with the full pricing breakdown
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO payments`).
			WithArgs(5, 1, 1600.0, 0.0, 1600.0, "CARD", "pending", nil, nil,
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
		mock.ExpectCommit()
		// Settle success
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		// Confirmation side effects
		mock.ExpectQuery(`INSERT INTO notifications`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`SELECT src.name AS source_name`).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"source_name", "destination_name", "departure_time", "arrival_time"}).
				AddRow("Dhaka", "Chittagong", "08:30", "14:00"))
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "password_hash", "full_name", "phone", "role", "is_active",
				"created_at", "updated_at",
			}).AddRow(1, "alice@example.com", "hash", "Alice Rahman", nil, "USER", true, time.Now(), time.Now()))

		result, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID: 5,
			Method:    models.PaymentMethodCard,
		})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, result.Status)
		assert.Equal(t, 12, result.PaymentID)
		assert.Equal(t, 1600.0, result.Amount)
		assert.Len(t, result.PNR, 6)
		assert.Equal(t, "CARD-abc12345-654321", result.TransactionID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Declined Charge Keeps Seats Held", func(t *testing.T) {
		processor := &fakeProcessor{
			chargeResult: &gateway.ChargeResult{Success: false, FailureReason: "CARD gateway declined the transaction"},
		}
		svc, mock := newPaymentService(t, processor)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 1, "CART"))
		mock.ExpectExec(`DELETE FROM payments`).
			WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 1, "CART"))
		mock.ExpectQuery(`SELECT seats FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"seats"}))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
		mock.ExpectCommit()
		// Failure settlement: fail the payment and notify. No booking
		// update runs, the PENDING hold survives for a retry.
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments`).
			WillReturnRows(sqlmock.NewRows([]string{"coupon_code"}).AddRow(nil))
		mock.ExpectCommit()
		mock.ExpectQuery(`INSERT INTO notifications`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

		result, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID: 5,
			Method:    models.PaymentMethodCard,
		})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, result.Status)
		assert.Contains(t, result.FailureReason, "declined")
		assert.Empty(t, result.PNR)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Seat Conflict At Lock", func(t *testing.T) {
		svc, mock := newPaymentService(t, &fakeProcessor{})

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 1, "CART"))
		mock.ExpectExec(`DELETE FROM payments`).
			WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 1, "CART"))
		mock.ExpectQuery(`SELECT seats FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"seats"}).AddRow([]byte(`[7]`)))
		mock.ExpectRollback()

		_, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID: 5,
			Method:    models.PaymentMethodCard,
		})
		require.Error(t, err)

		var conflict *SeatConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, []int{7}, conflict.Seats)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("Wrong Owner", func(t *testing.T) {
		svc, mock := newPaymentService(t, &fakeProcessor{})

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 999, "CART"))

		_, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID: 5,
			Method:    models.PaymentMethodCard,
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Pending Booking Retries Without Relocking", func(t *testing.T) {
		processor := &fakeProcessor{
			chargeResult: &gateway.ChargeResult{Success: true, TransactionID: "CARD-retry123-111111"},
		}
		svc, mock := newPaymentService(t, processor)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 1, "PENDING"))
		mock.ExpectExec(`DELETE FROM payments`).
			WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		// No seat re-lock: the PENDING booking already holds its seats.
		// The next statement is the payment insert.
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(13))
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(`INSERT INTO notifications`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`SELECT src.name AS source_name`).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"source_name", "destination_name", "departure_time", "arrival_time"}).
				AddRow("Dhaka", "Chittagong", "08:30", "14:00"))
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "email", "password_hash", "full_name", "phone", "role", "is_active",
				"created_at", "updated_at",
			}).AddRow(1, "alice@example.com", "hash", "Alice Rahman", nil, "USER", true, time.Now(), time.Now()))

		result, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID: 5,
			Method:    models.PaymentMethodCard,
		})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, result.Status)
		assert.Equal(t, 13, result.PaymentID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Overdue Booking Auto-Expires", func(t *testing.T) {
		svc, mock := newPaymentService(t, &fakeProcessor{})

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(5).
			WillReturnRows(overdueBookingRow(5, 1, "CART"))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID: 5,
			Method:    models.PaymentMethodCard,
		})
		assert.ErrorIs(t, err, ErrExpired)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Forwards Payment Details To Gateway", func(t *testing.T) {
		processor := &fakeProcessor{
			chargeResult: &gateway.ChargeResult{Success: false, FailureReason: "missing cvv for CARD payment"},
		}
		svc, mock := newPaymentService(t, processor)

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(5).
			WillReturnRows(cartBookingRow(5, 1, "PENDING"))
		mock.ExpectExec(`DELETE FROM payments`).
			WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id`).
			WithArgs(10).
			WillReturnRows(scheduleRow())
		mock.ExpectQuery(`SELECT (.+) FROM vehicles WHERE id`).
			WithArgs(3).
			WillReturnRows(vehicleRow())
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(14))
		mock.ExpectCommit()
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments`).
			WillReturnRows(sqlmock.NewRows([]string{"coupon_code"}).AddRow(nil))
		mock.ExpectCommit()
		mock.ExpectQuery(`INSERT INTO notifications`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		details := map[string]string{"card_number": "4111111111111111", "expiry": "12/27"}
		result, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID:      5,
			Method:         models.PaymentMethodCard,
			PaymentDetails: details,
		})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, result.Status)
		assert.Equal(t, details, processor.chargedDetails)
		assert.Equal(t, 1600.0, processor.chargedAmount)
	})

	t.Run("Unsupported Method", func(t *testing.T) {
		svc, _ := newPaymentService(t, &fakeProcessor{})

		_, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID: 5,
			Method:    "PAYPAL",
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Booking Not Found", func(t *testing.T) {
		svc, mock := newPaymentService(t, &fakeProcessor{})

		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id`).
			WithArgs(99).
			WillReturnRows(sqlmock.NewRows(paymentBookingColumns))

		_, err := svc.Process(context.Background(), 1, &models.InitiatePaymentRequest{
			BookingID: 99,
			Method:    models.PaymentMethodCard,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRefundPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		processor := &fakeProcessor{
			refundResult: &gateway.RefundResult{Success: true, TransactionID: "REFUND-CARD-abc-111111"},
		}
		svc, mock := newPaymentService(t, processor)

		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		payment := &models.Payment{ID: 12, Method: models.PaymentMethodCard, Status: models.PaymentStatusCompleted}
		txnID, err := svc.Refund(context.Background(), payment, 1440)
		require.NoError(t, err)
		assert.Equal(t, "REFUND-CARD-abc-111111", txnID)
	})

	t.Run("Gateway Rejects", func(t *testing.T) {
		processor := &fakeProcessor{
			refundResult: &gateway.RefundResult{Success: false, FailureReason: "refund rejected by provider"},
		}
		svc, _ := newPaymentService(t, processor)

		payment := &models.Payment{ID: 12, Method: models.PaymentMethodCard}
		_, err := svc.Refund(context.Background(), payment, 1440)
		assert.ErrorIs(t, err, ErrGateway)
	})

	t.Run("Zero Amount Is A No-Op", func(t *testing.T) {
		svc, _ := newPaymentService(t, &fakeProcessor{})

		payment := &models.Payment{ID: 12, Method: models.PaymentMethodCard}
		txnID, err := svc.Refund(context.Background(), payment, 0)
		require.NoError(t, err)
		assert.Empty(t, txnID)
	})
}
