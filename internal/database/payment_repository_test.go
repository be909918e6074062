package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketkini/booking-backend/internal/models"
)

func newPaymentRepo(t *testing.T) (*PaymentRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewPaymentRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestCreatePayment(t *testing.T) {
	t.Run("Without Coupon", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO payments`).
			WithArgs(5, 1, 1600.0, 160.0, 1440.0, "CARD", "pending", nil, nil,
				sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
		mock.ExpectCommit()

		p := &models.Payment{
			BookingID:      5,
			UserID:         1,
			Amount:         1600,
			DiscountAmount: 160,
			FinalAmount:    1440,
			Method:         models.PaymentMethodCard,
			Status:         models.PaymentStatusPending,
		}
		require.NoError(t, repo.Create(p))
		assert.Equal(t, 12, p.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Reserves Coupon Use", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)
		code := "WELCOME10"

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE coupons`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(13))
		mock.ExpectCommit()

		p := &models.Payment{
			BookingID:  5,
			UserID:     1,
			Amount:     1440,
			Method:     models.PaymentMethodBkash,
			Status:     models.PaymentStatusPending,
			CouponCode: &code,
		}
		require.NoError(t, repo.Create(p))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Coupon Exhausted", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)
		code := "LIMITED"

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE coupons`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		p := &models.Payment{
			BookingID:  5,
			UserID:     1,
			Amount:     1440,
			Method:     models.PaymentMethodCard,
			Status:     models.PaymentStatusPending,
			CouponCode: &code,
		}
		err := repo.Create(p)
		assert.ErrorIs(t, err, ErrCouponExhausted)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCompleteAndConfirm(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CompleteAndConfirm(12, 5, "CARD-abc-123456", "XK93QD")
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Payment Not Completable", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CompleteAndConfirm(12, 5, "txn", "XK93QD")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not in a completable state")
	})

	t.Run("Booking Not Pending", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CompleteAndConfirm(12, 5, "txn", "XK93QD")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not PENDING")
	})
}

func TestMarkFailed(t *testing.T) {
	t.Run("Releases Coupon Use", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)
		code := "WELCOME10"

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments`).
			WillReturnRows(sqlmock.NewRows([]string{"coupon_code"}).AddRow(&code))
		mock.ExpectExec(`UPDATE coupons`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.MarkFailed(13, "CARD gateway declined the transaction")
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Coupon Attached", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments`).
			WillReturnRows(sqlmock.NewRows([]string{"coupon_code"}).AddRow(nil))
		mock.ExpectCommit()

		err := repo.MarkFailed(13, "declined")
		require.NoError(t, err)
	})

	t.Run("Already Settled", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE payments`).
			WillReturnRows(sqlmock.NewRows([]string{"coupon_code"}))
		mock.ExpectRollback()

		err := repo.MarkFailed(13, "declined")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not in a failable state")
	})
}

func TestMarkRefunded(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)

		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.MarkRefunded(12, 1440, "REFUND-CARD-abc-654321")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Not Completed", func(t *testing.T) {
		repo, mock := newPaymentRepo(t)

		mock.ExpectExec(`UPDATE payments`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.MarkRefunded(12, 1440, "txn")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
