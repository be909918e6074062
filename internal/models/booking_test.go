package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	t.Run("Cart Transitions", func(t *testing.T) {
		assert.True(t, BookingStatusCart.CanTransitionTo(BookingStatusPending))
		assert.True(t, BookingStatusCart.CanTransitionTo(BookingStatusExpired))
		assert.True(t, BookingStatusCart.CanTransitionTo(BookingStatusCancelled))
		assert.False(t, BookingStatusCart.CanTransitionTo(BookingStatusConfirmed))
		assert.False(t, BookingStatusCart.CanTransitionTo(BookingStatusCompleted))
	})

	t.Run("Pending Transitions", func(t *testing.T) {
		assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusConfirmed))
		assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusExpired))
		assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusCancelled))
		assert.False(t, BookingStatusPending.CanTransitionTo(BookingStatusCart))
	})

	t.Run("Confirmed Transitions", func(t *testing.T) {
		assert.True(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusCancelled))
		assert.True(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusCompleted))
		assert.False(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusPending))
		assert.False(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusExpired))
	})

	t.Run("Terminal States", func(t *testing.T) {
		for _, s := range []BookingStatus{BookingStatusCancelled, BookingStatusExpired, BookingStatusCompleted} {
			assert.True(t, s.IsTerminal(), "%s should be terminal", s)
			assert.False(t, s.CanTransitionTo(BookingStatusCart))
			assert.False(t, s.CanTransitionTo(BookingStatusConfirmed))
		}
		assert.False(t, BookingStatusCart.IsTerminal())
		assert.False(t, BookingStatusPending.IsTerminal())
		assert.False(t, BookingStatusConfirmed.IsTerminal())
	})

	t.Run("Unknown Status", func(t *testing.T) {
		bogus := BookingStatus("DRAFT")
		assert.False(t, bogus.IsValid())
		assert.False(t, bogus.CanTransitionTo(BookingStatusPending))
	})
}

func TestBookingStatusHoldsSeats(t *testing.T) {
	assert.True(t, BookingStatusPending.HoldsSeats())
	assert.True(t, BookingStatusConfirmed.HoldsSeats())
	assert.False(t, BookingStatusCart.HoldsSeats())
	assert.False(t, BookingStatusCancelled.HoldsSeats())
	assert.False(t, BookingStatusExpired.HoldsSeats())
	assert.False(t, BookingStatusCompleted.HoldsSeats())
}

func TestBookingIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	t.Run("Cart Past Deadline", func(t *testing.T) {
		b := &Booking{Status: BookingStatusCart, ExpiresAt: &past}
		assert.True(t, b.IsExpired(now))
	})

	t.Run("Pending Before Deadline", func(t *testing.T) {
		b := &Booking{Status: BookingStatusPending, ExpiresAt: &future}
		assert.False(t, b.IsExpired(now))
	})

	t.Run("Confirmed Never Expires", func(t *testing.T) {
		b := &Booking{Status: BookingStatusConfirmed, ExpiresAt: &past}
		assert.False(t, b.IsExpired(now))
	})

	t.Run("No Deadline", func(t *testing.T) {
		b := &Booking{Status: BookingStatusCart}
		assert.False(t, b.IsExpired(now))
	})
}
