package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDiscount(t *testing.T) {
	t.Run("Percent", func(t *testing.T) {
		c := &Coupon{Type: CouponTypePercent, Value: 10}
		assert.Equal(t, 150.0, c.CalculateDiscount(1500))
	})

	t.Run("Percent With Cap", func(t *testing.T) {
		cap := 200.0
		c := &Coupon{Type: CouponTypePercent, Value: 10, MaxDiscount: &cap}
		assert.Equal(t, 200.0, c.CalculateDiscount(5000))
		assert.Equal(t, 100.0, c.CalculateDiscount(1000))
	})

	t.Run("Fixed", func(t *testing.T) {
		c := &Coupon{Type: CouponTypeFixed, Value: 100}
		assert.Equal(t, 100.0, c.CalculateDiscount(1200))
	})

	t.Run("Fixed Exceeds Order", func(t *testing.T) {
		c := &Coupon{Type: CouponTypeFixed, Value: 100}
		assert.Equal(t, 60.0, c.CalculateDiscount(60))
	})

	t.Run("Rounds To Cents", func(t *testing.T) {
		c := &Coupon{Type: CouponTypePercent, Value: 33}
		assert.Equal(t, 33.33, c.CalculateDiscount(101))
	})
}

func TestCouponWindowAndUsage(t *testing.T) {
	now := time.Now()

	t.Run("Open Window", func(t *testing.T) {
		c := &Coupon{}
		assert.True(t, c.IsWithinWindow(now))
	})

	t.Run("Not Yet Valid", func(t *testing.T) {
		from := now.Add(time.Hour)
		c := &Coupon{ValidFrom: &from}
		assert.False(t, c.IsWithinWindow(now))
	})

	t.Run("Past Expiry", func(t *testing.T) {
		until := now.Add(-time.Hour)
		c := &Coupon{ValidUntil: &until}
		assert.False(t, c.IsWithinWindow(now))
	})

	t.Run("Usage Limit", func(t *testing.T) {
		limit := 2
		c := &Coupon{UsageLimit: &limit, UsageCount: 1}
		assert.True(t, c.HasGlobalUsesLeft())
		c.UsageCount = 2
		assert.False(t, c.HasGlobalUsesLeft())
	})

	t.Run("Unlimited", func(t *testing.T) {
		c := &Coupon{UsageCount: 10000}
		assert.True(t, c.HasGlobalUsesLeft())
	})
}

func TestDefaultCoupons(t *testing.T) {
	welcome := DefaultCouponByCode("WELCOME10")
	assert.NotNil(t, welcome)
	assert.Equal(t, CouponTypePercent, welcome.Type)
	assert.Equal(t, 10.0, welcome.Value)
	assert.Equal(t, 500.0, welcome.MinOrderValue)
	assert.NotNil(t, welcome.MaxDiscount)
	assert.Equal(t, 200.0, *welcome.MaxDiscount)

	fixed := DefaultCouponByCode("FIXED100")
	assert.NotNil(t, fixed)
	assert.Equal(t, CouponTypeFixed, fixed.Type)

	assert.Nil(t, DefaultCouponByCode("NOPE"))
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "WELCOME10", NormalizeCouponCode("  welcome10 "))
	assert.Equal(t, "FIXED100", NormalizeCouponCode("Fixed100"))
}
