// Package cache provides a Redis-backed cache for seat availability views.
// When Redis is unavailable the cache degrades to a no-op so availability
// queries fall through to the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/config"
	"github.com/ticketkini/booking-backend/internal/models"
)

// NewRedisClient instantiates a Redis client from configuration. The
// returned client may be nil if a connection cannot be established;
// callers should degrade gracefully.
func NewRedisClient(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unavailable, availability caching disabled")
		return nil
	}
	return client
}

// AvailabilityCache caches per-schedule, per-date seat availability views
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewAvailabilityCache creates an AvailabilityCache. A nil client disables
// caching entirely.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl, logger: logger}
}

// key builds the cache key from the canonical availability pair
func (c *AvailabilityCache) key(scheduleID int, travelDate string) string {
	return fmt.Sprintf("availability:%d:%s", scheduleID, travelDate)
}

// Get returns the cached availability view, or nil on miss or disabled cache
func (c *AvailabilityCache) Get(ctx context.Context, scheduleID int, travelDate string) *models.SeatAvailability {
	if c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, c.key(scheduleID, travelDate)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("Availability cache read failed")
		}
		return nil
	}

	var availability models.SeatAvailability
	if err := json.Unmarshal(data, &availability); err != nil {
		c.logger.WithError(err).Warn("Corrupt availability cache entry")
		return nil
	}
	return &availability
}

// Set stores the availability view with the configured TTL
func (c *AvailabilityCache) Set(ctx context.Context, availability *models.SeatAvailability) {
	if c.client == nil || availability == nil {
		return
	}

	data, err := json.Marshal(availability)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(availability.ScheduleID, availability.TravelDate), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Availability cache write failed")
	}
}

// Invalidate drops the cached view for a schedule and date. Called whenever
// a booking takes or releases seats.
func (c *AvailabilityCache) Invalidate(ctx context.Context, scheduleID int, travelDate string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(scheduleID, travelDate)).Err(); err != nil {
		c.logger.WithError(err).Debug("Availability cache invalidation failed")
	}
}
