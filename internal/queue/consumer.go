package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// EventHandler processes a decoded booking confirmed event
type EventHandler interface {
	HandleBookingConfirmed(ctx context.Context, event BookingConfirmedMessage) error
}

// BookingConfirmedMessage mirrors the published event payload
type BookingConfirmedMessage struct {
	BookingID  int       `json:"booking_id"`
	UserID     int       `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	PNR        string    `json:"pnr"`
	Route      string    `json:"route"`
	TravelDate string    `json:"travel_date"`
	Seats      []int     `json:"seats"`
	Amount     float64   `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Consumer drains the booking confirmed queue and forwards each event to
// its handler. It reconnects with exponential backoff until the context
// is cancelled.
type Consumer struct {
	url       string
	queueName string
	handler   EventHandler
	logger    *logrus.Logger
}

// NewConsumer creates a Consumer. An empty URL disables consumption.
func NewConsumer(url, queueName string, handler EventHandler, logger *logrus.Logger) *Consumer {
	return &Consumer{url: url, queueName: queueName, handler: handler, logger: logger}
}

// Run blocks until ctx is cancelled, reconnecting on broker failures.
func (c *Consumer) Run(ctx context.Context) {
	if c.url == "" {
		c.logger.Info("RabbitMQ URL not set, booking consumer disabled")
		return
	}

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.WithError(err).WithField("retry_in", backoff.String()).Warn("Booking consumer dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn); err != nil {
			c.logger.WithError(err).Warn("Booking consumer loop ended, reconnecting")
			conn.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.WithError(err).Warn("Booking consumer set QoS failed")
	}

	if _, err := ch.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(ctx, d.Body); err != nil {
				c.logger.WithError(err).Warn("Booking consumer message failed")
				// Reject without requeue to avoid tight redelivery loops
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var msg BookingConfirmedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.handler.HandleBookingConfirmed(ctx, msg)
}
