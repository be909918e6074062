// Package queue publishes and consumes booking lifecycle events over
// RabbitMQ. Publishing is best-effort: a broker outage never blocks the
// payment flow.
package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/ticketkini/booking-backend/internal/models"
)

// Publisher publishes booking events to a durable queue
type Publisher struct {
	url       string
	queueName string
	logger    *logrus.Logger
}

// NewPublisher creates a Publisher. An empty URL disables publishing.
func NewPublisher(url, queueName string, logger *logrus.Logger) *Publisher {
	return &Publisher{url: url, queueName: queueName, logger: logger}
}

// PublishBookingConfirmed publishes a BookingConfirmedEvent. Errors are
// logged and returned so the caller can choose to ignore them.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, event models.BookingConfirmedEvent) error {
	if p.url == "" {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.WithError(err).Warn("RabbitMQ dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.WithError(err).Warn("RabbitMQ channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		p.logger.WithError(err).Warn("RabbitMQ queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, pub); err != nil {
		p.logger.WithError(err).Warn("RabbitMQ publish failed")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"booking_id": event.BookingID,
		"pnr":        event.PNR,
	}).Info("Booking confirmed event published")
	return nil
}
