package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncCompletedQueue is the queue sync run summaries are published to.
const SyncCompletedQueue = "catalog.sync.completed"

// SyncCompletedEvent summarizes a finished bulk sync run.
type SyncCompletedEvent struct {
	RunID          string    `json:"run_id"`
	Kind           string    `json:"kind"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	PagesAttempted int       `json:"pages_attempted"`
	PagesSucceeded int       `json:"pages_succeeded"`
	TotalProducts  int       `json:"total_products"`
	NewCount       int       `json:"new_count"`
	UpdatedCount   int       `json:"updated_count"`
	ErrorCount     int       `json:"error_count"`
	Aborted        bool      `json:"aborted"`
}

// EventPublisher announces sync outcomes to other systems.
type EventPublisher interface {
	PublishSyncCompleted(ctx context.Context, event SyncCompletedEvent) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// PublishSyncCompleted implements EventPublisher.
func (NoopPublisher) PublishSyncCompleted(context.Context, SyncCompletedEvent) error { return nil }

// AMQPPublisher publishes events to a durable RabbitMQ queue, dialing once per event.
type AMQPPublisher struct {
	url string
	log *slog.Logger
}

// NewAMQPPublisher creates a publisher for the broker at url.
func NewAMQPPublisher(url string, logger *slog.Logger) *AMQPPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPPublisher{url: url, log: logger}
}

// PublishSyncCompleted implements EventPublisher.
func (p *AMQPPublisher) PublishSyncCompleted(ctx context.Context, event SyncCompletedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", "err", err)
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(SyncCompletedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", SyncCompletedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    event.RunID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// MultiPublisher fans an event out to several publishers.
type MultiPublisher []EventPublisher

// PublishSyncCompleted implements EventPublisher. Every publisher is tried.
func (m MultiPublisher) PublishSyncCompleted(ctx context.Context, event SyncCompletedEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishSyncCompleted(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
