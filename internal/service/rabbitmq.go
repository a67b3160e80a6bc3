package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/brandpulse/sponsorship-analysis-go/internal/config"
	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

// Routing keys for terminal job events.
const (
	routingKeyCompleted = "analysis.completed"
	routingKeyFailed    = "analysis.failed"
)

// EventPublisher publishes terminal analysis job events to a RabbitMQ topic
// exchange. Downstream consumers bind their own queues on the routing keys.
type EventPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewEventPublisher connects to RabbitMQ and declares the events exchange.
func NewEventPublisher(cfg *config.RabbitMQConfig) (*EventPublisher, error) {
	p := &EventPublisher{
		config: cfg,
	}

	if err := p.connect(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *EventPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		p.config.User, p.config.Password, p.config.Host, p.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	// Declare exchange
	if err := ch.ExchangeDeclare(
		p.config.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", p.config.Exchange),
	)

	return nil
}

// PublishJobEvent publishes one terminal job event. The routing key depends
// on the terminal state: analysis.completed or analysis.failed.
func (p *EventPublisher) PublishJobEvent(ctx context.Context, event *models.JobEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	routingKey := routingKeyCompleted
	if event.State == models.JobStateFailed {
		routingKey = routingKeyFailed
	}

	// Serialize event to JSON
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Publish with confirmation
	confirms := p.channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = p.channel.PublishWithContext(
		ctx,
		p.config.Exchange, // exchange
		routingKey,        // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    event.EventID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	// Wait for confirmation with timeout
	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("message was not acknowledged by broker")
		}
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("Published job event to RabbitMQ",
		zap.String("eventId", event.EventID),
		zap.String("jobId", event.JobID),
		zap.String("routingKey", routingKey),
	)

	return nil
}

// Close shuts down the channel and connection.
func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %v", errs)
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection and channel are open.
func (p *EventPublisher) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.conn != nil && !p.conn.IsClosed() && p.channel != nil
}
