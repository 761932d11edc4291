package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/crm/dashboard/internal/domain/shared"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrPublisherClosed is returned when publishing after Close
var ErrPublisherClosed = errors.New("event publisher is closed")

// amqpChannel is the subset of *amqp.Channel the publisher needs
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes domain events to a topic exchange.
// The routing key is the event type, e.g. purchase.status_changed.
type RabbitMQPublisher struct {
	conn       *amqp.Connection
	ch         amqpChannel
	exchange   string
	serializer *EventSerializer
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	closed bool
}

// DialRabbitMQ connects to url, opens a channel and declares the exchange
func DialRabbitMQ(url, exchange string, serializer *EventSerializer, logger *zap.Logger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	p, err := newRabbitMQPublisher(ch, exchange, serializer, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newRabbitMQPublisher(ch amqpChannel, exchange string, serializer *EventSerializer, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if serializer == nil {
		serializer = NewEventSerializer("")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQPublisher{
		ch:         ch,
		exchange:   exchange,
		serializer: serializer,
		logger:     logger.Named("rabbitmq"),
		now:        time.Now,
	}, nil
}

// Publish sends each event as a persistent JSON message
func (p *RabbitMQPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	for _, e := range events {
		body, err := p.serializer.Serialize(e)
		if err != nil {
			return err
		}

		msg := amqp.Publishing{
			DeliveryMode:  amqp.Persistent,
			ContentType:   "application/json",
			MessageId:     e.EventID().String(),
			CorrelationId: e.AggregateID().String(),
			Type:          e.EventType(),
			Timestamp:     p.now().UTC(),
			Body:          body,
		}
		if err := p.ch.PublishWithContext(ctx, p.exchange, e.EventType(), false, false, msg); err != nil {
			return fmt.Errorf("failed to publish %s: %w", e.EventType(), err)
		}

		p.logger.Debug("Event published",
			zap.String("exchange", p.exchange),
			zap.String("routing_key", e.EventType()),
			zap.String("event_id", e.EventID().String()),
		)
	}
	return nil
}

// Ping reports whether the broker connection is still open
func (p *RabbitMQPublisher) Ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Close closes the channel and the connection
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

var _ shared.EventPublisher = (*RabbitMQPublisher)(nil)
