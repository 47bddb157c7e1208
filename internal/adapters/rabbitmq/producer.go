package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// exchange carries every event the service emits: ledger entries, settlement
// transitions, notification fan-out. Topic-routed by category.
const exchange = "banking_events"

// amqpChannel is the slice of *amqp091.Channel the producer uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	Close() error
}

// EventProducer publishes domain events to RabbitMQ. amqp091 channels are not
// safe for concurrent use, so the mutex serializes publishes and guards the
// channel swap on the reopen path.
type EventProducer struct {
	conn   *amqp091.Connection
	logger *zap.Logger

	mu         sync.Mutex
	channel    amqpChannel
	newChannel func() (amqpChannel, error)
}

var _ ports.EventPublisher = (*EventProducer)(nil)

// FallbackPublisher is a no-op publisher used when RabbitMQ is unavailable at
// startup. Money movement must not depend on the broker being up.
type FallbackPublisher struct {
	Logger *zap.Logger
}

var _ ports.EventPublisher = (*FallbackPublisher)(nil)

func (p *FallbackPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	if p.Logger != nil {
		p.Logger.Warn("event publish skipped, broker unavailable",
			zap.String("routing_key", routingKey))
	}
	return nil
}

func (p *FallbackPublisher) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials RabbitMQ with a bounded timeout so startup does not
// hang when the broker is down.
func NewEventProducer(amqpURL string, logger *zap.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	p := &EventProducer{conn: conn, channel: ch, logger: logger}
	p.newChannel = func() (amqpChannel, error) { return conn.Channel() }
	if err := p.declareExchange(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *EventProducer) declareExchange() error {
	return p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
}

// Publish sends one JSON event. A failed publish reopens the channel and
// retries once; events are best-effort and never fail the calling operation.
func (p *EventProducer) Publish(ctx context.Context, routingKey string, body any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	msg := amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        jsonBody,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("publish failed, reopening channel",
		zap.String("routing_key", routingKey),
		zap.Error(err))

	ch, chErr := p.newChannel()
	if chErr != nil {
		return err
	}
	p.channel = ch
	if exErr := p.declareExchange(); exErr != nil {
		return exErr
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

// Close gracefully closes the channel and connection.
func (p *EventProducer) Close() {
	p.mu.Lock()
	if p.channel != nil {
		p.channel.Close()
	}
	p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
	}
}
