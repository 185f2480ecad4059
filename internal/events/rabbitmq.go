package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/opsboard/internal/config"
)

// ErrBrokerUnavailable is returned while publishing is paused after a failed connect.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

// Publisher forwards feed events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// RabbitPublisher publishes JSON events to a durable RabbitMQ queue over the default
// exchange. The connection is opened lazily with a bounded handshake and reopened
// after a failure, but not before the retry backoff has passed.
type RabbitPublisher struct {
	url          string
	queue        string
	dialTimeout  time.Duration
	retryBackoff time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// NewRabbitPublisher returns nil when no broker URL is configured.
func NewRabbitPublisher(cfg config.BrokerConfig, logger *zap.Logger) *RabbitPublisher {
	if cfg.URL == "" {
		logger.Warn("RABBITMQ_URL not provided; request events stay in-process")
		return nil
	}
	return &RabbitPublisher{
		url:          cfg.URL,
		queue:        cfg.Queue,
		dialTimeout:  cfg.DialTimeout(),
		retryBackoff: cfg.RetryBackoff(),
		logger:       logger,
		now:          time.Now,
	}
}

// Publish sends event as a persistent message routed to the configured queue.
func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(ctx); err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close tears down the channel and connection.
func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	p.ch, p.conn = nil, nil
	return errors.Join(errs...)
}

func (p *RabbitPublisher) ensureChannel(ctx context.Context) error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.now().Before(p.retryAt) {
		return ErrBrokerUnavailable
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		p.retryAt = p.now().Add(p.retryBackoff)
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAt = p.now().Add(p.retryBackoff)
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.retryAt = p.now().Add(p.retryBackoff)
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.retryAt = time.Time{}
	p.logger.Info("connected to rabbitmq", zap.String("queue", p.queue))
	return nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}
