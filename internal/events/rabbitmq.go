// Package events delivers core domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"restaurant-backoffice/internal/core"
)

// Exchange is the durable topic exchange every event is published to.
// The routing key is the event type, e.g. "order.status_changed".
const Exchange = "backoffice_events"

const (
	publishTimeout   = 5 * time.Second
	dialTimeout      = 2 * time.Second
	reconnectBackoff = 15 * time.Second
)

// ErrUnavailable is returned without dialling while a failed reconnect is
// backing off.
var ErrUnavailable = errors.New("rabbitmq unavailable")

// RabbitMQ publishes events on a single channel. A closed channel or
// connection is re-dialled on the next publish, at most once per backoff
// period.
type RabbitMQ struct {
	url    string
	logger *zap.Logger

	dialTimeout time.Duration
	backoff     time.Duration

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

var _ core.EventPublisher = (*RabbitMQ)(nil)

// NewRabbitMQ dials url and declares the events exchange.
func NewRabbitMQ(url string, logger *zap.Logger) (*RabbitMQ, error) {
	r := newRabbitMQ(url, logger)
	if err := r.connect(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func newRabbitMQ(url string, logger *zap.Logger) *RabbitMQ {
	return &RabbitMQ{url: url, logger: logger, dialTimeout: dialTimeout, backoff: reconnectBackoff}
}

// dialer bounds the TCP connect and the AMQP handshake by r.dialTimeout or
// the ctx deadline, whichever is sooner. The library clears the deadline once
// the connection is open.
func (r *RabbitMQ) dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(r.dialTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		d := net.Dialer{Deadline: deadline}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// connect must be called with r.mu held or before r is shared.
func (r *RabbitMQ) connect(ctx context.Context) error {
	conn, err := amqp.DialConfig(r.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      r.dialer(ctx),
	})
	if err != nil {
		return fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // args
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}

	r.conn = conn
	r.ch = ch
	r.logger.Info("rabbitmq publisher connected", zap.String("exchange", Exchange))
	return nil
}

// Publish sends event as a persistent JSON message.
func (r *RabbitMQ) Publish(ctx context.Context, event core.Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch == nil || r.ch.IsClosed() || r.conn.IsClosed() {
		if time.Now().Before(r.retryAt) {
			return fmt.Errorf("failed to publish %s: %w", event.Type, ErrUnavailable)
		}
		r.logger.Warn("rabbitmq channel closed, reconnecting")
		if err := r.connect(ctx); err != nil {
			r.retryAt = time.Now().Add(r.backoff)
			return err
		}
		r.retryAt = time.Time{}
	}

	if err := r.ch.PublishWithContext(ctx,
		Exchange,   // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	r.logger.Debug("event published", zap.String("event_type", event.Type))
	return nil
}

// Close releases the channel and connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn.Close()
	}
	return nil
}

func encode(event core.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		Timestamp:    ts,
	}, nil
}
