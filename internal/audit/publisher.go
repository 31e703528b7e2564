package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"
	"golang.org/x/time/rate"
)

const exchangeName = "audit.events"

// Publisher fans audit events out onto an AMQP exchange for downstream
// consumers (analytics, alerting) that want them faster than a
// Postgres poll would allow. Grounded on the teacher's
// internal/consumer/base_consumer.go for the exchange/channel setup
// idiom, inverted here from a consumer into a publisher.
//
// Publishing is rate limited with golang.org/x/time/rate rather than
// left unbounded: a burst of sends (e.g. a broadcast to many devices)
// must not be allowed to back up the AMQP channel faster than a
// downstream consumer can drain it. Events dropped by the limiter are
// still recorded in Postgres by Store; the queue is a supplementary
// fan-out, not the record of truth.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewPublisher dials amqpURL, declares the audit exchange, and returns
// a Publisher that allows at most limitPerSecond publishes/sec with a
// burst of the same size.
func NewPublisher(amqpURL string, limitPerSecond int, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("audit: dialing amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("audit: declaring exchange: %w", err)
	}
	if limitPerSecond <= 0 {
		limitPerSecond = 50
	}
	return &Publisher{
		conn:    conn,
		channel: ch,
		limiter: rate.NewLimiter(rate.Limit(limitPerSecond), limitPerSecond),
		logger:  logger,
	}, nil
}

// Publish best-effort fans event out onto the exchange. It never blocks
// the caller waiting on backpressure: if the limiter has no tokens
// available right now, the event is dropped from the queue (but not
// from Postgres) and logged at debug level.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if !p.limiter.Allow() {
		p.logger.DebugContext(ctx, "audit publish dropped by rate limiter", "route", event.Route, "id", event.ID)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "audit event marshal failed", "error", err)
		return
	}
	err = p.channel.Publish(exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "audit event publish failed", "error", err)
	}
}

// Close tears down the channel and connection.
func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
