package audit

import (
	"context"
	"log/slog"
	"time"
)

// eventStore is the subset of *Store the Recorder depends on, kept as
// an interface so tests can substitute a fake without a live Postgres
// connection.
type eventStore interface {
	Record(ctx context.Context, event Event) error
}

// eventPublisher is the subset of *Publisher the Recorder depends on.
type eventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// RecordArgs bundles the outcome fields a caller passes to Record,
// mirroring what internal/httpapi/router.go already computes at the
// point a request finishes.
type RecordArgs struct {
	Route      string
	PushToken  string
	WebhookID  string
	StatusCode int
	ErrorType  string
	MessageID  string
	Latency    time.Duration
}

// Recorder is the audit trail's entry point: one call per completed
// pipeline outcome, writing to Postgres and best-effort fanning out to
// AMQP. Both steps run without blocking the HTTP response the caller
// already sent — Record is meant to be invoked from a goroutine.
type Recorder struct {
	store     eventStore
	publisher eventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecorder builds a Recorder. publisher may be nil, in which case
// events are written to Postgres only — this keeps the audit trail
// usable in deployments that don't run a message broker.
func NewRecorder(store *Store, publisher *Publisher, logger *slog.Logger) *Recorder {
	r := &Recorder{store: store, logger: logger, now: time.Now}
	if publisher != nil {
		r.publisher = publisher
	}
	return r
}

// Record persists event and, if a publisher is configured, fans it out.
func (r *Recorder) Record(ctx context.Context, args RecordArgs) {
	event := NewEvent(args.Route, args.PushToken, args.WebhookID, args.StatusCode, args.ErrorType, args.MessageID, args.Latency, r.now())
	if err := r.store.Record(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "audit record failed", "error", err, "route", args.Route)
	}
	if r.publisher != nil {
		r.publisher.Publish(ctx, event)
	}
}
