// Package audit records a durable trail of every send/check outcome
// this service produces, supplementing spec's ambient error logging
// (internal/telemetry) with a queryable history. Home Assistant's own
// operators have asked, historically, "did notification X actually go
// out" — a question the structured error log alone can't answer once
// the log has scrolled past retention, since it only ever records
// failures. The audit trail records every outcome, success included.
//
// Grounded on the teacher's internal/repository/status_store.go (the
// gorm/postgres status table) and internal/consumer/base_consumer.go
// (the streadway/amqp wiring), both adapted here to a fire-and-forget
// event stream instead of the teacher's request/response status table
// and inbound work queue.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Event is one recorded outcome of a send or check pipeline run.
type Event struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Route      string    `gorm:"index" json:"route"`
	TokenHash  string    `json:"token_hash"`
	WebhookID  string    `json:"webhook_id"`
	StatusCode int       `json:"status_code"`
	ErrorType  string    `json:"error_type,omitempty"`
	MessageID  string    `json:"message_id,omitempty"`
	LatencyMS  int64     `gorm:"column:latency_ms" json:"latency_ms"`
	OccurredAt time.Time `gorm:"index" json:"occurred_at"`
}

// TableName pins the gorm table name independent of the type name.
func (Event) TableName() string { return "audit_events" }

// hashToken reduces a push token to a value safe to keep in a long-lived
// audit table: enough to correlate repeat occurrences of the same
// device without the table itself becoming a store of live FCM tokens.
func hashToken(pushToken string) string {
	sum := sha256.Sum256([]byte(pushToken))
	return hex.EncodeToString(sum[:])
}

// NewEvent stamps a fresh Event with a random ID and the current time.
// now is supplied by the caller (rather than time.Now inline) so tests
// can pin it. latency is the time the pipeline spent producing the
// outcome being recorded, end to end.
func NewEvent(route, pushToken, webhookID string, statusCode int, errorType, messageID string, latency time.Duration, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Route:      route,
		TokenHash:  hashToken(pushToken),
		WebhookID:  webhookID,
		StatusCode: statusCode,
		ErrorType:  errorType,
		MessageID:  messageID,
		LatencyMS:  latency.Milliseconds(),
		OccurredAt: now,
	}
}
