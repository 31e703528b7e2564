// Package ratelimit implements the per-token daily quota engine described
// in spec §4.1-4.2: a backend-agnostic Store contract plus a thin Engine
// wrapper that derives admission/accounting decisions from it.
package ratelimit

import (
	"context"
	"time"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
)

// Store is the contract every rate-limit backend must satisfy. Each
// mutating method is linearizable with respect to other mutating calls on
// the same (token, day) — this is what lets the orchestrator's
// strict-equality trigger (deliveredCount == maximum after RecordSuccess)
// fire exactly once across replicas.
type Store interface {
	// Read returns the current record for token's current UTC day, or a
	// zero-valued record if none exists. It never mutates state.
	Read(ctx context.Context, token string) (models.RateLimitRecord, error)

	// IncrementAttempt atomically creates-if-absent and increments
	// attemptsCount by one, refreshing expiresAt to the next UTC midnight.
	IncrementAttempt(ctx context.Context, token string) (models.RateLimitRecord, error)

	// RecordSuccess atomically increments deliveredCount and totalCount.
	RecordSuccess(ctx context.Context, token string) (models.RateLimitRecord, error)

	// RecordError atomically increments errorCount and totalCount.
	RecordError(ctx context.Context, token string) (models.RateLimitRecord, error)

	// Close releases backend resources (connections, clients) held by the
	// store. Safe to call once during shutdown.
	Close() error
}

// dayKey formats t's UTC calendar date as YYYYMMDD, the bucket boundary
// spec §4.1 defines for both backends.
func dayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

// nextMidnightUTC returns the instant the current UTC day's bucket
// expires: midnight UTC of the following day.
func nextMidnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}

// nextMidnightLocal returns midnight of (today+1) in t's own location.
// spec §9 documents this as existing, timezone-sensitive behavior for
// RateLimits.ResetsAt: it is deliberately not reconciled with the UTC
// day-bucket boundary above.
func nextMidnightLocal(t time.Time) time.Time {
	l := t.Local()
	return time.Date(l.Year(), l.Month(), l.Day()+1, 0, 0, 0, 0, l.Location())
}
