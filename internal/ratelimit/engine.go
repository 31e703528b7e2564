package ratelimit

import (
	"context"
	"time"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
)

// Engine is a stateless wrapper over a Store, parameterized by the
// configured daily maximum. It never retries: backend errors propagate
// unchanged, per spec §4.2's failure semantics.
type Engine struct {
	store   Store
	maximum int64
	now     func() time.Time
}

// NewEngine builds an Engine over store with the given daily maximum.
func NewEngine(store Store, maximum int64) *Engine {
	return &Engine{store: store, maximum: maximum, now: time.Now}
}

// Check returns the current RateLimitStatus without mutating anything.
func (e *Engine) Check(ctx context.Context, token string) (models.RateLimitStatus, error) {
	rec, err := e.store.Read(ctx, token)
	if err != nil {
		return models.RateLimitStatus{}, err
	}
	return models.DeriveStatus(rec, e.maximum, nextMidnightLocal(e.now())), nil
}

// RecordAttempt performs the single atomic increment that defines
// admission ordering for a request, and returns the resulting status.
func (e *Engine) RecordAttempt(ctx context.Context, token string) (models.RateLimitStatus, error) {
	rec, err := e.store.IncrementAttempt(ctx, token)
	if err != nil {
		return models.RateLimitStatus{}, err
	}
	return models.DeriveStatus(rec, e.maximum, nextMidnightLocal(e.now())), nil
}

// RecordSuccess accounts a delivered notification.
func (e *Engine) RecordSuccess(ctx context.Context, token string) (models.RateLimits, error) {
	rec, err := e.store.RecordSuccess(ctx, token)
	if err != nil {
		return models.RateLimits{}, err
	}
	return models.DeriveRateLimits(rec, e.maximum, nextMidnightLocal(e.now())), nil
}

// RecordError accounts a failed send attempt.
func (e *Engine) RecordError(ctx context.Context, token string) (models.RateLimits, error) {
	rec, err := e.store.RecordError(ctx, token)
	if err != nil {
		return models.RateLimits{}, err
	}
	return models.DeriveRateLimits(rec, e.maximum, nextMidnightLocal(e.now())), nil
}

// Maximum reports the configured daily quota.
func (e *Engine) Maximum() int64 {
	return e.maximum
}
