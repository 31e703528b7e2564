package ratelimit

import (
	"context"
	"sync"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
)

// fakeStore is an in-memory Store used to exercise Engine without a live
// backend. It serializes all mutations behind a mutex, mirroring the
// linearizability the real backends provide via transactions.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]models.RateLimitRecord
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]models.RateLimitRecord{}}
}

func (f *fakeStore) Read(_ context.Context, token string) (models.RateLimitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.RateLimitRecord{}, f.err
	}
	return f.records[token], nil
}

func (f *fakeStore) IncrementAttempt(_ context.Context, token string) (models.RateLimitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.RateLimitRecord{}, f.err
	}
	rec := f.records[token]
	rec.AttemptsCount++
	f.records[token] = rec
	return rec, nil
}

func (f *fakeStore) RecordSuccess(_ context.Context, token string) (models.RateLimitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.RateLimitRecord{}, f.err
	}
	rec := f.records[token]
	rec.DeliveredCount++
	rec.TotalCount++
	f.records[token] = rec
	return rec, nil
}

func (f *fakeStore) RecordError(_ context.Context, token string) (models.RateLimitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.RateLimitRecord{}, f.err
	}
	rec := f.records[token]
	rec.ErrorCount++
	rec.TotalCount++
	f.records[token] = rec
	return rec, nil
}

func (f *fakeStore) Close() error { return nil }
