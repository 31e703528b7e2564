package ratelimit

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
)

// FirestoreStore is the document-store backend from spec §4.1: one
// document per (token, day), scoped under a per-day parent document so a
// deployment can enumerate or expire a whole day's tokens at once.
// Grounded on AndreMarthinsen-Golang-Renewable-energy-api's
// firebase/caching.go (transactional Firestore access pattern) and
// handlers/notifications/notification.go (codes.NotFound handling).
type FirestoreStore struct {
	client         *firestore.Client
	collectionName string
}

// NewFirestoreStore wires a FirestoreStore against an already-authenticated
// client. collection defaults to "rateLimits" per spec §6.
func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = "rateLimits"
	}
	return &FirestoreStore{client: client, collectionName: collection}
}

func (s *FirestoreStore) docRef(token string, at time.Time) *firestore.DocumentRef {
	return s.client.Collection(s.collectionName).Doc(dayKey(at)).Collection("tokens").Doc(token)
}

// Read performs a cheap, non-transactional get, per spec §4.1's allowance
// for the document-store variant.
func (s *FirestoreStore) Read(ctx context.Context, token string) (models.RateLimitRecord, error) {
	now := time.Now()
	snap, err := s.docRef(token, now).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.RateLimitRecord{}, nil
		}
		return models.RateLimitRecord{}, err
	}
	var rec models.RateLimitRecord
	if err := snap.DataTo(&rec); err != nil {
		return models.RateLimitRecord{}, err
	}
	return rec, nil
}

// IncrementAttempt creates the document on first use for the day and
// increments attemptsCount inside a serializable transaction.
func (s *FirestoreStore) IncrementAttempt(ctx context.Context, token string) (models.RateLimitRecord, error) {
	return s.mutate(ctx, token, func(rec *models.RateLimitRecord, now time.Time) {
		rec.AttemptsCount++
		rec.ExpiresAt = nextMidnightUTC(now)
	})
}

// RecordSuccess increments deliveredCount and totalCount together.
func (s *FirestoreStore) RecordSuccess(ctx context.Context, token string) (models.RateLimitRecord, error) {
	return s.mutate(ctx, token, func(rec *models.RateLimitRecord, now time.Time) {
		rec.DeliveredCount++
		rec.TotalCount++
	})
}

// RecordError increments errorCount and totalCount together.
func (s *FirestoreStore) RecordError(ctx context.Context, token string) (models.RateLimitRecord, error) {
	return s.mutate(ctx, token, func(rec *models.RateLimitRecord, now time.Time) {
		rec.ErrorCount++
		rec.TotalCount++
	})
}

// mutate applies fn to the current record (or a zeroed one if the document
// does not yet exist) inside a Firestore transaction, and persists the
// result. Two concurrent mutations for the same token serialize on the
// same document, satisfying the Store contract's linearizability
// guarantee.
func (s *FirestoreStore) mutate(
	ctx context.Context,
	token string,
	fn func(rec *models.RateLimitRecord, now time.Time),
) (models.RateLimitRecord, error) {
	now := time.Now()
	ref := s.docRef(token, now)
	var result models.RateLimitRecord

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var rec models.RateLimitRecord
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			if derr := snap.DataTo(&rec); derr != nil {
				return derr
			}
		}
		if rec.ExpiresAt.IsZero() {
			rec.ExpiresAt = nextMidnightUTC(now)
		}
		fn(&rec, now)
		result = rec
		return tx.Set(ref, rec)
	})
	if err != nil {
		return models.RateLimitRecord{}, err
	}
	return result, nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
