package models

import "time"

// RateLimitRecord is the persisted counter set for one (token, calendar-day
// UTC) pair. All counters are non-negative and monotonically
// non-decreasing within a day.
type RateLimitRecord struct {
	AttemptsCount  int64     `firestore:"attemptsCount" json:"attemptsCount"`
	DeliveredCount int64     `firestore:"deliveredCount" json:"deliveredCount"`
	ErrorCount     int64     `firestore:"errorCount" json:"errorCount"`
	TotalCount     int64     `firestore:"totalCount" json:"totalCount"`
	ExpiresAt      time.Time `firestore:"expiresAt" json:"expiresAt"`
}

// RateLimits is the client-facing summary derived from a RateLimitRecord.
type RateLimits struct {
	Attempts   int64     `json:"attempts"`
	Successful int64     `json:"successful"`
	Errors     int64     `json:"errors"`
	Total      int64     `json:"total"`
	Maximum    int64     `json:"maximum"`
	Remaining  int64     `json:"remaining"`
	ResetsAt   time.Time `json:"resetsAt"`
}

// RateLimitStatus is the derived, non-persisted verdict returned by the
// rate limit engine's admission calls.
type RateLimitStatus struct {
	IsRateLimited                   bool
	ShouldSendRateLimitNotification bool
	RateLimits                      RateLimits
}

// DeriveRateLimits computes a RateLimits summary from a stored record, a
// configured daily maximum, and the reset moment (midnight of the next
// local day — see spec §9's open question on timezone behavior).
func DeriveRateLimits(rec RateLimitRecord, maximum int64, resetsAt time.Time) RateLimits {
	remaining := maximum - rec.DeliveredCount
	if remaining < 0 {
		remaining = 0
	}
	return RateLimits{
		Attempts:   rec.AttemptsCount,
		Successful: rec.DeliveredCount,
		Errors:     rec.ErrorCount,
		Total:      rec.TotalCount,
		Maximum:    maximum,
		Remaining:  remaining,
		ResetsAt:   resetsAt,
	}
}

// DeriveStatus computes the RateLimitStatus for a record.
// ShouldSendRateLimitNotification is the strict-equality check
// DeliveredCount == maximum. The orchestrator fires the one-shot
// rate-limit notification from the same equality, applied to the record
// RecordSuccess returns, which makes it fire exactly once per threshold
// crossing provided RecordSuccess is linearized by the store.
func DeriveStatus(rec RateLimitRecord, maximum int64, resetsAt time.Time) RateLimitStatus {
	return RateLimitStatus{
		IsRateLimited:                    rec.DeliveredCount >= maximum,
		ShouldSendRateLimitNotification:  rec.DeliveredCount == maximum,
		RateLimits:                       DeriveRateLimits(rec, maximum, resetsAt),
	}
}
