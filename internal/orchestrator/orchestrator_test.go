package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewaypkg "github.com/home-assistant/mobile-apps-fcm-push/internal/gateway"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/quirks"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/ratelimit"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/telemetry"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/transform"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]models.RateLimitRecord
	err     error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]models.RateLimitRecord{}}
}

func (s *memStore) Read(ctx context.Context, token string) (models.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.RateLimitRecord{}, s.err
	}
	return s.records[token], nil
}

func (s *memStore) IncrementAttempt(ctx context.Context, token string) (models.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.RateLimitRecord{}, s.err
	}
	rec := s.records[token]
	rec.AttemptsCount++
	s.records[token] = rec
	return rec, nil
}

func (s *memStore) RecordSuccess(ctx context.Context, token string) (models.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.RateLimitRecord{}, s.err
	}
	rec := s.records[token]
	rec.DeliveredCount++
	rec.TotalCount++
	s.records[token] = rec
	return rec, nil
}

func (s *memStore) RecordError(ctx context.Context, token string) (models.RateLimitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.RateLimitRecord{}, s.err
	}
	rec := s.records[token]
	rec.ErrorCount++
	rec.TotalCount++
	s.records[token] = rec
	return rec, nil
}

func (s *memStore) Close() error { return nil }

var _ ratelimit.Store = (*memStore)(nil)

type fakeGateway struct {
	sent      []models.OutgoingPayload
	nextErr   error
	messageID string
}

func (g *fakeGateway) Send(ctx context.Context, token string, payload models.OutgoingPayload) (string, error) {
	g.sent = append(g.sent, payload)
	if g.nextErr != nil {
		return "", g.nextErr
	}
	if g.messageID == "" {
		return "msg-1", nil
	}
	return g.messageID, nil
}

var _ gatewaypkg.PushGateway = (*fakeGateway)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(store ratelimit.Store, gw gatewaypkg.PushGateway, maximum int64) *Orchestrator {
	engine := ratelimit.NewEngine(store, maximum)
	errorLog := telemetry.New(testLogger(), "global")
	return New(engine, gw, errorLog, testLogger())
}

func legacyRequest(token string) *models.NotificationRequest {
	return &models.NotificationRequest{
		PushToken: token,
		Message:   "hello",
		Title:     "Kitchen",
		RegistrationInfo: models.RegistrationInfo{
			AppID: "com.example.other",
		},
	}
}

func TestSend_HappyPath_Returns201WithMessageID(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	orch := newTestOrchestrator(store, gw, 500)
	transformer := transform.NewLegacy(quirks.Default())

	outcome := orch.Send(context.Background(), transformer, legacyRequest("abc:1"))

	require.Equal(t, 201, outcome.StatusCode)
	body := outcome.Body.(map[string]interface{})
	assert.Equal(t, "msg-1", body["messageId"])
	assert.Equal(t, "abc:1", body["target"])
	rateLimits := body["rateLimits"].(models.RateLimits)
	assert.Equal(t, int64(1), rateLimits.Successful)
}

func TestSend_MissingToken_Returns403(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	orch := newTestOrchestrator(store, gw, 500)
	transformer := transform.NewLegacy(quirks.Default())

	outcome := orch.Send(context.Background(), transformer, legacyRequest(""))

	require.Equal(t, 403, outcome.StatusCode)
	body := outcome.Body.(map[string]interface{})
	assert.Equal(t, "You did not send a token!", body["errorMessage"])
	assert.Empty(t, gw.sent)
}

func TestSend_InvalidTokenShape_Returns403(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	orch := newTestOrchestrator(store, gw, 500)
	transformer := transform.NewLegacy(quirks.Default())

	outcome := orch.Send(context.Background(), transformer, legacyRequest("legacySNS"))

	require.Equal(t, 403, outcome.StatusCode)
	body := outcome.Body.(map[string]interface{})
	assert.Equal(t, "That is not a valid FCM token", body["errorMessage"])
}

func TestSend_ExactThreshold_FiresRateLimitNotificationAndReturns429(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	orch := newTestOrchestrator(store, gw, 2)
	transformer := transform.NewLegacy(quirks.Default())
	ctx := context.Background()

	first := orch.Send(ctx, transformer, legacyRequest("abc:1"))
	require.Equal(t, 201, first.StatusCode)

	second := orch.Send(ctx, transformer, legacyRequest("abc:1"))
	require.Equal(t, 201, second.StatusCode)

	// The second RecordSuccess brings deliveredCount to maximum, so the
	// best-effort rate-limit push goes out right after the second send,
	// and a third request observes isRateLimited (2 real sends + 1
	// rate-limit push).
	third := orch.Send(ctx, transformer, legacyRequest("abc:1"))
	require.Equal(t, 429, third.StatusCode)
	body := third.Body.(map[string]interface{})
	assert.Equal(t, "RateLimited", body["errorType"])

	assert.Len(t, gw.sent, 3)
	rateLimitPush := gw.sent[2]
	fcmOptions := rateLimitPush["fcm_options"].(map[string]interface{})
	assert.Equal(t, "rateLimitNotification", fcmOptions["analytics_label"])
}

func TestSend_InvalidTokenGatewayError_ClassifiesAndSkipsLog(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{nextErr: &gatewaypkg.Error{Code: "registration-token-not-registered", Message: "token gone"}}
	var errorLogBuf bytes.Buffer
	errorLog := telemetry.New(slog.New(slog.NewTextHandler(&errorLogBuf, nil)), "global")
	orch := New(ratelimit.NewEngine(store, 500), gw, errorLog, testLogger())
	transformer := transform.NewLegacy(quirks.Default())

	outcome := orch.Send(context.Background(), transformer, legacyRequest("abc:1"))

	require.Equal(t, 500, outcome.StatusCode)
	body := outcome.Body.(map[string]interface{})
	assert.Equal(t, "InvalidToken", body["errorType"])
	assert.Equal(t, "registration-token-not-registered", body["errorCode"])
	assert.Equal(t, "sendNotification", body["errorStep"])
	assert.Empty(t, errorLogBuf.String())

	rec, err := store.Read(context.Background(), "abc:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.ErrorCount)
}

func TestSend_StoreFailureDuringAdmission_IsInternalError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	gw := &fakeGateway{}
	orch := newTestOrchestrator(store, gw, 500)
	transformer := transform.NewLegacy(quirks.Default())

	outcome := orch.Send(context.Background(), transformer, legacyRequest("abc:1"))

	require.Equal(t, 500, outcome.StatusCode)
	body := outcome.Body.(map[string]interface{})
	assert.Equal(t, "InternalError", body["errorType"])
	assert.Equal(t, "getRateLimitDoc", body["errorStep"])
}

func TestCheck_ReadOnly_DoesNotMutateCounters(t *testing.T) {
	store := newMemStore()
	gw := &fakeGateway{}
	orch := newTestOrchestrator(store, gw, 500)

	outcome := orch.Check(context.Background(), &models.CheckRequest{PushToken: "abc:1"})
	require.Equal(t, 200, outcome.StatusCode)
	body := outcome.Body.(map[string]interface{})
	rateLimits := body["rateLimits"].(models.RateLimits)
	assert.Equal(t, int64(0), rateLimits.Attempts)
	assert.Empty(t, gw.sent)
}
