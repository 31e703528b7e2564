// Package httpapi wires the orchestrator and payload transformers to the
// HTTP surface: /sendPushNotification, /androidV1, /iOSV1,
// /checkRateLimits, /health, and /metrics.
//
// Grounded on the teacher's internal/routes/routes.go: a single
// NewRouter constructor over http.ServeMux, a /health handler returning
// uptime/timestamp metadata, and a /metrics handle delegated to the
// metrics package's own Handler.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/audit"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/orchestrator"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/quirks"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/transform"
	"github.com/home-assistant/mobile-apps-fcm-push/pkg/metrics"
)

// auditRecorder is the subset of *audit.Recorder the router depends on,
// declared locally so tests can substitute a fake without a live
// Postgres/AMQP connection; only audit.RecordArgs, a plain data struct,
// is shared with internal/audit. A nil auditRecorder disables recording.
type auditRecorder interface {
	Record(ctx context.Context, args audit.RecordArgs)
}

// Router builds the mux for this service's HTTP surface.
type Router struct {
	orch    *orchestrator.Orchestrator
	metrics *metrics.Metrics
	logger  *slog.Logger
	audit   auditRecorder

	legacy    models.Transformer
	androidV1 models.Transformer
	iosV1     models.Transformer

	started time.Time
}

// NewRouter builds the three transformer variants from quirkSet and
// returns a Router ready to have Handler() mounted.
func NewRouter(orch *orchestrator.Orchestrator, metricsCollector *metrics.Metrics, quirkSet *quirks.Set, logger *slog.Logger, started time.Time) *Router {
	return &Router{
		orch:      orch,
		metrics:   metricsCollector,
		logger:    logger,
		legacy:    transform.NewLegacy(quirkSet),
		androidV1: transform.NewAndroidV1(quirkSet),
		iosV1:     transform.NewIOSV1(quirkSet),
		started:   started,
	}
}

// WithAudit attaches an audit trail recorder. Optional: a Router with
// no recorder simply skips the audit side effect.
func (rt *Router) WithAudit(recorder auditRecorder) *Router {
	rt.audit = recorder
	return rt
}

// Handler returns the fully wired http.Handler.
func (rt *Router) Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/sendPushNotification", rt.sendHandler("sendPushNotification", rt.legacy))
	mux.HandleFunc("/androidV1", rt.sendHandler("androidV1", rt.androidV1))
	mux.HandleFunc("/iOSV1", rt.sendHandler("iOSV1", rt.iosV1))
	mux.HandleFunc("/checkRateLimits", rt.checkHandler)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "push service healthy",
			"meta": map[string]interface{}{
				"uptime_seconds": int(time.Since(rt.started).Seconds()),
				"timestamp":      time.Now().UTC(),
			},
		})
	})

	mux.Handle("/metrics", metrics.Handler(gatherer))

	return mux
}

func (rt *Router) sendHandler(route string, transformer models.Transformer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rt.metrics.InFlightInc()
		defer rt.metrics.InFlightDec()

		var req models.NotificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			rt.logger.WarnContext(r.Context(), "malformed request body", "route", route, "error", err)
			rt.metrics.ObserveRequest(route, "bad_request")
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"errorMessage": "malformed request body",
			})
			return
		}

		start := time.Now()
		outcome := rt.orch.Send(r.Context(), transformer, &req)
		latency := time.Since(start)
		rt.recordOutcome(route, outcome.StatusCode)
		rt.auditOutcome(route, req.PushToken, req.RegistrationInfo.WebhookID, latency, outcome)
		writeJSON(w, outcome.StatusCode, outcome.Body)
	}
}

func (rt *Router) checkHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.logger.WarnContext(r.Context(), "malformed request body", "route", "checkRateLimits", "error", err)
		rt.metrics.ObserveRequest("checkRateLimits", "bad_request")
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errorMessage": "malformed request body",
		})
		return
	}

	start := time.Now()
	outcome := rt.orch.Check(r.Context(), &req)
	latency := time.Since(start)
	rt.recordOutcome("checkRateLimits", outcome.StatusCode)
	rt.auditOutcome("checkRateLimits", req.PushToken, "", latency, outcome)
	writeJSON(w, outcome.StatusCode, outcome.Body)
}

// auditOutcome fires the audit trail write in the background: the audit
// record is a supplementary log, not something a caller should wait on.
func (rt *Router) auditOutcome(route, pushToken, webhookID string, latency time.Duration, outcome orchestrator.Outcome) {
	if rt.audit == nil {
		return
	}
	body, _ := outcome.Body.(map[string]interface{})
	errorType, _ := body["errorType"].(string)
	messageID, _ := body["messageId"].(string)
	go rt.audit.Record(context.Background(), audit.RecordArgs{
		Route:      route,
		PushToken:  pushToken,
		WebhookID:  webhookID,
		StatusCode: outcome.StatusCode,
		ErrorType:  errorType,
		MessageID:  messageID,
		Latency:    latency,
	})
}

func (rt *Router) recordOutcome(route string, statusCode int) {
	outcome := "ok"
	switch {
	case statusCode == http.StatusTooManyRequests:
		outcome = "rate_limited"
		rt.metrics.ObserveRateLimited(route)
	case statusCode == http.StatusForbidden:
		outcome = "invalid_token"
	case statusCode >= 500:
		outcome = "error"
	}
	rt.metrics.ObserveRequest(route, outcome)
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
