// Package orchestrator wires the payload transformer, the rate-limit
// engine, and the push gateway into the state machine spec §4.4
// describes: validate, transform, admit, send, account, classify. It
// never panics or aborts on a single request's failure; every path ends
// in either a classified HTTP outcome or a best-effort degraded step
// that logs and continues.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/gateway"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/ratelimit"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/telemetry"
)

// Outcome is the fully-formed result of one orchestrator call: an HTTP
// status and a JSON-serializable body. The httpapi layer does nothing but
// write these out.
type Outcome struct {
	StatusCode int
	Body       interface{}
}

// Orchestrator holds the collaborators every request pipeline call
// shares. It carries no per-request mutable state, per spec §5's
// concurrency model.
type Orchestrator struct {
	engine   *ratelimit.Engine
	gateway  gateway.PushGateway
	errorLog *telemetry.ErrorLog
	logger   *slog.Logger
}

// New builds an Orchestrator over its collaborators.
func New(engine *ratelimit.Engine, pushGateway gateway.PushGateway, errorLog *telemetry.ErrorLog, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{engine: engine, gateway: pushGateway, errorLog: errorLog, logger: logger}
}

// Send runs the full send pipeline for req using transform to build the
// wire payload. transform is supplied by the caller (the httpapi handler
// picks legacy/android-v1/ios-v1 by route).
func (o *Orchestrator) Send(ctx context.Context, transform models.Transformer, req *models.NotificationRequest) Outcome {
	if outcome, ok := validateToken(req.PushToken); !ok {
		return outcome
	}

	result := transform(req)

	status, err := o.engine.Check(ctx, req.PushToken)
	if err != nil {
		return o.respondClassified(ctx, err, "getRateLimitDoc", req, result.Payload)
	}

	if result.UpdateRateLimits {
		status, err = o.engine.RecordAttempt(ctx, req.PushToken)
		if err != nil {
			return o.respondClassified(ctx, err, "updateRateLimitDocument", req, result.Payload)
		}

		if status.IsRateLimited {
			return Outcome{
				StatusCode: 429,
				Body: map[string]interface{}{
					"errorType":  "RateLimited",
					"message":    "Rate limit exceeded",
					"target":     req.PushToken,
					"rateLimits": status.RateLimits,
				},
			}
		}
	}

	messageID, sendErr := o.gateway.Send(ctx, req.PushToken, result.Payload)
	if sendErr != nil {
		if result.UpdateRateLimits {
			if _, recErr := o.engine.RecordError(ctx, req.PushToken); recErr != nil {
				o.logger.ErrorContext(ctx, "failed to record send error", "error", recErr)
			}
		}
		return o.respondClassified(ctx, sendErr, "sendNotification", req, result.Payload)
	}

	// The strict-equality trigger is evaluated here, against the record a
	// successful RecordSuccess just produced — not against RecordAttempt's
	// pre-send status. RecordAttempt never touches deliveredCount, so
	// checking it there would re-fire the one-shot on every request after
	// the token is already rate limited; checking post-RecordSuccess fires
	// it exactly once, on the specific delivery that crosses the
	// threshold (spec §8 scenario 4).
	rateLimits := status.RateLimits
	if result.UpdateRateLimits {
		updated, recErr := o.engine.RecordSuccess(ctx, req.PushToken)
		if recErr != nil {
			return o.respondClassified(ctx, recErr, "updateRateLimitDocument", req, result.Payload)
		}
		rateLimits = updated
		if rateLimits.Successful == rateLimits.Maximum {
			o.sendRateLimitNotificationBestEffort(ctx, req, rateLimits.Maximum, rateLimits.ResetsAt)
		}
	}

	return Outcome{
		StatusCode: 201,
		Body: map[string]interface{}{
			"messageId":   messageID,
			"sentPayload": result.Payload,
			"target":      req.PushToken,
			"rateLimits":  rateLimits,
		},
	}
}

// Check runs the /checkRateLimits pipeline: identical token validation,
// then a non-mutating read.
func (o *Orchestrator) Check(ctx context.Context, req *models.CheckRequest) Outcome {
	if outcome, ok := validateToken(req.PushToken); !ok {
		return outcome
	}
	status, err := o.engine.Check(ctx, req.PushToken)
	if err != nil {
		return o.respondClassified(ctx, err, "getRateLimitDoc", nil, nil)
	}
	return Outcome{
		StatusCode: 200,
		Body: map[string]interface{}{
			"target":     req.PushToken,
			"rateLimits": status.RateLimits,
		},
	}
}

func validateToken(token string) (Outcome, bool) {
	if token == "" {
		return Outcome{StatusCode: 403, Body: map[string]interface{}{"errorMessage": "You did not send a token!"}}, false
	}
	if !strings.Contains(token, ":") {
		return Outcome{StatusCode: 403, Body: map[string]interface{}{"errorMessage": "That is not a valid FCM token"}}, false
	}
	return Outcome{}, true
}

// respondClassified runs the error classifier and turns the result into
// an HTTP outcome, logging it first when the classification calls for it.
func (o *Orchestrator) respondClassified(ctx context.Context, err error, step string, req *models.NotificationRequest, notification models.OutgoingPayload) Outcome {
	ce := classify(err, step)
	if ce.shouldLog() {
		o.errorLog.Emit(ctx, step, err, req, notification)
	}
	body := map[string]interface{}{
		"errorType": ce.ErrorType,
		"errorStep": ce.ErrorStep,
		"message":   ce.Message,
	}
	if ce.ErrorCode != "" {
		body["errorCode"] = ce.ErrorCode
	}
	return Outcome{StatusCode: 500, Body: body}
}

// sendRateLimitNotificationBestEffort fires the one-shot rate-limit push.
// Any failure is classified in the classifier's non-exiting mode: logged
// (if InternalError) and otherwise dropped, never surfaced to the caller.
func (o *Orchestrator) sendRateLimitNotificationBestEffort(ctx context.Context, req *models.NotificationRequest, maximum int64, resetsAt time.Time) {
	payload := buildRateLimitNotification(maximum, resetsAt)
	if _, err := o.gateway.Send(ctx, req.PushToken, payload); err != nil {
		ce := classify(err, "sendRateLimitNotification")
		if ce.shouldLog() {
			o.errorLog.Emit(ctx, "sendRateLimitNotification", err, req, payload)
		}
	}
}
