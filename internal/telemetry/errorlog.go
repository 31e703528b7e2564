// Package telemetry builds the structured error log entries spec §6
// requires: one entry per failed processing step, named "errors-<step>",
// carrying enough context (the request body, the derived notification,
// and registration_info) to diagnose the failure without reproducing it.
//
// Grounded on the teacher's pkg/logger, which is a thin log/slog
// constructor; this package is the equivalent for the one structured
// record shape spec.md pins down, built on the same logger.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
)

// ErrorLog emits the errors-<step> structured record.
type ErrorLog struct {
	logger       *slog.Logger
	resourceType string
}

// New builds an ErrorLog over logger. resourceType is the resource.type
// label — "global" by default, or "cloud_function"/"cloud_run" when
// hosted on one of those platforms.
func New(logger *slog.Logger, resourceType string) *ErrorLog {
	if resourceType == "" {
		resourceType = "global"
	}
	return &ErrorLog{logger: logger, resourceType: resourceType}
}

// Emit writes one errors-<step> record at ERROR severity.
func (e *ErrorLog) Emit(ctx context.Context, step string, cause error, requestBody *models.NotificationRequest, notification models.OutgoingPayload) {
	logName := fmt.Sprintf("errors-%s", step)
	reg := models.RegistrationInfo{}
	if requestBody != nil {
		reg = requestBody.RegistrationInfo
	}
	e.logger.ErrorContext(ctx, logName,
		"severity", "ERROR",
		"resource.type", e.resourceType,
		"step", step,
		"error", cause.Error(),
		"request", requestBody,
		"notification", notification,
		"app_id", reg.AppID,
		"app_version", reg.AppVersion,
		"os_version", reg.OSVersion,
		"webhook_id", reg.WebhookID,
	)
}
