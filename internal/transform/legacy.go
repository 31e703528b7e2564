package transform

import (
	"strings"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/quirks"
)

// NewLegacy returns the /sendPushNotification transformer: the superset
// endpoint that serves either shipping app depending on registration_info,
// so (unlike NewAndroidV1/NewIOSV1) it gates each platform's quirk branch
// on app_id before applying it.
func NewLegacy(quirkSet *quirks.Set) models.Transformer {
	return func(req *models.NotificationRequest) models.TransformResult {
		payload := buildCommonSeed(req, []string{"android", "apns", "data", "webpush"})

		if webhookID := req.RegistrationInfo.WebhookID; webhookID != "" {
			apnsPayloadMap(payload)["webhook_id"] = webhookID
		}

		updateRateLimits := true
		appID := req.RegistrationInfo.AppID
		switch {
		case strings.Contains(appID, iosHomeAssistantAppIDMarker):
			updateRateLimits = applyHomeAssistantIOS(req, payload, quirkSet)
		case appID == androidHomeAssistantAppID:
			updateRateLimits = applyHomeAssistantAndroid(req, payload, quirkSet)
		}

		setAnalyticsLabel(payload, AnalyticsLabelLegacy)
		return models.TransformResult{UpdateRateLimits: updateRateLimits, Payload: payload}
	}
}
