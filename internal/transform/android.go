package transform

import (
	"fmt"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/quirks"
)

// NewAndroidV1 returns the /androidV1 transformer. Like NewIOSV1, it
// always runs the Home Assistant Android quirk set unconditionally: this
// endpoint serves only the shipping Android companion app.
func NewAndroidV1(quirkSet *quirks.Set) models.Transformer {
	return func(req *models.NotificationRequest) models.TransformResult {
		payload := buildCommonSeed(req, nil)
		updateRateLimits := applyHomeAssistantAndroid(req, payload, quirkSet)
		setAnalyticsLabel(payload, AnalyticsLabelAndroidV1)
		return models.TransformResult{UpdateRateLimits: updateRateLimits, Payload: payload}
	}
}

var androidActionFields = []string{"key", "title", "uri", "behavior"}

// applyHomeAssistantAndroid implements the Android data-key processing:
// actions[] indexed into action_<i>_<field>, ttl/priority copied into the
// android sub-tree, the quirks allow-listed keys stringified into data,
// and message/title/webhook_id always reflected into data.
func applyHomeAssistantAndroid(req *models.NotificationRequest, payload models.OutgoingPayload, quirkSet *quirks.Set) bool {
	updateRateLimits := true
	dataTree := payload.EnsureMap("data")

	if data := req.Data; data != nil {
		if actions, ok := data["actions"].([]interface{}); ok {
			for i, raw := range actions {
				actionMap, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				idx := i + 1
				for _, field := range androidActionFields {
					if v, ok := actionMap[field]; ok {
						dataTree[fmt.Sprintf("action_%d_%s", idx, field)] = v
					}
				}
			}
		}

		androidTree := payload.EnsureMap("android")
		if ttl, ok := data["ttl"]; ok {
			androidTree["ttl"] = ttl
		}
		if priority, ok := data["priority"]; ok {
			androidTree["priority"] = priority
		}

		for key, val := range data {
			if !quirkSet.IsAndroidKey(key) {
				continue
			}
			dataTree[key] = fmt.Sprint(val)
		}
	}

	if quirkSet.IsAndroidCommand(req.Message) {
		updateRateLimits = false
	}

	dataTree["message"] = req.Message
	dataTree["title"] = req.Title
	dataTree["webhook_id"] = req.RegistrationInfo.WebhookID

	return updateRateLimits
}
