package transform

import (
	"strings"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/quirks"
)

// NewIOSV1 returns the /iOSV1 transformer. It always runs the Home
// Assistant iOS quirk set: that endpoint exists solely to serve the
// shipping iOS app, so there is no app_id gate to check.
func NewIOSV1(quirkSet *quirks.Set) models.Transformer {
	return func(req *models.NotificationRequest) models.TransformResult {
		payload := buildCommonSeed(req, []string{"apns", "data"})
		updateRateLimits := applyHomeAssistantIOS(req, payload, quirkSet)
		setAnalyticsLabel(payload, AnalyticsLabelIOSV1)
		return models.TransformResult{UpdateRateLimits: updateRateLimits, Payload: payload}
	}
}

// applyHomeAssistantIOS dispatches between the command-overload path and
// the ordinary notification-data path, and is shared by the legacy
// transformer's app_id-gated branch.
func applyHomeAssistantIOS(req *models.NotificationRequest, payload models.OutgoingPayload, quirkSet *quirks.Set) bool {
	if name, ok := matchIOSCommand(quirkSet, req.Message); ok {
		return applyIOSCommand(payload, name, req)
	}
	return applyNonCommandIOS(req, payload)
}

func matchIOSCommand(quirkSet *quirks.Set, message string) (string, bool) {
	if !quirkSet.IsIOSCommand(message) {
		return "", false
	}
	if message == "request_location_updates" {
		return "request_location_update", true
	}
	return message, true
}

// applyIOSCommand implements the command-overload table: every command
// but delete_alert clears the notification entirely, replaces
// apns.payload.aps with a fresh silent-push shape, and stamps
// apns.payload.homeassistant.command. delete_alert instead strips the
// existing alert content in place. All command overloads disable
// rate-limit accounting.
func applyIOSCommand(payload models.OutgoingPayload, name string, req *models.NotificationRequest) bool {
	if name == "delete_alert" {
		if notification, ok := payload["notification"].(map[string]interface{}); ok {
			delete(notification, "body")
		}
		aps := apsMap(payload)
		if alert, ok := aps["alert"].(map[string]interface{}); ok {
			delete(alert, "title")
			delete(alert, "subtitle")
			delete(alert, "body")
		}
		delete(aps, "sound")
		setPushType(payload, aps)
		return false
	}

	delete(payload, "notification")
	apnsPayload := apnsPayloadMap(payload)
	aps := map[string]interface{}{"contentAvailable": true}
	apnsPayload["aps"] = aps
	homeassistant := map[string]interface{}{"command": name}

	switch name {
	case "clear_badge":
		aps["badge"] = 0
	case "clear_notification":
		if tag, ok := req.Data["tag"]; ok {
			homeassistant["tag"] = tag
		}
		if apns, ok := payload["apns"].(map[string]interface{}); ok {
			if headers, ok := apns["headers"].(map[string]interface{}); ok {
				if collapseID, ok := headers["apns-collapse-id"]; ok {
					homeassistant["collapseId"] = collapseID
					delete(headers, "apns-collapse-id")
				}
			}
		}
	}

	apnsPayload["homeassistant"] = homeassistant
	setPushType(payload, aps)
	return false
}

var attachmentShorthandContentTypes = map[string]string{
	"video": "mpeg4",
	"image": "jpeg",
	"audio": "waveformaudio",
}

// applyNonCommandIOS processes the recognized data keys for an ordinary
// (non-command) Home Assistant iOS notification and runs the universal
// post-processing invariants.
func applyNonCommandIOS(req *models.NotificationRequest, payload models.OutgoingPayload) bool {
	data := req.Data
	apnsPayload := apnsPayloadMap(payload)
	aps := ensureMap(apnsPayload, "aps")

	var needsCategory, needsMutableContent bool

	if data != nil {
		if subtitle, ok := data["subtitle"]; ok {
			alert := ensureMap(aps, "alert")
			alert["subtitle"] = subtitle
		}

		if push, ok := data["push"].(map[string]interface{}); ok {
			for k, v := range push {
				aps[k] = v
			}
		}

		if actions, ok := data["actions"]; ok {
			apnsPayload["actions"] = actions
			needsCategory = true
		}

		soundVal, hasSound := data["sound"]
		if !hasSound {
			if push, ok := data["push"].(map[string]interface{}); ok {
				if s, ok := push["sound"]; ok {
					soundVal, hasSound = s, true
				}
			}
		}
		if hasSound {
			aps["sound"] = soundVal
			if strings.HasPrefix(req.RegistrationInfo.OSVersion, "10.15") {
				stripSoundExtension(aps)
			}
		}

		if entityID, ok := data["entity_id"]; ok {
			apnsPayload["entity_id"] = entityID
			needsCategory = true
			needsMutableContent = true
		}

		if actionData, ok := data["action_data"]; ok {
			apnsPayload["homeassistant"] = actionData
			needsCategory = true
		}

		if attachmentTouched := applyAttachment(data, apnsPayload); attachmentTouched {
			needsCategory = true
			needsMutableContent = true
		}

		for _, key := range []string{"url", "shortcut", "presentation_options"} {
			if v, ok := data[key]; ok {
				apnsPayload[key] = v
			}
		}

		if tag, ok := data["tag"].(string); ok {
			apns := payload.EnsureMap("apns")
			headers := ensureMap(apns, "headers")
			headers["apns-collapse-id"] = tag
		}

		if group, ok := data["group"].(string); ok {
			aps["thread-id"] = group
		}
	}

	return finalizeIOSPostProcessing(payload, needsCategory, needsMutableContent)
}

// applyAttachment merges the attachment shorthands (video/image/audio)
// into data.attachment without overwriting a url or content-type the
// caller already supplied explicitly.
func applyAttachment(data map[string]interface{}, apnsPayload map[string]interface{}) bool {
	attachment, _ := data["attachment"].(map[string]interface{})
	touched := attachment != nil

	for _, key := range []string{"video", "image", "audio"} {
		val, ok := data[key]
		if !ok {
			continue
		}
		touched = true
		if attachment == nil {
			attachment = map[string]interface{}{}
		}
		if _, has := attachment["url"]; !has {
			attachment["url"] = val
		}
		if _, has := attachment["content-type"]; !has {
			attachment["content-type"] = attachmentShorthandContentTypes[key]
		}
	}

	if !touched {
		return false
	}
	apnsPayload["attachment"] = attachment
	return true
}

// finalizeIOSPostProcessing applies the universal invariants: category
// uppercasing/defaulting, mutable-content, sound normalization, badge
// coercion, and the apns-push-type header. It returns whether rate-limit
// accounting should still proceed for this request.
func finalizeIOSPostProcessing(payload models.OutgoingPayload, needsCategory, needsMutableContent bool) bool {
	aps := apsMap(payload)

	if cat, ok := aps["category"].(string); ok {
		aps["category"] = strings.ToUpper(cat)
	} else if needsCategory {
		aps["category"] = "DYNAMIC"
	}

	if needsMutableContent {
		aps["mutableContent"] = true
	}

	disableRateLimit := normalizeSound(aps)

	if badge, ok := aps["badge"]; ok {
		aps["badge"] = toInt(badge)
	}

	setPushType(payload, aps)

	return !disableRateLimit
}

// setPushType sets apns.headers["apns-push-type"] to "background" when the
// final payload is a silent/content-available push, "alert" otherwise.
func setPushType(payload models.OutgoingPayload, aps map[string]interface{}) {
	apns := payload.EnsureMap("apns")
	headers := ensureMap(apns, "headers")
	pushType := "alert"
	if contentAvailable, _ := aps["contentAvailable"].(bool); contentAvailable {
		pushType = "background"
	}
	headers["apns-push-type"] = pushType
}
