package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/quirks"
)

func iosRequest(message string, data map[string]interface{}) *models.NotificationRequest {
	return &models.NotificationRequest{
		PushToken: "ios-token",
		Message:   message,
		Title:     "",
		RegistrationInfo: models.RegistrationInfo{
			AppID: "io.robbie.HomeAssistant",
		},
		Data: data,
	}
}

func TestIOSV1_ClearBadge_IsSilentAndBackgroundPushType(t *testing.T) {
	build := NewIOSV1(quirks.Default())
	result := build(iosRequest("clear_badge", nil))

	assert.False(t, result.UpdateRateLimits)
	payload := result.Payload
	_, hasNotification := payload["notification"]
	assert.False(t, hasNotification)

	aps := apsMap(payload)
	assert.Equal(t, 0, aps["badge"])
	assert.Equal(t, true, aps["contentAvailable"])

	homeassistant, _ := apnsPayloadMap(payload)["homeassistant"].(map[string]interface{})
	require.NotNil(t, homeassistant)
	assert.Equal(t, "clear_badge", homeassistant["command"])

	headers := payload["apns"].(map[string]interface{})["headers"].(map[string]interface{})
	assert.Equal(t, "background", headers["apns-push-type"])
}

func TestIOSV1_RequestLocationUpdates_AliasesToSingularCommand(t *testing.T) {
	build := NewIOSV1(quirks.Default())
	result := build(iosRequest("request_location_updates", nil))

	homeassistant := apnsPayloadMap(result.Payload)["homeassistant"].(map[string]interface{})
	assert.Equal(t, "request_location_update", homeassistant["command"])
	assert.False(t, result.UpdateRateLimits)
}

func TestIOSV1_DeleteAlert_StripsExistingAlertInPlace(t *testing.T) {
	req := iosRequest("delete_alert", nil)
	req.Title = "old title"
	build := NewIOSV1(quirks.Default())
	result := build(req)

	payload := result.Payload
	_, hasBody := payload["notification"].(map[string]interface{})["body"]
	assert.False(t, hasBody)
	aps := apsMap(payload)
	_, hasSound := aps["sound"]
	assert.False(t, hasSound)
	assert.False(t, result.UpdateRateLimits)
}

func TestIOSV1_NonCommand_SetsCategoryAndMutableContentFromEntityID(t *testing.T) {
	build := NewIOSV1(quirks.Default())
	result := build(iosRequest("hello", map[string]interface{}{
		"entity_id": "light.kitchen",
	}))

	apnsPayload := apnsPayloadMap(result.Payload)
	assert.Equal(t, "light.kitchen", apnsPayload["entity_id"])
	aps := apsMap(result.Payload)
	assert.Equal(t, "DYNAMIC", aps["category"])
	assert.Equal(t, true, aps["mutableContent"])
	assert.True(t, result.UpdateRateLimits)
}

func TestIOSV1_SoundNone_IsRemoved(t *testing.T) {
	build := NewIOSV1(quirks.Default())
	result := build(iosRequest("hello", map[string]interface{}{
		"sound": "None",
	}))

	aps := apsMap(result.Payload)
	_, hasSound := aps["sound"]
	assert.False(t, hasSound)
}

func TestIOSV1_CriticalAudibleSound_DisablesRateLimitAccounting(t *testing.T) {
	build := NewIOSV1(quirks.Default())
	result := build(iosRequest("hello", map[string]interface{}{
		"sound": map[string]interface{}{
			"name":     "alarm.caf",
			"critical": 1,
			"volume":   0.8,
		},
	}))

	assert.False(t, result.UpdateRateLimits)
	aps := apsMap(result.Payload)
	sound := aps["sound"].(map[string]interface{})
	assert.Equal(t, 1, sound["critical"])
	assert.Equal(t, 0.8, sound["volume"])
}

func TestIOSV1_CatalinaOSVersion_StripsSoundExtension(t *testing.T) {
	req := iosRequest("hello", map[string]interface{}{"sound": "alarm.caf"})
	req.RegistrationInfo.OSVersion = "10.15.7"
	build := NewIOSV1(quirks.Default())
	result := build(req)

	aps := apsMap(result.Payload)
	assert.Equal(t, "alarm", aps["sound"])
}

func TestIOSV1_AttachmentShorthand_DoesNotOverwriteExplicitURL(t *testing.T) {
	build := NewIOSV1(quirks.Default())
	result := build(iosRequest("hello", map[string]interface{}{
		"attachment": map[string]interface{}{"url": "https://example.com/explicit.jpg"},
		"image":      "https://example.com/shorthand.jpg",
	}))

	apnsPayload := apnsPayloadMap(result.Payload)
	attachment := apnsPayload["attachment"].(map[string]interface{})
	assert.Equal(t, "https://example.com/explicit.jpg", attachment["url"])
	assert.Equal(t, "jpeg", attachment["content-type"])
}

func TestIOSV1_Tag_BecomesApnsCollapseID(t *testing.T) {
	build := NewIOSV1(quirks.Default())
	result := build(iosRequest("hello", map[string]interface{}{
		"tag": "weather-alert",
	}))

	headers := result.Payload["apns"].(map[string]interface{})["headers"].(map[string]interface{})
	assert.Equal(t, "weather-alert", headers["apns-collapse-id"])
}
