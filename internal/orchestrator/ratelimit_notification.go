package orchestrator

import (
	"fmt"
	"strconv"
	"time"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
)

// buildRateLimitNotification returns the fixed one-shot payload spec §4.4
// defines for the "you've hit your daily quota" push: same
// notification/data/localization shape regardless of which endpoint
// triggered it.
func buildRateLimitNotification(maximum int64, resetsAt time.Time) models.OutgoingPayload {
	payload := models.OutgoingPayload{}

	notification := payload.EnsureMap("notification")
	notification["title"] = "Notifications Rate Limited"
	notification["body"] = fmt.Sprintf("You have reached the maximum of %d notifications allowed per day.", maximum)

	data := payload.EnsureMap("data")
	data["rateLimited"] = "true"
	data["maxNotificationsPerDay"] = strconv.FormatInt(maximum, 10)
	data["resetsAt"] = resetsAt.Format(time.RFC3339)

	android := payload.EnsureMap("android")
	androidNotification := nestedMap(android, "notification")
	androidNotification["title_loc_key"] = "rate_limit_notification.title"
	androidNotification["body_loc_key"] = "rate_limit_notification.body"

	apns := payload.EnsureMap("apns")
	apnsPayload := nestedMap(apns, "payload")
	aps := nestedMap(apnsPayload, "aps")
	alert := nestedMap(aps, "alert")
	alert["title-loc-key"] = "rate_limit_notification.title"
	alert["loc-key"] = "rate_limit_notification.body"

	fcmOptions := payload.EnsureMap("fcm_options")
	fcmOptions["analytics_label"] = "rateLimitNotification"

	return payload
}

func nestedMap(m map[string]interface{}, key string) map[string]interface{} {
	if existing, ok := m[key].(map[string]interface{}); ok {
		return existing
	}
	nm := map[string]interface{}{}
	m[key] = nm
	return nm
}
