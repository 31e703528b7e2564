// Package transform implements the payload transformer from spec §4.3:
// three pure functions, one per notification variant, each translating a
// generic models.NotificationRequest into the exact wire payload the
// shipping Home Assistant mobile apps expect. None of the three mutate
// their input; each builds a fresh models.OutgoingPayload.
package transform

import (
	"strconv"
	"strings"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
	"github.com/home-assistant/mobile-apps-fcm-push/internal/quirks"
)

// Analytics labels every variant must stamp onto fcm_options.analytics_label.
const (
	AnalyticsLabelLegacy      = "legacyNotification"
	AnalyticsLabelAndroidV1   = "androidV1Notification"
	AnalyticsLabelIOSV1       = "iosV1Notification"
	AnalyticsLabelRateLimit   = "rateLimitNotification"
	// AnalyticsLabelEncryptedV1 is reserved for the encrypted-webhook iOS
	// variant. No HTTP endpoint in this system's scope emits it; it is
	// declared alongside its siblings so the full label enumeration lives
	// in one place.
	AnalyticsLabelEncryptedV1 = "encryptedV1Notification"
)

const (
	iosHomeAssistantAppIDMarker = "io.robbie.HomeAssistant"
	androidHomeAssistantAppID   = "io.homeassistant.companion.android"
)

// buildCommonSeed applies the seed steps every variant shares: notification
// body/title, the apns.payload.aps.alert.title mirror, the variant's
// recognized top-level passthrough keys, and the apns_headers rename. A
// nil or empty passthroughKeys means the variant does no generic top-level
// passthrough (android-v1 only relies on its dedicated key processing).
func buildCommonSeed(req *models.NotificationRequest, passthroughKeys []string) models.OutgoingPayload {
	payload := models.OutgoingPayload{}
	notification := payload.EnsureMap("notification")
	if req.Message != "" {
		notification["body"] = req.Message
	}
	if req.Title != "" {
		notification["title"] = req.Title
		aps := apsMap(payload)
		alert := ensureMap(aps, "alert")
		alert["title"] = req.Title
	}
	if req.Data != nil {
		for _, key := range passthroughKeys {
			if v, ok := req.Data[key]; ok {
				payload[key] = v
			}
		}
		if headers, ok := req.Data["apns_headers"]; ok {
			apns := payload.EnsureMap("apns")
			apns["headers"] = headers
		}
	}
	return payload
}

// setAnalyticsLabel stamps the variant-specific analytics label required
// by every Build function.
func setAnalyticsLabel(payload models.OutgoingPayload, label string) {
	fcmOptions := payload.EnsureMap("fcm_options")
	fcmOptions["analytics_label"] = label
}

// ensureMap returns the nested map at key within m, creating it if absent.
func ensureMap(m map[string]interface{}, key string) map[string]interface{} {
	if existing, ok := m[key].(map[string]interface{}); ok {
		return existing
	}
	nm := map[string]interface{}{}
	m[key] = nm
	return nm
}

// apnsPayloadMap returns (creating as needed) payload.apns.payload.
func apnsPayloadMap(payload models.OutgoingPayload) map[string]interface{} {
	apns := payload.EnsureMap("apns")
	return ensureMap(apns, "payload")
}

// apsMap returns (creating as needed) payload.apns.payload.aps.
func apsMap(payload models.OutgoingPayload) map[string]interface{} {
	return ensureMap(apnsPayloadMap(payload), "aps")
}

// normalizeSound applies the universal sound-normalization rule: a literal
// "none" (any case) removes aps.sound entirely; an object form has its
// volume/critical fields coerced to their expected types, and reports
// whether the critical+audible combination should disable rate-limit
// accounting.
func normalizeSound(aps map[string]interface{}) bool {
	raw, ok := aps["sound"]
	if !ok {
		return false
	}
	switch v := raw.(type) {
	case string:
		if strings.EqualFold(v, "none") {
			delete(aps, "sound")
		}
		return false
	case map[string]interface{}:
		volume := toFloat(v["volume"])
		v["volume"] = volume
		critical := toInt(v["critical"])
		v["critical"] = critical
		return critical != 0 && volume > 0
	default:
		return false
	}
}

// stripSoundExtension removes a filename extension from aps.sound, in
// either its bare-string or {name: ...} object form. Only used for the
// os_version "10.15" quirk (macOS Catalina's Notification Center could
// not resolve extensioned sound names).
func stripSoundExtension(aps map[string]interface{}) {
	switch v := aps["sound"].(type) {
	case string:
		aps["sound"] = trimExtension(v)
	case map[string]interface{}:
		if name, ok := v["name"].(string); ok {
			v["name"] = trimExtension(name)
		}
	}
}

func trimExtension(name string) string {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		i, _ := strconv.Atoi(t)
		return i
	default:
		return 0
	}
}

// Set bundles the three variant Build functions into one dispatch table
// value — spec §9's "tagged variant values, no subclassing" design note.
// internal/httpapi's Router does not use it: it builds and holds the three
// transformers itself and passes the route's one to the orchestrator.
type Set struct {
	Legacy    models.Transformer
	AndroidV1 models.Transformer
	IOSV1     models.Transformer
}

// New builds the variant dispatch table over a shared quirks.Set.
func New(quirkSet *quirks.Set) *Set {
	return &Set{
		Legacy:    NewLegacy(quirkSet),
		AndroidV1: NewAndroidV1(quirkSet),
		IOSV1:     NewIOSV1(quirkSet),
	}
}
