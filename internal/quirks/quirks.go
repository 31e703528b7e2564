// Package quirks holds the per-platform allow-lists the payload
// transformer consults (spec §4.3): which Android notification keys get
// stringified into data.<key>, and which req.message values are treated
// as command overloads that disable rate-limit accounting. The lists are
// compiled in as defaults and may be extended by an optional YAML file so
// a fleet operator can pick up a newly shipped app key without a binary
// rewrite — the recognized-key semantics spec.md pins down are never
// altered, only the allow-list membership is data-driven.
//
// Grounded on AndreMarthinsen-Golang-Renewable-energy-api/util/config.go,
// which decodes deployment settings from an optional YAML file over a set
// of compiled-in defaults the same way.
package quirks

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultAndroidKeys is the fixed allow-list from spec §4.3: recognized
// notification keys copied verbatim (after stringification) into
// data.<key>.
var defaultAndroidKeys = []string{
	"icon", "color", "sound", "tag", "channel", "ticker", "sticky", "eventTime",
	"localOnly", "notificationPriority", "defaultSound", "defaultVibrateTimings",
	"defaultLightSettings", "vibrateTimings", "visibility", "notificationCount",
	"lightSettings", "image", "timeout", "importance", "subject", "group",
	"icon_url", "ledColor", "vibrationPattern", "persistent", "chronometer",
	"when", "alert_once", "intent_class_name", "notification_icon",
	"ble_advertise", "ble_transmit", "video", "high_accuracy_update_interval",
	"package_name", "tts_text", "media_stream", "command", "intent_package_name",
	"intent_action", "intent_extras", "media_command", "media_package_name",
	"intent_uri", "intent_type", "ble_uuid", "ble_major", "ble_minor",
	"confirmation", "app_lock_enabled", "app_lock_timeout", "home_bypass_enabled",
	"car_ui", "ble_measured_power", "progress", "progress_max",
	"progress_indeterminate", "bodyLocKey", "bodyLocArgs", "titleLocKey",
	"titleLocArgs", "clickAction", "when_relative",
}

// defaultAndroidCommands is the fixed list of req.message values that
// overload an Android notification into a silent command, disabling
// rate-limit accounting.
var defaultAndroidCommands = []string{
	"request_location_update", "clear_notification", "remove_channel",
	"command_dnd", "command_ringer_mode", "command_broadcast_intent",
	"command_volume_level", "command_screen_on", "command_bluetooth",
	"command_high_accuracy_mode", "command_activity", "command_app_lock",
	"command_webview", "command_media", "command_update_sensors",
	"command_ble_transmitter", "command_persistent_connection",
	"command_stop_tts", "command_auto_screen_brightness",
	"command_screen_brightness_level", "command_screen_off_timeout",
	"command_flashlight",
}

// defaultIOSCommands is the fixed list of req.message values that
// overload an iOS notification into a silent command message.
var defaultIOSCommands = []string{
	"request_location_update", "request_location_updates", "clear_badge",
	"clear_notification", "update_complications", "update_widgets", "delete_alert",
}

// Set is the resolved, queryable allow-list configuration used by the
// transformer package.
type Set struct {
	androidKeys     map[string]struct{}
	androidCommands map[string]struct{}
	iosCommands     map[string]struct{}
}

// Default returns the Set built solely from the compiled-in defaults.
func Default() *Set {
	return &Set{
		androidKeys:     toSet(defaultAndroidKeys),
		androidCommands: toSet(defaultAndroidCommands),
		iosCommands:     toSet(defaultIOSCommands),
	}
}

// file is the YAML document shape accepted by Load. Every field is
// optional; entries are added to (never replace) the compiled-in
// defaults.
type file struct {
	AndroidKeys     []string `yaml:"android_keys"`
	AndroidCommands []string `yaml:"android_commands"`
	IOSCommands     []string `yaml:"ios_commands"`
}

// Load builds a Set from the compiled-in defaults, optionally extended by
// the YAML file at path. A missing path is not an error: the defaults
// alone are a complete, spec-conformant configuration.
func Load(path string) (*Set, error) {
	set := Default()
	if path == "" {
		return set, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("quirks: reading %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("quirks: parsing %s: %w", path, err)
	}
	for _, k := range f.AndroidKeys {
		set.androidKeys[k] = struct{}{}
	}
	for _, c := range f.AndroidCommands {
		set.androidCommands[c] = struct{}{}
	}
	for _, c := range f.IOSCommands {
		set.iosCommands[c] = struct{}{}
	}
	return set, nil
}

// IsAndroidKey reports whether key is a recognized Android notification
// key eligible for data.<key> passthrough.
func (s *Set) IsAndroidKey(key string) bool {
	_, ok := s.androidKeys[key]
	return ok
}

// IsAndroidCommand reports whether message is a recognized Android
// command-like value that disables rate-limit accounting.
func (s *Set) IsAndroidCommand(message string) bool {
	_, ok := s.androidCommands[message]
	return ok
}

// IsIOSCommand reports whether message is a recognized iOS command
// overload value.
func (s *Set) IsIOSCommand(message string) bool {
	_, ok := s.iosCommands[message]
	return ok
}

func toSet(values []string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
