package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FCM_PROJECT_ID", "ha-push")
	t.Setenv("FCM_CREDENTIALS_FILE", "/secrets/fcm.json")
}

func TestLoad_NoValkeyVars_SelectsFirestoreBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VALKEY_HOST", "")
	t.Setenv("VALKEY_PORT", "")
	t.Setenv("FIRESTORE_PROJECT_ID", "ha-push")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendFirestore, cfg.RateLimitBackend)
}

func TestLoad_ValkeyHostAndPortPresent_SelectsRedisBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VALKEY_HOST", "valkey.internal")
	t.Setenv("VALKEY_PORT", "6379")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.RateLimitBackend)
}

func TestLoad_OnlyValkeyHostPresent_StillSelectsFirestoreBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VALKEY_HOST", "valkey.internal")
	t.Setenv("VALKEY_PORT", "")
	t.Setenv("FIRESTORE_PROJECT_ID", "ha-push")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendFirestore, cfg.RateLimitBackend)
}

func TestLoad_FirestoreBackendMissingProjectID_ReturnsError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VALKEY_HOST", "")
	t.Setenv("VALKEY_PORT", "")
	t.Setenv("FIRESTORE_PROJECT_ID", "")

	_, err := Load()

	assert.ErrorContains(t, err, "FIRESTORE_PROJECT_ID")
}

func TestLoad_MaxNotificationsPerDay_DefaultsTo500(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VALKEY_HOST", "")
	t.Setenv("VALKEY_PORT", "")
	t.Setenv("FIRESTORE_PROJECT_ID", "ha-push")
	t.Setenv("MAX_NOTIFICATIONS_PER_DAY", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.EqualValues(t, 500, cfg.MaxNotificationsPerDay)
}
