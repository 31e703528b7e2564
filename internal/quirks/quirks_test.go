package quirks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_RecognizesSpecEnumeratedKeys(t *testing.T) {
	set := Default()
	assert.True(t, set.IsAndroidKey("channel"))
	assert.True(t, set.IsAndroidKey("when_relative"))
	assert.False(t, set.IsAndroidKey("not_a_real_key"))

	assert.True(t, set.IsAndroidCommand("command_flashlight"))
	assert.False(t, set.IsAndroidCommand("clear_badge"))

	assert.True(t, set.IsIOSCommand("clear_badge"))
	assert.True(t, set.IsIOSCommand("request_location_updates"))
	assert.False(t, set.IsIOSCommand("command_flashlight"))
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	set, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, set.IsAndroidKey("channel"))
}

func TestLoad_ExtendsDefaultsWithoutReplacing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quirks.yaml")
	content := "android_keys:\n  - custom_key\nios_commands:\n  - custom_command\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	set, err := Load(path)
	require.NoError(t, err)
	assert.True(t, set.IsAndroidKey("custom_key"))
	assert.True(t, set.IsAndroidKey("channel"))
	assert.True(t, set.IsIOSCommand("custom_command"))
	assert.True(t, set.IsIOSCommand("clear_badge"))
}
