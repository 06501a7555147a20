package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears ROUTINEGRAPH_* so no local
// settings leak into a test. It returns the temp HOME.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"ROUTINEGRAPH_LOG_LEVEL",
		"ROUTINEGRAPH_LOG_FORMAT",
		"ROUTINEGRAPH_LANGUAGES",
		"ROUTINEGRAPH_SCHEMA_CHECK",
	} {
		t.Setenv(key, "")
	}
	return home
}

func writeSettings(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".routinegraph")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(content), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg := loadConfig()
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"en"}, cfg.Languages)
	assert.True(t, cfg.SchemaCheck)
}

func TestLoadConfig_SettingsFile(t *testing.T) {
	home := isolate(t)
	writeSettings(t, home, `{"log_level": "debug", "languages": ["es", "en"]}`)

	cfg := loadConfig()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"es", "en"}, cfg.Languages)
	assert.Equal(t, "text", cfg.LogFormat, "unset fields keep their defaults")
}

func TestLoadConfig_MalformedSettingsIgnored(t *testing.T) {
	home := isolate(t)
	writeSettings(t, home, `{not json`)

	assert.Equal(t, defaultConfig(), loadConfig())
}

func TestLoadConfig_EnvOverridesSettings(t *testing.T) {
	home := isolate(t)
	writeSettings(t, home, `{"log_level": "debug", "schema_check": true}`)
	t.Setenv("ROUTINEGRAPH_LOG_LEVEL", "error")
	t.Setenv("ROUTINEGRAPH_LOG_FORMAT", "json")
	t.Setenv("ROUTINEGRAPH_LANGUAGES", "fr, de,,")
	t.Setenv("ROUTINEGRAPH_SCHEMA_CHECK", "false")

	cfg := loadConfig()
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"fr", "de"}, cfg.Languages)
	assert.False(t, cfg.SchemaCheck)
}

func TestLoadConfig_InvalidBoolIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("ROUTINEGRAPH_SCHEMA_CHECK", "maybe")

	assert.True(t, loadConfig().SchemaCheck)
}

func TestEffectiveConfig_FlagsWin(t *testing.T) {
	isolate(t)
	t.Setenv("ROUTINEGRAPH_LOG_LEVEL", "error")
	resetFlags(t)

	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "")
	cmd.Flags().StringSliceVar(&languages, "lang", nil, "")
	cmd.Flags().BoolVar(&noSchema, "no-schema", false, "")
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))
	require.NoError(t, cmd.Flags().Set("lang", "es,en"))
	require.NoError(t, cmd.Flags().Set("no-schema", "true"))

	cfg := effectiveConfig(cmd)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"es", "en"}, cfg.Languages)
	assert.False(t, cfg.SchemaCheck)
	assert.Equal(t, "text", cfg.LogFormat, "unchanged flags do not override")
}

func TestDiffConfigs(t *testing.T) {
	base := defaultConfig()
	assert.Empty(t, diffConfigs(base, base))

	changed := base
	changed.LogLevel = "debug"
	changed.Languages = []string{"es"}
	changed.SchemaCheck = false
	assert.Equal(t, []string{"log_level", "languages", "schema_check"}, diffConfigs(base, changed))
}
