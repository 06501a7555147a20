package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the CLI configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	LogLevel    string   `json:"log_level"`
	LogFormat   string   `json:"log_format"`
	Languages   []string `json:"languages"`
	SchemaCheck bool     `json:"schema_check"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:    "warn",
		LogFormat:   "text",
		Languages:   []string{"en"},
		SchemaCheck: true,
	}
}

func routinegraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".routinegraph"
	}
	return filepath.Join(home, ".routinegraph")
}

func settingsPath() string {
	return filepath.Join(routinegraphDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("ROUTINEGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ROUTINEGRAPH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("ROUTINEGRAPH_LANGUAGES"); v != "" {
		cfg.Languages = splitList(v)
	}
	if v := os.Getenv("ROUTINEGRAPH_SCHEMA_CHECK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SchemaCheck = b
		}
	}

	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// diffConfigs lists the settings that differ between two configurations,
// by their settings.json name.
func diffConfigs(old, new Config) []string {
	var changed []string
	if old.LogLevel != new.LogLevel {
		changed = append(changed, "log_level")
	}
	if old.LogFormat != new.LogFormat {
		changed = append(changed, "log_format")
	}
	if strings.Join(old.Languages, ",") != strings.Join(new.Languages, ",") {
		changed = append(changed, "languages")
	}
	if old.SchemaCheck != new.SchemaCheck {
		changed = append(changed, "schema_check")
	}
	return changed
}
