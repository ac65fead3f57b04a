package config

import (
	"os"
	"strings"
)

const (
	EnvToken  = "CHOMBOT_TELEGRAM_TOKEN"
	EnvConfig = "CHOMBOT_CONFIG"
)

// ApplyEnv overrides secrets from the environment. It runs after every
// parse, so hot reloads keep the override.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Telegram.Token = v
	}
}

// PathFromEnv returns CHOMBOT_CONFIG when set, otherwise def.
func PathFromEnv(def string) string {
	if v := strings.TrimSpace(os.Getenv(EnvConfig)); v != "" {
		return v
	}
	return def
}
