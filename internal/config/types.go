package config

import (
	"fmt"
	"strings"

	"chombot/internal/transport"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Delivery DeliveryConfig `json:"delivery"`
	HTTP     HTTPConfig     `json:"http"`
	Watchers WatchersConfig `json:"watchers"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// GroupLog is the chat ("chat" or "chat/thread") receiving log lines
	// when logging.telegram is enabled.
	GroupLog string `json:"group_log"`
	// Timeout bounds each Bot API request (Go duration string).
	Timeout string `json:"timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/chombot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DeliveryConfig controls outbound messages.
//
// Defaults (when fields are omitted/zero):
//   - budget: 2000 bytes per message
//   - rate_per_sec: 10
//   - send_timeout: "15s"
type DeliveryConfig struct {
	Budget         int    `json:"budget,omitempty"`
	RatePerSec     int    `json:"rate_per_sec,omitempty"`
	SendTimeout    string `json:"send_timeout,omitempty"`
	ParseMode      string `json:"parse_mode,omitempty"`
	DisablePreview bool   `json:"disable_preview,omitempty"`
}

// HTTPConfig controls the health and metrics endpoint.
// Prefer a loopback address; nothing here is authenticated.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9464"
	// Pprof mounts /debug/pprof on the same listener.
	Pprof bool `json:"pprof,omitempty"`
}

type WatchersConfig struct {
	Tournaments WatcherConfig `json:"tournaments"`
	Ranking     WatcherConfig `json:"ranking"`
}

// WatcherConfig configures one poll loop.
//
// Schedule accepts "10m", "00:10", "@every 10m" or a cron expression.
// Targets are chat ids, optionally with a forum thread: "-1001234", "-1001234/5".
type WatcherConfig struct {
	Enabled  bool     `json:"enabled"`
	Schedule string   `json:"schedule,omitempty"`
	URL      string   `json:"url"`
	Header   string   `json:"header,omitempty"`
	Rules    string   `json:"rules,omitempty"`
	Timeout  string   `json:"timeout,omitempty"` // fetch timeout
	Targets  []string `json:"targets"`

	PersistSnapshot bool `json:"persist_snapshot,omitempty"`
}

// ChatTargets parses Targets.
func (w WatcherConfig) ChatTargets() ([]transport.ChatTarget, error) {
	out := make([]transport.ChatTarget, 0, len(w.Targets))
	for i, raw := range w.Targets {
		t, err := transport.ParseChatTarget(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}
