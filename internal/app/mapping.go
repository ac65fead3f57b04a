package app

import (
	"fmt"
	"strings"
	"time"

	"chombot/internal/config"
	"chombot/internal/delivery"
	"chombot/internal/storage"
	"chombot/internal/transport"
	"chombot/internal/transport/telegram"
	logx "chombot/pkg/logx"
)

func mapTelegramConfig(cfg *config.Config, apiURL string) (telegram.Config, error) {
	timeout, err := config.ParseDurationOrDefault("telegram.timeout", cfg.Telegram.Timeout, 15*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{Token: cfg.Telegram.Token, Timeout: timeout, APIURL: apiURL}, nil
}

// mapLogConfig builds the logx config. An unparsable group_log disables the
// chat sink instead of failing; Validate rejects it when the sink is on.
func mapLogConfig(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	out := logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File:    logx.FileConfig{Enabled: lc.File.Enabled, Path: lc.File.Path},
		Chat: logx.ChatConfig{
			Enabled:    lc.Telegram.Enabled,
			MinLevel:   lc.Telegram.MinLevel,
			RatePerSec: lc.Telegram.RatePerSec,
		},
	}
	if raw := strings.TrimSpace(cfg.Telegram.GroupLog); raw != "" {
		if t, err := transport.ParseChatTarget(raw); err == nil {
			if lc.Telegram.ThreadID != 0 {
				t.ThreadID = lc.Telegram.ThreadID
			}
			out.Chat.Target = t
		}
	}
	if out.Chat.Target.ChatID == 0 {
		out.Chat.Enabled = false
	}
	return out
}

func mapDeliveryConfig(cfg *config.Config) (delivery.Config, error) {
	d := cfg.Delivery
	timeout, err := config.ParseDurationField("delivery.send_timeout", d.SendTimeout)
	if err != nil {
		return delivery.Config{}, err
	}
	budget := d.Budget
	if budget == 0 {
		budget = delivery.DefaultLimit
	}
	return delivery.Config{
		Budget:         budget,
		RatePerSec:     d.RatePerSec,
		SendTimeout:    timeout,
		ParseMode:      d.ParseMode,
		DisablePreview: d.DisablePreview,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
}
