package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"chombot/internal/delivery"
	"chombot/internal/transport"
	"chombot/internal/watch"
)

// Validate checks a parsed config. All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add(fmt.Errorf("telegram.token is required (or set %s)", EnvToken))
	}
	_, err := ParseDurationField("telegram.timeout", cfg.Telegram.Timeout)
	add(err)
	if cfg.Logging.Telegram.Enabled {
		if _, err := transport.ParseChatTarget(strings.TrimSpace(cfg.Telegram.GroupLog)); err != nil {
			add(fmt.Errorf("telegram.group_log: %w", err))
		}
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				add(errors.New("storage.path is required"))
			}
		default:
			add(fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		_, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout)
		add(err)
	}

	d := cfg.Delivery
	if d.Budget < 0 || (d.Budget > 0 && d.Budget < delivery.MinLimit) {
		add(fmt.Errorf("delivery.budget must be 0 (default) or >= %d", delivery.MinLimit))
	}
	if d.RatePerSec < 0 {
		add(errors.New("delivery.rate_per_sec must be >= 0"))
	}
	_, err = ParseDurationField("delivery.send_timeout", d.SendTimeout)
	add(err)

	if cfg.HTTP.Enabled && strings.TrimSpace(cfg.HTTP.Addr) != "" {
		if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
			add(fmt.Errorf("http.addr: %w", err))
		}
	}

	add(validateWatcher("watchers.tournaments", cfg.Watchers.Tournaments))
	add(validateWatcher("watchers.ranking", cfg.Watchers.Ranking))
	return errors.Join(errs...)
}

func validateWatcher(path string, w WatcherConfig) error {
	if !w.Enabled {
		return nil
	}
	var errs []error
	if _, err := watch.ParseSchedule(w.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("%s.schedule: %w", path, err))
	}
	u, err := url.Parse(strings.TrimSpace(w.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s.url: absolute http(s) URL required", path))
	}
	if _, err := ParseDurationField(path+".timeout", w.Timeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := w.ChatTargets(); err != nil {
		errs = append(errs, fmt.Errorf("%s.%w", path, err))
	}
	return errors.Join(errs...)
}

// ParseDurationField parses an optional duration; empty means 0.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0, got %s", path, d)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for empty or zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
