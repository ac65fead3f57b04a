package config

import (
	"reflect"
	"slices"
	"strings"

	"chombot/pkg/logx"
)

// ChangeSummary describes a reload.
type ChangeSummary struct {
	// Changed lists the sections that differ.
	Changed []string
	// Restart lists the changed sections that only apply after a restart.
	Restart []string
	// Attrs are safe to log; they never carry secrets.
	Attrs []logx.Field
}

// SummarizeConfigChange compares two configs section by section. Logging,
// delivery, watcher headers and watcher targets apply live; everything
// else needs a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) ChangeSummary {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var s ChangeSummary

	// never log the token itself
	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		strings.TrimSpace(oldCfg.Telegram.Timeout) != strings.TrimSpace(newCfg.Telegram.Timeout) {
		s.add("telegram", true, logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token))
	}
	if strings.TrimSpace(oldCfg.Telegram.GroupLog) != strings.TrimSpace(newCfg.Telegram.GroupLog) ||
		oldCfg.Logging != newCfg.Logging {
		s.add("logging", false,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		driver := "none"
		if newCfg.Storage != nil && strings.TrimSpace(newCfg.Storage.Driver) != "" {
			driver = newCfg.Storage.Driver
		}
		s.add("storage", true, logx.String("storage.driver", driver))
	}
	if oldCfg.Delivery != newCfg.Delivery {
		s.add("delivery", false,
			logx.Int("delivery.budget", newCfg.Delivery.Budget),
			logx.Int("delivery.rate_per_sec", newCfg.Delivery.RatePerSec),
			logx.String("delivery.send_timeout", newCfg.Delivery.SendTimeout),
		)
	}
	if oldCfg.HTTP != newCfg.HTTP {
		s.add("http", true, logx.Bool("http.enabled", newCfg.HTTP.Enabled), logx.String("http.addr", newCfg.HTTP.Addr), logx.Bool("http.pprof", newCfg.HTTP.Pprof))
	}
	s.watcher("watchers.tournaments", oldCfg.Watchers.Tournaments, newCfg.Watchers.Tournaments)
	s.watcher("watchers.ranking", oldCfg.Watchers.Ranking, newCfg.Watchers.Ranking)
	return s
}

func (s *ChangeSummary) add(section string, restart bool, attrs ...logx.Field) {
	s.Changed = append(s.Changed, section)
	if restart {
		s.Restart = append(s.Restart, section)
	}
	s.Attrs = append(s.Attrs, attrs...)
}

func (s *ChangeSummary) watcher(section string, o, n WatcherConfig) {
	live := o.Header != n.Header || !slices.Equal(o.Targets, n.Targets)
	restart := o.Enabled != n.Enabled ||
		strings.TrimSpace(o.Schedule) != strings.TrimSpace(n.Schedule) ||
		strings.TrimSpace(o.URL) != strings.TrimSpace(n.URL) ||
		o.Rules != n.Rules ||
		strings.TrimSpace(o.Timeout) != strings.TrimSpace(n.Timeout) ||
		o.PersistSnapshot != n.PersistSnapshot
	if !live && !restart {
		return
	}
	s.add(section, restart,
		logx.Bool(section+".enabled", n.Enabled),
		logx.String(section+".schedule", n.Schedule),
		logx.Int(section+".targets", len(n.Targets)),
	)
}
