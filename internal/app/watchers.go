package app

import (
	"context"
	"fmt"
	"strings"

	"chombot/internal/config"
	"chombot/internal/delivery"
	"chombot/internal/ranking"
	"chombot/internal/source"
	"chombot/internal/source/ema"
	"chombot/internal/source/usma"
	"chombot/internal/tournament"
	"chombot/internal/transport"
	"chombot/internal/watch"
	logx "chombot/pkg/logx"
)

const (
	watcherTournaments = "tournaments"
	watcherRanking     = "ranking"
)

type runner interface {
	Name() string
	Run(ctx context.Context) error
}

type watcherSection func(*config.Config) config.WatcherConfig

func tournamentsSection(c *config.Config) config.WatcherConfig { return c.Watchers.Tournaments }
func rankingSection(c *config.Config) config.WatcherConfig     { return c.Watchers.Ranking }

// buildWatchers creates the enabled watchers. Schedule, URL and rules are
// fixed at start; header and targets are read from the live config on every
// notification.
func (a *App) buildWatchers(cfg *config.Config) ([]runner, error) {
	var out []runner

	if wc := cfg.Watchers.Tournaments; wc.Enabled {
		opts, getter, err := a.watchOptions(watcherTournaments, wc)
		if err != nil {
			return nil, err
		}
		src := &ema.Source{Getter: getter, URL: wc.URL, Rules: wc.Rules}
		notify := delivery.Notifier(a.broadcaster, watcherTournaments, a.targets(watcherTournaments, tournamentsSection),
			func(st tournament.Statuses) string {
				return tournament.Format(a.header(tournamentsSection, tournamentsHeader), st)
			})
		out = append(out, watch.New(watcherTournaments, src.Fetch,
			watch.Lift[tournament.Tournaments, tournament.Statuses](tournament.Differ{Rules: wc.Rules}),
			notify, opts...))
	}

	if wc := cfg.Watchers.Ranking; wc.Enabled {
		opts, getter, err := a.watchOptions(watcherRanking, wc)
		if err != nil {
			return nil, err
		}
		src := &usma.Source{Getter: getter, URL: wc.URL}
		notify := delivery.Notifier(a.broadcaster, watcherRanking, a.targets(watcherRanking, rankingSection),
			func(changed ranking.Ranking) string {
				return ranking.Format(a.header(rankingSection, rankingHeader), changed)
			})
		out = append(out, watch.New(watcherRanking, src.Fetch,
			watch.Lift[ranking.Ranking, ranking.Ranking](ranking.Differ{}),
			notify, opts...))
	}
	return out, nil
}

func (a *App) watchOptions(name string, wc config.WatcherConfig) ([]watch.Option, *source.Getter, error) {
	path := "watchers." + name
	sched, err := watch.ParseSchedule(wc.Schedule)
	if err != nil {
		return nil, nil, fmt.Errorf("%s.schedule: %w", path, err)
	}
	timeout, err := config.ParseDurationOrDefault(path+".timeout", wc.Timeout, source.DefaultTimeout)
	if err != nil {
		return nil, nil, err
	}
	opts := []watch.Option{
		watch.WithSchedule(sched),
		watch.WithLogger(a.log),
		watch.WithObserver(a.metrics),
		watch.WithBus(a.bus),
	}
	if wc.PersistSnapshot {
		if a.store == nil {
			a.log.Warn("persist_snapshot set but storage is disabled", logx.String("watcher", name))
		} else {
			opts = append(opts, watch.WithSnapshotStore(a.store))
		}
	}
	label := strings.TrimSpace(wc.Schedule)
	if label == "" {
		label = watch.DefaultInterval.String()
	}
	a.log.Info("watcher configured",
		logx.String("watcher", name),
		logx.String("schedule", label),
		logx.String("url", wc.URL),
		logx.Bool("persist_snapshot", wc.PersistSnapshot && a.store != nil),
	)
	return opts, source.NewGetter(timeout), nil
}

func (a *App) targets(name string, section watcherSection) delivery.TargetProvider {
	return delivery.TargetsFunc(func(context.Context) []transport.ChatTarget {
		ts, err := section(a.cfgm.Get()).ChatTargets()
		if err != nil {
			a.log.Warn("invalid watcher targets", logx.String("watcher", name), logx.Err(err))
			return nil
		}
		return ts
	})
}

func (a *App) header(section watcherSection, def func(config.WatcherConfig) string) string {
	wc := section(a.cfgm.Get())
	if strings.TrimSpace(wc.Header) != "" {
		return wc.Header
	}
	return def(wc)
}

func tournamentsHeader(wc config.WatcherConfig) string {
	url := wc.URL
	if url == "" {
		url = ema.DefaultURL
	}
	return "**TOURNAMENTS UPDATE** (" + url + ")\n\n"
}

func rankingHeader(wc config.WatcherConfig) string {
	url := wc.URL
	if url == "" {
		url = usma.DefaultURL
	}
	return url + " ranking update"
}
