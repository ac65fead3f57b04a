// Package app wires configuration, transport, storage and the watchers into
// one supervised process.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chombot/internal/config"
	"chombot/internal/delivery"
	"chombot/internal/eventbus"
	"chombot/internal/httpapi"
	"chombot/internal/metrics"
	"chombot/internal/runtime/supervisor"
	"chombot/internal/storage"
	"chombot/internal/transport/telegram"
	logx "chombot/pkg/logx"
)

type Option func(*options)

type options struct {
	apiURL string
}

// WithTelegramAPI points the bot at another Bot API endpoint.
func WithTelegramAPI(url string) Option { return func(o *options) { o.apiURL = url } }

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter     *telegram.Adapter
	broadcaster *delivery.Broadcaster
	metrics     *metrics.Metrics
	http        *httpapi.Server

	watchers []runner
	started  time.Time
}

func New(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	tcfg, err := mapTelegramConfig(cfg, o.apiURL)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(tcfg, logx.NewConsole("info").With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg), ad)
	log = log.With(logx.String("comp", "app"))

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     eventbus.New(),
		adapter: ad,
		metrics: metrics.New(metrics.WithRuntimeCollectors()),
	}

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, logSvc.Logger())
		if err != nil {
			return nil, err
		}
		a.store = st
	}

	dcfg, err := mapDeliveryConfig(cfg)
	if err != nil {
		return nil, err
	}
	bopts := []delivery.Option{delivery.WithChunkObserver(a.metrics)}
	if a.store != nil {
		bopts = append(bopts, delivery.WithAuditor(a.store))
	}
	a.broadcaster = delivery.NewBroadcaster(dcfg, ad, logSvc.Logger(), bopts...)

	if a.watchers, err = a.buildWatchers(cfg); err != nil {
		return nil, err
	}
	if len(a.watchers) == 0 {
		log.Warn("no watchers enabled")
	}
	if cfg.HTTP.Enabled {
		a.http = httpapi.NewServer(logSvc.Logger())
	}
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// HTTPAddr is the bound health/metrics address, or "" when disabled.
func (a *App) HTTPAddr() string {
	if a.http == nil {
		return ""
	}
	return a.http.Addr()
}

func (a *App) Start(ctx context.Context) error {
	a.started = time.Now()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.adapter.Start(a.sup.Context()); err != nil {
		return err
	}

	if a.http != nil {
		cfg := a.cfgm.Get()
		var ropts []httpapi.RouterOption
		if cfg.HTTP.Pprof {
			ropts = append(ropts, httpapi.WithProfiler())
		}
		h := httpapi.NewRouter(a.sup.Snapshot, a.metrics.Handler(), a.started, ropts...)
		if err := a.http.Start(strings.TrimSpace(cfg.HTTP.Addr), h); err != nil {
			return fmt.Errorf("http: %w", err)
		}
	}

	for _, w := range a.watchers {
		a.sup.GoRestart("watch."+w.Name(), w.Run,
			supervisor.WithRestartBackoff(time.Second, time.Minute))
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				fields := []logx.Field{logx.String("type", e.Type), logx.Time("time", e.Time)}
				if d, ok := e.Data.(eventbus.WatchData); ok {
					fields = append(fields, logx.String("watcher", d.Watcher), logx.String("cycle", d.Cycle))
				}
				a.log.Debug("event", fields...)
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started", logx.Int("watchers", len(a.watchers)))
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Cancel first so watchers stop scheduling new cycles.
	a.sup.Cancel()

	// A delivery cut off by the cancel abandons its cycle, so the change is
	// sent again after restart. Wait for watchers before the transport goes.
	a.step(ctx, "supervisor", 5*time.Second, a.sup.Wait)
	a.step(ctx, "http", 2*time.Second, func(c context.Context) error {
		if a.http != nil {
			return a.http.Stop(c)
		}
		return nil
	})
	a.step(ctx, "adapter", 2*time.Second, a.adapter.Stop)
	a.step(ctx, "storage", 1*time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component can't
// stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		a.log.Warn("stop step skipped; deadline reached", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
