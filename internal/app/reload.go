package app

import (
	"context"
	"strings"

	"chombot/internal/config"
	logx "chombot/pkg/logx"
)

// reloadLoop applies committed config changes. Logging and delivery apply
// live; targets and headers are read per notification, so they need no
// action here. Other sections are logged as requiring a restart.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// coalesce bursts
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					drained = true
				}
			}
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sum := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sum.Changed) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogConfig(newCfg))

	if dcfg, err := mapDeliveryConfig(newCfg); err != nil {
		a.log.Warn("invalid delivery config; keeping previous", logx.Err(err))
	} else {
		a.broadcaster.Apply(dcfg)
	}

	if len(sum.Restart) > 0 {
		a.log.Warn("config changes require a restart", logx.String("sections", strings.Join(sum.Restart, ",")))
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sum.Changed, ","))}, sum.Attrs...)
	a.log.Info("config reloaded", fields...)
}
