package delivery

import (
	"context"

	"chombot/internal/watch"
)

// Notifier turns a formatter into the notify callback of a watcher.
func Notifier[D any](b *Broadcaster, watcher string, targets TargetProvider, format func(D) string) watch.NotifyFunc[D] {
	return func(ctx context.Context, diff D) error {
		return b.Deliver(ctx, watcher, targets.Targets(ctx), format(diff))
	}
}
