package delivery

import (
	"context"
	"slices"

	"chombot/internal/transport"
)

// TargetProvider lists the chats that receive one watcher's notifications.
// It is consulted on every notification so config reloads apply at once.
type TargetProvider interface {
	Targets(ctx context.Context) []transport.ChatTarget
}

// StaticTargets is a fixed target list.
type StaticTargets []transport.ChatTarget

func (s StaticTargets) Targets(context.Context) []transport.ChatTarget {
	return slices.Clone(s)
}

// TargetsFunc adapts a function, typically a config lookup, to TargetProvider.
type TargetsFunc func(ctx context.Context) []transport.ChatTarget

func (f TargetsFunc) Targets(ctx context.Context) []transport.ChatTarget {
	if f == nil {
		return nil
	}
	return f(ctx)
}

// dedupe drops repeated targets, keeping the first occurrence.
func dedupe(in []transport.ChatTarget) []transport.ChatTarget {
	seen := make(map[transport.ChatTarget]struct{}, len(in))
	out := in[:0:0]
	for _, t := range in {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
