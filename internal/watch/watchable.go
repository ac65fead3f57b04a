package watch

// Differ compares two present snapshots of one domain. ok is false when the
// pair carries no notifiable change.
type Differ[T, D any] interface {
	Diff(old, next T) (diff D, ok bool)
}

// Watchable is the contract the poll loop drives. A nil *T means "absent":
// either nothing was fetched yet (prev) or this cycle's fetch failed (next).
type Watchable[T, D any] interface {
	// ShouldNotify returns a diff only when both sides are present and the
	// domain reports a change.
	ShouldNotify(prev, next *T) (D, bool)
	// Update returns the snapshot to keep. An absent next keeps prev.
	Update(prev, next *T) *T
}

// Lift adapts a domain Differ into a Watchable.
func Lift[T, D any](d Differ[T, D]) Watchable[T, D] {
	return lifted[T, D]{d: d}
}

type lifted[T, D any] struct {
	d Differ[T, D]
}

func (l lifted[T, D]) ShouldNotify(prev, next *T) (D, bool) {
	if prev == nil || next == nil {
		var zero D
		return zero, false
	}
	return l.d.Diff(*prev, *next)
}

func (l lifted[T, D]) Update(prev, next *T) *T {
	if next == nil {
		return prev
	}
	return next
}
