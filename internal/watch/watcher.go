package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"chombot/internal/eventbus"
	"chombot/pkg/logx"
)

// FetchFunc produces a fresh snapshot.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// NotifyFunc delivers a diff. Its error is logged and the cycle still
// updates, unless the error came from ctx ending mid-delivery.
type NotifyFunc[D any] func(ctx context.Context, diff D) error

// SnapshotStore persists the last known snapshot between restarts.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, key string, data []byte) error
	GetSnapshot(ctx context.Context, key string) (data []byte, ok bool, err error)
}

// Outcome classifies a finished cycle.
type Outcome string

const (
	OutcomeUnchanged    Outcome = "unchanged"
	OutcomeNotified     Outcome = "notified"
	OutcomeNotifyFailed Outcome = "notify_failed"
	OutcomeFetchFailed  Outcome = "fetch_failed"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeRebaselined  Outcome = "rebaselined"
	OutcomeAbandoned    Outcome = "abandoned"
)

// CycleResult describes one poll cycle.
type CycleResult struct {
	ID      string
	Outcome Outcome
	Fetch   time.Duration
	Err     error
}

// Observer receives every finished cycle. Implementations must not block.
type Observer interface {
	ObserveCycle(watcher string, r CycleResult)
}

type options struct {
	sched Schedule
	log   logx.Logger
	obs   Observer
	store SnapshotStore
	bus   eventbus.Bus
}

type Option func(*options)

func WithSchedule(s Schedule) Option   { return func(o *options) { o.sched = s } }
func WithLogger(l logx.Logger) Option  { return func(o *options) { o.log = l } }
func WithObserver(obs Observer) Option { return func(o *options) { o.obs = obs } }
func WithBus(b eventbus.Bus) Option    { return func(o *options) { o.bus = b } }

// WithSnapshotStore enables persistence of the previous snapshot. The
// stored value seeds the watcher on Run, so a restart does not lose the
// baseline.
func WithSnapshotStore(s SnapshotStore) Option { return func(o *options) { o.store = s } }

// Watcher polls one data source. A Watcher is not safe for concurrent use;
// Run owns it until it returns.
type Watcher[T, D any] struct {
	name   string
	fetch  FetchFunc[T]
	w      Watchable[T, D]
	notify NotifyFunc[D]
	opt    options

	previous *T
}

// New builds a Watcher. name identifies it in logs, metrics and the
// snapshot store.
func New[T, D any](name string, fetch FetchFunc[T], w Watchable[T, D], notify NotifyFunc[D], opts ...Option) *Watcher[T, D] {
	o := options{sched: Every(DefaultInterval)}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.sched == nil {
		o.sched = Every(DefaultInterval)
	}
	if o.log.IsZero() {
		o.log = logx.Nop()
	}
	o.log = o.log.With(logx.String("comp", "watch"), logx.String("watcher", name))
	return &Watcher[T, D]{name: name, fetch: fetch, w: w, notify: notify, opt: o}
}

func (w *Watcher[T, D]) Name() string { return w.name }

// Previous returns the stored snapshot, or nil before the first successful
// fetch.
func (w *Watcher[T, D]) Previous() *T { return w.previous }

// Run waits for each scheduled tick and runs a cycle. The first cycle runs
// one period after start, not immediately. Run returns ctx.Err() once ctx is
// done.
func (w *Watcher[T, D]) Run(ctx context.Context) error {
	w.restore(ctx)
	w.opt.log.Info("watcher started")

	for {
		wait := time.Until(w.opt.sched.Next(time.Now()))
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.opt.log.Info("watcher stopped")
			return ctx.Err()
		case <-timer.C:
		}
		w.Cycle(ctx)
	}
}

// Cycle runs one fetch, compare, notify, update pass.
//
// A fetch error is treated as an absent snapshot: nothing is notified and
// the stored snapshot is kept. When ctx is cancelled during the fetch, or a
// delivery fails because ctx ended, the cycle is abandoned before the update
// so the change is reported again on the next run.
//
// When the comparison rejects the pair but the fresh snapshot is consistent
// on its own, the stored snapshot is the broken side (for example a ruleset
// change between restarts). It is replaced by the fresh one without
// notifying.
func (w *Watcher[T, D]) Cycle(ctx context.Context) CycleResult {
	res := CycleResult{ID: uuid.NewString(), Outcome: OutcomeUnchanged}
	log := w.opt.log.With(logx.String("cycle", res.ID))

	start := time.Now()
	fetched, err := w.fetch(ctx)
	res.Fetch = time.Since(start)

	if ctx.Err() != nil {
		res.Outcome = OutcomeAbandoned
		res.Err = ctx.Err()
		w.observe(res)
		return res
	}

	var next *T
	if err != nil {
		res.Outcome = OutcomeFetchFailed
		res.Err = err
		log.Warn("watch fetch failed", logx.Err(err), logx.Duration("took", res.Fetch))
		w.publish(eventbus.TypeFetchFailed, res)
	} else {
		next = &fetched
		log.Debug("watch fetched", logx.Duration("took", res.Fetch))
	}

	diff, notify, err := w.compare(w.previous, next)
	if err != nil {
		res.Err = err
		if _, _, selfErr := w.compare(next, next); next == nil || selfErr != nil {
			// The fresh snapshot is broken too; keep the stored one and retry.
			res.Outcome = OutcomeInvalid
			log.Error("watch snapshot rejected", logx.Err(err))
			w.observe(res)
			return res
		}
		res.Outcome = OutcomeRebaselined
		log.Warn("watch stored snapshot rejected, replacing baseline", logx.Err(err))
		w.previous = w.w.Update(nil, next)
		w.persist(ctx, log)
		w.publish(eventbus.TypeUpdated, res)
		w.observe(res)
		return res
	}

	if notify {
		if err := w.notify(ctx, diff); err != nil {
			if ctx.Err() != nil {
				res.Outcome = OutcomeAbandoned
				res.Err = err
				log.Warn("watch notify interrupted, snapshot kept", logx.Err(err))
				w.observe(res)
				return res
			}
			res.Outcome = OutcomeNotifyFailed
			res.Err = err
			log.Error("watch notify failed", logx.Err(err))
		} else {
			res.Outcome = OutcomeNotified
			log.Info("watch notified")
		}
		w.publish(eventbus.TypeNotified, res)
	}

	first := w.previous == nil && next != nil
	w.previous = w.w.Update(w.previous, next)
	if next != nil {
		if first {
			log.Info("watch baseline stored")
		}
		w.persist(ctx, log)
		w.publish(eventbus.TypeUpdated, res)
	}

	w.observe(res)
	return res
}

// compare runs ShouldNotify and turns a panic from the domain into an error.
func (w *Watcher[T, D]) compare(prev, next *T) (diff D, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, isErr := r.(error); isErr {
				err = e
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
			w.opt.log.Debug("watch compare panicked", logx.Stack(string(debug.Stack())))
		}
	}()
	diff, ok = w.w.ShouldNotify(prev, next)
	return diff, ok, nil
}

func (w *Watcher[T, D]) restore(ctx context.Context) {
	if w.opt.store == nil || w.previous != nil {
		return
	}
	b, ok, err := w.opt.store.GetSnapshot(ctx, w.name)
	if err != nil {
		w.opt.log.Warn("watch snapshot load failed", logx.Err(err))
		return
	}
	if !ok {
		return
	}
	var snap T
	if err := json.Unmarshal(b, &snap); err != nil {
		w.opt.log.Warn("watch snapshot decode failed", logx.Err(err))
		return
	}
	if _, _, err := w.compare(&snap, &snap); err != nil {
		w.opt.log.Warn("watch stored snapshot rejected, starting without baseline", logx.Err(err))
		return
	}
	w.previous = &snap
	w.opt.log.Info("watch baseline restored", logx.Int("bytes", len(b)))
}

func (w *Watcher[T, D]) persist(ctx context.Context, log logx.Logger) {
	if w.opt.store == nil || w.previous == nil {
		return
	}
	b, err := json.Marshal(w.previous)
	if err != nil {
		log.Warn("watch snapshot encode failed", logx.Err(err))
		return
	}
	// A delivered notification must not be reported twice after a restart.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.opt.store.PutSnapshot(pctx, w.name, b); err != nil {
		log.Warn("watch snapshot save failed", logx.Err(err))
	}
}

func (w *Watcher[T, D]) publish(typ string, res CycleResult) {
	if w.opt.bus == nil {
		return
	}
	data := eventbus.WatchData{Watcher: w.name, Cycle: res.ID}
	if res.Err != nil {
		data.Err = res.Err.Error()
	}
	w.opt.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

func (w *Watcher[T, D]) observe(res CycleResult) {
	if w.opt.obs != nil {
		w.opt.obs.ObserveCycle(w.name, res)
	}
}
