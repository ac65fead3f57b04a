package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"chombot/internal/storage"
	"chombot/internal/transport"
	"chombot/pkg/logx"
)

const (
	defaultRatePerSec  = 10
	defaultSendTimeout = 15 * time.Second
	maxParallelTargets = 8
)

type Config struct {
	// Budget is the chunk limit in bytes; see Split.
	Budget         int
	RatePerSec     int
	SendTimeout    time.Duration
	ParseMode      string
	DisablePreview bool
}

// Auditor records one line per delivery attempt and target.
type Auditor interface {
	AppendDelivery(ctx context.Context, rec storage.DeliveryRecord) error
}

// ChunkObserver counts sent and failed chunks.
type ChunkObserver interface {
	ObserveChunk(watcher string, ok bool)
}

type Option func(*Broadcaster)

func WithAuditor(a Auditor) Option             { return func(b *Broadcaster) { b.audit = a } }
func WithChunkObserver(o ChunkObserver) Option { return func(b *Broadcaster) { b.obs = o } }

// Broadcaster splits a message into chunks and sends them to a set of
// targets. Targets are served concurrently; chunks for one target go out in
// order and stop at the first failure. Nothing is retried.
type Broadcaster struct {
	sender transport.Sender
	log    logx.Logger
	audit  Auditor
	obs    ChunkObserver

	mu      sync.RWMutex
	cfg     Config
	limiter *rate.Limiter
}

func NewBroadcaster(cfg Config, sender transport.Sender, log logx.Logger, opts ...Option) *Broadcaster {
	if log.IsZero() {
		log = logx.Nop()
	}
	b := &Broadcaster{sender: sender, log: log.With(logx.String("comp", "delivery"))}
	for _, fn := range opts {
		if fn != nil {
			fn(b)
		}
	}
	b.Apply(cfg)
	return b
}

// Apply swaps the config. Safe to call while deliveries are running.
func (b *Broadcaster) Apply(cfg Config) {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	b.mu.Lock()
	b.cfg = cfg
	b.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	b.mu.Unlock()
}

func (b *Broadcaster) current() (Config, *rate.Limiter) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg, b.limiter
}

// Deliver sends text to every target. The returned error joins the
// per-target failures.
func (b *Broadcaster) Deliver(ctx context.Context, watcher string, targets []transport.ChatTarget, text string) error {
	cfg, lim := b.current()
	chunks := Split(text, cfg.Budget)
	if len(chunks) == 0 {
		return nil
	}
	targets = dedupe(targets)
	log := b.log.With(logx.String("watcher", watcher))
	if len(targets) == 0 {
		log.Warn("delivery skipped: no targets", logx.Int("chunks", len(chunks)))
		return nil
	}

	id := uuid.NewString()
	opt := &transport.SendOptions{ParseMode: cfg.ParseMode, DisablePreview: cfg.DisablePreview}
	errs := make([]error, len(targets))

	var g errgroup.Group
	g.SetLimit(maxParallelTargets)
	for i, to := range targets {
		g.Go(func() error {
			sent, err := b.sendChunks(ctx, lim, cfg.SendTimeout, watcher, to, chunks, opt)
			errs[i] = err
			b.record(ctx, log, storage.DeliveryRecord{
				ID:      id,
				Watcher: watcher,
				Target:  to.String(),
				Chunks:  len(chunks),
				Sent:    sent,
				Bytes:   len(text),
				Error:   errString(err),
				At:      time.Now().UTC(),
			})
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		log.Warn("delivery incomplete", logx.String("delivery", id), logx.Err(err))
	} else {
		log.Debug("delivered", logx.String("delivery", id), logx.Int("targets", len(targets)), logx.Int("chunks", len(chunks)))
	}
	return err
}

func (b *Broadcaster) sendChunks(ctx context.Context, lim *rate.Limiter, timeout time.Duration, watcher string, to transport.ChatTarget, chunks []string, opt *transport.SendOptions) (int, error) {
	for i, chunk := range chunks {
		if err := lim.Wait(ctx); err != nil {
			return i, fmt.Errorf("deliver to %s: %w", to, err)
		}
		sctx, cancel := context.WithTimeout(ctx, timeout)
		_, err := b.sender.SendText(sctx, to, chunk, opt)
		cancel()
		b.observe(watcher, err == nil)
		if err != nil {
			return i, fmt.Errorf("deliver to %s: chunk %d/%d: %w", to, i+1, len(chunks), err)
		}
	}
	return len(chunks), nil
}

func (b *Broadcaster) record(ctx context.Context, log logx.Logger, rec storage.DeliveryRecord) {
	if b.audit == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := b.audit.AppendDelivery(actx, rec); err != nil {
		log.Warn("delivery audit failed", logx.Err(err))
	}
}

func (b *Broadcaster) observe(watcher string, ok bool) {
	if b.obs != nil {
		b.obs.ObserveChunk(watcher, ok)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
