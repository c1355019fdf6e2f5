// Package daemon runs the background loops that keep a device current:
//
// 1. Periodically refreshes the local catalog from the server
// 2. Flushes the cart and visit note outboxes with backoff
// 3. Purges confirmed carts past their retention window
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/cart"
	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/notes"
	"github.com/mobiorder/mobiorder/internal/session"
	syncer "github.com/mobiorder/mobiorder/internal/sync"
	"github.com/mobiorder/mobiorder/internal/visibility"
)

// Config holds configuration for the daemon.
type Config struct {
	// SyncInterval is how often the catalog refresh runs.
	SyncInterval time.Duration

	// FlushInterval is how often the outboxes are retried.
	FlushInterval time.Duration

	// RetentionDays is how long confirmed carts survive before the purge.
	RetentionDays int

	// MaxFlushElapsed bounds one backoff cycle of outbox retries.
	MaxFlushElapsed time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:    30 * time.Minute,
		FlushInterval:   2 * time.Minute,
		RetentionDays:   90,
		MaxFlushElapsed: 30 * time.Second,
	}
}

// Events receives notifications about daemon activity. Implementations must
// not block.
type Events interface {
	// OutboxFlushed is called after a flush cycle delivered queued work.
	OutboxFlushed(carts, notes int)

	// VisibilityRebuilt is called after the visible product set changed.
	VisibilityRebuilt(customer, visible int)
}

// Daemon drives the sync orchestrator and the outboxes on timers.
type Daemon struct {
	orch     *syncer.Orchestrator
	carts    *cart.Manager
	outbox   *notes.Outbox
	resolver *visibility.Resolver
	sess     *session.Session
	config   *Config
	log      *zap.Logger
	events   Events

	force chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon. Pass nil config for defaults.
func New(orch *syncer.Orchestrator, carts *cart.Manager, outbox *notes.Outbox,
	resolver *visibility.Resolver, sess *session.Session, config *Config, log *zap.Logger) *Daemon {
	if config == nil {
		config = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		orch:     orch,
		carts:    carts,
		outbox:   outbox,
		resolver: resolver,
		sess:     sess,
		config:   config,
		log:      log,
		force:    make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetEvents attaches an activity sink. Call before Start.
func (d *Daemon) SetEvents(e Events) {
	d.events = e
}

// Start runs the daemon loops. Blocks until ctx is cancelled or Stop is
// called.
func (d *Daemon) Start(ctx context.Context) error {
	d.log.Info("daemon starting",
		zap.Duration("syncInterval", d.config.SyncInterval),
		zap.Duration("flushInterval", d.config.FlushInterval))

	if err := d.orch.Initialize(ctx); err != nil {
		return fmt.Errorf("daemon init: %w", err)
	}

	// One refresh on the way up so a freshly started device is usable.
	d.runSync(ctx)

	d.wg.Add(2)
	go d.syncLoop()
	go d.flushLoop()

	select {
	case <-ctx.Done():
	case <-d.ctx.Done():
	}
	d.cancel()
	d.wg.Wait()
	d.log.Info("daemon stopped")
	return nil
}

// Stop shuts the daemon down; Start returns once the loops have drained.
func (d *Daemon) Stop() {
	d.cancel()
}

// ForceSync schedules an immediate catalog refresh. Coalesces when one is
// already queued.
func (d *Daemon) ForceSync() {
	select {
	case d.force <- struct{}{}:
	default:
	}
}

func (d *Daemon) syncLoop() {
	defer d.wg.Done()

	interval := d.sess.SyncInterval(d.config.SyncInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.runSync(d.ctx)
		case <-d.force:
			d.runSync(d.ctx)
			ticker.Reset(interval)
		}
	}
}

// runSync refreshes the catalog and rebuilds visibility for the selected
// customer. Skipped entirely while logged out.
func (d *Daemon) runSync(ctx context.Context) {
	cred, ok := d.sess.Credential()
	if !ok {
		d.log.Debug("sync skipped, not logged in")
		return
	}

	res, err := d.orch.FullSync(ctx, cred, d.sess.Culture(), false)
	if err != nil {
		d.log.Warn("background sync failed", zap.Error(err))
		return
	}
	if len(res.Synced) == 0 {
		return
	}

	if customer, ok := d.sess.Customer(); ok {
		if err := d.resolver.Prepare(ctx, customer); err != nil {
			d.log.Warn("visibility refresh failed", zap.Error(err))
			return
		}
		if d.events != nil {
			visible, err := d.resolver.VisibleCount(ctx)
			if err == nil {
				d.events.VisibilityRebuilt(customer.ID, visible)
			}
		}
	}
}

func (d *Daemon) flushLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.FlushInterval)
	defer ticker.Stop()

	// Purge at most once a day.
	purge := time.NewTicker(24 * time.Hour)
	defer purge.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if cred, ok := d.sess.Credential(); ok {
				d.flushOutboxes(cred)
			}
		case <-purge.C:
			if _, err := d.carts.DeleteOld(d.ctx, d.config.RetentionDays); err != nil {
				d.log.Warn("cart purge failed", zap.Error(err))
			}
		}
	}
}

// flushOutboxes retries queued carts and notes with exponential backoff. One
// cycle gives up after MaxFlushElapsed; the next tick starts fresh.
func (d *Daemon) flushOutboxes(cred model.Credential) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = d.config.MaxFlushElapsed

	var carts, notes int
	attempt := func() error {
		n, err := d.carts.Resend(d.ctx, cred)
		carts += n
		if err != nil {
			return err
		}
		n, err = d.outbox.Flush(d.ctx)
		notes += n
		if err != nil {
			return err
		}
		return nil
	}
	if err := backoff.Retry(attempt, backoff.WithContext(policy, d.ctx)); err != nil {
		d.log.Debug("outbox flush gave up for now", zap.Error(err))
	}
	if d.events != nil && carts+notes > 0 {
		d.events.OutboxFlushed(carts, notes)
	}
}
