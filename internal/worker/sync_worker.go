// Package worker keeps a Google Sheets mirror of every ledger that changes.
// Change events are coalesced per owner and flushed on a fixed interval; a
// flush rewrites the owner's whole tab from storage.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

// Mirror replaces the mirrored copy of one owner's ledger.
type Mirror interface {
	Replace(ctx context.Context, ownerID string, records []core.Expense) error
}

// Config holds configuration for the sync worker
type Config struct {
	// FlushInterval is how often pending owners are mirrored (default: 10s)
	FlushInterval time.Duration

	// MaxRetries is how many failed flushes an owner survives before it is
	// dropped until its next change (default: 3)
	MaxRetries int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		FlushInterval: 10 * time.Second,
		MaxRetries:    3,
	}
}

// Stats counts flush outcomes since start.
type Stats struct {
	Mirrored int64
	Failed   int64
	Dropped  int64
}

// SyncWorker implements store.Notifier so it can sit behind the AMQP relay.
type SyncWorker struct {
	load   store.Loader
	mirror Mirror
	config Config
	logger *log.Logger

	mu      sync.Mutex
	pending map[string]int // owner -> failed attempts so far

	mirrored atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
}

// NewSyncWorker creates a new sync worker. Zero config fields take defaults.
func NewSyncWorker(load store.Loader, mirror Mirror, config Config, logger *log.Logger) *SyncWorker {
	def := DefaultConfig()
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		load:    load,
		mirror:  mirror,
		config:  config,
		logger:  logger.WithComponent(log.ComponentWorker),
		pending: make(map[string]int),
	}
}

// Notify marks the owner of c as needing a mirror refresh. A new change
// resets the owner's retry budget.
func (w *SyncWorker) Notify(ctx context.Context, c store.Change) {
	if c.OwnerID == "" {
		return
	}
	w.mu.Lock()
	w.pending[c.OwnerID] = 0
	w.mu.Unlock()

	w.logger.DebugContext(ctx, "Queued mirror refresh",
		log.FieldOwnerID, c.OwnerID,
		log.FieldOperation, string(c.Op),
		log.FieldExpenseID, c.RecordID)
}

// Pending returns the owners waiting for a flush, sorted.
func (w *SyncWorker) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	owners := make([]string, 0, len(w.pending))
	for owner := range w.pending {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// Stats returns the flush counters.
func (w *SyncWorker) Stats() Stats {
	return Stats{
		Mirrored: w.mirrored.Load(),
		Failed:   w.failed.Load(),
		Dropped:  w.dropped.Load(),
	}
}

// Flush mirrors every pending owner once. Owners that fail stay pending
// until they exhaust MaxRetries. The returned error joins the failures.
func (w *SyncWorker) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]int, len(batch))
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	w.logger.DebugContext(ctx, "Flushing mirror batch", log.FieldCount, len(batch))

	var errs []error
	for owner, attempts := range batch {
		if err := ctx.Err(); err != nil {
			w.requeue(owner, attempts)
			continue
		}
		if err := w.mirrorOwner(ctx, owner); err != nil {
			w.handleFailure(ctx, owner, attempts+1, err)
			errs = append(errs, fmt.Errorf("mirror %s: %w", owner, err))
			continue
		}
		w.mirrored.Add(1)
	}
	return errors.Join(errs...)
}

func (w *SyncWorker) mirrorOwner(ctx context.Context, owner string) error {
	records, err := w.load(ctx, owner)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	return w.mirror.Replace(ctx, owner, store.SortNewestFirst(records))
}

func (w *SyncWorker) handleFailure(ctx context.Context, owner string, attempts int, err error) {
	w.failed.Add(1)
	if attempts >= w.config.MaxRetries {
		w.dropped.Add(1)
		w.logger.ErrorContext(ctx, "Giving up on mirror refresh",
			log.FieldOwnerID, owner,
			"attempts", attempts,
			log.FieldError, err.Error())
		return
	}
	w.logger.WarnContext(ctx, "Mirror refresh failed, will retry",
		log.FieldOwnerID, owner,
		"attempts", attempts,
		log.FieldError, err.Error())
	w.requeue(owner, attempts)
}

// requeue keeps a newer Notify, which reset the budget, over the old count.
func (w *SyncWorker) requeue(owner string, attempts int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[owner]; !ok {
		w.pending[owner] = attempts
	}
}

// Run flushes on every tick until ctx is done, then makes a last attempt
// with a short grace period.
func (w *SyncWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Sync worker started",
		log.FieldOperation, log.OpStartup,
		"flush_interval", w.config.FlushInterval.String(),
		"max_retries", w.config.MaxRetries)

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			_ = w.Flush(final)
			cancel()
			stats := w.Stats()
			w.logger.Info("Sync worker stopped",
				log.FieldOperation, log.OpShutdown,
				"mirrored", stats.Mirrored,
				"failed", stats.Failed,
				"dropped", stats.Dropped)
			return nil
		case <-ticker.C:
			_ = w.Flush(ctx)
		}
	}
}
