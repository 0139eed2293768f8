// Package cache provides a generic LRU cache with TTL and a janitor that
// sweeps expired entries in the background.
package cache

import (
	"context"
	"time"

	"ledger/internal/log"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans a set of caches.
type Janitor struct {
	caches   []Cleaner
	interval time.Duration
	logger   *log.Logger
}

func NewJanitor(interval time.Duration, logger *log.Logger, caches ...Cleaner) *Janitor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Janitor{caches: caches, interval: interval, logger: logger}
}

// Sweep cleans every cache once and returns the number of removed entries.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps on every tick until ctx is done. It always returns nil so it
// can run inside an errgroup without cancelling its siblings.
func (j *Janitor) Run(ctx context.Context) error {
	if j.interval <= 0 || len(j.caches) == 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Cleaned expired cache entries", log.FieldCount, n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
