package store

import (
	"context"
	"sort"
	"sync"

	"ledger/internal/core"
	"ledger/internal/log"
)

// Loader reads the current record list of an owner.
type Loader func(ctx context.Context, ownerID string) ([]core.Expense, error)

// Feed is the Subscription shared by the store implementations: it loads a
// snapshot up front and reloads whenever the hub signals a change.
type Feed struct {
	ownerID string
	load    Loader
	logger  *log.Logger

	out     chan []core.Expense
	changed <-chan struct{}
	stop    func()
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// NewFeed subscribes to ownerID on hub. The initial load runs before
// NewFeed returns so that its error reaches the caller.
func NewFeed(ctx context.Context, hub *Hub, ownerID string, load Loader, logger *log.Logger) (*Feed, error) {
	if logger == nil {
		logger = log.Discard()
	}
	changed, stop := hub.Listen(ownerID)

	initial, err := load(ctx, ownerID)
	if err != nil {
		stop()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &Feed{
		ownerID: ownerID,
		load:    load,
		logger:  logger.WithComponent(log.ComponentFeed),
		out:     make(chan []core.Expense, 1),
		changed: changed,
		stop:    stop,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	f.offer(SortNewestFirst(initial))
	go f.run(runCtx)
	return f, nil
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.changed:
			records, err := f.load(ctx, f.ownerID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				f.logger.ErrorContext(ctx, "Failed to reload snapshot",
					log.FieldOwnerID, f.ownerID,
					log.FieldError, err.Error())
				continue
			}
			f.offer(SortNewestFirst(records))
		}
	}
}

// offer replaces any undelivered snapshot with records. Only the feed
// goroutine and NewFeed send, never concurrently.
func (f *Feed) offer(records []core.Expense) {
	select {
	case f.out <- records:
		return
	default:
	}
	select {
	case <-f.out:
	default:
	}
	select {
	case f.out <- records:
	default:
	}
}

func (f *Feed) Snapshots() <-chan []core.Expense {
	return f.out
}

// Close stops the feed and releases its hub listener. The snapshot channel
// is closed once the goroutine has exited.
func (f *Feed) Close() error {
	f.once.Do(func() {
		f.cancel()
		f.stop()
		<-f.done
		close(f.out)
	})
	return nil
}

// SortNewestFirst orders records by CreatedAt descending, ties by id.
func SortNewestFirst(records []core.Expense) []core.Expense {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}
