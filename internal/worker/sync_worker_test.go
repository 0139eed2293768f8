package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/store"
)

type fakeMirror struct {
	mu      sync.Mutex
	calls   map[string][]core.Expense
	failFor map[string]int // owner -> remaining failures
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{calls: map[string][]core.Expense{}, failFor: map[string]int{}}
}

func (m *fakeMirror) Replace(_ context.Context, ownerID string, records []core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[ownerID] > 0 {
		m.failFor[ownerID]--
		return errors.New("sheets unavailable")
	}
	m.calls[ownerID] = records
	return nil
}

func (m *fakeMirror) got(ownerID string) ([]core.Expense, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.calls[ownerID]
	return r, ok
}

func fixedLoader(data map[string][]core.Expense) store.Loader {
	return func(_ context.Context, ownerID string) ([]core.Expense, error) {
		return append([]core.Expense(nil), data[ownerID]...), nil
	}
}

func expense(id, owner string, created time.Time) core.Expense {
	return core.Expense{
		ID:              id,
		OwnerID:         owner,
		Date:            core.NewDate(2024, 1, 5),
		Category:        core.Food,
		Description:     id,
		AmountPrimary:   decimal.NewFromInt(100),
		AmountSecondary: decimal.NewFromInt(267),
		CreatedAt:       created,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.FlushInterval != 10*time.Second {
		t.Errorf("expected FlushInterval 10s, got %v", config.FlushInterval)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
}

func TestNewSyncWorker_AppliesDefaults(t *testing.T) {
	w := NewSyncWorker(fixedLoader(nil), newFakeMirror(), Config{}, nil)

	if w.config != DefaultConfig() {
		t.Errorf("config = %+v, want defaults", w.config)
	}
	if len(w.Pending()) != 0 {
		t.Error("worker should start with nothing pending")
	}
}

func TestSyncWorker_FlushMirrorsNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	loader := fixedLoader(map[string][]core.Expense{
		"alice": {
			expense("old", "alice", base),
			expense("new", "alice", base.Add(time.Minute)),
		},
	})
	mirror := newFakeMirror()
	w := NewSyncWorker(loader, mirror, DefaultConfig(), nil)
	ctx := context.Background()

	w.Notify(ctx, store.Change{OwnerID: "alice", Op: store.OpCreated, RecordID: "new"})
	w.Notify(ctx, store.Change{OwnerID: "alice", Op: store.OpUpdated, RecordID: "old"})
	w.Notify(ctx, store.Change{Op: store.OpChanged})

	if got := w.Pending(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("Pending() = %v, want [alice]", got)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	records, ok := mirror.got("alice")
	if !ok {
		t.Fatal("alice was not mirrored")
	}
	if len(records) != 2 || records[0].ID != "new" {
		t.Errorf("records = %+v, want newest first", records)
	}
	if len(w.Pending()) != 0 {
		t.Errorf("Pending() = %v after successful flush", w.Pending())
	}
	if s := w.Stats(); s.Mirrored != 1 || s.Failed != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestSyncWorker_RetriesThenDrops(t *testing.T) {
	mirror := newFakeMirror()
	mirror.failFor["bob"] = 10
	w := NewSyncWorker(fixedLoader(nil), mirror, Config{FlushInterval: time.Second, MaxRetries: 2}, nil)
	ctx := context.Background()

	w.Notify(ctx, store.Change{OwnerID: "bob", Op: store.OpDeleted})

	if err := w.Flush(ctx); err == nil {
		t.Fatal("first flush should fail")
	}
	if got := w.Pending(); len(got) != 1 {
		t.Fatalf("bob should be retried, pending = %v", got)
	}
	if err := w.Flush(ctx); err == nil {
		t.Fatal("second flush should fail")
	}
	if got := w.Pending(); len(got) != 0 {
		t.Fatalf("bob should be dropped after MaxRetries, pending = %v", got)
	}
	if s := w.Stats(); s.Failed != 2 || s.Dropped != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestSyncWorker_NotifyResetsRetryBudget(t *testing.T) {
	mirror := newFakeMirror()
	mirror.failFor["bob"] = 2
	w := NewSyncWorker(fixedLoader(nil), mirror, Config{FlushInterval: time.Second, MaxRetries: 2}, nil)
	ctx := context.Background()

	w.Notify(ctx, store.Change{OwnerID: "bob", Op: store.OpCreated})
	_ = w.Flush(ctx)
	w.Notify(ctx, store.Change{OwnerID: "bob", Op: store.OpUpdated})
	_ = w.Flush(ctx)

	if got := w.Pending(); len(got) != 1 {
		t.Fatalf("a fresh change should keep bob pending, got %v", got)
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("third flush error = %v", err)
	}
	if _, ok := mirror.got("bob"); !ok {
		t.Error("bob should be mirrored once the sheet recovers")
	}
}

func TestSyncWorker_LoadError(t *testing.T) {
	loader := func(context.Context, string) ([]core.Expense, error) {
		return nil, core.ErrStore
	}
	w := NewSyncWorker(loader, newFakeMirror(), DefaultConfig(), nil)
	ctx := context.Background()

	w.Notify(ctx, store.Change{OwnerID: "alice", Op: store.OpCreated})
	if err := w.Flush(ctx); !errors.Is(err, core.ErrStore) {
		t.Fatalf("Flush() error = %v, want ErrStore", err)
	}
}

func TestSyncWorker_RunFlushesOnTickAndStop(t *testing.T) {
	mirror := newFakeMirror()
	w := NewSyncWorker(fixedLoader(nil), mirror, Config{FlushInterval: 20 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Notify(ctx, store.Change{OwnerID: "alice", Op: store.OpCreated})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := mirror.got("alice"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("alice was not mirrored by the ticker")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w.Notify(ctx, store.Change{OwnerID: "carol", Op: store.OpCreated})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := mirror.got("carol"); !ok {
		t.Error("pending owners should be flushed on shutdown")
	}
}
