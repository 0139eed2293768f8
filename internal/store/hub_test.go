package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledger/internal/core"
)

func TestHub_ListenNotify(t *testing.T) {
	hub := NewHub()
	ch, stop := hub.Listen("alice")
	other, stopOther := hub.Listen("bob")
	defer stopOther()

	hub.Notify(context.Background(), Change{OwnerID: "alice"})
	hub.Notify(context.Background(), Change{OwnerID: "alice"})

	select {
	case <-ch:
	default:
		t.Fatal("expected a signal for alice")
	}
	select {
	case <-ch:
		t.Fatal("signals should be coalesced")
	default:
	}
	select {
	case <-other:
		t.Fatal("bob should not be signalled")
	default:
	}

	if got := hub.Listeners("alice"); got != 1 {
		t.Fatalf("Listeners(alice) = %d, want 1", got)
	}
	stop()
	stop()
	if got := hub.Listeners("alice"); got != 0 {
		t.Fatalf("Listeners(alice) after stop = %d, want 0", got)
	}
	if got := hub.TotalListeners(); got != 1 {
		t.Fatalf("TotalListeners() = %d, want 1", got)
	}
}

func TestNotifiers_FanOut(t *testing.T) {
	a, b := NewHub(), NewHub()
	chA, stopA := a.Listen("u")
	defer stopA()
	chB, stopB := b.Listen("u")
	defer stopB()

	Notifiers{a, nil, b}.Notify(context.Background(), Change{OwnerID: "u", Op: OpCreated})

	for name, ch := range map[string]<-chan struct{}{"a": chA, "b": chB} {
		select {
		case <-ch:
		default:
			t.Fatalf("hub %s was not notified", name)
		}
	}
}

type fakeLoader struct {
	mu      sync.Mutex
	records []core.Expense
	err     error
	calls   int
}

func (l *fakeLoader) load(_ context.Context, _ string) ([]core.Expense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return append([]core.Expense(nil), l.records...), nil
}

func (l *fakeLoader) set(records ...core.Expense) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = records
}

func expense(id string, created time.Time) core.Expense {
	return core.Expense{ID: id, OwnerID: "alice", CreatedAt: created}
}

func receive(t *testing.T, sub Subscription) []core.Expense {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func TestFeed_InitialSnapshotAndReload(t *testing.T) {
	hub := NewHub()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loader := &fakeLoader{records: []core.Expense{expense("a", base), expense("b", base.Add(time.Minute))}}

	feed, err := NewFeed(context.Background(), hub, "alice", loader.load, nil)
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	defer feed.Close()

	snap := receive(t, feed)
	if len(snap) != 2 || snap[0].ID != "b" || snap[1].ID != "a" {
		t.Fatalf("initial snapshot not sorted newest first: %+v", snap)
	}

	loader.set(expense("c", base.Add(time.Hour)))
	hub.Notify(context.Background(), Change{OwnerID: "alice"})

	snap = receive(t, feed)
	if len(snap) != 1 || snap[0].ID != "c" {
		t.Fatalf("unexpected reload snapshot: %+v", snap)
	}
}

func TestFeed_InitialLoadError(t *testing.T) {
	hub := NewHub()
	loader := &fakeLoader{err: errors.New("boom")}

	if _, err := NewFeed(context.Background(), hub, "alice", loader.load, nil); err == nil {
		t.Fatal("expected error from initial load")
	}
	if got := hub.Listeners("alice"); got != 0 {
		t.Fatalf("listener leaked after failed subscribe: %d", got)
	}
}

func TestFeed_CloseReleasesListener(t *testing.T) {
	hub := NewHub()
	loader := &fakeLoader{}

	feed, err := NewFeed(context.Background(), hub, "alice", loader.load, nil)
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	if got := hub.Listeners("alice"); got != 1 {
		t.Fatalf("Listeners() = %d, want 1", got)
	}

	if err := feed.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := feed.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if got := hub.Listeners("alice"); got != 0 {
		t.Fatalf("Listeners() after Close = %d, want 0", got)
	}

	// Drain the undelivered initial snapshot; the channel must then be closed.
	for range feed.Snapshots() {
	}
}

func TestFeed_LatestWins(t *testing.T) {
	hub := NewHub()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loader := &fakeLoader{}

	feed, err := NewFeed(context.Background(), hub, "alice", loader.load, nil)
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	defer feed.Close()

	loader.set(expense("x", base))
	hub.Notify(context.Background(), Change{OwnerID: "alice"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-feed.Snapshots():
			if len(snap) == 1 && snap[0].ID == "x" {
				return
			}
		case <-deadline:
			t.Fatal("latest snapshot never delivered")
		}
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []core.Expense{
		expense("a", base),
		expense("c", base.Add(time.Second)),
		expense("b", base),
	}
	got := SortNewestFirst(records)
	want := []string{"c", "b", "a"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := NewClock(func() time.Time { return fixed })

	first := clock.Next()
	second := clock.Next()
	if !second.After(first) {
		t.Fatalf("Next() not increasing: %v then %v", first, second)
	}
	if !first.Equal(fixed) {
		t.Fatalf("first timestamp = %v, want %v", first, fixed)
	}
}
