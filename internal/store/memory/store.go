// Package memory is an in-process implementation of the record and profile
// stores, used by tests and by DATA_BACKEND=memory.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	records  map[string]core.Expense
	profiles map[string]core.Profile

	hub      *store.Hub
	notifier store.Notifier
	clock    *store.Clock
	logger   *log.Logger
}

type Option func(*Store)

// WithHub shares a hub with other components, such as the AMQP relay.
func WithHub(h *store.Hub) Option {
	return func(s *Store) { s.hub = h }
}

// WithNotifier adds a notifier told about every change besides the hub.
func WithNotifier(n store.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = store.NewClock(now) }
}

func New(opts ...Option) *Store {
	s := &Store{
		records:  make(map[string]core.Expense),
		profiles: make(map[string]core.Profile),
		clock:    store.NewClock(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = store.NewHub()
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentMemory)
	return s
}

// Hub returns the hub subscriptions listen on.
func (s *Store) Hub() *store.Hub { return s.hub }

func (s *Store) Subscribe(ctx context.Context, ownerID string) (store.Subscription, error) {
	if ownerID == "" {
		return nil, core.ErrEmptyOwner
	}
	return store.NewFeed(ctx, s.hub, ownerID, s.ListExpenses, s.logger)
}

// ListExpenses returns a copy of the owner's records in no particular order.
func (s *Store) ListExpenses(_ context.Context, ownerID string) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, 0)
	for _, e := range s.records {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, e core.NewExpense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	now := s.clock.Next()
	rec := core.Expense{
		ID:              uuid.NewString(),
		OwnerID:         e.OwnerID,
		Date:            e.Date,
		Category:        e.Category,
		Description:     e.Description,
		AmountPrimary:   e.AmountPrimary,
		AmountSecondary: e.AmountSecondary,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Expense created",
		log.FieldOwnerID, rec.OwnerID,
		log.FieldExpenseID, rec.ID)
	s.notify(ctx, store.Change{OwnerID: rec.OwnerID, Op: store.OpCreated, RecordID: rec.ID})
	return rec.ID, nil
}

func (s *Store) Update(ctx context.Context, ownerID, id string, patch core.ExpensePatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		s.mu.Unlock()
		return core.ErrRecordNotFound
	}
	rec = patch.Apply(rec)
	rec.UpdatedAt = s.clock.Next()
	s.records[id] = rec
	s.mu.Unlock()

	s.notify(ctx, store.Change{OwnerID: ownerID, Op: store.OpUpdated, RecordID: id})
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	removed := ok && rec.OwnerID == ownerID
	if removed {
		delete(s.records, id)
	}
	s.mu.Unlock()

	if removed {
		s.notify(ctx, store.Change{OwnerID: ownerID, Op: store.OpDeleted, RecordID: id})
	}
	return nil
}

func (s *Store) notify(ctx context.Context, c store.Change) {
	s.hub.Notify(ctx, c)
	if s.notifier != nil {
		s.notifier.Notify(ctx, c)
	}
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.Profile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return core.Profile{}, false, nil
	}
	p.Connections = slices.Clone(p.Connections)
	return p, true, nil
}

// CreateProfile returns the existing profile unchanged if there is one.
func (s *Store) CreateProfile(_ context.Context, userID string) (core.Profile, error) {
	if userID == "" {
		return core.Profile{}, core.ErrEmptyOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = core.Profile{UserID: userID, Connections: []string{}, CreatedAt: s.clock.Next()}
		s.profiles[userID] = p
	}
	p.Connections = slices.Clone(p.Connections)
	return p, nil
}

// AppendConnection adds targetID once, creating the profile if needed.
func (s *Store) AppendConnection(_ context.Context, userID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = core.Profile{UserID: userID, CreatedAt: s.clock.Next()}
	}
	if !slices.Contains(p.Connections, targetID) {
		p.Connections = append(slices.Clone(p.Connections), targetID)
	}
	s.profiles[userID] = p
	return nil
}

func (s *Store) RemoveConnection(_ context.Context, userID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	p.Connections = slices.DeleteFunc(slices.Clone(p.Connections), func(c string) bool { return c == targetID })
	s.profiles[userID] = p
	return nil
}
