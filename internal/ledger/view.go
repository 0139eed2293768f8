// Package ledger holds the live, read-mostly view of one user's expense
// ledger: either their own, or their partner's in read-only mode.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

// ErrNoPartner is returned when the user has no connection to view.
var ErrNoPartner = fmt.Errorf("%w: no connected partner", core.ErrNotFound)

// Session is the authenticated user a view acts for.
type Session struct {
	UserID string
}

// PartnerResolver finds the partner whose ledger may be viewed.
type PartnerResolver interface {
	Partner(ctx context.Context, userID string) (string, bool, error)
}

type View struct {
	session Session
	records store.RecordStore
	conv    core.Converter
	policy  core.EditPolicy
	logger  *log.Logger

	// switchMu serializes Open so at most one subscription is ever live.
	switchMu sync.Mutex

	mu         sync.Mutex
	viewing    string
	generation uint64
	sub        store.Subscription
	current    []core.Expense
	closed     bool

	changes chan struct{}
}

type Option func(*View)

func WithConverter(c core.Converter) Option {
	return func(v *View) { v.conv = c }
}

// WithEditPolicy selects what happens to the untouched amount when an update
// changes only one of them.
func WithEditPolicy(p core.EditPolicy) Option {
	return func(v *View) { v.policy = p }
}

func WithLogger(l *log.Logger) Option {
	return func(v *View) { v.logger = l }
}

func NewView(session Session, records store.RecordStore, opts ...Option) *View {
	v := &View{
		session: session,
		records: records,
		conv:    core.DefaultConverter(),
		policy:  core.PolicyDrift,
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = log.Discard()
	}
	v.logger = v.logger.WithComponent(log.ComponentLedger).With(log.FieldUserID, session.UserID)
	return v
}

// Open shows identity's ledger. The previous subscription is torn down and
// the resident records cleared before the new one is created, and any
// snapshot still in flight for the old identity is dropped. Open returns
// once the first snapshot of the new identity has been applied; concurrent
// calls run one after another.
func (v *View) Open(ctx context.Context, identity string) error {
	if identity == "" {
		return core.ErrEmptyOwner
	}

	v.switchMu.Lock()
	defer v.switchMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errors.New("ledger view is closed")
	}
	old := v.sub
	v.sub = nil
	v.generation++
	gen := v.generation
	v.viewing = identity
	v.current = nil
	v.mu.Unlock()

	if old != nil {
		old.Close()
	}
	v.signal()

	sub, err := v.records.Subscribe(ctx, identity)
	if err != nil {
		return v.storeFailure(ctx, log.OpSubscribe, err)
	}

	var initial []core.Expense
	select {
	case snap, ok := <-sub.Snapshots():
		if ok {
			initial = snap
		}
	case <-ctx.Done():
		sub.Close()
		return ctx.Err()
	}

	v.mu.Lock()
	if v.generation != gen || v.closed {
		v.mu.Unlock()
		sub.Close()
		return nil
	}
	v.sub = sub
	v.current = initial
	v.mu.Unlock()

	go v.pump(gen, sub)
	v.signal()

	v.logger.DebugContext(ctx, "Ledger opened",
		log.FieldOperation, log.OpSwitch,
		log.FieldViewing, identity,
		log.FieldGeneration, gen,
		log.FieldCount, len(initial))
	return nil
}

// SwitchTo is Open under the name used when a view is already showing
// another identity.
func (v *View) SwitchTo(ctx context.Context, identity string) error {
	return v.Open(ctx, identity)
}

// OpenSelf shows the session user's own ledger.
func (v *View) OpenSelf(ctx context.Context) error {
	return v.Open(ctx, v.session.UserID)
}

// OpenPartner shows the partner's ledger, read-only.
func (v *View) OpenPartner(ctx context.Context, partners PartnerResolver) error {
	id, ok, err := partners.Partner(ctx, v.session.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPartner
	}
	return v.Open(ctx, id)
}

func (v *View) pump(gen uint64, sub store.Subscription) {
	for snap := range sub.Snapshots() {
		v.mu.Lock()
		stale := v.generation != gen
		if !stale {
			v.current = snap
		}
		v.mu.Unlock()
		if stale {
			continue
		}
		v.signal()
	}
}

func (v *View) signal() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

// Changes receives a coalesced signal whenever Records may have changed.
func (v *View) Changes() <-chan struct{} {
	return v.changes
}

// Records returns a copy of the resident records, newest first.
func (v *View) Records() []core.Expense {
	v.mu.Lock()
	out := slices.Clone(v.current)
	v.mu.Unlock()
	if out == nil {
		out = []core.Expense{}
	}
	return store.SortNewestFirst(out)
}

// Visible returns the records matching f.
func (v *View) Visible(f core.Filter) ([]core.Expense, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.Apply(v.Records()), nil
}

// Summary aggregates the resident records over w.
func (v *View) Summary(w core.Window) (core.MonthSummary, error) {
	if err := w.Validate(); err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(v.Records(), w), nil
}

// Viewing returns the identity whose ledger is shown.
func (v *View) Viewing() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewing
}

// IsSelf reports whether the view shows the session user's own ledger.
func (v *View) IsSelf() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewing != "" && v.viewing == v.session.UserID
}

func (v *View) requireSelf() error {
	if !v.IsSelf() {
		return core.ErrReadOnlyView
	}
	return nil
}

// Create stores a new record for the session user. Local state changes only
// when the store pushes the next snapshot.
func (v *View) Create(ctx context.Context, e core.NewExpense) (string, error) {
	if err := v.requireSelf(); err != nil {
		return "", err
	}
	e.OwnerID = v.session.UserID
	if err := e.Validate(); err != nil {
		return "", err
	}
	id, err := v.records.Create(ctx, e)
	if err != nil {
		return "", v.storeFailure(ctx, log.OpCreate, err)
	}
	v.logger.InfoContext(ctx, "Expense created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithExpense(id, string(e.Category), e.Date.String(), core.FormatAmount(e.AmountPrimary), core.FormatAmount(e.AmountSecondary)).
			ToSlice()...)
	return id, nil
}

// Update patches one of the session user's records, applying the configured
// edit policy to single-amount patches.
func (v *View) Update(ctx context.Context, id string, patch core.ExpensePatch) error {
	if err := v.requireSelf(); err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	patch = v.conv.ApplyPolicy(patch, v.policy)
	if err := v.records.Update(ctx, v.session.UserID, id, patch); err != nil {
		return v.storeFailure(ctx, log.OpUpdate, err)
	}
	return nil
}

// Delete removes the record locally at once and asks the store to delete
// it. The local copy is restored if the store fails.
func (v *View) Delete(ctx context.Context, id string) error {
	if err := v.requireSelf(); err != nil {
		return err
	}

	v.mu.Lock()
	gen := v.generation
	var removed *core.Expense
	if i := slices.IndexFunc(v.current, func(e core.Expense) bool { return e.ID == id }); i >= 0 {
		rec := v.current[i]
		removed = &rec
		v.current = slices.Delete(slices.Clone(v.current), i, i+1)
	}
	v.mu.Unlock()
	if removed != nil {
		v.signal()
	}

	if err := v.records.Delete(ctx, v.session.UserID, id); err != nil {
		if removed != nil {
			v.restore(gen, *removed)
		}
		return v.storeFailure(ctx, log.OpDelete, err)
	}
	return nil
}

func (v *View) restore(gen uint64, rec core.Expense) {
	v.mu.Lock()
	restored := false
	if v.generation == gen && !slices.ContainsFunc(v.current, func(e core.Expense) bool { return e.ID == rec.ID }) {
		v.current = store.SortNewestFirst(append(slices.Clone(v.current), rec))
		restored = true
	}
	v.mu.Unlock()
	if restored {
		v.signal()
	}
}

// Close tears down the subscription. Further calls are no-ops.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.generation++
	sub := v.sub
	v.sub = nil
	v.current = nil
	v.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

func (v *View) storeFailure(ctx context.Context, op string, err error) error {
	serr := core.NewStoreError(op, err)
	if errors.Is(serr, core.ErrStore) {
		fields := log.NewFields().
			WithOperation(op).
			WithErrorType(log.ErrorTypeStore).
			WithError(err)
		fields[log.FieldViewing] = v.Viewing()
		v.logger.ErrorContext(ctx, "Store operation failed", fields.ToSlice()...)
	}
	return serr
}
