// Package store defines the persistence contracts the ledger depends on and
// the push plumbing shared by every implementation.
package store

import (
	"context"

	"ledger/internal/core"
)

// RecordStore persists expense records scoped to their owner.
type RecordStore interface {
	// Subscribe delivers the owner's full record list now and after every
	// change until the subscription is closed.
	Subscribe(ctx context.Context, ownerID string) (Subscription, error)
	Create(ctx context.Context, e core.NewExpense) (string, error)
	// Update returns core.ErrRecordNotFound for an absent or foreign id.
	Update(ctx context.Context, ownerID, id string, patch core.ExpensePatch) error
	// Delete of an absent id succeeds.
	Delete(ctx context.Context, ownerID, id string) error
}

// Subscription is a live stream of snapshots. Only the latest snapshot is
// buffered; a slow reader skips intermediate ones.
type Subscription interface {
	Snapshots() <-chan []core.Expense
	Close() error
}

// ProfileStore persists user profiles and their ordered connection lists.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (core.Profile, bool, error)
	CreateProfile(ctx context.Context, userID string) (core.Profile, error)
	AppendConnection(ctx context.Context, userID, targetID string) error
	RemoveConnection(ctx context.Context, userID, targetID string) error
}

// Change describes one mutation of an owner's records.
type Change struct {
	OwnerID  string
	Op       Op
	RecordID string
}

// Notifier is told whenever an owner's records changed.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

// Notifiers fans a change out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, c Change) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(ctx, c)
		}
	}
}

// Op names a record mutation, used in change messages and logs.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
	// OpChanged is used when the kind of change is unknown.
	OpChanged Op = "changed"
)
