// Package connections manages the directed "connected to" relation between
// users and picks the partner whose ledger can be viewed.
package connections

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

var (
	ErrEmptyTarget = fmt.Errorf("%w: empty user id", core.ErrInvalidTarget)
	ErrSelfTarget  = fmt.Errorf("%w: cannot connect to own user id", core.ErrInvalidTarget)
)

// AddOutcome tells a successful Add apart from a benign duplicate.
type AddOutcome int

const (
	OutcomeConnected AddOutcome = iota
	OutcomeAlreadyConnected
)

func (o AddOutcome) String() string {
	if o == OutcomeAlreadyConnected {
		return "already_connected"
	}
	return "connected"
}

type Directory struct {
	profiles store.ProfileStore
	cache    *cache.LRU[string, []string]
	logger   *log.Logger
}

type Option func(*Directory)

// WithCache caches connection lists by user id.
func WithCache(c *cache.LRU[string, []string]) Option {
	return func(d *Directory) { d.cache = c }
}

func WithLogger(l *log.Logger) Option {
	return func(d *Directory) { d.logger = l }
}

func NewDirectory(profiles store.ProfileStore, opts ...Option) *Directory {
	d := &Directory{profiles: profiles}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.Discard()
	}
	d.logger = d.logger.WithComponent(log.ComponentConnections)
	return d
}

// Fetch returns userID's ordered connections. A missing profile is created
// empty on first access.
func (d *Directory) Fetch(ctx context.Context, userID string) ([]string, error) {
	if conns, ok := d.cache.Get(userID); ok {
		return slices.Clone(conns), nil
	}

	p, ok, err := d.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, d.storeFailure(ctx, "get profile", userID, err)
	}
	if !ok {
		p, err = d.profiles.CreateProfile(ctx, userID)
		if err != nil {
			serr := d.storeFailure(ctx, "create profile", userID, err)
			return nil, fmt.Errorf("%w: profile %s: %w", core.ErrNotFound, userID, serr)
		}
		d.logger.InfoContext(ctx, "Created empty profile", log.FieldUserID, userID)
	}

	conns := p.Connections
	if conns == nil {
		conns = []string{}
	}
	d.cache.Set(userID, slices.Clone(conns))
	return conns, nil
}

// Add appends targetID to selfID's connections. The relation is directed:
// targetID's own list is never touched.
func (d *Directory) Add(ctx context.Context, selfID, targetID string) (AddOutcome, error) {
	targetID = strings.TrimSpace(targetID)
	switch {
	case targetID == "":
		return OutcomeConnected, ErrEmptyTarget
	case targetID == selfID:
		return OutcomeConnected, ErrSelfTarget
	}

	_, ok, err := d.profiles.GetProfile(ctx, targetID)
	if err != nil {
		return OutcomeConnected, d.storeFailure(ctx, "get profile", targetID, err)
	}
	if !ok {
		return OutcomeConnected, core.ErrTargetNotFound
	}

	conns, err := d.Fetch(ctx, selfID)
	if err != nil {
		return OutcomeConnected, err
	}
	if slices.Contains(conns, targetID) {
		return OutcomeAlreadyConnected, nil
	}

	if err := d.profiles.AppendConnection(ctx, selfID, targetID); err != nil {
		return OutcomeConnected, d.storeFailure(ctx, "append connection", selfID, err)
	}
	d.cache.Delete(selfID)

	d.logger.InfoContext(ctx, "Connection added",
		log.FieldOperation, log.OpConnect,
		log.FieldUserID, selfID,
		log.FieldTargetID, targetID)
	return OutcomeConnected, nil
}

// Remove drops targetID from selfID's connections. Removing an absent
// connection succeeds.
func (d *Directory) Remove(ctx context.Context, selfID, targetID string) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return ErrEmptyTarget
	}
	if err := d.profiles.RemoveConnection(ctx, selfID, targetID); err != nil {
		return d.storeFailure(ctx, "remove connection", selfID, err)
	}
	d.cache.Delete(selfID)

	d.logger.InfoContext(ctx, "Connection removed",
		log.FieldOperation, log.OpDisconnect,
		log.FieldUserID, selfID,
		log.FieldTargetID, targetID)
	return nil
}

// ActivePartner returns the first connection. Later entries are kept but
// never shown.
func ActivePartner(connections []string) (string, bool) {
	if len(connections) == 0 {
		return "", false
	}
	return connections[0], true
}

// Partner resolves userID's active partner.
func (d *Directory) Partner(ctx context.Context, userID string) (string, bool, error) {
	conns, err := d.Fetch(ctx, userID)
	if err != nil {
		return "", false, err
	}
	id, ok := ActivePartner(conns)
	return id, ok, nil
}

func (d *Directory) storeFailure(ctx context.Context, op, userID string, err error) error {
	serr := core.NewStoreError(op, err)
	var se *core.StoreError
	if errors.As(serr, &se) {
		d.logger.ErrorContext(ctx, "Profile store failure",
			log.FieldOperation, op,
			log.FieldUserID, userID,
			log.FieldErrorType, log.ErrorTypeStore,
			log.FieldError, err.Error())
	}
	return serr
}
