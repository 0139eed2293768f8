package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine matches exactly one of
// these via errors.Is, so callers can map outcomes without string matching.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStore      = errors.New("store error")
)

var (
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidCategory  = fmt.Errorf("%w: invalid category", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrDescriptionLong  = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLen)
	ErrEmptyOwner       = fmt.Errorf("%w: empty owner", ErrValidation)
	ErrInvalidRange     = fmt.Errorf("%w: start date after end date", ErrValidation)
	ErrInvalidTarget    = fmt.Errorf("%w: invalid connection target", ErrValidation)
	ErrReadOnlyView     = fmt.Errorf("%w: partner ledger is read-only", ErrValidation)
	ErrTargetNotFound   = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrRecordNotFound   = fmt.Errorf("%w: expense not found", ErrNotFound)
	ErrAlreadyConnected = fmt.Errorf("%w: already connected to this user", ErrConflict)
	ErrMalformedRecord  = errors.New("malformed record")
	ErrNoData           = errors.New("no data")
)

// StoreError wraps any failure coming out of a record or profile store.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError returns nil when err is nil. Errors that already carry a
// kind (a store reporting ErrRecordNotFound, say) are returned unchanged.
func NewStoreError(op string, err error) error {
	if err == nil || Kind(err) != nil {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Kind reports which of the four error kinds err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrStore} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
