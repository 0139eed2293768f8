package backend

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/store"
)

// CleanupFunc releases resources held by a backend
type CleanupFunc func() error

// Backend bundles the stores the application runs on, plus the optional
// cross-process change relay.
type Backend struct {
	Records  store.RecordStore
	Profiles store.ProfileStore
	Hub      *store.Hub
	Relay    *amqp.Client
	// Load reads an owner's records directly, bypassing subscriptions.
	Load store.Loader

	ping    func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Ping reports whether the underlying storage is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// RunRelay forwards changes published by other processes into the local hub
// until ctx is done. Without a relay it just waits for ctx.
func (b *Backend) RunRelay(ctx context.Context) error {
	if b.Relay == nil {
		<-ctx.Done()
		return nil
	}
	return b.Relay.Relay(ctx, b.Hub)
}

// Close runs the cleanup function, if any.
func (b *Backend) Close() error {
	if b.Cleanup == nil {
		return nil
	}
	return b.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Change relay, optional for both backends
	AMQPURL      string
	AMQPExchange string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
