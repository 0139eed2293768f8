package backend

import (
	"context"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/log"
	"ledger/internal/store"
	"ledger/internal/store/memory"
	"ledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	hub := store.NewHub()
	relay := f.createRelay(ctx, config)

	var (
		b   *Backend
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		b, err = f.createSQLiteBackend(config, hub, relay)
	case MemoryBackend:
		b = f.createMemoryBackend(hub, relay)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		if relay != nil {
			relay.Close()
		}
		return nil, err
	}
	return b, nil
}

// createRelay connects to the broker. A broker that cannot be reached only
// disables cross-process updates; it never prevents startup.
func (f *DefaultFactory) createRelay(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change relay", log.FieldError, err.Error())
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"origin", client.Origin())
	return client
}

func notifierFor(relay *amqp.Client) store.Notifier {
	if relay == nil {
		return nil
	}
	return relay
}

func (f *DefaultFactory) createSQLiteBackend(config Config, hub *store.Hub, relay *amqp.Client) (*Backend, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath,
		storage.WithHub(hub),
		storage.WithNotifier(notifierFor(relay)),
		storage.WithLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", relay != nil)

	return &Backend{
		Records:  repo,
		Profiles: repo,
		Hub:      hub,
		Relay:    relay,
		Load:     repo.ListExpenses,
		ping:     repo.Ping,
		Cleanup:  closeAll(relay, repo.Close),
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(hub *store.Hub, relay *amqp.Client) *Backend {
	s := memory.New(
		memory.WithHub(hub),
		memory.WithNotifier(notifierFor(relay)),
		memory.WithLogger(f.logger))

	f.logger.Info("Initialized memory backend", "amqp_enabled", relay != nil)

	return &Backend{
		Records:  s,
		Profiles: s,
		Hub:      hub,
		Relay:    relay,
		Load:     s.ListExpenses,
		Cleanup:  closeAll(relay, nil),
	}
}

func closeAll(relay *amqp.Client, closeStore func() error) CleanupFunc {
	return func() error {
		var firstErr error
		if relay != nil {
			if err := relay.Close(); err != nil {
				firstErr = fmt.Errorf("close AMQP client: %w", err)
			}
		}
		if closeStore != nil {
			if err := closeStore(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close store: %w", err)
			}
		}
		return firstErr
	}
}
