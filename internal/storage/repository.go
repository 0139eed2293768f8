// Package storage is the SQLite implementation of the record and profile
// stores.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db       *sql.DB
	hub      *store.Hub
	notifier store.Notifier
	clock    *store.Clock
	logger   *log.Logger
}

type Option func(*SQLiteRepository)

// WithHub shares a hub with other components, such as the AMQP relay.
func WithHub(h *store.Hub) Option {
	return func(r *SQLiteRepository) { r.hub = h }
}

// WithNotifier adds a notifier told about every change besides the hub.
func WithNotifier(n store.Notifier) Option {
	return func(r *SQLiteRepository) { r.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(r *SQLiteRepository) { r.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) { r.clock = store.NewClock(now) }
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	// File databases are shared between the server and the worker.
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:    db,
		clock: store.NewClock(nil),
	}
	for _, opt := range opts {
		opt(repo)
	}
	if repo.hub == nil {
		repo.hub = store.NewHub()
	}
	if repo.logger == nil {
		repo.logger = log.Discard()
	}
	repo.logger = repo.logger.WithComponent(log.ComponentStorage)

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Hub returns the hub subscriptions listen on.
func (r *SQLiteRepository) Hub() *store.Hub { return r.hub }

func (r *SQLiteRepository) Subscribe(ctx context.Context, ownerID string) (store.Subscription, error) {
	if ownerID == "" {
		return nil, core.ErrEmptyOwner
	}
	return store.NewFeed(ctx, r.hub, ownerID, r.ListExpenses, r.logger)
}

const selectExpenses = `
SELECT id, owner_id, date, category, description, amount_primary, amount_secondary, created_at, updated_at
FROM expenses`

// ListExpenses returns the owner's records, newest first. Rows that do not
// decode into a valid record are skipped and logged.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, selectExpenses+`
WHERE owner_id = ?
ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		var row expenseRow
		if err := row.scan(rows); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e, err := row.decode()
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping malformed expense row",
				log.FieldOwnerID, ownerID,
				log.FieldExpenseID, row.id,
				log.FieldError, err.Error())
			continue
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, e core.NewExpense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := r.clock.Next().UnixNano()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO expenses (id, owner_id, date, category, description, amount_primary, amount_secondary, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.OwnerID, e.Date.String(), string(e.Category), e.Description,
		e.AmountPrimary.String(), e.AmountSecondary.String(), now, now)
	if err != nil {
		return "", fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.NewFields().
			WithUser(e.OwnerID).
			WithExpense(id, string(e.Category), e.Date.String(), e.AmountPrimary.String(), e.AmountSecondary.String()).
			ToSlice()...)

	r.notify(ctx, store.Change{OwnerID: e.OwnerID, Op: store.OpCreated, RecordID: id})
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, ownerID, id string, patch core.ExpensePatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var row expenseRow
	err = row.scan(tx.QueryRowContext(ctx, selectExpenses+`
WHERE id = ? AND owner_id = ?`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}
	current, err := row.decode()
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}

	updated := patch.Apply(current)
	_, err = tx.ExecContext(ctx, `
UPDATE expenses
SET date = ?, category = ?, description = ?, amount_primary = ?, amount_secondary = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`,
		updated.Date.String(), string(updated.Category), updated.Description,
		updated.AmountPrimary.String(), updated.AmountSecondary.String(),
		r.clock.Next().UnixNano(), id, ownerID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}

	r.notify(ctx, store.Change{OwnerID: ownerID, Op: store.OpUpdated, RecordID: id})
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.notify(ctx, store.Change{OwnerID: ownerID, Op: store.OpDeleted, RecordID: id})
	}
	return nil
}

func (r *SQLiteRepository) notify(ctx context.Context, c store.Change) {
	r.hub.Notify(ctx, c)
	if r.notifier != nil {
		r.notifier.Notify(ctx, c)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// expenseRow is an expense as stored, before boundary validation.
type expenseRow struct {
	id, ownerID, date, category, description string
	primary, secondary                       string
	createdAt, updatedAt                     int64
}

func (row *expenseRow) scan(s rowScanner) error {
	return s.Scan(&row.id, &row.ownerID, &row.date, &row.category, &row.description,
		&row.primary, &row.secondary, &row.createdAt, &row.updatedAt)
}

func (row expenseRow) decode() (core.Expense, error) {
	date, err := core.ParseDate(row.date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: date %q", core.ErrMalformedRecord, row.date)
	}
	primary, err := decimal.NewFromString(row.primary)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: amount_primary %q", core.ErrMalformedRecord, row.primary)
	}
	secondary, err := decimal.NewFromString(row.secondary)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: amount_secondary %q", core.ErrMalformedRecord, row.secondary)
	}
	e := core.Expense{
		ID:              row.id,
		OwnerID:         row.ownerID,
		Date:            date,
		Category:        core.Category(row.category),
		Description:     row.description,
		AmountPrimary:   primary,
		AmountSecondary: secondary,
		CreatedAt:       time.Unix(0, row.createdAt).UTC(),
		UpdatedAt:       time.Unix(0, row.updatedAt).UTC(),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", core.ErrMalformedRecord, err)
	}
	return e, nil
}
