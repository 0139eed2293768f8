package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, bool, error) {
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `SELECT created_at FROM profiles WHERE user_id = ?`, userID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, false, nil
	}
	if err != nil {
		return core.Profile{}, false, fmt.Errorf("get profile: %w", err)
	}

	connections, err := r.connections(ctx, userID)
	if err != nil {
		return core.Profile{}, false, err
	}
	return core.Profile{
		UserID:      userID,
		Connections: connections,
		CreatedAt:   time.Unix(0, createdAt).UTC(),
	}, true, nil
}

func (r *SQLiteRepository) connections(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT target_id FROM connections
WHERE user_id = ?
ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	connections := make([]string, 0)
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		connections = append(connections, target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}
	return connections, nil
}

// CreateProfile returns the existing profile unchanged if there is one.
func (r *SQLiteRepository) CreateProfile(ctx context.Context, userID string) (core.Profile, error) {
	if userID == "" {
		return core.Profile{}, core.ErrEmptyOwner
	}
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO profiles (user_id, created_at) VALUES (?, ?)`,
		userID, r.clock.Next().UnixNano()); err != nil {
		return core.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	p, ok, err := r.GetProfile(ctx, userID)
	if err != nil {
		return core.Profile{}, err
	}
	if !ok {
		return core.Profile{}, fmt.Errorf("create profile: %s missing after insert", userID)
	}
	return p, nil
}

// AppendConnection adds targetID once at the end of the list, creating the
// profile if needed.
func (r *SQLiteRepository) AppendConnection(ctx context.Context, userID, targetID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append connection: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO profiles (user_id, created_at) VALUES (?, ?)`,
		userID, r.clock.Next().UnixNano()); err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO connections (user_id, target_id, position)
SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM connections WHERE user_id = ?`,
		userID, targetID, userID); err != nil {
		return fmt.Errorf("append connection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append connection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveConnection(ctx context.Context, userID, targetID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE user_id = ? AND target_id = ?`,
		userID, targetID); err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	return nil
}
