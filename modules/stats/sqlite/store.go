package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flemzord/catbot/internal/stats"
)

var _ stats.Store = (*Store)(nil)

// Store is a stats.Store persisted in SQLite. Increments are applied with a
// single upsert, so concurrent Adds never lose a count.
type Store struct {
	db *sql.DB
}

// Add implements stats.Store.
func (s *Store) Add(ctx context.Context, key stats.Key, delta int64) error {
	if err := stats.ValidateAdd(key, delta); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (counter, room, module, sub, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (counter, room, module, sub) DO UPDATE SET
			value = value + excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		key.Counter, key.Room, key.Module, key.Sub, delta)
	if err != nil {
		return fmt.Errorf("sqlite: add %s: %w", key.Counter, err)
	}
	return nil
}

// Snapshot implements stats.Store.
func (s *Store) Snapshot(ctx context.Context, room string) ([]stats.Entry, error) {
	query := `SELECT counter, room, module, sub, value FROM counters`
	var args []any
	if room != "" {
		query += ` WHERE room = ?`
		args = append(args, room)
	}
	query += ` ORDER BY room, counter, module, sub`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: snapshot: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []stats.Entry
	for rows.Next() {
		var e stats.Entry
		if err := rows.Scan(&e.Counter, &e.Room, &e.Module, &e.Sub, &e.Value); err != nil {
			return nil, fmt.Errorf("sqlite: scan counter: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: snapshot: %w", err)
	}
	return entries, nil
}

// Rooms returns the distinct rooms with recorded counters.
func (s *Store) Rooms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT room FROM counters WHERE room != '' ORDER BY room`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list rooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rooms []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("sqlite: scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
