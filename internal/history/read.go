package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultListLimit is used by List when limit is not positive.
const DefaultListLimit = 20

// List returns the most recent entries, newest first. Ties on start time are
// broken by ID so results are stable.
//
// Returns an empty slice (not nil) when the journal is empty.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command, args, exit_code, started_at, duration_ns, error
		FROM invocations
		ORDER BY started_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given ID or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, command, args, exit_code, started_at, duration_ns, error
		FROM invocations
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		argsJSON   string
		startedAt  int64
		durationNS int64
	)
	if err := row.Scan(&e.ID, &e.Command, &argsJSON, &e.ExitCode, &startedAt, &durationNS, &e.Err); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	args, err := unmarshalArgs(argsJSON)
	if err != nil {
		return Entry{}, err
	}
	e.Args = args
	e.StartedAt = time.Unix(0, startedAt).UTC()
	e.Duration = time.Duration(durationNS)
	return e, nil
}
