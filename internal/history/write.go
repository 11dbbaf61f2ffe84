package history

import (
	"context"
	"fmt"
	"time"

	"github.com/kitops-ml/kitops-go/internal/kit"
)

// Add inserts an entry and returns it with its ID and start time filled in.
// Entries with an existing ID are ignored.
func (s *Store) Add(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = s.now()
	}
	e.StartedAt = e.StartedAt.UTC()

	argsJSON, err := marshalArgs(e.Args)
	if err != nil {
		return Entry{}, fmt.Errorf("write history entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations
		(id, command, args, exit_code, started_at, duration_ns, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Command,
		argsJSON,
		e.ExitCode,
		e.StartedAt.UnixNano(),
		int64(e.Duration),
		e.Err,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("write history entry: %w", err)
	}
	return e, nil
}

// Record implements kit.Recorder.
func (s *Store) Record(ctx context.Context, rec kit.Record) error {
	_, err := s.Add(ctx, Entry{
		Command:   rec.Command,
		Args:      rec.Args,
		ExitCode:  rec.ExitCode,
		StartedAt: rec.StartedAt,
		Duration:  rec.Duration,
		Err:       rec.Err,
	})
	return err
}

// Prune deletes entries started before the cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM invocations WHERE started_at < ?`,
		before.UTC().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}

// PruneOlderThan deletes entries older than maxAge relative to the store's
// clock.
func (s *Store) PruneOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.Prune(ctx, s.now().Add(-maxAge))
}

var _ kit.Recorder = (*Store)(nil)
