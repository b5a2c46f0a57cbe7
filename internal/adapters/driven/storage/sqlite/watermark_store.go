package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/ports/driven"
)

// watermarkStore implements driven.WatermarkStore.
type watermarkStore struct {
	store *Store
}

var _ driven.WatermarkStore = (*watermarkStore)(nil)

// Get retrieves the stored watermark for an (origin, backend) pair.
// The boolean reports whether a watermark exists.
func (s *watermarkStore) Get(ctx context.Context, origin, backend string) (time.Time, bool, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT updated_on FROM watermarks WHERE origin = ? AND backend = ?
	`, origin, backend)

	var updatedOn int64
	err := row.Scan(&updatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying watermark: %w", err)
	}
	return time.Unix(updatedOn, 0).UTC(), true, nil
}

// Set stores the watermark for an (origin, backend) pair, replacing any
// previous value.
func (s *watermarkStore) Set(ctx context.Context, origin, backend string, mark time.Time) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO watermarks (origin, backend, updated_on)
		VALUES (?, ?, ?)
		ON CONFLICT(origin, backend) DO UPDATE SET
			updated_on = excluded.updated_on
	`, origin, backend, mark.UTC().Unix())
	if err != nil {
		return fmt.Errorf("saving watermark: %w", err)
	}
	return nil
}
