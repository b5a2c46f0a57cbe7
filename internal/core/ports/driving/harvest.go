// Package driving defines the interfaces through which the outside world
// (the CLI) drives the core. Services implement them.
package driving

import (
	"context"
	"time"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
)

// RecordSink consumes stamped records as a run yields them. Returning an
// error aborts the run; the record that caused it stays durable.
type RecordSink func(domain.StampedRecord) error

// RunStatus summarises one harvest or replay run.
type RunStatus struct {
	// RunID correlates log lines of one run.
	RunID string

	// Origin and Backend identify the connector that ran.
	Origin  string
	Backend string

	// Records is the number of records delivered to the sink.
	Records int

	// LastUpdatedOn is the highest update watermark seen, usable as the
	// next run's lower bound. Zero when no records were delivered.
	LastUpdatedOn time.Time
}

// Harvester executes harvest runs for one connector, wrapping them in the
// cache backup/recover lifecycle.
type Harvester interface {
	// Run harvests records updated at or after since and streams them to
	// sink. A zero since falls back to the stored watermark when one
	// exists, and to the beginning of time otherwise. On failure the
	// cache is rolled back to the pre-run backup before the error is
	// returned; the status reflects what was delivered up to that point.
	Run(ctx context.Context, since time.Time, sink RecordSink) (*RunStatus, error)

	// Replay streams the records currently durable in the cache, never
	// touching the network or subprocesses.
	Replay(ctx context.Context, sink RecordSink) (*RunStatus, error)
}
