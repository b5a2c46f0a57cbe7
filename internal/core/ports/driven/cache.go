package driven

import (
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
)

// RecordCache buffers fetched records so a crash mid-harvest neither loses
// already-retrieved data nor forces a full re-fetch. Records are staged in
// memory and flushed to a durable append log; replay order equals fetch
// order. A nil RecordCache is a valid "no caching" configuration:
// connectors treat it as a no-op.
//
// One cache serves one connector/origin pair. Concurrent mutation of the
// same cache directory is not supported; callers serialise runs.
type RecordCache interface {
	// Push appends a record to the in-memory staging buffer.
	// O(1), never performs I/O.
	Push(rec domain.StampedRecord)

	// Flush appends all staged records to the durable log in order and
	// clears the buffer. An entry is either fully durable or not durable
	// at all, never truncated mid-entry.
	Flush() error

	// FlushIfFull flushes only when the staging buffer has reached the
	// cache's flush threshold. Connectors call it after every Push.
	FlushIfFull() error

	// PurgeQueue discards the staging buffer without writing it. Called
	// once at the start of a fetch run so leftover state from an aborted
	// run never mixes into a fresh one.
	PurgeQueue()

	// Backup snapshots the current durable content so a failed run can be
	// rolled back with Recover.
	Backup() error

	// Clean deletes all durable content and any backup. Idempotent.
	Clean() error

	// Recover restores durable content from the last backup, discarding
	// anything written since.
	Recover() error

	// Retrieve produces the durable entries in original append order. The
	// returned iterator is finite, restartable (each call re-reads from the
	// start) and read-only.
	Retrieve() *domain.RecordIter
}
