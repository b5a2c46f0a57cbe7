package connectors

import (
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/ports/driven"
)

// RawNext produces the next raw record from a retrieval strategy. It
// returns the record, whether one was produced, and any retrieval error.
type RawNext func() (domain.Record, bool, error)

// Harvest adapts a retrieval strategy into the stamped, cache-backed
// sequence the Connector contract requires. The staging queue is purged
// once, up front; then for every raw record: stamp, push, attempt a flush,
// and only then yield, so records a consumer has already seen stay durable
// even if it abandons iteration. On exhaustion any staged remainder below
// the flush threshold is flushed too. A nil cache disables all caching.
func Harvest(rc driven.RecordCache, stamper domain.Stamper, next RawNext) *domain.RecordIter {
	if rc != nil {
		rc.PurgeQueue()
	}

	return domain.NewRecordIter(func() (domain.StampedRecord, bool, error) {
		rec, ok, err := next()
		if err != nil {
			return domain.StampedRecord{}, false, err
		}
		if !ok {
			if rc != nil {
				if err := rc.Flush(); err != nil {
					return domain.StampedRecord{}, false, err
				}
			}
			return domain.StampedRecord{}, false, nil
		}

		stamped, err := stamper.Stamp(rec)
		if err != nil {
			return domain.StampedRecord{}, false, err
		}
		if rc != nil {
			rc.Push(stamped)
			if err := rc.FlushIfFull(); err != nil {
				return domain.StampedRecord{}, false, err
			}
		}
		return stamped, true, nil
	})
}

// Replay returns the cached-record sequence for a connector, or a failed
// iterator when the connector was built without a cache.
func Replay(rc driven.RecordCache) *domain.RecordIter {
	if rc == nil {
		return domain.FailedRecordIter(domain.ErrCacheNotConfigured)
	}
	return rc.Retrieve()
}
