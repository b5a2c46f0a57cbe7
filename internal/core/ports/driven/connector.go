package driven

import (
	"context"
	"time"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
)

// Connector fetches records from a data source. Each connector type
// (paged REST API, local git blame, etc.) implements this interface.
// Retrieval strategies are substitutable behind this one contract; they
// share no base type or mutable state.
type Connector interface {
	// BackendName returns the connector implementation identifier.
	BackendName() string

	// BackendVersion returns the connector implementation version.
	BackendVersion() string

	// Origin returns the source instance this connector reads from
	// (site name, repository URI). Immutable once constructed.
	Origin() string

	// Fetch returns a lazy, finite, non-restartable sequence of stamped
	// records updated at or after since. A zero since means "beginning of
	// time", never "now". Fetch purges the cache staging queue once at the
	// start; each produced record is pushed to the cache and flushed before
	// it is yielded, so records already consumed stay durable even when the
	// caller abandons iteration. Iteration blocks on each underlying
	// retrieval operation and propagates its failure in place of the next
	// element.
	Fetch(ctx context.Context, since time.Time) *domain.RecordIter

	// FetchFromCache returns a lazy, finite, restartable sequence of the
	// records currently durable in the cache, in original fetch order. It
	// never touches the network or subprocesses. The iterator fails with
	// domain.ErrCacheNotConfigured when the connector was built without a
	// cache.
	FetchFromCache() *domain.RecordIter
}
