package driven

import (
	"context"
	"time"
)

// WatermarkStore persists the highest update watermark seen per
// (origin, backend) pair, so the next harvest run can resume
// incrementally without the caller supplying a lower bound.
type WatermarkStore interface {
	// Get returns the stored watermark for the pair. The boolean reports
	// whether a watermark exists.
	Get(ctx context.Context, origin, backend string) (time.Time, bool, error)

	// Set stores the watermark for the pair, replacing any previous value.
	Set(ctx context.Context, origin, backend string, mark time.Time) error
}
