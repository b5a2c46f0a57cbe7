package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// UpdateTimeFunc extracts the update watermark (epoch seconds, UTC) from a
// raw record. Connectors supply one per source format.
type UpdateTimeFunc func(Record) (int64, error)

// DiscriminatorFunc derives the content discriminator used to build a
// record's identifier. Two logically identical records must produce the
// same discriminator.
type DiscriminatorFunc func(Record) string

// ComputeID derives the stable identifier for a record. It is
// deterministic: the same inputs always yield the same identifier, and
// records from different origins never collide. Inputs are joined with an
// unambiguous separator before hashing.
func ComputeID(origin, backendName, backendVersion, discriminator string) string {
	sum := sha1.Sum([]byte(strings.Join(
		[]string{origin, backendName, backendVersion, discriminator}, ":")))
	return hex.EncodeToString(sum[:])
}

// Stamper attaches identity and incrementality metadata to raw records for
// one connector instance. Stamping is idempotent: stamping the same raw
// record twice yields identical identifier and timestamp.
type Stamper struct {
	Origin         string
	BackendName    string
	BackendVersion string

	// UpdateTime extracts the record's update watermark.
	UpdateTime UpdateTimeFunc

	// Discriminator derives the content part of the identifier.
	Discriminator DiscriminatorFunc

	// Now returns the harvest instant. Defaults to time.Now.
	Now func() time.Time
}

// Stamp wraps a raw record into a StampedRecord. It returns a
// *MalformedRecordError (wrapped by UpdateTime) when the watermark cannot
// be extracted.
func (s Stamper) Stamp(rec Record) (StampedRecord, error) {
	updated, err := s.UpdateTime(rec)
	if err != nil {
		return StampedRecord{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	return StampedRecord{
		UUID:           ComputeID(s.Origin, s.BackendName, s.BackendVersion, s.Discriminator(rec)),
		Origin:         s.Origin,
		BackendName:    s.BackendName,
		BackendVersion: s.BackendVersion,
		UpdatedOn:      updated,
		Timestamp:      now().UTC().Unix(),
		Data:           rec,
	}, nil
}
