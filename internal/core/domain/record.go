package domain

// Record is one harvested unit as produced by a connector: an opaque
// mapping of field names to values (strings, numbers, nested mappings).
// A Record is owned by the connector while it is being retrieved, by the
// cache once pushed, and by the caller once yielded.
type Record map[string]any

// StampedRecord wraps a Record with the identity and incrementality
// metadata attached by the stamping layer. Every record leaving Fetch or
// FetchFromCache is a StampedRecord; raw Records never escape.
type StampedRecord struct {
	// UUID is the stable identifier derived from the record's origin,
	// backend identity and content discriminator.
	UUID string `json:"uuid"`

	// Origin identifies the source instance (site name, repository URI).
	Origin string `json:"origin"`

	// BackendName and BackendVersion identify the connector
	// implementation that produced the record.
	BackendName    string `json:"backend_name"`
	BackendVersion string `json:"backend_version"`

	// UpdatedOn is the record's update watermark in epoch seconds (UTC),
	// extracted from the raw record by the connector's extractor.
	UpdatedOn int64 `json:"updated_on"`

	// Timestamp is the harvest instant in epoch seconds (UTC).
	Timestamp int64 `json:"timestamp"`

	// Data is the raw record as fetched from the source.
	Data Record `json:"data"`
}
