// Package domain defines the core entities of the harvesting engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: One harvested unit, as fetched from a source
//   - StampedRecord: A Record wrapped with identity and watermark metadata
//   - Stamper: Derives identifiers and update watermarks for records
//   - RecordIter: A lazy, failure-propagating sequence of stamped records
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
