// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Connector: Fetches records from a data source
//
// # Optional Interfaces
//
// These can be nil - the harvester degrades gracefully:
//
//   - RecordCache: Write-ahead buffering of fetched records. Without it,
//     a crashed run re-fetches from scratch and FetchFromCache fails.
//   - WatermarkStore: Persisted incremental-fetch lower bounds. Without
//     it, every run needs an explicit from-date or starts from the
//     beginning of time.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
