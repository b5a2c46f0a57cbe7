// Package connectors provides implementations of the Connector interface
// for the supported data sources. Each connector knows how to fetch
// records from one source type (a paginated REST API, a local git tree)
// and shares the stamping and write-ahead cache plumbing defined here.
package connectors
