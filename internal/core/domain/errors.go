package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent harvesting contract failures.
// Infrastructure errors (cache I/O, git, HTTP) live in their own packages.
var (
	// ErrCacheNotConfigured indicates a cache operation was requested on a
	// connector that was built without a cache.
	ErrCacheNotConfigured = errors.New("cache instance was not provided")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// MalformedRecordError indicates that the update watermark could not be
// extracted from an otherwise well-formed record.
type MalformedRecordError struct {
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("malformed record: missing field %q", e.Field)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// IsMalformedRecord checks whether the error reports a record whose
// watermark extraction failed.
func IsMalformedRecord(err error) bool {
	var mr *MalformedRecordError
	return errors.As(err, &mr)
}
