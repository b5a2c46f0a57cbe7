package gitblame

import (
	"errors"
	"fmt"
)

// RepositoryError indicates the local working copy is invalid or an
// external git command failed. The message carries the tool's own
// diagnostic (including its "fatal:" line) verbatim.
type RepositoryError struct {
	Msg string
	Err error
}

func (e *RepositoryError) Error() string {
	return e.Msg
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// IsRepositoryError checks whether the error chain contains a
// *RepositoryError.
func IsRepositoryError(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}

// ParseError indicates malformed blame output. It is never silently
// skipped; parsing stops at the offending line.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid blame data, line %d: %s", e.Line, e.Text)
}

// IsParseError checks whether the error chain contains a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
