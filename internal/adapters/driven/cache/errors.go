package cache

import (
	"errors"
	"fmt"
)

// ErrNoBackup indicates Recover was called before any Backup.
var ErrNoBackup = errors.New("no backup to recover from")

// Error reports a cache that cannot be used (directory not creatable or
// not writable, durable log unreadable or corrupt).
type Error struct {
	Dir string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache '%s': %v", e.Dir, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BackupError reports a failed durable-content snapshot.
type BackupError struct {
	Dir string
	Err error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("cache backup '%s': %v", e.Dir, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// RecoveryError reports a failed restore from backup.
type RecoveryError struct {
	Dir string
	Err error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("cache recovery '%s': %v", e.Dir, e.Err)
}

func (e *RecoveryError) Unwrap() error {
	return e.Err
}
