// Package cache implements the write-ahead record cache: an in-memory
// staging buffer flushed to a durable append log, with a backup/recover
// lifecycle around harvest runs.
//
// One cache owns one directory. The directory holds the append log and,
// during an active run, a backup snapshot of it. Entries are stored one
// per line as JSON with an xxhash checksum, so a write torn by a crash is
// detected and dropped on replay instead of corrupting the log.
package cache

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/ports/driven"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/logger"
)

// Ensure Cache implements the port.
var _ driven.RecordCache = (*Cache)(nil)

const (
	logName    = "cache.jsonl"
	backupName = "cache.jsonl.bak"

	// DefaultFlushEvery makes every pushed record durable before it is
	// yielded (write-ahead semantics).
	DefaultFlushEvery = 1
)

// entry is one persisted line of the append log.
type entry struct {
	Sum  string          `json:"sum"`
	Item json.RawMessage `json:"item"`
}

// Cache is the write-ahead record cache for one connector/origin pair.
// It is not designed for concurrent mutation by multiple harvest runs;
// callers serialise runs against the same directory.
type Cache struct {
	mu         sync.Mutex
	dir        string
	fs         afero.Fs
	flushEvery int
	staged     []domain.StampedRecord
}

// Option configures a Cache.
type Option func(*Cache)

// WithFs replaces the backing filesystem. Useful for testing with an
// in-memory filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Cache) { c.fs = fs }
}

// WithFlushEvery sets the staging-buffer size at which FlushIfFull writes
// to the durable log. Values below 1 are treated as 1.
func WithFlushEvery(n int) Option {
	return func(c *Cache) {
		if n < 1 {
			n = 1
		}
		c.flushEvery = n
	}
}

// Open creates a cache rooted at dir, creating the directory if needed.
// It fails with *Error when the directory cannot be created or written.
func Open(dir string, opts ...Option) (*Cache, error) {
	c := &Cache{
		dir:        dir,
		fs:         afero.NewOsFs(),
		flushEvery: DefaultFlushEvery,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.fs.MkdirAll(dir, 0o700); err != nil {
		return nil, &Error{Dir: dir, Err: err}
	}

	// Probe writability now rather than on the first flush.
	probe, err := afero.TempFile(c.fs, dir, ".probe")
	if err != nil {
		return nil, &Error{Dir: dir, Err: err}
	}
	name := probe.Name()
	probe.Close()
	if err := c.fs.Remove(name); err != nil {
		return nil, &Error{Dir: dir, Err: err}
	}

	return c, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Pending returns the number of staged, not yet durable records.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.staged)
}

// Push appends a record to the staging buffer. It never performs I/O.
func (c *Cache) Push(rec domain.StampedRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = append(c.staged, rec)
}

// PurgeQueue discards the staging buffer without writing it.
func (c *Cache) PurgeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = nil
}

// Flush appends all staged records to the durable log in order and clears
// the buffer. On failure the buffer is kept; entries whose line was torn
// by the failure are dropped when the log is next read, so an entry is
// either fully durable or not durable at all.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

// FlushIfFull flushes only when the staging buffer has reached the flush
// threshold.
func (c *Cache) FlushIfFull() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.staged) < c.flushEvery {
		return nil
	}
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	if len(c.staged) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, rec := range c.staged {
		item, err := json.Marshal(rec)
		if err != nil {
			return &Error{Dir: c.dir, Err: fmt.Errorf("encoding record %s: %w", rec.UUID, err)}
		}
		line, err := json.Marshal(entry{Sum: checksum(item), Item: item})
		if err != nil {
			return &Error{Dir: c.dir, Err: fmt.Errorf("encoding entry %s: %w", rec.UUID, err)}
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	f, err := c.fs.OpenFile(c.logPath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return &Error{Dir: c.dir, Err: fmt.Errorf("opening log: %w", err)}
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return &Error{Dir: c.dir, Err: fmt.Errorf("appending to log: %w", err)}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &Error{Dir: c.dir, Err: fmt.Errorf("syncing log: %w", err)}
	}
	if err := f.Close(); err != nil {
		return &Error{Dir: c.dir, Err: fmt.Errorf("closing log: %w", err)}
	}

	c.staged = nil
	return nil
}

// Backup snapshots the current durable content. An empty log produces an
// empty snapshot, so Recover after a failed first run restores emptiness.
func (c *Cache) Backup() error {
	data, err := afero.ReadFile(c.fs, c.logPath())
	if err != nil && !os.IsNotExist(err) {
		return &BackupError{Dir: c.dir, Err: err}
	}
	if err := afero.WriteFile(c.fs, c.backupPath(), data, 0o600); err != nil {
		return &BackupError{Dir: c.dir, Err: err}
	}
	return nil
}

// Recover restores durable content from the last backup, discarding both
// durable writes made since the backup and any staged records.
func (c *Cache) Recover() error {
	data, err := afero.ReadFile(c.fs, c.backupPath())
	if os.IsNotExist(err) {
		return &RecoveryError{Dir: c.dir, Err: ErrNoBackup}
	}
	if err != nil {
		return &RecoveryError{Dir: c.dir, Err: err}
	}
	if err := afero.WriteFile(c.fs, c.logPath(), data, 0o600); err != nil {
		return &RecoveryError{Dir: c.dir, Err: err}
	}

	c.mu.Lock()
	c.staged = nil
	c.mu.Unlock()
	return nil
}

// Clean deletes all durable content and any backup. Idempotent.
func (c *Cache) Clean() error {
	for _, path := range []string{c.logPath(), c.backupPath()} {
		if err := c.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return &Error{Dir: c.dir, Err: err}
		}
	}
	c.mu.Lock()
	c.staged = nil
	c.mu.Unlock()
	return nil
}

// Retrieve produces the durable entries in original append order. Each
// call re-reads the log from the start. A trailing entry torn by a crashed
// flush is dropped; corruption anywhere else fails the iteration.
func (c *Cache) Retrieve() *domain.RecordIter {
	var (
		f      afero.File
		r      *bufio.Reader
		opened bool
	)

	return domain.NewRecordIter(func() (domain.StampedRecord, bool, error) {
		if !opened {
			opened = true
			file, err := c.fs.Open(c.logPath())
			if os.IsNotExist(err) {
				return domain.StampedRecord{}, false, nil
			}
			if err != nil {
				return domain.StampedRecord{}, false, &Error{Dir: c.dir, Err: err}
			}
			f = file
			r = bufio.NewReader(f)
		}
		if r == nil {
			return domain.StampedRecord{}, false, nil
		}

		line, err := r.ReadBytes('\n')
		if err == io.EOF {
			f.Close()
			r = nil
			if len(bytes.TrimSpace(line)) > 0 {
				// Torn trailing entry from an interrupted flush.
				logger.Warn("cache '%s': dropping torn trailing entry", c.dir)
			}
			return domain.StampedRecord{}, false, nil
		}
		if err != nil {
			f.Close()
			r = nil
			return domain.StampedRecord{}, false, &Error{Dir: c.dir, Err: err}
		}

		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			f.Close()
			r = nil
			return domain.StampedRecord{}, false, &Error{Dir: c.dir, Err: fmt.Errorf("corrupt entry: %w", err)}
		}
		if checksum(e.Item) != e.Sum {
			f.Close()
			r = nil
			return domain.StampedRecord{}, false, &Error{Dir: c.dir, Err: fmt.Errorf("corrupt entry: checksum mismatch")}
		}

		var rec domain.StampedRecord
		if err := json.Unmarshal(e.Item, &rec); err != nil {
			f.Close()
			r = nil
			return domain.StampedRecord{}, false, &Error{Dir: c.dir, Err: fmt.Errorf("corrupt record: %w", err)}
		}
		return rec, true, nil
	})
}

func (c *Cache) logPath() string {
	return filepath.Join(c.dir, logName)
}

func (c *Cache) backupPath() string {
	return filepath.Join(c.dir, backupName)
}

func checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
