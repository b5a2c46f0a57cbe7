package cache

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
)

func stamped(uuid string, updatedOn int64) domain.StampedRecord {
	return domain.StampedRecord{
		UUID:           uuid,
		Origin:         "https://example.com/repo",
		BackendName:    "GitBlame",
		BackendVersion: "0.1.0",
		UpdatedOn:      updatedOn,
		Timestamp:      1500000000,
		Data:           domain.Record{"uuid": uuid},
	}
}

func openMem(t *testing.T) (*Cache, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	c, err := Open("/caches/repo", WithFs(fs))
	require.NoError(t, err)
	return c, fs
}

func collect(t *testing.T, it *domain.RecordIter) []domain.StampedRecord {
	t.Helper()
	var out []domain.StampedRecord
	for it.Next() {
		out = append(out, it.Record())
	}
	require.NoError(t, it.Err())
	return out
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := openMem(t)

	recs := []domain.StampedRecord{
		stamped("aaa", 100),
		stamped("bbb", 200),
		stamped("ccc", 300),
	}
	for _, rec := range recs {
		c.Push(rec)
	}
	require.NoError(t, c.Flush())

	got := collect(t, c.Retrieve())
	assert.Equal(t, recs, got)

	// Each Retrieve call replays from the start.
	again := collect(t, c.Retrieve())
	assert.Equal(t, recs, again)
}

func TestCacheRetrieveEmpty(t *testing.T) {
	c, _ := openMem(t)

	it := c.Retrieve()
	assert.False(t, it.Next())
	assert.NoError(t, it.Err())
}

func TestCachePushIsNotDurable(t *testing.T) {
	c, _ := openMem(t)

	c.Push(stamped("aaa", 100))
	assert.Equal(t, 1, c.Pending())
	assert.Empty(t, collect(t, c.Retrieve()))

	require.NoError(t, c.Flush())
	assert.Equal(t, 0, c.Pending())
	assert.Len(t, collect(t, c.Retrieve()), 1)
}

func TestCacheFlushIfFull(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := Open("/caches/repo", WithFs(fs), WithFlushEvery(3))
	require.NoError(t, err)

	c.Push(stamped("aaa", 100))
	require.NoError(t, c.FlushIfFull())
	assert.Empty(t, collect(t, c.Retrieve()))

	c.Push(stamped("bbb", 200))
	c.Push(stamped("ccc", 300))
	require.NoError(t, c.FlushIfFull())
	assert.Len(t, collect(t, c.Retrieve()), 3)
}

func TestCachePurgeQueue(t *testing.T) {
	c, _ := openMem(t)

	c.Push(stamped("aaa", 100))
	c.Push(stamped("bbb", 200))
	c.PurgeQueue()

	require.NoError(t, c.Flush())
	assert.Empty(t, collect(t, c.Retrieve()))
}

func TestCacheBackupRecover(t *testing.T) {
	c, _ := openMem(t)

	c.Push(stamped("aaa", 100))
	require.NoError(t, c.Flush())
	require.NoError(t, c.Backup())

	// Writes after the backup are rolled back by Recover.
	c.Push(stamped("bbb", 200))
	require.NoError(t, c.Flush())
	c.Push(stamped("ccc", 300))

	require.NoError(t, c.Recover())

	got := collect(t, c.Retrieve())
	require.Len(t, got, 1)
	assert.Equal(t, "aaa", got[0].UUID)
	assert.Equal(t, 0, c.Pending())
}

func TestCacheBackupOfEmptyLog(t *testing.T) {
	c, _ := openMem(t)

	require.NoError(t, c.Backup())

	c.Push(stamped("aaa", 100))
	require.NoError(t, c.Flush())

	require.NoError(t, c.Recover())
	assert.Empty(t, collect(t, c.Retrieve()))
}

func TestCacheRecoverWithoutBackup(t *testing.T) {
	c, _ := openMem(t)

	err := c.Recover()
	require.Error(t, err)

	var rerr *RecoveryError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestCacheClean(t *testing.T) {
	c, fs := openMem(t)

	c.Push(stamped("aaa", 100))
	require.NoError(t, c.Flush())
	require.NoError(t, c.Backup())

	require.NoError(t, c.Clean())
	assert.Empty(t, collect(t, c.Retrieve()))

	exists, err := afero.Exists(fs, "/caches/repo/cache.jsonl.bak")
	require.NoError(t, err)
	assert.False(t, exists)

	// Cleaning twice is fine.
	require.NoError(t, c.Clean())
}

func TestCacheDropsTornTrailingEntry(t *testing.T) {
	c, fs := openMem(t)

	c.Push(stamped("aaa", 100))
	c.Push(stamped("bbb", 200))
	require.NoError(t, c.Flush())

	// Simulate a crash mid-append: truncate the last line.
	path := "/caches/repo/cache.jsonl"
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, data[:len(data)-10], 0o600))

	got := collect(t, c.Retrieve())
	require.Len(t, got, 1)
	assert.Equal(t, "aaa", got[0].UUID)
}

func TestCacheCorruptEntryFailsRetrieve(t *testing.T) {
	c, fs := openMem(t)

	c.Push(stamped("aaa", 100))
	require.NoError(t, c.Flush())

	path := "/caches/repo/cache.jsonl"
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	// Flip bytes inside a terminated line so the checksum no longer matches.
	data[len(data)/2] ^= 0xff
	require.NoError(t, afero.WriteFile(fs, path, data, 0o600))

	it := c.Retrieve()
	for it.Next() {
	}
	require.Error(t, it.Err())

	var cerr *Error
	assert.ErrorAs(t, it.Err(), &cerr)
}

func TestCacheOpenUnwritableDir(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	_, err := Open("/caches/repo", WithFs(fs))
	require.Error(t, err)

	var cerr *Error
	assert.ErrorAs(t, err, &cerr)
	assert.Equal(t, "/caches/repo", cerr.Dir)
}
