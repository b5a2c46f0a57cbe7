package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
)

// fakeConnector yields canned records and remembers the since it was asked
// to fetch from.
type fakeConnector struct {
	origin  string
	records []domain.StampedRecord
	failAt  int
	err     error

	fetchSince time.Time
	fetched    bool
}

func (c *fakeConnector) BackendName() string    { return "Test" }
func (c *fakeConnector) BackendVersion() string { return "0.1.0" }
func (c *fakeConnector) Origin() string         { return c.origin }

func (c *fakeConnector) Fetch(_ context.Context, since time.Time) *domain.RecordIter {
	c.fetchSince = since
	c.fetched = true
	return c.iter()
}

func (c *fakeConnector) FetchFromCache() *domain.RecordIter {
	return c.iter()
}

func (c *fakeConnector) iter() *domain.RecordIter {
	i := 0
	return domain.NewRecordIter(func() (domain.StampedRecord, bool, error) {
		if c.err != nil && i >= c.failAt {
			return domain.StampedRecord{}, false, c.err
		}
		if i >= len(c.records) {
			return domain.StampedRecord{}, false, nil
		}
		rec := c.records[i]
		i++
		return rec, true, nil
	})
}

// lifecycleCache tracks backup/recover calls.
type lifecycleCache struct {
	backups  int
	recovers int
}

func (c *lifecycleCache) Push(domain.StampedRecord) {}
func (c *lifecycleCache) Flush() error              { return nil }
func (c *lifecycleCache) FlushIfFull() error        { return nil }
func (c *lifecycleCache) PurgeQueue()               {}
func (c *lifecycleCache) Backup() error             { c.backups++; return nil }
func (c *lifecycleCache) Clean() error              { return nil }
func (c *lifecycleCache) Recover() error            { c.recovers++; return nil }
func (c *lifecycleCache) Retrieve() *domain.RecordIter {
	return domain.NewRecordIter(func() (domain.StampedRecord, bool, error) {
		return domain.StampedRecord{}, false, nil
	})
}

// memMarks is an in-memory watermark store.
type memMarks struct {
	marks map[string]time.Time
}

func newMemMarks() *memMarks {
	return &memMarks{marks: make(map[string]time.Time)}
}

func (m *memMarks) Get(_ context.Context, origin, backend string) (time.Time, bool, error) {
	mark, ok := m.marks[origin+"\x00"+backend]
	return mark, ok, nil
}

func (m *memMarks) Set(_ context.Context, origin, backend string, mark time.Time) error {
	m.marks[origin+"\x00"+backend] = mark
	return nil
}

func sinkInto(out *[]domain.StampedRecord) func(domain.StampedRecord) error {
	return func(rec domain.StampedRecord) error {
		*out = append(*out, rec)
		return nil
	}
}

func TestHarvestRunnerRun(t *testing.T) {
	conn := &fakeConnector{
		origin: "stackoverflow",
		records: []domain.StampedRecord{
			{UUID: "aaa", UpdatedOn: 100},
			{UUID: "bbb", UpdatedOn: 300},
			{UUID: "ccc", UpdatedOn: 200},
		},
	}
	rc := &lifecycleCache{}
	marks := newMemMarks()
	runner := NewHarvestRunner(conn, rc, marks)

	var got []domain.StampedRecord
	status, err := runner.Run(context.Background(), time.Time{}, sinkInto(&got))
	require.NoError(t, err)

	assert.NotEmpty(t, status.RunID)
	assert.Equal(t, "stackoverflow", status.Origin)
	assert.Equal(t, "Test", status.Backend)
	assert.Equal(t, 3, status.Records)
	assert.Equal(t, time.Unix(300, 0).UTC(), status.LastUpdatedOn)
	assert.Len(t, got, 3)

	assert.Equal(t, 1, rc.backups)
	assert.Equal(t, 0, rc.recovers)

	// The highest watermark seen is persisted for the next run.
	mark, ok, err := marks.Get(context.Background(), "stackoverflow", "Test")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Unix(300, 0).UTC(), mark)
}

func TestHarvestRunnerRunResumesFromWatermark(t *testing.T) {
	conn := &fakeConnector{origin: "stackoverflow"}
	marks := newMemMarks()
	stored := time.Unix(12345, 0).UTC()
	require.NoError(t, marks.Set(context.Background(), "stackoverflow", "Test", stored))

	runner := NewHarvestRunner(conn, nil, marks)
	var got []domain.StampedRecord
	_, err := runner.Run(context.Background(), time.Time{}, sinkInto(&got))
	require.NoError(t, err)

	assert.Equal(t, stored, conn.fetchSince)
}

func TestHarvestRunnerRunExplicitSinceWins(t *testing.T) {
	conn := &fakeConnector{origin: "stackoverflow"}
	marks := newMemMarks()
	require.NoError(t, marks.Set(context.Background(), "stackoverflow", "Test", time.Unix(99999, 0)))

	runner := NewHarvestRunner(conn, nil, marks)
	since := time.Unix(100, 0)
	_, err := runner.Run(context.Background(), since, sinkInto(&[]domain.StampedRecord{}))
	require.NoError(t, err)

	assert.Equal(t, since, conn.fetchSince)
}

func TestHarvestRunnerRunFetchFailureRollsBack(t *testing.T) {
	boom := errors.New("source down")
	conn := &fakeConnector{
		origin: "stackoverflow",
		records: []domain.StampedRecord{
			{UUID: "aaa", UpdatedOn: 100},
		},
		failAt: 1,
		err:    boom,
	}
	rc := &lifecycleCache{}
	marks := newMemMarks()
	runner := NewHarvestRunner(conn, rc, marks)

	var got []domain.StampedRecord
	status, err := runner.Run(context.Background(), time.Time{}, sinkInto(&got))
	require.ErrorIs(t, err, boom)

	assert.Equal(t, 1, status.Records)
	assert.Equal(t, 1, rc.backups)
	assert.Equal(t, 1, rc.recovers)

	// A failed run never advances the watermark.
	_, ok, err := marks.Get(context.Background(), "stackoverflow", "Test")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHarvestRunnerRunSinkFailureRollsBack(t *testing.T) {
	conn := &fakeConnector{
		origin: "stackoverflow",
		records: []domain.StampedRecord{
			{UUID: "aaa", UpdatedOn: 100},
		},
	}
	rc := &lifecycleCache{}
	runner := NewHarvestRunner(conn, rc, nil)

	_, err := runner.Run(context.Background(), time.Time{}, func(domain.StampedRecord) error {
		return errors.New("disk full")
	})
	require.Error(t, err)
	assert.Equal(t, 1, rc.recovers)
}

func TestHarvestRunnerReplay(t *testing.T) {
	conn := &fakeConnector{
		origin: "stackoverflow",
		records: []domain.StampedRecord{
			{UUID: "aaa", UpdatedOn: 100},
			{UUID: "bbb", UpdatedOn: 200},
		},
	}
	rc := &lifecycleCache{}
	runner := NewHarvestRunner(conn, rc, nil)

	var got []domain.StampedRecord
	status, err := runner.Replay(context.Background(), sinkInto(&got))
	require.NoError(t, err)

	assert.Equal(t, 2, status.Records)
	assert.Equal(t, time.Unix(200, 0).UTC(), status.LastUpdatedOn)
	// Replay reads, it does not touch the backup lifecycle.
	assert.Equal(t, 0, rc.backups)
	assert.Equal(t, 0, rc.recovers)
}
