package domain

// RecordIter is a pull iterator over stamped records, in the style of
// sql.Rows: advance with Next, read with Record, and check Err afterwards
// to distinguish exhaustion from a mid-stream failure.
//
//	for it.Next() {
//		rec := it.Record()
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type RecordIter struct {
	step func() (StampedRecord, bool, error)
	cur  StampedRecord
	err  error
	done bool
}

// NewRecordIter builds an iterator from a step function. The step function
// returns the next record, whether one was produced, and any error that
// replaces the next element.
func NewRecordIter(step func() (StampedRecord, bool, error)) *RecordIter {
	return &RecordIter{step: step}
}

// FailedRecordIter returns an iterator that fails immediately with err.
func FailedRecordIter(err error) *RecordIter {
	return &RecordIter{err: err, done: true}
}

// Next advances the iterator. It returns false when the sequence is
// exhausted or a failure occurred; Err tells the two apart.
func (it *RecordIter) Next() bool {
	if it.done {
		return false
	}

	rec, ok, err := it.step()
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	if !ok {
		it.done = true
		return false
	}

	it.cur = rec
	return true
}

// Record returns the record produced by the last successful Next call.
func (it *RecordIter) Record() StampedRecord {
	return it.cur
}

// Err returns the error that terminated iteration, or nil if the sequence
// ended because it was exhausted.
func (it *RecordIter) Err() error {
	return it.err
}
