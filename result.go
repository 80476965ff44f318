package ygggo_db

import "iter"

type resultState int

const (
	// stateStreaming reads straight from the cursor; rows are not kept.
	stateStreaming resultState = iota
	// stateStreamingCached replays the cache up to pos, then keeps pulling
	// from the cursor and appending to the cache.
	stateStreamingCached
	// stateMaterialized serves the complete cache; the cursor is gone.
	stateMaterialized
	// stateExhausted has neither cursor nor cache.
	stateExhausted
)

// QueryResult is the outcome of one statement execution. Rows can be read
// once, or replayed any number of times when caching is switched on before
// the cursor runs out. A QueryResult is not safe for concurrent use.
type QueryResult struct {
	state   resultState
	cur     cursor
	columns []string
	cache   []Row
	pos     int

	insertID int64
	rowCount int64

	// wrapErr classifies errors raised while reading the cursor.
	wrapErr func(error) error
	err     error
}

func newQueryResult(cur cursor, insertID, rowCount int64, wrapErr func(error) error) *QueryResult {
	if cur == nil {
		cur = emptyCursor{}
	}
	if wrapErr == nil {
		wrapErr = func(err error) error { return err }
	}
	return &QueryResult{
		state:    stateStreaming,
		cur:      cur,
		columns:  cur.columns(),
		insertID: insertID,
		rowCount: rowCount,
		wrapErr:  wrapErr,
	}
}

// InsertID is the id generated by the statement, as reported by the driver
// when the result was created. It is 0 for row-returning statements.
func (r *QueryResult) InsertID() int64 { return r.insertID }

// RowCount is the number of rows affected by the statement, as reported
// when the result was created. It is 0 for row-returning statements.
func (r *QueryResult) RowCount() int64 { return r.rowCount }

// Columns returns the column names of the result set, if it has one.
func (r *QueryResult) Columns() []string { return r.columns }

// Fetch returns the next row. ok is false once there are no more rows.
// Reading again after an uncached result ran out fails with
// ErrResultExhausted.
func (r *QueryResult) Fetch() (row Row, ok bool, err error) {
	switch r.state {
	case stateStreaming:
		row, ok, err = r.pull()
		if err != nil || !ok {
			return Row{}, false, err
		}
		return row, true, nil
	case stateStreamingCached:
		if r.pos < len(r.cache) {
			row = r.cache[r.pos]
			r.pos++
			return row, true, nil
		}
		row, ok, err = r.pull()
		if err != nil || !ok {
			return Row{}, false, err
		}
		r.cache = append(r.cache, row)
		r.pos = len(r.cache)
		return row, true, nil
	case stateMaterialized:
		if r.pos < len(r.cache) {
			row = r.cache[r.pos]
			r.pos++
			return row, true, nil
		}
		return Row{}, false, nil
	}
	return Row{}, false, ErrResultExhausted
}

// FetchAll returns the remaining rows. With caching on it returns every
// row of the result, including those fetched earlier, and repeated calls
// return the same rows.
func (r *QueryResult) FetchAll() ([]Row, error) {
	switch r.state {
	case stateStreaming:
		var rows []Row
		for {
			row, ok, err := r.pull()
			if err != nil {
				return rows, err
			}
			if !ok {
				return rows, nil
			}
			rows = append(rows, row)
		}
	case stateStreamingCached:
		for {
			row, ok, err := r.pull()
			if err != nil {
				return r.snapshot(), err
			}
			if !ok {
				break
			}
			r.cache = append(r.cache, row)
		}
		r.pos = len(r.cache)
		return r.snapshot(), nil
	case stateMaterialized:
		r.pos = len(r.cache)
		return r.snapshot(), nil
	}
	return nil, ErrResultExhausted
}

// FetchColumn fetches the next row and returns its value at idx. It returns
// nil when there are no more rows or idx is out of range.
func (r *QueryResult) FetchColumn(idx int) (any, error) {
	row, ok, err := r.Fetch()
	if err != nil || !ok {
		return nil, err
	}
	v, _ := row.Index(idx)
	return v, nil
}

// UseCache switches row caching on or off and returns r for chaining.
// Enabling keeps any rows already cached. Enabling after an uncached
// result ran out fails with CacheNotEnabledError. Disabling drops the
// cache, so later reads are read-once again.
func (r *QueryResult) UseCache(enabled bool) (*QueryResult, error) {
	if enabled {
		switch r.state {
		case stateStreaming:
			r.state = stateStreamingCached
			r.cache = []Row{}
			r.pos = 0
		case stateExhausted:
			return r, &CacheNotEnabledError{Code: CodeCacheNotEnabled}
		}
		return r, nil
	}
	switch r.state {
	case stateStreamingCached:
		r.state = stateStreaming
	case stateMaterialized:
		r.state = stateExhausted
	}
	r.cache = nil
	r.pos = 0
	return r, nil
}

// Rewind moves the read position back to the first row. It is a no-op for
// an uncached result that still has a cursor, and fails with
// CacheNotEnabledError once such a result ran out.
func (r *QueryResult) Rewind() error {
	switch r.state {
	case stateStreamingCached, stateMaterialized:
		r.pos = 0
	case stateExhausted:
		return &CacheNotEnabledError{Code: CodeCacheNotEnabled}
	}
	return nil
}

// Rows iterates over the result with a zero-based position. Each range
// statement starts with Rewind; errors end the iteration and are reported
// by Err.
func (r *QueryResult) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		r.err = nil
		if err := r.Rewind(); err != nil {
			r.err = err
			return
		}
		for i := 0; ; i++ {
			row, ok, err := r.Fetch()
			if err != nil {
				r.err = err
				return
			}
			if !ok || !yield(i, row) {
				return
			}
		}
	}
}

// Err returns the error that ended the last Rows iteration.
func (r *QueryResult) Err() error { return r.err }

// Close releases the cursor early. Rows cached so far stay readable.
func (r *QueryResult) Close() error {
	if r.cur == nil {
		return nil
	}
	return r.discardCursor()
}

// pull reads from the cursor and discards it once it is drained or fails.
func (r *QueryResult) pull() (Row, bool, error) {
	row, ok, err := r.cur.next()
	if err != nil {
		_ = r.discardCursor()
		return Row{}, false, r.wrapErr(err)
	}
	if !ok {
		if err := r.discardCursor(); err != nil {
			return Row{}, false, r.wrapErr(err)
		}
		return Row{}, false, nil
	}
	return row, true, nil
}

func (r *QueryResult) discardCursor() error {
	err := r.cur.close()
	r.cur = nil
	switch r.state {
	case stateStreaming:
		r.state = stateExhausted
	case stateStreamingCached:
		r.state = stateMaterialized
	}
	return err
}

func (r *QueryResult) snapshot() []Row {
	out := make([]Row, len(r.cache))
	copy(out, r.cache)
	return out
}
