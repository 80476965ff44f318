package ygggo_db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceCursor yields fixed rows, optionally failing after them.
type sliceCursor struct {
	cols   []string
	rows   [][]any
	i      int
	failAt int // 1-based row index that fails; 0 = never
	closed int
}

func newSliceCursor(rows ...[]any) *sliceCursor {
	return &sliceCursor{cols: []string{"id", "name"}, rows: rows}
}

func (c *sliceCursor) columns() []string { return c.cols }

func (c *sliceCursor) next() (Row, bool, error) {
	if c.failAt > 0 && c.i+1 == c.failAt {
		return Row{}, false, errors.New("connection reset")
	}
	if c.i >= len(c.rows) {
		return Row{}, false, nil
	}
	r := Row{columns: c.cols, values: c.rows[c.i]}
	c.i++
	return r, true, nil
}

func (c *sliceCursor) close() error { c.closed++; return nil }

func threeRows() *sliceCursor {
	return newSliceCursor([]any{int64(1), "a"}, []any{int64(2), "b"}, []any{int64(3), "c"})
}

func ids(rows []Row) []any {
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		v, _ := r.Get("id")
		out = append(out, v)
	}
	return out
}

func TestResult_ReadOnceWithoutCache(t *testing.T) {
	cur := threeRows()
	r := newQueryResult(cur, 0, 0, nil)

	rows, err := r.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, ids(rows))
	assert.Equal(t, 1, cur.closed)

	_, _, err = r.Fetch()
	assert.ErrorIs(t, err, ErrResultExhausted)
	_, err = r.FetchAll()
	assert.ErrorIs(t, err, ErrResultExhausted)
}

func TestResult_FetchUntilEndThenExhausted(t *testing.T) {
	r := newQueryResult(newSliceCursor([]any{int64(1), "a"}), 0, 0, nil)

	row, ok, err := r.Fetch()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "a"}, row.Map())

	_, ok, err = r.Fetch()
	require.NoError(t, err)
	assert.False(t, ok, "end of rows is reported once without error")

	_, _, err = r.Fetch()
	assert.ErrorIs(t, err, ErrResultExhausted)
}

func TestResult_CachedFetchAllIsRepeatable(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)
	_, err := r.UseCache(true)
	require.NoError(t, err)

	first, err := r.FetchAll()
	require.NoError(t, err)
	second, err := r.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)

	// enabling again keeps the cached rows
	_, err = r.UseCache(true)
	require.NoError(t, err)
	third, err := r.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestResult_CachedFetchAllIncludesEarlierRows(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)
	_, err := r.UseCache(true)
	require.NoError(t, err)

	row, ok, err := r.Fetch()
	require.NoError(t, err)
	require.True(t, ok)
	v, _ := row.Get("name")
	assert.Equal(t, "a", v)

	rows, err := r.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, ids(rows))
}

func TestResult_UncachedFetchAllReturnsRemainder(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)
	_, _, err := r.Fetch()
	require.NoError(t, err)

	rows, err := r.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3)}, ids(rows))
}

func TestResult_EnableCacheAfterExhaustion(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)
	_, err := r.FetchAll()
	require.NoError(t, err)

	same, err := r.UseCache(true)
	assert.Same(t, r, same)
	var cne *CacheNotEnabledError
	require.ErrorAs(t, err, &cne)
	assert.Equal(t, CodeCacheNotEnabled, cne.Code)
	assert.ErrorIs(t, err, ErrCacheNotEnabled)
}

func TestResult_DisableCacheDropsRows(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)
	_, err := r.UseCache(true)
	require.NoError(t, err)
	_, err = r.FetchAll()
	require.NoError(t, err)

	_, err = r.UseCache(false)
	require.NoError(t, err)
	_, err = r.FetchAll()
	assert.ErrorIs(t, err, ErrResultExhausted)
}

func TestResult_DisableCacheWhileStreaming(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)
	_, err := r.UseCache(true)
	require.NoError(t, err)
	_, _, err = r.Fetch()
	require.NoError(t, err)

	_, err = r.UseCache(false)
	require.NoError(t, err)
	rows, err := r.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3)}, ids(rows))
	_, _, err = r.Fetch()
	assert.ErrorIs(t, err, ErrResultExhausted)
}

func TestResult_IterationWithoutCache(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)

	var keys []int
	for i, row := range r.Rows() {
		keys = append(keys, i)
		assert.Equal(t, 2, row.Len())
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []int{0, 1, 2}, keys)

	count := 0
	for range r.Rows() {
		count++
	}
	assert.Zero(t, count)
	assert.ErrorIs(t, r.Err(), ErrCacheNotEnabled)
}

func TestResult_IterationRestartsWithCache(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)
	_, err := r.UseCache(true)
	require.NoError(t, err)

	// stop early, then restart from the first row
	for i := range r.Rows() {
		if i == 1 {
			break
		}
	}
	var names []any
	for _, row := range r.Rows() {
		v, _ := row.Get("name")
		names = append(names, v)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []any{"a", "b", "c"}, names)

	names = names[:0]
	for _, row := range r.Rows() {
		v, _ := row.Get("name")
		names = append(names, v)
	}
	assert.Equal(t, []any{"a", "b", "c"}, names)
}

func TestResult_FetchColumn(t *testing.T) {
	r := newQueryResult(threeRows(), 0, 0, nil)

	v, err := r.FetchColumn(1)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = r.FetchColumn(5)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = r.FetchColumn(0)
	require.NoError(t, err)
	v, err = r.FetchColumn(0)
	require.NoError(t, err)
	assert.Nil(t, v, "no more rows")
}

func TestResult_CursorErrorIsWrapped(t *testing.T) {
	cur := threeRows()
	cur.failAt = 2
	wrapped := errors.New("wrapped")
	r := newQueryResult(cur, 0, 0, func(err error) error { return errors.Join(wrapped, err) })

	_, err := r.FetchAll()
	assert.ErrorIs(t, err, wrapped)
	assert.Equal(t, 1, cur.closed)
}

func TestResult_AccessorsFixedAtConstruction(t *testing.T) {
	r := newQueryResult(nil, 42, 3, nil)
	assert.Equal(t, int64(42), r.InsertID())
	assert.Equal(t, int64(3), r.RowCount())

	rows, err := r.FetchAll()
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, int64(42), r.InsertID())
}

func TestResult_CloseKeepsCachedRows(t *testing.T) {
	cur := threeRows()
	r := newQueryResult(cur, 0, 0, nil)
	_, err := r.UseCache(true)
	require.NoError(t, err)
	_, _, err = r.Fetch()
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.Equal(t, 1, cur.closed)
	rows, err := r.FetchAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
