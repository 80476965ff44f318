package ygggo_db

import "database/sql"

// Row is one fetched row: column names and values in select order.
// The column slice is shared between rows of the same result and must not
// be modified.
type Row struct {
	columns []string
	values  []any
}

func (r Row) Columns() []string { return r.columns }
func (r Row) Values() []any     { return r.values }
func (r Row) Len() int          { return len(r.values) }

// Get returns the value of the first column called name.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Index returns the value at position i.
func (r Row) Index(i int) (any, bool) {
	if i < 0 || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Map returns the row as column name to value. Duplicate column names keep
// the last value.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// cursor is a forward-only row source.
type cursor interface {
	columns() []string
	next() (Row, bool, error)
	close() error
}

type rowsCursor struct {
	rows *sql.Rows
	cols []string
	// release is called once when the cursor closes.
	release func()
}

func newRowsCursor(rows *sql.Rows) (*rowsCursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &rowsCursor{rows: rows, cols: cols}, nil
}

func (c *rowsCursor) columns() []string { return c.cols }

func (c *rowsCursor) next() (Row, bool, error) {
	if !c.rows.Next() {
		return Row{}, false, c.rows.Err()
	}
	values := make([]any, len(c.cols))
	ptrs := make([]any, len(c.cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return Row{}, false, err
	}
	for i, v := range values {
		values[i] = normalizeValue(v)
	}
	return Row{columns: c.cols, values: values}, true, nil
}

func (c *rowsCursor) close() error {
	if c.release != nil {
		c.release()
		c.release = nil
	}
	return c.rows.Close()
}

// emptyCursor backs results of statements that return no rows.
type emptyCursor struct{}

func (emptyCursor) columns() []string        { return nil }
func (emptyCursor) next() (Row, bool, error) { return Row{}, false, nil }
func (emptyCursor) close() error             { return nil }

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
