package ygggo_db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Stmt is a prepared statement bound to the Conn that prepared it.
type Stmt struct {
	conn   *Conn
	stmt   *sql.Stmt
	tx     *sql.Tx // transaction the statement was prepared in, if any
	query  string
	bound  string
	names  []string
	cached bool
}

// SQL returns the statement text as given to Prepare.
func (s *Stmt) SQL() string { return s.query }

// Execute binds params and runs the statement. params may be nil, a
// map[string]any (or Params), a struct with `db` tags for named
// placeholders, or a []any of positional values.
//
// Statements that produce rows return a result backed by their cursor.
// Like Conn.Query, such a result holds the Conn's connection until it is
// drained or closed. Other statements return an empty result carrying the
// insert id and the number of affected rows.
func (s *Stmt) Execute(ctx context.Context, params any) (*QueryResult, error) {
	c := s.conn
	args, bp, err := bindArgs(s.names, params)
	if err != nil {
		return nil, c.fail(ctx, KindStatement, err, s.query, bp)
	}

	st, release, err := s.statementFor(ctx)
	if err != nil {
		return nil, c.fail(ctx, KindStatement, err, s.query, bp)
	}
	defer release()

	start := time.Now()
	spanCtx, span := c.startSpan(ctx, "execute", s.bound)
	if returnsRows(s.bound) {
		rows, err := st.QueryContext(spanCtx, args...)
		s.observe(ctx, span, start, args, err)
		if err != nil {
			return nil, c.fail(ctx, KindStatement, err, s.query, bp)
		}
		return c.rowsResult(ctx, rows, st, s.query, bp)
	}

	res, err := st.ExecContext(spanCtx, args...)
	s.observe(ctx, span, start, args, err)
	if err != nil {
		return nil, c.fail(ctx, KindStatement, err, s.query, bp)
	}
	// Not every driver reports both values; missing ones stay 0.
	id, _ := res.LastInsertId()
	n, _ := res.RowsAffected()
	return newQueryResult(emptyCursor{}, id, n, nil), nil
}

func (s *Stmt) observe(ctx context.Context, span trace.Span, start time.Time, args []any, err error) {
	duration := time.Since(start)
	s.conn.logQuery(ctx, "execute", s.bound, args, duration, err)
	s.conn.recordStatement(ctx, "execute", duration, err)
	s.conn.finishSpan(span, err)
}

// Close releases the statement unless the statement cache owns it.
// Results still open on the statement stay readable; the statement is
// closed once the last of them is closed.
func (s *Stmt) Close() error {
	if s.cached || s.stmt == nil {
		return nil
	}
	st := s.stmt
	s.stmt = nil
	return s.conn.closeStmt(st)
}

// statementFor returns the statement to run and a func to call once the
// call is done. A statement prepared outside the currently active
// transaction is rebound to it for this call. A statement whose
// transaction has ended is prepared again.
func (s *Stmt) statementFor(ctx context.Context) (*sql.Stmt, func(), error) {
	c := s.conn
	if c.inner == nil {
		return nil, nil, errConnClosed
	}
	if s.stmt == nil {
		return nil, nil, errStmtClosed
	}
	if s.tx != nil && s.tx != c.tx {
		st, err := c.executor().PrepareContext(ctx, s.bound)
		if err != nil {
			return nil, nil, err
		}
		// The old statement was closed with its transaction.
		s.stmt, s.tx, s.cached = st, c.tx, false
	}
	tx := c.tx
	if tx == nil || tx == s.tx {
		return s.stmt, func() {}, nil
	}
	ts := tx.StmtContext(ctx, s.stmt)
	return ts, func() { _ = c.closeStmt(ts) }, nil
}

var errStmtClosed = errors.New("ygggo_db: statement is closed")

type stmtRef struct {
	open    int
	closing bool
}

// holdStmt keeps st open until the returned func is called.
func (c *Conn) holdStmt(st *sql.Stmt) func() {
	if st == nil {
		return func() {}
	}
	if c.stmtRefs == nil {
		c.stmtRefs = make(map[*sql.Stmt]*stmtRef)
	}
	ref := c.stmtRefs[st]
	if ref == nil {
		ref = &stmtRef{}
		c.stmtRefs[st] = ref
	}
	ref.open++
	return func() {
		ref.open--
		if ref.open > 0 {
			return
		}
		delete(c.stmtRefs, st)
		if ref.closing {
			_ = st.Close()
		}
	}
}

// closeStmt closes st now, or after the last cursor read through it closes.
// database/sql does not keep a statement prepared on a *sql.Conn alive for
// its open rows.
func (c *Conn) closeStmt(st *sql.Stmt) error {
	if ref := c.stmtRefs[st]; ref != nil {
		ref.closing = true
		return nil
	}
	return st.Close()
}

var rowKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"PRAGMA":   true,
	"EXPLAIN":  true,
	"VALUES":   true,
	"DESCRIBE": true,
	"DESC":     true,
	"TABLE":    true,
}

// returnsRows guesses from the leading keyword, or a RETURNING clause,
// whether a statement produces a result set.
func returnsRows(query string) bool {
	q := strings.TrimLeft(query, " \t\r\n(")
	end := strings.IndexFunc(q, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '('
	})
	first := q
	if end >= 0 {
		first = q[:end]
	}
	if rowKeywords[strings.ToUpper(first)] {
		return true
	}
	for _, f := range strings.Fields(strings.ToUpper(q)) {
		if f == "RETURNING" {
			return true
		}
	}
	return false
}
