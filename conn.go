package ygggo_db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Conn owns one dedicated connection to a database. It is not safe for
// concurrent use: the transaction state is a plain field.
type Conn struct {
	cfg        Config
	dialect    dialect
	classifier Classifier
	errorMode  string

	db    *sql.DB
	inner *sql.Conn

	tx      *sql.Tx
	txStart time.Time

	admin     *AdminExecutor
	stmtCache *stmtCache
	// cursors still open on inner; Close releases them first.
	cursors map[*rowsCursor]struct{}
	// stmtRefs counts open cursors per prepared statement so the statement
	// outlives the rows read through it.
	stmtRefs map[*sql.Stmt]*stmtRef

	loggingEnabled     bool
	logger             *slog.Logger
	slowQueryThreshold time.Duration

	telemetryEnabled bool

	metricsEnabled bool
	metrics        *Metrics
	meterProvider  metric.MeterProvider
}

var errConnClosed = errors.New("ygggo_db: connection is closed")

// sqlExecutor is implemented by both *sql.Conn and *sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Open connects to the database described by cfg. Connection failures are
// returned as a *DatabaseError of kind KindConnection.
func Open(ctx context.Context, cfg Config) (*Conn, error) {
	cfg = cfg.withDefaults()
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	cl, err := ClassifierFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	mode, err := cfg.errorMode()
	if err != nil {
		return nil, err
	}

	c := &Conn{
		cfg:                cfg,
		dialect:            d,
		classifier:         cl,
		errorMode:          mode,
		slowQueryThreshold: cfg.SlowQueryThreshold,
		telemetryEnabled:   cfg.Telemetry.Enabled,
		logger:             cfg.Logging.Logger,
		meterProvider:      cfg.Metrics.MeterProvider,
	}
	if cfg.Logging.Enabled {
		c.EnableLogging(true)
	}
	if cfg.Metrics.Enabled {
		c.EnableMetrics(true)
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// OpenEnv opens a connection from base overridden by YGGGO_DB_* variables.
func OpenEnv(ctx context.Context, base Config) (*Conn, error) {
	cfg, err := ConfigFromEnv(base)
	if err != nil {
		return nil, err
	}
	return Open(ctx, cfg)
}

func (c *Conn) connect(ctx context.Context) error {
	start := time.Now()
	spanCtx, span := c.startSpan(ctx, "connect", "")
	err := retryWithPolicy(spanCtx, c.cfg.Retry, func() error { return c.dial(spanCtx) }, classifyRetry)
	if err == nil {
		err = c.applyAttributes(spanCtx)
		if err != nil {
			c.closeHandles()
		}
	}
	c.recordConnection(ctx, err)
	c.logConnection(ctx, "connect", time.Since(start), err)
	if err != nil {
		var de *DatabaseError
		if !errors.As(err, &de) {
			err = c.fail(ctx, KindConnection, err, "", nil)
		}
	}
	c.finishSpan(span, err)
	return err
}

func (c *Conn) dial(ctx context.Context) error {
	dsn, err := c.cfg.DataSourceName()
	if err != nil {
		return err
	}
	driverName := c.cfg.sqlDriverName(c.dialect)

	var db *sql.DB
	if c.cfg.Telemetry.DriverSpans {
		db, err = otelsql.Open(driverName, dsn,
			otelsql.WithAttributes(attribute.String("db.system", c.dialect.system())))
	} else {
		db, err = sql.Open(driverName, dsn)
	}
	if err != nil {
		return err
	}

	opts := c.cfg.ClientOptions
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	dialCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	inner, err := db.Conn(dialCtx)
	if err != nil {
		_ = db.Close()
		return err
	}
	if err := inner.PingContext(dialCtx); err != nil {
		_ = inner.Close()
		_ = db.Close()
		return err
	}
	c.db, c.inner = db, inner
	return nil
}

// applyAttributes runs one session statement per client attribute, in key
// order. The error mode is handled by the Conn itself.
func (c *Conn) applyAttributes(ctx context.Context) error {
	for _, k := range sortedKeys(c.cfg.ClientAttributes) {
		if k == AttrErrorMode {
			continue
		}
		stmt := c.dialect.sessionStatement(k, c.cfg.ClientAttributes[k])
		if _, err := c.inner.ExecContext(ctx, stmt); err != nil {
			return c.fail(ctx, KindConnection, err, stmt, nil)
		}
	}
	return nil
}

// fail classifies err and reports it according to the error mode.
func (c *Conn) fail(ctx context.Context, kind ErrorKind, err error, query string, params Params) error {
	de := c.classifier.Classify(kind, err, query, params)
	c.recordError(ctx, de)
	c.logClassified(ctx, de)
	return de
}

func (c *Conn) executor() sqlExecutor {
	if c.tx != nil {
		return c.tx
	}
	return c.inner
}

// Exec runs a statement that returns no rows and reports the number of
// affected rows.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.instrumentedExec(ctx, "exec", query, args)
	if err != nil {
		return 0, c.fail(ctx, KindStatement, err, query, positionalParams(args))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query runs a statement and wraps its rows in a QueryResult.
//
// The result reads from the Conn's single connection. MySQL and PostgreSQL
// drivers reject further statements on the Conn until the result is drained
// or closed; call FetchAll, or UseCache(true) followed by FetchAll, before
// issuing the next statement.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	params := positionalParams(args)
	rows, err := c.instrumentedQuery(ctx, "query", query, args)
	if err != nil {
		return nil, c.fail(ctx, KindStatement, err, query, params)
	}
	return c.rowsResult(ctx, rows, nil, query, params)
}

// rowsResult wraps rows in a QueryResult. st is the statement the rows were
// read through, or nil.
func (c *Conn) rowsResult(ctx context.Context, rows *sql.Rows, st *sql.Stmt, query string, params Params) (*QueryResult, error) {
	cur, err := newRowsCursor(rows)
	if err != nil {
		return nil, c.fail(ctx, KindStatement, err, query, params)
	}
	if c.cursors == nil {
		c.cursors = make(map[*rowsCursor]struct{})
	}
	c.cursors[cur] = struct{}{}
	unhold := c.holdStmt(st)
	cur.release = func() {
		delete(c.cursors, cur)
		unhold()
	}
	return newQueryResult(cur, 0, 0, func(err error) error {
		return c.fail(ctx, KindStatement, err, query, params)
	}), nil
}

// Prepare compiles query. Named :placeholders are rewritten into the
// engine's positional form. A statement prepared inside a transaction is
// prepared again on first use after that transaction ends.
func (c *Conn) Prepare(ctx context.Context, query string) (*Stmt, error) {
	if c.inner == nil {
		return nil, c.fail(ctx, KindConnection, errConnClosed, query, nil)
	}
	bound, names := parseNamed(query, c.dialect.placeholder)

	start := time.Now()
	spanCtx, span := c.startSpan(ctx, "prepare", bound)
	var (
		st     *sql.Stmt
		cached bool
		err    error
	)
	if c.tx != nil {
		st, err = c.tx.PrepareContext(spanCtx, bound)
	} else {
		st, cached, err = c.stmtCache.getOrPrepare(spanCtx, c.inner, bound)
	}
	c.logQuery(ctx, "prepare", bound, nil, time.Since(start), err)
	c.recordStatement(ctx, "prepare", time.Since(start), err)
	if err != nil {
		err = c.fail(ctx, KindStatement, err, query, nil)
		c.finishSpan(span, err)
		return nil, err
	}
	c.finishSpan(span, nil)
	return &Stmt{conn: c, stmt: st, tx: c.tx, query: query, bound: bound, names: names, cached: cached}, nil
}

// EnableStmtCache keeps up to capacity prepared statements for reuse by
// Prepare. Statements evicted from the cache are closed, so a Stmt should
// not be held across many other Prepare calls. A capacity of 0 disables the
// cache.
func (c *Conn) EnableStmtCache(capacity int) {
	if c.stmtCache != nil {
		c.stmtCache.closeAll()
	}
	c.stmtCache = nil
	if capacity > 0 {
		c.stmtCache = newStmtCache(capacity, c.closeStmt)
	}
}

// StmtCacheStats reports statement cache hits, misses and current size.
func (c *Conn) StmtCacheStats() (hits, misses uint64, size int) {
	return c.stmtCache.stats()
}

// Admin returns the administrative executor for this connection's engine,
// creating it on first use.
func (c *Conn) Admin() (*AdminExecutor, error) {
	if c.admin == nil {
		a, err := NewAdminExecutor(c)
		if err != nil {
			return nil, err
		}
		c.admin = a
	}
	return c.admin, nil
}

// ConnectTo opens a new, independent connection with the same settings
// but targeting schema. c stays open.
func (c *Conn) ConnectTo(ctx context.Context, schema string) (*Conn, error) {
	cfg := c.cfg
	cfg.Schema = schema
	cfg.Logging = LoggingConfig{Enabled: c.loggingEnabled, Logger: c.logger}
	cfg.Telemetry.Enabled = c.telemetryEnabled
	cfg.Metrics = MetricsConfig{Enabled: c.metricsEnabled, MeterProvider: c.meterProvider}
	cfg.SlowQueryThreshold = c.slowQueryThreshold
	return Open(ctx, cfg)
}

// Info returns the configuration the connection was opened with.
func (c *Conn) Info() Config { return c.cfg }

func (c *Conn) Engine() Engine { return c.dialect.engine() }

// EscapeField quotes a field reference such as "table.column",
// "table.*" or "column AS alias" for this engine.
func (c *Conn) EscapeField(field string) string {
	return escapeField(c.dialect, field)
}

// Close closes unread results, rolls back an open transaction and releases
// the connection.
func (c *Conn) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	for cur := range c.cursors {
		_ = cur.close()
	}
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	c.stmtCache.closeAll()
	err := c.closeHandles()
	c.logConnection(context.Background(), "close", 0, err)
	return err
}

func (c *Conn) closeHandles() error {
	var errs []error
	if c.inner != nil {
		errs = append(errs, c.inner.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	c.inner, c.db = nil, nil
	return errors.Join(errs...)
}

func (c *Conn) instrumentedExec(ctx context.Context, operation, query string, args []any) (sql.Result, error) {
	if c.inner == nil {
		return nil, errConnClosed
	}
	start := time.Now()
	spanCtx, span := c.startSpan(ctx, operation, query)
	res, err := c.executor().ExecContext(spanCtx, query, args...)
	duration := time.Since(start)
	c.logQuery(ctx, operation, query, args, duration, err)
	c.recordStatement(ctx, operation, duration, err)
	c.finishSpan(span, err)
	return res, err
}

func (c *Conn) instrumentedQuery(ctx context.Context, operation, query string, args []any) (*sql.Rows, error) {
	if c.inner == nil {
		return nil, errConnClosed
	}
	start := time.Now()
	spanCtx, span := c.startSpan(ctx, operation, query)
	rows, err := c.executor().QueryContext(spanCtx, query, args...)
	duration := time.Since(start)
	c.logQuery(ctx, operation, query, args, duration, err)
	c.recordStatement(ctx, operation, duration, err)
	c.finishSpan(span, err)
	return rows, err
}

func positionalParams(args []any) Params {
	if len(args) == 0 {
		return nil
	}
	_, p, _ := bindArgs(nil, args)
	return p
}
