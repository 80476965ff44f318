package ygggo_db

import (
	"context"
	"log/slog"
	"os"
	"time"
)

var (
	defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
)

// EnableLogging enables or disables structured logging for this connection
func (c *Conn) EnableLogging(enabled bool) {
	if c == nil {
		return
	}
	c.loggingEnabled = enabled
	if enabled && c.logger == nil {
		c.logger = defaultLogger
	}
}

// SetLogger sets a custom logger for this connection
func (c *Conn) SetLogger(logger *slog.Logger) {
	if c == nil {
		return
	}
	c.logger = logger
}

// SetSlowQueryThreshold makes statements slower than d log at warn level.
func (c *Conn) SetSlowQueryThreshold(d time.Duration) {
	if c == nil {
		return
	}
	c.slowQueryThreshold = d
}

func (c *Conn) logging() bool {
	return c != nil && c.loggingEnabled && c.logger != nil
}

// logQuery logs statement execution with structured fields
func (c *Conn) logQuery(ctx context.Context, operation, query string, args []any, duration time.Duration, err error) {
	if !c.logging() {
		return
	}

	attrs := []slog.Attr{
		slog.String("engine", string(c.cfg.Driver)),
		slog.String("operation", operation),
		slog.String("query", query),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}

	// Only the count; values may be sensitive.
	if len(args) > 0 {
		attrs = append(attrs, slog.Int("arg_count", len(args)))
	}

	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
		if d := inspectDriverError(err); d.code != "" || d.number != 0 {
			attrs = append(attrs, slog.String("error_code", d.code), slog.Int("error_number", d.number))
		}
	} else {
		attrs = append(attrs, slog.String("status", "success"))
	}

	if c.slowQueryThreshold > 0 && duration > c.slowQueryThreshold {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "slow query detected", attrs...)
		return
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	c.logger.LogAttrs(ctx, level, "database query executed", attrs...)
}

// logConnection logs database connection events
func (c *Conn) logConnection(ctx context.Context, event string, duration time.Duration, err error) {
	if !c.logging() {
		return
	}

	attrs := []slog.Attr{
		slog.String("engine", string(c.cfg.Driver)),
		slog.String("event", event),
		slog.String("host", c.cfg.Host),
		slog.String("schema", c.cfg.Schema),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}

	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
		c.logger.LogAttrs(ctx, slog.LevelError, "database connection event", attrs...)
	} else {
		attrs = append(attrs, slog.String("status", "success"))
		c.logger.LogAttrs(ctx, slog.LevelDebug, "database connection event", attrs...)
	}
}

// logTransaction logs database transaction events
func (c *Conn) logTransaction(ctx context.Context, event string, duration time.Duration, err error) {
	if !c.logging() {
		return
	}

	attrs := []slog.Attr{
		slog.String("engine", string(c.cfg.Driver)),
		slog.String("event", event),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}

	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("error", err.Error()),
		)
		c.logger.LogAttrs(ctx, slog.LevelError, "database transaction event", attrs...)
	} else {
		attrs = append(attrs, slog.String("status", "success"))
		c.logger.LogAttrs(ctx, slog.LevelInfo, "database transaction event", attrs...)
	}
}

// logClassified reports a classified error when the session runs in
// ErrorModeLog. It logs even if query logging is off.
func (c *Conn) logClassified(ctx context.Context, de *DatabaseError) {
	if c == nil || c.errorMode != ErrorModeLog {
		return
	}
	lg := c.logger
	if lg == nil {
		lg = defaultLogger
	}
	lg.LogAttrs(ctx, slog.LevelError, "database error",
		slog.String("engine", string(c.cfg.Driver)),
		slog.String("kind", de.Kind().String()),
		slog.String("code", de.Code()),
		slog.Int("vendor_code", de.VendorCode()),
		slog.String("query", de.SQL()),
		slog.Bool("authorization_error", de.IsAuthorizationError()),
		slog.Bool("user_already_exists", de.UserAlreadyExists()),
		slog.Bool("database_already_exists", de.DatabaseAlreadyExists()),
		slog.Bool("table_does_not_exist", de.TableDoesNotExist()),
		slog.String("error", de.Message()),
	)
}
