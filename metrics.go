package ygggo_db

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricsInstrumentationName = "github.com/yggai/ygggo_db"
)

// Metrics holds all the metric instruments
type Metrics struct {
	connectionsTotal metric.Int64Counter

	statementsTotal   metric.Int64Counter
	statementDuration metric.Float64Histogram

	transactionsTotal   metric.Int64Counter
	transactionDuration metric.Float64Histogram

	errorsTotal metric.Int64Counter
}

// EnableMetrics enables or disables metrics collection for this connection
func (c *Conn) EnableMetrics(enabled bool) {
	if c == nil {
		return
	}
	c.metricsEnabled = enabled
	if enabled && c.metrics == nil {
		c.initMetrics()
	}
}

// SetMeterProvider sets a custom meter provider for metrics
func (c *Conn) SetMeterProvider(provider metric.MeterProvider) {
	if c == nil {
		return
	}
	c.meterProvider = provider
	if c.metricsEnabled {
		c.initMetrics()
	}
}

// initMetrics initializes all metric instruments
func (c *Conn) initMetrics() {
	var meter metric.Meter
	if c.meterProvider != nil {
		meter = c.meterProvider.Meter(metricsInstrumentationName)
	} else {
		meter = otel.Meter(metricsInstrumentationName)
	}

	m := &Metrics{}

	m.connectionsTotal, _ = meter.Int64Counter(
		"ygggo_db_connections_total",
		metric.WithDescription("Total number of connection attempts"),
	)

	m.statementsTotal, _ = meter.Int64Counter(
		"ygggo_db_statements_total",
		metric.WithDescription("Total number of executed statements"),
	)

	m.statementDuration, _ = meter.Float64Histogram(
		"ygggo_db_statement_duration_seconds",
		metric.WithDescription("Duration of executed statements"),
		metric.WithUnit("s"),
	)

	m.transactionsTotal, _ = meter.Int64Counter(
		"ygggo_db_transactions_total",
		metric.WithDescription("Total number of transaction events"),
	)

	m.transactionDuration, _ = meter.Float64Histogram(
		"ygggo_db_transaction_duration_seconds",
		metric.WithDescription("Duration of transactions from begin to commit or rollback"),
		metric.WithUnit("s"),
	)

	m.errorsTotal, _ = meter.Int64Counter(
		"ygggo_db_errors_total",
		metric.WithDescription("Total number of classified database errors"),
	)

	c.metrics = m
}

func (c *Conn) recording() bool {
	return c != nil && c.metricsEnabled && c.metrics != nil
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// recordConnection records a connection attempt
func (c *Conn) recordConnection(ctx context.Context, err error) {
	if !c.recording() {
		return
	}
	c.metrics.connectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", string(c.cfg.Driver)),
		attribute.String("status", statusOf(err)),
	))
}

// recordStatement records statement execution metrics
func (c *Conn) recordStatement(ctx context.Context, operation string, duration time.Duration, err error) {
	if !c.recording() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("engine", string(c.cfg.Driver)),
		attribute.String("operation", operation),
		attribute.String("status", statusOf(err)),
	)
	c.metrics.statementsTotal.Add(ctx, 1, attrs)
	c.metrics.statementDuration.Record(ctx, duration.Seconds(), attrs)
}

// recordTransaction records begin, commit and rollback events. duration is
// only recorded for commit and rollback.
func (c *Conn) recordTransaction(ctx context.Context, event string, duration time.Duration, err error) {
	if !c.recording() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("status", statusOf(err)),
	)
	c.metrics.transactionsTotal.Add(ctx, 1, attrs)
	if event != "begin" {
		c.metrics.transactionDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// recordError counts a classified error by its recognized cause.
func (c *Conn) recordError(ctx context.Context, de *DatabaseError) {
	if !c.recording() {
		return
	}
	c.metrics.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", de.Kind().String()),
		attribute.String("flag", errorFlag(de)),
	))
}

func errorFlag(de *DatabaseError) string {
	switch {
	case de.IsAuthorizationError():
		return "authorization_error"
	case de.UserAlreadyExists():
		return "user_already_exists"
	case de.DatabaseAlreadyExists():
		return "database_already_exists"
	case de.TableDoesNotExist():
		return "table_does_not_exist"
	}
	return "none"
}
