package ygggo_db

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// counterValue sums the data points of an int64 counter whose attributes
// contain every key/value in match.
func counterValue(t *testing.T, m metricdata.Metrics, match map[string]string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, not an int64 sum", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		hit := true
		for k, v := range match {
			got, ok := dp.Attributes.Value(attribute.Key(k))
			if !ok || got.AsString() != v {
				hit = false
				break
			}
		}
		if hit {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_SQLite(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	c := openMemory(t, func(cfg *Config) {
		cfg.Metrics = MetricsConfig{Enabled: true, MeterProvider: provider}
	})

	if _, err := c.Exec(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, value TEXT)"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if _, err := c.BeginTransaction(ctx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := c.Exec(ctx, "INSERT INTO test (value) VALUES (?)", "v"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if _, err := c.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, err := c.Query(ctx, "SELECT * FROM nonexistent_table"); err == nil {
		t.Fatalf("expected error")
	}

	got := collect(t, reader)
	for _, name := range []string{
		"ygggo_db_connections_total",
		"ygggo_db_statements_total",
		"ygggo_db_statement_duration_seconds",
		"ygggo_db_transactions_total",
		"ygggo_db_transaction_duration_seconds",
		"ygggo_db_errors_total",
	} {
		if _, ok := got[name]; !ok {
			t.Fatalf("missing metric: %s", name)
		}
	}

	if n := counterValue(t, got["ygggo_db_connections_total"], map[string]string{"status": "success"}); n != 1 {
		t.Fatalf("connections=%d want 1", n)
	}
	if n := counterValue(t, got["ygggo_db_statements_total"], map[string]string{"operation": "exec", "status": "success"}); n != 2 {
		t.Fatalf("successful execs=%d want 2", n)
	}
	if n := counterValue(t, got["ygggo_db_statements_total"], map[string]string{"operation": "query", "status": "error"}); n != 1 {
		t.Fatalf("failed queries=%d want 1", n)
	}
	if n := counterValue(t, got["ygggo_db_transactions_total"], map[string]string{"event": "rollback"}); n != 1 {
		t.Fatalf("rollbacks=%d want 1", n)
	}
	if n := counterValue(t, got["ygggo_db_errors_total"], map[string]string{"kind": "statement", "flag": "table_does_not_exist"}); n != 1 {
		t.Fatalf("table errors=%d want 1", n)
	}
}

func TestMetrics_DisabledRecordsNothing(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	c := openMemory(t)
	c.SetMeterProvider(provider)
	if _, err := c.Exec(context.Background(), "CREATE TABLE t (a INTEGER)"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got := collect(t, reader); len(got) != 0 {
		t.Fatalf("expected no metrics, got %d", len(got))
	}
}

func TestMetrics_EnableAfterOpen(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	c := openMemory(t)
	c.SetMeterProvider(provider)
	c.EnableMetrics(true)
	res, err := c.Query(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	_ = res.Close()

	got := collect(t, reader)
	if n := counterValue(t, got["ygggo_db_statements_total"], map[string]string{"operation": "query"}); n != 1 {
		t.Fatalf("queries=%d want 1", n)
	}
}
