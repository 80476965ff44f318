package ygggo_db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HealthStatus represents the health of one connection
type HealthStatus struct {
	Healthy      bool           `json:"healthy"`
	LastChecked  time.Time      `json:"last_checked"`
	ResponseTime time.Duration  `json:"response_time"`
	Errors       []HealthError  `json:"errors,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// HealthError represents a health check error
type HealthError struct {
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Recoverable bool      `json:"recoverable"`
}

// HealthCheckConfig configures health check behavior
type HealthCheckConfig struct {
	Timeout   time.Duration `json:"timeout"`
	TestQuery string        `json:"test_query"`
}

// DefaultHealthCheckConfig returns default health check configuration
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Timeout:   5 * time.Second,
		TestQuery: "SELECT 1",
	}
}

// Ping verifies the connection is still alive.
func (c *Conn) Ping(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return errConnClosed
	}
	if err := c.inner.PingContext(ctx); err != nil {
		return c.fail(ctx, KindConnection, err, "", nil)
	}
	return nil
}

// HealthCheck pings the server and runs the default test query.
func (c *Conn) HealthCheck(ctx context.Context) *HealthStatus {
	return c.HealthCheckWithConfig(ctx, DefaultHealthCheckConfig())
}

// HealthCheckWithConfig pings the server and runs config.TestQuery. Failures
// are reported in the status rather than returned.
func (c *Conn) HealthCheckWithConfig(ctx context.Context, config HealthCheckConfig) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		LastChecked: start,
		Details:     make(map[string]any),
	}
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	pingStart := time.Now()
	if err := c.Ping(ctx); err != nil {
		status.addError("connectivity", fmt.Errorf("ping failed: %w", err))
	} else {
		status.Details["ping_time"] = time.Since(pingStart)
		if config.TestQuery != "" {
			c.checkQuery(ctx, config.TestQuery, status)
		}
	}

	status.ResponseTime = time.Since(start)
	status.Healthy = len(status.Errors) == 0
	return status
}

func (c *Conn) checkQuery(ctx context.Context, query string, status *HealthStatus) {
	queryStart := time.Now()
	res, err := c.Query(ctx, query)
	if err != nil {
		status.addError("query_execution", err)
		return
	}
	defer res.Close()
	row, ok, err := res.Fetch()
	if err != nil {
		status.addError("query_execution", err)
		return
	}
	if !ok {
		status.addError("query_execution", errors.New("test query returned no rows"))
		return
	}
	status.Details["query_time"] = time.Since(queryStart)
	if v, ok := row.Index(0); ok {
		status.Details["test_query_result"] = v
	}
}

func (s *HealthStatus) addError(kind string, err error) {
	s.Errors = append(s.Errors, HealthError{
		Type:        kind,
		Message:     err.Error(),
		Timestamp:   time.Now(),
		Recoverable: classifyRetry(err) == ErrClassRetryable,
	})
}
