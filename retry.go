package ygggo_db

import (
	"context"
	"database/sql/driver"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// RetryPolicy controls how often connecting is attempted.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Jitter      bool
	MaxElapsed  time.Duration
}

// ErrorClass groups errors by how a retry loop should treat them.
type ErrorClass int

const (
	ErrClassUnknown ErrorClass = iota
	ErrClassRetryable
	ErrClassAuthorization
)

// classifyRetry treats transport failures and "server busy" codes as
// retryable. Authorization failures are never retried.
func classifyRetry(err error) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}
	if IsAuthorizationError(err) {
		return ErrClassAuthorization
	}
	if errors.Is(err, driver.ErrBadConn) {
		return ErrClassRetryable
	}
	var (
		me *mysql.MySQLError
		pe *pq.Error
		ge *pgconn.PgError
		se *sqlite.Error
		ne net.Error
	)
	switch {
	case errors.As(err, &me):
		switch me.Number {
		case 1045:
			return ErrClassAuthorization
		case 1040, 1205, 1213:
			return ErrClassRetryable
		}
	case errors.As(err, &pe):
		return pgRetryClass(string(pe.Code))
	case errors.As(err, &ge):
		return pgRetryClass(ge.Code)
	case errors.As(err, &se):
		// SQLITE_BUSY, SQLITE_LOCKED
		if c := se.Code() & 0xff; c == 5 || c == 6 {
			return ErrClassRetryable
		}
	case errors.As(err, &ne):
		return ErrClassRetryable
	}
	return ErrClassUnknown
}

func pgRetryClass(code string) ErrorClass {
	switch {
	case strings.HasPrefix(code, "28"):
		return ErrClassAuthorization
	case strings.HasPrefix(code, "08"), code == "53300", code == "57P03", code == "40001", code == "40P01":
		return ErrClassRetryable
	}
	return ErrClassUnknown
}

// retryWithPolicy retries op according to policy. classify returns error class.
func retryWithPolicy(ctx context.Context, pol RetryPolicy, op func() error, classify func(error) ErrorClass) error {
	if pol.MaxAttempts <= 0 {
		pol.MaxAttempts = 1
	}
	if pol.BaseBackoff <= 0 {
		pol.BaseBackoff = 10 * time.Millisecond
	}
	if pol.MaxBackoff <= 0 {
		pol.MaxBackoff = pol.BaseBackoff
	}
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= pol.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		if classify(err) != ErrClassRetryable {
			return err
		}
		lastErr = err
		if attempt == pol.MaxAttempts {
			break
		}
		if pol.MaxElapsed > 0 && time.Since(start) >= pol.MaxElapsed {
			break
		}
		d := pol.BaseBackoff * time.Duration(attempt)
		if d > pol.MaxBackoff {
			d = pol.MaxBackoff
		}
		if pol.Jitter {
			d = time.Duration(rand.Int63n(int64(d)))
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return lastErr
}
