package ygggo_db

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind tells whether a DatabaseError came from establishing a
// connection or from running a statement.
type ErrorKind int

const (
	KindStatement ErrorKind = iota
	KindConnection
)

func (k ErrorKind) String() string {
	if k == KindConnection {
		return "connection"
	}
	return "statement"
}

var (
	// ErrConnection matches any DatabaseError of kind KindConnection.
	ErrConnection = errors.New("ygggo_db: connection error")

	// ErrStatement matches any DatabaseError of kind KindStatement.
	ErrStatement = errors.New("ygggo_db: statement error")

	// ErrResultExhausted is returned when a result without a cache is read
	// again after its cursor was drained.
	ErrResultExhausted = errors.New("ygggo_db: result exhausted and no cache was enabled")

	ErrCacheNotEnabled      = errors.New("ygggo_db: cache not enabled")
	ErrUnsupportedDriver    = errors.New("ygggo_db: unsupported driver")
	ErrUnsupportedOperation = errors.New("ygggo_db: unsupported operation")

	// ErrCopyFailed is returned when the dump/restore pipeline of
	// CopyDatabase exits with a non-zero status.
	ErrCopyFailed = errors.New("ygggo_db: copy database failed")
)

// Params holds the bound parameters of a failing statement. Positional
// parameters are keyed by their zero-based index.
type Params map[string]any

// DatabaseError is the classified form of a driver error.
type DatabaseError struct {
	kind    ErrorKind
	code    string
	number  int
	message string
	sql     string
	params  Params

	authorization  bool
	userExists     bool
	databaseExists bool
	tableMissing   bool

	cause error
}

func newDatabaseError(kind ErrorKind, err error, sql string, params Params) *DatabaseError {
	d := inspectDriverError(err)
	return &DatabaseError{
		kind:    kind,
		code:    d.code,
		number:  d.number,
		message: d.message,
		sql:     sql,
		params:  params,
		cause:   err,
	}
}

func (e *DatabaseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ygggo_db: %s error: %s", e.kind, e.message)
	if e.sql != "" {
		fmt.Fprintf(&b, " [sql: %s]", e.sql)
	}
	if len(e.params) > 0 {
		keys := make([]string, 0, len(e.params))
		for k := range e.params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, e.params[k]))
		}
		fmt.Fprintf(&b, " [params: %s]", strings.Join(parts, ", "))
	}
	return b.String()
}

func (e *DatabaseError) Unwrap() error { return e.cause }

func (e *DatabaseError) Is(target error) bool {
	switch target {
	case ErrConnection:
		return e.kind == KindConnection
	case ErrStatement:
		return e.kind == KindStatement
	}
	return false
}

func (e *DatabaseError) Kind() ErrorKind { return e.kind }

// Code is the SQLSTATE reported by the driver, or "" when none was found.
func (e *DatabaseError) Code() string { return e.code }

// VendorCode is the engine specific error number, or 0.
func (e *DatabaseError) VendorCode() int { return e.number }

func (e *DatabaseError) Message() string { return e.message }

// SQL is the statement text that failed, if any.
func (e *DatabaseError) SQL() string { return e.sql }

// Params returns a copy of the parameters bound to the failing statement.
func (e *DatabaseError) Params() Params {
	if e.params == nil {
		return nil
	}
	out := make(Params, len(e.params))
	for k, v := range e.params {
		out[k] = v
	}
	return out
}

func (e *DatabaseError) IsAuthorizationError() bool { return e.authorization }
func (e *DatabaseError) UserAlreadyExists() bool    { return e.userExists }
func (e *DatabaseError) DatabaseAlreadyExists() bool {
	return e.databaseExists
}
func (e *DatabaseError) TableDoesNotExist() bool { return e.tableMissing }

// IsAuthorizationError reports whether err is a DatabaseError flagged as a
// permission failure.
func IsAuthorizationError(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de) && de.authorization
}

func IsUserAlreadyExists(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de) && de.userExists
}

func IsDatabaseAlreadyExists(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de) && de.databaseExists
}

func IsTableDoesNotExist(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de) && de.tableMissing
}

// CodeCacheNotEnabled is the discriminator carried by CacheNotEnabledError.
const CodeCacheNotEnabled = 1

// CacheNotEnabledError is returned when a result is rewound, or caching is
// switched on, after a pass that was not cached.
type CacheNotEnabledError struct {
	Code int
}

func (e *CacheNotEnabledError) Error() string {
	return fmt.Sprintf("ygggo_db: cache not enabled (code %d)", e.Code)
}

func (e *CacheNotEnabledError) Is(target error) bool { return target == ErrCacheNotEnabled }

type UnsupportedDriverError struct {
	Driver string
}

func (e *UnsupportedDriverError) Error() string {
	return fmt.Sprintf("ygggo_db: unsupported driver %q", e.Driver)
}

func (e *UnsupportedDriverError) Is(target error) bool { return target == ErrUnsupportedDriver }

// UnsupportedOperationError reports an administrative operation that an
// engine has no way to perform.
type UnsupportedOperationError struct {
	Engine    Engine
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	msg := fmt.Sprintf("ygggo_db: %s is not supported by %s", e.Operation, e.Engine)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}
