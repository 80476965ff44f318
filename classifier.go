package ygggo_db

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Classifier turns a raw driver error into a DatabaseError with its cause
// flags set. Classify returns an existing *DatabaseError unchanged.
type Classifier interface {
	Classify(kind ErrorKind, err error, sql string, params Params) *DatabaseError
}

// SQLSTATE codes recognized for every engine.
const (
	sqlStateInsufficientPrivilege = "42501"
	sqlStateDuplicateObject       = "42710"
	sqlStateDuplicateDatabase     = "42P04"
	sqlStateUndefinedTable        = "42P01"
)

type driverDetail struct {
	code    string
	number  int
	message string
}

func inspectDriverError(err error) driverDetail {
	d := driverDetail{message: err.Error()}
	var (
		me *mysql.MySQLError
		pe *pq.Error
		ge *pgconn.PgError
		se *sqlite.Error
	)
	switch {
	case errors.As(err, &me):
		d.number = int(me.Number)
		if me.SQLState != [5]byte{} {
			d.code = string(me.SQLState[:])
		}
		d.message = me.Message
	case errors.As(err, &pe):
		d.code = string(pe.Code)
		d.message = pe.Message
	case errors.As(err, &ge):
		d.code = ge.Code
		d.message = ge.Message
	case errors.As(err, &se):
		d.number = se.Code()
	}
	return d
}

func applyANSI(e *DatabaseError) {
	switch e.code {
	case sqlStateInsufficientPrivilege:
		e.authorization = true
	case sqlStateDuplicateObject:
		e.userExists = true
	case sqlStateDuplicateDatabase:
		e.databaseExists = true
	case sqlStateUndefinedTable:
		e.tableMissing = true
	}
}

// classified returns err as a *DatabaseError when it already is one.
func classified(err error) (*DatabaseError, bool) {
	var de *DatabaseError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// ansiClassifier applies only the shared SQLSTATE table. PostgreSQL reports
// exactly these codes, so it uses this classifier as is.
type ansiClassifier struct{}

func (ansiClassifier) Classify(kind ErrorKind, err error, sql string, params Params) *DatabaseError {
	if err == nil {
		return nil
	}
	if de, ok := classified(err); ok {
		return de
	}
	de := newDatabaseError(kind, err, sql, params)
	applyANSI(de)
	return de
}

var (
	// "Error 1044 (42000): Access denied ..." as printed by go-sql-driver.
	mysqlDriverMessage = regexp.MustCompile(`^Error (\d+)(?: \(([0-9A-Z]{5})\))?:`)
	// "SQLSTATE[42000]: Syntax error or access violation: 1044 Access denied ..."
	mysqlStateMessage = regexp.MustCompile(`^SQLSTATE\[([A-Z0-9]{5})]:.+?:\s*(\d+)`)
)

type mysqlClassifier struct{}

func (mysqlClassifier) Classify(kind ErrorKind, err error, sql string, params Params) *DatabaseError {
	if err == nil {
		return nil
	}
	if de, ok := classified(err); ok {
		return de
	}
	de := newDatabaseError(kind, err, sql, params)
	if de.number == 0 {
		parseMySQLMessage(de, err.Error())
	}
	switch de.number {
	case 1044, 1045, 1142, 1143, 1227:
		de.authorization = true
	case 1396:
		de.userExists = true
	case 1007:
		de.databaseExists = true
	case 1146:
		de.tableMissing = true
	}
	applyANSI(de)
	return de
}

func parseMySQLMessage(de *DatabaseError, msg string) {
	if m := mysqlDriverMessage.FindStringSubmatch(msg); m != nil {
		de.number, _ = strconv.Atoi(m[1])
		if de.code == "" && m[2] != "" {
			de.code = m[2]
		}
		return
	}
	if m := mysqlStateMessage.FindStringSubmatch(msg); m != nil {
		if de.code == "" {
			de.code = m[1]
		}
		de.number, _ = strconv.Atoi(m[2])
	}
}

// Primary result codes from sqlite3.h.
const (
	sqliteAuth = 23
)

type sqliteClassifier struct{}

func (sqliteClassifier) Classify(kind ErrorKind, err error, sql string, params Params) *DatabaseError {
	if err == nil {
		return nil
	}
	if de, ok := classified(err); ok {
		return de
	}
	de := newDatabaseError(kind, err, sql, params)
	msg := strings.ToLower(de.message)
	switch {
	case strings.Contains(msg, "no such table"):
		de.tableMissing = true
	case de.number&0xff == sqliteAuth:
		de.authorization = true
	}
	applyANSI(de)
	return de
}
