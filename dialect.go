package ygggo_db

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// dialect captures the per-engine differences the connection layer needs.
type dialect interface {
	engine() Engine
	// system is the OpenTelemetry db.system value.
	system() string
	defaultSQLDriver() string
	// ownsSQLDriver reports whether name is a database/sql driver that
	// understands the native data source name built by dataSourceName.
	ownsSQLDriver(name string) bool
	dataSourceName(cfg Config) string
	placeholder(n int) string
	quoteIdentifier(part string) string
	sessionStatement(key, value string) string
}

func dialectFor(e Engine) (dialect, error) {
	switch e {
	case EngineMySQL:
		return mysqlDialect{}, nil
	case EnginePostgres:
		return pgsqlDialect{}, nil
	case EngineSQLite:
		return sqliteDialect{}, nil
	}
	return nil, &UnsupportedDriverError{Driver: string(e)}
}

type mysqlDialect struct{}

func (mysqlDialect) engine() Engine           { return EngineMySQL }
func (mysqlDialect) system() string           { return "mysql" }
func (mysqlDialect) defaultSQLDriver() string { return "mysql" }
func (mysqlDialect) ownsSQLDriver(name string) bool {
	return name == "mysql"
}
func (mysqlDialect) placeholder(int) string { return "?" }

func (mysqlDialect) quoteIdentifier(part string) string {
	return "`" + strings.ReplaceAll(part, "`", "``") + "`"
}

func (mysqlDialect) sessionStatement(key, value string) string {
	return fmt.Sprintf("SET SESSION %s = %s", key, value)
}

// dataSourceName builds a go-sql-driver DSN. The port and unix_socket
// options select the address; all other options become driver params.
func (mysqlDialect) dataSourceName(cfg Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Schema
	mc.Net = "tcp"
	port := "3306"
	for k, v := range cfg.DSNOptions {
		switch k {
		case "port":
			port = v
		case "unix_socket":
			mc.Net = "unix"
			mc.Addr = v
		default:
			if mc.Params == nil {
				mc.Params = make(map[string]string)
			}
			mc.Params[k] = v
		}
	}
	if mc.Net == "tcp" {
		mc.Addr = net.JoinHostPort(cfg.Host, port)
	}
	if cfg.ClientOptions.ConnectTimeout > 0 {
		mc.Timeout = cfg.ClientOptions.ConnectTimeout
	}
	return mc.FormatDSN()
}

type pgsqlDialect struct{}

func (pgsqlDialect) engine() Engine           { return EnginePostgres }
func (pgsqlDialect) system() string           { return "postgresql" }
func (pgsqlDialect) defaultSQLDriver() string { return "postgres" }
func (pgsqlDialect) ownsSQLDriver(name string) bool {
	return name == "postgres" || name == "pgx" || name == "pgx/v5"
}
func (pgsqlDialect) placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (pgsqlDialect) quoteIdentifier(part string) string {
	return ansiQuote(part)
}

func (pgsqlDialect) sessionStatement(key, value string) string {
	return fmt.Sprintf("SET %s = %s", key, value)
}

// dataSourceName builds a keyword/value connection string understood by
// both lib/pq and pgx.
func (pgsqlDialect) dataSourceName(cfg Config) string {
	pairs := [][2]string{{"host", cfg.Host}}
	if cfg.Username != "" {
		pairs = append(pairs, [2]string{"user", cfg.Username})
	}
	if cfg.Password != "" {
		pairs = append(pairs, [2]string{"password", cfg.Password})
	}
	if cfg.Schema != "" {
		pairs = append(pairs, [2]string{"dbname", cfg.Schema})
	}
	if cfg.ClientOptions.ConnectTimeout > 0 {
		secs := int(cfg.ClientOptions.ConnectTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		pairs = append(pairs, [2]string{"connect_timeout", strconv.Itoa(secs)})
	}
	for _, k := range sortedKeys(cfg.DSNOptions) {
		pairs = append(pairs, [2]string{k, cfg.DSNOptions[k]})
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p[0]+"="+pgQuoteValue(p[1]))
	}
	return strings.Join(parts, " ")
}

func pgQuoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

type sqliteDialect struct{}

func (sqliteDialect) engine() Engine           { return EngineSQLite }
func (sqliteDialect) system() string           { return "sqlite" }
func (sqliteDialect) defaultSQLDriver() string { return "sqlite" }
func (sqliteDialect) ownsSQLDriver(name string) bool {
	return name == "sqlite"
}
func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) quoteIdentifier(part string) string {
	return ansiQuote(part)
}

func (sqliteDialect) sessionStatement(key, value string) string {
	return fmt.Sprintf("PRAGMA %s = %s", key, value)
}

// dataSourceName returns the database path (":memory:" when the schema is
// empty) followed by the DSN options as query parameters.
func (sqliteDialect) dataSourceName(cfg Config) string {
	path := cfg.Schema
	if path == "" {
		path = memorySchema
	}
	if len(cfg.DSNOptions) == 0 {
		return path
	}
	q := make([]string, 0, len(cfg.DSNOptions))
	for _, k := range sortedKeys(cfg.DSNOptions) {
		q = append(q, url.QueryEscape(k)+"="+url.QueryEscape(cfg.DSNOptions[k]))
	}
	return path + "?" + strings.Join(q, "&")
}

func ansiQuote(part string) string {
	return `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
}

// escapeField quotes a possibly qualified field reference. A bare "*" and
// the "*" of "table.*" are left alone, and the middle token of
// "field AS alias" keeps its spelling.
func escapeField(d dialect, field string) string {
	if field == "*" {
		return field
	}
	tokens := strings.Split(field, " ")
	for i, tok := range tokens {
		if len(tokens) == 3 && i == 1 && strings.EqualFold(tok, "as") {
			continue
		}
		parts := strings.Split(tok, ".")
		for j, p := range parts {
			if p == "*" {
				continue
			}
			parts[j] = d.quoteIdentifier(p)
		}
		tokens[i] = strings.Join(parts, ".")
	}
	return strings.Join(tokens, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
