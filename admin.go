package ygggo_db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// adminAdapter renders and runs administrative statements for one engine.
type adminAdapter interface {
	createDatabase(ctx context.Context, c *Conn, name, charSet string) error
	createUser(ctx context.Context, c *Conn, username, password, host string) error
	dropDatabase(ctx context.Context, c *Conn, name string) error
	dropUser(ctx context.Context, c *Conn, username, host string) error
	grantUserPermissions(ctx context.Context, c *Conn, database, username string, perms Permission, host string) error
	copyDatabase(ctx context.Context, c *Conn, runner CommandRunner, source, target string) error
}

// AdminExecutor runs database and user administration through a Conn.
// Driver errors come back as *DatabaseError.
type AdminExecutor struct {
	conn    *Conn
	adapter adminAdapter
	runner  CommandRunner
}

// NewAdminExecutor picks the adapter for the engine of c.
func NewAdminExecutor(c *Conn) (*AdminExecutor, error) {
	var a adminAdapter
	switch c.Engine() {
	case EngineMySQL:
		a = mysqlAdmin{}
	case EnginePostgres:
		a = pgsqlAdmin{}
	case EngineSQLite:
		a = sqliteAdmin{}
	default:
		return nil, &UnsupportedDriverError{Driver: string(c.Engine())}
	}
	return &AdminExecutor{conn: c, adapter: a, runner: shellRunner}, nil
}

// SetCommandRunner replaces the runner used by CopyDatabase.
func (a *AdminExecutor) SetCommandRunner(r CommandRunner) {
	a.runner = r
}

// CreateDatabase creates name. An empty charSet selects the engine
// default: utf8 on MySQL, the server default encoding on PostgreSQL.
// On PostgreSQL public access to the new database is revoked as well.
func (a *AdminExecutor) CreateDatabase(ctx context.Context, name, charSet string) error {
	return a.adapter.createDatabase(ctx, a.conn, name, charSet)
}

// CreateUser creates a login. An empty host means any host on MySQL;
// PostgreSQL roles are not host scoped and host is ignored.
func (a *AdminExecutor) CreateUser(ctx context.Context, username, password, host string) error {
	return a.adapter.createUser(ctx, a.conn, username, password, host)
}

// DropDatabase drops name if it exists.
func (a *AdminExecutor) DropDatabase(ctx context.Context, name string) error {
	return a.adapter.dropDatabase(ctx, a.conn, name)
}

// DropUser drops a login. It fails if the user does not exist.
func (a *AdminExecutor) DropUser(ctx context.Context, username, host string) error {
	return a.adapter.dropUser(ctx, a.conn, username, host)
}

// GrantUserPermissions grants perms on every table of database. On
// PostgreSQL the CONNECT grant and the table grant are separate statements;
// if the second fails the first is not undone.
func (a *AdminExecutor) GrantUserPermissions(ctx context.Context, database, username string, perms Permission, host string) error {
	return a.adapter.grantUserPermissions(ctx, a.conn, database, username, perms&PermAll, host)
}

// CopyDatabase recreates target and loads a dump of source into it using
// the engine's command line tools (mysqldump/mysql, pg_dump/psql), which
// must be on PATH. The PostgreSQL tools are run without a password, so the
// server must trust the connecting user.
func (a *AdminExecutor) CopyDatabase(ctx context.Context, source, target string) error {
	return a.adapter.copyDatabase(ctx, a.conn, a.runner, source, target)
}

var errNoPermissions = errors.New("ygggo_db: no permissions to grant")

var charSetPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func checkCharSet(cs string) error {
	if !charSetPattern.MatchString(cs) {
		return fmt.Errorf("ygggo_db: invalid character set %q", cs)
	}
	return nil
}

// quoteLiteral renders s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// runPipeline runs "dump | load" through sh and turns a non-zero exit into
// ErrCopyFailed.
func runPipeline(ctx context.Context, runner CommandRunner, dump, load string) error {
	_, stderr, code, err := runner.Run(ctx, "sh", "-c", dump+" | "+load)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCopyFailed, err)
	}
	if code != 0 {
		return fmt.Errorf("%w: exit code %d: %s", ErrCopyFailed, code, strings.TrimSpace(stderr))
	}
	return nil
}
