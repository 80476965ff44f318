package ygggo_db

import "context"

// sqliteAdmin rejects every operation: SQLite has no users or privileges,
// and databases are plain files managed outside SQL.
type sqliteAdmin struct{}

func sqliteUnsupported(op, reason string) error {
	return &UnsupportedOperationError{Engine: EngineSQLite, Operation: op, Reason: reason}
}

const (
	sqliteNoDatabases = "databases are files and are not managed through SQL"
	sqliteNoUsers     = "sqlite has no users"
)

func (sqliteAdmin) createDatabase(context.Context, *Conn, string, string) error {
	return sqliteUnsupported("CreateDatabase", sqliteNoDatabases)
}

func (sqliteAdmin) createUser(context.Context, *Conn, string, string, string) error {
	return sqliteUnsupported("CreateUser", sqliteNoUsers)
}

func (sqliteAdmin) dropDatabase(context.Context, *Conn, string) error {
	return sqliteUnsupported("DropDatabase", sqliteNoDatabases)
}

func (sqliteAdmin) dropUser(context.Context, *Conn, string, string) error {
	return sqliteUnsupported("DropUser", sqliteNoUsers)
}

func (sqliteAdmin) grantUserPermissions(context.Context, *Conn, string, string, Permission, string) error {
	return sqliteUnsupported("GrantUserPermissions", sqliteNoUsers)
}

func (sqliteAdmin) copyDatabase(context.Context, *Conn, CommandRunner, string, string) error {
	return sqliteUnsupported("CopyDatabase", sqliteNoDatabases)
}
