// Package ygggo_db provides a small database access layer over MySQL,
// PostgreSQL and SQLite.
//
// # Overview
//
// ygggo_db builds on database/sql and the engine drivers. It does not
// build or parse SQL. It adds the parts that sit around statement
// execution:
//
//   - A Conn that owns one dedicated connection and folds nested
//     BeginTransaction calls into the outer transaction
//   - Prepared statements with named :placeholders, rewritten into the
//     engine's positional form
//   - QueryResult, which reads rows once or replays them from a cache
//   - DatabaseError, a classified error with cause flags such as
//     TableDoesNotExist and IsAuthorizationError
//   - AdminExecutor for database, user and grant management
//
// Structured logging (log/slog), OpenTelemetry tracing and metrics are
// available on every Conn and are off by default.
//
// # Quick Start
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		db "github.com/yggai/ygggo_db"
//	)
//
//	func main() {
//		ctx := context.Background()
//		conn, err := db.Open(ctx, db.Config{Driver: db.EngineSQLite, Schema: ":memory:"})
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer conn.Close()
//
//		if _, err := conn.Exec(ctx, "CREATE TABLE config (key TEXT, value TEXT)"); err != nil {
//			log.Fatal(err)
//		}
//		st, err := conn.Prepare(ctx, "INSERT INTO config (key, value) VALUES (:k, :v)")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer st.Close()
//		if _, err := st.Execute(ctx, db.Params{"k": "config1", "v": "value1"}); err != nil {
//			log.Fatal(err)
//		}
//
//		res, err := conn.Query(ctx, "SELECT * FROM config")
//		if err != nil {
//			log.Fatal(err)
//		}
//		rows, err := res.FetchAll()
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Println(rows[0].Map())
//	}
//
// # Results
//
// A QueryResult without a cache is read once: after its cursor is drained,
// further reads fail with ErrResultExhausted. Call UseCache(true) before
// the cursor runs out to keep every fetched row; FetchAll and Rows then
// return the complete result any number of times.
//
//	res, _ := conn.Query(ctx, "SELECT id FROM items")
//	res.UseCache(true)
//	for i, row := range res.Rows() {
//		fmt.Println(i, row.Values())
//	}
//	all, _ := res.FetchAll() // same rows again
//
// # Errors
//
// Every driver error is returned as a *DatabaseError. The flags are set
// from SQLSTATE codes for all engines, and from vendor error numbers on
// MySQL:
//
//	_, err := conn.Query(ctx, "SELECT * FROM not_a_table")
//	if db.IsTableDoesNotExist(err) {
//		// create it
//	}
//
// errors.Is(err, db.ErrConnection) and errors.Is(err, db.ErrStatement)
// tell connection failures from statement failures.
//
// # Configuration
//
// Config can be filled in code or from YGGGO_DB_* environment variables
// with ConfigFromEnv or OpenEnv. The session attribute "errmode" selects
// whether classified errors are only returned ("raise", the default) or
// also logged ("log").
//
// # Administration
//
// Conn.Admin returns an AdminExecutor for the connection's engine. SQLite
// has no users or server-side databases and every administrative call
// returns an *UnsupportedOperationError.
//
//	admin, _ := conn.Admin()
//	err := admin.CreateDatabase(ctx, "shop", "")
//	if db.IsDatabaseAlreadyExists(err) {
//		// fine
//	}
//	err = admin.GrantUserPermissions(ctx, "shop", "reader", db.PermSelect, "")
package ygggo_db
