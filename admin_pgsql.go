package ygggo_db

import (
	"context"
	"fmt"
)

type pgsqlAdmin struct{}

// onDatabase runs query on a separate connection to database.
func onDatabase(ctx context.Context, c *Conn, database, query string) error {
	sub, err := c.ConnectTo(ctx, database)
	if err != nil {
		return err
	}
	defer sub.Close()
	_, err = sub.Exec(ctx, query)
	return err
}

func (pgsqlAdmin) createDatabase(ctx context.Context, c *Conn, name, charSet string) error {
	encoding := "DEFAULT"
	if charSet != "" {
		if err := checkCharSet(charSet); err != nil {
			return err
		}
		encoding = quoteLiteral(charSet)
	}
	db := c.dialect.quoteIdentifier(name)
	if _, err := c.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s ENCODING %s", db, encoding)); err != nil {
		return err
	}
	if _, err := c.Exec(ctx, fmt.Sprintf("REVOKE CONNECT ON DATABASE %s FROM PUBLIC", db)); err != nil {
		return err
	}
	return onDatabase(ctx, c, name, "REVOKE ALL ON ALL TABLES IN SCHEMA public FROM PUBLIC")
}

func (pgsqlAdmin) createUser(ctx context.Context, c *Conn, username, password, _ string) error {
	_, err := c.Exec(ctx, fmt.Sprintf("CREATE ROLE %s WITH LOGIN PASSWORD %s", c.dialect.quoteIdentifier(username), quoteLiteral(password)))
	return err
}

func (pgsqlAdmin) dropDatabase(ctx context.Context, c *Conn, name string) error {
	_, err := c.Exec(ctx, "DROP DATABASE IF EXISTS "+c.dialect.quoteIdentifier(name))
	return err
}

func (pgsqlAdmin) dropUser(ctx context.Context, c *Conn, username, _ string) error {
	_, err := c.Exec(ctx, "DROP ROLE "+c.dialect.quoteIdentifier(username))
	return err
}

func (pgsqlAdmin) grantUserPermissions(ctx context.Context, c *Conn, database, username string, perms Permission, _ string) error {
	if perms == 0 {
		return errNoPermissions
	}
	role := c.dialect.quoteIdentifier(username)
	if _, err := c.Exec(ctx, fmt.Sprintf("GRANT CONNECT ON DATABASE %s TO %s", c.dialect.quoteIdentifier(database), role)); err != nil {
		return err
	}
	return onDatabase(ctx, c, database, fmt.Sprintf("GRANT %s ON ALL TABLES IN SCHEMA public TO %s", perms, role))
}

func (p pgsqlAdmin) copyDatabase(ctx context.Context, c *Conn, runner CommandRunner, source, target string) error {
	if err := p.dropDatabase(ctx, c, target); err != nil {
		return err
	}
	if err := p.createDatabase(ctx, c, target, ""); err != nil {
		return err
	}
	info := c.Info()
	conn := []string{"-h", info.Host}
	if info.Username != "" {
		conn = append(conn, "-U", info.Username)
	}
	if port := info.DSNOptions["port"]; port != "" {
		conn = append(conn, "-p", port)
	}
	dump := shellCommand("pg_dump", append(conn, source)...)
	load := shellCommand("psql", append(conn, "-q", target)...)
	return runPipeline(ctx, runner, dump, load)
}
