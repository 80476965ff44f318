package ygggo_db

import (
	"context"
	"fmt"
)

const (
	mysqlDefaultCharSet = "utf8"
	mysqlAnyHost        = "%"
)

type mysqlAdmin struct{}

func mysqlAccount(username, host string) string {
	if host == "" {
		host = mysqlAnyHost
	}
	return quoteLiteral(username) + "@" + quoteLiteral(host)
}

func (mysqlAdmin) createDatabase(ctx context.Context, c *Conn, name, charSet string) error {
	if charSet == "" {
		charSet = mysqlDefaultCharSet
	}
	if err := checkCharSet(charSet); err != nil {
		return err
	}
	_, err := c.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s CHARACTER SET %s", c.dialect.quoteIdentifier(name), charSet))
	return err
}

func (mysqlAdmin) createUser(ctx context.Context, c *Conn, username, password, host string) error {
	_, err := c.Exec(ctx, fmt.Sprintf("CREATE USER %s IDENTIFIED BY %s", mysqlAccount(username, host), quoteLiteral(password)))
	return err
}

func (mysqlAdmin) dropDatabase(ctx context.Context, c *Conn, name string) error {
	_, err := c.Exec(ctx, "DROP DATABASE IF EXISTS "+c.dialect.quoteIdentifier(name))
	return err
}

func (mysqlAdmin) dropUser(ctx context.Context, c *Conn, username, host string) error {
	_, err := c.Exec(ctx, "DROP USER "+mysqlAccount(username, host))
	return err
}

func (mysqlAdmin) grantUserPermissions(ctx context.Context, c *Conn, database, username string, perms Permission, host string) error {
	if perms == 0 {
		return errNoPermissions
	}
	_, err := c.Exec(ctx, fmt.Sprintf("GRANT %s ON %s.* TO %s", perms, c.dialect.quoteIdentifier(database), mysqlAccount(username, host)))
	return err
}

func (m mysqlAdmin) copyDatabase(ctx context.Context, c *Conn, runner CommandRunner, source, target string) error {
	if err := m.dropDatabase(ctx, c, target); err != nil {
		return err
	}
	if err := m.createDatabase(ctx, c, target, ""); err != nil {
		return err
	}
	info := c.Info()
	auth := []string{"-u" + info.Username, "--password=" + info.Password, "-h", info.Host}
	if port := info.DSNOptions["port"]; port != "" {
		auth = append(auth, "-P", port)
	}
	dump := shellCommand("mysqldump", append(auth, source)...)
	load := shellCommand("mysql", append(auth, target)...)
	return runPipeline(ctx, runner, dump, load)
}
