package ygggo_db

import (
	"strings"
)

// Engine identifies a database product family.
type Engine string

const (
	EngineMySQL    Engine = "mysql"
	EnginePostgres Engine = "postgres"
	EngineSQLite   Engine = "sqlite"
)

// ParseEngine resolves a driver name, including common aliases, to an Engine.
func ParseEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return EngineMySQL, nil
	case "postgres", "postgresql", "pgsql", "pgx":
		return EnginePostgres, nil
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	}
	return "", &UnsupportedDriverError{Driver: name}
}

// Valid reports whether e is one of the supported engines.
func (e Engine) Valid() bool {
	switch e {
	case EngineMySQL, EnginePostgres, EngineSQLite:
		return true
	}
	return false
}

func (e Engine) String() string { return string(e) }
