package ygggo_db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeField(t *testing.T) {
	cases := []struct {
		in, ansi, mysql string
	}{
		{"*", "*", "*"},
		{"field", `"field"`, "`field`"},
		{`ta"ble`, `"ta""ble"`, "`ta\"ble`"},
		{"ta`ble", "\"ta`ble\"", "`ta``ble`"},
		{"table.*", `"table".*`, "`table`.*"},
		{"db.table.col", `"db"."table"."col"`, "`db`.`table`.`col`"},
		{"field AS alias", `"field" AS "alias"`, "`field` AS `alias`"},
		{"field as alias", `"field" as "alias"`, "`field` as `alias`"},
		{"as alias", `"as" "alias"`, "`as` `alias`"},
		{"field as", `"field" "as"`, "`field` `as`"},
		{"as as alias", `"as" as "alias"`, "`as` as `alias`"},
		{"t.c AS x", `"t"."c" AS "x"`, "`t`.`c` AS `x`"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.ansi, escapeField(pgsqlDialect{}, tc.in))
			assert.Equal(t, tc.ansi, escapeField(sqliteDialect{}, tc.in))
			assert.Equal(t, tc.mysql, escapeField(mysqlDialect{}, tc.in))
		})
	}
}

func TestDialect_Placeholders(t *testing.T) {
	assert.Equal(t, "?", mysqlDialect{}.placeholder(3))
	assert.Equal(t, "?", sqliteDialect{}.placeholder(3))
	assert.Equal(t, "$3", pgsqlDialect{}.placeholder(3))
}

func TestDialect_SessionStatements(t *testing.T) {
	assert.Equal(t, "SET SESSION sql_mode = 'ANSI'", mysqlDialect{}.sessionStatement("sql_mode", "'ANSI'"))
	assert.Equal(t, "SET search_path = app", pgsqlDialect{}.sessionStatement("search_path", "app"))
	assert.Equal(t, "PRAGMA foreign_keys = ON", sqliteDialect{}.sessionStatement("foreign_keys", "ON"))
}

func TestDialectFor(t *testing.T) {
	for _, e := range []Engine{EngineMySQL, EnginePostgres, EngineSQLite} {
		d, err := dialectFor(e)
		require.NoError(t, err)
		assert.Equal(t, e, d.engine())
		assert.True(t, d.ownsSQLDriver(d.defaultSQLDriver()))
		assert.False(t, d.ownsSQLDriver("sqlmock"))
	}
	assert.True(t, pgsqlDialect{}.ownsSQLDriver("pgx"))
	assert.Equal(t, "postgresql", pgsqlDialect{}.system())

	_, err := dialectFor("mssql")
	var ude *UnsupportedDriverError
	require.ErrorAs(t, err, &ude)
	assert.Equal(t, "mssql", ude.Driver)
}
