package ygggo_db

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SharesOneClassifierPerEngine(t *testing.T) {
	r := NewRegistry()
	a, err := r.Classifier(EngineMySQL)
	require.NoError(t, err)
	b, err := r.Classifier(EngineMySQL)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.IsType(t, mysqlClassifier{}, a)

	pg, err := r.Classifier(EnginePostgres)
	require.NoError(t, err)
	assert.IsType(t, ansiClassifier{}, pg)

	lite, err := r.Classifier(EngineSQLite)
	require.NoError(t, err)
	assert.IsType(t, sqliteClassifier{}, lite)
	assert.Len(t, r.classifiers, 3)
}

func TestRegistry_UnsupportedEngine(t *testing.T) {
	r := NewRegistry()
	_, err := r.Classifier(Engine("oracle"))
	var ude *UnsupportedDriverError
	require.ErrorAs(t, err, &ude)
	assert.Equal(t, "oracle", ude.Driver)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
	assert.Empty(t, r.classifiers)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Classifier(EnginePostgres)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, r.classifiers, 1)
}

func TestParseEngine(t *testing.T) {
	cases := map[string]Engine{
		"mysql":      EngineMySQL,
		"MariaDB":    EngineMySQL,
		"pgsql":      EnginePostgres,
		"postgresql": EnginePostgres,
		"postgres":   EnginePostgres,
		" sqlite ":   EngineSQLite,
		"sqlite3":    EngineSQLite,
	}
	for in, want := range cases {
		got, err := ParseEngine(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.True(t, got.Valid())
	}

	_, err := ParseEngine("mssql")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
	assert.False(t, Engine("mssql").Valid())
}
