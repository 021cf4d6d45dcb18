package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseURLResolvesWithoutRedisInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://ledger@db/ledger")
	t.Setenv("REDIS_URL", "")
	t.Setenv("CACHE_TTL_SECONDS", "")

	dbURL = ""
	t.Cleanup(func() { dbURL = "" })

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, "postgres://ledger@db/ledger", dbURL)
}

func TestDatabaseFlagWinsOverEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/ledger")

	dbURL = "postgres://flag/ledger"
	t.Cleanup(func() { dbURL = "" })

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, "postgres://flag/ledger", dbURL)
}

func TestDatabaseURLReportsConfigErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://ledger@db/ledger")
	t.Setenv("CACHE_TTL_SECONDS", "soon")

	dbURL = ""
	t.Cleanup(func() { dbURL = "" })

	_, err := resolveDatabaseURL()
	assert.ErrorContains(t, err, "CACHE_TTL_SECONDS")
}
