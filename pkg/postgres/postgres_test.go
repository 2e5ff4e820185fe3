package postgres

import (
	"errors"
	"testing"

	"github.com/Layr-Labs/state-sampler/internal/logger"
	"github.com/Layr-Labs/state-sampler/internal/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ConnectionString(t *testing.T) {
	t.Run("Defaults to sslmode disable", func(t *testing.T) {
		s, err := getPostgresConnectionString(&PostgresConfig{Host: "localhost", Port: 5432, Username: "sampler", DbName: "samples"})
		require.NoError(t, err)
		assert.Equal(t, "host=localhost  user=sampler dbname=samples port=5432 sslmode=disable TimeZone=UTC", s)
	})
	t.Run("Adds certificates and schema", func(t *testing.T) {
		s, err := getPostgresConnectionString(&PostgresConfig{
			Host:        "db",
			Port:        5433,
			DbName:      "samples",
			SSLMode:     "verify-full",
			SSLRootCert: "/certs/root.pem",
			SchemaName:  "scans",
		})
		require.NoError(t, err)
		assert.Contains(t, s, "sslmode=verify-full")
		assert.Contains(t, s, "sslrootcert=/certs/root.pem")
		assert.Contains(t, s, "search_path=scans")
	})
	t.Run("Rejects unknown ssl modes", func(t *testing.T) {
		_, err := getPostgresConnectionString(&PostgresConfig{SSLMode: "prefer"})
		assert.Error(t, err)
	})
	t.Run("IsDuplicateKeyError", func(t *testing.T) {
		assert.True(t, IsDuplicateKeyError(errors.New(`pq: duplicate key value violates unique constraint "uniq_sample"`)))
		assert.False(t, IsDuplicateKeyError(errors.New("connection refused")))
	})
}

func Test_Postgres(t *testing.T) {
	dbCfg := tests.GetDbConfigFromEnv()
	if dbCfg == nil {
		t.Skip("SAMPLER_DATABASE_HOST not set")
	}
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	dbName, _, grm, err := GetTestPostgresDatabase(*dbCfg, l)
	require.NoError(t, err)
	t.Cleanup(func() {
		TeardownTestDatabase(dbName, *dbCfg, grm, l)
	})

	t.Run("Migrations create the samples table", func(t *testing.T) {
		assert.True(t, grm.Migrator().HasTable("historical_samples"))
	})
}
