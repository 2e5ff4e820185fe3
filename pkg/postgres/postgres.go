package postgres

import (
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Layr-Labs/state-sampler/internal/config"
	"github.com/Layr-Labs/state-sampler/internal/tests"
	"github.com/Layr-Labs/state-sampler/pkg/postgres/migrations"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSSLMode = "disable"

var validSSLModes = []string{
	"disable",
	"require",
	"verify-ca",
	"verify-full",
}

type PostgresConfig struct {
	Host                string
	Port                int
	Username            string
	Password            string
	DbName              string
	CreateDbIfNotExists bool
	SchemaName          string
	SSLMode             string
	SSLCert             string
	SSLKey              string
	SSLRootCert         string
}

type Postgres struct {
	Db *sql.DB
}

func PostgresConfigFromDbConfig(dbCfg *config.DatabaseConfig) *PostgresConfig {
	return &PostgresConfig{
		Host:        dbCfg.Host,
		Port:        dbCfg.Port,
		Username:    dbCfg.User,
		Password:    dbCfg.Password,
		DbName:      dbCfg.DbName,
		SchemaName:  dbCfg.SchemaName,
		SSLMode:     dbCfg.SSLMode,
		SSLCert:     dbCfg.SSLCert,
		SSLKey:      dbCfg.SSLKey,
		SSLRootCert: dbCfg.SSLRootCert,
	}
}

// GetTestPostgresDatabase creates a fresh, migrated database named after a random id.
func GetTestPostgresDatabase(cfg config.DatabaseConfig, l *zap.Logger) (string, *sql.DB, *gorm.DB, error) {
	testDbName, err := tests.GenerateTestDbName()
	if err != nil {
		return testDbName, nil, nil, err
	}
	cfg.DbName = testDbName

	pgConfig := PostgresConfigFromDbConfig(&cfg)
	pgConfig.CreateDbIfNotExists = true

	pg, err := NewPostgres(pgConfig)
	if err != nil {
		return testDbName, nil, nil, err
	}

	grm, err := NewGormFromPostgresConnection(pg.Db)
	if err != nil {
		return testDbName, nil, nil, err
	}

	migrator := migrations.NewMigrator(pg.Db, grm, l)
	if err = migrator.MigrateAll(); err != nil {
		return testDbName, nil, nil, err
	}
	return testDbName, pg.Db, grm, nil
}

func TeardownTestDatabase(dbname string, cfg config.DatabaseConfig, db *gorm.DB, l *zap.Logger) {
	rawDb, _ := db.DB()
	_ = rawDb.Close()

	if err := DeleteTestDatabase(PostgresConfigFromDbConfig(&cfg), dbname); err != nil {
		l.Sugar().Errorw("Failed to delete test database", zap.Error(err))
	}
}

func getPostgresRootConnection(cfg *PostgresConfig) (*sql.DB, error) {
	rootCfg := *cfg
	rootCfg.DbName = "postgres"
	rootCfg.SchemaName = ""

	postgresConnStr, err := getPostgresConnectionString(&rootCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres connection string")
	}

	postgresDB, err := sql.Open("postgres", postgresConnStr)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to postgres database")
	}
	return postgresDB, nil
}

func getPostgresConnectionString(cfg *PostgresConfig) (string, error) {
	authString := ""
	sslMode := defaultSSLMode

	if cfg.Username != "" {
		authString = fmt.Sprintf("%s user=%s", authString, cfg.Username)
	}
	if cfg.Password != "" {
		authString = fmt.Sprintf("%s password=%s", authString, cfg.Password)
	}

	if cfg.SSLMode != "" {
		if !slices.Contains(validSSLModes, cfg.SSLMode) {
			return "", fmt.Errorf("invalid ssl mode: %s. Must be one of: %s", cfg.SSLMode, strings.Join(validSSLModes, ", "))
		}
		sslMode = cfg.SSLMode
	}

	baseString := fmt.Sprintf("host=%s %s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		cfg.Host,
		authString,
		cfg.DbName,
		cfg.Port,
		sslMode,
	)

	if sslMode != defaultSSLMode {
		if cfg.SSLCert != "" {
			baseString = fmt.Sprintf("%s sslcert=%s", baseString, cfg.SSLCert)
		}
		if cfg.SSLKey != "" {
			baseString = fmt.Sprintf("%s sslkey=%s", baseString, cfg.SSLKey)
		}
		if cfg.SSLRootCert != "" {
			baseString = fmt.Sprintf("%s sslrootcert=%s", baseString, cfg.SSLRootCert)
		}
	}
	if cfg.SchemaName != "" {
		baseString = fmt.Sprintf("%s search_path=%s", baseString, cfg.SchemaName)
	}
	return baseString, nil
}

func DeleteTestDatabase(cfg *PostgresConfig, dbName string) error {
	postgresDB, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer postgresDB.Close()

	if _, err = postgresDB.Exec(fmt.Sprintf("DROP DATABASE %s", dbName)); err != nil {
		return errors.Wrap(err, "error dropping database")
	}
	return nil
}

func CreateDatabaseIfNotExists(cfg *PostgresConfig) error {
	postgresDB, err := getPostgresRootConnection(cfg)
	if err != nil {
		return err
	}
	defer postgresDB.Close()

	var exists bool
	err = postgresDB.QueryRow(`SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)`, cfg.DbName).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "error checking if database exists")
	}

	if !exists {
		if _, err = postgresDB.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.DbName)); err != nil {
			return errors.Wrap(err, "error creating database")
		}
	}
	return nil
}

func NewPostgres(cfg *PostgresConfig) (*Postgres, error) {
	if cfg.CreateDbIfNotExists {
		if err := CreateDatabaseIfNotExists(cfg); err != nil {
			return nil, errors.Wrap(err, "failed to create database if not exists")
		}
	}
	connectString, err := getPostgresConnectionString(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postgres connection string")
	}

	db, err := sql.Open("postgres", connectString)
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup database")
	}

	return &Postgres{
		Db: db,
	}, nil
}

func NewGormFromPostgresConnection(pgDb *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn: pgDb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to setup gorm")
	}

	return db, nil
}

func IsDuplicateKeyError(err error) bool {
	r := regexp.MustCompile(`duplicate key value violates unique constraint`)

	return r.MatchString(err.Error())
}
