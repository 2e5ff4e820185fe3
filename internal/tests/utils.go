package tests

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Layr-Labs/state-sampler/internal/config"
	"github.com/google/uuid"
)

func getEnv(key string, defaultValue string) string {
	if v := os.Getenv(fmt.Sprintf("%s_%s", config.ENV_PREFIX, key)); v != "" {
		return v
	}
	return defaultValue
}

// GetDbConfigFromEnv reads the test database connection from SAMPLER_DATABASE_* variables.
// It returns nil when SAMPLER_DATABASE_HOST is not set.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	host := getEnv("DATABASE_HOST", "")
	if host == "" {
		return nil
	}
	port, err := strconv.Atoi(getEnv("DATABASE_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     getEnv("DATABASE_USER", "sampler"),
		Password: getEnv("DATABASE_PASSWORD", ""),
		DbName:   getEnv("DATABASE_DB_NAME", "sampler"),
	}
}

func GenerateTestDbName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("test_%s", strings.ReplaceAll(id.String(), "-", "")), nil
}
