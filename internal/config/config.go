package config

import (
	"strings"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "SAMPLER"

type TableFormat string

const (
	TableFormat_Wide TableFormat = "wide"
	TableFormat_Long TableFormat = "long"
)

func ParseTableFormat(f string) TableFormat {
	switch strings.ToLower(f) {
	case "long":
		return TableFormat_Long
	default:
		return TableFormat_Wide
	}
}

type EthereumRpcConfig struct {
	BaseUrl        string
	TimeoutSeconds int
	Retries        int
}

type SamplerConfig struct {
	ContractAddress string
	AbiPath         string
	Function        string
	Args            []string
	StartBlock      uint64
	EndBlock        string
	Interval        uint64
	IgnoreReverts   bool
	Concurrency     int
	RateLimit       float64
	ProbeBytecode   bool
	Progress        bool
}

type OutputConfig struct {
	File     string
	Format   TableFormat
	Header   bool
	Decimals int32
	Postgres bool
}

type CacheConfig struct {
	Enabled       bool
	Path          string
	Confirmations uint64
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type DataDogConfig struct {
	StatsdConfig StatsdConfig
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type Config struct {
	Debug             bool
	EthereumRpcConfig EthereumRpcConfig
	SamplerConfig     SamplerConfig
	OutputConfig      OutputConfig
	CacheConfig       CacheConfig
	DatabaseConfig    DatabaseConfig
	DataDogConfig     DataDogConfig
	PrometheusConfig  PrometheusConfig
}

func StringWithDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

var (
	Debug      = "debug"
	ConfigFile = "config"

	EthereumRpcBaseUrl        = "ethereum.rpc-url"
	EthereumRpcTimeoutSeconds = "ethereum.rpc-timeout-seconds"
	EthereumRpcRetries        = "ethereum.rpc-retries"

	SamplerContractAddress = "sampler.contract-address"
	SamplerAbiPath         = "sampler.abi-path"
	SamplerFunction        = "sampler.function"
	SamplerArgs            = "sampler.args"
	SamplerStartBlock      = "sampler.start-block"
	SamplerEndBlock        = "sampler.end-block"
	SamplerInterval        = "sampler.interval"
	SamplerIgnoreReverts   = "sampler.ignore-reverts"
	SamplerConcurrency     = "sampler.concurrency"
	SamplerRateLimit       = "sampler.rate-limit"
	SamplerProbeBytecode   = "sampler.probe-bytecode"
	SamplerProgress        = "sampler.progress"

	OutputFile     = "output.file"
	OutputFormat   = "output.format"
	OutputHeader   = "output.header"
	OutputDecimals = "output.decimals"
	OutputPostgres = "output.postgres"

	CacheEnabled       = "cache.enabled"
	CachePath          = "cache.path"
	CacheConfirmations = "cache.confirmations"

	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db_name"
	DatabaseSchemaName  = "database.schema_name"
	DatabaseSSLMode     = "database.ssl_mode"
	DatabaseSSLCert     = "database.ssl_cert"
	DatabaseSSLKey      = "database.ssl_key"
	DatabaseSSLRootCert = "database.ssl_root_cert"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample_rate"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"
)

func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		EthereumRpcConfig: EthereumRpcConfig{
			BaseUrl:        viper.GetString(normalizeFlagName(EthereumRpcBaseUrl)),
			TimeoutSeconds: viper.GetInt(normalizeFlagName(EthereumRpcTimeoutSeconds)),
			Retries:        viper.GetInt(normalizeFlagName(EthereumRpcRetries)),
		},

		SamplerConfig: SamplerConfig{
			ContractAddress: viper.GetString(normalizeFlagName(SamplerContractAddress)),
			AbiPath:         viper.GetString(normalizeFlagName(SamplerAbiPath)),
			Function:        viper.GetString(normalizeFlagName(SamplerFunction)),
			Args:            viper.GetStringSlice(normalizeFlagName(SamplerArgs)),
			StartBlock:      viper.GetUint64(normalizeFlagName(SamplerStartBlock)),
			EndBlock:        StringWithDefault(viper.GetString(normalizeFlagName(SamplerEndBlock)), "latest"),
			Interval:        viper.GetUint64(normalizeFlagName(SamplerInterval)),
			IgnoreReverts:   viper.GetBool(normalizeFlagName(SamplerIgnoreReverts)),
			Concurrency:     viper.GetInt(normalizeFlagName(SamplerConcurrency)),
			RateLimit:       viper.GetFloat64(normalizeFlagName(SamplerRateLimit)),
			ProbeBytecode:   viper.GetBool(normalizeFlagName(SamplerProbeBytecode)),
			Progress:        viper.GetBool(normalizeFlagName(SamplerProgress)),
		},

		OutputConfig: OutputConfig{
			File:     StringWithDefault(viper.GetString(normalizeFlagName(OutputFile)), "-"),
			Format:   ParseTableFormat(viper.GetString(normalizeFlagName(OutputFormat))),
			Header:   viper.GetBool(normalizeFlagName(OutputHeader)),
			Decimals: viper.GetInt32(normalizeFlagName(OutputDecimals)),
			Postgres: viper.GetBool(normalizeFlagName(OutputPostgres)),
		},

		CacheConfig: CacheConfig{
			Enabled:       viper.GetBool(normalizeFlagName(CacheEnabled)),
			Path:          StringWithDefault(viper.GetString(normalizeFlagName(CachePath)), ".sampler-cache"),
			Confirmations: viper.GetUint64(normalizeFlagName(CacheConfirmations)),
		},

		DatabaseConfig: DatabaseConfig{
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},
	}
}

// RpcTimeoutSeconds returns the configured per-request timeout, falling back to 30s.
func (c *Config) RpcTimeoutSeconds() int {
	if c.EthereumRpcConfig.TimeoutSeconds <= 0 {
		return 30
	}
	return c.EthereumRpcConfig.TimeoutSeconds
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}
