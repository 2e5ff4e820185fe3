package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func Test_Config(t *testing.T) {
	t.Run("KebabToSnakeCase", func(t *testing.T) {
		assert.Equal(t, "sampler.contract_address", KebabToSnakeCase(SamplerContractAddress))
		assert.Equal(t, "ethereum.rpc_url", KebabToSnakeCase(EthereumRpcBaseUrl))
	})
	t.Run("Defaults when nothing is set", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)

		cfg := NewConfig()
		assert.Equal(t, "latest", cfg.SamplerConfig.EndBlock)
		assert.Equal(t, "-", cfg.OutputConfig.File)
		assert.Equal(t, TableFormat_Wide, cfg.OutputConfig.Format)
		assert.Equal(t, ".sampler-cache", cfg.CacheConfig.Path)
		assert.Equal(t, 30, cfg.RpcTimeoutSeconds())
	})
	t.Run("Reads values from the environment", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		viper.SetEnvPrefix(ENV_PREFIX)
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
		for _, key := range []string{SamplerInterval, SamplerEndBlock, SamplerIgnoreReverts, OutputFormat, EthereumRpcBaseUrl, CacheConfirmations} {
			_ = viper.BindEnv(KebabToSnakeCase(key))
		}

		t.Setenv("SAMPLER_SAMPLER_INTERVAL", "100")
		t.Setenv("SAMPLER_SAMPLER_END_BLOCK", "28000000")
		t.Setenv("SAMPLER_SAMPLER_IGNORE_REVERTS", "true")
		t.Setenv("SAMPLER_OUTPUT_FORMAT", "long")
		t.Setenv("SAMPLER_ETHEREUM_RPC_URL", "http://localhost:8545")
		t.Setenv("SAMPLER_CACHE_CONFIRMATIONS", "128")

		cfg := NewConfig()
		assert.Equal(t, uint64(100), cfg.SamplerConfig.Interval)
		assert.Equal(t, "28000000", cfg.SamplerConfig.EndBlock)
		assert.True(t, cfg.SamplerConfig.IgnoreReverts)
		assert.Equal(t, TableFormat_Long, cfg.OutputConfig.Format)
		assert.Equal(t, "http://localhost:8545", cfg.EthereumRpcConfig.BaseUrl)
		assert.Equal(t, uint64(128), cfg.CacheConfig.Confirmations)
	})
}
