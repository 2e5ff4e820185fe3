package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/Layr-Labs/state-sampler/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "sampler",
	Short: "Sample a contract's on-chain state over a historical range of blocks",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig()
	cobra.OnInitialize(readConfigFile)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().String(config.ConfigFile, "", `Path to a config file (yaml, json or toml)`)

	rootCmd.PersistentFlags().String(config.EthereumRpcBaseUrl, "", `e.g. "http://<hostname>:8545", ws(s):// and ipc paths are dialed with ethclient`)
	rootCmd.PersistentFlags().Int(config.EthereumRpcTimeoutSeconds, 30, `Timeout for a single RPC request`)
	rootCmd.PersistentFlags().Int(config.EthereumRpcRetries, 0, `Retries for failed RPC transport requests, reverts are never retried`)

	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "sampler", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "sampler", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL SSL mode (disable, require, verify-ca, verify-full)`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLCert, "", `PostgreSQL SSL client certificate`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLKey, "", `PostgreSQL SSL client key`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLRootCert, "", `PostgreSQL SSL root certificate`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64(config.DataDogStatsdSampleRate, 1.0, `The sample rate to use for statsd metrics`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	// setup sub commands
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(headCmd)
	rootCmd.AddCommand(runVersionCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig() {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

func readConfigFile() {
	path := viper.GetString(config.ConfigFile)
	if path == "" {
		return
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config file '%s' - %+v\n", path, err)
		os.Exit(1)
	}
}

// bindCommandFlags binds the flags local to a sub command, following the same key scheme
// as the persistent flags.
func bindCommandFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		if err := viper.BindPFlag(key, f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(key); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
