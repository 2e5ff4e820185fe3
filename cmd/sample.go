package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Layr-Labs/state-sampler/internal/config"
	"github.com/Layr-Labs/state-sampler/internal/logger"
	"github.com/Layr-Labs/state-sampler/internal/metrics"
	"github.com/Layr-Labs/state-sampler/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/state-sampler/internal/metrics/prometheus"
	"github.com/Layr-Labs/state-sampler/internal/shutdown"
	"github.com/Layr-Labs/state-sampler/pkg/callCache"
	"github.com/Layr-Labs/state-sampler/pkg/clients/ethereum"
	"github.com/Layr-Labs/state-sampler/pkg/contractAbi"
	"github.com/Layr-Labs/state-sampler/pkg/contractBinding"
	"github.com/Layr-Labs/state-sampler/pkg/digest"
	"github.com/Layr-Labs/state-sampler/pkg/postgres"
	"github.com/Layr-Labs/state-sampler/pkg/postgres/migrations"
	"github.com/Layr-Labs/state-sampler/pkg/sampleStore/postgresSampleStore"
	"github.com/Layr-Labs/state-sampler/pkg/sampler"
	"github.com/Layr-Labs/state-sampler/pkg/sink"
	"github.com/Layr-Labs/state-sampler/pkg/table"
	"github.com/Layr-Labs/state-sampler/pkg/values"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Call a view function at every interval of a block range and write the results as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer l.Sync() //nolint:errcheck

		ctx, stop := shutdown.ContextWithShutdown(context.Background(), l)
		defer stop()

		return runSample(ctx, cfg, l)
	},
}

func init() {
	sampleCmd.Flags().String(config.SamplerContractAddress, "", `Address of the contract to sample`)
	sampleCmd.Flags().String(config.SamplerAbiPath, "", `Path to a compiler artifact containing the contract abi`)
	sampleCmd.Flags().String(config.SamplerFunction, "", `Name of the view function to call`)
	sampleCmd.Flags().StringArray(config.SamplerArgs, nil, `Function argument, repeat once per input. Arrays and tuples are JSON`)
	sampleCmd.Flags().Uint64(config.SamplerStartBlock, 0, `First block of the range`)
	sampleCmd.Flags().String(config.SamplerEndBlock, "latest", `Exclusive end of the range, a block number or "latest"`)
	sampleCmd.Flags().Uint64(config.SamplerInterval, 0, `Blocks between two samples`)
	sampleCmd.Flags().Bool(config.SamplerIgnoreReverts, false, `Skip blocks where the call fails instead of aborting`)
	sampleCmd.Flags().Int(config.SamplerConcurrency, 1, `Number of calls in flight`)
	sampleCmd.Flags().Float64(config.SamplerRateLimit, 0, `Maximum calls per second, 0 for no limit`)
	sampleCmd.Flags().Bool(config.SamplerProbeBytecode, false, `Check the contract has code at the start block before sampling`)
	sampleCmd.Flags().Bool(config.SamplerProgress, false, `Show a progress bar on stderr`)

	sampleCmd.Flags().String(config.OutputFile, sink.Stdout, `Output file, "-" for stdout`)
	sampleCmd.Flags().String(config.OutputFormat, string(config.TableFormat_Wide), `"wide" or "long"`)
	sampleCmd.Flags().Bool(config.OutputHeader, false, `Write a header row`)
	sampleCmd.Flags().Int32(config.OutputDecimals, 0, `Render integers as fixed point with this many decimals`)
	sampleCmd.Flags().Bool(config.OutputPostgres, false, `Also store the scan in PostgreSQL`)

	sampleCmd.Flags().Bool(config.CacheEnabled, false, `Cache call results on disk`)
	sampleCmd.Flags().String(config.CachePath, ".sampler-cache", `Directory of the call cache`)
	sampleCmd.Flags().Uint64(config.CacheConfirmations, 64, `Blocks this close to the head are not cached since they can still be reorged`)
}

func ethereumClientConfig(cfg *config.Config) *ethereum.EthereumClientConfig {
	return &ethereum.EthereumClientConfig{
		BaseUrl:       cfg.EthereumRpcConfig.BaseUrl,
		Timeout:       time.Duration(cfg.RpcTimeoutSeconds()) * time.Second,
		RetryBackoffs: ethereum.RetryBackoffsForAttempts(cfg.EthereumRpcConfig.Retries),
	}
}

func runSample(ctx context.Context, cfg *config.Config, l *zap.Logger) error {
	sc := cfg.SamplerConfig
	if !common.IsHexAddress(sc.ContractAddress) {
		return fmt.Errorf("invalid contract address '%s'", sc.ContractAddress)
	}
	if sc.AbiPath == "" || sc.Function == "" {
		return errors.New("an abi path and a function name are required")
	}
	address := common.HexToAddress(sc.ContractAddress)

	contractAbiDef, err := contractAbi.LoadArtifact(sc.AbiPath)
	if err != nil {
		return err
	}
	method, ok := contractAbiDef.Methods[sc.Function]
	if !ok {
		return errors.Wrapf(contractBinding.ErrUnknownFunction, "%s", sc.Function)
	}
	args, err := values.ParseArguments(method.Inputs, sc.Args)
	if err != nil {
		return err
	}
	endBlock, err := sampler.ParseBlockRef(sc.EndBlock)
	if err != nil {
		return err
	}

	metricsClients, pm, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		l.Sugar().Errorw("Failed to setup metrics sink", zap.Error(err))
		return err
	}
	ms, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{
		DefaultLabels: []metricsTypes.MetricsLabel{{Name: metricsTypes.Label_Contract, Value: strings.ToLower(address.Hex())}},
	}, metricsClients)
	if err != nil {
		return err
	}
	defer ms.Flush()
	if pm != nil {
		prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
			Port: cfg.PrometheusConfig.Port,
		}, pm.Registry, l).Start(ctx)
	}

	backend, err := ethereum.NewBackend(ctx, ethereumClientConfig(cfg), l)
	if err != nil {
		return err
	}

	var caller bind.ContractCaller = backend
	if cfg.CacheConfig.Enabled {
		cache, err := callCache.Open(cfg.CacheConfig.Path, cacheNamespace(ctx, backend, cfg), backend, l)
		if err != nil {
			return err
		}
		defer func() {
			hits, misses := cache.Stats()
			l.Sugar().Infow("Call cache stats", zap.Uint64("hits", hits), zap.Uint64("misses", misses))
			_ = cache.Close()
		}()
		if err := cache.LimitToConfirmed(ctx, backend, cfg.CacheConfig.Confirmations); err != nil {
			return err
		}
		caller = cache
	}

	contract := contractBinding.NewContract(address, contractAbiDef, caller, backend, l)

	req := &sampler.ScanRequest{
		Contract:      contract,
		FunctionName:  sc.Function,
		Arguments:     args,
		StartBlock:    sc.StartBlock,
		EndBlock:      endBlock,
		Interval:      sc.Interval,
		IgnoreReverts: sc.IgnoreReverts,
		ProbeBytecode: sc.ProbeBytecode,
	}
	if sc.Progress {
		req.Progress = newProgressBar(sc.Function)
	}

	s := sampler.NewSampler(&sampler.SamplerConfig{
		Concurrency: sc.Concurrency,
		RateLimit:   sc.RateLimit,
	}, ms, l)

	result, err := s.Sample(ctx, req)
	if err != nil {
		var callErr *sampler.CallError
		if errors.As(err, &callErr) {
			l.Sugar().Errorw("Sampling failed",
				zap.Uint64("blockNumber", callErr.Block),
				zap.String("kind", string(callErr.Kind)),
				zap.Error(callErr.Err),
			)
		}
		return err
	}

	sinks := []sink.Sink{
		sink.NewFileSink(cfg.OutputConfig.File, &table.Options{
			Layout:   table.Layout(cfg.OutputConfig.Format),
			Header:   cfg.OutputConfig.Header,
			Outputs:  method.Outputs,
			Decimals: cfg.OutputConfig.Decimals,
		}, l),
	}
	if cfg.OutputConfig.Postgres {
		store, closeDb, err := openSampleStore(cfg, l)
		if err != nil {
			return err
		}
		defer closeDb()
		sinks = append(sinks, store)
	}

	scan := &sink.Scan{ContractAddress: address, FunctionName: sc.Function, Result: result}
	if err := sink.WriteAll(ctx, scan, sinks...); err != nil {
		l.Sugar().Errorw("Failed to write scan", zap.Error(err))
		return err
	}

	root, err := digest.Compute(result.Samples)
	if err != nil {
		return err
	}
	l.Sugar().Infow("Scan written",
		zap.String("scanId", result.ScanId),
		zap.Uint64("resolvedEndBlock", result.ResolvedEndBlock),
		zap.Int("samples", len(result.Samples)),
		zap.Int("skipped", len(result.SkippedBlocks)),
		zap.String("digest", root.Hex()),
	)
	return nil
}

// cacheNamespace keys cached calls by chain so that one cache directory can serve several
// networks. Backends that cannot report a chain id fall back to the rpc url.
func cacheNamespace(ctx context.Context, backend ethereum.Backend, cfg *config.Config) string {
	if c, ok := backend.(*ethereum.Client); ok {
		if chainId, err := c.GetChainId(ctx); err == nil {
			return fmt.Sprintf("chain:%d", chainId)
		}
	}
	return cfg.EthereumRpcConfig.BaseUrl
}

func openSampleStore(cfg *config.Config, l *zap.Logger) (*postgresSampleStore.PostgresSampleStore, func(), error) {
	pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
	pgConfig.CreateDbIfNotExists = true

	pg, err := postgres.NewPostgres(pgConfig)
	if err != nil {
		l.Sugar().Errorw("Failed to setup postgres connection", zap.Error(err))
		return nil, nil, err
	}
	grm, err := postgres.NewGormFromPostgresConnection(pg.Db)
	if err != nil {
		_ = pg.Db.Close()
		return nil, nil, err
	}
	if err := migrations.NewMigrator(pg.Db, grm, l).MigrateAll(); err != nil {
		l.Sugar().Errorw("Failed to migrate", zap.Error(err))
		_ = pg.Db.Close()
		return nil, nil, err
	}
	return postgresSampleStore.NewPostgresSampleStore(grm, l), func() { _ = pg.Db.Close() }, nil
}

func newProgressBar(description string) sampler.ProgressFunc {
	var bar *progressbar.ProgressBar
	return func(done uint64, total uint64) {
		if bar == nil {
			bar = progressbar.NewOptions64(int64(total),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
			)
		}
		_ = bar.Set64(int64(done))
	}
}
