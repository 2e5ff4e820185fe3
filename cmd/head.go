package cmd

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/state-sampler/internal/config"
	"github.com/Layr-Labs/state-sampler/internal/logger"
	"github.com/Layr-Labs/state-sampler/internal/shutdown"
	"github.com/Layr-Labs/state-sampler/pkg/clients/ethereum"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var headCmd = &cobra.Command{
	Use:   "head",
	Short: "Print the node's latest block number",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindCommandFlags(cmd)
		cfg := config.NewConfig()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug, Console: true})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer l.Sync() //nolint:errcheck

		ctx, stop := shutdown.ContextWithShutdown(context.Background(), l)
		defer stop()

		backend, err := ethereum.NewBackend(ctx, ethereumClientConfig(cfg), l)
		if err != nil {
			return err
		}
		n, err := backend.LatestBlockNumber(ctx)
		if err != nil {
			l.Sugar().Errorw("Failed to get latest block", zap.Error(err))
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}
