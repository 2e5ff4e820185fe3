// Package sink delivers finished scans to their destinations.
package sink

import (
	"context"
	"io"
	"os"

	"github.com/Layr-Labs/state-sampler/pkg/sampler"
	"github.com/Layr-Labs/state-sampler/pkg/table"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Scan is a finished scan together with what was sampled.
type Scan struct {
	ContractAddress common.Address
	FunctionName    string
	Result          *sampler.ScanResult
}

type Sink interface {
	Write(ctx context.Context, scan *Scan) error
}

const Stdout = "-"

// FileSink writes the scan table to a file, or to stdout when the path is "-".
type FileSink struct {
	path         string
	tableOptions *table.Options
	stdout       io.Writer
	logger       *zap.Logger
}

func NewFileSink(path string, opts *table.Options, l *zap.Logger) *FileSink {
	return &FileSink{
		path:         path,
		tableOptions: opts,
		stdout:       os.Stdout,
		logger:       l,
	}
}

func (fs *FileSink) Write(ctx context.Context, scan *Scan) error {
	if fs.path == Stdout || fs.path == "" {
		return table.Write(fs.stdout, scan.Result.Samples, fs.tableOptions)
	}

	f, err := os.Create(fs.path)
	if err != nil {
		return errors.Wrapf(err, "failed to create output file %s", fs.path)
	}
	if err := table.Write(f, scan.Result.Samples, fs.tableOptions); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write output file %s", fs.path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close output file %s", fs.path)
	}
	fs.logger.Sugar().Infow("Wrote samples",
		zap.String("path", fs.path),
		zap.Int("rows", len(scan.Result.Samples)),
	)
	return nil
}

// WriteAll writes the scan to every sink, stopping at the first failure.
func WriteAll(ctx context.Context, scan *Scan, sinks ...Sink) error {
	for _, s := range sinks {
		if err := s.Write(ctx, scan); err != nil {
			return err
		}
	}
	return nil
}
