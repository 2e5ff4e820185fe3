// Package sampler walks a block range at a fixed stride and records the result of one
// read-only contract call per step.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Layr-Labs/state-sampler/internal/metrics"
	"github.com/Layr-Labs/state-sampler/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/state-sampler/pkg/values"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ContractHandle is a contract bound to a node, able to run read-only calls at a given block.
type ContractHandle interface {
	Call(ctx context.Context, functionName string, args []values.Value, blockNumber uint64) ([]values.Value, error)
	CodeAt(ctx context.Context, blockNumber uint64) ([]byte, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// ProgressFunc is called once per completed step, sampled or skipped.
type ProgressFunc func(done uint64, total uint64)

type ScanRequest struct {
	Contract      ContractHandle
	FunctionName  string
	Arguments     []values.Value
	StartBlock    uint64
	EndBlock      BlockRef
	Interval      uint64
	IgnoreReverts bool

	// ProbeBytecode reads the contract code at the first target block before the walk and
	// fails with ErrNoCode if there is none.
	ProbeBytecode bool
	Progress      ProgressFunc
}

type Sample struct {
	BlockNumber uint64
	Values      []values.Value
}

type ScanResult struct {
	ScanId           string
	ResolvedEndBlock uint64
	Samples          []Sample
	SkippedBlocks    []uint64
}

type SamplerConfig struct {
	// Concurrency above 1 issues calls in parallel. Results are still ordered by block.
	Concurrency int
	// RateLimit caps calls per second, 0 disables the limiter.
	RateLimit float64
}

type Sampler struct {
	logger        *zap.Logger
	metricsSink   *metrics.MetricsSink
	samplerConfig *SamplerConfig
}

func NewSampler(cfg *SamplerConfig, ms *metrics.MetricsSink, l *zap.Logger) *Sampler {
	if cfg == nil {
		cfg = &SamplerConfig{}
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &Sampler{
		logger:        l,
		metricsSink:   ms,
		samplerConfig: cfg,
	}
}

// StepCount returns how many full intervals fit in [start, end). The trailing partial
// interval is not sampled.
func StepCount(start, end, interval uint64) uint64 {
	if interval == 0 || end <= start {
		return 0
	}
	return (end - start) / interval
}

// Schedule lists the target blocks of a scan.
func Schedule(start, end, interval uint64) []uint64 {
	n := StepCount(start, end, interval)
	blocks := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		blocks = append(blocks, start+i*interval)
	}
	return blocks
}

// ResolveEndBlock turns the end of the range into a concrete block number.
func ResolveEndBlock(ctx context.Context, contract ContractHandle, ref BlockRef) (uint64, error) {
	switch {
	case ref.IsNumber():
		return ref.Number(), nil
	case ref.IsLatest():
		n, err := contract.LatestBlockNumber(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, fmt.Errorf("%w: %w", ErrLatestBlockUnavailable, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedRangeSpec, ref.Tag())
	}
}

// Sample runs a scan. On any failure that is not skipped the accumulated samples are
// discarded and only the error is returned.
func (s *Sampler) Sample(ctx context.Context, req *ScanRequest) (*ScanResult, error) {
	if req.Interval == 0 {
		return nil, ErrInvalidInterval
	}
	if req.Contract == nil {
		return nil, errors.New("scan request has no contract")
	}

	resolvedEnd, err := ResolveEndBlock(ctx, req.Contract, req.EndBlock)
	if err != nil {
		s.logger.Sugar().Errorw("Failed to resolve end block",
			zap.String("endBlock", req.EndBlock.String()),
			zap.Error(err),
		)
		return nil, err
	}

	result := &ScanResult{
		ScanId:           uuid.New().String(),
		ResolvedEndBlock: resolvedEnd,
		Samples:          make([]Sample, 0),
		SkippedBlocks:    make([]uint64, 0),
	}
	labels := []metricsTypes.MetricsLabel{{Name: metricsTypes.Label_Function, Value: req.FunctionName}}
	s.recordMetric(metricsTypes.Metric_Gauge_ResolvedEndBlock, s.metricsSink.Gauge(metricsTypes.Metric_Gauge_ResolvedEndBlock, float64(resolvedEnd), labels))

	nSteps := StepCount(req.StartBlock, resolvedEnd, req.Interval)
	s.logger.Sugar().Infow("Starting scan",
		zap.String("scanId", result.ScanId),
		zap.String("function", req.FunctionName),
		zap.Uint64("startBlock", req.StartBlock),
		zap.Uint64("resolvedEndBlock", resolvedEnd),
		zap.Uint64("interval", req.Interval),
		zap.Uint64("steps", nSteps),
		zap.Bool("ignoreReverts", req.IgnoreReverts),
	)
	if nSteps == 0 {
		return result, nil
	}

	if req.ProbeBytecode {
		if err := s.probeBytecode(ctx, req); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	if s.samplerConfig.Concurrency > 1 {
		err = s.sampleConcurrently(ctx, req, nSteps, result)
	} else {
		err = s.sampleSequentially(ctx, req, nSteps, result)
	}
	s.recordMetric(metricsTypes.Metric_Timing_ScanDuration, s.metricsSink.Timing(metricsTypes.Metric_Timing_ScanDuration, time.Since(started), labels))
	if err != nil {
		s.logger.Sugar().Errorw("Scan aborted",
			zap.String("scanId", result.ScanId),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Sugar().Infow("Scan complete",
		zap.String("scanId", result.ScanId),
		zap.Int("samples", len(result.Samples)),
		zap.Int("skipped", len(result.SkippedBlocks)),
		zap.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (s *Sampler) probeBytecode(ctx context.Context, req *ScanRequest) error {
	code, err := req.Contract.CodeAt(ctx, req.StartBlock)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &CallError{Block: req.StartBlock, Kind: classifyCallError(err), Err: err}
	}
	if len(code) == 0 {
		return fmt.Errorf("%w at block %d", ErrNoCode, req.StartBlock)
	}
	return nil
}

// step calls the contract at one block. A nil sample with a nil error means the block was
// skipped.
func (s *Sampler) step(ctx context.Context, req *ScanRequest, block uint64) (*Sample, error) {
	labels := []metricsTypes.MetricsLabel{{Name: metricsTypes.Label_Function, Value: req.FunctionName}}

	started := time.Now()
	s.recordMetric(metricsTypes.Metric_Incr_SamplerCall, s.metricsSink.Incr(metricsTypes.Metric_Incr_SamplerCall, labels, 1))
	res, err := req.Contract.Call(ctx, req.FunctionName, req.Arguments, block)
	s.recordMetric(metricsTypes.Metric_Timing_CallDuration, s.metricsSink.Timing(metricsTypes.Metric_Timing_CallDuration, time.Since(started), labels))

	if err == nil {
		s.recordMetric(metricsTypes.Metric_Incr_SamplerSample, s.metricsSink.Incr(metricsTypes.Metric_Incr_SamplerSample, labels, 1))
		return &Sample{BlockNumber: block, Values: res}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if isRequestError(err) {
		return nil, err
	}

	kind := classifyCallError(err)
	s.recordMetric(metricsTypes.Metric_Incr_SamplerRevert, s.metricsSink.Incr(metricsTypes.Metric_Incr_SamplerRevert, []metricsTypes.MetricsLabel{
		{Name: metricsTypes.Label_Function, Value: req.FunctionName},
		{Name: metricsTypes.Label_Kind, Value: string(kind)},
	}, 1))

	if !req.IgnoreReverts {
		return nil, &CallError{Block: block, Kind: kind, Err: err}
	}
	s.logger.Sugar().Warnw("Skipping block",
		zap.Uint64("blockNumber", block),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return nil, nil
}

func (s *Sampler) sampleSequentially(ctx context.Context, req *ScanRequest, nSteps uint64, result *ScanResult) error {
	limiter := s.limiter()
	for i := uint64(0); i < nSteps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}

		block := req.StartBlock + i*req.Interval
		sample, err := s.step(ctx, req, block)
		if err != nil {
			return err
		}
		if sample != nil {
			result.Samples = append(result.Samples, *sample)
		} else {
			result.SkippedBlocks = append(result.SkippedBlocks, block)
		}
		if req.Progress != nil {
			req.Progress(i+1, nSteps)
		}
	}
	return nil
}

type slot struct {
	sample  *Sample
	skipped bool
	err     error
}

// sampleConcurrently fans the steps out and reassembles them in block order. A failing step
// does not cancel the steps below it, and the error returned is the one of the lowest failing
// block. Steps above it are not started.
func (s *Sampler) sampleConcurrently(ctx context.Context, req *ScanRequest, nSteps uint64, result *ScanResult) error {
	limiter := s.limiter()
	slots := make([]slot, nSteps)
	progress := make(chan struct{}, s.samplerConfig.Concurrency)
	progressDone := make(chan struct{})

	var lowestFailed atomic.Uint64
	lowestFailed.Store(nSteps)

	go func() {
		defer close(progressDone)
		var done uint64
		for range progress {
			done++
			if req.Progress != nil {
				req.Progress(done, nSteps)
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(s.samplerConfig.Concurrency)

	for i := uint64(0); i < nSteps; i++ {
		if ctx.Err() != nil || i > lowestFailed.Load() {
			break
		}
		i := i
		g.Go(func() error {
			if i > lowestFailed.Load() {
				return nil
			}
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}
			block := req.StartBlock + i*req.Interval
			sample, err := s.step(ctx, req, block)
			if err != nil {
				slots[i].err = err
				lowerFailedIndex(&lowestFailed, i)
				return nil
			}
			slots[i] = slot{sample: sample, skipped: sample == nil}
			progress <- struct{}{}
			return nil
		})
	}
	err := g.Wait()
	close(progress)
	<-progressDone

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	if failed := lowestFailed.Load(); failed < nSteps {
		return slots[failed].err
	}

	for i, sl := range slots {
		if sl.skipped {
			result.SkippedBlocks = append(result.SkippedBlocks, req.StartBlock+uint64(i)*req.Interval)
			continue
		}
		result.Samples = append(result.Samples, *sl.sample)
	}
	return nil
}

func lowerFailedIndex(lowest *atomic.Uint64, i uint64) {
	for {
		current := lowest.Load()
		if i >= current || lowest.CompareAndSwap(current, i) {
			return
		}
	}
}

func (s *Sampler) limiter() *rate.Limiter {
	if s.samplerConfig.RateLimit <= 0 {
		return nil
	}
	burst := s.samplerConfig.Concurrency
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.samplerConfig.RateLimit), burst)
}

// recordMetric logs metric failures. They never affect a scan.
func (s *Sampler) recordMetric(name string, err error) {
	if err != nil {
		s.logger.Sugar().Debugw("Failed to record metric",
			zap.String("name", name),
			zap.Error(err),
		)
	}
}
