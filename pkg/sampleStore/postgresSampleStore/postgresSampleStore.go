package postgresSampleStore

import (
	"context"
	"strings"

	"github.com/Layr-Labs/state-sampler/pkg/digest"
	"github.com/Layr-Labs/state-sampler/pkg/postgres/helpers"
	"github.com/Layr-Labs/state-sampler/pkg/sampleStore"
	"github.com/Layr-Labs/state-sampler/pkg/sink"
	"github.com/Layr-Labs/state-sampler/pkg/values"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const insertBatchSize = 500

type PostgresSampleStore struct {
	Db     *gorm.DB
	Logger *zap.Logger
}

func NewPostgresSampleStore(db *gorm.DB, l *zap.Logger) *PostgresSampleStore {
	return &PostgresSampleStore{
		Db:     db,
		Logger: l,
	}
}

// Write stores the scan and one row per output value of every sample in a single transaction.
func (s *PostgresSampleStore) Write(ctx context.Context, scan *sink.Scan) error {
	root, err := digest.Compute(scan.Result.Samples)
	if err != nil {
		return err
	}
	address := strings.ToLower(scan.ContractAddress.Hex())

	skipped := make(pq.Int64Array, 0, len(scan.Result.SkippedBlocks))
	for _, b := range scan.Result.SkippedBlocks {
		skipped = append(skipped, int64(b))
	}

	rows := make([]*sampleStore.HistoricalSample, 0, len(scan.Result.Samples))
	for _, sample := range scan.Result.Samples {
		for i, v := range sample.Values {
			rows = append(rows, &sampleStore.HistoricalSample{
				ScanId:          scan.Result.ScanId,
				ContractAddress: address,
				FunctionName:    scan.FunctionName,
				BlockNumber:     sample.BlockNumber,
				ValueIndex:      i,
				Value:           values.Format(v),
			})
		}
	}

	_, err = helpers.WrapTxAndCommit[interface{}](func(tx *gorm.DB) (interface{}, error) {
		tx = tx.WithContext(ctx)
		res := tx.Create(&sampleStore.SampleScan{
			ScanId:           scan.Result.ScanId,
			ContractAddress:  address,
			FunctionName:     scan.FunctionName,
			ResolvedEndBlock: scan.Result.ResolvedEndBlock,
			SampleCount:      len(scan.Result.Samples),
			SkippedBlocks:    skipped,
			Digest:           root.Hex(),
		})
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "failed to insert scan")
		}
		if len(rows) == 0 {
			return nil, nil
		}
		if res = tx.CreateInBatches(rows, insertBatchSize); res.Error != nil {
			return nil, errors.Wrap(res.Error, "failed to insert samples")
		}
		return nil, nil
	}, s.Db, nil)
	if err != nil {
		s.Logger.Sugar().Errorw("Failed to store scan",
			zap.String("scanId", scan.Result.ScanId),
			zap.Error(err),
		)
		return err
	}

	s.Logger.Sugar().Infow("Stored scan",
		zap.String("scanId", scan.Result.ScanId),
		zap.Int("rows", len(rows)),
		zap.String("digest", root.Hex()),
	)
	return nil
}

func (s *PostgresSampleStore) GetScan(scanId string) (*sampleStore.SampleScan, error) {
	var scan *sampleStore.SampleScan
	result := s.Db.First(&scan, "scan_id = ?", scanId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			s.Logger.Sugar().Debugf("Scan not found in store '%s'", scanId)
			return nil, nil
		}
		return nil, result.Error
	}
	return scan, nil
}

func (s *PostgresSampleStore) GetSamplesForScan(scanId string) ([]*sampleStore.HistoricalSample, error) {
	samples := make([]*sampleStore.HistoricalSample, 0)
	result := s.Db.
		Where("scan_id = ?", scanId).
		Order("block_number asc, value_index asc").
		Find(&samples)
	if result.Error != nil {
		return nil, result.Error
	}
	return samples, nil
}
