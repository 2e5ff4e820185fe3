package postgresSampleStore

import (
	"context"
	"testing"

	"github.com/Layr-Labs/state-sampler/internal/logger"
	"github.com/Layr-Labs/state-sampler/internal/tests"
	"github.com/Layr-Labs/state-sampler/pkg/postgres"
	"github.com/Layr-Labs/state-sampler/pkg/sampler"
	"github.com/Layr-Labs/state-sampler/pkg/sink"
	"github.com/Layr-Labs/state-sampler/pkg/values"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PostgresSampleStore(t *testing.T) {
	dbCfg := tests.GetDbConfigFromEnv()
	if dbCfg == nil {
		t.Skip("SAMPLER_DATABASE_HOST not set")
	}
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	dbName, _, grm, err := postgres.GetTestPostgresDatabase(*dbCfg, l)
	require.NoError(t, err)
	t.Cleanup(func() {
		postgres.TeardownTestDatabase(dbName, *dbCfg, grm, l)
	})

	store := NewPostgresSampleStore(grm, l)

	t.Run("Stores a scan and its samples", func(t *testing.T) {
		scan := &sink.Scan{
			ContractAddress: common.HexToAddress("0xF5911DC17EE45F46FE538EC972F4A500C78D8521"),
			FunctionName:    "getReserves",
			Result: &sampler.ScanResult{
				ScanId:           uuid.New().String(),
				ResolvedEndBlock: 600,
				Samples: []sampler.Sample{
					{BlockNumber: 100, Values: []values.Value{values.NewUint64(42), values.NewBool(true)}},
					{BlockNumber: 200, Values: []values.Value{values.NewUint64(43), values.NewBool(false)}},
				},
				SkippedBlocks: []uint64{300},
			},
		}
		require.NoError(t, store.Write(context.Background(), scan))

		stored, err := store.GetScan(scan.Result.ScanId)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "0xf5911dc17ee45f46fe538ec972f4a500c78d8521", stored.ContractAddress)
		assert.Equal(t, 2, stored.SampleCount)
		assert.Equal(t, []int64{300}, []int64(stored.SkippedBlocks))
		assert.Len(t, stored.Digest, 66)

		samples, err := store.GetSamplesForScan(scan.Result.ScanId)
		require.NoError(t, err)
		require.Len(t, samples, 4)
		assert.Equal(t, uint64(100), samples[0].BlockNumber)
		assert.Equal(t, "42", samples[0].Value)
		assert.Equal(t, 1, samples[1].ValueIndex)
		assert.Equal(t, "true", samples[1].Value)
		assert.Equal(t, "false", samples[3].Value)
	})
	t.Run("An unknown scan is nil", func(t *testing.T) {
		scan, err := store.GetScan(uuid.New().String())
		require.NoError(t, err)
		assert.Nil(t, scan)
	})
	t.Run("A scan id can only be stored once", func(t *testing.T) {
		scan := &sink.Scan{
			FunctionName: "totalSupply",
			Result:       &sampler.ScanResult{ScanId: uuid.New().String()},
		}
		require.NoError(t, store.Write(context.Background(), scan))
		err := store.Write(context.Background(), scan)
		require.Error(t, err)
		assert.True(t, postgres.IsDuplicateKeyError(err))
	})
}
