package table

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/Layr-Labs/state-sampler/pkg/sampler"
	"github.com/Layr-Labs/state-sampler/pkg/values"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fixedNode answers every call with a fixed value per block.
type fixedNode struct {
	answers map[uint64]int64
}

func (f *fixedNode) Call(ctx context.Context, functionName string, args []values.Value, blockNumber uint64) ([]values.Value, error) {
	return []values.Value{values.NewUint(big.NewInt(f.answers[blockNumber]))}, nil
}

func (f *fixedNode) CodeAt(ctx context.Context, blockNumber uint64) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fixedNode) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return 300, nil
}

func uintArgument(t *testing.T, name string) abi.Argument {
	typ, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	return abi.Argument{Name: name, Type: typ}
}

func Test_Serialize(t *testing.T) {
	t.Run("Serializes a scan of a fixed node exactly", func(t *testing.T) {
		s := sampler.NewSampler(nil, nil, zap.NewNop())
		res, err := s.Sample(context.Background(), &sampler.ScanRequest{
			Contract:     &fixedNode{answers: map[uint64]int64{100: 42, 200: 43}},
			FunctionName: "totalAssets",
			StartBlock:   100,
			EndBlock:     sampler.Latest(),
			Interval:     100,
		})
		require.NoError(t, err)
		assert.Equal(t, "100,42\n200,43\n", Serialize(res.Samples))
	})
	t.Run("An empty scan serializes to nothing", func(t *testing.T) {
		assert.Equal(t, "", Serialize(nil))
		assert.Equal(t, "", Serialize([]sampler.Sample{}))
	})
	t.Run("Every value type is written in order", func(t *testing.T) {
		addr := common.HexToAddress("0x858646372cc42e1a627fce94aa7a7033e7cf075a")
		samples := []sampler.Sample{{
			BlockNumber: 7,
			Values: []values.Value{
				values.NewBool(true),
				values.NewInt64(-3),
				values.NewAddress(addr),
				values.NewString("paused"),
			},
		}}
		assert.Equal(t, "7,true,-3,"+addr.Hex()+",paused\n", Serialize(samples))
	})
	t.Run("Composite values are quoted to keep the table rectangular", func(t *testing.T) {
		samples := []sampler.Sample{{
			BlockNumber: 100,
			Values: []values.Value{
				values.NewArray(values.NewUint64(1), values.NewUint64(2)),
				values.NewUint64(9),
			},
		}}
		assert.Equal(t, "100,\"1,2\",9\n", Serialize(samples))
	})
}

func Test_Write(t *testing.T) {
	samples := []sampler.Sample{
		{BlockNumber: 100, Values: []values.Value{values.NewUint64(1500000), values.NewUint64(7)}},
		{BlockNumber: 200, Values: []values.Value{values.NewUint64(2000000), values.NewUint64(8)}},
	}

	t.Run("Header uses output names", func(t *testing.T) {
		var buf bytes.Buffer
		err := Write(&buf, samples, &Options{
			Header:  true,
			Outputs: abi.Arguments{uintArgument(t, "assets"), uintArgument(t, "shares")},
		})
		require.NoError(t, err)
		assert.Equal(t, "block,assets,shares\n100,1500000,7\n200,2000000,8\n", buf.String())
	})
	t.Run("Decimals scale integer values", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, samples[:1], &Options{Decimals: 6}))
		assert.Equal(t, "100,1.5,0.000007\n", buf.String())
	})
	t.Run("Long layout writes one row per output", func(t *testing.T) {
		var buf bytes.Buffer
		err := Write(&buf, samples, &Options{
			Layout:  Layout_Long,
			Header:  true,
			Outputs: abi.Arguments{uintArgument(t, "assets"), uintArgument(t, "shares")},
		})
		require.NoError(t, err)
		assert.Equal(t, "block,index,name,value\n"+
			"100,0,assets,1500000\n"+
			"100,1,shares,7\n"+
			"200,0,assets,2000000\n"+
			"200,1,shares,8\n", buf.String())
	})
	t.Run("Long layout without header or names", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, samples[:1], &Options{Layout: Layout_Long}))
		assert.Equal(t, "100,0,output_0,1500000\n100,1,output_1,7\n", buf.String())
	})
}

func Test_OutputNames(t *testing.T) {
	names := OutputNames(abi.Arguments{
		uintArgument(t, "amount"),
		uintArgument(t, "amount"),
		uintArgument(t, ""),
		uintArgument(t, "amount_1"),
	})
	assert.Equal(t, []string{"amount", "amount_1", "output_2", "amount_1_1"}, names)
	assert.Empty(t, OutputNames(nil))
}
