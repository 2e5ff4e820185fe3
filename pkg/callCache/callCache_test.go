package callCache

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingCaller struct {
	calls int
	codes int
	err   error
}

func (c *countingCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if blockNumber == nil {
		return []byte{0xff}, nil
	}
	return append([]byte{}, append(msg.Data, byte(blockNumber.Uint64()))...), nil
}

func (c *countingCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	c.codes++
	return []byte{0x60, 0x80}, nil
}

func setup(t *testing.T, namespace string, inner *countingCaller) *CachingCaller {
	cache, err := Open(t.TempDir(), namespace, inner, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func Test_CachingCaller(t *testing.T) {
	to := common.HexToAddress("0xf5911dc17ee45f46fe538ec972f4a500c78d8521")
	ctx := context.Background()

	t.Run("Pinned calls are served from the cache on repeat", func(t *testing.T) {
		inner := &countingCaller{}
		cache := setup(t, "1", inner)
		msg := ethereum.CallMsg{To: &to, Data: []byte{0x01, 0x02}}

		first, err := cache.CallContract(ctx, msg, big.NewInt(7))
		require.NoError(t, err)
		second, err := cache.CallContract(ctx, msg, big.NewInt(7))
		require.NoError(t, err)

		assert.Equal(t, []byte{0x01, 0x02, 0x07}, first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.calls)

		hits, misses := cache.Stats()
		assert.Equal(t, uint64(1), hits)
		assert.Equal(t, uint64(1), misses)
	})
	t.Run("Different blocks and calldata are different entries", func(t *testing.T) {
		inner := &countingCaller{}
		cache := setup(t, "1", inner)

		_, _ = cache.CallContract(ctx, ethereum.CallMsg{To: &to, Data: []byte{0x01}}, big.NewInt(1))
		_, _ = cache.CallContract(ctx, ethereum.CallMsg{To: &to, Data: []byte{0x01}}, big.NewInt(2))
		_, _ = cache.CallContract(ctx, ethereum.CallMsg{To: &to, Data: []byte{0x02}}, big.NewInt(1))
		assert.Equal(t, 3, inner.calls)
	})
	t.Run("Calls against the head are never cached", func(t *testing.T) {
		inner := &countingCaller{}
		cache := setup(t, "1", inner)
		msg := ethereum.CallMsg{To: &to, Data: []byte{0x01}}

		_, _ = cache.CallContract(ctx, msg, nil)
		_, _ = cache.CallContract(ctx, msg, nil)
		assert.Equal(t, 2, inner.calls)
	})
	t.Run("Errors are never cached", func(t *testing.T) {
		inner := &countingCaller{err: errors.New("execution reverted")}
		cache := setup(t, "1", inner)
		msg := ethereum.CallMsg{To: &to, Data: []byte{0x01}}

		_, err := cache.CallContract(ctx, msg, big.NewInt(1))
		assert.Error(t, err)
		inner.err = nil
		out, err := cache.CallContract(ctx, msg, big.NewInt(1))
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x01}, out)
		assert.Equal(t, 2, inner.calls)
	})
	t.Run("CodeAt is cached per block", func(t *testing.T) {
		inner := &countingCaller{}
		cache := setup(t, "1", inner)

		_, _ = cache.CodeAt(ctx, to, big.NewInt(1))
		code, err := cache.CodeAt(ctx, to, big.NewInt(1))
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x80}, code)
		assert.Equal(t, 1, inner.codes)
	})
	t.Run("Entries persist across reopen and are separated by namespace", func(t *testing.T) {
		dir := t.TempDir()
		msg := ethereum.CallMsg{To: &to, Data: []byte{0x01}}

		inner := &countingCaller{}
		cache, err := Open(dir, "1", inner, zap.NewNop())
		require.NoError(t, err)
		_, _ = cache.CallContract(ctx, msg, big.NewInt(1))
		require.NoError(t, cache.Close())

		cache, err = Open(dir, "1", inner, zap.NewNop())
		require.NoError(t, err)
		_, _ = cache.CallContract(ctx, msg, big.NewInt(1))
		require.NoError(t, cache.Close())
		assert.Equal(t, 1, inner.calls)

		cache, err = Open(dir, "17000", inner, zap.NewNop())
		require.NoError(t, err)
		_, _ = cache.CallContract(ctx, msg, big.NewInt(1))
		require.NoError(t, cache.Close())
		assert.Equal(t, 2, inner.calls)
	})
	t.Run("Blocks within the confirmation depth are not cached", func(t *testing.T) {
		inner := &countingCaller{}
		cache := setup(t, "1", inner)
		require.NoError(t, cache.LimitToConfirmed(ctx, fakeHead(1000), 64))
		msg := ethereum.CallMsg{To: &to, Data: []byte{0x01}}

		for i := 0; i < 2; i++ {
			_, err := cache.CallContract(ctx, msg, big.NewInt(936))
			require.NoError(t, err)
			_, err = cache.CallContract(ctx, msg, big.NewInt(937))
			require.NoError(t, err)
			_, err = cache.CodeAt(ctx, to, big.NewInt(990))
			require.NoError(t, err)
		}
		assert.Equal(t, 3, inner.calls)
		assert.Equal(t, 2, inner.codes)
	})
	t.Run("A head below the confirmation depth disables caching", func(t *testing.T) {
		inner := &countingCaller{}
		cache := setup(t, "1", inner)
		require.NoError(t, cache.LimitToConfirmed(ctx, fakeHead(10), 64))
		msg := ethereum.CallMsg{To: &to, Data: []byte{0x01}}

		for i := 0; i < 2; i++ {
			_, err := cache.CallContract(ctx, msg, big.NewInt(0))
			require.NoError(t, err)
		}
		assert.Equal(t, 2, inner.calls)
	})
	t.Run("A failing head read is returned", func(t *testing.T) {
		cache := setup(t, "1", &countingCaller{})
		assert.Error(t, cache.LimitToConfirmed(ctx, errHead{}, 64))
	})
}

type fakeHead uint64

func (h fakeHead) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return uint64(h), nil
}

type errHead struct{}

func (errHead) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return 0, errors.New("dial tcp: connection refused")
}
