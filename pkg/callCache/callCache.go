// Package callCache memoizes read-only contract calls pinned to historical blocks in LevelDB.
// State at a confirmed block never changes. Blocks near the head can still be reorged and
// are kept out of the cache once LimitToConfirmed is set.
package callCache

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"
)

var (
	prefixCall = []byte("C:") // C:<keccak(namespace, to, data, block)> -> return data
	prefixCode = []byte("K:") // K:<keccak(namespace, address, block)> -> bytecode
)

// CachingCaller wraps a bind.ContractCaller. Calls without a block number target the moving
// head and always go to the node, as do unconfirmed blocks. Errors are never stored.
type CachingCaller struct {
	db        *leveldb.DB
	caller    bind.ContractCaller
	namespace []byte
	logger    *zap.Logger

	// confirmed is the highest cacheable block, nil when every pinned block is cacheable.
	confirmed atomic.Pointer[big.Int]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// HeadReader reports the node's current chain head.
type HeadReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Open opens (or creates) the cache at path. namespace separates entries of different
// chains sharing one cache directory.
func Open(path string, namespace string, caller bind.ContractCaller, l *zap.Logger) (*CachingCaller, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open call cache at %s", path)
	}
	return &CachingCaller{
		db:        db,
		caller:    caller,
		namespace: []byte(namespace),
		logger:    l,
	}, nil
}

func (c *CachingCaller) Close() error {
	c.logger.Sugar().Debugw("Closing call cache",
		zap.Uint64("hits", c.hits.Load()),
		zap.Uint64("misses", c.misses.Load()),
	)
	return c.db.Close()
}

// Stats returns the number of cache hits and misses since Open.
func (c *CachingCaller) Stats() (hits uint64, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// LimitToConfirmed reads the head once and stops caching blocks less than confirmations
// below it. Those calls still go to the node every time.
func (c *CachingCaller) LimitToConfirmed(ctx context.Context, head HeadReader, confirmations uint64) error {
	n, err := head.LatestBlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read head for call cache")
	}
	confirmed := big.NewInt(-1)
	if n >= confirmations {
		confirmed = new(big.Int).SetUint64(n - confirmations)
	}
	c.confirmed.Store(confirmed)
	c.logger.Sugar().Debugw("Call cache limited to confirmed blocks",
		zap.Uint64("head", n),
		zap.Uint64("confirmations", confirmations),
		zap.String("confirmedBlock", confirmed.String()),
	)
	return nil
}

func (c *CachingCaller) cacheable(blockNumber *big.Int) bool {
	if blockNumber == nil {
		return false
	}
	confirmed := c.confirmed.Load()
	return confirmed == nil || blockNumber.Cmp(confirmed) <= 0
}

func (c *CachingCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if !c.cacheable(blockNumber) || msg.To == nil {
		return c.caller.CallContract(ctx, msg, blockNumber)
	}
	key := c.key(prefixCall, msg.To.Bytes(), msg.From.Bytes(), msg.Data, blockNumber)
	return c.memoize(key, func() ([]byte, error) {
		return c.caller.CallContract(ctx, msg, blockNumber)
	})
}

func (c *CachingCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	if !c.cacheable(blockNumber) {
		return c.caller.CodeAt(ctx, contract, blockNumber)
	}
	key := c.key(prefixCode, contract.Bytes(), blockNumber)
	return c.memoize(key, func() ([]byte, error) {
		return c.caller.CodeAt(ctx, contract, blockNumber)
	})
}

func (c *CachingCaller) memoize(key []byte, fetch func() ([]byte, error)) ([]byte, error) {
	data, err := c.db.Get(key, nil)
	if err == nil {
		c.hits.Add(1)
		return data, nil
	}
	if !errors.Is(err, leveldb.ErrNotFound) {
		c.logger.Sugar().Warnw("Failed to read call cache", zap.Error(err))
	}
	c.misses.Add(1)

	data, err = fetch()
	if err != nil {
		return nil, err
	}
	if err := c.db.Put(key, data, nil); err != nil {
		c.logger.Sugar().Warnw("Failed to write call cache", zap.Error(err))
	}
	return data, nil
}

func (c *CachingCaller) key(prefix []byte, parts ...interface{}) []byte {
	chunks := [][]byte{c.namespace}
	for _, p := range parts {
		switch v := p.(type) {
		case []byte:
			chunks = append(chunks, lengthPrefixed(v))
		case *big.Int:
			chunks = append(chunks, lengthPrefixed(v.Bytes()))
		}
	}
	hash := crypto.Keccak256(chunks...)
	return append(append([]byte{}, prefix...), hash...)
}

func lengthPrefixed(b []byte) []byte {
	out := make([]byte, 4, 4+len(b))
	binary.BigEndian.PutUint32(out, uint32(len(b)))
	return append(out, b...)
}
