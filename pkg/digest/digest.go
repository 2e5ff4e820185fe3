// Package digest computes a keccak256 merkle root over the rows of a scan so two runs can be
// compared without diffing their output.
package digest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Layr-Labs/state-sampler/pkg/sampler"
	"github.com/Layr-Labs/state-sampler/pkg/table"
	"github.com/ethereum/go-ethereum/common"
	"github.com/wealdtech/go-merkletree/v2"
	"github.com/wealdtech/go-merkletree/v2/keccak256"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var ErrSamplesNotOrdered = errors.New("samples not in ascending block order")

var leafPrefix_Sample = []byte("sample:")

// Compute returns the merkle root of the samples. An empty scan has the zero root.
func Compute(samples []sampler.Sample) (common.Hash, error) {
	if len(samples) == 0 {
		return common.Hash{}, nil
	}
	tree, err := merkleize(samples)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(tree.Root()), nil
}

func merkleize(samples []sampler.Sample) (*merkletree.MerkleTree, error) {
	om := orderedmap.New[uint64, []string]()
	for _, sample := range samples {
		if _, exists := om.Get(sample.BlockNumber); exists {
			return nil, fmt.Errorf("%w: duplicate block %d", ErrSamplesNotOrdered, sample.BlockNumber)
		}
		om.Set(sample.BlockNumber, table.Row(sample, 0)[1:])

		prev := om.GetPair(sample.BlockNumber).Prev()
		if prev != nil && prev.Key >= sample.BlockNumber {
			om.Delete(sample.BlockNumber)
			return nil, fmt.Errorf("%w: block %d after %d", ErrSamplesNotOrdered, sample.BlockNumber, prev.Key)
		}
	}

	leaves := make([][]byte, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		leaves = append(leaves, encodeSampleLeaf(pair.Key, pair.Value))
	}
	return merkletree.NewTree(
		merkletree.WithData(leaves),
		merkletree.WithHashType(keccak256.New()),
	)
}

func encodeSampleLeaf(blockNumber uint64, fields []string) []byte {
	leaf := append([]byte{}, leafPrefix_Sample...)
	leaf = binary.BigEndian.AppendUint64(leaf, blockNumber)
	for _, field := range fields {
		leaf = binary.BigEndian.AppendUint32(leaf, uint32(len(field)))
		leaf = append(leaf, field...)
	}
	return leaf
}
