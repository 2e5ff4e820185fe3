package sampler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type BlockTag string

const (
	BlockTag_Latest    BlockTag = "latest"
	BlockTag_Earliest  BlockTag = "earliest"
	BlockTag_Pending   BlockTag = "pending"
	BlockTag_Safe      BlockTag = "safe"
	BlockTag_Finalized BlockTag = "finalized"
)

var knownTags = map[string]BlockTag{
	string(BlockTag_Latest):    BlockTag_Latest,
	string(BlockTag_Earliest):  BlockTag_Earliest,
	string(BlockTag_Pending):   BlockTag_Pending,
	string(BlockTag_Safe):      BlockTag_Safe,
	string(BlockTag_Finalized): BlockTag_Finalized,
}

// BlockRef is either a concrete block number or a symbolic tag. The zero value is block 0.
type BlockRef struct {
	number uint64
	tag    BlockTag
}

func BlockNumber(n uint64) BlockRef {
	return BlockRef{number: n}
}

func Latest() BlockRef {
	return BlockRef{tag: BlockTag_Latest}
}

func Tagged(tag BlockTag) BlockRef {
	return BlockRef{tag: tag}
}

func (b BlockRef) IsNumber() bool {
	return b.tag == ""
}

func (b BlockRef) IsLatest() bool {
	return b.tag == BlockTag_Latest
}

// Number returns the block number. Only meaningful when IsNumber is true.
func (b BlockRef) Number() uint64 {
	return b.number
}

func (b BlockRef) Tag() BlockTag {
	return b.tag
}

func (b BlockRef) String() string {
	if b.IsNumber() {
		return strconv.FormatUint(b.number, 10)
	}
	return string(b.tag)
}

// ParseBlockRef accepts a decimal or 0x-prefixed block number, or one of the JSON-RPC block tags.
func ParseBlockRef(s string) (BlockRef, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if tag, ok := knownTags[s]; ok {
		return Tagged(tag), nil
	}
	if strings.HasPrefix(s, "0x") {
		n, err := hexutil.DecodeUint64(s)
		if err != nil {
			return BlockRef{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedRangeSpec, s, err)
		}
		return BlockNumber(n), nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return BlockRef{}, fmt.Errorf("%w: %q", ErrUnsupportedRangeSpec, s)
	}
	return BlockNumber(n), nil
}
