package ethereum

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

type (
	EthereumHexString string
	EthereumQuantity  uint64
)

type EthereumBlock struct {
	Hash       EthereumHexString `json:"hash"`
	ParentHash EthereumHexString `json:"parentHash"`
	Number     EthereumQuantity  `json:"number"`
	Timestamp  EthereumQuantity  `json:"timestamp"`
}

func (v EthereumHexString) MarshalJSON() ([]byte, error) {
	s := fmt.Sprintf(`"%s"`, v)
	return []byte(s), nil
}

func (v *EthereumHexString) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return errors.Wrap(err, "failed to unmarshal EthereumHexString")
	}
	*v = EthereumHexString(strings.ToLower(s))
	return nil
}

func (v EthereumHexString) Value() string {
	return string(v)
}

func (v EthereumQuantity) MarshalJSON() ([]byte, error) {
	s := fmt.Sprintf(`"%s"`, hexutil.EncodeUint64(uint64(v)))
	return []byte(s), nil
}

func (v *EthereumQuantity) UnmarshalJSON(input []byte) error {
	if len(input) > 0 && input[0] != '"' {
		var i uint64
		if err := json.Unmarshal(input, &i); err != nil {
			return errors.Wrap(err, "failed to unmarshal EthereumQuantity into uint64")
		}
		*v = EthereumQuantity(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return errors.Wrap(err, "failed to unmarshal EthereumQuantity into string")
	}
	if s == "" {
		*v = 0
		return nil
	}

	i, err := hexutil.DecodeUint64(s)
	if err != nil {
		return errors.Wrapf(err, "failed to decode EthereumQuantity %v", s)
	}
	*v = EthereumQuantity(i)
	return nil
}

func (v EthereumQuantity) Value() uint64 {
	return uint64(v)
}
