package ethereum

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type ResponseParserFunc[T any] func(res json.RawMessage) (T, error)

type RequestResponseHandler[T any] struct {
	RequestMethod  *RequestMethod
	ResponseParser ResponseParserFunc[T]
}

var (
	RPCMethod_getBlockByNumber = &RequestResponseHandler[*EthereumBlock]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getBlockByNumber",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (*EthereumBlock, error) {
			if len(res) == 0 || string(res) == "null" {
				return nil, nil
			}
			block := &EthereumBlock{}
			if err := json.Unmarshal(res, block); err != nil {
				return nil, err
			}
			return block, nil
		},
	}
	RPCMethod_chainId = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name:    "eth_chainId",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (string, error) {
			return strings.ReplaceAll(string(res), "\"", ""), nil
		},
	}
	RPCMethod_getCode = &RequestResponseHandler[[]byte]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getCode",
			Timeout: time.Second * 5,
		},
		ResponseParser: parseHexBytes,
	}
	// eth_call on an archive node can take a while for old blocks
	RPCMethod_call = &RequestResponseHandler[[]byte]{
		RequestMethod: &RequestMethod{
			Name:    "eth_call",
			Timeout: time.Second * 30,
		},
		ResponseParser: parseHexBytes,
	}
)

var requestTimeouts = map[string]time.Duration{
	RPCMethod_getBlockByNumber.RequestMethod.Name: RPCMethod_getBlockByNumber.RequestMethod.Timeout,
	RPCMethod_chainId.RequestMethod.Name:          RPCMethod_chainId.RequestMethod.Timeout,
	RPCMethod_getCode.RequestMethod.Name:          RPCMethod_getCode.RequestMethod.Timeout,
	RPCMethod_call.RequestMethod.Name:             RPCMethod_call.RequestMethod.Timeout,
}

func requestTimeout(method string) time.Duration {
	if t, ok := requestTimeouts[method]; ok {
		return t
	}
	return time.Second * 5
}

func parseHexBytes(res json.RawMessage) ([]byte, error) {
	var b hexutil.Bytes
	if err := json.Unmarshal(res, &b); err != nil {
		return nil, err
	}
	return b, nil
}

// toBlockNumArg mirrors the block parameter encoding used by ethclient.
func toBlockNumArg(blockNumber *big.Int) string {
	if blockNumber == nil {
		return "latest"
	}
	return hexutil.EncodeBig(blockNumber)
}

func toCallArg(msg ethereum.CallMsg) map[string]interface{} {
	arg := map[string]interface{}{
		"to": msg.To,
	}
	if len(msg.Data) > 0 {
		arg["input"] = hexutil.Bytes(msg.Data)
		arg["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.From != (common.Address{}) {
		arg["from"] = msg.From
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	return arg
}

func GetLatestBlockRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getBlockByNumber.RequestMethod.Name,
		Params:  []interface{}{"latest", false},
		ID:      id,
	}
}

func GetChainIdRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_chainId.RequestMethod.Name,
		ID:      id,
	}
}

func GetCodeRequest(address common.Address, blockNumber *big.Int, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getCode.RequestMethod.Name,
		Params:  []interface{}{address, toBlockNumArg(blockNumber)},
		ID:      id,
	}
}

func EthCallRequest(msg ethereum.CallMsg, blockNumber *big.Int, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_call.RequestMethod.Name,
		Params:  []interface{}{toCallArg(msg), toBlockNumArg(blockNumber)},
		ID:      id,
	}
}
