package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Layr-Labs/state-sampler/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const rpcUrl = "http://localhost:8545"

func setup(t *testing.T, backoffs []time.Duration) (*Client, *zap.Logger) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	cfg := DefaultEthereumClientConfig()
	cfg.BaseUrl = rpcUrl
	cfg.RetryBackoffs = backoffs

	client := NewClient(cfg, l)
	client.SetHttpClient(httpClient)
	return client, l
}

func decodeRequest(t *testing.T, req *http.Request) *RPCRequest {
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	rpcReq := &RPCRequest{}
	require.NoError(t, json.Unmarshal(body, rpcReq))
	return rpcReq
}

func rpcResult(result string) string {
	return `{"jsonrpc":"2.0","id":1,"result":` + result + `}`
}

func Test_Client(t *testing.T) {
	t.Run("Resolves the latest block number from eth_getBlockByNumber", func(t *testing.T) {
		client, _ := setup(t, nil)

		httpmock.RegisterResponder(http.MethodPost, rpcUrl, func(req *http.Request) (*http.Response, error) {
			rpcReq := decodeRequest(t, req)
			assert.Equal(t, "eth_getBlockByNumber", rpcReq.Method)
			assert.Equal(t, []interface{}{"latest", false}, rpcReq.Params)
			return httpmock.NewStringResponse(200, rpcResult(`{"number":"0x1b2a4c8","hash":"0xABC","parentHash":"0x01","timestamp":"0x6650f2c4"}`)), nil
		})

		blockNumber, err := client.LatestBlockNumber(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(28484808), blockNumber)

		block, err := client.GetLatestBlock(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "0xabc", block.Hash.Value())
	})
	t.Run("A null latest block is an error", func(t *testing.T) {
		client, _ := setup(t, nil)
		httpmock.RegisterResponder(http.MethodPost, rpcUrl, httpmock.NewStringResponder(200, rpcResult(`null`)))

		_, err := client.LatestBlockNumber(context.Background())
		assert.Error(t, err)
	})
	t.Run("eth_chainId", func(t *testing.T) {
		client, _ := setup(t, nil)
		httpmock.RegisterResponder(http.MethodPost, rpcUrl, func(req *http.Request) (*http.Response, error) {
			rpcReq := decodeRequest(t, req)
			assert.Equal(t, "eth_chainId", rpcReq.Method)
			return httpmock.NewStringResponse(200, rpcResult(`"0x1"`)), nil
		})

		chainId, err := client.GetChainId(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), chainId)
	})
	t.Run("CallContract issues an eth_call pinned to the block", func(t *testing.T) {
		client, _ := setup(t, nil)
		to := common.HexToAddress("0xf5911dc17ee45f46fe538ec972f4a500c78d8521")

		httpmock.RegisterResponder(http.MethodPost, rpcUrl, func(req *http.Request) (*http.Response, error) {
			rpcReq := decodeRequest(t, req)
			assert.Equal(t, "eth_call", rpcReq.Method)

			params := rpcReq.Params.([]interface{})
			require.Len(t, params, 2)
			callArg := params[0].(map[string]interface{})
			assert.Equal(t, "0xf5911dc17ee45f46fe538ec972f4a500c78d8521", callArg["to"])
			assert.Equal(t, "0x01020304", callArg["data"])
			assert.Equal(t, "0x1ab4007", params[1])

			return httpmock.NewStringResponse(200, rpcResult(`"0x000000000000000000000000000000000000000000000000000000000000002a"`)), nil
		})

		out, err := client.CallContract(context.Background(), ethereum.CallMsg{To: &to, Data: []byte{1, 2, 3, 4}}, big.NewInt(28000263))
		require.NoError(t, err)
		assert.Equal(t, int64(42), new(big.Int).SetBytes(out).Int64())
	})
	t.Run("CodeAt defaults to the latest block", func(t *testing.T) {
		client, _ := setup(t, nil)
		httpmock.RegisterResponder(http.MethodPost, rpcUrl, func(req *http.Request) (*http.Response, error) {
			rpcReq := decodeRequest(t, req)
			assert.Equal(t, "eth_getCode", rpcReq.Method)
			assert.Equal(t, "latest", rpcReq.Params.([]interface{})[1])
			return httpmock.NewStringResponse(200, rpcResult(`"0x6080"`)), nil
		})

		code, err := client.CodeAt(context.Background(), common.Address{}, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x80}, code)
	})
	t.Run("Node error responses are returned as RPCError without retrying", func(t *testing.T) {
		client, _ := setup(t, []time.Duration{time.Millisecond, time.Millisecond})

		var calls atomic.Int32
		httpmock.RegisterResponder(http.MethodPost, rpcUrl, func(req *http.Request) (*http.Response, error) {
			calls.Add(1)
			return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"error":{"code":3,"message":"execution reverted","data":"0x"}}`), nil
		})

		_, err := client.CallContract(context.Background(), ethereum.CallMsg{}, big.NewInt(1))
		require.Error(t, err)

		var rpcErr *RPCError
		require.True(t, errors.As(err, &rpcErr))
		assert.Equal(t, 3, rpcErr.ErrorCode())
		assert.Contains(t, err.Error(), "execution reverted")
		assert.Equal(t, int32(1), calls.Load())
	})
	t.Run("Transport failures are retried with the configured backoffs", func(t *testing.T) {
		client, _ := setup(t, []time.Duration{time.Millisecond, time.Millisecond})

		var calls atomic.Int32
		httpmock.RegisterResponder(http.MethodPost, rpcUrl, func(req *http.Request) (*http.Response, error) {
			if calls.Add(1) < 3 {
				return httpmock.NewStringResponse(502, "bad gateway"), nil
			}
			return httpmock.NewStringResponse(200, rpcResult(`"0x5"`)), nil
		})

		chainId, err := client.GetChainId(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(5), chainId)
		assert.Equal(t, int32(3), calls.Load())
	})
	t.Run("Transport failures surface immediately when retries are disabled", func(t *testing.T) {
		client, _ := setup(t, nil)

		var calls atomic.Int32
		httpmock.RegisterResponder(http.MethodPost, rpcUrl, func(req *http.Request) (*http.Response, error) {
			calls.Add(1)
			return httpmock.NewStringResponse(503, "unavailable"), nil
		})

		_, err := client.GetChainId(context.Background())
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
	t.Run("RetryBackoffsForAttempts", func(t *testing.T) {
		assert.Empty(t, RetryBackoffsForAttempts(0))
		assert.Equal(t, []time.Duration{time.Second, time.Second * 3}, RetryBackoffsForAttempts(2))
		assert.Len(t, RetryBackoffsForAttempts(100), len(DefaultRetryBackoffs))
	})
}
