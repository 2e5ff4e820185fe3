package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type RequestMethod struct {
	Name    string
	Timeout time.Duration
}

type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint   `json:"id"`
}

// RPCError is a JSON-RPC error object returned by the node.
//
// Nodes report reverted calls with code 3 and the revert data in Data.
type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("%s (code %d, data %s)", e.Message, e.Code, string(e.Data))
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func (e *RPCError) ErrorCode() int {
	return int(e.Code)
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint           `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

var jsonRPCVersion = "2.0"

// DefaultRetryBackoffs is the backoff schedule used when retries are enabled.
var DefaultRetryBackoffs = []time.Duration{
	time.Second * 1,
	time.Second * 3,
	time.Second * 5,
	time.Second * 10,
	time.Second * 20,
	time.Second * 30,
	time.Second * 60,
}

type EthereumClientConfig struct {
	BaseUrl string
	// Timeout bounds every HTTP round trip.
	Timeout time.Duration
	// RetryBackoffs are waited between attempts of a failed request. Empty disables retries.
	// Error responses from the node are never retried.
	RetryBackoffs []time.Duration
}

func DefaultEthereumClientConfig() *EthereumClientConfig {
	return &EthereumClientConfig{
		Timeout:       time.Second * 10,
		RetryBackoffs: []time.Duration{},
	}
}

// RetryBackoffsForAttempts returns the first n entries of DefaultRetryBackoffs.
func RetryBackoffsForAttempts(n int) []time.Duration {
	if n <= 0 {
		return []time.Duration{}
	}
	if n > len(DefaultRetryBackoffs) {
		n = len(DefaultRetryBackoffs)
	}
	return DefaultRetryBackoffs[:n]
}

// Client is a minimal JSON-RPC client over HTTP.
//
// It satisfies bind.ContractCaller so it can back a contract binding directly.
type Client struct {
	Logger       *zap.Logger
	httpClient   *http.Client
	clientConfig *EthereumClientConfig
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second * 10
	}
	client := &http.Client{
		Timeout: timeout,
	}

	l.Sugar().Infow("Creating new Ethereum client", zap.Any("config", cfg))

	return &Client{
		httpClient:   client,
		Logger:       l,
		clientConfig: cfg,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// GetLatestBlock returns the current head block. A node that answers with a null block
// is reported as an error.
func (c *Client) GetLatestBlock(ctx context.Context) (*EthereumBlock, error) {
	res, err := c.Call(ctx, GetLatestBlockRequest(1))
	if err != nil {
		return nil, err
	}
	ethBlock, err := RPCMethod_getBlockByNumber.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse block",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return nil, err
	}
	if ethBlock == nil {
		return nil, errors.New("node returned no latest block")
	}
	return ethBlock, nil
}

// LatestBlockNumber returns the number of the current head block.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	block, err := c.GetLatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	return block.Number.Value(), nil
}

func (c *Client) GetChainId(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, GetChainIdRequest(1))
	if err != nil {
		return 0, err
	}
	chainId, err := RPCMethod_chainId.ResponseParser(res.Result)
	if err != nil {
		return 0, err
	}
	return hexutil.DecodeUint64(chainId)
}

// CodeAt implements bind.ContractCaller. A nil blockNumber reads the latest state.
func (c *Client) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	res, err := c.Call(ctx, GetCodeRequest(contract, blockNumber, 1))
	if err != nil {
		return nil, err
	}
	code, err := RPCMethod_getCode.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to get contract bytecode",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return nil, err
	}
	return code, nil
}

// CallContract implements bind.ContractCaller by issuing an eth_call pinned to blockNumber.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	res, err := c.Call(ctx, EthCallRequest(msg, blockNumber, 1))
	if err != nil {
		return nil, err
	}
	return RPCMethod_call.ResponseParser(res.Result)
}

func (c *Client) call(ctx context.Context, rpcRequest *RPCRequest, timeout time.Duration) (*RPCResponse, error) {
	requestBody, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, err
	}
	c.Logger.Sugar().Debugw("Request body", zap.String("requestBody", string(requestBody)))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clientConfig.BaseUrl, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("Failed to make request %s", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("Request failed %w", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("Failed to read body %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received http error code %+v", response.StatusCode)
	}

	destination := &RPCResponse{}
	if err := json.Unmarshal(responseBody, destination); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %s", err)
	}
	return destination, nil
}

// Call sends a single request, retrying transport failures according to the configured backoffs.
// Error objects returned by the node are deterministic and surfaced immediately as *RPCError.
func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	timeout := requestTimeout(rpcRequest.Method)

	var lastErr error
	for attempt := 0; attempt <= len(c.clientConfig.RetryBackoffs); attempt++ {
		if attempt > 0 {
			backoff := c.clientConfig.RetryBackoffs[attempt-1]
			c.Logger.Sugar().Warnw("Retrying call after backoff",
				zap.Error(lastErr),
				zap.Duration("backoff", backoff),
				zap.String("method", rpcRequest.Method),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		res, err := c.call(ctx, rpcRequest, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if res.Error != nil {
			return nil, res.Error
		}
		if attempt > 0 {
			c.Logger.Sugar().Infow("Successfully called after backoff",
				zap.Int("attempt", attempt),
				zap.String("method", rpcRequest.Method),
			)
		}
		return res, nil
	}
	if len(c.clientConfig.RetryBackoffs) > 0 {
		c.Logger.Sugar().Errorw("Exceeded retries for Call",
			zap.Error(lastErr),
			zap.Any("rpcRequest", rpcRequest),
		)
		return nil, errors.Wrap(lastErr, "exceeded retries for call")
	}
	return nil, lastErr
}
