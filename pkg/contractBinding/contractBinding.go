// Package contractBinding binds a deployed contract's ABI to a node backend and exposes
// read-only calls pinned to historical blocks.
package contractBinding

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"github.com/Layr-Labs/state-sampler/pkg/values"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	// ErrRevert is a contract level failure: the call reverted or there is no code at the address.
	ErrRevert = errors.New("execution reverted")

	// ErrTransport covers every failure talking to the node.
	ErrTransport = errors.New("transport error")

	// ErrUnknownFunction is returned when the ABI has no method with the requested name.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrInvalidArguments is returned when the arguments do not match the method inputs.
	ErrInvalidArguments = errors.New("invalid arguments")
)

var revertPattern = regexp.MustCompile(`(?i)execution reverted|vm exception|revert`)

// revert error code used by geth, erigon, nethermind and reth
const revertErrorCode = 3

type errorWithCode interface {
	ErrorCode() int
}

// HeadReader reports the node's current chain head.
type HeadReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

type Contract struct {
	Address common.Address
	Abi     *abi.ABI

	caller bind.ContractCaller
	head   HeadReader
	logger *zap.Logger
}

func NewContract(address common.Address, contractAbi *abi.ABI, caller bind.ContractCaller, head HeadReader, l *zap.Logger) *Contract {
	return &Contract{
		Address: address,
		Abi:     contractAbi,
		caller:  caller,
		head:    head,
		logger:  l,
	}
}

// Method returns the ABI method for name, or ErrUnknownFunction.
func (c *Contract) Method(name string) (*abi.Method, error) {
	method, ok := c.Abi.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return &method, nil
}

// Outputs returns the declared outputs of a method.
func (c *Contract) Outputs(name string) (abi.Arguments, error) {
	method, err := c.Method(name)
	if err != nil {
		return nil, err
	}
	return method.Outputs, nil
}

// Pack validates args against the method inputs and returns the calldata.
func (c *Contract) Pack(name string, args []values.Value) ([]byte, error) {
	method, err := c.Method(name)
	if err != nil {
		return nil, err
	}
	if len(args) != len(method.Inputs) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrInvalidArguments, name, len(method.Inputs), len(args))
	}
	params := make([]interface{}, 0, len(args))
	for i, input := range method.Inputs {
		p, err := values.ToABI(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %v", ErrInvalidArguments, i, err)
		}
		params = append(params, p)
	}
	data, err := c.Abi.Pack(name, params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return data, nil
}

// Call executes a read-only call of the named function at the given block and decodes its outputs.
//
// Failures are classified as ErrRevert, values.ErrDecode or ErrTransport. Context errors are
// returned unwrapped.
func (c *Contract) Call(ctx context.Context, name string, args []values.Value, blockNumber uint64) ([]values.Value, error) {
	method, err := c.Method(name)
	if err != nil {
		return nil, err
	}
	input, err := c.Pack(name, args)
	if err != nil {
		return nil, err
	}

	block := new(big.Int).SetUint64(blockNumber)
	msg := ethereum.CallMsg{To: &c.Address, Data: input}

	output, err := c.caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	// Same check bind.BoundContract performs: an empty return from a method with
	// outputs is either a missing contract or a malformed answer.
	if len(output) == 0 && len(method.Outputs) > 0 {
		code, err := c.caller.CodeAt(ctx, c.Address, block)
		if err != nil {
			return nil, c.classify(ctx, err)
		}
		if len(code) == 0 {
			return nil, fmt.Errorf("%w: %v at block %d", ErrRevert, bind.ErrNoCode, blockNumber)
		}
	}

	unpacked, err := method.Outputs.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", values.ErrDecode, err)
	}
	return values.FromABIOutputs(method.Outputs, unpacked)
}

// CodeAt returns the deployed bytecode at the given block.
func (c *Contract) CodeAt(ctx context.Context, blockNumber uint64) ([]byte, error) {
	code, err := c.caller.CodeAt(ctx, c.Address, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	return code, nil
}

// LatestBlockNumber queries the node for its current chain head.
func (c *Contract) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if c.head == nil {
		return 0, fmt.Errorf("%w: no head reader configured", ErrTransport)
	}
	n, err := c.head.LatestBlockNumber(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return n, nil
}

func (c *Contract) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.logger.Sugar().Debugw("Contract call failed",
		zap.String("address", c.Address.Hex()),
		zap.Error(err),
	)
	if IsRevert(err) {
		return fmt.Errorf("%w: %w", ErrRevert, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// IsRevert reports whether a node error describes a reverted call.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, bind.ErrNoCode) {
		return true
	}
	var coded errorWithCode
	if errors.As(err, &coded) && coded.ErrorCode() == revertErrorCode {
		return true
	}
	return revertPattern.MatchString(err.Error())
}
