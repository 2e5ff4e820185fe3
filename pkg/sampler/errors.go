package sampler

import (
	"errors"
	"fmt"

	"github.com/Layr-Labs/state-sampler/pkg/contractBinding"
	"github.com/Layr-Labs/state-sampler/pkg/values"
)

var (
	ErrUnsupportedRangeSpec   = errors.New("unsupported range spec")
	ErrLatestBlockUnavailable = errors.New("latest block unavailable")
	ErrCallReverted           = errors.New("call reverted")
	ErrInvalidInterval        = errors.New("invalid interval")
	ErrNoCode                 = errors.New("no contract code at address")
)

type CallErrorKind string

const (
	CallErrorKind_Revert    CallErrorKind = "revert"
	CallErrorKind_Decode    CallErrorKind = "decode"
	CallErrorKind_Transport CallErrorKind = "transport"
)

// CallError reports the block at which a scan aborted. It matches ErrCallReverted with
// errors.Is regardless of Kind, and unwraps to the underlying failure.
type CallError struct {
	Block uint64
	Kind  CallErrorKind
	Err   error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s at block %d (%s): %v", ErrCallReverted, e.Block, e.Kind, e.Err)
}

func (e *CallError) Is(target error) bool {
	return target == ErrCallReverted
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func classifyCallError(err error) CallErrorKind {
	switch {
	case errors.Is(err, contractBinding.ErrRevert):
		return CallErrorKind_Revert
	case errors.Is(err, values.ErrDecode):
		return CallErrorKind_Decode
	default:
		return CallErrorKind_Transport
	}
}

// isRequestError reports failures that no block can succeed on.
func isRequestError(err error) bool {
	return errors.Is(err, contractBinding.ErrUnknownFunction) ||
		errors.Is(err, contractBinding.ErrInvalidArguments)
}
