package values

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseArgument parses the textual form of an argument for the given ABI type.
//
// Scalars use their natural form: true/false, decimal or 0x-prefixed integers, hex
// addresses and 0x-prefixed byte strings. Arrays and tuples are JSON arrays whose
// elements are either JSON scalars or strings in the scalar form, e.g. ["0xabc...", 1].
func ParseArgument(t abi.Type, s string) (Value, error) {
	switch t.T {
	case abi.BoolTy:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid bool %q", ErrEncode, s)
		}
		return NewBool(b), nil

	case abi.IntTy, abi.UintTy:
		n, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
		if !ok {
			return Value{}, fmt.Errorf("%w: invalid integer %q", ErrEncode, s)
		}
		if err := checkIntRange(t, n); err != nil {
			return Value{}, err
		}
		if t.T == abi.UintTy {
			return NewUint(n), nil
		}
		return NewInt(n), nil

	case abi.AddressTy:
		s = strings.TrimSpace(s)
		if !common.IsHexAddress(s) {
			return Value{}, fmt.Errorf("%w: invalid address %q", ErrEncode, s)
		}
		return NewAddress(common.HexToAddress(s)), nil

	case abi.FixedBytesTy, abi.HashTy, abi.FunctionTy:
		b, err := hexutil.Decode(strings.TrimSpace(s))
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid hex %q: %v", ErrEncode, s, err)
		}
		if size := t.GetType().Len(); len(b) != size {
			return Value{}, fmt.Errorf("%w: expected %d bytes for %s, got %d", ErrEncode, size, t.String(), len(b))
		}
		if t.T == abi.FunctionTy {
			var f [24]byte
			copy(f[:], b)
			return NewFunction(f), nil
		}
		return NewFixedBytes(b), nil

	case abi.BytesTy:
		b, err := hexutil.Decode(strings.TrimSpace(s))
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid hex %q: %v", ErrEncode, s, err)
		}
		return NewBytes(b), nil

	case abi.StringTy:
		return NewString(s), nil

	case abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		var raw []json.RawMessage
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return Value{}, fmt.Errorf("%w: expected a JSON array for %s: %v", ErrEncode, t.String(), err)
		}
		elemType := func(i int) abi.Type {
			if t.T == abi.TupleTy {
				return *t.TupleElems[i]
			}
			return *t.Elem
		}
		if t.T == abi.ArrayTy && len(raw) != t.Size {
			return Value{}, fmt.Errorf("%w: expected %d elements for %s, got %d", ErrEncode, t.Size, t.String(), len(raw))
		}
		if t.T == abi.TupleTy && len(raw) != len(t.TupleElems) {
			return Value{}, fmt.Errorf("%w: expected %d tuple fields for %s, got %d", ErrEncode, len(t.TupleElems), t.String(), len(raw))
		}
		elems := make([]Value, 0, len(raw))
		for i, r := range raw {
			e, err := ParseArgument(elemType(i), rawElement(r))
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, e)
		}
		switch t.T {
		case abi.ArrayTy:
			return NewFixedArray(elems...), nil
		case abi.TupleTy:
			return NewTuple(elems...), nil
		default:
			return NewArray(elems...), nil
		}
	}
	return Value{}, fmt.Errorf("%w: unsupported abi type %s", ErrEncode, t.String())
}

// ParseArguments parses one string per method input.
func ParseArguments(inputs abi.Arguments, args []string) ([]Value, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("%w: expected %d arguments, got %d", ErrEncode, len(inputs), len(args))
	}
	res := make([]Value, 0, len(args))
	for i, input := range inputs {
		v, err := ParseArgument(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, input.Name, err)
		}
		res = append(res, v)
	}
	return res, nil
}

// rawElement unquotes JSON strings and passes every other JSON value through verbatim.
func rawElement(r json.RawMessage) string {
	var s string
	if err := json.Unmarshal(r, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(r))
}
