package values

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrDecode is returned when a value produced by the ABI decoder does not match its declared type.
	ErrDecode = errors.New("malformed abi output")

	// ErrEncode is returned when a Value can not be converted to the Go type the ABI encoder expects.
	ErrEncode = errors.New("value does not match abi type")
)

var bigIntType = reflect.TypeOf(&big.Int{})

// FromABI converts a value unpacked by go-ethereum's abi package into a Value.
func FromABI(t abi.Type, x interface{}) (Value, error) {
	rv := reflect.ValueOf(x)
	if !rv.IsValid() {
		return Value{}, fmt.Errorf("%w: nil value for type %s", ErrDecode, t.String())
	}
	for rv.Kind() == reflect.Ptr && rv.Type() != bigIntType {
		if rv.IsNil() {
			return Value{}, fmt.Errorf("%w: nil pointer for type %s", ErrDecode, t.String())
		}
		rv = rv.Elem()
	}
	return fromReflect(t, rv)
}

// FromABIOutputs converts a full unpacked output list in declaration order.
func FromABIOutputs(args abi.Arguments, outputs []interface{}) ([]Value, error) {
	if len(args) != len(outputs) {
		return nil, fmt.Errorf("%w: expected %d outputs, got %d", ErrDecode, len(args), len(outputs))
	}
	res := make([]Value, 0, len(outputs))
	for i, arg := range args {
		v, err := FromABI(arg.Type, outputs[i])
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
}

func fromReflect(t abi.Type, rv reflect.Value) (Value, error) {
	mismatch := func() (Value, error) {
		return Value{}, fmt.Errorf("%w: cannot use %s as %s", ErrDecode, rv.Type().String(), t.String())
	}

	switch t.T {
	case abi.BoolTy:
		if rv.Kind() != reflect.Bool {
			return mismatch()
		}
		return NewBool(rv.Bool()), nil

	case abi.IntTy, abi.UintTy:
		var n *big.Int
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = big.NewInt(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n = new(big.Int).SetUint64(rv.Uint())
		case reflect.Ptr:
			if rv.Type() != bigIntType || rv.IsNil() {
				return mismatch()
			}
			n = rv.Interface().(*big.Int)
		default:
			return mismatch()
		}
		if t.T == abi.UintTy {
			if n.Sign() < 0 {
				return Value{}, fmt.Errorf("%w: negative value for %s", ErrDecode, t.String())
			}
			return NewUint(n), nil
		}
		return NewInt(n), nil

	case abi.AddressTy:
		addr, ok := rv.Interface().(common.Address)
		if !ok {
			return mismatch()
		}
		return NewAddress(addr), nil

	case abi.FixedBytesTy, abi.HashTy:
		b, ok := byteArray(rv)
		if !ok {
			return mismatch()
		}
		return NewFixedBytes(b), nil

	case abi.FunctionTy:
		b, ok := byteArray(rv)
		if !ok || len(b) != 24 {
			return mismatch()
		}
		var f [24]byte
		copy(f[:], b)
		return NewFunction(f), nil

	case abi.BytesTy:
		if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() != reflect.Uint8 {
			return mismatch()
		}
		return NewBytes(rv.Bytes()), nil

	case abi.StringTy:
		if rv.Kind() != reflect.String {
			return mismatch()
		}
		return NewString(rv.String()), nil

	case abi.SliceTy, abi.ArrayTy:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return mismatch()
		}
		if t.T == abi.ArrayTy && rv.Len() != t.Size {
			return Value{}, fmt.Errorf("%w: expected %d elements for %s, got %d", ErrDecode, t.Size, t.String(), rv.Len())
		}
		elems := make([]Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := FromABI(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, e)
		}
		if t.T == abi.ArrayTy {
			return NewFixedArray(elems...), nil
		}
		return NewArray(elems...), nil

	case abi.TupleTy:
		if rv.Kind() != reflect.Struct || rv.NumField() != len(t.TupleElems) {
			return mismatch()
		}
		elems := make([]Value, 0, len(t.TupleElems))
		for i, et := range t.TupleElems {
			e, err := FromABI(*et, rv.Field(i).Interface())
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, e)
		}
		return NewTuple(elems...), nil
	}
	return Value{}, fmt.Errorf("%w: unsupported abi type %s", ErrDecode, t.String())
}

func byteArray(rv reflect.Value) ([]byte, bool) {
	if rv.Kind() != reflect.Array || rv.Type().Elem().Kind() != reflect.Uint8 {
		return nil, false
	}
	b := make([]byte, rv.Len())
	reflect.Copy(reflect.ValueOf(b), rv)
	return b, true
}

// ToABI converts a Value into the Go value go-ethereum's abi package packs for the given type.
func ToABI(t abi.Type, v Value) (interface{}, error) {
	rv, err := toReflect(t, v)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func toReflect(t abi.Type, v Value) (reflect.Value, error) {
	mismatch := func() (reflect.Value, error) {
		return reflect.Value{}, fmt.Errorf("%w: cannot use %s value as %s", ErrEncode, v.kind.String(), t.String())
	}
	rt := t.GetType()

	switch t.T {
	case abi.BoolTy:
		if v.kind != Kind_Bool {
			return mismatch()
		}
		return reflect.ValueOf(v.boolean), nil

	case abi.IntTy, abi.UintTy:
		if v.kind != Kind_Int && v.kind != Kind_Uint {
			return mismatch()
		}
		n := copyBig(v.number)
		if err := checkIntRange(t, n); err != nil {
			return reflect.Value{}, err
		}
		if rt == bigIntType {
			return reflect.ValueOf(n), nil
		}
		out := reflect.New(rt).Elem()
		if t.T == abi.UintTy {
			out.SetUint(n.Uint64())
		} else {
			out.SetInt(n.Int64())
		}
		return out, nil

	case abi.AddressTy:
		if v.kind != Kind_Address {
			return mismatch()
		}
		return reflect.ValueOf(v.address), nil

	case abi.FixedBytesTy, abi.FunctionTy, abi.HashTy:
		if v.kind != Kind_FixedBytes && v.kind != Kind_Bytes && v.kind != Kind_Function {
			return mismatch()
		}
		if rt.Kind() != reflect.Array || len(v.raw) != rt.Len() {
			return reflect.Value{}, fmt.Errorf("%w: expected %d bytes for %s, got %d", ErrEncode, rt.Len(), t.String(), len(v.raw))
		}
		out := reflect.New(rt).Elem()
		reflect.Copy(out, reflect.ValueOf(v.raw))
		return out, nil

	case abi.BytesTy:
		if v.kind != Kind_Bytes && v.kind != Kind_FixedBytes {
			return mismatch()
		}
		return reflect.ValueOf(v.AsBytes()), nil

	case abi.StringTy:
		if v.kind != Kind_String {
			return mismatch()
		}
		return reflect.ValueOf(v.text), nil

	case abi.SliceTy:
		if v.kind != Kind_Array && v.kind != Kind_FixedArray {
			return mismatch()
		}
		out := reflect.MakeSlice(rt, len(v.elems), len(v.elems))
		for i, e := range v.elems {
			ev, err := toReflect(*t.Elem, e)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case abi.ArrayTy:
		if v.kind != Kind_Array && v.kind != Kind_FixedArray {
			return mismatch()
		}
		if len(v.elems) != t.Size {
			return reflect.Value{}, fmt.Errorf("%w: expected %d elements for %s, got %d", ErrEncode, t.Size, t.String(), len(v.elems))
		}
		out := reflect.New(rt).Elem()
		for i, e := range v.elems {
			ev, err := toReflect(*t.Elem, e)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil

	case abi.TupleTy:
		if v.kind != Kind_Tuple {
			return mismatch()
		}
		if len(v.elems) != len(t.TupleElems) {
			return reflect.Value{}, fmt.Errorf("%w: expected %d tuple fields for %s, got %d", ErrEncode, len(t.TupleElems), t.String(), len(v.elems))
		}
		out := reflect.New(rt).Elem()
		for i, et := range t.TupleElems {
			ev, err := toReflect(*et, v.elems[i])
			if err != nil {
				return reflect.Value{}, err
			}
			out.Field(i).Set(ev)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: unsupported abi type %s", ErrEncode, t.String())
}

func checkIntRange(t abi.Type, n *big.Int) error {
	if t.T == abi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return fmt.Errorf("%w: %s out of range for %s", ErrEncode, n.String(), t.String())
		}
		return nil
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	minimum := new(big.Int).Neg(limit)
	if n.Cmp(minimum) < 0 || n.Cmp(limit) >= 0 {
		return fmt.Errorf("%w: %s out of range for %s", ErrEncode, n.String(), t.String())
	}
	return nil
}
