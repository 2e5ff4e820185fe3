// Package values holds the decoded representation of contract return values and arguments.
//
// A Value is a closed sum over the ABI value kinds. Composite kinds (arrays, fixed arrays
// and tuples) own their children, so every Value is a tree.
package values

import (
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

type Kind int

const (
	Kind_Bool Kind = iota
	Kind_Int
	Kind_Uint
	Kind_FixedBytes
	Kind_Address
	Kind_Function
	Kind_Bytes
	Kind_String
	Kind_Array
	Kind_FixedArray
	Kind_Tuple
)

var kindNames = map[Kind]string{
	Kind_Bool:       "bool",
	Kind_Int:        "int",
	Kind_Uint:       "uint",
	Kind_FixedBytes: "fixedBytes",
	Kind_Address:    "address",
	Kind_Function:   "function",
	Kind_Bytes:      "bytes",
	Kind_String:     "string",
	Kind_Array:      "array",
	Kind_FixedArray: "fixedArray",
	Kind_Tuple:      "tuple",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsComposite reports whether values of this kind own nested values.
func (k Kind) IsComposite() bool {
	return k == Kind_Array || k == Kind_FixedArray || k == Kind_Tuple
}

// Value is immutable once constructed; constructors and accessors copy
// any slice or big.Int crossing the boundary.
type Value struct {
	kind    Kind
	boolean bool
	number  *big.Int
	raw     []byte
	address common.Address
	text    string
	elems   []Value
}

func NewBool(b bool) Value {
	return Value{kind: Kind_Bool, boolean: b}
}

func NewInt(n *big.Int) Value {
	return Value{kind: Kind_Int, number: copyBig(n)}
}

func NewInt64(n int64) Value {
	return Value{kind: Kind_Int, number: big.NewInt(n)}
}

// NewUint panics on a negative input, which can never come out of the ABI decoder.
func NewUint(n *big.Int) Value {
	if n != nil && n.Sign() < 0 {
		panic("values: negative unsigned integer")
	}
	return Value{kind: Kind_Uint, number: copyBig(n)}
}

func NewUint64(n uint64) Value {
	return Value{kind: Kind_Uint, number: new(big.Int).SetUint64(n)}
}

func NewFixedBytes(b []byte) Value {
	return Value{kind: Kind_FixedBytes, raw: slices.Clone(b)}
}

func NewAddress(a common.Address) Value {
	return Value{kind: Kind_Address, address: a}
}

// NewFunction holds a function pointer: a 20 byte address followed by a 4 byte selector.
func NewFunction(f [24]byte) Value {
	return Value{kind: Kind_Function, raw: slices.Clone(f[:])}
}

func NewBytes(b []byte) Value {
	return Value{kind: Kind_Bytes, raw: slices.Clone(b)}
}

func NewString(s string) Value {
	return Value{kind: Kind_String, text: s}
}

func NewArray(elems ...Value) Value {
	return Value{kind: Kind_Array, elems: slices.Clone(elems)}
}

func NewFixedArray(elems ...Value) Value {
	return Value{kind: Kind_FixedArray, elems: slices.Clone(elems)}
}

func NewTuple(elems ...Value) Value {
	return Value{kind: Kind_Tuple, elems: slices.Clone(elems)}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) AsBool() bool {
	return v.boolean
}

// AsBigInt returns a copy of the integer held by Int and Uint values, nil otherwise.
func (v Value) AsBigInt() *big.Int {
	if v.number == nil {
		return nil
	}
	return new(big.Int).Set(v.number)
}

// AsBytes returns a copy of the raw bytes of FixedBytes, Function and Bytes values.
func (v Value) AsBytes() []byte {
	return slices.Clone(v.raw)
}

func (v Value) AsAddress() common.Address {
	return v.address
}

func (v Value) AsString() string {
	return v.text
}

// Elems returns a copy of the children of a composite value.
func (v Value) Elems() []Value {
	return slices.Clone(v.elems)
}

func (v Value) Len() int {
	return len(v.elems)
}

// String implements fmt.Stringer using Format.
func (v Value) String() string {
	return Format(v)
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Kind_Bool:
		return v.boolean == o.boolean
	case Kind_Int, Kind_Uint:
		if v.number == nil || o.number == nil {
			return v.number == o.number
		}
		return v.number.Cmp(o.number) == 0
	case Kind_FixedBytes, Kind_Function, Kind_Bytes:
		return slices.Equal(v.raw, o.raw)
	case Kind_Address:
		return v.address == o.address
	case Kind_String:
		return v.text == o.text
	default:
		return slices.EqualFunc(v.elems, o.elems, func(a, b Value) bool {
			return a.Equal(b)
		})
	}
}

func copyBig(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(n)
}
