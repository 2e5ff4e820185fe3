package values

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

const ElementSeparator = ","

// Format renders a value as a display string.
//
// Integers are base-10, addresses are EIP-55 checksummed, byte values are 0x-prefixed
// lowercase hex. Composite values are their formatted elements joined by ElementSeparator,
// without a leading or trailing separator.
func Format(v Value) string {
	return format(v, formatScalar)
}

// FormatScaled renders a value like Format, except that integers are divided by
// 10^decimals. Non-integer values are unaffected.
func FormatScaled(v Value, decimals int32) string {
	if decimals <= 0 {
		return Format(v)
	}
	return format(v, func(v Value) string {
		if v.kind == Kind_Int || v.kind == Kind_Uint {
			return decimal.NewFromBigInt(v.number, -decimals).String()
		}
		return formatScalar(v)
	})
}

func format(v Value, scalar func(Value) string) string {
	if !v.kind.IsComposite() {
		return scalar(v)
	}
	parts := make([]string, 0, len(v.elems))
	for _, e := range v.elems {
		parts = append(parts, format(e, scalar))
	}
	return strings.Join(parts, ElementSeparator)
}

func formatScalar(v Value) string {
	switch v.kind {
	case Kind_Bool:
		return strconv.FormatBool(v.boolean)
	case Kind_Int, Kind_Uint:
		if v.number == nil {
			return "0"
		}
		return v.number.String()
	case Kind_FixedBytes, Kind_Function, Kind_Bytes:
		return hexutil.Encode(v.raw)
	case Kind_Address:
		return v.address.Hex()
	case Kind_String:
		return v.text
	}
	return ""
}
