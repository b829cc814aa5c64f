package il

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	VTemp ValueKind = iota
	VConstInt
	VConstFloat
	VConstString
	VGlobalAddr
	VNull
)

// Value is the tagged union of things an operand can be: an SSA temp
// reference, a constant (integer, float, string), a global's address, or
// the null pointer. Exactly one of the fields below is meaningful,
// according to Kind.
type Value struct {
	Kind ValueKind

	// VTemp
	ID int

	// VConstInt
	Int    int64
	IsBool bool // true if this int constant is an i1 (prints true/false)

	// VConstFloat
	Float float64

	// VConstString
	Str string

	// VGlobalAddr
	Global string
}

// Temp constructs an SSA-temp value reference.
func Temp(id int) Value { return Value{Kind: VTemp, ID: id} }

// ConstInt constructs a plain integer constant.
func ConstInt(v int64) Value { return Value{Kind: VConstInt, Int: v} }

// ConstBool constructs an i1 constant, printed as true/false.
func ConstBool(b bool) Value {
	v := int64(0)
	if b {
		v = 1
	}
	return Value{Kind: VConstInt, Int: v, IsBool: true}
}

// ConstFloat constructs a 64-bit float constant.
func ConstFloat(v float64) Value { return Value{Kind: VConstFloat, Float: v} }

// ConstString constructs a string constant.
func ConstString(s string) Value { return Value{Kind: VConstString, Str: s} }

// GlobalAddr constructs a reference to a global or function's address.
func GlobalAddr(name string) Value { return Value{Kind: VGlobalAddr, Global: name} }

// Null constructs the null pointer value.
func Null() Value { return Value{Kind: VNull} }

// IsConst reports whether v is any constant kind (int, float, string, or
// null — but not a global address, which is only foldable in restricted
// contexts).
func (v Value) IsConst() bool {
	switch v.Kind {
	case VConstInt, VConstFloat, VConstString, VNull:
		return true
	default:
		return false
	}
}

// Bool reads an i1 constant as a Go bool: any non-zero Int reads as true.
// It does not check Kind or IsBool; callers must check IsBool first.
func (v Value) Bool() bool {
	return v.Int != 0
}

// Equal reports structural equality between two values (used by peephole
// identities like `cmp.eq x, x`).
func (a Value) Equal(b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VTemp:
		return a.ID == b.ID
	case VConstInt:
		return a.Int == b.Int && a.IsBool == b.IsBool
	case VConstFloat:
		return a.Float == b.Float || (math.IsNaN(a.Float) && math.IsNaN(b.Float))
	case VConstString:
		return a.Str == b.Str
	case VGlobalAddr:
		return a.Global == b.Global
	case VNull:
		return true
	default:
		return false
	}
}

// String renders v in IL text form. String constants go through
// strconv.Quote, whose escapes (such as \u and \t) go beyond the set the
// parser accepts; the printer quotes strings with its own quote function.
func (v Value) String() string {
	switch v.Kind {
	case VTemp:
		return "%" + strconv.Itoa(v.ID)
	case VConstInt:
		if v.IsBool {
			if v.Int != 0 {
				return "true"
			}
			return "false"
		}
		return strconv.FormatInt(v.Int, 10)
	case VConstFloat:
		return formatFloat(v.Float)
	case VConstString:
		return strconv.Quote(v.Str)
	case VGlobalAddr:
		return "@" + v.Global
	case VNull:
		return "null"
	default:
		return fmt.Sprintf("<value kind %d>", int(v.Kind))
	}
}

// formatFloat renders a float64 the way the IL text format expects:
// NaN/Inf spelled out, -0.0 preserved, otherwise Go's round-trippable
// shortest representation.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	default:
		s := strconv.FormatFloat(f, 'g', -1, 64)
		// Ensure the literal always reads back as a float, even for
		// integral values like 2 -> "2.0".
		if !hasFloatMarker(s) {
			s += ".0"
		}
		return s
	}
}

func hasFloatMarker(s string) bool {
	for _, r := range s {
		if r == '.' || r == 'e' || r == 'E' {
			return true
		}
	}
	return false
}
