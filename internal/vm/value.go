// Package vm implements the bytecode virtual machine that executes a
// verified Module (spec §4.6): value representation, the switch and table
// dispatch strategies, trap-accurate opcode semantics, call frames, and tracing.
// Grounded on the teacher's expression-dispatch evaluator in
// internal/eval, restructured from recursion over an AST into a
// step-based fetch/decode/execute loop over basic blocks.
package vm

import (
	"math"

	"github.com/viper-lang/viper/internal/il"
)

// Value is the VM's runtime register slot. Spec §4.6 describes it as "a
// uniform 64-bit slot" holding sign-extended integers, raw pointers, and
// bit-cast doubles; strings and arrays are runtime-managed objects whose
// handles live in the pointer slot. Representing that slot as a single
// int64 and carrying the object payloads alongside it (rather than boxing
// everything behind an interface) keeps arithmetic on the hot path a
// plain machine-word operation.
type Value struct {
	Type il.Type

	// Bits holds the integer payload (sign-extended to int64) or, for
	// f64, the IEEE-754 bit pattern (see Float/FloatValue).
	Bits int64

	// Str holds the payload for a str-typed value.
	Str string

	// Cell holds the payload for a ptr-typed value addressing an alloca
	// or global's storage slot. Nil for every other pointer.
	Cell *Cell

	// Arr holds the payload for a ptr-typed value addressing a runtime
	// array handle (rt_arr_new et al. and gep element pointers into it).
	// Nil for every other pointer.
	Arr *ArrayHandle
	// ArrOffset is the element index this pointer denotes within Arr,
	// advanced by gep.
	ArrOffset int64

	// FuncRef holds the payload for a ptr-typed value naming a function
	// address (a GlobalAddr operand resolving to a function, not a
	// global variable).
	FuncRef string
}

// Cell is the storage an alloca or module-level global owns.
type Cell struct {
	V Value
}

// ArrayHandle is a runtime-managed, fixed-length i64 array created by
// rt_arr_new. Its lifetime follows the spec's Live -> Released state
// machine; Released handles trap on further use.
type ArrayHandle struct {
	Data     []int64
	Released bool
}

// IntValue builds an integer-typed Value.
func IntValue(t il.Type, i int64) Value { return Value{Type: t, Bits: i} }

// BoolValue builds an i1 Value.
func BoolValue(b bool) Value {
	var n int64
	if b {
		n = 1
	}
	return Value{Type: il.I1, Bits: n}
}

// FloatValue builds an f64 Value, bit-casting f into the slot.
func FloatValue(f float64) Value {
	return Value{Type: il.F64, Bits: int64(math.Float64bits(f))}
}

// StrValue builds a str Value.
func StrValue(s string) Value { return Value{Type: il.Str, Str: s} }

// NullValue builds the null pointer Value.
func NullValue() Value { return Value{Type: il.Ptr} }

// CellValue builds a ptr Value addressing c.
func CellValue(c *Cell) Value { return Value{Type: il.Ptr, Cell: c} }

// ArrValue builds a ptr Value addressing element offset off of h.
func ArrValue(h *ArrayHandle, off int64) Value { return Value{Type: il.Ptr, Arr: h, ArrOffset: off} }

// FuncValue builds a ptr Value naming a function address.
func FuncValue(name string) Value { return Value{Type: il.Ptr, FuncRef: name} }

// Int reads v's integer payload.
func (v Value) Int() int64 { return v.Bits }

// Float reads v's f64 payload.
func (v Value) Float() float64 { return math.Float64frombits(uint64(v.Bits)) }

// Bool reads v's i1 payload.
func (v Value) Bool() bool { return v.Bits != 0 }

// IsNull reports whether v is a null pointer: no cell, array, or
// function-address payload.
func (v Value) IsNull() bool { return v.Cell == nil && v.Arr == nil && v.FuncRef == "" }
