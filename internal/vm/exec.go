package vm

import (
	"math"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
)

// stepFunc executes one non-terminator instruction and returns its result
// (ignored by the caller when instr.HasResult is false) or a trap.
// Terminators (br/cbr/switch.i32/ret/trap/resume.label) are handled
// directly by runFrame since they drive control transfer rather than
// produce a register value.
type stepFunc func(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic)

// eval resolves an IL operand to a runtime Value against fr's SSA table
// and vm's global storage.
func (vm *VM) eval(fr *frame, v il.Value) Value {
	switch v.Kind {
	case il.VTemp:
		return fr.get(v.ID)
	case il.VConstInt:
		t := il.I64
		if v.IsBool {
			t = il.I1
		}
		return IntValue(t, v.Int)
	case il.VConstFloat:
		return FloatValue(v.Float)
	case il.VConstString:
		return StrValue(v.Str)
	case il.VGlobalAddr:
		if c, ok := vm.Globals[v.Global]; ok {
			return CellValue(c)
		}
		return FuncValue(v.Global)
	case il.VNull:
		return NullValue()
	default:
		return Value{}
	}
}

// execStep executes one non-terminator instruction using vm's configured
// dispatch strategy.
func (vm *VM) execStep(fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	switch vm.Dispatch {
	case DispatchTable:
		fn, ok := opTable[instr.Op]
		if !ok {
			return Value{}, diag.Trap("unimplemented opcode", string(instr.Op))
		}
		return fn(vm, fr, instr)
	default: // DispatchSwitch
		return switchDispatch(vm, fr, instr)
	}
}

// switchDispatch is the "switch" strategy: a single match on opcode per
// step (spec §4.6). Each arm delegates to the same handler function
// opTable indexes for the "table" strategy, so the two strategies execute
// byte-for-byte identical semantics and differ only in how the opcode
// selects its handler.
func switchDispatch(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	switch instr.Op {
	case il.OpAdd, il.OpAddOvf, il.OpSub, il.OpSubOvf, il.OpMul, il.OpMulOvf,
		il.OpSDivChk0, il.OpSRemChk0, il.OpUDivChk0, il.OpURemChk0,
		il.OpSDiv, il.OpSRem, il.OpUDiv, il.OpURem,
		il.OpShl, il.OpLShr, il.OpAShr, il.OpAnd, il.OpOr, il.OpXor:
		return opIntBinop(vm, fr, instr)
	case il.OpFAdd, il.OpFSub, il.OpFMul, il.OpFDiv:
		return opFloatBinop(vm, fr, instr)
	case il.OpCmpEq, il.OpCmpNe, il.OpCmpSLt, il.OpCmpSLe, il.OpCmpSGt, il.OpCmpSGe,
		il.OpCmpULt, il.OpCmpULe, il.OpCmpUGt, il.OpCmpUGe:
		return opIntCompare(vm, fr, instr)
	case il.OpFCmpEq, il.OpFCmpNe, il.OpFCmpLt, il.OpFCmpLe, il.OpFCmpGt, il.OpFCmpGe,
		il.OpFCmpOrd, il.OpFCmpUno:
		return opFloatCompare(vm, fr, instr)
	case il.OpSiToFp, il.OpCastSiToFp:
		return opSiToFp(vm, fr, instr)
	case il.OpZext1:
		return opZext1(vm, fr, instr)
	case il.OpTrunc1:
		return opTrunc1(vm, fr, instr)
	case il.OpCastFpToSiChk:
		return opCastFpToSiChk(vm, fr, instr)
	case il.OpCastSiNarrowChk:
		return opCastSiNarrowChk(vm, fr, instr)
	case il.OpAlloca:
		return opAlloca(vm, fr, instr)
	case il.OpLoad:
		return opLoad(vm, fr, instr)
	case il.OpStore:
		return opStore(vm, fr, instr)
	case il.OpGep:
		return opGep(vm, fr, instr)
	case il.OpCall, il.OpCallIndirect:
		return opCall(vm, fr, instr)
	default:
		return Value{}, diag.Trap("unimplemented opcode", string(instr.Op))
	}
}

var opTable map[il.Opcode]stepFunc

func init() {
	opTable = map[il.Opcode]stepFunc{
		il.OpAdd: opIntBinop, il.OpAddOvf: opIntBinop, il.OpSub: opIntBinop, il.OpSubOvf: opIntBinop,
		il.OpMul: opIntBinop, il.OpMulOvf: opIntBinop,
		il.OpSDivChk0: opIntBinop, il.OpSRemChk0: opIntBinop, il.OpUDivChk0: opIntBinop, il.OpURemChk0: opIntBinop,
		il.OpSDiv: opIntBinop, il.OpSRem: opIntBinop, il.OpUDiv: opIntBinop, il.OpURem: opIntBinop,
		il.OpShl: opIntBinop, il.OpLShr: opIntBinop, il.OpAShr: opIntBinop,
		il.OpAnd: opIntBinop, il.OpOr: opIntBinop, il.OpXor: opIntBinop,

		il.OpFAdd: opFloatBinop, il.OpFSub: opFloatBinop, il.OpFMul: opFloatBinop, il.OpFDiv: opFloatBinop,

		il.OpCmpEq: opIntCompare, il.OpCmpNe: opIntCompare,
		il.OpCmpSLt: opIntCompare, il.OpCmpSLe: opIntCompare, il.OpCmpSGt: opIntCompare, il.OpCmpSGe: opIntCompare,
		il.OpCmpULt: opIntCompare, il.OpCmpULe: opIntCompare, il.OpCmpUGt: opIntCompare, il.OpCmpUGe: opIntCompare,

		il.OpFCmpEq: opFloatCompare, il.OpFCmpNe: opFloatCompare, il.OpFCmpLt: opFloatCompare, il.OpFCmpLe: opFloatCompare,
		il.OpFCmpGt: opFloatCompare, il.OpFCmpGe: opFloatCompare, il.OpFCmpOrd: opFloatCompare, il.OpFCmpUno: opFloatCompare,

		il.OpSiToFp: opSiToFp, il.OpCastSiToFp: opSiToFp,
		il.OpZext1:           opZext1,
		il.OpTrunc1:          opTrunc1,
		il.OpCastFpToSiChk:   opCastFpToSiChk,
		il.OpCastSiNarrowChk: opCastSiNarrowChk,

		il.OpAlloca: opAlloca,
		il.OpLoad:   opLoad,
		il.OpStore:  opStore,
		il.OpGep:    opGep,

		il.OpCall: opCall, il.OpCallIndirect: opCall,
	}
}

func opIntBinop(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	a := vm.eval(fr, instr.Operands[0]).Int()
	b := vm.eval(fr, instr.Operands[1]).Int()
	op := string(instr.Op)

	switch instr.Op {
	case il.OpAdd:
		return IntValue(instr.ResultType, a+b), nil
	case il.OpAddOvf:
		r := a + b
		if overflowsAdd(a, b, r) {
			return Value{}, diag.Trap("signed overflow", op)
		}
		return IntValue(instr.ResultType, r), nil
	case il.OpSub:
		return IntValue(instr.ResultType, a-b), nil
	case il.OpSubOvf:
		r := a - b
		if overflowsSub(a, b, r) {
			return Value{}, diag.Trap("signed overflow", op)
		}
		return IntValue(instr.ResultType, r), nil
	case il.OpMul:
		return IntValue(instr.ResultType, a*b), nil
	case il.OpMulOvf:
		if a == 0 || b == 0 {
			return IntValue(instr.ResultType, 0), nil
		}
		r := a * b
		if r/a != b {
			return Value{}, diag.Trap("signed overflow", op)
		}
		return IntValue(instr.ResultType, r), nil

	case il.OpSDivChk0:
		if b == 0 {
			return Value{}, diag.Trap("division by zero", op)
		}
		if a == math.MinInt64 && b == -1 {
			return Value{}, diag.Trap("signed overflow", op)
		}
		return IntValue(instr.ResultType, a/b), nil
	case il.OpSRemChk0:
		if b == 0 {
			return Value{}, diag.Trap("division by zero", op)
		}
		if a == math.MinInt64 && b == -1 {
			return Value{}, diag.Trap("signed overflow", op)
		}
		return IntValue(instr.ResultType, a%b), nil
	case il.OpUDivChk0:
		if b == 0 {
			return Value{}, diag.Trap("division by zero", op)
		}
		return IntValue(instr.ResultType, int64(uint64(a)/uint64(b))), nil
	case il.OpURemChk0:
		if b == 0 {
			return Value{}, diag.Trap("division by zero", op)
		}
		return IntValue(instr.ResultType, int64(uint64(a)%uint64(b))), nil
	case il.OpSDiv:
		return IntValue(instr.ResultType, a/b), nil
	case il.OpSRem:
		return IntValue(instr.ResultType, a%b), nil
	case il.OpUDiv:
		return IntValue(instr.ResultType, int64(uint64(a)/uint64(b))), nil
	case il.OpURem:
		return IntValue(instr.ResultType, int64(uint64(a)%uint64(b))), nil

	case il.OpShl:
		return IntValue(instr.ResultType, a<<(uint(b)&63)), nil
	case il.OpLShr:
		return IntValue(instr.ResultType, int64(uint64(a)>>(uint(b)&63))), nil
	case il.OpAShr:
		return IntValue(instr.ResultType, a>>(uint(b)&63)), nil

	case il.OpAnd:
		return IntValue(instr.ResultType, a&b), nil
	case il.OpOr:
		return IntValue(instr.ResultType, a|b), nil
	case il.OpXor:
		return IntValue(instr.ResultType, a^b), nil
	}
	return Value{}, diag.Trap("unimplemented opcode", op)
}

func opFloatBinop(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	a := vm.eval(fr, instr.Operands[0]).Float()
	b := vm.eval(fr, instr.Operands[1]).Float()
	switch instr.Op {
	case il.OpFAdd:
		return FloatValue(a + b), nil
	case il.OpFSub:
		return FloatValue(a - b), nil
	case il.OpFMul:
		return FloatValue(a * b), nil
	case il.OpFDiv:
		return FloatValue(a / b), nil
	}
	return Value{}, diag.Trap("unimplemented opcode", string(instr.Op))
}

func opIntCompare(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	a := vm.eval(fr, instr.Operands[0]).Int()
	b := vm.eval(fr, instr.Operands[1]).Int()
	var r bool
	switch instr.Op {
	case il.OpCmpEq:
		r = a == b
	case il.OpCmpNe:
		r = a != b
	case il.OpCmpSLt:
		r = a < b
	case il.OpCmpSLe:
		r = a <= b
	case il.OpCmpSGt:
		r = a > b
	case il.OpCmpSGe:
		r = a >= b
	case il.OpCmpULt:
		r = uint64(a) < uint64(b)
	case il.OpCmpULe:
		r = uint64(a) <= uint64(b)
	case il.OpCmpUGt:
		r = uint64(a) > uint64(b)
	case il.OpCmpUGe:
		r = uint64(a) >= uint64(b)
	}
	return BoolValue(r), nil
}

func opFloatCompare(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	a := vm.eval(fr, instr.Operands[0]).Float()
	b := vm.eval(fr, instr.Operands[1]).Float()
	nan := math.IsNaN(a) || math.IsNaN(b)
	var r bool
	switch instr.Op {
	case il.OpFCmpEq:
		r = !nan && a == b
	case il.OpFCmpNe:
		r = nan || a != b
	case il.OpFCmpLt:
		r = !nan && a < b
	case il.OpFCmpLe:
		r = !nan && a <= b
	case il.OpFCmpGt:
		r = !nan && a > b
	case il.OpFCmpGe:
		r = !nan && a >= b
	case il.OpFCmpOrd:
		r = !nan
	case il.OpFCmpUno:
		r = nan
	}
	return BoolValue(r), nil
}

func opSiToFp(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	n := vm.eval(fr, instr.Operands[0]).Int()
	return FloatValue(float64(n)), nil
}

func opZext1(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	n := vm.eval(fr, instr.Operands[0]).Int()
	return IntValue(instr.ResultType, n&1), nil
}

func opTrunc1(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	n := vm.eval(fr, instr.Operands[0]).Int()
	return BoolValue(n&1 != 0), nil
}

func opCastFpToSiChk(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	f := vm.eval(fr, instr.Operands[0]).Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, diag.Trap("signed overflow", string(instr.Op))
	}
	r := math.RoundToEven(f)
	if r < math.MinInt64 || r >= math.MaxInt64 {
		return Value{}, diag.Trap("signed overflow", string(instr.Op))
	}
	return IntValue(instr.ResultType, int64(r)), nil
}

func opCastSiNarrowChk(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	n := vm.eval(fr, instr.Operands[0]).Int()
	width := instr.ResultType.BitWidth()
	if width > 0 && width < 64 && !fitsSigned(n, width) {
		return Value{}, diag.Trap("truncation loss", string(instr.Op))
	}
	return IntValue(instr.ResultType, n), nil
}

func opAlloca(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	c := &Cell{V: zeroValueOf(instr.AllocType)}
	fr.allocas = append(fr.allocas, c)
	return CellValue(c), nil
}

func opLoad(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	ptr := vm.eval(fr, instr.Operands[0])
	if ptr.Arr != nil {
		if ptr.Arr.Released {
			return Value{}, diag.Trap("use after release", "load")
		}
		if vm.BoundsChecks && (ptr.ArrOffset < 0 || ptr.ArrOffset >= int64(len(ptr.Arr.Data))) {
			return Value{}, diag.Trap("index out of range", "load")
		}
		if ptr.ArrOffset < 0 || ptr.ArrOffset >= int64(len(ptr.Arr.Data)) {
			return IntValue(instr.ResultType, 0), nil
		}
		return IntValue(instr.ResultType, ptr.Arr.Data[ptr.ArrOffset]), nil
	}
	if ptr.Cell == nil {
		return Value{}, diag.Trap("null pointer dereference", "load")
	}
	return ptr.Cell.V, nil
}

func opStore(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	ptr := vm.eval(fr, instr.Operands[0])
	val := vm.eval(fr, instr.Operands[1])
	if ptr.Arr != nil {
		if ptr.Arr.Released {
			return Value{}, diag.Trap("use after release", "store")
		}
		if vm.BoundsChecks && (ptr.ArrOffset < 0 || ptr.ArrOffset >= int64(len(ptr.Arr.Data))) {
			return Value{}, diag.Trap("index out of range", "store")
		}
		if ptr.ArrOffset >= 0 && ptr.ArrOffset < int64(len(ptr.Arr.Data)) {
			ptr.Arr.Data[ptr.ArrOffset] = val.Int()
		}
		return Value{}, nil
	}
	if ptr.Cell == nil {
		return Value{}, diag.Trap("null pointer dereference", "store")
	}
	ptr.Cell.V = val
	return Value{}, nil
}

// opGep computes an element pointer. Since the IL's type system has no
// array/struct type (only scalar void/i1/i16/i32/i64/f32/f64/ptr/str —
// internal/il/types.go), gep's only sensible target is a ptr value that
// already carries a runtime array handle (from rt_arr_new or a prior
// gep): the result advances that handle's element offset by idx, giving
// load/store a second, call-free access path to the same memory
// rt_arr_get/rt_arr_set expose. A gep of a non-array pointer (an alloca
// cell, null) traps; the verifier only checks the index operand's type
// (internal/ilverify/verify.go), leaving this runtime behavior undefined
// by spec.md and decided here.
func opGep(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	base := vm.eval(fr, instr.Operands[0])
	idx := vm.eval(fr, instr.Operands[1]).Int()
	if base.Arr == nil {
		return Value{}, diag.Trap("null pointer dereference", "gep")
	}
	if base.Arr.Released {
		return Value{}, diag.Trap("use after release", "gep")
	}
	return ArrValue(base.Arr, base.ArrOffset+idx), nil
}

func zeroValueOf(t il.Type) Value {
	switch {
	case t.IsFloat():
		return FloatValue(0)
	case t == il.Ptr:
		return NullValue()
	case t == il.Str:
		return StrValue("")
	default:
		return IntValue(t, 0)
	}
}
