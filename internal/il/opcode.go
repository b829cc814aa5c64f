package il

// Opcode names an instruction. Viper's textual IL uses dotted opcode names
// (e.g. "sdiv.chk0", "cast.fp_to_si.rte.chk"); representing Opcode as a
// plain string keeps the parser/printer/VM all agreeing on the same
// vocabulary without a three-way name-to-enum mapping to keep in sync.
type Opcode string

// Terminators.
const (
	OpBr          Opcode = "br"
	OpCbr         Opcode = "cbr"
	OpSwitchI32   Opcode = "switch.i32"
	OpRet         Opcode = "ret"
	OpTrap        Opcode = "trap"
	OpResumeLabel Opcode = "resume.label"
)

// Arithmetic.
const (
	OpAdd    Opcode = "add"
	OpAddOvf Opcode = "add.ovf"
	OpSub    Opcode = "sub"
	OpSubOvf Opcode = "sub.ovf"
	OpMul    Opcode = "mul"
	OpMulOvf Opcode = "mul.ovf"

	OpSDivChk0 Opcode = "sdiv.chk0"
	OpSRemChk0 Opcode = "srem.chk0"
	OpUDivChk0 Opcode = "udiv.chk0"
	OpURemChk0 Opcode = "urem.chk0"
	OpSDiv     Opcode = "sdiv"
	OpSRem     Opcode = "srem"
	OpUDiv     Opcode = "udiv"
	OpURem     Opcode = "urem"

	OpShl  Opcode = "shl"
	OpLShr Opcode = "lshr"
	OpAShr Opcode = "ashr"

	OpAnd Opcode = "and"
	OpOr  Opcode = "or"
	OpXor Opcode = "xor"
)

// Float arithmetic.
const (
	OpFAdd Opcode = "fadd"
	OpFSub Opcode = "fsub"
	OpFMul Opcode = "fmul"
	OpFDiv Opcode = "fdiv"
)

// Comparisons.
const (
	OpCmpEq  Opcode = "cmp.eq"
	OpCmpNe  Opcode = "cmp.ne"
	OpCmpSLt Opcode = "cmp.slt"
	OpCmpSLe Opcode = "cmp.sle"
	OpCmpSGt Opcode = "cmp.sgt"
	OpCmpSGe Opcode = "cmp.sge"
	OpCmpULt Opcode = "cmp.ult"
	OpCmpULe Opcode = "cmp.ule"
	OpCmpUGt Opcode = "cmp.ugt"
	OpCmpUGe Opcode = "cmp.uge"

	OpFCmpEq  Opcode = "fcmp.eq"
	OpFCmpNe  Opcode = "fcmp.ne"
	OpFCmpLt  Opcode = "fcmp.lt"
	OpFCmpLe  Opcode = "fcmp.le"
	OpFCmpGt  Opcode = "fcmp.gt"
	OpFCmpGe  Opcode = "fcmp.ge"
	OpFCmpOrd Opcode = "fcmp.ord"
	OpFCmpUno Opcode = "fcmp.uno"
)

// Conversions.
const (
	OpSiToFp          Opcode = "sitofp"
	OpCastSiToFp      Opcode = "cast.si_to_fp"
	OpZext1           Opcode = "zext1"
	OpTrunc1          Opcode = "trunc1"
	OpCastFpToSiChk   Opcode = "cast.fp_to_si.rte.chk"
	OpCastSiNarrowChk Opcode = "cast.si_narrow.chk"
)

// Memory.
const (
	OpAlloca Opcode = "alloca"
	OpLoad   Opcode = "load"
	OpStore  Opcode = "store"
	OpGep    Opcode = "gep"
)

// Calls.
const (
	OpCall         Opcode = "call"
	OpCallIndirect Opcode = "call.indirect"
)

// IsTerminator reports whether op may only appear as a block's last
// instruction.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpBr, OpCbr, OpSwitchI32, OpRet, OpTrap, OpResumeLabel:
		return true
	default:
		return false
	}
}

// IsOverflowChecked reports whether op traps on signed overflow (".ovf").
func (op Opcode) IsOverflowChecked() bool {
	switch op {
	case OpAddOvf, OpSubOvf, OpMulOvf:
		return true
	default:
		return false
	}
}

// IsCheckedDivRem reports whether op traps on zero divisor / INT_MIN-over--1
// (".chk0").
func (op Opcode) IsCheckedDivRem() bool {
	switch op {
	case OpSDivChk0, OpSRemChk0, OpUDivChk0, OpURemChk0:
		return true
	default:
		return false
	}
}

// IsSigned reports whether op is a signed integer arithmetic opcode (used
// to decide whether the INT_MIN/-1 special case applies).
func (op Opcode) IsSigned() bool {
	switch op {
	case OpSDivChk0, OpSRemChk0, OpSDiv, OpSRem,
		OpCmpSLt, OpCmpSLe, OpCmpSGt, OpCmpSGe, OpAShr:
		return true
	default:
		return false
	}
}

// Arity returns the number of value operands a non-terminator,
// non-call, non-alloca instruction of this opcode takes: 1 for unary
// (conversions, unary runtime helpers handled via call) or 2 for binary
// arithmetic/comparison ops. Returns 0 for opcodes with bespoke operand
// shapes (load/store/gep/call/br/cbr/switch/ret/trap) which the parser
// handles directly.
func (op Opcode) Arity() int {
	switch op {
	case OpSiToFp, OpCastSiToFp, OpZext1, OpTrunc1, OpCastFpToSiChk, OpCastSiNarrowChk:
		return 1
	case OpAdd, OpAddOvf, OpSub, OpSubOvf, OpMul, OpMulOvf,
		OpSDivChk0, OpSRemChk0, OpUDivChk0, OpURemChk0, OpSDiv, OpSRem, OpUDiv, OpURem,
		OpShl, OpLShr, OpAShr, OpAnd, OpOr, OpXor,
		OpFAdd, OpFSub, OpFMul, OpFDiv,
		OpCmpEq, OpCmpNe, OpCmpSLt, OpCmpSLe, OpCmpSGt, OpCmpSGe,
		OpCmpULt, OpCmpULe, OpCmpUGt, OpCmpUGe,
		OpFCmpEq, OpFCmpNe, OpFCmpLt, OpFCmpLe, OpFCmpGt, OpFCmpGe, OpFCmpOrd, OpFCmpUno:
		return 2
	default:
		return 0
	}
}

// IsFloatOp reports whether op operates on float operands.
func (op Opcode) IsFloatOp() bool {
	switch op {
	case OpFAdd, OpFSub, OpFMul, OpFDiv,
		OpFCmpEq, OpFCmpNe, OpFCmpLt, OpFCmpLe, OpFCmpGt, OpFCmpGe, OpFCmpOrd, OpFCmpUno:
		return true
	default:
		return false
	}
}

// IsCompare reports whether op yields an i1 comparison result.
func (op Opcode) IsCompare() bool {
	switch op {
	case OpCmpEq, OpCmpNe, OpCmpSLt, OpCmpSLe, OpCmpSGt, OpCmpSGe,
		OpCmpULt, OpCmpULe, OpCmpUGt, OpCmpUGe,
		OpFCmpEq, OpFCmpNe, OpFCmpLt, OpFCmpLe, OpFCmpGt, OpFCmpGe, OpFCmpOrd, OpFCmpUno:
		return true
	default:
		return false
	}
}

// HasResult reports whether op produces an SSA result id in normal use.
func (op Opcode) HasResult() bool {
	switch op {
	case OpBr, OpCbr, OpSwitchI32, OpRet, OpTrap, OpResumeLabel, OpStore:
		return false
	default:
		return true
	}
}
