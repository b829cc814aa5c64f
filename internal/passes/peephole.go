package passes

import (
	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

const maxPeepholeIterations = 8

// Peephole returns a function pass implementing spec §4.5.e: algebraic
// identity simplification. Each matched instruction's result id is
// substituted by the equivalent operand or constant everywhere it is
// used and the instruction is dropped, the same mechanism ConstFold uses.
//
// Deliberately NOT implemented: double-negation collapse and
// strength-reduction of mul by a power of two into a shift. Both are
// non-features pinned by regression tests elsewhere in this package.
func Peephole() func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
	return func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		anyChanged := false
		for iter := 0; iter < maxPeepholeIterations; iter++ {
			subst := map[int]il.Value{}
			for _, b := range fn.Blocks {
				for _, instr := range b.Instrs {
					if !instr.HasResult {
						continue
					}
					if _, already := subst[instr.Result]; already {
						continue
					}
					if v, ok := tryPeephole(instr); ok {
						subst[instr.Result] = v
					}
				}
			}
			if len(subst) == 0 {
				break
			}
			for _, b := range fn.Blocks {
				substituteBlock(b, subst)
			}
			for _, b := range fn.Blocks {
				var kept []il.Instr
				for _, instr := range b.Instrs {
					if instr.HasResult {
						if _, folded := subst[instr.Result]; folded {
							continue
						}
					}
					kept = append(kept, instr)
				}
				b.Instrs = kept
			}
			anyChanged = true
		}
		if anyChanged {
			return analysis.PreservedNone()
		}
		return analysis.PreservedAll()
	}
}

// tryPeephole matches a single algebraic identity against instr's operand
// shape, returning the replacement value on success. It only ever
// replaces an instruction with one of its existing operands or a freshly
// constructed constant — never with another instruction's result — so it
// composes safely with ConstFold and DCE running before or after it.
func tryPeephole(instr il.Instr) (il.Value, bool) {
	switch instr.Op {
	case il.OpAdd:
		return identityBinop(instr, isZero, isZero)
	case il.OpSub:
		if len(instr.Operands) == 2 && instr.Operands[0].Equal(instr.Operands[1]) {
			return il.ConstInt(0), true
		}
		return identityBinop(instr, nil, isZero)
	case il.OpMul:
		if v, ok := identityBinop(instr, isOne, isOne); ok {
			return v, true
		}
		if zeroOperand(instr, isZero) {
			return il.ConstInt(0), true
		}
		return il.Value{}, false
	case il.OpShl, il.OpLShr, il.OpAShr:
		return identityBinop(instr, nil, isZero)
	case il.OpSDivChk0, il.OpSDiv, il.OpUDivChk0, il.OpUDiv:
		return identityBinop(instr, nil, isOne)
	case il.OpSRemChk0, il.OpSRem, il.OpURemChk0, il.OpURem:
		if len(instr.Operands) == 2 && isOne(instr.Operands[1]) {
			return il.ConstInt(0), true
		}
		return il.Value{}, false
	case il.OpAnd:
		if zeroOperand(instr, isZero) {
			return il.ConstInt(0), true
		}
		return identityBinop(instr, isAllOnes, isAllOnes)
	case il.OpOr:
		if zeroOperand(instr, isAllOnes) {
			return il.ConstInt(-1), true
		}
		return identityBinop(instr, isZero, isZero)
	case il.OpXor:
		if len(instr.Operands) == 2 && instr.Operands[0].Equal(instr.Operands[1]) {
			return il.ConstInt(0), true
		}
		return identityBinop(instr, isZero, isZero)
	case il.OpCmpEq:
		if len(instr.Operands) == 2 && instr.Operands[0].Equal(instr.Operands[1]) {
			return il.ConstBool(true), true
		}
		return il.Value{}, false
	case il.OpCmpNe:
		if len(instr.Operands) == 2 && instr.Operands[0].Equal(instr.Operands[1]) {
			return il.ConstBool(false), true
		}
		return il.Value{}, false
	default:
		return il.Value{}, false
	}
}

func isZero(v il.Value) bool  { return v.Kind == il.VConstInt && !v.IsBool && v.Int == 0 }
func isOne(v il.Value) bool   { return v.Kind == il.VConstInt && !v.IsBool && v.Int == 1 }
func isAllOnes(v il.Value) bool {
	return v.Kind == il.VConstInt && !v.IsBool && v.Int == -1
}

// identityBinop matches `op lhs, rhs` where rhs is the identity element
// (rhsIdentity(rhs) true) returning lhs, or where lhs is the identity
// element (lhsIdentity(lhs) true) returning rhs. Either predicate may be
// nil to skip that side.
func identityBinop(instr il.Instr, lhsIdentity, rhsIdentity func(il.Value) bool) (il.Value, bool) {
	if len(instr.Operands) != 2 {
		return il.Value{}, false
	}
	lhs, rhs := instr.Operands[0], instr.Operands[1]
	if rhsIdentity != nil && rhsIdentity(rhs) {
		return lhs, true
	}
	if lhsIdentity != nil && lhsIdentity(lhs) {
		return rhs, true
	}
	return il.Value{}, false
}

// zeroOperand reports whether either operand of a commutative binop
// satisfies pred, used for absorbing-element identities (mul x,0; and
// x,0; or x,-1).
func zeroOperand(instr il.Instr, pred func(il.Value) bool) bool {
	if len(instr.Operands) != 2 {
		return false
	}
	return pred(instr.Operands[0]) || pred(instr.Operands[1])
}
