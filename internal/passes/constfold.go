package passes

import (
	"math"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

const maxConstFoldIterations = 8

// ConstFold returns a function pass implementing spec §4.5.d: single-
// instruction constant folding. Since the IL has no literal-producing
// pseudo-instruction, a folded instruction's result id is substituted by
// its constant value everywhere it is used; the now-unreferenced
// instruction is then dropped. It never folds an operation that would
// trap at runtime (div/rem by zero or INT_MIN/-1, out-of-range shifts,
// non-finite float results, unrepresentable conversions) so trap
// preservation (spec §8 invariant 3) holds.
func ConstFold() func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
	return func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		anyChanged := false
		for iter := 0; iter < maxConstFoldIterations; iter++ {
			subst := map[int]il.Value{}
			for _, b := range fn.Blocks {
				for _, instr := range b.Instrs {
					if !instr.HasResult {
						continue
					}
					if _, already := subst[instr.Result]; already {
						continue
					}
					if v, ok := tryFold(instr); ok {
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

// tryFold evaluates instr and returns its folded constant value, if any
// operand set and opcode combination is safely foldable.
func tryFold(instr il.Instr) (il.Value, bool) {
	for _, op := range instr.Operands {
		if !op.IsConst() {
			return il.Value{}, false
		}
	}

	switch instr.Op {
	case il.OpAdd:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) { return a + b, true })
	case il.OpSub:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) { return a - b, true })
	case il.OpMul:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) { return a * b, true })
	case il.OpAddOvf:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) {
			r := a + b
			if overflowsAdd(a, b, r) {
				return 0, false
			}
			return r, true
		})
	case il.OpSubOvf:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) {
			r := a - b
			if overflowsSub(a, b, r) {
				return 0, false
			}
			return r, true
		})
	case il.OpMulOvf:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) {
			if a == 0 || b == 0 {
				return 0, true
			}
			r := a * b
			if r/a != b {
				return 0, false
			}
			return r, true
		})

	case il.OpSDivChk0, il.OpSDiv:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) {
			if b == 0 || (a == math.MinInt64 && b == -1) {
				return 0, false
			}
			return a / b, true
		})
	case il.OpSRemChk0, il.OpSRem:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) {
			if b == 0 || (a == math.MinInt64 && b == -1) {
				return 0, false
			}
			return a % b, true
		})
	case il.OpUDivChk0, il.OpUDiv:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return int64(uint64(a) / uint64(b)), true
		})
	case il.OpURemChk0, il.OpURem:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) {
			if b == 0 {
				return 0, false
			}
			return int64(uint64(a) % uint64(b)), true
		})

	case il.OpShl:
		return foldShift(instr, func(a int64, n uint) int64 { return a << n })
	case il.OpLShr:
		return foldShift(instr, func(a int64, n uint) int64 { return int64(uint64(a) >> n) })
	case il.OpAShr:
		return foldShift(instr, func(a int64, n uint) int64 { return a >> n })

	case il.OpAnd:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) { return a & b, true })
	case il.OpOr:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) { return a | b, true })
	case il.OpXor:
		return foldIntBinop(instr, func(a, b int64) (int64, bool) { return a ^ b, true })

	case il.OpFAdd:
		return foldFloatBinop(instr, func(a, b float64) float64 { return a + b })
	case il.OpFSub:
		return foldFloatBinop(instr, func(a, b float64) float64 { return a - b })
	case il.OpFMul:
		return foldFloatBinop(instr, func(a, b float64) float64 { return a * b })
	case il.OpFDiv:
		return foldFloatBinop(instr, func(a, b float64) float64 { return a / b })

	case il.OpCmpEq:
		return foldIntCompare(instr, func(a, b int64) bool { return a == b })
	case il.OpCmpNe:
		return foldIntCompare(instr, func(a, b int64) bool { return a != b })
	case il.OpCmpSLt:
		return foldIntCompare(instr, func(a, b int64) bool { return a < b })
	case il.OpCmpSLe:
		return foldIntCompare(instr, func(a, b int64) bool { return a <= b })
	case il.OpCmpSGt:
		return foldIntCompare(instr, func(a, b int64) bool { return a > b })
	case il.OpCmpSGe:
		return foldIntCompare(instr, func(a, b int64) bool { return a >= b })
	case il.OpCmpULt:
		return foldIntCompare(instr, func(a, b int64) bool { return uint64(a) < uint64(b) })
	case il.OpCmpULe:
		return foldIntCompare(instr, func(a, b int64) bool { return uint64(a) <= uint64(b) })
	case il.OpCmpUGt:
		return foldIntCompare(instr, func(a, b int64) bool { return uint64(a) > uint64(b) })
	case il.OpCmpUGe:
		return foldIntCompare(instr, func(a, b int64) bool { return uint64(a) >= uint64(b) })

	case il.OpFCmpEq:
		return foldFloatCompare(instr, func(a, b float64) bool { return a == b })
	case il.OpFCmpNe:
		return foldFloatCompare(instr, func(a, b float64) bool { return a != b })
	case il.OpFCmpLt:
		return foldFloatCompare(instr, func(a, b float64) bool { return a < b })
	case il.OpFCmpLe:
		return foldFloatCompare(instr, func(a, b float64) bool { return a <= b })
	case il.OpFCmpGt:
		return foldFloatCompare(instr, func(a, b float64) bool { return a > b })
	case il.OpFCmpGe:
		return foldFloatCompare(instr, func(a, b float64) bool { return a >= b })
	case il.OpFCmpOrd:
		return foldFloatCompareRaw(instr, func(a, b float64) bool { return !math.IsNaN(a) && !math.IsNaN(b) })
	case il.OpFCmpUno:
		return foldFloatCompareRaw(instr, func(a, b float64) bool { return math.IsNaN(a) || math.IsNaN(b) })

	case il.OpSiToFp, il.OpCastSiToFp:
		n, ok := asInt(instr.Operands[0])
		if !ok {
			return il.Value{}, false
		}
		return il.ConstFloat(float64(n)), true

	case il.OpZext1:
		n, ok := asInt(instr.Operands[0])
		if !ok {
			return il.Value{}, false
		}
		return il.ConstInt(n & 1), true

	case il.OpTrunc1:
		n, ok := asInt(instr.Operands[0])
		if !ok {
			return il.Value{}, false
		}
		return il.ConstBool(n&1 != 0), true

	case il.OpCastFpToSiChk:
		f, ok := asFloat(instr.Operands[0])
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return il.Value{}, false
		}
		r := math.RoundToEven(f)
		if r < math.MinInt64 || r >= math.MaxInt64 {
			return il.Value{}, false
		}
		return il.ConstInt(int64(r)), true

	case il.OpCastSiNarrowChk:
		n, ok := asInt(instr.Operands[0])
		if !ok {
			return il.Value{}, false
		}
		width := instr.ResultType.BitWidth()
		if width == 0 || width >= 64 {
			return il.ConstInt(n), true
		}
		if !fitsSigned(n, width) {
			return il.Value{}, false
		}
		return il.ConstInt(n), true

	case il.OpCall:
		return foldPureHelper(instr)

	default:
		return il.Value{}, false
	}
}

func foldIntBinop(instr il.Instr, f func(a, b int64) (int64, bool)) (il.Value, bool) {
	a, ok1 := asInt(instr.Operands[0])
	b, ok2 := asInt(instr.Operands[1])
	if !ok1 || !ok2 {
		return il.Value{}, false
	}
	r, ok := f(a, b)
	if !ok {
		return il.Value{}, false
	}
	return il.ConstInt(r), true
}

func foldShift(instr il.Instr, f func(a int64, n uint) int64) (il.Value, bool) {
	a, ok1 := asInt(instr.Operands[0])
	n, ok2 := asInt(instr.Operands[1])
	if !ok1 || !ok2 {
		return il.Value{}, false
	}
	width := instr.ResultType.BitWidth()
	if width == 0 {
		width = 64
	}
	if n < 0 || n >= int64(width) {
		return il.Value{}, false
	}
	return il.ConstInt(f(a, uint(n))), true
}

func foldFloatBinop(instr il.Instr, f func(a, b float64) float64) (il.Value, bool) {
	a, ok1 := asFloat(instr.Operands[0])
	b, ok2 := asFloat(instr.Operands[1])
	if !ok1 || !ok2 {
		return il.Value{}, false
	}
	r := f(a, b)
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return il.Value{}, false
	}
	return il.ConstFloat(r), true
}

func foldIntCompare(instr il.Instr, f func(a, b int64) bool) (il.Value, bool) {
	a, ok1 := asInt(instr.Operands[0])
	b, ok2 := asInt(instr.Operands[1])
	if !ok1 || !ok2 {
		return il.Value{}, false
	}
	return il.ConstBool(f(a, b)), true
}

func foldFloatCompare(instr il.Instr, f func(a, b float64) bool) (il.Value, bool) {
	a, ok1 := asFloat(instr.Operands[0])
	b, ok2 := asFloat(instr.Operands[1])
	if !ok1 || !ok2 {
		return il.Value{}, false
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return il.ConstBool(false), true
	}
	return il.ConstBool(f(a, b)), true
}

func foldFloatCompareRaw(instr il.Instr, f func(a, b float64) bool) (il.Value, bool) {
	a, ok1 := asFloat(instr.Operands[0])
	b, ok2 := asFloat(instr.Operands[1])
	if !ok1 || !ok2 {
		return il.Value{}, false
	}
	return il.ConstBool(f(a, b)), true
}

func asInt(v il.Value) (int64, bool) {
	if v.Kind != il.VConstInt {
		return 0, false
	}
	return v.Int, true
}

func asFloat(v il.Value) (float64, bool) {
	if v.Kind != il.VConstFloat {
		return 0, false
	}
	return v.Float, true
}

func overflowsAdd(a, b, r int64) bool {
	return ((a ^ r) & (b ^ r)) < 0
}

func overflowsSub(a, b, r int64) bool {
	return ((a ^ b) & (a ^ r)) < 0
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func fitsSigned(v int64, width int) bool {
	if width >= 64 {
		return true
	}
	max := int64(1)<<(width-1) - 1
	min := -(int64(1) << (width - 1))
	return v >= min && v <= max
}

// foldPureHelper folds a subset of pure runtime helpers (spec §4.5.d) when
// their sole argument is a finite constant and the result is
// representable.
func foldPureHelper(instr il.Instr) (il.Value, bool) {
	if len(instr.Operands) != 1 {
		return il.Value{}, false
	}
	arg := instr.Operands[0]
	switch instr.Callee {
	case "rt_abs_i64", "rt_sgn_i64":
		n, ok := asInt(arg)
		if !ok {
			return il.Value{}, false
		}
		switch instr.Callee {
		case "rt_abs_i64":
			if n == math.MinInt64 {
				return il.Value{}, false
			}
			return il.ConstInt(abs64(n)), true
		default: // rt_sgn_i64
			switch {
			case n > 0:
				return il.ConstInt(1), true
			case n < 0:
				return il.ConstInt(-1), true
			default:
				return il.ConstInt(0), true
			}
		}
	case "rt_abs_f64", "rt_sqrt", "rt_floor", "rt_ceil", "rt_sin", "rt_cos":
		f, ok := asFloat(arg)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return il.Value{}, false
		}
		var r float64
		switch instr.Callee {
		case "rt_abs_f64":
			r = math.Abs(f)
		case "rt_sqrt":
			if f < 0 {
				return il.Value{}, false
			}
			r = math.Sqrt(f)
		case "rt_floor":
			r = math.Floor(f)
		case "rt_ceil":
			r = math.Ceil(f)
		case "rt_sin":
			r = math.Sin(f)
		case "rt_cos":
			r = math.Cos(f)
		}
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return il.Value{}, false
		}
		return il.ConstFloat(r), true
	default:
		return il.Value{}, false
	}
}
