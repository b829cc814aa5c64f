package vm

import "github.com/viper-lang/viper/internal/il"

// frame is one call's activation record: spec §4.6 "a call frame captures
// caller IP, allocas live for the frame's duration, and the SSA value
// table". ip is the (block, instruction-index) cursor; regs is the SSA
// value table; allocas owns every Cell this frame's alloca instructions
// created, so they can be reported released once the frame returns (the
// VM does not currently recycle cells, relying on the host GC).
type frame struct {
	fn      *il.Function
	block   *il.BasicBlock
	ip      int
	regs    map[int]Value
	allocas []*Cell
}

func newFrame(fn *il.Function) *frame {
	return &frame{fn: fn, block: fn.Entry(), regs: make(map[int]Value, len(fn.Params)*2)}
}

func (f *frame) get(id int) Value { return f.regs[id] }

func (f *frame) set(id int, v Value) { f.regs[id] = v }

// gotoBlock transfers control to label, copying args into its block
// parameters (spec's φ-like merge semantics: "br L(args…) copies args
// into L's parameter slots, then transfers"). All args are evaluated
// against the pre-transfer register state before any parameter slot is
// written, so a branch like `L(%x,%y): … br L(%y,%x)` swaps the two
// values instead of reading one back after it has already been
// overwritten by the other.
func (f *frame) gotoBlock(target *il.BasicBlock, args []il.Value, eval func(il.Value) Value) {
	n := len(target.Params)
	if n > len(args) {
		n = len(args)
	}
	vals := make([]Value, n)
	for i := 0; i < n; i++ {
		vals[i] = eval(args[i])
	}
	for i := 0; i < n; i++ {
		f.set(target.Params[i].ID, vals[i])
	}
	f.block = target
	f.ip = 0
}
