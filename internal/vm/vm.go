package vm

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/vmruntime"
)

// VM executes a verified Module (spec §4.6). It borrows the Module
// immutably during decode and owns a separate, mutable frame stack and
// global-storage arena per run — safe to reuse or discard after Run
// returns, but not safe to call Run on concurrently from two goroutines.
type VM struct {
	Module  *il.Module
	Effects *vmruntime.Registry

	Dispatch     DispatchMode
	MaxSteps     int64 // 0 = unlimited
	BoundsChecks bool
	Trace        TraceMode
	TraceOut     io.Writer

	Stdout io.Writer
	Stdin  io.Reader
	Clock  func() int64

	// Globals holds every module-level global's storage cell, keyed by
	// name, initialised from its declared initializer at construction.
	Globals map[string]*Cell

	externs     map[string]externFunc
	stdinReader *bufio.Reader
	steps       int64
	depth       int
}

// New builds a VM over mod, initialising global storage and the default
// runtime-helper implementations. effects is stored in VM.Effects and is
// not read by the VM, which executes whatever externs are declared,
// whether pure or impure.
func New(mod *il.Module, effects *vmruntime.Registry) *VM {
	vm := &VM{
		Module:       mod,
		Effects:      effects,
		Dispatch:     DispatchSwitch,
		BoundsChecks: true,
		Trace:        TraceOff,
		TraceOut:     os.Stderr,
		Stdout:       os.Stdout,
		Stdin:        os.Stdin,
		Clock:        func() int64 { return time.Now().UnixMilli() },
		Globals:      map[string]*Cell{},
		externs:      builtinExterns(),
	}
	for _, g := range mod.Globals {
		vm.Globals[g.Name] = &Cell{}
	}
	for _, g := range mod.Globals {
		vm.Globals[g.Name].V = vm.initialGlobalValue(g)
	}
	return vm
}

func (vm *VM) initialGlobalValue(g *il.Global) Value {
	switch g.InitKind {
	case il.InitInt:
		return IntValue(g.Type, g.IntVal)
	case il.InitFloat:
		return FloatValue(g.FloatVal)
	case il.InitString:
		return StrValue(g.StrVal)
	case il.InitGlobalAddr:
		if c, ok := vm.Globals[g.AddrOf]; ok {
			return CellValue(c)
		}
		return FuncValue(g.AddrOf)
	case il.InitNull:
		return NullValue()
	default:
		return zeroValueOf(g.Type)
	}
}

// Run executes @main's entry block with the given program arguments
// bound to its parameters (spec §4.6: "Program entry is func @main();
// the VM initialises globals, binds program arguments when supplied, and
// begins execution at @main's entry block"). It returns @main's return
// value (full width; the CLI driver, not the VM, applies the 8-bit
// process exit-code truncation spec §8 invariant 7 describes) or the
// trap that aborted execution.
func (vm *VM) Run(args []int64) (int64, *diag.Diagnostic) {
	main := vm.Module.FindFunction("main")
	if main == nil {
		return 0, diag.New("no function @main")
	}
	fr := newFrame(main)
	for i, p := range main.Params {
		if i < len(args) {
			fr.set(p.ID, IntValue(p.Type, args[i]))
		}
	}
	result, trap := vm.runFrame(fr)
	if trap != nil {
		return 0, trap
	}
	return result.Int(), nil
}

// runFrame is the fetch/decode/execute loop driving one call frame to
// completion, handling terminators (control transfer) directly and
// delegating every other instruction to execStep.
func (vm *VM) runFrame(fr *frame) (Value, *diag.Diagnostic) {
	for {
		if fr.block == nil || fr.ip >= len(fr.block.Instrs) {
			return Value{}, diag.New("fell off end of block without terminator")
		}
		instr := &fr.block.Instrs[fr.ip]

		vm.steps++
		if vm.MaxSteps > 0 && vm.steps > vm.MaxSteps {
			return Value{}, diag.Trap("step budget exceeded", string(instr.Op))
		}
		vm.traceInstr(fr, instr)

		if instr.IsTerminator() {
			v, trap, done := vm.execTerminator(fr, instr)
			if trap != nil {
				return Value{}, trap
			}
			if done {
				return v, nil
			}
			continue
		}

		result, trap := vm.execStep(fr, instr)
		if trap != nil {
			return Value{}, trap
		}
		if instr.HasResult {
			fr.set(instr.Result, result)
		}
		fr.ip++
	}
}

// execTerminator executes a block-ending instruction, returning (value,
// nil, true) on ret, (_, trap, true) on trap/fault, or (_, nil, false)
// after transferring fr to a new block (the caller should loop again).
func (vm *VM) execTerminator(fr *frame, instr *il.Instr) (Value, *diag.Diagnostic, bool) {
	switch instr.Op {
	case il.OpRet:
		if len(instr.Operands) == 1 {
			return vm.eval(fr, instr.Operands[0]), nil, true
		}
		return Value{}, nil, true

	case il.OpTrap:
		msg := "trap"
		if len(instr.Operands) == 1 {
			msg = instr.Operands[0].Str
		}
		return Value{}, diag.Trap(msg, "trap"), true

	case il.OpBr, il.OpResumeLabel:
		target := fr.fn.Block(instr.Labels[0])
		if target == nil {
			return Value{}, diag.New("branch to undefined label " + instr.Labels[0]), true
		}
		fr.gotoBlock(target, instr.BrArgs[0], func(v il.Value) Value { return vm.eval(fr, v) })
		return Value{}, nil, false

	case il.OpCbr:
		cond := vm.eval(fr, instr.Operands[0])
		idx := 1
		if cond.Bool() {
			idx = 0
		}
		target := fr.fn.Block(instr.Labels[idx])
		if target == nil {
			return Value{}, diag.New("branch to undefined label " + instr.Labels[idx]), true
		}
		fr.gotoBlock(target, instr.BrArgs[idx], func(v il.Value) Value { return vm.eval(fr, v) })
		return Value{}, nil, false

	case il.OpSwitchI32:
		sel := vm.eval(fr, instr.Operands[0])
		label, args := instr.Default, instr.DefaultArg
		for i, cv := range instr.CaseVals {
			if int64(cv) == sel.Int() {
				label, args = instr.Labels[i], instr.BrArgs[i]
				break
			}
		}
		target := fr.fn.Block(label)
		if target == nil {
			return Value{}, diag.New("branch to undefined label " + label), true
		}
		fr.gotoBlock(target, args, func(v il.Value) Value { return vm.eval(fr, v) })
		return Value{}, nil, false
	}
	return Value{}, diag.New("unimplemented terminator " + string(instr.Op)), true
}
