package vm

import (
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
)

// defaultMaxRecursionDepth bounds call-stack depth against runaway
// recursion, grounded on the teacher's eval.CoreEvaluator's
// maxRecursionDepth default (internal/eval/eval_evaluator.go: 10,000).
const defaultMaxRecursionDepth = 10000

// opCall executes call/call.indirect. Per the parser (ilparser/
// parser_instr.go), both opcodes have the identical syntax `@name(args…)`
// — call.indirect carries no actual function-pointer or vtable, it is
// purely a conservative-purity marker for DCE/analysis. At the VM level
// the two dispatch identically.
func opCall(vm *VM, fr *frame, instr *il.Instr) (Value, *diag.Diagnostic) {
	args := make([]Value, len(instr.Operands))
	for i, o := range instr.Operands {
		args[i] = vm.eval(fr, o)
	}
	return vm.call(instr.Callee, args)
}

// call resolves name to a function definition or a runtime helper and
// invokes it, capturing a fresh call frame (spec §4.6: "a call frame
// captures caller IP, allocas live for the frame's duration, and the SSA
// value table" — the caller's own frame is left on vm's Go call stack,
// which stands in for an explicit frame stack).
func (vm *VM) call(name string, args []Value) (Value, *diag.Diagnostic) {
	if fn := vm.Module.FindFunction(name); fn != nil {
		vm.depth++
		if vm.depth > defaultMaxRecursionDepth {
			vm.depth--
			return Value{}, diag.Trap("stack overflow", name)
		}
		callee := newFrame(fn)
		for i, p := range fn.Params {
			if i < len(args) {
				callee.set(p.ID, args[i])
			}
		}
		result, trap := vm.runFrame(callee)
		vm.depth--
		return result, trap
	}
	if ext, ok := vm.externs[name]; ok {
		return ext(vm, args)
	}
	if vm.Module.FindExtern(name) != nil {
		return Value{}, diag.Trap("unimplemented runtime helper", name)
	}
	return Value{}, diag.Trap("call to undeclared function", name)
}
