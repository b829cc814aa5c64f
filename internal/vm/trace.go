package vm

import (
	"fmt"
	"strconv"

	"github.com/viper-lang/viper/internal/il"
)

// TraceMode selects the VM's tracing output (spec §4.6: "two modes, off
// by default").
type TraceMode int

const (
	TraceOff TraceMode = iota
	// TraceIL prints each executed instruction and its operand values
	// before executing it.
	TraceIL
	// TraceSource prints the source line the instruction was parsed
	// from, derived from Instr.Line.
	TraceSource
)

func (vm *VM) traceInstr(fr *frame, instr *il.Instr) {
	if vm.Trace == TraceOff || vm.TraceOut == nil {
		return
	}
	switch vm.Trace {
	case TraceIL:
		fmt.Fprintf(vm.TraceOut, "%s.%s: %s", fr.fn.Name, fr.block.Label, instr.Op)
		for i, o := range instr.Operands {
			if i > 0 {
				fmt.Fprint(vm.TraceOut, ",")
			}
			fmt.Fprintf(vm.TraceOut, " %s", displayValue(vm.eval(fr, o)))
		}
		fmt.Fprintln(vm.TraceOut)
	case TraceSource:
		if instr.Line > 0 {
			fmt.Fprintf(vm.TraceOut, "line %d: %s\n", instr.Line, instr.Op)
		}
	}
}

// displayValue renders a runtime Value the way IL-level tracing prints
// it: booleans as true/false to preserve parse/print symmetry (spec
// §4.6), matching il.Value.String's textual convention for everything
// else.
func displayValue(v Value) string {
	switch v.Type {
	case il.I1:
		if v.Bool() {
			return "true"
		}
		return "false"
	case il.F32, il.F64:
		return formatFloat(v.Float())
	case il.Str:
		return strconv.Quote(v.Str)
	case il.Ptr:
		switch {
		case v.Arr != nil:
			return "<array>"
		case v.Cell != nil:
			return "<cell>"
		case v.FuncRef != "":
			return "@" + v.FuncRef
		default:
			return "null"
		}
	default:
		return strconv.FormatInt(v.Int(), 10)
	}
}
