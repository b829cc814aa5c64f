package vm

import (
	"bufio"
	"fmt"
	"math"
	"strings"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
)

// externFunc is a runtime helper's executable implementation. vmruntime's
// Registry only classifies each rt_* symbol's purity and signature (the
// metadata DCE/ConstFold consult); this table supplies the Go code the VM
// actually runs when it dispatches a call to one of those symbols.
type externFunc func(v *VM, args []Value) (Value, *diag.Diagnostic)

// builtinExterns returns the default rt_* implementation table, grounded
// on vmruntime.Default()'s symbol list (internal/vmruntime/registry.go).
func builtinExterns() map[string]externFunc {
	return map[string]externFunc{
		"rt_abs_i64": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			n := args[0].Int()
			if n == math.MinInt64 {
				return Value{}, diag.Trap("signed overflow", "rt_abs_i64")
			}
			if n < 0 {
				n = -n
			}
			return IntValue(il.I64, n), nil
		},
		"rt_sgn_i64": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			n := args[0].Int()
			switch {
			case n > 0:
				return IntValue(il.I64, 1), nil
			case n < 0:
				return IntValue(il.I64, -1), nil
			default:
				return IntValue(il.I64, 0), nil
			}
		},
		"rt_abs_f64": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			return FloatValue(math.Abs(args[0].Float())), nil
		},
		"rt_sqrt": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			return FloatValue(math.Sqrt(args[0].Float())), nil
		},
		"rt_floor": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			return FloatValue(math.Floor(args[0].Float())), nil
		},
		"rt_ceil": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			return FloatValue(math.Ceil(args[0].Float())), nil
		},
		"rt_sin": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			return FloatValue(math.Sin(args[0].Float())), nil
		},
		"rt_cos": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			return FloatValue(math.Cos(args[0].Float())), nil
		},

		"rt_print_i64": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			fmt.Fprintf(v.Stdout, "%d", args[0].Int())
			return Value{}, nil
		},
		"rt_print_f64": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			fmt.Fprintf(v.Stdout, "%s", formatFloat(args[0].Float()))
			return Value{}, nil
		},
		"rt_print_str": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			fmt.Fprint(v.Stdout, args[0].Str)
			return Value{}, nil
		},
		"rt_read_line": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			if v.stdinReader == nil {
				v.stdinReader = bufio.NewReader(v.Stdin)
			}
			line, err := v.stdinReader.ReadString('\n')
			line = strings.TrimRight(line, "\r\n")
			if err != nil && line == "" {
				return StrValue(""), nil
			}
			return StrValue(line), nil
		},

		"rt_arr_new": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			n := args[0].Int()
			if n < 0 {
				return Value{}, diag.Trap("negative array length", "rt_arr_new")
			}
			h := &ArrayHandle{Data: make([]int64, n)}
			return ArrValue(h, 0), nil
		},
		"rt_arr_get": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			h, idx, d := arrHandle(args[0], args[1].Int(), "rt_arr_get")
			if d != nil {
				return Value{}, d
			}
			if v.BoundsChecks && (idx < 0 || idx >= int64(len(h.Data))) {
				return Value{}, diag.Trap("index out of range", "rt_arr_get")
			}
			if idx < 0 || idx >= int64(len(h.Data)) {
				return IntValue(il.I64, 0), nil
			}
			return IntValue(il.I64, h.Data[idx]), nil
		},
		"rt_arr_set": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			h, idx, d := arrHandle(args[0], args[1].Int(), "rt_arr_set")
			if d != nil {
				return Value{}, d
			}
			if v.BoundsChecks && (idx < 0 || idx >= int64(len(h.Data))) {
				return Value{}, diag.Trap("index out of range", "rt_arr_set")
			}
			if idx >= 0 && idx < int64(len(h.Data)) {
				h.Data[idx] = args[2].Int()
			}
			return Value{}, nil
		},
		"rt_arr_len": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			if args[0].Arr == nil {
				return Value{}, diag.Trap("null pointer dereference", "rt_arr_len")
			}
			if args[0].Arr.Released {
				return Value{}, diag.Trap("use after release", "rt_arr_len")
			}
			return IntValue(il.I64, int64(len(args[0].Arr.Data))), nil
		},
		"rt_arr_release": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			h := args[0].Arr
			if h == nil {
				return Value{}, diag.Trap("null pointer dereference", "rt_arr_release")
			}
			if h.Released {
				return Value{}, diag.Trap("double release", "rt_arr_release")
			}
			h.Released = true
			return Value{}, nil
		},

		"rt_clock_now": func(v *VM, args []Value) (Value, *diag.Diagnostic) {
			return IntValue(il.I64, v.Clock()), nil
		},
	}
}

// arrHandle resolves the array handle and element index a, idx addresses,
// trapping on a null or released handle before any bounds check runs.
func arrHandle(a Value, idx int64, opcode string) (*ArrayHandle, int64, *diag.Diagnostic) {
	if a.Arr == nil {
		return nil, 0, diag.Trap("null pointer dereference", opcode)
	}
	if a.Arr.Released {
		return nil, 0, diag.Trap("use after release", opcode)
	}
	return a.Arr, idx, nil
}
