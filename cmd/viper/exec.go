package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/vm"
	"github.com/viper-lang/viper/internal/vmruntime"
)

// execFlags holds the shared execution flags spec §6 lists against every
// execution-capable subcommand.
type execFlags struct {
	trace        string
	stdinFrom    string
	maxSteps     int64
	boundsChecks bool
	dumpTrap     bool
	engine       string
	optLevel     string
}

func addExecFlags(cmd *cobra.Command) *execFlags {
	f := &execFlags{boundsChecks: true}
	cmd.Flags().StringVar(&f.trace, "trace", "off", "instruction tracing: off|il|src")
	cmd.Flags().StringVar(&f.stdinFrom, "stdin-from", "", "read the program's stdin from this file instead of the terminal")
	cmd.Flags().Int64Var(&f.maxSteps, "max-steps", 0, "abort after this many executed instructions (0 = unlimited)")
	cmd.Flags().BoolVar(&f.boundsChecks, "bounds-checks", true, "enable array bounds checking")
	cmd.Flags().BoolVar(&f.dumpTrap, "dump-trap", false, "print the full trap diagnostic as JSON on failure")
	cmd.Flags().StringVar(&f.engine, "engine", "", "VM dispatch strategy: auto|vm-switch|vm-table|vm-threaded|native (default: $VIPER_ENGINE/$VIPER_DISPATCH or switch)")
	cmd.Flags().StringVarP(&f.optLevel, "optimize", "O", "1", "optimization level: 0|1|2")
	return f
}

// resolveDispatch applies --engine, falling back to VIPER_ENGINE then
// VIPER_DISPATCH, then the switch-dispatch default (spec §6's
// environment-variable precedence).
func resolveDispatch(f *execFlags) (vm.DispatchMode, error) {
	token := f.engine
	if token == "" {
		token = os.Getenv("VIPER_ENGINE")
	}
	if token == "" {
		token = os.Getenv("VIPER_DISPATCH")
	}
	switch token {
	case "", "auto", "vm-switch":
		return vm.DispatchSwitch, nil
	case "vm-table":
		return vm.DispatchTable, nil
	case "vm-threaded":
		return vm.ParseDispatchMode("threaded")
	case "native":
		return vm.DispatchSwitch, fmt.Errorf("native codegen backend is not part of this build")
	default:
		return vm.ParseDispatchMode(token)
	}
}

func resolveTrace(s string) (vm.TraceMode, error) {
	switch s {
	case "", "off":
		return vm.TraceOff, nil
	case "il":
		return vm.TraceIL, nil
	case "src":
		return vm.TraceSource, nil
	default:
		return vm.TraceOff, fmt.Errorf("unknown --trace mode %q", s)
	}
}

func pipelineForOptLevel(level string) (string, error) {
	switch level {
	case "0":
		return "O0", nil
	case "1", "":
		return "O1", nil
	case "2":
		return "O2", nil
	default:
		return "", fmt.Errorf("unknown optimization level %q", level)
	}
}

// buildVM constructs a VM from a verified module and the shared execution
// flags.
func buildVM(mod *il.Module, f *execFlags) (*vm.VM, error) {
	dispatch, err := resolveDispatch(f)
	if err != nil {
		return nil, err
	}
	trace, err := resolveTrace(f.trace)
	if err != nil {
		return nil, err
	}
	machine := vm.New(mod, vmruntime.Default())
	machine.Dispatch = dispatch
	machine.Trace = trace
	machine.MaxSteps = f.maxSteps
	machine.BoundsChecks = f.boundsChecks

	if f.stdinFrom != "" {
		in, err := os.Open(f.stdinFrom)
		if err != nil {
			return nil, fmt.Errorf("--stdin-from: %w", err)
		}
		machine.Stdin = in
	}
	return machine, nil
}

// parseProgramArgs converts the trailing `-- <args>` tokens into int64
// values, the VM's only argument representation.
func parseProgramArgs(args []string) ([]int64, error) {
	out := make([]int64, 0, len(args))
	for _, a := range args {
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid program argument %q: %w", a, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// runAndReport executes machine, printing the result or trap, and returns
// the process exit code spec §6 mandates: 0 on success, a forced non-zero
// code on any trap (even one computed from a zero exit value), 1 on a
// usage/compile-time error (not handled here).
func runAndReport(machine *vm.VM, progArgs []int64, dumpTrap bool) int {
	result, trap := machine.Run(progArgs)
	if trap != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", red("trap"), trap.Error())
		if dumpTrap {
			if j, err := trap.ToJSON(false); err == nil {
				fmt.Fprintln(os.Stderr, j)
			}
		}
		return trapExitCode(trap)
	}
	// Full-width VM.Run result truncated to the 8-bit OS exit-code range
	// here, at the CLI boundary, exactly as a Unix process exit status is
	// always truncated to a byte regardless of what the program computed.
	return int(uint8(result))
}

// trapExitCode forces a non-zero status for a VM trap even if the
// program's own would-be result happened to be zero.
func trapExitCode(trap *diag.Diagnostic) int {
	_ = trap
	return 1
}
