package vm

import "fmt"

// DispatchMode selects how the VM's step loop maps an opcode to its
// handler (spec §4.6's three strategies).
type DispatchMode int

const (
	// DispatchSwitch matches the opcode against a single large switch
	// expression per step.
	DispatchSwitch DispatchMode = iota
	// DispatchTable looks the opcode up in a function-pointer table
	// (opTable) and calls it indirectly.
	DispatchTable
)

func (m DispatchMode) String() string {
	switch m {
	case DispatchTable:
		return "table"
	default:
		return "switch"
	}
}

// ParseDispatchMode parses the VIPER_DISPATCH / --engine dispatch token.
// "threaded" (computed-goto / tail-dispatch chaining) is recognised but
// always rejected: Go has no computed-goto and no guaranteed tail-call
// elimination, so this build target cannot realise that strategy, and
// spec §4.6 explicitly permits rejecting it "with a clear error" rather
// than faking it with different performance characteristics.
func ParseDispatchMode(s string) (DispatchMode, error) {
	switch s {
	case "", "switch":
		return DispatchSwitch, nil
	case "table":
		return DispatchTable, nil
	case "threaded":
		return DispatchSwitch, fmt.Errorf("threaded dispatch requires computed-goto support, unavailable on this build target")
	default:
		return DispatchSwitch, fmt.Errorf("unknown dispatch mode %q", s)
	}
}
