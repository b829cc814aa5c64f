package basicfront

import (
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
)

// Compile parses and lowers BASIC source in one step, the entry point
// `cmd/viper`'s `front basic` subcommand calls.
func Compile(src string) (*il.Module, *diag.Diagnostic) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Lower(prog)
}
