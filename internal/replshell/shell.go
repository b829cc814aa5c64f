// Package replshell is the interactive line-editing shell used by the
// `viper repl` subcommand (cmd/viper/repl.go): load an
// IL module, configure the VM's engine/trace/check settings, run it, and
// inspect the result or trap. Grounded on internal/repl/repl.go's own
// liner-backed Start loop, colon-command dispatch, and history-file
// handling, reworked from an AST-expression evaluator into an IL-module
// runner.
package replshell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/ilparser"
	"github.com/viper-lang/viper/internal/ilverify"
	"github.com/viper-lang/viper/internal/vm"
	"github.com/viper-lang/viper/internal/vmruntime"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// Config holds shell start-up options, mirroring the CLI driver's shared
// execution flags (spec §6) so a session can be pre-configured exactly
// like a non-interactive run.
type Config struct {
	Version      string
	Dispatch     vm.DispatchMode
	Trace        vm.TraceMode
	MaxSteps     int64
	BoundsChecks bool
}

// Shell is one interactive session: a loaded module plus the VM settings
// that every subsequent :run applies.
type Shell struct {
	config  Config
	effects *vmruntime.Registry
	mod     *il.Module
	modPath string

	history  []string
	lastTrap *diag.Diagnostic
}

// New creates a shell with the given configuration.
func New(cfg Config) *Shell {
	return &Shell{config: cfg, effects: vmruntime.Default()}
}

func (s *Shell) prompt() string {
	if s.mod == nil {
		return "viper> "
	}
	return fmt.Sprintf("viper[%s]> ", filepath.Base(s.modPath))
}

// Start runs the read-eval-print loop against in/out until :quit or EOF.
func (s *Shell) Start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)

	historyFile := filepath.Join(os.TempDir(), ".viper_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(in string) (c []string) {
		if !strings.HasPrefix(in, ":") {
			return nil
		}
		for _, cmd := range []string{
			":help", ":quit", ":load", ":run", ":trace", ":engine",
			":max-steps", ":bounds-checks", ":globals", ":trap", ":history", ":reset",
		} {
			if strings.HasPrefix(cmd, in) {
				c = append(c, cmd)
			}
		}
		return
	})

	versionStr := s.config.Version
	if versionStr == "" {
		versionStr = "dev"
	}
	fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint("viper"), versionStr)
	fmt.Fprintln(out, dim("Type :help for commands, :quit to exit"))

	for {
		input, err := line.Prompt(s.prompt())
		if err == io.EOF {
			fmt.Fprintln(out, green("\ngoodbye"))
			return
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		s.history = append(s.history, input)

		if input == ":quit" || input == ":q" || input == ":exit" {
			fmt.Fprintln(out, green("goodbye"))
			return
		}
		s.dispatch(input, out)
	}
}

func (s *Shell) dispatch(input string, out io.Writer) {
	fields := strings.Fields(input)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ":help":
		s.printHelp(out)
	case ":load":
		s.cmdLoad(args, out)
	case ":run":
		s.cmdRun(args, out)
	case ":trace":
		s.cmdTrace(args, out)
	case ":engine":
		s.cmdEngine(args, out)
	case ":max-steps":
		s.cmdMaxSteps(args, out)
	case ":bounds-checks":
		s.cmdBoundsChecks(args, out)
	case ":globals":
		s.cmdGlobals(out)
	case ":trap":
		s.cmdTrap(out)
	case ":history":
		for i, h := range s.history {
			fmt.Fprintf(out, "%4d  %s\n", i+1, h)
		}
	case ":reset":
		s.mod, s.modPath, s.lastTrap = nil, "", nil
		fmt.Fprintln(out, dim("session reset"))
	default:
		fmt.Fprintf(out, "%s: unknown command %q (:help for a list)\n", red("error"), cmd)
	}
}

func (s *Shell) printHelp(out io.Writer) {
	fmt.Fprintln(out, `:load <file.il>              parse and verify a module, making it active
:run [args...]                execute @main with the given i64 arguments
:trace off|il|src             set instruction tracing for subsequent runs
:engine switch|table           set VM dispatch strategy
:max-steps <n>                 set the step budget (0 = unlimited)
:bounds-checks on|off          toggle array bounds checking
:globals                       print the active module's global names
:trap                          print the last trap's full diagnostic
:history                       print this session's command history
:reset                         drop the active module
:quit                          exit the shell`)
}

func (s *Shell) cmdLoad(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage: :load <file.il>\n", red("error"))
		return
	}
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	mod, d := ilparser.Parse(string(src), path)
	if d != nil {
		fmt.Fprintf(out, "%s: %s\n", red("parse error"), d.Error())
		return
	}
	if d := ilverify.Verify(mod); d != nil {
		fmt.Fprintf(out, "%s: %s\n", red("verify error"), d.Error())
		return
	}
	s.mod, s.modPath = mod, path
	fmt.Fprintf(out, "%s %s (%d function(s))\n", green("loaded"), path, len(mod.Functions))
}

func (s *Shell) cmdRun(args []string, out io.Writer) {
	if s.mod == nil {
		fmt.Fprintf(out, "%s: no module loaded, use :load first\n", red("error"))
		return
	}
	progArgs := make([]int64, 0, len(args))
	for _, a := range args {
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			fmt.Fprintf(out, "%s: invalid argument %q: %v\n", red("error"), a, err)
			return
		}
		progArgs = append(progArgs, n)
	}

	machine := vm.New(s.mod, s.effects)
	machine.Dispatch = s.config.Dispatch
	machine.Trace = s.config.Trace
	machine.TraceOut = out
	machine.Stdout = out
	machine.MaxSteps = s.config.MaxSteps
	machine.BoundsChecks = s.config.BoundsChecks

	result, trap := machine.Run(progArgs)
	s.lastTrap = trap
	if trap != nil {
		fmt.Fprintf(out, "%s: %s\n", red("trap"), trap.Error())
		return
	}
	fmt.Fprintf(out, "%s %d\n", green("=>"), result)
}

func (s *Shell) cmdTrace(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage: :trace off|il|src\n", red("error"))
		return
	}
	switch args[0] {
	case "off":
		s.config.Trace = vm.TraceOff
	case "il":
		s.config.Trace = vm.TraceIL
	case "src":
		s.config.Trace = vm.TraceSource
	default:
		fmt.Fprintf(out, "%s: unknown trace mode %q\n", red("error"), args[0])
		return
	}
	fmt.Fprintf(out, "%s trace = %s\n", yellow("set"), args[0])
}

func (s *Shell) cmdEngine(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage: :engine switch|table\n", red("error"))
		return
	}
	mode, err := vm.ParseDispatchMode(args[0])
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	s.config.Dispatch = mode
	fmt.Fprintf(out, "%s engine = %s\n", yellow("set"), mode)
}

func (s *Shell) cmdMaxSteps(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage: :max-steps <n>\n", red("error"))
		return
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(out, "%s: invalid step count %q: %v\n", red("error"), args[0], err)
		return
	}
	s.config.MaxSteps = n
	fmt.Fprintf(out, "%s max-steps = %d\n", yellow("set"), n)
}

func (s *Shell) cmdBoundsChecks(args []string, out io.Writer) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintf(out, "%s: usage: :bounds-checks on|off\n", red("error"))
		return
	}
	s.config.BoundsChecks = args[0] == "on"
	fmt.Fprintf(out, "%s bounds-checks = %s\n", yellow("set"), args[0])
}

func (s *Shell) cmdGlobals(out io.Writer) {
	if s.mod == nil {
		fmt.Fprintf(out, "%s: no module loaded\n", red("error"))
		return
	}
	if len(s.mod.Globals) == 0 {
		fmt.Fprintln(out, dim("(no globals)"))
		return
	}
	for _, g := range s.mod.Globals {
		fmt.Fprintf(out, "  @%s : %s\n", g.Name, g.Type)
	}
}

func (s *Shell) cmdTrap(out io.Writer) {
	if s.lastTrap == nil {
		fmt.Fprintln(out, dim("(no trap recorded)"))
		return
	}
	if json, err := s.lastTrap.ToJSON(false); err == nil {
		fmt.Fprintln(out, json)
	}
}
