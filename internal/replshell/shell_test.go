package replshell

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viper-lang/viper/internal/vm"
)

const sampleModule = `il 1
func @main() -> i64 {
entry:
  ret 42
}
`

func writeModule(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.il")
	require.NoError(t, os.WriteFile(path, []byte(sampleModule), 0644))
	return path
}

func TestShell_LoadAndRun(t *testing.T) {
	path := writeModule(t)
	s := New(Config{Dispatch: vm.DispatchSwitch, BoundsChecks: true})
	var out bytes.Buffer

	s.cmdLoad([]string{path}, &out)
	require.Contains(t, out.String(), "loaded")
	out.Reset()

	s.cmdRun(nil, &out)
	require.Contains(t, out.String(), "42")
}

func TestShell_RunWithoutLoadErrors(t *testing.T) {
	s := New(Config{})
	var out bytes.Buffer
	s.cmdRun(nil, &out)
	require.Contains(t, out.String(), "no module loaded")
}

func TestShell_EngineAndTraceCommands(t *testing.T) {
	s := New(Config{})
	var out bytes.Buffer

	s.cmdEngine([]string{"table"}, &out)
	require.Equal(t, vm.DispatchTable, s.config.Dispatch)

	out.Reset()
	s.cmdEngine([]string{"threaded"}, &out)
	require.Contains(t, out.String(), "error")

	out.Reset()
	s.cmdTrace([]string{"il"}, &out)
	require.Equal(t, vm.TraceIL, s.config.Trace)
}

func TestShell_Dispatch_UnknownCommand(t *testing.T) {
	s := New(Config{})
	var out bytes.Buffer
	s.dispatch(":bogus", &out)
	require.Contains(t, out.String(), "unknown command")
}

func TestShell_GlobalsListsDeclaredGlobals(t *testing.T) {
	const withGlobal = `il 1
global i64 @counter = 0
func @main() -> i64 {
entry:
  ret 0
}
`
	path := filepath.Join(t.TempDir(), "g.il")
	require.NoError(t, os.WriteFile(path, []byte(withGlobal), 0644))

	s := New(Config{})
	var out bytes.Buffer
	s.cmdLoad([]string{path}, &out)
	out.Reset()
	s.cmdGlobals(&out)
	require.True(t, strings.Contains(out.String(), "@counter"))
}
