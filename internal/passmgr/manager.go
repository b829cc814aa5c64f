// Package passmgr implements the pass manager (spec §4.4): a registry of
// module and function passes, named pipelines (O0/O1/O2 among them),
// scheduling, analysis invalidation, and optional instrumentation.
package passmgr

import (
	"fmt"
	"io"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/ilprint"
	"github.com/viper-lang/viper/internal/ilverify"
)

// FunctionPassFunc is a pass that runs once per function.
type FunctionPassFunc func(fn *il.Function, am *analysis.Manager) analysis.Preserved

// ModulePassFunc is a pass that runs once over the whole module.
type ModulePassFunc func(m *il.Module, am *analysis.Manager) analysis.Preserved

// Pass is a registered unit of work: exactly one of FuncRun/ModRun is set.
type Pass struct {
	ID      string
	FuncRun FunctionPassFunc
	ModRun  ModulePassFunc
}

func (p Pass) isModule() bool { return p.ModRun != nil }

// Manager holds the pass registry, named pipelines, and run-time
// instrumentation/debug options.
type Manager struct {
	passes    map[string]Pass
	pipelines map[string][]string

	AM *analysis.Manager

	// Output receives one instrumentation record per pass execution, if
	// non-nil. The library never writes to stdout/stderr on its own; the
	// CLI driver plumbs this in.
	Output io.Writer

	PrintBefore bool
	PrintAfter  bool
	VerifyEach  bool
}

// NewManager constructs an empty Manager with the built-in analyses
// registered and O0/O1/O2 NOT yet populated (callers use RegisterPipeline,
// or passes.RegisterAll + passes.RegisterPipelines to get the standard
// set).
func NewManager() *Manager {
	am := analysis.NewManager()
	analysis.RegisterBuiltins(am)
	return &Manager{
		passes:    map[string]Pass{},
		pipelines: map[string][]string{},
		AM:        am,
	}
}

// RegisterFunctionPass registers a function pass under id.
func (m *Manager) RegisterFunctionPass(id string, fn FunctionPassFunc) {
	m.passes[id] = Pass{ID: id, FuncRun: fn}
}

// RegisterModulePass registers a module pass under id.
func (m *Manager) RegisterModulePass(id string, fn ModulePassFunc) {
	m.passes[id] = Pass{ID: id, ModRun: fn}
}

// RegisterPipeline registers pipeline name as an ordered list of pass ids.
func (m *Manager) RegisterPipeline(name string, passIDs []string) {
	m.pipelines[name] = append([]string{}, passIDs...)
}

// Pipeline returns the pass id list registered under name.
func (m *Manager) Pipeline(name string) ([]string, bool) {
	p, ok := m.pipelines[name]
	return p, ok
}

// Run executes the named pipeline over mod, in order, applying each pass's
// PreservedAnalyses to invalidate the cache and optionally verifying,
// printing, and instrumenting between steps.
func (m *Manager) Run(pipelineName string, mod *il.Module) error {
	ids, ok := m.pipelines[pipelineName]
	if !ok {
		return fmt.Errorf("unknown pipeline %q", pipelineName)
	}
	for _, id := range ids {
		if err := m.RunPass(id, mod); err != nil {
			return err
		}
	}
	return nil
}

// RunPass resolves and runs a single pass by id against mod.
func (m *Manager) RunPass(id string, mod *il.Module) error {
	pass, ok := m.passes[id]
	if !ok {
		return fmt.Errorf("unknown pass %q", id)
	}

	if m.PrintBefore && m.Output != nil {
		fmt.Fprintf(m.Output, "; before %s\n%s", id, ilprint.New(ilprint.Pretty).Print(mod))
	}

	before := countInstrsAndBlocks(mod)
	funcBefore, modBefore := m.AM.FuncRecomputes, m.AM.ModuleRecomputes

	var preserved analysis.Preserved
	if pass.isModule() {
		preserved = pass.ModRun(mod, m.AM)
	} else {
		allPreserved := true
		for _, fn := range mod.Functions {
			p := pass.FuncRun(fn, m.AM)
			if !p.All {
				allPreserved = false
			}
		}
		if allPreserved {
			preserved = analysis.PreservedAll()
		} else {
			preserved = analysis.PreservedNone()
		}
	}
	m.AM.Invalidate(preserved, pass.isModule())

	after := countInstrsAndBlocks(mod)

	if m.Output != nil {
		fmt.Fprintf(m.Output, "%s: instrs %d->%d blocks %d->%d F:%d M:%d\n",
			id, before.instrs, after.instrs, before.blocks, after.blocks,
			m.AM.FuncRecomputes-funcBefore, m.AM.ModuleRecomputes-modBefore)
	}

	if m.PrintAfter && m.Output != nil {
		fmt.Fprintf(m.Output, "; after %s\n%s", id, ilprint.New(ilprint.Pretty).Print(mod))
	}

	if m.VerifyEach {
		if d := ilverify.Verify(mod); d != nil {
			return wrapVerifyFailure(id, d)
		}
	}
	return nil
}

func wrapVerifyFailure(passID string, d *diag.Diagnostic) error {
	return fmt.Errorf("pipeline aborted: verification failed after pass %q: %s", passID, d.Error())
}

type counts struct {
	instrs int
	blocks int
}

func countInstrsAndBlocks(mod *il.Module) counts {
	var c counts
	for _, fn := range mod.Functions {
		c.blocks += len(fn.Blocks)
		for _, b := range fn.Blocks {
			c.instrs += len(b.Instrs)
		}
	}
	return c
}
