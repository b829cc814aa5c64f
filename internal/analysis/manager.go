// Package analysis implements the per-function and per-module analysis
// cache described in spec §4.3: analyses are computed lazily, keyed by a
// string id, and invalidated according to a pass's declared
// PreservedAnalyses result.
package analysis

import "github.com/viper-lang/viper/internal/il"

// Preserved describes which analyses remain valid after a pass runs. The
// zero value (an empty, non-all Preserved) means "preserves nothing".
type Preserved struct {
	All   bool
	Names map[string]bool
}

// PreservedAll returns a Preserved value meaning every analysis survives.
func PreservedAll() Preserved { return Preserved{All: true} }

// PreservedNone returns a Preserved value meaning no analysis survives.
func PreservedNone() Preserved { return Preserved{} }

// PreservedOnly returns a Preserved value naming exactly the analyses that
// survive.
func PreservedOnly(names ...string) Preserved {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return Preserved{Names: m}
}

// Keeps reports whether id survives this Preserved result.
func (p Preserved) Keeps(id string) bool {
	if p.All {
		return true
	}
	return p.Names[id]
}

// ComputeFunc lazily computes a function-scoped analysis result.
type ComputeFunc func(fn *il.Function) any

// ComputeModuleFunc lazily computes a module-scoped analysis result.
type ComputeModuleFunc func(m *il.Module) any

// Manager caches per-function and per-module analysis results, keyed by a
// string analysis id, for the duration of a single PassManager.run
// invocation.
type Manager struct {
	funcRegistry   map[string]ComputeFunc
	moduleRegistry map[string]ComputeModuleFunc

	funcCache   map[string]map[*il.Function]any // analysis id -> fn -> result
	moduleCache map[string]any

	// Stats tracks recomputation counts for instrumentation ("F:N"/"M:N"
	// markers in the pass-manager's output stream).
	FuncRecomputes   int
	ModuleRecomputes int
}

// NewManager builds an empty Manager. RegisterFunction/RegisterModule wire
// up compute functions before first use.
func NewManager() *Manager {
	return &Manager{
		funcRegistry:   map[string]ComputeFunc{},
		moduleRegistry: map[string]ComputeModuleFunc{},
		funcCache:      map[string]map[*il.Function]any{},
		moduleCache:    map[string]any{},
	}
}

// RegisterFunction registers how to compute a function-scoped analysis.
func (m *Manager) RegisterFunction(id string, compute ComputeFunc) {
	m.funcRegistry[id] = compute
}

// RegisterModule registers how to compute a module-scoped analysis.
func (m *Manager) RegisterModule(id string, compute ComputeModuleFunc) {
	m.moduleRegistry[id] = compute
}

// GetFunctionResult returns the cached result for (id, fn), computing it on
// first request.
func (m *Manager) GetFunctionResult(id string, fn *il.Function) any {
	byFn, ok := m.funcCache[id]
	if !ok {
		byFn = map[*il.Function]any{}
		m.funcCache[id] = byFn
	}
	if v, ok := byFn[fn]; ok {
		return v
	}
	compute, ok := m.funcRegistry[id]
	if !ok {
		return nil
	}
	v := compute(fn)
	byFn[fn] = v
	m.FuncRecomputes++
	return v
}

// GetModuleResult returns the cached module-scoped result for id,
// computing it on first request.
func (m *Manager) GetModuleResult(id string, mod *il.Module) any {
	if v, ok := m.moduleCache[id]; ok {
		return v
	}
	compute, ok := m.moduleRegistry[id]
	if !ok {
		return nil
	}
	v := compute(mod)
	m.moduleCache[id] = v
	m.ModuleRecomputes++
	return v
}

// Invalidate drops every cached entry not named by preserved. If a module
// pass completed with anything other than "preserve all", every
// function-scoped analysis is dropped too, per spec §4.3.
func (m *Manager) Invalidate(preserved Preserved, wasModulePass bool) {
	if preserved.All {
		return
	}
	for id := range m.funcCache {
		if !preserved.Keeps(id) {
			delete(m.funcCache, id)
		}
	}
	for id := range m.moduleCache {
		if !preserved.Keeps(id) {
			delete(m.moduleCache, id)
		}
	}
	if wasModulePass {
		// A module pass that doesn't preserve "all" invalidates every
		// function-scoped analysis outright, regardless of name.
		m.funcCache = map[string]map[*il.Function]any{}
	}
}

// InvalidateAll drops every cached entry unconditionally.
func (m *Manager) InvalidateAll() {
	m.funcCache = map[string]map[*il.Function]any{}
	m.moduleCache = map[string]any{}
}
