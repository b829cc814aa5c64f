// Package vmruntime holds the helper-effect registry: an immutable,
// process-wide table classifying every runtime-helper ABI symbol as pure,
// readonly, or impure, plus its signature. DCE consults this table to
// decide what may be elided; ConstFold keeps its own list of foldable
// helpers, and the VM keeps a reference in VM.Effects but executes externs
// through its own table (internal/vm/externs.go). Grounded on the capability-token model in the
// teacher's effects package, repurposed from IO-capability grants to
// purity classification of call targets.
package vmruntime

import "github.com/viper-lang/viper/internal/il"

// Purity classifies a helper's observable side effects.
type Purity int

const (
	// Pure helpers have no side effects and depend only on their
	// arguments; they are foldable at compile time.
	Pure Purity = iota
	// Readonly helpers have no side effects but may depend on external
	// state (e.g. reading a clock); not foldable, but safe to elide if
	// their result is unused.
	Readonly
	// Impure helpers perform I/O, allocation, or other externally
	// visible effects; they must be preserved across every optimisation.
	Impure
)

// Helper describes one runtime helper's ABI: its purity class and
// signature.
type Helper struct {
	Name       string
	Purity     Purity
	ParamTypes []il.Type
	RetType    il.Type
}

// Registry is an immutable table of runtime helper symbols, populated once
// at construction and never mutated afterwards.
type Registry struct {
	byName map[string]Helper
}

// Default returns the registry of runtime helpers Viper ships with.
func Default() *Registry {
	r := &Registry{byName: map[string]Helper{}}
	for _, h := range defaultHelpers {
		r.byName[h.Name] = h
	}
	return r
}

// Lookup returns the Helper descriptor for name, if registered.
func (r *Registry) Lookup(name string) (Helper, bool) {
	h, ok := r.byName[name]
	return h, ok
}

// IsPure reports whether name is known and registered as Pure.
func (r *Registry) IsPure(name string) bool {
	h, ok := r.byName[name]
	return ok && h.Purity == Pure
}

// IsImpure reports whether name is either unknown (treated conservatively
// as impure) or explicitly registered as Impure.
func (r *Registry) IsImpure(name string) bool {
	h, ok := r.byName[name]
	return !ok || h.Purity == Impure
}

var defaultHelpers = []Helper{
	{Name: "rt_abs_i64", Purity: Pure, ParamTypes: []il.Type{il.I64}, RetType: il.I64},
	{Name: "rt_abs_f64", Purity: Pure, ParamTypes: []il.Type{il.F64}, RetType: il.F64},
	{Name: "rt_sqrt", Purity: Pure, ParamTypes: []il.Type{il.F64}, RetType: il.F64},
	{Name: "rt_floor", Purity: Pure, ParamTypes: []il.Type{il.F64}, RetType: il.F64},
	{Name: "rt_ceil", Purity: Pure, ParamTypes: []il.Type{il.F64}, RetType: il.F64},
	{Name: "rt_sin", Purity: Pure, ParamTypes: []il.Type{il.F64}, RetType: il.F64},
	{Name: "rt_cos", Purity: Pure, ParamTypes: []il.Type{il.F64}, RetType: il.F64},
	{Name: "rt_sgn_i64", Purity: Pure, ParamTypes: []il.Type{il.I64}, RetType: il.I64},

	{Name: "rt_print_i64", Purity: Impure, ParamTypes: []il.Type{il.I64}, RetType: il.Void},
	{Name: "rt_print_f64", Purity: Impure, ParamTypes: []il.Type{il.F64}, RetType: il.Void},
	{Name: "rt_print_str", Purity: Impure, ParamTypes: []il.Type{il.Str}, RetType: il.Void},
	{Name: "rt_read_line", Purity: Impure, ParamTypes: nil, RetType: il.Str},

	{Name: "rt_arr_new", Purity: Impure, ParamTypes: []il.Type{il.I64}, RetType: il.Ptr},
	{Name: "rt_arr_get", Purity: Readonly, ParamTypes: []il.Type{il.Ptr, il.I64}, RetType: il.I64},
	{Name: "rt_arr_set", Purity: Impure, ParamTypes: []il.Type{il.Ptr, il.I64, il.I64}, RetType: il.Void},
	{Name: "rt_arr_len", Purity: Readonly, ParamTypes: []il.Type{il.Ptr}, RetType: il.I64},
	{Name: "rt_arr_release", Purity: Impure, ParamTypes: []il.Type{il.Ptr}, RetType: il.Void},

	{Name: "rt_clock_now", Purity: Readonly, ParamTypes: nil, RetType: il.I64},
}
