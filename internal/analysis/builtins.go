package analysis

import "github.com/viper-lang/viper/internal/il"

// Analysis ids for the built-in analyses every PassManager registers.
const (
	CFGID      = "cfg"
	LivenessID = "liveness"
)

// CFGInfo holds predecessor/successor sets per block, keyed by label.
type CFGInfo struct {
	Preds map[string][]string
	Succs map[string][]string
}

// ComputeCFG builds predecessor/successor edges from every block's
// terminator.
func ComputeCFG(fn *il.Function) any {
	info := &CFGInfo{Preds: map[string][]string{}, Succs: map[string][]string{}}
	for _, b := range fn.Blocks {
		info.Preds[b.Label] = nil
		info.Succs[b.Label] = nil
	}
	for _, b := range fn.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		targets := append([]string{}, term.Labels...)
		if term.Op == il.OpSwitchI32 {
			targets = append(targets, term.Default)
		}
		for _, t := range targets {
			info.Succs[b.Label] = append(info.Succs[b.Label], t)
			info.Preds[t] = append(info.Preds[t], b.Label)
		}
	}
	return info
}

// LivenessInfo holds per-block live-in/live-out sets over SSA ids.
type LivenessInfo struct {
	LiveIn  map[string]map[int]bool
	LiveOut map[string]map[int]bool
}

// ComputeLiveness runs a standard backward fixed-point liveness analysis
// over SSA temps (block parameters count as defs at block entry).
func ComputeLiveness(fn *il.Function) any {
	info := &LivenessInfo{LiveIn: map[string]map[int]bool{}, LiveOut: map[string]map[int]bool{}}
	cfg := ComputeCFG(fn).(*CFGInfo)

	for _, b := range fn.Blocks {
		info.LiveIn[b.Label] = map[int]bool{}
		info.LiveOut[b.Label] = map[int]bool{}
	}

	changed := true
	for changed {
		changed = false
		for i := len(fn.Blocks) - 1; i >= 0; i-- {
			b := fn.Blocks[i]
			out := map[int]bool{}
			for _, succ := range cfg.Succs[b.Label] {
				for id := range info.LiveIn[succ] {
					out[id] = true
				}
			}

			in := map[int]bool{}
			for id := range out {
				in[id] = true
			}
			// Walk instructions backward: kill defs, gen uses.
			for j := len(b.Instrs) - 1; j >= 0; j-- {
				instr := b.Instrs[j]
				if instr.HasResult {
					delete(in, instr.Result)
				}
				for _, op := range instr.Operands {
					if op.Kind == il.VTemp {
						in[op.ID] = true
					}
				}
				for _, args := range instr.BrArgs {
					for _, a := range args {
						if a.Kind == il.VTemp {
							in[a.ID] = true
						}
					}
				}
				for _, a := range instr.DefaultArg {
					if a.Kind == il.VTemp {
						in[a.ID] = true
					}
				}
			}
			for _, p := range b.Params {
				delete(in, p.ID)
			}

			if !sameSet(in, info.LiveIn[b.Label]) || !sameSet(out, info.LiveOut[b.Label]) {
				info.LiveIn[b.Label] = in
				info.LiveOut[b.Label] = out
				changed = true
			}
		}
	}
	return info
}

func sameSet(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// RegisterBuiltins wires the CFG and liveness analyses into m.
func RegisterBuiltins(m *Manager) {
	m.RegisterFunction(CFGID, ComputeCFG)
	m.RegisterFunction(LivenessID, ComputeLiveness)
}
