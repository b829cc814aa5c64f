package passes

import (
	"fmt"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/vmruntime"
)

const maxLateCleanupIterations = 4

// LateCleanupStats records the instruction/block counts observed after
// each LateCleanup iteration, the per-iteration shrinkage spec §4.5.g
// asks for.
type LateCleanupStats struct {
	Iterations []LateCleanupIterStat
}

// LateCleanupIterStat is one iteration's post-pass instruction/block
// counts.
type LateCleanupIterStat struct {
	Instrs int
	Blocks int
}

// LateCleanup returns a function pass implementing spec §4.5.g: a bounded
// fixpoint (at most 4 rounds) alternating aggressive SimplifyCFG and DCE,
// stopping as soon as a round leaves the function's instruction count
// unchanged.
func LateCleanup(effects *vmruntime.Registry, stats *LateCleanupStats) func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
	simplify := SimplifyCFG(true)
	dce := DCE(effects)
	return func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		anyChanged := false
		for iter := 0; iter < maxLateCleanupIterations; iter++ {
			before := instrCount(fn)
			simplify(fn, am)
			dce(fn, am)
			after := instrCount(fn)
			if stats != nil {
				instrs, blocks := countInstrsAndBlocks(fn)
				stats.Iterations = append(stats.Iterations, LateCleanupIterStat{Instrs: instrs, Blocks: blocks})
			}
			if after == before {
				break
			}
			anyChanged = true
		}
		if anyChanged {
			return analysis.PreservedNone()
		}
		return analysis.PreservedAll()
	}
}

func instrCount(fn *il.Function) int {
	n := 0
	for _, b := range fn.Blocks {
		n += len(b.Instrs)
	}
	return n
}

func countInstrsAndBlocks(fn *il.Function) (int, int) {
	return instrCount(fn), len(fn.Blocks)
}

// String renders a one-line summary of the form "instrs=N blocks=M".
func (s LateCleanupIterStat) String() string {
	return fmt.Sprintf("instrs=%d blocks=%d", s.Instrs, s.Blocks)
}
