package passmgr

import (
	"bytes"
	"strings"
	"testing"

	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

func modWithOneRet() *il.Module {
	fn := &il.Function{
		Name: "main", RetType: il.I64,
		Blocks: []*il.BasicBlock{{Label: "entry", Instrs: []il.Instr{
			{Op: il.OpRet, Operands: []il.Value{il.ConstInt(0)}},
		}}},
	}
	return &il.Module{Version: 1, Functions: []*il.Function{fn}}
}

func TestManager_RunUnknownPipeline(t *testing.T) {
	m := NewManager()
	if err := m.Run("O9", modWithOneRet()); err == nil {
		t.Error("expected error for unregistered pipeline")
	}
}

func TestManager_RunUnknownPass(t *testing.T) {
	m := NewManager()
	if err := m.RunPass("no-such-pass", modWithOneRet()); err == nil {
		t.Error("expected error for unregistered pass")
	}
}

func TestManager_RegisterAndRunFunctionPass(t *testing.T) {
	m := NewManager()
	ran := false
	m.RegisterFunctionPass("noop", func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		ran = true
		return analysis.PreservedAll()
	})
	m.RegisterPipeline("p", []string{"noop"})
	if err := m.Run("p", modWithOneRet()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("pass was not executed")
	}
}

func TestManager_InstrumentationStream(t *testing.T) {
	m := NewManager()
	m.RegisterFunctionPass("noop", func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		return analysis.PreservedAll()
	})
	var buf bytes.Buffer
	m.Output = &buf
	m.RunPass("noop", modWithOneRet())
	out := buf.String()
	if !strings.Contains(out, "noop:") || !strings.Contains(out, "F:0") {
		t.Errorf("expected instrumentation record, got %q", out)
	}
}

func TestManager_VerifyEachAbortsOnBrokenModule(t *testing.T) {
	m := NewManager()
	m.RegisterFunctionPass("break-it", func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		// Break the module: branch to a label that doesn't exist.
		fn.Blocks[0].Instrs[0] = il.Instr{Op: il.OpBr, Labels: []string{"nowhere"}, BrArgs: [][]il.Value{nil}}
		return analysis.PreservedNone()
	})
	m.VerifyEach = true
	err := m.RunPass("break-it", modWithOneRet())
	if err == nil {
		t.Fatal("expected pipeline to abort on verification failure")
	}
}

func TestManager_NonAllPreservationInvalidatesCache(t *testing.T) {
	m := NewManager()
	computeCount := 0
	m.AM.RegisterFunction("custom", func(fn *il.Function) any {
		computeCount++
		return nil
	})
	mod := modWithOneRet()
	m.AM.GetFunctionResult("custom", mod.Functions[0])

	m.RegisterFunctionPass("dirty", func(fn *il.Function, am *analysis.Manager) analysis.Preserved {
		return analysis.PreservedNone()
	})
	if err := m.RunPass("dirty", mod); err != nil {
		t.Fatal(err)
	}
	m.AM.GetFunctionResult("custom", mod.Functions[0])
	if computeCount != 2 {
		t.Errorf("expected cache invalidated after non-all-preserving pass, got %d computes", computeCount)
	}
}

func TestManager_PipelineLookup(t *testing.T) {
	m := NewManager()
	m.RegisterPipeline("O1", []string{"a", "b"})
	ids, ok := m.Pipeline("O1")
	if !ok || len(ids) != 2 {
		t.Fatalf("Pipeline(O1) = %v, %v", ids, ok)
	}
	if _, ok := m.Pipeline("nope"); ok {
		t.Error("expected Pipeline lookup to fail for unregistered name")
	}
}
