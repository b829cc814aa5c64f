package diag

import (
	"strings"
	"testing"
)

func TestDiagnosticError(t *testing.T) {
	d := AtFile("missing operand", "prog.il", 12, 3)
	if got := d.Error(); got != "prog.il:12: missing operand" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDiagnosticError_NoFile(t *testing.T) {
	d := At("bad", 4, 1)
	if got := d.Error(); got != "line 4: bad" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDiagnosticError_NilReceiver(t *testing.T) {
	var d *Diagnostic
	if got := d.Error(); got != "<nil diagnostic>" {
		t.Errorf("Error() on nil = %q", got)
	}
}

func TestTrapDiagnostic(t *testing.T) {
	d := Trap("division by zero", "sdiv.chk0")
	if d.Opcode != "sdiv.chk0" || d.Message != "division by zero" || d.Severity != Error {
		t.Errorf("unexpected trap diagnostic: %+v", d)
	}
}

func TestDiagnosticToJSON(t *testing.T) {
	d := New("bad thing")
	compact, err := d.ToJSON(true)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(compact, "\n") {
		t.Error("compact JSON should not contain newlines")
	}
	pretty, err := d.ToJSON(false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(pretty, "\n") {
		t.Error("pretty JSON should contain newlines")
	}
}

func TestWarningPolicy_Filter(t *testing.T) {
	p := NewWarningPolicy()
	w := &Diagnostic{Severity: Warning, Message: "unused value"}

	out, report := p.Filter(w, "unused")
	if !report || out.Severity != Warning {
		t.Errorf("default policy should report warning unescalated, got %v %+v", report, out)
	}

	p.Disable("unused")
	_, report = p.Filter(w, "unused")
	if report {
		t.Error("disabled tag should not be reported")
	}

	p2 := NewWarningPolicy()
	p2.TreatAsError = true
	out2, report2 := p2.Filter(w, "unused")
	if !report2 || out2.Severity != Error {
		t.Errorf("TreatAsError should escalate to Error, got %v %+v", report2, out2)
	}
	// Original diagnostic is untouched by escalation.
	if w.Severity != Warning {
		t.Error("Filter must not mutate the input diagnostic")
	}
}

func TestWarningPolicy_ErrorsPassThroughUnfiltered(t *testing.T) {
	p := NewWarningPolicy()
	p.Disable("anything")
	e := &Diagnostic{Severity: Error, Message: "fatal"}
	out, report := p.Filter(e, "anything")
	if !report || out != e {
		t.Error("non-warning diagnostics must always pass through Filter unchanged")
	}
}
