// Package diag provides the shared diagnostic type used by the parser,
// verifier, pass manager, and VM. All layers report through the same
// structure so a CLI driver can render or JSON-encode any of them uniformly.
package diag

import "encoding/json"

// Severity classifies a Diagnostic.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Note    Severity = "note"
)

// Span is an optional source location attached to a Diagnostic.
type Span struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

// Diagnostic is the canonical error/warning/note type for Viper. Parser,
// verifier, and VM all produce this type; a pass that fails an internal
// assertion returns one too.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Span     *Span    `json:"span,omitempty"`
	Notes    []string `json:"notes,omitempty"`

	// Opcode is set when the diagnostic is a VM trap, naming the faulting
	// instruction's opcode.
	Opcode string `json:"opcode,omitempty"`
}

// Error implements the error interface so a *Diagnostic can be returned
// directly from functions using Go's normal error-handling idiom.
func (d *Diagnostic) Error() string {
	if d == nil {
		return "<nil diagnostic>"
	}
	if d.Span != nil && d.Span.File != "" {
		return d.Span.File + ":" + itoa(d.Span.Line) + ": " + d.Message
	}
	if d.Span != nil {
		return "line " + itoa(d.Span.Line) + ": " + d.Message
	}
	return d.Message
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// New builds a plain Error-severity diagnostic with no location.
func New(message string) *Diagnostic {
	return &Diagnostic{Severity: Error, Message: message}
}

// At builds an Error-severity diagnostic at the given source position.
func At(message string, line, column int) *Diagnostic {
	return &Diagnostic{Severity: Error, Message: message, Span: &Span{Line: line, Column: column}}
}

// AtFile is like At but also names the source file.
func AtFile(message, file string, line, column int) *Diagnostic {
	return &Diagnostic{Severity: Error, Message: message, Span: &Span{File: file, Line: line, Column: column}}
}

// Trap builds a VM trap diagnostic, naming the faulting opcode.
func Trap(message, opcode string) *Diagnostic {
	return &Diagnostic{Severity: Error, Message: message, Opcode: opcode}
}

// WithNote appends a note and returns the same diagnostic, for chaining.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// ToJSON renders the diagnostic as JSON, indented unless compact is true.
func (d *Diagnostic) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(d)
	} else {
		data, err = json.MarshalIndent(d, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WarningPolicy controls how warnings are filtered and whether they are
// escalated to errors. The zero value enables all warnings, un-escalated.
type WarningPolicy struct {
	EnableAll     bool
	Disabled      map[string]bool
	TreatAsError  bool
}

// NewWarningPolicy returns a policy that reports every warning.
func NewWarningPolicy() *WarningPolicy {
	return &WarningPolicy{EnableAll: true, Disabled: map[string]bool{}}
}

// Disable suppresses warnings that Filter is called with under the given
// tag. The warning's Message is not inspected.
func (p *WarningPolicy) Disable(tag string) {
	if p.Disabled == nil {
		p.Disabled = map[string]bool{}
	}
	p.Disabled[tag] = true
}

// Filter applies the policy to a warning diagnostic, returning the
// (possibly escalated) diagnostic and whether it should be reported at all.
func (p *WarningPolicy) Filter(d *Diagnostic, tag string) (*Diagnostic, bool) {
	if d.Severity != Warning {
		return d, true
	}
	if p.Disabled != nil && p.Disabled[tag] {
		return nil, false
	}
	if p.TreatAsError {
		escalated := *d
		escalated.Severity = Error
		return &escalated, true
	}
	return d, true
}
