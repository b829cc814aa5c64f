// Package ilprint serializes an il.Module back to Viper IL text, in either
// Pretty (indented, human-oriented) or Canonical (minimal, deterministic)
// mode. Canonical output is stable under repeated parse/print cycles,
// which is what the round-trip property in spec §8 depends on.
package ilprint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/viper-lang/viper/internal/il"
)

// Mode selects the serialization style.
type Mode int

const (
	Canonical Mode = iota
	Pretty
)

// Printer renders a Module as IL text.
type Printer struct {
	Mode Mode
}

// New constructs a Printer in the given mode.
func New(mode Mode) *Printer {
	return &Printer{Mode: mode}
}

// Print renders the whole module.
func (p *Printer) Print(m *il.Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "il %d\n", m.Version)
	if m.Target != "" {
		fmt.Fprintf(&sb, "target %s\n", quote(m.Target))
	}
	if p.Mode == Pretty && (len(m.Externs)+len(m.Globals)+len(m.Functions) > 0) {
		sb.WriteByte('\n')
	}

	for _, e := range m.Externs {
		p.printExtern(&sb, e)
	}
	if p.Mode == Pretty && len(m.Externs) > 0 {
		sb.WriteByte('\n')
	}

	for _, g := range m.Globals {
		p.printGlobal(&sb, g)
	}
	if p.Mode == Pretty && len(m.Globals) > 0 {
		sb.WriteByte('\n')
	}

	for i, fn := range m.Functions {
		p.printFunc(&sb, fn)
		if p.Mode == Pretty && i != len(m.Functions)-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

func (p *Printer) printExtern(sb *strings.Builder, e *il.Extern) {
	types := make([]string, len(e.ParamTypes))
	for i, t := range e.ParamTypes {
		types[i] = t.String()
	}
	fmt.Fprintf(sb, "extern @%s(%s) -> %s\n", e.Name, strings.Join(types, ", "), e.RetType.String())
}

func (p *Printer) printGlobal(sb *strings.Builder, g *il.Global) {
	constKw := ""
	if g.Const {
		constKw = "const "
	}
	fmt.Fprintf(sb, "global %s%s @%s = %s\n", constKw, g.Type.String(), g.Name, printGlobalInit(g))
}

func printGlobalInit(g *il.Global) string {
	switch g.InitKind {
	case il.InitInt:
		return strconv.FormatInt(g.IntVal, 10)
	case il.InitFloat:
		return il.ConstFloat(g.FloatVal).String()
	case il.InitString:
		return quote(g.StrVal)
	case il.InitGlobalAddr:
		return "@" + g.AddrOf
	case il.InitNull:
		return "null"
	default:
		return "null"
	}
}

func (p *Printer) printFunc(sb *strings.Builder, fn *il.Function) {
	params := make([]string, len(fn.Params))
	for i, prm := range fn.Params {
		params[i] = fmt.Sprintf("%s:%s", p.valueName(fn, prm.ID), prm.Type.String())
	}
	fmt.Fprintf(sb, "func @%s(%s) -> %s {\n", fn.Name, strings.Join(params, ", "), fn.RetType.String())
	for _, b := range fn.Blocks {
		p.printBlock(sb, fn, b)
	}
	sb.WriteString("}\n")
}

func (p *Printer) printBlock(sb *strings.Builder, fn *il.Function, b *il.BasicBlock) {
	indent := ""
	if p.Mode == Pretty {
		indent = "  "
	}
	if len(b.Params) > 0 {
		params := make([]string, len(b.Params))
		for i, bp := range b.Params {
			params[i] = fmt.Sprintf("%s:%s", p.valueName(fn, bp.ID), bp.Type.String())
		}
		fmt.Fprintf(sb, "%s%s(%s):\n", indent, b.Label, strings.Join(params, ", "))
	} else {
		fmt.Fprintf(sb, "%s%s:\n", indent, b.Label)
	}
	instrIndent := indent
	if p.Mode == Pretty {
		instrIndent = "    "
	}
	for _, instr := range b.Instrs {
		sb.WriteString(instrIndent)
		p.printInstr(sb, fn, &instr)
		sb.WriteByte('\n')
	}
}

// valueName renders an SSA id: its recovered display name if one was
// parsed/assigned, otherwise its bare numeric id.
func (p *Printer) valueName(fn *il.Function, id int) string {
	if name, ok := fn.ValueNames[id]; ok && name != "" {
		return "%" + name
	}
	return "%" + strconv.Itoa(id)
}

func (p *Printer) printValue(fn *il.Function, v il.Value) string {
	if v.Kind == il.VTemp {
		return p.valueName(fn, v.ID)
	}
	if v.Kind == il.VConstString {
		return quote(v.Str)
	}
	return v.String()
}

func (p *Printer) printTarget(fn *il.Function, label string, args []il.Value) string {
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = p.printValue(fn, a)
	}
	return fmt.Sprintf("%s(%s)", label, strings.Join(strs, ", "))
}

func (p *Printer) printInstr(sb *strings.Builder, fn *il.Function, instr *il.Instr) {
	prefix := ""
	if instr.HasResult {
		if instr.ResultType != il.Void {
			prefix = fmt.Sprintf("%s:%s = ", p.valueName(fn, instr.Result), instr.ResultType.String())
		} else {
			prefix = fmt.Sprintf("%s = ", p.valueName(fn, instr.Result))
		}
	}
	sb.WriteString(prefix)

	switch instr.Op {
	case il.OpCall, il.OpCallIndirect:
		args := make([]string, len(instr.Operands))
		for i, o := range instr.Operands {
			args[i] = p.printValue(fn, o)
		}
		fmt.Fprintf(sb, "%s @%s(%s)", string(instr.Op), instr.Callee, strings.Join(args, ", "))

	case il.OpAlloca:
		fmt.Fprintf(sb, "%s %s", string(instr.Op), instr.AllocType.String())

	case il.OpLoad:
		fmt.Fprintf(sb, "%s %s", string(instr.Op), p.printValue(fn, instr.Operands[0]))

	case il.OpStore:
		fmt.Fprintf(sb, "%s %s %s, %s", string(instr.Op), instr.StoreType.String(), p.printValue(fn, instr.Operands[0]), p.printValue(fn, instr.Operands[1]))

	case il.OpGep:
		fmt.Fprintf(sb, "%s %s, %s", string(instr.Op), p.printValue(fn, instr.Operands[0]), p.printValue(fn, instr.Operands[1]))

	case il.OpBr, il.OpResumeLabel:
		fmt.Fprintf(sb, "%s %s", string(instr.Op), p.printTarget(fn, instr.Labels[0], instr.BrArgs[0]))

	case il.OpCbr:
		fmt.Fprintf(sb, "%s %s, %s, %s", string(instr.Op), p.printValue(fn, instr.Operands[0]),
			p.printTarget(fn, instr.Labels[0], instr.BrArgs[0]), p.printTarget(fn, instr.Labels[1], instr.BrArgs[1]))

	case il.OpSwitchI32:
		var sbCases strings.Builder
		fmt.Fprintf(&sbCases, "%s %s, default %s", string(instr.Op), p.printValue(fn, instr.Operands[0]),
			p.printTarget(fn, instr.Default, instr.DefaultArg))
		for i, cv := range instr.CaseVals {
			fmt.Fprintf(&sbCases, ", case %d -> %s", cv, p.printTarget(fn, instr.Labels[i], instr.BrArgs[i]))
		}
		sb.WriteString(sbCases.String())

	case il.OpRet:
		if len(instr.Operands) > 0 {
			fmt.Fprintf(sb, "%s %s", string(instr.Op), p.printValue(fn, instr.Operands[0]))
		} else {
			sb.WriteString(string(instr.Op))
		}

	case il.OpTrap:
		if len(instr.Operands) > 0 {
			fmt.Fprintf(sb, "%s %s", string(instr.Op), quote(instr.Operands[0].Str))
		} else {
			sb.WriteString(string(instr.Op))
		}

	default:
		args := make([]string, len(instr.Operands))
		for i, o := range instr.Operands {
			args[i] = p.printValue(fn, o)
		}
		fmt.Fprintf(sb, "%s %s", string(instr.Op), strings.Join(args, ", "))
	}
}

// quote renders a string literal using the minimal escape set the lexer
// and parser recognise, so parse(print(x)) is the identity. Per spec §9(c)
// an embedded newline always prints as the two-character escape `\n`.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// sortedKeys is used when printing any future attribute-bracket lists so
// that output order is deterministic regardless of map iteration order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
