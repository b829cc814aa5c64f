package ilparser

import (
	"fmt"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/iltoken"
)

// parseInstr parses one instruction line, either `%r[:type] = op operands`
// or `op operands`, leaving p.cur positioned on the token following the
// instruction.
func (p *Parser) parseInstr() (*il.Instr, *diag.Diagnostic) {
	line := p.cur.Line

	if p.curIs(iltoken.TEMP) {
		name := p.cur.Literal
		p.next()

		var resultType il.Type
		if p.curIs(iltoken.COLON) {
			p.next()
			t, d := p.parseType("unsupported type")
			if d != nil {
				return nil, d
			}
			resultType = t
			p.next()
		}

		if !p.curIs(iltoken.EQUAL) {
			return nil, p.err("missing '='")
		}
		p.next()

		if !p.curIs(iltoken.IDENT) {
			return nil, p.err("unexpected line")
		}
		opName := p.cur.Literal
		instr, d := p.parseOpAndOperands(opName)
		if d != nil {
			return nil, d
		}
		id := p.curFn.FreshID()
		instr.HasResult = true
		instr.Result = id
		instr.ResultType = resultType
		instr.Line = line
		p.locals[name] = id
		p.curFn.ValueNames[id] = name
		return instr, nil
	}

	if !p.curIs(iltoken.IDENT) {
		return nil, p.err("unexpected line")
	}
	opName := p.cur.Literal
	instr, d := p.parseOpAndOperands(opName)
	if d != nil {
		return nil, d
	}
	instr.Line = line
	return instr, nil
}

func (p *Parser) parseValue() (il.Value, *diag.Diagnostic) {
	switch p.cur.Type {
	case iltoken.TEMP:
		id, ok := p.locals[p.cur.Literal]
		if !ok {
			return il.Value{}, p.err(fmt.Sprintf("unknown temp %%%s", p.cur.Literal))
		}
		return il.Temp(id), nil
	case iltoken.INT:
		n, err := parseIntLiteral(p.cur.Literal)
		if err != nil {
			return il.Value{}, p.err("invalid integer literal")
		}
		return il.ConstInt(n), nil
	case iltoken.FLOAT:
		f, err := parseFloatLiteral(p.cur.Literal)
		if err != nil {
			return il.Value{}, p.err("invalid float literal")
		}
		return il.ConstFloat(f), nil
	case iltoken.TRUE:
		return il.ConstBool(true), nil
	case iltoken.FALSE:
		return il.ConstBool(false), nil
	case iltoken.STRING:
		s, err := unescape(p.cur.Literal)
		if err != nil {
			return il.Value{}, p.err("unknown escape")
		}
		return il.ConstString(s), nil
	case iltoken.ILLEGAL:
		return il.Value{}, p.err("missing closing '\"'")
	case iltoken.GLOBAL:
		return il.GlobalAddr(p.cur.Literal), nil
	case iltoken.NULL:
		return il.Null(), nil
	default:
		return il.Value{}, p.err("missing operand")
	}
}

// isValueStart reports whether the current token can begin a value,
// used to decide whether a bare `ret` has a trailing operand.
func (p *Parser) isValueStart() bool {
	switch p.cur.Type {
	case iltoken.TEMP, iltoken.INT, iltoken.FLOAT, iltoken.TRUE, iltoken.FALSE,
		iltoken.STRING, iltoken.GLOBAL, iltoken.NULL:
		return true
	default:
		return false
	}
}

// parseValueList parses a comma-separated value list up to (but not
// including) closeTok, rejecting consecutive/trailing commas.
func (p *Parser) parseValueList(closeTok iltoken.Type) ([]il.Value, *diag.Diagnostic) {
	var vals []il.Value
	if p.curIs(closeTok) {
		return vals, nil
	}
	for {
		v, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		vals = append(vals, v)
		p.next()
		if p.curIs(iltoken.COMMA) {
			p.next()
			if p.curIs(closeTok) {
				return nil, p.err("missing operand")
			}
			continue
		}
		break
	}
	if !p.curIs(closeTok) {
		return nil, p.err("missing operand")
	}
	return vals, nil
}

// parseTarget parses a branch target: `['^']label` with an optional
// `(arg, ...)` list; a bare label carries no arguments.
func (p *Parser) parseTarget() (string, []il.Value, *diag.Diagnostic) {
	var label string
	switch p.cur.Type {
	case iltoken.LABELREF, iltoken.IDENT:
		label = p.cur.Literal
		p.next()
	case iltoken.LPAREN:
		return "", nil, p.err("malformed branch target: missing label")
	default:
		return "", nil, p.err("missing operand")
	}
	if !p.curIs(iltoken.LPAREN) {
		return label, []il.Value{}, nil
	}
	p.next()
	args, d := p.parseValueList(iltoken.RPAREN)
	if d != nil {
		return "", nil, d
	}
	p.next() // consume ')'
	return label, args, nil
}

// parseOpAndOperands dispatches on opName to parse the operand shape for
// that opcode family, returning an instruction with no result id/type set
// (the caller fills those in for value-producing forms).
func (p *Parser) parseOpAndOperands(opName string) (*il.Instr, *diag.Diagnostic) {
	op := il.Opcode(opName)
	p.next() // move past the opcode token onto its operands

	switch op {
	case il.OpCall, il.OpCallIndirect:
		if !p.curIs(iltoken.GLOBAL) {
			return nil, p.err("malformed call")
		}
		callee := p.cur.Literal
		p.next()
		if !p.curIs(iltoken.LPAREN) {
			return nil, p.err("malformed call")
		}
		p.next()
		args, d := p.parseValueList(iltoken.RPAREN)
		if d != nil {
			return nil, d
		}
		p.next() // consume ')'
		return &il.Instr{Op: op, Callee: callee, Operands: args}, nil

	case il.OpAlloca:
		t, d := p.parseType("unsupported type")
		if d != nil {
			return nil, d
		}
		p.next()
		return &il.Instr{Op: op, AllocType: t}, nil

	case il.OpLoad:
		v, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		p.next()
		return &il.Instr{Op: op, Operands: []il.Value{v}}, nil

	case il.OpStore:
		// `store <type> <ptr>, <value>` — the type names the width being
		// written through ptr, carried on the instruction since a store
		// has no result to hang a type on.
		storeType, d := p.parseType("unsupported type")
		if d != nil {
			return nil, d
		}
		p.next()
		ptr, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		p.next()
		if !p.curIs(iltoken.COMMA) {
			return nil, p.err("missing operand")
		}
		p.next()
		val, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		p.next()
		return &il.Instr{Op: op, StoreType: storeType, Operands: []il.Value{ptr, val}}, nil

	case il.OpGep:
		base, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		p.next()
		if !p.curIs(iltoken.COMMA) {
			return nil, p.err("missing operand")
		}
		p.next()
		idx, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		p.next()
		return &il.Instr{Op: op, Operands: []il.Value{base, idx}}, nil

	case il.OpBr, il.OpResumeLabel:
		label, args, d := p.parseTarget()
		if d != nil {
			return nil, d
		}
		return &il.Instr{Op: op, Labels: []string{label}, BrArgs: [][]il.Value{args}}, nil

	case il.OpCbr:
		cond, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		p.next()
		if !p.curIs(iltoken.COMMA) {
			return nil, p.err("malformed br")
		}
		p.next()
		l1, a1, d := p.parseTarget()
		if d != nil {
			return nil, d
		}
		if !p.curIs(iltoken.COMMA) {
			return nil, p.err("malformed br")
		}
		p.next()
		l2, a2, d := p.parseTarget()
		if d != nil {
			return nil, d
		}
		return &il.Instr{
			Op: op, Operands: []il.Value{cond},
			Labels: []string{l1, l2}, BrArgs: [][]il.Value{a1, a2},
		}, nil

	case il.OpSwitchI32:
		return p.parseSwitch()

	case il.OpRet:
		if !p.isValueStart() {
			return &il.Instr{Op: op}, nil
		}
		v, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		p.next()
		return &il.Instr{Op: op, Operands: []il.Value{v}}, nil

	case il.OpTrap:
		if p.curIs(iltoken.STRING) {
			s, err := unescape(p.cur.Literal)
			if err != nil {
				return nil, p.err("unknown escape")
			}
			p.next()
			return &il.Instr{Op: op, Operands: []il.Value{il.ConstString(s)}}, nil
		}
		return &il.Instr{Op: op}, nil

	default:
		arity := op.Arity()
		if arity == 0 {
			return nil, p.err("unknown opcode " + opName)
		}
		var vals []il.Value
		v1, d := p.parseValue()
		if d != nil {
			return nil, d
		}
		p.next()
		vals = append(vals, v1)
		if arity == 2 {
			if !p.curIs(iltoken.COMMA) {
				return nil, p.err("missing operand")
			}
			p.next()
			v2, d := p.parseValue()
			if d != nil {
				return nil, d
			}
			p.next()
			vals = append(vals, v2)
		}
		return &il.Instr{Op: op, Operands: vals}, nil
	}
}

func (p *Parser) parseSwitch() (*il.Instr, *diag.Diagnostic) {
	val, d := p.parseValue()
	if d != nil {
		return nil, d
	}
	p.next()
	if !p.curIs(iltoken.COMMA) {
		return nil, p.err("malformed br")
	}
	p.next()
	if !(p.curIs(iltoken.IDENT) && p.cur.Literal == "default") {
		return nil, p.err("malformed br: expected 'default'")
	}
	p.next()
	defLabel, defArgs, derr := p.parseTarget()
	if derr != nil {
		return nil, derr
	}

	instr := &il.Instr{Op: il.OpSwitchI32, Operands: []il.Value{val}, Default: defLabel, DefaultArg: defArgs}

	for p.curIs(iltoken.COMMA) {
		p.next()
		if !(p.curIs(iltoken.IDENT) && p.cur.Literal == "case") {
			return nil, p.err("malformed br: expected 'case'")
		}
		p.next()
		if !p.curIs(iltoken.INT) {
			return nil, p.err("missing operand")
		}
		cv, err := parseIntLiteral(p.cur.Literal)
		if err != nil {
			return nil, p.err("invalid integer literal")
		}
		p.next()
		if !p.curIs(iltoken.ARROW) {
			return nil, p.err("malformed br: expected '->'")
		}
		p.next()
		label, args, terr := p.parseTarget()
		if terr != nil {
			return nil, terr
		}
		instr.CaseVals = append(instr.CaseVals, int32(cv))
		instr.Labels = append(instr.Labels, label)
		instr.BrArgs = append(instr.BrArgs, args)
	}
	return instr, nil
}
