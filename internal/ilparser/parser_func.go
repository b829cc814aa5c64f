package ilparser

import (
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/iltoken"
)

func (p *Parser) parseFunc() *diag.Diagnostic {
	p.next() // consume 'func'
	if !p.curIs(iltoken.GLOBAL) {
		return p.err("missing '@' before a global name")
	}
	name := p.cur.Literal
	p.next()

	if !p.curIs(iltoken.LPAREN) {
		return p.err("malformed function: expected '('")
	}
	p.next()

	fn := &il.Function{Name: name, ValueNames: map[int]string{}}
	p.curFn = fn
	p.locals = map[string]int{}

	for !p.curIs(iltoken.RPAREN) {
		if len(fn.Params) > 0 {
			if !p.curIs(iltoken.COMMA) {
				return p.err("missing operand")
			}
			p.next()
			if p.curIs(iltoken.RPAREN) {
				return p.err("missing operand")
			}
		}
		if !p.curIs(iltoken.TEMP) {
			return p.err("malformed function parameter")
		}
		pname := p.cur.Literal
		p.next()
		if !p.curIs(iltoken.COLON) {
			return p.err("malformed function parameter")
		}
		p.next()
		t, d := p.parseType("unsupported type")
		if d != nil {
			return d
		}
		p.next()
		id := fn.FreshID()
		fn.Params = append(fn.Params, il.Param{Name: pname, Type: t, ID: id})
		p.locals[pname] = id
		fn.ValueNames[id] = pname
	}
	p.next() // consume ')'

	if !p.curIs(iltoken.ARROW) {
		return p.err("missing '->' on function")
	}
	p.next()
	ret, d := p.parseType("unsupported type")
	if d != nil {
		return d
	}
	fn.RetType = ret
	p.next()

	if !p.curIs(iltoken.LBRACE) {
		return p.err("malformed function: expected '{'")
	}
	p.next()

	for !p.curIs(iltoken.RBRACE) && !p.curIs(iltoken.EOF) {
		blk, d := p.parseBlock()
		if d != nil {
			return d
		}
		fn.Blocks = append(fn.Blocks, blk)
	}
	if !p.curIs(iltoken.RBRACE) {
		return p.err("malformed function: expected '}'")
	}
	p.next()

	p.mod.Functions = append(p.mod.Functions, fn)
	p.curFn = nil
	p.locals = nil
	return nil
}

func (p *Parser) parseBlock() (*il.BasicBlock, *diag.Diagnostic) {
	if !p.curIs(iltoken.IDENT) {
		return nil, p.err("unexpected line")
	}
	label := p.cur.Literal
	p.next()

	blk := &il.BasicBlock{Label: label}

	if p.curIs(iltoken.LPAREN) {
		p.next()
		for !p.curIs(iltoken.RPAREN) {
			if len(blk.Params) > 0 {
				if !p.curIs(iltoken.COMMA) {
					return nil, p.err("missing operand")
				}
				p.next()
				if p.curIs(iltoken.RPAREN) {
					return nil, p.err("missing operand")
				}
			}
			if !p.curIs(iltoken.TEMP) {
				return nil, p.err("malformed block parameter")
			}
			pname := p.cur.Literal
			p.next()
			if !p.curIs(iltoken.COLON) {
				return nil, p.err("malformed block parameter")
			}
			p.next()
			t, d := p.parseType("unsupported type")
			if d != nil {
				return nil, d
			}
			p.next()
			id := p.curFn.FreshID()
			blk.Params = append(blk.Params, il.BlockParam{ID: id, Name: pname, Type: t})
			p.locals[pname] = id
			p.curFn.ValueNames[id] = pname
		}
		p.next() // consume ')'
	}

	if !p.curIs(iltoken.COLON) {
		return nil, p.err("malformed block: expected ':'")
	}
	p.next()

	for {
		if p.curIs(iltoken.RBRACE) {
			return nil, p.err("missing terminator")
		}
		instr, d := p.parseInstr()
		if d != nil {
			return nil, d
		}
		blk.Instrs = append(blk.Instrs, *instr)
		if instr.IsTerminator() {
			break
		}
	}
	return blk, nil
}
