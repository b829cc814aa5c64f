package ilparser

import (
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/iltoken"
)

func (p *Parser) parseExtern() *diag.Diagnostic {
	p.next() // consume 'extern'
	if !p.curIs(iltoken.GLOBAL) {
		return p.err("missing '@' before a global name")
	}
	name := p.cur.Literal
	p.next()
	if !p.curIs(iltoken.LPAREN) {
		return p.err("malformed extern: expected '('")
	}
	p.next()

	var params []il.Type
	for !p.curIs(iltoken.RPAREN) {
		if len(params) > 0 {
			if !p.curIs(iltoken.COMMA) {
				return p.err("missing operand")
			}
			p.next()
			if p.curIs(iltoken.RPAREN) {
				return p.err("missing operand")
			}
		}
		t, d := p.parseType("unsupported global type")
		if d != nil {
			return d
		}
		params = append(params, t)
		p.next()
	}
	p.next() // consume ')'

	if !p.curIs(iltoken.ARROW) {
		return p.err("missing '->' on extern")
	}
	p.next()
	ret, d := p.parseType("unsupported global type")
	if d != nil {
		return d
	}
	p.next()

	p.mod.Externs = append(p.mod.Externs, &il.Extern{Name: name, RetType: ret, ParamTypes: params})
	return nil
}

func (p *Parser) parseGlobal() *diag.Diagnostic {
	p.next() // consume 'global'

	isConst := false
	if p.curIs(iltoken.CONST) {
		isConst = true
		p.next()
	}

	typ, d := p.parseType("unsupported global type")
	if d != nil {
		return d
	}
	p.next()

	if !p.curIs(iltoken.GLOBAL) {
		return p.err("missing '@' before a global name")
	}
	name := p.cur.Literal
	if name == "" {
		return p.err("missing global name")
	}
	p.next()

	if !p.curIs(iltoken.EQUAL) {
		return p.err("missing '=' in global initializer")
	}
	p.next()

	g := &il.Global{Name: name, Type: typ, Const: isConst}
	switch p.cur.Type {
	case iltoken.INT:
		n, _ := parseIntLiteral(p.cur.Literal)
		g.InitKind = il.InitInt
		g.IntVal = n
	case iltoken.FLOAT:
		f, _ := parseFloatLiteral(p.cur.Literal)
		g.InitKind = il.InitFloat
		g.FloatVal = f
	case iltoken.STRING:
		s, err := unescape(p.cur.Literal)
		if err != nil {
			return p.err("unknown escape")
		}
		g.InitKind = il.InitString
		g.StrVal = s
	case iltoken.GLOBAL:
		g.InitKind = il.InitGlobalAddr
		g.AddrOf = p.cur.Literal
	case iltoken.NULL:
		g.InitKind = il.InitNull
	case iltoken.ILLEGAL:
		return p.err("missing closing '\"'")
	default:
		return p.err("missing global initializer")
	}
	p.next()

	p.mod.Globals = append(p.mod.Globals, g)
	return nil
}
