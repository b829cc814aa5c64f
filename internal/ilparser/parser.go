// Package ilparser implements the recursive-descent parser that turns
// Viper IL text into an il.Module. The parser stops at the first fatal
// error and returns a single diagnostic; it never attempts recovery, per
// spec.
package ilparser

import (
	"strconv"
	"strings"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/illex"
	"github.com/viper-lang/viper/internal/iltoken"
)

// Parser consumes a token stream from illex.Lexer and builds an il.Module.
type Parser struct {
	l    *illex.Lexer
	file string

	cur  iltoken.Token
	peek iltoken.Token

	mod *il.Module

	// locals tracks SSA ids defined so far within the function currently
	// being parsed, and the names bound to them (for `%name` references).
	locals map[string]int
	curFn  *il.Function
}

// Parse parses src into a Module, or returns a single fatal *diag.Diagnostic.
func Parse(src string, file string) (*il.Module, *diag.Diagnostic) {
	p := &Parser{l: illex.New(src, file), file: file}
	p.next()
	p.next()
	return p.parseModule()
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) err(msg string) *diag.Diagnostic {
	return diag.AtFile(msg, p.file, p.cur.Line, p.cur.Column)
}

func (p *Parser) curIs(t iltoken.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t iltoken.Type) bool { return p.peek.Type == t }

func (p *Parser) parseModule() (*il.Module, *diag.Diagnostic) {
	m := &il.Module{}
	p.mod = m

	if !p.curIs(iltoken.IL) {
		if p.curIs(iltoken.EOF) {
			return nil, p.err("missing 'il' version directive")
		}
		return nil, p.err("missing 'il' version directive")
	}
	p.next()
	ver, ok := p.readVersionLiteral()
	if !ok {
		return nil, p.err("missing version after 'il' directive")
	}
	m.Version = ver
	p.next()

	for !p.curIs(iltoken.EOF) {
		switch p.cur.Type {
		case iltoken.TARGET:
			if d := p.parseTargetDirective(); d != nil {
				return nil, d
			}
		case iltoken.EXTERN:
			if d := p.parseExtern(); d != nil {
				return nil, d
			}
		case iltoken.GLOBAL_KW:
			if d := p.parseGlobal(); d != nil {
				return nil, d
			}
		case iltoken.FUNC:
			if d := p.parseFunc(); d != nil {
				return nil, d
			}
		default:
			return nil, p.err("unexpected line")
		}
	}
	return m, nil
}

// readVersionLiteral accepts an integer or dotted-float version token.
func (p *Parser) readVersionLiteral() (int, bool) {
	switch p.cur.Type {
	case iltoken.INT:
		n, err := strconv.Atoi(p.cur.Literal)
		if err != nil {
			return 0, false
		}
		return n, true
	case iltoken.FLOAT:
		// "1.0" style version: take the integer major component.
		parts := strings.SplitN(p.cur.Literal, ".", 2)
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (p *Parser) parseTargetDirective() *diag.Diagnostic {
	p.next() // consume 'target'
	if p.curIs(iltoken.ILLEGAL) {
		return p.err("missing closing '\"'")
	}
	if !p.curIs(iltoken.STRING) {
		return p.err("missing target triple string")
	}
	s, err := unescape(p.cur.Literal)
	if err != nil {
		return p.err("unknown escape")
	}
	p.mod.Target = s
	p.next()
	return nil
}

func (p *Parser) parseType(errMsg string) (il.Type, *diag.Diagnostic) {
	if p.cur.Type != iltoken.IDENT {
		return il.Void, p.err(errMsg)
	}
	t, ok := il.TypeFromName(p.cur.Literal)
	if !ok {
		return il.Void, p.err(errMsg)
	}
	return t, nil
}
