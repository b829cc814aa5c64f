// Package iltoken defines the lexical token vocabulary for Viper's textual
// intermediate language.
package iltoken

import "fmt"

// Type represents the type of a token.
type Type int

const (
	// Special tokens
	ILLEGAL Type = iota
	EOF
	COMMENT

	// Literals
	IDENT  // identifier, possibly dotted (qualified)
	INT    // 123, -45
	FLOAT  // 1.5, NaN, Inf, +Inf, -Inf
	STRING // "..."
	TEMP   // %name
	GLOBAL // @name
	LABELREF // ^label

	// Keywords
	IL
	TARGET
	EXTERN
	GLOBAL_KW
	CONST
	FUNC
	TRUE
	FALSE
	NULL

	// Punctuation
	ARROW // ->
	EQUAL // =
	COMMA
	COLON
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
)

var names = map[Type]string{
	ILLEGAL:  "ILLEGAL",
	EOF:      "EOF",
	COMMENT:  "COMMENT",
	IDENT:    "IDENT",
	INT:      "INT",
	FLOAT:    "FLOAT",
	STRING:   "STRING",
	TEMP:     "TEMP",
	GLOBAL:   "GLOBAL",
	LABELREF: "LABELREF",

	IL:        "il",
	TARGET:    "target",
	EXTERN:    "extern",
	GLOBAL_KW: "global",
	CONST:     "const",
	FUNC:      "func",
	TRUE:      "true",
	FALSE:     "false",
	NULL:      "null",

	ARROW:    "->",
	EQUAL:    "=",
	COMMA:    ",",
	COLON:    ":",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACE:   "{",
	RBRACE:   "}",
	LBRACKET: "[",
	RBRACKET: "]",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// keywords maps bare identifier text to its keyword token type. Matching
// happens only after a full identifier has been scanned, so "func" never
// matches a prefix of "function" and "global" never matches "global_loop".
var keywords = map[string]Type{
	"il":     IL,
	"target": TARGET,
	"extern": EXTERN,
	"global": GLOBAL_KW,
	"const":  CONST,
	"func":   FUNC,
	"true":   TRUE,
	"false":  FALSE,
	"null":   NULL,
}

// LookupIdent reports the keyword token type for ident, or IDENT if it is
// not a keyword.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token is a single lexical token with its source position.
type Token struct {
	Type    Type
	Literal string
	Line    int
	Column  int
	File    string
}

// New constructs a Token.
func New(typ Type, literal string, line, column int, file string) Token {
	return Token{Type: typ, Literal: literal, Line: line, Column: column, File: file}
}

// Position renders "file:line:column" for use in diagnostics.
func (t Token) Position() string {
	return fmt.Sprintf("%s:%d:%d", t.File, t.Line, t.Column)
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, %s}", t.Type, t.Literal, t.Position())
}
