package illex

import (
	"testing"

	"github.com/viper-lang/viper/internal/iltoken"
)

func tokenTypes(src string) []iltoken.Type {
	l := New(src, "test.il")
	var types []iltoken.Type
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == iltoken.EOF {
			return types
		}
	}
}

func TestLexer_Keywords(t *testing.T) {
	got := tokenTypes("func global target")
	want := []iltoken.Type{iltoken.FUNC, iltoken.GLOBAL_KW, iltoken.TARGET, iltoken.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexer_KeywordPrefixDoesNotMatch(t *testing.T) {
	// "function" must lex as one IDENT, not FUNC followed by junk.
	l := New("function global_loop", "t.il")
	tok := l.NextToken()
	if tok.Type != iltoken.IDENT || tok.Literal != "function" {
		t.Errorf("got %v %q, want IDENT \"function\"", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != iltoken.IDENT || tok.Literal != "global_loop" {
		t.Errorf("got %v %q, want IDENT \"global_loop\"", tok.Type, tok.Literal)
	}
}

func TestLexer_DottedIdentifier(t *testing.T) {
	l := New("sdiv.chk0", "t.il")
	tok := l.NextToken()
	if tok.Type != iltoken.IDENT || tok.Literal != "sdiv.chk0" {
		t.Errorf("got %v %q, want IDENT \"sdiv.chk0\"", tok.Type, tok.Literal)
	}
}

func TestLexer_Sigils(t *testing.T) {
	l := New("%r @sym ^label", "t.il")
	tok := l.NextToken()
	if tok.Type != iltoken.TEMP || tok.Literal != "r" {
		t.Errorf("got %v %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != iltoken.GLOBAL || tok.Literal != "sym" {
		t.Errorf("got %v %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != iltoken.LABELREF || tok.Literal != "label" {
		t.Errorf("got %v %q", tok.Type, tok.Literal)
	}
}

func TestLexer_Numbers(t *testing.T) {
	cases := map[string]iltoken.Type{
		"42":    iltoken.INT,
		"-7":    iltoken.INT,
		"3.14":  iltoken.FLOAT,
		"1e10":  iltoken.FLOAT,
		"NaN":   iltoken.FLOAT,
		"+Inf":  iltoken.FLOAT,
		"-Inf":  iltoken.FLOAT,
	}
	for src, want := range cases {
		l := New(src, "t.il")
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("lexing %q: got %v, want %v", src, tok.Type, want)
		}
	}
}

func TestLexer_String(t *testing.T) {
	l := New(`"hello\nworld"`, "t.il")
	tok := l.NextToken()
	if tok.Type != iltoken.STRING {
		t.Fatalf("got %v, want STRING", tok.Type)
	}
	if tok.Literal != `hello\nworld` {
		t.Errorf("got literal %q, want raw escape preserved", tok.Literal)
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	l := New(`"oops`, "t.il")
	tok := l.NextToken()
	if tok.Type != iltoken.ILLEGAL {
		t.Errorf("got %v, want ILLEGAL for unterminated string", tok.Type)
	}
}

func TestLexer_CommentLines(t *testing.T) {
	l := New("# comment\nfunc // trailing\nextern", "t.il")
	tok := l.NextToken()
	if tok.Type != iltoken.FUNC {
		t.Errorf("got %v, want FUNC (comment skipped)", tok.Type)
	}
	tok = l.NextToken()
	if tok.Type != iltoken.EXTERN {
		t.Errorf("got %v, want EXTERN", tok.Type)
	}
}

func TestLexer_BOMStripped(t *testing.T) {
	l := New("\uFEFFil 1", "t.il")
	tok := l.NextToken()
	if tok.Type != iltoken.IL {
		t.Errorf("got %v, want IL (BOM should be stripped)", tok.Type)
	}
}

func TestNormalize_NFCNormalizesDecomposedAccents(t *testing.T) {
	decomposed := "cafe\u0301" // "e" followed by a combining acute accent
	composed := "caf\u00e9"    // precomposed U+00E9
	if decomposed == composed {
		t.Fatalf("test fixture is already composed")
	}
	if got := Normalize(decomposed); got != composed {
		t.Errorf("Normalize(%q) = %q, want %q", decomposed, got, composed)
	}
}

func TestNormalize_StripsBOMBeforeNormalizing(t *testing.T) {
	got := Normalize("\uFEFFil 1")
	if got != "il 1" {
		t.Errorf("Normalize did not strip BOM: got %q", got)
	}
}

func TestLexer_Arrow(t *testing.T) {
	l := New("->", "t.il")
	tok := l.NextToken()
	if tok.Type != iltoken.ARROW || tok.Literal != "->" {
		t.Errorf("got %v %q, want ARROW", tok.Type, tok.Literal)
	}
}
