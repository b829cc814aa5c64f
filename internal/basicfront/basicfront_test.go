package basicfront

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viper-lang/viper/internal/ilverify"
	"github.com/viper-lang/viper/internal/vm"
	"github.com/viper-lang/viper/internal/vmruntime"
)

func compileAndVerify(t *testing.T, src string) *vm.VM {
	t.Helper()
	mod, err := Compile(src)
	require.Nil(t, err, "compile error: %v", err)
	require.NotNil(t, mod)
	require.Nil(t, ilverify.Verify(mod), "module failed verification")
	return vm.New(mod, vmruntime.Default())
}

func TestCompile_StraightLineLetAndPrint(t *testing.T) {
	const src = `
LET x = 2 + 3
LET y = x * 10
PRINT y
`
	machine := compileAndVerify(t, src)
	result, trap := machine.Run(nil)
	require.Nil(t, trap)
	require.Equal(t, int64(0), result)
}

func TestCompile_IfThenElse(t *testing.T) {
	const src = `
LET x = 5
IF x > 3 THEN
LET y = 1
ELSE
LET y = 2
ENDIF
PRINT y
`
	machine := compileAndVerify(t, src)
	_, trap := machine.Run(nil)
	require.Nil(t, trap)
}

func TestCompile_WhileLoop(t *testing.T) {
	const src = `
LET i = 0
LET acc = 0
WHILE i < 10
LET acc = acc + i
LET i = i + 1
WEND
PRINT acc
`
	machine := compileAndVerify(t, src)
	_, trap := machine.Run(nil)
	require.Nil(t, trap)
}

func TestCompile_SubAndCall(t *testing.T) {
	const src = `
SUB greet
PRINT "hi"
END SUB

CALL greet
`
	machine := compileAndVerify(t, src)
	_, trap := machine.Run(nil)
	require.Nil(t, trap)
}

func TestParse_SyntaxErrorReportsLine(t *testing.T) {
	_, err := Parse("LET x = \n")
	require.NotNil(t, err)
	require.NotNil(t, err.Span)
}

func TestParse_UnterminatedIfReportsError(t *testing.T) {
	_, err := Parse("IF 1 THEN\nPRINT 1\n")
	require.NotNil(t, err)
}

func TestParse_DuplicateSubNameRejected(t *testing.T) {
	const src = `
SUB dup
END SUB
SUB dup
END SUB
`
	_, err := Parse(src)
	require.NotNil(t, err)
}
