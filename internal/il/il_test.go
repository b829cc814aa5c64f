package il

import "testing"

func TestTypeFromName(t *testing.T) {
	cases := map[string]Type{
		"void": Void, "i1": I1, "i16": I16, "i32": I32, "i64": I64,
		"f32": F32, "f64": F64, "ptr": Ptr, "str": Str,
	}
	for name, want := range cases {
		got, ok := TypeFromName(name)
		if !ok || got != want {
			t.Errorf("TypeFromName(%q) = %v, %v; want %v, true", name, got, ok, want)
		}
	}
	if _, ok := TypeFromName("bogus"); ok {
		t.Error("TypeFromName(\"bogus\") should fail")
	}
}

func TestTypeBitWidth(t *testing.T) {
	if I64.BitWidth() != 64 || I1.BitWidth() != 1 || Ptr.BitWidth() != 0 {
		t.Error("unexpected BitWidth results")
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Temp(3), "%3"},
		{ConstInt(42), "42"},
		{ConstBool(true), "true"},
		{ConstBool(false), "false"},
		{ConstFloat(2.0), "2.0"},
		{ConstString("hi"), `"hi"`},
		{GlobalAddr("foo"), "@foo"},
		{Null(), "null"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("%+v.String() = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestValueEqual(t *testing.T) {
	if !Temp(1).Equal(Temp(1)) {
		t.Error("Temp(1) should equal Temp(1)")
	}
	if Temp(1).Equal(Temp(2)) {
		t.Error("Temp(1) should not equal Temp(2)")
	}
	if !ConstInt(5).Equal(ConstInt(5)) {
		t.Error("ConstInt(5) should equal ConstInt(5)")
	}
	nan := ConstFloat(0)
	nan.Float = nan.Float / nan.Float // NaN via 0/0 without importing math
	if !nan.Equal(nan) {
		t.Error("NaN should equal itself per Value.Equal")
	}
}

func TestModuleLookup(t *testing.T) {
	m := &Module{
		Externs:   []*Extern{{Name: "puts", RetType: Void, ParamTypes: []Type{Str}}},
		Functions: []*Function{{Name: "main", RetType: I64}},
	}
	if m.FindExtern("puts") == nil {
		t.Error("expected to find extern puts")
	}
	if m.FindFunction("main") == nil {
		t.Error("expected to find function main")
	}
	if m.FindFunction("nope") != nil {
		t.Error("expected nil for missing function")
	}
	ret, params, ok := m.Signature("puts")
	if !ok || ret != Void || len(params) != 1 || params[0] != Str {
		t.Errorf("Signature(puts) = %v, %v, %v", ret, params, ok)
	}
}

func TestFunctionFreshID(t *testing.T) {
	fn := &Function{NextID: 5}
	if id := fn.FreshID(); id != 5 {
		t.Errorf("FreshID() = %d, want 5", id)
	}
	if fn.NextID != 6 {
		t.Errorf("NextID = %d, want 6", fn.NextID)
	}
}

func TestBasicBlockTerminator(t *testing.T) {
	b := &BasicBlock{Instrs: []Instr{{Op: OpAdd}, {Op: OpRet}}}
	if term := b.Terminator(); term.Op != OpRet {
		t.Errorf("Terminator() = %v, want ret", term.Op)
	}
	empty := &BasicBlock{}
	if empty.Terminator() != nil {
		t.Error("empty block should have nil Terminator")
	}
}

func TestOpcodeClassification(t *testing.T) {
	if !OpBr.IsTerminator() || OpAdd.IsTerminator() {
		t.Error("IsTerminator misclassified")
	}
	if !OpAddOvf.IsOverflowChecked() || OpAdd.IsOverflowChecked() {
		t.Error("IsOverflowChecked misclassified")
	}
	if !OpSDivChk0.IsCheckedDivRem() || OpSDiv.IsCheckedDivRem() {
		t.Error("IsCheckedDivRem misclassified")
	}
	if OpAdd.Arity() != 2 || OpSiToFp.Arity() != 1 || OpLoad.Arity() != 0 {
		t.Error("Arity misclassified")
	}
	if !OpCmpEq.HasResult() || OpStore.HasResult() || OpBr.HasResult() {
		t.Error("HasResult misclassified")
	}
}
