package basicfront

import (
	"fmt"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
)

// Lower translates a parsed Program into a verifiable IL module. Every
// BASIC variable becomes a stack slot (alloca + load/store), the
// straightforward "slots for everything" lowering a mem2reg pass is meant
// to clean up afterward — this frontend deliberately leans on
// internal/passes/mem2reg.go rather than tracking SSA values itself,
// mirroring how a real compiler front end hands an optimizer unoptimized
// but correct IL.
func Lower(prog *Program) (*il.Module, *diag.Diagnostic) {
	mod := &il.Module{Version: 1}
	mod.Externs = append(mod.Externs,
		&il.Extern{Name: "rt_print_i64", RetType: il.Void, ParamTypes: []il.Type{il.I64}},
		&il.Extern{Name: "rt_print_str", RetType: il.Void, ParamTypes: []il.Type{il.Str}},
	)

	for name, sub := range prog.Subs {
		fn, err := lowerFunction("basic_sub_"+name, sub.Body)
		if err != nil {
			return nil, err
		}
		mod.Functions = append(mod.Functions, fn)
	}

	main, err := lowerFunction("main", prog.Stmts)
	if err != nil {
		return nil, err
	}
	mod.Functions = append(mod.Functions, main)
	return mod, nil
}

// fnBuilder accumulates blocks and slots while lowering one BASIC
// statement list into one IL function.
type fnBuilder struct {
	fn       *il.Function
	cur      *il.BasicBlock
	slots    map[string]int // variable name -> alloca result id
	blockSeq int
}

func lowerFunction(name string, stmts []Stmt) (*il.Function, *diag.Diagnostic) {
	fn := &il.Function{Name: name, RetType: il.I64}
	entry := &il.BasicBlock{Label: "entry"}
	fn.Blocks = append(fn.Blocks, entry)
	b := &fnBuilder{fn: fn, cur: entry, slots: map[string]int{}}

	if err := b.lowerStmts(stmts); err != nil {
		return nil, err
	}
	if t := b.cur.Terminator(); t == nil || !t.IsTerminator() {
		b.emit(il.Instr{Op: il.OpRet, Operands: []il.Value{il.ConstInt(0)}})
	}
	return fn, nil
}

func (b *fnBuilder) newBlock(label string) *il.BasicBlock {
	b.blockSeq++
	blk := &il.BasicBlock{Label: fmt.Sprintf("%s.%d", label, b.blockSeq)}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

func (b *fnBuilder) emit(instr il.Instr) il.Value {
	if instr.HasResult {
		instr.Result = b.fn.FreshID()
	}
	b.cur.Instrs = append(b.cur.Instrs, instr)
	if instr.HasResult {
		return il.Temp(instr.Result)
	}
	return il.Value{}
}

// slot returns the alloca id backing name, declaring it in the entry
// block on first reference.
func (b *fnBuilder) slot(name string) int {
	if id, ok := b.slots[name]; ok {
		return id
	}
	entry := b.fn.Blocks[0]
	id := b.fn.FreshID()
	entry.Instrs = append([]il.Instr{{
		Op: il.OpAlloca, HasResult: true, Result: id, ResultType: il.Ptr, AllocType: il.I64,
	}}, entry.Instrs...)
	b.slots[name] = id
	return id
}

func (b *fnBuilder) lowerStmts(stmts []Stmt) *diag.Diagnostic {
	for _, s := range stmts {
		if err := b.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *fnBuilder) lowerStmt(s Stmt) *diag.Diagnostic {
	switch st := s.(type) {
	case *LetStmt:
		val, err := b.lowerExpr(st.Expr)
		if err != nil {
			return err
		}
		id := b.slot(st.Name)
		b.emit(il.Instr{Op: il.OpStore, StoreType: il.I64, Operands: []il.Value{il.Temp(id), val}})
		return nil

	case *PrintStmt:
		if lit, ok := st.Expr.(*StringLit); ok {
			b.emit(il.Instr{Op: il.OpCall, Callee: "rt_print_str", Operands: []il.Value{il.ConstString(lit.Value)}})
			return nil
		}
		val, err := b.lowerExpr(st.Expr)
		if err != nil {
			return err
		}
		b.emit(il.Instr{Op: il.OpCall, Callee: "rt_print_i64", Operands: []il.Value{val}})
		return nil

	case *CallStmt:
		b.emit(il.Instr{Op: il.OpCall, HasResult: true, ResultType: il.I64, Callee: "basic_sub_" + st.Name})
		return nil

	case *IfStmt:
		return b.lowerIf(st)

	case *WhileStmt:
		return b.lowerWhile(st)

	default:
		return errAt(0, "unsupported statement type %T", s)
	}
}

func (b *fnBuilder) lowerIf(st *IfStmt) *diag.Diagnostic {
	cond, err := b.lowerExpr(st.Cond)
	if err != nil {
		return err
	}
	thenBlk := b.newBlock("if.then")
	elseBlk := b.newBlock("if.else")
	joinBlk := b.newBlock("if.end")

	b.cur.Instrs = append(b.cur.Instrs, il.Instr{
		Op: il.OpCbr, Operands: []il.Value{cond},
		Labels: []string{thenBlk.Label, elseBlk.Label},
		BrArgs: [][]il.Value{{}, {}},
	})

	b.cur = thenBlk
	if err := b.lowerStmts(st.Then); err != nil {
		return err
	}
	if t := b.cur.Terminator(); t == nil || !t.IsTerminator() {
		b.cur.Instrs = append(b.cur.Instrs, il.Instr{Op: il.OpBr, Labels: []string{joinBlk.Label}, BrArgs: [][]il.Value{{}}})
	}

	b.cur = elseBlk
	if err := b.lowerStmts(st.Else); err != nil {
		return err
	}
	if t := b.cur.Terminator(); t == nil || !t.IsTerminator() {
		b.cur.Instrs = append(b.cur.Instrs, il.Instr{Op: il.OpBr, Labels: []string{joinBlk.Label}, BrArgs: [][]il.Value{{}}})
	}

	b.cur = joinBlk
	return nil
}

func (b *fnBuilder) lowerWhile(st *WhileStmt) *diag.Diagnostic {
	headBlk := b.newBlock("while.head")
	bodyBlk := b.newBlock("while.body")
	endBlk := b.newBlock("while.end")

	b.cur.Instrs = append(b.cur.Instrs, il.Instr{Op: il.OpBr, Labels: []string{headBlk.Label}, BrArgs: [][]il.Value{{}}})

	b.cur = headBlk
	cond, err := b.lowerExpr(st.Cond)
	if err != nil {
		return err
	}
	b.cur.Instrs = append(b.cur.Instrs, il.Instr{
		Op: il.OpCbr, Operands: []il.Value{cond},
		Labels: []string{bodyBlk.Label, endBlk.Label},
		BrArgs: [][]il.Value{{}, {}},
	})

	b.cur = bodyBlk
	if err := b.lowerStmts(st.Body); err != nil {
		return err
	}
	if t := b.cur.Terminator(); t == nil || !t.IsTerminator() {
		b.cur.Instrs = append(b.cur.Instrs, il.Instr{Op: il.OpBr, Labels: []string{headBlk.Label}, BrArgs: [][]il.Value{{}}})
	}

	b.cur = endBlk
	return nil
}

func (b *fnBuilder) lowerExpr(e Expr) (il.Value, *diag.Diagnostic) {
	switch ex := e.(type) {
	case *NumberLit:
		return il.ConstInt(ex.Value), nil
	case *StringLit:
		return il.Value{}, errAt(0, "string literal used in numeric context")
	case *VarRef:
		id := b.slot(ex.Name)
		return b.emit(il.Instr{Op: il.OpLoad, HasResult: true, ResultType: il.I64, Operands: []il.Value{il.Temp(id)}}), nil
	case *BinOp:
		left, err := b.lowerExpr(ex.Left)
		if err != nil {
			return il.Value{}, err
		}
		right, err := b.lowerExpr(ex.Right)
		if err != nil {
			return il.Value{}, err
		}
		op, resultType, err := binOpcode(ex.Op)
		if err != nil {
			return il.Value{}, err
		}
		return b.emit(il.Instr{Op: op, HasResult: true, ResultType: resultType, Operands: []il.Value{left, right}}), nil
	default:
		return il.Value{}, errAt(0, "unsupported expression type %T", e)
	}
}

func binOpcode(t TokenType) (il.Opcode, il.Type, *diag.Diagnostic) {
	switch t {
	case TPlus:
		return il.OpAddOvf, il.I64, nil
	case TMinus:
		return il.OpSubOvf, il.I64, nil
	case TStar:
		return il.OpMulOvf, il.I64, nil
	case TSlash:
		return il.OpSDivChk0, il.I64, nil
	case TLt:
		return il.OpCmpSLt, il.I1, nil
	case TLe:
		return il.OpCmpSLe, il.I1, nil
	case TGt:
		return il.OpCmpSGt, il.I1, nil
	case TGe:
		return il.OpCmpSGe, il.I1, nil
	case TEq:
		return il.OpCmpEq, il.I1, nil
	case TNe:
		return il.OpCmpNe, il.I1, nil
	default:
		return "", il.Void, errAt(0, "unsupported binary operator")
	}
}
