package compile

import (
	"fmt"
	"strconv"

	"github.com/chronovm/chronovm/vm"
)

// codegen walks the statement tree and emits a flat vm.Program plus a
// parallel pc -> source-line table, grounded on the teacher's
// compiler.compiler (single emitter struct, backpatched jumps) but
// targeting this module's stack-machine opcodes instead of expr's.
type codegen struct {
	code []vm.Instruction
	line []int
}

func compileProgram(stmts []Stmt) (*vm.Program, []int) {
	g := &codegen{}
	for _, s := range stmts {
		g.compileStmt(s)
	}
	g.emit(vm.OpHalt, 0)
	return &vm.Program{Instructions: g.code}, g.line
}

func (g *codegen) pc() int { return len(g.code) }

func (g *codegen) emit(op vm.Opcode, line int) int {
	g.code = append(g.code, vm.Instruction{Op: op})
	g.line = append(g.line, line)
	return g.pc() - 1
}

func (g *codegen) emitInt(op vm.Opcode, n, line int) int {
	idx := g.emit(op, line)
	g.code[idx].Int = n
	return idx
}

func (g *codegen) emitName(op vm.Opcode, name string, line int) int {
	idx := g.emit(op, line)
	g.code[idx].Name = name
	return idx
}

func (g *codegen) emitConst(lit vm.Literal, line int) int {
	idx := g.emit(vm.OpLoadConst, line)
	g.code[idx].Const = lit
	return idx
}

func (g *codegen) patch(idx, target int) { g.code[idx].Int = target }

func paramName(i int) string { return "arg" + strconv.Itoa(i) }

func (g *codegen) compileStmt(s Stmt) {
	switch v := s.(type) {
	case *AssignStmt:
		g.compileAssign(v)
	case *ExprStmt:
		g.compileExpr(v.X)
		g.emit(vm.OpPop, v.Line)
	case *PrintStmt:
		g.compileExpr(v.Value)
		g.emit(vm.OpPrint, v.Line)
	case *IfStmt:
		g.compileIf(v)
	case *WhileStmt:
		g.compileWhile(v)
	case *ForStmt:
		g.compileFor(v)
	case *FuncDef:
		g.compileFuncDef(v)
	case *ReturnStmt:
		g.compileReturn(v)
	case *PassStmt:
		// no bytecode
	default:
		panic(fmt.Sprintf("compile: unhandled statement %T", s))
	}
}

func (g *codegen) compileAssign(v *AssignStmt) {
	switch t := v.Target.(type) {
	case NameTarget:
		g.compileExpr(v.Value)
		g.emitName(vm.OpStore, t.Name, v.Line)
	case AttrTarget:
		g.compileExpr(t.Object)
		g.compileExpr(v.Value)
		g.emitName(vm.OpSetProperty, t.Name, v.Line)
		g.emit(vm.OpPop, v.Line)
	case IndexTarget:
		g.compileExpr(t.Object)
		g.compileExpr(t.Index)
		g.compileExpr(v.Value)
		g.emit(vm.OpListSet, v.Line)
		g.emit(vm.OpPop, v.Line)
	}
}

func (g *codegen) compileIf(v *IfStmt) {
	g.compileExpr(v.Cond)
	jElse := g.emitInt(vm.OpJumpIfFalse, 0, v.Line)
	for _, s := range v.Then {
		g.compileStmt(s)
	}
	if v.Else != nil {
		jEnd := g.emitInt(vm.OpJump, 0, 0)
		g.patch(jElse, g.pc())
		for _, s := range v.Else {
			g.compileStmt(s)
		}
		g.patch(jEnd, g.pc())
	} else {
		g.patch(jElse, g.pc())
	}
}

func (g *codegen) compileWhile(v *WhileStmt) {
	head := g.pc()
	g.compileExpr(v.Cond)
	jExit := g.emitInt(vm.OpJumpIfFalse, 0, v.Line)
	for _, s := range v.Body {
		g.compileStmt(s)
	}
	g.emitInt(vm.OpJump, head, 0)
	g.patch(jExit, g.pc())
}

// compileFor lowers `for x in range(start, stop): body` into an
// explicit while loop: the init store and the loop-check condition
// carry the for-statement's own line, but the increment and backward
// jump are compiler-internal (line 0), so compress can tell a loop
// body step apart from its hidden bookkeeping.
func (g *codegen) compileFor(v *ForStmt) {
	g.compileExpr(v.Start)
	g.emitName(vm.OpStore, v.Var, v.Line)
	head := g.pc()
	g.emitName(vm.OpLoad, v.Var, v.Line)
	g.compileExpr(v.Stop)
	g.emit(vm.OpLt, v.Line)
	jExit := g.emitInt(vm.OpJumpIfFalse, 0, v.Line)
	for _, s := range v.Body {
		g.compileStmt(s)
	}
	g.emitName(vm.OpLoad, v.Var, 0)
	g.emitConst(vm.LitInt(1), 0)
	g.emit(vm.OpAdd, 0)
	g.emitName(vm.OpStore, v.Var, 0)
	g.emitInt(vm.OpJump, head, 0)
	g.patch(jExit, g.pc())
}

// compileFuncDef jumps over the body (so top-level control flow skips
// it), then emits the parameter-binding prologue, the body, and an
// unconditional implicit `return None` as a safety net for paths that
// fall off the end without an explicit return.
func (g *codegen) compileFuncDef(v *FuncDef) {
	jOver := g.emitInt(vm.OpJump, 0, v.Line)
	entry := g.pc()
	for i, param := range v.Params {
		g.emitName(vm.OpLoad, paramName(i), 0)
		g.emitName(vm.OpStore, param, 0)
	}
	for _, s := range v.Body {
		g.compileStmt(s)
	}
	g.emitConst(vm.LitNull(), 0)
	g.emit(vm.OpRet, 0)
	g.patch(jOver, g.pc())
	g.emitInt(vm.OpMakeFunction, entry, v.Line)
	g.emitName(vm.OpStore, v.Name, v.Line)
}

func (g *codegen) compileReturn(v *ReturnStmt) {
	if v.Value != nil {
		g.compileExpr(v.Value)
	} else {
		g.emitConst(vm.LitNull(), v.Line)
	}
	g.emit(vm.OpRet, v.Line)
}

func (g *codegen) compileExpr(e Expr) {
	switch v := e.(type) {
	case *NumberLit:
		if v.IsFloat {
			g.emitConst(vm.LitFloat(v.Float), v.Line)
		} else {
			g.emitConst(vm.LitInt(v.Int), v.Line)
		}
	case *StringLit:
		g.emitConst(vm.LitString(v.Value), v.Line)
	case *BoolLit:
		g.emitConst(vm.LitBool(v.Value), v.Line)
	case *NoneLit:
		g.emitConst(vm.LitNull(), v.Line)
	case *NameExpr:
		g.emitName(vm.OpLoad, v.Name, v.Line)
	case *BinaryExpr:
		g.compileBinary(v)
	case *UnaryExpr:
		g.compileExpr(v.X)
		if v.Op == "-" {
			g.emit(vm.OpNegate, v.Line)
		} else {
			g.emit(vm.OpNot, v.Line)
		}
	case *CallExpr:
		g.compileCall(v)
	case *MethodCallExpr:
		g.compileMethodCall(v)
	case *IndexExpr:
		g.compileExpr(v.Target)
		g.compileExpr(v.Index)
		g.emit(vm.OpListGet, v.Line)
	case *AttrExpr:
		g.compileExpr(v.Target)
		g.emitName(vm.OpGetProperty, v.Name, v.Line)
	case *ListLit:
		g.emit(vm.OpNewList, v.Line)
		for _, el := range v.Elems {
			g.compileExpr(el)
			g.emit(vm.OpListAppend, v.Line)
		}
	case *ObjectLit:
		g.emit(vm.OpNewObject, v.Line)
		for i, key := range v.Keys {
			g.compileExpr(v.Values[i])
			g.emitName(vm.OpSetProperty, key, v.Line)
		}
	default:
		panic(fmt.Sprintf("compile: unhandled expression %T", e))
	}
}

var binaryOpcodes = map[string]vm.Opcode{
	"+": vm.OpAdd, "-": vm.OpSub, "*": vm.OpMul, "/": vm.OpDiv, "%": vm.OpMod,
	"<": vm.OpLt, ">": vm.OpGt, "<=": vm.OpLte, ">=": vm.OpGte,
	"==": vm.OpEq, "!=": vm.OpNeq,
}

func (g *codegen) compileBinary(v *BinaryExpr) {
	switch v.Op {
	case "and":
		g.compileShortCircuit(v, vm.OpJumpIfFalse)
	case "or":
		g.compileShortCircuit(v, vm.OpJumpIfTrue)
	default:
		g.compileExpr(v.Left)
		g.compileExpr(v.Right)
		g.emit(binaryOpcodes[v.Op], v.Line)
	}
}

// compileShortCircuit implements Python-style and/or: DUP the
// left-hand value so the jump can test it without consuming the
// result, falling through to evaluate the right-hand side only when
// short-circuiting doesn't apply. The DUP/JUMP/POP housekeeping is
// compiler-internal (line 0); only the two operand sub-expressions
// keep their own source lines.
func (g *codegen) compileShortCircuit(v *BinaryExpr, jumpOp vm.Opcode) {
	g.compileExpr(v.Left)
	g.emit(vm.OpDup, 0)
	jEnd := g.emitInt(jumpOp, 0, 0)
	g.emit(vm.OpPop, 0)
	g.compileExpr(v.Right)
	g.patch(jEnd, g.pc())
}

func (g *codegen) compileCall(v *CallExpr) {
	if v.Callee == "len" {
		g.compileExpr(v.Args[0])
		g.emit(vm.OpListLen, v.Line)
		return
	}
	for _, a := range v.Args {
		g.compileExpr(a)
	}
	g.emitName(vm.OpLoad, v.Callee, v.Line)
	g.emitInt(vm.OpCall, len(v.Args), v.Line)
}

func (g *codegen) compileMethodCall(v *MethodCallExpr) {
	g.compileExpr(v.Target)
	g.compileExpr(v.Args[0])
	g.emit(vm.OpListAppend, v.Line)
}
