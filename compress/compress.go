// Package compress folds a micro-step trace into source-line-aligned
// semantic steps.
package compress

import (
	"fmt"
	"strings"

	"github.com/chronovm/chronovm/vm"
)

// SemanticType names one of the classifications in §3/§4.8.
type SemanticType string

const (
	TypeAssignment     SemanticType = "assignment"
	TypePrint          SemanticType = "print"
	TypeBranchDecision SemanticType = "branch_decision"
	TypeLoopCheck      SemanticType = "loop_check"
	TypeLoopIteration  SemanticType = "loop_iteration"
	TypeLoopExit       SemanticType = "loop_exit"
	TypeFunctionDef    SemanticType = "function_def"
	TypeFunctionCall   SemanticType = "function_call"
	TypeFunctionReturn SemanticType = "function_return"
	TypeListCreate     SemanticType = "list_create"
	TypeListMutate     SemanticType = "list_mutate"
	TypeObjectCreate   SemanticType = "object_create"
	TypePropertyAccess SemanticType = "property_access"
	TypeClassDef       SemanticType = "class_def"
	TypeExpression     SemanticType = "expression"
	TypeHalt           SemanticType = "halt"
)

// VariableChange is a (before, after) value-string pair for one name.
type VariableChange struct {
	Before string
	After  string
}

// ControlFlowMeta is the optional branch/loop_check metadata of §3.
type ControlFlowMeta struct {
	IsLoop        bool
	ConditionTrue bool
	Label         string
}

// SemanticStep is one source-line-aligned group of micro-steps.
type SemanticStep struct {
	Index   int
	Line    int
	Type    SemanticType
	Summary string

	Start int // inclusive micro-step index
	End   int // exclusive micro-step index

	FinalState *vm.State // the state at End-1

	VariableChanges map[string]VariableChange
	Output          []string

	ControlFlow *ControlFlowMeta
	Iteration   *int
}

type group struct {
	start, end int // [start, end) micro-step indices
	line       int
	opcodes    []vm.Opcode
}

// CompressTrace groups trace into semantic steps aligned to sourceMap,
// a pc -> 1-based-source-line table (line 0 marks compiler-internal
// instructions and never starts a new group on its own — except HALT,
// which always does, so the program's final real statement keeps its
// own type instead of being absorbed into a trailing halt). The state
// immediately before trace[0] is reconstructed via
// vm.CreateInitialState, which is exactly that state since the VM is a
// pure function of the program —
// this lets CompressTrace take only (trace, sourceMap), matching §6.
func CompressTrace(trace vm.Trace, sourceMap []int) []SemanticStep {
	if len(trace) == 0 {
		return nil
	}

	program := trace[0].Program
	initial := vm.CreateInitialState(program)
	before := func(i int) *vm.State {
		if i == 0 {
			return initial
		}
		return trace[i-1]
	}
	lineOf := func(pc int) int {
		if pc < 0 || pc >= len(sourceMap) {
			return 0
		}
		return sourceMap[pc]
	}

	loopHeads := findLoopHeads(program)

	var groups []group
	var cur *group
	activeLine := 0
	for i := range trace {
		pc := before(i).PC
		op := opcodeAt(program, pc)
		line := lineOf(pc)

		if cur == nil {
			cur = &group{start: i, line: line}
			if line != 0 {
				activeLine = line
			}
		} else if op == vm.OpHalt || (line != 0 && line != activeLine) {
			// HALT always starts its own group, even though the compiler
			// emits it at line 0: otherwise it silently absorbs whatever
			// group was still open (the program's last real statement)
			// and classify's HALT check, first in the cascade, would
			// reclassify that statement's type as a bare halt.
			cur.end = i
			groups = append(groups, *cur)
			cur = &group{start: i, line: line}
			if line != 0 {
				activeLine = line
			}
		}
		cur.opcodes = append(cur.opcodes, op)
	}
	if cur != nil {
		cur.end = len(trace)
		groups = append(groups, *cur)
	}

	iterationCounts := map[int]int{}
	steps := make([]SemanticStep, 0, len(groups))
	for idx, g := range groups {
		startState := before(g.start)
		endState := trace[g.end-1]
		startPC := before(g.start).PC

		typ := classify(g, startPC, loopHeads)

		var cf *ControlFlowMeta
		var iteration *int
		if typ == TypeLoopCheck || typ == TypeBranchDecision {
			prePC := before(g.end - 1).PC
			condition := branchCondition(program, prePC, endState.PC)
			label := "branch"
			if typ == TypeLoopCheck {
				label = "loop_check"
			}
			cf = &ControlFlowMeta{IsLoop: typ == TypeLoopCheck, ConditionTrue: condition, Label: label}
			if typ == TypeLoopCheck {
				if condition {
					iterationCounts[startPC]++
					n := iterationCounts[startPC]
					iteration = &n
				} else {
					typ = TypeLoopExit
				}
			}
		}

		variableChanges := variableDiff(startState, endState)
		output := endState.Output[len(startState.Output):]

		steps = append(steps, SemanticStep{
			Index:           idx,
			Line:            g.line,
			Type:            typ,
			Summary:         summarize(typ, g.line, variableChanges, output, cf, iteration),
			Start:           g.start,
			End:             g.end,
			FinalState:      endState,
			VariableChanges: variableChanges,
			Output:          append([]string(nil), output...),
			ControlFlow:     cf,
			Iteration:       iteration,
		})
	}
	return steps
}

func opcodeAt(p *vm.Program, pc int) vm.Opcode {
	if pc < 0 || pc >= p.Len() {
		return vm.OpInvalid
	}
	return p.Instructions[pc].Op
}

// findLoopHeads returns the set of pcs that are the target of some
// backward (or self-targeting) jump: target <= the jump's own pc.
func findLoopHeads(p *vm.Program) map[int]bool {
	heads := map[int]bool{}
	for pc, ins := range p.Instructions {
		switch ins.Op {
		case vm.OpJump, vm.OpJumpIfFalse, vm.OpJumpIfTrue:
			if ins.Int <= pc {
				heads[ins.Int] = true
			}
		}
	}
	return heads
}

// classify applies the ordered cascade of §4.8; first match wins.
func classify(g group, startPC int, loopHeads map[int]bool) SemanticType {
	has := func(op vm.Opcode) bool {
		for _, o := range g.opcodes {
			if o == op {
				return true
			}
		}
		return false
	}
	if has(vm.OpHalt) {
		return TypeHalt
	}
	if has(vm.OpRet) {
		return TypeFunctionReturn
	}
	if has(vm.OpMakeFunction) && has(vm.OpStore) {
		return TypeFunctionDef
	}
	if has(vm.OpCall) {
		return TypeFunctionCall
	}
	if has(vm.OpPrint) {
		return TypePrint
	}
	if has(vm.OpNewList) {
		return TypeListCreate
	}
	if has(vm.OpListAppend) || has(vm.OpListSet) {
		return TypeListMutate
	}
	if has(vm.OpNewObject) {
		return TypeObjectCreate
	}
	if has(vm.OpSetProperty) || has(vm.OpGetProperty) {
		return TypePropertyAccess
	}
	if has(vm.OpJumpIfFalse) || has(vm.OpJumpIfTrue) {
		if loopHeads[startPC] {
			return TypeLoopCheck
		}
		return TypeBranchDecision
	}
	if has(vm.OpStore) {
		return TypeAssignment
	}
	return TypeExpression
}

// branchCondition re-derives the logical condition the same way
// explain's controlFlowEvent does: whether the post-state's pc fell straight
// through (prePC+1) vs jumped, adjusted for opcode polarity.
func branchCondition(p *vm.Program, prePC, postPC int) bool {
	op := opcodeAt(p, prePC)
	taken := postPC != prePC+1
	if op == vm.OpJumpIfTrue {
		return taken
	}
	return !taken
}

var visiblePrefixes = []string{"__", "arg"}

func isVisible(name string) bool {
	for _, p := range visiblePrefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}

func variableDiff(start, end *vm.State) map[string]VariableChange {
	startEnv := start.Envs[start.CurrentEnv]
	endEnv := end.Envs[end.CurrentEnv]

	names := map[string]bool{}
	if startEnv != nil {
		for pair := startEnv.Bindings.Oldest(); pair != nil; pair = pair.Next() {
			if isVisible(pair.Key) {
				names[pair.Key] = true
			}
		}
	}
	if endEnv != nil {
		for pair := endEnv.Bindings.Oldest(); pair != nil; pair = pair.Next() {
			if isVisible(pair.Key) {
				names[pair.Key] = true
			}
		}
	}

	out := map[string]VariableChange{}
	for name := range names {
		before := "None"
		after := "None"
		if startEnv != nil {
			if addr, ok := startEnv.Bindings.Get(name); ok {
				before = reprAt(start, addr)
			}
		}
		if endEnv != nil {
			if addr, ok := endEnv.Bindings.Get(name); ok {
				after = reprAt(end, addr)
			}
		}
		if before != after {
			out[name] = VariableChange{Before: before, After: after}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func reprAt(s *vm.State, addr vm.Address) string {
	obj, ok := s.Heap[addr]
	if !ok {
		return "unknown"
	}
	return obj.Repr()
}

func summarize(typ SemanticType, line int, changes map[string]VariableChange, output []string, cf *ControlFlowMeta, iteration *int) string {
	switch typ {
	case TypeAssignment:
		if len(changes) == 1 {
			for name, ch := range changes {
				return fmt.Sprintf("%s = %s", name, ch.After)
			}
		}
		return fmt.Sprintf("Assignment (line %d)", line)
	case TypePrint:
		return fmt.Sprintf("print(%s)", strings.Join(output, ", "))
	case TypeBranchDecision:
		if cf != nil {
			return fmt.Sprintf("Branch (line %d): %v", line, cf.ConditionTrue)
		}
		return fmt.Sprintf("Branch (line %d)", line)
	case TypeLoopCheck:
		if iteration != nil {
			return fmt.Sprintf("Loop check (line %d): iteration %d", line, *iteration)
		}
		return fmt.Sprintf("Loop check (line %d)", line)
	case TypeLoopExit:
		return fmt.Sprintf("Loop exit (line %d)", line)
	case TypeFunctionDef:
		return fmt.Sprintf("Define function (line %d)", line)
	case TypeFunctionCall:
		return fmt.Sprintf("Call (line %d)", line)
	case TypeFunctionReturn:
		return fmt.Sprintf("Return (line %d)", line)
	case TypeListCreate:
		return fmt.Sprintf("Create list (line %d)", line)
	case TypeListMutate:
		return fmt.Sprintf("Mutate list (line %d)", line)
	case TypeObjectCreate:
		return fmt.Sprintf("Create object (line %d)", line)
	case TypePropertyAccess:
		return fmt.Sprintf("Property access (line %d)", line)
	case TypeClassDef:
		return fmt.Sprintf("Define class (line %d)", line)
	case TypeHalt:
		return "Halt"
	default:
		return fmt.Sprintf("Expression (line %d)", line)
	}
}
