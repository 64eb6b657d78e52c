package explain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronovm/chronovm/explain"
	"github.com/chronovm/chronovm/memory"
	"github.com/chronovm/chronovm/memory/diff"
	"github.com/chronovm/chronovm/memory/graph"
	"github.com/chronovm/chronovm/vm"
)

func run(t *testing.T, p *vm.Program) *vm.RunResult {
	t.Helper()
	return vm.RunToHalt(p, vm.RunOptions{})
}

func TestExplainSimpleAssignment(t *testing.T) {
	// x = 2
	p := &vm.Program{Instructions: []vm.Instruction{
		{Op: vm.OpLoadConst, Const: vm.LitInt(2)},
		{Op: vm.OpStore, Name: "x"},
		{Op: vm.OpHalt},
	}}
	result := run(t, p)
	require.Nil(t, result.FinalState.Err)

	before := memory.BuildModel(vm.CreateInitialState(p))
	after := memory.BuildModel(result.FinalState)
	d := diff.DiffModels(before, after)
	gBefore := graph.BuildGraph(before)
	gAfter := graph.BuildGraph(after)

	events := explain.ExplainDiff(d, gBefore, gAfter, explain.ControlFlow{})

	var bound, allocated int
	for _, e := range events {
		switch e.Kind {
		case explain.KindVariableBound:
			bound++
			assert.Equal(t, "x", e.Name)
		case explain.KindObjectAllocated:
			allocated++
			assert.Equal(t, "primitive", e.HeapKind)
		}
	}
	assert.Equal(t, 1, bound)
	assert.Equal(t, 1, allocated)
}

func TestExplainPropertyAdded(t *testing.T) {
	// obj = {}
	// obj.a = 2
	p := &vm.Program{Instructions: []vm.Instruction{
		{Op: vm.OpNewObject},
		{Op: vm.OpStore, Name: "obj"},
		{Op: vm.OpLoad, Name: "obj"},
		{Op: vm.OpLoadConst, Const: vm.LitInt(2)},
		{Op: vm.OpSetProperty, Name: "a"},
		{Op: vm.OpPop},
		{Op: vm.OpHalt},
	}}
	result := run(t, p)
	require.Nil(t, result.FinalState.Err)

	// Property events come from objects present in both graphs, so diff
	// from the state right after `STORE obj` (trace[1]), where obj exists
	// without property a.
	before := memory.BuildModel(result.Trace[1])
	after := memory.BuildModel(result.FinalState)
	d := diff.DiffModels(before, after)
	gBefore := graph.BuildGraph(before)
	gAfter := graph.BuildGraph(after)
	events := explain.ExplainDiff(d, gBefore, gAfter, explain.ControlFlow{})

	var propAdded bool
	for _, e := range events {
		if e.Kind == explain.KindPropertyAdded && e.Property == "a" {
			propAdded = true
		}
	}
	assert.True(t, propAdded)
}

func TestExplainClosureCaptured(t *testing.T) {
	p := &vm.Program{Instructions: []vm.Instruction{
		{Op: vm.OpJump, Int: 5},
		{Op: vm.OpLoad, Name: "arg0"},
		{Op: vm.OpRet},
		{Op: vm.OpMakeFunction, Int: 1},
		{Op: vm.OpRet},
		{Op: vm.OpMakeFunction, Int: 3},
		{Op: vm.OpStore, Name: "make"},
		{Op: vm.OpLoadConst, Const: vm.LitInt(5)},
		{Op: vm.OpLoad, Name: "make"},
		{Op: vm.OpCall, Int: 1},
		{Op: vm.OpStore, Name: "f"},
		{Op: vm.OpHalt},
	}}
	result := run(t, p)
	require.Nil(t, result.FinalState.Err)

	before := memory.BuildModel(vm.CreateInitialState(p))
	after := memory.BuildModel(result.FinalState)
	d := diff.DiffModels(before, after)
	gBefore := graph.BuildGraph(before)
	gAfter := graph.BuildGraph(after)
	events := explain.ExplainDiff(d, gBefore, gAfter, explain.ControlFlow{})

	var captured int
	for _, e := range events {
		if e.Kind == explain.KindClosureCaptured {
			captured++
		}
	}
	assert.Equal(t, 1, captured)
}
