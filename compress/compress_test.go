package compress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronovm/chronovm/compress"
	"github.com/chronovm/chronovm/vm"
)

// rangeLoopProgram builds the bytecode for:
//
//	i = 0
//	while i < 3:
//	    print(i)
//	    i = i + 1
//
// which is how a `for i in range(3): print(i)` surface-language loop
// lowers once the implicit increment is made explicit.
func rangeLoopProgram() (*vm.Program, []int) {
	p := &vm.Program{Instructions: []vm.Instruction{
		/*0*/ {Op: vm.OpLoadConst, Const: vm.LitInt(0)},
		/*1*/ {Op: vm.OpStore, Name: "i"},
		/*2*/ {Op: vm.OpLoad, Name: "i"},
		/*3*/ {Op: vm.OpLoadConst, Const: vm.LitInt(3)},
		/*4*/ {Op: vm.OpLt},
		/*5*/ {Op: vm.OpJumpIfFalse, Int: 13},
		/*6*/ {Op: vm.OpLoad, Name: "i"},
		/*7*/ {Op: vm.OpPrint},
		/*8*/ {Op: vm.OpLoad, Name: "i"},
		/*9*/ {Op: vm.OpLoadConst, Const: vm.LitInt(1)},
		/*10*/ {Op: vm.OpAdd},
		/*11*/ {Op: vm.OpStore, Name: "i"},
		/*12*/ {Op: vm.OpJump, Int: 2},
		/*13*/ {Op: vm.OpHalt},
	}}
	sourceMap := []int{1, 1, 2, 2, 2, 2, 3, 3, 0, 0, 0, 0, 0, 0}
	return p, sourceMap
}

func TestCompressLoopIterationsAndExit(t *testing.T) {
	p, sourceMap := rangeLoopProgram()
	result := vm.RunToHalt(p, vm.RunOptions{})
	require.Nil(t, result.FinalState.Err)
	assert.Equal(t, []string{"0", "1", "2"}, result.FinalState.Output)

	steps := compress.CompressTrace(result.Trace, sourceMap)

	var loopChecks, loopExits []compress.SemanticStep
	for _, s := range steps {
		switch s.Type {
		case compress.TypeLoopCheck:
			loopChecks = append(loopChecks, s)
		case compress.TypeLoopExit:
			loopExits = append(loopExits, s)
		}
	}
	require.Len(t, loopChecks, 3)
	require.Len(t, loopExits, 1)
	for i, s := range loopChecks {
		require.NotNil(t, s.Iteration)
		assert.Equal(t, i+1, *s.Iteration)
		require.NotNil(t, s.ControlFlow)
		assert.True(t, s.ControlFlow.ConditionTrue)
	}
	require.NotNil(t, loopExits[0].ControlFlow)
	assert.False(t, loopExits[0].ControlFlow.ConditionTrue)
}

func TestCompressPartitionsTheTrace(t *testing.T) {
	p, sourceMap := rangeLoopProgram()
	result := vm.RunToHalt(p, vm.RunOptions{})
	steps := compress.CompressTrace(result.Trace, sourceMap)

	require.NotEmpty(t, steps)
	assert.Equal(t, 0, steps[0].Start)
	assert.Equal(t, len(result.Trace), steps[len(steps)-1].End)

	covered := 0
	for i, s := range steps {
		if i > 0 {
			assert.Equal(t, steps[i-1].End, s.Start, "groups must partition the trace with no gaps or overlaps")
		}
		assert.Greater(t, s.End, s.Start, "every group must contain at least one micro-step")
		covered += s.End - s.Start
	}
	assert.Equal(t, len(result.Trace), covered)
}

func TestCompressAssignmentSummary(t *testing.T) {
	p := &vm.Program{Instructions: []vm.Instruction{
		{Op: vm.OpLoadConst, Const: vm.LitInt(2)},
		{Op: vm.OpStore, Name: "x"},
		{Op: vm.OpHalt},
	}}
	sourceMap := []int{1, 1, 0}
	result := vm.RunToHalt(p, vm.RunOptions{})
	steps := compress.CompressTrace(result.Trace, sourceMap)

	require.Len(t, steps, 2) // assignment group, then halt group
	assert.Equal(t, compress.TypeAssignment, steps[0].Type)
	assert.Equal(t, "x = 2", steps[0].Summary)
	assert.Equal(t, compress.VariableChange{Before: "None", After: "2"}, steps[0].VariableChanges["x"])
}
