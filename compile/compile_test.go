package compile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronovm/chronovm/compile"
	"github.com/chronovm/chronovm/vm"
)

func run(t *testing.T, source string) *vm.RunResult {
	t.Helper()
	program, sourceMap, err := compile.Compile(source)
	require.NoError(t, err)
	require.NotNil(t, sourceMap)
	return vm.RunToHalt(program, vm.RunOptions{})
}

func TestCompileAssignmentAndArithmetic(t *testing.T) {
	result := run(t, "x = 1 + 2\nprint(x)\n")
	require.Nil(t, result.FinalState.Err)
	assert.Equal(t, []string{"3"}, result.FinalState.Output)
}

func TestCompileIfElse(t *testing.T) {
	result := run(t, "x = 5\nif x > 3:\n    print(1)\nelse:\n    print(0)\n")
	require.Nil(t, result.FinalState.Err)
	assert.Equal(t, []string{"1"}, result.FinalState.Output)
}

func TestCompileForRangeLoop(t *testing.T) {
	result := run(t, "for i in range(3):\n    print(i)\n")
	require.Nil(t, result.FinalState.Err)
	assert.Equal(t, []string{"0", "1", "2"}, result.FinalState.Output)
}

func TestCompileClosure(t *testing.T) {
	source := "def make():\n" +
		"    x = 10\n" +
		"    def inner():\n" +
		"        return x\n" +
		"    return inner\n" +
		"f = make()\n" +
		"print(f())\n"
	result := run(t, source)
	require.Nil(t, result.FinalState.Err)
	assert.Equal(t, []string{"10"}, result.FinalState.Output)
}

func TestCompileListAndObject(t *testing.T) {
	source := "xs = []\n" +
		"xs.append(1)\n" +
		"xs.append(2)\n" +
		"print(len(xs))\n" +
		"obj = {}\n" +
		"obj.count = 7\n" +
		"print(obj.count)\n"
	result := run(t, source)
	require.Nil(t, result.FinalState.Err)
	assert.Equal(t, []string{"2", "7"}, result.FinalState.Output)
}

func TestCompileSyntaxError(t *testing.T) {
	_, _, err := compile.Compile("x = \n")
	require.Error(t, err)
	var synErr *compile.SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestCompileSourceMapHasNoOutOfRangeLines(t *testing.T) {
	source := "for i in range(2):\n    print(i)\n"
	_, sourceMap, err := compile.Compile(source)
	require.NoError(t, err)
	for _, line := range sourceMap {
		assert.GreaterOrEqual(t, line, 0)
		assert.LessOrEqual(t, line, 2)
	}
}
