package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronovm/chronovm/compile"
	"github.com/chronovm/chronovm/explain"
	"github.com/chronovm/chronovm/pipeline"
	"github.com/chronovm/chronovm/vm"
)

func newSession(t *testing.T, source string) *pipeline.Session {
	t.Helper()
	program, sourceMap, err := compile.Compile(source)
	require.NoError(t, err)
	return pipeline.NewSession(program, sourceMap, vm.RunOptions{GC: true})
}

func TestAnalyseStepZeroIsEmpty(t *testing.T) {
	sess := newSession(t, "x = 1\nprint(x)\n")
	a, err := sess.AnalyseStep(0)
	require.NoError(t, err)
	assert.Nil(t, a.DiffFromPrevious)
	assert.Empty(t, a.Events)
	assert.Empty(t, a.Insights)
	assert.Empty(t, a.Plans)
}

func TestAnalyseStepOutOfRange(t *testing.T) {
	sess := newSession(t, "x = 1\nprint(x)\n")
	_, err := sess.AnalyseStep(len(sess.Result.Trace))
	require.Error(t, err)
	var oor *pipeline.OutOfRangeError
	require.ErrorAs(t, err, &oor)

	_, err = sess.AnalyseStep(-1)
	require.Error(t, err)
	require.ErrorAs(t, err, &oor)
}

func TestAnalyseStepReportsVariableBound(t *testing.T) {
	sess := newSession(t, "x = 1\nprint(x)\n")

	var boundStep int
	var found bool
	for i := range sess.Result.Trace {
		a, err := sess.AnalyseStep(i)
		require.NoError(t, err)
		for _, e := range a.Events {
			if e.Kind == explain.KindVariableBound && e.Name == "x" {
				boundStep = i
				found = true
			}
		}
	}
	require.True(t, found, "expected a VariableBound event for x somewhere in the trace")
	assert.Greater(t, boundStep, 0)
}

func TestAnalyseStepObjectLifecycleReportsAllocationAndCollection(t *testing.T) {
	// A short-lived object: created, never bound beyond the statement
	// that builds it, collected by the GC pass after HALT once POP has
	// dropped the returned value.
	sess := newSession(t, "def make():\n    return {}\nmake()\n")

	var sawAllocated, sawCollected bool
	for i := range sess.Result.Trace {
		a, err := sess.AnalyseStep(i)
		require.NoError(t, err)
		for _, e := range a.Events {
			if e.Kind == explain.KindObjectAllocated {
				sawAllocated = true
			}
			if e.Kind == explain.KindObjectCollected {
				sawCollected = true
			}
		}
	}
	assert.True(t, sawAllocated)
	assert.True(t, sawCollected)
}
