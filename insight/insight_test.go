package insight_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chronovm/chronovm/explain"
	"github.com/chronovm/chronovm/insight"
)

func TestAnalyseDetectsRepeatedRebinding(t *testing.T) {
	events := []explain.Event{
		{Kind: explain.KindVariableRebound, Env: "env@0", Name: "x", From: "heap@0", To: "heap@1"},
		{Kind: explain.KindVariableRebound, Env: "env@0", Name: "x", From: "heap@1", To: "heap@2"},
	}
	insights := insight.Analyse(events)
	require := assert.New(t)
	require.Len(insights, 1)
	require.Equal(insight.KindRepeatedRebinding, insights[0].Kind)
	require.Equal("x", insights[0].Variable)
	require.Equal(2, insights[0].Count)
}

func TestAnalyseIgnoresSingleRebinding(t *testing.T) {
	events := []explain.Event{
		{Kind: explain.KindVariableRebound, Env: "env@0", Name: "x", From: "heap@0", To: "heap@1"},
	}
	assert.Empty(t, insight.Analyse(events))
}

func TestAnalyseDetectsObjectAllocatedAndCollected(t *testing.T) {
	events := []explain.Event{
		{Kind: explain.KindObjectAllocated, Address: "heap@3"},
		{Kind: explain.KindObjectCollected, Address: "heap@3"},
	}
	insights := insight.Analyse(events)
	require := assert.New(t)
	require.Len(insights, 1)
	require.Equal(insight.KindObjectAllocatedAndCollected, insights[0].Kind)
	require.Equal("heap@3", insights[0].Address)
}

func TestAnalyseDetectsClosureRetainsEnvironment(t *testing.T) {
	events := []explain.Event{
		{Kind: explain.KindClosureCaptured, Address: "heap@5", Environment: "env@2"},
	}
	insights := insight.Analyse(events)
	require := assert.New(t)
	require.Len(insights, 1)
	require.Equal(insight.KindClosureRetainsEnvironment, insights[0].Kind)
	require.Equal("heap@5", insights[0].Function)
	require.Equal("env@2", insights[0].Environment)
}

func TestAnalyseDetectsPropertyMutatedAfterAllocation(t *testing.T) {
	events := []explain.Event{
		{Kind: explain.KindObjectAllocated, Address: "heap@7"},
		{Kind: explain.KindPropertyAdded, Address: "heap@7", Property: "a", To: "heap@8"},
	}
	insights := insight.Analyse(events)
	var found bool
	for _, ins := range insights {
		if ins.Kind == insight.KindPropertyMutatedAfterAllocation {
			found = true
			assert.Equal(t, "heap@7", ins.Address)
			assert.Equal(t, "a", ins.Property)
		}
	}
	assert.True(t, found)
}

func TestAnalyseSortsDeterministically(t *testing.T) {
	events := []explain.Event{
		{Kind: explain.KindClosureCaptured, Address: "heap@9", Environment: "env@1"},
		{Kind: explain.KindObjectAllocated, Address: "heap@1"},
		{Kind: explain.KindObjectCollected, Address: "heap@1"},
		{Kind: explain.KindVariableRebound, Env: "env@0", Name: "y", From: "heap@0", To: "heap@1"},
		{Kind: explain.KindVariableRebound, Env: "env@0", Name: "y", From: "heap@1", To: "heap@2"},
	}
	a := insight.Analyse(events)
	b := insight.Analyse(events)
	assert.Equal(t, a, b)
	for i := 1; i < len(a); i++ {
		assert.LessOrEqual(t, a[i-1].Kind, a[i].Kind)
	}
}
