package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronovm/chronovm/insight"
	"github.com/chronovm/chronovm/plan"
)

func TestMakePlansMapsEachInsightKind(t *testing.T) {
	insights := []insight.Insight{
		{Kind: insight.KindRepeatedRebinding, Env: "env@0", Variable: "x", Count: 3},
		{Kind: insight.KindObjectAllocatedAndCollected, Address: "heap@1"},
		{Kind: insight.KindClosureRetainsEnvironment, Function: "heap@2", Environment: "env@1"},
		{Kind: insight.KindPropertyMutatedAfterAllocation, Address: "heap@3", Property: "a"},
	}
	plans := plan.MakePlans(insights)
	require.Len(t, plans, 4)

	byCategory := map[string]plan.Plan{}
	for _, p := range plans {
		byCategory[p.Category] = p
	}
	assert.Equal(t, "RepeatedRebinding", byCategory["PerformancePattern"].Key)
	assert.Equal(t, "ShortLivedObject", byCategory["MemoryLifecycle"].Key)
	assert.Equal(t, "ClosureCapture", byCategory["ClosureBehavior"].Key)
	assert.Equal(t, "PostAllocationMutation", byCategory["MutationPattern"].Key)
}

func TestMakePlansSortsByCategoryThenKey(t *testing.T) {
	insights := []insight.Insight{
		{Kind: insight.KindPropertyMutatedAfterAllocation, Address: "heap@3", Property: "a"},
		{Kind: insight.KindRepeatedRebinding, Env: "env@0", Variable: "x", Count: 3},
		{Kind: insight.KindObjectAllocatedAndCollected, Address: "heap@1"},
	}
	plans := plan.MakePlans(insights)
	for i := 1; i < len(plans); i++ {
		assert.LessOrEqual(t, plans[i-1].Category, plans[i].Category)
	}
}

func TestMakePlansCarriesDataFields(t *testing.T) {
	insights := []insight.Insight{
		{Kind: insight.KindRepeatedRebinding, Env: "env@0", Variable: "x", Count: 3},
	}
	plans := plan.MakePlans(insights)
	require.Len(t, plans, 1)
	assert.Equal(t, "env@0", plans[0].Data["env"])
	assert.Equal(t, "x", plans[0].Data["variable"])
	assert.Equal(t, 3, plans[0].Data["count"])
}
