// Package plan projects insights into stable category/key/data tuples
// for downstream consumers (narration, UI).
package plan

import (
	"fmt"
	"sort"

	"github.com/chronovm/chronovm/insight"
)

// Plan is one {category, key, data} tuple.
type Plan struct {
	Category string
	Key      string
	Data     map[string]any
}

// mapping is the fixed total mapping from insight kind to (category,
// key) named in §4.7.
var mapping = map[insight.Kind][2]string{
	insight.KindRepeatedRebinding:              {"PerformancePattern", "RepeatedRebinding"},
	insight.KindObjectAllocatedAndCollected:    {"MemoryLifecycle", "ShortLivedObject"},
	insight.KindClosureRetainsEnvironment:      {"ClosureBehavior", "ClosureCapture"},
	insight.KindPropertyMutatedAfterAllocation: {"MutationPattern", "PostAllocationMutation"},
}

// MakePlans projects each insight into a Plan and returns them sorted
// lexicographically by (category, key, serialised data).
func MakePlans(insights []insight.Insight) []Plan {
	plans := make([]Plan, 0, len(insights))
	for _, ins := range insights {
		ck, ok := mapping[ins.Kind]
		if !ok {
			continue
		}
		plans = append(plans, Plan{Category: ck[0], Key: ck[1], Data: dataFor(ins)})
	}
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Category != plans[j].Category {
			return plans[i].Category < plans[j].Category
		}
		if plans[i].Key != plans[j].Key {
			return plans[i].Key < plans[j].Key
		}
		return serializeData(plans[i].Data) < serializeData(plans[j].Data)
	})
	return plans
}

func dataFor(ins insight.Insight) map[string]any {
	switch ins.Kind {
	case insight.KindRepeatedRebinding:
		return map[string]any{"env": ins.Env, "variable": ins.Variable, "count": ins.Count}
	case insight.KindObjectAllocatedAndCollected:
		return map[string]any{"address": ins.Address}
	case insight.KindClosureRetainsEnvironment:
		return map[string]any{"function": ins.Function, "environment": ins.Environment}
	case insight.KindPropertyMutatedAfterAllocation:
		return map[string]any{"address": ins.Address, "property": ins.Property}
	default:
		return nil
	}
}

func serializeData(d map[string]any) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s=%v;", k, d[k])
	}
	return out
}
