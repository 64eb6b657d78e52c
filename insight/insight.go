// Package insight detects higher-level patterns over a sequence of
// explain events.
package insight

import (
	"fmt"
	"sort"

	"github.com/chronovm/chronovm/explain"
)

// Kind names one of the four detected patterns.
type Kind string

const (
	KindRepeatedRebinding             Kind = "RepeatedRebinding"
	KindObjectAllocatedAndCollected   Kind = "ObjectAllocatedAndCollected"
	KindClosureRetainsEnvironment     Kind = "ClosureRetainsEnvironment"
	KindPropertyMutatedAfterAllocation Kind = "PropertyMutatedAfterAllocation"
)

// Insight is one detected pattern.
type Insight struct {
	Kind Kind

	Env      string // RepeatedRebinding
	Variable string
	Count    int

	Address string // ObjectAllocatedAndCollected, PropertyMutatedAfterAllocation

	Function    string // ClosureRetainsEnvironment
	Environment string

	Property string // PropertyMutatedAfterAllocation
}

func (i Insight) Serialize() string {
	return fmt.Sprintf("env=%s var=%s count=%d addr=%s fn=%s environment=%s prop=%s",
		i.Env, i.Variable, i.Count, i.Address, i.Function, i.Environment, i.Property)
}

// Analyse detects the four patterns named in §4.6 over an event list.
func Analyse(events []explain.Event) []Insight {
	var insights []Insight

	type reboundKey struct{ env, name string }
	reboundCounts := map[reboundKey]int{}
	for _, e := range events {
		if e.Kind == explain.KindVariableRebound {
			reboundCounts[reboundKey{e.Env, e.Name}]++
		}
	}
	for k, count := range reboundCounts {
		if count > 1 {
			insights = append(insights, Insight{Kind: KindRepeatedRebinding, Env: k.env, Variable: k.name, Count: count})
		}
	}

	allocated := map[string]bool{}
	collected := map[string]bool{}
	for _, e := range events {
		if e.Kind == explain.KindObjectAllocated {
			allocated[e.Address] = true
		}
		if e.Kind == explain.KindObjectCollected {
			collected[e.Address] = true
		}
	}
	for addr := range allocated {
		if collected[addr] {
			insights = append(insights, Insight{Kind: KindObjectAllocatedAndCollected, Address: addr})
		}
	}

	for _, e := range events {
		if e.Kind == explain.KindClosureCaptured {
			insights = append(insights, Insight{Kind: KindClosureRetainsEnvironment, Function: e.Address, Environment: e.Environment})
		}
	}

	for _, e := range events {
		if e.Kind != explain.KindPropertyAdded && e.Kind != explain.KindPropertyChanged {
			continue
		}
		if allocated[e.Address] {
			insights = append(insights, Insight{Kind: KindPropertyMutatedAfterAllocation, Address: e.Address, Property: e.Property})
		}
	}

	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].Kind != insights[j].Kind {
			return insights[i].Kind < insights[j].Kind
		}
		return insights[i].Serialize() < insights[j].Serialize()
	})
	return insights
}
