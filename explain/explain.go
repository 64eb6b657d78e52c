package explain

import (
	"fmt"
	"sort"

	"github.com/chronovm/chronovm/memory/diff"
	"github.com/chronovm/chronovm/memory/graph"
	"github.com/chronovm/chronovm/vm"
)

// ControlFlow carries the pre/post-step program-counter context needed
// to synthesise a ControlFlowDecision event. §4.5's external-interface
// line names explainDiff(diff, graphBefore, graphAfter); deriving
// control-flow semantics additionally needs the pc transition and the
// opcode that produced it, per §4.5's prose ("inspecting the pre-step
// instruction at previousState.pc") — HasControlFlow lets callers that
// only want the memory-side events (e.g. comparing two non-adjacent
// snapshots) skip it by passing the zero value.
type ControlFlow struct {
	HasControlFlow bool
	FromPC         int
	ToPC           int
	Opcode         vm.Opcode
	JumpTarget     int
}

// ExplainDiff converts a structural diff plus the before/after graphs
// into a sorted event list. It is total: it never fails on well-formed
// inputs, and falls back to "unknown" rather than raising when a graph
// is missing a node it should have (§4.9).
func ExplainDiff(d *diff.Diff, graphBefore, graphAfter *graph.Graph, cf ControlFlow) []Event {
	var events []Event

	for _, addr := range d.AddedHeap {
		events = append(events, Event{
			Kind:    KindObjectAllocated,
			Address: addr.String(),
			HeapKind: string(nodeKind(graphAfter, addr.String())),
		})
	}
	for _, addr := range d.RemovedHeap {
		events = append(events, Event{
			Kind:    KindObjectCollected,
			Address: addr.String(),
			HeapKind: string(nodeKind(graphBefore, addr.String())),
		})
	}

	for _, key := range d.AddedBindings {
		addr := bindingTarget(graphAfter, key.Env, key.Name)
		events = append(events, Event{Kind: KindVariableBound, Env: key.Env.String(), Name: key.Name, To: addr})
	}
	for _, key := range d.RemovedBindings {
		addr := bindingTarget(graphBefore, key.Env, key.Name)
		events = append(events, Event{Kind: KindVariableUnbound, Env: key.Env.String(), Name: key.Name, From: addr})
	}
	for _, key := range d.ChangedBindings {
		from := bindingTarget(graphBefore, key.Env, key.Name)
		to := bindingTarget(graphAfter, key.Env, key.Name)
		events = append(events, Event{Kind: KindVariableRebound, Env: key.Env.String(), Name: key.Name, From: from, To: to})
	}

	events = append(events, propertyEvents(d, graphBefore, graphAfter)...)
	events = append(events, listEvents(d, graphBefore, graphAfter)...)

	for _, addr := range d.AddedHeap {
		id := addr.String()
		if nodeKind(graphAfter, id) != graph.NodeFunction {
			continue
		}
		for _, e := range graphAfter.OutEdges(id) {
			if e.Label != "closure" {
				continue
			}
			// A function capturing the (permanent) global environment is
			// a plain top-level definition, not a closure in the
			// narrative sense; only a capture of an ephemeral local
			// scope is reported. See DESIGN.md for this decision.
			if e.To == graphAfter.GlobalEnv {
				continue
			}
			events = append(events, Event{Kind: KindClosureCaptured, Address: id, Environment: e.To})
		}
	}

	events = append(events, environmentLifecycleEvents(graphBefore, graphAfter)...)

	if cf.HasControlFlow {
		events = append(events, controlFlowEvent(cf))
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Kind != events[j].Kind {
			return events[i].Kind < events[j].Kind
		}
		return events[i].Serialize() < events[j].Serialize()
	})
	return events
}

func nodeKind(g *graph.Graph, id string) graph.NodeKind {
	if n, ok := g.NodeByID(id); ok {
		return n.Kind
	}
	return "unknown"
}

func bindingTarget(g *graph.Graph, env vm.EnvAddress, name string) string {
	for _, e := range g.OutEdges(env.String()) {
		if e.Label == name {
			return e.To
		}
	}
	return "unknown"
}

func propertyEvents(d *diff.Diff, graphBefore, graphAfter *graph.Graph) []Event {
	var events []Event
	for _, addr := range d.ChangedHeap {
		id := addr.String()
		if nodeKind(graphBefore, id) != graph.NodeObject || nodeKind(graphAfter, id) != graph.NodeObject {
			continue
		}
		beforeProps := propsByKey(graphBefore, id)
		afterProps := propsByKey(graphAfter, id)
		for key, to := range afterProps {
			if from, ok := beforeProps[key]; !ok {
				events = append(events, Event{Kind: KindPropertyAdded, Address: id, Property: key, To: to})
			} else if from != to {
				events = append(events, Event{Kind: KindPropertyChanged, Address: id, Property: key, From: from, To: to})
			}
		}
		for key, from := range beforeProps {
			if _, ok := afterProps[key]; !ok {
				events = append(events, Event{Kind: KindPropertyRemoved, Address: id, Property: key, From: from})
			}
		}
	}
	return events
}

func propsByKey(g *graph.Graph, id string) map[string]string {
	out := map[string]string{}
	for _, e := range g.OutEdges(id) {
		out[e.Label] = e.To
	}
	return out
}

func listEvents(d *diff.Diff, graphBefore, graphAfter *graph.Graph) []Event {
	var events []Event
	candidates := append(append([]vm.Address{}, d.AddedHeap...), d.ChangedHeap...)
	seen := map[vm.Address]bool{}
	for _, addr := range candidates {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		id := addr.String()
		if nodeKind(graphAfter, id) != graph.NodeList {
			continue
		}
		isNew := nodeKind(graphBefore, id) != graph.NodeList
		if isNew {
			events = append(events, Event{Kind: KindListCreated, Address: id})
		}
		beforeElems := listByIndex(graphBefore, id)
		afterElems := listByIndex(graphAfter, id)
		for idx, to := range afterElems {
			if from, ok := beforeElems[idx]; !ok {
				events = append(events, Event{Kind: KindListAppended, Address: id, Index: idx, Value: to})
			} else if from != to {
				events = append(events, Event{Kind: KindListIndexUpdated, Address: id, Index: idx, Value: to})
			}
		}
	}
	return events
}

func listByIndex(g *graph.Graph, id string) map[int]string {
	out := map[int]string{}
	for _, e := range g.OutEdges(id) {
		var idx int
		if n, err := fmt.Sscanf(e.Label, "[%d]", &idx); err == nil && n == 1 {
			out[idx] = e.To
		}
	}
	return out
}

func environmentLifecycleEvents(graphBefore, graphAfter *graph.Graph) []Event {
	var events []Event
	beforeEnvs := envIDs(graphBefore)
	afterEnvs := envIDs(graphAfter)
	for id := range afterEnvs {
		if !beforeEnvs[id] {
			events = append(events, Event{Kind: KindEnvironmentCreated, Environment: id})
		}
	}
	for id := range beforeEnvs {
		if !afterEnvs[id] {
			events = append(events, Event{Kind: KindEnvironmentDestroyed, Environment: id})
		}
	}
	return events
}

func envIDs(g *graph.Graph) map[string]bool {
	out := map[string]bool{}
	for _, n := range g.Nodes {
		if n.Kind == graph.NodeEnvironment {
			out[n.ID] = true
		}
	}
	return out
}

func controlFlowEvent(cf ControlFlow) Event {
	e := Event{Kind: KindControlFlowDecision, FromPC: cf.FromPC, ToPC: cf.ToPC}
	switch cf.Opcode {
	case vm.OpJump:
		e.Label = "jump"
		return e
	case vm.OpJumpIfFalse, vm.OpJumpIfTrue:
		taken := cf.ToPC != cf.FromPC+1
		var condition bool
		if cf.Opcode == vm.OpJumpIfFalse {
			condition = !taken
		} else {
			condition = taken
		}
		e.Condition = &condition
		e.Label = "branch"
		return e
	default:
		e.Label = "jump"
		return e
	}
}
