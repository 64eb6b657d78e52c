// Package diff computes a structural diff between two memory models.
package diff

import (
	"sort"

	"github.com/chronovm/chronovm/memory"
	"github.com/chronovm/chronovm/vm"
)

// BindingKey identifies a binding by the environment that owns it and
// the name bound within it.
type BindingKey struct {
	Env  vm.EnvAddress
	Name string
}

func (k BindingKey) Less(o BindingKey) bool {
	if k.Env != o.Env {
		return k.Env < o.Env
	}
	return k.Name < o.Name
}

// Diff is the six ordered lists of §4.3: added/removed/changed heap
// addresses, and added/removed/changed bindings.
type Diff struct {
	AddedHeap   []vm.Address
	RemovedHeap []vm.Address
	ChangedHeap []vm.Address

	AddedBindings   []BindingKey
	RemovedBindings []BindingKey
	ChangedBindings []BindingKey
}

// DiffModels compares before and after, yielding sorted, lexicographic
// output lists so repeated runs over identical inputs always agree.
func DiffModels(before, after *memory.Model) *Diff {
	d := &Diff{}

	beforeHeap := indexHeap(before)
	afterHeap := indexHeap(after)

	for addr, afterNode := range afterHeap {
		if beforeNode, ok := beforeHeap[addr]; !ok {
			d.AddedHeap = append(d.AddedHeap, addr)
		} else if beforeNode.Serialize() != afterNode.Serialize() {
			d.ChangedHeap = append(d.ChangedHeap, addr)
		}
	}
	for addr := range beforeHeap {
		if _, ok := afterHeap[addr]; !ok {
			d.RemovedHeap = append(d.RemovedHeap, addr)
		}
	}

	beforeBindings := indexBindings(before)
	afterBindings := indexBindings(after)

	for key, afterAddr := range afterBindings {
		if beforeAddr, ok := beforeBindings[key]; !ok {
			d.AddedBindings = append(d.AddedBindings, key)
		} else if beforeAddr != afterAddr {
			d.ChangedBindings = append(d.ChangedBindings, key)
		}
	}
	for key := range beforeBindings {
		if _, ok := afterBindings[key]; !ok {
			d.RemovedBindings = append(d.RemovedBindings, key)
		}
	}

	sort.Slice(d.AddedHeap, func(i, j int) bool { return d.AddedHeap[i] < d.AddedHeap[j] })
	sort.Slice(d.RemovedHeap, func(i, j int) bool { return d.RemovedHeap[i] < d.RemovedHeap[j] })
	sort.Slice(d.ChangedHeap, func(i, j int) bool { return d.ChangedHeap[i] < d.ChangedHeap[j] })
	sort.Slice(d.AddedBindings, func(i, j int) bool { return d.AddedBindings[i].Less(d.AddedBindings[j]) })
	sort.Slice(d.RemovedBindings, func(i, j int) bool { return d.RemovedBindings[i].Less(d.RemovedBindings[j]) })
	sort.Slice(d.ChangedBindings, func(i, j int) bool { return d.ChangedBindings[i].Less(d.ChangedBindings[j]) })

	return d
}

// IsEmpty reports whether every list is empty — the round-trip
// property that diffing a model against itself yields.
func (d *Diff) IsEmpty() bool {
	return len(d.AddedHeap) == 0 && len(d.RemovedHeap) == 0 && len(d.ChangedHeap) == 0 &&
		len(d.AddedBindings) == 0 && len(d.RemovedBindings) == 0 && len(d.ChangedBindings) == 0
}

func indexHeap(m *memory.Model) map[vm.Address]memory.HeapNode {
	out := make(map[vm.Address]memory.HeapNode, len(m.Heap))
	for _, n := range m.Heap {
		out[n.Address] = n
	}
	return out
}

func indexBindings(m *memory.Model) map[BindingKey]vm.Address {
	out := map[BindingKey]vm.Address{}
	for _, env := range m.Envs {
		for _, b := range env.Bindings {
			out[BindingKey{Env: env.Address, Name: b.Name}] = b.Value
		}
	}
	return out
}
