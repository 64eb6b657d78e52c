// Package memory builds a normalised, order-independent snapshot of a
// VM state: the MemoryModel. It never mutates the state it reads and
// retains no state of its own between calls.
package memory

import (
	"fmt"
	"sort"

	"github.com/chronovm/chronovm/vm"
)

// PropertyEntry is one object property in key order.
type PropertyEntry struct {
	Key   string
	Value vm.Address
}

// BindingEntry is one environment binding in name order.
type BindingEntry struct {
	Name  string
	Value vm.Address
}

// HeapNode is the canonical, sorted-field view of one heap object.
type HeapNode struct {
	Address vm.Address
	Kind    vm.HeapKind

	Prim      vm.PrimitiveKind
	BoolVal   bool
	IntVal    int64
	FloatVal  float64
	StringVal string

	Properties []PropertyEntry // sorted by key
	Elements   []vm.Address    // list order, index-aligned

	Entry    int
	Captured vm.EnvAddress
}

// Serialize renders the node's full content deterministically; two
// nodes with equal Serialize() output are considered unchanged by the
// diff layer.
func (n HeapNode) Serialize() string {
	switch n.Kind {
	case vm.KindPrimitive:
		return fmt.Sprintf("primitive(%s,%v,%v,%v,%q)", n.Prim, n.BoolVal, n.IntVal, n.FloatVal, n.StringVal)
	case vm.KindObject:
		return fmt.Sprintf("object(%v)", n.Properties)
	case vm.KindList:
		return fmt.Sprintf("list(%v)", n.Elements)
	case vm.KindFunction:
		return fmt.Sprintf("function(%d,%s)", n.Entry, n.Captured)
	default:
		return "unknown"
	}
}

// EnvNode is the canonical view of one environment: sorted bindings,
// optional parent.
type EnvNode struct {
	Address  vm.EnvAddress
	Parent   *vm.EnvAddress
	Bindings []BindingEntry // sorted by name
}

// Model is the MemoryModel of §4.2: fully ordered, a pure function of
// the state, fit for deterministic serialisation.
type Model struct {
	Heap         []HeapNode    // sorted by address
	Envs         []EnvNode     // sorted by address
	OperandStack []vm.Address  // order-preserving, copied verbatim
	CurrentEnv   vm.EnvAddress
	GlobalEnv    vm.EnvAddress
}

// BuildModel projects a VM state into its canonical snapshot.
func BuildModel(s *vm.State) *Model {
	m := &Model{
		OperandStack: append([]vm.Address(nil), s.OperandStack...),
		CurrentEnv:   s.CurrentEnv,
		GlobalEnv:    s.GlobalEnv,
	}

	for addr, obj := range s.Heap {
		m.Heap = append(m.Heap, buildHeapNode(addr, obj))
	}
	sort.Slice(m.Heap, func(i, j int) bool { return m.Heap[i].Address < m.Heap[j].Address })

	for addr, env := range s.Envs {
		m.Envs = append(m.Envs, buildEnvNode(addr, env))
	}
	sort.Slice(m.Envs, func(i, j int) bool { return m.Envs[i].Address < m.Envs[j].Address })

	return m
}

func buildHeapNode(addr vm.Address, obj *vm.HeapObject) HeapNode {
	n := HeapNode{
		Address:   addr,
		Kind:      obj.Kind,
		Prim:      obj.Prim,
		BoolVal:   obj.BoolVal,
		IntVal:    obj.IntVal,
		FloatVal:  obj.FloatVal,
		StringVal: obj.StringVal,
		Entry:     obj.Entry,
		Captured:  obj.Captured,
	}
	if obj.Kind == vm.KindObject {
		for pair := obj.Props.Oldest(); pair != nil; pair = pair.Next() {
			n.Properties = append(n.Properties, PropertyEntry{Key: pair.Key, Value: pair.Value})
		}
		sort.Slice(n.Properties, func(i, j int) bool { return n.Properties[i].Key < n.Properties[j].Key })
	}
	if obj.Kind == vm.KindList {
		n.Elements = append([]vm.Address(nil), obj.Elements...)
	}
	return n
}

func buildEnvNode(addr vm.EnvAddress, env *vm.Environment) EnvNode {
	n := EnvNode{Address: addr, Parent: env.Parent}
	for pair := env.Bindings.Oldest(); pair != nil; pair = pair.Next() {
		n.Bindings = append(n.Bindings, BindingEntry{Name: pair.Key, Value: pair.Value})
	}
	sort.Slice(n.Bindings, func(i, j int) bool { return n.Bindings[i].Name < n.Bindings[j].Name })
	return n
}

// HeapByAddress returns the node at addr and whether it was present.
func (m *Model) HeapByAddress(addr vm.Address) (HeapNode, bool) {
	i := sort.Search(len(m.Heap), func(i int) bool { return m.Heap[i].Address >= addr })
	if i < len(m.Heap) && m.Heap[i].Address == addr {
		return m.Heap[i], true
	}
	return HeapNode{}, false
}

// EnvByAddress returns the node at addr and whether it was present.
func (m *Model) EnvByAddress(addr vm.EnvAddress) (EnvNode, bool) {
	i := sort.Search(len(m.Envs), func(i int) bool { return m.Envs[i].Address >= addr })
	if i < len(m.Envs) && m.Envs[i].Address == addr {
		return m.Envs[i], true
	}
	return EnvNode{}, false
}
