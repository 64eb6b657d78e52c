// Package explain converts a memory diff plus before/after graphs into
// a sorted, typed list of events describing what changed between two
// adjacent VM states.
package explain

import "fmt"

// Kind names one of the event classes in §4.5.
type Kind string

const (
	KindObjectAllocated      Kind = "ObjectAllocated"
	KindObjectCollected      Kind = "ObjectCollected"
	KindVariableBound        Kind = "VariableBound"
	KindVariableUnbound      Kind = "VariableUnbound"
	KindVariableRebound      Kind = "VariableRebound"
	KindPropertyAdded        Kind = "PropertyAdded"
	KindPropertyRemoved      Kind = "PropertyRemoved"
	KindPropertyChanged      Kind = "PropertyChanged"
	KindClosureCaptured      Kind = "ClosureCaptured"
	KindEnvironmentCreated   Kind = "EnvironmentCreated"
	KindEnvironmentDestroyed Kind = "EnvironmentDestroyed"
	KindListCreated          Kind = "ListCreated"
	KindListAppended         Kind = "ListAppended"
	KindListIndexUpdated     Kind = "ListIndexUpdated"
	KindControlFlowDecision  Kind = "ControlFlowDecision"
)

// Event is one typed, self-contained record. Only the fields relevant
// to Kind are populated; the rest are zero.
type Event struct {
	Kind Kind

	Address string // ObjectAllocated/Collected, ListCreated/Appended/IndexUpdated target, ClosureCaptured function
	HeapKind string // ObjectAllocated/Collected resolved kind

	Env  string // VariableBound/Unbound/Rebound
	Name string

	From string // VariableRebound, PropertyChanged (address form)
	To   string

	Property string // PropertyAdded/Removed/Changed

	Index int    // ListAppended/IndexUpdated
	Value string // ListAppended/IndexUpdated target address

	Environment string // ClosureCaptured, EnvironmentCreated/Destroyed

	FromPC    int // ControlFlowDecision
	ToPC      int
	Condition *bool
	Label     string
}

// Serialize renders the payload canonically for sort-by-kind-then-payload
// ordering (§4.5's sole ordering guarantee).
func (e Event) Serialize() string {
	cond := "nil"
	if e.Condition != nil {
		cond = fmt.Sprintf("%v", *e.Condition)
	}
	return fmt.Sprintf(
		"addr=%s heapKind=%s env=%s name=%s from=%s to=%s prop=%s idx=%d value=%s environment=%s fromPC=%d toPC=%d cond=%s label=%s",
		e.Address, e.HeapKind, e.Env, e.Name, e.From, e.To, e.Property, e.Index, e.Value, e.Environment, e.FromPC, e.ToPC, cond, e.Label,
	)
}
