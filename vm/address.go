package vm

import "fmt"

// Address identifies a heap entry. Addresses are minted by a monotonic
// counter and never reused within a run, even after collection.
type Address uint64

func (a Address) String() string {
	return fmt.Sprintf("heap@%d", uint64(a))
}

// EnvAddress identifies an environment. Environments live in a store
// distinct from the heap but share the same minting discipline.
type EnvAddress uint64

func (a EnvAddress) String() string {
	return fmt.Sprintf("env@%d", uint64(a))
}
