package vm

// Environment is a lexical scope: an address, an optional parent
// environment address, and an ordered mapping from identifier to heap
// address.
type Environment struct {
	Address  EnvAddress
	Parent   *EnvAddress
	Bindings *Properties
}

func (e *Environment) clone() *Environment {
	cp := &Environment{Address: e.Address, Bindings: newProperties()}
	if e.Parent != nil {
		p := *e.Parent
		cp.Parent = &p
	}
	for pair := e.Bindings.Oldest(); pair != nil; pair = pair.Next() {
		cp.Bindings.Set(pair.Key, pair.Value)
	}
	return cp
}

// Frame is a call-stack entry: where to resume, which environment to
// restore, and how deep the operand stack was at the call site.
type Frame struct {
	ReturnPC    int
	ReturnEnv   EnvAddress
	StackDepth  int
}

// State is the complete VM state described in §3: program, pc, operand
// stack, call stack, heap/environment stores, current/global
// environment pointers, output log, and the running flag.
type State struct {
	Program *Program

	PC int

	OperandStack []Address
	CallStack    []Frame

	Heap map[Address]*HeapObject
	Envs map[EnvAddress]*Environment

	CurrentEnv EnvAddress
	GlobalEnv  EnvAddress

	Output []string

	IsRunning bool
	Err       *VmError

	nextHeapAddr Address
	nextEnvAddr  EnvAddress
}

// CreateInitialState builds the state the VM starts from: pc 0, empty
// stacks, a single global environment, nothing in the heap yet.
func CreateInitialState(program *Program) *State {
	s := &State{
		Program:      program,
		PC:           0,
		OperandStack: nil,
		CallStack:    nil,
		Heap:         map[Address]*HeapObject{},
		Envs:         map[EnvAddress]*Environment{},
		Output:       nil,
		IsRunning:    true,
	}
	global := s.allocEnv(nil)
	s.CurrentEnv = global
	s.GlobalEnv = global
	return s
}

// clone returns a state that shares no mutable storage with the
// receiver; Step always operates on a clone so the input state is never
// mutated.
func (s *State) clone() *State {
	cp := &State{
		Program:      s.Program,
		PC:           s.PC,
		OperandStack: append([]Address(nil), s.OperandStack...),
		CallStack:    append([]Frame(nil), s.CallStack...),
		Heap:         make(map[Address]*HeapObject, len(s.Heap)),
		Envs:         make(map[EnvAddress]*Environment, len(s.Envs)),
		CurrentEnv:   s.CurrentEnv,
		GlobalEnv:    s.GlobalEnv,
		Output:       append([]string(nil), s.Output...),
		IsRunning:    s.IsRunning,
		Err:          s.Err,
		nextHeapAddr: s.nextHeapAddr,
		nextEnvAddr:  s.nextEnvAddr,
	}
	for addr, obj := range s.Heap {
		cp.Heap[addr] = obj
	}
	for addr, env := range s.Envs {
		cp.Envs[addr] = env
	}
	return cp
}

// allocHeap mints a fresh address and installs obj, returning the
// address. The counter is never rewound, even across collection.
func (s *State) allocHeap(obj *HeapObject) Address {
	addr := s.nextHeapAddr
	s.nextHeapAddr++
	s.Heap[addr] = obj
	return addr
}

// allocEnv mints a fresh environment address parented on parent.
func (s *State) allocEnv(parent *EnvAddress) EnvAddress {
	addr := s.nextEnvAddr
	s.nextEnvAddr++
	s.Envs[addr] = &Environment{Address: addr, Parent: parent, Bindings: newProperties()}
	return addr
}

// mutObject returns a private copy of the object at addr, installs it
// back under the same address, and returns it for in-place mutation —
// the address is preserved (SET_PROPERTY etc. push the same object
// back) but the backing struct is never shared with a prior snapshot.
func (s *State) mutObject(addr Address) *HeapObject {
	obj := s.Heap[addr].clone()
	s.Heap[addr] = obj
	return obj
}

// mutEnv is mutObject's analogue for environments (STORE/binding).
func (s *State) mutEnv(addr EnvAddress) *Environment {
	env := s.Envs[addr].clone()
	s.Envs[addr] = env
	return env
}

// lookup resolves name by walking the environment chain starting at
// env, parent by parent, until a binding or the chain's end is found.
func (s *State) lookup(env EnvAddress, name string) (Address, bool) {
	cur := env
	for {
		e, ok := s.Envs[cur]
		if !ok {
			return 0, false
		}
		if addr, ok := e.Bindings.Get(name); ok {
			return addr, true
		}
		if e.Parent == nil {
			return 0, false
		}
		cur = *e.Parent
	}
}

func (s *State) push(addr Address)  { s.OperandStack = append(s.OperandStack, addr) }
func (s *State) popOk() (Address, bool) {
	n := len(s.OperandStack)
	if n == 0 {
		return 0, false
	}
	addr := s.OperandStack[n-1]
	s.OperandStack = s.OperandStack[:n-1]
	return addr, true
}
func (s *State) peekOk() (Address, bool) {
	n := len(s.OperandStack)
	if n == 0 {
		return 0, false
	}
	return s.OperandStack[n-1], true
}
