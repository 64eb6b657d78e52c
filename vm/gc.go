package vm

// collect runs a mark-sweep pass rooted at the current environment, the
// call stack's return environments, the operand stack, and the global
// environment. It is deterministic and only ever invoked from RunToHalt
// at the fixed points named in §4.1 (after RET, after HALT) — never on
// a timer or memory-pressure signal.
func collect(s *State) {
	markedHeap := map[Address]bool{}
	markedEnv := map[EnvAddress]bool{}

	var roots []EnvAddress
	roots = append(roots, s.CurrentEnv, s.GlobalEnv)
	for _, f := range s.CallStack {
		roots = append(roots, f.ReturnEnv)
	}

	var heapRoots []Address
	heapRoots = append(heapRoots, s.OperandStack...)

	for _, r := range roots {
		markEnv(s, r, markedHeap, markedEnv)
	}
	for _, r := range heapRoots {
		markHeap(s, r, markedHeap, markedEnv)
	}

	for addr := range s.Heap {
		if !markedHeap[addr] {
			delete(s.Heap, addr)
		}
	}
	for addr := range s.Envs {
		if !markedEnv[addr] {
			delete(s.Envs, addr)
		}
	}
}

func markEnv(s *State, addr EnvAddress, markedHeap map[Address]bool, markedEnv map[EnvAddress]bool) {
	if markedEnv[addr] {
		return
	}
	markedEnv[addr] = true
	env, ok := s.Envs[addr]
	if !ok {
		return
	}
	for pair := env.Bindings.Oldest(); pair != nil; pair = pair.Next() {
		markHeap(s, pair.Value, markedHeap, markedEnv)
	}
	if env.Parent != nil {
		markEnv(s, *env.Parent, markedHeap, markedEnv)
	}
}

func markHeap(s *State, addr Address, markedHeap map[Address]bool, markedEnv map[EnvAddress]bool) {
	if markedHeap[addr] {
		return
	}
	markedHeap[addr] = true
	obj, ok := s.Heap[addr]
	if !ok {
		return
	}
	switch obj.Kind {
	case KindObject:
		for pair := obj.Props.Oldest(); pair != nil; pair = pair.Next() {
			markHeap(s, pair.Value, markedHeap, markedEnv)
		}
	case KindList:
		for _, elem := range obj.Elements {
			markHeap(s, elem, markedHeap, markedEnv)
		}
	case KindFunction:
		markEnv(s, obj.Captured, markedHeap, markedEnv)
	}
}
