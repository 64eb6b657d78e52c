package vm

import "strconv"

// Step executes exactly one instruction and returns a new state. It
// never mutates its input: every slice/map that could change is copied
// first (see State.clone). On an execution error the returned state has
// IsRunning=false and Err set; the same *VmError is also returned so
// callers that only care about the terminal condition don't have to
// dig it back out of the state.
func Step(prev *State) (*State, *VmError) {
	if !prev.IsRunning {
		return prev, nil
	}
	if prev.PC < 0 || prev.PC >= prev.Program.Len() {
		s := prev.clone()
		err := errInvalidPc(prev.PC)
		s.IsRunning = false
		s.Err = err
		return s, err
	}

	s := prev.clone()
	ins := s.Program.Instructions[s.PC]
	s.PC++

	err := dispatch(s, ins)
	if err != nil {
		s.IsRunning = false
		s.Err = err
		return s, err
	}
	return s, nil
}

func dispatch(s *State, ins Instruction) *VmError {
	switch ins.Op {
	case OpLoadConst:
		addr := s.allocHeap(literalToHeap(ins.Const))
		s.push(addr)

	case OpLoad:
		addr, ok := s.lookup(s.CurrentEnv, ins.Name)
		if !ok {
			return errUnknownBinding(ins.Name)
		}
		s.push(addr)

	case OpStore:
		addr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		env := s.mutEnv(s.CurrentEnv)
		env.Bindings.Set(ins.Name, addr)

	case OpPop:
		if _, ok := s.popOk(); !ok {
			return errStackUnderflow()
		}

	case OpDup:
		addr, ok := s.peekOk()
		if !ok {
			return errStackUnderflow()
		}
		s.push(addr)

	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return arithOp(s, ins.Op)

	case OpNegate:
		addr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		v := s.Heap[addr]
		if v == nil || v.Kind != KindPrimitive {
			return errTypeMismatch("NEGATE")
		}
		switch v.Prim {
		case PrimInt:
			s.push(s.allocHeap(NewPrimitiveInt(-v.IntVal)))
		case PrimFloat:
			s.push(s.allocHeap(NewPrimitiveFloat(-v.FloatVal)))
		default:
			return errTypeMismatch("NEGATE")
		}

	case OpNot:
		addr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		v := s.Heap[addr]
		if v == nil {
			return errTypeMismatch("NOT")
		}
		s.push(s.allocHeap(NewPrimitiveBool(!v.IsTruthy())))

	case OpEq, OpNeq, OpLt, OpGt, OpLte, OpGte:
		return compareOp(s, ins.Op)

	case OpJump:
		s.PC = ins.Int

	case OpJumpIfFalse:
		addr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		v := s.Heap[addr]
		if v == nil {
			return errTypeMismatch("JUMP_IF_FALSE")
		}
		if !v.IsTruthy() {
			s.PC = ins.Int
		}

	case OpJumpIfTrue:
		addr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		v := s.Heap[addr]
		if v == nil {
			return errTypeMismatch("JUMP_IF_TRUE")
		}
		if v.IsTruthy() {
			s.PC = ins.Int
		}

	case OpNewObject:
		s.push(s.allocHeap(NewObject()))

	case OpSetProperty:
		value, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		objAddr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		obj := s.Heap[objAddr]
		if obj == nil || obj.Kind != KindObject {
			return errTypeMismatch("SET_PROPERTY")
		}
		fresh := s.mutObject(objAddr)
		fresh.Props.Set(ins.Name, value)
		s.push(objAddr)

	case OpGetProperty:
		objAddr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		obj := s.Heap[objAddr]
		if obj == nil || obj.Kind != KindObject {
			return errTypeMismatch("GET_PROPERTY")
		}
		if addr, ok := obj.Props.Get(ins.Name); ok {
			s.push(addr)
		} else {
			s.push(s.allocHeap(NewPrimitiveNull()))
		}

	case OpNewList:
		s.push(s.allocHeap(NewList()))

	case OpListAppend:
		value, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		listAddr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		list := s.Heap[listAddr]
		if list == nil || list.Kind != KindList {
			return errTypeMismatch("LIST_APPEND")
		}
		fresh := s.mutObject(listAddr)
		fresh.Elements = append(fresh.Elements, value)
		s.push(listAddr)

	case OpListSet:
		value, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		idxAddr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		listAddr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		list := s.Heap[listAddr]
		idx := s.Heap[idxAddr]
		if list == nil || list.Kind != KindList || idx == nil || idx.Prim != PrimInt {
			return errTypeMismatch("LIST_SET")
		}
		i := int(idx.IntVal)
		if i < 0 || i >= len(list.Elements) {
			return errTypeMismatch("LIST_SET")
		}
		fresh := s.mutObject(listAddr)
		fresh.Elements[i] = value
		s.push(listAddr)

	case OpListGet:
		idxAddr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		listAddr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		list := s.Heap[listAddr]
		idx := s.Heap[idxAddr]
		if list == nil || list.Kind != KindList || idx == nil || idx.Prim != PrimInt {
			return errTypeMismatch("LIST_GET")
		}
		i := int(idx.IntVal)
		if i < 0 || i >= len(list.Elements) {
			return errTypeMismatch("LIST_GET")
		}
		s.push(list.Elements[i])

	case OpListLen:
		listAddr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		list := s.Heap[listAddr]
		if list == nil || list.Kind != KindList {
			return errTypeMismatch("LIST_LEN")
		}
		s.push(s.allocHeap(NewPrimitiveInt(int64(len(list.Elements)))))

	case OpMakeFunction:
		s.push(s.allocHeap(NewFunction(ins.Int, s.CurrentEnv)))

	case OpCall:
		return callOp(s, ins.Int)

	case OpRet:
		return retOp(s)

	case OpPrint:
		addr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		v := s.Heap[addr]
		if v == nil {
			return errTypeMismatch("PRINT")
		}
		s.Output = append(s.Output, v.Repr())

	case OpHalt:
		s.IsRunning = false

	default:
		return errTypeMismatch("UNKNOWN_OPCODE")
	}
	return nil
}

func literalToHeap(lit Literal) *HeapObject {
	switch lit.Kind {
	case PrimBool:
		return NewPrimitiveBool(lit.BoolVal)
	case PrimInt:
		return NewPrimitiveInt(lit.IntVal)
	case PrimFloat:
		return NewPrimitiveFloat(lit.FloatVal)
	case PrimString:
		return NewPrimitiveString(lit.StringVal)
	default:
		return NewPrimitiveNull()
	}
}

func callOp(s *State, argCount int) *VmError {
	calleeAddr, ok := s.popOk()
	if !ok {
		return errStackUnderflow()
	}
	callee := s.Heap[calleeAddr]
	if callee == nil || callee.Kind != KindFunction {
		return errTypeMismatch("CALL")
	}
	args := make([]Address, argCount)
	for i := argCount - 1; i >= 0; i-- {
		addr, ok := s.popOk()
		if !ok {
			return errStackUnderflow()
		}
		args[i] = addr
	}

	captured := callee.Captured
	newEnv := s.allocEnv(&captured)
	env := s.Envs[newEnv]
	for i, addr := range args {
		env.Bindings.Set(argName(i), addr)
	}

	s.CallStack = append(s.CallStack, Frame{
		ReturnPC:   s.PC,
		ReturnEnv:  s.CurrentEnv,
		StackDepth: len(s.OperandStack),
	})
	s.CurrentEnv = newEnv
	s.PC = callee.Entry
	return nil
}

func retOp(s *State) *VmError {
	retVal, ok := s.popOk()
	if !ok {
		return errStackUnderflow()
	}
	n := len(s.CallStack)
	if n == 0 {
		return errStackUnderflow()
	}
	frame := s.CallStack[n-1]
	s.CallStack = s.CallStack[:n-1]
	s.CurrentEnv = frame.ReturnEnv
	s.PC = frame.ReturnPC
	s.push(retVal)
	return nil
}

func argName(i int) string {
	return "arg" + strconv.Itoa(i)
}
