package vm

import (
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// HeapKind tags the shape of a heap object.
type HeapKind string

const (
	KindPrimitive HeapKind = "primitive"
	KindObject    HeapKind = "object"
	KindList      HeapKind = "list"
	KindFunction  HeapKind = "function"
)

// PrimitiveKind tags the scalar carried by a primitive heap object.
type PrimitiveKind string

const (
	PrimNull   PrimitiveKind = "null"
	PrimBool   PrimitiveKind = "bool"
	PrimInt    PrimitiveKind = "int"
	PrimFloat  PrimitiveKind = "float"
	PrimString PrimitiveKind = "string"
)

// Properties is the ordered name -> address mapping backing an object
// heap node. Insertion order is preserved internally (the source
// language assigns properties in source order); every observable
// output still sorts keys before emission (see memory.BuildModel).
type Properties = orderedmap.OrderedMap[string, Address]

func newProperties() *Properties {
	return orderedmap.New[string, Address]()
}

// HeapObject is exactly one of primitive, object, list, or function.
type HeapObject struct {
	Kind HeapKind

	// primitive
	Prim      PrimitiveKind
	BoolVal   bool
	IntVal    int64
	FloatVal  float64
	StringVal string

	// object
	Props *Properties

	// list
	Elements []Address

	// function
	Entry    int
	Captured EnvAddress
}

func NewPrimitiveNull() *HeapObject {
	return &HeapObject{Kind: KindPrimitive, Prim: PrimNull}
}

func NewPrimitiveBool(b bool) *HeapObject {
	return &HeapObject{Kind: KindPrimitive, Prim: PrimBool, BoolVal: b}
}

func NewPrimitiveInt(i int64) *HeapObject {
	return &HeapObject{Kind: KindPrimitive, Prim: PrimInt, IntVal: i}
}

func NewPrimitiveFloat(f float64) *HeapObject {
	return &HeapObject{Kind: KindPrimitive, Prim: PrimFloat, FloatVal: f}
}

func NewPrimitiveString(s string) *HeapObject {
	return &HeapObject{Kind: KindPrimitive, Prim: PrimString, StringVal: s}
}

func NewObject() *HeapObject {
	return &HeapObject{Kind: KindObject, Props: newProperties()}
}

func NewList() *HeapObject {
	return &HeapObject{Kind: KindList, Elements: nil}
}

func NewFunction(entry int, captured EnvAddress) *HeapObject {
	return &HeapObject{Kind: KindFunction, Entry: entry, Captured: captured}
}

// clone returns a value-identical copy so Step can hand out fresh objects
// without aliasing the previous state's mutable fields.
func (h *HeapObject) clone() *HeapObject {
	cp := *h
	if h.Kind == KindObject {
		cp.Props = orderedmap.New[string, Address]()
		for pair := h.Props.Oldest(); pair != nil; pair = pair.Next() {
			cp.Props.Set(pair.Key, pair.Value)
		}
	}
	if h.Kind == KindList {
		cp.Elements = append([]Address(nil), h.Elements...)
	}
	return &cp
}

// Repr renders the value the way PRINT and the compressor's variable
// diff do: primitives in their literal form, everything else by shape.
func (h *HeapObject) Repr() string {
	switch h.Kind {
	case KindPrimitive:
		switch h.Prim {
		case PrimNull:
			return "None"
		case PrimBool:
			if h.BoolVal {
				return "True"
			}
			return "False"
		case PrimInt:
			return strconv.FormatInt(h.IntVal, 10)
		case PrimFloat:
			return formatFloat(h.FloatVal)
		case PrimString:
			return h.StringVal
		}
	case KindObject:
		return "{object}"
	case KindList:
		return "[list]"
	case KindFunction:
		return "<function>"
	}
	return "unknown"
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	return s
}

// IsTruthy implements the surface language's truthiness for NOT and
// conditional jumps: null, false, zero, and empty string/list are falsy.
func (h *HeapObject) IsTruthy() bool {
	switch h.Kind {
	case KindPrimitive:
		switch h.Prim {
		case PrimNull:
			return false
		case PrimBool:
			return h.BoolVal
		case PrimInt:
			return h.IntVal != 0
		case PrimFloat:
			return h.FloatVal != 0
		case PrimString:
			return h.StringVal != ""
		}
	case KindList:
		return len(h.Elements) > 0
	case KindObject, KindFunction:
		return true
	}
	return false
}

func (h *HeapObject) String() string {
	return fmt.Sprintf("%s(%s)", h.Kind, h.Repr())
}
