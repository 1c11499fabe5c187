package value

import "github.com/kristofer/ember/pkg/heap"

// ClosureObj pairs a compiled function with the upvalues it captured at
// creation time. len(Upvalues) always equals the function's UpvalueCount
// (spec §8's per-closure invariant); pkg/vm enforces that when it builds
// one from OP_CLOSURE.
type ClosureObj struct {
	Function heap.Ref // RefFunction
	Upvalues []heap.Ref
}

func (c *ClosureObj) Trace(mark func(heap.Ref)) {
	mark(c.Function)
	for _, u := range c.Upvalues {
		mark(u)
	}
}

// Method is one entry of a ClassObj's method table: the method name, kept
// as its own heap string so GC can trace it independently of the map key,
// and the compiled closure implementing it.
type Method struct {
	Name    heap.Ref // RefString
	Closure heap.Ref // RefObject -> ClosureObj
}

// ClassObj is a class's runtime representation: its own name and a method
// table keyed by selector for O(1) dispatch.
type ClassObj struct {
	Name    heap.Ref // RefString
	Methods map[string]Method
}

func (c *ClassObj) Trace(mark func(heap.Ref)) {
	mark(c.Name)
	for _, m := range c.Methods {
		mark(m.Name)
		mark(m.Closure)
	}
}

// InstanceObj is one instance of a class; Fields is keyed by field name as
// a Go string, so field names hold no heap Ref and only the field values
// are traced.
type InstanceObj struct {
	Class  heap.Ref // RefObject -> ClassObj
	Fields map[string]Value
}

func (i *InstanceObj) Trace(mark func(heap.Ref)) {
	mark(i.Class)
	for _, v := range i.Fields {
		if v.Kind == KindObj {
			mark(v.Ref)
		}
	}
}

// BoundMethodObj pairs a receiver instance with one of its class's method
// closures, produced by GET_PROPERTY when the property names a method.
type BoundMethodObj struct {
	Receiver heap.Ref // RefObject -> InstanceObj
	Method   heap.Ref // RefObject -> ClosureObj
}

func (b *BoundMethodObj) Trace(mark func(heap.Ref)) {
	mark(b.Receiver)
	mark(b.Method)
}

// UpvalueObj is either open (still aliasing a live VM stack slot) or
// closed (owns its own copy of the value after the slot was popped). Only
// the VM mutates this transition, and it happens exactly once per upvalue.
type UpvalueObj struct {
	Open       bool
	StackIndex int // valid while Open
	Closed     Value
}

func (u *UpvalueObj) Trace(mark func(heap.Ref)) {
	// Open upvalues alias the operand stack, which pkg/vm roots directly;
	// they have no children of their own to trace. A closed upvalue's
	// wrapped value is its only child.
	if !u.Open && u.Closed.Kind == KindObj {
		mark(u.Closed.Ref)
	}
}

// NativeFunc is the signature native functions implement: it receives the
// heap (so it may allocate, e.g. a new string) and its argument slice.
type NativeFunc func(h *heap.Heap, args []Value) (Value, error)

// NativeObj wraps a host-provided native function so it can be addressed
// by the same Value/Ref machinery as every other callable.
type NativeObj struct {
	Name  string
	Arity int
	Fn    NativeFunc
}

func (n *NativeObj) Trace(mark func(heap.Ref)) {
	// A native function closes over no heap references of its own.
}
