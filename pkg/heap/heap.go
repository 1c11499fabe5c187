// Package heap owns every runtime object the compiler and VM allocate:
// strings, compiled functions, and the richer object graph (closures,
// classes, instances, bound methods, upvalues, natives) built while a
// program runs. It hands out stable, generation-tagged references instead
// of raw pointers so that a tri-color mark-sweep collector can relocate
// nothing and still detect a stale reference to a freed slot.
//
// Callers never touch slots directly. They allocate through New*, read back
// through the String, Function and Object accessors, and drive a collection cycle with
// Collect, supplying a callback that marks every GC root.
package heap

// RefKind tags which arena a Ref points into.
type RefKind uint8

const (
	// RefNone is the zero value; it never resolves to a live object.
	RefNone RefKind = iota
	// RefString points into the string arena.
	RefString
	// RefFunction points into the function arena.
	RefFunction
	// RefObject points into the general object arena (closures, classes,
	// instances, bound methods, upvalues, natives).
	RefObject
)

func (k RefKind) String() string {
	switch k {
	case RefString:
		return "string"
	case RefFunction:
		return "function"
	case RefObject:
		return "object"
	default:
		return "none"
	}
}

// Ref is a stable, opaque handle to a heap-owned object. It survives GC
// cycles as long as the referent stays reachable; resolving a Ref whose
// slot was freed and reused reports ok=false rather than returning garbage.
type Ref struct {
	Kind RefKind
	idx  uint32
	gen  uint32
}

// Valid reports whether r was ever produced by a New* call (not whether
// the referent is still alive — use the Heap's String, Function or Object
// methods for that).
func (r Ref) Valid() bool { return r.Kind != RefNone }

// Object is implemented by every value that lives in the general object
// arena. Trace must invoke mark once for every Ref the object directly
// holds, exactly as GC.md describes "blackening": the function that
// handles an object's children during the trace phase.
type Object interface {
	Trace(mark func(Ref))
}

// approximate per-object bookkeeping overhead, charged against
// bytesAllocated so that GC triggers even for small fixed-size objects.
const objectOverhead = 32

type slot[T any] struct {
	value T
	alive bool
	black bool // matches heap.blackValue while reachable this cycle
	gen   uint32
}

type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	size  uintptr // approximate per-entry size for bytesAllocated accounting
}

func (a *arena[T]) add(v T) (uint32, uint32) {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = v
		s.alive = true
		s.gen++
		return idx, s.gen
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot[T]{value: v, alive: true, gen: 1})
	return idx, 1
}

func (a *arena[T]) get(idx, gen uint32) (T, bool) {
	var zero T
	if int(idx) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[idx]
	if !s.alive || s.gen != gen {
		return zero, false
	}
	return s.value, true
}

// mark flips the slot to the current black polarity, returning true the
// first time (so the caller knows to push it onto the gray worklist).
func (a *arena[T]) mark(idx, gen uint32, black bool) bool {
	if int(idx) >= len(a.slots) {
		return false
	}
	s := &a.slots[idx]
	if !s.alive || s.gen != gen || s.black == black {
		return false
	}
	s.black = black
	return true
}

// sweep frees every alive slot whose polarity doesn't match the new black
// value, i.e. every slot nothing marked this cycle. It returns the number
// of bytes freed.
func (a *arena[T]) sweep(black bool) uintptr {
	var freed uintptr
	for i := range a.slots {
		s := &a.slots[i]
		if s.alive && s.black != black {
			var zero T
			s.value = zero
			s.alive = false
			a.free = append(a.free, uint32(i))
			freed += a.size
		}
	}
	return freed
}

// GrowFactor is the multiplier applied to bytesAllocated to compute the
// next collection threshold.
const GrowFactor = 2

// InitialThreshold is next_gc's starting value: 1 MiB.
const InitialThreshold = 1 << 20

// Heap is the object graph backing one interpreter session.
type Heap struct {
	strings   arena[string]
	functions arena[Object]
	objects   arena[Object]

	blackValue     bool
	bytesAllocated uint64
	nextGC         uint64
	stress         bool

	// OnCollect, if set, is invoked after every cycle with before/after
	// byte counts — cmd/ember wires this to its --log-gc output.
	OnCollect func(before, after, next uint64)
}

// New returns an empty heap with the initial GC threshold from §4.1.
func New() *Heap {
	h := &Heap{blackValue: true, nextGC: InitialThreshold}
	h.functions.size = objectOverhead
	h.objects.size = objectOverhead
	return h
}

// SetStressGC forces NeedsGC to report true, so the VM collects before
// every instruction it runs (the --stress-gc flag).
func (h *Heap) SetStressGC(on bool) { h.stress = on }

// BytesAllocated returns the heap's current accounting total.
func (h *Heap) BytesAllocated() uint64 { return h.bytesAllocated }

// NextGC returns the threshold that will trigger the next cycle.
func (h *Heap) NextGC() uint64 { return h.nextGC }

// NeedsGC reports whether the VM should run a collection cycle before its
// next instruction.
func (h *Heap) NeedsGC() bool {
	return h.stress || h.bytesAllocated > h.nextGC
}

// NewString interns nothing — it always allocates a fresh slot. Identity
// equality between two Refs from separate NewString calls is not
// guaranteed even for equal content; Equal in package value compares
// string Values by content regardless.
func (h *Heap) NewString(s string) Ref {
	idx, gen := h.strings.add(s)
	// New objects start white (unmarked) under the current polarity.
	h.strings.slots[idx].black = !h.blackValue
	h.bytesAllocated += uint64(len(s)) + objectOverhead
	return Ref{Kind: RefString, idx: idx, gen: gen}
}

// NewFunction allocates a compiled function into the function arena.
func (h *Heap) NewFunction(o Object) Ref {
	idx, gen := h.functions.add(o)
	h.functions.slots[idx].black = !h.blackValue
	h.bytesAllocated += objectOverhead
	return Ref{Kind: RefFunction, idx: idx, gen: gen}
}

// NewObject allocates a closure, class, instance, bound method, upvalue,
// or native into the general object arena.
func (h *Heap) NewObject(o Object) Ref {
	idx, gen := h.objects.add(o)
	h.objects.slots[idx].black = !h.blackValue
	h.bytesAllocated += objectOverhead
	return Ref{Kind: RefObject, idx: idx, gen: gen}
}

// String resolves a string Ref. ok is false if the Ref is stale or of the
// wrong kind.
func (h *Heap) String(r Ref) (string, bool) {
	if r.Kind != RefString {
		return "", false
	}
	return h.strings.get(r.idx, r.gen)
}

// Function resolves a function Ref.
func (h *Heap) Function(r Ref) (Object, bool) {
	if r.Kind != RefFunction {
		return nil, false
	}
	return h.functions.get(r.idx, r.gen)
}

// Object resolves a general-arena Ref (closure, class, instance, bound
// method, upvalue, native).
func (h *Heap) Object(r Ref) (Object, bool) {
	if r.Kind != RefObject {
		return nil, false
	}
	return h.objects.get(r.idx, r.gen)
}

// Collect runs one tri-color mark-sweep cycle. markRoots is invoked once
// with a mark function that the caller uses to root every reachable Ref:
// operand stack slots, globals, call-frame functions, and open upvalues.
// Objects reachable only through other objects are traced automatically by
// walking each Object's Trace method.
func (h *Heap) Collect(markRoots func(mark func(Ref))) {
	before := h.bytesAllocated

	var grayFunctions, grayObjects []Ref
	mark := func(r Ref) {
		switch r.Kind {
		case RefString:
			h.strings.mark(r.idx, r.gen, h.blackValue)
		case RefFunction:
			if h.functions.mark(r.idx, r.gen, h.blackValue) {
				grayFunctions = append(grayFunctions, r)
			}
		case RefObject:
			if h.objects.mark(r.idx, r.gen, h.blackValue) {
				grayObjects = append(grayObjects, r)
			}
		}
	}

	markRoots(mark)

	for len(grayFunctions) > 0 || len(grayObjects) > 0 {
		for len(grayFunctions) > 0 {
			r := grayFunctions[len(grayFunctions)-1]
			grayFunctions = grayFunctions[:len(grayFunctions)-1]
			if obj, ok := h.functions.get(r.idx, r.gen); ok {
				obj.Trace(mark)
			}
		}
		for len(grayObjects) > 0 {
			r := grayObjects[len(grayObjects)-1]
			grayObjects = grayObjects[:len(grayObjects)-1]
			if obj, ok := h.objects.get(r.idx, r.gen); ok {
				obj.Trace(mark)
			}
		}
	}

	freedBytes := h.sweepStrings() + uint64(h.functions.sweep(h.blackValue)) + uint64(h.objects.sweep(h.blackValue))
	if freedBytes > uint64(h.bytesAllocated) {
		h.bytesAllocated = 0
	} else {
		h.bytesAllocated -= uint64(freedBytes)
	}

	h.blackValue = !h.blackValue
	h.nextGC = h.bytesAllocated * GrowFactor
	if h.nextGC < InitialThreshold {
		h.nextGC = InitialThreshold
	}

	if h.OnCollect != nil {
		h.OnCollect(before, h.bytesAllocated, h.nextGC)
	}
}

// sweepStrings mirrors arena.sweep but refunds the string's own length in
// addition to the fixed per-entry overhead, since strings are variably
// sized.
func (h *Heap) sweepStrings() uint64 {
	var freed uint64
	for i := range h.strings.slots {
		s := &h.strings.slots[i]
		if s.alive && s.black != h.blackValue {
			freed += uint64(len(s.value)) + objectOverhead
			s.value = ""
			s.alive = false
			h.strings.free = append(h.strings.free, uint32(i))
		}
	}
	return freed
}
