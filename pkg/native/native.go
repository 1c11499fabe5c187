// Package native implements Ember's builtin native functions: the small set
// of globals the VM defines before running any user script (spec §6's
// embedding API, DefineNative). The teacher (kristofer-smog) carries its own
// much larger stdlib-primitives layer in pkg/vm/primitives.go (HTTP,
// crypto, compression, JSON, regex — all out of scope per spec §5's
// single-threaded, no-network/storage model); Ember's native library keeps
// that file's one-Go-function-per-builtin shape but trims the surface down
// to what the spec's native contract budgets for, substituting in the
// third-party dependencies the retrieval pack reaches for elsewhere
// (google/uuid, dustin/go-humanize) in place of the teacher's net/http and
// crypto imports.
package native

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/value"
)

// Definer is the subset of *vm.VM that Register needs; *vm.VM satisfies
// it, so pkg/native does not import pkg/vm.
type Definer interface {
	DefineNative(name string, arity int, fn value.NativeFunc)
}

// Register installs every native under its spec §6 name. Callers (pkg/interp,
// tests) call this once per VM before the first Interpret.
func Register(d Definer) {
	d.DefineNative("clock", 0, clock)
	d.DefineNative("sqrt", 1, sqrt)
	d.DefineNative("type", 1, typeOf)
	d.DefineNative("str", 1, str)
	d.DefineNative("len", 1, length)
	d.DefineNative("uuid", 0, newUUID)
	d.DefineNative("humanBytes", 1, humanBytes)
	d.DefineNative("gcStats", 0, gcStats)
}

func clock(h *heap.Heap, args []value.Value) (value.Value, error) {
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

func sqrt(h *heap.Heap, args []value.Value) (value.Value, error) {
	if !args[0].IsNumber() {
		return value.Nil, fmt.Errorf("sqrt() expects a number")
	}
	return value.Number(math.Sqrt(args[0].AsNumber())), nil
}

func typeOf(h *heap.Heap, args []value.Value) (value.Value, error) {
	name := value.TypeName(h, args[0])
	return value.Obj(h.NewString(name)), nil
}

func str(h *heap.Heap, args []value.Value) (value.Value, error) {
	s := value.Stringify(h, args[0], func(r heap.Ref) (string, bool) {
		return functionName(h, r)
	})
	return value.Obj(h.NewString(s)), nil
}

// length reports the size of the single argument: a string's rune count, or
// an instance's field count. Anything else is a type error.
func length(h *heap.Heap, args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsString() {
		s, _ := h.String(v.Ref)
		return value.Number(float64(len([]rune(s)))), nil
	}
	if v.IsObj() && v.Ref.Kind == heap.RefObject {
		if obj, ok := h.Object(v.Ref); ok {
			if inst, ok := obj.(*value.InstanceObj); ok {
				return value.Number(float64(len(inst.Fields))), nil
			}
		}
	}
	return value.Nil, fmt.Errorf("len() expects a string or instance")
}

func newUUID(h *heap.Heap, args []value.Value) (value.Value, error) {
	return value.Obj(h.NewString(uuid.NewString())), nil
}

func humanBytes(h *heap.Heap, args []value.Value) (value.Value, error) {
	if !args[0].IsNumber() {
		return value.Nil, fmt.Errorf("humanBytes() expects a number")
	}
	n := args[0].AsNumber()
	if n < 0 {
		return value.Nil, fmt.Errorf("humanBytes() expects a non-negative number")
	}
	return value.Obj(h.NewString(humanize.Bytes(uint64(n)))), nil
}

// gcStats reports the heap's current allocation pressure as an Instance
// with bytesAllocated/nextGC fields read off the live heap, letting Ember
// scripts introspect the collector without a debugger protocol. Each call
// allocates its own throwaway GCStats class along with the instance: these
// values are read once and discarded, so there's no reason to keep class
// identity stable across calls.
func gcStats(h *heap.Heap, args []value.Value) (value.Value, error) {
	class := &value.ClassObj{Name: h.NewString("GCStats"), Methods: make(map[string]value.Method)}
	inst := &value.InstanceObj{
		Class: h.NewObject(class),
		Fields: map[string]value.Value{
			"bytesAllocated": value.Number(float64(h.BytesAllocated())),
			"nextGC":         value.Number(float64(h.NextGC())),
		},
	}
	return value.Obj(h.NewObject(inst)), nil
}

// functionName mirrors vm.VM.funcName so str() can render function values
// without pkg/native importing pkg/vm.
func functionName(h *heap.Heap, r heap.Ref) (string, bool) {
	obj, ok := h.Function(r)
	if !ok {
		return "", false
	}
	fn, ok := obj.(*bytecode.FunctionObj)
	if !ok {
		return "", false
	}
	if !fn.Name.Valid() {
		return "", true
	}
	name, _ := h.String(fn.Name)
	return name, true
}
