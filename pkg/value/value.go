// Package value defines Value, the tagged union every chunk constant,
// operand-stack slot, and global holds, along with the heap object shapes
// (closures, classes, instances, bound methods, upvalues, natives) a
// compiled program builds at runtime.
//
// Value itself never touches the heap directly for Nil, Bool, or Number —
// those are inline. A String, Function, Closure, Class, Instance,
// BoundMethod, Upvalue, or NativeFunction Value carries a heap.Ref instead,
// so copying a Value is always cheap and GC only has to trace the Refs it
// finds along the way.
package value

import (
	"math"
	"strconv"

	"github.com/kristofer/ember/pkg/heap"
)

// Kind discriminates the cases of Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is the tagged union described in spec §3. Num doubles as the
// payload for both Bool (0/1) and Number so the struct needs no separate
// bool field.
type Value struct {
	Kind Kind
	Num  float64
	Ref  heap.Ref
}

// Nil is the sole Nil value.
var Nil = Value{Kind: KindNil}

// True and False are the two Bool values.
var (
	True  = Value{Kind: KindBool, Num: 1}
	False = Value{Kind: KindBool, Num: 0}
)

// Bool returns True or False.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number wraps a float64.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Obj wraps a heap reference (string, function, closure, class, instance,
// bound method, upvalue, or native).
func Obj(r heap.Ref) Value { return Value{Kind: KindObj, Ref: r} }

func (v Value) IsNil() bool    { return v.Kind == KindNil }
func (v Value) IsBool() bool   { return v.Kind == KindBool }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsObj() bool    { return v.Kind == KindObj }

// AsBool returns the boolean payload; only meaningful when IsBool is true.
func (v Value) AsBool() bool { return v.Num != 0 }

// AsNumber returns the float64 payload; only meaningful when IsNumber.
func (v Value) AsNumber() float64 { return v.Num }

// IsString reports whether v is an object Value referencing the string
// arena.
func (v Value) IsString() bool { return v.Kind == KindObj && v.Ref.Kind == heap.RefString }

// IsFalsey implements spec's truthiness rule: only Nil and Bool(false) are
// falsey; everything else, including 0 and "", is truthy.
func (v Value) IsFalsey() bool {
	return v.Kind == KindNil || (v.Kind == KindBool && v.Num == 0)
}

// Equal implements spec §4.4's EQUAL semantics: NaN never equals itself,
// reference-equal non-numbers are equal, strings compare by content, and
// every other object pair compares by reference identity.
func Equal(a, b Value, h *heap.Heap) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Num == b.Num
	case KindNumber:
		if math.IsNaN(a.Num) || math.IsNaN(b.Num) {
			return false
		}
		return a.Num == b.Num
	case KindObj:
		if a.Ref == b.Ref {
			return true
		}
		if a.Ref.Kind == heap.RefString && b.Ref.Kind == heap.RefString {
			as, aok := h.String(a.Ref)
			bs, bok := h.String(b.Ref)
			return aok && bok && as == bs
		}
		return false
	default:
		return false
	}
}

// TypeName names a Value's runtime tag, used by the "type" native and by
// diagnostics that don't need a heap-resolved object name.
func TypeName(h *heap.Heap, v Value) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObj:
		switch v.Ref.Kind {
		case heap.RefString:
			return "string"
		case heap.RefFunction:
			return "function"
		case heap.RefObject:
			obj, ok := h.Object(v.Ref)
			if !ok {
				return "object"
			}
			switch obj.(type) {
			case *ClosureObj:
				return "closure"
			case *ClassObj:
				return "class"
			case *InstanceObj:
				return "instance"
			case *BoundMethodObj:
				return "bound_method"
			case *UpvalueObj:
				return "upvalue"
			case *NativeObj:
				return "native"
			default:
				return "object"
			}
		}
	}
	return "unknown"
}

// Stringify renders v for PRINT and string concatenation. funcName resolves
// a function Ref to its declared name (pkg/bytecode owns that shape, so the
// caller — pkg/vm — supplies the lookup to avoid an import cycle); pass nil
// to fall back to a generic placeholder.
func Stringify(h *heap.Heap, v Value, funcName func(heap.Ref) (string, bool)) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.Num)
	case KindObj:
		switch v.Ref.Kind {
		case heap.RefString:
			s, _ := h.String(v.Ref)
			return s
		case heap.RefFunction:
			if funcName != nil {
				if name, ok := funcName(v.Ref); ok {
					if name == "" {
						return "<script>"
					}
					return "<fn " + name + ">"
				}
			}
			return "<fn>"
		case heap.RefObject:
			obj, ok := h.Object(v.Ref)
			if !ok {
				return "<freed>"
			}
			return stringifyObject(h, obj, funcName)
		}
	}
	return "<value>"
}

func stringifyObject(h *heap.Heap, obj heap.Object, funcName func(heap.Ref) (string, bool)) string {
	switch o := obj.(type) {
	case *ClosureObj:
		return Stringify(h, Obj(o.Function), funcName)
	case *ClassObj:
		name, _ := h.String(o.Name)
		return name
	case *InstanceObj:
		class, ok := h.Object(o.Class)
		if !ok {
			return "<instance>"
		}
		classObj, ok := class.(*ClassObj)
		if !ok {
			return "<instance>"
		}
		name, _ := h.String(classObj.Name)
		return name + " instance"
	case *BoundMethodObj:
		return Stringify(h, Obj(o.Method), funcName)
	case *UpvalueObj:
		return "<upvalue>"
	case *NativeObj:
		return "<native " + o.Name + ">"
	default:
		return "<object>"
	}
}

func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "nan"
	}
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
