package vm

import (
	"sort"
	"strings"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/value"
)

// run drains the call-frame stack, executing one instruction per iteration.
// It returns when the outermost frame RETURNs (nil error) or a runtime
// fault occurs.
func (vm *VM) run() *RuntimeError {
	for {
		if len(vm.frames) == 0 {
			return nil
		}
		if vm.Heap.NeedsGC() {
			vm.collectGarbage()
		}

		f := vm.currentFrame()
		closure := vm.closureOf(f)
		fn := vm.functionOf(closure)
		code := fn.Chunk.Code

		if vm.TraceExecution {
			var b strings.Builder
			bytecode.DisassembleInstruction(&b, fn.Chunk, vm.Heap, f.ip)
			vm.Stderr.Write([]byte(b.String()))
		}

		op := bytecode.Op(code[f.ip])
		f.ip++

		switch op {
		case bytecode.OpNil:
			vm.push(value.Nil)
		case bytecode.OpTrue:
			vm.push(value.True)
		case bytecode.OpFalse:
			vm.push(value.False)
		case bytecode.OpPop:
			vm.pop()
		case bytecode.OpDup:
			vm.push(vm.peek(0))

		case bytecode.OpConstant:
			idx := int(code[f.ip])
			f.ip++
			vm.push(fn.Chunk.Constants[idx])
		case bytecode.OpConstantLong:
			idx := vm.readUint24(f)
			vm.push(fn.Chunk.Constants[idx])

		case bytecode.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
			if err := vm.binaryNumeric(op); err != nil {
				return err
			}
		case bytecode.OpNeg:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			v := vm.pop()
			vm.push(value.Number(-v.AsNumber()))
		case bytecode.OpNot:
			v := vm.pop()
			vm.push(value.Bool(v.IsFalsey()))
		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b, vm.Heap)))
		case bytecode.OpGreater, bytecode.OpLess:
			if err := vm.binaryCompare(op); err != nil {
				return err
			}
		case bytecode.OpPrint:
			v := vm.pop()
			vm.Stdout.Write([]byte(vm.stringify(v) + "\n"))

		case bytecode.OpJump:
			offset := vm.readUint16(f)
			f.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := vm.readUint16(f)
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case bytecode.OpLoop:
			offset := vm.readUint16(f)
			f.ip -= offset

		case bytecode.OpGetLocal:
			idx := int(code[f.ip])
			f.ip++
			vm.push(vm.stack[f.base+idx])
		case bytecode.OpGetLocalLong:
			idx := vm.readUint24(f)
			vm.push(vm.stack[f.base+idx])
		case bytecode.OpSetLocal:
			idx := int(code[f.ip])
			f.ip++
			vm.stack[f.base+idx] = vm.peek(0)
		case bytecode.OpSetLocalLong:
			idx := vm.readUint24(f)
			vm.stack[f.base+idx] = vm.peek(0)

		case bytecode.OpGetGlobal, bytecode.OpGetGlobalLong:
			name := vm.constantName(fn, f, op)
			g, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			vm.push(g.value)
		case bytecode.OpDefineGlobal, bytecode.OpDefineGlobalLong:
			name := vm.constantName(fn, f, op)
			vm.globals[name] = global{value: vm.peek(0), mutable: true}
			vm.pop()
		case bytecode.OpDefineGlobalConst, bytecode.OpDefineGlobalConstLong:
			name := vm.constantName(fn, f, op)
			vm.globals[name] = global{value: vm.peek(0), mutable: false}
			vm.pop()
		case bytecode.OpSetGlobal, bytecode.OpSetGlobalLong:
			name := vm.constantName(fn, f, op)
			g, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name)
			}
			if !g.mutable {
				return vm.runtimeError("Reassignment to global 'const'.")
			}
			g.value = vm.peek(0)
			vm.globals[name] = g

		case bytecode.OpGetUpvalue:
			idx := int(code[f.ip])
			f.ip++
			vm.push(vm.readUpvalue(closure.Upvalues[idx]))
		case bytecode.OpSetUpvalue:
			idx := int(code[f.ip])
			f.ip++
			vm.writeUpvalue(closure.Upvalues[idx], vm.peek(0))
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()

		case bytecode.OpClass, bytecode.OpClassLong:
			name := vm.constantName(fn, f, op)
			nameRef := vm.Heap.NewString(name)
			class := &value.ClassObj{Name: nameRef, Methods: make(map[string]value.Method)}
			vm.push(value.Obj(vm.Heap.NewObject(class)))
		case bytecode.OpInherit:
			superVal := vm.peek(1)
			if !superVal.IsObj() || superVal.Ref.Kind != heap.RefObject {
				return vm.runtimeError("Superclass must be a class.")
			}
			superObj, _ := vm.Heap.Object(superVal.Ref)
			superclass, ok := superObj.(*value.ClassObj)
			if !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			subVal := vm.peek(0)
			subObj, _ := vm.Heap.Object(subVal.Ref)
			subclass := subObj.(*value.ClassObj)
			for k, m := range superclass.Methods {
				subclass.Methods[k] = m
			}
			vm.pop() // drop the duplicate subclass load; the superclass
			// value stays on the stack as the synthetic "super" local
		case bytecode.OpMethod, bytecode.OpMethodLong:
			name := vm.constantName(fn, f, op)
			closureVal := vm.pop()
			classVal := vm.peek(0)
			classObj, _ := vm.Heap.Object(classVal.Ref)
			class := classObj.(*value.ClassObj)
			class.Methods[name] = value.Method{Name: vm.Heap.NewString(name), Closure: closureVal.Ref}

		case bytecode.OpGetProperty, bytecode.OpGetPropertyLong:
			name := vm.constantName(fn, f, op)
			if err := vm.getProperty(name); err != nil {
				return err
			}
		case bytecode.OpSetProperty, bytecode.OpSetPropertyLong:
			name := vm.constantName(fn, f, op)
			v := vm.pop()
			instVal := vm.pop()
			if !instVal.IsObj() || instVal.Ref.Kind != heap.RefObject {
				return vm.runtimeError("Only instances have fields.")
			}
			instObj, _ := vm.Heap.Object(instVal.Ref)
			inst, ok := instObj.(*value.InstanceObj)
			if !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			inst.Fields[name] = v
			vm.push(v)

		case bytecode.OpClosure:
			idx := int(code[f.ip])
			f.ip++
			vm.makeClosure(fn, f, idx)

		case bytecode.OpCall:
			argc := int(code[f.ip])
			f.ip++
			callee := vm.peek(argc)
			if err := vm.callValue(callee, argc); err != nil {
				return err
			}
		case bytecode.OpInvoke:
			nameIdx := int(code[f.ip])
			argc := int(code[f.ip+1])
			f.ip += 2
			name, _ := vm.Heap.String(fn.Chunk.Constants[nameIdx].Ref)
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
		case bytecode.OpSuperInvoke:
			nameIdx := int(code[f.ip])
			argc := int(code[f.ip+1])
			f.ip += 2
			name, _ := vm.Heap.String(fn.Chunk.Constants[nameIdx].Ref)
			if err := vm.superInvoke(name, argc); err != nil {
				return err
			}
		case bytecode.OpGetSuper:
			nameIdx := int(code[f.ip])
			f.ip++
			name, _ := vm.Heap.String(fn.Chunk.Constants[nameIdx].Ref)
			if err := vm.getSuper(name); err != nil {
				return err
			}

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.base)
			vm.stack = vm.stack[:f.base]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				// f.base is 0 for the outermost frame: truncating already
				// dropped the root closure along with its locals.
				return nil
			}
			vm.push(result)

		default:
			return vm.runtimeError("internal: unhandled opcode %s", op)
		}
	}
}

func (vm *VM) readUint16(f *frame) int {
	obj := vm.closureOf(f)
	fn := vm.functionOf(obj)
	n := int(fn.Chunk.Code[f.ip])<<8 | int(fn.Chunk.Code[f.ip+1])
	f.ip += 2
	return n
}

func (vm *VM) readUint24(f *frame) int {
	obj := vm.closureOf(f)
	fn := vm.functionOf(obj)
	c := fn.Chunk.Code
	n := int(c[f.ip])<<16 | int(c[f.ip+1])<<8 | int(c[f.ip+2])
	f.ip += 3
	return n
}

// constantName reads op's index operand (short or long form) and resolves
// it to the interned Go string backing that constant-pool entry.
func (vm *VM) constantName(fn *bytecode.FunctionObj, f *frame, op bytecode.Op) string {
	var idx int
	if bytecode.IsLong(op) {
		idx = vm.readUint24(f)
	} else {
		idx = int(fn.Chunk.Code[f.ip])
		f.ip++
	}
	ref := fn.Chunk.Constants[idx].Ref
	s, _ := vm.Heap.String(ref)
	return s
}

func (vm *VM) binaryNumeric(op bytecode.Op) *RuntimeError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	switch op {
	case bytecode.OpSub:
		vm.push(value.Number(a - b))
	case bytecode.OpMul:
		vm.push(value.Number(a * b))
	case bytecode.OpDiv:
		vm.push(value.Number(a / b))
	}
	return nil
}

func (vm *VM) binaryCompare(op bytecode.Op) *RuntimeError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	switch op {
	case bytecode.OpGreater:
		vm.push(value.Bool(a > b))
	case bytecode.OpLess:
		vm.push(value.Bool(a < b))
	}
	return nil
}

func (vm *VM) add() *RuntimeError {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		vm.pop()
		vm.pop()
		as, _ := vm.Heap.String(a.Ref)
		bs, _ := vm.Heap.String(b.Ref)
		vm.push(value.Obj(vm.Heap.NewString(as + bs)))
	default:
		return vm.runtimeError("Operands must be numbers.")
	}
	return nil
}

// getProperty implements GET_PROPERTY: field lookup, then method-bind,
// then lenient/strict miss handling.
func (vm *VM) getProperty(name string) *RuntimeError {
	recv := vm.peek(0)
	if !recv.IsObj() || recv.Ref.Kind != heap.RefObject {
		return vm.runtimeError("Only instances have properties.")
	}
	obj, _ := vm.Heap.Object(recv.Ref)
	inst, ok := obj.(*value.InstanceObj)
	if !ok {
		return vm.runtimeError("Only instances have properties.")
	}
	if v, ok := inst.Fields[name]; ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	classObj, _ := vm.Heap.Object(inst.Class)
	class := classObj.(*value.ClassObj)
	if m, ok := class.Methods[name]; ok {
		bound := &value.BoundMethodObj{Receiver: recv.Ref, Method: m.Closure}
		vm.pop()
		vm.push(value.Obj(vm.Heap.NewObject(bound)))
		return nil
	}
	if vm.Lenient {
		vm.pop()
		vm.push(value.Nil)
		return nil
	}
	return vm.runtimeError("Undefined property '%s'.", name)
}

// makeClosure implements CLOSURE's variadic upvalue encoding.
func (vm *VM) makeClosure(fn *bytecode.FunctionObj, f *frame, constIdx int) {
	constVal := fn.Chunk.Constants[constIdx]
	inner, _ := vm.Heap.Function(constVal.Ref)
	innerFn := inner.(*bytecode.FunctionObj)

	closure := &value.ClosureObj{Function: constVal.Ref}
	for i := 0; i < int(innerFn.UpvalueCount); i++ {
		isLocal := fn.Chunk.Code[f.ip] != 0
		idx := int(fn.Chunk.Code[f.ip+1])
		f.ip += 2
		if isLocal {
			closure.Upvalues = append(closure.Upvalues, vm.captureUpvalue(f.base+idx))
		} else {
			enclosing := vm.closureOf(f)
			closure.Upvalues = append(closure.Upvalues, enclosing.Upvalues[idx])
		}
	}
	ref := vm.Heap.NewObject(closure)
	vm.push(value.Obj(ref))
}

// captureUpvalue implements capture_upvalue (spec §4.4.2): dedup against
// the sorted-descending open list, else insert a fresh Open upvalue in
// sorted position.
func (vm *VM) captureUpvalue(stackIndex int) heap.Ref {
	for _, r := range vm.openUpvalues {
		obj, _ := vm.Heap.Object(r)
		up := obj.(*value.UpvalueObj)
		if up.StackIndex == stackIndex {
			return r
		}
	}
	up := &value.UpvalueObj{Open: true, StackIndex: stackIndex}
	ref := vm.Heap.NewObject(up)

	i := sort.Search(len(vm.openUpvalues), func(i int) bool {
		o, _ := vm.Heap.Object(vm.openUpvalues[i])
		return o.(*value.UpvalueObj).StackIndex <= stackIndex
	})
	vm.openUpvalues = append(vm.openUpvalues, heap.Ref{})
	copy(vm.openUpvalues[i+1:], vm.openUpvalues[i:])
	vm.openUpvalues[i] = ref
	return ref
}

// closeUpvalues implements close_upvalues(boundary): every open upvalue at
// or above boundary is closed over its current stack value and dropped
// from the open list (which stays sorted by construction).
func (vm *VM) closeUpvalues(boundary int) {
	i := 0
	for i < len(vm.openUpvalues) {
		obj, _ := vm.Heap.Object(vm.openUpvalues[i])
		up := obj.(*value.UpvalueObj)
		if up.StackIndex < boundary {
			break
		}
		up.Closed = vm.stack[up.StackIndex]
		up.Open = false
		i++
	}
	vm.openUpvalues = vm.openUpvalues[i:]
}

func (vm *VM) readUpvalue(r heap.Ref) value.Value {
	obj, _ := vm.Heap.Object(r)
	up := obj.(*value.UpvalueObj)
	if up.Open {
		return vm.stack[up.StackIndex]
	}
	return up.Closed
}

func (vm *VM) writeUpvalue(r heap.Ref, v value.Value) {
	obj, _ := vm.Heap.Object(r)
	up := obj.(*value.UpvalueObj)
	if up.Open {
		vm.stack[up.StackIndex] = v
		return
	}
	up.Closed = v
}

// collectGarbage drives pkg/heap's collector, rooting the operand stack,
// every global, every frame's closure, and every open upvalue (spec
// §4.1's mark-roots step).
func (vm *VM) collectGarbage() {
	vm.Heap.Collect(func(mark func(heap.Ref)) {
		for _, v := range vm.stack {
			if v.Kind == value.KindObj {
				mark(v.Ref)
			}
		}
		for _, g := range vm.globals {
			if g.value.Kind == value.KindObj {
				mark(g.value.Ref)
			}
		}
		for i := range vm.frames {
			mark(vm.frames[i].closure)
		}
		for _, r := range vm.openUpvalues {
			mark(r)
		}
	})
}
