package vm

import (
	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/value"
)

// callValue implements spec §4.4.1's four callee kinds. callee sits at
// stack[len-1-argc]; on return the call either has pushed a new frame (for
// Closure, BoundMethod, or a Class with init) or has already produced its
// result in place (NativeFunction, or a Class without init).
func (vm *VM) callValue(callee value.Value, argc int) *RuntimeError {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions and classes.")
	}
	switch callee.Ref.Kind {
	case heap.RefObject:
		obj, _ := vm.Heap.Object(callee.Ref)
		switch o := obj.(type) {
		case *value.ClosureObj:
			return vm.callClosure(callee.Ref, argc)
		case *value.NativeObj:
			return vm.callNative(o, argc)
		case *value.ClassObj:
			return vm.callClass(callee.Ref, o, argc)
		case *value.BoundMethodObj:
			vm.stack[len(vm.stack)-argc-1] = value.Obj(o.Receiver)
			return vm.callClosure(o.Method, argc)
		default:
			return vm.runtimeError("Can only call functions and classes.")
		}
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

// callClosure pushes a new frame over closureRef, whose base is the slot
// the receiver/callee already occupies (spec §4.4.1).
func (vm *VM) callClosure(closureRef heap.Ref, argc int) *RuntimeError {
	obj, _ := vm.Heap.Object(closureRef)
	closure := obj.(*value.ClosureObj)
	fnObj, _ := vm.Heap.Function(closure.Function)
	fn := fnObj.(*bytecode.FunctionObj)

	if argc != int(fn.Arity) {
		return vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, argc)
	}
	if len(vm.frames) >= FramesMax {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames = append(vm.frames, frame{
		closure: closureRef,
		ip:      0,
		base:    len(vm.stack) - argc - 1,
	})
	return nil
}

func (vm *VM) callNative(n *value.NativeObj, argc int) *RuntimeError {
	if argc != n.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", n.Arity, argc)
	}
	args := make([]value.Value, argc)
	copy(args, vm.stack[len(vm.stack)-argc:])
	result, err := n.Fn(vm.Heap, args)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.stack = vm.stack[:len(vm.stack)-argc-1]
	vm.push(result)
	return nil
}

// callClass implements instantiation: the callee slot becomes the new
// Instance, and if the class defines `init`, it is invoked with the same
// arguments; otherwise a non-zero argc is an arity error.
func (vm *VM) callClass(classRef heap.Ref, class *value.ClassObj, argc int) *RuntimeError {
	inst := &value.InstanceObj{Class: classRef, Fields: make(map[string]value.Value)}
	instRef := vm.Heap.NewObject(inst)
	vm.stack[len(vm.stack)-argc-1] = value.Obj(instRef)

	if init, ok := class.Methods["init"]; ok {
		return vm.callClosure(init.Closure, argc)
	}
	if argc != 0 {
		return vm.runtimeError("Expected 0 arguments but got %d.", argc)
	}
	return nil
}

// invoke implements INVOKE: fused GET_PROPERTY+CALL, falling back to a
// plain field load-then-call when the name resolves to a field rather than
// a method (spec §4.4's INVOKE note).
func (vm *VM) invoke(name string, argc int) *RuntimeError {
	receiver := vm.peek(argc)
	if !receiver.IsObj() || receiver.Ref.Kind != heap.RefObject {
		return vm.runtimeError("Only instances have methods.")
	}
	obj, _ := vm.Heap.Object(receiver.Ref)
	inst, ok := obj.(*value.InstanceObj)
	if !ok {
		return vm.runtimeError("Only instances have methods.")
	}
	if v, ok := inst.Fields[name]; ok {
		vm.stack[len(vm.stack)-argc-1] = v
		return vm.callValue(v, argc)
	}
	classObj, _ := vm.Heap.Object(inst.Class)
	class := classObj.(*value.ClassObj)
	m, ok := class.Methods[name]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	return vm.callClosure(m.Closure, argc)
}

// getSuper implements GET_SUPER: stack is [this, superclass]; binds this to
// the named method on superclass, replacing both with the BoundMethod.
func (vm *VM) getSuper(name string) *RuntimeError {
	superVal := vm.pop()
	classObj, _ := vm.Heap.Object(superVal.Ref)
	class := classObj.(*value.ClassObj)
	m, ok := class.Methods[name]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	receiver := vm.pop()
	bound := &value.BoundMethodObj{Receiver: receiver.Ref, Method: m.Closure}
	vm.push(value.Obj(vm.Heap.NewObject(bound)))
	return nil
}

// superInvoke implements SUPER_INVOKE: stack is [this, arg1..argn,
// superclass]; dispatches directly to the superclass's method closure
// without allocating an intermediate BoundMethod.
func (vm *VM) superInvoke(name string, argc int) *RuntimeError {
	superVal := vm.pop()
	classObj, _ := vm.Heap.Object(superVal.Ref)
	class := classObj.(*value.ClassObj)
	m, ok := class.Methods[name]
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	return vm.callClosure(m.Closure, argc)
}
