package vm

// registerErrorBuiltins installs the error constructors.
// They are plain functions: Error("x") and new-less calls both build an error object.
func (vm *VM) registerErrorBuiltins() {
	for _, kind := range []ErrorKind{KindError, KindTypeError, KindReferenceError, KindRangeError, KindSyntaxError} {
		vm.RegisterBuiltinFunction(string(kind), func(v *VM, args []any) (any, error) {
			msg := ""
			if m := argAt(args, 0); m != Undefined {
				msg = ToString(m)
			}
			obj := NewErrorObject(kind, msg)
			obj.Set("line", float64(v.line))
			return obj, nil
		})
	}
}
