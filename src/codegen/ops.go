package codegen

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"lirc/src/lir"
)

// compileOp lowers a single lir.Op against u's current builder position. Each case mirrors one arm of
// original_source's Op::compile match, translated from inkwell's builder calls to go-llvm's.
func compileOp(u *Unit, op lir.Op) error {
	switch op := op.(type) {
	case lir.LoadGlobal:
		return compileLoadGlobal(u, op)
	case lir.LoadArg:
		return compileLoadArg(u, op)
	case lir.NewApp:
		return compileApplyCall(u, op.Name, "new_app", op.Var, op.Args)
	case lir.NewPartial:
		return compileApplyCall(u, op.Name, "new_partial", op.Var, op.Args)
	case lir.ApplyPartial:
		return compileApplyCall(u, op.Name, "apply_partial", op.Var, op.Args)
	case lir.Copy:
		return compileCopy(u, op)
	case lir.Eval:
		return compileEval(u, op)
	case lir.FreeArgs:
		return compileFreeArgs(u, op)
	case lir.FreeTerm:
		return compileFreeTerm(u, op)
	case lir.Return:
		return compileReturn(u, op)
	case lir.ReturnSymbol:
		return compileReturnSymbol(u, op)
	case lir.Switch:
		return compileSwitch(u, op)
	case lir.Todo:
		return compileTodo(u)
	default:
		return fmt.Errorf("codegen: unknown op type %T", op)
	}
}

// allocaTerm stacks a fresh, uninitialized Term slot in the current function.
func (u *Unit) allocaTerm() llvm.Value {
	return u.builder.CreateAlloca(u.termType, "")
}

func compileLoadGlobal(u *Unit, op lir.LoadGlobal) error {
	g, ok := u.globals[op.Global]
	if !ok {
		return fmt.Errorf("load_global: no such global %q", op.Global)
	}
	loaded := u.builder.CreateLoad(g, "")
	slot := u.allocaTerm()
	u.builder.CreateStore(loaded, slot)
	u.defineLocal(op.Global, slot)
	return nil
}

func compileLoadArg(u *Unit, op lir.LoadArg) error {
	term := u.lookupLocal(op.Var)
	loaded := u.builder.CreateLoad(term, "")
	argsField := u.builder.CreateExtractValue(loaded, 1, "")
	index := llvm.ConstInt(llvm.Int64Type(), op.Index, false)
	argPtr := u.builder.CreateGEP(argsField, []llvm.Value{index}, "")
	arg := u.builder.CreateLoad(argPtr, "")
	slot := u.allocaTerm()
	u.builder.CreateStore(arg, slot)
	u.defineLocal(op.Name, slot)
	return nil
}

// compileApplyCall implements the shared shape of NewApp, NewPartial and ApplyPartial: stack the named args
// into a contiguous Term array and hand it, together with var's slot and the argument count, to the named
// runtime primitive. The primitive mutates var's Term in place, so name is bound to the very same slot var
// already occupies.
func compileApplyCall(u *Unit, name lir.Name, primitive string, v lir.Name, args []lir.Name) error {
	term := u.lookupLocal(v)

	arrType := llvm.ArrayType(u.termType, len(args))
	arr := u.builder.CreateAlloca(arrType, "")

	zero := llvm.ConstInt(llvm.Int64Type(), 0, false)
	for i, a := range args {
		argSlot := u.lookupLocal(a)
		val := u.builder.CreateLoad(argSlot, "")
		idx := llvm.ConstInt(llvm.Int64Type(), uint64(i), false)
		elemPtr := u.builder.CreateGEP(arr, []llvm.Value{zero, idx}, "")
		u.builder.CreateStore(val, elemPtr)
	}

	fn := u.module.NamedFunction(primitive)
	if fn.IsNil() {
		return fmt.Errorf("codegen: runtime is missing primitive %q", primitive)
	}
	argsPtr := u.builder.CreateGEP(arr, []llvm.Value{zero, zero}, "")
	length := llvm.ConstInt(llvm.Int64Type(), uint64(len(args)), false)
	u.builder.CreateCall(fn, []llvm.Value{term, argsPtr, length}, "")

	u.defineLocal(name, term)
	return nil
}

func compileCopy(u *Unit, op lir.Copy) error {
	src := u.lookupLocal(op.Var)
	dst := u.allocaTerm()
	fn := u.module.NamedFunction("copy")
	u.builder.CreateCall(fn, []llvm.Value{dst, src}, "")
	u.defineLocal(op.Name, dst)
	return nil
}

func compileEval(u *Unit, op lir.Eval) error {
	term := u.lookupLocal(op.Var)
	loaded := u.builder.CreateLoad(term, "")
	fun := u.builder.CreateExtractValue(loaded, 0, "")
	u.builder.CreateCall(fun, []llvm.Value{term}, "")
	return nil
}

func compileFreeArgs(u *Unit, op lir.FreeArgs) error {
	term := u.lookupLocal(op.Var)
	fn := u.module.NamedFunction("free_args")
	u.builder.CreateCall(fn, []llvm.Value{term}, "")
	return nil
}

func compileFreeTerm(u *Unit, op lir.FreeTerm) error {
	term := u.lookupLocal(op.Var)
	fn := u.module.NamedFunction("free_term")
	u.builder.CreateCall(fn, []llvm.Value{term}, "")
	return nil
}

// compileReturn lowers Return, writing the term's value through the function's incoming out-parameter (its
// sole argument) before returning void. It is only valid inside a non-main Fun, where u.arg is set.
func compileReturn(u *Unit, op lir.Return) error {
	term := u.lookupLocal(op.Var)
	loaded := u.builder.CreateLoad(term, "")
	u.builder.CreateStore(loaded, u.arg)
	u.builder.CreateRetVoid()
	return nil
}

func compileReturnSymbol(u *Unit, op lir.ReturnSymbol) error {
	term := u.lookupLocal(op.Var)
	loaded := u.builder.CreateLoad(term, "")
	symbol := u.builder.CreateExtractValue(loaded, 2, "")
	u.builder.CreateRet(symbol)
	return nil
}

// compileSwitch dispatches on var's symbol field. It opens exactly one extra scope for the whole switch and
// empties it (clearTopScope) before compiling each arm, so that sibling arms cannot see each other's
// bindings. That scope is never popped, so it stays on the stack once the switch is done -- this mirrors
// original_source's add_scope()/clear_scope() pairing in compile.rs exactly, including never calling
// anything like pop_scope for the switch's own scope.
func compileSwitch(u *Unit, op lir.Switch) error {
	term := u.lookupLocal(op.Var)
	loaded := u.builder.CreateLoad(term, "")
	symbol := u.builder.CreateExtractValue(loaded, 2, "")

	origin := u.builder.GetInsertBlock()

	u.pushScope()

	type arm struct {
		symbol llvm.Value
		block  llvm.BasicBlock
	}
	arms := make([]arm, 0, len(op.Cases))

	for _, c := range op.Cases {
		sym, ok := u.constSymbols[c.Global]
		if !ok {
			return fmt.Errorf("switch: case references unknown const %q", c.Global)
		}
		bb := llvm.AddBasicBlock(u.fun, "")
		u.builder.SetInsertPointAtEnd(bb)
		u.clearTopScope()
		if err := compileBlock(u, c.Block); err != nil {
			return fmt.Errorf("switch case %q: %w", c.Global, err)
		}
		arms = append(arms, arm{symbol: llvm.ConstInt(llvm.Int32Type(), uint64(sym), false), block: bb})
	}

	def := llvm.AddBasicBlock(u.fun, "default")
	u.builder.SetInsertPointAtEnd(def)
	u.builder.CreateUnreachable()

	u.builder.SetInsertPointAtEnd(origin)
	sw := u.builder.CreateSwitch(symbol, def, len(arms))
	for _, a := range arms {
		sw.AddCase(a.symbol, a.block)
	}
	return nil
}

func compileTodo(u *Unit) error {
	fn := u.module.NamedFunction("todo")
	u.builder.CreateCall(fn, nil, "")
	u.builder.CreateUnreachable()
	return nil
}
