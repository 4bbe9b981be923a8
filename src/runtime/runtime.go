// Package runtime owns the fixed native runtime that every compiled program links against: the Term struct
// layout and the handful of primitives (new_app, new_partial, apply_partial, copy, free_args, free_term),
// the noop evaluator and the todo trap. The runtime is authored once as LLVM IR text (rts.ll), embedded into
// the lirc binary, and parsed fresh for every compilation -- mirroring how original_source embeds its
// compiled runtime bitcode and parses it into the module the rest of the compiler builds on top of.
package runtime

import (
	_ "embed"
	"fmt"

	"tinygo.org/x/go-llvm"
)

//go:embed rts.ll
var source string

// Functions lists the runtime entry points package codegen is allowed to call, in the order they appear in
// rts.ll. todo takes no Term argument; every other entry point takes one or more Term pointers.
var Functions = []string{
	"noop",
	"new_app",
	"new_partial",
	"apply_partial",
	"copy",
	"free_args",
	"free_term",
	"todo",
}

// TermTypeName is the name under which the Term struct type is registered in the context once Load parses
// rts.ll. Package codegen looks the type up by this name rather than redeclaring the layout, so the two
// packages can never disagree about it.
const TermTypeName = "Term"

// Load parses the embedded runtime IR into ctx and returns the resulting module. Every runtime function is
// given internal linkage: the runtime is an implementation detail of the emitted program, not part of its
// public interface, so nothing about it should survive into a linked binary's symbol table.
func Load(ctx llvm.Context) (llvm.Module, error) {
	buf := llvm.NewMemoryBufferContentsString(source, "rts.ll")
	m, err := ctx.ParseIR(buf)
	if err != nil {
		return llvm.Module{}, fmt.Errorf("runtime: parse embedded IR: %w", err)
	}
	if err := llvm.VerifyModule(m, llvm.ReturnStatusAction); err != nil {
		return llvm.Module{}, fmt.Errorf("runtime: embedded IR failed verification: %w", err)
	}
	for _, name := range Functions {
		fn := m.NamedFunction(name)
		if fn.IsNil() {
			return llvm.Module{}, fmt.Errorf("runtime: embedded IR missing function %q", name)
		}
		fn.SetLinkage(llvm.InternalLinkage)
	}
	return m, nil
}

// TermType resolves the Term struct type registered by Load. Struct types are owned by the context rather
// than any one module, so this is safe to call with a context any module parsed by Load was built in.
func TermType(ctx llvm.Context) llvm.Type {
	return ctx.TypeByName(TermTypeName)
}

// EvaluatorType returns the evaluator function type void (Term*), shared by every global's fun field and by
// every generated function's own signature.
func EvaluatorType(ctx llvm.Context) llvm.Type {
	termPtr := llvm.PointerType(TermType(ctx), 0)
	return llvm.FunctionType(ctx.VoidType(), []llvm.Type{termPtr}, false)
}
