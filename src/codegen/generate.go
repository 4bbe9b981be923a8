package codegen

import (
	"fmt"
	"sort"
	"sync"

	"tinygo.org/x/go-llvm"

	"lirc/src/lir"
	"lirc/src/runtime"
	"lirc/src/util"
)

// Generate lowers prog into a finished, verified LLVM module under cfg. prog is assumed to already have
// passed lir.Validate; Generate does not re-check well-formedness, it relies on it (an undefined local
// surfaces as a Go panic from lookupLocal rather than a graceful error, exactly as an invalid node would
// panic deep in hhramberg-go-vslc's own generator).
func Generate(prog lir.Program, cfg Config) (*Unit, error) {
	ctx := llvm.NewContext()

	m, err := runtime.Load(ctx)
	if err != nil {
		ctx.Dispose()
		return nil, err
	}

	u := &Unit{
		config:   cfg,
		ctx:      ctx,
		module:   m,
		builder:  ctx.NewBuilder(),
		termType: runtime.TermType(ctx),
		funType:  runtime.EvaluatorType(ctx),
		globals:      make(map[lir.Name]llvm.Value, len(prog.Globals)),
		constSymbols: make(map[lir.Name]lir.Symbol, len(prog.Globals)),
	}

	// Globals are compiled in a stable order so that two sequential runs of the same program emit
	// byte-identical IR; prog.Globals is a Go map and thus has no order of its own. With Threads > 1 the
	// workers take u.mu in no fixed order, so the order of the emitted functions can differ between runs.
	names := make([]lir.Name, 0, len(prog.Globals))
	for name := range prog.Globals {
		if name == "main" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if err := compileGlobals(u, prog, names); err != nil {
		u.Dispose()
		return nil, err
	}

	mainGlobal, ok := prog.Globals["main"].(lir.Fun)
	if !ok {
		u.Dispose()
		return nil, fmt.Errorf("codegen: program has no main function")
	}
	if err := compileMain(u, mainGlobal); err != nil {
		u.Dispose()
		return nil, err
	}

	u.optimize()

	if err := u.verify(); err != nil {
		u.Dispose()
		return nil, err
	}

	return u, nil
}

// compileGlobals lowers every named global in names, either sequentially (the default) or, when cfg.Threads
// is set, by partitioning names across that many worker goroutines -- the same l/t partition-with-residual
// arithmetic transform.go uses for its own worker pool, adapted here to function-body emission rather than
// assembler text emission. Every goroutine still serializes its actual LLVM calls through u.mu, since only
// the partitioning itself is safe to do concurrently.
func compileGlobals(u *Unit, prog lir.Program, names []lir.Name) error {
	if u.config.Threads <= 1 || len(names) <= 1 {
		for _, name := range names {
			if err := compileGlobal(u, name, prog.Globals[name]); err != nil {
				return err
			}
		}
		return nil
	}

	threads := u.config.Threads
	if threads > len(names) {
		threads = len(names)
	}

	chunk := len(names) / threads
	residual := len(names) % threads

	var wg sync.WaitGroup
	pe := util.NewPerror(threads)

	start := 0
	for worker := 0; worker < threads; worker++ {
		size := chunk
		if worker < residual {
			size++
		}
		part := names[start : start+size]
		start += size

		wg.Add(1)
		go func(part []lir.Name) {
			defer wg.Done()
			for _, name := range part {
				u.mu.Lock()
				err := compileGlobal(u, name, prog.Globals[name])
				u.mu.Unlock()
				if err != nil {
					pe.Append(err)
					return
				}
			}
		}(part)
	}
	wg.Wait()

	if errs := pe.Errors(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// compileGlobal lowers one named global: a Const becomes an inert constant Term wired to noop, a Fun
// becomes an internal function plus a constant Term wired to it.
func compileGlobal(u *Unit, name lir.Name, g lir.Global) error {
	switch g := g.(type) {
	case lir.Const:
		noop := u.module.NamedFunction("noop")
		u.addGlobal(noop, name, g.Symbol, g.Arity)
		u.constSymbols[name] = g.Symbol
		return nil
	case lir.Fun:
		fun := llvm.AddFunction(u.module, "", u.funType)
		fun.SetLinkage(llvm.InternalLinkage)

		u.fun = fun
		start := llvm.AddBasicBlock(fun, "start")
		u.builder.SetInsertPointAtEnd(start)

		u.locals = &util.Stack{}
		u.pushScope()

		arg := fun.Param(0)
		u.arg = arg
		u.defineLocal("self", arg)

		if err := compileBlock(u, g.Block); err != nil {
			return fmt.Errorf("in function %q: %w", name, err)
		}

		u.addGlobal(fun, name, 0, g.Arity)
		return nil
	default:
		return fmt.Errorf("codegen: global %q has unknown type %T", name, g)
	}
}

// compileMain lowers the distinguished main function into the real process entry point: a public i32()
// function named "main", so the linked or JIT-executed program behaves like any other native executable.
func compileMain(u *Unit, main lir.Fun) error {
	mainType := llvm.FunctionType(llvm.Int32Type(), nil, false)
	fun := llvm.AddFunction(u.module, "main", mainType)

	u.fun = fun
	start := llvm.AddBasicBlock(fun, "start")
	u.builder.SetInsertPointAtEnd(start)

	u.locals = &util.Stack{}
	u.pushScope()
	u.arg = llvm.Value{}

	if err := compileBlock(u, main.Block); err != nil {
		return fmt.Errorf("in main: %w", err)
	}
	return nil
}

// compileBlock lowers each op of block in order against u's current builder position.
func compileBlock(u *Unit, block lir.Block) error {
	for _, op := range block {
		if err := compileOp(u, op); err != nil {
			return err
		}
	}
	return nil
}
