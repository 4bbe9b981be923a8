package codegen

import (
	"fmt"
	"os"

	"tinygo.org/x/go-llvm"
)

// verify rejects a malformed module before it is handed to either the JIT or the object writer, the same
// invariant hhramberg-go-vslc enforces right before emitting machine code for its own generated module. A
// module that fails verification is a code generator bug, not a user error: verify dumps the module as text
// to stderr and panics.
func (u *Unit) verify() error {
	if err := llvm.VerifyModule(u.module, llvm.ReturnStatusAction); err != nil {
		u.module.Dump()
		panic(fmt.Sprintf("codegen: module failed verification: %s", err))
	}
	return nil
}

// optimize runs the legacy pass manager pipeline for u.config.OptLevel, skipping it entirely at level 0.
// Grounded on the PassManagerBuilder pipeline used against the same go-llvm fork elsewhere in the example
// pack (tinygo's own compiler driver), rather than on hhramberg-go-vslc, which never optimizes its own
// generated IR.
func (u *Unit) optimize() {
	if u.config.OptLevel <= 0 {
		return
	}

	builder := llvm.NewPassManagerBuilder()
	defer builder.Dispose()
	builder.SetOptLevel(u.config.OptLevel)
	if u.config.OptLevel >= 2 {
		builder.UseInlinerWithThreshold(225)
	}

	funcPasses := llvm.NewFunctionPassManagerForModule(u.module)
	defer funcPasses.Dispose()
	builder.PopulateFunc(funcPasses)

	modPasses := llvm.NewPassManager()
	defer modPasses.Dispose()
	builder.Populate(modPasses)
	modPasses.Run(u.module)
}

// targetMachine initializes the native target backend and builds a TargetMachine for the host triple,
// following the same Initialize*/CreateTargetMachine sequence as hhramberg-go-vslc's genTargetTriple/AOT
// path, minus the cross-compilation architecture switch (lirc always targets the host).
func targetMachine(optLevel int) (llvm.TargetMachine, error) {
	llvm.InitializeAllTargetInfos()
	llvm.InitializeAllTargetMCs()
	llvm.InitializeAllTargets()
	llvm.InitializeAllAsmParsers()
	llvm.InitializeAllAsmPrinters()

	triple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return llvm.TargetMachine{}, fmt.Errorf("codegen: look up target for %q: %w", triple, err)
	}

	level := llvm.CodeGenLevelNone
	switch {
	case optLevel >= 3:
		level = llvm.CodeGenLevelAggressive
	case optLevel == 2:
		level = llvm.CodeGenLevelDefault
	case optLevel == 1:
		level = llvm.CodeGenLevelLess
	}

	machine := target.CreateTargetMachine(triple, "generic", "", level, llvm.RelocDefault, llvm.CodeModelDefault)
	return machine, nil
}

// EmitObject writes u's module to path as a native relocatable object file, for the -e-less (AOT) path: the
// spec leaves linking that object into an executable to an external linker, same as original_source's own
// compiler driver does with its "main.o".
func (u *Unit) EmitObject(path string) error {
	machine, err := targetMachine(u.config.OptLevel)
	if err != nil {
		return err
	}
	defer machine.Dispose()

	data := machine.CreateTargetData()
	defer data.Dispose()
	u.module.SetDataLayout(data.String())
	u.module.SetTarget(triple())

	buf, err := machine.EmitToMemoryBuffer(u.module, llvm.ObjectFile)
	if err != nil {
		return fmt.Errorf("codegen: emit object: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("codegen: write object to %q: %w", path, err)
	}
	return nil
}

func triple() string {
	return llvm.DefaultTargetTriple()
}

// Run JIT-compiles u's module and calls its main the way a freshly exec'd native binary would, returning
// main's i32 result as the process's own exit code (spec.md's -e mode). Grounded on the
// create_jit_execution_engine/get_function/call sequence in original_source's Unit::jit, translated to the
// MCJIT constructor and GenericValue calling convention go-llvm exposes for the same underlying API.
func (u *Unit) Run() (int, error) {
	options := llvm.NewMCJITCompilerOptions()
	options.SetMCJITOptimizationLevel(uint(clamp(u.config.OptLevel, 0, 3)))
	engine, err := llvm.NewMCJITCompiler(u.module, options)
	if err != nil {
		return 0, fmt.Errorf("codegen: create JIT execution engine: %w", err)
	}
	defer engine.Dispose()

	main := u.module.NamedFunction("main")
	if main.IsNil() {
		return 0, fmt.Errorf("codegen: module has no main function")
	}

	result := engine.RunFunction(main, nil)
	return int(int32(result.Int(true))), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
