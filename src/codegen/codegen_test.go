package codegen

import (
	"strings"
	"testing"

	"lirc/src/lir"
	"lirc/src/runtime"
)

// program builds a tiny Program around a single main Block, with given extra globals.
func program(globals map[lir.Name]lir.Global, block lir.Block) lir.Program {
	all := make(map[lir.Name]lir.Global, len(globals)+1)
	for k, v := range globals {
		all[k] = v
	}
	all["main"] = lir.Fun{Arity: 0, Block: block}
	return lir.Program{Globals: all}
}

// TestGenerateReturnSymbol mirrors original_source's test_return_symbol: load a Const and return its symbol.
func TestGenerateReturnSymbol(t *testing.T) {
	prog := program(map[lir.Name]lir.Global{
		"True": lir.Const{Arity: 0, Symbol: 1},
	}, lir.Block{
		lir.LoadGlobal{Global: "True"},
		lir.ReturnSymbol{Var: "True"},
	})

	u, err := Generate(prog, Config{Mode: ModeJIT, OptLevel: 0})
	if err != nil {
		t.Fatalf("Generate: %s", err)
	}
	defer u.Dispose()

	ir := u.String()
	if !strings.Contains(ir, "@True") {
		t.Fatalf("generated IR missing global @True:\n%s", ir)
	}
	if !strings.Contains(ir, "define i32 @main()") {
		t.Fatalf("generated IR missing main:\n%s", ir)
	}
}

// TestGenerateID mirrors original_source's test_id: a one-argument identity function applied to a Const via
// NewApp, then evaluated and its symbol returned.
func TestGenerateID(t *testing.T) {
	prog := program(map[lir.Name]lir.Global{
		"True": lir.Const{Arity: 0, Symbol: 1},
		"id": lir.Fun{Arity: 1, Block: lir.Block{
			lir.LoadArg{Name: "x", Var: "self", Index: 0},
			lir.FreeArgs{Var: "self"},
			lir.Eval{Var: "x"},
			lir.Return{Var: "x"},
		}},
	}, lir.Block{
		lir.LoadGlobal{Global: "id"},
		lir.LoadGlobal{Global: "True"},
		lir.NewApp{Name: "result", Var: "id", Args: []lir.Name{"True"}},
		lir.Eval{Var: "result"},
		lir.ReturnSymbol{Var: "result"},
	})

	u, err := Generate(prog, Config{Mode: ModeJIT, OptLevel: 0})
	if err != nil {
		t.Fatalf("Generate: %s", err)
	}
	defer u.Dispose()

	// Every runtime entry point is an internal void function too, so id is the one beyond those.
	if strings.Count(u.String(), "define internal void @") != len(runtime.Functions)+1 {
		t.Fatalf("expected the runtime functions plus exactly one internal function for id, got IR:\n%s", u.String())
	}
}

// TestGenerateSwitch mirrors original_source's test_switch: two arms, each returning a different const's
// symbol, with sibling-arm scope isolation.
func TestGenerateSwitch(t *testing.T) {
	prog := program(map[lir.Name]lir.Global{
		"True":  lir.Const{Arity: 0, Symbol: 1},
		"False": lir.Const{Arity: 0, Symbol: 2},
	}, lir.Block{
		lir.LoadGlobal{Global: "True"},
		lir.LoadGlobal{Global: "False"},
		lir.Switch{Var: "True", Cases: []lir.Case{
			{Global: "True", Block: lir.Block{
				lir.LoadGlobal{Global: "True"},
				lir.ReturnSymbol{Var: "False"},
			}},
			{Global: "False", Block: lir.Block{
				lir.LoadGlobal{Global: "True"},
				lir.ReturnSymbol{Var: "True"},
			}},
		}},
	})

	u, err := Generate(prog, Config{Mode: ModeJIT, OptLevel: 0})
	if err != nil {
		t.Fatalf("Generate: %s", err)
	}
	defer u.Dispose()

	ir := u.String()
	if !strings.Contains(ir, "switch i32") {
		t.Fatalf("generated IR missing switch instruction:\n%s", ir)
	}
	if !strings.Contains(ir, "unreachable") {
		t.Fatalf("generated IR missing default-case unreachable:\n%s", ir)
	}
}

// TestGenerateCopy mirrors original_source's test_copy: a bare copy of a loaded const.
func TestGenerateCopy(t *testing.T) {
	prog := program(map[lir.Name]lir.Global{
		"True": lir.Const{Arity: 0, Symbol: 1},
	}, lir.Block{
		lir.LoadGlobal{Global: "True"},
		lir.Copy{Name: "dup", Var: "True"},
		lir.ReturnSymbol{Var: "dup"},
	})

	u, err := Generate(prog, Config{Mode: ModeJIT, OptLevel: 0})
	if err != nil {
		t.Fatalf("Generate: %s", err)
	}
	defer u.Dispose()

	if !strings.Contains(u.String(), "call void @copy") {
		t.Fatalf("generated IR missing call to runtime copy:\n%s", u.String())
	}
}

// TestGenerateNewPartialThenApplyPartial mirrors original_source's test_partial: a two-argument function
// saturated across a new_partial/apply_partial pair must lower to calls against both runtime primitives,
// not just new_app -- the only structural coverage of the partial-application lowering path in compileApplyCall.
func TestGenerateNewPartialThenApplyPartial(t *testing.T) {
	prog := program(map[lir.Name]lir.Global{
		"A": lir.Const{Arity: 0, Symbol: 10},
		"B": lir.Const{Arity: 0, Symbol: 20},
		"f": lir.Fun{Arity: 2, Block: lir.Block{
			lir.LoadArg{Name: "x", Var: "self", Index: 0},
			lir.LoadArg{Name: "y", Var: "self", Index: 1},
			lir.FreeArgs{Var: "self"},
			lir.Eval{Var: "y"},
			lir.Return{Var: "y"},
		}},
	}, lir.Block{
		lir.LoadGlobal{Global: "f"},
		lir.LoadGlobal{Global: "A"},
		lir.LoadGlobal{Global: "B"},
		lir.NewPartial{Name: "p", Var: "f", Args: []lir.Name{"A"}},
		lir.ApplyPartial{Name: "q", Var: "p", Args: []lir.Name{"B"}},
		lir.Eval{Var: "q"},
		lir.ReturnSymbol{Var: "q"},
	})

	u, err := Generate(prog, Config{Mode: ModeJIT, OptLevel: 0})
	if err != nil {
		t.Fatalf("Generate: %s", err)
	}
	defer u.Dispose()

	ir := u.String()
	if !strings.Contains(ir, "call void @new_partial") {
		t.Fatalf("generated IR missing call to runtime new_partial:\n%s", ir)
	}
	if !strings.Contains(ir, "call void @apply_partial") {
		t.Fatalf("generated IR missing call to runtime apply_partial:\n%s", ir)
	}
}

// TestGenerateOptimizeLevels checks that every optimization level compiles without error.
func TestGenerateOptimizeLevels(t *testing.T) {
	prog := program(map[lir.Name]lir.Global{
		"True": lir.Const{Arity: 0, Symbol: 1},
	}, lir.Block{
		lir.LoadGlobal{Global: "True"},
		lir.ReturnSymbol{Var: "True"},
	})

	for level := 0; level <= 3; level++ {
		u, err := Generate(prog, Config{Mode: ModeJIT, OptLevel: level})
		if err != nil {
			t.Fatalf("Generate at -O%d: %s", level, err)
		}
		u.Dispose()
	}
}
