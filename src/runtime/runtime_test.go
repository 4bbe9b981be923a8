package runtime

import (
	"testing"

	"tinygo.org/x/go-llvm"
)

// TestLoadDefinesAllFunctions checks that every entry in Functions resolves to a defined, internal-linkage
// function once the embedded runtime IR is parsed.
func TestLoadDefinesAllFunctions(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	m, err := Load(ctx)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}

	for _, name := range Functions {
		fn := m.NamedFunction(name)
		if fn.IsNil() {
			t.Fatalf("function %q not found in parsed module", name)
		}
		if fn.IsDeclaration() && name != "todo" {
			t.Fatalf("function %q has no body", name)
		}
		if fn.Linkage() != llvm.InternalLinkage {
			t.Fatalf("function %q has linkage %v, want internal", name, fn.Linkage())
		}
	}
}

// TestTermTypeLayout checks that the Term struct type is registered under the expected name with five
// fields, matching the layout package codegen assumes.
func TestTermTypeLayout(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	if _, err := Load(ctx); err != nil {
		t.Fatalf("Load: %s", err)
	}

	termType := TermType(ctx)
	if termType.IsNil() {
		t.Fatal("Term type not registered after Load")
	}
	if n := termType.StructElementTypesCount(); n != 5 {
		t.Fatalf("Term has %d fields, want 5", n)
	}
}

// TestEvaluatorType checks that EvaluatorType describes a void(Term*) function.
func TestEvaluatorType(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	if _, err := Load(ctx); err != nil {
		t.Fatalf("Load: %s", err)
	}

	fnType := EvaluatorType(ctx)
	if fnType.ReturnType().TypeKind() != llvm.VoidTypeKind {
		t.Fatalf("evaluator return type = %v, want void", fnType.ReturnType().TypeKind())
	}
	if n := fnType.ParamTypesCount(); n != 1 {
		t.Fatalf("evaluator has %d params, want 1", n)
	}
}
