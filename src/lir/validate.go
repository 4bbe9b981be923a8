// validate.go checks IR well-formedness before a Program is handed to the code generator: dangling locals,
// missing globals and a missing or malformed main are reported as errors here rather than left to surface as
// a generator panic, which is an allowed upgrade per the runtime's error handling rules -- valid IR is still
// the producer's responsibility, only the failure mode changes from panic to a returned error.
package lir

import "fmt"

// scope is the compile-time set of local names bound in one lexical region. Validate only needs to know
// whether a name is bound, not its value, so a scope is a set rather than the value-carrying map the code
// generator itself keeps.
type scope map[Name]struct{}

// scopes is a stack of lexical regions, innermost last, mirroring the code generator's own scope stack
// (see codegen.unit.locals).
type scopes []scope

func (s *scopes) push() {
	*s = append(*s, scope{})
}

func (s scopes) clearTop() {
	for k := range s[len(s)-1] {
		delete(s[len(s)-1], k)
	}
}

func (s scopes) define(name Name) {
	s[len(s)-1][name] = struct{}{}
}

func (s scopes) has(name Name) bool {
	for i := len(s) - 1; i >= 0; i-- {
		if _, ok := s[i][name]; ok {
			return true
		}
	}
	return false
}

// Validate checks that prog is well-formed: main exists and is a nullary Fun, every local reference resolves
// to an earlier binding in the same or an enclosing scope, every LoadGlobal names an existing global and every
// Case.Global names an existing Const.
func Validate(prog Program) error {
	main, ok := prog.Globals["main"]
	if !ok {
		return fmt.Errorf("lir: program has no global named %q", "main")
	}
	mainFun, ok := main.(Fun)
	if !ok {
		return fmt.Errorf("lir: global %q must be a function, got %T", "main", main)
	}
	if mainFun.Arity != 0 {
		return fmt.Errorf("lir: global %q must have arity 0, got %d", "main", mainFun.Arity)
	}

	for name, g := range prog.Globals {
		switch g := g.(type) {
		case Const:
			// No body to validate.
		case Fun:
			st := scopes{}
			st.push()
			if name != "main" {
				st.define("self")
			}
			if err := validateBlock(prog, g.Block, st); err != nil {
				return fmt.Errorf("lir: in function %q: %w", name, err)
			}
		default:
			return fmt.Errorf("lir: global %q has unknown type %T", name, g)
		}
	}
	return nil
}

// validateBlock walks block op by op, threading the scope stack st so that later ops see locals bound by
// earlier ones in the same or an enclosing scope.
func validateBlock(prog Program, block Block, st scopes) error {
	for _, op := range block {
		switch op := op.(type) {
		case LoadGlobal:
			if _, ok := prog.Globals[op.Global]; !ok {
				return fmt.Errorf("load_global: no such global %q", op.Global)
			}
			st.define(op.Global)
		case LoadArg:
			if !st.has(op.Var) {
				return fmt.Errorf("load_arg: undefined local %q", op.Var)
			}
			st.define(op.Name)
		case NewApp:
			if err := checkVarArgs(st, op.Var, op.Args, "new_app"); err != nil {
				return err
			}
			st.define(op.Name)
		case NewPartial:
			if err := checkVarArgs(st, op.Var, op.Args, "new_partial"); err != nil {
				return err
			}
			st.define(op.Name)
		case ApplyPartial:
			if err := checkVarArgs(st, op.Var, op.Args, "apply_partial"); err != nil {
				return err
			}
			st.define(op.Name)
		case Copy:
			if !st.has(op.Var) {
				return fmt.Errorf("copy: undefined local %q", op.Var)
			}
			st.define(op.Name)
		case Eval:
			if !st.has(op.Var) {
				return fmt.Errorf("eval: undefined local %q", op.Var)
			}
		case FreeArgs:
			if !st.has(op.Var) {
				return fmt.Errorf("free_args: undefined local %q", op.Var)
			}
		case FreeTerm:
			if !st.has(op.Var) {
				return fmt.Errorf("free_term: undefined local %q", op.Var)
			}
		case Return:
			if !st.has(op.Var) {
				return fmt.Errorf("return: undefined local %q", op.Var)
			}
		case ReturnSymbol:
			if !st.has(op.Var) {
				return fmt.Errorf("return_symbol: undefined local %q", op.Var)
			}
		case Switch:
			if !st.has(op.Var) {
				return fmt.Errorf("switch: undefined local %q", op.Var)
			}
			st.push()
			for _, c := range op.Cases {
				g, ok := prog.Globals[c.Global]
				if !ok {
					return fmt.Errorf("switch: case references unknown global %q", c.Global)
				}
				if _, ok := g.(Const); !ok {
					return fmt.Errorf("switch: case %q does not reference a const", c.Global)
				}
				st.clearTop()
				if err := validateBlock(prog, c.Block, st); err != nil {
					return fmt.Errorf("switch case %q: %w", c.Global, err)
				}
			}
		case Todo:
			// No operands to check.
		default:
			return fmt.Errorf("unknown op type %T", op)
		}
	}
	return nil
}

// checkVarArgs verifies that var and every entry of args resolve to a bound local, reporting mnemonic in any
// error for context.
func checkVarArgs(st scopes, v Name, args []Name, mnemonic string) error {
	if !st.has(v) {
		return fmt.Errorf("%s: undefined local %q", mnemonic, v)
	}
	for _, a := range args {
		if !st.has(a) {
			return fmt.Errorf("%s: undefined local %q in argument list", mnemonic, a)
		}
	}
	return nil
}
