// Package frontend turns the textual IR grammar (program := global*, global := const_decl | fun_decl, ...)
// into a lir.Program. There is no expression grammar here and no operator precedence to climb: every op is a
// fixed-arity mnemonic followed by identifiers and numbers, so a one-token-of-lookahead recursive-descent
// parser is all the grammar calls for, unlike the teacher's own goyacc-driven VSL frontend.
package frontend

import (
	"fmt"

	"lirc/src/lir"
)

// parser consumes items from a lexer one at a time, keeping a single token of lookahead.
type parser struct {
	l       *lexer
	tok     item
	globals map[lir.Name]lir.Global
}

// Parse lexes and parses src, returning the resulting Program. Parse does not itself call lir.Validate; callers
// that need well-formedness checking should do that separately once Parse succeeds.
func Parse(src string) (lir.Program, error) {
	p := &parser{l: newLexer(src), globals: make(map[lir.Name]lir.Global)}
	p.advance()
	if err := p.parseProgram(); err != nil {
		return lir.Program{}, err
	}
	return lir.Program{Globals: p.globals}, nil
}

// advance discards the current lookahead token and fetches the next one.
func (p *parser) advance() {
	p.tok = p.l.nextItem()
}

// expect consumes the current token if it has type typ, returning its value, or fails otherwise.
func (p *parser) expect(typ itemType) (item, error) {
	if p.tok.typ == itemError {
		return item{}, fmt.Errorf("frontend: %s", p.tok.val)
	}
	if p.tok.typ != typ {
		return item{}, fmt.Errorf("frontend: line %d:%d: unexpected %s", p.tok.line, p.tok.pos, p.tok)
	}
	tok := p.tok
	p.advance()
	return tok, nil
}

func (p *parser) parseProgram() error {
	for p.tok.typ != itemEOF {
		if err := p.parseGlobal(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseGlobal() error {
	switch p.tok.typ {
	case itemConst:
		return p.parseConstDecl()
	case itemFun:
		return p.parseFunDecl()
	default:
		return fmt.Errorf("frontend: line %d:%d: expected 'const' or 'fun', got %s", p.tok.line, p.tok.pos, p.tok)
	}
}

func (p *parser) parseConstDecl() error {
	p.advance() // 'const'
	name, err := p.expect(itemIdentifier)
	if err != nil {
		return err
	}
	arity, err := p.expectNumber()
	if err != nil {
		return err
	}
	symbol, err := p.expectNumber()
	if err != nil {
		return err
	}
	if _, dup := p.globals[name.val]; dup {
		return fmt.Errorf("frontend: global %q declared twice", name.val)
	}
	p.globals[name.val] = lir.Const{Arity: lir.Arity(arity), Symbol: lir.Symbol(symbol)}
	return nil
}

func (p *parser) parseFunDecl() error {
	p.advance() // 'fun'
	name, err := p.expect(itemIdentifier)
	if err != nil {
		return err
	}
	arity, err := p.expectNumber()
	if err != nil {
		return err
	}
	block, err := p.parseBlock()
	if err != nil {
		return err
	}
	if _, dup := p.globals[name.val]; dup {
		return fmt.Errorf("frontend: global %q declared twice", name.val)
	}
	p.globals[name.val] = lir.Fun{Arity: lir.Arity(arity), Block: block}
	return nil
}

func (p *parser) parseBlock() (lir.Block, error) {
	if _, err := p.expect(itemLBrace); err != nil {
		return nil, err
	}
	var block lir.Block
	for p.tok.typ != itemRBrace {
		op, err := p.parseOp()
		if err != nil {
			return nil, err
		}
		block = append(block, op)
	}
	p.advance() // '}'
	return block, nil
}

func (p *parser) parseOp() (lir.Op, error) {
	switch p.tok.typ {
	case itemLoadGlobal:
		p.advance()
		global, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		return lir.LoadGlobal{Global: global.val}, nil

	case itemLoadArg:
		p.advance()
		name, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		v, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		index, err := p.expectNumber()
		if err != nil {
			return nil, err
		}
		return lir.LoadArg{Name: name.val, Var: v.val, Index: lir.Index(index)}, nil

	case itemNewApp, itemNewPartial, itemApplyPartial:
		mnemonic := p.tok.typ
		p.advance()
		name, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		v, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		switch mnemonic {
		case itemNewApp:
			return lir.NewApp{Name: name.val, Var: v.val, Args: args}, nil
		case itemNewPartial:
			return lir.NewPartial{Name: name.val, Var: v.val, Args: args}, nil
		default:
			return lir.ApplyPartial{Name: name.val, Var: v.val, Args: args}, nil
		}

	case itemCopy:
		p.advance()
		name, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		v, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		return lir.Copy{Name: name.val, Var: v.val}, nil

	case itemEval:
		p.advance()
		v, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		return lir.Eval{Var: v.val}, nil

	case itemFreeArgs:
		p.advance()
		v, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		return lir.FreeArgs{Var: v.val}, nil

	case itemFreeTerm:
		p.advance()
		v, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		return lir.FreeTerm{Var: v.val}, nil

	case itemReturn:
		p.advance()
		v, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		return lir.Return{Var: v.val}, nil

	case itemReturnSymbol:
		p.advance()
		v, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		return lir.ReturnSymbol{Var: v.val}, nil

	case itemSwitch:
		return p.parseSwitch()

	case itemTodo:
		p.advance()
		return lir.Todo{}, nil

	case itemError:
		return nil, fmt.Errorf("frontend: %s", p.tok.val)

	default:
		return nil, fmt.Errorf("frontend: line %d:%d: unexpected %s in block", p.tok.line, p.tok.pos, p.tok)
	}
}

func (p *parser) parseSwitch() (lir.Op, error) {
	p.advance() // 'switch'
	v, err := p.expect(itemIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(itemLBrace); err != nil {
		return nil, err
	}
	var cases []lir.Case
	for p.tok.typ == itemCase {
		p.advance()
		global, err := p.expect(itemIdentifier)
		if err != nil {
			return nil, err
		}
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		cases = append(cases, lir.Case{Global: global.val, Block: block})
	}
	if _, err := p.expect(itemRBrace); err != nil {
		return nil, err
	}
	return lir.Switch{Var: v.val, Cases: cases}, nil
}

// parseArgList parses "{" IDENT* "}".
func (p *parser) parseArgList() ([]lir.Name, error) {
	if _, err := p.expect(itemLBrace); err != nil {
		return nil, err
	}
	var args []lir.Name
	for p.tok.typ == itemIdentifier {
		args = append(args, p.tok.val)
		p.advance()
	}
	if _, err := p.expect(itemRBrace); err != nil {
		return nil, err
	}
	return args, nil
}

// expectNumber consumes an itemNumber and parses it as an unsigned integer.
func (p *parser) expectNumber() (uint64, error) {
	tok, err := p.expect(itemNumber)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, r := range tok.val {
		n = n*10 + uint64(r-'0')
	}
	return n, nil
}
