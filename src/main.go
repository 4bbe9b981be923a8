package main

import (
	"fmt"
	"os"

	"lirc/src/codegen"
	"lirc/src/frontend"
	"lirc/src/lir"
	"lirc/src/util"
)

// Exit codes, per the textual IR's external interface: 0 success, 1 source could not be read, 2 parse error,
// 3 malformed IR. In -e (JIT) mode the process instead exits with the compiled program's own return_symbol
// value, which may itself coincide with one of these numbers -- that is a property of the abstract machine,
// not a collision with the codes above.
const (
	exitOK = iota
	exitReadError
	exitParseError
	exitIRError
)

// run drives the whole pipeline: read source, parse it into a lir.Program, validate it, generate an LLVM
// module, then either JIT-execute it or emit it as a relocatable object, depending on opt.
func run(opt util.Options) int {
	src, err := util.ReadSource(opt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lirc: could not read source: %s\n", err)
		return exitReadError
	}

	prog, err := frontend.Parse(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lirc: parse error: %s\n", err)
		return exitParseError
	}

	if err := lir.Validate(prog); err != nil {
		fmt.Fprintf(os.Stderr, "lirc: malformed IR: %s\n", err)
		return exitIRError
	}

	mode := codegen.ModeAOT
	if opt.Eval {
		mode = codegen.ModeJIT
	}
	u, err := codegen.Generate(prog, codegen.Config{Mode: mode, OptLevel: opt.OptLevel, Threads: opt.Threads})
	if err != nil {
		fmt.Fprintf(os.Stderr, "lirc: %s\n", err)
		return exitIRError
	}
	defer u.Dispose()

	if opt.Verbose {
		fmt.Println(u.String())
	}

	if opt.Eval {
		code, err := u.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "lirc: %s\n", err)
			return exitIRError
		}
		return code
	}

	if err := u.EmitObject(opt.Out); err != nil {
		fmt.Fprintf(os.Stderr, "lirc: %s\n", err)
		return exitIRError
	}
	return exitOK
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lirc: %s\n", err)
		os.Exit(1)
	}
	os.Exit(run(opt))
}
