package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds every command line knob lirc understands.
type Options struct {
	Src      string // Positional argument: path to source file, or inline source when Code is set.
	Code     bool   // -c: treat Src as inline source text rather than a path.
	Eval     bool   // -e: JIT-execute the compiled module instead of emitting an object file.
	OptLevel int    // -O: optimization level, 0-3.
	Out      string // -o: output object file path (ignored in Eval mode).
	Threads  int    // -t: worker goroutines for parallel function-body emission. 0 means sequential.
	Verbose  bool   // -vb: dump the generated module as LLVM IR text to stdout before running/emitting.
}

// ---------------------
// ----- Constants -----
// ---------------------

const maxThreads = 64
const appVersion = "lirc 1.0"
const defaultOut = "a.o"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses os.Args[1:] into an Options value.
func ParseArgs() (Options, error) {
	opt := Options{Out: defaultOut}
	args := os.Args[1:]

	for i1 := 0; i1 < len(args); i1++ {
		switch args[i1] {
		case "-h", "--h", "-help", "--help":
			printHelp()
			os.Exit(0)
		case "-v", "--v", "-version", "--version":
			fmt.Println(appVersion)
			os.Exit(0)
		case "-c":
			opt.Code = true
		case "-e", "-eval":
			opt.Eval = true
		case "-vb":
			opt.Verbose = true
		case "-o":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			if strings.HasPrefix(args[i1+1], "-") {
				return opt, fmt.Errorf("expected path to output file, got new flag %s", args[i1+1])
			}
			opt.Out = args[i1+1]
			i1++
		case "-t":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			t, err := strconv.Atoi(args[i1+1])
			if err != nil {
				return opt, fmt.Errorf("expected integer thread count, got: %s", args[i1+1])
			}
			if t < 1 || t > maxThreads {
				return opt, fmt.Errorf("thread count must be integer in range [1, %d]", maxThreads)
			}
			opt.Threads = t
			i1++
		case "-O":
			if i1+1 >= len(args) {
				return opt, fmt.Errorf("got flag %s but no argument", args[i1])
			}
			o, err := strconv.Atoi(args[i1+1])
			if err != nil || o < 0 || o > 3 {
				return opt, fmt.Errorf("optimization level must be integer in range [0, 3], got: %s", args[i1+1])
			}
			opt.OptLevel = o
			i1++
		default:
			if strings.HasPrefix(args[i1], "-") {
				return opt, fmt.Errorf("unexpected flag: %s", args[i1])
			}
			if len(opt.Src) > 0 {
				return opt, fmt.Errorf("unexpected extra argument: %s", args[i1])
			}
			opt.Src = args[i1]
		}
	}

	if len(opt.Src) == 0 && !opt.Code {
		return opt, fmt.Errorf("missing source file (or -c with inline source)")
	}
	return opt, nil
}

// printHelp prints a helpful usage message to stdout.
func printHelp() {
	w := tabwriter.NewWriter(os.Stdout, 6, 1, 1, 0, 0)
	_, _ = fmt.Fprintln(w, "usage: lirc [flags] <file>")
	_, _ = fmt.Fprintln(w, "-c\tTreat the positional argument as inline source text rather than a path.")
	_, _ = fmt.Fprintln(w, "-e, -eval\tJIT-execute the compiled module instead of emitting an object file.")
	_, _ = fmt.Fprintln(w, "-h, -help\tPrints this help message and exits.")
	_, _ = fmt.Fprintln(w, "--h, --help")
	_, _ = fmt.Fprintln(w, "-o\tPath of the output object file. Defaults to a.o.")
	_, _ = fmt.Fprintln(w, "-O\tOptimization level, in range [0, 3]. Defaults to 0.")
	_, _ = fmt.Fprintf(w, "-t\tNumber of worker threads for function-body emission, in range [1, %d].\n", maxThreads)
	_, _ = fmt.Fprintln(w, "-v, -version\tPrints the compiler version and exits.")
	_, _ = fmt.Fprintln(w, "--v, --version")
	_, _ = fmt.Fprintln(w, "-vb\tVerbose mode: print the generated module as LLVM IR before running or emitting it.")
	_ = w.Flush()
}
