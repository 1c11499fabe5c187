// Command ember is Ember's CLI: run a script file, or start a REPL when
// none is given. Structure follows the teacher's (kristofer-smog)
// cmd/smog/main.go: a manual os.Args dispatch over a handful of
// subcommands, a runFile-style entry point that reads then interprets, and
// a persistent-VM REPL loop — enhanced here with spec §6's differentiated
// exit codes (the teacher exits 1 uniformly on every error kind) and the
// flags spec §6 documents (--std, --trace-execution, --print-code,
// --stress-gc, --log-gc).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/kristofer/ember/pkg/bytecode"
	"github.com/kristofer/ember/pkg/compiler"
	"github.com/kristofer/ember/pkg/config"
	"github.com/kristofer/ember/pkg/gclog"
	"github.com/kristofer/ember/pkg/heap"
	"github.com/kristofer/ember/pkg/interp"
	"github.com/kristofer/ember/pkg/vm"
)

const version = "0.1.0"

// Exit codes, spec §6.
const (
	exitOK           = 0
	exitCompileError = 65
	exitRuntimeError = 70
	exitFileError    = 74
)

type flags struct {
	lenient        bool
	strict         bool
	traceExecution bool
	printCode      bool
	stressGC       bool
	logGC          bool
	file           string
}

func parseArgs(args []string) flags {
	f := flags{}
	for _, a := range args {
		switch a {
		case "--std":
			f.lenient = true
		case "--strict":
			f.strict = true
		case "--trace-execution":
			f.traceExecution = true
		case "--print-code":
			f.printCode = true
		case "--stress-gc":
			f.stressGC = true
		case "--log-gc":
			f.logGC = true
		default:
			if strings.HasPrefix(a, "--") {
				fmt.Fprintf(os.Stderr, "ember: unknown flag %s\n", a)
				os.Exit(exitFileError)
			}
			f.file = a
		}
	}
	return f
}

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "version":
			fmt.Printf("ember %s\n", version)
			return
		case "help":
			printUsage()
			return
		}
	}

	f := parseArgs(args)
	applyConfigDefaults(&f)

	if f.file == "" {
		runREPL(f)
		return
	}
	os.Exit(runFile(f))
}

// applyConfigDefaults layers a .emberrc.yaml (cwd, then $HOME) under flags
// already set on the command line — flags always win (spec §2's
// Configuration section).
func applyConfigDefaults(f *flags) {
	cfg := config.Default()
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".emberrc.yaml")
		if _, statErr := os.Stat(path); statErr == nil {
			if c, err := config.Load(path); err == nil {
				cfg = c
			}
		}
	}
	if _, statErr := os.Stat(".emberrc.yaml"); statErr == nil {
		if c, err := config.Load(".emberrc.yaml"); err == nil {
			cfg = c
		}
	}
	if !f.traceExecution {
		f.traceExecution = cfg.TraceExecution
	}
	if !f.printCode {
		f.printCode = cfg.PrintCode
	}
	if !f.stressGC {
		f.stressGC = cfg.StressGC
	}
	if !f.logGC {
		f.logGC = cfg.LogGC
	}
	if !f.lenient {
		f.lenient = cfg.Lenient
	}
	if !f.strict {
		f.strict = cfg.Strict
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  ember                          start a REPL")
	fmt.Println("  ember [file] [flags]           run a script file")
	fmt.Println("  ember version                  print the version")
	fmt.Println("  ember help                     show this message")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --std               lenient mode (a missing property on an instance yields nil)")
	fmt.Println("  --strict            fail compilation instead of widening constant/local")
	fmt.Println("                      indices past 255 to the long operand form")
	fmt.Println("  --trace-execution   print each instruction as it runs, to stderr")
	fmt.Println("  --print-code        disassemble the compiled script before running it")
	fmt.Println("  --stress-gc         collect before every instruction (testing aid)")
	fmt.Println("  --log-gc            log each collection cycle to stderr")
}

func newInterpreter(f flags) *interp.Interpreter {
	i := interp.New()
	i.Lenient = f.lenient
	i.Strict = f.strict
	i.VM.TraceExecution = f.traceExecution
	i.VM.StressGC = f.stressGC
	i.VM.Heap.SetStressGC(f.stressGC)
	if f.logGC {
		gclog.NewLogger(os.Stderr).Attach(i.VM.Heap)
	}
	return i
}

// runFile reads and interprets one script, printing diagnostics the way
// spec §7 describes, and returns the process exit code for that outcome.
func runFile(f flags) int {
	var data []byte
	var err error
	if f.file == "-" {
		data, err = readStdinScript()
	} else {
		data, err = os.ReadFile(f.file)
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error reading file: %v\n", err)
		return exitFileError
	}

	i := newInterpreter(f)

	if f.printCode {
		printDisassembly(os.Stderr, string(data), i)
	}

	outcome, rerr := i.Interpret(data)
	return reportOutcome(outcome, i.Errors(), rerr)
}

// printDisassembly compiles source a second time purely to render its
// bytecode (spec §4's SUPPLEMENTED FEATURES --print-code), against a throwaway
// heap so it can't perturb the interpreter's own constant pool or GC state.
func printDisassembly(w io.Writer, source string, i *interp.Interpreter) {
	h := heap.New()
	fn, errs := compiler.Compile(source, h, i.Lenient, i.Strict)
	if len(errs) > 0 {
		return
	}
	fmt.Fprintln(w, bytecode.Disassemble(fn.Chunk, h))
}

// reportOutcome prints the diagnostics for a non-Ok outcome the way spec §7
// requires and returns the matching exit code.
func reportOutcome(outcome vm.Outcome, errs []*compiler.CompileError, rerr *vm.RuntimeError) int {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	switch outcome {
	case vm.Ok:
		return exitOK
	case vm.CompileErrorOutcome:
		for _, e := range errs {
			red.Fprintln(os.Stderr, e.Error())
		}
		return exitCompileError
	case vm.RuntimeErrorOutcome:
		lines := strings.Split(rerr.Error(), "\n")
		red.Fprintln(os.Stderr, lines[0])
		for _, l := range lines[1:] {
			yellow.Fprintln(os.Stderr, l)
		}
		return exitRuntimeError
	default:
		return exitRuntimeError
	}
}

// runREPL reads one input at a time with peterh/liner (history + line
// editing), running each against the same *interp.Interpreter so globals
// and const bindings carry over between inputs (spec §4's SUPPLEMENTED
// FEATURES: REPL multi-statement carryover).
func runREPL(f flags) {
	fmt.Printf("ember %s\n", version)
	fmt.Println("Type 'exit' or Ctrl-D to quit.")

	i := newInterpreter(f)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	prompt := "ember> "
	for {
		input, err := line.Prompt(prompt)
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "ember: %v\n", err)
			return
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		if trimmed == "exit" || trimmed == "quit" {
			return
		}
		line.AppendHistory(input)

		source := trimmed
		if !strings.HasSuffix(source, ";") && !strings.HasSuffix(source, "}") {
			source += ";"
		}
		outcome, rerr := i.Interpret([]byte(source))
		reportOutcome(outcome, i.Errors(), rerr)
	}
}

// readStdinScript supports `ember -` (script piped on stdin), mirrored from
// the teacher's runFile extension dispatch but for the no-filename case.
func readStdinScript() ([]byte, error) {
	return io.ReadAll(bufio.NewReader(os.Stdin))
}
