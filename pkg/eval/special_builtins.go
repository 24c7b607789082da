package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/slatesh/slate/pkg/parser"
)

// Some builtins are designated "special" by POSIX; the return value includes
// an error because they can fail in ways that terminate evaluation, and
// because break, continue, return and exit unwind through it.
var specialBuiltins = map[string]func(*frame, []string) (int, error){
	":":        colon,
	"break":    breakCmd,
	"continue": continueCmd,
	"exit":     exitCmd,
	"export":   export,
	"return":   returnCmd,
	"unset":    unset,
}

func init() {
	// These re-enter the evaluator, so putting them in the map literal would
	// create an initialization cycle.
	specialBuiltins["."] = dot
	specialBuiltins["source"] = dot
	specialBuiltins["eval"] = evalCmd
}

func colon(*frame, []string) (int, error) {
	return 0, nil
}

func breakCmd(fm *frame, args []string) (int, error) {
	return abortLoop(fm, args, false)
}

func continueCmd(fm *frame, args []string) (int, error) {
	return abortLoop(fm, args, true)
}

// Implements break and continue. This works by returning errLoopAbort after
// setting fm.loopAbort, which is examined by the while statement.
func abortLoop(fm *frame, args []string, next bool) (int, error) {
	level := 1
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fm.badCommandLine("argument must be number, got %q", args[0])
			return StatusBadCommandLine, errAbort
		}
		if n <= 0 {
			fm.badCommandLine("argument must be positive, got %v", n)
			return StatusBadCommandLine, errAbort
		}
		level = n
	default:
		fm.badCommandLine("at most 1 argument accepted, got %v", len(args))
		return StatusBadCommandLine, errAbort
	}
	if fm.loopDepth == 0 {
		// POSIX leaves break and continue unspecified when there is no
		// enclosing loop. We let them do nothing, like dash and ksh.
		return 0, nil
	}
	dest := fm.loopDepth - level
	// POSIX specifies that break and continue act on the outermost loop when
	// n exceeds the number of enclosing loops.
	if dest < 0 {
		dest = 0
	}
	fm.loopAbort = &loopAbort{dest: dest, next: next}
	return 0, errLoopAbort
}

// dot implements both . and source: the file is read through the evaler's
// filesystem, parsed, and run in the current shell context.
func dot(fm *frame, args []string) (int, error) {
	if len(args) != 1 {
		fm.badCommandLine("exactly 1 argument accepted, got %v", len(args))
		return StatusBadCommandLine, errAbort
	}
	src, err := afero.ReadFile(fm.ev.Fs, fm.ev.resolve(args[0]))
	if err != nil {
		fmt.Fprintf(fm.diag, "slate: can't read %v: %v\n", args[0], err)
		return 1, errAbort
	}
	n, perr := parser.Parse(string(src))
	if perr != nil {
		fmt.Fprintln(fm.diag, "syntax error:", perr)
		return StatusSyntaxError, errAbort
	}
	return fm.evalNode(n)
}

func evalCmd(fm *frame, args []string) (int, error) {
	code := strings.Join(args, " ")
	if strings.Trim(code, " \t\n") == "" {
		return 0, nil
	}
	n, err := parser.Parse(code)
	if err != nil {
		fmt.Fprintln(fm.diag, "syntax error:", err)
		return StatusSyntaxError, errAbort
	}
	return fm.evalNode(n)
}

func exitCmd(fm *frame, args []string) (int, error) {
	status := fm.ev.Vars.Status()
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fm.badCommandLine("argument must be number, got %q", args[0])
			return StatusBadCommandLine, errAbort
		}
		status = n
	default:
		fm.badCommandLine("at most 1 argument accepted, got %v", len(args))
		return StatusBadCommandLine, errAbort
	}
	return status, errAbort
}

func export(fm *frame, args []string) (int, error) {
	opts, args, ok := fm.getopt("export", args, "p")
	if !ok {
		return StatusBadCommandLine, errAbort
	}
	if opts.isSet('p') {
		for _, name := range fm.ev.Vars.ExportedNames() {
			fmt.Fprintf(fm.stdout, "export %v=%v\n", name, fm.ev.Vars.Get(name))
		}
		return 0, nil
	}
	for _, arg := range args {
		// Arguments were already expanded; NAME=value sets and exports,
		// a bare NAME exports the current value.
		name, value, hasValue := strings.Cut(arg, "=")
		if hasValue {
			fm.ev.Vars.Set(name, value)
		}
		fm.ev.Vars.Export(name)
	}
	return 0, nil
}

func returnCmd(fm *frame, args []string) (int, error) {
	status := fm.ev.Vars.Status()
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fm.badCommandLine("argument must be number, got %q", args[0])
			return StatusBadCommandLine, errAbort
		}
		if n < 0 {
			fm.badCommandLine("argument must be non-negative, got %v", n)
			return StatusBadCommandLine, errAbort
		}
		status = n
	default:
		fm.badCommandLine("at most 1 argument accepted, got %v", len(args))
		return StatusBadCommandLine, errAbort
	}
	return status, errReturn
}

func unset(fm *frame, args []string) (int, error) {
	opts, args, ok := fm.getopt("unset", args, "fv")
	if !ok {
		return StatusBadCommandLine, errAbort
	}
	if opts.isSet('f') && opts.isSet('v') {
		fm.badCommandLine("-f and -v are mutually exclusive")
		return StatusBadCommandLine, errAbort
	}
	if opts.isSet('f') {
		for _, name := range args {
			delete(fm.ev.functions, name)
		}
	} else {
		// When neither -f nor -v is given, default to variables.
		for _, name := range args {
			fm.ev.Vars.Unset(name)
		}
	}
	return 0, nil
}
