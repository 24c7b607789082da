// Package eval implements a tree-walking evaluator for the syntax tree
// produced by the parser package. An Evaler owns the variable table, the
// function table, the working directory and the standard streams; each call
// to Eval walks the tree with a frame that tracks the per-evaluation state
// such as redirected streams and loop depth.
package eval

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/slatesh/slate/pkg/arith"
	"github.com/slatesh/slate/pkg/ast"
	"github.com/slatesh/slate/pkg/env"
	"github.com/slatesh/slate/pkg/parser"
	"github.com/slatesh/slate/pkg/token"
)

// Evaler evaluates programs against one variable table. The zero value is not
// usable; construct with New and override fields before the first Eval.
type Evaler struct {
	Vars *env.Vars

	// Fs backs redirections, the source builtin and glob expansion. Eval
	// never touches the real filesystem through any other path, so tests can
	// substitute a memory-backed implementation.
	Fs afero.Fs

	// Dir is the working directory, maintained by the cd builtin. Relative
	// paths in redirections and glob expansion resolve against it.
	Dir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	functions map[string]ast.Node
}

func New(vars *env.Vars) *Evaler {
	return &Evaler{
		Vars:   vars,
		Fs:     afero.NewOsFs(),
		Dir:    ".",
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Eval parses and evaluates one unit of source code. Parse diagnostics are
// printed to Stderr; the statements that survived recovery still run, and
// only an input with no usable statement at all yields [StatusSyntaxError]
// without evaluation. The returned error is non-nil only for I/O failures
// that make further evaluation meaningless, such as an unopenable
// redirection target.
func (ev *Evaler) Eval(code string) (int, error) {
	n, err := parser.Parse(code)
	if err != nil {
		var perr parser.Error
		if errors.As(err, &perr) {
			for _, e := range perr.Entries {
				fmt.Fprintf(ev.Stderr, "slate: %v: %v\n", e.Pos, e.Message)
			}
		} else {
			fmt.Fprintf(ev.Stderr, "slate: %v\n", err)
		}
		if len(n.Statements) == 0 {
			ev.Vars.SetStatus(StatusSyntaxError)
			return StatusSyntaxError, nil
		}
	}
	return ev.EvalProgram(n)
}

// EvalProgram evaluates an already parsed program.
func (ev *Evaler) EvalProgram(n *ast.List) (int, error) {
	status, err := ev.frame().evalNode(n)
	ev.Vars.SetStatus(status)
	if controlFlow(err) {
		// Control flow that escaped to the top level terminates the program
		// with the status it carried.
		err = nil
	}
	return status, err
}

func (ev *Evaler) frame() *frame {
	if ev.functions == nil {
		ev.functions = make(map[string]ast.Node)
	}
	return &frame{ev: ev, stdin: ev.Stdin, stdout: ev.Stdout, stderr: ev.Stderr, diag: ev.Stderr}
}

// resolve anchors a relative path at the working directory.
func (ev *Evaler) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || ev.Dir == "" {
		return path
	}
	return filepath.Join(ev.Dir, path)
}

// subshellFrame returns a frame whose evaler owns copies of the variable and
// function tables. Pipeline stages other than the last and command
// substitutions run on such frames, so their mutations neither reach the
// invoking shell nor race with it.
func (fm *frame) subshellFrame() *frame {
	nested := &Evaler{
		Vars:      fm.ev.Vars.Clone(),
		Fs:        fm.ev.Fs,
		Dir:       fm.ev.Dir,
		Stdin:     fm.stdin,
		Stdout:    fm.stdout,
		Stderr:    fm.stderr,
		functions: cloneFunctions(fm.ev.functions),
	}
	sub := nested.frame()
	sub.diag = fm.diag
	return sub
}

func cloneFunctions(m map[string]ast.Node) map[string]ast.Node {
	c := make(map[string]ast.Node, len(m))
	for name, body := range m {
		c[name] = body
	}
	return c
}

// frame is the per-evaluation state. Pipelines and command substitutions run
// on derived frames with swapped streams; the variable table always stays
// shared through ev.
type frame struct {
	ev *Evaler

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// POSIX requires shell diagnostic messages to go to the initial stderr,
	// ignoring active redirections. We keep that stream here.
	diag io.Writer

	// The following two fields implement break and continue inside while
	// loops:
	//
	//  - loopDepth is maintained by the while statement and stores the number
	//    of enclosing loops.
	//
	//  - loopAbort is set by break/continue and examined by the while
	//    statement, which acts when loopAbort.dest matches its depth.
	//
	// The mechanism is purely dynamic: it does not know which loops lexically
	// enclose the break or continue command.
	loopDepth int
	loopAbort *loopAbort
}

type loopAbort struct {
	dest int  // destination value of loopDepth
	next bool // true for continue, false for break
}

// Sentinels that unwind evaluation. The status accompanying the error is
// always meaningful.
var (
	// errAbort terminates evaluation outright: exit, or a fatal shell error.
	errAbort = errors.New("evaluation aborted")
	// errReturn unwinds to the nearest function call.
	errReturn = errors.New("return")
	// errLoopAbort unwinds to the loop recorded in frame.loopAbort.
	errLoopAbort = errors.New("loop abort")
)

// controlFlow reports whether an error is one of the unwinding sentinels
// rather than a real failure.
func controlFlow(err error) bool {
	return errors.Is(err, errAbort) || errors.Is(err, errReturn) || errors.Is(err, errLoopAbort)
}

// Prints a shell diagnostic message.
func (fm *frame) diagf(pos token.Position, format string, args ...interface{}) {
	fmt.Fprintf(fm.diag, "slate: %v: "+format+"\n", append([]interface{}{pos}, args...)...)
}

func (fm *frame) badCommandLine(format string, args ...interface{}) {
	fmt.Fprintf(fm.diag, format+"\n", args...)
}

func (fm *frame) evalNode(n ast.Node) (int, error) {
	switch n := n.(type) {
	case nil:
		return 0, nil
	case *ast.List:
		return fm.list(n)
	case *ast.Pipeline:
		return fm.pipeline(n)
	case *ast.Command:
		return fm.command(n)
	case *ast.Subshell:
		// The inner list runs against the same variable table as the parent.
		return fm.evalNode(n.List)
	case *ast.IfStatement:
		return fm.runIf(n.Condition, n.Consequence, n.Alternative)
	case *ast.ElifBranch:
		return fm.runIf(n.Condition, n.Consequence, n.Alternative)
	case *ast.ElseBranch:
		return fm.evalNode(n.Body)
	case *ast.WhileStatement:
		return fm.runWhile(n)
	case *ast.Assignment:
		return fm.assign(n)
	case *ast.EnvCommand:
		return fm.envCommand(n)
	case *ast.FunctionDef:
		fm.ev.functions[n.Name] = n.Body
		return 0, nil
	case *ast.ExtGlobPattern:
		return fm.bareExtGlob(n)
	case *ast.CommandSubstitution:
		// A substitution in statement position captures its output and runs
		// the result as a command; empty output contributes just the status.
		out, status, err := fm.capture(n.Command)
		if err != nil || out == "" {
			return status, err
		}
		fields := strings.Fields(out)
		c := &ast.Command{Name: fields[0], Args: fields[1:]}
		c.SetPos(n.Pos())
		return fm.command(c)
	case *ast.Comment:
		return 0, nil
	default:
		fm.diagf(n.Pos(), "bug: unknown node type %T", n)
		return StatusShellBug, errAbort
	}
}

// list runs statements in order. The separator recorded after a statement
// decides whether the list continues: a failed && or a succeeded || ends the
// whole list early with that status.
func (fm *frame) list(l *ast.List) (int, error) {
	var last int
	for i, st := range l.Statements {
		status, err := fm.evalNode(st)
		fm.ev.Vars.SetStatus(status)
		if err != nil {
			return status, err
		}
		last = status
		if i < len(l.Operators) {
			op := l.Operators[i]
			if (op == "&&" && status != 0) || (op == "||" && status == 0) {
				return status, nil
			}
		}
	}
	return last, nil
}

func (fm *frame) pipeline(p *ast.Pipeline) (int, error) {
	n := len(p.Commands)
	if n == 1 {
		// Short path
		return fm.evalNode(p.Commands[0])
	}

	pipes := make([][2]*os.File, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			for j := 0; j < i; j++ {
				pipes[j][0].Close()
				pipes[j][1].Close()
			}
			fm.diagf(p.Pos(), "unable to create pipe for pipeline: %v", err)
			return StatusPipeError, err
		}
		pipes[i][0], pipes[i][1] = r, w
	}

	var wg sync.WaitGroup
	wg.Add(n)

	savedIn := fm.stdin
	defer func() { fm.stdin = savedIn }()

	var lastStatus int
	var lastErr error
	for i, cmd := range p.Commands {
		var stage *frame
		if i < n-1 {
			// Earlier stages are subshells. They run concurrently with the
			// rest of the pipeline, so they get their own copies of the
			// variable and function tables.
			stage = fm.subshellFrame()
			stage.stdout = pipes[i][1]
		} else {
			// The last stage runs on the parent frame so that read and cd
			// take effect and control flow propagates.
			stage = fm
		}
		if i > 0 {
			stage.stdin = pipes[i-1][0]
		}
		go func(i int, stage *frame, cmd ast.Node) {
			status, err := stage.evalNode(cmd)
			if i == n-1 {
				lastStatus, lastErr = status, err
			}
			// Close the pipe ends attached to this stage. Use the files
			// stored in pipes rather than the frame fields because the
			// latter may have been swapped by redirections.
			if i > 0 {
				pipes[i-1][0].Close()
			}
			if i < n-1 {
				pipes[i][1].Close()
			}
			wg.Done()
		}(i, stage, cmd)
	}
	wg.Wait()
	return lastStatus, lastErr
}

func (fm *frame) runIf(cond, cons, alt ast.Node) (int, error) {
	status, err := fm.evalNode(cond)
	if err != nil {
		return status, err
	}
	if status == 0 {
		return fm.evalNode(cons)
	}
	switch alt := alt.(type) {
	case *ast.ElifBranch:
		return fm.runIf(alt.Condition, alt.Consequence, alt.Alternative)
	case *ast.ElseBranch:
		return fm.evalNode(alt.Body)
	case nil:
		return 0, nil
	default:
		return fm.evalNode(alt)
	}
}

func (fm *frame) runWhile(w *ast.WhileStatement) (int, error) {
	lastStatus := 0
	for {
		status, err := fm.evalNode(w.Condition)
		if err != nil {
			return status, err
		}
		if status != 0 {
			break
		}
		status, breaking, err := fm.runLoopBody(w.Body)
		if breaking {
			return 0, nil
		}
		if err != nil {
			return status, err
		}
		lastStatus = status
	}
	return lastStatus, nil
}

// Runs a loop body and handles break/continue if it targets this loop:
// break sets the breaking return value, continue turns into (0, false, nil).
func (fm *frame) runLoopBody(body ast.Node) (status int, breaking bool, err error) {
	fm.loopDepth++
	status, err = fm.evalNode(body)
	fm.loopDepth--
	if errors.Is(err, errLoopAbort) && fm.loopAbort != nil && fm.loopAbort.dest == fm.loopDepth {
		abort := fm.loopAbort
		fm.loopAbort = nil
		if abort.next {
			return 0, false, nil
		}
		return 0, true, nil
	}
	return status, breaking, err
}

func (fm *frame) assign(a *ast.Assignment) (int, error) {
	value, status, err := fm.value(a.Value)
	if err != nil {
		return status, err
	}
	fm.ev.Vars.Set(a.Name, value)
	return status, nil
}

// value resolves the right-hand side of an assignment to a string. For a
// command substitution the returned status is that of the substituted
// command, which POSIX makes visible in $? after the assignment.
func (fm *frame) value(n ast.Node) (string, int, error) {
	switch n := n.(type) {
	case nil:
		return "", 0, nil
	case *ast.StringLiteral:
		return fm.expand(n.Text), 0, nil
	case *ast.CommandSubstitution:
		return fm.capture(n.Command)
	case *ast.ArithSubstitution:
		result, err := arith.Eval(n.Expr, fm.ev.Vars)
		if err != nil {
			fm.diagf(n.Pos(), "bad arithmetic expression: %v", err)
			return "", StatusExpansionError, errAbort
		}
		return strconv.FormatInt(result, 10), 0, nil
	default:
		fm.diagf(n.Pos(), "bug: unknown value type %T", n)
		return "", StatusShellBug, errAbort
	}
}

// capture runs a command substitution body against copies of the variable
// and function tables and collects its output, with trailing newlines
// removed.
func (fm *frame) capture(n ast.Node) (string, int, error) {
	var buf bytes.Buffer
	sub := fm.subshellFrame()
	sub.stdout = &buf
	status, err := sub.evalNode(n)
	if err != nil {
		if !controlFlow(err) {
			return "", status, err
		}
		// exit and friends inside a substitution only terminate the
		// substitution itself.
	}
	return strings.TrimRight(buf.String(), "\n"), status, nil
}

// envCommand applies NAME=value overrides, runs the command, and restores the
// previous values (or unset state) in reverse order.
func (fm *frame) envCommand(ec *ast.EnvCommand) (int, error) {
	vars := fm.ev.Vars
	type undo struct {
		saved    env.Saved
		exported bool
	}
	var undos []undo
	defer func() {
		for i := len(undos) - 1; i >= 0; i-- {
			vars.Restore(undos[i].saved)
			if !undos[i].exported {
				vars.Unexport(undos[i].saved.Name)
			}
		}
	}()
	for _, a := range ec.Assignments {
		value, status, err := fm.value(a.Value)
		if err != nil {
			return status, err
		}
		undos = append(undos, undo{vars.Save(a.Name), vars.Exported(a.Name)})
		vars.Set(a.Name, value)
		// Overrides are visible in the environment of the command.
		vars.Export(a.Name)
	}
	return fm.evalNode(ec.Command)
}

// bareExtGlob evaluates a pattern in statement position: status 0 when it
// matches at least one directory entry.
func (fm *frame) bareExtGlob(n *ast.ExtGlobPattern) (int, error) {
	if n.Operator == "" {
		return 1, nil
	}
	g := extGlob{op: n.Operator[0], patterns: n.Patterns, suffix: n.Suffix}
	matches, err := fm.globDir(g)
	if err != nil {
		fm.diagf(n.Pos(), "can't expand pattern: %v", err)
		return StatusExpansionError, nil
	}
	if len(matches) > 0 {
		return 0, nil
	}
	return 1, nil
}
