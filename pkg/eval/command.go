package eval

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"github.com/slatesh/slate/pkg/ast"
	"github.com/slatesh/slate/pkg/token"
)

func (fm *frame) command(c *ast.Command) (int, error) {
	name := fm.expand(c.Name)

	args := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		if g, ok := parseExtGlobArg(arg); ok {
			matches, err := fm.globDir(g)
			if err == nil && len(matches) > 0 {
				args = append(args, matches...)
				continue
			}
			// An unmatched pattern stays in place as literal text.
			args = append(args, arg)
			continue
		}
		args = append(args, fm.expand(arg))
	}

	// Redirections apply for the duration of this command only.
	savedIn, savedOut := fm.stdin, fm.stdout
	defer func() { fm.stdin, fm.stdout = savedIn, savedOut }()
	for _, rd := range c.Redirects {
		status, cleanup, err := fm.redirect(c.Pos(), rd)
		if cleanup != nil {
			defer cleanup()
		}
		if err != nil {
			return status, err
		}
	}

	if name == "" {
		return 0, nil
	}

	// Special builtin > function > other builtin > external, the command
	// search order of 2.9.1 Simple Commands.
	if builtin, ok := specialBuiltins[name]; ok {
		return builtin(fm, args)
	}
	if body, ok := fm.ev.functions[name]; ok {
		return fm.callFunction(name, body, args)
	}
	if builtin, ok := builtins[name]; ok {
		return builtin(fm, args), nil
	}
	return fm.external(c.Pos(), name, args)
}

// redirect swaps one of the frame's streams for an opened file. Open failures
// are reported and returned as real errors; the whole evaluation stops, since
// continuing with the wrong streams attached is rarely what a script wants.
func (fm *frame) redirect(pos token.Position, rd ast.Redirect) (int, func() error, error) {
	path := fm.ev.resolve(fm.expand(rd.File))
	switch rd.Kind {
	case ast.RedirInput:
		f, err := fm.ev.Fs.Open(path)
		if err != nil {
			fm.diagf(pos, "can't open redirection source: %v", err)
			return StatusRedirectionError, nil, err
		}
		fm.stdin = f
		return 0, f.Close, nil
	case ast.RedirOutput, ast.RedirAppend:
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if rd.Kind == ast.RedirAppend {
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := fm.ev.Fs.OpenFile(path, flag, 0o644)
		if err != nil {
			fm.diagf(pos, "can't open redirection target: %v", err)
			return StatusRedirectionError, nil, err
		}
		fm.stdout = f
		return 0, f.Close, nil
	default:
		fm.diagf(pos, "bug: unknown redirection kind: %v", rd.Kind)
		return StatusShellBug, nil, errAbort
	}
}

// callFunction runs a function body with the positional parameters swapped
// for the call arguments; $0 becomes the function name. A return builtin in
// the body unwinds to here.
func (fm *frame) callFunction(name string, body ast.Node, args []string) (int, error) {
	vars := fm.ev.Vars
	oldArgs := vars.Args()
	vars.SetArgs(append([]string{name}, args...))
	status, err := fm.evalNode(body)
	vars.SetArgs(oldArgs)
	if errors.Is(err, errReturn) {
		err = nil
	}
	return status, err
}

func (fm *frame) external(pos token.Position, name string, args []string) (int, error) {
	path, status := lookPath(name, fm.ev.Dir, fm.ev.Vars.Get("PATH"))
	if status != 0 {
		if status == StatusCommandNotExecutable {
			fm.diagf(pos, "command not executable: %v", name)
		} else {
			fm.diagf(pos, "command not found: %v", name)
		}
		return status, nil
	}

	cmd := exec.Cmd{
		Path:   path,
		Args:   append([]string{name}, args...),
		Env:    fm.ev.Vars.Environ(),
		Dir:    fm.ev.Dir,
		Stdin:  fm.stdin,
		Stdout: fm.stdout,
		Stderr: fm.stderr,
	}
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return StatusSignalBase + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	fm.diagf(pos, "error running %v: %v", name, err)
	return StatusWaitError, nil
}
