package eval

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var builtins = map[string]func(*frame, []string) int{
	"cd":    cd,
	"echo":  echo,
	"false": falseCmd,
	"pwd":   pwd,
	"read":  read,
	"true":  trueCmd,
}

func init() {
	// type inspects both builtin tables, so it can't appear in the literal
	// above without an initialization cycle.
	builtins["type"] = typeCmd
}

func cd(fm *frame, args []string) int {
	var target string
	switch len(args) {
	case 0:
		target = fm.ev.Vars.Get("HOME")
		if target == "" {
			fmt.Fprintln(fm.stderr, "cd: HOME not set")
			return 1
		}
	case 1:
		target = args[0]
	default:
		fm.badCommandLine("cd: too many arguments")
		return StatusBadCommandLine
	}
	dir := fm.ev.resolve(target)
	ok, err := afero.DirExists(fm.ev.Fs, dir)
	if err != nil || !ok {
		fmt.Fprintf(fm.stderr, "cd: %v: no such directory\n", target)
		return 1
	}
	fm.ev.Dir = dir
	fm.ev.Vars.Set("PWD", dir)
	return 0
}

func echo(fm *frame, args []string) int {
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}
	fmt.Fprint(fm.stdout, strings.Join(args, " "))
	if newline {
		fmt.Fprintln(fm.stdout)
	}
	return 0
}

func falseCmd(*frame, []string) int { return 1 }

func pwd(fm *frame, args []string) int {
	dir := fm.ev.Dir
	if !filepath.IsAbs(dir) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	fmt.Fprintln(fm.stdout, dir)
	return 0
}

// read reads one line and assigns it to the named variables, REPLY when none
// are given. The last name receives all the remaining fields.
func read(fm *frame, args []string) int {
	_, names, ok := fm.getopt("read", args, "r")
	if !ok {
		return StatusBadCommandLine
	}
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	line, eof := getLine(fm.stdin)
	if eof && line == "" {
		return 1
	}
	fields := strings.Fields(line)
	for i, name := range names {
		var value string
		switch {
		case i == len(names)-1 && i < len(fields):
			value = strings.Join(fields[i:], " ")
		case i < len(fields):
			value = fields[i]
		}
		fm.ev.Vars.Set(name, value)
	}
	return 0
}

// Reads a line byte by byte, so that no input beyond the newline is consumed
// from a shared stream.
func getLine(r io.Reader) (line string, eof bool) {
	var buf bytes.Buffer
	for {
		var b [1]byte
		n, err := r.Read(b[:])
		if n == 0 || err != nil {
			return buf.String(), true
		}
		if b[0] == '\n' {
			return buf.String(), false
		}
		buf.WriteByte(b[0])
	}
}

func trueCmd(*frame, []string) int { return 0 }

func typeCmd(fm *frame, args []string) int {
	status := 0
	for _, name := range args {
		switch {
		case specialBuiltins[name] != nil:
			fmt.Fprintf(fm.stdout, "%v is a special shell builtin\n", name)
		case fm.ev.functions[name] != nil:
			fmt.Fprintf(fm.stdout, "%v is a shell function\n", name)
		case builtins[name] != nil:
			fmt.Fprintf(fm.stdout, "%v is a shell builtin\n", name)
		default:
			if path, s := lookPath(name, fm.ev.Dir, fm.ev.Vars.Get("PATH")); s == 0 {
				fmt.Fprintf(fm.stdout, "%v is %v\n", name, path)
			} else {
				fmt.Fprintf(fm.stderr, "%v: not found\n", name)
				status = 1
			}
		}
	}
	return status
}
