// Package cmd wires the shell's packages into the slate command line: script
// and -c execution, the interactive REPL, and the debugging flags that dump
// tokens and the syntax tree.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"src.elv.sh/pkg/diag"

	"github.com/slatesh/slate/pkg/ast"
	"github.com/slatesh/slate/pkg/env"
	"github.com/slatesh/slate/pkg/eval"
	"github.com/slatesh/slate/pkg/lexer"
	"github.com/slatesh/slate/pkg/parser"
	"github.com/slatesh/slate/pkg/token"
)

var (
	commandString string
	configPath    string
	printAST      bool
	printTokens   bool
)

var rootCmd = &cobra.Command{
	Use:   "slate [script [args...]]",
	Short: "slate is a small POSIX-style shell",
	Long: `slate runs shell scripts and provides an interactive prompt.

With a script argument the script file is run; with -c the given string is
run; otherwise slate reads from stdin, interactively when stdin is a
terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "slate: %v\n", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&commandString, "command", "c", "", "run this command string and exit")
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.slate.yaml)")
	rootCmd.Flags().BoolVar(&printAST, "print-ast", false, "print the syntax tree before evaluating")
	rootCmd.Flags().BoolVar(&printTokens, "print-tokens", false, "print the token stream before evaluating")
}

func run(cmd *cobra.Command, args []string) error {
	vars := env.FromEnviron(os.Environ())
	ev := eval.New(vars)
	if wd, err := os.Getwd(); err == nil {
		ev.Dir = wd
		vars.Set("PWD", wd)
	}

	switch {
	case commandString != "":
		vars.SetArgs(append([]string{"slate"}, args...))
		os.Exit(evalSource(ev, commandString, "command"))
	case len(args) > 0:
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		vars.SetArgs(args)
		os.Exit(evalSource(ev, string(src), args[0]))
	case isatty.IsTerminal(os.Stdin.Fd()):
		vars.SetArgs([]string{"slate"})
		return repl(ev)
	default:
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		vars.SetArgs([]string{"slate"})
		os.Exit(evalSource(ev, string(src), "stdin"))
	}
	return nil
}

// evalSource runs one unit of source code and returns its status, printing
// parse diagnostics with their source context. Statements that survived
// parser recovery still run; only an input with nothing usable is refused.
func evalSource(ev *eval.Evaler, src, name string) int {
	if printTokens {
		dumpTokens(src)
	}
	n, perr := parser.Parse(src)
	if printAST {
		fmt.Println(ast.Pprint(n))
	}
	if perr != nil {
		showParseError(src, name, perr)
		if len(n.Statements) == 0 {
			return eval.StatusSyntaxError
		}
	}
	status, err := ev.EvalProgram(n)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("slate: %v", err))
	}
	return status
}

func showParseError(src, name string, err error) {
	var perr parser.Error
	if !errors.As(err, &perr) {
		fmt.Fprintln(os.Stderr, color.RedString("slate: %v", err))
		return
	}
	for _, e := range perr.Entries {
		fmt.Fprintln(os.Stderr, color.RedString("parse error: %v", e.Message))
		ctx := diag.NewContext(name, src, diag.PointRanging(e.Pos.Offset))
		fmt.Fprintf(os.Stderr, "  %s\n", ctx.ShowCompact(""))
	}
}

func dumpTokens(src string) {
	l := lexer.New(src)
	for {
		tok := l.NextToken()
		fmt.Printf("%v\t%v\t%q\n", tok.Pos, tok.Kind, tok.Value)
		if tok.Kind == token.EOF {
			return
		}
	}
}
