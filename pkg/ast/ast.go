// Package ast defines the syntax tree of the shell language. The node set is
// closed: every construct the parser can produce is one of the variants
// below. Ownership is strictly tree-shaped: each child belongs to exactly
// one parent, and nodes are never shared or mutated after parsing.
package ast

import "github.com/slatesh/slate/pkg/token"

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() token.Position
	node()
}

type base struct {
	pos token.Position
}

func (b *base) Pos() token.Position     { return b.pos }
func (b *base) SetPos(p token.Position) { b.pos = p }
func (*base) node()                     {}

// RedirKind classifies a redirection.
type RedirKind int

const (
	RedirInput  RedirKind = iota // < file
	RedirOutput                  // > file
	RedirAppend                  // >> file
)

func (k RedirKind) String() string {
	switch k {
	case RedirInput:
		return "input"
	case RedirOutput:
		return "output"
	case RedirAppend:
		return "append"
	}
	return "invalid"
}

// Redirect attaches one of a command's standard streams to a file.
type Redirect struct {
	Kind RedirKind
	File string
}

// Command is a simple command: a name, its arguments, and any redirections.
// Arguments hold the literal text from the source; variable references and
// extended globs inside them are expanded at evaluation time.
type Command struct {
	base
	Name      string
	Args      []string
	Redirects []Redirect
}

// Pipeline chains two or more commands via pipes. Parsing flattens nested
// pipelines, so Commands never contains another Pipeline.
type Pipeline struct {
	base
	Commands []Node
}

// List is a sequence of statements joined by separators. Operators[i] is the
// separator recorded between Statements[i] and Statements[i+1]: one of ";",
// "\n", "&&", "||", "&", or "" when two statements were adjacent without an
// explicit separator. len(Operators) == len(Statements)-1 always holds
// (0 when there are no or one statements).
type List struct {
	base
	Statements []Node
	Operators  []string
}

// StringLiteral is a fixed text value, e.g. the right-hand side of an
// assignment.
type StringLiteral struct {
	base
	Text string
}

// CommandSubstitution is $(...) or `...`; its output becomes a value.
type CommandSubstitution struct {
	base
	Command Node
}

// ArithSubstitution is $(( ... )). The expression text is kept verbatim and
// evaluated by the arith package.
type ArithSubstitution struct {
	base
	Expr string
}

// Assignment binds a name to a value. Value is a *StringLiteral,
// *CommandSubstitution or *ArithSubstitution.
type Assignment struct {
	base
	Name  string
	Value Node
}

// EnvCommand runs a command with temporary variable overrides, e.g.
// "FOO=1 BAR=2 cmd". The overrides are restored after the invocation.
type EnvCommand struct {
	base
	Assignments []*Assignment
	Command     Node
}

// Subshell is a parenthesized list. It is evaluated against the same variable
// table as its parent rather than an isolated copy, a known deviation from
// POSIX subshell semantics that is kept deliberately.
type Subshell struct {
	base
	List Node
}

// IfStatement is the head of an if/elif/else chain. Alternative is an
// *ElifBranch, an *ElseBranch, or nil.
type IfStatement struct {
	base
	Condition   Node
	Consequence Node
	Alternative Node
}

// ElifBranch continues an if chain; its Alternative follows the same rules as
// IfStatement's.
type ElifBranch struct {
	base
	Condition   Node
	Consequence Node
	Alternative Node
}

// ElseBranch terminates an if chain.
type ElseBranch struct {
	base
	Body Node
}

// WhileStatement loops while Condition evaluates to status zero.
type WhileStatement struct {
	base
	Condition Node
	Body      Node
}

// FunctionDef defines a shell function: "name() { body }".
type FunctionDef struct {
	base
	Name string
	Body Node
}

// ExtGlobPattern is an extended glob: one of ?(...), *(...), +(...), @(...)
// or !(...) with |-separated alternatives and an optional literal suffix.
type ExtGlobPattern struct {
	base
	Operator string
	Patterns []string
	Suffix   string
}

// Comment is a passthrough "#..." comment; the formatter needs it, the
// evaluator ignores it.
type Comment struct {
	base
	Text string
}
