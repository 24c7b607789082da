// Package token defines the lexical vocabulary of the shell language: token
// kinds, their literal text, and source positions. The completion subsystem
// consumes this vocabulary to classify partial input lines.
package token

import "fmt"

// Kind identifies the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	Illegal

	// Words and literals.
	Word      // unquoted run of non-special characters
	String    // double-quoted literal; \" and \` resolved, \$ and \\ kept for expansion
	RawString // single-quoted literal, taken verbatim
	Comment   // "#" to end of line, "#" stripped

	// Operators.
	Assign       // =
	Pipe         // |
	Or           // ||
	Amp          // &
	And          // &&
	Semicolon    // ;
	Newline      // \n
	LParen       // (
	RParen       // )
	LBrace       // {
	RBrace       // }
	Less         // <
	Greater      // >
	Append       // >>
	Dollar       // $
	DollarParen  // $( opening a command substitution
	DollarDParen // $(( ... )) arithmetic substitution, value is the inner text
	Backquote    // `
	ExtGlob      // ?( *( +( @( !( with the operator character as value

	// Keywords.
	If
	Then
	Elif
	Else
	Fi
	While
	Do
	Done
)

var kindNames = map[Kind]string{
	EOF:          "EOF",
	Illegal:      "Illegal",
	Word:         "Word",
	String:       "String",
	RawString:    "RawString",
	Comment:      "Comment",
	Assign:       "'='",
	Pipe:         "'|'",
	Or:           "'||'",
	Amp:          "'&'",
	And:          "'&&'",
	Semicolon:    "';'",
	Newline:      "newline",
	LParen:       "'('",
	RParen:       "')'",
	LBrace:       "'{'",
	RBrace:       "'}'",
	Less:         "'<'",
	Greater:      "'>'",
	Append:       "'>>'",
	Dollar:       "'$'",
	DollarParen:  "'$('",
	DollarDParen: "'$(('",
	Backquote:    "'`'",
	ExtGlob:      "extglob",
	If:           "'if'",
	Then:         "'then'",
	Elif:         "'elif'",
	Else:         "'else'",
	Fi:           "'fi'",
	While:        "'while'",
	Do:           "'do'",
	Done:         "'done'",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keyword reports whether the kind is a reserved word.
func (k Kind) Keyword() bool {
	return k >= If && k <= Done
}

var keywords = map[string]Kind{
	"if":    If,
	"then":  Then,
	"elif":  Elif,
	"else":  Else,
	"fi":    Fi,
	"while": While,
	"do":    Do,
	"done":  Done,
}

// LookupWord classifies the text of a scanned word as either a keyword or a
// plain Word.
func LookupWord(text string) Kind {
	if k, ok := keywords[text]; ok {
		return k
	}
	return Word
}

// Position is a source location. Line and Col are 1-based; Offset is the byte
// offset into the input, used for adjacency checks and diagnostics.
type Position struct {
	Line   int
	Col    int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is a single lexical unit. Tokens are produced one at a time and never
// mutated after creation.
type Token struct {
	Kind  Kind
	Value string
	Pos   Position

	// End is the byte offset just past the token's source text, recorded by
	// the lexer. Quotes and resolved escapes make Value narrower than the
	// source, so End cannot be derived from len(Value); the parser's
	// adjacency checks depend on it being exact.
	End int
}
