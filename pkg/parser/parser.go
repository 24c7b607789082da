// Package parser implements a recursive-descent parser over the token stream,
// with exactly two tokens of lookahead. It produces the ast package's node
// set and never raises a hard error: unrecognized token sequences are skipped
// one token at a time, each leaving a positioned diagnostic, so malformed
// input yields a partially populated tree instead of aborting.
package parser

import (
	"fmt"
	"strings"

	"github.com/slatesh/slate/pkg/ast"
	"github.com/slatesh/slate/pkg/lexer"
	"github.com/slatesh/slate/pkg/token"
)

// Parser consumes a lexer's token stream. The lookahead window is cur and
// peek, refilled one token at a time.
type Parser struct {
	l    *lexer.Lexer
	cur  token.Token
	peek token.Token
	err  Error
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

// Parse tokenizes and parses input in one call. The returned list is always
// usable; err is non-nil when diagnostics were recorded and is always of type
// Error.
func Parse(input string) (*ast.List, error) {
	p := New(lexer.New(input))
	n := p.ParseScript()
	if len(p.err.Entries) > 0 {
		return n, p.err
	}
	return n, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) atAny(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.cur.Kind == k {
			return true
		}
	}
	return false
}

// adjacent reports whether the peek token directly follows cur in the source,
// with no intervening characters. Used to distinguish "a=b" from "a = b" and
// to glue argument segments together.
func (p *Parser) adjacent() bool {
	return p.peek.Pos.Offset == p.cur.End
}

func (p *Parser) errorf(pos token.Position, format string, args ...interface{}) {
	p.err.Entries = append(p.err.Entries, Entry{pos, fmt.Sprintf(format, args...)})
}

func (p *Parser) expect(k token.Kind) bool {
	if p.at(k) {
		p.next()
		return true
	}
	p.errorf(p.cur.Pos, "expected %v, found %v", k, p.cur.Kind)
	return false
}

// ParseScript parses until EOF and always returns a List, possibly empty.
func (p *Parser) ParseScript() *ast.List {
	return p.parseList()
}

func isSeparator(k token.Kind) bool {
	switch k {
	case token.Semicolon, token.Newline, token.And, token.Or, token.Amp:
		return true
	}
	return false
}

// parseList parses statements until EOF or one of the stop kinds. The stop
// token itself is left for the caller. Separators between entries are
// recorded verbatim into Operators; runs of extra separators fold into the
// first one, and two adjacent statements with no separator at all record "".
func (p *Parser) parseList(stops ...token.Kind) *ast.List {
	list := &ast.List{}
	list.SetPos(p.cur.Pos)
	pendingOp := ""
	haveOp := false
	for {
		for isSeparator(p.cur.Kind) {
			if len(list.Statements) > 0 && !haveOp {
				pendingOp = p.cur.Value
				haveOp = true
			}
			p.next()
		}
		if p.at(token.EOF) || p.atAny(stops...) {
			return list
		}
		st := p.parseStatement(stops)
		if st == nil {
			// Best-effort recovery: skip one token and retry.
			p.errorf(p.cur.Pos, "unexpected %v, skipping", p.cur.Kind)
			p.next()
			continue
		}
		if len(list.Statements) > 0 {
			list.Operators = append(list.Operators, pendingOp)
		}
		list.Statements = append(list.Statements, st)
		pendingOp, haveOp = "", false
	}
}

// parseStatement parses one top-level construct, or returns nil when the
// current token cannot start one.
func (p *Parser) parseStatement(stops []token.Kind) ast.Node {
	switch p.cur.Kind {
	case token.Comment:
		n := &ast.Comment{Text: p.cur.Value}
		n.SetPos(p.cur.Pos)
		p.next()
		return n
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.LBrace:
		p.next()
		inner := p.parseList(token.RBrace)
		p.expect(token.RBrace)
		return inner
	case token.LParen:
		return p.parsePipeline(stops)
	case token.DollarParen:
		return p.parseCommandSubstitution()
	case token.Backquote:
		return p.parseBackquoteSubstitution()
	case token.ExtGlob:
		return p.parseExtGlob()
	case token.Word:
		if p.peek.Kind == token.Assign && p.adjacent() && validName(p.cur.Value) {
			return p.parseAssignments(stops)
		}
		if p.peek.Kind == token.LParen && validName(p.cur.Value) {
			return p.parseFunctionDef()
		}
		return p.parsePipeline(stops)
	case token.String, token.RawString, token.Dollar, token.Assign:
		return p.parsePipeline(stops)
	default:
		return nil
	}
}

// Assignments and env-prefixed commands.

// parseAssignments handles one or more NAME=value prefixes. When a command
// follows, the assignments become per-invocation overrides (EnvCommand);
// otherwise they are ordinary assignments.
func (p *Parser) parseAssignments(stops []token.Kind) ast.Node {
	pos := p.cur.Pos
	var assigns []*ast.Assignment
	for p.at(token.Word) && p.peek.Kind == token.Assign && p.adjacent() && validName(p.cur.Value) {
		assigns = append(assigns, p.parseAssignment())
	}
	if p.atArgStart() || p.at(token.LParen) {
		cmd := p.parsePipeline(stops)
		if cmd != nil {
			n := &ast.EnvCommand{Assignments: assigns, Command: cmd}
			n.SetPos(pos)
			return n
		}
	}
	if len(assigns) == 1 {
		return assigns[0]
	}
	list := &ast.List{}
	list.SetPos(pos)
	for _, a := range assigns {
		if len(list.Statements) > 0 {
			list.Operators = append(list.Operators, "")
		}
		list.Statements = append(list.Statements, a)
	}
	return list
}

func (p *Parser) parseAssignment() *ast.Assignment {
	a := &ast.Assignment{Name: p.cur.Value}
	a.SetPos(p.cur.Pos)
	p.next() // name
	assignEnd := p.cur.End
	p.next() // '='

	lit := func(text string, pos token.Position) *ast.StringLiteral {
		s := &ast.StringLiteral{Text: text}
		s.SetPos(pos)
		return s
	}

	if p.cur.Pos.Offset != assignEnd {
		// "x=" followed by a separator or a detached word: empty value.
		a.Value = lit("", a.Pos())
		return a
	}
	switch p.cur.Kind {
	case token.DollarParen:
		a.Value = p.parseCommandSubstitution()
	case token.Backquote:
		a.Value = p.parseBackquoteSubstitution()
	case token.DollarDParen:
		n := &ast.ArithSubstitution{Expr: p.cur.Value}
		n.SetPos(p.cur.Pos)
		p.next()
		a.Value = n
	default:
		pos := p.cur.Pos
		if text, ok := p.argText(); ok {
			a.Value = lit(text, pos)
		} else {
			a.Value = lit("", a.Pos())
		}
	}
	return a
}

// Pipelines and commands.

// parsePipeline parses a command (or subshell) and, if a pipe follows, keeps
// consuming stages into a single flat Pipeline. Pipelines never nest.
func (p *Parser) parsePipeline(stops []token.Kind) ast.Node {
	first := p.parseCommandish(stops)
	if first == nil || !p.at(token.Pipe) {
		return first
	}
	pl := &ast.Pipeline{Commands: []ast.Node{first}}
	pl.SetPos(first.Pos())
	for p.at(token.Pipe) {
		p.next()
		for p.at(token.Newline) {
			p.next()
		}
		next := p.parseCommandish(stops)
		if next == nil {
			p.errorf(p.cur.Pos, "missing command after |")
			break
		}
		if sub, ok := next.(*ast.Pipeline); ok {
			pl.Commands = append(pl.Commands, sub.Commands...)
		} else {
			pl.Commands = append(pl.Commands, next)
		}
	}
	return pl
}

func (p *Parser) parseCommandish(stops []token.Kind) ast.Node {
	if p.at(token.LParen) {
		return p.parseSubshell()
	}
	return p.parseCommand()
}

// parseCommand greedily consumes argument segments and redirections until a
// token that cannot belong to the command.
func (p *Parser) parseCommand() ast.Node {
	cmd := &ast.Command{}
	cmd.SetPos(p.cur.Pos)
	name, ok := p.argText()
	if !ok {
		return nil
	}
	cmd.Name = name
	for {
		switch {
		case p.atArgStart():
			arg, _ := p.argText()
			cmd.Args = append(cmd.Args, arg)
		case p.at(token.Less):
			p.parseRedirect(cmd, ast.RedirInput)
		case p.at(token.Greater):
			p.parseRedirect(cmd, ast.RedirOutput)
		case p.at(token.Append):
			p.parseRedirect(cmd, ast.RedirAppend)
		default:
			return cmd
		}
	}
}

func (p *Parser) parseRedirect(cmd *ast.Command, kind ast.RedirKind) {
	pos := p.cur.Pos
	p.next()
	file, ok := p.argText()
	if !ok {
		p.errorf(pos, "missing redirection target")
		return
	}
	cmd.Redirects = append(cmd.Redirects, ast.Redirect{Kind: kind, File: file})
}

// atArgStart reports whether the current token can begin an argument segment.
func (p *Parser) atArgStart() bool {
	switch p.cur.Kind {
	case token.Word, token.String, token.RawString, token.Dollar,
		token.Assign, token.ExtGlob:
		return true
	}
	return p.cur.Kind.Keyword()
}

// expandEscaper protects characters from single-quoted segments against
// variable expansion. The evaluator's expander resolves \$ and \\ back to the
// literal characters after substitution.
var expandEscaper = strings.NewReplacer(`\`, `\\`, `$`, `\$`)

// argText assembles one argument from consecutive source-adjacent segments:
// words, quoted literals, '=', variable references and extglob groups.
// Variable references are kept as their literal "$name"/"${name}" text and
// expanded at evaluation time; single-quoted text is stored with its dollars
// and backslashes escaped so expansion leaves it alone.
func (p *Parser) argText() (string, bool) {
	if !p.atArgStart() {
		return "", false
	}
	var sb strings.Builder
	end := -1
	for {
		if end >= 0 && p.cur.Pos.Offset != end {
			break
		}
		t := p.cur
		switch {
		case t.Kind == token.Word || t.Kind == token.String || t.Kind.Keyword():
			sb.WriteString(t.Value)
			end = t.End
			p.next()
		case t.Kind == token.RawString:
			sb.WriteString(expandEscaper.Replace(t.Value))
			end = t.End
			p.next()
		case t.Kind == token.Assign:
			sb.WriteByte('=')
			end = t.End
			p.next()
		case t.Kind == token.Dollar:
			end = p.varRefText(&sb)
		case t.Kind == token.ExtGlob:
			end = p.extGlobText(&sb)
		default:
			return sb.String(), end >= 0
		}
	}
	return sb.String(), true
}

// varRefText writes the literal text of a "$name" or "${name}" reference and
// returns the source offset just past it.
func (p *Parser) varRefText(sb *strings.Builder) int {
	end := p.cur.End
	p.next() // '$'
	if p.at(token.LBrace) && p.cur.Pos.Offset == end {
		end = p.cur.End
		p.next() // '{'
		sb.WriteString("${")
		if p.at(token.Word) && p.cur.Pos.Offset == end {
			sb.WriteString(p.cur.Value)
			end = p.cur.End
			p.next()
		}
		if p.at(token.RBrace) && p.cur.Pos.Offset == end {
			end = p.cur.End
			p.next()
		} else {
			p.errorf(p.cur.Pos, "missing } in variable reference")
		}
		sb.WriteByte('}')
		return end
	}
	if p.at(token.Word) && p.cur.Pos.Offset == end {
		sb.WriteByte('$')
		sb.WriteString(p.cur.Value)
		end = p.cur.End
		p.next()
		return end
	}
	// A lone dollar is literal text.
	sb.WriteByte('$')
	return end
}

// extGlobText writes the compact source form of an extglob group, e.g.
// "@(a|b)", and returns the offset just past the closing paren. The evaluator
// re-parses this form when expanding arguments.
func (p *Parser) extGlobText(sb *strings.Builder) int {
	op := p.cur.Value
	end := p.cur.End
	p.next()
	sb.WriteString(op)
	sb.WriteByte('(')
	for !p.at(token.RParen) && !p.at(token.EOF) && !p.at(token.Newline) {
		if p.at(token.Pipe) {
			sb.WriteByte('|')
		} else {
			sb.WriteString(p.cur.Value)
		}
		end = p.cur.End
		p.next()
	}
	if p.at(token.RParen) {
		end = p.cur.End
		p.next()
	} else {
		p.errorf(p.cur.Pos, "missing ) in extended glob")
	}
	sb.WriteByte(')')
	return end
}

// parseExtGlob parses a statement-level extended glob into its structured
// node form.
func (p *Parser) parseExtGlob() ast.Node {
	n := &ast.ExtGlobPattern{Operator: p.cur.Value}
	n.SetPos(p.cur.Pos)
	end := p.cur.End
	p.next()
	var pat strings.Builder
	for !p.at(token.RParen) && !p.at(token.EOF) && !p.at(token.Newline) {
		if p.at(token.Pipe) {
			n.Patterns = append(n.Patterns, pat.String())
			pat.Reset()
		} else {
			pat.WriteString(p.cur.Value)
		}
		end = p.cur.End
		p.next()
	}
	n.Patterns = append(n.Patterns, pat.String())
	if p.at(token.RParen) {
		end = p.cur.End
		p.next()
	} else {
		p.errorf(p.cur.Pos, "missing ) in extended glob")
	}
	if p.at(token.Word) && p.cur.Pos.Offset == end {
		n.Suffix = p.cur.Value
		p.next()
	}
	return n
}

// Substitutions.

// parseCommandSubstitution recursively sub-parses the statements inside
// "$( ... )" up to the balancing close paren. Nested substitutions recurse
// naturally; each call frame tracks a single close-paren target.
func (p *Parser) parseCommandSubstitution() ast.Node {
	n := &ast.CommandSubstitution{}
	n.SetPos(p.cur.Pos)
	p.next() // $(
	n.Command = p.parseList(token.RParen)
	p.expect(token.RParen)
	return n
}

func (p *Parser) parseBackquoteSubstitution() ast.Node {
	n := &ast.CommandSubstitution{}
	n.SetPos(p.cur.Pos)
	p.next() // `
	n.Command = p.parseList(token.Backquote)
	p.expect(token.Backquote)
	return n
}

// Control flow.

func (p *Parser) parseIf() ast.Node {
	n := &ast.IfStatement{}
	n.SetPos(p.cur.Pos)
	p.next() // if
	n.Condition = p.parseList(token.Then)
	p.expect(token.Then)
	n.Consequence = p.parseList(token.Elif, token.Else, token.Fi)
	n.Alternative = p.parseIfTail()
	return n
}

// parseIfTail consumes whichever of elif/else/fi terminated the consequence
// and returns the alternative branch, if any.
func (p *Parser) parseIfTail() ast.Node {
	switch p.cur.Kind {
	case token.Elif:
		b := &ast.ElifBranch{}
		b.SetPos(p.cur.Pos)
		p.next()
		b.Condition = p.parseList(token.Then)
		p.expect(token.Then)
		b.Consequence = p.parseList(token.Elif, token.Else, token.Fi)
		b.Alternative = p.parseIfTail()
		return b
	case token.Else:
		b := &ast.ElseBranch{}
		b.SetPos(p.cur.Pos)
		p.next()
		b.Body = p.parseList(token.Fi)
		p.expect(token.Fi)
		return b
	case token.Fi:
		p.next()
		return nil
	default:
		p.errorf(p.cur.Pos, "missing fi")
		return nil
	}
}

func (p *Parser) parseWhile() ast.Node {
	n := &ast.WhileStatement{}
	n.SetPos(p.cur.Pos)
	p.next() // while
	n.Condition = p.parseList(token.Do)
	p.expect(token.Do)
	n.Body = p.parseList(token.Done)
	p.expect(token.Done)
	return n
}

func (p *Parser) parseSubshell() ast.Node {
	n := &ast.Subshell{}
	n.SetPos(p.cur.Pos)
	p.next() // (
	n.List = p.parseList(token.RParen)
	p.expect(token.RParen)
	return n
}

func (p *Parser) parseFunctionDef() ast.Node {
	n := &ast.FunctionDef{Name: p.cur.Value}
	n.SetPos(p.cur.Pos)
	p.next() // name
	p.expect(token.LParen)
	p.expect(token.RParen)
	for p.at(token.Newline) {
		p.next()
	}
	body := p.parseStatement(nil)
	if body == nil {
		p.errorf(p.cur.Pos, "missing function body")
		body = &ast.List{}
	}
	n.Body = body
	return n
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
