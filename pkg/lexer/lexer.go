// Package lexer turns shell source text into a stream of tokens. The lexer is
// strictly single-pass: it walks a byte index over the input, classifies the
// character under the cursor, and never re-emits or backtracks. Lookahead
// beyond one token is the parser's business.
package lexer

import (
	"strings"

	"github.com/slatesh/slate/pkg/token"
)

// Characters that terminate a word. Note that '#' is absent: a '#' only
// starts a comment at the beginning of a token, never inside a word.
const wordStoppers = " \t\r\n=|&;()<>$\"'`{}"

// Lexer scans one input string. The zero value is not usable; call New.
type Lexer struct {
	input        string
	position     int  // index of ch
	readPosition int  // index after ch
	ch           byte // current character, 0 at EOF
	line         int
	col          int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekChar2() byte {
	if l.readPosition+1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition+1]
}

func (l *Lexer) pos() token.Position {
	return token.Position{Line: l.line, Col: l.col, Offset: l.position}
}

// NextToken scans and returns the next token, with its source end offset
// filled in. After the input is exhausted it returns EOF tokens forever.
func (l *Lexer) NextToken() token.Token {
	tok := l.scanToken()
	// The cursor sits on the first unconsumed byte, which is exactly the
	// offset past the token's source text, quotes and escapes included.
	tok.End = l.position
	return tok
}

func (l *Lexer) scanToken() token.Token {
	l.skipSpaces()

	pos := l.pos()
	switch l.ch {
	case 0:
		return token.Token{Kind: token.EOF, Pos: pos}
	case '\n':
		l.readChar()
		return token.Token{Kind: token.Newline, Value: "\n", Pos: pos}
	case '=':
		l.readChar()
		return token.Token{Kind: token.Assign, Value: "=", Pos: pos}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.Or, Value: "||", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.Pipe, Value: "|", Pos: pos}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.And, Value: "&&", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.Amp, Value: "&", Pos: pos}
	case ';':
		l.readChar()
		return token.Token{Kind: token.Semicolon, Value: ";", Pos: pos}
	case '(':
		l.readChar()
		return token.Token{Kind: token.LParen, Value: "(", Pos: pos}
	case ')':
		l.readChar()
		return token.Token{Kind: token.RParen, Value: ")", Pos: pos}
	case '{':
		l.readChar()
		return token.Token{Kind: token.LBrace, Value: "{", Pos: pos}
	case '}':
		l.readChar()
		return token.Token{Kind: token.RBrace, Value: "}", Pos: pos}
	case '<':
		l.readChar()
		return token.Token{Kind: token.Less, Value: "<", Pos: pos}
	case '>':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return token.Token{Kind: token.Append, Value: ">>", Pos: pos}
		}
		l.readChar()
		return token.Token{Kind: token.Greater, Value: ">", Pos: pos}
	case '$':
		return l.scanDollar(pos)
	case '"':
		return l.scanString(pos)
	case '\'':
		return l.scanRawString(pos)
	case '`':
		l.readChar()
		return token.Token{Kind: token.Backquote, Value: "`", Pos: pos}
	case '#':
		return l.scanComment(pos)
	}

	if isExtGlobOp(l.ch) && l.peekChar() == '(' {
		op := l.ch
		l.readChar()
		l.readChar()
		return token.Token{Kind: token.ExtGlob, Value: string(op), Pos: pos}
	}

	word := l.readWord()
	return token.Token{Kind: token.LookupWord(word), Value: word, Pos: pos}
}

// skipSpaces consumes inline whitespace and line continuations. Newlines are
// significant (they are statement separators) and are not skipped.
func (l *Lexer) skipSpaces() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\n':
			l.readChar()
			l.readChar()
		default:
			return
		}
	}
}

// scanDollar handles '$' and the merged forms "$(" and "$((". The special
// parameters $#, $? and $@ are merged into a single word so that '#' is not
// misread as a comment opener.
func (l *Lexer) scanDollar(pos token.Position) token.Token {
	if l.peekChar() == '(' && l.peekChar2() == '(' {
		l.readChar() // $
		l.readChar() // (
		l.readChar() // (
		return token.Token{Kind: token.DollarDParen, Value: l.scanArith(), Pos: pos}
	}
	if l.peekChar() == '(' {
		l.readChar()
		l.readChar()
		return token.Token{Kind: token.DollarParen, Value: "$(", Pos: pos}
	}
	if c := l.peekChar(); c == '#' || c == '?' || c == '@' {
		l.readChar()
		l.readChar()
		return token.Token{Kind: token.Word, Value: "$" + string(c), Pos: pos}
	}
	l.readChar()
	return token.Token{Kind: token.Dollar, Value: "$", Pos: pos}
}

// scanArith consumes the inside of $(( ... )) up to the balancing "))". The
// inner text is returned verbatim; the arithmetic evaluator has its own
// scanner.
func (l *Lexer) scanArith() string {
	var sb strings.Builder
	depth := 0
	for l.ch != 0 {
		if l.ch == '(' {
			depth++
		} else if l.ch == ')' {
			if depth == 0 && l.peekChar() == ')' {
				l.readChar()
				l.readChar()
				return sb.String()
			}
			if depth > 0 {
				depth--
			}
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
	// Unterminated arithmetic substitution; return what was collected. The
	// arithmetic evaluator will report the malformed expression.
	return sb.String()
}

// scanString scans a double-quoted literal. A backslash escapes the next
// character; \" and \` are resolved here, while \$ and \\ are kept escaped so
// that expansion can tell a quoted-literal dollar from an active one. Other
// backslashes stay verbatim (so "\n" stays two characters, as in real
// shells).
func (l *Lexer) scanString(pos token.Position) token.Token {
	l.readChar() // opening quote
	var sb strings.Builder
	for {
		switch l.ch {
		case 0:
			// Unterminated literal: degrade to what was collected.
			return token.Token{Kind: token.String, Value: sb.String(), Pos: pos}
		case '\\':
			switch next := l.peekChar(); next {
			case '"', '`':
				sb.WriteByte(next)
				l.readChar()
				l.readChar()
			case '$', '\\':
				sb.WriteByte('\\')
				sb.WriteByte(next)
				l.readChar()
				l.readChar()
			default:
				sb.WriteByte('\\')
				l.readChar()
			}
		case '"':
			l.readChar()
			return token.Token{Kind: token.String, Value: sb.String(), Pos: pos}
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// scanRawString scans a single-quoted literal. No escapes exist inside single
// quotes; the literal runs to the next quote.
func (l *Lexer) scanRawString(pos token.Position) token.Token {
	l.readChar() // opening quote
	start := l.position
	for l.ch != 0 && l.ch != '\'' {
		l.readChar()
	}
	value := l.input[start:l.position]
	if l.ch == '\'' {
		l.readChar()
	}
	return token.Token{Kind: token.RawString, Value: value, Pos: pos}
}

func (l *Lexer) scanComment(pos token.Position) token.Token {
	l.readChar() // '#'
	start := l.position
	for l.ch != 0 && l.ch != '\n' {
		l.readChar()
	}
	return token.Token{Kind: token.Comment, Value: l.input[start:l.position], Pos: pos}
}

func (l *Lexer) readWord() string {
	start := l.position
	for l.ch != 0 && !isWordStopper(l.ch) {
		if isExtGlobOp(l.ch) && l.peekChar() == '(' {
			// The word ends here; the next token is an extglob opener.
			break
		}
		l.readChar()
	}
	return l.input[start:l.position]
}

func isWordStopper(c byte) bool {
	return strings.IndexByte(wordStoppers, c) >= 0
}

func isExtGlobOp(c byte) bool {
	switch c {
	case '?', '*', '+', '@', '!':
		return true
	}
	return false
}
