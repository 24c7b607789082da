package lexer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/slatesh/slate/pkg/token"
)

// tok abbreviates a token without position, for table tests that only care
// about the kind/value stream.
func tok(k token.Kind, v string) token.Token { return token.Token{Kind: k, Value: v} }

func lexAll(input string) []token.Token {
	l := New(input)
	var toks []token.Token
	for {
		t := l.NextToken()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks
		}
	}
}

func TestNextToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []token.Token
	}{
		{
			name:  "words and pipeline",
			input: "echo hello | grep h > out.txt",
			want: []token.Token{
				tok(token.Word, "echo"),
				tok(token.Word, "hello"),
				tok(token.Pipe, "|"),
				tok(token.Word, "grep"),
				tok(token.Word, "h"),
				tok(token.Greater, ">"),
				tok(token.Word, "out.txt"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "assignment and variable",
			input: "x=1; y=$x",
			want: []token.Token{
				tok(token.Word, "x"),
				tok(token.Assign, "="),
				tok(token.Word, "1"),
				tok(token.Semicolon, ";"),
				tok(token.Word, "y"),
				tok(token.Assign, "="),
				tok(token.Dollar, "$"),
				tok(token.Word, "x"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "list operators",
			input: "a && b || c & d\n",
			want: []token.Token{
				tok(token.Word, "a"),
				tok(token.And, "&&"),
				tok(token.Word, "b"),
				tok(token.Or, "||"),
				tok(token.Word, "c"),
				tok(token.Amp, "&"),
				tok(token.Word, "d"),
				tok(token.Newline, "\n"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "quoted literals",
			input: `echo "a b" 'c d'`,
			want: []token.Token{
				tok(token.Word, "echo"),
				tok(token.String, "a b"),
				tok(token.RawString, "c d"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "double quote escapes",
			input: `echo "say \"hi\" \$x \n"`,
			want: []token.Token{
				tok(token.Word, "echo"),
				// \" resolves; \$ stays escaped for the expander; \n is two
				// verbatim characters.
				tok(token.String, `say "hi" \$x \n`),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "comment only at token start",
			input: "echo $# #trailing note",
			want: []token.Token{
				tok(token.Word, "echo"),
				tok(token.Word, "$#"),
				tok(token.Comment, "trailing note"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "hash inside word",
			input: "echo a#b",
			want: []token.Token{
				tok(token.Word, "echo"),
				tok(token.Word, "a#b"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "keywords",
			input: "if true; then echo y; fi",
			want: []token.Token{
				tok(token.If, "if"),
				tok(token.Word, "true"),
				tok(token.Semicolon, ";"),
				tok(token.Then, "then"),
				tok(token.Word, "echo"),
				tok(token.Word, "y"),
				tok(token.Semicolon, ";"),
				tok(token.Fi, "fi"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "while loop",
			input: "while false; do break; done",
			want: []token.Token{
				tok(token.While, "while"),
				tok(token.Word, "false"),
				tok(token.Semicolon, ";"),
				tok(token.Do, "do"),
				tok(token.Word, "break"),
				tok(token.Semicolon, ";"),
				tok(token.Done, "done"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "command substitution",
			input: "x=$(echo hi)",
			want: []token.Token{
				tok(token.Word, "x"),
				tok(token.Assign, "="),
				tok(token.DollarParen, "$("),
				tok(token.Word, "echo"),
				tok(token.Word, "hi"),
				tok(token.RParen, ")"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "backquote substitution",
			input: "x=`date`",
			want: []token.Token{
				tok(token.Word, "x"),
				tok(token.Assign, "="),
				tok(token.Backquote, "`"),
				tok(token.Word, "date"),
				tok(token.Backquote, "`"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "arithmetic substitution",
			input: "x=$((1 + (2 * 3)))",
			want: []token.Token{
				tok(token.Word, "x"),
				tok(token.Assign, "="),
				tok(token.DollarDParen, "1 + (2 * 3)"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "special parameters",
			input: "echo $? $@ ${HOME}",
			want: []token.Token{
				tok(token.Word, "echo"),
				tok(token.Word, "$?"),
				tok(token.Word, "$@"),
				tok(token.Dollar, "$"),
				tok(token.LBrace, "{"),
				tok(token.Word, "HOME"),
				tok(token.RBrace, "}"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "extended glob",
			input: "@(a|b).txt",
			want: []token.Token{
				tok(token.ExtGlob, "@"),
				tok(token.Word, "a"),
				tok(token.Pipe, "|"),
				tok(token.Word, "b"),
				tok(token.RParen, ")"),
				tok(token.Word, ".txt"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "extglob opener splits a word",
			input: "pre!(x)",
			want: []token.Token{
				tok(token.Word, "pre"),
				tok(token.ExtGlob, "!"),
				tok(token.Word, "x"),
				tok(token.RParen, ")"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "line continuation",
			input: "echo a \\\n b",
			want: []token.Token{
				tok(token.Word, "echo"),
				tok(token.Word, "a"),
				tok(token.Word, "b"),
				tok(token.EOF, ""),
			},
		},
		{
			name:  "unterminated string degrades",
			input: `echo "oops`,
			want: []token.Token{
				tok(token.Word, "echo"),
				tok(token.String, "oops"),
				tok(token.EOF, ""),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := lexAll(test.input)
			if diff := cmp.Diff(test.want, got, cmpopts.IgnoreFields(token.Token{}, "Pos", "End")); diff != "" {
				t.Errorf("token stream (-want+got):\n%v", diff)
			}
		})
	}
}

func TestNextToken_Positions(t *testing.T) {
	got := lexAll("echo hi\nx=1")
	want := []token.Token{
		{Kind: token.Word, Value: "echo", Pos: token.Position{Line: 1, Col: 1, Offset: 0}, End: 4},
		{Kind: token.Word, Value: "hi", Pos: token.Position{Line: 1, Col: 6, Offset: 5}, End: 7},
		{Kind: token.Newline, Value: "\n", Pos: token.Position{Line: 1, Col: 8, Offset: 7}, End: 8},
		{Kind: token.Word, Value: "x", Pos: token.Position{Line: 2, Col: 1, Offset: 8}, End: 9},
		{Kind: token.Assign, Value: "=", Pos: token.Position{Line: 2, Col: 2, Offset: 9}, End: 10},
		{Kind: token.Word, Value: "1", Pos: token.Position{Line: 2, Col: 3, Offset: 10}, End: 11},
		{Kind: token.EOF, Pos: token.Position{Line: 2, Col: 4, Offset: 11}, End: 11},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("token stream (-want+got):\n%v", diff)
	}
}

func TestTokenEnd_MatchesSourceWidth(t *testing.T) {
	// Adjacency in the parser depends on End lining up with the next token's
	// offset for every token shape, including quoted literals whose value is
	// narrower than their source because of resolved escapes.
	inputs := []string{
		`a="b c"$d$((1+2))@(e)f`,
		`x="p\"q\\r"s`,
		`'lit $a'b`,
	}
	for _, input := range inputs {
		l := New(input)
		prevEnd := 0
		for {
			tok := l.NextToken()
			if tok.Kind == token.EOF {
				break
			}
			if tok.Pos.Offset != prevEnd {
				t.Errorf("%q: token %v %q starts at %v, want %v",
					input, tok.Kind, tok.Value, tok.Pos.Offset, prevEnd)
			}
			prevEnd = tok.End
		}
		if prevEnd != len(input) {
			t.Errorf("%q: last token ends at %v, want %v", input, prevEnd, len(input))
		}
	}
}
