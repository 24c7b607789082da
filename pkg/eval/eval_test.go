package eval

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatesh/slate/pkg/env"
)

// testEvaler builds a hermetic evaler: memory filesystem, empty stdin,
// buffered output streams.
func testEvaler(t *testing.T) (*Evaler, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	ev := New(env.New())
	ev.Fs = afero.NewMemMapFs()
	ev.Dir = "/"
	var stdout, stderr bytes.Buffer
	ev.Stdin = strings.NewReader("")
	ev.Stdout = &stdout
	ev.Stderr = &stderr
	return ev, &stdout, &stderr
}

func TestEval_Transcripts(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantStdout string
		wantStatus int
	}{
		{
			name:       "echo",
			code:       "echo hello world",
			wantStdout: "hello world\n",
		},
		{
			name:       "echo without newline",
			code:       "echo -n hi",
			wantStdout: "hi",
		},
		{
			name:       "assignment and expansion",
			code:       "x=5; echo $x and ${x}0",
			wantStdout: "5 and 50\n",
		},
		{
			name:       "unset variables expand empty",
			code:       `echo "[$nope]"`,
			wantStdout: "[]\n",
		},
		{
			name:       "single quotes suppress expansion",
			code:       "x=5\necho '$x'",
			wantStdout: "$x\n",
		},
		{
			name:       "double quotes expand",
			code:       "x=5\necho \"$x\" '$x'",
			wantStdout: "5 $x\n",
		},
		{
			name:       "escaped dollar in double quotes",
			code:       "x=5\necho \"\\$x\"",
			wantStdout: "$x\n",
		},
		{
			name:       "plain backslashes pass through double quotes",
			code:       `echo "a\nb"`,
			wantStdout: "a\\nb\n",
		},
		{
			name:       "single quotes keep backslashes",
			code:       `echo '\$y'`,
			wantStdout: "\\$y\n",
		},
		{
			name:       "escaped quotes glue with adjacent text",
			code:       `echo "a\"b"c`,
			wantStdout: "a\"bc\n",
		},
		{
			name:       "and stops the list on failure",
			code:       "false && echo yes",
			wantStatus: 1,
		},
		{
			name:       "and continues on success",
			code:       "true && echo yes",
			wantStdout: "yes\n",
		},
		{
			name:       "or runs on failure",
			code:       "false || echo no",
			wantStdout: "no\n",
		},
		{
			name:       "or stops the list on success",
			code:       "true || echo skipped; echo tail",
			wantStdout: "",
		},
		{
			name:       "status parameter",
			code:       "false; echo $?; echo $?",
			wantStdout: "1\n0\n",
		},
		{
			name:       "env override is scoped to the command",
			code:       `FOO=bar eval 'echo $FOO'; echo "[$FOO]"`,
			wantStdout: "bar\n[]\n",
		},
		{
			name:       "env override restores the previous value",
			code:       `FOO=old; FOO=new eval 'echo $FOO'; echo $FOO`,
			wantStdout: "new\nold\n",
		},
		{
			name:       "subshell shares the variable table",
			code:       "(x=7); echo $x",
			wantStdout: "7\n",
		},
		{
			name:       "if takes the first zero branch",
			code:       "if false; then echo a; elif true; then echo b; else echo c; fi",
			wantStdout: "b\n",
		},
		{
			name:       "if falls through to else",
			code:       "if false; then echo a; else echo c; fi",
			wantStdout: "c\n",
		},
		{
			name:       "if without alternative",
			code:       "if false; then echo a; fi; echo after",
			wantStdout: "after\n",
		},
		{
			name:       "while loop with break",
			code:       "n=0\nwhile true; do n=$((n + 1)); break; done\necho $n",
			wantStdout: "1\n",
		},
		{
			name:       "while with false condition never runs",
			code:       "while false; do echo never; done; echo ok",
			wantStdout: "ok\n",
		},
		{
			name:       "function definition and call",
			code:       `greet() { echo "hi $1"; }; greet world`,
			wantStdout: "hi world\n",
		},
		{
			name:       "function return status",
			code:       "f() { return 3; }; f; echo $?",
			wantStdout: "3\n",
		},
		{
			name:       "return stops the function body",
			code:       "f() { echo one; return 0; echo two; }; f",
			wantStdout: "one\n",
		},
		{
			name:       "command substitution",
			code:       "x=$(echo hi); echo $x!",
			wantStdout: "hi!\n",
		},
		{
			name:       "backquote substitution",
			code:       "x=`echo bye`; echo $x",
			wantStdout: "bye\n",
		},
		{
			name:       "command substitution clones the variable table",
			code:       "x=outer; y=$(x=inner; echo $x); echo $y $x",
			wantStdout: "inner outer\n",
		},
		{
			name:       "command substitution clones the function table",
			code:       "y=$(f() { :; }; echo hi)\necho $y\ntype f",
			wantStdout: "hi\n",
			wantStatus: 1,
		},
		{
			name:       "arithmetic substitution",
			code:       "x=$((2 * 3 + 1)); echo $x",
			wantStdout: "7\n",
		},
		{
			name:       "arithmetic reads variables",
			code:       "n=4; m=$((n * n)); echo $m",
			wantStdout: "16\n",
		},
		{
			name:       "pipeline into read",
			code:       "echo hi there | read first rest\necho $first:$rest",
			wantStdout: "hi:there\n",
		},
		{
			name:       "pipeline earlier stages are subshells",
			code:       "echo seed | read v | echo two\necho v=$v",
			wantStdout: "two\nv=\n",
		},
		{
			name:       "exit stops the script",
			code:       "echo a; exit 5; echo b",
			wantStdout: "a\n",
			wantStatus: 5,
		},
		{
			name:       "eval builtin",
			code:       "eval 'echo from eval'",
			wantStdout: "from eval\n",
		},
		{
			name:       "colon is a no-op",
			code:       ": ignored args; echo $?",
			wantStdout: "0\n",
		},
		{
			name:       "unset removes a variable",
			code:       `x=1; unset x; echo "[$x]"`,
			wantStdout: "[]\n",
		},
		{
			name:       "unset -f removes a function",
			code:       "f() { echo fn; }; unset -f f; f",
			wantStatus: StatusCommandNotFound,
		},
		{
			name:       "comments are ignored",
			code:       "echo hi # a note",
			wantStdout: "hi\n",
		},
		{
			name:       "break outside a loop is a no-op",
			code:       "break; echo ok",
			wantStdout: "ok\n",
		},
		{
			name:       "command not found",
			code:       "definitely-not-a-command-xyz",
			wantStatus: StatusCommandNotFound,
		},
		{
			name:       "positional parameters in functions",
			code:       `f() { echo $# args, first $1; }; f a b c`,
			wantStdout: "3 args, first a\n",
		},
		{
			name:       "type classifies names",
			code:       "f() { :; }; type echo export f",
			wantStdout: "echo is a shell builtin\nexport is a special shell builtin\nf is a shell function\n",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ev, stdout, _ := testEvaler(t)
			status, err := ev.Eval(test.code)
			require.NoError(t, err)
			assert.Equal(t, test.wantStatus, status, "status")
			assert.Equal(t, test.wantStdout, stdout.String(), "stdout")
		})
	}
}

func TestEval_Redirections(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	status, err := ev.Eval("echo first > f.txt\necho second >> f.txt\nread line < f.txt\necho got $line")
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "got first\n", stdout.String())

	content, err := afero.ReadFile(ev.Fs, "/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(content))
}

func TestEval_RedirectionTruncates(t *testing.T) {
	ev, _, _ := testEvaler(t)
	_, err := ev.Eval("echo aaaa > f.txt\necho b > f.txt")
	require.NoError(t, err)
	content, err := afero.ReadFile(ev.Fs, "/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "b\n", string(content))
}

func TestEval_RedirectionOpenFailureIsFatal(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	status, err := ev.Eval("read x < missing.txt; echo reached")
	assert.Error(t, err)
	assert.Equal(t, StatusRedirectionError, status)
	assert.Empty(t, stdout.String(), "the rest of the list must not run")
}

func TestEval_ExtGlob(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	for _, name := range []string{"a.txt", "b.txt", "c.log", ".hidden.txt"} {
		require.NoError(t, afero.WriteFile(ev.Fs, "/"+name, nil, 0o644))
	}

	status, err := ev.Eval("echo @(a|b).txt")
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "a.txt b.txt\n", stdout.String())

	stdout.Reset()
	status, err = ev.Eval("echo !(a).txt")
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "b.txt\n", stdout.String(), "dotfiles and non-matching suffixes stay out")

	// In statement position the pattern's status reports whether anything
	// matched.
	status, err = ev.Eval("@(a|b).txt")
	require.NoError(t, err)
	assert.Zero(t, status)
	status, err = ev.Eval("@(zzz).txt")
	require.NoError(t, err)
	assert.Equal(t, 1, status)

	// Unmatched patterns in arguments stay literal.
	stdout.Reset()
	_, err = ev.Eval("echo @(zzz).txt")
	require.NoError(t, err)
	assert.Equal(t, "@(zzz).txt\n", stdout.String())
}

func TestEval_ExtGlobOperators(t *testing.T) {
	ev, _, _ := testEvaler(t)
	for _, name := range []string{"ab", "cd"} {
		require.NoError(t, afero.WriteFile(ev.Fs, "/"+name, nil, 0o644))
	}

	tests := []struct {
		code       string
		wantStatus int
	}{
		{"@(ab)", 0},
		{"@(ab|a?)", 1}, // both alternatives match: not exactly one
		{"+(ab|zz)", 0},
		{"?(ab|zz)", 0},
		{"!(ab)", 0}, // cd matches no alternative
		{"!(*)", 1},  // every entry matches the wildcard
		{"*(zz)", 0}, // * accepts any stem
	}
	for _, test := range tests {
		status, err := ev.Eval(test.code)
		require.NoError(t, err, "code %q", test.code)
		assert.Equal(t, test.wantStatus, status, "code %q", test.code)
	}
}

func TestEval_CdAndPwd(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	require.NoError(t, ev.Fs.MkdirAll("/sub/dir", 0o755))

	status, err := ev.Eval("cd sub/dir; pwd; echo $PWD")
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "/sub/dir\n/sub/dir\n", stdout.String())
	assert.Equal(t, "/sub/dir", ev.Dir)

	stdout.Reset()
	status, _ = ev.Eval("cd /nope")
	assert.Equal(t, 1, status)
	assert.Equal(t, "/sub/dir", ev.Dir, "failed cd leaves the directory alone")
}

func TestEval_CdAffectsRedirections(t *testing.T) {
	ev, _, _ := testEvaler(t)
	require.NoError(t, ev.Fs.MkdirAll("/sub", 0o755))
	_, err := ev.Eval("cd sub; echo in-sub > here.txt")
	require.NoError(t, err)
	content, err := afero.ReadFile(ev.Fs, "/sub/here.txt")
	require.NoError(t, err)
	assert.Equal(t, "in-sub\n", string(content))
}

func TestEval_Source(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	require.NoError(t, afero.WriteFile(ev.Fs, "/lib.sh", []byte("y=42\nanswer() { echo $y; }\n"), 0o644))

	status, err := ev.Eval(". lib.sh\nanswer")
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "42\n", stdout.String())

	stdout.Reset()
	status, err = ev.Eval("source lib.sh; echo $y")
	require.NoError(t, err)
	assert.Equal(t, "42\n", stdout.String())
}

func TestEval_Export(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	status, err := ev.Eval("export FOO=1 BAR\nexport -p")
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "export FOO=1\n", stdout.String(), "unset names are exported but not listed")
	assert.Equal(t, []string{"FOO=1"}, ev.Vars.Environ())
}

func TestEval_EnvOverrideDoesNotLeakExport(t *testing.T) {
	ev, _, _ := testEvaler(t)
	_, err := ev.Eval("FOO=tmp true")
	require.NoError(t, err)
	assert.Empty(t, ev.Vars.Environ())
}

func TestEval_SyntaxErrorStillRunsRecoveredStatements(t *testing.T) {
	ev, stdout, stderr := testEvaler(t)
	status, err := ev.Eval("echo hi )")
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "hi\n", stdout.String(), "the statements that parsed still run")
	assert.Contains(t, stderr.String(), "unexpected")
}

func TestEval_NothingParsedIsSyntaxError(t *testing.T) {
	ev, stdout, stderr := testEvaler(t)
	status, err := ev.Eval(")")
	require.NoError(t, err)
	assert.Equal(t, StatusSyntaxError, status)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "unexpected")
}

func TestEval_NestedLoopBreakLevels(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	code := `
i=0
while true; do
  i=$((i + 1))
  while true; do
    break 2
  done
  echo inner-done
done
echo i=$i
`
	status, err := ev.Eval(code)
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "i=1\n", stdout.String())
}

func TestEval_Continue(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	code := `
n=0
hits=""
while true; do
  n=$((n + 1))
  stop=$((n == 3))
  if $(exit $stop); then hits="$hits$n"; continue; fi
  break
done
echo "$hits"
`
	// The substituted exit succeeds while n differs from 3, so the first two
	// iterations append and continue; the third breaks.
	status, err := ev.Eval(code)
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "12\n", stdout.String())
}

func TestEval_PipelineStagesMutateIndependently(t *testing.T) {
	// Both stages run assignment loops at the same time; each must work on
	// its own copy of the variable table, and only the last stage's copy is
	// the invoking shell's.
	ev, stdout, _ := testEvaler(t)
	code := `
(a=0
while true; do
  a=$((a + 1))
  stop=$((a == 30))
  if $(exit $stop); then continue; fi
  break
done) | (b=0
while true; do
  b=$((b + 1))
  stop=$((b == 30))
  if $(exit $stop); then continue; fi
  break
done
echo a=$a b=$b)
`
	status, err := ev.Eval(code)
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "a= b=30\n", stdout.String())
}

func TestEval_ReadSplitsFields(t *testing.T) {
	ev, stdout, _ := testEvaler(t)
	ev.Stdin = strings.NewReader("alpha beta gamma\nnext line\n")
	status, err := ev.Eval("read a b; echo $a/$b; read; echo $REPLY")
	require.NoError(t, err)
	assert.Zero(t, status)
	assert.Equal(t, "alpha/beta gamma\nnext line\n", stdout.String())
}

func TestEval_ReadAtEOF(t *testing.T) {
	ev, _, _ := testEvaler(t)
	status, err := ev.Eval("read x")
	require.NoError(t, err)
	assert.Equal(t, 1, status)
}
