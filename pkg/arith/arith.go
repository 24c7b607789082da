// Package arith evaluates the integer expressions inside $(( ... )). It is a
// small recursive-descent parser over the raw expression text, resolving
// variable references through the shell's variable table.
package arith

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/slatesh/slate/pkg/env"
)

var whitespaceRegexp = regexp.MustCompile(`\s+`)

// Eval evaluates an arithmetic expression. Variables may be written with or
// without a leading $; unset variables evaluate to 0.
func Eval(s string, vars *env.Vars) (int64, error) {
	s = whitespaceRegexp.ReplaceAllLiteralString(s, "")
	p := parser{text: s, vars: vars}
	result, err := p.or()
	if err == nil && !p.eof() {
		err = p.errorf("trailing content: %v", p.rest())
	}
	return result, err
}

type parser struct {
	text string
	pos  int
	vars *env.Vars
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// or = and { "||" and }
func (p *parser) or() (int64, error) {
	acc, err := p.and()
	if err != nil {
		return acc, err
	}
	for p.consumePrefix("||") {
		t, err := p.and()
		if err != nil {
			return acc, err
		}
		acc = boolToInt(acc != 0 || t != 0)
	}
	return acc, nil
}

// and = cmp { "&&" cmp }
func (p *parser) and() (int64, error) {
	acc, err := p.cmp()
	if err != nil {
		return acc, err
	}
	for p.consumePrefix("&&") {
		t, err := p.cmp()
		if err != nil {
			return acc, err
		}
		acc = boolToInt(acc != 0 && t != 0)
	}
	return acc, nil
}

// cmp = sum [ ("==" | "!=" | "<=" | ">=" | "<" | ">") sum ]
func (p *parser) cmp() (int64, error) {
	left, err := p.sum()
	if err != nil {
		return left, err
	}
	op := p.consumePrefixIn("==", "!=", "<=", ">=", "<", ">")
	if op == "" {
		return left, nil
	}
	right, err := p.sum()
	if err != nil {
		return left, err
	}
	switch op {
	case "==":
		return boolToInt(left == right), nil
	case "!=":
		return boolToInt(left != right), nil
	case "<=":
		return boolToInt(left <= right), nil
	case ">=":
		return boolToInt(left >= right), nil
	case "<":
		return boolToInt(left < right), nil
	default:
		return boolToInt(left > right), nil
	}
}

// sum = term { ("+" | "-") term }
func (p *parser) sum() (int64, error) {
	acc := int64(0)
	op := "+"
	for !p.eof() && op != "" {
		t, err := p.term()
		if err != nil {
			return acc, err
		}
		switch op {
		case "+":
			acc += t
		case "-":
			acc -= t
		}
		op = p.hasPrefixIn("+", "-")
		if op != "" {
			p.consume(len(op))
		}
	}
	return acc, nil
}

// term = factor { ("*" | "/" | "%") factor }
func (p *parser) term() (int64, error) {
	acc := int64(1)
	op := "*"
	for !p.eof() && op != "" {
		f, err := p.factor()
		if err != nil {
			return acc, err
		}
		switch op {
		case "*":
			acc *= f
		case "/":
			if f == 0 {
				return acc, p.errorf("division by zero")
			}
			acc /= f
		case "%":
			if f == 0 {
				return acc, p.errorf("division by zero")
			}
			acc %= f
		}
		op = p.consumePrefixIn("*", "/", "%")
	}
	return acc, nil
}

const (
	octalDigits       = "01234567"
	decimalDigits     = octalDigits + "89"
	hexadecimalDigits = decimalDigits + "abcdefABCDEF"
)

// Note: _ counts as a letter; digits are tried before names.
const nameChars = "_0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func (p *parser) factor() (int64, error) {
	switch {
	case p.consumePrefix("("):
		v, err := p.or()
		if err == nil && !p.consumePrefix(")") {
			err = p.errorf("unclosed (")
		}
		return v, err
	case p.consumePrefixIn("0x", "0X") != "":
		s := p.consumeWhileIn(hexadecimalDigits)
		if s == "" {
			return 0, p.errorf("empty hexadecimal literal")
		}
		return strconv.ParseInt(s, 16, 64)
	case p.consumePrefix("0"):
		s := p.consumeWhileIn(octalDigits)
		if s == "" {
			// Just 0.
			return 0, nil
		}
		return strconv.ParseInt(s, 8, 64)
	case p.consumePrefix("-"):
		f, err := p.factor()
		return -f, err
	case p.consumePrefix("~"):
		f, err := p.factor()
		return ^f, err
	case p.consumePrefix("!"):
		f, err := p.factor()
		return boolToInt(f == 0), err
	case p.consumePrefix("$"):
		name := p.consumeWhileIn(nameChars)
		if name == "" {
			return 0, p.errorf("missing variable name after $")
		}
		return p.lookup(name)
	}
	if s := p.consumeWhileIn(decimalDigits); s != "" {
		return strconv.ParseInt(s, 10, 64)
	}
	if name := p.consumeWhileIn(nameChars); name != "" {
		return p.lookup(name)
	}
	return 0, p.errorf("can't parse a factor")
}

func (p *parser) lookup(name string) (int64, error) {
	value := p.vars.Get(name)
	if value == "" {
		// Unset and empty variables count as 0, like dash and bash.
		return 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 0, 64)
	if err != nil {
		return 0, p.errorf("$%s not a number: %q", name, value)
	}
	return n, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Scanning helpers.

func (p *parser) rest() string { return p.text[p.pos:] }
func (p *parser) eof() bool    { return p.rest() == "" }

func (p *parser) consume(i int) string {
	consumed := p.rest()[:i]
	p.pos += i
	return consumed
}

func (p *parser) consumeWhileIn(set string) string {
	rest := p.rest()
	i := 0
	for i < len(rest) && strings.IndexByte(set, rest[i]) >= 0 {
		i++
	}
	return p.consume(i)
}

func (p *parser) hasPrefixIn(prefixes ...string) string {
	for _, prefix := range prefixes {
		if strings.HasPrefix(p.rest(), prefix) {
			return prefix
		}
	}
	return ""
}

func (p *parser) consumePrefix(prefix string) bool {
	return p.consumePrefixIn(prefix) == prefix
}

func (p *parser) consumePrefixIn(prefixes ...string) string {
	prefix := p.hasPrefixIn(prefixes...)
	p.consume(len(prefix))
	return prefix
}
