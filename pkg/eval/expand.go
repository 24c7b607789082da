package eval

import "strings"

// expand performs variable expansion on one piece of word text: $name,
// ${name}, and the special parameters ?, #, @ and the positional digits.
// The sequences \$ and \\ resolve to a literal dollar and backslash; the
// lexer and parser store quoted text in that form so it survives expansion
// untouched. References to unset variables expand to the empty string;
// everything else passes through verbatim. The scan is a single
// left-to-right pass, so the expanded output is never rescanned.
func (fm *frame) expand(s string) string {
	if !strings.ContainsAny(s, "$\\") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '\\' {
			if i+1 < len(s) && (s[i+1] == '$' || s[i+1] == '\\') {
				sb.WriteByte(s[i+1])
				i += 2
			} else {
				sb.WriteByte('\\')
				i++
			}
			continue
		}
		if s[i] != '$' || i == len(s)-1 {
			sb.WriteByte(s[i])
			i++
			continue
		}
		j := i + 1
		switch c := s[j]; {
		case c == '{':
			rel := strings.IndexByte(s[j:], '}')
			if rel < 0 {
				// Unterminated ${ is literal text.
				sb.WriteString(s[i:])
				return sb.String()
			}
			sb.WriteString(fm.ev.Vars.Get(s[j+1 : j+rel]))
			i = j + rel + 1
		case c == '?' || c == '#' || c == '@' || '0' <= c && c <= '9':
			// $10 is $1 followed by a literal 0, as in POSIX.
			sb.WriteString(fm.ev.Vars.Get(string(c)))
			i = j + 1
		case isNameByte(c):
			k := j
			for k < len(s) && isNameByte(s[k]) {
				k++
			}
			sb.WriteString(fm.ev.Vars.Get(s[j:k]))
			i = k
		default:
			// A lone dollar is literal.
			sb.WriteByte('$')
			i = j
		}
	}
	return sb.String()
}

func isNameByte(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
