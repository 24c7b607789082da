package eval

import (
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// extGlob is the evaluation-time form of an extended glob: an operator, the
// literal text around the group, and the |-separated alternatives inside it.
type extGlob struct {
	op       byte
	prefix   string
	patterns []string
	suffix   string
}

func isExtGlobOp(c byte) bool {
	switch c {
	case '?', '*', '+', '@', '!':
		return true
	}
	return false
}

// parseExtGlobArg recognizes the compact source form the parser stores for
// arguments, e.g. "pre@(a|b).txt", and splits it into its parts. The second
// return value is false when the text carries no extended glob group.
func parseExtGlobArg(s string) (extGlob, bool) {
	for i := 0; i+1 < len(s); i++ {
		if !isExtGlobOp(s[i]) || s[i+1] != '(' {
			continue
		}
		depth := 0
		for j := i + 1; j < len(s); j++ {
			switch s[j] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return extGlob{
						op:       s[i],
						prefix:   s[:i],
						patterns: strings.Split(s[i+2:j], "|"),
						suffix:   s[j+1:],
					}, true
				}
			}
		}
		return extGlob{}, false
	}
	return extGlob{}, false
}

// matches tests one directory entry. The literal prefix and suffix are
// stripped first; the remaining stem is tried against every alternative, and
// the operator decides how many must match: at least one for ? and +,
// exactly one for @, none for !, while * accepts any stem.
func (g extGlob) matches(name string) bool {
	stem, ok := strings.CutPrefix(name, g.prefix)
	if !ok {
		return false
	}
	stem, ok = strings.CutSuffix(stem, g.suffix)
	if !ok {
		return false
	}
	n := 0
	for _, pat := range g.patterns {
		if matchAlternative(pat, stem) {
			n++
		}
	}
	switch g.op {
	case '?', '+':
		return n >= 1
	case '@':
		return n == 1
	case '!':
		return n == 0
	case '*':
		return true
	}
	return false
}

// matchAlternative interprets one alternative as a plain glob, with * and ?
// as the only metacharacters, by translating it to an anchored regexp.
func matchAlternative(pat, s string) bool {
	var sb strings.Builder
	sb.WriteString("^(?s)")
	for _, r := range pat {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// globDir expands a pattern against the working directory and returns the
// matching entry names in sorted order. Dotfiles are skipped unless the
// pattern's literal prefix asks for them.
func (fm *frame) globDir(g extGlob) ([]string, error) {
	dir := fm.ev.Dir
	if dir == "" {
		dir = "."
	}
	infos, err := afero.ReadDir(fm.ev.Fs, dir)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(g.prefix, ".") {
			continue
		}
		if g.matches(name) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches, nil
}
