package eval

import (
	"src.elv.sh/pkg/getopt"
)

type parsedOpts map[byte]string

func (p parsedOpts) isSet(b byte) bool {
	_, ok := p[b]
	return ok
}

// A wrapper around [getopt.Parse] for builtins that only need short options,
// which covers everything this shell implements. The API mimics the C
// function with the same name.
func (fm *frame) getopt(name string, args []string, optstring string) (parsedOpts, []string, bool) {
	var specs []*getopt.OptionSpec
	for i := 0; i < len(optstring); i++ {
		spec := &getopt.OptionSpec{Short: rune(optstring[i])}
		if i+1 < len(optstring) && optstring[i+1] == ':' {
			spec.Arity = getopt.RequiredArgument
			i++
		}
		specs = append(specs, spec)
	}
	// BSD style: options stop at the first operand. This follows the POSIX
	// utility syntax guidelines and the majority of shells; bash alone uses
	// the GNU style that lets options and operands mix.
	opts, rest, err := getopt.Parse(args, specs, getopt.BSD)
	if err != nil {
		fm.badCommandLine("%v: %v", name, err)
		return parsedOpts{}, nil, false
	}
	parsed := make(parsedOpts, len(opts))
	for _, opt := range opts {
		parsed[byte(opt.Spec.Short)] = opt.Argument
	}
	return parsed, rest, true
}
