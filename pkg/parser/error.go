package parser

import (
	"fmt"
	"strings"

	"github.com/slatesh/slate/pkg/token"
)

// Error collects the diagnostics recorded while parsing. Parsing never stops
// at the first problem: malformed input degrades to a partial tree and every
// skipped token leaves an entry here.
type Error struct {
	Entries []Entry
}

// Entry is a single positioned diagnostic.
type Entry struct {
	Pos     token.Position
	Message string
}

func (err Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v parse errors: ", len(err.Entries))
	for i, e := range err.Entries {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%v: %v", e.Pos, e.Message)
	}
	return b.String()
}
