// Package env holds the shell's variable table: ordinary variables, the
// exported set, positional arguments and the special parameters ?, #, @ and
// 0..N. The evaluator reads and writes the table but does not own its scoping
// rules; per-invocation overrides are expressed as explicit save/restore
// records.
package env

import (
	"sort"
	"strconv"
	"strings"
)

// Vars is one variable table. It is owned by a single evaluator and must not
// be shared across evaluator instances except via Clone.
type Vars struct {
	values   map[string]string
	exported map[string]struct{}
	args     []string // $0 and the positional parameters
	status   int      // $?
}

// New returns an empty table.
func New() *Vars {
	return &Vars{
		values:   make(map[string]string),
		exported: make(map[string]struct{}),
	}
}

// FromEnviron seeds a table from "name=value" entries as produced by
// os.Environ. Every seeded variable starts out exported.
func FromEnviron(entries []string) *Vars {
	v := New()
	for _, entry := range entries {
		// Treat "foo" like "foo=" if such entries ever occur.
		name, value, _ := strings.Cut(entry, "=")
		v.values[name] = value
		v.exported[name] = struct{}{}
	}
	return v
}

// Get resolves a name, including the special parameters. Unset names resolve
// to the empty string.
func (v *Vars) Get(name string) string {
	value, _ := v.Lookup(name)
	return value
}

// Lookup resolves a name and reports whether it was set.
func (v *Vars) Lookup(name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(v.status), true
	case "#":
		n := len(v.args) - 1
		if n < 0 {
			n = 0
		}
		return strconv.Itoa(n), true
	case "@":
		if len(v.args) > 1 {
			return strings.Join(v.args[1:], " "), true
		}
		return "", true
	}
	if i, err := strconv.Atoi(name); err == nil && i >= 0 {
		if i < len(v.args) {
			return v.args[i], true
		}
		return "", false
	}
	value, ok := v.values[name]
	return value, ok
}

func (v *Vars) Set(name, value string) {
	v.values[name] = value
}

func (v *Vars) Unset(name string) {
	delete(v.values, name)
	delete(v.exported, name)
}

func (v *Vars) Export(name string) {
	v.exported[name] = struct{}{}
}

func (v *Vars) Unexport(name string) {
	delete(v.exported, name)
}

func (v *Vars) Exported(name string) bool {
	_, ok := v.exported[name]
	return ok
}

// ExportedNames returns the sorted names that are both set and exported.
func (v *Vars) ExportedNames() []string {
	names := make([]string, 0, len(v.exported))
	for name := range v.exported {
		if _, ok := v.values[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Environ serializes the variables that are both set and exported, for
// injection into a child process environment.
func (v *Vars) Environ() []string {
	entries := make([]string, 0, len(v.exported))
	for _, name := range v.ExportedNames() {
		entries = append(entries, name+"="+v.values[name])
	}
	return entries
}

// Clone copies the table. Used when a command substitution spawns a nested
// evaluator.
func (v *Vars) Clone() *Vars {
	c := &Vars{
		values:   make(map[string]string, len(v.values)),
		exported: make(map[string]struct{}, len(v.exported)),
		args:     append([]string(nil), v.args...),
		status:   v.status,
	}
	for k, val := range v.values {
		c.values[k] = val
	}
	for k := range v.exported {
		c.exported[k] = struct{}{}
	}
	return c
}

// Positional arguments; args[0] is the script or shell name.

func (v *Vars) Args() []string        { return v.args }
func (v *Vars) SetArgs(args []string) { v.args = args }

// Last pipeline status, exposed as $?.

func (v *Vars) Status() int          { return v.status }
func (v *Vars) SetStatus(status int) { v.status = status }

// Saved is an undo record for one variable: the value it had, or a tombstone
// when it was unset. Records are applied in reverse order of saving.
type Saved struct {
	Name    string
	Value   string
	Existed bool
}

// Save captures the current state of a name before an override.
func (v *Vars) Save(name string) Saved {
	value, ok := v.values[name]
	return Saved{Name: name, Value: value, Existed: ok}
}

// Restore undoes an override: the prior value comes back, or the variable is
// removed if it did not exist.
func (v *Vars) Restore(s Saved) {
	if s.Existed {
		v.values[s.Name] = s.Value
	} else {
		delete(v.values, s.Name)
	}
}
