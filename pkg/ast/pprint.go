package ast

import (
	"bytes"
	"fmt"
	"reflect"
)

// Pprint renders a node as an indented tree, one field per line. It is the
// sole input of the script formatter and backs the --print-ast flag.
func Pprint(n Node) string {
	var b bytes.Buffer
	pprint(&b, "", toTree(n))
	return b.String()
}

// An intermediate representation for nodes, keeping the information relevant
// for display.
type tree struct {
	name   string
	fields []*treeField
}

type treeField struct {
	name   string
	scalar interface{}
	node   *tree
	nodes  []*tree
}

var nodeTyp = reflect.TypeOf((*Node)(nil)).Elem()

func toTree(n Node) *tree {
	if n == nil || reflect.ValueOf(n).IsNil() {
		return nil
	}

	nVal := reflect.ValueOf(n).Elem()
	nTyp := nVal.Type()
	t := &tree{name: nTyp.Name()}

	for i := 0; i < nVal.NumField(); i++ {
		if nTyp.Field(i).PkgPath != "" {
			// Skip unexported fields, including the embedded position.
			continue
		}

		f := &treeField{name: nTyp.Field(i).Name}

		fieldTyp := nTyp.Field(i).Type
		fieldVal := nVal.Field(i)
		field := fieldVal.Interface()

		if child, ok := field.(Node); ok {
			f.node = toTree(child)
		} else if fieldTyp.Kind() == reflect.Slice && fieldTyp.Elem().AssignableTo(nodeTyp) {
			// []T where T < Node
			nodes := make([]*tree, fieldVal.Len())
			for j := 0; j < fieldVal.Len(); j++ {
				nodes[j] = toTree(fieldVal.Index(j).Interface().(Node))
			}
			f.nodes = nodes
		} else {
			f.scalar = field
		}

		t.fields = append(t.fields, f)
	}
	return t
}

func pprint(buf *bytes.Buffer, indent string, t *tree) {
	if t == nil {
		buf.WriteString("nil")
		return
	}

	buf.WriteString(t.name)

	indent1 := indent + "  "
	indent2 := indent1 + "  "

	for _, f := range t.fields {
		buf.WriteString("\n" + indent1 + "." + f.name + " = ")
		switch {
		case f.scalar != nil:
			if s, ok := f.scalar.(string); ok {
				fmt.Fprintf(buf, "%q", s)
			} else {
				fmt.Fprint(buf, f.scalar)
			}
		case f.node != nil:
			pprint(buf, indent1, f.node)
		case f.nodes != nil:
			for _, node := range f.nodes {
				buf.WriteString("\n" + indent2)
				pprint(buf, indent2, node)
			}
		default:
			buf.WriteString("nil")
		}
	}
}
