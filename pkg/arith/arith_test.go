package arith

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slatesh/slate/pkg/env"
)

func TestEval(t *testing.T) {
	vars := env.New()
	vars.Set("x", "7")
	vars.Set("pad", " 42 ")

	tests := []struct {
		expr string
		want int64
	}{
		{"1+2", 3},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10/3", 3},
		{"10%3", 1},
		{"2-5", -3},
		{"-5+2", -3},
		{"1<2", 1},
		{"2<=1", 0},
		{"3==3", 1},
		{"3!=3", 0},
		{"2>1", 1},
		{"2>=3", 0},
		{"1&&0", 0},
		{"1&&2", 1},
		{"0||0", 0},
		{"1||0", 1},
		{"!0", 1},
		{"!5", 0},
		{"~0", -1},
		{"0x10", 16},
		{"0X1f", 31},
		{"010", 8},
		{"0", 0},
		{"$x", 7},
		{"x", 7},
		{"x*2", 14},
		{"unset_var", 0},
		{"$unset_var + 1", 1},
		{"pad", 42},
	}
	for _, test := range tests {
		got, err := Eval(test.expr, vars)
		if assert.NoError(t, err, "Eval(%q)", test.expr) {
			assert.Equal(t, test.want, got, "Eval(%q)", test.expr)
		}
	}
}

func TestEval_Errors(t *testing.T) {
	vars := env.New()
	vars.Set("word", "abc")

	exprs := []string{
		"1/0",
		"1%0",
		"(1+2",
		"word",
		"$word",
		"$",
		"0xg",
	}
	for _, expr := range exprs {
		_, err := Eval(expr, vars)
		assert.Error(t, err, "Eval(%q)", expr)
	}
}
