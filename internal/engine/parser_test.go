package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{src: "3+4*2", want: 11},
		{src: "(3+4)*2", want: 14},
		{src: "10-4-3", want: 3},
		{src: "8/4/2", want: 1},
		{src: "7%3", want: 1},
		{src: "-2*3", want: -6},
		{src: "--2", want: 2},
		{src: "+2", want: 2},
		{src: "2*-3", want: -6},
		{src: "sqrt(9)", want: 3},
		{src: "sqrt(9)+1", want: 4},
		{src: "sqrt 16*2", want: 8},
		{src: ".5+.5", want: 1},
		{src: " 1 + 2 ", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Eval())
		})
	}
}

func TestParseLogIsBaseTen(t *testing.T) {
	n, err := Parse("log(1000)")
	require.NoError(t, err)
	assert.InDelta(t, 3, n.Eval(), 1e-12)
}

func TestParseBuildsTree(t *testing.T) {
	n, err := Parse("-(1+2)*sqrt(4)")
	require.NoError(t, err)

	bin, ok := n.(BinaryOp)
	require.True(t, ok, "root should be a BinaryOp, got %T", n)
	assert.Equal(t, Mul, bin.Kind)

	neg, ok := bin.Left.(UnaryOp)
	require.True(t, ok)
	assert.Equal(t, Negate, neg.Kind)
	assert.IsType(t, Grouping{}, neg.Operand)

	fn, ok := bin.Right.(UnaryOp)
	require.True(t, ok)
	assert.Equal(t, Sqrt, fn.Kind)

	assert.Equal(t, "((-(1 + 2)) * sqrt(4))", n.String())
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"1,5",
		"2(3)",
		"(1+)",
		"()",
		"1)",
		"2.5.1",
		"foo(1)",
		".",
		"1+",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnparsable))

			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestEvalNonFinite(t *testing.T) {
	n, err := Parse("1/0")
	require.NoError(t, err)
	assert.True(t, math.IsInf(n.Eval(), 1))

	n, err = Parse("sqrt(-4)")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(n.Eval()))

	n, err = Parse("5%0")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(n.Eval()))
}
