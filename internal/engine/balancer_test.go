package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountUnclosed(t *testing.T) {
	tests := []struct {
		buf  string
		want int
	}{
		{buf: "", want: 0},
		{buf: "1+2", want: 0},
		{buf: "(1+2", want: 1},
		{buf: "((1)", want: 1},
		{buf: "(1))", want: 0},
		{buf: ")(", want: 1},
		{buf: "([{", want: 3},
		{buf: "(]", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.buf, func(t *testing.T) {
			assert.Equal(t, tt.want, CountUnclosed(tt.buf))
		})
	}
}

func TestUnclosedClosersInPopOrder(t *testing.T) {
	assert.Equal(t, []rune{'}', ']', ')'}, UnclosedClosers("([{"))
	assert.Empty(t, UnclosedClosers("√(9)"))
}

func TestBalance(t *testing.T) {
	assert.Equal(t, "(1+2)", Balance("(1+2"))
	assert.Equal(t, "√(√(4))", Balance("√(√(4"))
	assert.Equal(t, "(1))", Balance("(1))"), "stray closers are kept, not removed")
}

func TestBalanceIsNoOpOnBalancedInput(t *testing.T) {
	v := NewValidator(ValidatorOptions{AllowFunctions: true})
	for _, buf := range []string{"3+4*(2-1)", "√(9)", "(1+2)*3", "log(100)", "12.5%4"} {
		t.Run(buf, func(t *testing.T) {
			assert.True(t, v.Validate(buf).OK)
			assert.Equal(t, buf, Balance(buf))
		})
	}
}
