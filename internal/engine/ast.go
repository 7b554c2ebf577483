package engine

import (
	"fmt"
	"math"
	"strconv"
)

// Node is an immutable node of a parsed expression tree.
type Node interface {
	Eval() float64
	String() string
}

// Constant is a numeric literal.
type Constant struct {
	Value float64
}

// UnaryKind selects the operation of a UnaryOp.
type UnaryKind int

const (
	Negate UnaryKind = iota
	Sqrt
	Log
)

// UnaryOp applies negation or a function to one operand.
type UnaryOp struct {
	Kind    UnaryKind
	Operand Node
}

// BinaryKind selects the operation of a BinaryOp.
type BinaryKind int

const (
	Add BinaryKind = iota
	Sub
	Mul
	Div
	Mod
)

// BinaryOp combines two operands.
type BinaryOp struct {
	Kind        BinaryKind
	Left, Right Node
}

// Grouping is a parenthesised sub-expression.
type Grouping struct {
	Inner Node
}

func (c Constant) Eval() float64 { return c.Value }

func (c Constant) String() string {
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// Eval does not guard the domain of sqrt and log; invalid operands yield NaN
// or -Inf.
func (u UnaryOp) Eval() float64 {
	v := u.Operand.Eval()
	switch u.Kind {
	case Negate:
		return -v
	case Sqrt:
		return math.Sqrt(v)
	case Log:
		return math.Log10(v)
	}
	panic(fmt.Sprintf("engine: unknown unary kind %d", u.Kind))
}

func (u UnaryOp) String() string {
	switch u.Kind {
	case Negate:
		return "(-" + u.Operand.String() + ")"
	case Sqrt:
		return "sqrt(" + u.Operand.String() + ")"
	default:
		return "log(" + u.Operand.String() + ")"
	}
}

// Eval follows IEEE-754: division by zero gives ±Inf or NaN and the
// remainder of x % 0 is NaN.
func (b BinaryOp) Eval() float64 {
	l, r := b.Left.Eval(), b.Right.Eval()
	switch b.Kind {
	case Add:
		return l + r
	case Sub:
		return l - r
	case Mul:
		return l * r
	case Div:
		return l / r
	case Mod:
		return math.Mod(l, r)
	}
	panic(fmt.Sprintf("engine: unknown binary kind %d", b.Kind))
}

var binarySymbols = map[BinaryKind]string{
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Mod: "%",
}

func (b BinaryOp) String() string {
	return "(" + b.Left.String() + " " + binarySymbols[b.Kind] + " " + b.Right.String() + ")"
}

func (g Grouping) Eval() float64 { return g.Inner.Eval() }

func (g Grouping) String() string { return g.Inner.String() }
