package engine

import "fmt"

var functions = map[string]UnaryKind{
	"sqrt": Sqrt,
	"log":  Log,
}

// parser is a recursive-descent parser over the token stream:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/" | "%") unary }
//	unary   = ("-" | "+") unary | func unary | primary
//	primary = number | "(" expr ")"
type parser struct {
	toks []token
	pos  int
}

// Parse builds the expression tree for src.
func Parse(src string) (Node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q after expression", t.text)
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &ParseError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var kind BinaryKind
		switch p.peek().kind {
		case tokPlus:
			kind = Add
		case tokMinus:
			kind = Sub
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Kind: kind, Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var kind BinaryKind
		switch p.peek().kind {
		case tokStar:
			kind = Mul
		case tokSlash:
			kind = Div
		case tokPercent:
			kind = Mod
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Kind: kind, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokMinus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryOp{Kind: Negate, Operand: operand}, nil
	case tokPlus:
		p.next()
		return p.parseUnary()
	case tokIdent:
		kind, ok := functions[t.text]
		if !ok {
			return nil, p.errorf(t, "unknown function %q", t.text)
		}
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryOp{Kind: kind, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return Constant{Value: t.value}, nil
	case tokLParen:
		if p.peek().kind == tokRParen {
			return nil, p.errorf(p.peek(), "empty parentheses")
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected \")\"")
		}
		return Grouping{Inner: inner}, nil
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of expression")
	}
	return nil, p.errorf(t, "unexpected %q", t.text)
}
