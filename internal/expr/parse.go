package expr

import "fmt"

// Binding powers. Left-associative operators bind their right operand one
// step tighter; power is right-associative.
const (
	bpAdditive = 10
	bpMultiply = 20
	bpPrefix   = 30
	bpPower    = 40
)

// infixBP returns the left and right binding powers of an infix operator.
func infixBP(k Kind) (lbp, rbp int, ok bool) {
	switch k {
	case Plus, Minus:
		return bpAdditive, bpAdditive + 1, true
	case Star, Slash, Percent:
		return bpMultiply, bpMultiply + 1, true
	case Caret:
		return bpPower, bpPower, true
	}
	return 0, 0, false
}

// Parse parses a complete expression.
func Parse(src string) (Node, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return ParseTokens(toks)
}

// ParseTokens parses a token slice (as produced by Lex, optionally
// sub-sliced) as one complete expression.
func ParseTokens(toks []Token) (Node, error) {
	if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
		end := 0
		if len(toks) > 0 {
			end = toks[len(toks)-1].End
		}
		toks = append(toks[:len(toks):len(toks)], Token{Kind: EOF, Pos: end, End: end})
	}
	p := &parser{toks: toks}
	if p.peek().Kind == EOF {
		return nil, &SyntaxError{Pos: p.peek().Pos, Message: "empty expression"}
	}
	n, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind != EOF {
		return nil, &SyntaxError{Pos: t.Pos, Message: fmt.Sprintf("unexpected %s %q", t.Kind, t.Text)}
	}
	return n, nil
}

type parser struct {
	toks []Token
	i    int
}

func (p *parser) peek() Token {
	return p.toks[p.i]
}

func (p *parser) next() Token {
	t := p.toks[p.i]
	if t.Kind != EOF {
		p.i++
	}
	return t
}

func (p *parser) need(k Kind) (Token, error) {
	t := p.next()
	if t.Kind != k {
		return t, &SyntaxError{Pos: t.Pos, Message: fmt.Sprintf("expected %s, found %s", k, describe(t))}
	}
	return t, nil
}

func describe(t Token) string {
	if t.Kind == EOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

func (p *parser) expr(minBP int) (Node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		lbp, rbp, ok := infixBP(op.Kind)
		if !ok || lbp < minBP {
			return left, nil
		}
		p.next()
		right, err := p.expr(rbp)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op.Kind, X: left, Y: right, At: op.Pos}
	}
}

func (p *parser) prefix() (Node, error) {
	t := p.next()
	switch t.Kind {
	case Number:
		return &Num{Value: t.Num, At: t.Pos}, nil
	case String:
		return &Str{Value: t.Str, At: t.Pos}, nil
	case Name:
		if p.peek().Kind == LParen {
			p.next()
			args, err := p.list(RParen)
			if err != nil {
				return nil, err
			}
			return &Call{Name: t.Text, Args: args, At: t.Pos}, nil
		}
		return &Ident{Name: t.Text, At: t.Pos}, nil
	case Plus, Minus:
		x, err := p.expr(bpPrefix)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: t.Kind, X: x, At: t.Pos}, nil
	case LParen:
		x, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.need(RParen); err != nil {
			return nil, err
		}
		return x, nil
	case LBracket:
		elems, err := p.list(RBracket)
		if err != nil {
			return nil, err
		}
		if len(elems) == 0 {
			return nil, &SyntaxError{Pos: t.Pos, Message: "empty bracket list"}
		}
		return &List{Elems: elems, At: t.Pos}, nil
	}
	return nil, &SyntaxError{Pos: t.Pos, Message: fmt.Sprintf("unexpected %s", describe(t))}
}

// list parses comma-separated expressions up to the closing token.
func (p *parser) list(closer Kind) ([]Node, error) {
	var out []Node
	if p.peek().Kind == closer {
		p.next()
		return out, nil
	}
	for {
		n, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		t := p.next()
		switch t.Kind {
		case Comma:
			continue
		case closer:
			return out, nil
		default:
			return nil, &SyntaxError{Pos: t.Pos, Message: fmt.Sprintf("expected ',' or %s, found %s", closer, describe(t))}
		}
	}
}
