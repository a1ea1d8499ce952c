package parser

import (
	"fmt"
	"slices"

	"github.com/wippyai/numbridge/engine/internal/ast"
	"github.com/wippyai/numbridge/engine/internal/token"
)

type Parser struct {
	tokens     []token.Token
	pos        int
	indexDepth int
}

func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses a whole program.
func Parse(src string) (*ast.Block, error) {
	tokens, err := token.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return New(tokens).Parse()
}

func (p *Parser) Parse() (*ast.Block, error) {
	b, err := p.block()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Type != token.EOF {
		return nil, p.unexpected(t)
	}
	return b, nil
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(typ token.Type) (token.Token, error) {
	t := p.next()
	if t.Type != typ {
		return t, fmt.Errorf("line %d: expected %v, got %s", t.Line, typ, describe(t))
	}
	return t, nil
}

func (p *Parser) expectKeyword(word string) error {
	t := p.next()
	if t.Type != token.Keyword || t.Value != word {
		return fmt.Errorf("line %d: expected %q, got %s", t.Line, word, describe(t))
	}
	return nil
}

func (p *Parser) isOp(op string) bool {
	t := p.peek()
	return t.Type == token.Op && t.Value == op
}

func (p *Parser) isKeyword(words ...string) bool {
	t := p.peek()
	return t.Type == token.Keyword && slices.Contains(words, t.Value)
}

func (p *Parser) skipNewlines() {
	for p.peek().Type == token.Newline {
		p.pos++
	}
}

func (p *Parser) skipSeparators() {
	for {
		switch p.peek().Type {
		case token.Newline, token.Semicolon:
			p.pos++
		default:
			return
		}
	}
}

func (p *Parser) unexpected(t token.Token) error {
	return fmt.Errorf("line %d: unexpected %s", t.Line, describe(t))
}

func describe(t token.Token) string {
	switch t.Type {
	case token.EOF:
		return "end of input"
	case token.Newline:
		return "newline"
	case token.String:
		return fmt.Sprintf("string %q", t.Value)
	}
	return fmt.Sprintf("%q", t.Value)
}

// block parses statements until one of the stop keywords or end of input.
// With stop keywords, reaching end of input is an error.
func (p *Parser) block(stops ...string) (*ast.Block, error) {
	b := &ast.Block{}
	for {
		p.skipSeparators()
		t := p.peek()
		if t.Type == token.EOF {
			if len(stops) > 0 {
				return nil, fmt.Errorf("line %d: incomplete: expected %q", t.Line, stops[0])
			}
			return b, nil
		}
		if t.Type == token.Keyword && slices.Contains(stops, t.Value) {
			return b, nil
		}

		n, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, n)

		t = p.peek()
		switch {
		case t.Type == token.Newline, t.Type == token.Semicolon, t.Type == token.EOF:
		case t.Type == token.Keyword && slices.Contains(stops, t.Value):
		default:
			return nil, p.unexpected(t)
		}
	}
}
