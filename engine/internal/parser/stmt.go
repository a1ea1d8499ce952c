package parser

import (
	"fmt"

	"github.com/wippyai/numbridge/engine/internal/ast"
	"github.com/wippyai/numbridge/engine/internal/token"
)

func (p *Parser) keyword(t token.Token) (ast.Node, error) {
	switch t.Value {
	case "true":
		return &ast.BoolLit{Value: true}, nil
	case "false":
		return &ast.BoolLit{Value: false}, nil
	case "nothing":
		return &ast.NothingLit{}, nil
	case "end":
		if p.indexDepth > 0 {
			return &ast.EndIndex{}, nil
		}
	case "begin":
		body, err := p.block("end")
		if err != nil {
			return nil, err
		}
		p.next()
		return body, nil
	case "if":
		return p.ifExpr()
	case "for":
		return p.forExpr()
	case "while":
		return p.whileExpr()
	case "break":
		return &ast.Break{}, nil
	case "continue":
		return &ast.Continue{}, nil
	case "return":
		return p.returnExpr()
	case "function":
		return p.function()
	case "module", "baremodule":
		return p.module(t.Value == "baremodule")
	case "export":
		names, err := p.nameList()
		if err != nil {
			return nil, err
		}
		return &ast.Export{Names: names}, nil
	case "type", "immutable", "struct":
		return p.typeDef(t.Value == "type")
	case "mutable":
		if err := p.expectKeyword("struct"); err != nil {
			return nil, err
		}
		return p.typeDef(true)
	case "import", "using":
		return p.importExpr(t.Value == "using")
	case "const", "local", "global":
		return p.scope(t.Value)
	}
	return nil, p.unexpected(t)
}

func (p *Parser) ifExpr() (ast.Node, error) {
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	then, err := p.block("elseif", "else", "end")
	if err != nil {
		return nil, err
	}
	n := &ast.If{Cond: cond, Then: then}

	switch t := p.next(); t.Value {
	case "elseif":
		n.Else, err = p.ifExpr()
		if err != nil {
			return nil, err
		}
	case "else":
		n.Else, err = p.block("end")
		if err != nil {
			return nil, err
		}
		p.next()
	}
	return n, nil
}

func (p *Parser) forExpr() (ast.Node, error) {
	v, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("in") && !p.isOp("=") {
		t := p.peek()
		return nil, fmt.Errorf("line %d: expected 'in' or '=' in for loop, got %s", t.Line, describe(t))
	}
	p.next()
	iter, err := p.expr(bpAssign + 1)
	if err != nil {
		return nil, err
	}
	body, err := p.block("end")
	if err != nil {
		return nil, err
	}
	p.next()
	return &ast.For{Var: v.Value, Iter: iter, Body: body}, nil
}

func (p *Parser) whileExpr() (ast.Node, error) {
	cond, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.block("end")
	if err != nil {
		return nil, err
	}
	p.next()
	return &ast.While{Cond: cond, Body: body}, nil
}

func (p *Parser) returnExpr() (ast.Node, error) {
	switch t := p.peek(); {
	case t.Type == token.Newline, t.Type == token.Semicolon, t.Type == token.EOF:
		return &ast.Return{}, nil
	case t.Type == token.Keyword && (t.Value == "end" || t.Value == "else" || t.Value == "elseif"):
		return &ast.Return{}, nil
	}
	v, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return &ast.Return{Value: v}, nil
}

func (p *Parser) function() (ast.Node, error) {
	name := ""
	if p.peek().Type == token.Ident {
		name = p.next().Value
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	args, err := p.list(token.RParen, true)
	if err != nil {
		return nil, err
	}
	params, vararg, err := paramNames(args)
	if err != nil {
		return nil, err
	}
	// Return type annotation
	if p.isOp("::") {
		p.next()
		if err := p.annotation(); err != nil {
			return nil, err
		}
	}
	body, err := p.block("end")
	if err != nil {
		return nil, err
	}
	p.next()
	return &ast.FuncDef{Name: name, Params: params, Vararg: vararg, Body: body}, nil
}

func (p *Parser) module(bare bool) (ast.Node, error) {
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	body, err := p.block("end")
	if err != nil {
		return nil, err
	}
	p.next()
	return &ast.ModuleDef{Name: name.Value, Bare: bare, Body: body}, nil
}

func (p *Parser) nameList() ([]string, error) {
	var names []string
	for {
		t, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		names = append(names, t.Value)
		if p.peek().Type != token.Comma {
			return names, nil
		}
		p.next()
	}
}

func (p *Parser) typeDef(mutable bool) (ast.Node, error) {
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	// Supertype is accepted and ignored.
	if p.isOp("<:") {
		p.next()
		if _, err := p.expr(bpCompare + 1); err != nil {
			return nil, err
		}
	}

	def := &ast.TypeDef{Name: name.Value, Mutable: mutable}
	for {
		p.skipSeparators()
		if p.isKeyword("end") {
			p.next()
			return def, nil
		}
		field, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if p.isOp("::") {
			p.next()
			if err := p.annotation(); err != nil {
				return nil, err
			}
		}
		def.Fields = append(def.Fields, field.Value)
	}
}

func (p *Parser) importExpr(using bool) (ast.Node, error) {
	n := &ast.Import{Using: using}
	for {
		var path []string
		for {
			t, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			path = append(path, t.Value)
			if !p.isOp(".") {
				break
			}
			p.next()
		}
		n.Paths = append(n.Paths, path)
		if p.peek().Type != token.Comma {
			return n, nil
		}
		p.next()
	}
}

func (p *Parser) scope(kind string) (ast.Node, error) {
	if p.peek().Type == token.Ident {
		// Bare declaration list: global x, y
		next := p.peekAt(1)
		if next.Type == token.Newline || next.Type == token.Semicolon || next.Type == token.EOF || next.Type == token.Comma {
			names, err := p.nameList()
			if err != nil {
				return nil, err
			}
			return &ast.Scope{Kind: kind, Names: names}, nil
		}
	}
	x, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if _, ok := x.(*ast.Assign); !ok {
		if _, ok := x.(*ast.FuncDef); !ok {
			return nil, fmt.Errorf("expected assignment after %s", kind)
		}
	}
	return &ast.Scope{Kind: kind, X: x}, nil
}

// annotation consumes a type expression such as Int or Array{Float64,1}.
func (p *Parser) annotation() error {
	if _, err := p.expect(token.Ident); err != nil {
		return err
	}
	for p.isOp(".") {
		p.next()
		if _, err := p.expect(token.Ident); err != nil {
			return err
		}
	}
	if p.peek().Type != token.LBrace {
		return nil
	}
	depth := 0
	for {
		t := p.next()
		switch t.Type {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
			if depth == 0 {
				return nil
			}
		case token.EOF:
			return fmt.Errorf("line %d: unterminated type parameters", t.Line)
		}
	}
}
