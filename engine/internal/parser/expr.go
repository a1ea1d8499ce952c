package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/numbridge/engine/internal/ast"
	"github.com/wippyai/numbridge/engine/internal/token"
)

// Binding powers, lowest first.
const (
	bpAssign  = 10
	bpArrow   = 15
	bpTernary = 20
	bpOr      = 30
	bpAnd     = 40
	bpCompare = 50
	bpRange   = 60
	bpSum     = 70
	bpProduct = 80
	bpUnary   = 85
	bpPower   = 90
	bpDecl    = 95
	bpPostfix = 100
)

func infixBP(t token.Token) (bp int, right bool, ok bool) {
	if t.Type != token.Op {
		return 0, false, false
	}
	switch t.Value {
	case "=", "+=", "-=", "*=", "/=", "^=":
		return bpAssign, true, true
	case "->":
		return bpArrow, true, true
	case "?":
		return bpTernary, true, true
	case "||":
		return bpOr, true, true
	case "&&":
		return bpAnd, true, true
	case "==", "!=", "===", "!==", "<", "<=", ">", ">=", "<:", ".==":
		return bpCompare, false, true
	case ":":
		return bpRange, false, true
	case "+", "-", "|", ".+", ".-":
		return bpSum, false, true
	case "*", "/", "%", "\\", "&", ".*", "./":
		return bpProduct, false, true
	case "^", ".^":
		return bpPower, true, true
	case "::":
		return bpDecl, false, true
	}
	return 0, false, false
}

func (p *Parser) expr(minBP int) (ast.Node, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()

		if minBP <= bpPostfix {
			post, ok, err := p.postfix(left, t)
			if err != nil {
				return nil, err
			}
			if ok {
				left = post
				continue
			}
		}

		bp, right, ok := infixBP(t)
		if !ok || bp < minBP {
			return left, nil
		}
		p.next()
		p.skipNewlines()

		switch t.Value {
		case "?":
			left, err = p.ternary(left)
		case ":":
			left, err = p.rangeExpr(left)
		case "->":
			left, err = p.lambda(left)
		case "::":
			start := p.pos
			err = p.annotation()
			left = &ast.Typed{X: left, Type: &ast.Ident{Name: p.tokens[start].Value}}
		case "=", "+=", "-=", "*=", "/=", "^=":
			left, err = p.assign(left, t.Value)
		default:
			next := bp + 1
			if right {
				next = bp
			}
			var rhs ast.Node
			rhs, err = p.expr(next)
			left = &ast.Binary{Op: t.Value, X: left, Y: rhs}
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) postfix(left ast.Node, t token.Token) (ast.Node, bool, error) {
	switch {
	case t.Type == token.LParen:
		p.next()
		args, err := p.list(token.RParen, true)
		if err != nil {
			return nil, false, err
		}
		return &ast.Call{Fn: left, Args: args}, true, nil

	case t.Type == token.LBracket:
		p.next()
		p.indexDepth++
		idx, err := p.list(token.RBracket, false)
		p.indexDepth--
		if err != nil {
			return nil, false, err
		}
		return &ast.Index{X: left, Indices: idx}, true, nil

	case t.Type == token.Op && t.Value == ".":
		p.next()
		name := p.next()
		if name.Type != token.Ident {
			return nil, false, fmt.Errorf("line %d: expected field name after '.', got %s", name.Line, describe(name))
		}
		return &ast.Field{X: left, Name: name.Value}, true, nil

	case t.Type == token.Op && t.Value == "'":
		p.next()
		return &ast.Unary{Op: "'", X: left}, true, nil
	}
	return nil, false, nil
}

// list parses comma separated expressions up to the closing token. Splats
// are allowed in call argument lists.
func (p *Parser) list(closing token.Type, splat bool) ([]ast.Node, error) {
	var out []ast.Node
	for {
		if p.peek().Type == closing {
			p.next()
			return out, nil
		}
		e, err := p.expr(0)
		if err != nil {
			return nil, err
		}
		if splat && p.isOp("...") {
			p.next()
			e = &ast.Splat{X: e}
		}
		out = append(out, e)

		t := p.next()
		switch t.Type {
		case closing:
			return out, nil
		case token.Comma:
		case token.Semicolon:
			return nil, fmt.Errorf("line %d: keyword arguments and matrix rows are not supported", t.Line)
		default:
			return nil, fmt.Errorf("line %d: expected ',' or %v, got %s", t.Line, closing, describe(t))
		}
	}
}

func (p *Parser) ternary(cond ast.Node) (ast.Node, error) {
	then, err := p.expr(bpRange + 1)
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if !p.isOp(":") {
		t := p.peek()
		return nil, fmt.Errorf("line %d: expected ':' in ternary, got %s", t.Line, describe(t))
	}
	p.next()
	p.skipNewlines()
	els, err := p.expr(bpTernary)
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) rangeExpr(start ast.Node) (ast.Node, error) {
	second, err := p.expr(bpRange + 1)
	if err != nil {
		return nil, err
	}
	if !p.isOp(":") {
		return &ast.Range{Start: start, Stop: second}, nil
	}
	p.next()
	stop, err := p.expr(bpRange + 1)
	if err != nil {
		return nil, err
	}
	return &ast.Range{Start: start, Step: second, Stop: stop}, nil
}

func (p *Parser) lambda(params ast.Node) (ast.Node, error) {
	var args []ast.Node
	if tup, ok := params.(*ast.Tuple); ok {
		args = tup.Elems
	} else {
		args = []ast.Node{params}
	}
	names, vararg, err := paramNames(args)
	if err != nil {
		return nil, err
	}
	body, err := p.expr(bpArrow)
	if err != nil {
		return nil, err
	}
	return &ast.FuncDef{Params: names, Vararg: vararg, Body: &ast.Block{Stmts: []ast.Node{body}}}, nil
}

func (p *Parser) assign(target ast.Node, op string) (ast.Node, error) {
	val, err := p.expr(bpAssign)
	if err != nil {
		return nil, err
	}

	// f(x) = body
	if call, ok := target.(*ast.Call); ok && op == "=" {
		name, ok := call.Fn.(*ast.Ident)
		if !ok {
			return nil, fmt.Errorf("invalid function name in short definition")
		}
		params, vararg, err := paramNames(call.Args)
		if err != nil {
			return nil, err
		}
		return &ast.FuncDef{
			Name:   name.Name,
			Params: params,
			Vararg: vararg,
			Body:   &ast.Block{Stmts: []ast.Node{val}},
		}, nil
	}

	switch t := target.(type) {
	case *ast.Ident, *ast.Index, *ast.Field, *ast.Tuple:
	case *ast.Typed:
		target = t.X
	default:
		return nil, fmt.Errorf("invalid assignment target")
	}
	return &ast.Assign{Target: target, Op: op, Value: val}, nil
}

func paramNames(args []ast.Node) ([]string, bool, error) {
	names := make([]string, 0, len(args))
	vararg := false
	for i, a := range args {
		if s, ok := a.(*ast.Splat); ok {
			if i != len(args)-1 {
				return nil, false, fmt.Errorf("varargs must be the last parameter")
			}
			vararg = true
			a = s.X
		}
		if typed, ok := a.(*ast.Typed); ok {
			a = typed.X
		}
		id, ok := a.(*ast.Ident)
		if !ok {
			return nil, false, fmt.Errorf("invalid parameter")
		}
		names = append(names, id.Name)
	}
	return names, vararg, nil
}

func (p *Parser) prefix() (ast.Node, error) {
	t := p.next()
	switch t.Type {
	case token.Int:
		v, err := parseInt(t.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: integer literal %s overflows Int64", t.Line, t.Value)
		}
		return &ast.IntLit{Value: v}, nil

	case token.Float:
		return parseFloat(t)

	case token.String:
		return &ast.StringLit{Value: t.Value}, nil

	case token.Regex:
		return &ast.RegexLit{Pattern: t.Value}, nil

	case token.Ident:
		return &ast.Ident{Name: t.Value}, nil

	case token.Macro:
		return p.macro(t)

	case token.LParen:
		return p.paren()

	case token.LBracket:
		elems, err := p.list(token.RBracket, false)
		if err != nil {
			return nil, err
		}
		return &ast.Vector{Elems: elems}, nil

	case token.Keyword:
		return p.keyword(t)

	case token.Op:
		switch t.Value {
		case ":":
			if p.indexDepth > 0 {
				if n := p.peek().Type; n == token.Comma || n == token.RBracket {
					return &ast.Colon{}, nil
				}
			}
		case "-", "+", "!":
			// -N folds into the literal so Int64 min is expressible, but not
			// when a power follows: -2^2 is -(2^2).
			if t.Value == "-" && p.peek().Type == token.Int && !(p.peekAt(1).Type == token.Op && p.peekAt(1).Value == "^") {
				lit := p.next()
				v, err := parseInt("-" + lit.Value)
				if err == nil {
					return &ast.IntLit{Value: v}, nil
				}
				return nil, fmt.Errorf("line %d: integer literal -%s overflows Int64", lit.Line, lit.Value)
			}
			x, err := p.expr(bpUnary)
			if err != nil {
				return nil, err
			}
			return &ast.Unary{Op: t.Value, X: x}, nil
		}
	}
	return nil, p.unexpected(t)
}

// parseInt reads decimal or 0x hex; a leading zero is not octal.
func parseInt(s string) (int64, error) {
	digits := strings.TrimPrefix(s, "-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return strconv.ParseInt(s, 0, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseFloat(t token.Token) (ast.Node, error) {
	if strings.Contains(t.Value, "f") {
		v, err := strconv.ParseFloat(strings.Replace(t.Value, "f", "e", 1), 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid Float32 literal %s", t.Line, t.Value)
		}
		return &ast.FloatLit{Value: v, Single: true}, nil
	}
	v, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		// ParseFloat returns ±Inf with a range error; Julia does the same
		// for overflowing literals.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return nil, fmt.Errorf("line %d: invalid float literal %s", t.Line, t.Value)
		}
	}
	return &ast.FloatLit{Value: v}, nil
}

func (p *Parser) paren() (ast.Node, error) {
	if p.peek().Type == token.RParen {
		p.next()
		return &ast.Tuple{}, nil
	}
	first, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if p.isOp("...") {
		p.next()
		first = &ast.Splat{X: first}
	}
	t := p.next()
	switch t.Type {
	case token.RParen:
		if _, ok := first.(*ast.Splat); ok {
			return &ast.Tuple{Elems: []ast.Node{first}}, nil
		}
		return first, nil
	case token.Comma:
		rest, err := p.list(token.RParen, true)
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Elems: append([]ast.Node{first}, rest...)}, nil
	case token.Semicolon:
		// (a; b) is a block yielding b
		b := &ast.Block{Stmts: []ast.Node{first}}
		for {
			e, err := p.expr(0)
			if err != nil {
				return nil, err
			}
			b.Stmts = append(b.Stmts, e)
			t = p.next()
			if t.Type == token.RParen {
				return b, nil
			}
			if t.Type != token.Semicolon {
				return nil, p.unexpected(t)
			}
		}
	}
	return nil, p.unexpected(t)
}

func (p *Parser) macro(t token.Token) (ast.Node, error) {
	if p.peek().Type == token.LParen {
		p.next()
		args, err := p.list(token.RParen, true)
		if err != nil {
			return nil, err
		}
		return &ast.MacroCall{Name: t.Value, Args: args}, nil
	}
	arg, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	return &ast.MacroCall{Name: t.Value, Args: []ast.Node{arg}}, nil
}
