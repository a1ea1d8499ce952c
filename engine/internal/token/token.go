package token

import (
	"fmt"
	"strings"
	"unicode"
)

type Type int

const (
	EOF Type = iota
	Newline
	Semicolon
	Comma
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Ident
	Keyword
	Int
	Float
	String
	Regex
	Macro
	Op
)

func (t Type) String() string {
	switch t {
	case EOF:
		return "end of input"
	case Newline:
		return "newline"
	case Semicolon:
		return "';'"
	case Comma:
		return "','"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case LBracket:
		return "'['"
	case RBracket:
		return "']'"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case Int:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Regex:
		return "regex"
	case Macro:
		return "macro"
	case Op:
		return "operator"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
}

var keywords = map[string]bool{
	"begin": true, "end": true, "function": true, "return": true,
	"if": true, "elseif": true, "else": true, "for": true, "in": true,
	"while": true, "break": true, "continue": true, "module": true,
	"baremodule": true, "export": true, "import": true, "using": true,
	"type": true, "immutable": true, "struct": true, "mutable": true,
	"const": true, "local": true, "global": true, "true": true,
	"false": true, "nothing": true,
}

// IsKeyword reports whether s is a reserved word.
func IsKeyword(s string) bool { return keywords[s] }

// operators ordered longest first so the scanner takes the longest match.
var operators = []string{
	"...", ".==", "===", "!==",
	"::", "->", "==", "!=", "<=", ">=", "&&", "||", "+=", "-=", "*=", "/=",
	"^=", ".*", "./", ".+", ".-", ".^", "<:",
	"+", "-", "*", "/", "\\", "^", "%", "<", ">", "=", "!", ":", ".", "?",
	"&", "|", "'",
}

// Tokenize splits source into tokens. Newlines inside parentheses,
// brackets or braces are dropped so expressions may span lines there.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	line := 1
	depth := 0
	runes := []rune(input)

	operand := func() bool {
		if len(tokens) == 0 {
			return false
		}
		last := tokens[len(tokens)-1]
		switch last.Type {
		case Ident, Int, Float, String, Regex, RParen, RBracket, RBrace:
			return true
		case Keyword:
			return last.Value == "end" || last.Value == "true" || last.Value == "false" || last.Value == "nothing"
		case Op:
			return last.Value == "'"
		}
		return false
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			if depth == 0 {
				tokens = append(tokens, Token{"\n", Newline, line})
			}
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		// Block comment, nestable
		if r == '#' && i+1 < len(runes) && runes[i+1] == '=' {
			nest := 1
			i += 2
			for i < len(runes) && nest > 0 {
				switch {
				case runes[i] == '#' && i+1 < len(runes) && runes[i+1] == '=':
					nest++
					i++
				case runes[i] == '=' && i+1 < len(runes) && runes[i+1] == '#':
					nest--
					i++
				case runes[i] == '\n':
					line++
				}
				i++
			}
			if nest > 0 {
				return nil, fmt.Errorf("line %d: unterminated block comment", line)
			}
			i--
			continue
		}

		// Line comment
		if r == '#' {
			for i+1 < len(runes) && runes[i+1] != '\n' {
				i++
			}
			continue
		}

		switch r {
		case '(':
			depth++
			tokens = append(tokens, Token{"(", LParen, line})
			continue
		case ')':
			depth--
			tokens = append(tokens, Token{")", RParen, line})
			continue
		case '[':
			depth++
			tokens = append(tokens, Token{"[", LBracket, line})
			continue
		case ']':
			depth--
			tokens = append(tokens, Token{"]", RBracket, line})
			continue
		case '{':
			depth++
			tokens = append(tokens, Token{"{", LBrace, line})
			continue
		case '}':
			depth--
			tokens = append(tokens, Token{"}", RBrace, line})
			continue
		case ',':
			tokens = append(tokens, Token{",", Comma, line})
			continue
		case ';':
			tokens = append(tokens, Token{";", Semicolon, line})
			continue
		}

		// String literal
		if r == '"' {
			s, n, err := scanString(runes[i+1:], false)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			tokens = append(tokens, Token{s, String, line})
			line += strings.Count(string(runes[i+1:i+1+n]), "\n")
			i += n
			continue
		}

		// Macro call name
		if r == '@' {
			start := i + 1
			i++
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			if i == start {
				return nil, fmt.Errorf("line %d: expected macro name after '@'", line)
			}
			tokens = append(tokens, Token{string(runes[start:i]), Macro, line})
			i--
			continue
		}

		// Number, including .5 style fractions when not after an operand
		if unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) && !operand()) {
			tok, n := scanNumber(runes[i:])
			tok.Line = line
			tokens = append(tokens, tok)
			i += n - 1
			continue
		}

		// Identifier or keyword; r"..." is a regex literal
		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) {
				c := runes[i]
				if isIdentRune(c) {
					i++
					continue
				}
				if c == '!' && (i+1 >= len(runes) || runes[i+1] != '=') {
					i++
					continue
				}
				break
			}
			word := string(runes[start:i])
			if word == "r" && i < len(runes) && runes[i] == '"' {
				s, n, err := scanString(runes[i+1:], true)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				tokens = append(tokens, Token{s, Regex, line})
				i += n
				continue
			}
			typ := Ident
			if keywords[word] {
				typ = Keyword
			}
			tokens = append(tokens, Token{word, typ, line})
			i--
			continue
		}

		if r == '\'' && !operand() {
			return nil, fmt.Errorf("line %d: character literals are not supported", line)
		}

		matched := false
		for _, op := range operators {
			if hasPrefix(runes[i:], op) {
				tokens = append(tokens, Token{op, Op, line})
				i += len([]rune(op)) - 1
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("line %d: unexpected character %q", line, r)
		}
	}

	tokens = append(tokens, Token{"", EOF, line})
	return tokens, nil
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func hasPrefix(runes []rune, s string) bool {
	i := 0
	for _, c := range s {
		if i >= len(runes) || runes[i] != c {
			return false
		}
		i++
	}
	return true
}

// scanString reads up to the closing quote and returns the decoded text and
// the number of runes consumed including the quote. Raw mode only unescapes
// \" and keeps every other backslash.
func scanString(runes []rune, raw bool) (string, int, error) {
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '"' {
			return b.String(), i + 1, nil
		}
		if c != '\\' || i+1 >= len(runes) {
			b.WriteRune(c)
			continue
		}
		i++
		esc := runes[i]
		if raw {
			if esc != '"' {
				b.WriteRune('\\')
			}
			b.WriteRune(esc)
			continue
		}
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '"', '$', '\'':
			b.WriteRune(esc)
		default:
			return "", 0, fmt.Errorf("invalid escape sequence \\%c", esc)
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

// scanNumber reads a decimal, hex, float or Float32 (1f0) literal.
func scanNumber(runes []rune) (Token, int) {
	i := 0
	if len(runes) > 2 && runes[0] == '0' && (runes[1] == 'x' || runes[1] == 'X') {
		i = 2
		for i < len(runes) && (unicode.IsDigit(runes[i]) || (runes[i] >= 'a' && runes[i] <= 'f') || (runes[i] >= 'A' && runes[i] <= 'F')) {
			i++
		}
		return Token{Value: string(runes[:i]), Type: Int}, i
	}

	typ := Int
	for i < len(runes) && unicode.IsDigit(runes[i]) {
		i++
	}
	if i < len(runes) && runes[i] == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
		typ = Float
		i++
		for i < len(runes) && unicode.IsDigit(runes[i]) {
			i++
		}
	}
	if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E' || runes[i] == 'f') {
		j := i + 1
		if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
			j++
		}
		if j < len(runes) && unicode.IsDigit(runes[j]) {
			typ = Float
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			i = j
		}
	}
	return Token{Value: string(runes[:i]), Type: typ}, i
}
