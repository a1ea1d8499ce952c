package ast

// Node is any parsed expression. Statements are expressions too; every
// construct yields a value when evaluated.
type Node interface {
	node()
}

type (
	IntLit struct {
		Value int64
	}
	FloatLit struct {
		Value  float64
		Single bool // 1f0 style Float32 literal
	}
	StringLit struct {
		Value string
	}
	RegexLit struct {
		Pattern string
	}
	BoolLit struct {
		Value bool
	}
	NothingLit struct{}

	Ident struct {
		Name string
	}

	// EndIndex is `end` used inside an index expression.
	EndIndex struct{}
	// Colon is a bare `:` index selecting a whole axis.
	Colon struct{}

	Tuple struct {
		Elems []Node
	}
	Vector struct {
		Elems []Node
	}
	Range struct {
		Start, Step, Stop Node // Step may be nil
	}

	Field struct {
		X    Node
		Name string
	}
	Call struct {
		Fn   Node
		Args []Node
	}
	MacroCall struct {
		Name string
		Args []Node
	}
	Index struct {
		X       Node
		Indices []Node
	}
	// Splat is `x...` in a call argument list or a parameter list.
	Splat struct {
		X Node
	}
	// Typed is `x::T`; the annotation is kept but not enforced.
	Typed struct {
		X    Node
		Type Node
	}

	Unary struct {
		Op string
		X  Node
	}
	Binary struct {
		Op   string
		X, Y Node
	}
	Ternary struct {
		Cond, Then, Else Node
	}
	Assign struct {
		Target Node
		Op     string // "=" or an update operator such as "+="
		Value  Node
	}

	Block struct {
		Stmts []Node
	}
	If struct {
		Cond Node
		Then *Block
		Else Node // *Block, *If or nil
	}
	For struct {
		Var  string
		Iter Node
		Body *Block
	}
	While struct {
		Cond Node
		Body *Block
	}
	Break    struct{}
	Continue struct{}
	Return   struct {
		Value Node // nil returns nothing
	}

	FuncDef struct {
		Name   string // empty for anonymous functions
		Params []string
		Vararg bool // last param collects remaining arguments
		Body   *Block
	}
	ModuleDef struct {
		Name string
		Bare bool
		Body *Block
	}
	Export struct {
		Names []string
	}
	TypeDef struct {
		Name    string
		Fields  []string
		Mutable bool
	}
	Import struct {
		Paths [][]string
		Using bool
	}
	// Scope is a const/local/global prefix.
	Scope struct {
		Kind  string
		Names []string // bare `global x` declarations
		X     Node     // prefixed assignment, may be nil
	}
)

func (*IntLit) node()     {}
func (*FloatLit) node()   {}
func (*StringLit) node()  {}
func (*RegexLit) node()   {}
func (*BoolLit) node()    {}
func (*NothingLit) node() {}
func (*Ident) node()      {}
func (*EndIndex) node()   {}
func (*Colon) node()      {}
func (*Tuple) node()      {}
func (*Vector) node()     {}
func (*Range) node()      {}
func (*Field) node()      {}
func (*Call) node()       {}
func (*MacroCall) node()  {}
func (*Index) node()      {}
func (*Splat) node()      {}
func (*Typed) node()      {}
func (*Unary) node()      {}
func (*Binary) node()     {}
func (*Ternary) node()    {}
func (*Assign) node()     {}
func (*Block) node()      {}
func (*If) node()         {}
func (*For) node()        {}
func (*While) node()      {}
func (*Break) node()      {}
func (*Continue) node()   {}
func (*Return) node()     {}
func (*FuncDef) node()    {}
func (*ModuleDef) node()  {}
func (*Export) node()     {}
func (*TypeDef) node()    {}
func (*Import) node()     {}
func (*Scope) node()      {}

// Path flattens a chain of dotted identifiers (A.B.c) into its segments.
// It reports false for anything else.
func Path(n Node) ([]string, bool) {
	switch x := n.(type) {
	case *Ident:
		return []string{x.Name}, true
	case *Field:
		head, ok := Path(x.X)
		if !ok {
			return nil, false
		}
		return append(head, x.Name), true
	}
	return nil, false
}
