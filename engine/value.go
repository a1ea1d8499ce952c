package engine

import (
	"regexp"
	"time"

	"github.com/wippyai/numbridge/engine/internal/ast"
)

// Value is a runtime-native value. Its dynamic type is one of Nothing,
// bool, int8, uint8, int16, uint16, int32, uint32, int64, uint64, float32,
// float64, string, SubString, Tuple, *Array, *Range, DateTime, *Regex,
// *RegexMatch, *Struct, *Function, *Module or *DataType.
type Value = any

// Nothing is the singleton absent value.
type Nothing struct{}

// SubString is a view into a parent string.
type SubString struct {
	Parent string
	Offset int
	Length int
}

func (s SubString) String() string {
	return s.Parent[s.Offset : s.Offset+s.Length]
}

// Tuple is an immutable sequence. The empty tuple is ().
type Tuple []Value

// DateTime is a timestamp in milliseconds since the Unix epoch, UTC.
type DateTime int64

// Time converts the timestamp to a UTC time.Time.
func (d DateTime) Time() time.Time { return time.UnixMilli(int64(d)).UTC() }

// Regex is a compiled regular expression. Pattern keeps the source text
// unchanged.
type Regex struct {
	re      *regexp.Regexp
	Pattern string
}

// NewRegex compiles pattern.
func NewRegex(pattern string) (*Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Regex{Pattern: pattern, re: re}, nil
}

// RegexMatch is the result of a successful match.
type RegexMatch struct {
	Captures []Value // SubString or Nothing per group
	Match    SubString
	Offset   int // 1-based
}

// Struct is an instance of a composite type.
type Struct struct {
	Type   *DataType
	Fields []Value
}

// Field returns the named field.
func (s *Struct) Field(name string) (Value, bool) {
	for i, f := range s.Type.Fields {
		if f == name {
			return s.Fields[i], true
		}
	}
	return nil, false
}

// Range is an integer range start:step:stop, stop already aligned to the
// last element.
type Range struct {
	Start, Step, Stop int64
}

func newRange(start, step, stop int64) *Range {
	r := &Range{Start: start, Step: step, Stop: stop}
	n := r.Len()
	if n == 0 {
		r.Stop = start - step
	} else {
		r.Stop = start + int64(n-1)*step
	}
	return r
}

// Len returns the number of elements.
func (r *Range) Len() int {
	if r.Step == 0 {
		return 0
	}
	n := (r.Stop-r.Start)/r.Step + 1
	if n < 0 {
		return 0
	}
	return int(n)
}

// At returns the i-th element, 0-based.
func (r *Range) At(i int) int64 { return r.Start + int64(i)*r.Step }

type builtinFunc func(c *callCtx, args []Value) (Value, error)

type method struct {
	closure *scope
	body    *ast.Block
	mod     *Module
	params  []string
	vararg  bool
}

// Function is a generic function: a builtin, or a set of user methods
// selected by argument count.
type Function struct {
	Module  *Module
	builtin builtinFunc
	Name    string
	methods []*method
}

// IsBuiltin reports whether the function is implemented natively.
func (f *Function) IsBuiltin() bool { return f.builtin != nil }

func (f *Function) addMethod(m *method) {
	for i, existing := range f.methods {
		if len(existing.params) == len(m.params) && existing.vararg == m.vararg {
			f.methods[i] = m
			return
		}
	}
	f.methods = append(f.methods, m)
}

func (f *Function) lookup(nargs int) *method {
	for _, m := range f.methods {
		if !m.vararg && len(m.params) == nargs {
			return m
		}
	}
	for _, m := range f.methods {
		if m.vararg && nargs >= len(m.params)-1 {
			return m
		}
	}
	return nil
}

// colon marks a whole-axis index.
type colon struct{}
