package shape

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/value"
)

const malformed = "malformed input array"

// Shape describes a rectangular host array: one length per axis, outermost
// first, and the joined element kind.
type Shape struct {
	Dims []int
	Kind Kind
}

// Len returns the element count, the product of the dims.
func (s Shape) Len() int {
	n := 1
	for _, d := range s.Dims {
		n *= d
	}
	return n
}

// count multiplies dims, reporting false when a dim is negative or the
// product does not fit in an int.
func count(dims []int) (int, bool) {
	n := 1
	for _, d := range dims {
		if d < 0 {
			return 0, false
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

func (s Shape) String() string {
	parts := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		parts[i] = strconv.Itoa(d)
	}
	return s.Kind.String() + "(" + strings.Join(parts, ",") + ")"
}

type resolver struct {
	dims []int
	leaf int // depth of scalar leaves, -1 until one is seen
	kind Kind
}

// Resolve scans a nested host array. Every sibling sub-array at one depth
// must have the same length and all leaves must sit at the same depth. A
// typed buffer inside the array acts as its innermost level.
func Resolve(a value.Array) (Shape, error) {
	r := &resolver{leaf: -1}
	if err := r.array(len(a), 0, nil); err != nil {
		return Shape{}, err
	}
	for i, el := range a {
		if err := r.walk(el, 1, []int{i}); err != nil {
			return Shape{}, err
		}
	}
	if _, ok := count(r.dims); !ok {
		return Shape{}, errors.MalformedArray(nil, fmt.Sprintf("%s: dims %v overflow", malformed, r.dims))
	}
	return Shape{Dims: r.dims, Kind: r.kind}, nil
}

// Explicit resolves a typed buffer against its own dims, which must cover
// exactly the buffer's elements.
func Explicit(b *value.Buffer) (Shape, error) {
	dims := b.Dims()
	s := Shape{Dims: append([]int(nil), dims...), Kind: FromElem(b.Elem())}
	for _, d := range dims {
		if d < 0 {
			return Shape{}, errors.MalformedArray(nil, fmt.Sprintf("%s: negative dimension %d", malformed, d))
		}
	}
	n, ok := count(dims)
	if !ok {
		return Shape{}, errors.MalformedArray(nil, fmt.Sprintf("%s: dims %v overflow", malformed, dims))
	}
	if n != b.Len() {
		return Shape{}, errors.MalformedArray(nil,
			fmt.Sprintf("%s: dims %v hold %d elements, buffer has %d", malformed, dims, n, b.Len()))
	}
	return s, nil
}

func (r *resolver) walk(v value.Value, depth int, at []int) error {
	switch x := v.(type) {
	case value.Array:
		if err := r.array(len(x), depth, at); err != nil {
			return err
		}
		for i, el := range x {
			if err := r.walk(el, depth+1, append(at, i)); err != nil {
				return err
			}
		}
		return nil
	case *value.Buffer:
		if x.Explicit() && len(x.Dims()) != 1 {
			return errors.MalformedArray(nil, fmt.Sprintf("%s: nested buffer at %s must be one-dimensional", malformed, index(at)))
		}
		n := x.Len()
		if err := r.array(n, depth, at); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		return r.scalar(FromElem(x.Elem()), depth+1, at)
	case nil:
		return r.scalar(KindNull, depth, at)
	}
	return r.scalar(Of(v), depth, at)
}

func (r *resolver) array(n, depth int, at []int) error {
	if r.leaf >= 0 && depth >= r.leaf {
		return errors.MalformedArray(nil, fmt.Sprintf("%s: array at %s where a scalar was expected", malformed, index(at)))
	}
	if depth < len(r.dims) {
		if r.dims[depth] != n {
			return errors.MalformedArray(nil,
				fmt.Sprintf("%s: sub-array %s has length %d, expected %d", malformed, index(at), n, r.dims[depth]))
		}
		return nil
	}
	r.dims = append(r.dims, n)
	return nil
}

func (r *resolver) scalar(k Kind, depth int, at []int) error {
	if r.leaf < 0 {
		if depth < len(r.dims) {
			return errors.MalformedArray(nil, fmt.Sprintf("%s: scalar at %s where an array was expected", malformed, index(at)))
		}
		r.leaf = depth
	} else if depth != r.leaf {
		return errors.MalformedArray(nil, fmt.Sprintf("%s: scalar at %s where an array was expected", malformed, index(at)))
	}
	j := Join(r.kind, k)
	if j == KindNone {
		return errors.UnsupportedElementKind([]string{index(at)}, r.kind.String(), k.String())
	}
	r.kind = j
	return nil
}

func index(at []int) string {
	if len(at) == 0 {
		return "[]"
	}
	var b strings.Builder
	for _, i := range at {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(']')
	}
	return b.String()
}
