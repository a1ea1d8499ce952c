package engine

import (
	"fmt"
	"sync"
)

// DataType describes a runtime type. Composite types carry field names;
// array types carry their element type and rank.
type DataType struct {
	Super    *DataType
	Module   *Module
	elem     *DataType
	Name     string
	Fields   []string
	ndims    int
	Mutable  bool
	Abstract bool
}

func (t *DataType) String() string { return t.Name }

// Elem returns the element type of an array type, or nil.
func (t *DataType) Elem() *DataType { return t.elem }

// NDims returns the rank of an array type.
func (t *DataType) NDims() int { return t.ndims }

// IsComposite reports whether the type was declared with fields by a
// program (type/struct), as opposed to a builtin.
func (t *DataType) IsComposite() bool { return t.Module != nil }

// SubtypeOf reports t <: super.
func (t *DataType) SubtypeOf(super *DataType) bool {
	for cur := t; cur != nil; cur = cur.Super {
		if cur == super {
			return true
		}
	}
	return false
}

func abstractType(name string, super *DataType) *DataType {
	return &DataType{Name: name, Super: super, Abstract: true}
}

func concreteType(name string, super *DataType) *DataType {
	return &DataType{Name: name, Super: super}
}

var (
	AnyType            = &DataType{Name: "Any", Abstract: true}
	NumberType         = abstractType("Number", AnyType)
	RealType           = abstractType("Real", NumberType)
	IntegerType        = abstractType("Integer", RealType)
	SignedType         = abstractType("Signed", IntegerType)
	UnsignedType       = abstractType("Unsigned", IntegerType)
	AbstractFloatType  = abstractType("AbstractFloat", RealType)
	AbstractStringType = abstractType("AbstractString", AnyType)
	AbstractArrayType  = abstractType("AbstractArray", AnyType)
	FunctionType       = abstractType("Function", AnyType)

	BoolType    = concreteType("Bool", IntegerType)
	Int8Type    = concreteType("Int8", SignedType)
	UInt8Type   = concreteType("UInt8", UnsignedType)
	Int16Type   = concreteType("Int16", SignedType)
	UInt16Type  = concreteType("UInt16", UnsignedType)
	Int32Type   = concreteType("Int32", SignedType)
	UInt32Type  = concreteType("UInt32", UnsignedType)
	Int64Type   = concreteType("Int64", SignedType)
	UInt64Type  = concreteType("UInt64", UnsignedType)
	Float32Type = concreteType("Float32", AbstractFloatType)
	Float64Type = concreteType("Float64", AbstractFloatType)

	StringType     = concreteType("String", AbstractStringType)
	SubStringType  = concreteType("SubString", AbstractStringType)
	NothingType    = concreteType("Nothing", AnyType)
	TupleType      = concreteType("Tuple", AnyType)
	ArrayType      = abstractType("Array", AbstractArrayType)
	RangeType      = concreteType("UnitRange", AbstractArrayType)
	StepRangeType  = concreteType("StepRange", AbstractArrayType)
	DateTimeType   = concreteType("DateTime", AnyType)
	RegexType      = concreteType("Regex", AnyType)
	RegexMatchType = concreteType("RegexMatch", AnyType)
	ModuleType     = concreteType("Module", AnyType)
	DataTypeType   = concreteType("DataType", AnyType)

	VersionNumberType = &DataType{
		Name:   "VersionNumber",
		Super:  AnyType,
		Fields: []string{"major", "minor", "patch"},
	}
)

var (
	arrayTypesMu sync.Mutex
	arrayTypes   = map[string]*DataType{}
)

// ArrayOf returns the interned Array{elem,n} type.
func ArrayOf(elem *DataType, n int) *DataType {
	name := fmt.Sprintf("Array{%s,%d}", elem.Name, n)
	arrayTypesMu.Lock()
	defer arrayTypesMu.Unlock()
	if t, ok := arrayTypes[name]; ok {
		return t
	}
	t := &DataType{Name: name, Super: ArrayType, elem: elem, ndims: n}
	arrayTypes[name] = t
	return t
}

// TypeOf returns the runtime type of v.
func TypeOf(v Value) *DataType {
	switch x := v.(type) {
	case Nothing:
		return NothingType
	case bool:
		return BoolType
	case int8:
		return Int8Type
	case uint8:
		return UInt8Type
	case int16:
		return Int16Type
	case uint16:
		return UInt16Type
	case int32:
		return Int32Type
	case uint32:
		return UInt32Type
	case int64:
		return Int64Type
	case uint64:
		return UInt64Type
	case float32:
		return Float32Type
	case float64:
		return Float64Type
	case string:
		return StringType
	case SubString:
		return SubStringType
	case Tuple:
		return TupleType
	case *Array:
		return ArrayOf(x.Elem, len(x.Dims))
	case *Range:
		if x.Step == 1 {
			return RangeType
		}
		return StepRangeType
	case DateTime:
		return DateTimeType
	case *Regex:
		return RegexType
	case *RegexMatch:
		return RegexMatchType
	case *Struct:
		return x.Type
	case *Function:
		return FunctionType
	case *Module:
		return ModuleType
	case *DataType:
		return DataTypeType
	}
	return AnyType
}

// Isa reports whether v is an instance of t.
func Isa(v Value, t *DataType) bool {
	return TypeOf(v).SubtypeOf(t)
}

// IsCallable reports whether v can be invoked: functions and type
// constructors.
func IsCallable(v Value) bool {
	switch v.(type) {
	case *Function, *DataType:
		return true
	}
	return false
}

func isIntType(t *DataType) bool {
	return t.SubtypeOf(IntegerType) && t != IntegerType && t != SignedType && t != UnsignedType
}

func isFloatType(t *DataType) bool {
	return t == Float32Type || t == Float64Type
}

func isNumericType(t *DataType) bool {
	return isIntType(t) || isFloatType(t)
}

func intWidth(t *DataType) int {
	switch t {
	case BoolType:
		return 0
	case Int8Type, UInt8Type:
		return 1
	case Int16Type, UInt16Type:
		return 2
	case Int32Type, UInt32Type:
		return 4
	}
	return 8
}

// promoteType follows the numeric promotion rules: floats win over
// integers, Float32 survives mixing with integers, wider integers win and
// unsigned wins at equal width.
func promoteType(a, b *DataType) *DataType {
	if a == b {
		return a
	}
	if !isNumericType(a) || !isNumericType(b) {
		return AnyType
	}
	switch {
	case a == Float64Type || b == Float64Type:
		return Float64Type
	case a == Float32Type || b == Float32Type:
		return Float32Type
	case a == BoolType:
		return b
	case b == BoolType:
		return a
	}
	wa, wb := intWidth(a), intWidth(b)
	switch {
	case wa > wb:
		return a
	case wb > wa:
		return b
	case a.SubtypeOf(UnsignedType):
		return a
	}
	return b
}

// inferElem picks the element type for a collection of values: their
// common type, a numeric promotion, or Any.
func inferElem(vals []Value, empty *DataType) *DataType {
	if len(vals) == 0 {
		return empty
	}
	t := TypeOf(vals[0])
	for _, v := range vals[1:] {
		vt := TypeOf(v)
		if vt == t {
			continue
		}
		if t.SubtypeOf(AbstractStringType) && vt.SubtypeOf(AbstractStringType) {
			t = AbstractStringType
			continue
		}
		t = promoteType(t, vt)
		if t == AnyType {
			return AnyType
		}
	}
	return t
}
