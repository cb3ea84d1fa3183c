package operon

import (
	"fmt"
	"strconv"
)

// ValueType describes how a raw wire string is coerced into a typed value
// and what shape that value has in the document. The Name is used verbatim
// in binding error messages, so it must be stable.
type ValueType interface {
	// Name is the canonical type name, e.g. `integer(uint16)` or `string`.
	Name() string
	// Schema is the documented shape of a single value.
	Schema() *Schema
	// Parse coerces one raw string.
	Parse(raw string) (any, error)
}

// Built-in scalar value types. Integer widths are enforced during parsing,
// so a uint16 parameter rejects 70000 at the binder.
var (
	Int8    ValueType = intType{bits: 8}
	Int16   ValueType = intType{bits: 16}
	Int32   ValueType = intType{bits: 32}
	Int64   ValueType = intType{bits: 64}
	Uint8   ValueType = uintType{bits: 8}
	Uint16  ValueType = uintType{bits: 16}
	Uint32  ValueType = uintType{bits: 32}
	Uint64  ValueType = uintType{bits: 64}
	Float32 ValueType = floatType{bits: 32}
	Float64 ValueType = floatType{bits: 64}
	Bool    ValueType = boolType{}
	String  ValueType = stringType{}
)

// ArrayOf returns a sequence type. Parameters declared with an array type
// collect every same-named wire entry, in appearance order, into a slice.
func ArrayOf(elem ValueType) ValueType { return arrayType{elem: elem} }

// Enum restricts a string type to a fixed set of values. The values appear
// in the document and are checked during coercion.
func Enum(values ...string) ValueType { return enumType{values: values} }

type intType struct{ bits int }

func (t intType) Name() string { return fmt.Sprintf("integer(int%d)", t.bits) }

func (t intType) Schema() *Schema {
	return NewSchemaWithFormat("integer", fmt.Sprintf("int%d", t.bits))
}

func (t intType) Parse(raw string) (any, error) {
	n, err := strconv.ParseInt(raw, 10, t.bits)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return n, nil
}

type uintType struct{ bits int }

func (t uintType) Name() string { return fmt.Sprintf("integer(uint%d)", t.bits) }

func (t uintType) Schema() *Schema {
	return NewSchemaWithFormat("integer", fmt.Sprintf("uint%d", t.bits))
}

func (t uintType) Parse(raw string) (any, error) {
	n, err := strconv.ParseUint(raw, 10, t.bits)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", raw)
	}
	return n, nil
}

type floatType struct{ bits int }

func (t floatType) Name() string {
	if t.bits == 32 {
		return "number(float)"
	}
	return "number(double)"
}

func (t floatType) Schema() *Schema {
	if t.bits == 32 {
		return NewSchemaWithFormat("number", "float")
	}
	return NewSchemaWithFormat("number", "double")
}

func (t floatType) Parse(raw string) (any, error) {
	f, err := strconv.ParseFloat(raw, t.bits)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", raw)
	}
	return f, nil
}

type boolType struct{}

func (boolType) Name() string    { return "boolean" }
func (boolType) Schema() *Schema { return NewSchema("boolean") }

func (boolType) Parse(raw string) (any, error) {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid boolean %q", raw)
	}
	return b, nil
}

type stringType struct{}

func (stringType) Name() string                { return "string" }
func (stringType) Schema() *Schema             { return NewSchema("string") }
func (stringType) Parse(raw string) (any, error) { return raw, nil }

type arrayType struct{ elem ValueType }

func (t arrayType) Name() string { return fmt.Sprintf("array(%s)", t.elem.Name()) }

func (t arrayType) Schema() *Schema {
	item := InlineSchema(t.elem.Schema())
	return &Schema{Type: "array", Items: &item}
}

// Parse coerces a single element; the binder assembles the slice.
func (t arrayType) Parse(raw string) (any, error) { return t.elem.Parse(raw) }

type enumType struct{ values []string }

func (t enumType) Name() string { return "string(enum)" }

func (t enumType) Schema() *Schema {
	s := NewSchema("string")
	for _, v := range t.values {
		s.Enum = append(s.Enum, v)
	}
	return s
}

func (t enumType) Parse(raw string) (any, error) {
	for _, v := range t.values {
		if raw == v {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("invalid enumeration value %q", raw)
}
