package operon

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Schema describes the shape of a value for both documentation and binding.
// A Schema is either a primitive (Type + Format), an object (Properties +
// Required), an array (Items), or an enum (Enum on a primitive type).
type Schema struct {
	Type        string
	Format      string
	Description string

	// Object shape. Properties preserve declaration order.
	Properties []Property
	Required   []string

	// Array shape.
	Items *SchemaRef

	// Enum values, on top of a primitive type.
	Enum []any

	// Default value recorded in the document when a parameter declares a
	// default producer.
	Default any

	// Constraints contributed by the validator chain.
	Maximum          *float64
	Minimum          *float64
	ExclusiveMaximum bool
	ExclusiveMinimum bool
	MaxLength        *uint64
	MinLength        uint64
	Pattern          string
}

// Property is a single named field of an object schema.
type Property struct {
	Name   string
	Schema SchemaRef
}

// SchemaRef points at a schema either inline or by registered name.
// Exactly one of Ref and Value is set.
type SchemaRef struct {
	Ref   string
	Value *Schema
}

// NamedRef returns a reference to a registered schema.
func NamedRef(name string) SchemaRef { return SchemaRef{Ref: name} }

// InlineSchema wraps a schema value as an inline reference.
func InlineSchema(s *Schema) SchemaRef { return SchemaRef{Value: s} }

// NewSchema returns a schema with the given type and no format.
func NewSchema(typ string) *Schema { return &Schema{Type: typ} }

// NewSchemaWithFormat returns a primitive schema with an explicit format tag.
func NewSchemaWithFormat(typ, format string) *Schema {
	return &Schema{Type: typ, Format: format}
}

// BinarySchema is the sentinel shape used for raw binary payloads.
func BinarySchema() *Schema { return NewSchemaWithFormat("string", "binary") }

// ArraySchema returns an array schema with the given item shape.
func ArraySchema(item SchemaRef) *Schema { return &Schema{Type: "array", Items: &item} }

// schemaEqual reports structural equality between two schemas. Constraint
// fields participate so that two same-named registrations with different
// validator-derived bounds are treated as a conflict.
func schemaEqual(a, b *Schema) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Format != b.Format || a.Pattern != b.Pattern {
		return false
	}
	if len(a.Properties) != len(b.Properties) || len(a.Required) != len(b.Required) || len(a.Enum) != len(b.Enum) {
		return false
	}
	for i, p := range a.Properties {
		q := b.Properties[i]
		if p.Name != q.Name || !schemaRefEqual(p.Schema, q.Schema) {
			return false
		}
	}
	for i, r := range a.Required {
		if r != b.Required[i] {
			return false
		}
	}
	for i, e := range a.Enum {
		if !reflect.DeepEqual(e, b.Enum[i]) {
			return false
		}
	}
	if (a.Items == nil) != (b.Items == nil) {
		return false
	}
	if a.Items != nil && !schemaRefEqual(*a.Items, *b.Items) {
		return false
	}
	if !floatPtrEqual(a.Maximum, b.Maximum) || !floatPtrEqual(a.Minimum, b.Minimum) {
		return false
	}
	if a.ExclusiveMaximum != b.ExclusiveMaximum || a.ExclusiveMinimum != b.ExclusiveMinimum {
		return false
	}
	if a.MinLength != b.MinLength {
		return false
	}
	if (a.MaxLength == nil) != (b.MaxLength == nil) {
		return false
	}
	if a.MaxLength != nil && *a.MaxLength != *b.MaxLength {
		return false
	}
	return true
}

func schemaRefEqual(a, b SchemaRef) bool {
	if a.Ref != "" || b.Ref != "" {
		return a.Ref == b.Ref
	}
	return schemaEqual(a.Value, b.Value)
}

func floatPtrEqual(a, b *float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

var timeType = reflect.TypeOf(time.Time{})

// SchemaOf derives a schema reference from a Go type. Struct types are
// registered under their type name and returned as a named reference;
// primitives, slices and maps produce inline shapes. Field names follow the
// json tag when present, so the wire name and the documented name are always
// the same identifier.
func (r *SchemaRegistry) SchemaOf(t reflect.Type) (SchemaRef, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return InlineSchema(NewSchema("boolean")), nil
	case reflect.Int8:
		return InlineSchema(NewSchemaWithFormat("integer", "int8")), nil
	case reflect.Int16:
		return InlineSchema(NewSchemaWithFormat("integer", "int16")), nil
	case reflect.Int32, reflect.Int:
		return InlineSchema(NewSchemaWithFormat("integer", "int32")), nil
	case reflect.Int64:
		return InlineSchema(NewSchemaWithFormat("integer", "int64")), nil
	case reflect.Uint8:
		return InlineSchema(NewSchemaWithFormat("integer", "uint8")), nil
	case reflect.Uint16:
		return InlineSchema(NewSchemaWithFormat("integer", "uint16")), nil
	case reflect.Uint32, reflect.Uint:
		return InlineSchema(NewSchemaWithFormat("integer", "uint32")), nil
	case reflect.Uint64:
		return InlineSchema(NewSchemaWithFormat("integer", "uint64")), nil
	case reflect.Float32:
		return InlineSchema(NewSchemaWithFormat("number", "float")), nil
	case reflect.Float64:
		return InlineSchema(NewSchemaWithFormat("number", "double")), nil
	case reflect.String:
		return InlineSchema(NewSchema("string")), nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return InlineSchema(BinarySchema()), nil
		}
		item, err := r.SchemaOf(t.Elem())
		if err != nil {
			return SchemaRef{}, err
		}
		return InlineSchema(&Schema{Type: "array", Items: &item}), nil
	case reflect.Map, reflect.Interface:
		return InlineSchema(NewSchema("object")), nil
	case reflect.Struct:
		if t == timeType {
			return InlineSchema(NewSchemaWithFormat("string", "date-time")), nil
		}
		return r.structSchema(t)
	default:
		return SchemaRef{}, fmt.Errorf("operon: cannot derive schema for %s", t)
	}
}

func (r *SchemaRegistry) structSchema(t reflect.Type) (SchemaRef, error) {
	name := t.Name()
	if name == "" {
		s, err := r.buildObject(t)
		if err != nil {
			return SchemaRef{}, err
		}
		return InlineSchema(s), nil
	}
	if r.reserve(name) {
		// Already registered or currently being built; forward reference.
		return NamedRef(name), nil
	}
	s, err := r.buildObject(t)
	if err != nil {
		r.release(name)
		return SchemaRef{}, err
	}
	if err := r.fill(name, s); err != nil {
		return SchemaRef{}, err
	}
	return NamedRef(name), nil
}

func (r *SchemaRegistry) buildObject(t reflect.Type) (*Schema, error) {
	s := NewSchema("object")
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitempty := jsonFieldName(f)
		if name == "" {
			continue
		}
		ref, err := r.SchemaOf(f.Type)
		if err != nil {
			return nil, err
		}
		s.Properties = append(s.Properties, Property{Name: name, Schema: ref})
		if !omitempty && f.Type.Kind() != reflect.Pointer {
			s.Required = append(s.Required, name)
		}
	}
	return s, nil
}

func jsonFieldName(f reflect.StructField) (name string, omitempty bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = f.Name
	}
	for _, opt := range parts[1:] {
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty
}
