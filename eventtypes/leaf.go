package eventtypes

import (
	"sort"
	"strings"

	"github.com/c360/datamall/errors"
)

// EventType describes the content shape of one event type and exposes the
// per-field coercion units used by both event validation and the series
// engine.
type EventType interface {
	// Name returns the catalog name, including the series prefix for
	// series types.
	Name() string

	// RequiredFields returns the field names that must be present.
	RequiredFields() []string

	// OptionalFields returns the field names that may be present.
	OptionalFields() []string

	// Fields returns required plus optional field names, required first.
	Fields() []string

	// ForField returns the coercion unit for the named field. Complex types
	// resolve dotted paths into nested objects; resolution fails if the path
	// does not terminate at a non-object field.
	ForField(name string) (Field, error)

	// CoerceContent validates event content against the type and returns the
	// coerced form.
	CoerceContent(content any) (any, error)
}

// basicType is a leaf type holding a single primitive "value" field.
type basicType struct {
	name  string
	value Field
}

func (b *basicType) Name() string             { return b.name }
func (b *basicType) RequiredFields() []string { return []string{"value"} }
func (b *basicType) OptionalFields() []string { return nil }
func (b *basicType) Fields() []string         { return []string{"value"} }

func (b *basicType) ForField(name string) (Field, error) {
	if name != "value" {
		return Field{}, errors.Newf(errors.IDInvalidEventType,
			"type %q has no field %q", b.name, name)
	}
	return b.value, nil
}

func (b *basicType) CoerceContent(content any) (any, error) {
	return b.value.Coerce(content)
}

// complexType is a leaf type with schema-declared named fields.
type complexType struct {
	name   string
	schema *Schema
}

func (c *complexType) Name() string { return c.name }

func (c *complexType) RequiredFields() []string {
	return append([]string(nil), c.schema.Required...)
}

func (c *complexType) OptionalFields() []string {
	var optional []string
	for name := range c.schema.Properties {
		if !c.schema.isRequired(name) {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	return optional
}

func (c *complexType) Fields() []string {
	return append(c.RequiredFields(), c.OptionalFields()...)
}

func (c *complexType) ForField(name string) (Field, error) {
	schema := c.schema
	optional := false
	segments := strings.Split(name, ".")

	for i, segment := range segments {
		if !schema.IsObject() {
			return Field{}, errors.Newf(errors.IDInvalidEventType,
				"type %q: field path %q descends into non-object %q",
				c.name, name, strings.Join(segments[:i], "."))
		}
		prop, ok := schema.Properties[segment]
		if !ok {
			return Field{}, errors.Newf(errors.IDInvalidEventType,
				"type %q has no field %q", c.name, name)
		}
		if !schema.isRequired(segment) {
			optional = true
		}
		schema = prop
	}

	if schema.IsObject() {
		return Field{}, errors.Newf(errors.IDInvalidEventType,
			"type %q: field path %q does not terminate at a leaf field", c.name, name)
	}
	return Field{Name: name, Type: schema.Type, Optional: optional}, nil
}

func (c *complexType) CoerceContent(content any) (any, error) {
	return coerceObject(c.name, "", c.schema, content)
}

// coerceObject recursively validates and coerces an object value against an
// object schema. path carries the dotted prefix for error reporting.
func coerceObject(typeName, path string, schema *Schema, value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, errors.NewInvalidInputType(fieldPath(path, ""), value)
	}

	out := make(map[string]any, len(obj))
	for _, required := range schema.Required {
		if _, present := obj[required]; !present {
			return nil, errors.Newf(errors.IDInvalidInputType,
				"type %q: missing required field %q", typeName, fieldPath(path, required))
		}
	}
	for name, raw := range obj {
		prop, known := schema.Properties[name]
		if !known {
			return nil, errors.Newf(errors.IDInvalidInputType,
				"type %q: unknown field %q", typeName, fieldPath(path, name))
		}
		if prop.IsObject() {
			coerced, err := coerceObject(typeName, fieldPath(path, name), prop, raw)
			if err != nil {
				return nil, err
			}
			out[name] = coerced
			continue
		}
		field := Field{
			Name:     fieldPath(path, name),
			Type:     prop.Type,
			Optional: !schema.isRequired(name),
		}
		coerced, err := field.Coerce(raw)
		if err != nil {
			return nil, err
		}
		out[name] = coerced
	}
	return out, nil
}

func fieldPath(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}
