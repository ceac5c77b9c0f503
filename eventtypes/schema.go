package eventtypes

import (
	"encoding/json"

	"github.com/c360/datamall/errors"
)

// Schema is the declarative shape of an event type, a restricted JSON Schema
// subset: a primitive leaf or an object with named properties.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// Primitive type names accepted in schemas.
const (
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeNull    = "null"
)

// IsObject reports whether the schema declares a complex object type.
func (s *Schema) IsObject() bool {
	return s.Type == TypeObject
}

// isRequired reports whether the named property is in the required list.
func (s *Schema) isRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Catalog maps event type names to their schemas. Names follow the
// "class/format" convention, e.g. "mass/kg" or "position/wgs84".
type Catalog struct {
	Version string             `json:"version,omitempty"`
	Types   map[string]*Schema `json:"types"`
}

// ParseCatalog decodes a catalog document and checks its basic shape.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.NewParseFailure("malformed type catalog: %v", err)
	}
	if c.Types == nil {
		return nil, errors.NewParseFailure("type catalog has no types map")
	}
	return &c, nil
}
