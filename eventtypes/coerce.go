package eventtypes

import (
	"strconv"

	"github.com/c360/datamall/errors"
)

// Field is the coercion and validation unit for one typed field or column.
type Field struct {
	Name     string
	Type     string // primitive schema type
	Optional bool
}

// Coerce converts a decoded JSON value to the field's declared type.
//
// Numeric strings parse to numbers, booleans accept their string forms.
// Nil passes through unchanged for optional fields only: an absent optional
// cell is legitimate, a null required cell is not.
func (f Field) Coerce(value any) (any, error) {
	if value == nil {
		if f.Optional {
			return nil, nil
		}
		return nil, errors.NewInvalidInputType(f.Name, value)
	}

	switch f.Type {
	case TypeNumber:
		return f.coerceNumber(value)
	case TypeInteger:
		n, err := f.coerceNumber(value)
		if err != nil {
			return nil, err
		}
		num := n.(float64)
		if num != float64(int64(num)) {
			return nil, errors.NewInvalidInputType(f.Name, value)
		}
		return num, nil
	case TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, errors.NewInvalidInputType(f.Name, value)
	case TypeBoolean:
		return f.coerceBool(value)
	case TypeNull:
		return nil, errors.NewInvalidInputType(f.Name, value)
	default:
		// Unconstrained field types pass values through untouched.
		return value, nil
	}
}

func (f Field) coerceNumber(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.NewInvalidInputType(f.Name, value)
		}
		return n, nil
	default:
		return nil, errors.NewInvalidInputType(f.Name, value)
	}
}

func (f Field) coerceBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, errors.NewInvalidInputType(f.Name, value)
}
