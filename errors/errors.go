// Package errors provides standardized error handling patterns for data mall
// components. It defines the closed error taxonomy every operation surfaces,
// plus helpers for consistent wrapping and classification across the system.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ID identifies a member of the platform error taxonomy.
type ID string

// Taxonomy identifiers. The set is closed: aggregation-layer code must remap
// every backend failure to one of these before it leaves the boundary.
const (
	IDUnknownResource         ID = "unknown-resource"
	IDItemAlreadyExists       ID = "item-already-exists"
	IDInvalidRequestStructure ID = "invalid-request-structure"
	IDInvalidItemID           ID = "invalid-item-id"
	IDInvalidOperation        ID = "invalid-operation"
	IDForbidden               ID = "forbidden"
	IDMissingHeader           ID = "missing-header"
	IDInvalidParametersFormat ID = "invalid-parameters-format"
	IDUnexpectedError         ID = "unexpected-error"

	// Parse-layer identifiers for the type system and series engine.
	IDInvalidEventType ID = "invalid-event-type"
	IDInvalidInputType ID = "invalid-input-type"
	IDParseFailure     ID = "parse-failure"
)

// Error is the structured error every mall operation surfaces. Only ID,
// Message and Data are wire-visible; the wrapped cause is for logs.
type Error struct {
	ID      ID
	Message string
	Data    map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ID, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.ID, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// MarshalJSON serializes the wire-visible form {id, message, data?}.
// The wrapped cause is deliberately omitted.
func (e *Error) MarshalJSON() ([]byte, error) {
	wire := struct {
		ID      ID             `json:"id"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data,omitempty"`
	}{e.ID, e.Message, e.Data}
	return json.Marshal(wire)
}

// New creates a taxonomy error with the given identifier and message.
func New(id ID, message string) *Error {
	return &Error{ID: id, Message: message}
}

// Newf creates a taxonomy error with a formatted message.
func Newf(id ID, format string, args ...any) *Error {
	return &Error{ID: id, Message: fmt.Sprintf(format, args...)}
}

// WithData attaches diagnostic data to the error and returns it.
func (e *Error) WithData(data map[string]any) *Error {
	e.Data = data
	return e
}

// WithCause attaches an underlying cause to the error and returns it.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// NewUnknownResource reports that a referenced item does not exist.
func NewUnknownResource(kind, id string) *Error {
	return Newf(IDUnknownResource, "unknown %s %q", kind, id).
		WithData(map[string]any{"id": id})
}

// NewItemAlreadyExists reports an id or unique-field collision.
// conflicts maps the conflicting field names to their offending values.
func NewItemAlreadyExists(kind string, conflicts map[string]any) *Error {
	return Newf(IDItemAlreadyExists, "%s already exists", kind).
		WithData(conflicts)
}

// NewInvalidRequestStructure reports a malformed request shape.
func NewInvalidRequestStructure(format string, args ...any) *Error {
	return Newf(IDInvalidRequestStructure, format, args...)
}

// NewInvalidItemID reports that an update target vanished.
func NewInvalidItemID(id string) *Error {
	return Newf(IDInvalidItemID, "no item matches id %q", id).
		WithData(map[string]any{"id": id})
}

// NewInvalidOperation reports a structurally valid but impermissible operation.
func NewInvalidOperation(format string, args ...any) *Error {
	return Newf(IDInvalidOperation, format, args...)
}

// NewForbidden reports a failed permission check.
func NewForbidden(message string) *Error {
	return New(IDForbidden, message)
}

// NewParseFailure reports a malformed series envelope or matrix.
func NewParseFailure(format string, args ...any) *Error {
	return Newf(IDParseFailure, format, args...)
}

// NewInvalidEventType reports a type name unknown to the repository.
func NewInvalidEventType(name string) *Error {
	return Newf(IDInvalidEventType, "event type %q does not exist", name).
		WithData(map[string]any{"type": name})
}

// NewInvalidInputType reports a value that cannot be coerced to its declared
// field type, naming the offending field and value.
func NewInvalidInputType(field string, value any) *Error {
	return Newf(IDInvalidInputType, "invalid value for field %q: %v", field, value).
		WithData(map[string]any{"field": field, "value": value})
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w". The result is a plain wrapped error,
// not a taxonomy member; use it below the aggregation boundary.
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapStore remaps a backend-store failure to the taxonomy before it leaves
// the aggregation boundary. Taxonomy errors pass through with the originating
// store attached; anything else becomes UnexpectedError wrapping the cause.
func WrapStore(err error, storeID, component, method string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Data == nil {
			e.Data = map[string]any{}
		}
		if _, ok := e.Data["store"]; !ok {
			e.Data["store"] = storeID
		}
		return e
	}
	return Newf(IDUnexpectedError, "%s.%s: backend store %q failed", component, method, storeID).
		WithData(map[string]any{"store": storeID}).
		WithCause(err)
}

// IDOf returns the taxonomy identifier carried by err, or IDUnexpectedError
// if err carries none. Returns the empty ID for nil.
func IDOf(err error) ID {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ID
	}
	return IDUnexpectedError
}

// HasID reports whether err carries the given taxonomy identifier.
func HasID(err error, id ID) bool {
	var e *Error
	return errors.As(err, &e) && e.ID == id
}

// Is, As and Join re-export the standard library helpers so callers do not
// need a second import for classification.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)
