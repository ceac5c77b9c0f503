// Package errors provides the standardized error taxonomy for the data mall.
//
// # Overview
//
// Every operation crossing the aggregation boundary surfaces failures as a
// single structured object carrying a stable identifier, a human-readable
// message and optional diagnostic data. Backend-store causes are wrapped and
// kept for logging but never appear in the serialized form.
//
// # Taxonomy
//
// The identifiers are closed and shared by every component:
//
//   - UnknownResource: a referenced event, stream or attachment does not exist
//   - ItemAlreadyExists: id or sibling-name collision on create/update
//   - InvalidRequestStructure: malformed request shape, including ids that mix
//     backend stores where a single store is required
//   - InvalidItemID: an update target vanished between planning and execution
//   - InvalidOperation: the operation is structurally valid but not permitted
//     by the data (series write against a non-series type, trashed parent, ...)
//   - Forbidden: the credential does not grant the required permission
//   - MissingHeader, InvalidParametersFormat: malformed query parameters
//   - UnexpectedError: opaque backend failure, wrapping the original cause
//
// Parse-layer failures use three additional identifiers: InvalidEventType
// (type name unknown to the repository), InvalidInputType (a value cannot be
// coerced to its declared field type) and ParseFailure (malformed series
// envelope or matrix).
//
// # Usage
//
// Construct taxonomy errors where the condition is detected:
//
//	return errors.NewUnknownResource("event", eventID)
//
// Wrap backend causes at the aggregation boundary, attaching the originating
// store for diagnostics:
//
//	if err := s.store.Update(ctx, uid, update); err != nil {
//	    return errors.WrapStore(err, storeID, "Events", "Update")
//	}
//
// Classification goes through identifiers, never string matching:
//
//	if errors.HasID(err, errors.IDItemAlreadyExists) { ... }
//
// *Error implements Unwrap, so the standard errors.Is and errors.As walk
// through wrapped causes as usual.
package errors
