package series

import "context"

// Point is one backend write unit: a measurement row keyed by its timestamp.
type Point struct {
	Measurement string
	Timestamp   float64
	Values      map[string]any
}

// Query bounds a series read. Nil bounds are open; bounds are inclusive.
type Query struct {
	From *float64
	To   *float64
}

// Backend is the client contract for the physical time-series store: one
// database per storage namespace, one measurement per event.
//
// Implementations are thin, logged wrappers around the physical store and
// propagate backend errors unchanged; remapping to the platform taxonomy
// happens in the aggregation layer.
type Backend interface {
	// CreateDatabase ensures the database for a namespace exists.
	CreateDatabase(ctx context.Context, namespace string) error

	// DropDatabase removes a namespace's database and all its measurements.
	DropDatabase(ctx context.Context, namespace string) error

	// WriteMeasurement writes points that all belong to one measurement.
	WriteMeasurement(ctx context.Context, namespace, measurement string, points []Point) error

	// WritePoints writes a mixed-measurement point batch in one call.
	WritePoints(ctx context.Context, namespace string, points []Point) error

	// Query reads the points of one measurement within the query bounds,
	// returned as a matrix ordered by timestamp.
	Query(ctx context.Context, namespace, measurement string, q Query) (*DataMatrix, error)

	// DropMeasurement removes one measurement and its points.
	DropMeasurement(ctx context.Context, namespace, measurement string) error
}
