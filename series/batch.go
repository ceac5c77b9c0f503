package series

import (
	"context"
	"encoding/json"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/eventtypes"
)

// FormatSeriesBatch is the envelope format of a multi-event batch.
const FormatSeriesBatch = "seriesBatch"

// BatchEntry is one element of a batch request: a target event and the
// parsed matrix destined for it.
type BatchEntry struct {
	EventID string
	Matrix  *DataMatrix
}

// BatchRequest is an ordered list of batch entries, possibly spanning
// several storage namespaces.
type BatchRequest struct {
	Entries []BatchEntry
}

// TypeResolver resolves an event id to its series type. The aggregation
// layer injects it so the parse step carries no store knowledge.
type TypeResolver func(ctx context.Context, eventID string) (*eventtypes.SeriesType, error)

// batchEnvelope is the decoded wire form before validation.
type batchEnvelope struct {
	Format string `json:"format"`
	Data   []struct {
		EventID string          `json:"eventId"`
		Data    json.RawMessage `json:"data"`
	} `json:"data"`
}

// ParseBatch validates a seriesBatch envelope, resolving each element's type
// through resolve and delegating matrix parsing to ParseFlatJSON. Any single
// element failure aborts the whole parse: there is no partial batch.
func ParseBatch(ctx context.Context, raw []byte, resolve TypeResolver) (*BatchRequest, error) {
	var envelope batchEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.NewParseFailure("malformed seriesBatch envelope: %v", err)
	}
	if envelope.Format != FormatSeriesBatch {
		return nil, errors.NewParseFailure(
			"unexpected format %q, want %q", envelope.Format, FormatSeriesBatch)
	}
	if envelope.Data == nil {
		return nil, errors.NewParseFailure("seriesBatch envelope has no data list")
	}

	req := &BatchRequest{Entries: make([]BatchEntry, 0, len(envelope.Data))}
	for i, element := range envelope.Data {
		if element.EventID == "" {
			return nil, errors.NewParseFailure("batch element %d has no eventId", i)
		}
		typ, err := resolve(ctx, element.EventID)
		if err != nil {
			return nil, err
		}
		matrix, err := ParseFlatJSON(element.Data, typ)
		if err != nil {
			return nil, errors.NewParseFailure(
				"batch element %d (event %q): %v", i, element.EventID, err).WithCause(err)
		}
		req.Entries = append(req.Entries, BatchEntry{EventID: element.EventID, Matrix: matrix})
	}
	return req, nil
}

// NamespaceResolver resolves an event id to the storage namespace and
// measurement name its points are written to.
type NamespaceResolver func(ctx context.Context, eventID string) (namespace, measurement string, err error)

// NamespaceBatch is the portion of a batch request destined for one storage
// namespace, flattened to backend points.
type NamespaceBatch struct {
	Namespace string
	Points    []Point
}

// GroupByNamespace splits a batch request into per-namespace batches,
// converting every matrix row into a backend point keyed by its timestamp
// column. Entry order is preserved within a namespace.
func GroupByNamespace(ctx context.Context, req *BatchRequest, resolve NamespaceResolver) ([]*NamespaceBatch, error) {
	byNamespace := map[string]*NamespaceBatch{}
	var order []string

	for _, entry := range req.Entries {
		namespace, measurement, err := resolve(ctx, entry.EventID)
		if err != nil {
			return nil, err
		}
		points, err := entry.Matrix.ToPoints(measurement)
		if err != nil {
			return nil, err
		}

		batch, ok := byNamespace[namespace]
		if !ok {
			batch = &NamespaceBatch{Namespace: namespace}
			byNamespace[namespace] = batch
			order = append(order, namespace)
		}
		batch.Points = append(batch.Points, points...)
	}

	batches := make([]*NamespaceBatch, len(order))
	for i, namespace := range order {
		batches[i] = byNamespace[namespace]
	}
	return batches, nil
}

// Store writes the whole batch as a single physical write to the backend.
func (b *NamespaceBatch) Store(ctx context.Context, backend Backend) error {
	return backend.WritePoints(ctx, b.Namespace, b.Points)
}

// ToPoints converts every matrix row into a backend point for the given
// measurement. The timestamp column becomes the point key; the remaining
// columns become point values.
func (m *DataMatrix) ToPoints(measurement string) ([]Point, error) {
	timeCol, err := m.timeColumn()
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(m.Data))
	for i, row := range m.Data {
		ts, ok := asFloat(row[timeCol])
		if !ok {
			return nil, errors.NewParseFailure("non-numeric timestamp in row %d", i)
		}
		values := make(map[string]any, len(row)-1)
		for c, cell := range row {
			if c == timeCol {
				continue
			}
			values[m.Columns[c]] = cell
		}
		points[i] = Point{Measurement: measurement, Timestamp: ts, Values: values}
	}
	return points, nil
}
