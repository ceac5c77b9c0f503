package series

import (
	"encoding/json"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/eventtypes"
)

// FormatFlatJSON is the envelope format of a single data matrix.
const FormatFlatJSON = "flatJSON"

// DeltaTimeField is the alternative name of the time column used by older
// clients; it is equivalent to the timestamp column.
const DeltaTimeField = "deltaTime"

// DataMatrix is the in-memory columnar representation of a batch of series
// points: an ordered column list plus equal-length rows.
//
// Invariant: len(row) == len(Columns) for every row. Matrices produced by
// Parse respect it; code building matrices by hand must too.
type DataMatrix struct {
	Columns []string `json:"fields"`
	Data    [][]any  `json:"points"`
}

// Length returns the number of rows.
func (m *DataMatrix) Length() int {
	return len(m.Data)
}

// timeColumn returns the index of the timestamp (or deltaTime) column.
func (m *DataMatrix) timeColumn() (int, error) {
	for i, col := range m.Columns {
		if col == eventtypes.TimestampField || col == DeltaTimeField {
			return i, nil
		}
	}
	return 0, errors.NewParseFailure("matrix has no timestamp column")
}

// MinMax returns the smallest and largest value of the timestamp column.
// It fails on an empty matrix.
func (m *DataMatrix) MinMax() (float64, float64, error) {
	if m.Length() == 0 {
		return 0, 0, errors.NewInvalidOperation("minmax of an empty matrix")
	}
	col, err := m.timeColumn()
	if err != nil {
		return 0, 0, err
	}

	min, ok := asFloat(m.Data[0][col])
	if !ok {
		return 0, 0, errors.NewParseFailure("non-numeric timestamp in row 0")
	}
	max := min
	for i, row := range m.Data[1:] {
		v, ok := asFloat(row[col])
		if !ok {
			return 0, 0, errors.NewParseFailure("non-numeric timestamp in row %d", i+1)
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, nil
}

// flatJSONEnvelope is the decoded wire form before validation.
type flatJSONEnvelope struct {
	Format string   `json:"format"`
	Fields []string `json:"fields"`
	Points [][]any  `json:"points"`
}

// ParseFlatJSON validates and coerces a flatJSON envelope against a series
// type and returns the resulting matrix.
//
// Validation order: envelope shape, column set, row shape, then per-cell
// coercion. The first violation aborts the parse.
func ParseFlatJSON(raw []byte, typ *eventtypes.SeriesType) (*DataMatrix, error) {
	var envelope flatJSONEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.NewParseFailure("malformed flatJSON envelope: %v", err)
	}
	return parseFlatJSON(&envelope, typ)
}

func parseFlatJSON(envelope *flatJSONEnvelope, typ *eventtypes.SeriesType) (*DataMatrix, error) {
	if envelope.Format != FormatFlatJSON {
		return nil, errors.NewParseFailure(
			"unexpected format %q, want %q", envelope.Format, FormatFlatJSON)
	}
	if len(envelope.Fields) == 0 {
		return nil, errors.NewParseFailure("flatJSON envelope has no fields")
	}
	if envelope.Points == nil {
		return nil, errors.NewParseFailure("flatJSON envelope has no points")
	}

	if err := typ.ValidateColumns(normalizeColumns(envelope.Fields)); err != nil {
		return nil, err
	}
	if err := typ.ValidateRows(envelope.Points, len(envelope.Fields)); err != nil {
		return nil, err
	}

	fields := make([]eventtypes.Field, len(envelope.Fields))
	for i, col := range envelope.Fields {
		field, err := typ.ForField(normalizeColumn(col))
		if err != nil {
			return nil, errors.NewParseFailure("unusable column %q: %v", col, err)
		}
		fields[i] = field
	}

	data := make([][]any, len(envelope.Points))
	for r, row := range envelope.Points {
		coerced := make([]any, len(row))
		for c, cell := range row {
			value, err := fields[c].Coerce(cell)
			if err != nil {
				return nil, errors.NewParseFailure(
					"row %d, column %q: %v", r, envelope.Fields[c], err).WithCause(err)
			}
			coerced[c] = value
		}
		data[r] = coerced
	}

	return &DataMatrix{Columns: envelope.Fields, Data: data}, nil
}

// normalizeColumn maps the legacy deltaTime column name onto timestamp for
// type validation while the matrix keeps the submitted name.
func normalizeColumn(col string) string {
	if col == DeltaTimeField {
		return eventtypes.TimestampField
	}
	return col
}

func normalizeColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = normalizeColumn(col)
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
