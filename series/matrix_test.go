package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/eventtypes"
)

func seriesType(t *testing.T, name string) *eventtypes.SeriesType {
	t.Helper()
	et, err := eventtypes.NewRepository(nil).Lookup(name)
	require.NoError(t, err)
	return et.(*eventtypes.SeriesType)
}

func TestParseFlatJSON(t *testing.T) {
	typ := seriesType(t, "series:mass/kg")

	matrix, err := ParseFlatJSON([]byte(`{
		"format": "flatJSON",
		"fields": ["timestamp", "value"],
		"points": [[1519314345, 10.2]]
	}`), typ)
	require.NoError(t, err)

	assert.Equal(t, 1, matrix.Length())
	assert.Equal(t, []string{"timestamp", "value"}, matrix.Columns)
	assert.Equal(t, []any{float64(1519314345), 10.2}, matrix.Data[0])
}

func TestParseFlatJSONCoercesCells(t *testing.T) {
	typ := seriesType(t, "series:mass/kg")

	matrix, err := ParseFlatJSON([]byte(`{
		"format": "flatJSON",
		"fields": ["timestamp", "value"],
		"points": [["1519314345", "10.2"], [1519314346, 11]]
	}`), typ)
	require.NoError(t, err)

	assert.Equal(t, []any{float64(1519314345), 10.2}, matrix.Data[0])
	assert.Equal(t, []any{float64(1519314346), float64(11)}, matrix.Data[1])
}

func TestParseFlatJSONFailures(t *testing.T) {
	typ := seriesType(t, "series:mass/kg")

	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"wrong format", `{"format": "columnar", "fields": ["timestamp", "value"], "points": []}`},
		{"missing fields", `{"format": "flatJSON", "points": [[1, 2]]}`},
		{"missing points", `{"format": "flatJSON", "fields": ["timestamp", "value"]}`},
		{"bogus column", `{"format": "flatJSON", "fields": ["timestamp", "bogus"], "points": [[1519314345, 10.2]]}`},
		{"duplicate column", `{"format": "flatJSON", "fields": ["timestamp", "value", "value"], "points": [[1, 2, 3]]}`},
		{"missing required column", `{"format": "flatJSON", "fields": ["timestamp"], "points": [[1]]}`},
		{"ragged row", `{"format": "flatJSON", "fields": ["timestamp", "value"], "points": [[1, 2], [3]]}`},
		{"uncoercible cell", `{"format": "flatJSON", "fields": ["timestamp", "value"], "points": [[1, "heavy"]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFlatJSON([]byte(tt.body), typ)
			require.Error(t, err)
			assert.Equal(t, errors.IDParseFailure, errors.IDOf(err))
		})
	}
}

// Every matrix accepted by the parser is rectangular.
func TestParseFlatJSONRectangularity(t *testing.T) {
	typ := seriesType(t, "series:position/wgs84")

	matrix, err := ParseFlatJSON([]byte(`{
		"format": "flatJSON",
		"fields": ["timestamp", "latitude", "longitude", "altitude"],
		"points": [
			[1, 46.5, 6.6, 372],
			[2, 46.6, 6.7, null],
			[3, 46.7, 6.8, 375]
		]
	}`), typ)
	require.NoError(t, err)

	for _, row := range matrix.Data {
		assert.Len(t, row, len(matrix.Columns))
	}
}

func TestParseFlatJSONDeltaTime(t *testing.T) {
	typ := seriesType(t, "series:mass/kg")

	matrix, err := ParseFlatJSON([]byte(`{
		"format": "flatJSON",
		"fields": ["deltaTime", "value"],
		"points": [[12.5, 10.2]]
	}`), typ)
	require.NoError(t, err)
	assert.Equal(t, []string{"deltaTime", "value"}, matrix.Columns,
		"submitted column name is preserved")

	min, max, err := matrix.MinMax()
	require.NoError(t, err)
	assert.Equal(t, 12.5, min)
	assert.Equal(t, 12.5, max)
}

func TestMinMax(t *testing.T) {
	matrix := &DataMatrix{
		Columns: []string{"timestamp", "value"},
		Data: [][]any{
			{5.0, 1.0},
			{2.0, 2.0},
			{9.0, 3.0},
		},
	}

	min, max, err := matrix.MinMax()
	require.NoError(t, err)
	assert.Equal(t, 2.0, min)
	assert.Equal(t, 9.0, max)
}

func TestMinMaxEmptyMatrix(t *testing.T) {
	matrix := &DataMatrix{Columns: []string{"timestamp", "value"}}

	_, _, err := matrix.MinMax()
	require.Error(t, err)
	assert.Equal(t, errors.IDInvalidOperation, errors.IDOf(err))
}

func TestToPoints(t *testing.T) {
	matrix := &DataMatrix{
		Columns: []string{"timestamp", "value"},
		Data: [][]any{
			{1.0, 10.2},
			{2.0, 10.4},
		},
	}

	points, err := matrix.ToPoints("ev-1")
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, Point{Measurement: "ev-1", Timestamp: 1.0, Values: map[string]any{"value": 10.2}}, points[0])
	assert.Equal(t, Point{Measurement: "ev-1", Timestamp: 2.0, Values: map[string]any{"value": 10.4}}, points[1])
}
