package eventtypes

import (
	"github.com/c360/datamall/errors"
)

// SeriesPrefix is the reserved name prefix marking series types.
const SeriesPrefix = "series:"

// TimestampField is the required column every series row carries.
const TimestampField = "timestamp"

// SeriesType wraps a leaf type for high-frequency time-indexed data. It
// prepends the required timestamp column and validates submitted column sets.
type SeriesType struct {
	name string
	leaf EventType
}

// IsSeriesName reports whether the type name carries the series prefix.
func IsSeriesName(name string) bool {
	return len(name) > len(SeriesPrefix) && name[:len(SeriesPrefix)] == SeriesPrefix
}

// Leaf returns the wrapped leaf type.
func (s *SeriesType) Leaf() EventType { return s.leaf }

// Name returns the prefixed catalog name, e.g. "series:mass/kg".
func (s *SeriesType) Name() string { return s.name }

// RequiredFields returns the timestamp column followed by the leaf type's
// required fields.
func (s *SeriesType) RequiredFields() []string {
	return append([]string{TimestampField}, s.leaf.RequiredFields()...)
}

// OptionalFields returns the leaf type's optional fields.
func (s *SeriesType) OptionalFields() []string {
	return s.leaf.OptionalFields()
}

// Fields returns required plus optional column names.
func (s *SeriesType) Fields() []string {
	return append(s.RequiredFields(), s.OptionalFields()...)
}

// ForField returns the coercion unit for one column.
func (s *SeriesType) ForField(name string) (Field, error) {
	if name == TimestampField {
		return Field{Name: TimestampField, Type: TypeNumber}, nil
	}
	return s.leaf.ForField(name)
}

// CoerceContent passes event content through unchanged: the content of a
// series event is backend metadata, the typed data lives in the series rows.
func (s *SeriesType) CoerceContent(content any) (any, error) {
	return content, nil
}

// ValidateColumns checks that a submitted column set is exactly the required
// fields plus a subset of the optional ones, each column at most once.
func (s *SeriesType) ValidateColumns(columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if seen[col] {
			return errors.NewParseFailure("duplicate column %q", col)
		}
		seen[col] = true
	}

	for _, required := range s.RequiredFields() {
		if !seen[required] {
			return errors.NewParseFailure("missing required column %q", required)
		}
		delete(seen, required)
	}
	for _, optional := range s.OptionalFields() {
		delete(seen, optional)
	}
	for col := range seen {
		return errors.NewParseFailure("unknown column %q for type %q", col, s.name)
	}
	return nil
}

// ValidateRows checks the structural shape of submitted rows: every row must
// be exactly width cells wide.
func (s *SeriesType) ValidateRows(rows [][]any, width int) error {
	for i, row := range rows {
		if len(row) != width {
			return errors.NewParseFailure(
				"row %d has %d cells, expected %d", i, len(row), width)
		}
	}
	return nil
}
