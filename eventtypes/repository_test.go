package eventtypes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/datamall/errors"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(nil)
}

func TestLookupBasic(t *testing.T) {
	repo := newTestRepository(t)

	et, err := repo.Lookup("mass/kg")
	require.NoError(t, err)

	assert.Equal(t, "mass/kg", et.Name())
	assert.Equal(t, []string{"value"}, et.RequiredFields())
	assert.Empty(t, et.OptionalFields())

	field, err := et.ForField("value")
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, field.Type)

	_, err = et.ForField("bogus")
	assert.Error(t, err)
}

func TestLookupUnknown(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Lookup("no-such/type")
	require.Error(t, err)
	assert.Equal(t, errors.IDInvalidEventType, errors.IDOf(err))

	assert.False(t, repo.IsKnown("no-such/type"))
	assert.False(t, repo.IsKnown("series:no-such/type"))
	assert.True(t, repo.IsKnown("mass/kg"))
	assert.True(t, repo.IsKnown("series:mass/kg"))
}

func TestLookupComplex(t *testing.T) {
	repo := newTestRepository(t)

	et, err := repo.Lookup("position/wgs84")
	require.NoError(t, err)

	assert.Equal(t, []string{"latitude", "longitude"}, et.RequiredFields())
	assert.Equal(t, []string{"altitude", "horizontalAccuracy"}, et.OptionalFields())

	lat, err := et.ForField("latitude")
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, lat.Type)
	assert.False(t, lat.Optional)

	alt, err := et.ForField("altitude")
	require.NoError(t, err)
	assert.True(t, alt.Optional)
}

func TestComplexDottedPathResolution(t *testing.T) {
	repo := NewRepository(&Catalog{Types: map[string]*Schema{
		"message/telegram": {
			Type: TypeObject,
			Properties: map[string]*Schema{
				"text": {Type: TypeString},
				"sender": {
					Type: TypeObject,
					Properties: map[string]*Schema{
						"id":   {Type: TypeString},
						"name": {Type: TypeString},
					},
					Required: []string{"id"},
				},
			},
			Required: []string{"text", "sender"},
		},
	}})

	et, err := repo.Lookup("message/telegram")
	require.NoError(t, err)

	field, err := et.ForField("sender.id")
	require.NoError(t, err)
	assert.Equal(t, TypeString, field.Type)
	assert.False(t, field.Optional)

	nested, err := et.ForField("sender.name")
	require.NoError(t, err)
	assert.True(t, nested.Optional, "optionality is inherited along the path")

	// A path stopping at an object is not a usable field.
	_, err = et.ForField("sender")
	assert.Error(t, err)

	// A path descending through a leaf fails too.
	_, err = et.ForField("text.inner")
	assert.Error(t, err)
}

func TestLookupSeries(t *testing.T) {
	repo := newTestRepository(t)

	et, err := repo.Lookup("series:mass/kg")
	require.NoError(t, err)

	series, ok := et.(*SeriesType)
	require.True(t, ok)

	assert.Equal(t, "series:mass/kg", series.Name())
	assert.Equal(t, []string{"timestamp", "value"}, series.RequiredFields())
	assert.Empty(t, series.OptionalFields())
	assert.Equal(t, "mass/kg", series.Leaf().Name())

	ts, err := series.ForField("timestamp")
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, ts.Type)
}

func TestSeriesValidateColumns(t *testing.T) {
	repo := newTestRepository(t)

	positionSeries, err := repo.Lookup("series:position/wgs84")
	require.NoError(t, err)
	series := positionSeries.(*SeriesType)

	tests := []struct {
		name    string
		columns []string
		wantErr bool
	}{
		{"required only", []string{"timestamp", "latitude", "longitude"}, false},
		{"required plus optional", []string{"timestamp", "latitude", "longitude", "altitude"}, false},
		{"missing timestamp", []string{"latitude", "longitude"}, true},
		{"missing required leaf field", []string{"timestamp", "latitude"}, true},
		{"duplicate column", []string{"timestamp", "latitude", "latitude", "longitude"}, true},
		{"unknown column", []string{"timestamp", "latitude", "longitude", "bogus"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := series.ValidateColumns(tt.columns)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.IDParseFailure, errors.IDOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		in      any
		want    any
		wantErr bool
	}{
		{"number passthrough", Field{Name: "v", Type: TypeNumber}, 10.2, 10.2, false},
		{"numeric string parsed", Field{Name: "v", Type: TypeNumber}, "10.2", 10.2, false},
		{"bad numeric string", Field{Name: "v", Type: TypeNumber}, "ten", nil, true},
		{"integer accepts whole", Field{Name: "v", Type: TypeInteger}, float64(4), float64(4), false},
		{"integer rejects fraction", Field{Name: "v", Type: TypeInteger}, 4.5, nil, true},
		{"bool passthrough", Field{Name: "v", Type: TypeBoolean}, true, true, false},
		{"bool from string", Field{Name: "v", Type: TypeBoolean}, "false", false, false},
		{"bad bool string", Field{Name: "v", Type: TypeBoolean}, "yes", nil, true},
		{"string passthrough", Field{Name: "v", Type: TypeString}, "hi", "hi", false},
		{"string rejects number", Field{Name: "v", Type: TypeString}, 3.0, nil, true},
		{"nil optional passes", Field{Name: "v", Type: TypeNumber, Optional: true}, nil, nil, false},
		{"nil required fails", Field{Name: "v", Type: TypeNumber}, nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Coerce(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.IDInvalidInputType, errors.IDOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceContentComplex(t *testing.T) {
	repo := newTestRepository(t)
	et, err := repo.Lookup("position/wgs84")
	require.NoError(t, err)

	coerced, err := et.CoerceContent(map[string]any{
		"latitude":  "46.5",
		"longitude": 6.6,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"latitude": 46.5, "longitude": 6.6}, coerced)

	_, err = et.CoerceContent(map[string]any{"latitude": 46.5})
	require.Error(t, err, "missing required longitude")

	_, err = et.CoerceContent(map[string]any{
		"latitude": 46.5, "longitude": 6.6, "bogus": 1,
	})
	require.Error(t, err, "unknown field rejected")
}

func TestTryUpdateMergesValidCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"version": "2.1.0",
			"types": {
				"pressure/mmhg": {"type": "number"},
				"mass/kg": {"type": "number"}
			}
		}`))
	}))
	defer server.Close()

	repo := newTestRepository(t)
	require.NoError(t, repo.TryUpdate(context.Background(), server.URL))

	assert.True(t, repo.IsKnown("pressure/mmhg"))
	assert.True(t, repo.IsKnown("note/txt"), "existing entries survive the merge")
	assert.Equal(t, "2.1.0", repo.Version())
}

func TestTryUpdateRejectsInvalidCatalog(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"missing types", `{"version": "1.0.0"}`},
		{"bad schema type", `{"types": {"x/y": {"type": "banana"}}}`},
		{"schema without type", `{"types": {"x/y": {}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, _ *http.Request) {
					_, _ = w.Write([]byte(tt.body))
				}))
			defer server.Close()

			repo := newTestRepository(t)
			before := repo.Version()

			err := repo.TryUpdate(context.Background(), server.URL)
			require.Error(t, err)

			// No partial merge: the catalog is untouched.
			assert.Equal(t, before, repo.Version())
			assert.False(t, repo.IsKnown("x/y"))
			assert.True(t, repo.IsKnown("mass/kg"))
		})
	}
}

func TestTryUpdateTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
	defer server.Close()

	repo := newTestRepository(t)
	err := repo.TryUpdate(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, repo.IsKnown("mass/kg"))
}
