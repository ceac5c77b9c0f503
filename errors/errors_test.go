package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := Newf(IDUnknownResource, "unknown event %q", "e1")
	assert.Equal(t, `unknown-resource: unknown event "e1"`, err.Error())

	withCause := New(IDUnexpectedError, "backend failed").WithCause(stderrors.New("boom"))
	assert.Equal(t, "unexpected-error: backend failed: boom", withCause.Error())
}

func TestMarshalJSONOmitsCause(t *testing.T) {
	err := NewUnknownResource("event", "e1").WithCause(stderrors.New("internal detail"))

	raw, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))

	assert.Equal(t, "unknown-resource", wire["id"])
	assert.NotContains(t, wire, "cause")
	assert.NotContains(t, fmt.Sprintf("%s", raw), "internal detail")
}

func TestMarshalJSONOmitsEmptyData(t *testing.T) {
	err := New(IDForbidden, "no read access")

	raw, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.NotContains(t, wire, "data")
}

func TestWrapStoreRemapsOpaqueErrors(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := WrapStore(cause, "storeA", "Events", "Get")

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, IDUnexpectedError, e.ID)
	assert.Equal(t, "storeA", e.Data["store"])
	assert.True(t, stderrors.Is(err, cause), "cause must survive wrapping")
}

func TestWrapStorePreservesTaxonomy(t *testing.T) {
	orig := NewInvalidItemID("e42")
	err := WrapStore(orig, "storeB", "Events", "Update")

	assert.Equal(t, IDInvalidItemID, IDOf(err))
	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, "storeB", e.Data["store"])
}

func TestWrapStoreKeepsFirstStore(t *testing.T) {
	err := WrapStore(NewInvalidItemID("e42"), "inner", "Events", "Update")
	err = WrapStore(err, "outer", "Mall", "Update")

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, "inner", e.Data["store"])
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "C", "M", "a"))
	assert.NoError(t, WrapStore(nil, "s", "C", "M"))
}

func TestIDOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ID
	}{
		{"nil", nil, ""},
		{"taxonomy", NewForbidden("nope"), IDForbidden},
		{"wrapped taxonomy", fmt.Errorf("ctx: %w", NewForbidden("nope")), IDForbidden},
		{"opaque", stderrors.New("boom"), IDUnexpectedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IDOf(tt.err))
		})
	}
}

func TestHasID(t *testing.T) {
	err := Wrap(NewItemAlreadyExists("stream", map[string]any{"name": "Diary"}),
		"Mall", "CreateStream", "sibling check")

	assert.True(t, HasID(err, IDItemAlreadyExists))
	assert.False(t, HasID(err, IDUnknownResource))
	assert.False(t, HasID(nil, IDUnknownResource))
}
