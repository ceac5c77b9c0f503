package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowIsCurrent(t *testing.T) {
	before := FromTime(time.Now())
	ts := Now()
	after := FromTime(time.Now())

	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, after)
}

func TestRoundTrip(t *testing.T) {
	original := time.Date(2021, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	ts := FromTime(original)
	back := ToTime(ts)

	assert.InDelta(t, 0, back.Sub(original).Seconds(), 1e-6)
}

func TestZeroValues(t *testing.T) {
	assert.Zero(t, FromTime(time.Time{}))
	assert.True(t, ToTime(0).IsZero())
	assert.Empty(t, Format(0))
	assert.Zero(t, Add(0, time.Hour))
	assert.False(t, IsSet(0))
}

func TestFormat(t *testing.T) {
	ts := FromTime(time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC))
	assert.Equal(t, "2021-03-14T09:26:53Z", Format(ts))
}

func TestAdd(t *testing.T) {
	ts := FromTime(time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC))
	shifted := Add(ts, 90*time.Second)
	assert.InDelta(t, ts+90, shifted, 1e-9)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(0))
	require.NoError(t, Validate(Now()))
	require.Error(t, Validate(-1))
	require.Error(t, Validate(4e10))
}
