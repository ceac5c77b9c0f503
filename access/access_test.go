package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelRead, ParseLevel("read"))
	assert.Equal(t, LevelContribute, ParseLevel("contribute"))
	assert.Equal(t, LevelManage, ParseLevel("manage"))
	assert.Equal(t, LevelNone, ParseLevel("owner"))
}

func TestPermissionChecks(t *testing.T) {
	a := &Access{
		ID: "acc-1",
		Permissions: []Permission{
			{StreamID: "health", Level: LevelContribute},
			{StreamID: "diary", Level: LevelRead},
		},
	}

	assert.True(t, a.CanReadStream("health"))
	assert.True(t, a.CanWriteStream("health"))
	assert.True(t, a.CanReadStream("diary"))
	assert.False(t, a.CanWriteStream("diary"))
	assert.False(t, a.CanReadStream("secrets"))
}

func TestRootGrant(t *testing.T) {
	a := &Access{
		ID:          "acc-2",
		Permissions: []Permission{{StreamID: "*", Level: LevelRead}},
	}
	assert.True(t, a.CanReadStream("anything"))
	assert.False(t, a.CanWriteStream("anything"))
}

func TestPersonalAccess(t *testing.T) {
	a := &Access{ID: "acc-3", Personal: true}
	assert.True(t, a.CanReadStream("anything"))
	assert.True(t, a.CanWriteStream("anything"))
}
