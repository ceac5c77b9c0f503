package natsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeSubject(t *testing.T) {
	assert.Equal(t, "datamall.changes.alice", ChangeSubject("alice"))
}

func TestOptions(t *testing.T) {
	c := &Client{}
	WithName("test")(c)
	WithMaxReconnects(3)(c)

	assert.Equal(t, "test", c.name)
	assert.Equal(t, 3, c.maxReconnects)

	// Nil logger is ignored, the default stays.
	WithLogger(nil)(c)
	assert.Nil(t, c.logger)
}

func TestPublishWithoutConnection(t *testing.T) {
	c := &Client{}
	err := c.PublishChange(Change{User: "alice", EventID: "e1", Action: ActionUpdated})
	assert.Error(t, err)

	_, err = c.SubscribeChanges(func(Change) {})
	assert.Error(t, err)

	assert.False(t, c.IsConnected())
}
