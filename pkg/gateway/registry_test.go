package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientRegistry(t *testing.T) {
	registry := NewClientRegistry()

	registry.Add(&Client{ID: "a", Authenticated: true})
	registry.Add(&Client{ID: "b"})

	assert.Equal(t, 2, registry.Count())

	client, ok := registry.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", client.ID)

	assert.Len(t, registry.GetAuthenticatedClients(), 1)
	assert.Len(t, registry.GetAll(), 2)

	registry.Remove("a")
	assert.Equal(t, 1, registry.Count())

	_, ok = registry.Get("a")
	assert.False(t, ok)
}

func TestClientRegistryUpdateActivity(t *testing.T) {
	registry := NewClientRegistry()
	registry.Add(&Client{ID: "a"})

	before, _ := registry.Get("a")
	last := before.LastActivity

	registry.UpdateActivity("a")

	after, _ := registry.Get("a")
	assert.True(t, after.LastActivity.After(last) || !after.LastActivity.Equal(last))

	// Unknown IDs are ignored.
	registry.UpdateActivity("missing")
}
