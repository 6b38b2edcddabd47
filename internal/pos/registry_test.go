package pos

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()

	id := registry.Open()
	ok, err := registry.With(id, func(order *Order) error {
		return order.Add(product("x", 1.00, 3))
	})
	require.True(t, ok)
	require.NoError(t, err)

	ok, _ = registry.With(id, func(order *Order) error {
		assert.Len(t, order.Lines(), 1)
		return nil
	})
	require.True(t, ok)

	registry.Close(id)
	ok, _ = registry.With(id, func(order *Order) error { return nil })
	assert.False(t, ok)
}

func TestRegistryUnknownSession(t *testing.T) {
	registry := NewRegistry()
	ok, err := registry.With(uuid.New(), func(order *Order) error { return nil })
	assert.False(t, ok)
	assert.NoError(t, err)
}
