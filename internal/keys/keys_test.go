package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Publish(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Publish("vendors", []string{"VND-1", "VND-2", "VND-2"}))
	assert.Equal(t, 2, r.Len("vendors"))

	err := r.Publish("vendors", []string{"VND-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already published")
	assert.Equal(t, 2, r.Len("vendors"))
}

func TestRegistry_View(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Publish("vendors", []string{"VND-1"}))
	require.NoError(t, r.Publish("empty", nil))

	view := r.View()
	assert.True(t, view.Published("vendors"))
	assert.True(t, view.Contains("vendors", "VND-1"))
	assert.False(t, view.Contains("vendors", "VND-9"))
	assert.True(t, view.Published("empty"))
	assert.False(t, view.Contains("empty", ""))

	require.NoError(t, r.Publish("products", []string{"PRD-1"}))
	assert.False(t, view.Published("products"), "snapshot must not see later publishes")
	assert.False(t, view.Contains("products", "PRD-1"))
	assert.True(t, r.View().Contains("products", "PRD-1"))
}
