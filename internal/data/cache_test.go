package data

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gas-valuation/internal/valuation"
)

func TestResultCache(t *testing.T) {
	c := NewResultCache(time.Minute)
	defer c.Close()

	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	res := &valuation.Result{Problem: "demo"}
	id := c.Put(res)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	got, ok := c.Get(id)
	require.True(t, ok)
	assert.Same(t, res, got)

	_, ok = c.Get("not-a-uuid")
	assert.False(t, ok)
	_, ok = c.Get(uuid.NewString())
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	c.sweep()
	assert.Equal(t, 0, c.Len())

	c.Put(res)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	c.Close()
}

func TestNilResultCache(t *testing.T) {
	var c *ResultCache
	id := c.Put(&valuation.Result{})
	assert.NotEmpty(t, id)
	_, ok := c.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Clear()
	c.Close()
}
