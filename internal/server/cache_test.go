package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCache_RoundTrip(t *testing.T) {
	c := newQueryCache(4)
	require.NotNil(t, c)

	key := cacheKey("gen1", "tags=ocean")
	_, ok := c.get(key)
	assert.False(t, ok)

	c.add(key, []string{"4ddXWS", "Ms2SD1"})
	ids, ok := c.get(key)
	require.True(t, ok)
	assert.Equal(t, []string{"4ddXWS", "Ms2SD1"}, ids)
}

func TestQueryCache_NilIsSafe(t *testing.T) {
	var c *queryCache

	c.add(cacheKey("gen1", "tags=ocean"), []string{"4ddXWS"})
	_, ok := c.get(cacheKey("gen1", "tags=ocean"))
	assert.False(t, ok)

	assert.Nil(t, newQueryCache(0))
}

func TestCacheKey_ScopedToGeneration(t *testing.T) {
	q := "tags=ocean"
	assert.NotEqual(t, cacheKey("gen1", q), cacheKey("gen2", q))
	assert.NotEqual(t, cacheKey("gen1", q), cacheKey("gen1", "tags=retro"))
	assert.Equal(t, cacheKey("gen1", q), cacheKey("gen1", q))
}
