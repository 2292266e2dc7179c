package lru_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/logtmpl/pkg/lru"
)

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		c, err := lru.New[string, int](capacity)
		assert.Error(t, err)
		assert.Nil(t, c)
	}
}

func TestAddFirstWriteWins(t *testing.T) {
	c, err := lru.New[string, int](4)
	require.NoError(t, err)

	assert.True(t, c.Add("a", 1))
	assert.False(t, c.Add("a", 2))

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := lru.New[string, int](2)
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Add("c", 3)

	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, 2, c.Len())
}

func TestClear(t *testing.T) {
	c, err := lru.New[int, bool](8)
	require.NoError(t, err)

	for i := range 5 {
		c.Add(i, true)
	}
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)
}
