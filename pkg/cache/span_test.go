package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/logtmpl/pkg/cache"
	"github.com/walteh/logtmpl/pkg/position"
)

func TestInvalidateOverlapping(t *testing.T) {
	c := cache.NewSpanCache[string]()

	disjoint := []position.Span{
		position.NewSpan(0, 10),
		position.NewSpan(10, 10),
		position.NewSpan(20, 10),
		position.NewSpan(30, 10),
		position.NewSpan(40, 10),
	}
	for _, s := range disjoint {
		c.Put(s, s.String())
	}

	removed := c.InvalidateOverlapping(position.NewSpan(15, 10))
	assert.Equal(t, 2, removed)

	for _, s := range []position.Span{disjoint[0], disjoint[3], disjoint[4]} {
		v, ok := c.Get(s)
		require.True(t, ok, "entry %s should survive", s)
		assert.Equal(t, s.String(), v)
	}
	for _, s := range []position.Span{disjoint[1], disjoint[2]} {
		_, ok := c.Get(s)
		assert.False(t, ok, "entry %s should be evicted", s)
	}
	assert.Equal(t, 3, c.Len())
}

func TestInvalidateOverlappingTouchingIsNotOverlap(t *testing.T) {
	c := cache.NewSpanCache[int]()
	c.Put(position.NewSpan(0, 5), 1)
	c.Put(position.NewSpan(10, 5), 2)

	assert.Equal(t, 0, c.InvalidateOverlapping(position.NewSpan(5, 5)))
	assert.Equal(t, 2, c.Len())
}

func TestApplyEdits(t *testing.T) {
	tests := []struct {
		name     string
		edits    []position.Edit
		expected map[position.Span]int
		removed  int
	}{
		{
			name:  "insert_shifts_later_entries",
			edits: []position.Edit{{Span: position.NewSpan(12, 0), NewLength: 3}},
			expected: map[position.Span]int{
				position.NewSpan(0, 10):  0,
				position.NewSpan(23, 10): 2,
			},
			removed: 1,
		},
		{
			name:  "delete_inside_entry_evicts_it",
			edits: []position.Edit{{Span: position.NewSpan(2, 3), NewLength: 0}},
			expected: map[position.Span]int{
				position.NewSpan(7, 10):  1,
				position.NewSpan(17, 10): 2,
			},
			removed: 1,
		},
		{
			name: "multiple_edits_in_any_order",
			edits: []position.Edit{
				{Span: position.NewSpan(5, 0), NewLength: 1},
				{Span: position.NewSpan(25, 2), NewLength: 5},
			},
			expected: map[position.Span]int{
				position.NewSpan(11, 10): 1,
			},
			removed: 2,
		},
		{
			name:  "same_length_replacement_keeps_neighbours",
			edits: []position.Edit{{Span: position.NewSpan(12, 2), NewLength: 2}},
			expected: map[position.Span]int{
				position.NewSpan(0, 10):  0,
				position.NewSpan(20, 10): 2,
			},
			removed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cache.NewSpanCache[int]()
			c.Put(position.NewSpan(0, 10), 0)
			c.Put(position.NewSpan(10, 10), 1)
			c.Put(position.NewSpan(20, 10), 2)

			removed := c.ApplyEdits(tt.edits...)
			assert.Equal(t, tt.removed, removed)
			assert.Equal(t, len(tt.expected), c.Len())
			for span, want := range tt.expected {
				got, ok := c.Get(span)
				require.True(t, ok, "missing %s", span)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestApplyEditsShiftsValues(t *testing.T) {
	c := cache.NewSpanCache(cache.WithShift(func(v []int, delta int) []int {
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = x + delta
		}
		return out
	}))
	c.Put(position.NewSpan(20, 5), []int{21, 23})

	c.ApplyEdits(position.Edit{Span: position.NewSpan(0, 4), NewLength: 0})

	got, ok := c.Get(position.NewSpan(16, 5))
	require.True(t, ok)
	assert.Equal(t, []int{17, 19}, got)
}

func TestSpanCacheClear(t *testing.T) {
	c := cache.NewSpanCache[int]()
	c.Put(position.NewSpan(0, 1), 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
