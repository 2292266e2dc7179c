package cache

import (
	"slices"
	"sync"

	"github.com/walteh/logtmpl/pkg/position"
)

// SpanCache caches results keyed by the text span they were computed for. An
// entry stays valid until an edit overlaps its span.
type SpanCache[T any] struct {
	mu      sync.RWMutex
	entries map[position.Span]T
	shift   func(T, int) T
}

type SpanOption[T any] func(*SpanCache[T])

// WithShift moves the offsets stored inside a value when its entry is moved
// by ApplyEdits.
func WithShift[T any](fn func(T, int) T) SpanOption[T] {
	return func(s *SpanCache[T]) {
		s.shift = fn
	}
}

func NewSpanCache[T any](opts ...SpanOption[T]) *SpanCache[T] {
	s := &SpanCache[T]{entries: make(map[position.Span]T)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (me *SpanCache[T]) Get(span position.Span) (T, bool) {
	me.mu.RLock()
	defer me.mu.RUnlock()
	v, ok := me.entries[span]
	return v, ok
}

func (me *SpanCache[T]) Put(span position.Span, value T) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.entries[span] = value
}

// InvalidateOverlapping evicts every entry overlapping any of spans and
// returns how many were removed.
func (me *SpanCache[T]) InvalidateOverlapping(spans ...position.Span) int {
	if len(spans) == 0 {
		return 0
	}

	me.mu.Lock()
	defer me.mu.Unlock()

	removed := 0
	for key := range me.entries {
		for _, s := range spans {
			if key.OverlapsWith(s) {
				delete(me.entries, key)
				removed++
				break
			}
		}
	}
	return removed
}

// ApplyEdits evicts entries touched by the edits and moves entries after each
// edit by its delta. Edits are expressed in old-text offsets and must not
// overlap each other.
func (me *SpanCache[T]) ApplyEdits(edits ...position.Edit) int {
	if len(edits) == 0 {
		return 0
	}

	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b position.Edit) int {
		return b.Span.Start - a.Span.Start
	})

	me.mu.Lock()
	defer me.mu.Unlock()

	removed := 0
	for _, edit := range sorted {
		next := make(map[position.Span]T, len(me.entries))
		for key, value := range me.entries {
			switch {
			case key.OverlapsWith(edit.Span):
				removed++
			case key.Start >= edit.Span.End() && edit.Delta() != 0:
				if me.shift != nil {
					value = me.shift(value, edit.Delta())
				}
				next[key.Shift(edit.Delta())] = value
			default:
				next[key] = value
			}
		}
		me.entries = next
	}
	return removed
}

func (me *SpanCache[T]) Len() int {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return len(me.entries)
}

func (me *SpanCache[T]) Clear() {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.entries = make(map[position.Span]T)
}
