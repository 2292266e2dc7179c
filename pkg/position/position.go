/*
Spans and Edits:
---------------
Every range the engine reports or caches is a byte span over some text:

	text:   l o g g e r . I n f o ( " { N a m e } " )
	        0                       12          19
	                                  [13 .. 19)  <- Span{Start: 13, Length: 6}

An Edit describes a replacement in the OLD text. Spans that sit after the edit
move by Delta(); spans that overlap it are stale.

	old:  aaaa[bbb]cccc      Edit{Span: {4,3}, NewLength: 5}
	new:  aaaa[BBBBB]cccc    Delta() == +2
*/
package position

import (
	"fmt"
)

type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

// Span is a half-open byte range [Start, Start+Length) in a text.
type Span struct {
	Start  int
	Length int
}

func NewSpan(start, length int) Span {
	return Span{Start: start, Length: length}
}

// FromBounds builds a span from a start and an exclusive end offset.
func FromBounds(start, end int) Span {
	if end < start {
		end = start
	}
	return Span{Start: start, Length: end - start}
}

func (s Span) End() int {
	return s.Start + s.Length
}

func (s Span) IsEmpty() bool {
	return s.Length == 0
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End()
}

// OverlapsWith reports whether two spans share at least one offset.
// A zero-length span overlaps a span when it falls within it, end inclusive,
// so an insertion at the end of a line still touches that line.
func (s Span) OverlapsWith(other Span) bool {
	if s.Length == 0 {
		return s.Start >= other.Start && s.Start <= other.End()
	}
	if other.Length == 0 {
		return other.Start >= s.Start && other.Start <= s.End()
	}

	return s.Start < other.End() && other.Start < s.End()
}

// Intersection returns the shared part of two spans.
func (s Span) Intersection(other Span) (Span, bool) {
	start := max(s.Start, other.Start)
	end := min(s.End(), other.End())
	if end < start {
		return Span{}, false
	}
	return FromBounds(start, end), true
}

func (s Span) Shift(delta int) Span {
	return Span{Start: s.Start + delta, Length: s.Length}
}

// Text returns the slice of src covered by the span, clamped to src.
func (s Span) Text(src string) string {
	start := min(max(s.Start, 0), len(src))
	end := min(max(s.End(), start), len(src))
	return src[start:end]
}

func (s Span) String() string {
	return fmt.Sprintf("[%d..%d)", s.Start, s.End())
}

// Edit replaces Span of the old text with NewLength bytes of new text.
type Edit struct {
	Span      Span
	NewLength int
}

func (e Edit) Delta() int {
	return e.NewLength - e.Span.Length
}

// NewSpan is the range the edit occupies in the new text.
func (e Edit) NewSpan() Span {
	return Span{Start: e.Span.Start, Length: e.NewLength}
}

func (e Edit) String() string {
	return fmt.Sprintf("%s->%d", e.Span, e.NewLength)
}
