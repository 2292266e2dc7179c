/*
Snapshots:
---------
A Snapshot is one immutable version of a document with a line index:

	text:    "a := 1\nlogger.Info(\"x\")\r\n\nend"
	starts:  [0,      7,                      25, 26]
	Line(1): `logger.Info("x")`          (line break and \r stripped)

Lines are addressed by zero-based number, columns by byte offset unless a
method says UTF-16.
*/
package document

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/google/uuid"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/position"
)

var ErrOutOfRange = errors.Base("position out of range")

type Snapshot struct {
	id      uuid.UUID
	uri     string
	version int
	text    string
	starts  []int
}

func NewSnapshot(uri string, version int, text string) *Snapshot {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Snapshot{
		id:      uuid.New(),
		uri:     uri,
		version: version,
		text:    text,
		starts:  starts,
	}
}

// ID is unique per snapshot, even for equal text.
func (me *Snapshot) ID() uuid.UUID {
	return me.id
}

func (me *Snapshot) URI() string {
	return me.uri
}

func (me *Snapshot) Version() int {
	return me.version
}

func (me *Snapshot) Text() string {
	return me.text
}

// LineCount is zero for a nil snapshot so callers can treat it as empty.
func (me *Snapshot) LineCount() int {
	if me == nil {
		return 0
	}
	return len(me.starts)
}

// LineSpan covers line n without its line break.
func (me *Snapshot) LineSpan(n int) position.Span {
	if n < 0 || n >= me.LineCount() {
		return position.Span{}
	}
	start := me.starts[n]
	end := len(me.text)
	if n+1 < len(me.starts) {
		end = me.starts[n+1] - 1
	}
	if end > start && me.text[end-1] == '\r' {
		end--
	}
	return position.FromBounds(start, end)
}

// Line returns line n without its line break, or "" when n is out of range.
func (me *Snapshot) Line(n int) string {
	if n < 0 || n >= me.LineCount() {
		return ""
	}
	return me.LineSpan(n).Text(me.text)
}

// LineOfOffset returns the line containing offset, clamped to the document.
func (me *Snapshot) LineOfOffset(offset int) int {
	if me.LineCount() == 0 {
		return 0
	}
	return max(0, sort.SearchInts(me.starts, offset+1)-1)
}

// Offset converts a line and UTF-16 column, as editors send them, to a byte
// offset. A position one past the last line addresses the end of the text.
func (me *Snapshot) Offset(p position.Place) (int, error) {
	if p.Line == me.LineCount() && p.Character == 0 {
		return len(me.text), nil
	}
	if p.Line < 0 || p.Line >= me.LineCount() || p.Character < 0 {
		return 0, errors.Errorf("line %d character %d: %w", p.Line, p.Character, ErrOutOfRange)
	}

	span := me.LineSpan(p.Line)
	line := span.Text(me.text)
	col := utf16ToByteOffset(line, p.Character)
	if col > len(line) {
		return 0, errors.Errorf("line %d character %d: %w", p.Line, p.Character, ErrOutOfRange)
	}
	return span.Start + col, nil
}

// Place converts a byte offset to a line and UTF-16 column.
func (me *Snapshot) Place(offset int) position.Place {
	offset = min(max(offset, 0), len(me.text))
	line := me.LineOfOffset(offset)
	start := me.starts[line]
	return position.Place{Line: line, Character: byteToUTF16Offset(me.text[start:offset])}
}

// LinesOverlapping returns the first and last line touched by span.
func (me *Snapshot) LinesOverlapping(span position.Span) (first, last int) {
	first = me.LineOfOffset(span.Start)
	last = me.LineOfOffset(max(span.Start, span.End()-1))
	return first, last
}

func (me *Snapshot) String() string {
	return fmt.Sprintf("%s@%d", me.uri, me.version)
}

// utf16ToByteOffset stops at the start of a rune when col falls inside a
// surrogate pair.
func utf16ToByteOffset(s string, col int) int {
	units, off := 0, 0
	for off < len(s) && units < col {
		r, size := utf8.DecodeRuneInString(s[off:])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if n == 2 && units+1 == col {
			break
		}
		units += n
		off += size
	}
	if units < col && off >= len(s) {
		return len(s) + (col - units)
	}
	return off
}

func byteToUTF16Offset(s string) int {
	units := 0
	for _, r := range s {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		units += n
	}
	return units
}
