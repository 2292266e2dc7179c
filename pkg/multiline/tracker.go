/*
Multi-line Literal Tracking:
---------------------------
A line that starts inside a raw or verbatim literal carries no code of its own,
so call detection has to look at the line that opened the literal:

	 0  var doc = """                                  opener, owner prefix "var doc = "
	 1      logger.LogInformation("User {UserId}");    inside, but not owned
	 2      """;                                       closer (same quote run)
	 3  logger.LogInformation(
	 4      """                                        opener, owner found by joining line 3
	 5      Order {OrderId} shipped                    inside and owned
	 6      """, orderId);

Scans never leave a fixed window around the queried line, so a lookup costs at
most Windows.RawLookback + Windows.RawLookahead line reads.
*/
package multiline

import (
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/callsite"
	"github.com/walteh/logtmpl/pkg/hostlex"
	"github.com/walteh/logtmpl/pkg/position"
)

var ErrInvalidArgument = errors.Base("invalid argument")

// ownerContextLines is how many lines above an opener may be joined to find
// the call it is passed to.
const ownerContextLines = 2

// Lines is read-only access to the lines of one text version.
type Lines interface {
	LineCount() int
	// Line returns line n without its line break.
	Line(n int) string
}

// Windows bound how far a lookup may scan, in lines.
type Windows struct {
	RawLookback      int `hcl:"raw_lookback,optional" yaml:"raw_lookback" json:"raw_lookback"`
	RawLookahead     int `hcl:"raw_lookahead,optional" yaml:"raw_lookahead" json:"raw_lookahead"`
	VerbatimLookback int `hcl:"verbatim_lookback,optional" yaml:"verbatim_lookback" json:"verbatim_lookback"`
}

func DefaultWindows() Windows {
	return Windows{
		RawLookback:      100,
		RawLookahead:     200,
		VerbatimLookback: 50,
	}
}

func (w Windows) Validate() error {
	if w.RawLookback <= 0 || w.RawLookahead <= 0 || w.VerbatimLookback <= 0 {
		return errors.Errorf("windows must be positive: %+v", w)
	}
	return nil
}

// Region describes the multi-line literal a line belongs to.
type Region struct {
	// Inside is false when the line does not start inside a multi-line literal;
	// the remaining fields are then zero.
	Inside bool

	Kind         hostlex.Kind
	Interpolated bool

	OpenLine int
	// CloseLine is -1 when no closer was found within the lookahead window.
	CloseLine int
	// Delimiter is the quote run length of a raw literal.
	Delimiter int

	// Owned reports whether the literal is the template argument of a logging
	// call; Owner is that call, with offsets relative to OwnerPrefix.
	Owned       bool
	Owner       callsite.Match
	OwnerPrefix string

	// Content is the part of the queried line inside the literal.
	Content position.Span
}

// Tracker answers and caches multi-line literal lookups for one document.
type Tracker struct {
	calls   *callsite.Classifier
	windows Windows

	mu    sync.RWMutex
	lines map[int]Region
	// gen changes on every invalidation; answers computed across a change
	// are returned but not cached.
	gen uint64
}

func New(calls *callsite.Classifier, windows Windows) (*Tracker, error) {
	if calls == nil {
		return nil, errors.Errorf("tracker needs a call classifier: %w", ErrInvalidArgument)
	}
	if err := windows.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		calls:   calls,
		windows: windows,
		lines:   make(map[int]Region),
	}, nil
}

func (me *Tracker) Windows() Windows {
	return me.windows
}

// IsInsideRawStringLiteral reports whether line lies inside a raw literal
// passed as a logging template.
func (me *Tracker) IsInsideRawStringLiteral(lines Lines, line int) (bool, error) {
	r, err := me.Locate(lines, line)
	if err != nil {
		return false, err
	}
	return r.Inside && r.Kind == hostlex.Raw && r.Owned, nil
}

// IsInsideVerbatimString reports whether line lies inside a verbatim literal
// passed as a logging template.
func (me *Tracker) IsInsideVerbatimString(lines Lines, line int) (bool, error) {
	r, err := me.Locate(lines, line)
	if err != nil {
		return false, err
	}
	return r.Inside && r.Kind == hostlex.Verbatim && r.Owned, nil
}

// Locate finds the multi-line literal line starts inside of, if any.
func (me *Tracker) Locate(lines Lines, line int) (Region, error) {
	if lines == nil {
		return Region{}, errors.Errorf("nil lines: %w", ErrInvalidArgument)
	}
	if n := lines.LineCount(); line < 0 || line >= n {
		return Region{}, errors.Errorf("line %d outside [0, %d): %w", line, n, ErrInvalidArgument)
	}

	me.mu.RLock()
	r, ok := me.lines[line]
	gen := me.gen
	me.mu.RUnlock()
	if ok {
		return r, nil
	}

	r = me.locateRaw(lines, line)
	if !r.Inside {
		r = me.locateVerbatim(lines, line)
	}
	if r.Inside {
		r.Owner, r.OwnerPrefix, r.Owned = me.owner(lines, r)
	}

	me.mu.Lock()
	if me.gen == gen {
		me.lines[line] = r
	}
	me.mu.Unlock()

	return r, nil
}

func (me *Tracker) locateRaw(lines Lines, q int) Region {
	open := false
	var r Region

	for i := max(0, q-me.windows.RawLookback); i < q; i++ {
		text := lines.Line(i)
		if !hostlex.HasQuoteRun(text, 3) {
			continue
		}

		from := 0
		if open {
			idx, ok := hostlex.RawCloser(text, r.Delimiter)
			if !ok {
				continue
			}
			open = false
			from = idx + r.Delimiter
		}

		if lit, ok := hostlex.RawOpener(text[from:]); ok {
			open = true
			r = Region{
				Kind:         hostlex.Raw,
				Interpolated: lit.Interpolated,
				OpenLine:     i,
				Delimiter:    lit.Delimiter,
			}
			r.OwnerPrefix = text[:from+lit.Start]
		}
	}

	if !open {
		return Region{}
	}

	r.Inside = true
	r.CloseLine = -1

	text := lines.Line(q)
	r.Content = position.NewSpan(0, len(text))

	last := min(lines.LineCount()-1, r.OpenLine+me.windows.RawLookahead)
	for j := q; j <= last; j++ {
		if idx, ok := hostlex.RawCloser(lines.Line(j), r.Delimiter); ok {
			r.CloseLine = j
			if j == q {
				r.Content = position.NewSpan(0, idx)
			}
			break
		}
	}
	return r
}

func (me *Tracker) locateVerbatim(lines Lines, q int) Region {
	open := false
	var r Region

	for i := max(0, q-me.windows.VerbatimLookback); i < q; i++ {
		text := lines.Line(i)
		if !strings.Contains(text, `"`) {
			continue
		}

		from := 0
		if open {
			end := hostlex.CloseVerbatim(text, 0)
			if end < 0 {
				continue
			}
			open = false
			from = end + 1
		}

		lits := hostlex.Scan(text[from:])
		if len(lits) == 0 {
			continue
		}
		lit := lits[len(lits)-1]
		if lit.Kind != hostlex.Verbatim || lit.Terminated() {
			continue
		}
		open = true
		r = Region{
			Kind:         hostlex.Verbatim,
			Interpolated: lit.Interpolated,
			OpenLine:     i,
		}
		r.OwnerPrefix = text[:from+lit.Start]
	}

	if !open {
		return Region{}
	}

	r.Inside = true
	r.CloseLine = -1

	text := lines.Line(q)
	r.Content = position.NewSpan(0, len(text))
	if end := hostlex.CloseVerbatim(text, 0); end >= 0 {
		r.CloseLine = q
		r.Content = position.NewSpan(0, end)
	}
	return r
}

// owner re-tests the text before the opening delimiter, joining preceding
// lines when the call starts above the opener. Interpolated literals are
// never templates.
func (me *Tracker) owner(lines Lines, r Region) (callsite.Match, string, bool) {
	if r.Interpolated {
		return callsite.Match{}, r.OwnerPrefix, false
	}

	prefix := r.OwnerPrefix
	for back := 0; back <= ownerContextLines && r.OpenLine-back >= 0; back++ {
		if back > 0 {
			prefix = lines.Line(r.OpenLine-back) + "\n" + prefix
		}
		if m, ok := me.calls.OwnerOf(prefix); ok {
			return m, prefix, true
		}
	}
	return callsite.Match{}, r.OwnerPrefix, false
}

// InvalidateLine drops the cached answer for line.
func (me *Tracker) InvalidateLine(line int) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.gen++
	delete(me.lines, line)
}

// InvalidateFrom drops cached answers for line and every line after it.
func (me *Tracker) InvalidateFrom(line int) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.gen++
	for l := range me.lines {
		if l >= line {
			delete(me.lines, l)
		}
	}
}

func (me *Tracker) ClearCache() {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.gen++
	me.lines = make(map[int]Region)
}

// CachedLines reports how many lines have a cached answer.
func (me *Tracker) CachedLines() int {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return len(me.lines)
}
