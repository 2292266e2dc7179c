package classifier

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/cache"
	"github.com/walteh/logtmpl/pkg/diff"
	"github.com/walteh/logtmpl/pkg/document"
	"github.com/walteh/logtmpl/pkg/multiline"
	"github.com/walteh/logtmpl/pkg/position"
	"github.com/walteh/logtmpl/pkg/semtok"
)

// ownerContextLines is how many lines above a literal may be joined to find
// the call it is passed to.
const ownerContextLines = 2

type docState struct {
	mu      sync.Mutex
	spans   *cache.SpanCache[[]semtok.Token]
	tracker *multiline.Tracker
	last    *document.Snapshot
}

func (me *docState) clear() {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.spans.Clear()
	me.tracker.ClearCache()
	me.last = nil
}

func (me *Classifier) state(uri string) (*docState, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if st, ok := me.docs[uri]; ok {
		return st, nil
	}

	tracker, err := multiline.New(me.calls, me.windows)
	if err != nil {
		return nil, errors.Errorf("creating tracker for %s: %w", uri, err)
	}
	st := &docState{
		spans:   cache.NewSpanCache(cache.WithShift(semtok.Shift)),
		tracker: tracker,
	}
	me.docs[uri] = st
	return st, nil
}

// Forget drops the cached state of a closed document.
func (me *Classifier) Forget(uri string) {
	me.mu.Lock()
	defer me.mu.Unlock()
	delete(me.docs, uri)
}

// sync brings the document state up to snap. It reports false for snapshots
// older than the last one seen; those are classified without the caches.
func (me *Classifier) sync(ctx context.Context, st *docState, snap *document.Snapshot) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch {
	case st.last == nil:
		st.last = snap
		return true
	case st.last == snap:
		return true
	case snap.Version() < st.last.Version():
		return false
	default:
		// the caller skipped Invalidate, recover the edits from the text
		me.applyEdits(ctx, st, snap, diff.Edits(st.last.Text(), snap.Text()))
		return true
	}
}

// Invalidate moves the document's caches to snap. Edits are replacements in
// the text of the previous snapshot, as document.Document.Apply returns them.
func (me *Classifier) Invalidate(ctx context.Context, snap *document.Snapshot, edits ...position.Edit) error {
	if snap == nil {
		return errors.Errorf("nil snapshot: %w", ErrInvalidArgument)
	}

	st, err := me.state(snap.URI())
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.last != nil && snap.Version() < st.last.Version() {
		return errors.Errorf("snapshot %s is older than %s: %w", snap, st.last, ErrInvalidArgument)
	}

	me.applyEdits(ctx, st, snap, edits)
	return nil
}

// applyEdits shifts and evicts span cache entries and drops tracker answers
// the edits may have changed. An edit that changes the line count or touches
// a quote can open or close a multi-line literal, so the whole tracker cache
// goes and every line within the scan windows below the edit is evicted. An
// edit within a few lines above a quote can change which call owns a literal
// and gets the same window. Other edits only affect the lines they touch.
// st.mu must be held.
func (me *Classifier) applyEdits(ctx context.Context, st *docState, snap *document.Snapshot, edits []position.Edit) {
	prev := st.last
	st.last = snap

	if len(edits) == 0 {
		return
	}

	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b position.Edit) int {
		return cmp.Compare(a.Span.Start, b.Span.Start)
	})

	dropped := st.spans.ApplyEdits(sorted...)

	reach := max(me.windows.RawLookback, me.windows.RawLookahead, me.windows.VerbatimLookback) + ownerContextLines
	text := snap.Text()

	var (
		windows      []position.Span
		clearTracker bool
		delta        int
	)
	for _, e := range sorted {
		start := e.Span.Start + delta
		delta += e.Delta()

		added := position.NewSpan(start, e.NewLength).Text(text)
		removed, known := "", prev != nil && e.Span.End() <= len(prev.Text())
		if known {
			removed = e.Span.Text(prev.Text())
		}

		first := snap.LineOfOffset(start)
		last := snap.LineOfOffset(start + e.NewLength)

		switch {
		case !known,
			strings.Count(removed, "\n") != strings.Count(added, "\n"),
			strings.Contains(removed, `"`),
			strings.Contains(added, `"`):
			clearTracker = true
			windows = append(windows, linesSpan(snap, first, last+reach))
		case quoteNear(snap, first, last+ownerContextLines):
			for l := first; l <= min(last+reach, snap.LineCount()-1); l++ {
				st.tracker.InvalidateLine(l)
			}
			windows = append(windows, linesSpan(snap, first, last+reach))
		default:
			for l := first; l <= last; l++ {
				st.tracker.InvalidateLine(l)
			}
		}
	}

	if clearTracker {
		st.tracker.ClearCache()
	}
	inWindow := st.spans.InvalidateOverlapping(windows...)

	zerolog.Ctx(ctx).Debug().
		Str("document", snap.String()).
		Int("edits", len(sorted)).
		Int("evicted_by_edits", dropped).
		Int("evicted_in_window", inWindow).
		Bool("tracker_cleared", clearTracker).
		Msg("applied edits")
}

func quoteNear(snap *document.Snapshot, first, last int) bool {
	for l := first; l <= min(last, snap.LineCount()-1); l++ {
		if strings.Contains(snap.Line(l), `"`) {
			return true
		}
	}
	return false
}

func linesSpan(snap *document.Snapshot, first, last int) position.Span {
	last = min(last, snap.LineCount()-1)
	return position.FromBounds(snap.LineSpan(first).Start, snap.LineSpan(last).End())
}
