package document

import (
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/position"
)

// Change replaces Range with Text. A nil Range replaces the whole document.
// Range uses zero-based lines and UTF-16 columns.
type Change struct {
	Range *position.Range
	Text  string
}

// Document is the mutable head of a chain of snapshots.
type Document struct {
	mu         sync.RWMutex
	languageID string
	snap       *Snapshot
}

func New(uri, languageID string, version int, text string) *Document {
	return &Document{
		languageID: languageID,
		snap:       NewSnapshot(uri, version, text),
	}
}

func (me *Document) LanguageID() string {
	return me.languageID
}

func (me *Document) Snapshot() *Snapshot {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return me.snap
}

// Apply applies changes in order and returns the new snapshot together with
// the edits that turn the previous snapshot's text into it. All edits are in
// previous-text offsets and do not overlap. Versions older than the current
// one are rejected.
func (me *Document) Apply(version int, changes ...Change) (*Snapshot, []position.Edit, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	old := me.snap
	if version < old.Version() {
		return nil, nil, errors.Errorf("rejected stale update: document version is %d but update version is %d", old.Version(), version)
	}

	cur := old
	var single *position.Edit
	for i, change := range changes {
		text, edit, err := applyChange(cur, change)
		if err != nil {
			return nil, nil, errors.Errorf("applying change %d: %w", i, err)
		}
		if i == 0 {
			single = &edit
		}
		cur = NewSnapshot(old.URI(), version, text)
	}

	next := cur
	if next == old {
		next = NewSnapshot(old.URI(), version, old.Text())
	}
	me.snap = next

	var edits []position.Edit
	switch {
	case len(changes) == 1:
		edits = []position.Edit{*single}
	case len(changes) > 1:
		if e, ok := Coalesce(old.Text(), next.Text()); ok {
			edits = []position.Edit{e}
		}
	}
	return next, edits, nil
}

func applyChange(snap *Snapshot, change Change) (string, position.Edit, error) {
	if change.Range == nil {
		return change.Text, position.Edit{
			Span:      position.NewSpan(0, len(snap.Text())),
			NewLength: len(change.Text),
		}, nil
	}

	start, err := snap.Offset(change.Range.Start)
	if err != nil {
		return "", position.Edit{}, errors.Errorf("start: %w", err)
	}
	end, err := snap.Offset(change.Range.End)
	if err != nil {
		return "", position.Edit{}, errors.Errorf("end: %w", err)
	}
	if end < start {
		return "", position.Edit{}, errors.Errorf("range end %d before start %d: %w", end, start, ErrOutOfRange)
	}

	text := snap.Text()
	var b strings.Builder
	b.Grow(len(text) - (end - start) + len(change.Text))
	b.WriteString(text[:start])
	b.WriteString(change.Text)
	b.WriteString(text[end:])

	return b.String(), position.Edit{
		Span:      position.FromBounds(start, end),
		NewLength: len(change.Text),
	}, nil
}

// Coalesce returns one edit covering every difference between old and new,
// found by trimming their common prefix and suffix. It reports false when the
// texts are equal.
func Coalesce(old, new string) (position.Edit, bool) {
	if old == new {
		return position.Edit{}, false
	}
	p := 0
	for p < len(old) && p < len(new) && old[p] == new[p] {
		p++
	}
	s := 0
	for s < len(old)-p && s < len(new)-p && old[len(old)-1-s] == new[len(new)-1-s] {
		s++
	}
	return position.Edit{
		Span:      position.FromBounds(p, len(old)-s),
		NewLength: len(new) - s - p,
	}, true
}
