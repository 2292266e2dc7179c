package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/document"
	"github.com/walteh/logtmpl/pkg/position"
)

func rng(sl, sc, el, ec int) *position.Range {
	return &position.Range{
		Start: position.Place{Line: sl, Character: sc},
		End:   position.Place{Line: el, Character: ec},
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		changes       []document.Change
		expected      string
		expectedEdits []position.Edit
	}{
		{
			name:          "insert",
			input:         "log(\"{A}\")",
			changes:       []document.Change{{Range: rng(0, 6, 0, 6), Text: "B"}},
			expected:      "log(\"{BA}\")",
			expectedEdits: []position.Edit{{Span: position.NewSpan(6, 0), NewLength: 1}},
		},
		{
			name:          "replace_across_lines",
			input:         "one\ntwo\nthree",
			changes:       []document.Change{{Range: rng(0, 2, 2, 1), Text: "X"}},
			expected:      "onXhree",
			expectedEdits: []position.Edit{{Span: position.NewSpan(2, 7), NewLength: 1}},
		},
		{
			name:          "full_replacement",
			input:         "old",
			changes:       []document.Change{{Text: "brand new"}},
			expected:      "brand new",
			expectedEdits: []position.Edit{{Span: position.NewSpan(0, 3), NewLength: 9}},
		},
		{
			name:  "several_changes_coalesce",
			input: "aaaa bbbb cccc",
			changes: []document.Change{
				{Range: rng(0, 0, 0, 1), Text: "A"},
				{Range: rng(0, 10, 0, 11), Text: "C"},
			},
			expected:      "Aaaa bbbb Cccc",
			expectedEdits: []position.Edit{{Span: position.NewSpan(0, 11), NewLength: 11}},
		},
		{
			name:     "no_changes",
			input:    "same",
			expected: "same",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.New("file:///a.cs", "csharp", 1, tt.input)
			snap, edits, err := doc.Apply(2, tt.changes...)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, snap.Text())
			assert.Equal(t, 2, snap.Version())
			assert.Equal(t, tt.expectedEdits, edits)
			assert.Same(t, snap, doc.Snapshot())
		})
	}
}

func TestApplyRejectsStaleVersion(t *testing.T) {
	doc := document.New("a.cs", "csharp", 5, "text")
	_, _, err := doc.Apply(4, document.Change{Text: "older"})
	require.Error(t, err)
	assert.Equal(t, "text", doc.Snapshot().Text())
}

func TestApplyBadRangeKeepsSnapshot(t *testing.T) {
	doc := document.New("a.cs", "csharp", 1, "text")
	_, _, err := doc.Apply(2, document.Change{Range: rng(3, 0, 3, 1), Text: "x"})
	assert.True(t, errors.Is(err, document.ErrOutOfRange))
	assert.Equal(t, 1, doc.Snapshot().Version())
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name     string
		old      string
		new      string
		expected position.Edit
	}{
		{name: "append", old: "aa", new: "aaa", expected: position.Edit{Span: position.NewSpan(2, 0), NewLength: 1}},
		{name: "delete_middle", old: "abcd", new: "ad", expected: position.Edit{Span: position.NewSpan(1, 2), NewLength: 0}},
		{name: "replace_all", old: "abc", new: "xyz", expected: position.Edit{Span: position.NewSpan(0, 3), NewLength: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := document.Coalesce(tt.old, tt.new)
			require.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, ok := document.Coalesce("same", "same")
	assert.False(t, ok)
}

func TestManager(t *testing.T) {
	m := document.NewManager()

	m.Open("file:///src/a.cs", "csharp", 1, "a")
	m.Open("/src/b.cs", "csharp", 1, "b")

	doc, ok := m.Get("/src/a.cs")
	require.True(t, ok)
	assert.Equal(t, "a", doc.Snapshot().Text())
	assert.Equal(t, "csharp", doc.LanguageID())

	snap, _, err := m.Change("file:///src/b.cs", 2, document.Change{Text: "bb"})
	require.NoError(t, err)
	assert.Equal(t, "bb", snap.Text())

	assert.Equal(t, []string{"/src/a.cs", "/src/b.cs"}, m.URIs())

	require.NoError(t, m.Close("file:/src/a.cs"))
	assert.True(t, errors.Is(m.Close("/src/a.cs"), document.ErrNotFound))

	_, _, err = m.Change("/src/a.cs", 3)
	assert.True(t, errors.Is(err, document.ErrNotFound))
}
