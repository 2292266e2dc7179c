/*
Edits From Two Versions:
-----------------------
When only the old and new text are known, Edits recovers the replaced ranges:

	old:  logger.Info("{A}");  var x = 1;
	new:  logger.Info("{AB}"); var x = 12;
	                      ^              ^
	edits: [16..16)->1   [32..32)->1      (offsets in old text)

Adjacent insertions and deletions are merged, so every edit is one contiguous
replacement and edits never overlap.
*/
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/walteh/logtmpl/pkg/position"
)

// Edits returns the replacements that turn old into new, ordered by offset.
func Edits(old, new string) []position.Edit {
	if old == new {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(old, new, false)

	var (
		out     []position.Edit
		offset  int
		pending *position.Edit
	)
	flush := func() {
		if pending != nil {
			out = append(out, *pending)
			pending = nil
		}
	}

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			offset += len(d.Text)
		case diffmatchpatch.DiffDelete:
			if pending == nil {
				pending = &position.Edit{Span: position.NewSpan(offset, 0)}
			}
			pending.Span.Length += len(d.Text)
			offset += len(d.Text)
		case diffmatchpatch.DiffInsert:
			if pending == nil {
				pending = &position.Edit{Span: position.NewSpan(offset, 0)}
			}
			pending.NewLength += len(d.Text)
		}
	}
	flush()

	return out
}

// Lines renders a line diff of two texts, one line per entry, prefixed with
// "-" for removed lines, "+" for added lines and " " for kept ones.
func Lines(old, new string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	changed := false
	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
			changed = true
		case diffmatchpatch.DiffInsert:
			prefix = "+"
			changed = true
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(strings.TrimSuffix(line, "\n"))
			sb.WriteString("\n")
		}
	}
	if !changed {
		return ""
	}
	return sb.String()
}

// DiffExportedOnly pretty prints both values without unexported fields and
// returns a readable line diff, or "" when they print the same.
func DiffExportedOnly[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	abc := Lines(printer.Sprint(got), printer.Sprint(want))
	if abc == "" {
		return ""
	}
	str := "\n\n"
	str += "to convert ACTUAL ⏩️ EXPECTED:\n\n"
	str += "add:    ➕\n"
	str += "remove: ➖\n"
	str += "\n"
	str += strings.ReplaceAll(strings.ReplaceAll("\n"+abc, "\n-", "\n➖"), "\n+", "\n➕")

	return str
}
