/*
Report rows:
-----------
One row per classification token, located the way an editor shows it:

	logger.LogInformation("Hello {Name}")
	                             ^^^^
	file.cs:1:31 property Name

Columns are 1-based and count grapheme clusters, with tabs advancing to the
next multiple of the tab width.
*/
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/editorconfig/editorconfig-core-go/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/document"
	"github.com/walteh/logtmpl/pkg/semtok"
)

const DefaultTabWidth = 4

type Row struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Category string `json:"category"`
	Modifier string `json:"modifier,omitempty"`
	Text     string `json:"text"`
}

func (r Row) String() string {
	cat := r.Category
	if r.Modifier != "" {
		cat += "+" + r.Modifier
	}
	return fmt.Sprintf("%s:%d:%d %s %s", r.File, r.Line, r.Column, cat, r.Text)
}

// Rows locates tokens in snap. Tokens spanning a line break are reported at
// their start.
func Rows(snap *document.Snapshot, tokens []semtok.Token, tabWidth int) []Row {
	text := snap.Text()
	out := make([]Row, 0, len(tokens))
	for _, t := range tokens {
		line := snap.LineOfOffset(t.Span.Start)
		ls := snap.LineSpan(line)

		row := Row{
			File:     snap.URI(),
			Line:     line + 1,
			Column:   Column(text[ls.Start:t.Span.Start], tabWidth),
			Category: t.Type.String(),
			Text:     t.Span.Text(text),
		}
		if t.Modifier != semtok.ModifierNone {
			row.Modifier = t.Modifier.String()
		}
		out = append(out, row)
	}
	return out
}

// Column returns the 1-based display column after prefix.
func Column(prefix string, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}

	clusters, err := textseg.AllTokens([]byte(prefix), textseg.ScanGraphemeClusters)
	if err != nil {
		return len(prefix) + 1
	}

	col := 0
	for _, c := range clusters {
		if len(c) == 1 && c[0] == '\t' {
			col += tabWidth - col%tabWidth
			continue
		}
		col++
	}
	return col + 1
}

// TabWidth reads the tab width that .editorconfig files assign to path.
func TabWidth(path string) (int, error) {
	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil {
		return DefaultTabWidth, errors.Errorf("reading editorconfig for %s: %w", path, err)
	}
	if def.TabWidth > 0 {
		return def.TabWidth, nil
	}
	return DefaultTabWidth, nil
}

func WriteText(w io.Writer, rows []Row) error {
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return errors.Errorf("writing row: %w", err)
		}
	}
	return nil
}

func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if rows == nil {
		rows = []Row{}
	}
	if err := enc.Encode(rows); err != nil {
		return errors.Errorf("encoding rows: %w", err)
	}
	return nil
}

// Text renders rows one per line, as WriteText does.
func Text(rows []Row) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}
