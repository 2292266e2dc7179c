package expr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/logtmpl/pkg/expr"
	"github.com/walteh/logtmpl/pkg/position"
	"pgregory.net/rapid"
)

type rt struct {
	Kind expr.RegionKind
	Text string
}

func regionTexts(src string, regions []expr.Region) []rt {
	out := make([]rt, 0, len(regions))
	for _, r := range regions {
		out = append(out, rt{r.Kind, src[r.Offset : r.Offset+r.Length]})
	}
	return out
}

func TestParse(t *testing.T) {
	src := "@l = 'Error' and Contains(@m, 'db') ci"
	got := regionTexts(src, expr.Parse(src))
	expected := []rt{
		{expr.RegionBuiltin, "@l"},
		{expr.RegionOperator, "="},
		{expr.RegionLiteral, "'Error'"},
		{expr.RegionKeyword, "and"},
		{expr.RegionFunction, "Contains"},
		{expr.RegionPunctuation, "("},
		{expr.RegionBuiltin, "@m"},
		{expr.RegionPunctuation, ","},
		{expr.RegionLiteral, "'db'"},
		{expr.RegionPunctuation, ")"},
		{expr.RegionKeyword, "ci"},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSkipsUnknown(t *testing.T) {
	src := "A ! B"
	got := regionTexts(src, expr.Parse(src))
	assert.Equal(t, []rt{{expr.RegionProperty, "A"}, {expr.RegionProperty, "B"}}, got)
}

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []rt
	}{
		{
			name:  "hole_with_format",
			input: "[{@t:HH:mm:ss}] {@m}",
			expected: []rt{
				{expr.RegionBrace, "{"},
				{expr.RegionBuiltin, "@t"},
				{expr.RegionPunctuation, ":"},
				{expr.RegionFormat, "HH:mm:ss"},
				{expr.RegionBrace, "}"},
				{expr.RegionBrace, "{"},
				{expr.RegionBuiltin, "@m"},
				{expr.RegionBrace, "}"},
			},
		},
		{
			name:  "alignment_and_format",
			input: "{@l,-5:u3}",
			expected: []rt{
				{expr.RegionBrace, "{"},
				{expr.RegionBuiltin, "@l"},
				{expr.RegionPunctuation, ","},
				{expr.RegionFormat, "-5"},
				{expr.RegionPunctuation, ":"},
				{expr.RegionFormat, "u3"},
				{expr.RegionBrace, "}"},
			},
		},
		{
			name:  "escaped_braces_are_text",
			input: "{{literal}} {Name}",
			expected: []rt{
				{expr.RegionBrace, "{"},
				{expr.RegionProperty, "Name"},
				{expr.RegionBrace, "}"},
			},
		},
		{
			name:  "comma_inside_call_is_not_alignment",
			input: "{Substring(Name, 0, 3)}",
			expected: []rt{
				{expr.RegionBrace, "{"},
				{expr.RegionFunction, "Substring"},
				{expr.RegionPunctuation, "("},
				{expr.RegionProperty, "Name"},
				{expr.RegionPunctuation, ","},
				{expr.RegionLiteral, "0"},
				{expr.RegionPunctuation, ","},
				{expr.RegionLiteral, "3"},
				{expr.RegionPunctuation, ")"},
				{expr.RegionBrace, "}"},
			},
		},
		{
			name:  "directive",
			input: "{#if @l = 'Error'}!{#end}",
			expected: []rt{
				{expr.RegionBrace, "{"},
				{expr.RegionDirective, "#if"},
				{expr.RegionBuiltin, "@l"},
				{expr.RegionOperator, "="},
				{expr.RegionLiteral, "'Error'"},
				{expr.RegionBrace, "}"},
				{expr.RegionBrace, "{"},
				{expr.RegionDirective, "#end"},
				{expr.RegionBrace, "}"},
			},
		},
		{
			name:  "each_with_two_variables",
			input: "{#each k, v in @p}{k}{#end}",
			expected: []rt{
				{expr.RegionBrace, "{"},
				{expr.RegionDirective, "#each"},
				{expr.RegionProperty, "k"},
				{expr.RegionPunctuation, ","},
				{expr.RegionProperty, "v"},
				{expr.RegionKeyword, "in"},
				{expr.RegionBuiltin, "@p"},
				{expr.RegionBrace, "}"},
				{expr.RegionBrace, "{"},
				{expr.RegionProperty, "k"},
				{expr.RegionBrace, "}"},
				{expr.RegionBrace, "{"},
				{expr.RegionDirective, "#end"},
				{expr.RegionBrace, "}"},
			},
		},
		{
			name:  "brace_inside_string_does_not_close",
			input: "{Replace(Name, '}', '')}",
			expected: []rt{
				{expr.RegionBrace, "{"},
				{expr.RegionFunction, "Replace"},
				{expr.RegionPunctuation, "("},
				{expr.RegionProperty, "Name"},
				{expr.RegionPunctuation, ","},
				{expr.RegionLiteral, "'}'"},
				{expr.RegionPunctuation, ","},
				{expr.RegionLiteral, "''"},
				{expr.RegionPunctuation, ")"},
				{expr.RegionBrace, "}"},
			},
		},
		{
			name:  "unterminated_hole",
			input: "x {@m",
			expected: []rt{
				{expr.RegionBrace, "{"},
				{expr.RegionBuiltin, "@m"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := regionTexts(tt.input, expr.ParseTemplate(tt.input))
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("ParseTemplate(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseTemplateBlocks(t *testing.T) {
	t.Run("same_kind_nesting", func(t *testing.T) {
		src := "{#if A}{#if B}b{#else}c{#end}{#end}"
		_, blocks := expr.ParseTemplateBlocks(src)
		require.Len(t, blocks, 2)

		outer, inner := blocks[0], blocks[1]
		assert.Equal(t, "if", outer.Keyword)
		assert.Equal(t, "{#if A}", outer.Open.Text(src))
		assert.True(t, outer.Closed)
		assert.Equal(t, position.NewSpan(29, 6), outer.End)
		assert.Empty(t, outer.Branches)

		assert.Equal(t, "{#if B}", inner.Open.Text(src))
		require.Len(t, inner.Branches, 1)
		assert.Equal(t, "{#else}", inner.Branches[0].Text(src))
		assert.Equal(t, position.NewSpan(23, 6), inner.End)
		assert.True(t, inner.Closed)
	})

	t.Run("each_inside_if", func(t *testing.T) {
		src := "{#if @p}{#each k in @p}{k}{#end}{#else if true}x{#end}"
		_, blocks := expr.ParseTemplateBlocks(src)
		require.Len(t, blocks, 2)
		assert.Equal(t, "if", blocks[0].Keyword)
		assert.Equal(t, "each", blocks[1].Keyword)
		require.Len(t, blocks[0].Branches, 1)
		assert.Equal(t, "{#else if true}", blocks[0].Branches[0].Text(src))
		assert.True(t, blocks[0].Closed)
		assert.True(t, blocks[1].Closed)
	})

	t.Run("unclosed_at_end_of_input", func(t *testing.T) {
		src := "{#if A}{#each x in B}{x}"
		regions, blocks := expr.ParseTemplateBlocks(src)
		require.Len(t, blocks, 2)
		assert.False(t, blocks[0].Closed)
		assert.False(t, blocks[1].Closed)
		assert.NotEmpty(t, regions)
	})

	t.Run("stray_end_degrades", func(t *testing.T) {
		src := "{#end}{#else}text"
		regions, blocks := expr.ParseTemplateBlocks(src)
		assert.Empty(t, blocks)
		got := regionTexts(src, regions)
		assert.Contains(t, got, rt{expr.RegionDirective, "#end"})
		assert.Contains(t, got, rt{expr.RegionDirective, "#else"})
	})
}

func TestParseTemplateNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.StringMatching(`[{}#a-z@,:' ]{0,40}`).Draw(t, "input")
		for _, r := range expr.ParseTemplate(input) {
			if r.Offset < 0 || r.Offset+r.Length > len(input) || r.Length <= 0 {
				t.Fatalf("region %v out of range for %q", r, input)
			}
		}
	})
}
