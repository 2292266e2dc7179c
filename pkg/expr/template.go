/*
Expression Templates:
--------------------
An expression template mixes literal text with holes and directive blocks:

	[{@t:HH:mm:ss} {@l:u3}] {#if SourceContext is not null}({SourceContext}) {#end}{@m}
	 ^  ^ ^          ^        ^                                                ^
	 |  | format     |        directive hole                                   {#end} closes
	 |  builtin      brace                                                     the innermost
	 hole                                                                      open block

	{#if c}…{#else if d}…{#else}…{#end}     conditional block
	{#each name, value in @p}…{#end}         iteration block

Blocks of the same kind nest; anything left open at the end of input is
closed implicitly (Block.Closed == false) instead of failing.
*/
package expr

import (
	"strings"

	"github.com/walteh/logtmpl/pkg/position"
)

// Block is one directive block of an expression template.
type Block struct {
	// Keyword is "if" or "each".
	Keyword string

	// Open, Branches and End cover whole directive holes including braces.
	Open     position.Span
	Branches []position.Span
	End      position.Span

	// Closed is false when the block was still open at the end of input.
	Closed bool
}

// ParseTemplate classifies an expression template.
func ParseTemplate(template string) []Region {
	regions, _ := ParseTemplateBlocks(template)
	return regions
}

// ParseTemplateBlocks classifies an expression template and reports its
// directive blocks in order of their opening holes.
func ParseTemplateBlocks(template string) ([]Region, []Block) {
	var regions []Region
	var blocks []Block
	var open []int

	n := len(template)
	i := 0
	for i < n {
		switch template[i] {
		case '{':
			if i+1 < n && template[i+1] == '{' {
				i += 2
				continue
			}

			h := scanHole(template, i)
			regions = h.appendRegions(regions, template)

			switch h.directive {
			case "if", "each":
				blocks = append(blocks, Block{Keyword: h.directive, Open: h.span()})
				open = append(open, len(blocks)-1)
			case "else":
				if len(open) > 0 {
					top := open[len(open)-1]
					blocks[top].Branches = append(blocks[top].Branches, h.span())
				}
			case "end":
				if len(open) > 0 {
					top := open[len(open)-1]
					open = open[:len(open)-1]
					blocks[top].End = h.span()
					blocks[top].Closed = true
				}
			}

			i = h.next()
		case '}':
			if i+1 < n && template[i+1] == '}' {
				i += 2
				continue
			}
			i++
		default:
			i++
		}
	}

	return regions, blocks
}

type hole struct {
	open  int
	close int // -1 when unterminated
	end   int // len(template) when unterminated

	alignAt  int
	formatAt int

	directive string
}

func (h hole) span() position.Span {
	if h.close < 0 {
		return position.FromBounds(h.open, h.end)
	}
	return position.FromBounds(h.open, h.close+1)
}

func (h hole) next() int {
	if h.close < 0 {
		return h.end
	}
	return h.close + 1
}

// scanHole finds the extent of the hole opened at open. Nested brackets and
// quoted strings are skipped; for non-directive holes the first top-level ','
// starts the alignment and the first top-level ':' starts the format.
func scanHole(template string, open int) hole {
	h := hole{open: open, close: -1, end: len(template), alignAt: -1, formatAt: -1}

	body := strings.TrimLeft(template[open+1:], " \t")
	isDirective := strings.HasPrefix(body, "#")
	if isDirective {
		word := body[1:]
		end := strings.IndexFunc(word, func(r rune) bool {
			return !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
		})
		if end >= 0 {
			word = word[:end]
		}
		h.directive = strings.ToLower(word)
	}

	depth := 0
	for j := open + 1; j < len(template); j++ {
		c := template[j]

		if h.formatAt >= 0 {
			if c == '}' {
				h.close = j
				return h
			}
			continue
		}

		switch c {
		case '\'':
			j = skipQuoted(template, j)
		case '(', '[', '{':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case '}':
			if depth == 0 {
				h.close = j
				return h
			}
			depth--
		case ',':
			if depth == 0 && !isDirective && h.alignAt < 0 {
				h.alignAt = j
			}
		case ':':
			if depth == 0 && !isDirective {
				h.formatAt = j
			}
		}
	}
	return h
}

// skipQuoted returns the index of the quote closing the string opened at i.
func skipQuoted(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != '\'' {
			continue
		}
		if j+1 < len(s) && s[j+1] == '\'' {
			j++
			continue
		}
		return j
	}
	return len(s) - 1
}

func (h hole) appendRegions(out []Region, template string) []Region {
	out = append(out, Region{Kind: RegionBrace, Offset: h.open, Length: 1})

	closeAt := h.end
	if h.close >= 0 {
		closeAt = h.close
	}

	exprEnd := closeAt
	if h.alignAt >= 0 {
		exprEnd = h.alignAt
	} else if h.formatAt >= 0 {
		exprEnd = h.formatAt
	}
	out = regionsFor(out, template[h.open+1:exprEnd], h.open+1)

	if h.alignAt >= 0 {
		alignEnd := closeAt
		if h.formatAt >= 0 {
			alignEnd = h.formatAt
		}
		out = append(out, Region{Kind: RegionPunctuation, Offset: h.alignAt, Length: 1})
		if alignEnd > h.alignAt+1 {
			out = append(out, Region{Kind: RegionFormat, Offset: h.alignAt + 1, Length: alignEnd - h.alignAt - 1})
		}
	}

	if h.formatAt >= 0 {
		out = append(out, Region{Kind: RegionPunctuation, Offset: h.formatAt, Length: 1})
		if closeAt > h.formatAt+1 {
			out = append(out, Region{Kind: RegionFormat, Offset: h.formatAt + 1, Length: closeAt - h.formatAt - 1})
		}
	}

	if h.close >= 0 {
		out = append(out, Region{Kind: RegionBrace, Offset: h.close, Length: 1})
	}
	return out
}
