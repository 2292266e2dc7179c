package semtok

import (
	"cmp"
	"slices"

	"github.com/walteh/logtmpl/pkg/expr"
	"github.com/walteh/logtmpl/pkg/msgtmpl"
	"github.com/walteh/logtmpl/pkg/position"
)

// FromProperty returns the tokens of one property, shifted by base.
//
//	{@User,-10:json}
//	^^^   ^^^ ^^^^^^
//	||    ||| |`--- format
//	||    ||| `---- punctuation
//	||    |``------ alignment
//	||    `-------- punctuation
//	|`------------- property (Length 4)
//	`-------------- brace, destructure
func FromProperty(p msgtmpl.Property, base int) []Token {
	mod := ModifierNone
	if p.IsPartial() {
		mod = ModifierPartial
	}

	out := make([]Token, 0, 8)
	add := func(t TokenType, start, length int) {
		if length <= 0 {
			return
		}
		out = append(out, Token{Type: t, Modifier: mod, Span: position.NewSpan(base+start, length)})
	}

	add(TokenBrace, p.BraceStartIndex, 1)

	switch p.Type {
	case msgtmpl.Destructured:
		add(TokenDestructure, p.OperatorIndex, 1)
	case msgtmpl.Stringified:
		add(TokenStringify, p.OperatorIndex, 1)
	}

	if p.Type == msgtmpl.Positional {
		add(TokenPositional, p.StartIndex, p.Length)
	} else {
		add(TokenProperty, p.StartIndex, p.Length)
	}

	if p.HasAlignment() {
		add(TokenPunctuation, p.AlignmentStartIndex-1, 1)
		add(TokenAlignment, p.AlignmentStartIndex, len(p.Alignment))
	}
	if p.HasFormat() {
		add(TokenPunctuation, p.FormatStartIndex-1, 1)
		add(TokenFormat, p.FormatStartIndex, len(p.Format))
	}

	if !p.IsPartial() {
		add(TokenBrace, p.BraceEndIndex, 1)
	}
	return out
}

func FromProperties(props []msgtmpl.Property, base int) []Token {
	var out []Token
	for _, p := range props {
		out = append(out, FromProperty(p, base)...)
	}
	return out
}

// FromRegions converts expression regions, shifted by base.
func FromRegions(regions []expr.Region, base int) []Token {
	out := make([]Token, 0, len(regions))
	for _, r := range regions {
		t, ok := regionType(r.Kind)
		if !ok || r.Length <= 0 {
			continue
		}
		out = append(out, Token{Type: t, Span: position.NewSpan(base+r.Offset, r.Length)})
	}
	return out
}

// MarkUnclosed flags the directive tokens inside the opening holes of blocks
// that never close. Tokens and blocks must use the same base.
func MarkUnclosed(tokens []Token, blocks []expr.Block, base int) []Token {
	for _, b := range blocks {
		if b.Closed {
			continue
		}
		open := b.Open.Shift(base)
		for i := range tokens {
			if tokens[i].Type == TokenExpressionDirective && open.OverlapsWith(tokens[i].Span) {
				tokens[i].Modifier |= ModifierUnclosed
			}
		}
	}
	return tokens
}

func regionType(k expr.RegionKind) (TokenType, bool) {
	switch k {
	case expr.RegionProperty:
		return TokenExpressionProperty, true
	case expr.RegionOperator:
		return TokenExpressionOperator, true
	case expr.RegionFunction:
		return TokenExpressionFunction, true
	case expr.RegionKeyword:
		return TokenExpressionKeyword, true
	case expr.RegionLiteral:
		return TokenExpressionLiteral, true
	case expr.RegionDirective:
		return TokenExpressionDirective, true
	case expr.RegionBuiltin:
		return TokenExpressionBuiltin, true
	case expr.RegionPunctuation:
		return TokenPunctuation, true
	case expr.RegionBrace:
		return TokenBrace, true
	case expr.RegionFormat:
		return TokenFormat, true
	default:
		return 0, false
	}
}

// Shift returns a copy of tokens moved by delta.
func Shift(tokens []Token, delta int) []Token {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		t.Span = t.Span.Shift(delta)
		out[i] = t
	}
	return out
}

// Sort orders tokens by start offset, longer tokens first on ties.
func Sort(tokens []Token) {
	slices.SortStableFunc(tokens, func(a, b Token) int {
		if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
			return c
		}
		return cmp.Compare(b.Span.Length, a.Span.Length)
	})
}

// Within keeps the tokens that overlap span.
func Within(tokens []Token, span position.Span) []Token {
	var out []Token
	for _, t := range tokens {
		if t.Span.OverlapsWith(span) {
			out = append(out, t)
		}
	}
	return out
}
