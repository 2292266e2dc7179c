package expr

import (
	"fmt"

	"github.com/walteh/logtmpl/pkg/position"
)

// RegionKind is the highlight category of a region.
type RegionKind int

const (
	RegionProperty RegionKind = iota + 1
	RegionOperator
	RegionFunction
	RegionKeyword
	RegionLiteral
	RegionDirective
	RegionBuiltin
	RegionPunctuation
	RegionBrace
	RegionFormat
)

func (k RegionKind) String() string {
	switch k {
	case RegionProperty:
		return "property"
	case RegionOperator:
		return "operator"
	case RegionFunction:
		return "function"
	case RegionKeyword:
		return "keyword"
	case RegionLiteral:
		return "literal"
	case RegionDirective:
		return "directive"
	case RegionBuiltin:
		return "builtin"
	case RegionPunctuation:
		return "punctuation"
	case RegionBrace:
		return "brace"
	case RegionFormat:
		return "format"
	default:
		return "unknown"
	}
}

// Region is a highlightable range of an expression or expression template.
type Region struct {
	Kind   RegionKind
	Offset int
	Length int
}

func (r Region) Span() position.Span {
	return position.NewSpan(r.Offset, r.Length)
}

func (r Region) String() string {
	return fmt.Sprintf("%s%s", r.Kind, r.Span())
}

// Parse classifies a filter or computed-property expression, one region per
// recognized token.
func Parse(expression string) []Region {
	return regionsFor(nil, expression, 0)
}

func regionsFor(out []Region, src string, base int) []Region {
	for tok := range tokenizeAt(src, base) {
		kind, ok := regionKind(tok.Kind)
		if !ok {
			continue
		}
		out = append(out, Region{Kind: kind, Offset: tok.Offset, Length: len(tok.Text)})
	}
	return out
}

func regionKind(k TokenKind) (RegionKind, bool) {
	switch k {
	case TokenProperty:
		return RegionProperty, true
	case TokenFunction:
		return RegionFunction, true
	case TokenBuiltin:
		return RegionBuiltin, true
	case TokenString, TokenNumber, TokenBoolean, TokenNull:
		return RegionLiteral, true
	case TokenOperator, TokenWildcard:
		return RegionOperator, true
	case TokenKeyword:
		return RegionKeyword, true
	case TokenDirective:
		return RegionDirective, true
	case TokenLeftParen, TokenRightParen, TokenLeftBracket, TokenRightBracket,
		TokenLeftBrace, TokenRightBrace, TokenComma, TokenColon, TokenDot:
		return RegionPunctuation, true
	default:
		return 0, false
	}
}
