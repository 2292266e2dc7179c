/*
Token Types and Modifiers:
------------------------
A token is a category plus a span:

	+-------------+     +-----------------+
	| TokenType   | --> | position.Span   |
	+-------------+     +-----------------+
	      |                  |
	      v                  v
	[Property,         [Start, Length)
	 Brace,             byte offsets into
	 Format,            the document
	 etc.]
*/
package semtok

import (
	"fmt"

	"github.com/walteh/logtmpl/pkg/position"
)

// TokenType is the highlight category of a token
type TokenType uint32

const (
	// TokenBrace is the { or } around a property or expression hole
	TokenBrace TokenType = iota + 1

	// TokenProperty is a property name (e.g., Name in {Name})
	TokenProperty

	// TokenPositional is an index property (e.g., 0 in {0})
	TokenPositional

	// TokenDestructure is the @ operator
	TokenDestructure

	// TokenStringify is the $ operator
	TokenStringify

	// TokenAlignment is the text after ',' (e.g., -10)
	TokenAlignment

	// TokenFormat is the text after ':' (e.g., yyyy-MM-dd)
	TokenFormat

	// TokenPunctuation is a clause delimiter or expression punctuation
	TokenPunctuation

	TokenExpressionProperty
	TokenExpressionOperator
	TokenExpressionFunction
	TokenExpressionKeyword
	TokenExpressionLiteral
	TokenExpressionDirective
	TokenExpressionBuiltin

	tokenTypeEnd
)

// TokenModifier marks additional characteristics of a token
type TokenModifier uint32

const (
	ModifierNone TokenModifier = 0

	// ModifierPartial marks tokens of a property whose closing brace is missing
	ModifierPartial TokenModifier = 1 << iota

	// ModifierUnclosed marks directives of a block that never reaches {#end}
	ModifierUnclosed
)

// Token is one classification span
type Token struct {
	Type     TokenType
	Modifier TokenModifier
	Span     position.Span
}

func (t Token) String() string {
	if t.Modifier != ModifierNone {
		return fmt.Sprintf("%s+%s%s", t.Type, t.Modifier, t.Span)
	}
	return fmt.Sprintf("%s%s", t.Type, t.Span)
}

// String returns the legend name of the token type
func (t TokenType) String() string {
	switch t {
	case TokenBrace:
		return "brace"
	case TokenProperty:
		return "property"
	case TokenPositional:
		return "positional"
	case TokenDestructure:
		return "destructure"
	case TokenStringify:
		return "stringify"
	case TokenAlignment:
		return "alignment"
	case TokenFormat:
		return "format"
	case TokenPunctuation:
		return "punctuation"
	case TokenExpressionProperty:
		return "expression.property"
	case TokenExpressionOperator:
		return "expression.operator"
	case TokenExpressionFunction:
		return "expression.function"
	case TokenExpressionKeyword:
		return "expression.keyword"
	case TokenExpressionLiteral:
		return "expression.literal"
	case TokenExpressionDirective:
		return "expression.directive"
	case TokenExpressionBuiltin:
		return "expression.builtin"
	default:
		return "unknown"
	}
}

// String returns a human-readable representation of the token modifier
func (m TokenModifier) String() string {
	switch m {
	case ModifierNone:
		return "none"
	case ModifierPartial:
		return "partial"
	case ModifierUnclosed:
		return "unclosed"
	default:
		return "unknown"
	}
}

// Legend lists every token type name in TokenType order starting at TokenBrace.
func Legend() []string {
	out := make([]string, 0, tokenTypeEnd-1)
	for t := TokenBrace; t < tokenTypeEnd; t++ {
		out = append(out, t.String())
	}
	return out
}
