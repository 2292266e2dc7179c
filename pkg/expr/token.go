/*
Expression Tokens:
-----------------
Filters, computed properties and expression templates share one small
language:

	@l = 'Error' and StartsWith(User.Name, 'adm') ci and @p['RequestId'] is not null
	^^ ^ ^^^^^^^ ^^^ ^^^^^^^^^^ ^^^^^^^^^          ^^     ^^ ^^^^^^^^^^^  ^^ ^^^ ^^^^
	|  | |       |   |          |                  |      |  |            |  |   +- null
	|  | |       |   |          property path      |      |  string       keyword
	|  | string  |   function                      |      builtin (indexed)
	|  operator  keyword                           ci (after ')' only)
	builtin

Whitespace separates tokens but is never required between them:
Level='Error' and Level = 'Error' produce the same kinds and texts.
*/
package expr

import (
	"fmt"

	"github.com/walteh/logtmpl/pkg/position"
)

type TokenKind int

const (
	TokenUnknown TokenKind = iota
	TokenProperty
	TokenFunction
	TokenBuiltin
	TokenString
	TokenNumber
	TokenBoolean
	TokenNull
	TokenOperator
	TokenKeyword
	TokenDirective
	TokenLeftParen
	TokenRightParen
	TokenLeftBracket
	TokenRightBracket
	TokenLeftBrace
	TokenRightBrace
	TokenComma
	TokenColon
	TokenDot
	TokenWildcard
)

func (k TokenKind) String() string {
	switch k {
	case TokenProperty:
		return "property"
	case TokenFunction:
		return "function"
	case TokenBuiltin:
		return "builtin"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenBoolean:
		return "boolean"
	case TokenNull:
		return "null"
	case TokenOperator:
		return "operator"
	case TokenKeyword:
		return "keyword"
	case TokenDirective:
		return "directive"
	case TokenLeftParen:
		return "("
	case TokenRightParen:
		return ")"
	case TokenLeftBracket:
		return "["
	case TokenRightBracket:
		return "]"
	case TokenLeftBrace:
		return "{"
	case TokenRightBrace:
		return "}"
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenDot:
		return "."
	case TokenWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. Offset is a byte offset into the tokenized text.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
}

func (t Token) Span() position.Span {
	return position.NewSpan(t.Offset, len(t.Text))
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Offset)
}

// builtins are the properties every log event carries.
var builtins = map[string]bool{
	"@t":  true, // timestamp
	"@m":  true, // rendered message
	"@mt": true, // message template
	"@l":  true, // level
	"@x":  true, // exception
	"@p":  true, // properties dictionary
	"@i":  true, // event id
	"@r":  true, // renderings
	"@tr": true, // trace id
	"@sp": true, // span id
}

var wordOperators = map[string]bool{
	"and":  true,
	"or":   true,
	"not":  true,
	"like": true,
	"in":   true,
	"is":   true,
	"if":   true,
	"then": true,
	"else": true,
}

// IsBuiltin reports whether name (including '@') is a known built-in property.
func IsBuiltin(name string) bool {
	return builtins[name]
}
