package expr

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize lazily yields the tokens of expression. Unknown characters become
// TokenUnknown and scanning continues; the sequence never fails.
func Tokenize(expression string) iter.Seq[Token] {
	return tokenizeAt(expression, 0)
}

// TokenizeAll collects Tokenize.
func TokenizeAll(expression string) []Token {
	return slices.Collect(Tokenize(expression))
}

// tokenizeAt tokenizes src and reports offsets shifted by base.
func tokenizeAt(src string, base int) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		lx := &lexer{src: src, base: base}
		for {
			tok, ok := lx.next()
			if !ok {
				return
			}
			if !yield(tok) {
				return
			}
		}
	}
}

type lexer struct {
	src  string
	base int
	pos  int
	prev TokenKind
	has  bool
}

func (me *lexer) emit(kind TokenKind, start int) (Token, bool) {
	me.prev = kind
	me.has = true
	return Token{Kind: kind, Text: me.src[start:me.pos], Offset: me.base + start}, true
}

func (me *lexer) next() (Token, bool) {
	for me.pos < len(me.src) {
		r, size := utf8.DecodeRuneInString(me.src[me.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		me.pos += size
	}
	if me.pos >= len(me.src) {
		return Token{}, false
	}

	start := me.pos
	c := me.src[me.pos]

	switch {
	case c == '\'':
		me.scanString()
		return me.emit(TokenString, start)
	case c >= '0' && c <= '9':
		me.scanNumber()
		return me.emit(TokenNumber, start)
	case c == '@':
		me.pos++
		me.scanWord()
		if IsBuiltin(me.src[start:me.pos]) {
			return me.emit(TokenBuiltin, start)
		}
		return me.emit(TokenUnknown, start)
	case c == '#':
		me.pos++
		me.scanWord()
		if me.pos-start == 1 {
			return me.emit(TokenUnknown, start)
		}
		return me.emit(TokenDirective, start)
	case isIdentStart(c, me.src[me.pos:]):
		return me.scanIdentifier(start)
	}

	me.pos++
	switch c {
	case '(':
		return me.emit(TokenLeftParen, start)
	case ')':
		return me.emit(TokenRightParen, start)
	case '[':
		return me.emit(TokenLeftBracket, start)
	case ']':
		return me.emit(TokenRightBracket, start)
	case '{':
		return me.emit(TokenLeftBrace, start)
	case '}':
		return me.emit(TokenRightBrace, start)
	case ',':
		return me.emit(TokenComma, start)
	case ':':
		return me.emit(TokenColon, start)
	case '.':
		return me.emit(TokenDot, start)
	case '?':
		if me.has && me.prev == TokenLeftBracket {
			return me.emit(TokenWildcard, start)
		}
		return me.emit(TokenUnknown, start)
	case '*':
		if me.has && me.prev == TokenLeftBracket {
			return me.emit(TokenWildcard, start)
		}
		return me.emit(TokenOperator, start)
	case '<':
		if me.pos < len(me.src) && (me.src[me.pos] == '>' || me.src[me.pos] == '=') {
			me.pos++
		}
		return me.emit(TokenOperator, start)
	case '>':
		if me.pos < len(me.src) && me.src[me.pos] == '=' {
			me.pos++
		}
		return me.emit(TokenOperator, start)
	case '=', '+', '-', '/', '%', '^':
		return me.emit(TokenOperator, start)
	}

	// consume the whole rune so offsets stay on boundaries
	_, size := utf8.DecodeRuneInString(me.src[start:])
	me.pos = start + size
	return me.emit(TokenUnknown, start)
}

func (me *lexer) scanIdentifier(start int) (Token, bool) {
	me.scanWord()
	word := me.src[start:me.pos]
	lower := strings.ToLower(word)

	switch {
	case lower == "true" || lower == "false":
		return me.emit(TokenBoolean, start)
	case lower == "null":
		return me.emit(TokenNull, start)
	case lower == "ci":
		if me.has && endsValue(me.prev) {
			return me.emit(TokenKeyword, start)
		}
	case wordOperators[lower]:
		return me.emit(TokenKeyword, start)
	}

	if me.peekNonSpace() == '(' {
		return me.emit(TokenFunction, start)
	}

	// dotted path: User.Role.Name
	for me.pos+1 < len(me.src) && me.src[me.pos] == '.' && isIdentStart(me.src[me.pos+1], me.src[me.pos+1:]) {
		me.pos++
		me.scanWord()
	}
	return me.emit(TokenProperty, start)
}

// endsValue reports whether a token of kind k can close an operand, after
// which ci is the case-insensitive modifier rather than a name.
func endsValue(k TokenKind) bool {
	switch k {
	case TokenRightParen, TokenRightBracket, TokenString, TokenNumber, TokenNull, TokenBoolean, TokenProperty, TokenBuiltin:
		return true
	default:
		return false
	}
}

func (me *lexer) scanWord() {
	for me.pos < len(me.src) {
		r, size := utf8.DecodeRuneInString(me.src[me.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return
		}
		me.pos += size
	}
}

// scanString consumes a quoted string; '' escapes a quote. An unterminated
// string runs to the end of input.
func (me *lexer) scanString() {
	me.pos++
	for me.pos < len(me.src) {
		if me.src[me.pos] == '\'' {
			if me.pos+1 < len(me.src) && me.src[me.pos+1] == '\'' {
				me.pos += 2
				continue
			}
			me.pos++
			return
		}
		me.pos++
	}
}

func (me *lexer) scanNumber() {
	if me.src[me.pos] == '0' && me.pos+1 < len(me.src) && (me.src[me.pos+1] == 'x' || me.src[me.pos+1] == 'X') {
		me.pos += 2
		for me.pos < len(me.src) && isHex(me.src[me.pos]) {
			me.pos++
		}
		return
	}
	for me.pos < len(me.src) && isDigit(me.src[me.pos]) {
		me.pos++
	}
	if me.pos+1 < len(me.src) && me.src[me.pos] == '.' && isDigit(me.src[me.pos+1]) {
		me.pos++
		for me.pos < len(me.src) && isDigit(me.src[me.pos]) {
			me.pos++
		}
	}
}

func (me *lexer) peekNonSpace() byte {
	for i := me.pos; i < len(me.src); i++ {
		switch me.src[i] {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return me.src[i]
		}
	}
	return 0
}

func isIdentStart(c byte, rest string) bool {
	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return true
	}
	if c < utf8.RuneSelf {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsLetter(r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
