package msgtmpl

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Policy decides what happens to a property whose closing brace never arrives.
type Policy int

const (
	// PolicyDiscard drops the unterminated property. Highlighting uses this so
	// a half-typed placeholder never bleeds into the rest of the line.
	PolicyDiscard Policy = iota

	// PolicyPartial emits the unterminated property with BraceEndIndex = -1.
	// Navigation uses this to map a placeholder that is still being typed.
	PolicyPartial
)

type Options struct {
	Policy Policy
}

// Tokenize lazily yields the properties of template using PolicyDiscard.
func Tokenize(template string) iter.Seq[Property] {
	return TokenizeWith(template, Options{})
}

// Parse returns every property of template using PolicyDiscard.
func Parse(template string) []Property {
	return slices.Collect(Tokenize(template))
}

// ParseForNavigation returns every property of template using PolicyPartial.
func ParseForNavigation(template string) []Property {
	return slices.Collect(TokenizeWith(template, Options{Policy: PolicyPartial}))
}

// TokenizeWith lazily yields the properties of template. The sequence is a
// pure function of its input and may be ranged over any number of times.
func TokenizeWith(template string, opts Options) iter.Seq[Property] {
	return func(yield func(Property) bool) {
		n := len(template)
		i := 0
		for i < n {
			switch template[i] {
			case '{':
				if i+1 < n && template[i+1] == '{' {
					i += 2
					continue
				}

				closeAt, closed := findClose(template, i+1)
				if !closed {
					if opts.Policy == PolicyPartial {
						if prop, ok := parseBody(template, i, closeAt, true); ok {
							if !yield(prop) {
								return
							}
						}
					}
					// resume one byte later so a nested '{' still gets its chance
					i++
					continue
				}

				if prop, ok := parseBody(template, i, closeAt, false); ok {
					if !yield(prop) {
						return
					}
				}
				i = closeAt + 1
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
	}
}

// findClose returns the index of the '}' that closes a body starting at from.
// When another '{' or the end of input comes first it returns that index and false.
func findClose(template string, from int) (int, bool) {
	for j := from; j < len(template); j++ {
		switch template[j] {
		case '}':
			return j, true
		case '{':
			return j, false
		}
	}
	return len(template), false
}

// parseBody validates template[open+1:end] as a property body. In partial mode
// trailing garbage is tolerated and an invalid alignment is dropped.
func parseBody(template string, open, end int, partial bool) (Property, bool) {
	bodyStart := open + 1
	body := template[bodyStart:end]
	if body == "" {
		return Property{}, false
	}

	prop := Property{
		Type:                Standard,
		BraceStartIndex:     open,
		BraceEndIndex:       end,
		OperatorIndex:       -1,
		FormatStartIndex:    -1,
		AlignmentStartIndex: -1,
	}
	if partial {
		prop.BraceEndIndex = -1
	}

	k := 0
	switch body[0] {
	case '@':
		prop.Type = Destructured
		prop.OperatorIndex = bodyStart
		k = 1
	case '$':
		prop.Type = Stringified
		prop.OperatorIndex = bodyStart
		k = 1
	}

	nameStart := k
	for k < len(body) {
		r, size := utf8.DecodeRuneInString(body[k:])
		if !isNameRune(r) {
			break
		}
		k += size
	}
	if k == nameStart {
		return Property{}, false
	}

	prop.Name = body[nameStart:k]
	prop.StartIndex = bodyStart + nameStart
	prop.Length = k - nameStart

	if prop.Type == Standard && isASCIIDigits(prop.Name) {
		prop.Type = Positional
	}

	if k < len(body) && body[k] == ',' {
		alignEnd := strings.IndexByte(body[k:], ':')
		if alignEnd < 0 {
			alignEnd = len(body)
		} else {
			alignEnd += k
		}

		alignment := body[k+1 : alignEnd]
		if isAlignment(alignment) {
			prop.Alignment = alignment
			prop.AlignmentStartIndex = bodyStart + k + 1
		} else if !partial {
			return Property{}, false
		}
		k = alignEnd
	}

	if k < len(body) && body[k] == ':' {
		prop.Format = body[k+1:]
		prop.FormatStartIndex = bodyStart + k + 1
		k = len(body)
	}

	if k != len(body) && !partial {
		// whitespace or any other stray character after the name
		return Property{}, false
	}

	return prop, true
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// isAlignment accepts -?[0-9]+
func isAlignment(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return isASCIIDigits(s)
}
