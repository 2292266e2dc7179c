/*
Host literal scanning:
---------------------
The engine never parses the host language. It only needs to know where string
literals start and stop so it can tell template text apart from code:

	logger.Information(@"Path {Path}", path); // "not a literal"
	                   ^^            ^        ^^
	                   |Verbatim     End      comment: scanning stops

	"..."      Regular   backslash escapes, ends at the line break
	@"..."     Verbatim  "" escapes a quote, may span lines
	"""..."""  Raw       3+ quotes, closer must repeat the same run
	$ / $$     Interpolated prefix on any of the above
	'"'        Char      skipped so a quote inside it is not a string
*/
package hostlex

import "strings"

type Kind int

const (
	Regular Kind = iota
	Verbatim
	Raw
	Char
)

func (k Kind) String() string {
	switch k {
	case Regular:
		return "regular"
	case Verbatim:
		return "verbatim"
	case Raw:
		return "raw"
	case Char:
		return "char"
	default:
		return "unknown"
	}
}

// Literal is one string or char literal found by Scan. Offsets are bytes into
// the scanned text.
type Literal struct {
	Kind         Kind
	Interpolated bool

	// Start is the first byte of the literal including any $ or @ prefix.
	Start int

	// ContentStart and ContentEnd bound the text between the delimiters.
	// For an unterminated literal ContentEnd is where scanning gave up.
	ContentStart int
	ContentEnd   int

	// End is the byte after the closing delimiter, -1 when unterminated.
	End int

	// Delimiter is the length of the quote run for raw literals.
	Delimiter int
}

func (l Literal) Terminated() bool {
	return l.End >= 0
}

func (l Literal) Content(text string) string {
	return text[l.ContentStart:l.ContentEnd]
}

// Comment is a // or /* */ comment. End is exclusive and stops before the
// line break of a line comment.
type Comment struct {
	Start int
	End   int
}

// Scan finds every literal in text, skipping comments. Text may contain line
// breaks; regular literals and line comments stop at them.
func Scan(text string) []Literal {
	lits, _ := ScanAll(text)
	return lits
}

// ScanAll is Scan that also reports the comments it skipped.
func ScanAll(text string) ([]Literal, []Comment) {
	var out []Literal
	var comments []Comment
	n := len(text)
	i := 0
	for i < n {
		c := text[i]
		switch {
		case c == '/' && i+1 < n && text[i+1] == '/':
			nl := strings.IndexByte(text[i:], '\n')
			if nl < 0 {
				comments = append(comments, Comment{Start: i, End: n})
				return out, comments
			}
			comments = append(comments, Comment{Start: i, End: i + nl})
			i += nl + 1
		case c == '/' && i+1 < n && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				comments = append(comments, Comment{Start: i, End: n})
				return out, comments
			}
			comments = append(comments, Comment{Start: i, End: i + end + 4})
			i += end + 4
		case c == '\'':
			lit, next := scanChar(text, i)
			if lit != nil {
				out = append(out, *lit)
			}
			i = next
		case c == '"' || c == '@' || c == '$':
			lit, next := scanString(text, i)
			if lit != nil {
				out = append(out, *lit)
			}
			i = next
		default:
			i++
		}
	}
	return out, comments
}

// scanString reads a literal starting at i, which may be a prefix character.
// It returns nil and i+1 when the prefix does not introduce a string.
func scanString(text string, i int) (*Literal, int) {
	start := i
	verbatim := false
	interpolated := false

	for i < len(text) && (text[i] == '$' || text[i] == '@') {
		if text[i] == '@' {
			verbatim = true
		} else {
			interpolated = true
		}
		i++
	}
	if i >= len(text) || text[i] != '"' {
		return nil, start + 1
	}

	run := quoteRun(text, i)
	switch {
	case run >= 3 && !verbatim:
		return scanRaw(text, start, i, run, interpolated)
	case verbatim:
		lit := &Literal{Kind: Verbatim, Interpolated: interpolated, Start: start, ContentStart: i + 1}
		end := CloseVerbatim(text, i+1)
		if end < 0 {
			lit.ContentEnd = len(text)
			lit.End = -1
			return lit, len(text)
		}
		lit.ContentEnd = end
		lit.End = end + 1
		return lit, end + 1
	default:
		return scanRegular(text, start, i, interpolated)
	}
}

func scanRegular(text string, start, quote int, interpolated bool) (*Literal, int) {
	lit := &Literal{Kind: Regular, Interpolated: interpolated, Start: start, ContentStart: quote + 1, End: -1}
	j := quote + 1
	for j < len(text) {
		switch text[j] {
		case '\\':
			j += 2
			continue
		case '"':
			lit.ContentEnd = j
			lit.End = j + 1
			return lit, j + 1
		case '\n':
			lit.ContentEnd = j
			return lit, j
		}
		j++
	}
	lit.ContentEnd = len(text)
	return lit, len(text)
}

func scanRaw(text string, start, quote, run int, interpolated bool) (*Literal, int) {
	lit := &Literal{
		Kind:         Raw,
		Interpolated: interpolated,
		Start:        start,
		ContentStart: quote + run,
		End:          -1,
		Delimiter:    run,
	}
	j := quote + run
	for j < len(text) {
		if text[j] != '"' {
			j++
			continue
		}
		r := quoteRun(text, j)
		if r >= run {
			lit.ContentEnd = j
			lit.End = j + run
			return lit, j + r
		}
		j += r
	}
	lit.ContentEnd = len(text)
	return lit, len(text)
}

func scanChar(text string, i int) (*Literal, int) {
	j := i + 1
	if j < len(text) && text[j] == '\\' {
		j += 2
	} else {
		j++
	}
	// allow \uXXXX style escapes
	limit := min(len(text), i+10)
	for k := j; k < limit; k++ {
		if text[k] == '\'' {
			return &Literal{Kind: Char, Start: i, ContentStart: i + 1, ContentEnd: k, End: k + 1}, k + 1
		}
		if text[k] == '\n' {
			break
		}
	}
	return nil, i + 1
}

// CloseVerbatim returns the index of the quote that closes a verbatim literal
// whose content starts at from, or -1 when it stays open.
func CloseVerbatim(text string, from int) int {
	j := from
	for j < len(text) {
		if text[j] != '"' {
			j++
			continue
		}
		if j+1 < len(text) && text[j+1] == '"' {
			j += 2
			continue
		}
		return j
	}
	return -1
}

// quoteRun counts consecutive '"' starting at i.
func quoteRun(text string, i int) int {
	n := 0
	for i+n < len(text) && text[i+n] == '"' {
		n++
	}
	return n
}

// RawCloser reports whether line closes a raw literal of the given delimiter
// length: the first non-whitespace bytes must be exactly that many quotes.
// It returns the index of the first quote.
func RawCloser(line string, delimiter int) (int, bool) {
	idx := len(line) - len(strings.TrimLeft(line, " \t"))
	if idx >= len(line) {
		return -1, false
	}
	if quoteRun(line, idx) != delimiter {
		return -1, false
	}
	return idx, true
}

// RawOpener reports whether line opens a multi-line raw literal: its last
// literal is raw, unterminated and followed only by whitespace.
func RawOpener(line string) (Literal, bool) {
	lits := Scan(line)
	if len(lits) == 0 {
		return Literal{}, false
	}
	last := lits[len(lits)-1]
	if last.Kind != Raw || last.Terminated() {
		return Literal{}, false
	}
	if strings.TrimSpace(line[last.ContentStart:]) != "" {
		return Literal{}, false
	}
	return last, true
}

// HasQuoteRun reports whether line contains at least n consecutive quotes.
func HasQuoteRun(line string, n int) bool {
	return strings.Contains(line, strings.Repeat(`"`, n))
}
