package callsite

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/hostlex"
	"github.com/walteh/logtmpl/pkg/lru"
)

var (
	DefaultTriggers = []string{
		"log",
		"outputtemplate",
		"expressiontemplate",
		"filter",
		"withcomputed",
		"beginscope",
		"conditional",
	}

	DefaultMethods = []string{
		"LogTrace", "LogDebug", "LogInformation", "LogWarning", "LogError", "LogCritical", "Log",
		"BeginScope",
		"Verbose", "Debug", "Information", "Warning", "Error", "Fatal", "Write",
	}
)

const DefaultCacheSize = 1000

type Options struct {
	// Triggers are matched case-insensitively as plain substrings before any
	// pattern runs.
	Triggers []string
	// Methods is the allow-list of leveled write and scope methods.
	Methods   []string
	CacheSize int
}

func DefaultOptions() Options {
	return Options{
		Triggers:  slices.Clone(DefaultTriggers),
		Methods:   slices.Clone(DefaultMethods),
		CacheSize: DefaultCacheSize,
	}
}

// Match is a logging call prefix found in text. Index and Length cover the
// prefix up to and including the opening parenthesis, or up to the end of the
// named-argument label for ShapeOutputTemplate.
type Match struct {
	Index    int
	Length   int
	Method   string
	Receiver string
	Shape    Shape
}

func (m Match) End() int {
	return m.Index + m.Length
}

type pattern struct {
	re    *regexp.Regexp
	shape func(method string, hasContext bool) Shape
	// accept filters matches the expression alone cannot rule out
	accept func(Match) bool
}

type owner struct {
	match Match
	ok    bool
}

// Classifier decides whether text contains a logging invocation. All methods
// are safe for concurrent use.
type Classifier struct {
	triggers []string
	patterns []pattern

	isCall *lru.Cache[string, bool]
	owners *lru.Cache[string, owner]
}

func New(opts Options) (*Classifier, error) {
	if len(opts.Methods) == 0 {
		return nil, errors.New("callsite: at least one method is required")
	}

	isCall, err := lru.New[string, bool](opts.CacheSize)
	if err != nil {
		return nil, errors.Errorf("callsite call cache: %w", err)
	}
	owners, err := lru.New[string, owner](opts.CacheSize)
	if err != nil {
		return nil, errors.Errorf("callsite owner cache: %w", err)
	}

	triggers := make([]string, 0, len(opts.Triggers))
	for _, t := range opts.Triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			triggers = append(triggers, t)
		}
	}

	methods := make([]string, len(opts.Methods))
	for i, m := range opts.Methods {
		methods[i] = regexp.QuoteMeta(m)
	}

	member, err := regexp.Compile(`\b(?P<recv>[A-Za-z_]\w*(?:\s*\??\.\s*[A-Za-z_]\w*)*?)` +
		`(?P<ctx>(?:\s*\??\.\s*ForContext\s*(?:<[^<>()]*>)?\s*\([^()]*\))+)?` +
		`\s*\??\.\s*(?P<method>` + strings.Join(methods, "|") + `)\s*(?:<[^<>()]*>)?\s*\(`)
	if err != nil {
		return nil, errors.Errorf("compiling method pattern: %w", err)
	}

	return &Classifier{
		triggers: triggers,
		patterns: []pattern{
			{re: member, shape: func(method string, hasContext bool) Shape {
				switch {
				case method == "BeginScope":
					return ShapeScope
				case hasContext:
					return ShapeContext
				default:
					return ShapeMember
				}
			}, accept: func(m Match) bool {
				// Write, Error and friends are only trusted on a logger-like receiver
				return strings.HasPrefix(m.Method, "Log") || m.Method == "BeginScope" ||
					loggerReceiver(m.Receiver, triggers)
			}},
			{re: outputTemplatePattern, shape: fixed(ShapeOutputTemplate)},
			{re: filterPattern, shape: fixed(ShapeFilter)},
			{re: computedPattern, shape: fixed(ShapeComputed)},
			{re: expressionTemplatePattern, shape: fixed(ShapeExpressionTemplate)},
		},
		isCall: isCall,
		owners: owners,
	}, nil
}

var (
	outputTemplatePattern     = regexp.MustCompile(`(?i)\b(?P<method>outputTemplate)\s*:\s*`)
	filterPattern             = regexp.MustCompile(`\b(?P<recv>Filter|WriteTo|Enrich)\s*\.\s*(?P<method>ByExcluding|ByIncludingOnly|Conditional|When)\s*\(`)
	computedPattern           = regexp.MustCompile(`\b(?:(?P<recv>Enrich)\s*\.\s*)?(?P<method>WithComputed)\s*\(`)
	expressionTemplatePattern = regexp.MustCompile(`\bnew\s+(?P<method>ExpressionTemplate)\s*\(`)
)

func fixed(s Shape) func(string, bool) Shape {
	return func(string, bool) Shape { return s }
}

func (me *Classifier) hasTrigger(text string) bool {
	return containsAny(strings.ToLower(text), me.triggers)
}

// loggerReceiver reports whether some identifier of a receiver chain names a
// logger: a trigger word on its own (log, audit), or an identifier ending in
// the word Log or Logger (_log, _logger, appLogger). catalog and dialog do not.
func loggerReceiver(recv string, triggers []string) bool {
	idents := strings.FieldsFunc(recv, func(r rune) bool {
		return r == '.' || r == '?' || r == ' ' || r == '\t'
	})
	for _, id := range idents {
		bare := strings.ToLower(strings.TrimLeft(id, "_"))
		if bare == "logger" || slices.Contains(triggers, bare) {
			return true
		}
		if strings.HasSuffix(id, "Log") || strings.HasSuffix(id, "Logger") ||
			strings.HasSuffix(id, "_log") || strings.HasSuffix(id, "_logger") {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsCall reports whether text contains a logging invocation outside of any
// string literal. Empty or whitespace-only text is never a call.
func (me *Classifier) IsCall(text string) bool {
	_, ok := me.FindCall(text)
	return ok
}

// IsCallCached is IsCall memoized by the exact text.
func (me *Classifier) IsCallCached(text string) bool {
	if v, ok := me.isCall.Get(text); ok {
		return v
	}
	v := me.IsCall(text)
	me.isCall.Add(text, v)
	return v
}

// FindCall returns the leftmost logging call in text.
func (me *Classifier) FindCall(text string) (Match, bool) {
	all := me.FindAllCalls(text)
	if len(all) == 0 {
		return Match{}, false
	}
	return all[0], true
}

// FindAllCalls returns every logging call in text ordered by position. Calls
// spelled out inside string literals or comments are not reported.
func (me *Classifier) FindAllCalls(text string) []Match {
	if strings.TrimSpace(text) == "" || !me.hasTrigger(text) {
		return nil
	}

	var out []Match
	for _, p := range me.patterns {
		recv := p.re.SubexpIndex("recv")
		ctx := p.re.SubexpIndex("ctx")
		method := p.re.SubexpIndex("method")

		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			m := Match{Index: loc[0], Length: loc[1] - loc[0]}
			if method >= 0 && loc[2*method] >= 0 {
				m.Method = text[loc[2*method]:loc[2*method+1]]
			}
			if recv >= 0 && loc[2*recv] >= 0 {
				m.Receiver = text[loc[2*recv]:loc[2*recv+1]]
			}
			hasContext := ctx >= 0 && loc[2*ctx] >= 0
			m.Shape = p.shape(m.Method, hasContext)
			if p.accept != nil && !p.accept(m) {
				continue
			}
			out = append(out, m)
		}
	}

	if len(out) == 0 {
		return nil
	}

	lits, comments := hostlex.ScanAll(text)
	out = slices.DeleteFunc(out, func(m Match) bool {
		return insideLiteral(lits, m.Index) || insideComment(comments, m.Index)
	})

	slices.SortFunc(out, func(a, b Match) int {
		if c := cmp.Compare(a.Index, b.Index); c != 0 {
			return c
		}
		return cmp.Compare(b.Length, a.Length)
	})
	return slices.CompactFunc(out, func(a, b Match) bool {
		return a.Index == b.Index
	})
}

// OwnerOf returns the call whose template argument would be a string literal
// starting right after prefix. The literal must be a direct argument of the
// call at the position its shape expects; literals nested in other calls,
// later arguments and calls found inside string literals do not count.
func (me *Classifier) OwnerOf(prefix string) (Match, bool) {
	if v, ok := me.owners.Get(prefix); ok {
		return v.match, v.ok
	}
	m, ok := me.ownerOf(prefix)
	me.owners.Add(prefix, owner{match: m, ok: ok})
	return m, ok
}

func (me *Classifier) ownerOf(prefix string) (Match, bool) {
	matches := me.FindAllCalls(prefix)
	if len(matches) == 0 {
		return Match{}, false
	}

	lits, comments := hostlex.ScanAll(prefix)

	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]

		if !m.Shape.opensCall() {
			if strings.TrimSpace(prefix[m.End():]) == "" {
				return m, true
			}
			continue
		}

		if literals, ok := argumentPosition(prefix, m.End(), lits, comments); ok && literals == m.Shape.TemplateArg() {
			return m, true
		}
	}
	return Match{}, false
}

// argumentPosition walks from just after a call's '(' to the end of prefix.
// It fails when the call closes, the end sits inside a nested bracket or a
// comment runs to the end, and otherwise counts the string literals passed
// before the end.
func argumentPosition(prefix string, from int, lits []hostlex.Literal, comments []hostlex.Comment) (int, bool) {
	depth := 0
	count := 0
	li, ci := 0, 0

	for li < len(lits) && lits[li].Start < from {
		li++
	}
	for ci < len(comments) && comments[ci].Start < from {
		ci++
	}

	for i := from; i < len(prefix); i++ {
		if ci < len(comments) && comments[ci].Start == i {
			c := comments[ci]
			ci++
			if c.End >= len(prefix) {
				return 0, false
			}
			i = c.End - 1
			continue
		}

		if li < len(lits) && lits[li].Start == i {
			lit := lits[li]
			li++
			if !lit.Terminated() {
				return 0, false
			}
			if depth == 0 && lit.Kind != hostlex.Char {
				count++
			}
			i = lit.End - 1
			continue
		}

		switch prefix[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return 0, false
			}
		}
	}
	return count, depth == 0
}

func insideLiteral(lits []hostlex.Literal, offset int) bool {
	for _, l := range lits {
		end := l.End
		if end < 0 {
			end = l.ContentEnd
		}
		if offset > l.Start && offset < end {
			return true
		}
	}
	return false
}

func insideComment(comments []hostlex.Comment, offset int) bool {
	for _, c := range comments {
		if offset >= c.Start && offset < c.End {
			return true
		}
	}
	return false
}

// Clear empties the memoization caches.
func (me *Classifier) Clear() {
	me.isCall.Clear()
	me.owners.Clear()
}
