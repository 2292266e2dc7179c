package classifier_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/walteh/logtmpl/pkg/classifier"
	"github.com/walteh/logtmpl/pkg/config"
	"github.com/walteh/logtmpl/pkg/document"
	"github.com/walteh/logtmpl/pkg/msgtmpl"
	"github.com/walteh/logtmpl/pkg/position"
	"github.com/walteh/logtmpl/pkg/semtok"
)

func newClassifier(t *testing.T, opts ...classifier.Option) *classifier.Classifier {
	t.Helper()
	c, err := classifier.New(context.Background(), config.Default(), opts...)
	require.NoError(t, err)
	return c
}

// labels renders tokens as "type:text", with "+modifier" when set.
func labels(snap *document.Snapshot, tokens []semtok.Token) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		label := tok.Type.String()
		if tok.Modifier != semtok.ModifierNone {
			label += "+" + tok.Modifier.String()
		}
		out = append(out, fmt.Sprintf("%s:%s", label, tok.Span.Text(snap.Text())))
	}
	return out
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "logging_call",
			input:    `logger.LogInformation("User {UserId} logged in", userId);`,
			expected: []string{"brace:{", "property:UserId", "brace:}"},
		},
		{
			name:     "console_write_line",
			input:    `Console.WriteLine("Test {Property}");`,
			expected: []string{},
		},
		{
			name:     "second_string_argument",
			input:    `logger.Information("A {X}", "not {Y}");`,
			expected: []string{"brace:{", "property:X", "brace:}"},
		},
		{
			name:     "interpolated_string",
			input:    `logger.Information($"User {user}");`,
			expected: []string{},
		},
		{
			name:     "destructure_and_format",
			input:    `Log.Warning("Order {@Order} took {Elapsed:0.00} ms", order, ms);`,
			expected: []string{"brace:{", "destructure:@", "property:Order", "brace:}", "brace:{", "property:Elapsed", "punctuation::", "format:0.00", "brace:}"},
		},
		{
			name:     "output_template",
			input:    `.WriteTo.Console(outputTemplate: "[{Level:u3}] {Message}")`,
			expected: []string{"brace:{", "property:Level", "punctuation::", "format:u3", "brace:}", "brace:{", "property:Message", "brace:}"},
		},
		{
			name:     "filter_expression",
			input:    `.Filter.ByExcluding("RequestPath like '/health%'")`,
			expected: []string{"expression.property:RequestPath", "expression.keyword:like", "expression.literal:'/health%'"},
		},
		{
			name:     "case_insensitive_filter",
			input:    `.Filter.ByExcluding("RequestPath like '/health%' ci")`,
			expected: []string{"expression.property:RequestPath", "expression.keyword:like", "expression.literal:'/health%'", "expression.keyword:ci"},
		},
		{
			name:     "write_on_non_logger_receiver",
			input:    `catalog.Write("Item {Id}");`,
			expected: []string{},
		},
		{
			name:  "computed_property_second_argument",
			input: `.Enrich.WithComputed("Short", "Substring(@m, 0, 10)")`,
			expected: []string{
				"expression.function:Substring", "punctuation:(", "expression.builtin:@m", "punctuation:,",
				"expression.literal:0", "punctuation:,", "expression.literal:10", "punctuation:)",
			},
		},
		{
			name:  "unclosed_expression_template_directive",
			input: `var t = new ExpressionTemplate("{#if @l = 'Error'}{@m}");`,
			expected: []string{
				"brace:{", "expression.directive+unclosed:#if", "expression.builtin:@l", "expression.operator:=",
				"expression.literal:'Error'", "brace:}", "brace:{", "expression.builtin:@m", "brace:}",
			},
		},
		{
			name:     "call_in_comment",
			input:    `// logger.LogInformation("Old {Value}");`,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClassifier(t)
			snap := document.NewSnapshot(tt.name+".cs", 1, tt.input)

			got, err := c.ClassifyLine(context.Background(), snap, 0)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.expected, labels(snap, got)); diff != "" {
				t.Errorf("ClassifyLine(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestCallSplitAcrossLines(t *testing.T) {
	c := newClassifier(t)
	snap := document.NewSnapshot("split.cs", 1, "logger.LogWarning(\n    \"Disk {Drive} almost full\", drive);")

	got, err := c.ClassifyLine(context.Background(), snap, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"brace:{", "property:Drive", "brace:}"}, labels(snap, got))
}

const documentation = `public const string Usage = "see below";
var doc = """
    Call it like this:
    logger.LogInformation("User {UserId} logged in", userId);
    """;
logger.LogInformation(
    """
    Order {OrderId} shipped to {Address}
    """, orderId, address);`

func TestDocumentationStringsAreNotHighlighted(t *testing.T) {
	ctx := context.Background()
	c := newClassifier(t)
	snap := document.NewSnapshot("doc.cs", 1, documentation)

	got, err := c.ClassifyDocument(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"brace:{", "property:OrderId", "brace:}",
		"brace:{", "property:Address", "brace:}",
	}, labels(snap, got))

	for _, line := range []int{2, 3, 4} {
		tokens, err := c.ClassifyLine(ctx, snap, line)
		require.NoError(t, err)
		assert.Empty(t, tokens, "line %d", line)
	}
}

func TestClassifySpan(t *testing.T) {
	c := newClassifier(t)
	snap := document.NewSnapshot("doc.cs", 1, documentation)

	idx := strings.Index(documentation, "{OrderId}")
	got, err := c.ClassifySpan(context.Background(), snap, position.NewSpan(idx, len("{OrderId}")))
	require.NoError(t, err)
	assert.Equal(t, []string{"brace:{", "property:OrderId", "brace:}"}, labels(snap, got))

	all, err := c.ClassifySpan(context.Background(), snap, position.NewSpan(0, len(documentation)))
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestIsInsideMultilineTemplate(t *testing.T) {
	c := newClassifier(t)
	snap := document.NewSnapshot("doc.cs", 1, documentation)

	tests := []struct {
		name     string
		needle   string
		expected bool
	}{
		{name: "owned_template_body", needle: "Order {OrderId}", expected: true},
		{name: "documentation_body", needle: "Call it like this", expected: false},
		{name: "call_inside_documentation", needle: "logger.LogInformation(\"User", expected: false},
		{name: "plain_code", needle: "public const", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := strings.Index(documentation, tt.needle)
			require.GreaterOrEqual(t, idx, 0)
			got, err := c.IsInsideMultilineTemplate(context.Background(), snap, position.NewSpan(idx, 1))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEditChangesOwnership(t *testing.T) {
	ctx := context.Background()
	c := newClassifier(t)

	doc := document.New("own.cs", "csharp", 1, "var doc = \"\"\"\n    {Value}\n    \"\"\";")
	before, err := c.ClassifyLine(ctx, doc.Snapshot(), 1)
	require.NoError(t, err)
	assert.Empty(t, before)

	snap, edits, err := doc.Apply(2, document.Change{
		Range: &position.Range{Start: position.Place{Line: 0, Character: 0}, End: position.Place{Line: 0, Character: 10}},
		Text:  "logger.LogDebug(",
	})
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, snap, edits...))

	after, err := c.ClassifyLine(ctx, snap, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"brace:{", "property:Value", "brace:}"}, labels(snap, after))
}

func TestNewSnapshotWithoutInvalidate(t *testing.T) {
	ctx := context.Background()
	c := newClassifier(t)

	v1 := document.NewSnapshot("auto.cs", 1, "var doc = \"\"\"\n    {Value}\n    \"\"\";")
	v2 := document.NewSnapshot("auto.cs", 2, "logger.LogDebug(\"\"\"\n    {Value}\n    \"\"\");")

	got, err := c.ClassifyLine(ctx, v1, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = c.ClassifyLine(ctx, v2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"brace:{", "property:Value", "brace:}"}, labels(v2, got))

	// an older snapshot is answered without disturbing the caches
	got, err = c.ClassifyLine(ctx, v1, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = c.ClassifyLine(ctx, v2, 1)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	assert.Error(t, c.Invalidate(ctx, v1))
}

func TestInvalidArguments(t *testing.T) {
	ctx := context.Background()
	c := newClassifier(t)
	snap := document.NewSnapshot("a.cs", 1, "one\ntwo")

	_, err := c.ClassifyLine(ctx, nil, 0)
	assert.True(t, errors.Is(err, classifier.ErrInvalidArgument))

	_, err = c.ClassifyLine(ctx, snap, 2)
	assert.True(t, errors.Is(err, classifier.ErrInvalidArgument))

	_, err = c.ClassifyLine(ctx, snap, -1)
	assert.True(t, errors.Is(err, classifier.ErrInvalidArgument))

	_, err = c.ClassifySpan(ctx, snap, position.NewSpan(5, 10))
	assert.True(t, errors.Is(err, classifier.ErrInvalidArgument))

	_, err = c.ClassifyDocument(ctx, nil)
	assert.True(t, errors.Is(err, classifier.ErrInvalidArgument))

	_, err = c.IsInsideMultilineTemplate(ctx, nil, position.NewSpan(0, 0))
	assert.True(t, errors.Is(err, classifier.ErrInvalidArgument))

	assert.True(t, errors.Is(c.Invalidate(ctx, nil), classifier.ErrInvalidArgument))
}

func TestExternalOperations(t *testing.T) {
	ctx := context.Background()
	c := newClassifier(t)

	props := c.ParseTemplate(ctx, "Hello {Name}!")
	require.Len(t, props, 1)
	assert.Equal(t, "Name", props[0].Name)
	assert.Equal(t, 7, props[0].StartIndex)
	assert.Empty(t, c.ParseTemplate(ctx, "Hello {Name"))

	assert.Len(t, c.TokenizeExpression("Level='Error'"), 3)
	assert.Len(t, c.ParseExpression(ctx, "@l = 'Error'"), 3)

	regions, blocks := c.ParseExpressionTemplate(ctx, "{#if A}x{#end}")
	assert.NotEmpty(t, regions)
	require.Len(t, blocks, 1)
	assert.True(t, blocks[0].Closed)

	assert.True(t, c.IsLoggingCall(`logger.LogInformation("User {UserId} logged in", userId)`))
	assert.False(t, c.IsLoggingCall(`Console.WriteLine("Test {Property}")`))

	m, ok := c.FindLoggingCall(`x = 1; _logger.LogError(ex, "Failed")`)
	require.True(t, ok)
	assert.Equal(t, "LogError", m.Method)
}

func TestNavigationPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Template.Policy = config.PolicyNavigation

	c, err := classifier.New(context.Background(), cfg)
	require.NoError(t, err)

	props := c.ParseTemplate(context.Background(), "Hello {Name")
	require.Len(t, props, 1)
	assert.True(t, props[0].IsPartial())
	assert.Equal(t, msgtmpl.Standard, props[0].Type)

	// highlighting keeps the strict policy
	snap := document.NewSnapshot("nav.cs", 1, `logger.Information("Hello {Name");`)
	tokens, err := c.ClassifyLine(context.Background(), snap, 0)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Calls.CacheSize = 0
	_, err := classifier.New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestClassifyLineTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	c := newClassifier(t, classifier.WithTracerProvider(tp))

	snap := document.NewSnapshot("trace.cs", 3, `logger.LogInformation("{A}");`)
	for range 2 {
		_, err := c.ClassifyLine(context.Background(), snap, 0)
		require.NoError(t, err)
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ClassifyLine", spans[0].Name())

	cached := func(s sdktrace.ReadOnlySpan) bool {
		for _, kv := range s.Attributes() {
			if string(kv.Key) == "cached" {
				return kv.Value.AsBool()
			}
		}
		return false
	}
	assert.False(t, cached(spans[0]))
	assert.True(t, cached(spans[1]))
}

func TestConcurrentClassification(t *testing.T) {
	ctx := context.Background()
	c := newClassifier(t)
	snap := document.NewSnapshot("doc.cs", 1, documentation)

	expected, err := c.ClassifyDocument(ctx, snap)
	require.NoError(t, err)
	c.ClearAll(ctx)

	var wg sync.WaitGroup
	results := make([][]semtok.Token, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.ClassifyDocument(ctx, snap)
			assert.NoError(t, err)
			results[i] = got
		}()
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, expected, got)
	}
}
