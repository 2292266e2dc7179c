/*
Orchestrator:
------------
One Classifier owns every cache; nothing is global.

	ClassifyLine(snap, n)
	   │
	   ├─ span cache hit? ──────────────────────────────► tokens
	   │
	   ├─ multiline.Tracker: does line n start inside a raw/verbatim literal?
	   │     owned by a logging call ──► classify the in-literal part by syntax
	   │
	   ├─ hostlex.Scan: literals on the rest of the line
	   │     callsite.OwnerOf(prefix) ──► classify literal content by syntax
	   │
	   │        message template    ─► cache.TemplateCache ─► semtok.FromProperties
	   │        expression          ─► expression cache    ─► semtok.FromRegions
	   │        expression template ─► template cache      ─► semtok.FromRegions + MarkUnclosed
	   │
	   └─ span cache put (keyed by the line's span) ────────► tokens

Per document the Classifier keeps a span cache, a tracker and the last snapshot
it saw. Edits shift and evict span cache entries; see Invalidate.
*/
package classifier

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/walteh/logtmpl/pkg/cache"
	"github.com/walteh/logtmpl/pkg/callsite"
	"github.com/walteh/logtmpl/pkg/config"
	"github.com/walteh/logtmpl/pkg/expr"
	"github.com/walteh/logtmpl/pkg/msgtmpl"
	"github.com/walteh/logtmpl/pkg/multiline"
)

// ErrInvalidArgument is returned for nil snapshots and out-of-range lines or spans.
var ErrInvalidArgument = multiline.ErrInvalidArgument

const tracerName = "github.com/walteh/logtmpl/pkg/classifier"

type parsedTemplate struct {
	regions []expr.Region
	blocks  []expr.Block
}

type Classifier struct {
	cfg     *config.Config
	windows multiline.Windows
	policy  msgtmpl.Policy

	calls       *callsite.Classifier
	templates   *cache.TemplateCache
	navigation  *cache.TemplateCache
	expressions *cache.Content[[]expr.Region]
	exprTmpls   *cache.Content[parsedTemplate]

	tracer trace.Tracer

	mu   sync.Mutex
	docs map[string]*docState
}

type Option func(*Classifier)

// WithTracerProvider replaces the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Classifier) {
		c.tracer = tp.Tracer(tracerName)
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Classifier, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	calls, err := callsite.New(cfg.Calls.Options())
	if err != nil {
		return nil, errors.Errorf("creating call classifier: %w", err)
	}

	ttl, err := cfg.Cache.TTL()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Template.TokenizerPolicy()
	if err != nil {
		return nil, err
	}

	me := &Classifier{
		cfg:         cfg,
		windows:     *cfg.Windows,
		policy:      policy,
		calls:       calls,
		templates:   cache.NewTemplateCache(cache.WithExpiration(ttl)),
		navigation:  cache.NewContent("navigation", msgtmpl.ParseForNavigation, cache.WithExpiration(ttl)),
		expressions: cache.NewContent("expression", expr.Parse, cache.WithExpiration(ttl)),
		exprTmpls: cache.NewContent("expression-template", func(s string) parsedTemplate {
			regions, blocks := expr.ParseTemplateBlocks(s)
			return parsedTemplate{regions: regions, blocks: blocks}
		}, cache.WithExpiration(ttl)),
		tracer: otel.Tracer(tracerName),
		docs:   make(map[string]*docState),
	}
	for _, opt := range opts {
		opt(me)
	}

	zerolog.Ctx(ctx).Debug().
		Int("raw_lookback", me.windows.RawLookback).
		Int("raw_lookahead", me.windows.RawLookahead).
		Int("verbatim_lookback", me.windows.VerbatimLookback).
		Strs("methods", cfg.Calls.Methods).
		Msg("classifier ready")

	return me, nil
}

func (me *Classifier) Config() *config.Config {
	return me.cfg
}

// ParseTemplate parses a message template with the configured policy.
func (me *Classifier) ParseTemplate(ctx context.Context, text string) []msgtmpl.Property {
	if me.policy == msgtmpl.PolicyPartial {
		return me.navigation.GetOrParse(ctx, text)
	}
	return me.templates.GetOrParse(ctx, text)
}

func (me *Classifier) TokenizeExpression(text string) []expr.Token {
	return expr.TokenizeAll(text)
}

func (me *Classifier) ParseExpression(ctx context.Context, text string) []expr.Region {
	return me.expressions.GetOrParse(ctx, text)
}

func (me *Classifier) ParseExpressionTemplate(ctx context.Context, text string) ([]expr.Region, []expr.Block) {
	p := me.exprTmpls.GetOrParse(ctx, text)
	return p.regions, p.blocks
}

func (me *Classifier) IsLoggingCall(text string) bool {
	return me.calls.IsCallCached(text)
}

func (me *Classifier) FindLoggingCall(text string) (callsite.Match, bool) {
	return me.calls.FindCall(text)
}

// ClearAll empties every cache, including per-document state.
func (me *Classifier) ClearAll(ctx context.Context) {
	me.calls.Clear()
	me.templates.Clear()
	me.navigation.Clear()
	me.expressions.Clear()
	me.exprTmpls.Clear()

	me.mu.Lock()
	n := len(me.docs)
	for _, st := range me.docs {
		st.clear()
	}
	me.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Int("documents", n).Msg("cleared all caches")
}
