package classifier

import (
	"context"
	"slices"

	"gitlab.com/tozd/go/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/walteh/logtmpl/pkg/callsite"
	"github.com/walteh/logtmpl/pkg/document"
	"github.com/walteh/logtmpl/pkg/hostlex"
	"github.com/walteh/logtmpl/pkg/multiline"
	"github.com/walteh/logtmpl/pkg/position"
	"github.com/walteh/logtmpl/pkg/semtok"
)

// ClassifyLine returns the classification spans of one line, with offsets
// into the snapshot's text, ordered by offset.
func (me *Classifier) ClassifyLine(ctx context.Context, snap *document.Snapshot, line int) ([]semtok.Token, error) {
	if snap == nil {
		return nil, errors.Errorf("nil snapshot: %w", ErrInvalidArgument)
	}
	if n := snap.LineCount(); line < 0 || line >= n {
		return nil, errors.Errorf("line %d outside [0, %d): %w", line, n, ErrInvalidArgument)
	}

	ctx, span := me.tracer.Start(ctx, "ClassifyLine", trace.WithAttributes(
		attribute.String("document", snap.URI()),
		attribute.Int("version", snap.Version()),
		attribute.Int("line", line),
	))
	defer span.End()

	st, err := me.state(snap.URI())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !me.sync(ctx, st, snap) {
		span.SetAttributes(attribute.Bool("stale", true))
		tracker, err := multiline.New(me.calls, me.windows)
		if err != nil {
			return nil, err
		}
		return me.classifyLine(ctx, tracker, snap, line)
	}

	key := snap.LineSpan(line)
	if tokens, ok := st.spans.Get(key); ok {
		span.SetAttributes(attribute.Bool("cached", true))
		return slices.Clone(tokens), nil
	}

	tokens, err := me.classifyLine(ctx, st.tracker, snap, line)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	st.mu.Lock()
	if st.last == snap {
		st.spans.Put(key, tokens)
	}
	st.mu.Unlock()

	span.SetAttributes(attribute.Int("tokens", len(tokens)))
	return slices.Clone(tokens), nil
}

// ClassifySpan returns the classification spans overlapping span.
func (me *Classifier) ClassifySpan(ctx context.Context, snap *document.Snapshot, span position.Span) ([]semtok.Token, error) {
	if snap == nil {
		return nil, errors.Errorf("nil snapshot: %w", ErrInvalidArgument)
	}
	if span.Start < 0 || span.Length < 0 || span.End() > len(snap.Text()) {
		return nil, errors.Errorf("span %s outside text of length %d: %w", span, len(snap.Text()), ErrInvalidArgument)
	}

	first, last := snap.LinesOverlapping(span)
	var all []semtok.Token
	for line := first; line <= last; line++ {
		tokens, err := me.ClassifyLine(ctx, snap, line)
		if err != nil {
			return nil, err
		}
		all = append(all, tokens...)
	}
	return semtok.Within(all, span), nil
}

func (me *Classifier) ClassifyDocument(ctx context.Context, snap *document.Snapshot) ([]semtok.Token, error) {
	if snap == nil {
		return nil, errors.Errorf("nil snapshot: %w", ErrInvalidArgument)
	}
	var all []semtok.Token
	for line := range snap.LineCount() {
		tokens, err := me.ClassifyLine(ctx, snap, line)
		if err != nil {
			return nil, err
		}
		all = append(all, tokens...)
	}
	return all, nil
}

// IsInsideMultilineTemplate reports whether span starts inside a raw or
// verbatim literal that is passed to a logging call.
func (me *Classifier) IsInsideMultilineTemplate(ctx context.Context, snap *document.Snapshot, span position.Span) (bool, error) {
	if snap == nil {
		return false, errors.Errorf("nil snapshot: %w", ErrInvalidArgument)
	}
	if span.Start < 0 || span.Start > len(snap.Text()) {
		return false, errors.Errorf("span %s outside text of length %d: %w", span, len(snap.Text()), ErrInvalidArgument)
	}

	st, err := me.state(snap.URI())
	if err != nil {
		return false, err
	}
	tracker := st.tracker
	if !me.sync(ctx, st, snap) {
		if tracker, err = multiline.New(me.calls, me.windows); err != nil {
			return false, err
		}
	}

	line := snap.LineOfOffset(span.Start)
	region, err := tracker.Locate(snap, line)
	if err != nil {
		return false, err
	}
	if !region.Inside || !region.Owned {
		return false, nil
	}

	content := region.Content.Shift(snap.LineSpan(line).Start)
	return content.Contains(span.Start) || (content.IsEmpty() && span.Start == content.Start), nil
}

func (me *Classifier) classifyLine(ctx context.Context, tracker *multiline.Tracker, snap *document.Snapshot, line int) ([]semtok.Token, error) {
	text := snap.Line(line)
	base := snap.LineSpan(line).Start

	region, err := tracker.Locate(snap, line)
	if err != nil {
		return nil, errors.Errorf("locating line %d of %s: %w", line, snap, err)
	}

	var out []semtok.Token
	from := 0
	if region.Inside {
		if region.Owned {
			out = append(out, me.classifyContent(ctx, region.Owner.Shape.Syntax(), region.Content.Text(text), base+region.Content.Start)...)
		}
		if region.CloseLine != line {
			return out, nil
		}
		from = region.Content.End() + 1
		if region.Kind == hostlex.Raw {
			from = region.Content.End() + region.Delimiter
		}
	}

	rest := text[from:]
	for _, lit := range hostlex.Scan(rest) {
		if lit.Kind == hostlex.Char || lit.Interpolated {
			continue
		}
		// a multi-line raw opener has no content on its own line
		if lit.Kind == hostlex.Raw && !lit.Terminated() {
			continue
		}

		m, ok := me.ownerOf(snap, line, text[:from+lit.Start])
		if !ok {
			continue
		}
		content := rest[lit.ContentStart:lit.ContentEnd]
		out = append(out, me.classifyContent(ctx, m.Shape.Syntax(), content, base+from+lit.ContentStart)...)
	}

	semtok.Sort(out)
	return out, nil
}

// ownerOf finds the call a literal starting after prefix is passed to, joining
// the lines above when the call starts there.
func (me *Classifier) ownerOf(snap *document.Snapshot, line int, prefix string) (callsite.Match, bool) {
	if m, ok := me.calls.OwnerOf(prefix); ok {
		return m, true
	}
	joined := prefix
	for back := 1; back <= ownerContextLines && line-back >= 0; back++ {
		joined = snap.Line(line-back) + "\n" + joined
		if m, ok := me.calls.OwnerOf(joined); ok {
			return m, true
		}
	}
	return callsite.Match{}, false
}

func (me *Classifier) classifyContent(ctx context.Context, syntax callsite.Syntax, content string, base int) []semtok.Token {
	switch syntax {
	case callsite.SyntaxExpression:
		return semtok.FromRegions(me.expressions.GetOrParse(ctx, content), base)
	case callsite.SyntaxExpressionTemplate:
		p := me.exprTmpls.GetOrParse(ctx, content)
		return semtok.MarkUnclosed(semtok.FromRegions(p.regions, base), p.blocks, base)
	default:
		return semtok.FromProperties(me.templates.GetOrParse(ctx, content), base)
	}
}
