/*
Content Cache:
-------------
Parsed results keyed by the exact text they were parsed from:

	"User {Id} logged in"  ──► []msgtmpl.Property{Id}
	"Hello {Name"          ──► []msgtmpl.Property{}     (strict policy: nothing)
	<parser panicked>      ──► zero value, logged once, cached

Entries never go stale on their own unless an expiration is set; the same
text always parses the same way. Clear drops everything.
*/
package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/walteh/logtmpl/pkg/msgtmpl"
)

// Content memoizes a pure parse function by its input text. It is safe for
// concurrent use; the lock is never held while parsing.
type Content[T any] struct {
	name  string
	items *gocache.Cache
	parse func(string) T
}

type contentOptions struct {
	expiration time.Duration
}

type ContentOption func(*contentOptions)

// WithExpiration drops entries ttl after they were stored. Zero or negative
// keeps them until Clear.
func WithExpiration(ttl time.Duration) ContentOption {
	return func(o *contentOptions) {
		o.expiration = ttl
	}
}

func NewContent[T any](name string, parse func(string) T, opts ...ContentOption) *Content[T] {
	o := contentOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	items := gocache.New(gocache.NoExpiration, 0)
	if o.expiration > 0 {
		items = gocache.New(o.expiration, 2*o.expiration)
	}

	return &Content[T]{
		name:  name,
		items: items,
		parse: parse,
	}
}

// TemplateCache caches strict message-template parses.
type TemplateCache = Content[[]msgtmpl.Property]

func NewTemplateCache(opts ...ContentOption) *TemplateCache {
	return NewContent("template", msgtmpl.Parse, opts...)
}

// GetOrParse returns the cached result for text, parsing it on a miss. A
// panic inside the parser is logged and the zero value is cached in place of
// a result.
func (me *Content[T]) GetOrParse(ctx context.Context, text string) T {
	if v, ok := me.items.Get(text); ok {
		if typed, ok := v.(T); ok {
			return typed
		}
		zerolog.Ctx(ctx).Error().Str("cache", me.name).Msg("wrong type stored in content cache")
	}

	result := me.safeParse(ctx, text)

	// first write wins so concurrent callers converge on one instance
	if err := me.items.Add(text, result, gocache.DefaultExpiration); err != nil {
		if v, ok := me.items.Get(text); ok {
			if typed, ok := v.(T); ok {
				return typed
			}
		}
	}
	return result
}

func (me *Content[T]) safeParse(ctx context.Context, text string) (result T) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().
				Str("cache", me.name).
				Str("input", text).
				Str("panic", fmt.Sprint(r)).
				Msg("parser panicked, caching empty result")
			var zero T
			result = zero
		}
	}()
	return me.parse(text)
}

func (me *Content[T]) Len() int {
	return me.items.ItemCount()
}

func (me *Content[T]) Clear() {
	me.items.Flush()
}
