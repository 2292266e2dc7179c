package document

import (
	"slices"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/position"
)

var ErrNotFound = errors.Base("document not found")

// Manager tracks open documents by URI.
type Manager struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewManager() *Manager {
	return &Manager{docs: make(map[string]*Document)}
}

// NormalizeURI strips file:// and file: prefixes so paths and URIs share keys.
func NormalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	uri = strings.TrimPrefix(uri, "file:")
	return uri
}

// Open stores a new document, replacing any document with the same URI.
func (me *Manager) Open(uri, languageID string, version int, text string) *Document {
	uri = NormalizeURI(uri)
	doc := New(uri, languageID, version, text)

	me.mu.Lock()
	defer me.mu.Unlock()
	me.docs[uri] = doc
	return doc
}

func (me *Manager) Get(uri string) (*Document, bool) {
	me.mu.RLock()
	defer me.mu.RUnlock()
	doc, ok := me.docs[NormalizeURI(uri)]
	return doc, ok
}

func (me *Manager) Change(uri string, version int, changes ...Change) (*Snapshot, []position.Edit, error) {
	doc, ok := me.Get(uri)
	if !ok {
		return nil, nil, errors.Errorf("%s: %w", uri, ErrNotFound)
	}
	return doc.Apply(version, changes...)
}

func (me *Manager) Close(uri string) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	uri = NormalizeURI(uri)
	if _, ok := me.docs[uri]; !ok {
		return errors.Errorf("%s: %w", uri, ErrNotFound)
	}
	delete(me.docs, uri)
	return nil
}

// URIs lists open documents in sorted order.
func (me *Manager) URIs() []string {
	me.mu.RLock()
	defer me.mu.RUnlock()
	out := make([]string, 0, len(me.docs))
	for uri := range me.docs {
		out = append(out, uri)
	}
	slices.Sort(out)
	return out
}
