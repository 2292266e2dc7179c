package finder

import (
	"context"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultPatterns is used when no patterns are given.
var DefaultPatterns = []string{"**/*.cs"}

// SourceFinder finds source files that may contain logging calls.
type SourceFinder interface {
	// FindSources returns every file matching one of patterns, read into memory.
	FindSources(ctx context.Context, patterns []string) ([]FileInfo, error)
}

type FileInfo struct {
	Path       string
	Content    []byte
	LanguageID string
}

// DefaultFinder globs over an afero filesystem. Patterns are doublestar
// globs relative to the filesystem root; a leading "!" excludes matches.
type DefaultFinder struct {
	fs afero.Fs
}

func NewDefaultFinder(fs afero.Fs) *DefaultFinder {
	return &DefaultFinder{fs: fs}
}

var _ SourceFinder = (*DefaultFinder)(nil)

func (me *DefaultFinder) FindSources(ctx context.Context, patterns []string) ([]FileInfo, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	var include, exclude []string
	for _, p := range patterns {
		p = strings.TrimPrefix(path.Clean("/"+p), "/")
		if !doublestar.ValidatePattern(strings.TrimPrefix(p, "!")) {
			return nil, errors.Errorf("invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
		if rest, ok := strings.CutPrefix(p, "!"); ok {
			exclude = append(exclude, rest)
			continue
		}
		include = append(include, p)
	}

	fsys := afero.NewIOFS(me.fs)

	var paths []string
	for _, p := range include {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("globbing %q: %w", p, err)
		}
		paths = append(paths, matches...)
	}

	slices.Sort(paths)
	paths = slices.Compact(paths)
	paths = slices.DeleteFunc(paths, func(name string) bool {
		for _, ex := range exclude {
			if ok, _ := doublestar.Match(ex, name); ok {
				return true
			}
		}
		return false
	})

	out := make([]FileInfo, 0, len(paths))
	for _, name := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := afero.ReadFile(me.fs, name)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", name, err)
		}
		out = append(out, FileInfo{
			Path:       name,
			Content:    content,
			LanguageID: LanguageID(name),
		})
	}
	return out, nil
}

// LanguageID maps a file name to the editor language identifier.
func LanguageID(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".cs", ".csx":
		return "csharp"
	default:
		return "plaintext"
	}
}
