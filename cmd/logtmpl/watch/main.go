package watch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/classifier"
	"github.com/walteh/logtmpl/pkg/config"
	"github.com/walteh/logtmpl/pkg/diff"
	"github.com/walteh/logtmpl/pkg/document"
	"github.com/walteh/logtmpl/pkg/report"
)

type Handler struct {
	path       string
	configPath string

	fs         afero.Fs
	out        io.Writer
	tabWidthOf func(path string) (int, error)

	c        *classifier.Classifier
	snap     *document.Snapshot
	rendered string
	tabWidth int
}

func NewWatchCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "re-print template classifications of a file as it changes",
	}

	cmd.Flags().StringVar(&me.configPath, "config", "", "hcl or yaml config file")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.path = args[0]
		me.fs = afero.NewOsFs()
		me.tabWidthOf = report.TabWidth
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	if err := me.start(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(me.path)); err != nil {
		return errors.Errorf("watching %s: %w", me.path, err)
	}

	target := filepath.Clean(me.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := me.reload(ctx); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			zerolog.Ctx(ctx).Warn().Err(err).Msg("watcher error")
		}
	}
}

// start builds the classifier and prints the file's first classification.
func (me *Handler) start(ctx context.Context) error {
	cfg := config.Default()
	if me.configPath != "" {
		loaded, err := config.Load(me.fs, me.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var err error
	if me.c, err = classifier.New(ctx, cfg); err != nil {
		return err
	}

	me.tabWidth = report.DefaultTabWidth
	if me.tabWidthOf != nil {
		if me.tabWidth, err = me.tabWidthOf(me.path); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("using default tab width")
		}
	}

	content, err := afero.ReadFile(me.fs, me.path)
	if err != nil {
		return errors.Errorf("reading %s: %w", me.path, err)
	}
	return me.update(ctx, string(content))
}

// reload reads the file again and prints what changed. Read failures are
// logged; the file may be mid-replace.
func (me *Handler) reload(ctx context.Context) error {
	content, err := afero.ReadFile(me.fs, me.path)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", me.path).Msg("reading changed file")
		return nil
	}
	return me.update(ctx, string(content))
}

// update moves the document to text and prints how its classifications
// changed. The first call prints all of them.
func (me *Handler) update(ctx context.Context, text string) error {
	var next *document.Snapshot
	if me.snap == nil {
		next = document.NewSnapshot(me.path, 1, text)
	} else {
		if text == me.snap.Text() {
			return nil
		}
		next = document.NewSnapshot(me.path, me.snap.Version()+1, text)
		edits := diff.Edits(me.snap.Text(), text)
		if err := me.c.Invalidate(ctx, next, edits...); err != nil {
			return err
		}
		zerolog.Ctx(ctx).Debug().Int("edits", len(edits)).Str("document", next.String()).Msg("file changed")
	}

	tokens, err := me.c.ClassifyDocument(ctx, next)
	if err != nil {
		return errors.Errorf("classifying %s: %w", next, err)
	}

	rendered := report.Text(report.Rows(next, tokens, me.tabWidth))
	out := rendered
	if me.snap != nil {
		out = changedLines(diff.Lines(me.rendered, rendered))
	}
	me.snap, me.rendered = next, rendered

	if out == "" {
		return nil
	}
	if _, err := fmt.Fprint(me.out, out); err != nil {
		return errors.Errorf("writing output: %w", err)
	}
	return nil
}

func changedLines(d string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(d, "\n") {
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "+") {
			b.WriteString(line)
		}
	}
	return b.String()
}
