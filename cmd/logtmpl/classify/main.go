package classify

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/logtmpl/pkg/classifier"
	"github.com/walteh/logtmpl/pkg/config"
	"github.com/walteh/logtmpl/pkg/document"
	"github.com/walteh/logtmpl/pkg/finder"
	"github.com/walteh/logtmpl/pkg/report"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Handler struct {
	root       string
	configPath string
	format     string
	patterns   []string

	fs       afero.Fs
	out      io.Writer
	tabWidth func(path string) (int, error)
}

func NewClassifyCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "classify [glob]...",
		Short: "print the template classifications of matching source files",
	}

	cmd.Flags().StringVar(&me.root, "root", ".", "directory the globs are relative to")
	cmd.Flags().StringVar(&me.configPath, "config", "", "hcl or yaml config file")
	cmd.Flags().StringVar(&me.format, "format", FormatText, "output format, text or json")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.patterns = args
		me.fs = afero.NewOsFs()
		me.out = cmd.OutOrStdout()
		me.tabWidth = report.TabWidth
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	if me.format != FormatText && me.format != FormatJSON {
		return errors.Errorf("unknown format %q, want %q or %q", me.format, FormatText, FormatJSON)
	}

	cfg := config.Default()
	if me.configPath != "" {
		loaded, err := config.Load(me.fs, me.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	c, err := classifier.New(ctx, cfg)
	if err != nil {
		return err
	}

	files, err := finder.NewDefaultFinder(afero.NewBasePathFs(me.fs, me.root)).FindSources(ctx, me.patterns)
	if err != nil {
		return errors.Errorf("finding sources: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Int("files", len(files)).Str("root", me.root).Msg("classifying sources")

	var (
		rows []report.Row
		errs error
	)
	for _, f := range files {
		got, err := me.classifyFile(ctx, c, f)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		rows = append(rows, got...)
	}

	var werr error
	if me.format == FormatJSON {
		werr = report.WriteJSON(me.out, rows)
	} else {
		werr = report.WriteText(me.out, rows)
	}

	return multierr.Combine(errs, werr)
}

func (me *Handler) classifyFile(ctx context.Context, c *classifier.Classifier, f finder.FileInfo) ([]report.Row, error) {
	snap := document.NewSnapshot(f.Path, 1, string(f.Content))
	defer c.Forget(snap.URI())

	tokens, err := c.ClassifyDocument(ctx, snap)
	if err != nil {
		return nil, errors.Errorf("classifying %s: %w", f.Path, err)
	}

	tabWidth := report.DefaultTabWidth
	if me.tabWidth != nil {
		if tabWidth, err = me.tabWidth(filepath.Join(me.root, f.Path)); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("file", f.Path).Msg("using default tab width")
		}
	}

	return report.Rows(snap, tokens, tabWidth), nil
}
