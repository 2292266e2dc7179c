package expr

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/pkg/classifier"
	"github.com/walteh/logtmpl/pkg/config"
)

type Handler struct {
	expression string
	template   bool
	tokens     bool

	out io.Writer
}

func NewExprCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "expr <expression>",
		Short: "print the regions of a filter expression or expression template",
	}

	cmd.Flags().BoolVar(&me.template, "template", false, "treat the input as an expression template")
	cmd.Flags().BoolVar(&me.tokens, "tokens", false, "print lexer tokens instead of regions")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.expression = args[0]
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	c, err := classifier.New(ctx, config.Default())
	if err != nil {
		return err
	}

	var lines []string
	switch {
	case me.tokens:
		for _, t := range c.TokenizeExpression(me.expression) {
			lines = append(lines, fmt.Sprintf("%s %s %q", t.Span(), t.Kind, t.Text))
		}
	case me.template:
		regions, blocks := c.ParseExpressionTemplate(ctx, me.expression)
		for _, r := range regions {
			lines = append(lines, fmt.Sprintf("%s %s %q", r.Span(), r.Kind, r.Span().Text(me.expression)))
		}
		for _, b := range blocks {
			if !b.Closed {
				lines = append(lines, fmt.Sprintf("unclosed {#%s} at %s", b.Keyword, b.Open))
			}
		}
	default:
		for _, r := range c.ParseExpression(ctx, me.expression) {
			lines = append(lines, fmt.Sprintf("%s %s %q", r.Span(), r.Kind, r.Span().Text(me.expression)))
		}
	}

	for _, l := range lines {
		if _, err := fmt.Fprintln(me.out, l); err != nil {
			return errors.Errorf("writing output: %w", err)
		}
	}
	return nil
}
