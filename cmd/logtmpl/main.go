package main

import (
	"context"
	"os"
	"os/signal"
	rdebug "runtime/debug"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/logtmpl/cmd/logtmpl/classify"
	"github.com/walteh/logtmpl/cmd/logtmpl/expr"
	"github.com/walteh/logtmpl/cmd/logtmpl/watch"
	"github.com/walteh/logtmpl/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var (
		debugLogs bool
		logFormat string
		traceTo   string
		shutdown  func(context.Context) error
	)

	rootCmd := &cobra.Command{
		Use:   "logtmpl",
		Short: "Classify structured logging message templates in C# sources",
	}

	info, ok := rdebug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", debug.FormatConsole, "log output, console or json")
	rootCmd.PersistentFlags().StringVar(&traceTo, "trace", "", "export classification spans: stderr or none")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger, err := debug.NewLogger(cmd.ErrOrStderr(), debug.LoggerOptions{
			Format: logFormat,
			Debug:  debugLogs,
			Color:  !color.NoColor,
		})
		if err != nil {
			return err
		}

		shutdown, err = setupTracing(cmd.ErrOrStderr(), traceTo)
		if err != nil {
			return err
		}

		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if shutdown == nil {
			return nil
		}
		return shutdown(cmd.Context())
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(classify.NewClassifyCommand())
	rootCmd.AddCommand(expr.NewExprCommand())
	rootCmd.AddCommand(watch.NewWatchCommand())

	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
