package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/meigma/lica"
)

type rootOptions struct {
	logLevel         string
	progressInterval int

	caps   lica.Capabilities
	logger *slog.Logger
	stderr io.Writer
}

func newRootCommand(cfg config, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{
		caps:   cfg.capabilities(),
		stderr: stderr,
	}

	cmd := &cobra.Command{
		Use:           "lica",
		Short:         "Convert zip archives to and from lica containers (JSON + base64)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setupLogger()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	installRootFlags(flags, opts, cfg)

	cmd.AddCommand(
		newPackCommand(opts),
		newUnpackCommand(opts, cfg),
	)
	return cmd
}

func installRootFlags(flags *pflag.FlagSet, opts *rootOptions, cfg config) {
	flags.StringVar(&opts.logLevel, "log-level", cfg.logLevel.String(), "Log level (debug, info, warn, error)")
	flags.IntVar(&opts.progressInterval, "progress-interval", cfg.progressInterval,
		"Log progress every N files (negative disables)")
}

func (o *rootOptions) setupLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", o.logLevel, err)
	}
	o.logger = slog.New(slog.NewTextHandler(o.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}
