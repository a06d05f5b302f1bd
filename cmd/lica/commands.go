package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/lica"
)

func newPackCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pack <input_archive> <output_container>",
		Short: "Pack a zip archive into a lica container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := lica.Pack(cmd.Context(), args[0], args[1],
				lica.PackWithLogger(root.logger),
				lica.PackWithProgressInterval(root.progressInterval),
			)
			if err != nil {
				return fmt.Errorf("pack %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %d files -> %s (%s)\n", res.Files, args[1], res.Digest)
			return nil
		},
	}
}

type unpackOptions struct {
	stream bool
	direct bool
}

func newUnpackCommand(root *rootOptions, cfg config) *cobra.Command {
	opts := &unpackOptions{}

	cmd := &cobra.Command{
		Use:   "unpack <input_container> <output_dir>",
		Short: "Unpack a lica container into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnpack(cmd, root, opts, args[0], args[1])
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.stream, "stream", cfg.stream, "Parse the container incrementally instead of loading it whole")
	flags.BoolVar(&opts.direct, "direct", false, "Write files in place instead of via a temporary file")
	return cmd
}

func runUnpack(cmd *cobra.Command, root *rootOptions, opts *unpackOptions, src, dst string) error {
	u := lica.NewUnpacker(root.caps,
		lica.UnpackWithLogger(root.logger),
		lica.UnpackWithProgressInterval(root.progressInterval),
		lica.UnpackWithDirectWrites(opts.direct),
	)

	res, err := u.Unpack(cmd.Context(), src, dst, opts.stream)
	if err != nil {
		if res != nil && res.Files > 0 && errors.Is(err, lica.ErrParse) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d files were written to %s before the error\n", res.Files, dst)
		}
		return fmt.Errorf("unpack %s: %w", src, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "unpacked %d files -> %s (%s mode)\n", res.Files, dst, res.Mode)
	if n := len(res.Failed); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d entries skipped:\n", n)
		for _, f := range res.Failed {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", f)
		}
	}
	return nil
}
