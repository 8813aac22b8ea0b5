package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/splitter"
)

func (a *app) splitCmd() *cobra.Command {
	var strict, atomic bool
	cmd := &cobra.Command{
		Use:   "split <pdf> <config> <outdir>",
		Short: "Split a PDF into one file per declared page range",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := splitter.Options{
				StrictConfidence: a.cfg.StrictConfidence,
				Atomic:           a.cfg.SplitAtomic,
			}
			if cmd.Flags().Changed("strict-confidence") {
				opts.StrictConfidence = strict
			}
			if cmd.Flags().Changed("atomic") {
				opts.Atomic = atomic
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			paths, err := splitter.New(a.log, opts).Split(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !isTerminal(out) {
				for _, p := range paths {
					fmt.Fprintln(out, p)
				}
				return nil
			}
			fmt.Fprintf(out, "Split %s into %d files in %s:\n", filepath.Base(args[0]), len(paths), filepath.Dir(paths[0]))
			for _, p := range paths {
				fmt.Fprintf(out, "  %s\n", filepath.Base(p))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict-confidence", false, "reject confidence values outside 0-100 (default from STRICT_CONFIDENCE)")
	cmd.Flags().BoolVar(&atomic, "atomic", false, "publish outputs only if every partition succeeds (default from SPLIT_ATOMIC)")
	return cmd
}
