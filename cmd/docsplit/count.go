package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/counter"
)

func (a *app) countCmd() *cobra.Command {
	var output string
	var strictCoverage bool
	cmd := &cobra.Command{
		Use:   "count <pdf> <config>",
		Short: "Compare a PDF's page count with the pages its configuration declares",
		Long: `Prints the PDF's page count minus the declared page total as +N, -N or 0.
With -o f the result is written to <pdf>.result instead of stdout.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := counter.ParseMode(output)
			if err != nil {
				return err
			}
			c := counter.New(a.log, a.cfg.PDFFallbackPdfcpu)
			c.Stdout = cmd.OutOrStdout()
			c.StrictCoverage = strictCoverage
			_, err = c.Run(args[0], args[1], mode)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(counter.ModeConsole), "output mode: console or f (file)")
	cmd.Flags().BoolVar(&strictCoverage, "strict-coverage", false, "fail if any page is not covered by a declaration")
	return cmd
}
