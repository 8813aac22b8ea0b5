package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/docerr"
)

// app carries state shared by every subcommand.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	stderr io.Writer

	envFile  string
	logLevel string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

func exitCode(err error) int {
	var de *docerr.Error
	if errors.As(err, &de) {
		return docerr.ExitCode(de.Kind)
	}
	return docerr.ExitCode(docerr.KindUnknown)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docsplit",
		Short:         "Split PDFs into page-range documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotenv(a.envFile); err != nil {
				return docerr.Wrap(docerr.KindInvalidArguments, "load env", err, "cannot load %s", a.envFile)
			}
			a.cfg = config.Load()
			level := a.cfg.LogLevel
			if a.logLevel != "" {
				if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
					return docerr.Wrap(docerr.KindInvalidArguments, "parse flags", err, "invalid --log-level %q", a.logLevel)
				}
			}
			a.log = slog.New(slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "environment file to load if present")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(a.splitCmd(), a.countCmd(), a.serveCmd())
	return root
}

// exactArgs rejects the wrong number of positional arguments as an
// InvalidArguments error so it maps to the right exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return docerr.New(docerr.KindInvalidArguments, cmd.Name(),
				"expected %d arguments, got %d\nUsage: %s", n, len(args), cmd.UseLine())
		}
		return nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
