// Package fncobra bootstraps the CLI: a DoMain entrypoint that wires
// viper-backed persistent flags and a zerolog console sink before
// dispatching into cobra's own parsing and execution.
package fncobra

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/logoutput"
)

// DoMain parses persistent flags, installs a zerolog console sink over
// ctx, and runs root. Exit codes follow fnerrors.ExitError when present,
// else 1 on any other error.
func DoMain(name string, registerCommands func(*cobra.Command)) {
	SetupViper()

	root := newRoot(name)
	registerCommands(root)

	ctx := logoutput.WithOutput(context.Background(), logoutput.OutputTo{
		Writer:     os.Stderr,
		WithColors: isTerminal(os.Stderr),
		OutputType: logoutput.OutputText,
	})

	if err := root.ExecuteContext(ctx); err != nil {
		log := zerolog.Ctx(ctx)
		log.Error().Err(err).Msg("command failed")

		out := logoutput.OutputFrom(ctx)
		fnerrors.Format(out.Writer, err, fnerrors.WithColors(out.WithColors))

		if exitErr, ok := err.(fnerrors.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func newRoot(name string) *cobra.Command {
	root := &cobra.Command{
		Use:              name,
		SilenceUsage:     true,
		SilenceErrors:    true,
		TraverseChildren: true,
	}

	root.PersistentFlags().String("log_level", "info", "Minimum level of log messages to emit (debug, info, warn, error).")
	root.PersistentFlags().String("root", ".", "Project root to load *.gn.cue files from.")
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log_level"))
	_ = viper.BindPFlag("root", root.PersistentFlags().Lookup("root"))

	root.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return fmt.Errorf("%s: %q is not a %s command", name, args[0], name)
	}

	return root
}

// SetupViper configures environment variable binding so flags can also be
// set via GN_LOG_LEVEL / GN_ROOT.
func SetupViper() {
	viper.SetEnvPrefix("gn")
	viper.AutomaticEnv()
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
