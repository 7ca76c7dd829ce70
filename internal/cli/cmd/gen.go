package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/graph"
	"github.com/Redish101/gn/internal/loader"
	"github.com/Redish101/gn/internal/ninjawriter"
)

func newGenCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Load the project at --root and emit a build.ninja file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := viper.GetString("root")

			g, err := loader.Load(root)
			if err != nil {
				return err
			}

			agg := graph.New()

			if out == "" {
				return ninjawriter.Write(os.Stdout, g, agg)
			}

			f, err := os.Create(out)
			if err != nil {
				return fnerrors.InternalError("failed to create %q: %v", out, err)
			}
			defer f.Close()

			return ninjawriter.Write(f, g, agg)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Path to write build.ninja to; stdout if unset.")
	return cmd
}
