package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Redish101/gn/internal/describe"
	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/graph"
	"github.com/Redish101/gn/internal/loader"
)

func newDescCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "desc <label>...",
		Short: "Describe one or more targets: output type, own libs, and inherited_libraries.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := viper.GetString("root")

			g, err := loader.Load(root)
			if err != nil {
				return err
			}
			agg := graph.New()

			var failed bool
			for _, raw := range args {
				if err := describe.One(g, agg, raw); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", raw, err)
					failed = true
				}
			}
			if failed {
				return fnerrors.SubcommandFailed("one or more targets could not be described")
			}
			return nil
		},
	}
}
