package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Redish101/gn/internal/graph"
	"github.com/Redish101/gn/internal/loader"
	"github.com/Redish101/gn/internal/queryserver"
)

func newStartServerCmd() *cobra.Command {
	var sockPath string

	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Load the project at --root once and answer desc/gen queries over a Unix socket.",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := viper.GetString("root")

			g, err := loader.Load(root)
			if err != nil {
				return err
			}

			if sockPath == "" {
				sockPath = queryserver.ResolveSockPath()
			}

			s := &queryserver.Server{
				SockPath: sockPath,
				Graph:    g,
				Agg:      graph.New(),
			}
			return s.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&sockPath, "sock", "", "Unix socket path to listen on; defaults to $GNQ_SOCK_PATH or the compiled-in default.")
	return cmd
}

// RegisterCommands attaches every gn subcommand to root.
func RegisterCommands(root *cobra.Command) {
	root.AddCommand(newGenCmd())
	root.AddCommand(newDescCmd())
	root.AddCommand(newStartServerCmd())
}
