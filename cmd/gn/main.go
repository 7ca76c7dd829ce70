package main

import (
	"github.com/spf13/cobra"

	"github.com/Redish101/gn/internal/cli/cmd"
	"github.com/Redish101/gn/internal/cli/fncobra"
)

func main() {
	fncobra.DoMain("gn", func(root *cobra.Command) {
		cmd.RegisterCommands(root)
	})
}
