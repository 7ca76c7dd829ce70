package queryserver

import (
	"fmt"
	"os"

	"github.com/Redish101/gn/internal/describe"
	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/graph"
)

// runDesc answers a "desc" request: for each label argument, print the
// target's output type, own libs/lib_dirs, and inherited_libraries to the
// (already redirected) process stdout. An unresolvable label is reported
// to stderr and counts as a subcommand failure, but doesn't stop
// processing the rest of the arguments.
func runDesc(g *graph.Graph, agg *graph.Aggregator, args []string) error {
	if len(args) == 0 {
		return fnerrors.SubcommandFailed("desc requires at least one target label")
	}

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
}
