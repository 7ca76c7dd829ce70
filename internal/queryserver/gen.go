package queryserver

import (
	"os"

	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/graph"
	"github.com/Redish101/gn/internal/ninjawriter"
)

// runGen answers a "gen" request: re-emit build.ninja for the already
// loaded graph without a fresh process/CUE-eval cycle. args[0], if
// present, names an output path; otherwise the Ninja text is written to
// the redirected stdout.
func runGen(g *graph.Graph, agg *graph.Aggregator, args []string) error {
	if len(args) == 0 {
		if err := ninjawriter.Write(os.Stdout, g, agg); err != nil {
			return fnerrors.SubcommandFailed("gen failed: %v", err)
		}
		return nil
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fnerrors.SubcommandFailed("gen failed to create %q: %v", args[0], err)
	}
	defer f.Close()

	if err := ninjawriter.Write(f, g, agg); err != nil {
		return fnerrors.SubcommandFailed("gen failed: %v", err)
	}
	return nil
}
