// Package describe implements the "desc" query shared by the CLI's
// single-shot desc command and the query server's desc request: resolve a
// label, look up its target, and print its output type, own libs, and
// inherited_libraries.
package describe

import (
	"fmt"
	"sort"

	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/graph"
	"github.com/Redish101/gn/internal/loader"
	"github.com/Redish101/gn/schema"
)

// One resolves raw against loader.DefaultToolchain and prints a description
// of the target it names to stdout. Inherited libraries on the default
// toolchain are printed without a toolchain suffix.
func One(g *graph.Graph, agg *graph.Aggregator, raw string) error {
	l, err := schema.Resolve("//", loader.DefaultToolchain, raw)
	if err != nil {
		return err
	}

	t, ok := g.Lookup(l)
	if !ok {
		return fnerrors.New("target %s not found", l)
	}

	fmt.Printf("%s\n", t.Label)
	fmt.Printf("  output: %s\n", t.Output)
	if len(t.Libs) > 0 {
		fmt.Printf("  libs: %v\n", t.Libs)
	}
	if len(t.LibDirs) > 0 {
		fmt.Printf("  lib_dirs: %v\n", t.LibDirs)
	}

	pairs, err := agg.InheritedLibraries(t)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		vis := "private"
		if p.IsPublic {
			vis = "public"
		}
		names = append(names, fmt.Sprintf("%s (%s)", p.Target.Label.GetUserVisibleNameRelativeTo(loader.DefaultToolchain), vis))
	}
	// Sorted for readability; this is not the aggregator's own traversal
	// order, which callers that care about ordering should get from
	// InheritedLibraries directly rather than from this printed form.
	sort.Strings(names)

	fmt.Printf("  inherited_libraries: %v\n", names)
	return nil
}
