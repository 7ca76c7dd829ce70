// Package ninjawriter serializes a resolved graph.Graph into a
// build.ninja-formatted text file: the DAG runner input the rest of the
// system exists to produce. It consumes only the aggregator's outputs
// (InheritedLibraries, AllLibs, AllLibDirs, GetFrameworkInfo) plus the
// graph's declaration order,
// and does not itself invoke Ninja or handle incremental regeneration.
package ninjawriter

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Redish101/gn/internal/graph"
)

// Write emits a deterministic build.ninja file: a link edge for every
// executable target and a stamp edge for every group in g, in g's stable
// declaration order. Other target types get no edge of their own.
func Write(w io.Writer, g *graph.Graph, agg *graph.Aggregator) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "# auto-generated, do not edit")
	fmt.Fprintln(bw, "rule link")
	fmt.Fprintln(bw, "  command = $cc -o $out $in $libflags")
	fmt.Fprintln(bw, "rule stamp")
	fmt.Fprintln(bw, "  command = touch $out")
	fmt.Fprintln(bw)

	for _, t := range g.Order {
		if err := writeTarget(bw, t, agg); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func writeTarget(bw *bufio.Writer, t *graph.Target, agg *graph.Aggregator) error {
	switch t.Output {
	case graph.Executable:
		return writeLinkEdge(bw, t, agg)
	case graph.Group:
		return writeStampEdge(bw, t)
	default:
		// source_set / static_library / shared_library / complete_static_library /
		// rust_library / action: not a link edge in this simplified model;
		// they only contribute via the aggregator when something links them.
		return nil
	}
}

func writeLinkEdge(bw *bufio.Writer, t *graph.Target, agg *graph.Aggregator) error {
	inherited, err := agg.InheritedLibraries(t)
	if err != nil {
		return err
	}

	var inputs []string
	for _, p := range inherited {
		if p.Target.Output.IsLinkable() {
			inputs = append(inputs, objName(p.Target))
		}
	}

	libs, err := agg.AllLibs(t)
	if err != nil {
		return err
	}
	libDirs, err := agg.AllLibDirs(t)
	if err != nil {
		return err
	}
	frameworks, err := agg.GetFrameworkInfo(t)
	if err != nil {
		return err
	}

	var libflags []string
	for _, d := range libDirs {
		libflags = append(libflags, "-L"+d)
	}
	for _, l := range libs {
		libflags = append(libflags, "-l"+l)
	}
	for _, f := range frameworks.AllFrameworks {
		libflags = append(libflags, "-framework", f)
	}
	for _, f := range frameworks.AllWeakFrameworks {
		libflags = append(libflags, "-weak_framework", f)
	}

	fmt.Fprintf(bw, "build %s: link %s\n", targetOut(t), strings.Join(inputs, " "))
	if len(libflags) > 0 {
		fmt.Fprintf(bw, "  libflags = %s\n", strings.Join(libflags, " "))
	}
	fmt.Fprintln(bw)
	return nil
}

func writeStampEdge(bw *bufio.Writer, t *graph.Target) error {
	names := make([]string, 0, len(t.Deps))
	for _, d := range t.Deps {
		names = append(names, targetOut(d.Target))
	}
	sort.Strings(names)

	fmt.Fprintf(bw, "build %s: stamp %s\n\n", targetOut(t), strings.Join(names, " "))
	return nil
}

func targetOut(t *graph.Target) string {
	return strings.ReplaceAll(strings.TrimPrefix(t.Label.Dir(), "//"), "/", "_") + "_" + t.Label.Name()
}

func objName(t *graph.Target) string {
	return targetOut(t) + ".o"
}
