package ninjawriter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Redish101/gn/internal/graph"
	"github.com/Redish101/gn/schema"
)

func mkTarget(name string, output graph.OutputType) *graph.Target {
	return &graph.Target{Label: schema.MakeDefaultToolchain("//app", name), Output: output}
}

// TestWriteEmitsLinkEdgeForPublicStaticDep checks that a static library and
// an executable depending on it publicly produce a build edge whose link
// command references the library's object input.
func TestWriteEmitsLinkEdgeForPublicStaticDep(t *testing.T) {
	lib := mkTarget("lib", graph.StaticLibrary)
	lib.Libs = []string{"z"}
	exe := mkTarget("app", graph.Executable)
	exe.Deps = []graph.Dep{{Target: lib, IsPublic: true}}

	g := graph.NewGraph()
	g.Add(lib)
	g.Add(exe)

	var buf bytes.Buffer
	if err := Write(&buf, g, graph.New()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "build app_app: link app_lib.o") {
		t.Fatalf("expected a link edge referencing lib's object, got:\n%s", out)
	}
	if !strings.Contains(out, "-lz") {
		t.Fatalf("expected -lz in libflags, got:\n%s", out)
	}
}

func TestWriteEmitsStampEdgeForGroup(t *testing.T) {
	a := mkTarget("a", graph.Action)
	b := mkTarget("b", graph.Action)
	grp := mkTarget("all", graph.Group)
	grp.Deps = []graph.Dep{{Target: a, IsPublic: true}, {Target: b, IsPublic: true}}

	g := graph.NewGraph()
	g.Add(a)
	g.Add(b)
	g.Add(grp)

	var buf bytes.Buffer
	if err := Write(&buf, g, graph.New()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "build app_all: stamp app_a app_b") {
		t.Fatalf("expected a stamp edge for the group, got:\n%s", out)
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	lib := mkTarget("lib", graph.StaticLibrary)
	exe := mkTarget("app", graph.Executable)
	exe.Deps = []graph.Dep{{Target: lib, IsPublic: true}}

	g := graph.NewGraph()
	g.Add(lib)
	g.Add(exe)

	var a, b bytes.Buffer
	if err := Write(&a, g, graph.New()); err != nil {
		t.Fatal(err)
	}
	if err := Write(&b, g, graph.New()); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Fatal("expected identical output across runs on the same graph")
	}
}
