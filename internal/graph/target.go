// Package graph holds the resolved-target data model and the
// ResolvedTargetData aggregator: the memoized transitive computations a
// downstream Ninja writer needs (inherited libraries, library search
// paths, framework lists, hard-dep closures, and the Rust-aware variant of
// the inherited-libraries walk).
//
// Everything in this package is read-only over a Graph built by the
// project loader (package loader). Targets are never mutated once the
// Graph that owns them is returned from Load; an Aggregator holds only
// non-owning *Target pointers, so the backing Graph must outlive it.
package graph

import "github.com/Redish101/gn/schema"

// OutputType classifies what a target produces. Source sets, static
// libraries, shared libraries, complete static libraries, and Rust
// libraries are linkable; groups forward their children; actions and
// executables are neither (an executable is the root that link-time data
// gets aggregated for, but it contributes nothing to anyone else's link
// line).
type OutputType int

const (
	SourceSet OutputType = iota
	StaticLibrary
	CompleteStaticLibrary
	SharedLibrary
	RustLibrary
	Executable
	Action
	Group
)

func (t OutputType) String() string {
	switch t {
	case SourceSet:
		return "source_set"
	case StaticLibrary:
		return "static_library"
	case CompleteStaticLibrary:
		return "complete_static_library"
	case SharedLibrary:
		return "shared_library"
	case RustLibrary:
		return "rust_library"
	case Executable:
		return "executable"
	case Action:
		return "action"
	case Group:
		return "group"
	default:
		return "unknown"
	}
}

// IsLinkable reports whether a dep of this output type contributes itself
// to inherited_libraries.
func (t OutputType) IsLinkable() bool {
	switch t {
	case SourceSet, StaticLibrary, CompleteStaticLibrary, SharedLibrary, RustLibrary:
		return true
	default:
		return false
	}
}

// Dep is one edge out of a Target: the dependency it names, plus the
// public/private classification of that edge.
type Dep struct {
	Target   *Target
	IsPublic bool
}

// Target is a resolved node in the dependency graph: all forward
// references are bound to *Target pointers and its public/private dep
// edges are final. The project loader is the only thing that constructs
// or mutates a Target; every other package (including Aggregator) treats
// it as immutable.
type Target struct {
	Label schema.Label

	Output OutputType

	Libs           []string
	LibDirs        []string
	Frameworks     []string
	WeakFrameworks []string
	FrameworkDirs  []string

	// IsRust marks a target whose own code is a rust crate, independent of
	// Output: a shared_library can embed rust code and still needs its rust
	// deps collected by RustTransitiveInheritedLibs even though it is a
	// link-time barrier for everything else.
	IsRust bool

	// Deps holds the immediate dependency edges in declaration order.
	// Private and public deps are interleaved here exactly as declared;
	// IsPublic on each Dep is what the aggregator switches on.
	Deps []Dep

	// Data lists data-only deps: runtime file dependencies that never
	// contribute to a link line and are excluded from every aggregator
	// walk.
	Data []*Target

	HardDep bool
}

func (t *Target) String() string { return t.Label.String() }

// Graph is the resolved target graph as returned by the project loader:
// every Target it holds has already had its dep edges bound.
type Graph struct {
	// Targets is keyed by the label's canonical string so that lookups by
	// name (as used by the query server's "desc" command) don't require
	// re-walking Order.
	Targets map[string]*Target

	// Order preserves the sequence targets were declared in across all
	// loaded project files; the Ninja writer emits build edges in this
	// order to keep output deterministic across runs.
	Order []*Target
}

func NewGraph() *Graph {
	return &Graph{Targets: map[string]*Target{}}
}

// Add registers t in the graph. Callers (the loader) are responsible for
// ensuring t.Label is unique; Add overwrites silently is never the right
// behavior for a build graph, so duplicate registration is the loader's
// job to reject before calling Add.
func (g *Graph) Add(t *Target) {
	g.Targets[t.Label.String()] = t
	g.Order = append(g.Order, t)
}

func (g *Graph) Lookup(l schema.Label) (*Target, bool) {
	t, ok := g.Targets[l.String()]
	return t, ok
}
