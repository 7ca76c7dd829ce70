package graph

import (
	"testing"

	"github.com/Redish101/gn/schema"
)

func mkTarget(name string, output OutputType) *Target {
	return &Target{
		Label:  schema.MakeDefaultToolchain("//t", name),
		Output: output,
	}
}

func dep(t *Target, public bool) Dep { return Dep{Target: t, IsPublic: public} }

func containsTarget(pairs []Pair, t *Target) (Pair, bool) {
	for _, p := range pairs {
		if p.Target == t {
			return p, true
		}
	}
	return Pair{}, false
}

// TestInheritedLibrariesDiamond covers an executable that depends publicly
// on two static libraries that both depend publicly on a shared common
// static library. The common library must appear exactly
// once in the executable's inherited_libraries.
func TestInheritedLibrariesDiamond(t *testing.T) {
	common := mkTarget("common", StaticLibrary)
	a := mkTarget("a", StaticLibrary)
	a.Deps = []Dep{dep(common, true)}
	b := mkTarget("b", StaticLibrary)
	b.Deps = []Dep{dep(common, true)}
	exe := mkTarget("exe", Executable)
	exe.Deps = []Dep{dep(a, true), dep(b, true)}

	agg := New()
	pairs, err := agg.InheritedLibraries(exe)
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	for _, p := range pairs {
		if p.Target == common {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected common to appear exactly once, appeared %d times in %v", count, pairs)
	}

	if _, ok := containsTarget(pairs, a); !ok {
		t.Error("expected a in inherited_libraries")
	}
	if _, ok := containsTarget(pairs, b); !ok {
		t.Error("expected b in inherited_libraries")
	}
}

// TestInheritedLibrariesSharedLibraryBarrier covers a shared_library dep:
// it is itself recorded, but what it depends on privately is not forwarded
// past it.
func TestInheritedLibrariesSharedLibraryBarrier(t *testing.T) {
	hidden := mkTarget("hidden", StaticLibrary)
	shared := mkTarget("shared", SharedLibrary)
	shared.Deps = []Dep{dep(hidden, true)}
	exe := mkTarget("exe", Executable)
	exe.Deps = []Dep{dep(shared, true)}

	agg := New()
	pairs, err := agg.InheritedLibraries(exe)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := containsTarget(pairs, shared); !ok {
		t.Fatal("expected shared in inherited_libraries")
	}
	if _, ok := containsTarget(pairs, hidden); ok {
		t.Fatal("shared_library must be a propagation barrier: hidden must not leak through")
	}
}

// TestInheritedLibrariesCompleteStaticLibraryIncludesButDoesNotRecurse
// verifies the complete_static_library rule: it is itself linkable and
// recorded, but does not forward its own deps to whoever depends on it.
func TestInheritedLibrariesCompleteStaticLibraryIncludesButDoesNotRecurse(t *testing.T) {
	inner := mkTarget("inner", StaticLibrary)
	complete := mkTarget("complete", CompleteStaticLibrary)
	complete.Deps = []Dep{dep(inner, true)}
	exe := mkTarget("exe", Executable)
	exe.Deps = []Dep{dep(complete, true)}

	agg := New()
	pairs, err := agg.InheritedLibraries(exe)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := containsTarget(pairs, complete); !ok {
		t.Fatal("expected complete in inherited_libraries")
	}
	if _, ok := containsTarget(pairs, inner); ok {
		t.Fatal("complete_static_library must not forward its own deps")
	}
}

// TestPublicPrivateDowngrade checks that a dep whose only path crosses a
// private edge is recorded as private: a public inner entry is ANDed with
// the private edge above it. (A second, all-public path would make it
// public again, since IsPublic is ORed across paths.)
func TestPublicPrivateDowngrade(t *testing.T) {
	leaf := mkTarget("leaf", StaticLibrary)
	mid := mkTarget("mid", StaticLibrary)
	mid.Deps = []Dep{dep(leaf, true)}
	exe := mkTarget("exe", Executable)
	exe.Deps = []Dep{dep(mid, false)}

	agg := New()
	pairs, err := agg.InheritedLibraries(exe)
	if err != nil {
		t.Fatal(err)
	}

	p, ok := containsTarget(pairs, leaf)
	if !ok {
		t.Fatal("expected leaf in inherited_libraries")
	}
	if p.IsPublic {
		t.Fatal("leaf reached only via a private edge must be recorded as private")
	}
}

// TestRustTransitiveInheritedLibsCrossesSharedLibraryBoundary checks that
// the Rust-aware query forwards a Rust library's transitive closure even
// through a shared_library dep, because rustc needs every rlib/dylib on
// its command line regardless of C++ link barriers.
func TestRustTransitiveInheritedLibsCrossesSharedLibraryBoundary(t *testing.T) {
	rustLeaf := mkTarget("rust_leaf", RustLibrary)
	rustLeaf.IsRust = true
	cppHidden := mkTarget("cpp_hidden", StaticLibrary)
	shared := mkTarget("shared", SharedLibrary)
	shared.Deps = []Dep{dep(rustLeaf, true), dep(cppHidden, true)}
	exe := mkTarget("exe", Executable)
	exe.Deps = []Dep{dep(shared, true)}

	agg := New()
	pairs, err := agg.RustTransitiveInheritedLibs(exe)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := containsTarget(pairs, rustLeaf); !ok {
		t.Fatal("expected rust_leaf to be forwarded through the shared_library boundary in rust-aware mode")
	}
	if _, ok := containsTarget(pairs, cppHidden); ok {
		t.Fatal("non-rust deps of a shared_library must still be barred even in rust-aware mode")
	}

	plain, err := agg.InheritedLibraries(exe)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := containsTarget(plain, rustLeaf); ok {
		t.Fatal("the non-rust-aware query must not forward rust deps through a shared_library")
	}
}

// TestRecursiveHardDeps checks that hard deps are collected transitively
// regardless of depth or public/private classification.
func TestRecursiveHardDeps(t *testing.T) {
	hardLeaf := mkTarget("hard_leaf", StaticLibrary)
	hardLeaf.HardDep = true
	mid := mkTarget("mid", StaticLibrary)
	mid.Deps = []Dep{dep(hardLeaf, false)}
	exe := mkTarget("exe", Executable)
	exe.Deps = []Dep{dep(mid, true)}

	agg := New()
	deps, err := agg.RecursiveHardDeps(exe)
	if err != nil {
		t.Fatal(err)
	}

	if !deps[hardLeaf] {
		t.Fatal("expected hard_leaf in recursive hard deps")
	}
	if deps[mid] {
		t.Fatal("mid itself is not a hard dep and must not appear")
	}
}

// TestInheritedLibrariesMemoizes checks that a second call for the same
// target returns the arena's interned slice rather than recomputing, the
// observable proxy being pointer identity of the returned slice header's
// backing array via reflect-free same-slice detection (shared element
// identity at index 0).
func TestInheritedLibrariesMemoizes(t *testing.T) {
	leaf := mkTarget("leaf", StaticLibrary)
	exe := mkTarget("exe", Executable)
	exe.Deps = []Dep{dep(leaf, true)}

	agg := New()
	first, err := agg.InheritedLibraries(exe)
	if err != nil {
		t.Fatal(err)
	}
	second, err := agg.InheritedLibraries(exe)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) || (len(first) > 0 && &first[0] != &second[0]) {
		t.Fatal("expected memoized call to return the same backing slice")
	}
}

// TestPairArenaDedupesIdenticalSequences verifies two unrelated targets
// with the same transitive (target, is_public) sequence share one backing
// slice in the arena, content-addressed rather than identity-addressed.
func TestPairArenaDedupesIdenticalSequences(t *testing.T) {
	leaf := mkTarget("leaf", StaticLibrary)

	exeA := mkTarget("exe_a", Executable)
	exeA.Deps = []Dep{dep(leaf, true)}
	exeB := mkTarget("exe_b", Executable)
	exeB.Deps = []Dep{dep(leaf, true)}

	agg := New()
	pa, err := agg.InheritedLibraries(exeA)
	if err != nil {
		t.Fatal(err)
	}
	pb, err := agg.InheritedLibraries(exeB)
	if err != nil {
		t.Fatal(err)
	}

	if len(pa) != 1 || len(pb) != 1 {
		t.Fatalf("expected one entry each, got %v and %v", pa, pb)
	}
	if &pa[0] != &pb[0] {
		t.Fatal("expected identical transitive sequences to share the arena's backing slice")
	}
}

// TestAllLibsDedupesAcrossInheritedLibraries checks that all_libs
// aggregates own libs plus every inherited dep's own libs, in
// first-occurrence order, deduplicated.
func TestAllLibsDedupesAcrossInheritedLibraries(t *testing.T) {
	common := mkTarget("common", StaticLibrary)
	common.Libs = []string{"z"}
	a := mkTarget("a", StaticLibrary)
	a.Libs = []string{"x", "z"}
	a.Deps = []Dep{dep(common, true)}
	exe := mkTarget("exe", Executable)
	exe.Libs = []string{"x"}
	exe.Deps = []Dep{dep(a, true)}

	agg := New()
	libs, err := agg.AllLibs(exe)
	if err != nil {
		t.Fatal(err)
	}

	if len(libs) != 2 || libs[0] != "x" || libs[1] != "z" {
		t.Fatalf("expected deduped [x z], got %v", libs)
	}
}

func TestGetFrameworkInfoAggregatesAcrossInheritedLibraries(t *testing.T) {
	dep1 := mkTarget("dep1", StaticLibrary)
	dep1.Frameworks = []string{"Foundation"}
	dep1.WeakFrameworks = []string{"Metal"}
	exe := mkTarget("exe", Executable)
	exe.Frameworks = []string{"Foundation", "AppKit"}
	exe.Deps = []Dep{dep(dep1, true)}

	agg := New()
	info, err := agg.GetFrameworkInfo(exe)
	if err != nil {
		t.Fatal(err)
	}

	if len(info.AllFrameworks) != 2 {
		t.Fatalf("expected 2 deduped frameworks, got %v", info.AllFrameworks)
	}
	if len(info.AllWeakFrameworks) != 1 || info.AllWeakFrameworks[0] != "Metal" {
		t.Fatalf("expected [Metal], got %v", info.AllWeakFrameworks)
	}
}

// TestCycleDetected verifies that a cycle in the dep graph (which the
// loader is expected to reject before the aggregator ever sees it) is
// still caught defensively rather than infinite-looping.
func TestCycleDetected(t *testing.T) {
	a := mkTarget("a", StaticLibrary)
	b := mkTarget("b", StaticLibrary)
	a.Deps = []Dep{dep(b, true)}
	b.Deps = []Dep{dep(a, true)}

	agg := New()
	if _, err := agg.InheritedLibraries(a); err == nil {
		t.Fatal("expected a cycle-detected error")
	}
}
