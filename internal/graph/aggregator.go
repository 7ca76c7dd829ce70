package graph

import (
	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/uniquestrings"
)

// state is the memoization status for one of the five queries on one
// target: unvisited, currently being computed (on the DFS stack, used to
// detect cycles the loader should have already ruled out), or done.
type state int

const (
	notStarted state = iota
	inProgress
	done
)

type inheritedEntry struct {
	state state
	pairs []Pair
}

type libEntry struct {
	state   state
	libs    []string
	libDirs []string
}

type frameworkEntry struct {
	state          state
	frameworks     []string
	weakFrameworks []string
	frameworkDirs  []string
}

type hardDepsEntry struct {
	state state
	set   map[*Target]bool
}

// Aggregator computes and memoizes the transitive per-target views defined
// in the data model: inherited libraries (standard and Rust-aware),
// library/framework search data, and recursive hard-dep sets.
//
// One Aggregator is keyed by target pointer identity; every result is
// cached for the Aggregator's lifetime once computed, and is never
// invalidated or evicted. An Aggregator is read-only over the Graph it was
// built for — the data model is deliberately structured so that separate
// goroutines can each use their own Aggregator instance over the same
// shared Graph concurrently, without synchronization, because the Graph
// itself is never mutated after Load returns.
//
// A single Aggregator instance is NOT safe for concurrent use: its cache
// maps are plain Go maps with no lock. Callers that want one shared cache
// across goroutines must serialize their own access to it.
type Aggregator struct {
	inherited     map[*Target]*inheritedEntry
	rustInherited map[*Target]*inheritedEntry
	libs          map[*Target]*libEntry
	frameworks    map[*Target]*frameworkEntry
	hardDeps      map[*Target]*hardDepsEntry

	arena *pairArena
}

// New returns a fresh Aggregator with empty caches and its own pair arena.
func New() *Aggregator {
	return &Aggregator{
		inherited:     map[*Target]*inheritedEntry{},
		rustInherited: map[*Target]*inheritedEntry{},
		libs:          map[*Target]*libEntry{},
		frameworks:    map[*Target]*frameworkEntry{},
		hardDeps:      map[*Target]*hardDepsEntry{},
		arena:         newPairArena(),
	}
}

// InheritedLibraries returns the ordered, deduplicated (target, is_public)
// pairs representing T's transitive link-time contributors.
func (a *Aggregator) InheritedLibraries(t *Target) ([]Pair, error) {
	return a.inheritedLibrariesImpl(t, false)
}

// RustTransitiveInheritedLibs is the Rust-aware variant: Rust library deps
// propagate their entire transitive Rust closure through shared-library
// boundaries, because rustc needs every rlib/dylib on its command line.
func (a *Aggregator) RustTransitiveInheritedLibs(t *Target) ([]Pair, error) {
	return a.inheritedLibrariesImpl(t, true)
}

func (a *Aggregator) inheritedLibrariesImpl(t *Target, rustAware bool) ([]Pair, error) {
	cache := a.inherited
	if rustAware {
		cache = a.rustInherited
	}

	if e, ok := cache[t]; ok {
		switch e.state {
		case done:
			return e.pairs, nil
		case inProgress:
			return nil, fnerrors.CycleDetected("cycle detected computing inherited libraries for %s", t)
		}
	}

	entry := &inheritedEntry{state: inProgress}
	cache[t] = entry

	order := make([]*Target, 0, len(t.Deps))
	isPublic := map[*Target]bool{}
	seen := map[*Target]bool{}

	addOrUpgrade := func(dep *Target, public bool) {
		if !seen[dep] {
			seen[dep] = true
			order = append(order, dep)
			isPublic[dep] = public
			return
		}
		isPublic[dep] = isPublic[dep] || public
	}

	for _, d := range t.Deps {
		switch {
		case d.Target.Output == SharedLibrary:
			addOrUpgrade(d.Target, d.IsPublic)

			// A shared_library is a link-time barrier for everything else,
			// but rustc still needs every rlib/dylib on its command line,
			// so in rust-aware mode the rust-only portion of what it pulls
			// in keeps propagating past the boundary.
			if rustAware {
				inner, err := a.inheritedLibrariesImpl(d.Target, rustAware)
				if err != nil {
					entry.state = notStarted
					delete(cache, t)
					return nil, err
				}
				for _, p := range inner {
					if p.Target.IsRust {
						addOrUpgrade(p.Target, p.IsPublic && d.IsPublic)
					}
				}
			}

		case d.Target.Output == CompleteStaticLibrary:
			addOrUpgrade(d.Target, d.IsPublic)

		case d.Target.Output == StaticLibrary || d.Target.Output == SourceSet ||
			d.Target.Output == Group || d.Target.Output == RustLibrary:
			inner, err := a.inheritedLibrariesImpl(d.Target, rustAware)
			if err != nil {
				entry.state = notStarted
				delete(cache, t)
				return nil, err
			}

			if d.Target.Output.IsLinkable() {
				addOrUpgrade(d.Target, d.IsPublic)
			}

			for _, p := range inner {
				addOrUpgrade(p.Target, p.IsPublic && d.IsPublic)
			}

		default:
			// Executables, actions: not linkable and don't forward deps.
		}
	}

	pairs := make([]Pair, 0, len(order))
	for _, dep := range order {
		if dep == t {
			continue
		}
		pairs = append(pairs, Pair{Target: dep, IsPublic: isPublic[dep]})
	}

	entry.pairs = a.arena.intern(pairs)
	entry.state = done
	return entry.pairs, nil
}

// LibInfo bundles the two link-time library views computed for T.
type LibInfo struct {
	AllLibs    []string
	AllLibDirs []string
}

func (a *Aggregator) GetLibInfo(t *Target) (LibInfo, error) {
	libs, libDirs, err := a.libInfo(t)
	if err != nil {
		return LibInfo{}, err
	}
	return LibInfo{AllLibs: libs, AllLibDirs: libDirs}, nil
}

func (a *Aggregator) AllLibs(t *Target) ([]string, error) {
	libs, _, err := a.libInfo(t)
	return libs, err
}

func (a *Aggregator) AllLibDirs(t *Target) ([]string, error) {
	_, dirs, err := a.libInfo(t)
	return dirs, err
}

func (a *Aggregator) libInfo(t *Target) ([]string, []string, error) {
	if e, ok := a.libs[t]; ok {
		if e.state == done {
			return e.libs, e.libDirs, nil
		}
	}

	inherited, err := a.InheritedLibraries(t)
	if err != nil {
		return nil, nil, err
	}

	libs := dedupStrings(t.Libs, inherited, func(d *Target) []string { return d.Libs })
	dirs := dedupStrings(t.LibDirs, inherited, func(d *Target) []string { return d.LibDirs })

	a.libs[t] = &libEntry{state: done, libs: libs, libDirs: dirs}
	return libs, dirs, nil
}

// FrameworkInfo bundles the three framework views computed for T.
type FrameworkInfo struct {
	AllFrameworks     []string
	AllWeakFrameworks []string
	AllFrameworkDirs  []string
}

func (a *Aggregator) GetFrameworkInfo(t *Target) (FrameworkInfo, error) {
	if e, ok := a.frameworks[t]; ok && e.state == done {
		return FrameworkInfo{e.frameworks, e.weakFrameworks, e.frameworkDirs}, nil
	}

	inherited, err := a.InheritedLibraries(t)
	if err != nil {
		return FrameworkInfo{}, err
	}

	frameworks := dedupStrings(t.Frameworks, inherited, func(d *Target) []string { return d.Frameworks })
	weak := dedupStrings(t.WeakFrameworks, inherited, func(d *Target) []string { return d.WeakFrameworks })
	dirs := dedupStrings(t.FrameworkDirs, inherited, func(d *Target) []string { return d.FrameworkDirs })

	a.frameworks[t] = &frameworkEntry{state: done, frameworks: frameworks, weakFrameworks: weak, frameworkDirs: dirs}
	return FrameworkInfo{frameworks, weak, dirs}, nil
}

func (a *Aggregator) AllFrameworks(t *Target) (FrameworkInfo, error) { return a.GetFrameworkInfo(t) }

// dedupStrings concatenates own's entries followed by field(dep) for every
// dep in inherited, preserving first occurrence, matching the rule that
// all_libs/all_lib_dirs/all_frameworks/... dedup on the full identifier.
func dedupStrings(own []string, inherited []Pair, field func(*Target) []string) []string {
	var list uniquestrings.List

	for _, v := range own {
		list.Add(v)
	}
	for _, p := range inherited {
		for _, v := range field(p.Target) {
			list.Add(v)
		}
	}

	return list.Strings()
}

// RecursiveHardDeps returns the set of all targets reachable through any
// dep edge from T whose HardDep bit is set. The result's membership, not
// order, is the observable contract.
func (a *Aggregator) RecursiveHardDeps(t *Target) (map[*Target]bool, error) {
	if e, ok := a.hardDeps[t]; ok {
		switch e.state {
		case done:
			return e.set, nil
		case inProgress:
			return nil, fnerrors.CycleDetected("cycle detected computing hard deps for %s", t)
		}
	}

	entry := &hardDepsEntry{state: inProgress}
	a.hardDeps[t] = entry

	result := map[*Target]bool{}
	for _, d := range t.Deps {
		if d.Target.HardDep {
			result[d.Target] = true
		}
		sub, err := a.RecursiveHardDeps(d.Target)
		if err != nil {
			entry.state = notStarted
			delete(a.hardDeps, t)
			return nil, err
		}
		for dep := range sub {
			result[dep] = true
		}
	}

	entry.set = result
	entry.state = done
	return result, nil
}
