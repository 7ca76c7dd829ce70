// Package loader reads a directory of ".gn.cue" project files and lowers
// them into a resolved graph.Graph: the real (if intentionally small)
// stand-in for the DSL evaluator the core aggregator is coupled to.
//
// Decoding happens in two steps: a cue.Value is validated concrete and
// decoded into a json-tagged Go struct via cue.Value.Decode, and only then
// lowered into the domain type (here, graph.Target) via a step that can
// fail independently of decoding.
package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/internal/graph"
	"github.com/Redish101/gn/schema"
)

// projectFileSuffix mirrors GN's BUILD.gn naming in spirit: every file
// that contributes targets to the graph ends in this suffix.
const projectFileSuffix = ".gn.cue"

// DefaultToolchain is the toolchain assumed for a target that doesn't name
// one explicitly, in a project file that declares no toolchains. A file
// that declares toolchains uses the last one it declares instead.
var DefaultToolchain = schema.MakeDefaultToolchain("//toolchain", "default")

type cueFile struct {
	Targets    []cueTarget    `json:"targets,omitempty"`
	Toolchains []cueToolchain `json:"toolchains,omitempty"`
}

type cueToolchain struct {
	Name string `json:"name"`
}

type cueTarget struct {
	Name string `json:"name"`

	// Output names the target's output type; see outputTypes below for the
	// accepted vocabulary.
	Output string `json:"output"`

	Toolchain string `json:"toolchain,omitempty"`

	Libs           []string `json:"libs,omitempty"`
	LibDirs        []string `json:"lib_dirs,omitempty"`
	Frameworks     []string `json:"frameworks,omitempty"`
	WeakFrameworks []string `json:"weak_frameworks,omitempty"`
	FrameworkDirs  []string `json:"framework_dirs,omitempty"`

	// Deps lists both public and private deps in declaration order: an
	// entry prefixed "public:" is a public dep, everything else is
	// private. Keeping these in one list (rather than separate deps/
	// public_deps lists) is what lets Target.Deps preserve the
	// interleaved declaration order the aggregator's propagation rules
	// depend on.
	Deps []string `json:"deps,omitempty"`
	Data []string `json:"data,omitempty"`

	HardDep bool `json:"hard_dep,omitempty"`
	Rust    bool `json:"rust,omitempty"`
}

var outputTypes = map[string]graph.OutputType{
	"source_set":              graph.SourceSet,
	"static_library":          graph.StaticLibrary,
	"complete_static_library": graph.CompleteStaticLibrary,
	"shared_library":          graph.SharedLibrary,
	"rust_library":            graph.RustLibrary,
	"executable":              graph.Executable,
	"action":                  graph.Action,
	"group":                   graph.Group,
}

// depRef is one not-yet-resolved entry from a target's deps list, still a
// plain label string paired with the public/private bit parsed out of its
// "public:" prefix.
type depRef struct {
	raw      string
	isPublic bool
}

// pending is a decoded-but-not-yet-resolved target: its dep fields are
// still plain label strings, to be bound to *graph.Target pointers in the
// resolution pass once every file has contributed its declarations.
type pending struct {
	target *graph.Target
	dir    string
	tc     schema.Label
	deps   []depRef
	data   []string
}

// Load walks moduleRoot for *.gn.cue files, decodes each, and returns the
// fully resolved graph. Targets may reference deps declared in any file
// under moduleRoot, regardless of load order.
func Load(moduleRoot string) (*graph.Graph, error) {
	g := graph.NewGraph()
	var items []pending

	err := filepath.WalkDir(moduleRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, projectFileSuffix) {
			return nil
		}

		rel, err := filepath.Rel(moduleRoot, filepath.Dir(path))
		if err != nil {
			return err
		}
		dir := "//" + filepath.ToSlash(rel)
		if rel == "." {
			dir = "//"
		}

		decoded, err := decodeFile(path)
		if err != nil {
			return fnerrors.UserError(fileLocation(path), "failed to load project file: %v", err)
		}

		tc := DefaultToolchain
		for _, t := range decoded.Toolchains {
			tc = schema.MakeDefaultToolchain(dir, t.Name)
		}

		for _, ct := range decoded.Targets {
			p, perr := lowerTarget(dir, tc, ct)
			if perr != nil {
				return perr
			}
			if _, exists := g.Lookup(p.target.Label); exists {
				return fnerrors.UserError(p.target.Label, "duplicate target declaration")
			}
			g.Add(p.target)
			items = append(items, p)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := resolveDeps(g, items); err != nil {
		return nil, err
	}

	return g, nil
}

func decodeFile(path string) (*cueFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	val := ctx.CompileBytes(data, cue.Filename(path))
	if val.Err() != nil {
		return nil, val.Err()
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}

	var cf cueFile
	if err := val.Decode(&cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

func lowerTarget(dir string, tc schema.Label, ct cueTarget) (pending, error) {
	if ct.Name == "" {
		return pending{}, fnerrors.New("target in %s is missing a name", dir)
	}

	output, ok := outputTypes[ct.Output]
	if !ok {
		return pending{}, fnerrors.New("target %s:%s has unknown output type %q", dir, ct.Name, ct.Output)
	}

	targetTC := tc
	if ct.Toolchain != "" {
		resolved, err := schema.Resolve(dir, tc, ct.Toolchain)
		if err != nil {
			return pending{}, err
		}
		targetTC = resolved.GetWithNoToolchain()
	}

	label := schema.Make(dir, ct.Name, targetTC.Dir(), targetTC.Name())

	t := &graph.Target{
		Label:          label,
		Output:         output,
		Libs:           ct.Libs,
		LibDirs:        ct.LibDirs,
		Frameworks:     ct.Frameworks,
		WeakFrameworks: ct.WeakFrameworks,
		FrameworkDirs:  ct.FrameworkDirs,
		HardDep:        ct.HardDep,
		IsRust:         ct.Rust,
	}

	deps := make([]depRef, 0, len(ct.Deps))
	for _, raw := range ct.Deps {
		if name, ok := strings.CutPrefix(raw, "public:"); ok {
			deps = append(deps, depRef{raw: name, isPublic: true})
		} else {
			deps = append(deps, depRef{raw: raw, isPublic: false})
		}
	}

	return pending{target: t, dir: dir, tc: targetTC, deps: deps, data: ct.Data}, nil
}

func resolveDeps(g *graph.Graph, items []pending) error {
	resolve := func(p pending, raw string, public bool) (graph.Dep, error) {
		l, err := schema.Resolve(p.dir, p.tc, raw)
		if err != nil {
			return graph.Dep{}, err
		}
		dep, ok := g.Lookup(l)
		if !ok {
			return graph.Dep{}, fnerrors.UserError(p.target.Label, "dependency %q (resolved to %s) not found", raw, l)
		}
		return graph.Dep{Target: dep, IsPublic: public}, nil
	}

	for _, p := range items {
		deps := make([]graph.Dep, 0, len(p.deps))
		for _, ref := range p.deps {
			d, err := resolve(p, ref.raw, ref.isPublic)
			if err != nil {
				return err
			}
			deps = append(deps, d)
		}
		p.target.Deps = deps

		for _, raw := range p.data {
			l, err := schema.Resolve(p.dir, p.tc, raw)
			if err != nil {
				return err
			}
			dep, ok := g.Lookup(l)
			if !ok {
				return fnerrors.UserError(p.target.Label, "data dependency %q (resolved to %s) not found", raw, l)
			}
			p.target.Data = append(p.target.Data, dep)
		}
	}

	return nil
}

type fileLocation string

func (f fileLocation) ErrorLocation() string { return string(f) }
