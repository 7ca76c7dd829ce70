// Package schema holds the value types shared by the project loader, the
// aggregator, and the query server: the Label identity type and the digest
// type used to content-address the TargetPublicPair arena.
package schema

import (
	"fmt"
	"strings"

	"github.com/Redish101/gn/internal/fnerrors"
	"github.com/Redish101/gn/schema/atom"
)

// hashPrime is the small odd prime used to fold the four label fields into
// a single precomputed hash: h = (((dir*P + name*P) + tc_dir)*P + tc_name).
const hashPrime = 131

// Label is the immutable 4-tuple identity of every named entity in the
// graph: directory, name, toolchain directory, toolchain name. It is a
// plain value (safe to use as a map key, to copy, to compare with ==) and
// its hash is precomputed at construction so that Hash is O(1).
type Label struct {
	dir           string
	name          *atom.Atom
	toolchainDir  string
	toolchainName *atom.Atom
	hash          uint64
}

// Make builds a Label with an explicit toolchain.
func Make(dir, name, toolchainDir, toolchainName string) Label {
	return makeLabel(dir, atom.Intern(name), toolchainDir, atom.Intern(toolchainName))
}

// MakeDefaultToolchain builds a Label whose toolchain is empty (the
// default-toolchain projection of itself).
func MakeDefaultToolchain(dir, name string) Label {
	return makeLabel(dir, atom.Intern(name), "", atom.Empty())
}

func makeLabel(dir string, name *atom.Atom, toolchainDir string, toolchainName *atom.Atom) Label {
	l := Label{dir: dir, name: name, toolchainDir: toolchainDir, toolchainName: toolchainName}
	l.hash = computeHash(dir, name, toolchainDir, toolchainName)
	return l
}

func computeHash(dir string, name *atom.Atom, toolchainDir string, toolchainName *atom.Atom) uint64 {
	h := fnv1(dir)*hashPrime + fnv1(name.String())*hashPrime
	h += fnv1(toolchainDir)
	h = h*hashPrime + fnv1(toolchainName.String())
	return h
}

// fnv1 gives every string field a stable per-process numeric contribution;
// the label's own hash recurrence is what actually mixes the fields.
func fnv1(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h *= 1099511628211
		h ^= uint64(s[i])
	}
	return h
}

// IsNull reports whether this is the zero Label: an empty dir, invalid for
// use as a key.
func (l Label) IsNull() bool { return l.dir == "" }

func (l Label) Dir() string           { return l.dir }
func (l Label) Name() string          { return l.name.String() }
func (l Label) ToolchainDir() string  { return l.toolchainDir }
func (l Label) ToolchainName() string { return l.toolchainName.String() }
func (l Label) Hash() uint64          { return l.hash }

// Equal implements field-wise equality. Because name and toolchain_name are
// interned, comparing them is a pointer comparison.
func (l Label) Equal(o Label) bool {
	return l.dir == o.dir && l.name.SameAs(o.name) &&
		l.toolchainDir == o.toolchainDir && l.toolchainName.SameAs(o.toolchainName)
}

// Less implements the label's total order: lexicographic over the 4-tuple
// (dir, name, toolchain_dir, toolchain_name).
func (l Label) Less(o Label) bool {
	if l.dir != o.dir {
		return l.dir < o.dir
	}
	if ln, on := l.Name(), o.Name(); ln != on {
		return ln < on
	}
	if l.toolchainDir != o.toolchainDir {
		return l.toolchainDir < o.toolchainDir
	}
	return l.ToolchainName() < o.ToolchainName()
}

// ToolchainsEqual reports whether l and o name the same toolchain.
func (l Label) ToolchainsEqual(o Label) bool {
	return l.toolchainDir == o.toolchainDir && l.toolchainName.SameAs(o.toolchainName)
}

// GetToolchainLabel returns a Label naming this label's toolchain as a
// target in its own right, with an empty (default) toolchain of its own.
func (l Label) GetToolchainLabel() Label {
	return MakeDefaultToolchain(l.toolchainDir, l.ToolchainName())
}

// GetWithNoToolchain returns a copy of l with the toolchain fields cleared.
func (l Label) GetWithNoToolchain() Label {
	return MakeDefaultToolchain(l.dir, l.Name())
}

// ErrorLocation implements fnerrors.Location.
func (l Label) ErrorLocation() string { return l.GetUserVisibleName(true) }

// GetUserVisibleName renders the canonical presentation form:
// "//dir/sub:name", with an optional "(//tc_dir:tc_name)" suffix.
func (l Label) GetUserVisibleName(includeToolchain bool) string {
	var b strings.Builder
	b.WriteString(l.dir)
	b.WriteString(":")
	b.WriteString(l.Name())
	if includeToolchain && (l.toolchainDir != "" || l.ToolchainName() != "") {
		b.WriteString("(")
		b.WriteString(l.toolchainDir)
		b.WriteString(":")
		b.WriteString(l.ToolchainName())
		b.WriteString(")")
	}
	return b.String()
}

// GetUserVisibleNameRelativeTo is like GetUserVisibleName, but the
// toolchain suffix is omitted when l's toolchain equals defaultToolchain —
// callers only care about the toolchain when it isn't the default one.
// defaultToolchain names the toolchain itself (as GetToolchainLabel does).
func (l Label) GetUserVisibleNameRelativeTo(defaultToolchain Label) string {
	include := !l.GetToolchainLabel().Equal(defaultToolchain)
	return l.GetUserVisibleName(include)
}

func (l Label) String() string { return l.GetUserVisibleName(true) }

// Resolve parses a label string found in project source, in one of the
// forms:
//
//	":name"
//	"rel/sub:name"
//	"//abs/sub:name"
//
// optionally followed by "(toolchain_label)". A missing colon defaults name
// to the last path component ("//a/b" == "//a/b:b"). A missing toolchain
// suffix inherits currentToolchain. Relative dirs resolve against
// currentDir.
func Resolve(currentDir string, currentToolchain Label, input string) (Label, error) {
	body := input
	toolchainDir, toolchainName := currentToolchain.dir, currentToolchain.Name()

	if i := strings.IndexByte(body, '('); i >= 0 {
		if !strings.HasSuffix(body, ")") {
			return Label{}, fnerrors.BadLabel("unbalanced parentheses in label %q", input)
		}
		tcPart := body[i+1 : len(body)-1]
		body = body[:i]

		if strings.ContainsAny(tcPart, "()") {
			return Label{}, fnerrors.BadLabel("toolchain-inside-toolchain in label %q", input)
		}

		tcLabel, err := Resolve(currentDir, Label{}, tcPart)
		if err != nil {
			return Label{}, fnerrors.BadLabel("bad toolchain in label %q: %v", input, err)
		}
		toolchainDir, toolchainName = tcLabel.dir, tcLabel.Name()
	}

	if body == "" {
		return Label{}, fnerrors.BadLabel("empty label %q", input)
	}

	dirPart := body
	namePart := ""
	if i := strings.IndexByte(body, ':'); i >= 0 {
		dirPart = body[:i]
		namePart = body[i+1:]
	}

	dir, err := resolveDir(currentDir, dirPart)
	if err != nil {
		return Label{}, fnerrors.BadLabel("bad directory in label %q: %v", input, err)
	}

	if namePart == "" {
		namePart = lastComponent(dir)
	}
	if namePart == "" {
		return Label{}, fnerrors.BadLabel("empty name in label %q", input)
	}

	return Make(dir, namePart, toolchainDir, toolchainName), nil
}

func resolveDir(currentDir, dirPart string) (string, error) {
	switch {
	case dirPart == "":
		return currentDir, nil
	case strings.HasPrefix(dirPart, "//"):
		return cleanDir(dirPart), nil
	case strings.HasPrefix(dirPart, "/"):
		return "", fmt.Errorf("absolute paths must start with // (got %q)", dirPart)
	default:
		if currentDir == "" {
			return "", fmt.Errorf("relative label %q requires a current directory", dirPart)
		}
		joined := strings.TrimSuffix(currentDir, "/") + "/" + dirPart
		return cleanDir(joined), nil
	}
}

func cleanDir(dir string) string {
	if !strings.HasPrefix(dir, "//") {
		return dir
	}
	rest := dir[2:]
	parts := strings.Split(rest, "/")
	var out []string
	for _, p := range parts {
		switch p {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, p)
		}
	}
	return "//" + strings.Join(out, "/")
}

func lastComponent(dir string) string {
	parts := strings.Split(strings.TrimSuffix(dir, "/"), "/")
	return parts[len(parts)-1]
}
