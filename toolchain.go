package mpisys

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Family classifies a C compiler by its command-line dialect.
type Family int

const (
	// FamilyGNU covers gcc, clang and MPI wrappers around them.
	FamilyGNU Family = iota
	// FamilyMSVC is cl.exe.
	FamilyMSVC
	// FamilyClangCL is clang in MSVC-compatible mode.
	FamilyClangCL
)

func (f Family) String() string {
	switch f {
	case FamilyGNU:
		return "gnu"
	case FamilyMSVC:
		return "msvc"
	case FamilyClangCL:
		return "clang-cl"
	default:
		return fmt.Sprintf("Family(%d)", f)
	}
}

// msvcLike reports whether f uses cl.exe style flags.
func (f Family) msvcLike() bool {
	return f == FamilyMSVC || f == FamilyClangCL
}

// detectFamily classifies a compiler from its executable name. Backslash
// separators are accepted on every host.
func detectFamily(path string) Family {
	base := strings.ToLower(filepath.Base(strings.ReplaceAll(path, `\`, "/")))
	base = strings.TrimSuffix(base, ".exe")
	switch base {
	case "cl":
		return FamilyMSVC
	case "clang-cl":
		return FamilyClangCL
	default:
		return FamilyGNU
	}
}

// Toolchain is a resolved compiler together with the environment it runs in.
// The Binding Generator reuses it to recover system include directories.
type Toolchain struct {
	Name   string
	Path   string
	Family Family
	Env    []string
}

// Getenv returns the value of key in the toolchain environment.
// Later entries win, matching how os/exec treats duplicates.
func (tc *Toolchain) Getenv(key string) (string, bool) {
	prefix := key + "="
	for i := len(tc.Env) - 1; i >= 0; i-- {
		if strings.HasPrefix(tc.Env[i], prefix) {
			return strings.TrimPrefix(tc.Env[i], prefix), true
		}
	}
	return "", false
}

// ResolveToolchain locates name via ex and snapshots env for later use.
func ResolveToolchain(ex Executor, name string, env []string) (*Toolchain, error) {
	path, err := ex.LookPath(name)
	if err != nil {
		return nil, &ToolchainError{Op: "resolve compiler", Tool: name, Err: err}
	}
	return &Toolchain{
		Name:   name,
		Path:   path,
		Family: detectFamily(path),
		Env:    slices.Clone(env),
	}, nil
}

// IncludeHarvester contributes system include directories that a toolchain
// communicates through its environment rather than through flags.
type IncludeHarvester interface {
	// Supports reports whether the harvester applies to tc.
	Supports(tc *Toolchain) bool
	// Harvest returns the extra include directories, in order.
	Harvest(tc *Toolchain) []string
}

// EnvIncludeHarvester splits a list-valued environment variable.
type EnvIncludeHarvester struct {
	Variable  string
	Separator string
	Families  []Family
}

// Supports implements [IncludeHarvester].
func (h EnvIncludeHarvester) Supports(tc *Toolchain) bool {
	return tc != nil && slices.Contains(h.Families, tc.Family)
}

// Harvest implements [IncludeHarvester].
func (h EnvIncludeHarvester) Harvest(tc *Toolchain) []string {
	raw, ok := tc.Getenv(h.Variable)
	if !ok {
		return nil
	}
	var dirs []string
	for _, dir := range strings.Split(raw, h.Separator) {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// DefaultHarvesters covers the MSVC family, which passes system headers via
// INCLUDE. Other toolchains contribute nothing.
var DefaultHarvesters = []IncludeHarvester{
	EnvIncludeHarvester{Variable: "INCLUDE", Separator: ";", Families: []Family{FamilyMSVC, FamilyClangCL}},
}

// HarvestIncludes runs every applicable harvester against tc.
func HarvestIncludes(tc *Toolchain, harvesters []IncludeHarvester) []string {
	var dirs []string
	for _, h := range harvesters {
		if !h.Supports(tc) {
			continue
		}
		dirs = append(dirs, h.Harvest(tc)...)
	}
	return dirs
}

// ToolRequirement describes an executable the pipeline needs.
type ToolRequirement struct {
	// Name is the preferred executable.
	Name string
	// Alternatives are tried in order when Name is missing.
	Alternatives []string
	// Purpose is shown when nothing is found.
	Purpose string
}

// Find returns the first available executable among Name and Alternatives.
func (r ToolRequirement) Find(ex Executor) (string, error) {
	for _, candidate := range append([]string{r.Name}, r.Alternatives...) {
		if candidate == "" {
			continue
		}
		if _, err := ex.LookPath(candidate); err == nil {
			return candidate, nil
		}
	}
	tried := strings.Join(append([]string{r.Name}, r.Alternatives...), ", ")
	return "", &ToolchainError{
		Op:   "resolve " + r.Purpose,
		Tool: tried,
		Err:  fmt.Errorf("%w: none of [%s] found in PATH", ErrToolNotFound, tried),
	}
}
