package mpisys

import (
	"path/filepath"
	"strings"
)

// Requirement describes a precondition consumable by [Check].
//
// Built-in implementations include:
//   - [ToolRequirement]
//   - [HeaderRequirement]
//   - [DirRequirement]
//   - [RequirementGroup]
type Requirement interface {
	isRequirement()
}

// RequirementGroup is a reusable set of [Requirement] items.
type RequirementGroup []Requirement

// HeaderRequirement requires a C header in at least one of Dirs.
type HeaderRequirement struct {
	Name string
	Dirs []string
}

// DirRequirement requires an existing directory.
type DirRequirement struct {
	Path    string
	Purpose string
}

// RequireHeader creates a requirement for a header searched in dirs.
func RequireHeader(name string, dirs ...string) HeaderRequirement {
	return HeaderRequirement{Name: name, Dirs: dirs}
}

// RequireDir creates a requirement for a directory.
func RequireDir(path, purpose string) DirRequirement {
	return DirRequirement{Path: path, Purpose: purpose}
}

func (ToolRequirement) isRequirement()   {}
func (HeaderRequirement) isRequirement() {}
func (DirRequirement) isRequirement()    {}
func (RequirementGroup) isRequirement()  {}

// ProfileRequirements lists what a build with sel and cfg needs on the host:
// the compiler wrapper, an archiver, a preprocessor, the MPI and shim headers
// and every library search directory.
func ProfileRequirements(sel Selection, cfg Config) RequirementGroup {
	archiver := cfg.Archiver
	if archiver == "" {
		archiver = "ar"
		if detectFamily(sel.Compiler).msvcLike() {
			archiver = "lib"
		}
	}
	clang := cfg.Clang
	if clang == "" {
		clang = "clang"
	}

	group := RequirementGroup{
		ToolRequirement{Name: sel.Compiler, Purpose: "shim compiler"},
		ToolRequirement{Name: archiver, Purpose: "archiver"},
		ToolRequirement{Name: clang, Alternatives: []string{"cc", "gcc"}, Purpose: "bindings preprocessor"},
		RequireHeader("mpi.h", sel.Library.IncludePaths...),
		RequireHeader(filepath.Base(ShimHeader), filepath.Join(cfg.SourceDir, filepath.Dir(ShimHeader))),
	}
	for _, dir := range sel.Library.LibPaths {
		group = append(group, RequireDir(dir, "library search path"))
	}
	return group
}

type requirementSet struct {
	tools   []ToolRequirement
	headers []HeaderRequirement
	dirs    []DirRequirement

	seenTools   map[string]struct{}
	seenHeaders map[string]struct{}
	seenDirs    map[string]struct{}
}

func normalizeRequirements(required []Requirement) requirementSet {
	rs := requirementSet{
		seenTools:   map[string]struct{}{},
		seenHeaders: map[string]struct{}{},
		seenDirs:    map[string]struct{}{},
	}
	for _, req := range required {
		rs.add(req)
	}
	return rs
}

func (rs *requirementSet) add(req Requirement) {
	switch r := req.(type) {
	case ToolRequirement:
		key := strings.Join(append([]string{r.Name}, r.Alternatives...), "|")
		if _, ok := rs.seenTools[key]; ok {
			return
		}
		rs.seenTools[key] = struct{}{}
		rs.tools = append(rs.tools, r)
	case HeaderRequirement:
		key := r.Name + "|" + strings.Join(r.Dirs, "|")
		if _, ok := rs.seenHeaders[key]; ok {
			return
		}
		rs.seenHeaders[key] = struct{}{}
		rs.headers = append(rs.headers, r)
	case DirRequirement:
		if _, ok := rs.seenDirs[r.Path]; ok {
			return
		}
		rs.seenDirs[r.Path] = struct{}{}
		rs.dirs = append(rs.dirs, r)
	case RequirementGroup:
		for _, nested := range r {
			if nested == nil {
				continue
			}
			rs.add(nested)
		}
	}
}
