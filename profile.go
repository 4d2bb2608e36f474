package mpisys

import (
	"fmt"
	"slices"
	"strings"
)

// LibraryProfile describes how to build and link against one MPI installation.
type LibraryProfile struct {
	// Libs are the native libraries to link, in link order.
	Libs []string `json:"libs" yaml:"libs"`
	// LibPaths are the directories searched for Libs.
	LibPaths []string `json:"lib_paths" yaml:"lib_paths"`
	// IncludePaths are the directories searched for C headers.
	IncludePaths []string `json:"include_paths" yaml:"include_paths"`
	// Version is an opaque identifier. It is not the probed library version.
	Version string `json:"version" yaml:"version"`
}

// Validate returns a *[ConfigError] naming the first empty field.
func (p LibraryProfile) Validate() error {
	var field string
	switch {
	case len(p.Libs) == 0:
		field = "libs"
	case len(p.LibPaths) == 0:
		field = "lib_paths"
	case len(p.IncludePaths) == 0:
		field = "include_paths"
	case p.Version == "":
		field = "version"
	default:
		return nil
	}
	return &ConfigError{
		Variable: "profile." + field,
		Err:      fmt.Errorf("%w: %s is empty", ErrInvalidProfile, field),
	}
}

// Clone returns a deep copy so callers cannot mutate a registry entry.
func (p LibraryProfile) Clone() LibraryProfile {
	return LibraryProfile{
		Libs:         slices.Clone(p.Libs),
		LibPaths:     slices.Clone(p.LibPaths),
		IncludePaths: slices.Clone(p.IncludePaths),
		Version:      p.Version,
	}
}

// Profile identifies one supported (platform, vendor, version) combination.
//
// The set is closed: adding a profile means adding a constant here, a case in
// every switch below, and a selection branch in [Select].
type Profile int

const (
	// ProfileUnixOpenMPI is Open MPI as packaged by Debian/Ubuntu on x86_64.
	ProfileUnixOpenMPI Profile = iota
	// ProfileArcher2CrayMPICH is Cray MPICH built with AOCC on ARCHER2.
	ProfileArcher2CrayMPICH
)

// Profiles returns every registered profile in declaration order.
func Profiles() []Profile {
	return []Profile{ProfileUnixOpenMPI, ProfileArcher2CrayMPICH}
}

// unknownVersion is the placeholder carried by every static profile.
const unknownVersion = "unknown"

// Library returns the profile payload. The result is a fresh copy.
func (p Profile) Library() LibraryProfile {
	switch p {
	case ProfileUnixOpenMPI:
		return LibraryProfile{
			Libs: []string{"mpi"},
			LibPaths: []string{
				"/usr/lib/x86_64-linux-gnu/openmpi/lib",
			},
			IncludePaths: []string{
				"/usr/lib/x86_64-linux-gnu/openmpi/include/openmpi",
				"/usr/lib/x86_64-linux-gnu/openmpi/include",
			},
			Version: unknownVersion,
		}
	case ProfileArcher2CrayMPICH:
		return LibraryProfile{
			Libs: []string{"mpi"},
			LibPaths: []string{
				"/opt/cray/pe/mpich/8.1.4/ofi/AOCC/2.2/lib/",
				"/opt/cray/pe/mpich/8.1.4/ofi/AOCC/2.2/lib-abi-mpich/",
				"/opt/AMD/aocc-compiler-2.2.0/lib/",
			},
			IncludePaths: []string{
				"/opt/cray/pe/mpich/8.1.4/ofi/AOCC/2.2/include/",
				"/opt/AMD/aocc-compiler-2.2.0/include/",
			},
			Version: unknownVersion,
		}
	default:
		return LibraryProfile{}
	}
}

// Compiler returns the compiler wrapper used to build the shim for this profile.
func (p Profile) Compiler() string {
	switch p {
	case ProfileUnixOpenMPI:
		// Available on most Open MPI compatible systems.
		return "mpicc"
	case ProfileArcher2CrayMPICH:
		// Cray programming environment wrapper.
		return "cc"
	default:
		return ""
	}
}

var profileNames = map[Profile]string{
	ProfileUnixOpenMPI:      "unix-openmpi",
	ProfileArcher2CrayMPICH: "archer2-cray-mpich",
}

func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Profile(%d)", p)
}

// MarshalText implements [encoding.TextMarshaler].
func (p Profile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ProfileNames returns the names of all profiles in declaration order.
func ProfileNames() []string {
	names := make([]string, 0, len(profileNames))
	for _, p := range Profiles() {
		names = append(names, p.String())
	}
	return names
}

// ParseProfile returns the profile with the given name (case-insensitive).
func ParseProfile(name string) (Profile, error) {
	for _, p := range Profiles() {
		if strings.EqualFold(p.String(), strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
}
