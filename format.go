package mpisys

import (
	"fmt"
	"strings"
)

// String returns a human-readable summary of a build.
func (a *Artifacts) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Profile: %s\n", a.Profile)
	fmt.Fprintf(&b, "Compiler: %s\n", a.Compiler)
	if a.Variant != "" {
		fmt.Fprintf(&b, "Probed MPI: %s\n", a.Variant)
	}
	b.WriteString("\n")

	writeLibrary(&b, a.Library)
	b.WriteString("\n")

	b.WriteString("Outputs:\n")
	fmt.Fprintf(&b, "  Shim library: %s\n", a.ShimLibrary)
	fmt.Fprintf(&b, "  Bindings: %s\n", a.BindingsPath)
	b.WriteString("\n")

	b.WriteString("Directives:\n")
	for _, d := range a.Directives {
		fmt.Fprintf(&b, "  %s\n", d)
	}

	return b.String()
}

// String returns a human-readable summary of the profile payload.
func (p LibraryProfile) String() string {
	var b strings.Builder
	writeLibrary(&b, p)
	return b.String()
}

func writeLibrary(b *strings.Builder, p LibraryProfile) {
	b.WriteString("Library:\n")
	writeList(b, "  Libs", p.Libs)
	writeList(b, "  Lib paths", p.LibPaths)
	writeList(b, "  Include paths", p.IncludePaths)
	fmt.Fprintf(b, "  Version: %s\n", p.Version)
}

func writeList(b *strings.Builder, name string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: (none)\n", name)
		return
	}
	fmt.Fprintf(b, "%s:\n", name)
	for _, it := range items {
		fmt.Fprintf(b, "    %s\n", it)
	}
}
